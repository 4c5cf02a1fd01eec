package cli

import (
	"fmt"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/rshade/mediabatch/internal/config"
	"github.com/rshade/mediabatch/internal/jobs"
)

// NewConfigValidateCmd creates the config validate command for validating configuration.
func NewConfigValidateCmd() *cobra.Command {
	var verbose bool
	cmd := &cobra.Command{
		Use:   "validate",
		Short: "Validate the effective configuration",
		Long: `Validates the effective configuration: the global file, the project overlay and
environment overrides, merged.

This checks:
- the backend URL, timeout and minimum version
- per-job concurrency and retry delays
- scene detection parameters
- cache limits, logging and output formats`,
		Example: `  # Validate current configuration
  mediabatch config validate

  # Validate and show the settings that drive scheduling
  mediabatch config validate --verbose`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runConfigValidate(cmd, verbose)
		},
	}

	cmd.Flags().BoolVarP(&verbose, "verbose", "v", false, "show detailed validation information")

	return cmd
}

// runConfigValidate executes the configuration validation logic.
func runConfigValidate(cmd *cobra.Command, verbose bool) error {
	cfg := config.GetGlobalConfig()

	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("configuration validation failed: %w", err)
	}

	cmd.Printf("✅ Configuration is valid\n")

	if verbose {
		printVerboseDetails(cmd, cfg)
	}

	return nil
}

// printVerboseDetails prints the settings that shape job scheduling.
func printVerboseDetails(cmd *cobra.Command, cfg *config.Config) {
	cmd.Println()
	cmd.Println("Configuration details:")
	cmd.Printf("  Backend: %s (timeout %s)\n", cfg.Backend.URL, cfg.Backend.Timeout)
	if cfg.Backend.MinVersion != "" {
		cmd.Printf("  Minimum backend version: %s\n", cfg.Backend.MinVersion)
	}
	cmd.Printf("  Output: %s, live view %s\n", cfg.Output.DefaultFormat, cfg.Output.TUI)
	cmd.Printf("  Logging level: %s\n", cfg.Logging.Level)
	cmd.Printf("  Log file: %s\n", cfg.Logging.File)

	printKeyDetails(cmd, cfg)
	printJobDetails(cmd, cfg)
}

// printKeyDetails prints configured key counts, never the keys.
func printKeyDetails(cmd *cobra.Command, cfg *config.Config) {
	if len(cfg.Keys.Gladia) == 0 && len(cfg.Keys.ElevenLabs) == 0 {
		cmd.Println("  No keys configured (read from the backend at run time)")
		return
	}
	cmd.Printf("  Gladia keys: %d\n", len(cfg.Keys.Gladia))
	cmd.Printf("  ElevenLabs keys: %d (%d enabled)\n",
		len(cfg.Keys.ElevenLabs), len(cfg.Keys.EnabledElevenLabsKeys()))
}

// printJobDetails prints per-kind scheduling settings.
func printJobDetails(cmd *cobra.Command, cfg *config.Config) {
	jobsCfg := []struct {
		kind jobs.Kind
		job  config.JobConfig
	}{
		{jobs.KindSubtitle, cfg.Jobs.Subtitle.JobConfig},
		{jobs.KindTTS, cfg.Jobs.TTS.JobConfig},
		{jobs.KindScene, cfg.Jobs.Scene.JobConfig},
		{jobs.KindDownload, cfg.Jobs.Download.JobConfig},
	}
	for _, j := range jobsCfg {
		concurrency := "from keys"
		if j.job.Concurrency > 0 {
			concurrency = fmt.Sprint(j.job.Concurrency)
		}
		cmd.Printf("  Job %s: concurrency %s, retry delay %s\n", j.kind, concurrency, j.job.RetryDelay)
	}
}

// NewConfigShowCmd creates the config show command, which prints the effective
// configuration as YAML with keys masked.
func NewConfigShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Print the effective configuration",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg := *config.GetGlobalConfig()

			gladia := make([]string, len(cfg.Keys.Gladia))
			for i, k := range cfg.Keys.Gladia {
				gladia[i] = jobs.MaskKey(k)
			}
			cfg.Keys.Gladia = gladia
			eleven := make([]config.ElevenLabsKey, len(cfg.Keys.ElevenLabs))
			for i, k := range cfg.Keys.ElevenLabs {
				eleven[i] = config.ElevenLabsKey{Key: jobs.MaskKey(k.Key), Enabled: k.Enabled}
			}
			cfg.Keys.ElevenLabs = eleven

			data, err := yaml.Marshal(&cfg)
			if err != nil {
				return fmt.Errorf("encoding configuration: %w", err)
			}
			if path := cfg.ConfigPath(); path != "" {
				cmd.Printf("# %s\n", path)
			}
			cmd.Print(string(data))
			return nil
		},
	}
}
