package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"

	"github.com/spf13/cobra"

	"github.com/rshade/mediabatch/internal/backend"
	"github.com/rshade/mediabatch/internal/config"
	"github.com/rshade/mediabatch/internal/jobs"
	"github.com/rshade/mediabatch/internal/logging"
	"github.com/rshade/mediabatch/pkg/version"
)

// StepStatus represents the outcome of a single setup step.
type StepStatus int

const (
	// StepSuccess indicates the step completed successfully.
	StepSuccess StepStatus = iota
	// StepWarning indicates the step completed with a non-fatal issue.
	StepWarning
	// StepSkipped indicates the step was intentionally skipped via flag.
	StepSkipped
	// StepError indicates the step failed.
	StepError
)

// StepResult describes the outcome of executing a single setup step.
type StepResult struct {
	Name     string
	Status   StepStatus
	Message  string
	Critical bool
	Err      error
}

// SetupOptions holds the configuration for the setup command, derived from CLI flags.
type SetupOptions struct {
	SkipBackend    bool
	NonInteractive bool
}

// SetupResult is the aggregate outcome of all setup steps.
type SetupResult struct {
	Steps       []StepResult
	HasErrors   bool
	HasWarnings bool
}

// dirPermBase is the permission mode for the base and standard directories.
const dirPermBase = 0o700

// formatStatus returns a status marker appropriate for the output mode.
func formatStatus(status StepStatus, nonInteractive bool) string {
	if nonInteractive {
		switch status {
		case StepSuccess:
			return "[OK]"
		case StepWarning:
			return "[WARN]"
		case StepSkipped:
			return "[SKIP]"
		case StepError:
			return "[ERR]"
		default:
			return "[??]"
		}
	}

	switch status {
	case StepSuccess:
		return "✓" // ✓
	case StepWarning:
		return "!"
	case StepSkipped:
		return "-"
	case StepError:
		return "✗" // ✗
	default:
		return "?"
	}
}

// NewSetupCmd creates the setup command that prepares the mediabatch environment and
// checks the backend.
func NewSetupCmd() *cobra.Command {
	var opts SetupOptions

	cmd := &cobra.Command{
		Use:   "setup",
		Short: "Prepare directories and configuration, and check the backend",
		Long: `Sets up the mediabatch environment: creates the config, cache and log
directories, writes a default configuration, and checks that the backend answers
and exposes API keys.

This command is idempotent. An existing configuration file is preserved.`,
		Example: `  # Full setup
  mediabatch setup

  # CI setup without the backend check
  mediabatch setup --non-interactive --skip-backend`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runSetup(cmd, &opts)
		},
	}

	cmd.Flags().BoolVar(&opts.NonInteractive, "non-interactive", false,
		"Disable TTY-dependent output (status symbols)")
	cmd.Flags().BoolVar(&opts.SkipBackend, "skip-backend", false,
		"Skip the backend health and key checks")

	return cmd
}

// runSetup runs every step in order. A failing step does not stop later ones; the
// command fails only if a critical step failed.
func runSetup(cmd *cobra.Command, opts *SetupOptions) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	log := logging.FromContext(ctx)

	if !opts.NonInteractive && !isTerminal(os.Stdout) {
		opts.NonInteractive = true
	}

	result := &SetupResult{}
	record := func(steps ...StepResult) {
		for _, s := range steps {
			printStep(cmd, s, opts.NonInteractive)
			result.Steps = append(result.Steps, s)
		}
	}

	record(stepDisplayVersion())
	record(stepCreateDirectories()...)
	record(stepInitConfig())

	if opts.SkipBackend {
		record(StepResult{Name: "Backend check", Status: StepSkipped, Message: "Skipped backend check"})
	} else {
		record(stepCheckBackend(ctx, config.GetGlobalConfig())...)
	}

	for _, s := range result.Steps {
		if s.Status == StepError && s.Critical {
			result.HasErrors = true
		}
		if s.Status == StepWarning {
			result.HasWarnings = true
		}
	}

	printSummary(cmd, result)

	if result.HasErrors {
		log.Error().Ctx(ctx).Str("component", "setup").Msg("setup completed with critical errors")
		return errors.New("setup failed: one or more critical steps failed")
	}
	return nil
}

// printStep outputs a single step's status line.
func printStep(cmd *cobra.Command, step StepResult, nonInteractive bool) {
	cmd.Printf("%s %s\n", formatStatus(step.Status, nonInteractive), step.Message)
}

// printSummary outputs the final completion message.
func printSummary(cmd *cobra.Command, result *SetupResult) {
	cmd.Println()
	if result.HasErrors {
		cmd.Println("Setup completed with errors. Review the messages above for remediation steps.")
	} else {
		cmd.Println("Setup complete! Run 'mediabatch tts --input script.tsv' to get started.")
	}
}

// stepDisplayVersion reports the mediabatch version and Go runtime.
func stepDisplayVersion() StepResult {
	return StepResult{
		Name:    "Version display",
		Status:  StepSuccess,
		Message: fmt.Sprintf("mediabatch v%s (%s)", version.GetVersion(), runtime.Version()),
	}
}

// stepCreateDirectories creates the config directory and its cache and logs subdirectories.
func stepCreateDirectories() []StepResult {
	baseDir, err := config.GetConfigDir()
	if err != nil {
		return []StepResult{{
			Name:     "Directory creation",
			Status:   StepError,
			Message:  fmt.Sprintf("Cannot determine config directory: %v\n  Try: export %s=/path/to/dir", err, config.EnvHome),
			Critical: true,
			Err:      err,
		}}
	}

	var results []StepResult
	for _, dir := range []string{baseDir, filepath.Join(baseDir, "cache"), filepath.Join(baseDir, "logs")} {
		if info, statErr := os.Stat(dir); statErr == nil && info.IsDir() {
			results = append(results, StepResult{
				Name:     "Directory creation",
				Status:   StepSuccess,
				Message:  fmt.Sprintf("Directory exists: %s", dir),
				Critical: true,
			})
			continue
		}

		if mkErr := os.MkdirAll(dir, dirPermBase); mkErr != nil {
			results = append(results, StepResult{
				Name:   "Directory creation",
				Status: StepError,
				Message: fmt.Sprintf("Failed to create %s: %v\n  Try: export %s=/path/to/writable/directory",
					dir, mkErr, config.EnvHome),
				Critical: true,
				Err:      mkErr,
			})
			continue
		}

		results = append(results, StepResult{
			Name:     "Directory creation",
			Status:   StepSuccess,
			Message:  fmt.Sprintf("Created %s", dir),
			Critical: true,
		})
	}
	return results
}

// stepInitConfig writes the default config file if one does not exist.
func stepInitConfig() StepResult {
	cfg := config.Default()
	configPath := cfg.ConfigPath()

	if _, err := os.Stat(configPath); err == nil {
		return StepResult{
			Name:     "Config initialization",
			Status:   StepSuccess,
			Message:  fmt.Sprintf("Config already exists (%s)", configPath),
			Critical: true,
		}
	}

	if err := cfg.Save(); err != nil {
		return StepResult{
			Name:     "Config initialization",
			Status:   StepError,
			Message:  fmt.Sprintf("Failed to initialize config: %v", err),
			Critical: true,
			Err:      err,
		}
	}

	return StepResult{
		Name:     "Config initialization",
		Status:   StepSuccess,
		Message:  fmt.Sprintf("Initialized config (%s)", configPath),
		Critical: true,
	}
}

// stepCheckBackend pings the backend and counts the keys it exposes. Problems are
// warnings: setup is useful before the backend is running.
func stepCheckBackend(ctx context.Context, cfg *config.Config) []StepResult {
	client, err := newBackendClient(ctx, cfg)
	if err != nil {
		return []StepResult{{Name: "Backend check", Status: StepWarning, Message: err.Error(), Err: err}}
	}

	status, err := client.Health(ctx)
	if err != nil {
		msg := fmt.Sprintf("Backend check failed at %s: %v", client.BaseURL(), err)
		if backend.IsUnreachable(err) {
			msg = fmt.Sprintf("Backend not reachable at %s; start it or set %s", client.BaseURL(), config.EnvBackendURL)
		}
		return []StepResult{{Name: "Backend check", Status: StepWarning, Message: msg, Err: err}}
	}

	results := []StepResult{{
		Name:    "Backend check",
		Status:  StepSuccess,
		Message: fmt.Sprintf("Backend healthy at %s (version %s)", client.BaseURL(), orUnknown(status.Version)),
	}}
	if err := client.CheckVersion(status); err != nil {
		results = append(results, StepResult{Name: "Backend version", Status: StepWarning, Message: err.Error(), Err: err})
	}

	gladia, gErr := jobs.ResolveGladiaKeys(ctx, cfg.Keys.Gladia, client)
	speech, sErr := jobs.ResolveElevenLabsKeys(ctx, cfg.Keys.EnabledElevenLabsKeys(), client)
	if keyErr := errors.Join(gErr, sErr); keyErr != nil {
		return append(results, StepResult{Name: "API keys", Status: StepWarning, Message: keyErr.Error(), Err: keyErr})
	}
	keyStatus := StepSuccess
	if len(gladia) == 0 || len(speech) == 0 {
		keyStatus = StepWarning
	}
	return append(results, StepResult{
		Name:    "API keys",
		Status:  keyStatus,
		Message: fmt.Sprintf("%d alignment keys, %d enabled speech keys", len(gladia), len(speech)),
	})
}

func orUnknown(s string) string {
	if s == "" {
		return "unknown"
	}
	return s
}
