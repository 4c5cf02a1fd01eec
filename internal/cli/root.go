// Package cli implements the mediabatch command tree.
package cli

import (
	"os"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/rshade/mediabatch/internal/config"
	"github.com/rshade/mediabatch/internal/logging"
)

// isTerminal checks if the given file is a terminal.
func isTerminal(f *os.File) bool {
	return term.IsTerminal(int(f.Fd()))
}

// logger is the package-level logger for CLI operations.
var logger zerolog.Logger //nolint:gochecknoglobals // Required for zerolog context integration

// NewRootCmd creates the root Cobra command for the mediabatch CLI.
// It loads configuration (global file, project overlay, environment), wires up
// logging and tracing, and registers the job and maintenance subcommands.
func NewRootCmd(ver string) *cobra.Command {
	var (
		logResult  *logging.LogPathResult
		projectDir string
		backendURL string
	)

	cmd := &cobra.Command{
		Use:           "mediabatch",
		Short:         "Batch media jobs against the local processing backend",
		Long:          "mediabatch: run subtitle, text-to-speech, scene detection and download batches with per-task retry",
		Version:       ver,
		Example:       rootCmdExample,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()

			cwd, err := os.Getwd()
			if err != nil {
				cwd = "."
			}
			resolved := config.ResolveProjectDir(ctx, projectDir, cwd)
			config.InitGlobalConfigWithProject(ctx, resolved)

			if backendURL != "" {
				config.GetGlobalConfig().Backend.URL = backendURL
			}

			result := setupLogging(cmd)
			logResult = &result
			return nil
		},
		PersistentPostRunE: func(_ *cobra.Command, _ []string) error {
			return logResult.Close()
		},
	}

	cmd.PersistentFlags().Bool("debug", false, "enable debug logging")
	cmd.PersistentFlags().StringVar(&projectDir, "project-dir", "",
		"project directory holding a .mediabatch/config.yaml overlay")
	cmd.PersistentFlags().StringVar(&backendURL, "backend-url", "",
		"backend API base URL (overrides config and "+config.EnvBackendURL+")")

	cmd.AddCommand(
		NewSubtitleCmd(), NewTTSCmd(), NewSceneCmd(), NewDownloadCmd(),
		NewKeysCmd(), NewHistoryCmd(), NewCacheCmd(), newConfigCmd(), NewSetupCmd(),
	)

	return cmd
}

const rootCmdExample = `  # Generate subtitles for every row of a pasted spreadsheet
  mediabatch subtitle --input rows.tsv --language en

  # Voice a script with one voice, retrying failures once the first pass drains
  mediabatch tts --input script.tsv --voice 21m00Tcm4TlvDq8ikWAM --retry-failed

  # Detect scenes without the live view, as JSON
  mediabatch scene --input files.txt --no-tui --output json

  # Download videos with 8 parallel downloads
  mediabatch download --input urls.tsv --threads 8

  # Show which API keys drive concurrency
  mediabatch keys

  # Review recent runs
  mediabatch history list`

// newConfigCmd creates the config command group with configuration subcommands.
func newConfigCmd() *cobra.Command {
	cmd := &cobra.Command{Use: "config", Short: "Configuration management commands"}
	cmd.AddCommand(NewConfigInitCmd(), NewConfigShowCmd(), NewConfigValidateCmd())
	return cmd
}
