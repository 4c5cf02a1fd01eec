package cli

import (
	"context"
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/rshade/mediabatch/internal/backend"
	"github.com/rshade/mediabatch/internal/config"
	"github.com/rshade/mediabatch/internal/jobs"
)

// keyRow is one key in the keys listing.
type keyRow struct {
	Provider string `json:"provider"`
	Key      string `json:"key"`
	Enabled  bool   `json:"enabled"`
	Source   string `json:"source"`
	Note     string `json:"note,omitempty"`
}

type keysReport struct {
	Keys                []keyRow `json:"keys"`
	SubtitleConcurrency int      `json:"subtitle_concurrency"`
	TTSConcurrency      int      `json:"tts_concurrency"`
}

// NewKeysCmd creates the keys command, which shows the API keys that drive job
// concurrency.
func NewKeysCmd() *cobra.Command {
	var output string

	cmd := &cobra.Command{
		Use:   "keys",
		Short: "List API keys and the concurrency they allow",
		Long: `Lists the alignment and speech keys a job would use, masked.

Keys come from the config file (or MEDIABATCH_GLADIA_KEYS / MEDIABATCH_ELEVENLABS_KEYS)
first; when none are configured they are read from the backend settings.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			report, err := collectKeys(cmd.Context(), config.GetGlobalConfig())
			if err != nil {
				return err
			}
			if output == outputJSON {
				return renderJSON(cmd.OutOrStdout(), report)
			}
			renderKeys(cmd, report)
			return nil
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", outputTable, "output format: table or json")
	return cmd
}

func collectKeys(ctx context.Context, cfg *config.Config) (keysReport, error) {
	var report keysReport
	var client *backend.Client

	needBackend := len(cfg.Keys.Gladia) == 0 || len(cfg.Keys.ElevenLabs) == 0
	if needBackend {
		c, err := connectBackend(ctx, cfg)
		if err != nil {
			return report, err
		}
		client = c
	}

	if len(cfg.Keys.Gladia) > 0 {
		for _, k := range cfg.Keys.Gladia {
			report.Keys = append(report.Keys, keyRow{Provider: "gladia", Key: jobs.MaskKey(k), Enabled: true, Source: "config"})
		}
	} else {
		keys, err := client.GladiaKeys(ctx)
		if err != nil {
			return report, fmt.Errorf("fetching gladia keys: %w", err)
		}
		for _, k := range keys {
			report.Keys = append(report.Keys, keyRow{Provider: "gladia", Key: jobs.MaskKey(k), Enabled: true, Source: "backend"})
		}
	}
	report.SubtitleConcurrency = jobs.ConcurrencyFromKeys(len(report.Keys))

	enabled := 0
	if len(cfg.Keys.ElevenLabs) > 0 {
		for _, k := range cfg.Keys.ElevenLabs {
			report.Keys = append(report.Keys, keyRow{Provider: "elevenlabs", Key: jobs.MaskKey(k.Key), Enabled: k.Enabled, Source: "config"})
		}
		enabled = len(cfg.Keys.EnabledElevenLabsKeys())
	} else {
		keys, err := client.ElevenLabsKeys(ctx)
		if err != nil {
			return report, fmt.Errorf("fetching elevenlabs keys: %w", err)
		}
		for _, k := range keys {
			row := keyRow{Provider: "elevenlabs", Key: jobs.MaskKey(k.Key), Enabled: k.Enabled, Source: "backend"}
			switch {
			case k.AutoDisabled:
				row.Note = "auto-disabled: " + k.AutoDisabledReason
			case k.ManualDisabled:
				row.Note = "disabled"
			}
			if k.Enabled {
				enabled++
			}
			report.Keys = append(report.Keys, row)
		}
	}
	report.TTSConcurrency = jobs.ConcurrencyFromKeys(enabled)

	return report, nil
}

func renderKeys(cmd *cobra.Command, report keysReport) {
	rows := make([][]string, 0, len(report.Keys))
	for _, k := range report.Keys {
		rows = append(rows, []string{k.Provider, k.Key, strconv.FormatBool(k.Enabled), k.Source, k.Note})
	}
	cmd.Println(renderTable([]string{"Provider", "Key", "Enabled", "Source", "Note"}, rows, nil))
	cmd.Printf("Subtitle concurrency: %d\n", report.SubtitleConcurrency)
	cmd.Printf("TTS concurrency:      %d (capped by row count)\n", report.TTSConcurrency)
}
