package cli

import (
	"github.com/spf13/cobra"

	"github.com/rshade/mediabatch/internal/config"
	"github.com/rshade/mediabatch/internal/jobs"
)

type ttsFlags struct {
	batchFlags

	Voice          string
	Model          string
	Format         string
	CircuitBreaker bool
}

// NewTTSCmd creates the tts command, which voices each input row.
func NewTTSCmd() *cobra.Command {
	var flags ttsFlags

	cmd := &cobra.Command{
		Use:   "tts",
		Short: "Generate speech for a batch of text lines",
		Long: `Voices each row of a tab-separated input:

  text [<TAB> voice_id]

--voice applies one voice to every row. Otherwise each row uses its own voice, falling
back to jobs.tts.voice from the config; a row left without a voice stops the job before
anything is sent. Concurrency is the number of enabled keys, capped by the row count,
and each worker pins its own key. Bulk retries are spaced by --retry-delay (1.5s by
default) to stay under provider rate limits.`,
		Example: `  # One voice for the whole script
  mediabatch tts --input script.txt --voice 21m00Tcm4TlvDq8ikWAM

  # Per-row voices, retrying failures after the first pass
  mediabatch tts --input script.tsv --retry-failed --retry-delay 3s`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runTTS(cmd, &flags)
		},
	}

	flags.register(cmd, "tab-separated rows of text[, voice_id]")
	cmd.Flags().StringVar(&flags.Voice, "voice", "", "voice ID applied to every row")
	cmd.Flags().StringVar(&flags.Model, "model", "", "model ID (default from config)")
	cmd.Flags().StringVar(&flags.Format, "format", "", "output format (default from config)")
	cmd.Flags().BoolVar(&flags.CircuitBreaker, "circuit-breaker", false,
		"let the backend stop a key after repeated failures")
	cmd.Flags().IntVar(&flags.Concurrency, "concurrency", 0, "lower the key-derived concurrency")

	return cmd
}

func runTTS(cmd *cobra.Command, flags *ttsFlags) error {
	ctx := cmd.Context()
	cfg := config.GetGlobalConfig()
	jobCfg := cfg.Jobs.TTS

	rows, lock, err := loadInput(flags.Input)
	if err != nil {
		return err
	}
	defer func() { _ = lock.Release() }()

	client, err := connectBackend(ctx, cfg)
	if err != nil {
		return err
	}

	configured := cfg.Keys.EnabledElevenLabsKeys()
	keyCount, err := jobs.SpeechKeyCount(ctx, configured, client)
	if err != nil {
		return err
	}
	switch {
	case keyCount == 0:
		logger.Warn().Ctx(ctx).Msg("no enabled speech keys; the backend will pick one per request")
	case len(configured) > keyCount:
		logger.Warn().Ctx(ctx).
			Int("configured", len(configured)).
			Int("backend", keyCount).
			Msg("backend holds fewer enabled speech keys than configured; using the backend count")
	}

	model := flags.Model
	if model == "" {
		model = jobCfg.Model
	}
	format := flags.Format
	if format == "" {
		format = jobCfg.Format
	}
	concurrency := flags.Concurrency
	if concurrency <= 0 {
		concurrency = jobCfg.Concurrency
	}

	session, err := jobs.NewTTSJob(client, rows, jobs.TTSOptions{
		Voice:          flags.Voice,
		DefaultVoice:   jobCfg.Voice,
		Model:          model,
		Format:         format,
		CircuitBreaker: flags.CircuitBreaker,
		KeyCount:       keyCount,
		Concurrency:    concurrency,
		RetryDelay:     flags.retryDelay(cmd, jobCfg.RetryDelay),
		Logger:         jobLogger(ctx),
	})
	if err != nil {
		return err
	}

	return executeBatch(cmd, &flags.batchFlags, session)
}
