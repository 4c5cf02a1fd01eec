package cli

import (
	"github.com/spf13/cobra"

	"github.com/rshade/mediabatch/internal/config"
	"github.com/rshade/mediabatch/internal/jobs"
)

type subtitleFlags struct {
	batchFlags

	Language       string
	CutLength      float64
	MergeSRT       bool
	SourceUpOrder  bool
	ExportFCPXML   bool
	SeamlessFCPXML bool
}

// NewSubtitleCmd creates the subtitle command, which aligns source text to audio
// for every input row.
func NewSubtitleCmd() *cobra.Command {
	var flags subtitleFlags

	cmd := &cobra.Command{
		Use:   "subtitle",
		Short: "Generate subtitles for a batch of audio files",
		Long: `Generates subtitles for each row of a tab-separated input:

  audio_path <TAB> source_text [<TAB> translate_text]

Rows without source text are skipped. One worker runs per alignment key, and each
worker sends its own key; a retried task sends every key so the backend can rotate.`,
		Example: `  # Rows pasted from a spreadsheet
  mediabatch subtitle --input rows.tsv

  # Chinese subtitles with a 10 second cut length, exported for Final Cut
  mediabatch subtitle --input rows.tsv --language zh --cut-length 10 --fcpxml --seamless`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runSubtitle(cmd, &flags)
		},
	}

	flags.register(cmd, "tab-separated rows of audio_path, source_text[, translate_text]")
	cmd.Flags().StringVar(&flags.Language, "language", "", "subtitle language (default from config)")
	cmd.Flags().Float64Var(&flags.CutLength, "cut-length", 0, "audio cut length in seconds (default from config)")
	cmd.Flags().BoolVar(&flags.MergeSRT, "merge-srt", false, "also write a merged bilingual SRT")
	cmd.Flags().BoolVar(&flags.SourceUpOrder, "source-up", false, "place the source line above the translation")
	cmd.Flags().BoolVar(&flags.ExportFCPXML, "fcpxml", false, "also export FCPXML titles")
	cmd.Flags().BoolVar(&flags.SeamlessFCPXML, "seamless", false, "close gaps between FCPXML titles")
	cmd.Flags().IntVar(&flags.Concurrency, "concurrency", 0, "override the key-derived concurrency")

	return cmd
}

func runSubtitle(cmd *cobra.Command, flags *subtitleFlags) error {
	ctx := cmd.Context()
	cfg := config.GetGlobalConfig()
	jobCfg := cfg.Jobs.Subtitle

	rows, lock, err := loadInput(flags.Input)
	if err != nil {
		return err
	}
	defer func() { _ = lock.Release() }()

	client, err := connectBackend(ctx, cfg)
	if err != nil {
		return err
	}

	keys, err := jobs.ResolveGladiaKeys(ctx, cfg.Keys.Gladia, client)
	if err != nil {
		return err
	}
	if len(keys) == 0 {
		logger.Warn().Ctx(ctx).Msg("no alignment keys configured; running one task at a time")
	}

	language := flags.Language
	if language == "" {
		language = jobCfg.Language
	}
	cutLength := flags.CutLength
	if cutLength <= 0 {
		cutLength = jobCfg.CutLength
	}
	concurrency := flags.Concurrency
	if concurrency <= 0 {
		concurrency = jobCfg.Concurrency
	}

	session, err := jobs.NewSubtitleJob(client, rows, jobs.SubtitleOptions{
		Language:       language,
		CutLength:      cutLength,
		MergeSRT:       flags.MergeSRT,
		SourceUpOrder:  flags.SourceUpOrder,
		ExportFCPXML:   flags.ExportFCPXML,
		SeamlessFCPXML: flags.SeamlessFCPXML,
		Keys:           keys,
		Concurrency:    concurrency,
		RetryDelay:     flags.retryDelay(cmd, jobCfg.RetryDelay),
		Logger:         jobLogger(ctx),
	})
	if err != nil {
		return err
	}

	return executeBatch(cmd, &flags.batchFlags, session)
}
