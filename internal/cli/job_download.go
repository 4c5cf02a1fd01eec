package cli

import (
	"github.com/spf13/cobra"

	"github.com/rshade/mediabatch/internal/config"
	"github.com/rshade/mediabatch/internal/jobs"
)

type downloadFlags struct {
	batchFlags

	Quality   string
	Ext       string
	AudioOnly bool
	Subtitles bool
	SubLang   string
	OutputDir string
}

// NewDownloadCmd creates the download command, which fetches each listed video.
func NewDownloadCmd() *cobra.Command {
	var flags downloadFlags

	cmd := &cobra.Command{
		Use:   "download",
		Short: "Download a batch of videos",
		Long: `Downloads each URL in the input:

  url [<TAB> title]

Each URL is one task, so a failed download can be retried on its own. Rows that are
not http(s) URLs are skipped.`,
		Example: `  # Eight downloads at a time into ./videos
  mediabatch download --input urls.tsv --threads 8 --output-dir ./videos

  # Audio only, with English subtitles
  mediabatch download --input urls.tsv --audio-only --subs --sub-lang en`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runDownload(cmd, &flags)
		},
	}

	flags.register(cmd, "tab-separated rows of url[, title]")
	cmd.Flags().IntVar(&flags.Concurrency, "threads", 0, "parallel downloads (default from config)")
	cmd.Flags().StringVar(&flags.Quality, "quality", "", "quality selector (default from config)")
	cmd.Flags().StringVar(&flags.Ext, "ext", "", "container extension (default from config)")
	cmd.Flags().BoolVar(&flags.AudioOnly, "audio-only", false, "download audio only")
	cmd.Flags().BoolVar(&flags.Subtitles, "subs", false, "also download subtitles")
	cmd.Flags().StringVar(&flags.SubLang, "sub-lang", "en", "subtitle language")
	cmd.Flags().StringVar(&flags.OutputDir, "output-dir", "", "directory for downloads (default from config)")

	return cmd
}

func runDownload(cmd *cobra.Command, flags *downloadFlags) error {
	ctx := cmd.Context()
	cfg := config.GetGlobalConfig()
	jobCfg := cfg.Jobs.Download

	rows, lock, err := loadInput(flags.Input)
	if err != nil {
		return err
	}
	defer func() { _ = lock.Release() }()

	client, err := connectBackend(ctx, cfg)
	if err != nil {
		return err
	}

	opts := jobs.DownloadOptions{
		Threads:    jobCfg.Concurrency,
		Quality:    firstNonEmpty(flags.Quality, jobCfg.Quality),
		Ext:        firstNonEmpty(flags.Ext, jobCfg.Ext),
		AudioOnly:  flags.AudioOnly,
		Subtitles:  flags.Subtitles,
		SubLang:    flags.SubLang,
		OutputDir:  firstNonEmpty(flags.OutputDir, jobCfg.OutputDir),
		RetryDelay: flags.retryDelay(cmd, jobCfg.RetryDelay),
		Logger:     jobLogger(ctx),
	}
	if flags.Concurrency > 0 {
		opts.Threads = flags.Concurrency
	}

	session, err := jobs.NewDownloadJob(client, rows, opts)
	if err != nil {
		return err
	}

	return executeBatch(cmd, &flags.batchFlags, session)
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
