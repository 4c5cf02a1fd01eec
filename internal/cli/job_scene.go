package cli

import (
	"github.com/spf13/cobra"

	"github.com/rshade/mediabatch/internal/config"
	"github.com/rshade/mediabatch/internal/engine/cache"
	"github.com/rshade/mediabatch/internal/jobs"
)

type sceneFlags struct {
	batchFlags

	Threshold   float64
	MinInterval float64
	NoCache     bool
}

// NewSceneCmd creates the scene command, which detects scene cuts in each listed video.
func NewSceneCmd() *cobra.Command {
	var flags sceneFlags

	cmd := &cobra.Command{
		Use:   "scene",
		Short: "Detect scene cuts for a batch of video files",
		Long: `Detects scene cuts in each file listed in the input, one path per line.

Results are cached by path, file content and detection parameters, so re-running an
unchanged list only contacts the backend for files that failed or changed.`,
		Example: `  # Detect scenes sequentially
  mediabatch scene --input files.txt

  # More sensitive detection, two files at a time, bypassing the cache
  mediabatch scene --input files.txt --threshold 0.2 --concurrency 2 --no-cache`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runScene(cmd, &flags)
		},
	}

	flags.register(cmd, "file paths, one per line")
	cmd.Flags().Float64Var(&flags.Threshold, "threshold", 0, "detection threshold 0-1 (default from config)")
	cmd.Flags().Float64Var(&flags.MinInterval, "min-interval", 0,
		"minimum seconds between cuts (default from config)")
	cmd.Flags().IntVar(&flags.Concurrency, "concurrency", 0, "files analysed at once (default from config)")
	cmd.Flags().BoolVar(&flags.NoCache, "no-cache", false, "ignore cached results")

	return cmd
}

func runScene(cmd *cobra.Command, flags *sceneFlags) error {
	ctx := cmd.Context()
	cfg := config.GetGlobalConfig()
	jobCfg := cfg.Jobs.Scene

	rows, lock, err := loadInput(flags.Input)
	if err != nil {
		return err
	}
	defer func() { _ = lock.Release() }()

	client, err := connectBackend(ctx, cfg)
	if err != nil {
		return err
	}

	var store *cache.FileStore
	if jobCfg.UseCache && !flags.NoCache {
		store, err = openCache(cfg)
		if err != nil {
			logger.Warn().Ctx(ctx).Err(err).Msg("result cache unavailable, continuing without it")
			store = nil
		}
	}

	opts := jobs.SceneOptions{
		Threshold:   jobCfg.Threshold,
		MinInterval: jobCfg.MinInterval,
		Concurrency: jobCfg.Concurrency,
		Cache:       store,
		RetryDelay:  flags.retryDelay(cmd, jobCfg.RetryDelay),
		Logger:      jobLogger(ctx),
	}
	if cmd.Flags().Changed("threshold") {
		opts.Threshold = flags.Threshold
	}
	if cmd.Flags().Changed("min-interval") {
		opts.MinInterval = flags.MinInterval
	}
	if flags.Concurrency > 0 {
		opts.Concurrency = flags.Concurrency
	}

	session, err := jobs.NewSceneJob(client, rows, opts)
	if err != nil {
		return err
	}

	return executeBatch(cmd, &flags.batchFlags, session)
}

// openCache opens the result cache described by the cache section of cfg.
func openCache(cfg *config.Config) (*cache.FileStore, error) {
	return cache.Options{
		Directory:  cfg.Cache.Directory,
		Enabled:    cfg.Cache.Enabled,
		TTLSeconds: cfg.Cache.TTLSeconds,
		MaxSizeMB:  cfg.Cache.MaxSizeMB,
	}.WithEnv().Open()
}
