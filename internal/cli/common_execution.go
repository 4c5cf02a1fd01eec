package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/rshade/mediabatch/internal/backend"
	"github.com/rshade/mediabatch/internal/config"
	"github.com/rshade/mediabatch/internal/engine/batch"
	"github.com/rshade/mediabatch/internal/jobs"
	"github.com/rshade/mediabatch/internal/logging"
	"github.com/rshade/mediabatch/internal/tui"
)

// batchFlags are the flags shared by every job command.
type batchFlags struct {
	Input       string
	RetryFailed bool
	RetryDelay  time.Duration
	TUI         bool
	NoTUI       bool
	Output      string
	Concurrency int
}

func (f *batchFlags) register(cmd *cobra.Command, inputHelp string) {
	cmd.Flags().StringVarP(&f.Input, "input", "i", "", inputHelp+` ("-" reads stdin)`)
	cmd.Flags().BoolVar(&f.RetryFailed, "retry-failed", false,
		"retry every failed task once the first pass drains (plain mode)")
	cmd.Flags().DurationVar(&f.RetryDelay, "retry-delay", 0,
		"pause between consecutive retries of a bulk retry (default from config)")
	cmd.Flags().BoolVar(&f.TUI, "tui", false, "force the live terminal view")
	cmd.Flags().BoolVar(&f.NoTUI, "no-tui", false, "disable the live terminal view")
	cmd.Flags().StringVarP(&f.Output, "output", "o", "", "result format: table or json (default from config)")
	_ = cmd.MarkFlagRequired("input")
	cmd.MarkFlagsMutuallyExclusive("tui", "no-tui")
}

// retryDelay returns the flag value when set, else the configured one.
func (f *batchFlags) retryDelay(cmd *cobra.Command, configured time.Duration) time.Duration {
	if cmd.Flags().Changed("retry-delay") {
		return f.RetryDelay
	}
	return configured
}

// outputFormat resolves and validates the result format.
func (f *batchFlags) outputFormat(cfg *config.Config) (string, error) {
	format := f.Output
	if format == "" {
		format = cfg.Output.DefaultFormat
	}
	switch format {
	case "", outputTable:
		return outputTable, nil
	case outputJSON:
		return outputJSON, nil
	default:
		return "", fmt.Errorf("unsupported output format %q (want table or json)", format)
	}
}

// useTUI decides whether to drive the job from the live view. JSON output and stdin
// input always run plain; otherwise flags win over config, and "auto" requires a
// terminal on both stdin and stdout.
func (f *batchFlags) useTUI(cfg *config.Config, format string) bool {
	switch {
	case f.NoTUI || format == outputJSON || f.Input == jobs.StdinPath:
		return false
	case f.TUI:
		return true
	}
	switch cfg.Output.TUI {
	case config.TUIAlways:
		return true
	case config.TUINever:
		return false
	default:
		return isTerminal(os.Stdin) && isTerminal(os.Stdout)
	}
}

// loadInput locks the input file and parses its rows. The caller releases the lock
// after the last retry.
func loadInput(path string) ([]jobs.Row, *jobs.InputLock, error) {
	lock, err := jobs.LockInput(path)
	if err != nil {
		return nil, nil, err
	}
	rows, err := jobs.ReadRowsFile(path)
	if err != nil {
		_ = lock.Release()
		return nil, nil, err
	}
	return rows, lock, nil
}

// newBackendClient builds a client from the backend section of cfg.
func newBackendClient(ctx context.Context, cfg *config.Config) (*backend.Client, error) {
	log := logging.FromContext(ctx)
	client, err := backend.New(backend.Config{
		BaseURL:    cfg.Backend.URL,
		Timeout:    cfg.Backend.Timeout,
		MinVersion: cfg.Backend.MinVersion,
		Logger:     log,
	})
	if err != nil {
		return nil, fmt.Errorf("configuring backend client: %w", err)
	}
	return client, nil
}

// connectBackend builds a client and checks that the backend answers.
func connectBackend(ctx context.Context, cfg *config.Config) (*backend.Client, error) {
	client, err := newBackendClient(ctx, cfg)
	if err != nil {
		return nil, err
	}
	if _, err := client.Ping(ctx); err != nil {
		if backend.IsUnreachable(err) {
			return nil, fmt.Errorf("backend not reachable at %s (is it running?): %w", client.BaseURL(), err)
		}
		return nil, fmt.Errorf("backend health check failed: %w", err)
	}
	return client, nil
}

// jobLogger is the component logger handed to the jobs layer.
func jobLogger(ctx context.Context) zerolog.Logger {
	return logging.ComponentLogger(*logging.FromContext(ctx), "jobs")
}

// executeBatch runs ctrl to completion, through the live view or plainly, records the
// run in the history, renders the results, and maps failures to BatchFailureError.
func executeBatch(cmd *cobra.Command, flags *batchFlags, ctrl jobs.Controller) error {
	ctx := cmd.Context()
	log := logging.FromContext(ctx)
	cfg := config.GetGlobalConfig()

	format, err := flags.outputFormat(cfg)
	if err != nil {
		return err
	}

	if format == outputTable {
		renderSkipped(cmd.ErrOrStderr(), ctrl.Skipped())
	}

	started := time.Now()
	var runErr error
	if flags.useTUI(cfg, format) {
		_, runErr = tui.Run(ctx, ctrl)
	} else {
		runErr = runPlain(ctx, cmd.ErrOrStderr(), flags.RetryFailed, ctrl)
	}
	elapsed := time.Since(started)
	summary := ctrl.Summary()

	record := ctrl.Record(flags.Input, started)
	appendHistory(ctx, record)

	log.Info().Ctx(ctx).
		Str("run_id", record.RunID).
		Int("succeeded", summary.SuccessCount).
		Int("failed", summary.FailureCount).
		Dur("elapsed", elapsed).
		Msg("job finished")

	if runErr != nil && !errors.Is(runErr, tui.ErrInterrupted) {
		return runErr
	}

	switch format {
	case outputJSON:
		if err := renderJSON(cmd.OutOrStdout(), newBatchReport(record, ctrl.Tasks(), ctrl.Skipped())); err != nil {
			return err
		}
	default:
		if err := renderTaskTable(cmd.OutOrStdout(), ctrl.Tasks()); err != nil {
			return err
		}
		if err := renderSummaryLine(cmd.OutOrStdout(), ctrl.Kind(), summary, elapsed); err != nil {
			return err
		}
	}

	if runErr != nil {
		return runErr
	}
	if summary.HasFailures() {
		return &BatchFailureError{Kind: string(ctrl.Kind()), Summary: summary}
	}
	return nil
}

// runPlain runs ctrl with line-per-transition progress on w.
func runPlain(ctx context.Context, w io.Writer, retryFailed bool, ctrl jobs.Controller) error {
	printer := newLinePrinter(w, ctrl.Tasks())
	ctrl.OnEvent(printer.print)
	defer ctrl.OnEvent(nil)

	summary, err := ctrl.Run(ctx)
	if err != nil {
		return err
	}
	if !retryFailed || !summary.HasFailures() || ctx.Err() != nil {
		return nil
	}

	_, _ = fmt.Fprintf(w, "Retrying %d failed tasks (delay %v)\n", summary.FailureCount, ctrl.RetryDelay())
	if _, err := ctrl.RetryFailed(ctx); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}

// linePrinter writes one line per settled task.
type linePrinter struct {
	mu     sync.Mutex
	w      io.Writer
	labels map[string]string
	total  int
	done   int
}

func newLinePrinter(w io.Writer, tasks []jobs.TaskView) *linePrinter {
	labels := make(map[string]string, len(tasks))
	for _, t := range tasks {
		labels[t.ID] = t.Label
	}
	return &linePrinter{w: w, labels: labels, total: len(tasks)}
}

func (p *linePrinter) print(e batch.Event) {
	if !e.Status.IsTerminal() {
		return
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	if e.Attempt <= 1 {
		p.done++
	}
	mark := "ok"
	if e.Status == batch.StatusFailed {
		mark = "FAILED"
	}
	line := fmt.Sprintf("[%d/%d] %s %s", p.done, p.total, mark, p.labels[e.TaskID])
	if e.Attempt > 1 {
		line += fmt.Sprintf(" (attempt %d)", e.Attempt)
	}
	if e.Detail != "" {
		line += ": " + strings.TrimSpace(e.Detail)
	}
	_, _ = fmt.Fprintln(p.w, line)
}

// appendHistory stores record; history problems are logged, never fatal.
func appendHistory(ctx context.Context, record *config.RunRecord) {
	log := logging.FromContext(ctx)
	store, err := config.NewHistoryStore("")
	if err != nil {
		log.Warn().Ctx(ctx).Err(err).Msg("run history unavailable")
		return
	}
	if err := store.Append(record); err != nil {
		log.Warn().Ctx(ctx).Err(err).Str("path", store.FilePath()).Msg("could not record run history")
	}
}
