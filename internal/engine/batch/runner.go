package batch

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
)

// MinConcurrency is the smallest concurrency a run accepts. Lower values are clamped.
const MinConcurrency = 1

// Common runner errors. They signal contract violations, never task failures.
var (
	ErrEmptyTasks      = errors.New("task list cannot be empty")
	ErrNilInvoker      = errors.New("invoke function cannot be nil")
	ErrNilTask         = errors.New("task cannot be nil")
	ErrTaskNotPending  = errors.New("task is not pending")
	ErrDuplicateTaskID = errors.New("duplicate task id")
	ErrTaskNotFailed   = errors.New("task is not failed")
	ErrTaskBusy        = fmt.Errorf("%w: task is in flight", ErrTaskNotFailed)
	ErrInvokePanic     = errors.New("panic")
)

// unknownFailure is recorded when an invoker fails with an empty error message.
const unknownFailure = "unknown error"

// StatusCallback receives every task transition.
type StatusCallback func(event Event)

// SummaryCallback receives the summary after a run or bulk retry drains.
type SummaryCallback func(summary Summary)

// Runner executes task lists with a concurrency cap and tracks their lifecycle.
// A Runner may be reused for many runs; it rejects overlapping work on the same task.
type Runner[In, Out any] struct {
	// onStatus is an optional callback for task transitions.
	onStatus StatusCallback

	// onSummary is an optional callback for drained runs.
	onSummary SummaryCallback

	// onProgress is an optional callback for progress updates.
	onProgress ProgressCallback

	// describe renders a successful result into Event.Detail.
	describe func(Out) string

	logger zerolog.Logger

	// mu protects task state and claimed.
	mu sync.Mutex

	// claimed holds the IDs of tasks owned by an in-flight run or retry.
	claimed map[string]struct{}
}

// NewRunner creates a runner with no callbacks and a disabled logger.
func NewRunner[In, Out any]() *Runner[In, Out] {
	return &Runner[In, Out]{
		logger:  zerolog.Nop(),
		claimed: make(map[string]struct{}),
	}
}

// WithStatusCallback sets the callback fired after every task transition.
func (r *Runner[In, Out]) WithStatusCallback(callback StatusCallback) *Runner[In, Out] {
	r.onStatus = callback
	return r
}

// WithSummaryCallback sets the callback fired once a run or bulk retry drains.
func (r *Runner[In, Out]) WithSummaryCallback(callback SummaryCallback) *Runner[In, Out] {
	r.onSummary = callback
	return r
}

// WithProgressCallback sets the progress callback.
func (r *Runner[In, Out]) WithProgressCallback(callback ProgressCallback) *Runner[In, Out] {
	r.onProgress = callback
	return r
}

// WithResultDescriber sets how successful results appear in Event.Detail.
func (r *Runner[In, Out]) WithResultDescriber(describe func(Out) string) *Runner[In, Out] {
	r.describe = describe
	return r
}

// WithLogger sets the logger used for task transitions and summaries.
func (r *Runner[In, Out]) WithLogger(logger zerolog.Logger) *Runner[In, Out] {
	r.logger = logger
	return r
}

// ClampConcurrency returns n, or MinConcurrency when n is lower.
func ClampConcurrency(n int) int {
	if n < MinConcurrency {
		return MinConcurrency
	}
	return n
}

// Run executes every task with at most concurrency invocations in flight.
//
// Tasks are dequeued in slice order by min(concurrency, len(tasks)) worker loops.
// Each started task gets slot (tasks started so far) mod concurrency. Invocation
// failures are recorded on the task and never abort the batch. When ctx is done, no
// further task starts; tasks never started are marked failed with the cancellation
// cause, and in-flight tasks settle normally.
//
// The returned error is non-nil only for contract violations, in which case no task
// was touched.
func (r *Runner[In, Out]) Run(
	ctx context.Context,
	tasks []*Task[In, Out],
	concurrency int,
	invoke InvokeFunc[In, Out],
) (Summary, error) {
	if err := validateRun(tasks, invoke); err != nil {
		return Summary{}, err
	}
	if err := r.claim(tasks); err != nil {
		return Summary{}, err
	}
	defer r.release(tasks)

	concurrency = ClampConcurrency(concurrency)
	workers := min(concurrency, len(tasks))

	queue := make(chan *Task[In, Out], len(tasks))
	for _, task := range tasks {
		queue <- task
	}
	close(queue)

	progress := NewProgress(len(tasks))
	started := 0
	startTime := time.Now()

	r.logger.Debug().
		Int("tasks", len(tasks)).
		Int("concurrency", concurrency).
		Int("workers", workers).
		Msg("batch run started")

	var g errgroup.Group
	for range workers {
		g.Go(func() error {
			for task := range queue {
				if ctx.Err() != nil {
					r.abandon(ctx, task, progress)
					continue
				}
				call, event := r.begin(task, func() int {
					slot := started % concurrency
					started++
					return slot
				}, progress)
				r.emit(event)
				r.execute(ctx, task, call, invoke, progress)
			}
			return nil
		})
	}
	_ = g.Wait()

	summary := r.summarize(tasks)
	summary.Elapsed = time.Since(startTime)

	r.logger.Info().
		Int("total", summary.Total).
		Int("succeeded", summary.SuccessCount).
		Int("failed", summary.FailureCount).
		Dur("elapsed", summary.Elapsed).
		Msg("batch run finished")

	r.emitSummary(summary)
	return summary, nil
}

// validateRun checks the preconditions of Run without mutating anything.
func validateRun[In, Out any](tasks []*Task[In, Out], invoke InvokeFunc[In, Out]) error {
	if len(tasks) == 0 {
		return ErrEmptyTasks
	}
	if invoke == nil {
		return ErrNilInvoker
	}

	seen := make(map[string]struct{}, len(tasks))
	for i, task := range tasks {
		if task == nil {
			return fmt.Errorf("%w: index %d", ErrNilTask, i)
		}
		if _, dup := seen[task.ID]; dup {
			return fmt.Errorf("%w: %q", ErrDuplicateTaskID, task.ID)
		}
		seen[task.ID] = struct{}{}
	}
	return nil
}

// claim marks every task as owned by a run. Status is checked under the lock so a
// concurrent retry cannot slip in between validation and scheduling.
func (r *Runner[In, Out]) claim(tasks []*Task[In, Out]) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, task := range tasks {
		if _, busy := r.claimed[task.ID]; busy {
			return fmt.Errorf("%w: %q", ErrTaskBusy, task.ID)
		}
		if task.Status != StatusPending {
			return fmt.Errorf("%w: %q is %s", ErrTaskNotPending, task.ID, task.Status)
		}
	}
	for _, task := range tasks {
		r.claimed[task.ID] = struct{}{}
	}
	return nil
}

func (r *Runner[In, Out]) release(tasks []*Task[In, Out]) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, task := range tasks {
		delete(r.claimed, task.ID)
	}
}

// begin moves a task to running and returns the call for the invoker.
// nextSlot runs under the lock.
func (r *Runner[In, Out]) begin(
	task *Task[In, Out],
	nextSlot func() int,
	progress *Progress,
) (Call[In], Event) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var zero Out
	task.Slot = nextSlot()
	task.Status = StatusRunning
	task.Attempt++
	task.Result = zero
	task.Error = ""
	task.StartedAt = time.Now()
	task.FinishedAt = time.Time{}

	if progress != nil {
		progress.Start()
	}

	r.logger.Debug().
		Str("task_id", task.ID).
		Int("attempt", task.Attempt).
		Int("slot", task.Slot).
		Msg("task started")

	call := Call[In]{
		TaskID:  task.ID,
		Input:   task.Input,
		Attempt: task.Attempt,
		Slot:    task.Slot,
	}
	return call, eventFor(task, "")
}

// execute invokes the operation and records its outcome.
func (r *Runner[In, Out]) execute(
	ctx context.Context,
	task *Task[In, Out],
	call Call[In],
	invoke InvokeFunc[In, Out],
	progress *Progress,
) Outcome[Out] {
	out, err := safeInvoke(ctx, invoke, call)
	outcome, event := r.finish(task, out, err, progress)
	if err == nil && r.describe != nil {
		r.guard("describe", func() { event.Detail = r.describe(out) })
	}
	r.emit(event)
	r.emitProgress(progress)
	return outcome
}

// safeInvoke converts a panic inside invoke into an error wrapping ErrInvokePanic.
func safeInvoke[In, Out any](
	ctx context.Context,
	invoke InvokeFunc[In, Out],
	call Call[In],
) (out Out, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			var zero Out
			out = zero
			err = fmt.Errorf("%w: %v", ErrInvokePanic, rec)
		}
	}()
	return invoke(ctx, call)
}

func (r *Runner[In, Out]) finish(
	task *Task[In, Out],
	out Out,
	err error,
	progress *Progress,
) (Outcome[Out], Event) {
	r.mu.Lock()
	defer r.mu.Unlock()

	task.FinishedAt = time.Now()
	detail := ""
	if err == nil {
		task.Status = StatusSuccess
		task.Result = out
		task.Error = ""
		r.logger.Debug().
			Str("task_id", task.ID).
			Int("attempt", task.Attempt).
			Dur("duration", task.Duration()).
			Msg("task succeeded")
	} else {
		var zero Out
		task.Status = StatusFailed
		task.Result = zero
		task.Error = err.Error()
		if task.Error == "" {
			task.Error = unknownFailure
		}
		detail = task.Error
		r.logger.Debug().
			Str("task_id", task.ID).
			Int("attempt", task.Attempt).
			Str("reason", task.Error).
			Msg("task failed")
	}

	if progress != nil {
		progress.Finish(err == nil)
	}

	outcome := Outcome[Out]{Status: task.Status, Result: task.Result, Error: task.Error}
	return outcome, eventFor(task, detail)
}

// abandon fails a task that was dequeued after cancellation.
func (r *Runner[In, Out]) abandon(ctx context.Context, task *Task[In, Out], progress *Progress) {
	r.mu.Lock()
	task.Status = StatusFailed
	task.Error = fmt.Sprintf("not started: %v", context.Cause(ctx))
	task.FinishedAt = time.Now()
	progress.Abandon()
	event := eventFor(task, task.Error)
	r.mu.Unlock()

	r.emit(event)
	r.emitProgress(progress)
}

func (r *Runner[In, Out]) summarize(tasks []*Task[In, Out]) Summary {
	r.mu.Lock()
	defer r.mu.Unlock()

	return Summarize(tasks)
}

func eventFor[In, Out any](task *Task[In, Out], detail string) Event {
	return Event{
		TaskID:  task.ID,
		Status:  task.Status,
		Attempt: task.Attempt,
		Slot:    task.Slot,
		Detail:  detail,
		At:      time.Now(),
	}
}

func (r *Runner[In, Out]) emit(event Event) {
	if r.onStatus == nil {
		return
	}
	r.guard("status", func() { r.onStatus(event) })
}

func (r *Runner[In, Out]) emitSummary(summary Summary) {
	if r.onSummary == nil {
		return
	}
	r.guard("summary", func() { r.onSummary(summary) })
}

func (r *Runner[In, Out]) emitProgress(progress *Progress) {
	if r.onProgress == nil || progress == nil {
		return
	}
	snapshot := progress.Snapshot()
	r.guard("progress", func() { r.onProgress(snapshot) })
}

// guard runs a callback and logs instead of propagating a panic.
func (r *Runner[In, Out]) guard(name string, fn func()) {
	defer func() {
		if rec := recover(); rec != nil {
			r.logger.Error().
				Str("callback", name).
				Interface("panic", rec).
				Msg("callback panicked")
		}
	}()
	fn()
}
