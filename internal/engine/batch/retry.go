package batch

import (
	"context"
	"time"
)

// RetryOne re-invokes a single failed task with slot NoSlot. It touches no other task.
//
// It returns ErrTaskNotFailed if the task is not failed, and ErrTaskBusy (which also
// matches ErrTaskNotFailed) if the task is owned by an in-flight run or retry. A
// failing invocation is not an error: the outcome is recorded on the task and returned.
func (r *Runner[In, Out]) RetryOne(
	ctx context.Context,
	task *Task[In, Out],
	invoke InvokeFunc[In, Out],
) (Outcome[Out], error) {
	return r.retry(ctx, task, invoke, nil)
}

func (r *Runner[In, Out]) retry(
	ctx context.Context,
	task *Task[In, Out],
	invoke InvokeFunc[In, Out],
	progress *Progress,
) (Outcome[Out], error) {
	if task == nil {
		return Outcome[Out]{}, ErrNilTask
	}
	if invoke == nil {
		return Outcome[Out]{}, ErrNilInvoker
	}

	call, event, err := r.beginRetry(task, progress)
	if err != nil {
		return Outcome[Out]{}, err
	}
	defer r.release([]*Task[In, Out]{task})

	r.emit(event)
	return r.execute(ctx, task, call, invoke, progress), nil
}

func (r *Runner[In, Out]) beginRetry(task *Task[In, Out], progress *Progress) (Call[In], Event, error) {
	r.mu.Lock()
	if _, busy := r.claimed[task.ID]; busy {
		r.mu.Unlock()
		return Call[In]{}, Event{}, ErrTaskBusy
	}
	if task.Status != StatusFailed {
		r.mu.Unlock()
		return Call[In]{}, Event{}, ErrTaskNotFailed
	}
	r.claimed[task.ID] = struct{}{}
	r.mu.Unlock()

	call, event := r.begin(task, func() int { return NoSlot }, progress)
	return call, event, nil
}

// RetryAllFailed retries every task that is failed at call time, one at a time, in
// slice order. It waits interTaskDelay between consecutive retries, never before the
// first or after the last. Tasks that stopped being failed, or became busy, before
// their turn are skipped. When ctx is done, no further retry starts and the remaining
// tasks stay failed.
//
// The summary covers the whole slice.
func (r *Runner[In, Out]) RetryAllFailed(
	ctx context.Context,
	tasks []*Task[In, Out],
	invoke InvokeFunc[In, Out],
	interTaskDelay time.Duration,
) (Summary, error) {
	if len(tasks) == 0 {
		return Summary{}, ErrEmptyTasks
	}
	if invoke == nil {
		return Summary{}, ErrNilInvoker
	}

	selected := r.selectFailed(tasks)
	progress := NewProgress(len(selected))
	startTime := time.Now()

	r.logger.Debug().
		Int("failed", len(selected)).
		Dur("delay", interTaskDelay).
		Msg("bulk retry started")

	retried := 0
	for _, task := range selected {
		if ctx.Err() != nil {
			break
		}
		if retried > 0 && interTaskDelay > 0 {
			if err := sleepContext(ctx, interTaskDelay); err != nil {
				break
			}
		}
		if _, err := r.retry(ctx, task, invoke, progress); err != nil {
			r.logger.Debug().Str("task_id", task.ID).Err(err).Msg("retry skipped")
			continue
		}
		retried++
	}

	summary := r.summarize(tasks)
	summary.Elapsed = time.Since(startTime)

	r.logger.Info().
		Int("retried", retried).
		Int("succeeded", summary.SuccessCount).
		Int("failed", summary.FailureCount).
		Dur("elapsed", summary.Elapsed).
		Msg("bulk retry finished")

	r.emitSummary(summary)
	return summary, nil
}

func (r *Runner[In, Out]) selectFailed(tasks []*Task[In, Out]) []*Task[In, Out] {
	r.mu.Lock()
	defer r.mu.Unlock()

	var selected []*Task[In, Out]
	for _, task := range tasks {
		if task == nil || task.Status != StatusFailed {
			continue
		}
		if _, busy := r.claimed[task.ID]; busy {
			continue
		}
		selected = append(selected, task)
	}
	return selected
}

// sleepContext waits for d or until ctx is done.
func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return context.Cause(ctx)
	case <-timer.C:
		return nil
	}
}
