package batch

import (
	"context"
	"time"
)

// Status is the lifecycle state of a task.
type Status string

// Task lifecycle states.
const (
	StatusPending Status = "pending"
	StatusRunning Status = "running"
	StatusSuccess Status = "success"
	StatusFailed  Status = "failed"
)

// IsTerminal reports whether the status ends an attempt.
func (s Status) IsTerminal() bool {
	return s == StatusSuccess || s == StatusFailed
}

// NoSlot is the slot index used for invocations made outside a batch run (retries).
const NoSlot = -1

// Task is one unit of batch work.
//
// The runner mutates Status, Result, Error, Attempt, Slot, StartedAt and FinishedAt.
// ID and Input belong to the caller and must not change while the task is part of a
// run or retry.
type Task[In, Out any] struct {
	// ID is unique within a batch and never reused.
	ID string

	// Input is the opaque payload handed to the invoker.
	Input In

	// Status is the current lifecycle state.
	Status Status

	// Result is set only when Status is StatusSuccess.
	Result Out

	// Error is the failure reason, set only when Status is StatusFailed.
	Error string

	// Attempt counts invocation attempts. The first run is attempt 1.
	Attempt int

	// Slot is the concurrency slot of the latest attempt, or NoSlot.
	Slot int

	// StartedAt and FinishedAt bound the latest attempt.
	StartedAt  time.Time
	FinishedAt time.Time
}

// NewTask returns a pending task.
func NewTask[In, Out any](id string, input In) *Task[In, Out] {
	return &Task[In, Out]{
		ID:     id,
		Input:  input,
		Status: StatusPending,
		Slot:   NoSlot,
	}
}

// Duration returns how long the latest attempt took, or 0 if it has not finished.
func (t *Task[In, Out]) Duration() time.Duration {
	if t.StartedAt.IsZero() || t.FinishedAt.IsZero() {
		return 0
	}
	return t.FinishedAt.Sub(t.StartedAt)
}

// Call is the value passed to an InvokeFunc. It is a copy, so invokers never
// observe concurrent task mutation.
type Call[In any] struct {
	TaskID  string
	Input   In
	Attempt int
	Slot    int
}

// IsRetry reports whether the call was made by RetryOne or RetryAllFailed.
func (c Call[In]) IsRetry() bool {
	return c.Slot == NoSlot
}

// InvokeFunc performs the remote operation for one task.
// A nil error marks the task successful with the returned result.
type InvokeFunc[In, Out any] func(ctx context.Context, call Call[In]) (Out, error)

// Outcome is the settled state of a single retry.
type Outcome[Out any] struct {
	Status Status
	Result Out
	Error  string
}

// Event describes one task transition. Events are values and safe to keep.
type Event struct {
	TaskID  string
	Status  Status
	Attempt int
	Slot    int

	// Detail is the error text on failure, or the described result on success.
	Detail string

	At time.Time
}

// Summary aggregates the terminal states of a task list.
type Summary struct {
	SuccessCount int
	FailureCount int
	Total        int
	Elapsed      time.Duration
}

// HasFailures reports whether at least one task failed.
func (s Summary) HasFailures() bool {
	return s.FailureCount > 0
}

// AllFailed reports whether every task failed.
func (s Summary) AllFailed() bool {
	return s.Total > 0 && s.FailureCount == s.Total
}

// Summarize counts successes and failures. It must not be called while a run
// over the same tasks is in flight.
func Summarize[In, Out any](tasks []*Task[In, Out]) Summary {
	s := Summary{Total: len(tasks)}
	for _, t := range tasks {
		if t == nil {
			continue
		}
		switch t.Status { //nolint:exhaustive // pending and running are not counted.
		case StatusSuccess:
			s.SuccessCount++
		case StatusFailed:
			s.FailureCount++
		}
	}
	return s
}

// FailedTasks returns the failed tasks in input order.
func FailedTasks[In, Out any](tasks []*Task[In, Out]) []*Task[In, Out] {
	var failed []*Task[In, Out]
	for _, t := range tasks {
		if t != nil && t.Status == StatusFailed {
			failed = append(failed, t)
		}
	}
	return failed
}
