package batch

import (
	"sync"
	"time"
)

// percentMultiplier is used to convert a ratio to percentage (0-100).
const percentMultiplier = 100

// ProgressCallback is an optional callback invoked after every task transition.
type ProgressCallback func(snapshot ProgressSnapshot)

// Progress tracks the progress of a batch run or a bulk retry.
// It provides thread-safe access to progress metrics for UI updates.
type Progress struct {
	// Total is the number of tasks in the run.
	Total int

	// Running is the number of tasks currently in flight.
	Running int

	// Succeeded is the number of tasks that finished successfully.
	Succeeded int

	// Failed is the number of tasks that failed, including tasks never started.
	Failed int

	// StartTime is when the run started.
	StartTime time.Time

	// LastUpdateTime is when progress was last updated.
	LastUpdateTime time.Time

	// mu protects concurrent access to progress fields.
	mu sync.RWMutex
}

// NewProgress creates a new progress tracker.
func NewProgress(total int) *Progress {
	now := time.Now()
	return &Progress{
		Total:          total,
		StartTime:      now,
		LastUpdateTime: now,
	}
}

// Start records a task entering the running state.
func (p *Progress) Start() {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.Running++
	p.LastUpdateTime = time.Now()
}

// Finish records a running task settling.
func (p *Progress) Finish(success bool) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.Running > 0 {
		p.Running--
	}
	if success {
		p.Succeeded++
	} else {
		p.Failed++
	}
	p.LastUpdateTime = time.Now()
}

// Abandon records a task that failed without being started.
func (p *Progress) Abandon() {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.Failed++
	p.LastUpdateTime = time.Now()
}

// Completed returns the number of settled tasks.
func (p *Progress) Completed() int {
	p.mu.RLock()
	defer p.mu.RUnlock()

	return p.Succeeded + p.Failed
}

// PercentComplete returns the completion percentage (0-100).
func (p *Progress) PercentComplete() float64 {
	p.mu.RLock()
	defer p.mu.RUnlock()

	return p.percentCompleteUnsafe()
}

// IsComplete returns true if every task has settled.
func (p *Progress) IsComplete() bool {
	p.mu.RLock()
	defer p.mu.RUnlock()

	return p.Succeeded+p.Failed >= p.Total
}

// ElapsedTime returns the time elapsed since the run started.
func (p *Progress) ElapsedTime() time.Duration {
	p.mu.RLock()
	defer p.mu.RUnlock()

	return time.Since(p.StartTime)
}

// EstimatedTimeRemaining estimates the remaining time based on current progress.
// Returns 0 if no task has settled yet.
func (p *Progress) EstimatedTimeRemaining() time.Duration {
	p.mu.RLock()
	defer p.mu.RUnlock()

	return p.etaUnsafe()
}

func (p *Progress) etaUnsafe() time.Duration {
	done := p.Succeeded + p.Failed
	if done == 0 {
		return 0
	}

	elapsed := time.Since(p.StartTime)
	avgPerTask := elapsed / time.Duration(done)
	remaining := p.Total - done
	if remaining < 0 {
		remaining = 0
	}

	return avgPerTask * time.Duration(remaining)
}

// TasksPerSecond returns the settle rate in tasks per second.
func (p *Progress) TasksPerSecond() float64 {
	p.mu.RLock()
	defer p.mu.RUnlock()

	return p.tasksPerSecondUnsafe()
}

// Snapshot returns a thread-safe copy of the current progress state.
func (p *Progress) Snapshot() ProgressSnapshot {
	p.mu.RLock()
	defer p.mu.RUnlock()

	return ProgressSnapshot{
		Total:           p.Total,
		Running:         p.Running,
		Succeeded:       p.Succeeded,
		Failed:          p.Failed,
		StartTime:       p.StartTime,
		LastUpdateTime:  p.LastUpdateTime,
		PercentComplete: p.percentCompleteUnsafe(),
		ElapsedTime:     time.Since(p.StartTime),
		TasksPerSecond:  p.tasksPerSecondUnsafe(),

		EstimatedTimeRemaining: p.etaUnsafe(),
	}
}

// ProgressSnapshot is an immutable snapshot of progress state.
type ProgressSnapshot struct {
	Total           int
	Running         int
	Succeeded       int
	Failed          int
	StartTime       time.Time
	LastUpdateTime  time.Time
	PercentComplete float64
	ElapsedTime     time.Duration
	TasksPerSecond  float64

	EstimatedTimeRemaining time.Duration
}

// Completed returns the number of settled tasks in the snapshot.
func (s ProgressSnapshot) Completed() int {
	return s.Succeeded + s.Failed
}

// percentCompleteUnsafe calculates percent complete without locking.
// Should only be called when already holding the lock.
func (p *Progress) percentCompleteUnsafe() float64 {
	if p.Total == 0 {
		return 0
	}
	return (float64(p.Succeeded+p.Failed) / float64(p.Total)) * percentMultiplier
}

// tasksPerSecondUnsafe calculates tasks per second without locking.
// Should only be called when already holding the lock.
func (p *Progress) tasksPerSecondUnsafe() float64 {
	elapsed := time.Since(p.StartTime).Seconds()
	if elapsed == 0 {
		return 0
	}
	return float64(p.Succeeded+p.Failed) / elapsed
}

// Reset resets the progress tracker to initial state.
func (p *Progress) Reset() {
	p.mu.Lock()
	defer p.mu.Unlock()

	now := time.Now()
	p.Running = 0
	p.Succeeded = 0
	p.Failed = 0
	p.StartTime = now
	p.LastUpdateTime = now
}
