// Package jobs builds the four batch jobs (subtitle, tts, scene, download) on top
// of the generic batch runner.
//
// A job turns input rows into tasks, derives its concurrency from the available
// API keys, and supplies the invoke closure that calls the backend. The resulting
// Session owns the task list for the lifetime of one run plus any retries, and
// keeps an event-fed projection of it that UIs can read at any time.
package jobs

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/oklog/ulid/v2"
	"github.com/rs/zerolog"

	"github.com/rshade/mediabatch/internal/backend"
	"github.com/rshade/mediabatch/internal/config"
	"github.com/rshade/mediabatch/internal/engine/batch"
)

// Kind names a job.
type Kind string

// Job kinds.
const (
	KindSubtitle Kind = "subtitle"
	KindTTS      Kind = "tts"
	KindScene    Kind = "scene"
	KindDownload Kind = "download"
)

// Errors returned while building or driving a session.
var (
	ErrNoTasks     = errors.New("no eligible rows in input")
	ErrUnknownTask = errors.New("unknown task")
)

// TaskView is a read-only snapshot of one task.
type TaskView struct {
	ID    string
	Label string

	// Line is the input line the task came from.
	Line int

	Status  batch.Status
	Attempt int
	Slot    int

	// Detail is the error text on failure, or a short result description on success.
	Detail string

	// Class is the backend error class of the latest failed call, and Permanent
	// whether repeating that call cannot help. Both are empty unless failed.
	Class     backend.Class
	Permanent bool

	StartedAt time.Time
	UpdatedAt time.Time
}

// Skipped is an input row that was not turned into a task.
type Skipped struct {
	Line   int    `json:"line"`
	Reason string `json:"reason"`
}

// Controller is the kind-independent surface of a Session, used by the CLI and TUI.
type Controller interface {
	Kind() Kind
	Tasks() []TaskView
	Skipped() []Skipped
	Concurrency() int
	RetryDelay() time.Duration
	Summary() batch.Summary
	OnEvent(fn func(batch.Event))
	OnProgress(fn batch.ProgressCallback)
	Run(ctx context.Context) (batch.Summary, error)
	RetryOne(ctx context.Context, taskID string) (batch.Status, error)
	RetryFailed(ctx context.Context) (batch.Summary, error)
	Record(input string, startedAt time.Time) *config.RunRecord
}

// entry is one eligible row before it becomes a task.
type entry[In any] struct {
	line  int
	label string
	input In
}

// Session drives one job's task list through a run and any retries.
type Session[In, Out any] struct {
	kind        Kind
	tasks       []*batch.Task[In, Out]
	byID        map[string]*batch.Task[In, Out]
	skipped     []Skipped
	concurrency int
	retryDelay  time.Duration
	invoke      batch.InvokeFunc[In, Out]
	runner      *batch.Runner[In, Out]
	logger      zerolog.Logger

	mu         sync.Mutex
	views      []TaskView
	index      map[string]int
	retried    int
	failures   map[string]failureClass
	onEvent    func(batch.Event)
	onProgress batch.ProgressCallback
}

// Compile-time check.
var _ Controller = (*Session[string, string])(nil)

func newSession[In, Out any](
	kind Kind,
	entries []entry[In],
	skipped []Skipped,
	concurrency int,
	retryDelay time.Duration,
	invoke batch.InvokeFunc[In, Out],
	describe func(Out) string,
	logger zerolog.Logger,
) (*Session[In, Out], error) {
	if len(entries) == 0 {
		return nil, fmt.Errorf("%s: %w", kind, ErrNoTasks)
	}

	s := &Session[In, Out]{
		kind:        kind,
		tasks:       make([]*batch.Task[In, Out], 0, len(entries)),
		byID:        make(map[string]*batch.Task[In, Out], len(entries)),
		skipped:     skipped,
		concurrency: batch.ClampConcurrency(concurrency),
		retryDelay:  retryDelay,
		logger:      logger.With().Str("component", "jobs").Str("kind", string(kind)).Logger(),
		views:       make([]TaskView, 0, len(entries)),
		index:       make(map[string]int, len(entries)),
		failures:    make(map[string]failureClass),
	}
	s.invoke = s.classify(invoke)

	for _, e := range entries {
		id := uuid.NewString()
		task := batch.NewTask[In, Out](id, e.input)
		s.tasks = append(s.tasks, task)
		s.byID[id] = task
		s.index[id] = len(s.views)
		s.views = append(s.views, TaskView{
			ID:     id,
			Label:  e.label,
			Line:   e.line,
			Status: batch.StatusPending,
			Slot:   batch.NoSlot,
		})
	}

	s.runner = batch.NewRunner[In, Out]().
		WithStatusCallback(s.handleEvent).
		WithProgressCallback(s.handleProgress).
		WithResultDescriber(describe).
		WithLogger(s.logger)
	return s, nil
}

func (s *Session[In, Out]) handleEvent(event batch.Event) {
	s.mu.Lock()
	if i, ok := s.index[event.TaskID]; ok {
		v := &s.views[i]
		v.Status = event.Status
		v.Attempt = event.Attempt
		v.Slot = event.Slot
		v.Detail = event.Detail
		v.UpdatedAt = event.At
		v.Class, v.Permanent = "", false
		if event.Status == batch.StatusFailed {
			f := s.failures[event.TaskID]
			v.Class, v.Permanent = f.class, f.permanent
		}
		if event.Status == batch.StatusRunning {
			v.StartedAt = event.At
			if event.Slot == batch.NoSlot {
				s.retried++
			}
		}
	}
	fn := s.onEvent
	s.mu.Unlock()

	if fn != nil {
		fn(event)
	}
}

type failureClass struct {
	class     backend.Class
	permanent bool
}

// classify records the error class of every invocation before the runner reports it.
func (s *Session[In, Out]) classify(invoke batch.InvokeFunc[In, Out]) batch.InvokeFunc[In, Out] {
	return func(ctx context.Context, call batch.Call[In]) (Out, error) {
		out, err := invoke(ctx, call)
		s.mu.Lock()
		if err != nil {
			class := backend.Classify(err)
			s.failures[call.TaskID] = failureClass{
				class:     class,
				permanent: class != backend.ClassUnknown && !backend.Retryable(err),
			}
		} else {
			delete(s.failures, call.TaskID)
		}
		s.mu.Unlock()
		return out, err
	}
}

func (s *Session[In, Out]) handleProgress(snapshot batch.ProgressSnapshot) {
	s.mu.Lock()
	fn := s.onProgress
	s.mu.Unlock()

	if fn != nil {
		fn(snapshot)
	}
}

// Kind returns the job kind.
func (s *Session[In, Out]) Kind() Kind { return s.kind }

// Concurrency returns the cap used by Run.
func (s *Session[In, Out]) Concurrency() int { return s.concurrency }

// RetryDelay returns the pause used between bulk retries.
func (s *Session[In, Out]) RetryDelay() time.Duration { return s.retryDelay }

// Skipped returns the rows that were not eligible.
func (s *Session[In, Out]) Skipped() []Skipped {
	return append([]Skipped(nil), s.skipped...)
}

// Tasks returns a snapshot of every task in input order. Safe to call at any time.
func (s *Session[In, Out]) Tasks() []TaskView {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]TaskView(nil), s.views...)
}

// Summary counts the snapshot's terminal states.
func (s *Session[In, Out]) Summary() batch.Summary {
	s.mu.Lock()
	defer s.mu.Unlock()

	summary := batch.Summary{Total: len(s.views)}
	for _, v := range s.views {
		switch v.Status { //nolint:exhaustive // pending and running are not counted.
		case batch.StatusSuccess:
			summary.SuccessCount++
		case batch.StatusFailed:
			summary.FailureCount++
		}
	}
	return summary
}

// OnEvent registers a listener for task transitions.
func (s *Session[In, Out]) OnEvent(fn func(batch.Event)) {
	s.mu.Lock()
	s.onEvent = fn
	s.mu.Unlock()
}

// OnProgress registers a listener for progress snapshots.
func (s *Session[In, Out]) OnProgress(fn batch.ProgressCallback) {
	s.mu.Lock()
	s.onProgress = fn
	s.mu.Unlock()
}

// Run executes every task once.
func (s *Session[In, Out]) Run(ctx context.Context) (batch.Summary, error) {
	s.logger.Info().Ctx(ctx).
		Int("tasks", len(s.tasks)).
		Int("skipped", len(s.skipped)).
		Int("concurrency", s.concurrency).
		Msg("starting job")
	return s.runner.Run(ctx, s.tasks, s.concurrency, s.invoke)
}

// RetryOne retries a single failed task and returns its new status.
func (s *Session[In, Out]) RetryOne(ctx context.Context, taskID string) (batch.Status, error) {
	task, ok := s.byID[taskID]
	if !ok {
		return "", fmt.Errorf("%w: %s", ErrUnknownTask, taskID)
	}
	outcome, err := s.runner.RetryOne(ctx, task, s.invoke)
	if err != nil {
		return "", err
	}
	return outcome.Status, nil
}

// RetryFailed retries every failed task sequentially with the session's delay.
func (s *Session[In, Out]) RetryFailed(ctx context.Context) (batch.Summary, error) {
	return s.runner.RetryAllFailed(ctx, s.tasks, s.invoke, s.retryDelay)
}

// Results returns the successful results keyed by task ID. It must not be called
// while a run or retry is in flight.
func (s *Session[In, Out]) Results() map[string]Out {
	out := make(map[string]Out)
	for _, t := range s.tasks {
		if t.Status == batch.StatusSuccess {
			out[t.ID] = t.Result
		}
	}
	return out
}

// Record summarizes the session for the run history.
func (s *Session[In, Out]) Record(input string, startedAt time.Time) *config.RunRecord {
	summary := s.Summary()
	views := s.Tasks()

	s.mu.Lock()
	retried := s.retried
	s.mu.Unlock()

	record := &config.RunRecord{
		RunID:      ulid.Make().String(),
		Kind:       string(s.kind),
		Input:      input,
		StartedAt:  startedAt,
		FinishedAt: time.Now(),
		Total:      summary.Total,
		Succeeded:  summary.SuccessCount,
		Failed:     summary.FailureCount,
		Retried:    retried,
	}
	for _, v := range views {
		if v.Status == batch.StatusFailed {
			record.Failures = append(record.Failures, config.FailureRecord{
				TaskID:    v.ID,
				Label:     v.Label,
				Error:     v.Detail,
				Attempt:   v.Attempt,
				Class:     string(v.Class),
				Permanent: v.Permanent,
			})
		}
	}
	return record
}

// ConcurrencyFromKeys derives the worker count from the number of API keys.
func ConcurrencyFromKeys(n int) int {
	return max(1, n)
}
