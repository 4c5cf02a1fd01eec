package tui

import (
	"context"
	"errors"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rshade/mediabatch/internal/config"
	"github.com/rshade/mediabatch/internal/engine/batch"
	"github.com/rshade/mediabatch/internal/jobs"
)

// fakeController serves a fixed task list and records retry calls.
type fakeController struct {
	tasks      []jobs.TaskView
	retried    []string
	retriedAll int
}

func (f *fakeController) Kind() jobs.Kind { return jobs.KindTTS }
func (f *fakeController) Tasks() []jobs.TaskView { return append([]jobs.TaskView(nil), f.tasks...) }
func (f *fakeController) Skipped() []jobs.Skipped { return []jobs.Skipped{{Line: 3, Reason: "missing voice"}} }
func (f *fakeController) Concurrency() int { return 2 }
func (f *fakeController) RetryDelay() time.Duration { return 0 }
func (f *fakeController) OnEvent(func(batch.Event)) {}
func (f *fakeController) OnProgress(batch.ProgressCallback) {}
func (f *fakeController) Run(context.Context) (batch.Summary, error) { return f.Summary(), nil }

func (f *fakeController) Summary() batch.Summary {
	s := batch.Summary{Total: len(f.tasks)}
	for _, t := range f.tasks {
		switch t.Status { //nolint:exhaustive // Only settled tasks count.
		case batch.StatusSuccess:
			s.SuccessCount++
		case batch.StatusFailed:
			s.FailureCount++
		}
	}
	return s
}

func (f *fakeController) RetryOne(_ context.Context, id string) (batch.Status, error) {
	f.retried = append(f.retried, id)
	return batch.StatusSuccess, nil
}

func (f *fakeController) RetryFailed(context.Context) (batch.Summary, error) {
	f.retriedAll++
	return f.Summary(), nil
}

func (f *fakeController) Record(string, time.Time) *config.RunRecord { return nil }

func newFake(statuses ...batch.Status) *fakeController {
	f := &fakeController{}
	for i, s := range statuses {
		f.tasks = append(f.tasks, jobs.TaskView{
			ID:      string(rune('a' + i)),
			Label:   "task " + string(rune('a'+i)),
			Line:    i + 1,
			Status:  s,
			Attempt: 1,
			Slot:    batch.NoSlot,
		})
	}
	return f
}

func keyRunes(s string) tea.KeyMsg {
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

func update(t *testing.T, m BatchModel, msg tea.Msg) (BatchModel, tea.Cmd) {
	t.Helper()
	updated, cmd := m.Update(msg)
	bm, ok := updated.(BatchModel)
	require.True(t, ok)
	return bm, cmd
}

func idleModel(t *testing.T, f *fakeController) BatchModel {
	t.Helper()
	m := NewBatchModel(context.Background(), nil, f)
	m, _ = update(t, m, RunDoneMsg{Summary: f.Summary()})
	require.Equal(t, ViewStateIdle, m.state)
	return m
}

func TestNewBatchModel(t *testing.T) {
	f := newFake(batch.StatusPending, batch.StatusPending)
	m := NewBatchModel(context.Background(), nil, f)

	assert.Equal(t, ViewStateRunning, m.state)
	assert.Len(t, m.Tasks(), 2)
	assert.True(t, m.Busy())
	assert.NotNil(t, m.Init())
}

func TestBatchModel_Events(t *testing.T) {
	f := newFake(batch.StatusPending, batch.StatusPending)
	m := NewBatchModel(context.Background(), nil, f)

	f.tasks[0].Status = batch.StatusRunning
	f.tasks[1].Status = batch.StatusFailed
	f.tasks[1].Detail = "boom"

	m, cmd := update(t, m, TaskEventMsg{Event: batch.Event{TaskID: "b", Status: batch.StatusFailed}})
	assert.Nil(t, cmd)
	assert.Equal(t, batch.StatusRunning, m.Tasks()[0].Status)
	assert.Equal(t, batch.StatusFailed, m.Tasks()[1].Status)

	view := m.View()
	assert.Contains(t, view, "task a")
	assert.Contains(t, view, "1 failed")
	assert.Contains(t, view, "1 running")
	assert.Contains(t, view, "1 rows skipped")
}

func TestBatchModel_Progress(t *testing.T) {
	f := newFake(batch.StatusPending)
	m := NewBatchModel(context.Background(), nil, f)

	m, _ = update(t, m, ProgressMsg{Snapshot: batch.ProgressSnapshot{
		Total:                  1,
		EstimatedTimeRemaining: 90 * time.Second,
	}})
	assert.Contains(t, m.View(), "ETA 1m30s")
}

func TestBatchModel_RunDone(t *testing.T) {
	f := newFake(batch.StatusSuccess)
	m := NewBatchModel(context.Background(), nil, f)

	runErr := errors.New("lock lost")
	m, _ = update(t, m, RunDoneMsg{Err: runErr})
	assert.Equal(t, ViewStateIdle, m.state)
	assert.False(t, m.Busy())
	require.ErrorIs(t, m.Err(), runErr)
	assert.Contains(t, m.View(), "lock lost")
}

func TestBatchModel_RetrySelected(t *testing.T) {
	t.Run("failed task", func(t *testing.T) {
		f := newFake(batch.StatusFailed, batch.StatusSuccess)
		m := idleModel(t, f)

		m, cmd := update(t, m, keyRunes("r"))
		require.NotNil(t, cmd)
		assert.True(t, m.retrying["a"])
		assert.True(t, m.Busy())
		assert.Contains(t, m.View(), "queued")

		// A second press while in flight is ignored.
		_, again := update(t, m, keyRunes("r"))
		assert.Nil(t, again)

		msg := cmd()
		done, ok := msg.(RetryDoneMsg)
		require.True(t, ok)
		assert.Equal(t, "a", done.TaskID)
		assert.Equal(t, []string{"a"}, f.retried)

		f.tasks[0].Status = batch.StatusSuccess
		m, _ = update(t, m, done)
		assert.False(t, m.Busy())
		assert.Equal(t, batch.StatusSuccess, m.Tasks()[0].Status)
	})

	t.Run("non-failed task", func(t *testing.T) {
		f := newFake(batch.StatusSuccess, batch.StatusFailed)
		m := idleModel(t, f)

		_, cmd := update(t, m, keyRunes("r"))
		assert.Nil(t, cmd)
		assert.Empty(t, f.retried)
	})

	t.Run("while running", func(t *testing.T) {
		f := newFake(batch.StatusFailed)
		m := NewBatchModel(context.Background(), nil, f)

		_, cmd := update(t, m, keyRunes("r"))
		assert.Nil(t, cmd)
	})

	t.Run("rejected", func(t *testing.T) {
		f := newFake(batch.StatusFailed)
		m := idleModel(t, f)
		m, _ = update(t, m, keyRunes("r"))

		m, _ = update(t, m, RetryDoneMsg{TaskID: "a", Err: batch.ErrTaskBusy})
		assert.Contains(t, m.View(), "retry rejected")
		assert.False(t, m.Busy())
	})
}

func TestBatchModel_RetryAll(t *testing.T) {
	t.Run("with failures", func(t *testing.T) {
		f := newFake(batch.StatusFailed, batch.StatusFailed)
		m := idleModel(t, f)

		m, cmd := update(t, m, keyRunes("R"))
		require.NotNil(t, cmd)
		assert.True(t, m.Busy())

		msg, ok := cmd().(RetryAllDoneMsg)
		require.True(t, ok)
		assert.Equal(t, 1, f.retriedAll)

		m, _ = update(t, m, msg)
		assert.False(t, m.Busy())
	})

	t.Run("without failures", func(t *testing.T) {
		f := newFake(batch.StatusSuccess)
		m := idleModel(t, f)

		_, cmd := update(t, m, keyRunes("R"))
		assert.Nil(t, cmd)
		assert.Zero(t, f.retriedAll)
	})
}

func TestBatchModel_Quit(t *testing.T) {
	t.Run("ignored while running", func(t *testing.T) {
		m := NewBatchModel(context.Background(), nil, newFake(batch.StatusRunning))

		m, cmd := update(t, m, keyRunes("q"))
		assert.Nil(t, cmd)
		assert.Equal(t, ViewStateRunning, m.state)
		assert.Contains(t, m.View(), "ctrl+c")
	})

	t.Run("quits when idle", func(t *testing.T) {
		m := idleModel(t, newFake(batch.StatusSuccess))

		m, cmd := update(t, m, keyRunes("q"))
		require.NotNil(t, cmd)
		assert.Equal(t, ViewStateQuitting, m.state)
		assert.Empty(t, m.View())
	})

	t.Run("ctrl+c waits for the run to drain", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()
		f := newFake(batch.StatusRunning)
		m := NewBatchModel(ctx, cancel, f)

		m, cmd := update(t, m, tea.KeyMsg{Type: tea.KeyCtrlC})
		assert.Nil(t, cmd)
		assert.Equal(t, ViewStateStopping, m.state)
		require.ErrorIs(t, ctx.Err(), context.Canceled)
		assert.Contains(t, m.renderStatusBar(), "stopping")

		_, cmd = update(t, m, keyRunes("q"))
		assert.Nil(t, cmd)

		f.tasks[0].Status = batch.StatusFailed
		m, cmd = update(t, m, RunDoneMsg{Summary: f.Summary()})
		require.NotNil(t, cmd)
		assert.Equal(t, ViewStateQuitting, m.state)
	})

	t.Run("ctrl+c waits for a retry", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()
		f := newFake(batch.StatusFailed)
		m := NewBatchModel(ctx, cancel, f)
		m, _ = update(t, m, RunDoneMsg{Summary: f.Summary()})
		m, _ = update(t, m, keyRunes("r"))

		m, cmd := update(t, m, tea.KeyMsg{Type: tea.KeyCtrlC})
		assert.Nil(t, cmd)
		assert.Equal(t, ViewStateStopping, m.state)

		m, cmd = update(t, m, RetryDoneMsg{TaskID: "a", Status: batch.StatusFailed})
		require.NotNil(t, cmd)
		assert.Equal(t, ViewStateQuitting, m.state)
	})

	t.Run("ctrl+c quits when idle", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()
		f := newFake(batch.StatusSuccess)
		m := NewBatchModel(ctx, cancel, f)
		m, _ = update(t, m, RunDoneMsg{Summary: f.Summary()})

		m, cmd := update(t, m, tea.KeyMsg{Type: tea.KeyCtrlC})
		require.NotNil(t, cmd)
		assert.Equal(t, ViewStateQuitting, m.state)
	})
}

func TestBatchModel_StatusBar(t *testing.T) {
	withFailures := idleModel(t, newFake(batch.StatusFailed, batch.StatusSuccess))
	assert.Contains(t, withFailures.renderStatusBar(), "R retry all failed")
	assert.Contains(t, withFailures.renderStatusBar(), "q quit")

	clean := idleModel(t, newFake(batch.StatusSuccess))
	assert.NotContains(t, clean.renderStatusBar(), "retry all")
}

func TestBatchModel_WindowSize(t *testing.T) {
	f := newFake(batch.StatusFailed, batch.StatusSuccess)
	m := idleModel(t, f)

	m, _ = update(t, m, tea.KeyMsg{Type: tea.KeyDown})
	m, _ = update(t, m, tea.WindowSizeMsg{Width: 140, Height: 40})
	assert.Equal(t, 140, m.width)
	assert.Equal(t, 1, m.table.Cursor())
}

func TestStatusLabel(t *testing.T) {
	tests := []struct {
		status batch.Status
		want   string
	}{
		{batch.StatusPending, "pending"},
		{batch.StatusRunning, "running"},
		{batch.StatusSuccess, "success"},
		{batch.StatusFailed, "failed"},
		{batch.Status("weird"), "weird"},
	}
	for _, tt := range tests {
		t.Run(string(tt.status), func(t *testing.T) {
			assert.Contains(t, StatusLabel(tt.status), tt.want)
		})
	}
}
