package tui

import (
	"context"
	"io"
	"sync"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rshade/mediabatch/internal/engine/batch"
	"github.com/rshade/mediabatch/internal/jobs"
)

// slowController runs until cancelled, then takes a while to settle its tasks the
// way the runner does: the in-flight task fails, the queued ones are abandoned.
type slowController struct {
	*fakeController

	mu     sync.Mutex
	settle time.Duration
	runs   int
}

func (s *slowController) Tasks() []jobs.TaskView {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.fakeController.Tasks()
}

func (s *slowController) Summary() batch.Summary {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.fakeController.Summary()
}

func (s *slowController) Run(ctx context.Context) (batch.Summary, error) {
	s.mu.Lock()
	s.runs++
	s.tasks[0].Status = batch.StatusRunning
	s.mu.Unlock()

	<-ctx.Done()
	time.Sleep(s.settle)

	s.mu.Lock()
	for i := range s.tasks {
		s.tasks[i].Status = batch.StatusFailed
	}
	s.mu.Unlock()
	return s.Summary(), nil
}

func ctrlCAfter(t *testing.T, delay time.Duration) io.Reader {
	t.Helper()
	r, w := io.Pipe()
	go func() {
		time.Sleep(delay)
		_, _ = w.Write([]byte{0x03})
	}()
	t.Cleanup(func() { _ = w.Close() })
	return r
}

func TestRun(t *testing.T) {
	t.Run("ctrl+c returns only after the run settles", func(t *testing.T) {
		ctrl := &slowController{
			fakeController: newFake(batch.StatusPending, batch.StatusPending, batch.StatusPending),
			settle:         300 * time.Millisecond,
		}

		summary, err := Run(context.Background(), ctrl,
			tea.WithInput(ctrlCAfter(t, 100*time.Millisecond)),
			tea.WithOutput(io.Discard),
			tea.WithoutRenderer(),
			tea.WithoutSignalHandler(),
		)

		require.ErrorIs(t, err, ErrInterrupted)
		assert.Equal(t, 3, summary.Total)
		assert.Equal(t, summary.Total, summary.SuccessCount+summary.FailureCount)
		for _, task := range ctrl.Tasks() {
			assert.Equal(t, batch.StatusFailed, task.Status)
		}
		assert.Equal(t, 1, ctrl.runs)
	})

	t.Run("cancelled parent context still drains", func(t *testing.T) {
		ctrl := &slowController{
			fakeController: newFake(batch.StatusPending, batch.StatusPending),
			settle:         100 * time.Millisecond,
		}
		ctx, cancel := context.WithCancel(context.Background())
		time.AfterFunc(100*time.Millisecond, cancel)

		r, w := io.Pipe()
		t.Cleanup(func() { _ = w.Close() })
		summary, err := Run(ctx, ctrl,
			tea.WithInput(r),
			tea.WithOutput(io.Discard),
			tea.WithoutRenderer(),
			tea.WithoutSignalHandler(),
		)

		require.ErrorIs(t, err, ErrInterrupted)
		assert.Equal(t, summary.Total, summary.SuccessCount+summary.FailureCount)
	})
}

func TestDrainingController(t *testing.T) {
	f := newFake(batch.StatusFailed)
	d := &drainingController{Controller: f}

	_, err := d.RetryOne(context.Background(), "a")
	require.NoError(t, err)
	assert.False(t, d.drain())

	_, err = d.RetryOne(context.Background(), "a")
	require.ErrorIs(t, err, ErrInterrupted)
	_, err = d.RetryFailed(context.Background())
	require.ErrorIs(t, err, ErrInterrupted)
	_, err = d.Run(context.Background())
	require.ErrorIs(t, err, ErrInterrupted)
	assert.Equal(t, []string{"a"}, f.retried)
	assert.Zero(t, f.retriedAll)
}
