package batch

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestProgress(t *testing.T) {
	t.Run("Counters", func(t *testing.T) {
		p := NewProgress(4)
		assert.Zero(t, p.PercentComplete())
		assert.Zero(t, p.EstimatedTimeRemaining())

		p.Start()
		p.Start()
		assert.Equal(t, 2, p.Snapshot().Running)

		p.Finish(true)
		p.Finish(false)
		p.Abandon()

		s := p.Snapshot()
		assert.Equal(t, 0, s.Running)
		assert.Equal(t, 1, s.Succeeded)
		assert.Equal(t, 2, s.Failed)
		assert.Equal(t, 3, s.Completed())
		assert.InDelta(t, 75.0, s.PercentComplete, 0.001)
		assert.False(t, p.IsComplete())

		p.Start()
		p.Finish(true)
		assert.True(t, p.IsComplete())
		assert.Equal(t, 4, p.Completed())
	})

	t.Run("EmptyTotal", func(t *testing.T) {
		p := NewProgress(0)
		assert.Zero(t, p.PercentComplete())
		assert.True(t, p.IsComplete())
	})

	t.Run("RatesAndEstimates", func(t *testing.T) {
		p := NewProgress(2)
		p.Start()
		time.Sleep(10 * time.Millisecond)
		p.Finish(true)

		assert.Greater(t, p.TasksPerSecond(), 0.0)
		assert.Greater(t, p.EstimatedTimeRemaining(), time.Duration(0))
		assert.GreaterOrEqual(t, p.ElapsedTime(), 10*time.Millisecond)
	})

	t.Run("ConcurrentUpdates", func(t *testing.T) {
		p := NewProgress(100)
		var wg sync.WaitGroup
		for i := range 100 {
			wg.Add(1)
			go func() {
				defer wg.Done()
				p.Start()
				p.Finish(i%2 == 0)
			}()
		}
		wg.Wait()

		s := p.Snapshot()
		assert.Equal(t, 50, s.Succeeded)
		assert.Equal(t, 50, s.Failed)
		assert.Zero(t, s.Running)
	})

	t.Run("Reset", func(t *testing.T) {
		p := NewProgress(3)
		p.Start()
		p.Finish(false)
		p.Reset()

		s := p.Snapshot()
		assert.Zero(t, s.Completed())
		assert.Equal(t, 3, s.Total)
	})
}
