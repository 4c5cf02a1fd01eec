package tui

import (
	"context"
	"errors"
	"fmt"
	"sync"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/rshade/mediabatch/internal/engine/batch"
	"github.com/rshade/mediabatch/internal/jobs"
)

// ErrInterrupted is returned when the user cancels the job from the TUI.
var ErrInterrupted = errors.New("interrupted")

// Run drives ctrl inside a full-screen program until the user quits, and returns the
// summary of the task list at that point. It does not return while a run or retry
// started from the program is still in flight, so the summary always settles every
// task.
func Run(ctx context.Context, ctrl jobs.Controller, opts ...tea.ProgramOption) (batch.Summary, error) {
	workCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	tracked := &drainingController{Controller: ctrl}
	model := NewBatchModel(workCtx, cancel, tracked)
	p := tea.NewProgram(model, append([]tea.ProgramOption{tea.WithAltScreen(), tea.WithContext(ctx)}, opts...)...)

	ctrl.OnEvent(func(e batch.Event) { p.Send(TaskEventMsg{Event: e}) })
	ctrl.OnProgress(func(s batch.ProgressSnapshot) { p.Send(ProgressMsg{Snapshot: s}) })
	defer func() {
		ctrl.OnEvent(nil)
		ctrl.OnProgress(nil)
	}()

	final, err := p.Run()

	// The program can stop early when ctx ends; cancel and wait for the workers.
	cancel()
	if !tracked.drain() {
		// Never started: a cancelled run fails every task without invoking any.
		_, _ = ctrl.Run(workCtx)
	}

	if err != nil && !errors.Is(err, tea.ErrProgramKilled) {
		return ctrl.Summary(), fmt.Errorf("running batch TUI: %w", err)
	}
	if m, ok := final.(BatchModel); ok && m.Err() != nil {
		return ctrl.Summary(), m.Err()
	}
	if ctx.Err() != nil || userCancelled(final) {
		return ctrl.Summary(), ErrInterrupted
	}
	return ctrl.Summary(), nil
}

func userCancelled(final tea.Model) bool {
	m, ok := final.(BatchModel)
	return ok && m.cancelled
}

// drainingController counts the controller calls started by the program. Once
// drained, it refuses new work.
type drainingController struct {
	jobs.Controller

	mu      sync.Mutex
	closed  bool
	started bool
	wg      sync.WaitGroup
}

func (d *drainingController) enter() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return false
	}
	d.wg.Add(1)
	return true
}

// drain blocks until every call in flight returns and reports whether the initial
// run was ever started.
func (d *drainingController) drain() bool {
	d.mu.Lock()
	d.closed = true
	started := d.started
	d.mu.Unlock()
	d.wg.Wait()
	return started
}

func (d *drainingController) Run(ctx context.Context) (batch.Summary, error) {
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		return d.Summary(), ErrInterrupted
	}
	d.started = true
	d.wg.Add(1)
	d.mu.Unlock()
	defer d.wg.Done()
	return d.Controller.Run(ctx)
}

func (d *drainingController) RetryOne(ctx context.Context, taskID string) (batch.Status, error) {
	if !d.enter() {
		return "", ErrInterrupted
	}
	defer d.wg.Done()
	return d.Controller.RetryOne(ctx, taskID)
}

func (d *drainingController) RetryFailed(ctx context.Context) (batch.Summary, error) {
	if !d.enter() {
		return d.Summary(), ErrInterrupted
	}
	defer d.wg.Done()
	return d.Controller.RetryFailed(ctx)
}
