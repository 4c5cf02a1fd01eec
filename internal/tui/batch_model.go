// Package tui renders a running batch job as a live Bubble Tea table.
package tui

import (
	"context"
	"strconv"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/table"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/rshade/mediabatch/internal/engine/batch"
	"github.com/rshade/mediabatch/internal/jobs"
)

// ViewState is the lifecycle of the batch view.
type ViewState int

// View states.
const (
	ViewStateRunning ViewState = iota
	ViewStateIdle
	ViewStateStopping
	ViewStateQuitting
)

// TaskEventMsg carries one runner transition into the program.
type TaskEventMsg struct {
	Event batch.Event
}

// ProgressMsg carries a progress snapshot into the program.
type ProgressMsg struct {
	Snapshot batch.ProgressSnapshot
}

// RunDoneMsg is sent when the initial run drains.
type RunDoneMsg struct {
	Summary batch.Summary
	Err     error
}

// RetryDoneMsg is sent when a single retry settles.
type RetryDoneMsg struct {
	TaskID string
	Status batch.Status
	Err    error
}

// RetryAllDoneMsg is sent when a bulk retry drains.
type RetryAllDoneMsg struct {
	Summary batch.Summary
	Err     error
}

// BatchModel is the Bubble Tea model for a batch job. Its table is a projection of
// the controller's task snapshots, refreshed on every event.
//
//nolint:recvcheck // Bubble Tea requires value receivers for Init/Update/View interface methods.
type BatchModel struct {
	ctx    context.Context
	cancel context.CancelFunc
	ctrl   jobs.Controller

	state       ViewState
	runActive   bool
	cancelled   bool
	tasks       []jobs.TaskView
	progress    batch.ProgressSnapshot
	retrying    map[string]bool
	retryingAll bool
	notice      string
	err         error

	table   table.Model
	spinner spinner.Model
	width   int
	height  int
}

// NewBatchModel creates the model. cancel, when non-nil, is called on ctrl+c.
func NewBatchModel(ctx context.Context, cancel context.CancelFunc, ctrl jobs.Controller) BatchModel {
	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = RunningStyle

	m := BatchModel{
		ctx:       ctx,
		cancel:    cancel,
		ctrl:      ctrl,
		state:     ViewStateRunning,
		runActive: true,
		tasks:     ctrl.Tasks(),
		retrying:  make(map[string]bool),
		spinner:   s,
		width:     defaultWidth,
		height:    defaultHeight,
	}
	m.table = m.buildTable()
	return m
}

// Init starts the spinner and the run.
func (m BatchModel) Init() tea.Cmd {
	return tea.Batch(m.spinner.Tick, m.runCmd())
}

func (m BatchModel) runCmd() tea.Cmd {
	ctx, ctrl := m.ctx, m.ctrl
	return func() tea.Msg {
		summary, err := ctrl.Run(ctx)
		return RunDoneMsg{Summary: summary, Err: err}
	}
}

func (m BatchModel) retryOneCmd(taskID string) tea.Cmd {
	ctx, ctrl := m.ctx, m.ctrl
	return func() tea.Msg {
		status, err := ctrl.RetryOne(ctx, taskID)
		return RetryDoneMsg{TaskID: taskID, Status: status, Err: err}
	}
}

func (m BatchModel) retryAllCmd() tea.Cmd {
	ctx, ctrl := m.ctx, m.ctrl
	return func() tea.Msg {
		summary, err := ctrl.RetryFailed(ctx)
		return RetryAllDoneMsg{Summary: summary, Err: err}
	}
}

// Update handles messages (Bubble Tea interface).
func (m BatchModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.refresh()
		return m, nil
	case TaskEventMsg:
		m.refresh()
		return m, nil
	case ProgressMsg:
		m.progress = msg.Snapshot
		return m, nil
	case RunDoneMsg:
		m.runActive = false
		if m.state == ViewStateRunning {
			m.state = ViewStateIdle
		}
		m.err = msg.Err
		m.refresh()
		return m.settle()
	case RetryDoneMsg:
		delete(m.retrying, msg.TaskID)
		if msg.Err != nil {
			m.notice = "retry rejected: " + msg.Err.Error()
		} else {
			m.notice = ""
		}
		m.refresh()
		return m.settle()
	case RetryAllDoneMsg:
		m.retryingAll = false
		if msg.Err != nil {
			m.notice = "retry all stopped: " + msg.Err.Error()
		} else {
			m.notice = ""
		}
		m.refresh()
		return m.settle()
	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	case tea.KeyMsg:
		return m.handleKey(msg)
	default:
		return m, nil
	}
}

func (m BatchModel) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case keyCtrlC:
		if m.cancel != nil {
			m.cancel()
		}
		m.cancelled = true
		if m.Busy() {
			m.state = ViewStateStopping
			m.notice = "stopping: waiting for running tasks to finish"
			return m, nil
		}
		m.state = ViewStateQuitting
		return m, tea.Quit
	case keyQuit:
		if m.state == ViewStateStopping {
			return m, nil
		}
		if m.Busy() {
			m.notice = "still running; press ctrl+c to cancel"
			return m, nil
		}
		m.state = ViewStateQuitting
		return m, tea.Quit
	case keyRetry:
		return m.retrySelected()
	case keyRetryAll:
		if m.state != ViewStateIdle || m.retryingAll || len(m.retrying) > 0 || !m.hasFailures() {
			return m, nil
		}
		m.retryingAll = true
		m.notice = ""
		return m, m.retryAllCmd()
	default:
		var cmd tea.Cmd
		m.table, cmd = m.table.Update(msg)
		return m, cmd
	}
}

// retrySelected retries the task under the cursor if it is failed and idle.
func (m BatchModel) retrySelected() (tea.Model, tea.Cmd) {
	if m.state != ViewStateIdle || m.retryingAll {
		return m, nil
	}
	cursor := m.table.Cursor()
	if cursor < 0 || cursor >= len(m.tasks) {
		return m, nil
	}
	task := m.tasks[cursor]
	if task.Status != batch.StatusFailed || m.retrying[task.ID] {
		return m, nil
	}
	m.retrying[task.ID] = true
	m.notice = ""
	return m, m.retryOneCmd(task.ID)
}

// settle quits once a cancelled model has nothing left in flight.
func (m BatchModel) settle() (tea.Model, tea.Cmd) {
	if m.state != ViewStateStopping || m.Busy() {
		return m, nil
	}
	m.state = ViewStateQuitting
	return m, tea.Quit
}

// Busy reports whether a run or retry is in flight.
func (m BatchModel) Busy() bool {
	return m.runActive || m.retryingAll || len(m.retrying) > 0
}

func (m BatchModel) hasFailures() bool {
	for _, t := range m.tasks {
		if t.Status == batch.StatusFailed {
			return true
		}
	}
	return false
}

// refresh re-reads the controller snapshot and rebuilds the table, keeping the cursor.
func (m *BatchModel) refresh() {
	cursor := m.table.Cursor()
	m.tasks = m.ctrl.Tasks()
	m.table = m.buildTable()
	if cursor >= 0 && cursor < len(m.tasks) {
		m.table.SetCursor(cursor)
	}
}

func (m *BatchModel) buildTable() table.Model {
	detailWidth := max(m.width-4-28-12-5-8, 10) //nolint:mnd // Remaining width after fixed columns.
	columns := []table.Column{
		{Title: "#", Width: 4},       //nolint:mnd // Column width.
		{Title: "Task", Width: 28},   //nolint:mnd // Column width.
		{Title: "Status", Width: 12}, //nolint:mnd // Column width.
		{Title: "Try", Width: 5},     //nolint:mnd // Column width.
		{Title: "Detail", Width: detailWidth},
	}

	rows := make([]table.Row, len(m.tasks))
	for i, t := range m.tasks {
		status := StatusLabel(t.Status)
		if m.retrying[t.ID] && t.Status == batch.StatusFailed {
			status = "… queued"
		}
		attempt := "-"
		if t.Attempt > 0 {
			attempt = strconv.Itoa(t.Attempt)
		}
		rows[i] = table.Row{strconv.Itoa(i + 1), t.Label, status, attempt, t.Detail}
	}

	height := max(m.height-chromeHeight, minHeight)
	t := table.New(
		table.WithColumns(columns),
		table.WithRows(rows),
		table.WithFocused(true),
		table.WithHeight(height),
	)

	s := table.DefaultStyles()
	s.Header = TableHeaderStyle
	s.Selected = TableSelectedStyle
	t.SetStyles(s)
	return t
}

// Tasks returns the rows currently displayed.
func (m BatchModel) Tasks() []jobs.TaskView {
	return m.tasks
}

// Err returns the error reported by the run, if any.
func (m BatchModel) Err() error {
	return m.err
}
