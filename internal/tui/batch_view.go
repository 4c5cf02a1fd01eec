package tui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/rshade/mediabatch/internal/engine/batch"
)

// View renders the batch screen (Bubble Tea interface).
func (m BatchModel) View() string {
	if m.state == ViewStateQuitting {
		return ""
	}

	sections := []string{
		m.renderHeader(),
		m.renderProgress(),
		m.table.View(),
		m.renderStatusBar(),
	}
	if m.notice != "" {
		sections = append(sections, HintStyle.Render(m.notice))
	}
	if m.err != nil {
		sections = append(sections, FailureStyle.Render(fmt.Sprintf("Error: %v", m.err)))
	}
	return lipgloss.JoinVertical(lipgloss.Left, sections...)
}

func (m BatchModel) renderHeader() string {
	title := TitleStyle.Render("mediabatch " + string(m.ctrl.Kind()))
	meta := SubtleStyle.Render(fmt.Sprintf("  concurrency %d", m.ctrl.Concurrency()))
	if skipped := len(m.ctrl.Skipped()); skipped > 0 {
		meta += SubtleStyle.Render(fmt.Sprintf(" · %d rows skipped", skipped))
	}
	return title + meta
}

// renderProgress counts the displayed tasks, so it always agrees with the table.
func (m BatchModel) renderProgress() string {
	var pending, running, succeeded, failed int
	for _, t := range m.tasks {
		switch t.Status {
		case batch.StatusPending:
			pending++
		case batch.StatusRunning:
			running++
		case batch.StatusSuccess:
			succeeded++
		case batch.StatusFailed:
			failed++
		}
	}

	var b strings.Builder
	if m.Busy() {
		b.WriteString(m.spinner.View())
		b.WriteString(" ")
	}
	b.WriteString(InfoStyle.Render(fmt.Sprintf("%d/%d done", succeeded+failed, len(m.tasks))))
	b.WriteString(" · ")
	b.WriteString(SuccessStyle.Render(fmt.Sprintf("%d ok", succeeded)))
	b.WriteString(" · ")
	if failed > 0 {
		b.WriteString(FailureStyle.Render(fmt.Sprintf("%d failed", failed)))
	} else {
		b.WriteString(SubtleStyle.Render("0 failed"))
	}
	if running > 0 {
		b.WriteString(" · ")
		b.WriteString(RunningStyle.Render(fmt.Sprintf("%d running", running)))
	}
	if pending > 0 {
		b.WriteString(SubtleStyle.Render(fmt.Sprintf(" · %d queued", pending)))
	}
	if m.state == ViewStateRunning && m.progress.Total > 0 {
		if eta := m.progress.EstimatedTimeRemaining; eta > 0 {
			b.WriteString(SubtleStyle.Render(" · ETA " + eta.Round(time.Second).String()))
		}
	}
	return b.String()
}

func (m BatchModel) renderStatusBar() string {
	parts := []string{"↑/↓ select"}
	if m.state == ViewStateIdle && !m.retryingAll {
		parts = append(parts, "r retry selected")
		if m.hasFailures() {
			parts = append(parts, "R retry all failed")
		}
	}
	switch {
	case m.state == ViewStateStopping:
		parts = append(parts, "stopping")
	case m.Busy():
		parts = append(parts, "ctrl+c cancel")
	default:
		parts = append(parts, "q quit")
	}
	return SubtleStyle.Render(strings.Join(parts, " · "))
}
