package tui

import (
	"github.com/charmbracelet/lipgloss"

	"github.com/rshade/mediabatch/internal/engine/batch"
)

// Palette.
var (
	ColorHeader    = lipgloss.AdaptiveColor{Light: "#1F4E79", Dark: "#7FB2F0"}
	ColorLabel     = lipgloss.AdaptiveColor{Light: "#555555", Dark: "#A0A0A0"}
	ColorValue     = lipgloss.AdaptiveColor{Light: "#111111", Dark: "#EEEEEE"}
	ColorMuted     = lipgloss.AdaptiveColor{Light: "#888888", Dark: "#666666"}
	ColorHighlight = lipgloss.AdaptiveColor{Light: "#8A4B00", Dark: "#F0B86E"}
	ColorSuccess   = lipgloss.AdaptiveColor{Light: "#1B7F3B", Dark: "#5FD787"}
	ColorFailure   = lipgloss.AdaptiveColor{Light: "#B00020", Dark: "#FF6B6B"}
	ColorRunning   = lipgloss.AdaptiveColor{Light: "#0057B8", Dark: "#5FAFFF"}
)

// Shared styles.
var (
	TitleStyle         = lipgloss.NewStyle().Bold(true).Foreground(ColorHeader)
	LabelStyle         = lipgloss.NewStyle().Foreground(ColorLabel)
	SubtleStyle        = lipgloss.NewStyle().Foreground(ColorMuted)
	InfoStyle          = lipgloss.NewStyle().Foreground(ColorValue)
	HintStyle          = lipgloss.NewStyle().Foreground(ColorHighlight).Bold(true)
	SuccessStyle       = lipgloss.NewStyle().Foreground(ColorSuccess).Bold(true)
	FailureStyle       = lipgloss.NewStyle().Foreground(ColorFailure).Bold(true)
	RunningStyle       = lipgloss.NewStyle().Foreground(ColorRunning)
	TableHeaderStyle   = lipgloss.NewStyle().Bold(true).Foreground(ColorHeader).Padding(0, 1)
	TableSelectedStyle = lipgloss.NewStyle().Bold(true).Foreground(ColorHighlight)
)

// Layout.
const (
	defaultWidth  = 100
	defaultHeight = 24
	minHeight     = 5

	// chromeHeight is the number of lines around the table.
	chromeHeight = 6
)

// Key bindings.
const (
	keyQuit     = "q"
	keyCtrlC    = "ctrl+c"
	keyRetry    = "r"
	keyRetryAll = "R"
)

// StatusLabel is the plain-text status cell, safe inside table rows.
func StatusLabel(s batch.Status) string {
	switch s {
	case batch.StatusPending:
		return "· pending"
	case batch.StatusRunning:
		return "… running"
	case batch.StatusSuccess:
		return "✓ success"
	case batch.StatusFailed:
		return "✗ failed"
	default:
		return string(s)
	}
}
