package output

import (
	"io"

	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"
)

// Styles holds the text-mode styles.
type Styles struct {
	Title   lipgloss.Style
	Success lipgloss.Style
	Warning lipgloss.Style
	Error   lipgloss.Style
	Muted   lipgloss.Style
}

// NewStyles creates styles bound to w. Colors are dropped when w is not a
// terminal.
func NewStyles(w io.Writer) *Styles {
	lr := lipgloss.NewRenderer(w, termenv.WithColorCache(true))
	return &Styles{
		Title:   lr.NewStyle().Bold(true),
		Success: lr.NewStyle().Foreground(lipgloss.Color("2")),
		Warning: lr.NewStyle().Foreground(lipgloss.Color("3")),
		Error:   lr.NewStyle().Foreground(lipgloss.Color("1")).Bold(true),
		Muted:   lr.NewStyle().Faint(true),
	}
}
