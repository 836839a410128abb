package cmd

import (
	"fmt"
	"os"

	"github.com/charmbracelet/lipgloss"
	"golang.org/x/term"
)

var (
	greenColor  = lipgloss.Color("#10B981")
	redColor    = lipgloss.Color("#F87171")
	yellowColor = lipgloss.Color("#FBBF24")

	okStyle   = lipgloss.NewStyle().Foreground(greenColor)
	failStyle = lipgloss.NewStyle().Foreground(redColor).Bold(true)
	warnStyle = lipgloss.NewStyle().Foreground(yellowColor)
)

// render applies style only when stdout is a terminal, so piped output
// stays free of escape sequences.
func render(style lipgloss.Style, s string) string {
	if !term.IsTerminal(int(os.Stdout.Fd())) {
		return s
	}
	return style.Render(s)
}

// humanSize formats a byte count like "1.2 GiB".
func humanSize(n int64) string {
	const unit = 1024
	if n < unit {
		return fmt.Sprintf("%d B", n)
	}
	div, exp := int64(unit), 0
	for m := n / unit; m >= unit; m /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %ciB", float64(n)/float64(div), "KMGTPE"[exp])
}
