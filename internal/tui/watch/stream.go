package watch

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
)

func renderDirectiveStream(directiveLog []directive, theme Theme, width int) string {
	innerWidth := width - 4

	if len(directiveLog) == 0 {
		content := lipgloss.JoinVertical(lipgloss.Left,
			theme.Title.Render("DIRECTIVE STREAM"),
			theme.Dim.Render("  Waiting for directives..."),
		)
		return theme.Border.Width(innerWidth).Render(content)
	}

	var lines []string
	for i, d := range directiveLog {
		if i >= 10 {
			break
		}
		lines = append(lines, formatDirective(d, theme))
	}

	text := lipgloss.NewStyle().Padding(0, 1).Render(strings.Join(lines, "\n"))
	content := lipgloss.JoinVertical(lipgloss.Left,
		theme.Title.Render("DIRECTIVE STREAM"),
		text,
	)

	return theme.Border.Width(innerWidth).Render(content)
}

func formatDirective(d directive, theme Theme) string {
	ts := theme.Dim.Render(d.At.Format("15:04:05"))

	var typeStyle lipgloss.Style
	switch {
	case strings.HasPrefix(d.Type, "gesture"):
		typeStyle = theme.Highlight
	case strings.HasPrefix(d.Type, "calibration"), strings.HasPrefix(d.Type, "recording"):
		typeStyle = theme.StatusActive
	case d.Type == "resetAll", d.Type == "showNotice":
		typeStyle = theme.StatusFailed
	case d.Type == "updateTimer", d.Type == "hideTimer", d.Type == "handCursor":
		typeStyle = theme.Dim
	default:
		typeStyle = theme.StatusOK
	}

	typeName := typeStyle.Render(fmt.Sprintf("%-20s", d.Type))

	return fmt.Sprintf("%s %s %s", ts, typeName, extractDirectiveDesc(d))
}

func extractDirectiveDesc(d directive) string {
	var parts []string

	for _, key := range []string{"gesture", "mode", "display", "message", "direction", "word"} {
		if v, ok := d.Data[key].(string); ok && v != "" {
			parts = append(parts, v)
		}
	}
	if v, ok := d.Data["confidence"].(float64); ok {
		parts = append(parts, fmt.Sprintf("%.2f", v))
	}

	if len(parts) == 0 {
		return ""
	}
	out := strings.Join(parts, " ")
	if len(out) > 60 {
		out = out[:60] + "..."
	}
	return out
}
