package watch

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/table"
	"github.com/charmbracelet/lipgloss"
)

// workerRows builds the worker-status table rows from a status snapshot.
func workerRows(s SessionState, theme Theme) []table.Row {
	kinds := make([]string, 0, len(s.Workers))
	for kind := range s.Workers {
		kinds = append(kinds, kind)
	}
	sort.Strings(kinds)

	rows := make([]table.Row, 0, len(kinds))
	for _, kind := range kinds {
		icon := theme.StatusStopped.Render("○")
		if s.Workers[kind] {
			icon = theme.StatusOK.Render("●")
		}
		rows = append(rows, table.Row{icon, kind})
	}
	return rows
}

func renderSession(s SessionState, workers table.Model, theme Theme, width int) string {
	innerWidth := width - 4

	featureStyle := theme.StatusIdle
	if s.Feature != "" && s.Feature != "none" {
		featureStyle = theme.StatusActive
	}

	var lines []string
	lines = append(lines, fmt.Sprintf("  Feature:   %s", featureStyle.Render(s.Feature)))

	if s.Recording {
		lines = append(lines, fmt.Sprintf("  Recording: %s", theme.StatusFailed.Render("● LIVE")))
	}
	if s.TimerDisplay != "" {
		lines = append(lines, fmt.Sprintf("  Timer:     %s", theme.Highlight.Render(s.TimerDisplay)))
	}
	if s.Blackout {
		lines = append(lines, fmt.Sprintf("  Screen:    %s", theme.StatusStopped.Render("BLACKOUT")))
	}
	if s.LastGesture != "" {
		ago := time.Since(s.LastCommandAt).Round(time.Second)
		lines = append(lines, fmt.Sprintf("  Gesture:   %s %s",
			theme.Highlight.Render(s.LastGesture),
			theme.Dim.Render(fmt.Sprintf("(%s ago)", ago))))
	}

	workersBlock := theme.Dim.Render("  Workers: press [s] for a status snapshot")
	if len(s.Workers) > 0 {
		workersBlock = workers.View()
	}

	content := lipgloss.JoinVertical(lipgloss.Left,
		theme.Title.Render("SESSION"),
		strings.Join(lines, "\n"),
		workersBlock,
	)

	return theme.Border.Width(innerWidth).Render(content)
}
