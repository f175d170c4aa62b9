package handlers

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/imamik/tpunanny/internal/worker"
)

var (
	statusColorGreen  = lipgloss.Color("#22c55e")
	statusColorYellow = lipgloss.Color("#eab308")
	statusColorRed    = lipgloss.Color("#ef4444")
	statusColorBlue   = lipgloss.Color("#3b82f6")
	statusColorDim    = lipgloss.Color("#6b7280")
	statusColorWhite  = lipgloss.Color("#f9fafb")
)

var (
	statusTitleStyle = lipgloss.NewStyle().
				Bold(true).
				Foreground(statusColorWhite)

	statusHeaderStyle = lipgloss.NewStyle().
				Bold(true).
				Foreground(statusColorBlue)

	statusDimStyle = lipgloss.NewStyle().
			Foreground(statusColorDim)

	statusWarnStyle = lipgloss.NewStyle().
			Foreground(statusColorYellow)
)

var stateStyles = map[string]lipgloss.Style{
	worker.StateActive.String():    lipgloss.NewStyle().Foreground(statusColorGreen),
	worker.StatePending.String():   lipgloss.NewStyle().Foreground(statusColorYellow),
	worker.StateSuspended.String(): lipgloss.NewStyle().Foreground(statusColorRed),
	worker.StateFailed.String():    lipgloss.NewStyle().Foreground(statusColorRed).Bold(true),
}

type statusRenderOptions struct {
	// Color enables ANSI styling.
	Color bool
	// ConnError is shown as a caption above the last known listing.
	ConnError error
}

var statusColumns = []string{"ID", "ZONE", "TYPE", "IP", "STATE", "AGE"}

// renderStatus produces the status table, one row per worker.
func renderStatus(status *FleetStatus, opts statusRenderOptions) string {
	style := func(s lipgloss.Style, text string) string {
		if !opts.Color {
			return text
		}
		return s.Render(text)
	}

	rows := make([][]string, 0, len(status.Workers))
	for _, w := range status.Workers {
		rows = append(rows, []string{w.ID, w.Zone, w.AcceleratorType, orDash(w.IP), w.State, orDash(w.Age)})
	}
	widths := columnWidths(statusColumns, rows)

	var b strings.Builder
	b.WriteString("\n")
	b.WriteString(style(statusTitleStyle, fmt.Sprintf("  tpunanny status: %s", status.Project)))
	b.WriteString("\n")
	if opts.ConnError != nil {
		b.WriteString(style(statusWarnStyle, fmt.Sprintf("  connection error, retrying: %v", opts.ConnError)))
		b.WriteString("\n")
	}
	b.WriteString("\n")

	if len(rows) == 0 {
		b.WriteString(style(statusDimStyle, "  No workers found"))
		b.WriteString("\n")
		return b.String()
	}

	b.WriteString(style(statusHeaderStyle, "  "+padRow(statusColumns, widths)))
	b.WriteString("\n")
	for _, row := range rows {
		cells := make([]string, len(row))
		for i, cell := range row {
			cells[i] = pad(cell, widths[i])
		}
		if s, ok := stateStyles[row[4]]; ok {
			cells[4] = style(s, cells[4])
		}
		b.WriteString("  " + strings.TrimRight(strings.Join(cells, "  "), " "))
		b.WriteString("\n")
	}

	b.WriteString("\n")
	b.WriteString(style(statusDimStyle, "  "+stateSummary(status.Workers)))
	b.WriteString("\n")
	return b.String()
}

// stateSummary counts workers per state, e.g. "3 workers: 2 ACTIVE, 1 SUSPENDED".
func stateSummary(workers []WorkerStatus) string {
	order := []string{
		worker.StateActive.String(),
		worker.StatePending.String(),
		worker.StateSuspended.String(),
		worker.StateFailed.String(),
		worker.StateMissing.String(),
	}
	counts := make(map[string]int)
	for _, w := range workers {
		counts[w.State]++
	}

	var parts []string
	for _, state := range order {
		if n := counts[state]; n > 0 {
			parts = append(parts, fmt.Sprintf("%d %s", n, state))
		}
	}
	noun := "workers"
	if len(workers) == 1 {
		noun = "worker"
	}
	return fmt.Sprintf("%d %s: %s", len(workers), noun, strings.Join(parts, ", "))
}

func columnWidths(header []string, rows [][]string) []int {
	widths := make([]int, len(header))
	for i, h := range header {
		widths[i] = len(h)
	}
	for _, row := range rows {
		for i, cell := range row {
			if len(cell) > widths[i] {
				widths[i] = len(cell)
			}
		}
	}
	return widths
}

func padRow(cells []string, widths []int) string {
	padded := make([]string, len(cells))
	for i, c := range cells {
		padded[i] = pad(c, widths[i])
	}
	return strings.TrimRight(strings.Join(padded, "  "), " ")
}

func pad(s string, width int) string {
	if len(s) >= width {
		return s
	}
	return s + strings.Repeat(" ", width-len(s))
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
