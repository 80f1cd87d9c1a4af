package render

import (
	"fmt"
	"strings"
	"time"

	humanize "github.com/dustin/go-humanize"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"

	"github.com/ALT-F4-LLC/rallydump/internal/model"
)

const maxOutputWidth = 40

// statusLabel returns a status string with icon, e.g. "✔ completed".
func statusLabel(s model.RunStatus) string {
	return s.Icon() + " " + string(s)
}

// Duration returns how long a run took, or "-" while it is still running.
func Duration(r *model.Run) string {
	if r.FinishedAt == nil {
		return "-"
	}
	return r.FinishedAt.Sub(r.StartedAt).Round(time.Second).String()
}

// RenderRunsTable renders recorded runs as a formatted table.
func RenderRunsTable(runs []*model.Run) string {
	if len(runs) == 0 {
		return EmptyState("No runs recorded.", "Start one with: rallydump dump", false)
	}

	if !ColorsEnabled() {
		return renderPlainRunsTable(runs)
	}

	headers := []string{"ID", "Status", "Started", "Duration", "Workspaces", "Attachments", "Bytes", "Output"}

	rows := make([][]string, 0, len(runs))
	for _, r := range runs {
		rows = append(rows, runToRow(r))
	}

	t := table.New().
		Border(lipgloss.NormalBorder()).
		BorderStyle(lipgloss.NewStyle().Foreground(lipgloss.Color("8"))).
		Headers(headers...).
		Rows(rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			s := lipgloss.NewStyle().PaddingLeft(1).PaddingRight(1)

			if row == table.HeaderRow {
				return s.Bold(true).Foreground(lipgloss.Color("15"))
			}

			if row < 0 || row >= len(runs) {
				return s
			}

			switch col {
			case 0: // ID
				return s.Foreground(lipgloss.Color("15"))
			case 1: // Status
				return s.Foreground(ColorFromName(runs[row].Status.Color()))
			case 4, 5, 6: // counters
				return s.Align(lipgloss.Right)
			default:
				return s
			}
		})

	return t.Render()
}

func runToRow(r *model.Run) []string {
	return []string{
		r.ShortID(),
		statusLabel(r.Status),
		humanize.Time(r.StartedAt),
		Duration(r),
		humanize.Comma(int64(r.Workspaces)),
		humanize.Comma(int64(r.Attachments)),
		humanize.Comma(r.Bytes),
		truncate(r.OutputDir, maxOutputWidth),
	}
}

func renderPlainRunsTable(runs []*model.Run) string {
	var b strings.Builder

	fmt.Fprintf(&b, "%-10s %-13s %-20s %-10s %10s %12s %15s  %s\n",
		"ID", "Status", "Started", "Duration", "Workspaces", "Attachments", "Bytes", "Output")
	fmt.Fprintf(&b, "%s\n", strings.Repeat("-", 120))

	for _, r := range runs {
		row := runToRow(r)
		fmt.Fprintf(&b, "%-10s %-13s %-20s %-10s %10s %12s %15s  %s\n",
			row[0], row[1], row[2], row[3], row[4], row[5], row[6], row[7])
	}

	return b.String()
}
