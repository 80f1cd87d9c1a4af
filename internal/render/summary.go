package render

import (
	"fmt"
	"strings"

	humanize "github.com/dustin/go-humanize"

	"github.com/charmbracelet/lipgloss"

	"github.com/ALT-F4-LLC/rallydump/internal/export"
)

// RenderSummary renders the end-of-run totals: attachment count, the
// comma-grouped declared byte total and the extension histogram sorted by
// extension.
func RenderSummary(stats *export.Stats) string {
	var b strings.Builder

	headline := fmt.Sprintf("Found a total of <%d> attachments in ALL WORKSPACES; total bytes = <%s>.",
		stats.Attachments, humanize.Comma(stats.Bytes))
	b.WriteString(StyledText(headline, lipgloss.NewStyle().Bold(true)))
	b.WriteString("\n")

	b.WriteString(RenderHistogram(stats.SortedExtensions()))
	return strings.TrimRight(b.String(), "\n")
}

// RenderHistogram renders one "ext  count" line per bucket, in the order given.
func RenderHistogram(buckets []export.ExtensionCount) string {
	if len(buckets) == 0 {
		return EmptyState("No attachments exported.", "", true) + "\n"
	}

	width := 0
	for _, c := range buckets {
		if n := len(c.Extension); n > width {
			width = n
		}
	}

	extStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("12"))
	var b strings.Builder
	for _, c := range buckets {
		ext := fmt.Sprintf("%-*s", width, c.Extension)
		fmt.Fprintf(&b, "  %s  %s\n", StyledText(ext, extStyle), humanize.Comma(int64(c.Count)))
	}
	return b.String()
}
