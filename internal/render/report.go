package render

import (
	"fmt"
	"strings"
	"time"

	humanize "github.com/dustin/go-humanize"

	"github.com/ALT-F4-LLC/rallydump/internal/export"
	"github.com/ALT-F4-LLC/rallydump/internal/model"
)

// RunReport builds a markdown report of one run: its metadata, the extension
// histogram and the files written per workspace.
func RunReport(r *model.Run, files []model.ExportedFile, extensions map[string]int) string {
	var b strings.Builder

	fmt.Fprintf(&b, "# Run %s\n\n", r.ShortID())
	fmt.Fprintf(&b, "- **ID:** `%s`\n", r.ID)
	fmt.Fprintf(&b, "- **Status:** %s\n", statusLabel(r.Status))
	fmt.Fprintf(&b, "- **Rally:** %s\n", r.BaseURL)
	fmt.Fprintf(&b, "- **Output:** `%s`\n", r.OutputDir)
	fmt.Fprintf(&b, "- **Started:** %s (%s)\n", r.StartedAt.Local().Format(time.DateTime), humanize.Time(r.StartedAt))
	if r.FinishedAt != nil {
		fmt.Fprintf(&b, "- **Duration:** %s\n", Duration(r))
	}
	fmt.Fprintf(&b, "- **Workspaces:** %d\n", r.Workspaces)
	fmt.Fprintf(&b, "- **Attachments:** %s\n", humanize.Comma(int64(r.Attachments)))
	fmt.Fprintf(&b, "- **Bytes:** %s (%s)\n", humanize.Comma(r.Bytes), humanize.Bytes(uint64(max(r.Bytes, 0))))
	if r.Error != "" {
		fmt.Fprintf(&b, "\n> **Error:** %s\n", r.Error)
	}

	if len(extensions) > 0 {
		b.WriteString("\n## Extensions\n\n| Extension | Files |\n|---|---:|\n")
		for _, c := range HistogramFromCounts(extensions) {
			fmt.Fprintf(&b, "| %s | %d |\n", c.Extension, c.Count)
		}
	}

	var current int
	for _, f := range files {
		if f.WorkspaceOrdinal != current {
			current = f.WorkspaceOrdinal
			fmt.Fprintf(&b, "\n## WS%03d %s\n\n| # | Name | Size | Data file |\n|---:|---|---:|---|\n",
				f.WorkspaceOrdinal, escapeCell(f.WorkspaceName))
		}
		fmt.Fprintf(&b, "| %03d | %s | %s | `%s` |\n",
			f.AttachmentOrdinal, escapeCell(f.Name), humanize.Comma(f.DeclaredSize), f.DataPath)
	}

	return b.String()
}

// RenderRunDetail renders RunReport for the terminal.
func RenderRunDetail(r *model.Run, files []model.ExportedFile, extensions map[string]int) string {
	report := RunReport(r, files, extensions)
	rendered, err := RenderMarkdown(report)
	if err != nil {
		return report
	}
	return rendered
}

// HistogramFromCounts converts a stored extension histogram to sorted buckets.
func HistogramFromCounts(counts map[string]int) []export.ExtensionCount {
	s := export.Stats{Extensions: counts}
	return s.SortedExtensions()
}

func escapeCell(s string) string {
	return strings.ReplaceAll(s, "|", `\|`)
}
