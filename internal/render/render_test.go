package render

import (
	"os"
	"strings"
	"testing"
	"time"

	"github.com/ALT-F4-LLC/rallydump/internal/export"
	"github.com/ALT-F4-LLC/rallydump/internal/model"
)

func makeRun(id string, status model.RunStatus) *model.Run {
	started := time.Date(2026, 1, 1, 10, 0, 0, 0, time.UTC)
	finished := started.Add(90 * time.Second)
	return &model.Run{
		ID:          id,
		StartedAt:   started,
		FinishedAt:  &finished,
		OutputDir:   "./Saved_Attachments",
		BaseURL:     "https://rally1.rallydev.com/slm",
		Status:      status,
		Attachments: 1234,
		Bytes:       9876543,
		Workspaces:  3,
	}
}

func TestRenderSummary(t *testing.T) {
	t.Setenv("NO_COLOR", "1")

	stats := export.NewStats()
	stats.Attachments = 2
	stats.Bytes = 1234567
	stats.Extensions["txt"] = 1
	stats.Extensions["png"] = 1

	got := RenderSummary(stats)
	want := "Found a total of <2> attachments in ALL WORKSPACES; total bytes = <1,234,567>.\n" +
		"  png  1\n" +
		"  txt  1"
	if got != want {
		t.Errorf("RenderSummary() =\n%q\nwant\n%q", got, want)
	}
}

func TestRenderSummaryEmpty(t *testing.T) {
	t.Setenv("NO_COLOR", "1")

	got := RenderSummary(export.NewStats())
	if !strings.Contains(got, "total of <0> attachments") {
		t.Errorf("expected zero count, got:\n%s", got)
	}
	if !strings.Contains(got, "No attachments exported.") {
		t.Errorf("expected empty-state line, got:\n%s", got)
	}
}

func TestRenderHistogramAlignsExtensions(t *testing.T) {
	t.Setenv("NO_COLOR", "1")

	got := RenderHistogram([]export.ExtensionCount{
		{Extension: "docx", Count: 1200},
		{Extension: "js", Count: 3},
	})
	want := "  docx  1,200\n  js    3\n"
	if got != want {
		t.Errorf("RenderHistogram() = %q, want %q", got, want)
	}
}

func TestRenderRunsTableEmpty(t *testing.T) {
	t.Setenv("NO_COLOR", "1")

	got := RenderRunsTable(nil)
	if !strings.Contains(got, "No runs recorded.") {
		t.Errorf("expected empty state, got:\n%s", got)
	}
}

func TestRenderPlainRunsTable(t *testing.T) {
	t.Setenv("NO_COLOR", "1")

	runs := []*model.Run{
		makeRun("0123456789abcdef", model.RunCompleted),
		makeRun("fedcba9876543210", model.RunFailed),
	}
	got := RenderRunsTable(runs)

	for _, want := range []string{"01234567", "fedcba98", "completed", "failed", "1,234", "9,876,543", "1m30s"} {
		if !strings.Contains(got, want) {
			t.Errorf("expected %q in output, got:\n%s", want, got)
		}
	}
	if strings.Contains(got, "0123456789abcdef") {
		t.Errorf("expected short IDs only, got:\n%s", got)
	}
}

func TestRenderRunsTableColorPathExecutes(t *testing.T) {
	t.Setenv("TERM", "xterm-256color")

	got := RenderRunsTable([]*model.Run{makeRun("0123456789abcdef", model.RunRunning)})
	if got == "" {
		t.Error("expected non-empty colored table")
	}
}

func TestDurationRunning(t *testing.T) {
	r := makeRun("x", model.RunRunning)
	r.FinishedAt = nil
	if got := Duration(r); got != "-" {
		t.Errorf("Duration() = %q, want -", got)
	}
}

func TestRunReport(t *testing.T) {
	r := makeRun("0123456789abcdef", model.RunFailed)
	r.Error = "decoding attachment"
	files := []model.ExportedFile{
		{WorkspaceOrdinal: 1, WorkspaceName: "Beta", AttachmentOrdinal: 1, Name: "log.txt", DeclaredSize: 5, DataPath: "out/WS001/DE123/attachment-001.DATA.txt"},
		{WorkspaceOrdinal: 1, WorkspaceName: "Beta", AttachmentOrdinal: 2, Name: "a|b.png", DeclaredSize: 2048, DataPath: "out/WS001/DE123/attachment-002.DATA.png"},
		{WorkspaceOrdinal: 2, WorkspaceName: "Gamma", AttachmentOrdinal: 1, Name: "c.pdf", DeclaredSize: 1, DataPath: "out/WS002/-Orphaned/attachment-001.DATA.pdf"},
	}

	got := RunReport(r, files, map[string]int{"txt": 1, "png": 1, "pdf": 1})

	for _, want := range []string{
		"# Run 01234567",
		"> **Error:** decoding attachment",
		"| pdf | 1 |\n| png | 1 |\n| txt | 1 |",
		"## WS001 Beta",
		"## WS002 Gamma",
		`a\|b.png`,
		"| 002 | a\\|b.png | 2,048 |",
	} {
		if !strings.Contains(got, want) {
			t.Errorf("expected %q in report, got:\n%s", want, got)
		}
	}
	if n := strings.Count(got, "## WS001"); n != 1 {
		t.Errorf("WS001 heading appears %d times, want 1", n)
	}
}

func TestRenderRunDetailPlain(t *testing.T) {
	t.Setenv("NO_COLOR", "1")

	r := makeRun("0123456789abcdef", model.RunCompleted)
	got := RenderRunDetail(r, nil, nil)
	if got != RunReport(r, nil, nil) {
		t.Errorf("expected raw markdown without colors, got:\n%s", got)
	}
}

func TestHistogramFromCounts(t *testing.T) {
	got := HistogramFromCounts(map[string]int{"b": 2, "a": 1})
	if len(got) != 2 || got[0].Extension != "a" || got[1].Extension != "b" {
		t.Errorf("HistogramFromCounts() = %v, want sorted a, b", got)
	}
}

func TestColorsEnabled(t *testing.T) {
	tests := []struct {
		name    string
		noColor bool
		term    string
		want    bool
	}{
		{"default", false, "xterm", true},
		{"no color", true, "xterm", false},
		{"dumb term", false, "dumb", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, set := os.LookupEnv("NO_COLOR"); set && !tt.noColor {
				t.Skip("NO_COLOR is set in the test environment")
			}
			t.Setenv("TERM", tt.term)
			if tt.noColor {
				t.Setenv("NO_COLOR", "1")
			}
			if got := ColorsEnabled(); got != tt.want {
				t.Errorf("ColorsEnabled() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestTruncate(t *testing.T) {
	tests := []struct {
		in   string
		max  int
		want string
	}{
		{"short", 10, "short"},
		{"exactly-10", 10, "exactly-10"},
		{"much-too-long-path", 10, "much-to..."},
		{"abcdef", 3, "abc"},
	}
	for _, tt := range tests {
		if got := truncate(tt.in, tt.max); got != tt.want {
			t.Errorf("truncate(%q, %d) = %q, want %q", tt.in, tt.max, got, tt.want)
		}
	}
}
