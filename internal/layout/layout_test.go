package layout

import (
	"path/filepath"
	"strings"
	"testing"

	"github.com/ALT-F4-LLC/rallydump/internal/model"
)

func artifact(fid string) *model.Artifact {
	return &model.Artifact{FormattedID: fid}
}

func result(tc, ts string) *model.TestCaseResult {
	r := &model.TestCaseResult{TestCase: &model.TestCase{FormattedID: tc}}
	if ts != "" {
		r.TestSet = &model.TestSet{FormattedID: ts}
	}
	return r
}

func TestParentOf(t *testing.T) {
	tests := []struct {
		name string
		att  model.Attachment
		want Parent
	}{
		{
			name: "neither",
			att:  model.Attachment{},
			want: Parent{Kind: ParentNone},
		},
		{
			name: "artifact only",
			att:  model.Attachment{Artifact: artifact("DE123")},
			want: Parent{Kind: ParentArtifact, ArtifactID: "DE123"},
		},
		{
			name: "result without test set",
			att:  model.Attachment{TestCaseResult: result("TC7", "")},
			want: Parent{Kind: ParentTestCaseResult, TestCaseID: "TC7"},
		},
		{
			name: "result with test set",
			att:  model.Attachment{TestCaseResult: result("TC7", "TS2")},
			want: Parent{Kind: ParentTestCaseResult, TestCaseID: "TC7", TestSetID: "TS2"},
		},
		{
			name: "both",
			att:  model.Attachment{Artifact: artifact("US9"), TestCaseResult: result("TC7", "TS2")},
			want: Parent{Kind: ParentBoth, ArtifactID: "US9", TestCaseID: "TC7", TestSetID: "TS2"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ParentOf(tt.att); got != tt.want {
				t.Errorf("ParentOf() = %+v, want %+v", got, tt.want)
			}
		})
	}
}

func TestAttachmentDir(t *testing.T) {
	ws := filepath.Join("Saved_Attachments", "WS001")

	tests := []struct {
		name         string
		att          model.Attachment
		want         string
		wantOrphaned bool
	}{
		{"artifact only", model.Attachment{Artifact: artifact("DE123")}, filepath.Join(ws, "DE123"), false},
		{"result only", model.Attachment{TestCaseResult: result("TC7", "")}, filepath.Join(ws, "TC7"), false},
		{"result with set", model.Attachment{TestCaseResult: result("TC7", "TS2")}, filepath.Join(ws, "TC7-TS2"), false},
		{"both concatenated", model.Attachment{Artifact: artifact("US9"), TestCaseResult: result("TC7", "TS2")}, filepath.Join(ws, "US9TC7-TS2"), false},
		{"orphaned", model.Attachment{}, filepath.Join(ws, "-Orphaned"), true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, orphaned := AttachmentDir(ws, tt.att)
			if got != tt.want {
				t.Errorf("AttachmentDir() = %q, want %q", got, tt.want)
			}
			if orphaned != tt.wantOrphaned {
				t.Errorf("orphaned = %v, want %v", orphaned, tt.wantOrphaned)
			}
		})
	}
}

func TestOrphanedDirEndsWithMarker(t *testing.T) {
	got, _ := AttachmentDir("/x/WS003", model.Attachment{Name: "a.png"})
	if !strings.HasSuffix(got, "-Orphaned") {
		t.Errorf("AttachmentDir() = %q, want suffix -Orphaned", got)
	}
}

func TestSegmentSanitizesSeparators(t *testing.T) {
	tests := []struct {
		p    Parent
		want string
	}{
		{Parent{Kind: ParentArtifact, ArtifactID: "../etc"}, ".._etc"},
		{Parent{Kind: ParentArtifact, ArtifactID: ".."}, "__"},
		{Parent{Kind: ParentTestCaseResult, TestCaseID: `TC\1`}, "TC_1"},
	}
	for _, tt := range tests {
		if got := Segment(tt.p); got != tt.want {
			t.Errorf("Segment(%+v) = %q, want %q", tt.p, got, tt.want)
		}
	}
}

func TestExtension(t *testing.T) {
	tests := []struct {
		name string
		want string
	}{
		{"log.txt", "txt"},
		{"Screenshot.PNG", "PNG"},
		{"archive.tar.gz", "gz"},
		{"README", "README"},
		{"trailing.", "trailing"},
		{"", NoExtension},
		{"...", NoExtension},
	}
	for _, tt := range tests {
		if got := Extension(tt.name); got != tt.want {
			t.Errorf("Extension(%q) = %q, want %q", tt.name, got, tt.want)
		}
	}
}

func TestFileNames(t *testing.T) {
	if got := MetaFileName(1); got != "attachment-001.META.txt" {
		t.Errorf("MetaFileName(1) = %q", got)
	}
	if got := DataFileName(12, "txt"); got != "attachment-012.DATA.txt" {
		t.Errorf("DataFileName(12, txt) = %q", got)
	}
	if got := DataFileName(3, EmptyExtension); got != "attachment-003.DATA.empty" {
		t.Errorf("DataFileName(3, empty) = %q", got)
	}
	if got := WorkspaceDir("out", 7); got != filepath.Join("out", "WS007") {
		t.Errorf("WorkspaceDir(out, 7) = %q", got)
	}
}

func TestStatsKey(t *testing.T) {
	if got := StatsKey("PNG"); got != "png" {
		t.Errorf("StatsKey(PNG) = %q, want png", got)
	}
}
