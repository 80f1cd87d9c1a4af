// Package layout derives the on-disk location of every exported attachment.
//
// A dump is laid out as
//
//	<root>/WS<NNN>/<parent-segment>/attachment-<NNN>.META.txt
//	<root>/WS<NNN>/<parent-segment>/attachment-<NNN>.DATA.<ext>
//
// where the parent segment is built from the FormattedIDs of the artifact,
// test case and test set the attachment belongs to.
package layout

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/ALT-F4-LLC/rallydump/internal/model"
)

// OrphanedSegment names the directory for attachments with no parent.
const OrphanedSegment = "-Orphaned"

// EmptyExtension is the DATA file extension used when an attachment has no content.
const EmptyExtension = "empty"

// NoExtension is the DATA file extension used when the attachment name is empty.
const NoExtension = "noext"

// ParentKind enumerates which parent links an attachment carries.
type ParentKind int

const (
	ParentNone ParentKind = iota
	ParentArtifact
	ParentTestCaseResult
	ParentBoth
)

func (k ParentKind) String() string {
	switch k {
	case ParentNone:
		return "none"
	case ParentArtifact:
		return "artifact"
	case ParentTestCaseResult:
		return "test-case-result"
	case ParentBoth:
		return "both"
	default:
		return fmt.Sprintf("ParentKind(%d)", int(k))
	}
}

// Parent is the resolved parent of an attachment. Only the IDs relevant to
// Kind are set; TestSetID is optional for ParentTestCaseResult and ParentBoth.
type Parent struct {
	Kind       ParentKind
	ArtifactID string
	TestCaseID string
	TestSetID  string
}

// ParentOf classifies an attachment by the parent links it carries.
// Rally does not guarantee Artifact and TestCaseResult are exclusive, so both
// may be reported.
func ParentOf(att model.Attachment) Parent {
	var p Parent
	hasArtifact := att.Artifact != nil
	hasResult := att.TestCaseResult != nil

	if hasArtifact {
		p.ArtifactID = att.Artifact.FormattedID
	}
	if hasResult {
		p.TestCaseID = att.TestCaseResult.TestCaseFormattedID()
		if att.TestCaseResult.TestSet != nil {
			p.TestSetID = att.TestCaseResult.TestSet.FormattedID
		}
	}

	switch {
	case hasArtifact && hasResult:
		p.Kind = ParentBoth
	case hasArtifact:
		p.Kind = ParentArtifact
	case hasResult:
		p.Kind = ParentTestCaseResult
	default:
		p.Kind = ParentNone
	}
	return p
}

// Orphaned reports whether the attachment had neither an artifact nor a
// test case result.
func (p Parent) Orphaned() bool {
	return p.Kind == ParentNone
}

// Segment returns the directory name, relative to the workspace directory,
// for attachments with this parent.
func Segment(p Parent) string {
	switch p.Kind {
	case ParentArtifact:
		return sanitize(p.ArtifactID)
	case ParentTestCaseResult:
		return sanitize(p.testCaseSegment())
	case ParentBoth:
		// Concatenated, not replaced: the artifact ID is followed directly by
		// the test case ID.
		return sanitize(p.ArtifactID + p.testCaseSegment())
	default:
		return OrphanedSegment
	}
}

func (p Parent) testCaseSegment() string {
	if p.TestSetID == "" {
		return p.TestCaseID
	}
	return p.TestCaseID + "-" + p.TestSetID
}

// AttachmentDir returns the directory an attachment is written to and whether
// it was orphaned.
func AttachmentDir(workspaceDir string, att model.Attachment) (string, bool) {
	p := ParentOf(att)
	return filepath.Join(workspaceDir, Segment(p)), p.Orphaned()
}

// WorkspaceDir returns the directory for the workspace with the given 1-based
// ordinal.
func WorkspaceDir(root string, ordinal int) string {
	return filepath.Join(root, fmt.Sprintf("WS%03d", ordinal))
}

// MetaFileName returns the name of the metadata sidecar for an attachment.
func MetaFileName(ordinal int) string {
	return fmt.Sprintf("attachment-%03d.META.txt", ordinal)
}

// DataFileName returns the name of the payload file for an attachment.
func DataFileName(ordinal int, ext string) string {
	return fmt.Sprintf("attachment-%03d.DATA.%s", ordinal, ext)
}

// Extension returns the file extension of an attachment name: the text after
// the last dot, with case preserved. A name without a dot is used whole.
func Extension(name string) string {
	trimmed := strings.TrimRight(name, ".")
	if i := strings.LastIndex(trimmed, "."); i >= 0 {
		trimmed = trimmed[i+1:]
	}
	if trimmed == "" {
		return NoExtension
	}
	return sanitize(trimmed)
}

// StatsKey normalizes an extension for the run histogram.
func StatsKey(ext string) string {
	return strings.ToLower(ext)
}

// sanitize keeps an upstream identifier inside a single path element.
func sanitize(s string) string {
	out := strings.Map(func(r rune) rune {
		switch r {
		case '/', '\\', 0:
			return '_'
		}
		return r
	}, s)
	if out == "." || out == ".." {
		return strings.Repeat("_", len(out))
	}
	return out
}
