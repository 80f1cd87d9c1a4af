package export

import (
	"encoding/base64"
	"encoding/hex"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/spf13/afero"
	"github.com/zeebo/blake3"

	"github.com/ALT-F4-LLC/rallydump/internal/layout"
	"github.com/ALT-F4-LLC/rallydump/internal/model"
)

// ContentError reports an attachment whose payload is not valid base64.
type ContentError struct {
	Name     string
	ObjectID int64
	Err      error
}

func (e *ContentError) Error() string {
	return fmt.Sprintf("decoding content of attachment %q (ObjectID %d): %v", e.Name, e.ObjectID, e.Err)
}

func (e *ContentError) Unwrap() error { return e.Err }

// Written describes the two files produced for one attachment.
type Written struct {
	MetaPath     string
	DataPath     string
	Extension    string
	DeclaredSize int64
	WrittenBytes int64
	Digest       string
}

// Export writes the metadata sidecar and the decoded payload of att into dir.
// encoded is the base64 payload, or nil when the attachment has no content.
// dir must already exist. Nothing is written when the payload cannot be
// decoded.
func Export(fs afero.Fs, dir string, ordinal int, att model.Attachment, encoded *string) (Written, error) {
	ext := layout.EmptyExtension
	var data []byte
	if encoded != nil {
		ext = layout.Extension(att.Name)
		decoded, err := decodeContent(*encoded)
		if err != nil {
			return Written{}, &ContentError{Name: att.Name, ObjectID: att.ObjectID, Err: err}
		}
		data = decoded
	}

	w := Written{
		MetaPath:     filepath.Join(dir, layout.MetaFileName(ordinal)),
		DataPath:     filepath.Join(dir, layout.DataFileName(ordinal, ext)),
		Extension:    ext,
		DeclaredSize: att.Size,
		WrittenBytes: int64(len(data)),
	}

	if err := afero.WriteFile(fs, w.MetaPath, []byte(formatMeta(att)), 0o644); err != nil {
		return Written{}, fmt.Errorf("writing metadata %s: %w", w.MetaPath, err)
	}
	if err := afero.WriteFile(fs, w.DataPath, data, 0o644); err != nil {
		return Written{}, fmt.Errorf("writing data %s: %w", w.DataPath, err)
	}

	sum := blake3.Sum256(data)
	w.Digest = hex.EncodeToString(sum[:])
	return w, nil
}

// decodeContent accepts standard base64 with or without padding and ignores
// embedded line breaks.
func decodeContent(s string) ([]byte, error) {
	clean := strings.Map(func(r rune) rune {
		switch r {
		case '\n', '\r', ' ', '\t':
			return -1
		}
		return r
	}, s)
	return base64.RawStdEncoding.DecodeString(strings.TrimRight(clean, "="))
}

var metaLabels = []string{
	"Attachment.Artifact.FormattedID",
	"Attachment.Artifact.CreationDate",
	"Attachment.Artifact.LastUpdateDate",
	"Attachment.TestCaseResult.Date",
	"Attachment.TestCaseResult.Build",
	"Attachment.TestCaseResult.TestCase.FormattedID",
	"Attachment.TestCaseResult.TestSet.FormattedID",
	"Attachment.ContentType",
	"Attachment.Description",
	"Attachment.Name",
	"Attachment.Size",
	"Attachment.User.EmailAddress",
	"Attachment.User.DisplayName",
}

func formatMeta(att model.Attachment) string {
	na := model.NotApplicable

	arFID, arCreated, arUpdated := na, na, na
	if a := att.Artifact; a != nil {
		arFID, arCreated, arUpdated = a.FormattedIDOrNA(), a.CreationDate, a.LastUpdateDate
	}

	tcrDate, tcrBuild, tcFID, tsFID := na, na, na, na
	if r := att.TestCaseResult; r != nil {
		tcrDate, tcrBuild = r.Date, r.Build
		if r.TestCase != nil {
			tcFID = r.TestCase.FormattedID
		}
		if r.TestSet != nil {
			tsFID = r.TestSet.FormattedID
		}
	}

	email, display := na, na
	if u := att.User; u != nil {
		email, display = u.EmailAddress, u.DisplayName
	}

	values := []string{
		arFID, arCreated, arUpdated,
		tcrDate, tcrBuild, tcFID, tsFID,
		att.ContentType, att.Description, att.Name, fmt.Sprintf("%d", att.Size),
		email, display,
	}

	var b strings.Builder
	for i, label := range metaLabels {
		fmt.Fprintf(&b, "%-46s : %s\n", label, values[i])
	}
	return b.String()
}
