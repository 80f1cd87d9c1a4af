package export

import (
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/spf13/afero"
	"github.com/zeebo/blake3"

	"github.com/ALT-F4-LLC/rallydump/internal/model"
)

// CheckStatus is the outcome of re-checking one exported file.
type CheckStatus string

const (
	CheckOK         CheckStatus = "ok"
	CheckMissing    CheckStatus = "missing"
	CheckChanged    CheckStatus = "changed"
	CheckNoDigest   CheckStatus = "no-digest"
	CheckUnreadable CheckStatus = "unreadable"
)

// Check reports the state of one recorded DATA file on disk.
type Check struct {
	File   model.ExportedFile `json:"file"`
	Status CheckStatus        `json:"status"`
	Digest string             `json:"digest,omitempty"`
	Detail string             `json:"detail,omitempty"`
}

// Failed reports whether the check found a problem.
func (c Check) Failed() bool {
	return c.Status != CheckOK && c.Status != CheckNoDigest
}

// Verify re-hashes the DATA file of every recorded file and compares it with
// the digest stored when it was written. A missing META file counts as
// missing.
func Verify(fs afero.Fs, files []model.ExportedFile) []Check {
	checks := make([]Check, 0, len(files))
	for _, f := range files {
		checks = append(checks, verifyFile(fs, f))
	}
	return checks
}

func verifyFile(fs afero.Fs, f model.ExportedFile) Check {
	c := Check{File: f}

	if _, err := fs.Stat(f.MetaPath); err != nil {
		c.Status, c.Detail = statErrStatus(err), fmt.Sprintf("META: %v", err)
		return c
	}

	digest, err := FileDigest(fs, f.DataPath)
	if err != nil {
		c.Status, c.Detail = statErrStatus(err), fmt.Sprintf("DATA: %v", err)
		return c
	}
	c.Digest = digest

	switch {
	case f.Digest == "":
		c.Status = CheckNoDigest
	case digest != f.Digest:
		c.Status = CheckChanged
		c.Detail = fmt.Sprintf("recorded %s", f.Digest)
	default:
		c.Status = CheckOK
	}
	return c
}

func statErrStatus(err error) CheckStatus {
	if errors.Is(err, os.ErrNotExist) {
		return CheckMissing
	}
	return CheckUnreadable
}

// FileDigest returns the hex BLAKE3-256 digest of a file, the same digest
// Export records for the bytes it writes.
func FileDigest(fs afero.Fs, path string) (string, error) {
	f, err := fs.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()

	h := blake3.New()
	if _, err := io.Copy(h, f); err != nil {
		return "", fmt.Errorf("hashing %s: %w", path, err)
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}
