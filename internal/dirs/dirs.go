// Package dirs creates the output directory tree under one of two policies.
package dirs

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/afero"
)

// Policy controls how Ensure treats a directory that is already present.
type Policy int

const (
	// MustNotExist fails when the directory is already present.
	MustNotExist Policy = iota
	// ReuseExisting accepts a directory that is already present.
	ReuseExisting
)

func (p Policy) String() string {
	switch p {
	case MustNotExist:
		return "must-not-exist"
	case ReuseExisting:
		return "reuse-existing"
	default:
		return fmt.Sprintf("Policy(%d)", int(p))
	}
}

// ErrExists is returned (wrapped in *Error) when a MustNotExist directory is
// already present.
var ErrExists = errors.New("directory already exists")

// ErrNotCreated is returned (wrapped in *Error) when the directory is still
// missing after creation reported success.
var ErrNotCreated = errors.New("directory missing after create")

// Error describes a directory that could not be materialized. Both kinds are
// environment failures and end the run.
type Error struct {
	Path   string
	Policy Policy
	Err    error
}

func (e *Error) Error() string {
	return fmt.Sprintf("directory %q (%s): %v", e.Path, e.Policy, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// Ensure makes sure path exists as a directory according to policy. The parent
// directory must already exist; Ensure never creates intermediate directories.
func Ensure(fs afero.Fs, path string, policy Policy) error {
	exists, err := afero.DirExists(fs, path)
	if err != nil {
		return &Error{Path: path, Policy: policy, Err: err}
	}

	if exists {
		if policy == MustNotExist {
			return &Error{Path: path, Policy: policy, Err: ErrExists}
		}
		return nil
	}

	if err := fs.Mkdir(path, 0o755); err != nil {
		if os.IsExist(err) && policy == MustNotExist {
			return &Error{Path: path, Policy: policy, Err: ErrExists}
		}
		return &Error{Path: path, Policy: policy, Err: err}
	}

	// Confirm the directory is really there before anything is written into it.
	ok, err := afero.DirExists(fs, path)
	if err != nil {
		return &Error{Path: path, Policy: policy, Err: err}
	}
	if !ok {
		return &Error{Path: path, Policy: policy, Err: ErrNotCreated}
	}
	return nil
}
