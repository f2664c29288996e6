// SPDX-License-Identifier: MPL-2.0

package archive

import (
	"errors"
	"fmt"
	"io/fs"
)

var (
	// ErrNotFound is returned when the function directory does not exist.
	ErrNotFound = errors.New("not found")
	// ErrPermission is returned when a source file cannot be read or the
	// destination cannot be written.
	ErrPermission = errors.New("permission denied")
	// ErrArchiveWrite is returned when appending an entry or finalizing the
	// archive fails.
	ErrArchiveWrite = errors.New("archive write failed")
)

// Error describes a failed archive operation. It wraps one of ErrNotFound,
// ErrPermission or ErrArchiveWrite for errors.Is() compatibility.
type Error struct {
	// Op is the step that failed (e.g., "walk", "add", "finalize").
	Op string
	// Path is the file involved, if any.
	Path string
	// Kind is the sentinel error classifying the failure.
	Kind error
	// Err is the underlying cause.
	Err error
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Path == "" {
		return fmt.Sprintf("archive %s: %v: %v", e.Op, e.Kind, e.Err)
	}
	return fmt.Sprintf("archive %s %s: %v: %v", e.Op, e.Path, e.Kind, e.Err)
}

// Unwrap exposes both the classifying sentinel and the cause.
func (e *Error) Unwrap() []error {
	return []error{e.Kind, e.Err}
}

// newError classifies err by its filesystem cause. Permission problems map to
// ErrPermission; anything else becomes fallback. A missing file only counts as
// ErrNotFound when the caller is resolving the function root, so a missing
// destination directory or a source file removed mid-walk stays ErrArchiveWrite.
func newError(op, path string, err, fallback error) *Error {
	kind := fallback
	if errors.Is(err, fs.ErrPermission) {
		kind = ErrPermission
	}
	return &Error{Op: op, Path: path, Kind: kind, Err: err}
}
