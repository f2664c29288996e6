// SPDX-License-Identifier: MPL-2.0

package types

import (
	"errors"
	"fmt"
)

// MaxExitCode is the largest status a process can report.
const MaxExitCode ExitCode = 255

// ErrExitCodeRange is wrapped by the error ExitCode.Validate returns.
var ErrExitCodeRange = errors.New("exit code out of range")

// ExitCode is the status lambkin exits with, or the status of a build
// step it ran. The zero value means success.
type ExitCode int

// Validate rejects statuses the operating system would truncate.
func (c ExitCode) Validate() error {
	if c < 0 || c > MaxExitCode {
		return fmt.Errorf("%w: %d (want 0-%d)", ErrExitCodeRange, int(c), int(MaxExitCode))
	}
	return nil
}
