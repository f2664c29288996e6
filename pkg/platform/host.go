// SPDX-License-Identifier: MPL-2.0

package platform

import (
	"errors"
	"fmt"
)

// ErrUnsupportedHost is returned by CheckHost for hosts lambkin cannot drive.
// Builds source virtualenv activation scripts and run make, neither of which
// exists on Windows.
var ErrUnsupportedHost = errors.New("unsupported host operating system")

// CheckHost reports whether lambkin can run on goos (a runtime.GOOS value).
func CheckHost(goos string) error {
	if goos == Windows {
		return fmt.Errorf("%w: %s", ErrUnsupportedHost, goos)
	}
	return nil
}
