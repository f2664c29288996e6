// SPDX-License-Identifier: MPL-2.0

package platform

// Host operating systems, as reported by runtime.GOOS.
const (
	Windows = "windows"
	Darwin  = "darwin"
	Linux   = "linux"
)
