// SPDX-License-Identifier: MPL-2.0

// Package platform names the host operating systems lambkin knows about and
// decides which of them it can run on.
package platform
