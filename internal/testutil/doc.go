// SPDX-License-Identifier: MPL-2.0

// Package testutil provides helper functions for tests that fail fast on
// setup errors, reducing boilerplate in function-directory fixtures.
//
// Common helpers include environment variable management (MustSetenv, MustUnsetenv,
// SetHomeDir, SetConfigHome), filesystem fixtures (MustWriteFile, MustReadFile,
// MustMkdirAll, MustChdir) and a semaphore bounding container-backed tests.
package testutil
