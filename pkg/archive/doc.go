// SPDX-License-Identifier: MPL-2.0

// Package archive builds Lambda deployment packages from a function directory.
//
// The builder walks the function's working directory once and decides, per file,
// whether it belongs in the archive and under which name:
//
//   - compiled artifacts (*.pyc) are always dropped
//   - files under the virtualenv's site-packages (or dist-packages) are re-rooted
//     at the top of the archive so the Lambda runtime can import them directly
//   - the rest of the virtualenv and any VCS metadata directory are dropped
//   - everything else is stored at its path relative to the function directory
//
// Paths are compared segment by segment, never by string prefix, so "./venv",
// "venv/" and "lib64" variants all classify the same way.
package archive
