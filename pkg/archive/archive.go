// SPDX-License-Identifier: MPL-2.0

package archive

import (
	"archive/zip"
	"context"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
)

// ToolName prefixes default archive names.
const ToolName = "lambkin"

// Options configures a single archive build.
type Options struct {
	// RootDir is the function directory. Defaults to the current working directory.
	RootDir string
	// Destination is the archive path. Defaults to DefaultDestination(TempDir, FunctionName).
	Destination string
	// FunctionName names the default destination.
	FunctionName string
	// TempDir replaces os.TempDir() when deriving the default destination.
	TempDir string
	// Layout drives file classification. A layout without a DependencyDir
	// is replaced by DefaultLayout().
	Layout Layout
}

// DefaultDestination returns <tmp>/lambkin-publish-<function>.zip. Repeated
// builds of the same function reuse this path.
func DefaultDestination(tempDir, functionName string) string {
	if tempDir == "" {
		tempDir = os.TempDir()
	}
	return filepath.Join(tempDir, fmt.Sprintf("%s-publish-%s.zip", ToolName, functionName))
}

// Build walks opts.RootDir and writes a deflate-compressed zip archive to the
// resolved destination. It returns the absolute path of the finished archive.
//
// The archive is assembled in a temporary file next to the destination and
// renamed into place only after it has been closed successfully, so a failed
// build never leaves a truncated archive behind.
func Build(ctx context.Context, opts Options) (archivePath string, err error) {
	layout := opts.Layout
	if layout.DependencyDir == "" {
		layout = DefaultLayout()
	}
	if err = layout.Validate(); err != nil {
		return "", fmt.Errorf("invalid layout: %w", err)
	}

	root := opts.RootDir
	if root == "" {
		if root, err = os.Getwd(); err != nil {
			return "", newError("resolve", "", err, ErrNotFound)
		}
	}
	if root, err = filepath.Abs(root); err != nil {
		return "", newError("resolve", opts.RootDir, err, ErrNotFound)
	}
	info, err := os.Stat(root)
	if err != nil {
		return "", newError("open", root, err, ErrNotFound)
	}
	if !info.IsDir() {
		return "", &Error{Op: "open", Path: root, Kind: ErrNotFound, Err: fmt.Errorf("not a directory")}
	}

	dest := opts.Destination
	if dest == "" {
		if opts.FunctionName == "" {
			return "", fmt.Errorf("function name is required when no destination is given")
		}
		dest = DefaultDestination(opts.TempDir, opts.FunctionName)
	}
	if dest, err = filepath.Abs(dest); err != nil {
		return "", newError("resolve", opts.Destination, err, ErrArchiveWrite)
	}

	tmp, err := os.CreateTemp(filepath.Dir(dest), "."+filepath.Base(dest)+"-*.tmp")
	if err != nil {
		return "", newError("create", dest, err, ErrArchiveWrite)
	}
	tmpPath := tmp.Name()
	defer func() {
		if err != nil {
			_ = tmp.Close()
			_ = os.Remove(tmpPath) // Best-effort cleanup of the partial archive
		}
	}()
	// CreateTemp opens files 0600; archives are handed to other tools.
	if err = tmp.Chmod(0o644); err != nil {
		return "", newError("create", dest, err, ErrArchiveWrite)
	}

	zw := zip.NewWriter(tmp)
	w := &writer{
		ctx:    ctx,
		root:   root,
		layout: layout,
		zw:     zw,
		skip:   map[string]bool{tmpPath: true, dest: true},
	}
	if err = filepath.WalkDir(root, w.visit); err != nil {
		return "", err
	}

	if err = zw.Close(); err != nil {
		return "", newError("finalize", dest, err, ErrArchiveWrite)
	}
	if err = tmp.Close(); err != nil {
		return "", newError("finalize", dest, err, ErrArchiveWrite)
	}
	if err = os.Rename(tmpPath, dest); err != nil {
		return "", newError("finalize", dest, err, ErrArchiveWrite)
	}

	slog.Debug("archive written", "path", dest, "entries", w.entries, "excluded", w.excluded)
	return dest, nil
}

// writer carries the state of one traversal.
type writer struct {
	ctx      context.Context
	root     string
	layout   Layout
	zw       *zip.Writer
	skip     map[string]bool
	entries  int
	excluded int
}

func (w *writer) visit(path string, d fs.DirEntry, walkErr error) error {
	if walkErr != nil {
		return newError("walk", path, walkErr, ErrArchiveWrite)
	}
	if err := w.ctx.Err(); err != nil {
		return &Error{Op: "walk", Path: path, Kind: ErrArchiveWrite, Err: err}
	}
	if d.IsDir() || w.skip[path] {
		return nil
	}

	info, err := os.Stat(path)
	if err != nil {
		if d.Type()&fs.ModeSymlink != 0 {
			slog.Debug("skipping dangling symlink", "path", path)
			return nil
		}
		return newError("stat", path, err, ErrArchiveWrite)
	}
	if !info.Mode().IsRegular() {
		// Symlinked directories, sockets and devices are never packaged.
		return nil
	}

	rel, err := filepath.Rel(w.root, path)
	if err != nil {
		return newError("walk", path, err, ErrArchiveWrite)
	}
	decision := Classify(filepath.ToSlash(rel), w.layout)
	if !decision.Include {
		w.excluded++
		slog.Debug("excluding file", "path", rel, "reason", decision.Reason)
		return nil
	}

	if err := w.add(path, decision.ArchivePath, info); err != nil {
		return err
	}
	w.entries++
	return nil
}

func (w *writer) add(path, name string, info fs.FileInfo) (err error) {
	header, err := zip.FileInfoHeader(info)
	if err != nil {
		return newError("add", path, err, ErrArchiveWrite)
	}
	header.Name = strings.TrimPrefix(name, "/")
	header.Method = zip.Deflate

	src, err := os.Open(path)
	if err != nil {
		return newError("add", path, err, ErrArchiveWrite)
	}
	defer func() {
		if closeErr := src.Close(); closeErr != nil && err == nil {
			err = newError("add", path, closeErr, ErrArchiveWrite)
		}
	}()

	dst, err := w.zw.CreateHeader(header)
	if err != nil {
		return newError("add", path, err, ErrArchiveWrite)
	}
	if _, err = io.Copy(dst, src); err != nil {
		return newError("add", path, err, ErrArchiveWrite)
	}
	return nil
}

// Entries lists the entry names of the archive at path, in archive order.
func Entries(path string) (names []string, err error) {
	r, err := zip.OpenReader(path)
	if err != nil {
		return nil, newError("open", path, err, ErrArchiveWrite)
	}
	defer func() {
		if closeErr := r.Close(); closeErr != nil && err == nil {
			err = closeErr
		}
	}()

	names = make([]string, 0, len(r.File))
	for _, f := range r.File {
		names = append(names, f.Name)
	}
	return names, nil
}
