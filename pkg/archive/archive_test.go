// SPDX-License-Identifier: MPL-2.0

package archive

import (
	"archive/zip"
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"testing"
)

// writeTree creates files (slash-separated relative path -> contents) under root.
func writeTree(t *testing.T, root string, files map[string]string) {
	t.Helper()
	for rel, content := range files {
		path := filepath.Join(root, filepath.FromSlash(rel))
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			t.Fatalf("failed to create parent of %s: %v", rel, err)
		}
		if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
			t.Fatalf("failed to write %s: %v", rel, err)
		}
	}
}

// readArchive returns entry name -> contents and fails if any entry is not deflated.
func readArchive(t *testing.T, path string) map[string]string {
	t.Helper()
	r, err := zip.OpenReader(path)
	if err != nil {
		t.Fatalf("failed to open archive %s: %v", path, err)
	}
	defer r.Close()

	entries := make(map[string]string, len(r.File))
	for _, f := range r.File {
		if f.Method != zip.Deflate {
			t.Errorf("entry %s method = %d, want deflate", f.Name, f.Method)
		}
		rc, err := f.Open()
		if err != nil {
			t.Fatalf("failed to open entry %s: %v", f.Name, err)
		}
		data, err := io.ReadAll(rc)
		rc.Close()
		if err != nil {
			t.Fatalf("failed to read entry %s: %v", f.Name, err)
		}
		entries[f.Name] = string(data)
	}
	return entries
}

func sortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}

func scenarioTree() map[string]string {
	return map[string]string{
		"fn.py":         "def handler(event, context):\n    return 1\n",
		"metadata.json": `{"function": "fn"}`,
		"venv/lib/python3.9/site-packages/requests/__init__.py": "from .api import get\n",
		"venv/lib/python3.9/site-packages/requests/api.py":      "def get(url): pass\n",
		"venv/bin/activate":                                     "export VIRTUAL_ENV=venv\n",
		".git/config":                                           "[core]\n",
		"fn.pyc":                                                "\x03\xf3\r\n",
	}
}

func TestBuild_Scenario(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	writeTree(t, root, scenarioTree())
	dest := filepath.Join(t.TempDir(), "fn.zip")

	got, err := Build(context.Background(), Options{RootDir: root, Destination: dest, FunctionName: "fn"})
	if err != nil {
		t.Fatalf("Build() failed: %v", err)
	}
	if got != dest {
		t.Errorf("Build() = %q, want %q", got, dest)
	}

	entries := readArchive(t, got)
	want := []string{"fn.py", "metadata.json", "requests/__init__.py", "requests/api.py"}
	if names := sortedKeys(entries); !slices.Equal(names, want) {
		t.Fatalf("archive entries = %v, want %v", names, want)
	}
	for name := range entries {
		if strings.Contains(name, "venv") || strings.Contains(name, "site-packages") {
			t.Errorf("entry %q still carries the dependency directory prefix", name)
		}
	}
}

func TestBuild_RoundTrip(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	files := scenarioTree()
	files["data/config.yaml"] = "key: value\n"
	files["bin/tool"] = strings.Repeat("binary\x00data", 1024)
	writeTree(t, root, files)

	got, err := Build(context.Background(), Options{RootDir: root, Destination: filepath.Join(t.TempDir(), "out.zip")})
	if err != nil {
		t.Fatalf("Build() failed: %v", err)
	}

	entries := readArchive(t, got)
	for rel, content := range files {
		decision := Classify(rel, DefaultLayout())
		archived, ok := entries[decision.ArchivePath]
		if decision.Include != ok {
			t.Errorf("%s: present in archive = %v, want %v", rel, ok, decision.Include)
			continue
		}
		if ok && archived != content {
			t.Errorf("%s: archived contents differ from source", rel)
		}
	}
}

func TestBuild_Idempotent(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	writeTree(t, root, scenarioTree())
	dest := filepath.Join(t.TempDir(), "fn.zip")

	first, err := Build(context.Background(), Options{RootDir: root, Destination: dest})
	if err != nil {
		t.Fatalf("first Build() failed: %v", err)
	}
	firstEntries := readArchive(t, first)

	second, err := Build(context.Background(), Options{RootDir: root, Destination: dest})
	if err != nil {
		t.Fatalf("second Build() failed: %v", err)
	}
	secondEntries := readArchive(t, second)

	if !slices.Equal(sortedKeys(firstEntries), sortedKeys(secondEntries)) {
		t.Fatalf("entry sets differ: %v vs %v", sortedKeys(firstEntries), sortedKeys(secondEntries))
	}
	for name, content := range firstEntries {
		if secondEntries[name] != content {
			t.Errorf("entry %s differs between builds", name)
		}
	}
}

func TestBuild_EmptyRoot(t *testing.T) {
	t.Parallel()

	got, err := Build(context.Background(), Options{RootDir: t.TempDir(), Destination: filepath.Join(t.TempDir(), "empty.zip")})
	if err != nil {
		t.Fatalf("Build() failed on empty directory: %v", err)
	}
	names, err := Entries(got)
	if err != nil {
		t.Fatalf("Entries() failed: %v", err)
	}
	if len(names) != 0 {
		t.Errorf("expected zero entries, got %v", names)
	}
}

func TestBuild_DefaultDestination(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	tmp := t.TempDir()
	writeTree(t, root, map[string]string{"hello.py": "print('hi')\n"})

	got, err := Build(context.Background(), Options{RootDir: root, FunctionName: "hello", TempDir: tmp})
	if err != nil {
		t.Fatalf("Build() failed: %v", err)
	}
	want := filepath.Join(tmp, "lambkin-publish-hello.zip")
	if got != want {
		t.Errorf("Build() = %q, want %q", got, want)
	}

	// A rebuild overwrites the same path.
	writeTree(t, root, map[string]string{"extra.py": "x = 1\n"})
	again, err := Build(context.Background(), Options{RootDir: root, FunctionName: "hello", TempDir: tmp})
	if err != nil {
		t.Fatalf("second Build() failed: %v", err)
	}
	if again != want {
		t.Errorf("second Build() = %q, want %q", again, want)
	}
	if names := sortedKeys(readArchive(t, again)); !slices.Equal(names, []string{"extra.py", "hello.py"}) {
		t.Errorf("rebuilt entries = %v", names)
	}

	leftovers, err := filepath.Glob(filepath.Join(tmp, ".*.tmp"))
	if err != nil {
		t.Fatal(err)
	}
	if len(leftovers) != 0 {
		t.Errorf("temporary files left behind: %v", leftovers)
	}
}

func TestBuild_RequiresFunctionNameForDefaultDestination(t *testing.T) {
	t.Parallel()

	if _, err := Build(context.Background(), Options{RootDir: t.TempDir()}); err == nil {
		t.Error("Build() expected error without destination or function name")
	}
}

func TestBuild_MissingRoot(t *testing.T) {
	t.Parallel()

	missing := filepath.Join(t.TempDir(), "does-not-exist")
	_, err := Build(context.Background(), Options{RootDir: missing, Destination: filepath.Join(t.TempDir(), "x.zip")})
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("Build() error = %v, want ErrNotFound", err)
	}

	var archiveErr *Error
	if !errors.As(err, &archiveErr) {
		t.Fatalf("Build() error %T is not *archive.Error", err)
	}
	if archiveErr.Path != missing {
		t.Errorf("Error.Path = %q, want %q", archiveErr.Path, missing)
	}
}

func TestBuild_RootIsFile(t *testing.T) {
	t.Parallel()

	file := filepath.Join(t.TempDir(), "fn.py")
	writeTree(t, filepath.Dir(file), map[string]string{"fn.py": "x"})

	_, err := Build(context.Background(), Options{RootDir: file, Destination: filepath.Join(t.TempDir(), "x.zip")})
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("Build() error = %v, want ErrNotFound", err)
	}
}

func TestBuild_UnwritableDestination(t *testing.T) {
	t.Parallel()

	if os.Geteuid() == 0 {
		t.Skip("permission checks do not apply to root")
	}

	root := t.TempDir()
	writeTree(t, root, map[string]string{"fn.py": "x"})
	readOnly := t.TempDir()
	if err := os.Chmod(readOnly, 0o555); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = os.Chmod(readOnly, 0o755) })

	_, err := Build(context.Background(), Options{RootDir: root, Destination: filepath.Join(readOnly, "fn.zip")})
	if !errors.Is(err, ErrPermission) {
		t.Errorf("Build() error = %v, want ErrPermission", err)
	}
}

func TestBuild_MissingDestinationDir(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	writeTree(t, root, map[string]string{"fn.py": "x"})

	_, err := Build(context.Background(), Options{RootDir: root, Destination: filepath.Join(t.TempDir(), "nope", "fn.zip")})
	if !errors.Is(err, ErrArchiveWrite) {
		t.Errorf("Build() error = %v, want ErrArchiveWrite", err)
	}
	if errors.Is(err, ErrNotFound) {
		t.Errorf("Build() error = %v, must not report the function directory as missing", err)
	}
}

func TestBuild_UnreadableSource(t *testing.T) {
	t.Parallel()

	if os.Geteuid() == 0 {
		t.Skip("permission checks do not apply to root")
	}

	root := t.TempDir()
	writeTree(t, root, map[string]string{"fn.py": "x", "secret.txt": "y"})
	secret := filepath.Join(root, "secret.txt")
	if err := os.Chmod(secret, 0o000); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = os.Chmod(secret, 0o644) })

	dest := filepath.Join(t.TempDir(), "fn.zip")
	_, err := Build(context.Background(), Options{RootDir: root, Destination: dest})
	if !errors.Is(err, ErrPermission) {
		t.Fatalf("Build() error = %v, want ErrPermission", err)
	}
	if _, statErr := os.Stat(dest); !os.IsNotExist(statErr) {
		t.Errorf("destination should not exist after a failed build, stat err = %v", statErr)
	}
}

func TestBuild_FailureKeepsPreviousArchive(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	writeTree(t, root, map[string]string{"fn.py": "v1"})
	dest := filepath.Join(t.TempDir(), "fn.zip")

	if _, err := Build(context.Background(), Options{RootDir: root, Destination: dest}); err != nil {
		t.Fatalf("Build() failed: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	writeTree(t, root, map[string]string{"fn.py": "v2"})
	_, err := Build(ctx, Options{RootDir: root, Destination: dest})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("Build() error = %v, want context.Canceled", err)
	}
	if !errors.Is(err, ErrArchiveWrite) {
		t.Errorf("Build() error = %v, want ErrArchiveWrite", err)
	}

	if got := readArchive(t, dest)["fn.py"]; got != "v1" {
		t.Errorf("previous archive was modified: fn.py = %q", got)
	}
}

func TestBuild_DestinationInsideRoot(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	writeTree(t, root, map[string]string{"fn.py": "x"})
	dest := filepath.Join(root, "fn.zip")

	for range 2 {
		if _, err := Build(context.Background(), Options{RootDir: root, Destination: dest}); err != nil {
			t.Fatalf("Build() failed: %v", err)
		}
	}
	if names := sortedKeys(readArchive(t, dest)); !slices.Equal(names, []string{"fn.py"}) {
		t.Errorf("archive entries = %v, want only fn.py", names)
	}
}

func TestBuild_SymlinkedFile(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	outside := t.TempDir()
	writeTree(t, outside, map[string]string{"shared.py": "SHARED = True\n"})
	writeTree(t, root, map[string]string{"fn.py": "x"})
	if err := os.Symlink(filepath.Join(outside, "shared.py"), filepath.Join(root, "shared.py")); err != nil {
		t.Skipf("symlinks unavailable: %v", err)
	}
	if err := os.Symlink(outside, filepath.Join(root, "linked-dir")); err != nil {
		t.Fatal(err)
	}
	if err := os.Symlink(filepath.Join(outside, "missing.py"), filepath.Join(root, "dangling.py")); err != nil {
		t.Fatal(err)
	}

	got, err := Build(context.Background(), Options{RootDir: root, Destination: filepath.Join(t.TempDir(), "fn.zip")})
	if err != nil {
		t.Fatalf("Build() failed: %v", err)
	}
	entries := readArchive(t, got)
	if names := sortedKeys(entries); !slices.Equal(names, []string{"fn.py", "shared.py"}) {
		t.Fatalf("archive entries = %v", names)
	}
	if entries["shared.py"] != "SHARED = True\n" {
		t.Errorf("symlinked file contents = %q", entries["shared.py"])
	}
}

func TestBuild_ExcludePatterns(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	writeTree(t, root, map[string]string{
		"fn.py":              "x",
		"tests/test_fn.py":   "y",
		"notes/README.md":    "z",
		"requirements.txt":   "requests\n",
		"venv/bin/pip":       "#!/bin/sh\n",
		"venv/lib/python3.12/site-packages/six.py": "",
	})
	layout := DefaultLayout()
	layout.Exclude = []string{"tests/**", "**/*.md"}

	got, err := Build(context.Background(), Options{RootDir: root, Destination: filepath.Join(t.TempDir(), "fn.zip"), Layout: layout})
	if err != nil {
		t.Fatalf("Build() failed: %v", err)
	}
	want := []string{"fn.py", "requirements.txt", "six.py"}
	if names := sortedKeys(readArchive(t, got)); !slices.Equal(names, want) {
		t.Errorf("archive entries = %v, want %v", names, want)
	}
}

func TestBuild_InvalidLayout(t *testing.T) {
	t.Parallel()

	layout := DefaultLayout()
	layout.Exclude = []string{"[bad"}
	_, err := Build(context.Background(), Options{RootDir: t.TempDir(), Destination: filepath.Join(t.TempDir(), "x.zip"), Layout: layout})
	if err == nil {
		t.Error("Build() expected error for invalid layout")
	}
}

func TestError_Message(t *testing.T) {
	t.Parallel()

	err := &Error{Op: "add", Path: "/fn/a.py", Kind: ErrPermission, Err: os.ErrPermission}
	if got := err.Error(); !strings.Contains(got, "archive add /fn/a.py") {
		t.Errorf("Error() = %q", got)
	}
	if !errors.Is(err, os.ErrPermission) || !errors.Is(err, ErrPermission) {
		t.Error("Error should unwrap to both its kind and its cause")
	}
}
