// SPDX-License-Identifier: MPL-2.0

package build

import (
	"bytes"
	"context"
	"errors"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"testing"

	"lambkin-cli/internal/testutil"
)

func TestRunner_Run(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	var stdout bytes.Buffer
	r := NewRunner(dir, "", &stdout, nil)

	if err := r.Run(context.Background(), `echo hello && echo built > out.txt`); err != nil {
		t.Fatalf("Run() failed: %v", err)
	}
	if got := strings.TrimSpace(stdout.String()); got != "hello" {
		t.Errorf("stdout = %q", got)
	}
	data, err := os.ReadFile(filepath.Join(dir, "out.txt"))
	if err != nil || strings.TrimSpace(string(data)) != "built" {
		t.Errorf("step did not run in Dir: %q, %v", data, err)
	}
}

func TestRunner_RunFailure(t *testing.T) {
	t.Parallel()

	r := NewRunner(t.TempDir(), "", nil, nil)

	err := r.Run(context.Background(), "exit 3")
	if !errors.Is(err, ErrBuildFailed) {
		t.Fatalf("Run() error = %v, want ErrBuildFailed", err)
	}
	var stepErr *StepError
	if !errors.As(err, &stepErr) || stepErr.ExitCode != 3 {
		t.Errorf("Run() error = %#v, want exit code 3", err)
	}

	if err := r.Run(context.Background(), "if then"); err == nil || errors.Is(err, ErrBuildFailed) {
		t.Errorf("Run() with bad syntax = %v, want parse error", err)
	}
}

func TestRunner_InstallRequirements_UsesExistingVirtualenv(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	testutil.MustWriteFile(t, filepath.Join(dir, "requirements.txt"), "requests\n")
	// A stand-in activate script: defines pip as a shell function that records its arguments.
	testutil.MustWriteFile(t, filepath.Join(dir, "venv", "bin", "activate"), `pip() { echo "pip $*" > pip.log; }`+"\n")

	r := NewRunner(dir, "venv", nil, nil)
	if err := r.InstallRequirements(context.Background(), "python3.12"); err != nil {
		t.Fatalf("InstallRequirements() failed: %v", err)
	}

	data, err := os.ReadFile(filepath.Join(dir, "pip.log"))
	if err != nil {
		t.Fatalf("pip was not invoked: %v", err)
	}
	if got := strings.TrimSpace(string(data)); got != "pip install -r requirements.txt" {
		t.Errorf("pip invoked as %q", got)
	}
}

func TestRunner_Make(t *testing.T) {
	t.Parallel()

	if _, err := exec.LookPath("make"); err != nil {
		t.Skip("make not installed")
	}

	dir := t.TempDir()
	testutil.MustWriteFile(t, filepath.Join(dir, "Makefile"), "all:\n\t@echo made > made.txt\n")

	r := NewRunner(dir, "", nil, nil)
	if err := r.ForLanguage(context.Background(), "nodejs20.x"); err != nil {
		t.Fatalf("ForLanguage(nodejs) failed: %v", err)
	}
	if _, err := os.Stat(filepath.Join(dir, "made.txt")); err != nil {
		t.Errorf("make did not run: %v", err)
	}

	testutil.MustWriteFile(t, filepath.Join(dir, "Makefile"), "all:\n\t@exit 2\n")
	if err := r.Make(context.Background()); !errors.Is(err, ErrBuildFailed) {
		t.Errorf("Make() error = %v, want ErrBuildFailed", err)
	}
}

func TestQuote(t *testing.T) {
	t.Parallel()

	tests := map[string]string{
		"venv":          "venv",
		"python3.12":    "python3.12",
		"my venv":       "'my venv'",
		"it's":          `'it'\''s'`,
		"":              "''",
		"venv/bin/activate": "venv/bin/activate",
	}
	for in, want := range tests {
		if got := quote(in); got != want {
			t.Errorf("quote(%q) = %q, want %q", in, got, want)
		}
	}
}
