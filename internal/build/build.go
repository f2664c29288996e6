// SPDX-License-Identifier: MPL-2.0

// Package build runs the language-specific build step for a function:
// virtualenv + pip for Python, make for everything else.
//
// Steps are shell snippets executed by the embedded mvdan/sh interpreter, so
// sourcing venv/bin/activate works without a system /bin/sh.
package build

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"lambkin-cli/pkg/runtime"
	"lambkin-cli/pkg/types"

	"mvdan.cc/sh/v3/expand"
	"mvdan.cc/sh/v3/interp"
	"mvdan.cc/sh/v3/syntax"
)

// ErrBuildFailed is the sentinel error wrapped by StepError.
var ErrBuildFailed = errors.New("build failed")

type (
	// Runner executes build steps inside a function directory.
	Runner struct {
		// Dir is the function directory.
		Dir string
		// DependencyDir is the virtualenv directory name inside Dir.
		DependencyDir string
		// Stdout and Stderr receive the steps' output. Nil discards it.
		Stdout io.Writer
		Stderr io.Writer
		// Env is the environment in KEY=VALUE form. Nil inherits os.Environ().
		Env []string
	}

	// StepError reports a build step that exited non-zero.
	StepError struct {
		Script   string
		ExitCode types.ExitCode
	}
)

// Error implements the error interface.
func (e *StepError) Error() string {
	return fmt.Sprintf("%q exited with status %d", e.Script, e.ExitCode)
}

// Unwrap returns ErrBuildFailed for errors.Is.
func (e *StepError) Unwrap() error { return ErrBuildFailed }

// NewRunner returns a Runner for dir writing to stdout and stderr.
func NewRunner(dir, dependencyDir string, stdout, stderr io.Writer) *Runner {
	return &Runner{Dir: dir, DependencyDir: dependencyDir, Stdout: stdout, Stderr: stderr}
}

// ForLanguage runs the build appropriate for rt's language.
func (r *Runner) ForLanguage(ctx context.Context, rt runtime.Runtime) error {
	if rt.Language() == runtime.LanguagePython {
		return r.InstallRequirements(ctx, rt)
	}
	return r.Make(ctx)
}

// CreateVirtualenv creates the dependency directory with rt's interpreter.
func (r *Runner) CreateVirtualenv(ctx context.Context, rt runtime.Runtime) error {
	return r.Run(ctx, fmt.Sprintf("%s -m venv %s", quote(rt.Interpreter()), quote(r.depDir())))
}

// InstallRequirements installs requirements.txt into the virtualenv, creating
// the virtualenv first when it does not exist.
func (r *Runner) InstallRequirements(ctx context.Context, rt runtime.Runtime) error {
	activate := filepath.Join(r.Dir, r.depDir(), "bin", "activate")
	if _, err := os.Stat(activate); err != nil {
		slog.Info("creating virtualenv", "dir", r.depDir(), "interpreter", rt.Interpreter())
		if err := r.CreateVirtualenv(ctx, rt); err != nil {
			return err
		}
	}
	script := fmt.Sprintf(". %s && pip install -r requirements.txt", quote(r.depDir()+"/bin/activate"))
	return r.Run(ctx, script)
}

// Make runs make in the function directory.
func (r *Runner) Make(ctx context.Context) error {
	return r.Run(ctx, "make")
}

// Run parses and executes a shell snippet in the function directory.
func (r *Runner) Run(ctx context.Context, script string) error {
	prog, err := syntax.NewParser().Parse(strings.NewReader(script), "build")
	if err != nil {
		return fmt.Errorf("failed to parse build script: %w", err)
	}

	env := r.Env
	if env == nil {
		env = os.Environ()
	}
	stdout, stderr := r.Stdout, r.Stderr
	if stdout == nil {
		stdout = io.Discard
	}
	if stderr == nil {
		stderr = io.Discard
	}

	runner, err := interp.New(
		interp.Dir(r.Dir),
		interp.Env(expand.ListEnviron(env...)),
		interp.StdIO(nil, stdout, stderr),
	)
	if err != nil {
		return fmt.Errorf("failed to create interpreter: %w", err)
	}

	slog.Debug("running build step", "dir", r.Dir, "script", script)
	if err := runner.Run(ctx, prog); err != nil {
		var status interp.ExitStatus
		if errors.As(err, &status) {
			return &StepError{Script: script, ExitCode: types.ExitCode(status)}
		}
		return fmt.Errorf("build step %q failed: %w", script, err)
	}
	return nil
}

func (r *Runner) depDir() string {
	if r.DependencyDir == "" {
		return "venv"
	}
	return r.DependencyDir
}

// quote single-quotes s for the shell.
func quote(s string) string {
	if s != "" && !strings.ContainsAny(s, " \t\n'\"\\$`;&|<>()*?[]#~") {
		return s
	}
	return "'" + strings.ReplaceAll(s, "'", `'\''`) + "'"
}
