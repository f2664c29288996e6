// SPDX-License-Identifier: MPL-2.0

// Package scaffold creates new function directories from embedded templates.
package scaffold

import (
	"bytes"
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"text/template"

	"lambkin-cli/pkg/metadata"
	"lambkin-cli/pkg/runtime"
	"lambkin-cli/pkg/types"
)

//go:embed templates/*.tmpl
var templateFS embed.FS

// ErrExists is returned when the function directory or entry point already exists.
var ErrExists = errors.New("path already exists")

type (
	// Options configures Create.
	Options struct {
		// Name is the function name; it also names the directory and entry point.
		Name types.FunctionName
		// ParentDir is where the function directory is created. Defaults to ".".
		ParentDir string
		// Runtime is the normalized Lambda runtime.
		Runtime runtime.Runtime
		// Timeout is recorded in metadata.json, in seconds. Zero leaves it unset.
		Timeout int
	}

	// file is one rendered output of a scaffold.
	file struct {
		template string
		output   string
	}

	// templateData is what templates can reference.
	templateData struct {
		Name      string
		Extension string
	}
)

// Files lists, in creation order, the files a scaffold for rt produces
// (relative to the function directory), excluding metadata.json.
func Files(name types.FunctionName, rt runtime.Runtime) []string {
	plan := plan(name, rt)
	out := make([]string, len(plan))
	for i, f := range plan {
		out[i] = f.output
	}
	return out
}

func plan(name types.FunctionName, rt runtime.Runtime) []file {
	entry := fmt.Sprintf("%s.%s", name, rt.FileExtension())
	if rt.Language() == runtime.LanguagePython {
		return []file{
			{template: "python.py.tmpl", output: entry},
			{template: "requirements.txt.tmpl", output: "requirements.txt"},
			{template: "gitignore-python.tmpl", output: ".gitignore"},
		}
	}
	return []file{
		{template: "nodejs.js.tmpl", output: entry},
		{template: "Makefile.tmpl", output: "Makefile"},
		{template: "gitignore.tmpl", output: ".gitignore"},
	}
}

// Create makes <ParentDir>/<Name>, renders the templates for the runtime and
// writes metadata.json. On failure the new directory is removed.
// It returns the function directory.
func Create(opts Options) (dir string, err error) {
	if err := opts.Name.Validate(); err != nil {
		return "", err
	}
	if opts.Runtime == "" {
		return "", fmt.Errorf("runtime is required")
	}

	parent := opts.ParentDir
	if parent == "" {
		parent = "."
	}
	dir = filepath.Join(parent, string(opts.Name))
	files := plan(opts.Name, opts.Runtime)

	for _, path := range []string{dir, filepath.Join(dir, files[0].output)} {
		if _, statErr := os.Stat(path); statErr == nil {
			return "", fmt.Errorf("%w: %s", ErrExists, path)
		} else if !errors.Is(statErr, fs.ErrNotExist) {
			return "", fmt.Errorf("failed to check %s: %w", path, statErr)
		}
	}

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create function directory: %w", err)
	}
	defer func() {
		if err != nil {
			_ = os.RemoveAll(dir) // Best-effort cleanup on error path
		}
	}()

	data := templateData{Name: string(opts.Name), Extension: opts.Runtime.FileExtension()}
	for _, f := range files {
		if err = render(f.template, filepath.Join(dir, f.output), data); err != nil {
			return "", err
		}
	}

	m := &metadata.Metadata{
		Function: string(opts.Name),
		Runtime:  string(opts.Runtime),
		Language: string(opts.Runtime.Language()),
		Timeout:  opts.Timeout,
	}
	if err = metadata.NewStore(dir).Write(m); err != nil {
		return "", err
	}

	return dir, nil
}

func render(name, output string, data templateData) error {
	tmpl, err := template.ParseFS(templateFS, "templates/"+name)
	if err != nil {
		return fmt.Errorf("internal error: failed to parse template %s: %w", name, err)
	}
	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return fmt.Errorf("failed to render %s: %w", name, err)
	}
	if err := os.WriteFile(output, buf.Bytes(), 0o644); err != nil {
		return fmt.Errorf("failed to write %s: %w", filepath.Base(output), err)
	}
	return nil
}
