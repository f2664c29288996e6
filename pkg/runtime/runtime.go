// SPDX-License-Identifier: MPL-2.0

// Package runtime maps user-supplied runtime names onto Lambda runtime
// identifiers and the language conventions that go with them.
package runtime

import (
	"errors"
	"fmt"
	"slices"
	"strings"
)

const (
	// LanguagePython functions are built with virtualenv and pip.
	LanguagePython Language = "python"
	// LanguageNodeJS functions are built with make.
	LanguageNodeJS Language = "nodejs"

	// DefaultPython is what "python" (or no runtime at all) resolves to.
	DefaultPython Runtime = "python3.12"
	// DefaultNodeJS is what "node" and "nodejs" resolve to.
	DefaultNodeJS Runtime = "nodejs20.x"
)

// ErrUnsupportedRuntime is the sentinel error wrapped by UnsupportedRuntimeError.
var ErrUnsupportedRuntime = errors.New("unsupported runtime")

// supported lists the runtimes lambkin can scaffold and package.
var supported = []Runtime{
	"python3.9", "python3.10", "python3.11", "python3.12", "python3.13",
	"nodejs18.x", "nodejs20.x", "nodejs22.x",
}

type (
	// Runtime is a Lambda runtime identifier such as "python3.12".
	Runtime string

	// Language is the source language of a runtime.
	Language string

	// UnsupportedRuntimeError is returned by Normalize for unknown runtimes.
	UnsupportedRuntimeError struct {
		Value string
	}
)

// Error implements the error interface.
func (e *UnsupportedRuntimeError) Error() string {
	return fmt.Sprintf("runtime %q is not supported (supported: %s)", e.Value, strings.Join(Names(), ", "))
}

// Unwrap returns ErrUnsupportedRuntime for errors.Is.
func (e *UnsupportedRuntimeError) Unwrap() error { return ErrUnsupportedRuntime }

// Normalize turns a user-supplied runtime into one Lambda accepts. An empty
// name means Python; bare language names get a default version.
func Normalize(name string) (Runtime, error) {
	switch name = strings.TrimSpace(name); name {
	case "", "python":
		return DefaultPython, nil
	case "node", "nodejs":
		return DefaultNodeJS, nil
	}
	r := Runtime(name)
	if !slices.Contains(supported, r) {
		return "", &UnsupportedRuntimeError{Value: name}
	}
	return r, nil
}

// Names returns the supported runtime identifiers.
func Names() []string {
	names := make([]string, len(supported))
	for i, r := range supported {
		names[i] = string(r)
	}
	return names
}

// Language returns the runtime's source language.
func (r Runtime) Language() Language {
	if strings.HasPrefix(string(r), "node") {
		return LanguageNodeJS
	}
	return LanguagePython
}

// FileExtension returns the entry-point file extension, without the dot.
func (r Runtime) FileExtension() string {
	if r.Language() == LanguageNodeJS {
		return "js"
	}
	return "py"
}

// Interpreter returns the executable used to create a virtualenv for r.
// Only meaningful for Python runtimes.
func (r Runtime) Interpreter() string {
	return string(r)
}

// String returns the runtime identifier.
func (r Runtime) String() string { return string(r) }
