// SPDX-License-Identifier: MPL-2.0

package archive

import (
	"fmt"
	"path"
	"regexp"
	"slices"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
)

const (
	// DefaultDependencyDir is the virtualenv directory created by `lambkin create`.
	DefaultDependencyDir = "venv"
	// DefaultCompiledSuffix marks interpreter bytecode that is never packaged.
	DefaultCompiledSuffix = ".pyc"
)

// Reason explains why a file was included or excluded.
type Reason string

const (
	// ReasonSource is a function file stored at its own relative path.
	ReasonSource Reason = "source"
	// ReasonPackage is a third-party package re-rooted from the virtualenv.
	ReasonPackage Reason = "package"
	// ReasonCompiled is a compiled artifact.
	ReasonCompiled Reason = "compiled"
	// ReasonDependency is virtualenv scaffolding outside the packages directory.
	ReasonDependency Reason = "dependency"
	// ReasonVCS is version-control metadata.
	ReasonVCS Reason = "vcs"
	// ReasonPattern matched one of Layout.Exclude.
	ReasonPattern Reason = "pattern"
)

var (
	// libDirs are the virtualenv library roots; lib64 appears on some 64-bit hosts.
	libDirs = []string{"lib", "lib64"}
	// packageDirs hold importable packages (dist-packages on Debian derived pythons).
	packageDirs = []string{"site-packages", "dist-packages"}
	// pythonDirRe matches the per-interpreter directory, e.g. "python3.12".
	pythonDirRe = regexp.MustCompile(`^python\d+\.\d+$`)
)

type (
	// Layout describes where things live inside a function directory.
	// The zero value is not usable; start from DefaultLayout.
	Layout struct {
		// DependencyDir is the virtualenv directory name, relative to the root.
		DependencyDir string
		// CompiledSuffix is the file suffix of compiled artifacts.
		CompiledSuffix string
		// VCSDirs are directory names holding version-control metadata.
		VCSDirs []string
		// Exclude holds extra doublestar patterns matched against the
		// root-relative, slash-separated path of every file.
		Exclude []string
	}

	// Decision is the outcome of classifying one file.
	Decision struct {
		Include bool
		// ArchivePath is the entry name, set only when Include is true.
		ArchivePath string
		Reason      Reason
	}
)

// DefaultLayout returns the layout produced by `lambkin create`.
func DefaultLayout() Layout {
	return Layout{
		DependencyDir:  DefaultDependencyDir,
		CompiledSuffix: DefaultCompiledSuffix,
		VCSDirs:        []string{".git", ".hg", ".svn"},
	}
}

// Validate checks that the layout can classify paths.
func (l Layout) Validate() error {
	if strings.TrimSpace(l.DependencyDir) == "" {
		return fmt.Errorf("dependency directory cannot be empty")
	}
	if strings.ContainsAny(l.DependencyDir, `/\`) {
		return fmt.Errorf("dependency directory %q must be a single path segment", l.DependencyDir)
	}
	for _, pattern := range l.Exclude {
		if !doublestar.ValidatePattern(pattern) {
			return fmt.Errorf("invalid exclude pattern %q", pattern)
		}
	}
	return nil
}

// Classify decides whether the file at relPath goes into the archive, and
// under which name. relPath is slash-separated and relative to the function root.
func Classify(relPath string, layout Layout) Decision {
	segments := splitPath(relPath)
	if len(segments) == 0 {
		return Decision{Reason: ReasonSource}
	}
	name := segments[len(segments)-1]

	if layout.CompiledSuffix != "" && strings.HasSuffix(name, layout.CompiledSuffix) {
		return Decision{Reason: ReasonCompiled}
	}

	slashPath := strings.Join(segments, "/")
	for _, pattern := range layout.Exclude {
		if ok, _ := doublestar.Match(pattern, slashPath); ok {
			return Decision{Reason: ReasonPattern}
		}
	}

	if len(segments) > 1 && segments[0] == layout.DependencyDir {
		if rest, ok := packageRelative(segments[1:]); ok {
			return Decision{Include: true, ArchivePath: strings.Join(rest, "/"), Reason: ReasonPackage}
		}
		return Decision{Reason: ReasonDependency}
	}

	for _, dir := range segments[:len(segments)-1] {
		if slices.Contains(layout.VCSDirs, dir) {
			return Decision{Reason: ReasonVCS}
		}
	}

	return Decision{Include: true, ArchivePath: slashPath, Reason: ReasonSource}
}

// packageRelative matches lib*/pythonX.Y/{site,dist}-packages/<rest...> and
// returns <rest>. The remainder must name a file, so it is never empty.
func packageRelative(segments []string) ([]string, bool) {
	if len(segments) < 4 {
		return nil, false
	}
	if !slices.Contains(libDirs, segments[0]) ||
		!pythonDirRe.MatchString(segments[1]) ||
		!slices.Contains(packageDirs, segments[2]) {
		return nil, false
	}
	return segments[3:], true
}

// splitPath cleans relPath and splits it into segments, dropping "." and empty
// components so "./venv/lib/" and "venv/lib" compare equal.
func splitPath(relPath string) []string {
	cleaned := path.Clean(relPath)
	var segments []string
	for _, s := range strings.Split(cleaned, "/") {
		if s == "" || s == "." {
			continue
		}
		segments = append(segments, s)
	}
	return segments
}
