// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"lambkin-cli/internal/build"
	"lambkin-cli/internal/cloud"
	"lambkin-cli/internal/issue"
	"lambkin-cli/pkg/archive"
	"lambkin-cli/pkg/metadata"
	"lambkin-cli/pkg/runtime"
	"lambkin-cli/pkg/types"
)

// functionDir is the function directory a command operates on.
type functionDir struct {
	dir   string
	store *metadata.Store
	meta  *metadata.Metadata
}

// openFunction reads metadata.json from the working directory.
func (a *App) openFunction() (*functionDir, error) {
	dir, err := a.dir()
	if err != nil {
		return nil, fmt.Errorf("failed to resolve working directory: %w", err)
	}
	store := metadata.NewStore(dir)
	meta, err := store.Read()
	if err != nil {
		return nil, metadataError(store.Path, err)
	}
	return &functionDir{dir: dir, store: store, meta: meta}, nil
}

// runtime normalizes the runtime recorded in metadata.json.
func (f *functionDir) runtime() (runtime.Runtime, error) {
	rt, err := runtime.Normalize(f.meta.Runtime)
	if err != nil {
		return "", runtimeError(err)
	}
	return rt, nil
}

// functionName returns the --function flag value, or the name recorded in the
// working directory's metadata.json.
func (a *App) functionName(flag string) (string, error) {
	if flag != "" {
		if err := types.FunctionName(flag).Validate(); err != nil {
			return "", issue.NewErrorContext().
				WithOperation("resolve function").
				WithResource(flag).
				WithSuggestion("Function names contain only letters, digits, '-' and '_' (at most 64)").
				Wrap(err).
				BuildError()
		}
		return flag, nil
	}
	fn, err := a.openFunction()
	if err != nil {
		return "", err
	}
	return fn.meta.Function, nil
}

func metadataError(path string, err error) error {
	if errors.Is(err, metadata.ErrNotFound) {
		return issue.NewErrorContext().
			WithOperation("read function metadata").
			WithResource(path).
			WithSuggestion("Run this command from a function directory").
			WithSuggestion("Create a function with 'lambkin create <name>'").
			WithIssue(issue.MetadataNotFoundId).
			Wrap(err).
			BuildError()
	}
	return issue.NewErrorContext().
		WithOperation("read function metadata").
		WithResource(path).
		WithIssue(issue.MetadataInvalidId).
		Wrap(err).
		BuildError()
}

func runtimeError(err error) error {
	return issue.NewErrorContext().
		WithOperation("resolve runtime").
		WithSuggestion("Supported runtimes: " + strings.Join(runtime.Names(), ", ")).
		WithIssue(issue.UnsupportedRuntimeId).
		Wrap(err).
		BuildError()
}

func buildError(dir string, err error) error {
	ec := issue.NewErrorContext().
		WithOperation("build function").
		WithResource(dir).
		Wrap(err)
	if errors.Is(err, build.ErrBuildFailed) {
		ec.WithIssue(issue.BuildFailedId)
	}
	return ec.BuildError()
}

func archiveError(dir string, err error) error {
	ec := issue.NewErrorContext().
		WithOperation("package function").
		WithResource(dir).
		Wrap(err)
	switch {
	case errors.Is(err, archive.ErrPermission):
		ec.WithIssue(issue.PermissionDeniedId)
	default:
		ec.WithIssue(issue.ArchiveFailedId)
	}
	return ec.BuildError()
}

// cloudError attaches guidance to a failed AWS call.
func cloudError(op, fn string, err error) error {
	ec := issue.NewErrorContext().
		WithOperation(op).
		WithResource(fn).
		Wrap(err)
	switch {
	case errors.Is(err, cloud.ErrFunctionNotFound):
		ec.WithSuggestion("List published functions with 'lambkin list-published'").
			WithIssue(issue.RemoteFunctionNotFoundId)
	case cloud.IsAPIError(err, "AccessDeniedException", "AccessDenied"):
		ec.WithIssue(issue.PermissionDeniedId)
	case cloud.IsAPIError(err, "UnrecognizedClientException", "InvalidClientTokenId", "ExpiredTokenException", "ExpiredToken"):
		ec.WithIssue(issue.AwsCredentialsId)
	}
	slog.Debug("aws call failed", "operation", op, "function", fn, "error", err)
	return ec.BuildError()
}
