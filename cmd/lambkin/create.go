// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"

	"lambkin-cli/internal/issue"
	"lambkin-cli/pkg/runtime"
	"lambkin-cli/pkg/scaffold"
	"lambkin-cli/pkg/types"

	"github.com/MakeNowJust/heredoc/v2"
	"github.com/spf13/cobra"
)

type createOptions struct {
	name      string
	runtime   string
	directory string
	noVenv    bool
}

func newCreateCommand(app *App) *cobra.Command {
	var opts createOptions

	cmd := &cobra.Command{
		Use:   "create <function>",
		Short: "Make a new Lambda function from a basic template",
		Long: heredoc.Doc(`
			Make a new Lambda function from a basic template.

			A directory named after the function is created with an entry point,
			a .gitignore and a metadata.json. Python functions also get a
			requirements.txt and a virtualenv; other runtimes get a Makefile.
		`),
		Example: heredoc.Doc(`
			  lambkin create hello
			  lambkin create greeter --runtime nodejs20.x --directory ~/src
		`),
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			opts.name = args[0]
			return runCreate(cmd.Context(), app, opts)
		},
	}

	cmd.Flags().StringVar(&opts.runtime, "runtime", "", `the language runtime to use, e.g. "python3.12" (default from config)`)
	cmd.Flags().StringVar(&opts.directory, "directory", "", "parent directory for the new function (default is the current directory)")
	cmd.Flags().BoolVar(&opts.noVenv, "no-venv", false, "skip creating the virtualenv for python functions")

	return cmd
}

func runCreate(ctx context.Context, app *App, opts createOptions) error {
	cfg, err := app.loadConfig(ctx)
	if err != nil {
		return err
	}

	name := types.FunctionName(opts.name)
	if err = name.Validate(); err != nil {
		return issue.NewErrorContext().
			WithOperation("create function").
			WithResource(opts.name).
			WithSuggestion("Function names contain only letters, digits, '-' and '_' (at most 64)").
			Wrap(err).
			BuildError()
	}

	requested := opts.runtime
	if requested == "" {
		requested = cfg.Defaults.Runtime
	}
	rt, err := runtime.Normalize(requested)
	if err != nil {
		return runtimeError(err)
	}

	parent := opts.directory
	if parent == "" || !filepath.IsAbs(parent) {
		base, dirErr := app.dir()
		if dirErr != nil {
			return fmt.Errorf("failed to resolve working directory: %w", dirErr)
		}
		parent = filepath.Join(base, parent)
	}

	dir, err := scaffold.Create(scaffold.Options{
		Name:      name,
		ParentDir: parent,
		Runtime:   rt,
		Timeout:   cfg.Defaults.Timeout,
	})
	if err != nil {
		ec := issue.NewErrorContext().
			WithOperation("create function").
			WithResource(filepath.Join(parent, opts.name)).
			Wrap(err)
		if errors.Is(err, scaffold.ErrExists) {
			ec.WithSuggestion("Pick another name or remove the existing directory").
				WithIssue(issue.FunctionExistsId)
		}
		return ec.BuildError()
	}

	if rt.Language() == runtime.LanguagePython && !opts.noVenv {
		req := BuildRequest{Dir: dir, DependencyDir: cfg.Package.DependencyDir, Runtime: rt}
		if err = app.Builder.CreateVirtualenv(ctx, req); err != nil {
			return buildError(dir, err)
		}
	}

	entry := filepath.Join(dir, opts.name+"."+rt.FileExtension())
	fmt.Fprintf(app.stderr, "%s %s created as %s\n", SuccessStyle.Render("✓"), opts.name, CmdStyle.Render(entry))
	for _, f := range scaffold.Files(name, rt) {
		fmt.Fprintf(app.stderr, "  %s\n", filepath.Join(dir, f))
	}
	return nil
}
