// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"context"
	"fmt"

	"github.com/MakeNowJust/heredoc/v2"
	"github.com/spf13/cobra"
)

func newBuildCommand(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "build",
		Short: "Run the build process for the current function",
		Long: heredoc.Doc(`
			Run the build process for the function in the current directory.

			Python functions get their requirements.txt installed into the
			virtualenv, which is created first when missing. Every other runtime
			runs make.
		`),
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runBuild(cmd.Context(), app)
		},
	}
}

func runBuild(ctx context.Context, app *App) error {
	cfg, err := app.loadConfig(ctx)
	if err != nil {
		return err
	}
	fn, err := app.openFunction()
	if err != nil {
		return err
	}
	rt, err := fn.runtime()
	if err != nil {
		return err
	}

	req := BuildRequest{Dir: fn.dir, DependencyDir: cfg.Package.DependencyDir, Runtime: rt}
	if err = app.Builder.Build(ctx, req); err != nil {
		return buildError(fn.dir, err)
	}

	fmt.Fprintf(app.stderr, "%s %s built\n", SuccessStyle.Render("✓"), fn.meta.Function)
	return nil
}
