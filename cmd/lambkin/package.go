// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"

	"lambkin-cli/pkg/archive"

	"github.com/MakeNowJust/heredoc/v2"
	"github.com/spf13/cobra"
)

type packageOptions struct {
	output string
	list   bool
}

func newPackageCommand(app *App) *cobra.Command {
	var opts packageOptions

	cmd := &cobra.Command{
		Use:   "package",
		Short: "Build the deployment archive without publishing",
		Long: heredoc.Doc(`
			Zip the function in the current directory into a deployment archive
			and print the archive path.

			Third-party packages are lifted out of the virtualenv's site-packages
			to the archive root; the rest of the virtualenv, compiled files,
			version-control metadata and the function's "exclude" globs are left
			out.
		`),
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runPackage(cmd.Context(), app, opts)
		},
	}

	cmd.Flags().StringVarP(&opts.output, "output", "o", "", "archive path (default is <tmp>/lambkin-publish-<function>.zip)")
	cmd.Flags().BoolVar(&opts.list, "list", false, "also print the archive entries")

	return cmd
}

func runPackage(ctx context.Context, app *App, opts packageOptions) error {
	fn, err := app.openFunction()
	if err != nil {
		return err
	}
	path, err := app.buildArchive(ctx, fn, opts.output)
	if err != nil {
		return err
	}

	fmt.Fprintln(app.stdout, path)
	if !opts.list {
		return nil
	}
	entries, err := archive.Entries(path)
	if err != nil {
		return archiveError(path, err)
	}
	for _, entry := range entries {
		fmt.Fprintln(app.stdout, entry)
	}
	return nil
}

// buildArchive zips fn into output, or the default destination when output
// is empty, and returns the archive path.
func (a *App) buildArchive(ctx context.Context, fn *functionDir, output string) (string, error) {
	cfg, err := a.loadConfig(ctx)
	if err != nil {
		return "", err
	}
	if output != "" && !filepath.IsAbs(output) {
		output = filepath.Join(fn.dir, output)
	}

	path, err := archive.Build(ctx, archive.Options{
		RootDir:      fn.dir,
		Destination:  output,
		FunctionName: fn.meta.Function,
		TempDir:      cfg.Package.TempDir,
		Layout:       cfg.Layout(fn.meta.Exclude),
	})
	if err != nil {
		return "", archiveError(fn.dir, err)
	}
	slog.Info("archive written", "function", fn.meta.Function, "path", path)
	return path, nil
}
