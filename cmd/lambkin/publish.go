// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"context"
	"fmt"

	"lambkin-cli/internal/cloud"
	"lambkin-cli/internal/config"
	"lambkin-cli/internal/issue"
	"lambkin-cli/pkg/metadata"

	"github.com/MakeNowJust/heredoc/v2"
	"github.com/spf13/cobra"
)

type publishOptions struct {
	description string
	timeout     int
	memory      int
	role        string
	zipFilePath string
	zipFileOnly bool
}

func newPublishCommand(app *App) *cobra.Command {
	var opts publishOptions

	cmd := &cobra.Command{
		Use:   "publish",
		Short: "Publish the current function to Lambda",
		Long: heredoc.Doc(`
			Package the function in the current directory and deploy it to
			Lambda, creating the function on first publish.

			--description, --timeout, --memory and --role are saved to
			metadata.json, so later publishes reuse them. The final Lambda
			function configuration is printed as JSON.
		`),
		Example: heredoc.Doc(`
			  lambkin publish --description "Nightly report" --timeout 60
			  lambkin publish --zip-file-only --zip-file-path build/fn.zip
		`),
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runPublish(cmd.Context(), app, opts)
		},
	}

	cmd.Flags().StringVar(&opts.description, "description", "", "descriptive text shown in AWS Lambda")
	cmd.Flags().IntVar(&opts.timeout, "timeout", 0, fmt.Sprintf("maximum run time in seconds (%d-%d)", config.MinTimeout, config.MaxTimeout))
	cmd.Flags().IntVar(&opts.memory, "memory", 0, fmt.Sprintf("memory allocated to the function in MiB (%d-%d)", config.MinMemory, config.MaxMemory))
	cmd.Flags().StringVar(&opts.role, "role", "", "execution role name or ARN (default from config)")
	cmd.Flags().StringVar(&opts.zipFilePath, "zip-file-path", "", "archive path (default is <tmp>/lambkin-publish-<function>.zip)")
	cmd.Flags().BoolVar(&opts.zipFileOnly, "zip-file-only", false, "produce the archive and exit without publishing")

	return cmd
}

func (o publishOptions) validate() error {
	ec := issue.NewErrorContext().WithOperation("publish function")
	if o.timeout != 0 && (o.timeout < config.MinTimeout || o.timeout > config.MaxTimeout) {
		return ec.WithResource("--timeout").
			Wrap(fmt.Errorf("%d is not in the range %d-%d", o.timeout, config.MinTimeout, config.MaxTimeout)).
			BuildError()
	}
	if o.memory != 0 && (o.memory < config.MinMemory || o.memory > config.MaxMemory) {
		return ec.WithResource("--memory").
			Wrap(fmt.Errorf("%d is not in the range %d-%d", o.memory, config.MinMemory, config.MaxMemory)).
			BuildError()
	}
	return nil
}

// apply records the flags that were given in m.
func (o publishOptions) apply(m *metadata.Metadata) {
	if o.description != "" {
		m.Description = o.description
	}
	if o.timeout != 0 {
		m.Timeout = o.timeout
	}
	if o.memory != 0 {
		m.Memory = o.memory
	}
	if o.role != "" {
		m.Role = o.role
	}
}

func runPublish(ctx context.Context, app *App, opts publishOptions) error {
	if err := opts.validate(); err != nil {
		return err
	}
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

	if opts.description == "" && fn.meta.Description == "" {
		return issue.NewErrorContext().
			WithOperation("publish function").
			WithResource(fn.meta.Function).
			WithSuggestion(`Please provide a description with "--description"`).
			Wrap(fmt.Errorf("no description in flags or %s", metadata.FileName)).
			BuildError()
	}
	meta, err := fn.store.Update(opts.apply)
	if err != nil {
		return metadataError(fn.store.Path, err)
	}
	fn.meta = meta

	path, err := app.buildArchive(ctx, fn, opts.zipFilePath)
	if err != nil {
		return err
	}
	if opts.zipFileOnly {
		fmt.Fprintln(app.stdout, path)
		return nil
	}

	svc, err := app.Connect(ctx, cfg)
	if err != nil {
		return err
	}
	result, err := svc.Publish(ctx, cloud.PublishInput{
		Function:    meta.Function,
		Description: meta.Description,
		Runtime:     string(rt),
		Role:        orDefault(meta.Role, cfg.Defaults.Role),
		Timeout:     int32(orDefault(meta.Timeout, cfg.Defaults.Timeout)),
		Memory:      int32(orDefault(meta.Memory, cfg.Defaults.Memory)),
		ArchivePath: path,
	})
	if err != nil {
		return cloudError("publish function", meta.Function, err)
	}

	verb := "updated"
	if result.Created {
		verb = "created"
	}
	fmt.Fprintf(app.stderr, "%s %s %s in Lambda\n", SuccessStyle.Render("✓"), meta.Function, verb)
	return writeJSON(app.stdout, result.Function)
}

// orDefault returns v unless it is the zero value.
func orDefault[T comparable](v, def T) T {
	var zero T
	if v == zero {
		return def
	}
	return v
}
