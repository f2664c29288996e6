// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"context"
	"fmt"

	"lambkin-cli/internal/issue"
	"lambkin-cli/pkg/types"

	"github.com/MakeNowJust/heredoc/v2"
	"github.com/goccy/go-json"
	"github.com/spf13/cobra"
)

type runOptions struct {
	function string
	payload  string
}

func newRunCommand(app *App) *cobra.Command {
	var opts runOptions

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run a published function",
		Long: heredoc.Doc(`
			Invoke a published function synchronously. The tail of its execution
			log is written to stderr and the response payload to stdout.
		`),
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runInvoke(cmd.Context(), app, opts)
		},
	}

	cmd.Flags().StringVar(&opts.function, "function", "", "function name (default is the function in the current directory)")
	cmd.Flags().StringVar(&opts.payload, "payload", "", "JSON event passed to the function")

	return cmd
}

func runInvoke(ctx context.Context, app *App, opts runOptions) error {
	var payload []byte
	if opts.payload != "" {
		payload = []byte(opts.payload)
		if !json.Valid(payload) {
			return issue.NewErrorContext().
				WithOperation("run function").
				WithResource("--payload").
				WithSuggestion(`Pass a JSON document, e.g. --payload '{"key": "value"}'`).
				Wrap(fmt.Errorf("payload is not valid JSON")).
				BuildError()
		}
	}

	name, err := app.functionName(opts.function)
	if err != nil {
		return err
	}
	svc, err := app.connectCloud(ctx)
	if err != nil {
		return err
	}
	result, err := svc.Invoke(ctx, name, payload)
	if err != nil {
		return cloudError("run function", name, err)
	}

	for _, line := range result.Logs {
		fmt.Fprintln(app.stderr, line)
	}
	fmt.Fprintf(app.stdout, "%s\n", result.Payload)

	if result.FunctionError != "" {
		return &ExitError{
			Code: types.ExitCode(1),
			Err:  fmt.Errorf("function %s failed: %s", name, result.FunctionError),
		}
	}
	return nil
}
