// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
)

func newUnpublishCommand(app *App) *cobra.Command {
	var function string

	cmd := &cobra.Command{
		Use:   "unpublish",
		Short: "Remove a function from Lambda",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runUnpublish(cmd.Context(), app, function)
		},
	}

	cmd.Flags().StringVar(&function, "function", "", "function name (default is the function in the current directory)")

	return cmd
}

func runUnpublish(ctx context.Context, app *App, flag string) error {
	name, err := app.functionName(flag)
	if err != nil {
		return err
	}
	svc, err := app.connectCloud(ctx)
	if err != nil {
		return err
	}
	if err = svc.Delete(ctx, name); err != nil {
		return cloudError("unpublish function", name, err)
	}
	fmt.Fprintf(app.stderr, "%s %s unpublished\n", SuccessStyle.Render("✓"), name)
	return nil
}
