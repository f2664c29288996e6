// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
)

func newListPublishedCommand(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "list-published",
		Short: "List published Lambda functions",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runListPublished(cmd.Context(), app)
		},
	}
}

func runListPublished(ctx context.Context, app *App) error {
	svc, err := app.connectCloud(ctx)
	if err != nil {
		return err
	}
	names, err := svc.ListFunctions(ctx)
	if err != nil {
		return cloudError("list functions", "", err)
	}
	for _, name := range names {
		fmt.Fprintln(app.stdout, name)
	}
	return nil
}
