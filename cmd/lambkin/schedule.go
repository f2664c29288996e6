// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"context"
	"fmt"

	"lambkin-cli/internal/cloud"
	"lambkin-cli/internal/issue"

	"github.com/MakeNowJust/heredoc/v2"
	"github.com/spf13/cobra"
)

type scheduleOptions struct {
	function string
	rate     string
	cron     string
}

func newScheduleCommand(app *App) *cobra.Command {
	var opts scheduleOptions

	cmd := &cobra.Command{
		Use:   "schedule",
		Short: "Schedule a function to run regularly",
		Long: heredoc.Doc(`
			Schedule a published function with an EventBridge rule named
			lambkin-cron-<function>. Exactly one of --rate or --cron is required.
			Scheduling again replaces the expression.
		`),
		Example: heredoc.Doc(`
			  lambkin schedule --rate "6 minutes"
			  lambkin schedule --function report --cron "0 8 1 * ? *"
		`),
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runSchedule(cmd.Context(), app, opts)
		},
	}

	cmd.Flags().StringVar(&opts.function, "function", "", "function name (default is the function in the current directory)")
	cmd.Flags().StringVar(&opts.rate, "rate", "", `execution rate, like "6 minutes" or "1 day"`)
	cmd.Flags().StringVar(&opts.cron, "cron", "", `cron schedule, like "0 8 1 * ? *"`)

	return cmd
}

func newUnscheduleCommand(app *App) *cobra.Command {
	var function string

	cmd := &cobra.Command{
		Use:   "unschedule",
		Short: "Stop running a function on a schedule",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runUnschedule(cmd.Context(), app, function)
		},
	}

	cmd.Flags().StringVar(&function, "function", "", "function name (default is the function in the current directory)")

	return cmd
}

func runSchedule(ctx context.Context, app *App, opts scheduleOptions) error {
	expr, err := cloud.ScheduleExpression(opts.rate, opts.cron)
	if err != nil {
		return issue.NewErrorContext().
			WithOperation("schedule function").
			WithSuggestion(`Pass exactly one of "--rate" or "--cron"`).
			Wrap(err).
			BuildError()
	}

	name, err := app.functionName(opts.function)
	if err != nil {
		return err
	}
	svc, err := app.connectCloud(ctx)
	if err != nil {
		return err
	}
	result, err := svc.Schedule(ctx, name, expr)
	if err != nil {
		return cloudError("schedule function", name, err)
	}

	fmt.Fprintf(app.stderr, "%s %s scheduled with %s\n", SuccessStyle.Render("✓"), name, CmdStyle.Render(expr))
	return writeJSON(app.stdout, result)
}

func runUnschedule(ctx context.Context, app *App, flag string) error {
	name, err := app.functionName(flag)
	if err != nil {
		return err
	}
	svc, err := app.connectCloud(ctx)
	if err != nil {
		return err
	}
	if err = svc.Unschedule(ctx, name); err != nil {
		return cloudError("unschedule function", name, err)
	}
	fmt.Fprintf(app.stderr, "%s %s unscheduled\n", SuccessStyle.Render("✓"), name)
	return nil
}
