// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"

	"lambkin-cli/internal/config"
	"lambkin-cli/internal/issue"
	"lambkin-cli/pkg/platform"
	"lambkin-cli/pkg/types"

	"github.com/MakeNowJust/heredoc/v2"
	"github.com/charmbracelet/fang"
	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"
)

var (
	// Version is the semantic version (set via -ldflags).
	Version = "dev"
	// Commit is the git commit hash (set via -ldflags).
	Commit = "unknown"
	// BuildDate is the build timestamp (set via -ldflags).
	BuildDate = "unknown"
)

// NewRootCommand builds the lambkin command tree around app.
func NewRootCommand(app *App) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "lambkin",
		Short: "Build, package and publish AWS Lambda functions",
		Long: TitleStyle.Render("lambkin") + SubtitleStyle.Render(" - Build, package and publish AWS Lambda functions") + "\n\n" +
			heredoc.Doc(`
				lambkin scaffolds a function directory, installs its dependencies,
				zips it into a deployment archive and manages it in AWS Lambda.
				Commands other than create operate on the function in the current
				directory, identified by its metadata.json.
			`) + "\n" + SubtitleStyle.Render("Examples:") + "\n" +
			heredoc.Doc(`
				  lambkin create hello --runtime python3.12
				  cd hello && lambkin build
				  lambkin publish --description "Says hello"
				  lambkin run
				  lambkin schedule --rate "5 minutes"
			`),
		SilenceErrors: true,
		SilenceUsage:  true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return app.prepare(cmd, true)
		},
	}

	rootCmd.PersistentFlags().BoolP("verbose", "v", false, "enable verbose output")
	rootCmd.PersistentFlags().String("config", "", "config file (default is $XDG_CONFIG_HOME/lambkin/config.cue)")

	rootCmd.AddCommand(
		newCreateCommand(app),
		newListPublishedCommand(app),
		newBuildCommand(app),
		newPackageCommand(app),
		newPublishCommand(app),
		newRunCommand(app),
		newUnpublishCommand(app),
		newScheduleCommand(app),
		newUnscheduleCommand(app),
		newConfigCommand(app),
	)

	return rootCmd
}

// prepare runs before every subcommand: it rejects unsupported hosts, loads
// the configuration and installs the logger. When strict is false a broken
// configuration is reported as a warning so `config` subcommands stay usable.
func (a *App) prepare(cmd *cobra.Command, strict bool) error {
	if err := platform.CheckHost(a.goos); err != nil {
		return issue.NewErrorContext().
			WithOperation("start lambkin").
			WithSuggestion("Run lambkin from Linux, macOS or WSL").
			WithIssue(issue.HostNotSupportedId).
			Wrap(err).
			BuildError()
	}

	verbose, _ := cmd.Flags().GetBool("verbose")
	cfgFile, _ := cmd.Flags().GetString("config")
	a.loadOpts = config.LoadOptions{ConfigFilePath: cfgFile}
	a.cfg = nil
	a.verbose = verbose

	cfg, err := a.loadConfig(cmd.Context())
	switch {
	case err != nil && strict:
		return err
	case err != nil:
		fmt.Fprintln(a.stderr, WarningStyle.Render("Warning: ")+formatErrorForDisplay(err, a.verbose))
	case !a.verbose:
		a.verbose = cfg.UI.Verbose
	}

	slog.SetDefault(newLogger(a.stderr, a.verbose))
	if cfg != nil {
		slog.Debug("configuration loaded", "source", cfg.Source)
	}
	return nil
}

// newLogger returns a slog logger backed by charmbracelet/log. Messages go to
// w (stderr in production) so stdout only carries command output.
func newLogger(w io.Writer, verbose bool) *slog.Logger {
	handler := log.NewWithOptions(w, log.Options{
		Prefix: "lambkin",
		Level:  log.InfoLevel,
	})
	if verbose {
		handler.SetLevel(log.DebugLevel)
		handler.SetReportTimestamp(true)
	}
	return slog.New(handler)
}

// getVersionString returns a formatted version string for display.
func getVersionString() string {
	if Version == "dev" {
		return "dev (built from source)"
	}
	return fmt.Sprintf("%s (commit: %s, built: %s)", Version, Commit, BuildDate)
}

// Execute builds the production App and runs the command line. It is called
// by main.main().
func Execute() {
	app, err := NewApp(Dependencies{})
	if err != nil {
		fmt.Fprintln(os.Stderr, ErrorStyle.Render("Error: ")+err.Error())
		os.Exit(1)
	}
	os.Exit(int(run(context.Background(), app, os.Args[1:])))
}

// run executes args and renders any failure to app's stderr, returning the
// process exit code.
func run(ctx context.Context, app *App, args []string) int {
	rootCmd := NewRootCommand(app)
	rootCmd.SetArgs(args)
	rootCmd.SetOut(app.stdout)
	rootCmd.SetErr(app.stderr)

	err := fang.Execute(
		ctx,
		rootCmd,
		fang.WithVersion(getVersionString()),
		fang.WithNotifySignal(os.Interrupt),
		fang.WithErrorHandler(func(io.Writer, fang.Styles, error) {}),
	)
	if err == nil {
		return 0
	}

	var exitErr *ExitError
	if errors.As(err, &exitErr) {
		if exitErr.Err != nil {
			renderServiceError(app.stderr, toServiceError(exitErr.Err, app.verbose))
		}
		return exitStatus(exitErr.Code)
	}
	renderServiceError(app.stderr, toServiceError(err, app.verbose))
	return 1
}

// exitStatus converts code to a process status. Codes the operating system
// would truncate become 1.
func exitStatus(code types.ExitCode) int {
	if err := code.Validate(); err != nil {
		slog.Warn("replacing exit code", "error", err)
		return 1
	}
	return int(code)
}

// formatErrorForDisplay formats an error for user display.
// If the error is an ActionableError, it uses the Format method.
// In verbose mode, shows the full error chain.
func formatErrorForDisplay(err error, verboseMode bool) string {
	var ae *issue.ActionableError
	if errors.As(err, &ae) {
		return ae.Format(verboseMode)
	}
	return err.Error()
}
