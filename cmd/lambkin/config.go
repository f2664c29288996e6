// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"context"
	"fmt"
	"strconv"

	"lambkin-cli/internal/config"

	"github.com/MakeNowJust/heredoc/v2"
	"github.com/spf13/cobra"
)

// newConfigCommand creates the `lambkin config` command tree. A broken
// configuration file does not prevent `config path` or `config init`.
func newConfigCommand(app *App) *cobra.Command {
	cfgCmd := &cobra.Command{
		Use:   "config",
		Short: "Manage lambkin configuration",
		Long: heredoc.Doc(`
			Manage lambkin configuration.

			Configuration is read from --config, then
			$XDG_CONFIG_HOME/lambkin/config.cue, then ./config.cue.
			LAMBKIN_* environment variables (LAMBKIN_AWS_REGION,
			LAMBKIN_DEFAULTS_TIMEOUT, ...) override file values.
		`),
		Args: cobra.NoArgs,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return app.prepare(cmd, false)
		},
		RunE: func(cmd *cobra.Command, _ []string) error {
			return cmd.Help()
		},
	}

	cfgCmd.AddCommand(&cobra.Command{
		Use:   "show",
		Short: "Show current configuration",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return showConfig(cmd.Context(), app)
		},
	})

	var force bool
	initCmd := &cobra.Command{
		Use:   "init",
		Short: "Create default configuration file",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return initConfig(app, force)
		},
	}
	initCmd.Flags().BoolVar(&force, "force", false, "overwrite an existing configuration file")
	cfgCmd.AddCommand(initCmd)

	cfgCmd.AddCommand(&cobra.Command{
		Use:   "path",
		Short: "Show configuration file path",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			path, err := config.ConfigPath("")
			if err != nil {
				return err
			}
			fmt.Fprintln(app.stdout, path)
			return nil
		},
	})

	cfgCmd.AddCommand(&cobra.Command{
		Use:   "dump",
		Short: "Output the effective configuration as CUE",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := app.loadConfig(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Fprint(app.stdout, config.GenerateCUE(cfg))
			return nil
		},
	})

	return cfgCmd
}

func showConfig(ctx context.Context, app *App) error {
	cfg, err := app.loadConfig(ctx)
	if err != nil {
		return err
	}

	keyStyle := CmdStyle
	valueStyle := SuccessStyle
	out := app.stdout

	fmt.Fprintln(out, TitleStyle.Render("Current Configuration"))
	fmt.Fprintln(out)

	if cfg.Source != "" {
		fmt.Fprintf(out, "%s: %s\n", keyStyle.Render("Config file"), cfg.Source)
	} else {
		fmt.Fprintf(out, "%s: %s\n", keyStyle.Render("Config file"), SubtitleStyle.Render("(using defaults)"))
	}

	value := func(v string) string {
		if v == "" {
			return SubtitleStyle.Render("(not set)")
		}
		return valueStyle.Render(v)
	}
	sections := []struct {
		name   string
		fields [][2]string
	}{
		{name: "aws", fields: [][2]string{
			{"region", cfg.AWS.Region},
			{"profile", cfg.AWS.Profile},
			{"endpoint_url", cfg.AWS.EndpointURL},
			{"artifact_bucket", cfg.AWS.ArtifactBucket},
		}},
		{name: "defaults", fields: [][2]string{
			{"runtime", cfg.Defaults.Runtime},
			{"role", cfg.Defaults.Role},
			{"timeout", strconv.Itoa(cfg.Defaults.Timeout)},
			{"memory", strconv.Itoa(cfg.Defaults.Memory)},
		}},
		{name: "package", fields: [][2]string{
			{"dependency_dir", cfg.Package.DependencyDir},
			{"temp_dir", cfg.Package.TempDir},
		}},
		{name: "ui", fields: [][2]string{
			{"verbose", strconv.FormatBool(cfg.UI.Verbose)},
		}},
	}
	for _, section := range sections {
		fmt.Fprintln(out)
		fmt.Fprintf(out, "%s:\n", keyStyle.Render(section.name))
		for _, f := range section.fields {
			fmt.Fprintf(out, "  %s: %s\n", f[0], value(f[1]))
		}
	}
	return nil
}

func initConfig(app *App, force bool) error {
	path, created, err := config.CreateDefaultConfig("", force)
	if err != nil {
		return fmt.Errorf("failed to create config: %w", err)
	}
	if !created {
		fmt.Fprintf(app.stderr, "%s %s already exists (use --force to overwrite)\n", WarningStyle.Render("!"), path)
		return nil
	}
	fmt.Fprintf(app.stderr, "%s Created default configuration at %s\n", SuccessStyle.Render("✓"), path)
	return nil
}
