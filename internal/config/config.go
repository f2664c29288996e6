// SPDX-License-Identifier: MPL-2.0

package config

import (
	"context"
	_ "embed"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"lambkin-cli/internal/cueutil"
	"lambkin-cli/internal/issue"

	"github.com/adrg/xdg"
	"github.com/spf13/viper"
)

const (
	// AppName is the application name.
	AppName = "lambkin"
	// ConfigFileName is the name of the config file (without extension).
	ConfigFileName = "config"
	// ConfigFileExt is the config file extension.
	ConfigFileExt = "cue"
	// EnvPrefix prefixes environment overrides (LAMBKIN_AWS_REGION).
	EnvPrefix = "LAMBKIN"
)

//go:embed config_schema.cue
var configSchema []byte

// ConfigDir returns $XDG_CONFIG_HOME/lambkin.
//
//nolint:revive // ConfigDir is more descriptive than Dir for external callers
func ConfigDir() (string, error) {
	if configDirOverride != "" {
		return configDirOverride, nil
	}
	if xdg.ConfigHome == "" {
		return "", fmt.Errorf("cannot determine config home directory")
	}
	return filepath.Join(xdg.ConfigHome, AppName), nil
}

// ConfigPath returns the path of the user config file inside dir, or inside
// ConfigDir() when dir is empty.
func ConfigPath(dir string) (string, error) {
	cfgDir, err := configDirWithOverride(dir)
	if err != nil {
		return "", err
	}
	return filepath.Join(cfgDir, ConfigFileName+"."+ConfigFileExt), nil
}

// loadWithOptions performs option-driven config loading.
func loadWithOptions(ctx context.Context, opts LoadOptions) (*Config, error) {
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("load config canceled: %w", ctx.Err())
	default:
	}

	v := viper.New()
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	defaults := DefaultConfig()
	v.SetDefault("aws.region", defaults.AWS.Region)
	v.SetDefault("aws.profile", defaults.AWS.Profile)
	v.SetDefault("aws.endpoint_url", defaults.AWS.EndpointURL)
	v.SetDefault("aws.artifact_bucket", defaults.AWS.ArtifactBucket)
	v.SetDefault("defaults.runtime", defaults.Defaults.Runtime)
	v.SetDefault("defaults.role", defaults.Defaults.Role)
	v.SetDefault("defaults.timeout", defaults.Defaults.Timeout)
	v.SetDefault("defaults.memory", defaults.Defaults.Memory)
	v.SetDefault("package.dependency_dir", defaults.Package.DependencyDir)
	v.SetDefault("package.temp_dir", defaults.Package.TempDir)
	v.SetDefault("ui.verbose", defaults.UI.Verbose)

	source, err := resolveSource(opts)
	if err != nil {
		return nil, err
	}
	if source != "" {
		if err := loadCUEIntoViper(v, source); err != nil {
			return nil, issue.NewErrorContext().
				WithOperation("load configuration").
				WithResource(source).
				WithSuggestion("Check that the file contains valid CUE syntax").
				WithSuggestion("Run 'lambkin config dump' to see the expected keys").
				WithIssue(issue.ConfigLoadFailedId).
				Wrap(err).
				BuildError()
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	cfg.Source = source

	if err := cfg.Validate(); err != nil {
		return nil, issue.NewErrorContext().
			WithOperation("validate configuration").
			WithResource(source).
			WithSuggestion("Check LAMBKIN_* environment variables as well as the config file").
			WithIssue(issue.ConfigLoadFailedId).
			Wrap(err).
			BuildError()
	}
	return &cfg, nil
}

// resolveSource picks the config file to read: an explicit path (which must
// exist), the user config file, then ./config.cue. An empty result means
// defaults only.
func resolveSource(opts LoadOptions) (string, error) {
	if opts.ConfigFilePath != "" {
		if !fileExists(opts.ConfigFilePath) {
			return "", issue.NewErrorContext().
				WithOperation("load configuration").
				WithResource(opts.ConfigFilePath).
				WithSuggestion("Verify the file path is correct").
				WithSuggestion("Run 'lambkin config init' to create a default config").
				WithIssue(issue.ConfigLoadFailedId).
				Wrap(fmt.Errorf("config file not found: %s", opts.ConfigFilePath)).
				BuildError()
		}
		return opts.ConfigFilePath, nil
	}

	cuePath, err := ConfigPath(opts.ConfigDirPath)
	if err != nil {
		return "", err
	}
	if fileExists(cuePath) {
		return cuePath, nil
	}
	if local := ConfigFileName + "." + ConfigFileExt; fileExists(local) {
		return local, nil
	}
	return "", nil
}

func configDirWithOverride(configDirPath string) (string, error) {
	if configDirPath != "" {
		return configDirPath, nil
	}
	return ConfigDir()
}

// loadCUEIntoViper validates the file at path against #Config and merges it
// into v. Optional fields stay unset, so concreteness is not required.
func loadCUEIntoViper(v *viper.Viper, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}

	configMap, err := cueutil.DecodeMap(configSchema, data, "#Config",
		cueutil.WithFilename(path), cueutil.WithConcrete(false))
	if err != nil {
		return err
	}

	if err := v.MergeConfigMap(configMap); err != nil {
		return fmt.Errorf("failed to merge config: %w", err)
	}
	return nil
}

func fileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}

// CreateDefaultConfig writes the default config file into dir (ConfigDir()
// when empty) and returns its path. An existing file is kept unless force is set.
func CreateDefaultConfig(dir string, force bool) (path string, created bool, err error) {
	path, err = ConfigPath(dir)
	if err != nil {
		return "", false, err
	}
	if !force && fileExists(path) {
		return path, false, nil
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return "", false, fmt.Errorf("failed to create config directory: %w", err)
	}
	if err := os.WriteFile(path, []byte(GenerateCUE(DefaultConfig())), 0o644); err != nil {
		return "", false, fmt.Errorf("failed to write config file: %w", err)
	}
	return path, true, nil
}

// GenerateCUE renders cfg as a config file accepted by #Config. Empty
// strings are emitted as comments so the SDK defaults stay in effect.
func GenerateCUE(cfg *Config) string {
	var sb strings.Builder

	sb.WriteString("// lambkin configuration file\n")
	sb.WriteString("// Environment variables (LAMBKIN_AWS_REGION, ...) override these values.\n")

	sb.WriteString("\naws: {\n")
	writeOptionalString(&sb, "region", cfg.AWS.Region)
	writeOptionalString(&sb, "profile", cfg.AWS.Profile)
	writeOptionalString(&sb, "endpoint_url", cfg.AWS.EndpointURL)
	writeOptionalString(&sb, "artifact_bucket", cfg.AWS.ArtifactBucket)
	sb.WriteString("}\n")

	sb.WriteString("\ndefaults: {\n")
	fmt.Fprintf(&sb, "\truntime: %q\n", cfg.Defaults.Runtime)
	fmt.Fprintf(&sb, "\trole:    %q\n", cfg.Defaults.Role)
	fmt.Fprintf(&sb, "\ttimeout: %d\n", cfg.Defaults.Timeout)
	fmt.Fprintf(&sb, "\tmemory:  %d\n", cfg.Defaults.Memory)
	sb.WriteString("}\n")

	sb.WriteString("\npackage: {\n")
	fmt.Fprintf(&sb, "\tdependency_dir: %q\n", cfg.Package.DependencyDir)
	writeOptionalString(&sb, "temp_dir", cfg.Package.TempDir)
	sb.WriteString("}\n")

	sb.WriteString("\nui: {\n")
	fmt.Fprintf(&sb, "\tverbose: %v\n", cfg.UI.Verbose)
	sb.WriteString("}\n")

	return sb.String()
}

func writeOptionalString(sb *strings.Builder, key, value string) {
	if value == "" {
		fmt.Fprintf(sb, "\t// %s: \"\"\n", key)
		return
	}
	fmt.Fprintf(sb, "\t%s: %q\n", key, value)
}
