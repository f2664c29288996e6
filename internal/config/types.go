// SPDX-License-Identifier: MPL-2.0

package config

import (
	"errors"
	"fmt"
	"strings"

	"lambkin-cli/pkg/archive"
	"lambkin-cli/pkg/runtime"
)

const (
	// DefaultRole is the IAM role short name assumed by published functions.
	DefaultRole = "lambda_basic_execution"
	// DefaultTimeout is the Lambda default timeout in seconds.
	DefaultTimeout = 3
	// DefaultMemory is the Lambda default memory size in MiB.
	DefaultMemory = 128

	MinTimeout = 1
	MaxTimeout = 900
	MinMemory  = 128
	MaxMemory  = 10240
)

// ErrInvalidConfig is wrapped by InvalidConfigError.
var ErrInvalidConfig = errors.New("invalid config")

type (
	// Config holds the application configuration.
	Config struct {
		AWS      AWSConfig      `json:"aws" mapstructure:"aws"`
		Defaults DefaultsConfig `json:"defaults" mapstructure:"defaults"`
		Package  PackageConfig  `json:"package" mapstructure:"package"`
		UI       UIConfig       `json:"ui" mapstructure:"ui"`

		// Source is the file the configuration was read from; empty when
		// only defaults and environment variables apply.
		Source string `json:"-" mapstructure:"-"`
	}

	// AWSConfig selects the account, region and endpoints for all AWS clients.
	AWSConfig struct {
		// Region overrides the SDK default region chain.
		Region string `json:"region" mapstructure:"region"`
		// Profile selects a shared-config profile.
		Profile string `json:"profile" mapstructure:"profile"`
		// EndpointURL points every client at a single endpoint, e.g. LocalStack.
		EndpointURL string `json:"endpoint_url" mapstructure:"endpoint_url"`
		// ArtifactBucket, when set, stages archives in S3 before deploying.
		ArtifactBucket string `json:"artifact_bucket" mapstructure:"artifact_bucket"`
	}

	// DefaultsConfig holds values used when metadata.json and flags are silent.
	DefaultsConfig struct {
		Runtime string `json:"runtime" mapstructure:"runtime"`
		Role    string `json:"role" mapstructure:"role"`
		Timeout int    `json:"timeout" mapstructure:"timeout"`
		Memory  int    `json:"memory" mapstructure:"memory"`
	}

	// PackageConfig configures archive builds.
	PackageConfig struct {
		// DependencyDir is the virtualenv directory name inside a function.
		DependencyDir string `json:"dependency_dir" mapstructure:"dependency_dir"`
		// TempDir holds default archives; empty means os.TempDir().
		TempDir string `json:"temp_dir" mapstructure:"temp_dir"`
	}

	// UIConfig configures the user interface.
	UIConfig struct {
		Verbose bool `json:"verbose" mapstructure:"verbose"`
	}

	// InvalidConfigError collects field-level validation failures.
	InvalidConfigError struct {
		FieldErrors []error
	}
)

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		Defaults: DefaultsConfig{
			Runtime: string(runtime.DefaultPython),
			Role:    DefaultRole,
			Timeout: DefaultTimeout,
			Memory:  DefaultMemory,
		},
		Package: PackageConfig{
			DependencyDir: archive.DefaultDependencyDir,
		},
	}
}

// Validate checks the values CUE cannot see, namely those set through
// environment variables after the file was validated.
func (c *Config) Validate() error {
	var errs []error
	if _, err := runtime.Normalize(c.Defaults.Runtime); err != nil {
		errs = append(errs, fmt.Errorf("defaults.runtime: %w", err))
	}
	if strings.TrimSpace(c.Defaults.Role) == "" {
		errs = append(errs, errors.New("defaults.role: must not be empty"))
	}
	if c.Defaults.Timeout < MinTimeout || c.Defaults.Timeout > MaxTimeout {
		errs = append(errs, fmt.Errorf("defaults.timeout: %d not in [%d, %d]", c.Defaults.Timeout, MinTimeout, MaxTimeout))
	}
	if c.Defaults.Memory < MinMemory || c.Defaults.Memory > MaxMemory {
		errs = append(errs, fmt.Errorf("defaults.memory: %d not in [%d, %d]", c.Defaults.Memory, MinMemory, MaxMemory))
	}
	if err := c.Layout(nil).Validate(); err != nil {
		errs = append(errs, fmt.Errorf("package.dependency_dir: %w", err))
	}
	if len(errs) > 0 {
		return &InvalidConfigError{FieldErrors: errs}
	}
	return nil
}

// Layout returns the archive layout for this configuration with the given
// per-function exclude patterns.
func (c *Config) Layout(exclude []string) archive.Layout {
	layout := archive.DefaultLayout()
	layout.DependencyDir = c.Package.DependencyDir
	layout.Exclude = exclude
	return layout
}

func (e *InvalidConfigError) Error() string {
	msgs := make([]string, 0, len(e.FieldErrors))
	for _, err := range e.FieldErrors {
		msgs = append(msgs, err.Error())
	}
	return "invalid config: " + strings.Join(msgs, "; ")
}

// Unwrap returns ErrInvalidConfig for errors.Is() compatibility.
func (e *InvalidConfigError) Unwrap() error { return ErrInvalidConfig }
