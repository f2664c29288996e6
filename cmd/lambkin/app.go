// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"context"
	"io"
	"os"
	goruntime "runtime"

	"lambkin-cli/internal/build"
	"lambkin-cli/internal/cloud"
	"lambkin-cli/internal/config"
	"lambkin-cli/internal/issue"
	"lambkin-cli/pkg/runtime"
)

type (
	// App wires CLI services and shared dependencies. It is the composition root for
	// the CLI layer: all Cobra command handlers receive an App reference and reach
	// configuration, AWS and the build tooling through its service interfaces.
	App struct {
		Config  ConfigProvider
		Connect CloudConnector
		Builder BuildService
		stdout  io.Writer
		stderr  io.Writer
		workDir string
		goos    string

		// Per-invocation state, filled in by the root command's pre-run hook.
		loadOpts config.LoadOptions
		cfg      *config.Config
		verbose  bool
	}

	// Dependencies defines the injection points for building an App. Nil fields are
	// replaced with production defaults by NewApp.
	Dependencies struct {
		Config  ConfigProvider
		Connect CloudConnector
		Builder BuildService
		Stdout  io.Writer
		Stderr  io.Writer
		// WorkDir is the directory commands treat as the current function
		// directory. Empty means the process working directory.
		WorkDir string
		// GOOS overrides runtime.GOOS for the host check.
		GOOS string
	}

	// ConfigProvider loads configuration using explicit options.
	ConfigProvider interface {
		Load(ctx context.Context, opts config.LoadOptions) (*config.Config, error)
	}

	// CloudService is the subset of *cloud.Client the commands use.
	CloudService interface {
		ListFunctions(ctx context.Context) ([]string, error)
		Publish(ctx context.Context, in cloud.PublishInput) (*cloud.PublishResult, error)
		Invoke(ctx context.Context, function string, payload []byte) (*cloud.InvokeResult, error)
		Delete(ctx context.Context, function string) error
		Schedule(ctx context.Context, function, expression string) (*cloud.ScheduleResult, error)
		Unschedule(ctx context.Context, function string) error
	}

	// CloudConnector opens a CloudService for the loaded configuration.
	CloudConnector func(ctx context.Context, cfg *config.Config) (CloudService, error)

	// BuildRequest identifies the function a build step runs for.
	BuildRequest struct {
		Dir           string
		DependencyDir string
		Runtime       runtime.Runtime
	}

	// BuildService runs language tooling inside a function directory.
	BuildService interface {
		// Build installs dependencies (python) or runs make (everything else).
		Build(ctx context.Context, req BuildRequest) error
		// CreateVirtualenv creates the dependency directory for a python function.
		CreateVirtualenv(ctx context.Context, req BuildRequest) error
	}

	// runnerBuildService implements BuildService with build.Runner. Tool output
	// goes to stderr so stdout stays machine readable.
	runnerBuildService struct {
		out io.Writer
	}
)

var (
	_ CloudService = (*cloud.Client)(nil)
	_ BuildService = (*runnerBuildService)(nil)
)

// NewApp creates an App with defaults for omitted dependencies.
func NewApp(deps Dependencies) (*App, error) {
	if deps.Stdout == nil {
		deps.Stdout = os.Stdout
	}
	if deps.Stderr == nil {
		deps.Stderr = os.Stderr
	}
	if deps.Config == nil {
		deps.Config = config.NewProvider()
	}
	if deps.Connect == nil {
		deps.Connect = connectAWS
	}
	if deps.Builder == nil {
		deps.Builder = &runnerBuildService{out: deps.Stderr}
	}
	if deps.GOOS == "" {
		deps.GOOS = goruntime.GOOS
	}

	return &App{
		Config:  deps.Config,
		Connect: deps.Connect,
		Builder: deps.Builder,
		stdout:  deps.Stdout,
		stderr:  deps.Stderr,
		workDir: deps.WorkDir,
		goos:    deps.GOOS,
	}, nil
}

// loadConfig loads the configuration once per invocation.
func (a *App) loadConfig(ctx context.Context) (*config.Config, error) {
	if a.cfg != nil {
		return a.cfg, nil
	}
	cfg, err := a.Config.Load(ctx, a.loadOpts)
	if err != nil {
		return nil, err
	}
	a.cfg = cfg
	return cfg, nil
}

// dir returns the directory commands operate in.
func (a *App) dir() (string, error) {
	if a.workDir != "" {
		return a.workDir, nil
	}
	return os.Getwd()
}

// connectCloud loads the configuration and connects to AWS.
func (a *App) connectCloud(ctx context.Context) (CloudService, error) {
	cfg, err := a.loadConfig(ctx)
	if err != nil {
		return nil, err
	}
	return a.Connect(ctx, cfg)
}

// connectAWS is the production CloudConnector.
func connectAWS(ctx context.Context, cfg *config.Config) (CloudService, error) {
	client, err := cloud.Connect(ctx, cloud.Settings{
		Region:         cfg.AWS.Region,
		Profile:        cfg.AWS.Profile,
		EndpointURL:    cfg.AWS.EndpointURL,
		ArtifactBucket: cfg.AWS.ArtifactBucket,
	})
	if err != nil {
		return nil, issue.NewErrorContext().
			WithOperation("connect to AWS").
			WithResource(cfg.AWS.Profile).
			WithSuggestion("Set aws.region in the config file or AWS_REGION in the environment").
			WithSuggestion("Check your credentials with 'aws sts get-caller-identity'").
			WithIssue(issue.AwsCredentialsId).
			Wrap(err).
			BuildError()
	}
	return client, nil
}

func (s *runnerBuildService) Build(ctx context.Context, req BuildRequest) error {
	return build.NewRunner(req.Dir, req.DependencyDir, s.out, s.out).ForLanguage(ctx, req.Runtime)
}

func (s *runnerBuildService) CreateVirtualenv(ctx context.Context, req BuildRequest) error {
	return build.NewRunner(req.Dir, req.DependencyDir, s.out, s.out).CreateVirtualenv(ctx, req.Runtime)
}
