// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"bytes"
	"context"
	"path/filepath"
	"testing"

	"lambkin-cli/internal/cloud"
	"lambkin-cli/internal/config"
	"lambkin-cli/internal/testutil"
	"lambkin-cli/pkg/metadata"
	"lambkin-cli/pkg/platform"
)

type (
	fakeConfig struct {
		cfg   *config.Config
		err   error
		loads []config.LoadOptions
	}

	fakeCloud struct {
		functions    []string
		publishes    []cloud.PublishInput
		created      bool
		invokeResult cloud.InvokeResult
		invokes      []string
		payloads     [][]byte
		deleted      []string
		schedules    map[string]string
		unscheduled  []string
		err          error
	}

	fakeBuilder struct {
		builds []BuildRequest
		venvs  []BuildRequest
		err    error
	}

	// harness runs the command line against fakes in a temporary function
	// directory.
	harness struct {
		app      *App
		config   *fakeConfig
		cloud    *fakeCloud
		builder  *fakeBuilder
		stdout   *bytes.Buffer
		stderr   *bytes.Buffer
		dir      string
		connects int
	}
)

func (f *fakeConfig) Load(_ context.Context, opts config.LoadOptions) (*config.Config, error) {
	f.loads = append(f.loads, opts)
	if f.err != nil {
		return nil, f.err
	}
	return f.cfg, nil
}

func (f *fakeCloud) ListFunctions(context.Context) ([]string, error) {
	return f.functions, f.err
}

func (f *fakeCloud) Publish(_ context.Context, in cloud.PublishInput) (*cloud.PublishResult, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.publishes = append(f.publishes, in)
	return &cloud.PublishResult{
		Created: f.created,
		Function: cloud.FunctionInfo{
			FunctionName: in.Function,
			Description:  in.Description,
			Runtime:      in.Runtime,
			Timeout:      in.Timeout,
			MemorySize:   in.Memory,
			Handler:      in.Function + ".handler",
		},
	}, nil
}

func (f *fakeCloud) Invoke(_ context.Context, function string, payload []byte) (*cloud.InvokeResult, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.invokes = append(f.invokes, function)
	f.payloads = append(f.payloads, payload)
	result := f.invokeResult
	return &result, nil
}

func (f *fakeCloud) Delete(_ context.Context, function string) error {
	if f.err != nil {
		return f.err
	}
	f.deleted = append(f.deleted, function)
	return nil
}

func (f *fakeCloud) Schedule(_ context.Context, function, expression string) (*cloud.ScheduleResult, error) {
	if f.err != nil {
		return nil, f.err
	}
	if f.schedules == nil {
		f.schedules = make(map[string]string)
	}
	f.schedules[function] = expression
	return &cloud.ScheduleResult{
		RuleName:     cloud.RuleName(function),
		ScheduleExpr: expression,
	}, nil
}

func (f *fakeCloud) Unschedule(_ context.Context, function string) error {
	if f.err != nil {
		return f.err
	}
	f.unscheduled = append(f.unscheduled, function)
	return nil
}

func (b *fakeBuilder) Build(_ context.Context, req BuildRequest) error {
	b.builds = append(b.builds, req)
	return b.err
}

func (b *fakeBuilder) CreateVirtualenv(_ context.Context, req BuildRequest) error {
	b.venvs = append(b.venvs, req)
	return b.err
}

func newHarness(t *testing.T) *harness {
	t.Helper()

	cfg := config.DefaultConfig()
	cfg.Package.TempDir = t.TempDir()

	h := &harness{
		config:  &fakeConfig{cfg: cfg},
		cloud:   &fakeCloud{},
		builder: &fakeBuilder{},
		stdout:  &bytes.Buffer{},
		stderr:  &bytes.Buffer{},
		dir:     t.TempDir(),
	}
	app, err := NewApp(Dependencies{
		Config: h.config,
		Connect: func(context.Context, *config.Config) (CloudService, error) {
			h.connects++
			return h.cloud, nil
		},
		Builder: h.builder,
		Stdout:  h.stdout,
		Stderr:  h.stderr,
		WorkDir: h.dir,
		GOOS:    platform.Linux,
	})
	if err != nil {
		t.Fatalf("NewApp() error = %v", err)
	}
	h.app = app
	return h
}

// run executes the command line and returns the exit code.
func (h *harness) run(args ...string) int {
	h.stdout.Reset()
	h.stderr.Reset()
	return run(context.Background(), h.app, args)
}

// mustRun fails the test unless args exit 0.
func (h *harness) mustRun(t *testing.T, args ...string) {
	t.Helper()
	if code := h.run(args...); code != 0 {
		t.Fatalf("lambkin %v exited %d\nstdout:\n%s\nstderr:\n%s", args, code, h.stdout, h.stderr)
	}
}

// writeFunction makes h.dir a python function directory named "hello".
func (h *harness) writeFunction(t *testing.T, mutate func(*metadata.Metadata)) *metadata.Metadata {
	t.Helper()
	meta := &metadata.Metadata{
		Function: "hello",
		Runtime:  "python3.12",
		Language: "python",
	}
	if mutate != nil {
		mutate(meta)
	}
	if err := metadata.NewStore(h.dir).Write(meta); err != nil {
		t.Fatalf("Write() error = %v", err)
	}
	testutil.MustWriteFile(t, filepath.Join(h.dir, "hello.py"), "def handler(event, context):\n    return 'hi'\n")
	return meta
}

func (h *harness) readMetadata(t *testing.T) *metadata.Metadata {
	t.Helper()
	meta, err := metadata.NewStore(h.dir).Read()
	if err != nil {
		t.Fatalf("Read() error = %v", err)
	}
	return meta
}
