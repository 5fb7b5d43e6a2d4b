// Package uv drives the uv binary for project initialization and
// dependency installs.
//
// The Runner interface is the seam between the migration pipeline and the
// external tool: ExecRunner shells out to uv, RecordingRunner captures
// calls for tests. Dependency groups are applied as one batched add per
// group; one invocation per dependency would make large migrations
// unbearably slow.
package uv

import (
	"bytes"
	"context"
	"os/exec"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"golang.org/x/mod/semver"

	"github.com/matzehuels/uvmigrate/pkg/errors"
	"github.com/matzehuels/uvmigrate/pkg/observability"
)

const (
	// MinVersion is the oldest uv release the migration drives correctly.
	MinVersion = "0.5.0"

	// BareVersion is the first release that understands uv init --bare.
	BareVersion = "0.6.0"
)

// InitOptions configure project scaffolding.
type InitOptions struct {
	Package bool   // --package, for packaged project layouts
	Python  string // --python X.Y when the source pinned an interpreter
	Bare    bool   // --bare, skipped on uv older than BareVersion
}

// AddOptions place a batch of specs into a dependency group.
type AddOptions struct {
	Dev   bool
	Group string
}

// Runner abstracts the uv binary.
type Runner interface {
	Init(ctx context.Context, dir string, opts InitOptions) error
	Add(ctx context.Context, dir string, specs []string, opts AddOptions) error
	Version(ctx context.Context) (string, error)
}

// ExecRunner shells out to uv. The binary is resolved once and cached.
type ExecRunner struct {
	logger *log.Logger

	once    sync.Once
	path    string
	lookErr error
}

// NewRunner creates an ExecRunner. A nil logger falls back to
// log.Default().
func NewRunner(logger *log.Logger) *ExecRunner {
	if logger == nil {
		logger = log.Default()
	}
	return &ExecRunner{logger: logger}
}

func (r *ExecRunner) binary() (string, error) {
	r.once.Do(func() {
		r.path, r.lookErr = exec.LookPath("uv")
	})
	if r.lookErr != nil {
		return "", errors.Wrap(errors.ErrCodeTool, r.lookErr,
			"the uv command is not available; install it from https://docs.astral.sh/uv/ and ensure it is on PATH")
	}
	return r.path, nil
}

// Init scaffolds a project with uv init.
func (r *ExecRunner) Init(ctx context.Context, dir string, opts InitOptions) error {
	_, err := r.run(ctx, dir, initArgs(opts)...)
	return err
}

// Add installs one batch of dependency specs into a group.
func (r *ExecRunner) Add(ctx context.Context, dir string, specs []string, opts AddOptions) error {
	if len(specs) == 0 {
		return nil
	}
	_, err := r.run(ctx, dir, addArgs(specs, opts)...)
	return err
}

func initArgs(opts InitOptions) []string {
	args := []string{"init", "--no-pin-python"}
	if opts.Bare {
		args = append(args, "--bare")
	}
	if opts.Package {
		args = append(args, "--package")
	}
	if opts.Python != "" {
		args = append(args, "--python", opts.Python)
	}
	return args
}

func addArgs(specs []string, opts AddOptions) []string {
	args := []string{"add"}
	switch {
	case opts.Dev:
		args = append(args, "--dev")
	case opts.Group != "":
		args = append(args, "--group", opts.Group)
	}
	return append(args, specs...)
}

// Version reports the installed uv release as a bare semantic version.
func (r *ExecRunner) Version(ctx context.Context) (string, error) {
	out, err := r.run(ctx, "", "--version")
	if err != nil {
		return "", err
	}
	return ParseVersion(out)
}

func (r *ExecRunner) run(ctx context.Context, dir string, args ...string) (string, error) {
	bin, err := r.binary()
	if err != nil {
		return "", err
	}

	r.logger.Debug("running uv", "args", strings.Join(args, " "))
	hooks := observability.Tool()
	hooks.OnCommandStart(ctx, args)
	start := time.Now()

	cmd := exec.CommandContext(ctx, bin, args...)
	cmd.Dir = dir
	var out, errBuf bytes.Buffer
	cmd.Stdout = &out
	cmd.Stderr = &errBuf

	err = cmd.Run()
	hooks.OnCommandComplete(ctx, args, time.Since(start), err)
	if err != nil {
		return "", &errors.ToolError{Args: args, Stderr: strings.TrimSpace(errBuf.String()), Err: err}
	}
	return out.String(), nil
}

// ParseVersion extracts the release from uv --version output such as
// "uv 0.6.3 (a1b2c3 2025-01-15)".
func ParseVersion(out string) (string, error) {
	fields := strings.Fields(out)
	if len(fields) < 2 || !semver.IsValid("v"+fields[1]) {
		return "", errors.New(errors.ErrCodeTool, "unexpected uv version output %q", strings.TrimSpace(out))
	}
	return fields[1], nil
}

// CheckVersion enforces the minimum supported uv release and reports
// whether bare init is available.
func CheckVersion(version string) (bareInit bool, err error) {
	if semver.Compare("v"+version, "v"+MinVersion) < 0 {
		return false, errors.New(errors.ErrCodeTool,
			"uv %s is too old, version %s or newer is required; upgrade with `uv self update`", version, MinVersion)
	}
	return semver.Compare("v"+version, "v"+BareVersion) >= 0, nil
}

// Ensure ExecRunner implements Runner.
var _ Runner = (*ExecRunner)(nil)
