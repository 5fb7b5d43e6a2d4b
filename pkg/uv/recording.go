package uv

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"
)

// RecordedCall is one Runner invocation captured by RecordingRunner.
type RecordedCall struct {
	Op    string // "init" or "add"
	Dir   string
	Init  InitOptions
	Add   AddOptions
	Specs []string
}

// RecordingRunner is a Runner that records calls in order instead of
// shelling out. Init writes the scaffold files a real uv init would, so
// pipeline code that reads the manifest afterwards keeps working.
// Useful for pipeline tests.
type RecordingRunner struct {
	mu    sync.Mutex
	calls []RecordedCall

	// UvVersion is what Version reports; empty means BareVersion.
	UvVersion string
	// InitErr and AddErr, when set, fail the corresponding calls.
	InitErr error
	AddErr  error
}

// Calls returns a copy of the recorded invocations.
func (r *RecordingRunner) Calls() []RecordedCall {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]RecordedCall(nil), r.calls...)
}

// Init records the call and scaffolds a minimal project: pyproject.toml
// always, main.py unless a bare init was requested.
func (r *RecordingRunner) Init(ctx context.Context, dir string, opts InitOptions) error {
	r.mu.Lock()
	r.calls = append(r.calls, RecordedCall{Op: "init", Dir: dir, Init: opts})
	r.mu.Unlock()
	if r.InitErr != nil {
		return r.InitErr
	}

	manifest := fmt.Sprintf("[project]\nname = %q\nversion = \"0.1.0\"\nrequires-python = \">=3.11\"\ndependencies = []\n",
		filepath.Base(dir))
	if err := os.WriteFile(filepath.Join(dir, "pyproject.toml"), []byte(manifest), 0o644); err != nil {
		return err
	}
	if opts.Bare {
		return nil
	}
	script := "def main() -> None:\n    print(\"Hello from uv\")\n"
	return os.WriteFile(filepath.Join(dir, "main.py"), []byte(script), 0o644)
}

// Add records the call with a copy of the specs.
func (r *RecordingRunner) Add(ctx context.Context, dir string, specs []string, opts AddOptions) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls = append(r.calls, RecordedCall{Op: "add", Dir: dir, Add: opts, Specs: append([]string(nil), specs...)})
	return r.AddErr
}

// Version reports the configured version.
func (r *RecordingRunner) Version(ctx context.Context) (string, error) {
	if r.UvVersion == "" {
		return BareVersion, nil
	}
	return r.UvVersion, nil
}

// Ensure RecordingRunner implements Runner.
var _ Runner = (*RecordingRunner)(nil)
