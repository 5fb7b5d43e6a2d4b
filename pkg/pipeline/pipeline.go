// Package pipeline drives a complete migration to uv.
//
// The pipeline takes a project that declares its dependencies through a
// legacy Python packaging tool, extracts the declared dependencies, sets
// up a uv project in place, and replays the dependencies through uv add.
// Every file mutation is tracked so a failed run can restore the project
// to its starting state.
//
// # Architecture
//
// A run moves through five stages:
//
//  1. Detect: probe the project directory for a supported source format
//  2. Extract: parse the manifests into a normalized dependency set
//  3. Initialize: park any existing pyproject.toml and run uv init
//  4. Apply: register indexes, replay dependency batches, patch the manifest
//  5. Cleanup: remove scaffold files and commit the change log
//
// A stage error rolls back every tracked change unless restore is
// disabled. Dry runs stop after Extract, before any file is touched.
//
// # Usage
//
// Create a Runner and execute a migration:
//
//	runner := pipeline.NewRunner(nil, logger)
//	result, err := runner.Execute(ctx, pipeline.Options{
//	    Dir:         "/path/to/project",
//	    MergeGroups: true,
//	})
//	if err != nil {
//	    log.Fatal(err)
//	}
//	fmt.Println(result.Format, result.Stats.MainCount)
package pipeline

import (
	"context"
	"os"
	"path/filepath"
	"time"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"

	"github.com/matzehuels/uvmigrate/pkg/deps"
	"github.com/matzehuels/uvmigrate/pkg/deps/conda"
	"github.com/matzehuels/uvmigrate/pkg/deps/pipenv"
	"github.com/matzehuels/uvmigrate/pkg/deps/poetry"
	"github.com/matzehuels/uvmigrate/pkg/deps/requirements"
	"github.com/matzehuels/uvmigrate/pkg/deps/setuppy"
	"github.com/matzehuels/uvmigrate/pkg/errors"
	"github.com/matzehuels/uvmigrate/pkg/uv"
)

// =============================================================================
// Stage Names
// =============================================================================

// Stage names reported through observability hooks.
const (
	StageDetect     = "detect"
	StageExtract    = "extract"
	StageInitialize = "initialize"
	StageApply      = "apply"
	StageCleanup    = "cleanup"
)

// ErrReviewAborted is the error review callbacks return when the user
// cancels the run. Nothing has been written to disk at that point.
var ErrReviewAborted = errors.New(errors.ErrCodeAborted, "migration aborted during review")

// ReviewFunc inspects the extraction after parsing and before any file is
// touched. It may prune ex.Deps in place; returning an error aborts the
// run without a rollback since nothing has been modified yet.
type ReviewFunc func(ctx context.Context, ex *deps.Extraction) error

// =============================================================================
// Options - Migration Configuration
// =============================================================================

// Options contains all configuration for one migration run.
type Options struct {
	// Dir is the project directory to migrate. Empty means the current
	// working directory.
	Dir string

	// MergeGroups folds every named dependency group into dev.
	MergeGroups bool

	// DisableRestore leaves partial state on disk when a run fails
	// instead of rolling tracked changes back.
	DisableRestore bool

	// ImportIndexes are extra package index URLs to register. They take
	// precedence over indexes imported from pip.conf or the legacy
	// manifest.
	ImportIndexes []string

	// ImportGlobalPipConf also registers extra-index-url entries found
	// in the user-level pip configuration.
	ImportGlobalPipConf bool

	// DryRun stops after Extract and reports what a real run would do.
	DryRun bool

	// Runtime options
	Logger *log.Logger
	Runner uv.Runner  // nil means the installed uv binary
	Review ReviewFunc // nil skips the review step

	// validated tracks whether ValidateAndSetDefaults has been called.
	validated bool
}

// WithDefaults returns a copy of the options with zero values replaced
// by their defaults.
func (o Options) WithDefaults() Options {
	if o.Dir == "" {
		o.Dir = "."
	}
	if o.Logger == nil {
		o.Logger = log.Default()
	}
	if o.Runner == nil {
		o.Runner = uv.NewRunner(o.Logger)
	}
	return o
}

// ValidateAndSetDefaults checks required fields and applies defaults.
// This method is idempotent - calling it multiple times has the same
// effect as calling it once.
func (o *Options) ValidateAndSetDefaults() error {
	if o.validated {
		return nil
	}
	*o = o.WithDefaults()

	dir, err := filepath.Abs(o.Dir)
	if err != nil {
		return errors.Wrap(errors.ErrCodeInvalidInput, err, "resolving project directory %q", o.Dir)
	}
	info, err := os.Stat(dir)
	if err != nil {
		return errors.Wrap(errors.ErrCodeInvalidInput, err, "project directory %s", dir)
	}
	if !info.IsDir() {
		return errors.New(errors.ErrCodeInvalidInput, "%s is not a directory", dir)
	}
	o.Dir = dir

	for _, url := range o.ImportIndexes {
		if err := errors.ValidateIndexURL(url); err != nil {
			return err
		}
	}

	o.validated = true
	return nil
}

// =============================================================================
// Result - Migration Outputs
// =============================================================================

// Result contains the outputs of a migration run.
type Result struct {
	// RunID identifies the run in logs and hook events.
	RunID uuid.UUID

	// Format is the name of the detected source format.
	Format string

	// Extraction is the dependency set after review and group merging.
	Extraction *deps.Extraction

	// Stats contains counts and timing information.
	Stats Stats

	// Err is the stage error that failed the run, nil on success.
	Err error

	// RolledBack reports whether tracked changes were restored.
	RolledBack bool

	// RestoreNotes lists problems encountered while restoring files, or
	// a reminder of what was left on disk when restore is disabled.
	RestoreNotes []string
}

// Stats contains migration run statistics.
type Stats struct {
	MainCount      int
	DevCount       int
	GroupCount     int
	IndexCount     int
	GitSourceCount int
	FilesTracked   int

	ExtractTime time.Duration
	InitTime    time.Duration
	ApplyTime   time.Duration
}

// =============================================================================
// Default Parsers
// =============================================================================

// DefaultParsers returns the source parsers in detection precedence
// order: conda, poetry, pipenv, setup.py, requirements files.
func DefaultParsers(logger *log.Logger) []deps.SourceParser {
	return []deps.SourceParser{
		conda.New(logger),
		poetry.New(logger),
		pipenv.New(logger),
		setuppy.New(logger),
		requirements.New(logger),
	}
}
