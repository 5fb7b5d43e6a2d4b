package pipeline

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"

	"github.com/matzehuels/uvmigrate/pkg/deps"
	"github.com/matzehuels/uvmigrate/pkg/errors"
	"github.com/matzehuels/uvmigrate/pkg/observability"
	"github.com/matzehuels/uvmigrate/pkg/pip"
	"github.com/matzehuels/uvmigrate/pkg/pyproject"
	"github.com/matzehuels/uvmigrate/pkg/tracker"
	"github.com/matzehuels/uvmigrate/pkg/uv"
)

// scaffoldFiles are the files uv init may drop into the project root.
// They are snapshotted around init so only the files init actually
// created get tracked and cleaned up.
var scaffoldFiles = []string{"hello.py", "main.py", "README.md"}

// Runner executes migrations. It is stateless except for the parser set
// and logger - multiple goroutines can safely share one Runner with
// different options.
type Runner struct {
	Parsers []deps.SourceParser
	Logger  *log.Logger
}

// NewRunner creates a runner with the given parsers.
// If parsers is empty, DefaultParsers is used.
// If logger is nil, log.Default() is used.
func NewRunner(parsers []deps.SourceParser, logger *log.Logger) *Runner {
	if logger == nil {
		logger = log.Default()
	}
	if len(parsers) == 0 {
		parsers = DefaultParsers(logger)
	}
	return &Runner{
		Parsers: parsers,
		Logger:  logger,
	}
}

// Execute runs the complete detect → extract → initialize → apply →
// cleanup pipeline. A non-nil Result is returned alongside any stage
// error so callers can inspect rollback state.
func (r *Runner) Execute(ctx context.Context, opts Options) (*Result, error) {
	r.applyLogger(&opts)
	if err := opts.ValidateAndSetDefaults(); err != nil {
		return nil, err
	}

	start := time.Now()
	result := &Result{RunID: uuid.New()}
	tr := tracker.New(opts.DisableRestore)
	manifest := filepath.Join(opts.Dir, pyproject.Filename)
	hadManifest := deps.FileExists(manifest)

	opts.Logger.Info("starting migration", "run_id", result.RunID, "dir", opts.Dir)

	// Stage 1: Detect
	var parser deps.SourceParser
	if _, err := r.runStage(ctx, StageDetect, func() error {
		var err error
		parser, err = deps.Detect(opts.Dir, r.Parsers...)
		return err
	}); err != nil {
		return r.fail(ctx, result, tr, &opts, hadManifest, err)
	}
	result.Format = parser.Name()
	opts.Logger.Info("detected source format", "format", result.Format)

	// Stage 2: Extract
	var ex *deps.Extraction
	extractTime, err := r.runStage(ctx, StageExtract, func() error {
		var err error
		ex, err = parser.Parse(ctx, opts.Dir)
		return err
	})
	if err != nil {
		return r.fail(ctx, result, tr, &opts, hadManifest, err)
	}
	result.Stats.ExtractTime = extractTime
	observability.Migration().OnDependenciesExtracted(ctx, result.Format, len(ex.Deps))

	// Review runs before any file is touched, so an abort needs no
	// rollback.
	if opts.Review != nil {
		if err := opts.Review(ctx, ex); err != nil {
			opts.Logger.Info("migration aborted during review")
			result.Err = err
			return result, err
		}
	}

	if opts.MergeGroups {
		ex.Deps = deps.MergeGroups(ex.Deps)
	}
	result.Extraction = ex
	result.Stats.MainCount, result.Stats.DevCount, result.Stats.GroupCount = ex.Counts()
	opts.Logger.Info("extracted dependencies",
		"format", result.Format,
		"main", result.Stats.MainCount,
		"dev", result.Stats.DevCount,
		"group", result.Stats.GroupCount,
		"duration", result.Stats.ExtractTime)

	if opts.DryRun {
		opts.Logger.Info("dry run complete, no files were modified")
		return result, nil
	}

	// Stage 3: Initialize
	var scaffold []string
	initTime, err := r.runStage(ctx, StageInitialize, func() error {
		var err error
		scaffold, err = r.initialize(ctx, &opts, result.Format, ex, tr)
		return err
	})
	if err != nil {
		return r.fail(ctx, result, tr, &opts, hadManifest, err)
	}
	result.Stats.InitTime = initTime
	opts.Logger.Info("initialized uv project", "duration", result.Stats.InitTime)

	// Stage 4: Apply
	applyTime, err := r.runStage(ctx, StageApply, func() error {
		return r.apply(ctx, &opts, ex, tr, &result.Stats)
	})
	if err != nil {
		return r.fail(ctx, result, tr, &opts, hadManifest, err)
	}
	result.Stats.ApplyTime = applyTime
	opts.Logger.Info("applied dependencies",
		"indexes", result.Stats.IndexCount,
		"git_sources", result.Stats.GitSourceCount,
		"duration", result.Stats.ApplyTime)

	// Stage 5: Cleanup
	result.Stats.FilesTracked = tr.Tracked()
	if _, err := r.runStage(ctx, StageCleanup, func() error {
		return r.cleanup(&opts, scaffold, tr)
	}); err != nil {
		return r.fail(ctx, result, tr, &opts, hadManifest, err)
	}

	opts.Logger.Info("migration complete",
		"run_id", result.RunID,
		"files_tracked", result.Stats.FilesTracked,
		"duration", time.Since(start))
	return result, nil
}

// runStage brackets fn with observability hooks and times it.
func (r *Runner) runStage(ctx context.Context, stage string, fn func() error) (time.Duration, error) {
	hooks := observability.Migration()
	hooks.OnStageStart(ctx, stage)
	start := time.Now()
	err := fn()
	elapsed := time.Since(start)
	hooks.OnStageComplete(ctx, stage, elapsed, err)
	return elapsed, err
}

// initialize parks an existing manifest, verifies the uv toolchain and
// scaffolds the new project. It returns the scaffold files init created.
func (r *Runner) initialize(ctx context.Context, opts *Options, format string, ex *deps.Extraction, tr *tracker.Tracker) ([]string, error) {
	version, err := opts.Runner.Version(ctx)
	if err != nil {
		return nil, err
	}
	bare, err := uv.CheckVersion(version)
	if err != nil {
		return nil, err
	}
	opts.Logger.Debug("uv toolchain", "version", version, "bare_init", bare)

	manifest := filepath.Join(opts.Dir, pyproject.Filename)
	if deps.FileExists(manifest) {
		backup := filepath.Join(opts.Dir, pyproject.BackupFilename)
		if err := tr.TrackRename(manifest, backup); err != nil {
			return nil, err
		}
		if err := os.Rename(manifest, backup); err != nil {
			return nil, errors.Wrap(errors.ErrCodeFile, err, "parking %s", manifest)
		}
		opts.Logger.Debug("parked existing manifest", "backup", backup)
	}

	before := make(map[string]bool, len(scaffoldFiles))
	for _, name := range scaffoldFiles {
		before[name] = deps.FileExists(filepath.Join(opts.Dir, name))
	}

	initOpts := uv.InitOptions{
		Package: format == "setuppy" || ex.Meta.Packaged(),
		Python:  ex.PythonVersion,
		Bare:    bare,
	}
	if err := opts.Runner.Init(ctx, opts.Dir, initOpts); err != nil {
		return nil, err
	}
	if err := tr.TrackCreate(manifest); err != nil {
		return nil, err
	}

	var scaffold []string
	for _, name := range scaffoldFiles {
		path := filepath.Join(opts.Dir, name)
		if !before[name] && deps.FileExists(path) {
			if err := tr.TrackCreate(path); err != nil {
				return nil, err
			}
			scaffold = append(scaffold, path)
		}
	}
	return scaffold, nil
}

// apply registers indexes, replays the dependency batches through uv add
// and patches the manifest with everything uv cannot express on the
// command line. Indexes go in first so the adds resolve against them.
func (r *Runner) apply(ctx context.Context, opts *Options, ex *deps.Extraction, tr *tracker.Tracker, stats *Stats) error {
	manifest := filepath.Join(opts.Dir, pyproject.Filename)

	if indexes := r.collectIndexes(opts, ex); len(indexes) > 0 {
		doc, err := pyproject.Load(manifest, opts.Logger)
		if err != nil {
			return err
		}
		doc.WriteIndexes(indexes)
		if err := doc.Save(tr); err != nil {
			return err
		}
		stats.IndexCount = len(indexes)
		opts.Logger.Info("registered package indexes", "count", len(indexes))
	}

	for _, batch := range deps.Batches(ex.Deps) {
		addOpts := uv.AddOptions{Dev: batch.Kind == deps.KindDev, Group: batch.Group}
		if err := opts.Runner.Add(ctx, opts.Dir, uv.RenderSpecs(batch.Deps), addOpts); err != nil {
			return err
		}
		kv := []any{"kind", batch.Kind.String(), "count", len(batch.Deps)}
		if batch.Group != "" {
			kv = append(kv, "group", batch.Group)
		}
		opts.Logger.Info("added dependencies", kv...)
	}

	return r.patchManifest(opts, ex, tr, stats)
}

// patchManifest carries legacy metadata, tool sections, scripts, git
// sources and the build system over into the manifest uv generated.
func (r *Runner) patchManifest(opts *Options, ex *deps.Extraction, tr *tracker.Tracker, stats *Stats) error {
	var gitDeps []deps.Dependency
	for _, d := range ex.Deps {
		if d.Source != nil {
			gitDeps = append(gitDeps, d)
		}
	}
	if ex.Meta == nil && len(gitDeps) == 0 {
		return nil
	}

	doc, err := pyproject.Load(filepath.Join(opts.Dir, pyproject.Filename), opts.Logger)
	if err != nil {
		return err
	}

	if ex.Meta != nil {
		doc.ApplyMetadata(ex.Meta)
		doc.SetScripts(ex.Meta.Scripts)
		doc.SetBuildSystem(ex.Meta)

		backup := filepath.Join(opts.Dir, pyproject.BackupFilename)
		if deps.FileExists(backup) {
			old, err := pyproject.Load(backup, opts.Logger)
			if err != nil {
				opts.Logger.Warn("cannot reread parked manifest", "path", backup, "error", err)
			} else {
				doc.CopyToolSections(old)
			}
		}
	}

	if len(gitDeps) > 0 {
		doc.WriteGitSources(gitDeps)
		stats.GitSourceCount = len(gitDeps)
	}

	return doc.Save(tr)
}

// collectIndexes merges explicitly imported index URLs, pip configuration
// entries and the legacy manifest's sources. A broken pip.conf is
// reported but never fails the run.
func (r *Runner) collectIndexes(opts *Options, ex *deps.Extraction) []deps.IndexSource {
	var fromPip []string
	if opts.ImportGlobalPipConf {
		urls, err := pip.GlobalExtraIndexes()
		if err != nil {
			opts.Logger.Warn("could not read pip configuration", "error", err)
		} else {
			fromPip = urls
		}
	}
	var legacy []deps.IndexSource
	if ex.Meta != nil {
		legacy = ex.Meta.Sources
	}
	return pyproject.MergeIndexes(opts.ImportIndexes, fromPip, legacy)
}

// cleanup removes the entry scripts uv init scaffolded and commits the
// change log. README.md stays; removal problems are logged, not fatal.
func (r *Runner) cleanup(opts *Options, scaffold []string, tr *tracker.Tracker) error {
	for _, path := range scaffold {
		base := filepath.Base(path)
		if base != "hello.py" && base != "main.py" {
			continue
		}
		if err := os.Remove(path); err != nil {
			if !os.IsNotExist(err) {
				opts.Logger.Warn("could not remove scaffold file", "path", path, "error", err)
			}
			continue
		}
		opts.Logger.Debug("removed scaffold file", "path", path)
	}
	tr.Commit()
	return nil
}

// fail records the stage error and rolls tracked changes back unless
// restore is disabled.
func (r *Runner) fail(ctx context.Context, result *Result, tr *tracker.Tracker, opts *Options, hadManifest bool, stageErr error) (*Result, error) {
	result.Err = stageErr
	opts.Logger.Error("migration failed", "run_id", result.RunID, "error", stageErr)

	if opts.DisableRestore {
		if tracked := tr.Tracked(); tracked > 0 {
			note := fmt.Sprintf("restore disabled: %d tracked changes left on disk", tracked)
			result.RestoreNotes = append(result.RestoreNotes, note)
			opts.Logger.Warn(note)
		}
		return result, stageErr
	}
	tracked := tr.Tracked()
	if tracked == 0 {
		return result, stageErr
	}

	failures := tr.Rollback(ctx)
	result.RolledBack = true
	observability.Migration().OnRollback(ctx, tracked-len(failures), len(failures))
	for _, f := range failures {
		result.RestoreNotes = append(result.RestoreNotes, f.Error())
	}
	if hadManifest && !deps.FileExists(filepath.Join(opts.Dir, pyproject.Filename)) {
		result.RestoreNotes = append(result.RestoreNotes,
			fmt.Sprintf("%s was not restored; check %s", pyproject.Filename, pyproject.BackupFilename))
	}
	opts.Logger.Warn("rolled back tracked changes",
		"restored", tracked-len(failures),
		"failures", len(failures))
	return result, stageErr
}

// applyLogger sets the runner's logger on options if not already set.
func (r *Runner) applyLogger(opts *Options) {
	if opts.Logger == nil {
		opts.Logger = r.Logger
	}
}
