// Package pkg provides the core libraries for uvmigrate.
//
// # Overview
//
// uvmigrate converts Python projects from legacy dependency managers to uv.
// It reads the project's declared dependencies, replays them through uv so
// the lock file resolves from scratch, and carries metadata, scripts, tool
// sections, and package indexes over to the new pyproject.toml. The pkg
// directory is organized into four main areas:
//
//  1. [deps] - Source format detection and parsing (poetry, pipenv,
//     requirements, setup.py, conda)
//  2. [uv] - Driving the uv binary (version gate, init, add, spec rendering)
//  3. [pyproject] - TOML surgery on the generated pyproject.toml
//  4. [pipeline] - Orchestration (detect → extract → initialize → apply →
//     cleanup) with rollback on failure
//
// # Architecture
//
// The typical data flow through uvmigrate:
//
//	Legacy manifest (pyproject.toml, Pipfile, requirements.txt, ...)
//	         ↓
//	    [deps] package (detect format, extract dependencies)
//	         ↓
//	    [uv] package (uv init, uv add per batch)
//	         ↓
//	    [pyproject] package (metadata, scripts, indexes, git sources)
//	         ↓
//	    Migrated project (pyproject.toml + uv.lock)
//
// Every file the pipeline touches is recorded by [tracker] so a failed run
// restores the project byte for byte.
//
// # Quick Start
//
// Run a complete migration:
//
//	import (
//	    "context"
//	    "github.com/matzehuels/uvmigrate/pkg/pipeline"
//	)
//
//	runner := pipeline.NewRunner(nil, logger)
//	result, err := runner.Execute(context.Background(), pipeline.Options{
//	    Dir: "./legacy-project",
//	})
//	if err != nil {
//	    // tracked files have already been restored
//	}
//	fmt.Println(result.Format, result.Stats.MainCount)
//
// # Main Packages
//
// ## Extraction
//
// [deps] - Normalized dependency model plus one parser per legacy format.
// Detection probes cheaply in precedence order (conda, poetry, pipenv,
// setup.py, requirements); parsing yields a format-independent extraction.
//
// [constraint] - Version constraint translation from poetry's caret/tilde
// operators and pipenv specifiers to PEP 440.
//
// ## Migration
//
// [uv] - Runner interface over the uv binary: version checking, project
// initialization, batched dependency adds, and command-line spec rendering.
//
// [pyproject] - Document model for the generated pyproject.toml: metadata
// application, tool section copying, build system selection, git sources,
// and package index merging.
//
// [pip] - Reads extra index URLs from global pip configuration files.
//
// [pipeline] - The five-stage migration pipeline shared by the CLI. Stages
// are timed, observable, and roll back through [tracker] when one fails.
//
// ## Infrastructure
//
// [tracker] - Records file creations, modifications, and renames during a
// migration and replays them newest-first on rollback.
//
// [errors] - Coded errors shared across packages; codes classify failures
// (detection, parse, tool, file) for friendly CLI reporting.
//
// [observability] - Hook registry for migration stages, tracked file
// operations, and uv invocations. No-op by default.
//
// [buildinfo] - Build-time version information injected via ldflags.
//
// # Common Workflows
//
// Parse a project without migrating:
//
//	parser, _ := deps.Detect(dir, pipeline.DefaultParsers(logger)...)
//	ex, _ := parser.Parse(ctx, dir)
//	main, dev, group := ex.Counts()
//
// Replay dependencies with a custom runner:
//
//	rec := &uv.RecordingRunner{}
//	result, _ := pipeline.NewRunner(nil, logger).Execute(ctx, pipeline.Options{
//	    Dir:    dir,
//	    Runner: rec,
//	})
//
// Merge named groups into dev during migration:
//
//	opts := pipeline.Options{Dir: dir, MergeGroups: true}
//
// # Testing
//
// Run tests:
//
//	go test ./pkg/...              # All tests
//	go test ./pkg/deps/...         # Specific package
//	go test -run Example           # Examples only
//
// [deps]: https://pkg.go.dev/github.com/matzehuels/uvmigrate/pkg/deps
// [constraint]: https://pkg.go.dev/github.com/matzehuels/uvmigrate/pkg/constraint
// [uv]: https://pkg.go.dev/github.com/matzehuels/uvmigrate/pkg/uv
// [pyproject]: https://pkg.go.dev/github.com/matzehuels/uvmigrate/pkg/pyproject
// [pip]: https://pkg.go.dev/github.com/matzehuels/uvmigrate/pkg/pip
// [pipeline]: https://pkg.go.dev/github.com/matzehuels/uvmigrate/pkg/pipeline
// [tracker]: https://pkg.go.dev/github.com/matzehuels/uvmigrate/pkg/tracker
// [errors]: https://pkg.go.dev/github.com/matzehuels/uvmigrate/pkg/errors
// [observability]: https://pkg.go.dev/github.com/matzehuels/uvmigrate/pkg/observability
// [buildinfo]: https://pkg.go.dev/github.com/matzehuels/uvmigrate/pkg/buildinfo
package pkg
