// Package deps defines the normalized dependency model shared by every
// manifest parser and by the migration pipeline.
//
// # Overview
//
// uvmigrate reads dependency declarations from five legacy formats:
//
//   - Poetry (pyproject.toml, classic and PEP 621 layouts)
//   - Pipenv (Pipfile)
//   - Requirements lists (requirements*.txt)
//   - Setup scripts (setup.py, scanned textually)
//   - Conda environments (environment.yml)
//
// Each format has a subpackage implementing [SourceParser]; all of them
// produce the same [Extraction]: a flat list of [Dependency] values plus an
// optional interpreter constraint and, for Poetry, legacy project metadata
// in [ProjectMeta].
//
// # Identity
//
// Dependency identity is the PEP 503 normalized name ([Normalize]) scoped
// by kind and group. [Dedupe] applies the model's duplicate rule: the last
// declaration of an identity wins completely.
//
// # Detection
//
// [Detect] walks a caller-supplied parser list in order and returns the
// first parser whose probe matches; the pipeline fixes the precedence
// (conda, then poetry, pipenv, setup.py, requirements).
//
// # Replay
//
// [Batches] partitions an extraction into the per-group batches the replay
// step feeds to uv: main dependencies first, then dev, then named groups in
// sorted order. [MergeGroups] folds every named group into dev for projects
// that prefer a flat dev group.
package deps
