// Package tracker records filesystem mutations so a failed migration can
// be undone.
//
// Every file write performed during a migration is tracked before the
// first mutation of its path: creations record the path, modifications
// snapshot the current bytes, renames record the pair. On success the
// log is committed and dropped; on failure Rollback replays the log
// newest-first until the tree is back in its original state.
//
// # Rollback semantics
//
//   - Created files are removed (a missing file is fine).
//   - Modified files get their snapshot bytes rewritten.
//   - Renames are reversed; if the destination is gone, the snapshot
//     taken at track time is written back to the source path.
//
// Each step is isolated: a failing step is collected and the replay
// continues. Rollback never panics and a second rollback, or a rollback
// after Commit, is a no-op.
package tracker

import (
	"context"
	"io/fs"
	"os"
	"path/filepath"
	"sync"

	"github.com/matzehuels/uvmigrate/pkg/errors"
	"github.com/matzehuels/uvmigrate/pkg/observability"
)

type opKind int

const (
	opCreate opKind = iota
	opModify
	opRename
)

func (k opKind) String() string {
	switch k {
	case opCreate:
		return "create"
	case opModify:
		return "modify"
	case opRename:
		return "rename"
	}
	return "unknown"
}

type record struct {
	kind     opKind
	path     string // created or modified path; rename destination
	from     string // rename source
	snapshot []byte
	mode     fs.FileMode
}

// Tracker records file mutations in order. Methods are safe for
// concurrent use.
type Tracker struct {
	mu        sync.Mutex
	disabled  bool
	committed bool
	rolled    bool
	log       []record
	seen      map[string]bool
}

// New creates a tracker. A disabled tracker records operations for stats
// but never restores anything.
func New(disabled bool) *Tracker {
	return &Tracker{disabled: disabled, seen: make(map[string]bool)}
}

// TrackCreate records that path is about to be created. Tracking a path
// that is already tracked is a no-op; the first recorded state wins.
func (t *Tracker) TrackCreate(path string) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	path = filepath.Clean(path)
	if t.seen[path] {
		return nil
	}
	t.seen[path] = true
	t.log = append(t.log, record{kind: opCreate, path: path})
	observability.Tracker().OnFileTracked(context.Background(), "create", path)
	return nil
}

// TrackModify snapshots the current bytes of path before it is rewritten.
func (t *Tracker) TrackModify(path string) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	path = filepath.Clean(path)
	if t.seen[path] {
		return nil
	}

	rec := record{kind: opModify, path: path, mode: 0o644}
	if !t.disabled {
		data, err := os.ReadFile(path)
		if err != nil {
			return errors.Wrap(errors.ErrCodeFile, err, "failed to snapshot %s", path)
		}
		rec.snapshot = data
		if info, err := os.Stat(path); err == nil {
			rec.mode = info.Mode().Perm()
		}
	}

	t.seen[path] = true
	t.log = append(t.log, rec)
	observability.Tracker().OnFileTracked(context.Background(), "modify", path)
	return nil
}

// TrackRename records a rename before it happens, snapshotting the source
// bytes so the file can be restored even if the destination disappears.
func (t *Tracker) TrackRename(from, to string) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	from, to = filepath.Clean(from), filepath.Clean(to)
	if t.seen[to] {
		return nil
	}

	rec := record{kind: opRename, path: to, from: from, mode: 0o644}
	if !t.disabled {
		data, err := os.ReadFile(from)
		if err != nil {
			return errors.Wrap(errors.ErrCodeFile, err, "failed to snapshot %s", from)
		}
		rec.snapshot = data
		if info, err := os.Stat(from); err == nil {
			rec.mode = info.Mode().Perm()
		}
	}

	t.seen[to] = true
	t.log = append(t.log, rec)
	observability.Tracker().OnFileTracked(context.Background(), "rename", to)
	return nil
}

// Tracked returns the number of recorded operations.
func (t *Tracker) Tracked() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.log)
}

// Commit drops the log. A committed tracker cannot roll back.
func (t *Tracker) Commit() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.committed = true
	t.log = nil
}

// Rollback replays the log newest-first and returns the failures it
// could not restore. It never panics and never restores twice.
func (t *Tracker) Rollback(ctx context.Context) []error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.disabled || t.committed || t.rolled {
		return nil
	}
	t.rolled = true

	hooks := observability.Tracker()
	var failures []error
	for i := len(t.log) - 1; i >= 0; i-- {
		rec := t.log[i]
		err := undo(rec)
		hooks.OnRestoreStep(ctx, rec.kind.String(), rec.path, err)
		if err != nil {
			failures = append(failures, err)
		}
	}
	return failures
}

func undo(rec record) error {
	switch rec.kind {
	case opCreate:
		if err := os.Remove(rec.path); err != nil && !os.IsNotExist(err) {
			return errors.Wrap(errors.ErrCodeFile, err, "failed to remove %s", rec.path)
		}
	case opModify:
		if err := os.WriteFile(rec.path, rec.snapshot, rec.mode); err != nil {
			return errors.Wrap(errors.ErrCodeFile, err, "failed to restore %s", rec.path)
		}
	case opRename:
		if err := os.Rename(rec.path, rec.from); err != nil {
			if err := os.WriteFile(rec.from, rec.snapshot, rec.mode); err != nil {
				return errors.Wrap(errors.ErrCodeFile, err, "failed to restore %s", rec.from)
			}
		}
	}
	return nil
}
