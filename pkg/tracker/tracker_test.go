package tracker

import (
	"context"
	"os"
	"path/filepath"
	"testing"
)

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
}

func readFile(t *testing.T, path string) string {
	t.Helper()
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	return string(data)
}

func TestRollbackRemovesCreatedFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "pyproject.toml")

	tr := New(false)
	if err := tr.TrackCreate(path); err != nil {
		t.Fatalf("TrackCreate() error = %v, want nil", err)
	}
	writeFile(t, path, "[project]\n")

	if failures := tr.Rollback(context.Background()); len(failures) != 0 {
		t.Fatalf("Rollback() failures = %v, want none", failures)
	}
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Errorf("created file still exists after rollback")
	}
}

func TestRollbackRestoresModifiedBytes(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "pyproject.toml")
	writeFile(t, path, "original contents\n")

	tr := New(false)
	if err := tr.TrackModify(path); err != nil {
		t.Fatalf("TrackModify() error = %v, want nil", err)
	}
	writeFile(t, path, "mutated contents\n")

	if failures := tr.Rollback(context.Background()); len(failures) != 0 {
		t.Fatalf("Rollback() failures = %v, want none", failures)
	}
	if got := readFile(t, path); got != "original contents\n" {
		t.Errorf("restored content = %q, want the original bytes", got)
	}
}

func TestRollbackReversesRename(t *testing.T) {
	dir := t.TempDir()
	from := filepath.Join(dir, "pyproject.toml")
	to := filepath.Join(dir, "old.pyproject.toml")
	writeFile(t, from, "legacy manifest\n")

	tr := New(false)
	if err := tr.TrackRename(from, to); err != nil {
		t.Fatalf("TrackRename() error = %v, want nil", err)
	}
	if err := os.Rename(from, to); err != nil {
		t.Fatal(err)
	}

	if failures := tr.Rollback(context.Background()); len(failures) != 0 {
		t.Fatalf("Rollback() failures = %v, want none", failures)
	}
	if got := readFile(t, from); got != "legacy manifest\n" {
		t.Errorf("restored content = %q, want the original bytes", got)
	}
	if _, err := os.Stat(to); !os.IsNotExist(err) {
		t.Errorf("rename destination still exists after rollback")
	}
}

func TestRollbackRenameFallsBackToSnapshot(t *testing.T) {
	dir := t.TempDir()
	from := filepath.Join(dir, "pyproject.toml")
	to := filepath.Join(dir, "old.pyproject.toml")
	writeFile(t, from, "legacy manifest\n")

	tr := New(false)
	if err := tr.TrackRename(from, to); err != nil {
		t.Fatal(err)
	}
	if err := os.Rename(from, to); err != nil {
		t.Fatal(err)
	}
	if err := os.Remove(to); err != nil {
		t.Fatal(err)
	}

	if failures := tr.Rollback(context.Background()); len(failures) != 0 {
		t.Fatalf("Rollback() failures = %v, want none", failures)
	}
	if got := readFile(t, from); got != "legacy manifest\n" {
		t.Errorf("restored content = %q, want the snapshot bytes", got)
	}
}

func TestRollbackReplaysNewestFirst(t *testing.T) {
	dir := t.TempDir()
	manifest := filepath.Join(dir, "pyproject.toml")
	backup := filepath.Join(dir, "old.pyproject.toml")
	writeFile(t, manifest, "legacy manifest\n")

	tr := New(false)
	if err := tr.TrackRename(manifest, backup); err != nil {
		t.Fatal(err)
	}
	if err := os.Rename(manifest, backup); err != nil {
		t.Fatal(err)
	}
	if err := tr.TrackCreate(manifest); err != nil {
		t.Fatal(err)
	}
	writeFile(t, manifest, "scaffolded manifest\n")

	if failures := tr.Rollback(context.Background()); len(failures) != 0 {
		t.Fatalf("Rollback() failures = %v, want none", failures)
	}
	if got := readFile(t, manifest); got != "legacy manifest\n" {
		t.Errorf("manifest = %q, want the pre-migration bytes", got)
	}
	if _, err := os.Stat(backup); !os.IsNotExist(err) {
		t.Errorf("backup still exists after rollback")
	}
}

func TestFirstTrackedStateWins(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")
	writeFile(t, path, "first\n")

	tr := New(false)
	if err := tr.TrackModify(path); err != nil {
		t.Fatal(err)
	}
	writeFile(t, path, "second\n")
	if err := tr.TrackModify(path); err != nil {
		t.Fatal(err)
	}
	writeFile(t, path, "third\n")

	if tr.Tracked() != 1 {
		t.Errorf("Tracked() = %d, want 1 after duplicate tracking", tr.Tracked())
	}
	tr.Rollback(context.Background())
	if got := readFile(t, path); got != "first\n" {
		t.Errorf("restored content = %q, want the first snapshot", got)
	}
}

func TestSecondRollbackIsNoop(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")
	writeFile(t, path, "original\n")

	tr := New(false)
	if err := tr.TrackModify(path); err != nil {
		t.Fatal(err)
	}
	writeFile(t, path, "mutated\n")

	tr.Rollback(context.Background())
	writeFile(t, path, "post-rollback edit\n")

	if failures := tr.Rollback(context.Background()); failures != nil {
		t.Errorf("second Rollback() = %v, want nil", failures)
	}
	if got := readFile(t, path); got != "post-rollback edit\n" {
		t.Errorf("content = %q, second rollback should not restore again", got)
	}
}

func TestCommitPreventsRollback(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")
	writeFile(t, path, "original\n")

	tr := New(false)
	if err := tr.TrackModify(path); err != nil {
		t.Fatal(err)
	}
	writeFile(t, path, "mutated\n")
	tr.Commit()

	if failures := tr.Rollback(context.Background()); failures != nil {
		t.Errorf("Rollback() after Commit = %v, want nil", failures)
	}
	if got := readFile(t, path); got != "mutated\n" {
		t.Errorf("content = %q, commit should keep the migrated state", got)
	}
}

func TestDisabledTrackerNeverRestores(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")
	writeFile(t, path, "original\n")

	tr := New(true)
	if err := tr.TrackModify(path); err != nil {
		t.Fatalf("TrackModify() error = %v, want nil in disabled mode", err)
	}
	if err := tr.TrackCreate(filepath.Join(dir, "extra.toml")); err != nil {
		t.Fatal(err)
	}
	writeFile(t, path, "mutated\n")

	if tr.Tracked() != 2 {
		t.Errorf("Tracked() = %d, want operations counted while disabled", tr.Tracked())
	}
	if failures := tr.Rollback(context.Background()); failures != nil {
		t.Errorf("Rollback() = %v, want nil while disabled", failures)
	}
	if got := readFile(t, path); got != "mutated\n" {
		t.Errorf("content = %q, disabled tracker must not restore", got)
	}
}

func TestRollbackContinuesPastFailures(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")
	writeFile(t, path, "original\n")

	// A tracked "file" that is really a non-empty directory cannot be
	// removed, forcing one restore step to fail.
	blocked := filepath.Join(dir, "blocked")
	if err := os.MkdirAll(filepath.Join(blocked, "child"), 0o755); err != nil {
		t.Fatal(err)
	}

	tr := New(false)
	if err := tr.TrackModify(path); err != nil {
		t.Fatal(err)
	}
	writeFile(t, path, "mutated\n")
	if err := tr.TrackCreate(blocked); err != nil {
		t.Fatal(err)
	}

	failures := tr.Rollback(context.Background())
	if len(failures) != 1 {
		t.Fatalf("Rollback() failures = %v, want exactly one", failures)
	}
	if got := readFile(t, path); got != "original\n" {
		t.Errorf("content = %q, replay must continue past a failing step", got)
	}
}
