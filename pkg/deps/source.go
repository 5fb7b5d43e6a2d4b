package deps

import (
	"context"
	"os"
	"strings"

	"github.com/matzehuels/uvmigrate/pkg/errors"
)

// SourceParser extracts dependencies from one legacy manifest format.
type SourceParser interface {
	// Name returns the format identifier (e.g., "poetry", "pipenv").
	Name() string
	// Detect reports whether the project directory uses this format.
	// It probes the filesystem cheaply and must not fully parse manifests.
	Detect(dir string) bool
	// Parse extracts the project's dependency declarations.
	Parse(ctx context.Context, dir string) (*Extraction, error)
}

// Detect probes the parsers in order and returns the first that recognizes
// the directory. The caller fixes the precedence by ordering the slice.
func Detect(dir string, parsers ...SourceParser) (SourceParser, error) {
	for _, p := range parsers {
		if p.Detect(dir) {
			return p, nil
		}
	}

	names := make([]string, 0, len(parsers))
	for _, p := range parsers {
		names = append(names, p.Name())
	}
	return nil, errors.New(errors.ErrCodeDetection,
		"no supported dependency declaration found in %s (supported formats: %s)",
		dir, strings.Join(names, ", "))
}

// FileExists reports whether path names an existing regular file.
// Shared by the parsers' Detect probes.
func FileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.Mode().IsRegular()
}

// HasFileMatching reports whether dir directly contains a regular file for
// which match returns true. Subdirectories are not searched.
func HasFileMatching(dir string, match func(name string) bool) bool {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return false
	}
	for _, entry := range entries {
		if entry.Type().IsRegular() && match(entry.Name()) {
			return true
		}
	}
	return false
}

// ListFilesMatching returns the names of regular files in dir for which
// match returns true, sorted by os.ReadDir's lexical order.
func ListFilesMatching(dir string, match func(name string) bool) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeFile, err, "failed to read directory %s", dir)
	}
	var names []string
	for _, entry := range entries {
		if entry.Type().IsRegular() && match(entry.Name()) {
			names = append(names, entry.Name())
		}
	}
	return names, nil
}
