// Package pyproject reads and patches pyproject.toml files during a
// migration. A file is decoded into a generic TOML tree, patched in
// place, and re-encoded with deterministic key order. Every write is
// registered with the file tracker first, so a failed migration can put
// the previous contents back.
package pyproject

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/charmbracelet/log"
	gotoml "github.com/pelletier/go-toml/v2"

	"github.com/matzehuels/uvmigrate/pkg/deps"
	"github.com/matzehuels/uvmigrate/pkg/errors"
	"github.com/matzehuels/uvmigrate/pkg/tracker"
)

const (
	// Filename is the manifest uv manages.
	Filename = "pyproject.toml"
	// BackupFilename is where the pre-migration manifest is parked.
	BackupFilename = "old.pyproject.toml"
)

// Document is a pyproject.toml loaded into a mutable TOML tree.
type Document struct {
	path   string
	root   map[string]any
	logger *log.Logger
}

// Load reads and decodes a pyproject.toml.
func Load(path string, logger *log.Logger) (*Document, error) {
	if logger == nil {
		logger = log.Default()
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeFile, err, "reading %s", path)
	}
	root := make(map[string]any)
	if err := toml.Unmarshal(data, &root); err != nil {
		return nil, errors.Wrap(errors.ErrCodeParse, err, "parsing %s", path)
	}
	return &Document{path: path, root: root, logger: logger}, nil
}

// Path returns the file the document was loaded from.
func (d *Document) Path() string {
	return d.path
}

// ProjectName returns [project].name, or "" when unset.
func (d *Document) ProjectName() string {
	name, _ := d.lookup("project", "name").(string)
	return name
}

// Save re-encodes the document over its source file. The previous
// contents are registered with the tracker before the write.
func (d *Document) Save(tr *tracker.Tracker) error {
	if tr != nil {
		if err := tr.TrackModify(d.path); err != nil {
			return err
		}
	}
	data, err := gotoml.Marshal(d.root)
	if err != nil {
		return errors.Wrap(errors.ErrCodeInternal, err, "encoding %s", d.path)
	}
	if err := os.WriteFile(d.path, data, 0o644); err != nil {
		return errors.Wrap(errors.ErrCodeFile, err, "writing %s", d.path)
	}
	return nil
}

// ApplyMetadata carries legacy project metadata into the [project] table.
// Only fields the legacy manifest declared are touched; everything else
// stays as uv scaffolded it.
func (d *Document) ApplyMetadata(meta *deps.ProjectMeta) {
	if meta == nil {
		return
	}
	project := d.table("project")
	if meta.Version != "" {
		project["version"] = meta.Version
	}
	if meta.Description != "" {
		project["description"] = meta.Description
	}
	if authors := authorTables(meta.Authors); len(authors) > 0 {
		project["authors"] = authors
	}
	if len(meta.Keywords) > 0 {
		project["keywords"] = meta.Keywords
	}
	if len(meta.Classifiers) > 0 {
		project["classifiers"] = meta.Classifiers
	}
	if meta.Readme != "" {
		project["readme"] = meta.Readme
	}
	if meta.License != "" {
		project["license"] = meta.License
	}

	urls := make(map[string]any)
	if meta.Homepage != "" {
		urls["Homepage"] = meta.Homepage
	}
	if meta.Repository != "" {
		urls["Repository"] = meta.Repository
	}
	if meta.Documentation != "" {
		urls["Documentation"] = meta.Documentation
	}
	if len(urls) > 0 {
		project["urls"] = urls
	}
}

// CopyToolSections copies every [tool.*] table from the backup manifest
// except tool.poetry and tool.uv, so linter and test configs survive the
// migration. Sections already present in the target, and sections with
// no content, are left alone.
func (d *Document) CopyToolSections(backup *Document) {
	old, ok := backup.lookup("tool").(map[string]any)
	if !ok {
		return
	}
	for _, name := range sortedKeys(old) {
		if name == "poetry" || name == "uv" {
			continue
		}
		value := old[name]
		if emptySection(value) {
			continue
		}
		if d.lookup("tool", name) != nil {
			d.logger.Debug("tool section already present, not copying", "section", name)
			continue
		}
		d.table("tool")[name] = cloneValue(value)
		d.logger.Debug("carried tool section over", "section", name)
	}
}

// SetScripts writes [project.scripts] entries, keeping the
// "module:function" targets as declared.
func (d *Document) SetScripts(scripts map[string]string) {
	if len(scripts) == 0 {
		return
	}
	table := make(map[string]any, len(scripts))
	for name, target := range scripts {
		table[name] = target
	}
	d.set(table, "project", "scripts")
	d.logger.Debug("migrated entry point scripts", "count", len(scripts))
}

// WriteGitSources records a [tool.uv.sources] entry for every dependency
// that points at a git repository.
func (d *Document) WriteGitSources(list []deps.Dependency) {
	for _, dep := range list {
		if dep.Source == nil {
			continue
		}
		entry := map[string]any{"git": dep.Source.Git}
		if dep.Source.Branch != "" {
			entry["branch"] = dep.Source.Branch
		}
		if dep.Source.Tag != "" {
			entry["tag"] = dep.Source.Tag
		}
		if dep.Source.Rev != "" {
			entry["rev"] = dep.Source.Rev
		}
		d.table("tool", "uv", "sources")[dep.Name] = entry
		d.logger.Debug("wrote git source", "package", dep.Name, "url", dep.Source.Git)
	}
}

// WriteIndexes records [[tool.uv.index]] entries.
func (d *Document) WriteIndexes(indexes []deps.IndexSource) {
	if len(indexes) == 0 {
		return
	}
	entries := make([]map[string]any, 0, len(indexes))
	for _, idx := range indexes {
		entry := map[string]any{"name": idx.Name, "url": idx.URL}
		if idx.Default {
			entry["default"] = true
		}
		entries = append(entries, entry)
	}
	d.set(entries, "tool", "uv", "index")
	d.logger.Debug("wrote package indexes", "count", len(entries))
}

// SetBuildSystem picks a build backend for the migrated project.
//
// Script-only projects and explicit non-package projects get setuptools,
// which tolerates a flat layout. Everything else keeps the backend uv
// scaffolded; a declared packages layout is additionally mapped onto the
// hatchling wheel target.
func (d *Document) SetBuildSystem(meta *deps.ProjectMeta) {
	if meta == nil {
		return
	}
	switch {
	case len(meta.Scripts) > 0 && !meta.HasPackages():
		d.setuptoolsBackend()
		d.set([]string{d.moduleName()}, "tool", "setuptools", "py-modules")
		d.logger.Debug("configured setuptools backend for script project")
	case meta.PackageMode != nil && !*meta.PackageMode && !meta.HasPackages():
		d.setuptoolsBackend()
		d.set(map[string]any{}, "tool", "setuptools", "packages", "find")
		d.logger.Debug("configured setuptools backend for non-package project")
	case meta.HasPackages():
		includes := make([]string, 0, len(meta.Packages))
		for _, pkg := range meta.Packages {
			if pkg.Include != "" {
				includes = append(includes, pkg.Include)
			}
		}
		if len(includes) > 0 {
			d.set(includes, "tool", "hatch", "build", "targets", "wheel", "packages")
			d.logger.Debug("mapped packages layout onto hatchling", "packages", includes)
		}
	}
}

func (d *Document) setuptoolsBackend() {
	d.set(map[string]any{
		"requires":      []string{"setuptools>=42", "wheel"},
		"build-backend": "setuptools.build_meta",
	}, "build-system")
}

// moduleName derives an importable module name for py-modules from the
// project name, falling back to the directory name.
func (d *Document) moduleName() string {
	name := d.ProjectName()
	if name == "" {
		name = filepath.Base(filepath.Dir(d.path))
	}
	if name == "" || name == "." || name == string(filepath.Separator) {
		name = "app"
	}
	return strings.ToLower(strings.ReplaceAll(name, "-", "_"))
}

// lookup walks a nested key path and returns the value, or nil when any
// level is missing.
func (d *Document) lookup(path ...string) any {
	var current any = d.root
	for _, key := range path {
		table, ok := current.(map[string]any)
		if !ok {
			return nil
		}
		current = table[key]
	}
	return current
}

// table walks to a nested table, creating levels as needed. Intermediate
// values that are not tables are replaced.
func (d *Document) table(path ...string) map[string]any {
	current := d.root
	for _, key := range path {
		next, ok := current[key].(map[string]any)
		if !ok {
			next = make(map[string]any)
			current[key] = next
		}
		current = next
	}
	return current
}

// set places a value at a nested key path.
func (d *Document) set(value any, path ...string) {
	d.table(path[:len(path)-1]...)[path[len(path)-1]] = value
}

// MergeIndexes combines index declarations in precedence order:
// explicitly passed URLs first, then pip.conf imports, then the legacy
// project's own sources. Duplicate URLs keep their first occurrence.
// Entries arriving without a name get one derived from the URL host, and
// name collisions are resolved with numeric suffixes.
func MergeIndexes(explicit, pipConf []string, legacy []deps.IndexSource) []deps.IndexSource {
	var merged []deps.IndexSource
	seen := make(map[string]bool)
	add := func(src deps.IndexSource) {
		trimmed := strings.TrimSpace(src.URL)
		if trimmed == "" || seen[trimmed] {
			return
		}
		seen[trimmed] = true
		src.URL = trimmed
		merged = append(merged, src)
	}
	for _, u := range explicit {
		add(deps.IndexSource{URL: u})
	}
	for _, u := range pipConf {
		add(deps.IndexSource{URL: u})
	}
	for _, src := range legacy {
		add(src)
	}

	used := make(map[string]bool, len(merged))
	for i := range merged {
		name := merged[i].Name
		if name == "" {
			name = hostName(merged[i].URL)
		}
		unique := name
		for n := 2; used[unique]; n++ {
			unique = fmt.Sprintf("%s-%d", name, n)
		}
		used[unique] = true
		merged[i].Name = unique
	}
	return merged
}

// hostName derives an index name from a URL host.
func hostName(raw string) string {
	u, err := url.Parse(raw)
	if err != nil || u.Hostname() == "" {
		return "index"
	}
	host := strings.ToLower(strings.TrimPrefix(u.Hostname(), "www."))
	var b strings.Builder
	for _, r := range host {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9', r == '.', r == '-', r == '_':
			b.WriteRune(r)
		default:
			b.WriteByte('-')
		}
	}
	if b.Len() == 0 {
		return "index"
	}
	return b.String()
}

// authorTables converts Poetry-style "Name <email>" strings into PEP 621
// author tables.
func authorTables(authors []string) []map[string]any {
	var tables []map[string]any
	for _, raw := range authors {
		name, email := splitAuthor(raw)
		if name == "" && email == "" {
			continue
		}
		entry := make(map[string]any, 2)
		if name != "" {
			entry["name"] = name
		}
		if email != "" {
			entry["email"] = email
		}
		tables = append(tables, entry)
	}
	return tables
}

// splitAuthor separates "Ada Lovelace <ada@example.com>" into its parts.
// A string without an address is all name.
func splitAuthor(raw string) (name, email string) {
	raw = strings.TrimSpace(raw)
	if strings.HasSuffix(raw, ">") {
		if i := strings.LastIndex(raw, "<"); i >= 0 {
			return strings.TrimSpace(raw[:i]), strings.TrimSpace(raw[i+1 : len(raw)-1])
		}
	}
	return raw, ""
}

// emptySection reports whether a TOML value has no content worth
// copying: an empty table, a table of only empty sections, or an empty
// array.
func emptySection(value any) bool {
	switch v := value.(type) {
	case map[string]any:
		for _, sub := range v {
			if !emptySection(sub) {
				return false
			}
		}
		return true
	case []map[string]any:
		return len(v) == 0
	case []any:
		return len(v) == 0
	default:
		return false
	}
}

// cloneValue deep-copies a decoded TOML value so the target document
// never aliases the backup's tree.
func cloneValue(value any) any {
	switch v := value.(type) {
	case map[string]any:
		out := make(map[string]any, len(v))
		for k, sub := range v {
			out[k] = cloneValue(sub)
		}
		return out
	case []map[string]any:
		out := make([]map[string]any, len(v))
		for i, sub := range v {
			out[i] = cloneValue(sub).(map[string]any)
		}
		return out
	case []any:
		out := make([]any, len(v))
		for i, sub := range v {
			out[i] = cloneValue(sub)
		}
		return out
	default:
		return v
	}
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
