// Package poetry extracts dependencies from Poetry projects.
//
// Both layouts are understood: the classic [tool.poetry] tables and the
// PEP 621 layout Poetry 2.0 writes ([project] dependencies plus
// [dependency-groups]). The parser also collects the legacy project
// metadata (authors, scripts, sources, packages) that the migration
// carries into the new pyproject.toml.
package poetry

import (
	"context"
	"os"
	"path/filepath"
	"sort"

	"github.com/BurntSushi/toml"
	"github.com/charmbracelet/log"

	"github.com/matzehuels/uvmigrate/pkg/constraint"
	"github.com/matzehuels/uvmigrate/pkg/deps"
	"github.com/matzehuels/uvmigrate/pkg/errors"
)

const manifestName = "pyproject.toml"

// Parser implements deps.SourceParser for Poetry projects.
type Parser struct {
	logger *log.Logger
}

// New creates a Poetry parser. A nil logger falls back to log.Default().
func New(logger *log.Logger) *Parser {
	if logger == nil {
		logger = log.Default()
	}
	return &Parser{logger: logger}
}

func (p *Parser) Name() string { return "poetry" }

// Detect reports whether the directory holds a Poetry project: a
// pyproject.toml with a [tool.poetry] table, or one with [project]
// dependencies (the PEP 621 layout).
func (p *Parser) Detect(dir string) bool {
	data, err := os.ReadFile(filepath.Join(dir, manifestName))
	if err != nil {
		return false
	}
	var probe struct {
		Project struct {
			Dependencies []string `toml:"dependencies"`
		} `toml:"project"`
		Tool struct {
			Poetry map[string]any `toml:"poetry"`
		} `toml:"tool"`
	}
	if err := toml.Unmarshal(data, &probe); err != nil {
		return false
	}
	return len(probe.Tool.Poetry) > 0 || len(probe.Project.Dependencies) > 0
}

// Parse extracts the project's dependencies and legacy metadata.
func (p *Parser) Parse(ctx context.Context, dir string) (*deps.Extraction, error) {
	path := filepath.Join(dir, manifestName)
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeFile, err, "failed to read %s", path)
	}

	var file pyprojectFile
	if err := toml.Unmarshal(data, &file); err != nil {
		return nil, &errors.ParseError{Path: path, Detail: err.Error()}
	}

	ex := &deps.Extraction{}
	poetry := file.Tool.Poetry

	// Classic layout.
	p.convertTable(poetry.Dependencies, deps.KindMain, "", ex)
	p.convertTable(poetry.DevDependencies, deps.KindDev, "", ex)
	for _, name := range sortedKeys(poetry.Group) {
		kind, group := groupKind(name)
		p.convertTable(poetry.Group[name].Dependencies, kind, group, ex)
	}

	// PEP 621 layout.
	p.convertStrings(file.Project.Dependencies, deps.KindMain, "", ex)
	for _, name := range sortedKeys(file.Project.OptionalDependencies) {
		p.convertStrings(file.Project.OptionalDependencies[name], deps.KindGroup, name, ex)
	}
	for _, name := range sortedKeys(file.DependencyGroups) {
		kind, group := groupKind(name)
		for _, entry := range file.DependencyGroups[name] {
			line, ok := entry.(string)
			if !ok {
				p.logger.Debug("skipping non-string dependency group entry", "group", name)
				continue
			}
			p.convertStrings([]string{line}, kind, group, ex)
		}
	}

	if ex.PythonVersion == "" && file.Project.RequiresPython != "" {
		ex.PythonVersion = deps.PythonMinor(file.Project.RequiresPython)
	}

	ex.Deps = deps.Dedupe(ex.Deps)
	ex.Meta = buildMeta(&file)
	return ex, nil
}

// groupKind maps a Poetry group name to a dependency kind. The dev and
// test groups fold into the dev kind; every other group keeps its name.
func groupKind(name string) (deps.Kind, string) {
	switch name {
	case "dev", "test":
		return deps.KindDev, ""
	default:
		return deps.KindGroup, name
	}
}

// convertTable converts one classic Poetry dependency table.
func (p *Parser) convertTable(table map[string]any, kind deps.Kind, group string, ex *deps.Extraction) {
	for _, name := range sortedKeys(table) {
		if deps.Normalize(name) == "python" {
			if spec := constraintString(table[name]); spec != "" {
				ex.PythonVersion = deps.PythonMinor(spec)
			}
			continue
		}

		dep, err := p.convertValue(name, table[name], kind, group)
		if err != nil {
			p.logger.Warn("skipping dependency", "name", name, "err", err)
			continue
		}
		if dep != nil {
			ex.Deps = append(ex.Deps, *dep)
		}
	}
}

// convertStrings converts PEP 508 requirement strings.
func (p *Parser) convertStrings(lines []string, kind deps.Kind, group string, ex *deps.Extraction) {
	for _, line := range lines {
		dep, err := deps.ParseRequirement(line)
		if err != nil {
			p.logger.Warn("skipping dependency", "requirement", line, "err", err)
			continue
		}
		if dep == nil {
			continue
		}
		if deps.IsPythonPin(dep) {
			if dep.Version != "" {
				ex.PythonVersion = deps.PythonMinor(dep.Version)
			}
			continue
		}
		dep.Kind = kind
		dep.Group = group
		ex.Deps = append(ex.Deps, *dep)
	}
}

// convertValue converts one classic dependency value: a constraint string,
// a detail table, or an array of alternative constraint tables (the first
// alternative wins).
func (p *Parser) convertValue(name string, value any, kind deps.Kind, group string) (*deps.Dependency, error) {
	if err := errors.ValidatePythonPackageName(name); err != nil {
		return nil, err
	}

	switch v := value.(type) {
	case string:
		version, err := constraint.Translate(name, v)
		if err != nil {
			return nil, err
		}
		return &deps.Dependency{Name: name, Version: version, Kind: kind, Group: group}, nil

	case map[string]any:
		return p.convertDetail(name, v, kind, group)

	case []any:
		if len(v) == 0 {
			return nil, nil
		}
		return p.convertValue(name, v[0], kind, group)

	default:
		return nil, errors.New(errors.ErrCodeParse, "unsupported dependency value for %q", name)
	}
}

func (p *Parser) convertDetail(name string, detail map[string]any, kind deps.Kind, group string) (*deps.Dependency, error) {
	dep := &deps.Dependency{Name: name, Kind: kind, Group: group}

	if markers, ok := detail["markers"].(string); ok {
		dep.Markers = markers
	}
	if extras, ok := detail["extras"].([]any); ok {
		for _, e := range extras {
			if s, ok := e.(string); ok {
				dep.Extras = append(dep.Extras, s)
			}
		}
	}

	if git, ok := detail["git"].(string); ok && git != "" {
		dep.Source = &deps.SourceRef{Git: git}
		if branch, ok := detail["branch"].(string); ok {
			dep.Source.Branch = branch
		} else if tag, ok := detail["tag"].(string); ok {
			dep.Source.Tag = tag
		} else if rev, ok := detail["rev"].(string); ok {
			dep.Source.Rev = rev
		}
		return dep, nil
	}

	if spec, ok := detail["version"].(string); ok {
		version, err := constraint.Translate(name, spec)
		if err != nil {
			return nil, err
		}
		dep.Version = version
		return dep, nil
	}

	// Path and URL dependencies replay as unpinned names.
	p.logger.Debug("dependency has no version or git source", "name", name)
	return dep, nil
}

// constraintString extracts the constraint from a string or table value.
func constraintString(value any) string {
	switch v := value.(type) {
	case string:
		return v
	case map[string]any:
		if s, ok := v["version"].(string); ok {
			return s
		}
	}
	return ""
}

func buildMeta(file *pyprojectFile) *deps.ProjectMeta {
	poetry := file.Tool.Poetry
	meta := &deps.ProjectMeta{
		Name:          poetry.Name,
		Version:       poetry.Version,
		Description:   poetry.Description,
		Authors:       poetry.Authors,
		Homepage:      poetry.Homepage,
		Repository:    poetry.Repository,
		Documentation: poetry.Documentation,
		Keywords:      poetry.Keywords,
		Classifiers:   poetry.Classifiers,
		Readme:        stringValue(poetry.Readme),
		License:       licenseString(poetry.License),
		Scripts:       scriptEntries(poetry.Scripts),
		PackageMode:   poetry.PackageMode,
	}

	for _, pkg := range poetry.Packages {
		meta.Packages = append(meta.Packages, deps.PackageInclude{Include: pkg.Include, From: pkg.From})
	}
	for _, src := range poetry.Source {
		meta.Sources = append(meta.Sources, deps.IndexSource{
			Name:    src.Name,
			URL:     src.URL,
			Default: src.Priority == "default" || src.Priority == "primary",
		})
	}

	// PEP 621 projects keep their metadata under [project].
	if meta.Name == "" {
		meta.Name = file.Project.Name
	}
	if meta.Version == "" {
		meta.Version = file.Project.Version
	}
	if meta.Description == "" {
		meta.Description = file.Project.Description
	}
	if len(meta.Scripts) == 0 {
		meta.Scripts = scriptEntries(file.Project.Scripts)
	}
	return meta
}

// scriptEntries keeps the plain "module:function" script declarations and
// drops extended table forms, which have no PEP 621 equivalent.
func scriptEntries(raw map[string]any) map[string]string {
	if len(raw) == 0 {
		return nil
	}
	scripts := make(map[string]string, len(raw))
	for name, value := range raw {
		if target, ok := value.(string); ok {
			scripts[name] = target
		}
	}
	if len(scripts) == 0 {
		return nil
	}
	return scripts
}

func stringValue(v any) string {
	s, _ := v.(string)
	return s
}

// licenseString handles both license forms: a bare string and the
// {text = "..."} table.
func licenseString(v any) string {
	switch l := v.(type) {
	case string:
		return l
	case map[string]any:
		if text, ok := l["text"].(string); ok {
			return text
		}
	}
	return ""
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

type pyprojectFile struct {
	Project          projectSection   `toml:"project"`
	DependencyGroups map[string][]any `toml:"dependency-groups"`
	Tool             struct {
		Poetry poetrySection `toml:"poetry"`
	} `toml:"tool"`
}

type projectSection struct {
	Name                 string              `toml:"name"`
	Version              string              `toml:"version"`
	Description          string              `toml:"description"`
	RequiresPython       string              `toml:"requires-python"`
	Dependencies         []string            `toml:"dependencies"`
	OptionalDependencies map[string][]string `toml:"optional-dependencies"`
	Scripts              map[string]any      `toml:"scripts"`
}

type poetrySection struct {
	Name            string                  `toml:"name"`
	Version         string                  `toml:"version"`
	Description     string                  `toml:"description"`
	Authors         []string                `toml:"authors"`
	Homepage        string                  `toml:"homepage"`
	Repository      string                  `toml:"repository"`
	Documentation   string                  `toml:"documentation"`
	Keywords        []string                `toml:"keywords"`
	Classifiers     []string                `toml:"classifiers"`
	Readme          any                     `toml:"readme"`
	License         any                     `toml:"license"`
	PackageMode     *bool                   `toml:"package-mode"`
	Packages        []packageInclude        `toml:"packages"`
	Dependencies    map[string]any          `toml:"dependencies"`
	DevDependencies map[string]any          `toml:"dev-dependencies"`
	Group           map[string]groupSection `toml:"group"`
	Scripts         map[string]any          `toml:"scripts"`
	Source          []sourceEntry           `toml:"source"`
}

type groupSection struct {
	Dependencies map[string]any `toml:"dependencies"`
}

type packageInclude struct {
	Include string `toml:"include"`
	From    string `toml:"from"`
}

type sourceEntry struct {
	Name     string `toml:"name"`
	URL      string `toml:"url"`
	Priority string `toml:"priority"`
}
