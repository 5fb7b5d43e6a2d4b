// Package pipenv extracts dependencies from Pipfile projects.
//
// Only the Pipfile itself is read. A Pipfile.lock next to it is ignored:
// the lock holds the resolved transitive closure, and replaying that would
// turn every transitive dependency into a direct one.
package pipenv

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

const manifestName = "Pipfile"

// Parser implements deps.SourceParser for Pipenv projects.
type Parser struct {
	logger *log.Logger
}

// New creates a Pipenv parser. A nil logger falls back to log.Default().
func New(logger *log.Logger) *Parser {
	if logger == nil {
		logger = log.Default()
	}
	return &Parser{logger: logger}
}

func (p *Parser) Name() string { return "pipenv" }

// Detect reports whether the directory contains a Pipfile.
func (p *Parser) Detect(dir string) bool {
	return deps.FileExists(filepath.Join(dir, manifestName))
}

// Parse extracts [packages] and [dev-packages] from the Pipfile.
func (p *Parser) Parse(ctx context.Context, dir string) (*deps.Extraction, error) {
	path := filepath.Join(dir, manifestName)
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeFile, err, "failed to read %s", path)
	}

	var file pipfile
	if err := toml.Unmarshal(data, &file); err != nil {
		return nil, &errors.ParseError{Path: path, Detail: err.Error()}
	}

	ex := &deps.Extraction{}
	p.convertSection(file.Packages, deps.KindMain, ex)
	p.convertSection(file.DevPackages, deps.KindDev, ex)

	if file.Requires.PythonVersion != "" {
		ex.PythonVersion = deps.PythonMinor(file.Requires.PythonVersion)
	}

	ex.Deps = deps.Dedupe(ex.Deps)
	return ex, nil
}

func (p *Parser) convertSection(section map[string]any, kind deps.Kind, ex *deps.Extraction) {
	names := make([]string, 0, len(section))
	for name := range section {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		if deps.Normalize(name) == "python" {
			continue
		}

		dep, err := p.convert(name, section[name], kind)
		if err != nil {
			p.logger.Warn("skipping dependency", "name", name, "err", err)
			continue
		}
		if dep != nil {
			ex.Deps = append(ex.Deps, *dep)
		}
	}
}

func (p *Parser) convert(name string, value any, kind deps.Kind) (*deps.Dependency, error) {
	if err := errors.ValidatePythonPackageName(name); err != nil {
		return nil, err
	}

	dep := &deps.Dependency{Name: name, Kind: kind}

	switch v := value.(type) {
	case string:
		version, err := constraint.Translate(name, v)
		if err != nil {
			return nil, err
		}
		dep.Version = version
		return dep, nil

	case map[string]any:
		if markers, ok := v["markers"].(string); ok {
			dep.Markers = markers
		}
		if extras, ok := v["extras"].([]any); ok {
			for _, e := range extras {
				if s, ok := e.(string); ok {
					dep.Extras = append(dep.Extras, s)
				}
			}
		}

		// Pipfile git entries pin with "ref".
		if git, ok := v["git"].(string); ok && git != "" {
			dep.Source = &deps.SourceRef{Git: git}
			if ref, ok := v["ref"].(string); ok {
				dep.Source.Rev = ref
			}
			return dep, nil
		}

		if spec, ok := v["version"].(string); ok {
			version, err := constraint.Translate(name, spec)
			if err != nil {
				return nil, err
			}
			dep.Version = version
		} else {
			p.logger.Debug("dependency has no version or git source", "name", name)
		}
		return dep, nil

	default:
		return nil, errors.New(errors.ErrCodeParse, "unsupported dependency value for %q", name)
	}
}

type pipfile struct {
	Packages    map[string]any `toml:"packages"`
	DevPackages map[string]any `toml:"dev-packages"`
	Requires    struct {
		PythonVersion string `toml:"python_version"`
	} `toml:"requires"`
}
