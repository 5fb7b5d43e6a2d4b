// Package conda extracts dependencies from Conda environment files.
//
// Native-channel entries map onto PyPI semantics: a single "=" pin becomes
// "==", wildcard pins become explicit ranges, comparison operators pass
// through, and a trailing build string is dropped. Packages that only
// exist as Conda system libraries are skipped, and a handful of Conda
// package names are mapped to their PyPI equivalents. Entries under a
// nested "pip:" block are parsed with the requirements line grammar.
package conda

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/charmbracelet/log"
	"gopkg.in/yaml.v3"

	"github.com/matzehuels/uvmigrate/pkg/deps"
	"github.com/matzehuels/uvmigrate/pkg/errors"
)

type environmentFile struct {
	Name         string   `yaml:"name"`
	Channels     []string `yaml:"channels"`
	Dependencies []any    `yaml:"dependencies"`
}

// skipPackages are Conda-channel packages with no PyPI equivalent:
// interpreter plumbing, Conda tooling, and system libraries that pip
// would never install.
var skipPackages = map[string]bool{
	"python": true, "pip": true, "setuptools": true, "wheel": true,

	"conda": true, "conda-build": true, "conda-env": true, "conda-pack": true,
	"conda-verify": true, "conda-package-handling": true,
	"anaconda": true, "anaconda-client": true, "anaconda-navigator": true,
	"anaconda-project": true, "navigator-updater": true,

	"ca-certificates": true, "certifi": true, "openssl": true, "ncurses": true,
	"readline": true, "sqlite": true, "tk": true, "xz": true, "zlib": true,
	"bzip2": true, "curl": true, "libffi": true, "libcurl": true,
	"libpng": true, "libxml2": true, "libxslt": true, "libsodium": true,
	"libssh2": true, "libedit": true, "libgomp": true, "libgcc-ng": true,
	"libstdcxx-ng": true, "libgfortran-ng": true, "freetype": true,
	"hdf5": true, "icu": true, "jpeg": true, "krb5": true, "libtiff": true,
	"pandoc": true, "qt": true, "sip": true, "snappy": true, "yaml": true,
	"zeromq": true, "zstd": true,

	"mkl": true, "mkl-service": true, "intel-openmp": true, "blas": true,
	"openblas": true, "libopenblas": true,
	"cudatoolkit": true, "cudnn": true, "cuda": true,
	"make": true, "cmake": true, "gcc": true,
	"r-base": true, "r-essentials": true,
}

// pypiNames maps Conda package names to the name the same project
// publishes on PyPI.
var pypiNames = map[string]string{
	"pytorch":            "torch",
	"pytorch-cpu":        "torch",
	"pytorch-gpu":        "torch",
	"tensorflow-gpu":     "tensorflow",
	"tensorflow-mkl":     "tensorflow",
	"py-opencv":          "opencv-python",
	"pillow-simd":        "pillow",
	"msgpack-python":     "msgpack",
	"pyqt":               "pyqt5",
	"pytables":           "tables",
	"ruamel_yaml":        "ruamel.yaml",
	"importlib_metadata": "importlib-metadata",
	"prompt_toolkit":     "prompt-toolkit",
}

// Parser implements deps.SourceParser for Conda environment files.
type Parser struct {
	logger *log.Logger
}

// New creates a Conda parser. A nil logger falls back to log.Default().
func New(logger *log.Logger) *Parser {
	if logger == nil {
		logger = log.Default()
	}
	return &Parser{logger: logger}
}

func (p *Parser) Name() string { return "conda" }

// Detect reports whether the directory contains an environment file.
func (p *Parser) Detect(dir string) bool {
	return environmentPath(dir) != ""
}

func environmentPath(dir string) string {
	for _, name := range []string{"environment.yml", "environment.yaml"} {
		if path := filepath.Join(dir, name); deps.FileExists(path) {
			return path
		}
	}
	return ""
}

// Parse reads the environment file and converts its entries.
func (p *Parser) Parse(ctx context.Context, dir string) (*deps.Extraction, error) {
	path := environmentPath(dir)
	if path == "" {
		return nil, errors.New(errors.ErrCodeDetection, "no environment.yml or environment.yaml in %s", dir)
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeFile, err, "failed to read %s", path)
	}

	var env environmentFile
	if err := yaml.Unmarshal(raw, &env); err != nil {
		return nil, errors.Wrap(errors.ErrCodeParse, err, "failed to parse %s", path)
	}

	ex := &deps.Extraction{}
	for _, entry := range env.Dependencies {
		switch v := entry.(type) {
		case string:
			p.addConda(v, ex)
		case map[string]any:
			list, ok := v["pip"].([]any)
			if !ok {
				p.logger.Debug("skipping unrecognized dependency entry", "entry", fmt.Sprint(entry))
				continue
			}
			for _, item := range list {
				if s, ok := item.(string); ok {
					p.addPip(s, ex)
				}
			}
		default:
			p.logger.Debug("skipping unrecognized dependency entry", "entry", fmt.Sprint(entry))
		}
	}

	ex.Deps = deps.Dedupe(ex.Deps)
	return ex, nil
}

func (p *Parser) addConda(raw string, ex *deps.Extraction) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return
	}
	// Channel prefixes like conda-forge::numpy carry no PyPI meaning.
	if i := strings.LastIndex(raw, "::"); i != -1 {
		raw = raw[i+2:]
	}

	name, version := raw, ""
	if i := strings.IndexAny(raw, "><=!~"); i != -1 {
		name = strings.TrimSpace(raw[:i])
		version = condaVersion(strings.ReplaceAll(raw[i:], " ", ""))
	}

	if name == "python" {
		if version != "" {
			ex.PythonVersion = deps.PythonMinor(version)
		}
		return
	}
	if skipPackages[name] || strings.HasPrefix(name, "_") {
		p.logger.Debug("skipping non-PyPI package", "package", name)
		return
	}
	if mapped, ok := pypiNames[name]; ok {
		name = mapped
	}

	ex.Deps = append(ex.Deps, deps.Dependency{Name: name, Version: version, Kind: deps.KindMain})
}

func (p *Parser) addPip(raw string, ex *deps.Extraction) {
	raw = strings.TrimSpace(raw)
	if raw == "" || strings.HasPrefix(raw, "#") {
		return
	}
	if strings.HasPrefix(raw, "-e ") || strings.HasPrefix(raw, "--editable") {
		p.logger.Warn("skipping editable install", "requirement", raw)
		return
	}
	if strings.HasPrefix(raw, "-") {
		p.logger.Debug("skipping pip option", "option", raw)
		return
	}

	dep, err := deps.ParseRequirement(raw)
	if err != nil {
		p.logger.Warn("skipping pip requirement", "requirement", raw, "err", err)
		return
	}
	if dep == nil {
		return
	}
	if deps.IsPythonPin(dep) {
		if dep.Version != "" {
			ex.PythonVersion = deps.PythonMinor(dep.Version)
		}
		return
	}
	dep.Kind = deps.KindMain
	ex.Deps = append(ex.Deps, *dep)
}

// condaVersion rewrites a Conda version tail into a PEP 440 specifier.
// A single "=" means an exact pin, and anything after a second "=" is a
// build string with no pip counterpart.
func condaVersion(rest string) string {
	switch {
	case strings.HasPrefix(rest, "=="):
		return "==" + buildlessVersion(rest[2:])
	case strings.HasPrefix(rest, "="):
		v := buildlessVersion(rest[1:])
		if strings.Contains(v, "*") {
			return wildcardRange(v)
		}
		return "==" + v
	default:
		return rest
	}
}

func buildlessVersion(v string) string {
	v, _, _ = strings.Cut(v, "=")
	return strings.TrimSpace(v)
}

// wildcardRange rewrites Conda wildcard pins into explicit ranges:
// "1.*" allows the whole major series, "1.2.*" the whole patch series,
// and a bare "*" drops the constraint.
func wildcardRange(v string) string {
	if v == "*" {
		return ""
	}
	base, ok := strings.CutSuffix(v, ".*")
	if !ok {
		return "==" + strings.ReplaceAll(v, "*", "0")
	}
	parts := strings.Split(base, ".")
	switch len(parts) {
	case 1:
		if major, err := strconv.Atoi(parts[0]); err == nil {
			return fmt.Sprintf(">=%d.0.0,<%d.0.0", major, major+1)
		}
	case 2:
		if minor, err := strconv.Atoi(parts[1]); err == nil {
			return fmt.Sprintf(">=%s.%d.0,<%s.%d.0", parts[0], minor, parts[0], minor+1)
		}
	}
	return "==" + strings.ReplaceAll(v, "*", "0")
}
