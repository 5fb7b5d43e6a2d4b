// Package requirements extracts dependencies from pip requirements files.
//
// Every requirements*.txt and *requirements.txt file in the project root is
// read, in sorted filename order so repeated declarations resolve
// deterministically. A filename containing a "dev" or "test" token
// classifies the whole file as dev dependencies; everything else is main.
//
// "-r" includes are followed depth-first relative to the including file,
// with a visited set so inclusion cycles terminate. Included lines inherit
// the including file's classification. Other pip options are skipped.
package requirements

import (
	"bufio"
	"context"
	"os"
	"path/filepath"
	"strings"

	"github.com/charmbracelet/log"

	"github.com/matzehuels/uvmigrate/pkg/deps"
	"github.com/matzehuels/uvmigrate/pkg/errors"
)

// skippedFlags are pip options that have no dependency to extract. Index
// options get a pointed hint since their loss is otherwise surprising.
var skippedFlags = map[string]string{
	"-i":                "pass --import-index to carry custom indexes over",
	"--index-url":       "pass --import-index to carry custom indexes over",
	"--extra-index-url": "pass --import-index to carry custom indexes over",
	"-c":                "constraint files are not replayed",
	"--constraint":      "constraint files are not replayed",
	"-f":                "",
	"--find-links":      "",
	"--trusted-host":    "",
	"--no-index":        "",
	"--pre":             "",
	"--prefer-binary":   "",
	"--require-hashes":  "",
	"--only-binary":     "",
	"--no-binary":       "",
}

// Parser implements deps.SourceParser for requirements files.
type Parser struct {
	logger *log.Logger
}

// New creates a requirements parser. A nil logger falls back to log.Default().
func New(logger *log.Logger) *Parser {
	if logger == nil {
		logger = log.Default()
	}
	return &Parser{logger: logger}
}

func (p *Parser) Name() string { return "requirements" }

// Detect reports whether the directory root contains a requirements file.
func (p *Parser) Detect(dir string) bool {
	return deps.HasFileMatching(dir, isRequirementsFile)
}

func isRequirementsFile(name string) bool {
	if !strings.HasSuffix(name, ".txt") {
		return false
	}
	stem := strings.TrimSuffix(name, ".txt")
	return strings.HasPrefix(stem, "requirements") || strings.HasSuffix(stem, "requirements")
}

// classify maps a requirements filename to a dependency kind: a "dev" or
// "test" token anywhere in the stem means dev.
func classify(name string) deps.Kind {
	stem := strings.TrimSuffix(name, ".txt")
	for _, token := range strings.FieldsFunc(stem, func(r rune) bool {
		return r == '-' || r == '_' || r == '.'
	}) {
		if token == "dev" || token == "test" {
			return deps.KindDev
		}
	}
	return deps.KindMain
}

// Parse reads every requirements file in the directory root.
func (p *Parser) Parse(ctx context.Context, dir string) (*deps.Extraction, error) {
	files, err := deps.ListFilesMatching(dir, isRequirementsFile)
	if err != nil {
		return nil, err
	}

	ex := &deps.Extraction{}
	for _, name := range files {
		// Each root file gets its own visited set; the set guards against
		// inclusion cycles within one traversal, not across files.
		visited := make(map[string]bool)
		if err := p.parseFile(filepath.Join(dir, name), classify(name), visited, ex); err != nil {
			return nil, err
		}
	}

	ex.Deps = deps.Dedupe(ex.Deps)
	return ex, nil
}

func (p *Parser) parseFile(path string, kind deps.Kind, visited map[string]bool, ex *deps.Extraction) error {
	abs, err := filepath.Abs(path)
	if err != nil {
		abs = filepath.Clean(path)
	}
	if visited[abs] {
		p.logger.Debug("requirements file already included", "path", path)
		return nil
	}
	visited[abs] = true

	f, err := os.Open(path)
	if err != nil {
		return errors.Wrap(errors.ErrCodeFile, err, "failed to open %s", path)
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(stripComment(scanner.Text()))
		if line == "" {
			continue
		}

		if strings.HasPrefix(line, "-") {
			p.handleOption(line, path, kind, visited, ex)
			continue
		}

		p.addRequirement(line, path, lineNo, kind, ex)
	}
	if err := scanner.Err(); err != nil {
		return errors.Wrap(errors.ErrCodeFile, err, "failed to read %s", path)
	}
	return nil
}

func (p *Parser) handleOption(line, path string, kind deps.Kind, visited map[string]bool, ex *deps.Extraction) {
	flag, value := splitOption(line)

	switch flag {
	case "-r", "--requirement":
		if value == "" {
			p.logger.Warn("requirement include without a file", "path", path)
			return
		}
		target := value
		if !filepath.IsAbs(target) {
			target = filepath.Join(filepath.Dir(path), target)
		}
		if err := p.parseFile(target, kind, visited, ex); err != nil {
			p.logger.Warn("skipping unreadable include", "path", target, "err", err)
		}

	case "-e", "--editable":
		if value == "" {
			return
		}
		// Local editable installs have no registry equivalent; URL forms
		// still carry a package.
		if strings.HasPrefix(value, ".") || strings.HasPrefix(value, "/") {
			p.logger.Debug("skipping local editable install", "path", path, "target", value)
			return
		}
		p.addRequirement(value, path, 0, kind, ex)

	default:
		hint, known := skippedFlags[flag]
		switch {
		case known && hint != "":
			p.logger.Warn("skipping pip option", "option", flag, "hint", hint)
		case known:
			p.logger.Debug("skipping pip option", "option", flag)
		default:
			p.logger.Debug("skipping unsupported pip option", "option", flag)
		}
	}
}

func (p *Parser) addRequirement(line, path string, lineNo int, kind deps.Kind, ex *deps.Extraction) {
	dep, err := deps.ParseRequirement(line)
	if err != nil {
		p.logger.Warn("skipping requirement", "path", path, "line", lineNo, "err", err)
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
	dep.Kind = kind
	if kind != deps.KindGroup {
		dep.Group = ""
	}
	ex.Deps = append(ex.Deps, *dep)
}

// splitOption separates a pip option from its value, handling both
// "--flag value" and "--flag=value" spellings.
func splitOption(line string) (flag, value string) {
	if f, v, ok := strings.Cut(line, "="); ok && strings.HasPrefix(f, "--") && !strings.Contains(f, " ") {
		return f, strings.TrimSpace(v)
	}
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return line, ""
	}
	return fields[0], strings.Join(fields[1:], " ")
}

// stripComment removes a trailing comment: '#' at the line start or
// preceded by whitespace. URL fragments like #egg= are untouched.
func stripComment(line string) string {
	for i := 0; i < len(line); i++ {
		if line[i] == '#' && (i == 0 || line[i-1] == ' ' || line[i-1] == '\t') {
			return line[:i]
		}
	}
	return line
}
