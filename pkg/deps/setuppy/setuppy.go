// Package setuppy extracts dependencies from setup.py build scripts.
//
// setup.py is executable code, so extraction is a best-effort textual
// scan: string literals inside the install_requires, tests_require,
// setup_requires, and extras_require argument spans are parsed with the
// requirements line grammar, and literal name/version/description/author
// keywords feed the project metadata. The script is never executed and no
// interpreter or build backend is invoked. Anything the scan cannot
// determine is omitted rather than guessed.
package setuppy

import (
	"context"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/charmbracelet/log"

	"github.com/matzehuels/uvmigrate/pkg/deps"
	"github.com/matzehuels/uvmigrate/pkg/errors"
)

var listArguments = []struct {
	name string
	re   *regexp.Regexp
	kind deps.Kind
}{
	{"install_requires", regexp.MustCompile(`\binstall_requires\s*=`), deps.KindMain},
	{"tests_require", regexp.MustCompile(`\btests_require\s*=`), deps.KindDev},
	{"setup_requires", regexp.MustCompile(`\bsetup_requires\s*=`), deps.KindDev},
}

var (
	extrasRE      = regexp.MustCompile(`\bextras_require\s*=`)
	pythonRE      = regexp.MustCompile(`\bpython_requires\s*=\s*(?:"([^"]*)"|'([^']*)')`)
	nameRE        = regexp.MustCompile(`\bname\s*=\s*(?:"([^"]*)"|'([^']*)')`)
	versionRE     = regexp.MustCompile(`\bversion\s*=\s*(?:"([^"]*)"|'([^']*)')`)
	descriptionRE = regexp.MustCompile(`\bdescription\s*=\s*(?:"([^"]*)"|'([^']*)')`)
	authorRE      = regexp.MustCompile(`\bauthor\s*=\s*(?:"([^"]*)"|'([^']*)')`)
	authorMailRE  = regexp.MustCompile(`\bauthor_email\s*=\s*(?:"([^"]*)"|'([^']*)')`)
	setupCallRE   = regexp.MustCompile(`\bsetup\s*\(`)
)

// Parser implements deps.SourceParser for setuptools build scripts.
type Parser struct {
	logger *log.Logger
}

// New creates a setup.py parser. A nil logger falls back to log.Default().
func New(logger *log.Logger) *Parser {
	if logger == nil {
		logger = log.Default()
	}
	return &Parser{logger: logger}
}

func (p *Parser) Name() string { return "setuppy" }

// Detect reports whether the directory contains a setup.py.
func (p *Parser) Detect(dir string) bool {
	return deps.FileExists(filepath.Join(dir, "setup.py"))
}

// Parse scans setup.py. A script with no recognizable argument at all
// yields an empty extraction, not an error.
func (p *Parser) Parse(ctx context.Context, dir string) (*deps.Extraction, error) {
	path := filepath.Join(dir, "setup.py")
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeFile, err, "failed to read %s", path)
	}
	src := string(raw)

	ex := &deps.Extraction{}
	for _, arg := range listArguments {
		body, found := p.bracketBody(src, arg.re, arg.name, '[')
		if !found {
			continue
		}
		for _, lit := range stringLiterals(body) {
			p.add(lit, arg.kind, "", ex)
		}
	}

	if body, found := p.bracketBody(src, extrasRE, "extras_require", '{'); found {
		p.parseExtras(body, ex)
	}

	if v := capture(src, pythonRE); v != "" {
		ex.PythonVersion = deps.PythonMinor(v)
	}

	ex.Meta = metadata(src)
	ex.Deps = deps.Dedupe(ex.Deps)
	return ex, nil
}

func (p *Parser) add(raw string, kind deps.Kind, group string, ex *deps.Extraction) {
	dep, err := deps.ParseRequirement(raw)
	if err != nil {
		p.logger.Warn("skipping setup.py requirement", "requirement", raw, "err", err)
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
	dep.Group = group
	ex.Deps = append(ex.Deps, *dep)
}

// parseExtras walks the extras_require dict body: each quoted key followed
// by a literal list contributes a dependency group named after the key.
func (p *Parser) parseExtras(body string, ex *deps.Extraction) {
	i := 0
	for {
		key, next, ok := nextLiteral(body, i)
		if !ok {
			return
		}
		j := skipSpace(body, next)
		if j >= len(body) || body[j] != ':' {
			i = next
			continue
		}
		j = skipSpace(body, j+1)
		if j >= len(body) || body[j] != '[' {
			p.logger.Warn("skipping extras entry with non-list value", "extra", key)
			i = next
			continue
		}
		list, ok := spanAfter(body, j)
		if !ok {
			p.logger.Warn("skipping unterminated extras entry", "extra", key)
			return
		}
		for _, lit := range stringLiterals(list) {
			p.add(lit, deps.KindGroup, key, ex)
		}
		i = j + len(list) + 2
	}
}

// bracketBody locates a keyword assignment and returns the text inside the
// bracket that follows. A keyword bound to anything but a literal bracket,
// such as a variable or a function call, is skipped with a warning.
func (p *Parser) bracketBody(src string, re *regexp.Regexp, kw string, open byte) (string, bool) {
	loc := re.FindStringIndex(src)
	if loc == nil {
		return "", false
	}
	i := skipSpace(src, loc[1])
	if i >= len(src) || src[i] != open {
		p.logger.Warn("skipping setup.py argument without a literal value", "argument", kw)
		return "", false
	}
	body, ok := spanAfter(src, i)
	if !ok {
		p.logger.Warn("skipping unterminated setup.py argument", "argument", kw)
		return "", false
	}
	return body, true
}

// metadata pulls literal project fields out of the setup() call. A field
// bound to a variable instead of a literal falls back to a top-level
// assignment of the same name, covering the version = "..." then
// setup(version=version) pattern.
func metadata(src string) *deps.ProjectMeta {
	body := src
	if loc := setupCallRE.FindStringIndex(src); loc != nil {
		if span, ok := spanAfter(src, loc[1]-1); ok {
			body = span
		}
	}

	meta := &deps.ProjectMeta{
		Name:        captureScoped(body, src, nameRE),
		Version:     captureScoped(body, src, versionRE),
		Description: captureScoped(body, src, descriptionRE),
	}
	if author := captureScoped(body, src, authorRE); author != "" {
		if email := captureScoped(body, src, authorMailRE); email != "" {
			author += " <" + email + ">"
		}
		meta.Authors = []string{author}
	}
	if meta.Name == "" && meta.Version == "" && meta.Description == "" && len(meta.Authors) == 0 {
		return nil
	}
	return meta
}

func captureScoped(body, src string, re *regexp.Regexp) string {
	if v := capture(body, re); v != "" {
		return v
	}
	return capture(src, re)
}

func capture(src string, re *regexp.Regexp) string {
	m := re.FindStringSubmatch(src)
	if m == nil {
		return ""
	}
	if m[1] != "" {
		return m[1]
	}
	return m[2]
}

// spanAfter returns the text between the bracket at src[open] and its
// balanced closing counterpart, ignoring brackets inside string literals
// and comments.
func spanAfter(src string, open int) (string, bool) {
	openCh := src[open]
	var closeCh byte
	switch openCh {
	case '[':
		closeCh = ']'
	case '{':
		closeCh = '}'
	case '(':
		closeCh = ')'
	default:
		return "", false
	}

	depth := 0
	var quote byte
	for i := open; i < len(src); i++ {
		c := src[i]
		if quote != 0 {
			switch c {
			case '\\':
				i++
			case quote:
				quote = 0
			}
			continue
		}
		switch c {
		case '\'', '"':
			quote = c
		case '#':
			for i < len(src) && src[i] != '\n' {
				i++
			}
		case openCh:
			depth++
		case closeCh:
			depth--
			if depth == 0 {
				return src[open+1 : i], true
			}
		}
	}
	return "", false
}

// nextLiteral returns the first quoted string at or after position i and
// the index just past its closing quote. Comments are skipped so an
// apostrophe in a trailing comment does not open a phantom literal.
func nextLiteral(s string, i int) (string, int, bool) {
	for ; i < len(s); i++ {
		switch s[i] {
		case '#':
			for i < len(s) && s[i] != '\n' {
				i++
			}
		case '\'', '"':
			quote := s[i]
			var b strings.Builder
			j := i + 1
			for ; j < len(s); j++ {
				if s[j] == '\\' && j+1 < len(s) {
					b.WriteByte(s[j+1])
					j++
					continue
				}
				if s[j] == quote {
					return b.String(), j + 1, true
				}
				b.WriteByte(s[j])
			}
			return b.String(), j, true
		}
	}
	return "", i, false
}

func stringLiterals(s string) []string {
	var out []string
	i := 0
	for {
		lit, next, ok := nextLiteral(s, i)
		if !ok {
			return out
		}
		out = append(out, lit)
		i = next
	}
}

func skipSpace(s string, i int) int {
	for i < len(s) {
		switch s[i] {
		case ' ', '\t', '\n', '\r', '\\':
			i++
		case '#':
			for i < len(s) && s[i] != '\n' {
				i++
			}
		default:
			return i
		}
	}
	return i
}
