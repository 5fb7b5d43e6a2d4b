// Package constraint translates Poetry-style version constraints into
// PEP 440 specifiers.
//
// Poetry accepts caret and tilde shorthands that PEP 440 (and therefore uv)
// does not understand. This package maps them onto plain specifiers:
//
//	^1.2.3  ->  >=1.2.3
//	~1.2.3  ->  ~=1.2.3
//	*       ->  (empty, unconstrained)
//
// The caret's implied upper bound is dropped on purpose: the migrated
// project resolves against a live index anyway, and a floor-only constraint
// is what the replay step emits. Specifiers that are already valid PEP 440
// pass through verbatim, and comma-separated lists are translated element
// by element.
package constraint

import (
	"strings"

	"github.com/matzehuels/uvmigrate/pkg/errors"
)

// operatorChars are the characters a specifier may lead with.
const operatorChars = "^~><=!"

// Translate converts a Poetry-style constraint into a PEP 440 specifier.
// The name identifies the dependency in error messages only.
//
// An empty result means the constraint is unconstrained and the dependency
// should be emitted as a bare name. A *errors.TranslationError is returned
// when the leading token has no PEP 440 equivalent; the caller is expected
// to drop only the affected dependency.
func Translate(name, spec string) (string, error) {
	spec = strings.TrimSpace(spec)
	if spec == "" || spec == "*" {
		return "", nil
	}

	if !strings.Contains(spec, ",") {
		return translateOne(name, spec)
	}

	parts := strings.Split(spec, ",")
	out := make([]string, 0, len(parts))
	for _, part := range parts {
		part = strings.TrimSpace(part)
		if part == "" || part == "*" {
			continue
		}
		translated, err := translateOne(name, part)
		if err != nil {
			return "", err
		}
		out = append(out, translated)
	}
	return strings.Join(out, ","), nil
}

func translateOne(name, spec string) (string, error) {
	op, rest := splitOperator(spec)

	switch op {
	case "":
		// Bare versions ("1.2.3", "2.*") pass through; the add step renders
		// them as exact pins.
		if rest != "" && rest[0] >= '0' && rest[0] <= '9' {
			return spec, nil
		}
		return "", &errors.TranslationError{Name: name, Spec: spec, Token: firstToken(rest)}
	case "^":
		return ">=" + strings.TrimSpace(rest), nil
	case "~":
		return "~=" + strings.TrimSpace(rest), nil
	case "~=", ">=", "<=", ">", "<", "!=", "==", "===":
		return spec, nil
	default:
		return "", &errors.TranslationError{Name: name, Spec: spec, Token: op}
	}
}

// splitOperator separates the leading operator run from the version text.
func splitOperator(spec string) (op, rest string) {
	i := 0
	for i < len(spec) && strings.ContainsRune(operatorChars, rune(spec[i])) {
		i++
	}
	return spec[:i], spec[i:]
}

// firstToken returns the offending leading token of s for error reporting:
// a run of punctuation when present, the leading word otherwise.
func firstToken(s string) string {
	s = strings.TrimSpace(s)
	i := 0
	for i < len(s) && !isAlnum(s[i]) {
		i++
	}
	if i > 0 {
		return s[:i]
	}
	if j := strings.IndexAny(s, " \t,;"); j > 0 {
		return s[:j]
	}
	return s
}

func isAlnum(c byte) bool {
	return c >= '0' && c <= '9' || c >= 'a' && c <= 'z' || c >= 'A' && c <= 'Z'
}
