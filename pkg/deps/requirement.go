package deps

import (
	"path"
	"regexp"
	"strings"

	"github.com/matzehuels/uvmigrate/pkg/constraint"
	"github.com/matzehuels/uvmigrate/pkg/errors"
)

// requirementRE captures the name, optional extras bracket, and trailing
// specifier of a PEP 508 requirement string.
var requirementRE = regexp.MustCompile(`^([A-Za-z0-9][A-Za-z0-9._-]*)\s*(?:\[([^\]]*)\])?\s*(.*)$`)

// ParseRequirement parses a single PEP 508 requirement string into a
// Dependency. The result has KindMain; callers reclassify as needed.
//
// The grammar covers name, optional extras, version specifier, an optional
// environment marker after ';' (kept verbatim), and URL requirements
// (git+..., direct archive URLs, and "name @ url" references). It does not
// handle pip option lines; those belong to the requirements-file parser.
//
// A nil, nil return means the line declares nothing (empty after trimming).
func ParseRequirement(raw string) (*Dependency, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, nil
	}

	// Environment markers trail the first ';' and survive verbatim.
	markers := ""
	if i := strings.Index(raw, ";"); i >= 0 {
		markers = strings.TrimSpace(raw[i+1:])
		raw = strings.TrimSpace(raw[:i])
	}
	if raw == "" {
		return nil, errors.New(errors.ErrCodeParse, "requirement has a marker but no package")
	}

	// Arbitrary equality pins cannot be replayed.
	if strings.Contains(raw, "===") {
		return nil, errors.New(errors.ErrCodeParse, "unsupported '===' pin in %q", raw)
	}

	// Direct references: "name @ url".
	if name, url, ok := strings.Cut(raw, " @ "); ok {
		name = strings.TrimSpace(name)
		dep, err := depFromURL(strings.TrimSpace(url), name)
		if err != nil {
			return nil, err
		}
		dep.Markers = markers
		return dep, nil
	}

	// Bare URL requirements.
	if strings.HasPrefix(raw, "git+") || strings.HasPrefix(raw, "http://") || strings.HasPrefix(raw, "https://") {
		dep, err := depFromURL(raw, "")
		if err != nil {
			return nil, err
		}
		dep.Markers = markers
		return dep, nil
	}

	m := requirementRE.FindStringSubmatch(raw)
	if m == nil {
		return nil, errors.New(errors.ErrCodeParse, "malformed requirement %q", raw)
	}
	name, extrasRaw, spec := m[1], m[2], strings.TrimSpace(m[3])

	if err := errors.ValidatePythonPackageName(name); err != nil {
		return nil, err
	}

	version, err := constraint.Translate(name, spec)
	if err != nil {
		return nil, err
	}

	return &Dependency{
		Name:    name,
		Version: version,
		Kind:    KindMain,
		Extras:  splitExtras(extrasRaw),
		Markers: markers,
	}, nil
}

// depFromURL builds a dependency for a URL requirement. When name is empty
// it is derived from the URL: an #egg fragment wins, then a wheel filename,
// then the last path segment.
func depFromURL(rawURL, name string) (*Dependency, error) {
	url := rawURL
	isGit := strings.HasPrefix(url, "git+")
	if isGit {
		url = strings.TrimPrefix(url, "git+")
	}

	fragment := ""
	if i := strings.Index(url, "#"); i >= 0 {
		fragment = url[i+1:]
		url = url[:i]
	}
	if name == "" {
		name = nameFromFragment(fragment)
	}

	rev := ""
	if i := strings.LastIndex(url, "@"); i > strings.LastIndex(url, "/") {
		rev = url[i+1:]
		url = url[:i]
	}

	if name == "" {
		name = nameFromURLPath(url)
	}
	if err := errors.ValidatePythonPackageName(name); err != nil {
		return nil, errors.New(errors.ErrCodeParse, "cannot derive a package name from %q", rawURL)
	}

	dep := &Dependency{Name: name, Kind: KindMain}
	if isGit {
		dep.Source = &SourceRef{Git: url, Rev: rev}
	}
	return dep, nil
}

func nameFromFragment(fragment string) string {
	for _, part := range strings.Split(fragment, "&") {
		if v, ok := strings.CutPrefix(part, "egg="); ok {
			return v
		}
	}
	return ""
}

func nameFromURLPath(url string) string {
	base := path.Base(url)
	if strings.HasSuffix(base, ".whl") {
		if i := strings.Index(base, "-"); i > 0 {
			return base[:i]
		}
	}
	base = strings.TrimSuffix(base, ".git")
	return base
}

func splitExtras(raw string) []string {
	if strings.TrimSpace(raw) == "" {
		return nil
	}
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	seen := make(map[string]bool, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p == "" || seen[p] {
			continue
		}
		seen[p] = true
		out = append(out, p)
	}
	return out
}

// IsPythonPin reports whether the dependency pins the interpreter rather
// than declaring a package.
func IsPythonPin(d *Dependency) bool {
	return d != nil && Normalize(d.Name) == "python"
}

// PythonMinor reduces an interpreter constraint to its "major.minor" form:
// operators are stripped and only the first two dotted components are kept.
func PythonMinor(spec string) string {
	spec = strings.TrimSpace(spec)
	spec = strings.TrimLeft(spec, "^~><=! ")
	if i := strings.IndexAny(spec, ",; "); i >= 0 {
		spec = spec[:i]
	}
	parts := strings.Split(spec, ".")
	if len(parts) == 0 || parts[0] == "" {
		return ""
	}
	if len(parts) == 1 {
		return parts[0]
	}
	minor := strings.TrimSuffix(parts[1], "*")
	if minor == "" {
		return parts[0]
	}
	return parts[0] + "." + minor
}
