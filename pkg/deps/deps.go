package deps

import (
	"sort"
	"strings"

	"github.com/matzehuels/uvmigrate/pkg/errors"
)

// Kind classifies where a dependency belongs in the migrated project.
type Kind int

const (
	// KindMain is a runtime dependency.
	KindMain Kind = iota
	// KindDev is a development dependency.
	KindDev
	// KindGroup is a member of a named dependency group.
	KindGroup
)

// String returns the human-readable kind name.
func (k Kind) String() string {
	switch k {
	case KindMain:
		return "main"
	case KindDev:
		return "dev"
	case KindGroup:
		return "group"
	default:
		return "unknown"
	}
}

// SourceRef points a dependency at a VCS source instead of a registry
// version. At most one of Branch, Tag, and Rev is set.
type SourceRef struct {
	Git    string // Repository URL
	Branch string
	Tag    string
	Rev    string
}

// Dependency is one normalized dependency declaration, independent of the
// manifest format it was extracted from.
//
// Version holds the declared specifier verbatim (already translated to
// PEP 440 where the source format required it); it is empty for
// unconstrained dependencies. Version and Source are mutually exclusive.
type Dependency struct {
	Name    string     // Declared spelling, kept for display
	Version string     // PEP 440 specifier or bare version, "" when absent
	Kind    Kind       // Main, Dev, or Group
	Group   string     // Group name, set only for KindGroup
	Extras  []string   // Optional extras, declaration order, deduplicated
	Markers string     // Environment marker string, verbatim
	Source  *SourceRef // VCS source, mutually exclusive with Version
}

// Normalize canonicalizes a package name for identity comparison per
// PEP 503: lowercase with runs of '-', '_', and '.' collapsed to '-'.
func Normalize(name string) string {
	var b strings.Builder
	b.Grow(len(name))
	sep := false
	for _, r := range strings.ToLower(name) {
		if r == '-' || r == '_' || r == '.' {
			sep = true
			continue
		}
		if sep && b.Len() > 0 {
			b.WriteByte('-')
		}
		sep = false
		b.WriteRune(r)
	}
	return b.String()
}

// Key returns the identity of the dependency within an extraction:
// the normalized name qualified by kind and group.
func (d Dependency) Key() string {
	return d.Kind.String() + "/" + d.Group + "/" + Normalize(d.Name)
}

// Validate checks the model invariants for a single dependency.
func (d Dependency) Validate() error {
	if err := errors.ValidatePythonPackageName(d.Name); err != nil {
		return err
	}
	if d.Version != "" && d.Source != nil {
		return errors.New(errors.ErrCodeInvalidInput, "dependency %q has both a version and a source", d.Name)
	}
	if (d.Group != "") != (d.Kind == KindGroup) {
		return errors.New(errors.ErrCodeInternal, "dependency %q: group %q inconsistent with kind %s", d.Name, d.Group, d.Kind)
	}
	if d.Source != nil {
		set := 0
		for _, ref := range []string{d.Source.Branch, d.Source.Tag, d.Source.Rev} {
			if ref != "" {
				set++
			}
		}
		if set > 1 {
			return errors.New(errors.ErrCodeInvalidInput, "dependency %q names more than one git reference", d.Name)
		}
	}
	return nil
}

// Dedupe collapses duplicate declarations of the same dependency identity.
// The later declaration wins completely (version, extras, markers, source);
// the position of the first occurrence is kept so batch order stays stable.
func Dedupe(in []Dependency) []Dependency {
	out := make([]Dependency, 0, len(in))
	index := make(map[string]int, len(in))
	for _, d := range in {
		key := d.Key()
		if i, ok := index[key]; ok {
			out[i] = d
			continue
		}
		index[key] = len(out)
		out = append(out, d)
	}
	return out
}

// MergeGroups folds every named group into the dev kind. Collisions with
// existing dev dependencies resolve last-seen-wins.
func MergeGroups(in []Dependency) []Dependency {
	out := make([]Dependency, len(in))
	for i, d := range in {
		if d.Kind == KindGroup {
			d.Kind = KindDev
			d.Group = ""
		}
		out[i] = d
	}
	return Dedupe(out)
}

// Batch is one group of dependencies replayed in a single add invocation.
type Batch struct {
	Kind  Kind
	Group string // Set only for KindGroup batches
	Deps  []Dependency
}

// Batches partitions dependencies into add batches: main first, then dev,
// then named groups in sorted order. Empty batches are omitted.
func Batches(in []Dependency) []Batch {
	var main, dev []Dependency
	groups := make(map[string][]Dependency)
	for _, d := range in {
		switch d.Kind {
		case KindMain:
			main = append(main, d)
		case KindDev:
			dev = append(dev, d)
		case KindGroup:
			groups[d.Group] = append(groups[d.Group], d)
		}
	}

	var out []Batch
	if len(main) > 0 {
		out = append(out, Batch{Kind: KindMain, Deps: main})
	}
	if len(dev) > 0 {
		out = append(out, Batch{Kind: KindDev, Deps: dev})
	}
	names := make([]string, 0, len(groups))
	for name := range groups {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		out = append(out, Batch{Kind: KindGroup, Group: name, Deps: groups[name]})
	}
	return out
}

// IndexSource is a package index declared by the legacy project.
type IndexSource struct {
	Name    string
	URL     string
	Default bool // Marked as the primary index by the legacy config
}

// PackageInclude mirrors a Poetry packages entry.
type PackageInclude struct {
	Include string
	From    string
}

// ProjectMeta carries legacy project metadata that survives the migration
// outside the dependency list. Only the Poetry parser fills it; other
// formats have nothing comparable to carry over.
type ProjectMeta struct {
	Name          string
	Version       string
	Description   string
	Authors       []string // Poetry-style "Name <email>" strings
	Homepage      string
	Repository    string
	Documentation string
	Keywords      []string
	Classifiers   []string
	Readme        string
	License       string
	Scripts       map[string]string // script name -> "module:function"
	Packages      []PackageInclude
	PackageMode   *bool // nil when unset (defaults to true)
	Sources       []IndexSource
}

// HasPackages reports whether the legacy project declared an explicit
// packages layout.
func (m *ProjectMeta) HasPackages() bool {
	return m != nil && len(m.Packages) > 0
}

// Packaged reports whether the migrated project should be initialized as a
// packaged (buildable) project rather than a flat application.
func (m *ProjectMeta) Packaged() bool {
	if m == nil {
		return false
	}
	if m.PackageMode != nil && !*m.PackageMode {
		return false
	}
	return len(m.Packages) > 0
}

// Extraction is the result of parsing one project's dependency declarations.
type Extraction struct {
	Deps          []Dependency
	PythonVersion string       // "major.minor", "" when the manifest does not pin one
	Meta          *ProjectMeta // nil for formats without project metadata
}

// Counts returns the number of dependencies per kind.
func (e *Extraction) Counts() (main, dev, group int) {
	for _, d := range e.Deps {
		switch d.Kind {
		case KindMain:
			main++
		case KindDev:
			dev++
		case KindGroup:
			group++
		}
	}
	return main, dev, group
}
