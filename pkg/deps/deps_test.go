package deps

import (
	"reflect"
	"testing"
)

func TestNormalize(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{"lowercase passthrough", "requests", "requests"},
		{"uppercase", "Django", "django"},
		{"underscore", "typing_extensions", "typing-extensions"},
		{"dot", "zope.interface", "zope-interface"},
		{"mixed separators", "Foo_Bar.baz", "foo-bar-baz"},
		{"separator run", "a--__..b", "a-b"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Normalize(tt.input); got != tt.expected {
				t.Errorf("Normalize(%q) = %q, want %q", tt.input, got, tt.expected)
			}
		})
	}
}

func TestDedupeLastSeenWins(t *testing.T) {
	in := []Dependency{
		{Name: "requests", Version: ">=2.0", Kind: KindMain},
		{Name: "flask", Version: ">=1.0", Kind: KindMain},
		{Name: "Requests", Version: ">=2.31", Kind: KindMain, Extras: []string{"socks"}},
	}

	out := Dedupe(in)
	if len(out) != 2 {
		t.Fatalf("len(Dedupe()) = %d, want 2", len(out))
	}

	// The later declaration replaces the earlier one in place.
	if out[0].Name != "Requests" || out[0].Version != ">=2.31" {
		t.Errorf("out[0] = %+v, want the later requests declaration", out[0])
	}
	if len(out[0].Extras) != 1 || out[0].Extras[0] != "socks" {
		t.Errorf("out[0].Extras = %v, want [socks]", out[0].Extras)
	}
	if out[1].Name != "flask" {
		t.Errorf("out[1].Name = %q, want %q", out[1].Name, "flask")
	}
}

func TestDedupeKindsAreSeparate(t *testing.T) {
	in := []Dependency{
		{Name: "pytest", Version: ">=7", Kind: KindMain},
		{Name: "pytest", Version: ">=8", Kind: KindDev},
	}

	out := Dedupe(in)
	if len(out) != 2 {
		t.Fatalf("len(Dedupe()) = %d, want 2 (same name, different kinds)", len(out))
	}
}

func TestMergeGroups(t *testing.T) {
	in := []Dependency{
		{Name: "ruff", Version: ">=0.4", Kind: KindGroup, Group: "lint"},
		{Name: "pytest", Version: ">=7", Kind: KindDev},
		{Name: "pytest", Version: ">=8", Kind: KindGroup, Group: "ci"},
	}

	out := MergeGroups(in)
	for _, d := range out {
		if d.Kind == KindGroup || d.Group != "" {
			t.Errorf("MergeGroups left group dependency %+v", d)
		}
	}

	// The folded pytest collides with the dev pytest; the later wins.
	if len(out) != 2 {
		t.Fatalf("len(MergeGroups()) = %d, want 2", len(out))
	}
	for _, d := range out {
		if Normalize(d.Name) == "pytest" && d.Version != ">=8" {
			t.Errorf("pytest version = %q, want %q after fold", d.Version, ">=8")
		}
	}
}

func TestBatches(t *testing.T) {
	in := []Dependency{
		{Name: "mypy", Kind: KindGroup, Group: "types"},
		{Name: "requests", Kind: KindMain},
		{Name: "pytest", Kind: KindDev},
		{Name: "ruff", Kind: KindGroup, Group: "lint"},
		{Name: "flask", Kind: KindMain},
	}

	batches := Batches(in)

	var order []string
	for _, b := range batches {
		if b.Kind == KindGroup {
			order = append(order, "group:"+b.Group)
		} else {
			order = append(order, b.Kind.String())
		}
	}

	expected := []string{"main", "dev", "group:lint", "group:types"}
	if !reflect.DeepEqual(order, expected) {
		t.Errorf("batch order = %v, want %v", order, expected)
	}

	if len(batches[0].Deps) != 2 {
		t.Errorf("main batch size = %d, want 2", len(batches[0].Deps))
	}
}

func TestBatchesOmitsEmpty(t *testing.T) {
	batches := Batches([]Dependency{{Name: "requests", Kind: KindMain}})
	if len(batches) != 1 {
		t.Fatalf("len(Batches()) = %d, want 1", len(batches))
	}
	if batches[0].Kind != KindMain {
		t.Errorf("batches[0].Kind = %v, want %v", batches[0].Kind, KindMain)
	}
}

func TestDependencyValidate(t *testing.T) {
	tests := []struct {
		name    string
		dep     Dependency
		wantErr bool
	}{
		{
			name:    "valid main",
			dep:     Dependency{Name: "requests", Version: ">=2.0", Kind: KindMain},
			wantErr: false,
		},
		{
			name:    "valid group",
			dep:     Dependency{Name: "ruff", Kind: KindGroup, Group: "lint"},
			wantErr: false,
		},
		{
			name:    "valid git source",
			dep:     Dependency{Name: "flask", Kind: KindMain, Source: &SourceRef{Git: "https://github.com/pallets/flask.git", Tag: "2.3.0"}},
			wantErr: false,
		},
		{
			name:    "version and source together",
			dep:     Dependency{Name: "flask", Version: ">=2", Kind: KindMain, Source: &SourceRef{Git: "https://example.com/r.git"}},
			wantErr: true,
		},
		{
			name:    "group name without group kind",
			dep:     Dependency{Name: "ruff", Kind: KindMain, Group: "lint"},
			wantErr: true,
		},
		{
			name:    "group kind without group name",
			dep:     Dependency{Name: "ruff", Kind: KindGroup},
			wantErr: true,
		},
		{
			name:    "multiple git references",
			dep:     Dependency{Name: "flask", Kind: KindMain, Source: &SourceRef{Git: "https://example.com/r.git", Tag: "v1", Branch: "main"}},
			wantErr: true,
		},
		{
			name:    "invalid name",
			dep:     Dependency{Name: "-bad-", Kind: KindMain},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.dep.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestExtractionCounts(t *testing.T) {
	e := &Extraction{Deps: []Dependency{
		{Name: "requests", Kind: KindMain},
		{Name: "flask", Kind: KindMain},
		{Name: "pytest", Kind: KindDev},
		{Name: "ruff", Kind: KindGroup, Group: "lint"},
	}}

	main, dev, group := e.Counts()
	if main != 2 || dev != 1 || group != 1 {
		t.Errorf("Counts() = (%d, %d, %d), want (2, 1, 1)", main, dev, group)
	}
}
