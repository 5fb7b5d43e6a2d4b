package pyproject

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/matzehuels/uvmigrate/pkg/deps"
	"github.com/matzehuels/uvmigrate/pkg/errors"
	"github.com/matzehuels/uvmigrate/pkg/tracker"
)

const scaffold = `[project]
name = "demo-api"
version = "0.1.0"
description = "Add your description here"
readme = "README.md"
requires-python = ">=3.11"
dependencies = []
`

func writeManifest(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), Filename)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func loadManifest(t *testing.T, path string) *Document {
	t.Helper()
	doc, err := Load(path, nil)
	if err != nil {
		t.Fatalf("Load(%s) error = %v, want nil", path, err)
	}
	return doc
}

// saveAndReload round-trips the document through disk so assertions see
// exactly what a consumer of the file would.
func saveAndReload(t *testing.T, doc *Document) *Document {
	t.Helper()
	if err := doc.Save(nil); err != nil {
		t.Fatalf("Save() error = %v, want nil", err)
	}
	return loadManifest(t, doc.Path())
}

func TestApplyMetadataCarriesLegacyFields(t *testing.T) {
	doc := loadManifest(t, writeManifest(t, scaffold))

	doc.ApplyMetadata(&deps.ProjectMeta{
		Version:     "2.4.0",
		Description: "Payment service",
		Authors:     []string{"Ada Lovelace <ada@example.com>", "Ops Team"},
		Homepage:    "https://example.com",
		Repository:  "https://github.com/example/demo-api",
		Keywords:    []string{"payments", "api"},
		License:     "MIT",
	})
	got := saveAndReload(t, doc)

	if v, _ := got.lookup("project", "name").(string); v != "demo-api" {
		t.Errorf("project.name = %q, want the scaffold name kept", v)
	}
	if v, _ := got.lookup("project", "version").(string); v != "2.4.0" {
		t.Errorf("project.version = %q, want %q", v, "2.4.0")
	}
	if v, _ := got.lookup("project", "description").(string); v != "Payment service" {
		t.Errorf("project.description = %q, want %q", v, "Payment service")
	}
	if v, _ := got.lookup("project", "license").(string); v != "MIT" {
		t.Errorf("project.license = %q, want %q", v, "MIT")
	}
	if v, _ := got.lookup("project", "requires-python").(string); v != ">=3.11" {
		t.Errorf("project.requires-python = %q, want untouched", v)
	}
	if v, _ := got.lookup("project", "urls", "Homepage").(string); v != "https://example.com" {
		t.Errorf("project.urls.Homepage = %q, want the homepage", v)
	}
	if v, _ := got.lookup("project", "urls", "Repository").(string); v != "https://github.com/example/demo-api" {
		t.Errorf("project.urls.Repository = %q, want the repository", v)
	}

	authors, _ := got.lookup("project", "authors").([]map[string]any)
	if len(authors) != 2 {
		t.Fatalf("len(project.authors) = %d, want 2", len(authors))
	}
	if authors[0]["name"] != "Ada Lovelace" || authors[0]["email"] != "ada@example.com" {
		t.Errorf("authors[0] = %v, want split name and email", authors[0])
	}
	if authors[1]["name"] != "Ops Team" || authors[1]["email"] != nil {
		t.Errorf("authors[1] = %v, want name only", authors[1])
	}
}

func TestApplyMetadataLeavesAbsentFields(t *testing.T) {
	doc := loadManifest(t, writeManifest(t, scaffold))
	doc.ApplyMetadata(&deps.ProjectMeta{Description: "Payment service"})
	got := saveAndReload(t, doc)

	if v, _ := got.lookup("project", "version").(string); v != "0.1.0" {
		t.Errorf("project.version = %q, want the scaffold default kept", v)
	}
	if got.lookup("project", "urls") != nil {
		t.Error("project.urls should stay unset")
	}
	if got.lookup("project", "authors") != nil {
		t.Error("project.authors should stay unset")
	}
}

func TestSplitAuthor(t *testing.T) {
	tests := []struct {
		raw       string
		wantName  string
		wantEmail string
	}{
		{"Ada Lovelace <ada@example.com>", "Ada Lovelace", "ada@example.com"},
		{"Ada Lovelace", "Ada Lovelace", ""},
		{"<ops@example.com>", "", "ops@example.com"},
		{"  Ada <a@b.io>  ", "Ada", "a@b.io"},
		{"Ada <unclosed", "Ada <unclosed", ""},
	}
	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			name, email := splitAuthor(tt.raw)
			if name != tt.wantName || email != tt.wantEmail {
				t.Errorf("splitAuthor(%q) = (%q, %q), want (%q, %q)",
					tt.raw, name, email, tt.wantName, tt.wantEmail)
			}
		})
	}
}

func TestCopyToolSections(t *testing.T) {
	dir := t.TempDir()
	oldPath := filepath.Join(dir, BackupFilename)
	newPath := filepath.Join(dir, Filename)

	old := `[tool.poetry]
name = "legacy"

[tool.ruff]
line-length = 120

[tool.mypy]

[tool.pytest.ini_options]
testpaths = ["tests"]

[tool.uv]
dev-dependencies = []
`
	if err := os.WriteFile(oldPath, []byte(old), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(newPath, []byte(scaffold+"\n[tool.ruff]\nline-length = 100\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	doc := loadManifest(t, newPath)
	doc.CopyToolSections(loadManifest(t, oldPath))
	got := saveAndReload(t, doc)

	paths, _ := got.lookup("tool", "pytest", "ini_options", "testpaths").([]any)
	if len(paths) != 1 || paths[0] != "tests" {
		t.Errorf("tool.pytest.ini_options.testpaths = %v, want [tests]", paths)
	}
	if v, _ := got.lookup("tool", "ruff", "line-length").(int64); v != 100 {
		t.Errorf("tool.ruff.line-length = %d, want the target's own value kept", v)
	}
	for _, absent := range []string{"poetry", "uv", "mypy"} {
		if got.lookup("tool", absent) != nil {
			t.Errorf("tool.%s should not be carried over", absent)
		}
	}
}

func TestSetScripts(t *testing.T) {
	doc := loadManifest(t, writeManifest(t, scaffold))
	doc.SetScripts(map[string]string{"demo": "demo_api.cli:main"})
	got := saveAndReload(t, doc)

	if v, _ := got.lookup("project", "scripts", "demo").(string); v != "demo_api.cli:main" {
		t.Errorf("project.scripts.demo = %q, want %q", v, "demo_api.cli:main")
	}
}

func TestWriteGitSources(t *testing.T) {
	doc := loadManifest(t, writeManifest(t, scaffold))
	doc.WriteGitSources([]deps.Dependency{
		{Name: "httpx", Source: &deps.SourceRef{Git: "https://github.com/encode/httpx", Tag: "0.27.0"}},
		{Name: "flask", Version: "==2.3.2"},
	})
	got := saveAndReload(t, doc)

	if v, _ := got.lookup("tool", "uv", "sources", "httpx", "git").(string); v != "https://github.com/encode/httpx" {
		t.Errorf("sources.httpx.git = %q, want the repository URL", v)
	}
	if v, _ := got.lookup("tool", "uv", "sources", "httpx", "tag").(string); v != "0.27.0" {
		t.Errorf("sources.httpx.tag = %q, want %q", v, "0.27.0")
	}
	if got.lookup("tool", "uv", "sources", "httpx", "branch") != nil {
		t.Error("sources.httpx.branch should be unset")
	}
	if got.lookup("tool", "uv", "sources", "flask") != nil {
		t.Error("flask has no git source and should not appear")
	}
}

func TestWriteIndexes(t *testing.T) {
	doc := loadManifest(t, writeManifest(t, scaffold))
	doc.WriteIndexes([]deps.IndexSource{
		{Name: "internal", URL: "https://pypi.company.dev/simple", Default: true},
		{Name: "mirror", URL: "https://mirror.example.com/simple"},
	})
	got := saveAndReload(t, doc)

	entries, _ := got.lookup("tool", "uv", "index").([]map[string]any)
	if len(entries) != 2 {
		t.Fatalf("len(tool.uv.index) = %d, want 2", len(entries))
	}
	if entries[0]["name"] != "internal" || entries[0]["url"] != "https://pypi.company.dev/simple" {
		t.Errorf("index[0] = %v, want the internal index first", entries[0])
	}
	if entries[0]["default"] != true {
		t.Errorf("index[0].default = %v, want true", entries[0]["default"])
	}
	if entries[1]["default"] != nil {
		t.Errorf("index[1].default = %v, want unset", entries[1]["default"])
	}
}

func TestMergeIndexes(t *testing.T) {
	merged := MergeIndexes(
		[]string{"https://mirror.example.com/simple"},
		[]string{"https://pypi.company.dev/simple", "https://mirror.example.com/simple"},
		[]deps.IndexSource{
			{Name: "internal", URL: "https://pypi.company.dev/simple"},
			{Name: "artifactory", URL: "https://files.example.org/api/pypi", Default: true},
		},
	)

	want := []struct {
		name string
		url  string
	}{
		{"mirror.example.com", "https://mirror.example.com/simple"},
		{"pypi.company.dev", "https://pypi.company.dev/simple"},
		{"artifactory", "https://files.example.org/api/pypi"},
	}
	if len(merged) != len(want) {
		t.Fatalf("len(merged) = %d, want %d", len(merged), len(want))
	}
	for i, w := range want {
		if merged[i].Name != w.name || merged[i].URL != w.url {
			t.Errorf("merged[%d] = (%s, %s), want (%s, %s)",
				i, merged[i].Name, merged[i].URL, w.name, w.url)
		}
	}
	if !merged[2].Default {
		t.Error("merged[2].Default = false, want the legacy default flag kept")
	}
}

func TestMergeIndexesSuffixesDuplicateHosts(t *testing.T) {
	merged := MergeIndexes([]string{
		"https://pypi.example.com/alpha",
		"https://pypi.example.com/beta",
	}, nil, nil)

	if len(merged) != 2 {
		t.Fatalf("len(merged) = %d, want 2", len(merged))
	}
	if merged[0].Name != "pypi.example.com" || merged[1].Name != "pypi.example.com-2" {
		t.Errorf("names = (%q, %q), want the host and a suffixed duplicate",
			merged[0].Name, merged[1].Name)
	}
}

func TestSetBuildSystem(t *testing.T) {
	packageMode := false

	t.Run("scripts without packages use setuptools", func(t *testing.T) {
		doc := loadManifest(t, writeManifest(t, scaffold))
		doc.SetBuildSystem(&deps.ProjectMeta{Scripts: map[string]string{"demo": "demo:main"}})
		got := saveAndReload(t, doc)

		if v, _ := got.lookup("build-system", "build-backend").(string); v != "setuptools.build_meta" {
			t.Errorf("build-backend = %q, want setuptools", v)
		}
		modules, _ := got.lookup("tool", "setuptools", "py-modules").([]any)
		if len(modules) != 1 || modules[0] != "demo_api" {
			t.Errorf("py-modules = %v, want [demo_api]", modules)
		}
	})

	t.Run("non-package mode uses setuptools find", func(t *testing.T) {
		doc := loadManifest(t, writeManifest(t, scaffold))
		doc.SetBuildSystem(&deps.ProjectMeta{PackageMode: &packageMode})
		got := saveAndReload(t, doc)

		if v, _ := got.lookup("build-system", "build-backend").(string); v != "setuptools.build_meta" {
			t.Errorf("build-backend = %q, want setuptools", v)
		}
		if _, ok := got.lookup("tool", "setuptools", "packages", "find").(map[string]any); !ok {
			t.Error("tool.setuptools.packages.find should be present")
		}
	})

	t.Run("packages map onto the hatchling wheel target", func(t *testing.T) {
		manifest := scaffold + "\n[build-system]\nrequires = [\"hatchling\"]\nbuild-backend = \"hatchling.build\"\n"
		doc := loadManifest(t, writeManifest(t, manifest))
		doc.SetBuildSystem(&deps.ProjectMeta{
			Scripts:  map[string]string{"demo": "demo:main"},
			Packages: []deps.PackageInclude{{Include: "demo_api", From: "src"}},
		})
		got := saveAndReload(t, doc)

		if v, _ := got.lookup("build-system", "build-backend").(string); v != "hatchling.build" {
			t.Errorf("build-backend = %q, want the scaffold backend kept", v)
		}
		pkgs, _ := got.lookup("tool", "hatch", "build", "targets", "wheel", "packages").([]any)
		if len(pkgs) != 1 || pkgs[0] != "demo_api" {
			t.Errorf("wheel packages = %v, want [demo_api]", pkgs)
		}
	})
}

func TestSaveRegistersWithTracker(t *testing.T) {
	path := writeManifest(t, scaffold)
	doc := loadManifest(t, path)
	doc.SetScripts(map[string]string{"demo": "demo:main"})

	tr := tracker.New(false)
	if err := doc.Save(tr); err != nil {
		t.Fatalf("Save() error = %v, want nil", err)
	}
	if errs := tr.Rollback(context.Background()); len(errs) != 0 {
		t.Fatalf("Rollback() errors = %v, want none", errs)
	}

	restored, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if string(restored) != scaffold {
		t.Errorf("rollback restored %q, want the original manifest", restored)
	}
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), Filename), nil)
	if !errors.Is(err, errors.ErrCodeFile) {
		t.Errorf("Load() error = %v, want %s", err, errors.ErrCodeFile)
	}
}

func TestLoadInvalidToml(t *testing.T) {
	path := writeManifest(t, "[project\n")
	if _, err := Load(path, nil); !errors.Is(err, errors.ErrCodeParse) {
		t.Errorf("Load() error = %v, want %s", err, errors.ErrCodeParse)
	}
}
