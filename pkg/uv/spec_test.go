package uv

import (
	"testing"

	"github.com/matzehuels/uvmigrate/pkg/deps"
)

func TestRenderSpec(t *testing.T) {
	tests := []struct {
		name string
		dep  deps.Dependency
		want string
	}{
		{
			name: "bare version pins exactly",
			dep:  deps.Dependency{Name: "requests", Version: "2.31.0"},
			want: "requests==2.31.0",
		},
		{
			name: "operator passes through",
			dep:  deps.Dependency{Name: "requests", Version: ">=2.31.0"},
			want: "requests>=2.31.0",
		},
		{
			name: "exact pin renders same as bare",
			dep:  deps.Dependency{Name: "requests", Version: "==2.31.0"},
			want: "requests==2.31.0",
		},
		{
			name: "compatible release passes through",
			dep:  deps.Dependency{Name: "celery", Version: "~=5.3"},
			want: "celery~=5.3",
		},
		{
			name: "comma list passes through",
			dep:  deps.Dependency{Name: "django", Version: ">=4.2,<5.0"},
			want: "django>=4.2,<5.0",
		},
		{
			name: "exclusion passes through",
			dep:  deps.Dependency{Name: "urllib3", Version: "!=2.0.0"},
			want: "urllib3!=2.0.0",
		},
		{
			name: "empty version renders bare name",
			dep:  deps.Dependency{Name: "anyio"},
			want: "anyio",
		},
		{
			name: "extras render inside the name",
			dep:  deps.Dependency{Name: "uvicorn", Version: ">=0.23", Extras: []string{"standard", "watch"}},
			want: "uvicorn[standard,watch]>=0.23",
		},
		{
			name: "markers append after the spec",
			dep:  deps.Dependency{Name: "pywin32", Version: ">=306", Markers: `sys_platform == "win32"`},
			want: `pywin32>=306; sys_platform == "win32"`,
		},
		{
			name: "git source renders bare name",
			dep: deps.Dependency{
				Name:    "httpx",
				Source:  &deps.SourceRef{Git: "https://github.com/encode/httpx.git", Branch: "main"},
				Version: "",
			},
			want: "httpx",
		},
		{
			name: "git source keeps extras",
			dep: deps.Dependency{
				Name:   "httpx",
				Extras: []string{"http2"},
				Source: &deps.SourceRef{Git: "https://github.com/encode/httpx.git"},
			},
			want: "httpx[http2]",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := RenderSpec(tt.dep); got != tt.want {
				t.Errorf("RenderSpec() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestRenderSpecsKeepsOrder(t *testing.T) {
	list := []deps.Dependency{
		{Name: "requests", Version: ">=2.28"},
		{Name: "flask", Version: "2.3.2"},
		{Name: "anyio"},
	}
	got := RenderSpecs(list)
	want := []string{"requests>=2.28", "flask==2.3.2", "anyio"}
	if len(got) != len(want) {
		t.Fatalf("len = %d, want %d", len(got), len(want))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("RenderSpecs()[%d] = %q, want %q", i, got[i], want[i])
		}
	}
}
