package uv

import (
	"reflect"
	"testing"

	"github.com/matzehuels/uvmigrate/pkg/errors"
)

func TestParseVersion(t *testing.T) {
	tests := []struct {
		name    string
		output  string
		want    string
		wantErr bool
	}{
		{"plain", "uv 0.6.3", "0.6.3", false},
		{"with build info", "uv 0.5.11 (abc1234 2025-01-15)", "0.5.11", false},
		{"trailing newline", "uv 0.7.0\n", "0.7.0", false},
		{"missing version", "uv", "", true},
		{"not a version", "uv banana", "", true},
		{"empty", "", "", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseVersion(tt.output)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseVersion(%q) error = %v, wantErr %v", tt.output, err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("ParseVersion(%q) = %q, want %q", tt.output, got, tt.want)
			}
			if err != nil && !errors.Is(err, errors.ErrCodeTool) {
				t.Errorf("ParseVersion(%q) error code = %v, want %v", tt.output, errors.GetCode(err), errors.ErrCodeTool)
			}
		})
	}
}

func TestCheckVersion(t *testing.T) {
	tests := []struct {
		version  string
		wantBare bool
		wantErr  bool
	}{
		{"0.4.30", false, true},
		{"0.5.0", false, false},
		{"0.5.29", false, false},
		{"0.6.0", true, false},
		{"0.7.12", true, false},
		{"1.0.0", true, false},
	}
	for _, tt := range tests {
		t.Run(tt.version, func(t *testing.T) {
			bare, err := CheckVersion(tt.version)
			if (err != nil) != tt.wantErr {
				t.Fatalf("CheckVersion(%q) error = %v, wantErr %v", tt.version, err, tt.wantErr)
			}
			if bare != tt.wantBare {
				t.Errorf("CheckVersion(%q) bare = %v, want %v", tt.version, bare, tt.wantBare)
			}
		})
	}
}

func TestInitArgs(t *testing.T) {
	tests := []struct {
		name string
		opts InitOptions
		want []string
	}{
		{
			name: "defaults",
			opts: InitOptions{},
			want: []string{"init", "--no-pin-python"},
		},
		{
			name: "packaged with python",
			opts: InitOptions{Package: true, Python: "3.11"},
			want: []string{"init", "--no-pin-python", "--package", "--python", "3.11"},
		},
		{
			name: "bare",
			opts: InitOptions{Bare: true},
			want: []string{"init", "--no-pin-python", "--bare"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := initArgs(tt.opts); !reflect.DeepEqual(got, tt.want) {
				t.Errorf("initArgs(%+v) = %v, want %v", tt.opts, got, tt.want)
			}
		})
	}
}

func TestAddArgs(t *testing.T) {
	specs := []string{"requests>=2.28", "flask==2.3.2"}
	tests := []struct {
		name string
		opts AddOptions
		want []string
	}{
		{
			name: "main",
			opts: AddOptions{},
			want: []string{"add", "requests>=2.28", "flask==2.3.2"},
		},
		{
			name: "dev",
			opts: AddOptions{Dev: true},
			want: []string{"add", "--dev", "requests>=2.28", "flask==2.3.2"},
		},
		{
			name: "group",
			opts: AddOptions{Group: "docs"},
			want: []string{"add", "--group", "docs", "requests>=2.28", "flask==2.3.2"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := addArgs(specs, tt.opts); !reflect.DeepEqual(got, tt.want) {
				t.Errorf("addArgs(%+v) = %v, want %v", tt.opts, got, tt.want)
			}
		})
	}
}
