package uv

import (
	"strings"

	"github.com/matzehuels/uvmigrate/pkg/deps"
)

// RenderSpec renders a dependency the way uv add expects it on the
// command line. Versions arrive already translated to PEP 440, so an
// operator or comma list passes through verbatim, a bare version becomes
// an exact pin, and an empty version renders as just the name. A
// dependency with a git source renders as the bare name; its source is
// written to [tool.uv.sources] instead.
func RenderSpec(d deps.Dependency) string {
	name := d.Name
	if len(d.Extras) > 0 {
		name += "[" + strings.Join(d.Extras, ",") + "]"
	}

	spec := name
	if d.Source == nil {
		switch v := strings.TrimSpace(d.Version); {
		case v == "":
		case strings.Contains(v, ",") || strings.ContainsAny(v[:1], "><=!~"):
			spec = name + v
		default:
			spec = name + "==" + v
		}
	}

	if d.Markers != "" {
		spec += "; " + d.Markers
	}
	return spec
}

// RenderSpecs renders a batch in order.
func RenderSpecs(list []deps.Dependency) []string {
	specs := make([]string, len(list))
	for i, d := range list {
		specs[i] = RenderSpec(d)
	}
	return specs
}
