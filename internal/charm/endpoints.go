// Copyright 2024 Canonical Ltd.
// Licensed under the AGPLv3, see LICENCE file for details.

package charm

// The endpoint tables below are matched by name by composing tooling.
// They are written out literally and must not be derived from Meta.
var (
	requiresEndpoints = map[string]string{
		"catalogue": "catalogue",
		"ingress":   "ingress",
		"logging":   "logging",
		"tracing":   "tracing",
	}

	providesEndpoints = map[string]string{
		"grafana_dashboard": "grafana-dashboard",
		"probes":            "probes",
	}
)

// RequiresEndpoints returns the endpoints the application consumes from
// other applications, keyed by their output name.
func RequiresEndpoints() map[string]string {
	return copyEndpoints(requiresEndpoints)
}

// ProvidesEndpoints returns the endpoints the application offers to other
// applications, keyed by their output name.
func ProvidesEndpoints() map[string]string {
	return copyEndpoints(providesEndpoints)
}

func copyEndpoints(in map[string]string) map[string]string {
	out := make(map[string]string, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}
