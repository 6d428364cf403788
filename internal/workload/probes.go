// Copyright 2024 Canonical Ltd.
// Licensed under the AGPLv3, see LICENCE file for details.

package workload

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/juju/errors"
)

// ProbeJob is a prometheus scrape job probing static targets through a
// blackbox exporter module.
type ProbeJob struct {
	JobName       string              `json:"job_name,omitempty"`
	MetricsPath   string              `json:"metrics_path,omitempty"`
	Params        map[string][]string `json:"params"`
	StaticConfigs []StaticConfig      `json:"static_configs"`
}

// StaticConfig lists probe targets.
type StaticConfig struct {
	Targets []string          `json:"targets"`
	Labels  map[string]string `json:"labels,omitempty"`
}

// Module is a blackbox exporter module definition.
type Module map[string]interface{}

type scrapeMetadata struct {
	Model       string `json:"model"`
	ModelUUID   string `json:"model_uuid"`
	Application string `json:"application"`
	Unit        string `json:"unit"`
}

// studioProbes probes the studio URL for a 2xx response.
func studioProbes(url string) []ProbeJob {
	return []ProbeJob{{
		Params: map[string][]string{"module": {"http_2xx"}},
		StaticConfigs: []StaticConfig{{
			Targets: []string{url},
		}},
	}}
}

// probePrefix identifies the application across models.
func probePrefix(t topology) string {
	return fmt.Sprintf("juju_%s_%s_%s", t.Model, t.ModelUUID, t.Application)
}

// prefixProbes prefixes job names and the custom modules they reference.
// Builtin modules are left alone.
func prefixProbes(prefix string, probes []ProbeJob, modules map[string]Module) []ProbeJob {
	out := make([]ProbeJob, len(probes))
	for i, probe := range probes {
		parts := []string{prefix}
		if probe.JobName != "" {
			parts = append(parts, probe.JobName)
		}
		probe.JobName = strings.Join(parts, "_")

		params := make(map[string][]string, len(probe.Params))
		for k, v := range probe.Params {
			params[k] = append([]string(nil), v...)
		}
		for j, module := range params["module"] {
			if _, ok := modules[module]; ok {
				params["module"][j] = prefix + "_" + module
			}
		}
		probe.Params = params
		out[i] = probe
	}
	return out
}

func prefixModules(prefix string, modules map[string]Module) map[string]Module {
	out := make(map[string]Module, len(modules))
	for name, module := range modules {
		out[prefix+"_"+name] = module
	}
	return out
}

// probesDatabag renders the application databag of a probes relation.
// Every value is JSON encoded.
func probesDatabag(t topology, probes []ProbeJob, modules map[string]Module) (map[string]string, error) {
	prefix := probePrefix(t)
	fields := map[string]interface{}{
		"scrape_metadata": scrapeMetadata{
			Model:       t.Model,
			ModelUUID:   t.ModelUUID,
			Application: t.Application,
			Unit:        t.Unit,
		},
		"scrape_probes":  prefixProbes(prefix, probes, modules),
		"scrape_modules": prefixModules(prefix, modules),
	}
	out := make(map[string]string, len(fields))
	for key, value := range fields {
		data, err := json.Marshal(value)
		if err != nil {
			return nil, errors.Annotatef(err, "encoding %s", key)
		}
		out[key] = string(data)
	}
	return out, nil
}
