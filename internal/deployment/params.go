// Copyright 2024 Canonical Ltd.
// Licensed under the AGPLv3, see LICENCE file for details.

package deployment

import (
	"fmt"
	"io"
	"sort"

	"github.com/google/uuid"
	"github.com/juju/collections/set"
	"github.com/juju/errors"
	"github.com/juju/names/v5"
	"github.com/juju/schema"
	"github.com/mitchellh/mapstructure"
	"gopkg.in/yaml.v3"

	"github.com/canonical/foxglove-studio-operator/internal/charm"
)

const (
	// DefaultUnits is the number of units deployed when none is given.
	DefaultUnits = 1

	// DefaultConstraints pins the architecture of the workload nodes.
	DefaultConstraints = "arch=amd64"

	// DefaultBase is the base the charm runs on.
	DefaultBase = "ubuntu@22.04"
)

// ErrMissingParameter is returned when a required parameter has no value.
const ErrMissingParameter = errors.ConstError("missing required parameter")

// Params is the flat parameter record of the module. The mapstructure tags
// are the wire names of the parameters.
type Params struct {
	AppName           string            `mapstructure:"app_name" yaml:"app_name"`
	ModelUUID         string            `mapstructure:"model_uuid" yaml:"model_uuid"`
	Channel           string            `mapstructure:"channel" yaml:"channel"`
	Revision          *int              `mapstructure:"revision" yaml:"revision,omitempty"`
	Base              string            `mapstructure:"base" yaml:"base"`
	Units             int               `mapstructure:"units" yaml:"units"`
	Config            map[string]string `mapstructure:"config" yaml:"config,omitempty"`
	Constraints       string            `mapstructure:"constraints" yaml:"constraints"`
	Resources         map[string]string `mapstructure:"resources" yaml:"resources,omitempty"`
	StorageDirectives map[string]string `mapstructure:"storage_directives" yaml:"storage_directives,omitempty"`
	Trust             bool              `mapstructure:"trust" yaml:"trust"`
}

// DefaultParams returns the parameters applied when a field is omitted.
// The model UUID has no default.
func DefaultParams() Params {
	return Params{
		AppName:     charm.DefaultName,
		Channel:     charm.DefaultChannel,
		Base:        DefaultBase,
		Units:       DefaultUnits,
		Constraints: DefaultConstraints,
		Resources:   charm.FoxgloveStudio().DefaultResources(),
	}
}

var paramsSchema = schema.StrictFieldMap(
	schema.Fields{
		"app_name":           schema.String(),
		"model_uuid":         schema.String(),
		"channel":            schema.String(),
		"revision":           schema.ForceInt(),
		"base":               schema.String(),
		"units":              schema.ForceInt(),
		"config":             schema.StringMap(schema.Any()),
		"constraints":        schema.String(),
		"resources":          schema.StringMap(schema.Any()),
		"storage_directives": schema.StringMap(schema.String()),
		"trust":              schema.Bool(),
	},
	schema.Defaults{
		"app_name":           charm.DefaultName,
		"model_uuid":         schema.Omit,
		"channel":            charm.DefaultChannel,
		"revision":           schema.Omit,
		"base":               DefaultBase,
		"units":              DefaultUnits,
		"config":             schema.Omit,
		"constraints":        DefaultConstraints,
		"resources":          schema.Omit,
		"storage_directives": schema.Omit,
		"trust":              false,
	},
)

// ReadParams reads a YAML parameter document. Omitted fields take their
// defaults; unknown fields are rejected.
func ReadParams(r io.Reader) (Params, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return Params{}, errors.Trace(err)
	}
	raw := map[string]interface{}{}
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return Params{}, errors.Annotate(err, "parsing parameters")
	}
	if raw == nil {
		raw = map[string]interface{}{}
	}
	coerced, err := paramsSchema.Coerce(raw, nil)
	if err != nil {
		return Params{}, errors.Annotate(err, "parsing parameters")
	}

	fields := coerced.(map[string]interface{})
	for _, name := range []string{"config", "resources"} {
		if values, ok := fields[name].(map[string]interface{}); ok {
			fields[name] = stringValues(values)
		}
	}

	p := DefaultParams()
	// Resources given by the caller replace the defaults key by key.
	resources := p.Resources
	p.Resources = nil
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		ErrorUnused: true,
		Result:      &p,
	})
	if err != nil {
		return Params{}, errors.Trace(err)
	}
	if err := decoder.Decode(fields); err != nil {
		return Params{}, errors.Annotate(err, "decoding parameters")
	}
	for name, value := range p.Resources {
		resources[name] = value
	}
	p.Resources = resources
	return p, nil
}

// Validate checks the parameters without contacting the runtime.
// Missing required values satisfy errors.Is(err, ErrMissingParameter).
func (p Params) Validate() error {
	if p.ModelUUID == "" {
		return errors.Annotate(ErrMissingParameter, "model_uuid")
	}
	if _, err := uuid.Parse(p.ModelUUID); err != nil {
		return errors.NotValidf("model_uuid %q", p.ModelUUID)
	}
	if p.AppName == "" {
		return errors.Annotate(ErrMissingParameter, "app_name")
	}
	if !names.IsValidApplication(p.AppName) {
		return errors.NotValidf("app_name %q", p.AppName)
	}
	if p.Channel == "" {
		return errors.Annotate(ErrMissingParameter, "channel")
	}
	if p.Units < 1 {
		return errors.NotValidf("units %d, expected a positive number", p.Units)
	}
	return errors.Trace(p.validateResources())
}

func (p Params) validateResources() error {
	declared := set.NewStrings(charm.FoxgloveStudio().Meta.ImageResources()...)
	for _, name := range sortedKeys(p.Resources) {
		if !declared.Contains(name) {
			return errors.NotValidf("resource %q", name)
		}
	}
	for _, name := range declared.SortedValues() {
		if p.Resources[name] == "" {
			return errors.Annotate(ErrMissingParameter, fmt.Sprintf("resources[%q]", name))
		}
	}
	return nil
}

// stringValues renders YAML scalars as the strings the runtime expects,
// so that `server-port: 5050` and `server-port: "5050"` are equivalent.
func stringValues(in map[string]interface{}) map[string]string {
	out := make(map[string]string, len(in))
	for k, v := range in {
		if v == nil {
			out[k] = ""
			continue
		}
		out[k] = fmt.Sprint(v)
	}
	return out
}

func sortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
