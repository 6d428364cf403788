// Copyright 2024 Canonical Ltd.
// Licensed under the AGPLv3, see LICENCE file for details.

package charm

import (
	"fmt"
	"io"
	"strconv"

	"github.com/juju/errors"
	"github.com/juju/schema"
	"gopkg.in/yaml.v3"
)

// Settings is a group of charm config option names and values. A Settings
// S is considered valid by the Config C if every key in S is an option in
// C, and every value either has the correct type or is nil.
type Settings map[string]interface{}

// Option represents a single charm config option.
type Option struct {
	Type        string      `yaml:"type"`
	Description string      `yaml:"description,omitempty"`
	Default     interface{} `yaml:"default,omitempty"`
}

// Config represents the supported configuration options for a charm,
// as declared in its config.yaml file.
type Config struct {
	Options map[string]Option `yaml:"options"`
}

var optionTypeCheckers = map[string]schema.Checker{
	"string":  schema.String(),
	"int":     schema.Int(),
	"float":   schema.Float(),
	"boolean": schema.Bool(),
}

var configSchema = schema.FieldMap(
	schema.Fields{
		"options": schema.StringMap(schema.FieldMap(
			schema.Fields{
				"type":        schema.OneOf(schema.Const("string"), schema.Const("int"), schema.Const("float"), schema.Const("boolean")),
				"description": schema.String(),
				"default":     schema.Any(),
			},
			schema.Defaults{
				"type":        "string",
				"description": "",
				"default":     schema.Omit,
			},
		)),
	},
	schema.Defaults{
		"options": schema.Omit,
	},
)

// ReadConfig reads a config.yaml document and returns its representation.
func ReadConfig(r io.Reader) (*Config, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, errors.Trace(err)
	}
	var raw map[string]interface{}
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, errors.Annotate(err, "invalid config")
	}
	if raw == nil {
		raw = map[string]interface{}{}
	}
	v, err := configSchema.Coerce(raw, nil)
	if err != nil {
		return nil, errors.Annotate(err, "invalid config")
	}

	config := &Config{Options: make(map[string]Option)}
	options, _ := v.(map[string]interface{})["options"].(map[string]interface{})
	for name, val := range options {
		fields := val.(map[string]interface{})
		option := Option{
			Type:        fields["type"].(string),
			Description: fields["description"].(string),
		}
		if def, ok := fields["default"]; ok && def != nil {
			if option.Default, err = optionTypeCheckers[option.Type].Coerce(def, nil); err != nil {
				return nil, errors.Annotatef(err, "invalid config default for %q", name)
			}
		}
		config.Options[name] = option
	}
	return config, nil
}

// parse converts a string value to the option's type.
func (option Option) parse(name, str string) (interface{}, error) {
	switch option.Type {
	case "string":
		return str, nil
	case "int":
		v, err := strconv.ParseInt(str, 10, 64)
		if err != nil {
			return nil, errors.NotValidf("option %q value %q, expected int", name, str)
		}
		return v, nil
	case "float":
		v, err := strconv.ParseFloat(str, 64)
		if err != nil {
			return nil, errors.NotValidf("option %q value %q, expected float", name, str)
		}
		return v, nil
	case "boolean":
		v, err := strconv.ParseBool(str)
		if err != nil {
			return nil, errors.NotValidf("option %q value %q, expected boolean", name, str)
		}
		return v, nil
	}
	panic(fmt.Errorf("option %q of unknown type %q", name, option.Type))
}

// ValidateSettings coerces the string values of settings to the types of
// the options they name. Unknown option names are rejected.
func (c *Config) ValidateSettings(settings map[string]string) (Settings, error) {
	out := make(Settings, len(settings))
	for name, str := range settings {
		option, ok := c.Options[name]
		if !ok {
			return nil, errors.NotValidf("unknown option %q", name)
		}
		value, err := option.parse(name, str)
		if err != nil {
			return nil, errors.Trace(err)
		}
		out[name] = value
	}
	return out, nil
}

// DefaultSettings returns settings containing the default value of every
// option in the config. Options without a default are omitted.
func (c *Config) DefaultSettings() Settings {
	out := make(Settings)
	for name, option := range c.Options {
		if option.Default != nil {
			out[name] = option.Default
		}
	}
	return out
}

// Merge returns the defaults overlaid with the provided settings.
func (c *Config) Merge(settings Settings) Settings {
	out := c.DefaultSettings()
	for name, value := range settings {
		out[name] = value
	}
	return out
}

// Int returns the named setting as an int. It returns false when the
// setting is absent or not an integer.
func (s Settings) Int(name string) (int, bool) {
	switch v := s[name].(type) {
	case int64:
		return int(v), true
	case int:
		return v, true
	case float64:
		return int(v), v == float64(int(v))
	}
	return 0, false
}
