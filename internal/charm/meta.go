// Copyright 2024 Canonical Ltd.
// Licensed under the AGPLv3, see LICENCE file for details.

package charm

import (
	"io"
	"sort"

	"github.com/juju/collections/set"
	"github.com/juju/errors"
	"github.com/juju/schema"
	"gopkg.in/yaml.v3"
)

// RelationRole defines the role of a relation endpoint.
type RelationRole string

const (
	RoleProvider RelationRole = "provider"
	RoleRequirer RelationRole = "requirer"
)

// Relation represents a single relation endpoint defined in the charm
// metadata.
type Relation struct {
	Name      string       `yaml:"-"`
	Role      RelationRole `yaml:"-"`
	Interface string       `yaml:"interface"`
	Optional  bool         `yaml:"optional,omitempty"`
	Limit     int          `yaml:"limit,omitempty"`
}

// Container describes a workload container and the image resource it runs.
type Container struct {
	Resource string `yaml:"resource"`
}

// Meta represents the content of a charm's charmcraft.yaml that matters
// for deploying it.
type Meta struct {
	Name        string                  `yaml:"name"`
	Title       string                  `yaml:"title,omitempty"`
	Summary     string                  `yaml:"summary"`
	Description string                  `yaml:"description"`
	Assumes     []string                `yaml:"assumes,omitempty"`
	Containers  map[string]Container    `yaml:"containers,omitempty"`
	Resources   map[string]ResourceMeta `yaml:"resources,omitempty"`
	Requires    map[string]Relation     `yaml:"requires,omitempty"`
	Provides    map[string]Relation     `yaml:"provides,omitempty"`
}

var relationSchema = schema.FieldMap(
	schema.Fields{
		"interface": schema.String(),
		"optional":  schema.Bool(),
		"limit":     schema.Int(),
	},
	schema.Defaults{
		"optional": false,
		"limit":    schema.Omit,
	},
)

var containerSchema = schema.FieldMap(
	schema.Fields{
		"resource": schema.String(),
	},
	schema.Defaults{},
)

var charmSchema = schema.FieldMap(
	schema.Fields{
		"name":        schema.String(),
		"type":        schema.String(),
		"title":       schema.String(),
		"summary":     schema.String(),
		"description": schema.String(),
		"assumes":     schema.List(schema.String()),
		"containers":  schema.StringMap(containerSchema),
		"resources":   schema.StringMap(resourceSchema),
		"requires":    schema.StringMap(relationSchema),
		"provides":    schema.StringMap(relationSchema),
	},
	schema.Defaults{
		"type":        "charm",
		"title":       schema.Omit,
		"summary":     "",
		"description": "",
		"assumes":     schema.Omit,
		"containers":  schema.Omit,
		"resources":   schema.Omit,
		"requires":    schema.Omit,
		"provides":    schema.Omit,
	},
)

// ReadMeta reads the content of a charmcraft.yaml document and returns its
// representation.
func ReadMeta(r io.Reader) (*Meta, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, errors.Trace(err)
	}
	var raw map[string]interface{}
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, errors.Annotate(err, "metadata")
	}
	v, err := charmSchema.Coerce(raw, nil)
	if err != nil {
		return nil, errors.Annotate(err, "metadata")
	}
	m := v.(map[string]interface{})

	meta := &Meta{
		Name:        m["name"].(string),
		Summary:     m["summary"].(string),
		Description: m["description"].(string),
	}
	if m["type"].(string) != "charm" {
		return nil, errors.NotValidf("charm type %q", m["type"])
	}
	if title, ok := m["title"].(string); ok {
		meta.Title = title
	}
	if assumes, ok := m["assumes"].([]interface{}); ok {
		for _, a := range assumes {
			meta.Assumes = append(meta.Assumes, a.(string))
		}
	}
	meta.Containers = parseContainers(m["containers"])
	if meta.Resources, err = parseMetaResources(m["resources"]); err != nil {
		return nil, errors.Trace(err)
	}
	meta.Requires = parseRelations(m["requires"], RoleRequirer)
	meta.Provides = parseRelations(m["provides"], RoleProvider)

	if err := meta.Check(); err != nil {
		return nil, errors.Trace(err)
	}
	return meta, nil
}

func parseContainers(data interface{}) map[string]Container {
	if data == nil {
		return nil
	}
	result := make(map[string]Container)
	for name, val := range data.(map[string]interface{}) {
		result[name] = Container{
			Resource: val.(map[string]interface{})["resource"].(string),
		}
	}
	return result
}

func parseRelations(data interface{}, role RelationRole) map[string]Relation {
	if data == nil {
		return nil
	}
	result := make(map[string]Relation)
	for name, val := range data.(map[string]interface{}) {
		rel := val.(map[string]interface{})
		r := Relation{
			Name:      name,
			Role:      role,
			Interface: rel["interface"].(string),
			Optional:  rel["optional"].(bool),
		}
		if limit, ok := rel["limit"].(int64); ok {
			r.Limit = int(limit)
		}
		result[name] = r
	}
	return result
}

// Check checks that the metadata is well-formed.
func (m *Meta) Check() error {
	if m.Name == "" {
		return errors.NotValidf("charm without name")
	}
	seen := set.NewStrings()
	for _, rels := range []map[string]Relation{m.Requires, m.Provides} {
		for name, rel := range rels {
			if seen.Contains(name) {
				return errors.NotValidf("duplicated relation name %q", name)
			}
			seen.Add(name)
			if rel.Interface == "" {
				return errors.NotValidf("relation %q without interface", name)
			}
			if rel.Limit < 0 {
				return errors.NotValidf("relation %q limit %d", name, rel.Limit)
			}
		}
	}
	if err := validateMetaResources(m.Resources); err != nil {
		return errors.Trace(err)
	}
	for name, container := range m.Containers {
		res, ok := m.Resources[container.Resource]
		if !ok {
			return errors.NotFoundf("resource %q for container %q", container.Resource, name)
		}
		if res.Type != ResourceTypeOCIImage {
			return errors.NotValidf("container %q resource %q of type %q", name, res.Name, res.Type)
		}
	}
	return nil
}

// Relations returns every declared relation endpoint, sorted by name.
func (m *Meta) Relations() []Relation {
	var all []Relation
	for _, rels := range []map[string]Relation{m.Requires, m.Provides} {
		for _, rel := range rels {
			all = append(all, rel)
		}
	}
	sort.Slice(all, func(i, j int) bool {
		return all[i].Name < all[j].Name
	})
	return all
}

// ImageResources returns the names of the oci-image resources, sorted.
func (m *Meta) ImageResources() []string {
	names := set.NewStrings()
	for name, res := range m.Resources {
		if res.Type == ResourceTypeOCIImage {
			names.Add(name)
		}
	}
	return names.SortedValues()
}
