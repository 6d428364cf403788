// Copyright 2024 Canonical Ltd.
// Licensed under the AGPLv3, see LICENCE file for details.

package charm

import (
	"github.com/juju/errors"
	"github.com/juju/schema"
)

// ResourceType enumerates the recognised resource types.
type ResourceType string

const (
	ResourceTypeFile     ResourceType = "file"
	ResourceTypeOCIImage ResourceType = "oci-image"
)

// ResourceMeta holds the information about a resource, as stored
// in a charm's metadata.
type ResourceMeta struct {
	Name        string       `yaml:"-"`
	Type        ResourceType `yaml:"type"`
	Path        string       `yaml:"filename,omitempty"`
	Description string       `yaml:"description,omitempty"`
	// UpstreamSource is the registry coordinate used when the deployer
	// does not supply one.
	UpstreamSource string `yaml:"upstream-source,omitempty"`
}

var resourceSchema = schema.FieldMap(
	schema.Fields{
		"type":            schema.String(),
		"filename":        schema.String(),
		"description":     schema.String(),
		"upstream-source": schema.String(),
	},
	schema.Defaults{
		"type":            string(ResourceTypeFile),
		"filename":        "",
		"description":     "",
		"upstream-source": "",
	},
)

func parseMetaResources(data interface{}) (map[string]ResourceMeta, error) {
	if data == nil {
		return nil, nil
	}

	result := make(map[string]ResourceMeta)
	for name, val := range data.(map[string]interface{}) {
		meta, err := parseResourceMeta(name, val.(map[string]interface{}))
		if err != nil {
			return nil, errors.Annotatef(err, "resource %q", name)
		}
		result[name] = meta
	}
	return result, nil
}

// parseResourceMeta parses the provided data into a ResourceMeta, assuming
// that the data has first been checked with resourceSchema.
func parseResourceMeta(name string, data map[string]interface{}) (ResourceMeta, error) {
	meta := ResourceMeta{
		Name:           name,
		Type:           ResourceType(data["type"].(string)),
		Path:           data["filename"].(string),
		Description:    data["description"].(string),
		UpstreamSource: data["upstream-source"].(string),
	}
	switch meta.Type {
	case ResourceTypeFile, ResourceTypeOCIImage:
	default:
		return ResourceMeta{}, errors.NotValidf("resource type %q", meta.Type)
	}
	return meta, nil
}

func validateMetaResources(resources map[string]ResourceMeta) error {
	for name, res := range resources {
		if res.Name != name {
			return errors.Errorf("mismatch on resource name (%q != %q)", res.Name, name)
		}
		if res.Type == ResourceTypeFile && res.Path == "" {
			return errors.NotValidf("file resource %q without filename", name)
		}
	}
	return nil
}
