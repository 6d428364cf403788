// Copyright 2024 Canonical Ltd.
// Licensed under the AGPLv3, see LICENCE file for details.

package charm

import (
	"bytes"
	_ "embed"
	"fmt"

	"github.com/juju/errors"
)

const (
	// DefaultName is the application name used when none is given.
	DefaultName = "foxglove-studio"

	// DefaultChannel is the channel followed when none is given.
	DefaultChannel = "latest/edge"

	// ContainerName is the workload container of the charm.
	ContainerName = "foxglove-studio"

	// ImageResource is the resource holding the workload image.
	ImageResource = "foxglove-studio-image"

	// ServerPortOption is the config option holding the listen port.
	ServerPortOption = "server-port"
)

var (
	//go:embed charmcraft.yaml
	charmcraftYAML []byte

	//go:embed config.yaml
	configYAML []byte
)

// Descriptor couples the metadata of a charm with its config schema.
type Descriptor struct {
	Meta   *Meta
	Config *Config
}

// ReadDescriptor parses a descriptor from its metadata and config documents.
func ReadDescriptor(metadata, config []byte) (*Descriptor, error) {
	meta, err := ReadMeta(bytes.NewReader(metadata))
	if err != nil {
		return nil, errors.Trace(err)
	}
	cfg, err := ReadConfig(bytes.NewReader(config))
	if err != nil {
		return nil, errors.Trace(err)
	}
	return &Descriptor{Meta: meta, Config: cfg}, nil
}

var foxgloveStudio = mustReadDescriptor(charmcraftYAML, configYAML)

func mustReadDescriptor(metadata, config []byte) *Descriptor {
	d, err := ReadDescriptor(metadata, config)
	if err != nil {
		panic(fmt.Sprintf("embedded charm descriptor: %v", err))
	}
	return d
}

// FoxgloveStudio returns the descriptor of the Foxglove Studio charm.
func FoxgloveStudio() *Descriptor {
	return foxgloveStudio
}

// DefaultResources returns the upstream source of every oci-image
// resource, keyed by resource name.
func (d *Descriptor) DefaultResources() map[string]string {
	out := make(map[string]string)
	for _, name := range d.Meta.ImageResources() {
		out[name] = d.Meta.Resources[name].UpstreamSource
	}
	return out
}

// ServerPort returns the listen port held by the settings, falling back
// to the declared default.
func (d *Descriptor) ServerPort(settings Settings) int {
	if port, ok := d.Config.Merge(settings).Int(ServerPortOption); ok {
		return port
	}
	return 0
}
