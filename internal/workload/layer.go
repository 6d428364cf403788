// Copyright 2024 Canonical Ltd.
// Licensed under the AGPLv3, see LICENCE file for details.

package workload

import (
	"fmt"
	"reflect"
	"time"

	"github.com/canonical/pebble/client"
	"github.com/juju/errors"
	"gopkg.in/yaml.v3"
)

const (
	// ServiceName is the pebble service running the workload.
	ServiceName = "studio"

	// LayerLabel labels the layer added to the pebble plan.
	LayerLabel = "foxglove-studio"

	layerSummary   = "Foxglove-studio k8s layer"
	serviceSummary = "foxglove-studio-k8s service"

	restartTimeout = 30 * time.Second
)

// Service is a pebble service definition.
type Service struct {
	Override string `yaml:"override"`
	Summary  string `yaml:"summary"`
	Command  string `yaml:"command"`
	Startup  string `yaml:"startup"`
}

// Layer is a pebble layer.
type Layer struct {
	Summary     string             `yaml:"summary,omitempty"`
	Description string             `yaml:"description,omitempty"`
	Services    map[string]Service `yaml:"services"`
}

// NewLayer returns the layer serving the studio on the port.
func NewLayer(port int) Layer {
	return Layer{
		Summary:     layerSummary,
		Description: layerSummary,
		Services: map[string]Service{
			ServiceName: {
				Override: "replace",
				Summary:  serviceSummary,
				Command:  fmt.Sprintf("caddy file-server --listen :%d --root foxglove", port),
				Startup:  "enabled",
			},
		},
	}
}

// planServices reads the services of a pebble plan.
func planServices(data []byte) (map[string]Service, error) {
	var plan struct {
		Services map[string]Service `yaml:"services"`
	}
	if err := yaml.Unmarshal(data, &plan); err != nil {
		return nil, errors.Annotate(err, "parsing pebble plan")
	}
	return plan.Services, nil
}

// Pebble is the subset of the pebble client used by the charm.
type Pebble interface {
	SysInfo() (*client.SysInfo, error)
	PlanBytes(opts *client.PlanOptions) ([]byte, error)
	AddLayer(opts *client.AddLayerOptions) error
	Restart(opts *client.ServiceOptions) (string, error)
	WaitChange(id string, opts *client.WaitChangeOptions) (*client.Change, error)
}

// ensureLayer adds the layer to the plan and restarts the service when
// the planned services differ from the layer's. It reports whether the
// plan changed.
func ensureLayer(pebble Pebble, layer Layer) (bool, error) {
	data, err := pebble.PlanBytes(&client.PlanOptions{})
	if err != nil {
		return false, errors.Annotate(err, "getting pebble plan")
	}
	current, err := planServices(data)
	if err != nil {
		return false, errors.Trace(err)
	}
	if reflect.DeepEqual(current, layer.Services) {
		return false, nil
	}

	layerData, err := yaml.Marshal(layer)
	if err != nil {
		return false, errors.Trace(err)
	}
	err = pebble.AddLayer(&client.AddLayerOptions{
		Combine:   true,
		Label:     LayerLabel,
		LayerData: layerData,
	})
	if err != nil {
		return false, errors.Annotate(err, "adding pebble layer")
	}
	logger.Infof("added updated layer %q to pebble plan", LayerLabel)

	changeID, err := pebble.Restart(&client.ServiceOptions{Names: []string{ServiceName}})
	if err != nil {
		return true, errors.Annotatef(err, "restarting %q", ServiceName)
	}
	change, err := pebble.WaitChange(changeID, &client.WaitChangeOptions{Timeout: restartTimeout})
	if err != nil {
		return true, errors.Annotatef(err, "waiting for restart of %q", ServiceName)
	}
	if change.Err != "" {
		return true, errors.Errorf("restarting %q: %s", ServiceName, change.Err)
	}
	logger.Infof("restarted %q service", ServiceName)
	return true, nil
}
