// Copyright 2024 Canonical Ltd.
// Licensed under the AGPLv3, see LICENCE file for details.

// Package workload implements the hooks of the Foxglove Studio charm: it
// keeps the pebble plan of the workload container in line with the charm
// config and publishes the studio to its ingress, catalogue and probes
// relations.
package workload

import (
	"fmt"
	"strings"

	"github.com/juju/collections/set"
	"github.com/juju/errors"
	"github.com/juju/loggo"
	"github.com/juju/names/v5"

	"github.com/canonical/foxglove-studio-operator/internal/charm"
	"github.com/canonical/foxglove-studio-operator/internal/hookenv"
)

var logger = loggo.GetLogger("foxglove.workload")

const (
	ingressEndpoint   = "ingress"
	catalogueEndpoint = "catalogue"
	probesEndpoint    = "probes"

	sshPort = 22
)

// HookTools runs the hook tools of the unit agent.
type HookTools interface {
	StatusSet(status hookenv.Status, message string) error
	IsLeader() (bool, error)
	ConfigGet() (map[string]interface{}, error)
	OpenPort(port hookenv.Port) error
	ClosePort(port hookenv.Port) error
	OpenedPorts() ([]hookenv.Port, error)
	RelationIDs(endpoint string) ([]string, error)
	RelationList(relationID string) ([]string, error)
	RelationGet(relationID, unitOrApp string, app bool) (map[string]string, error)
	RelationSet(relationID string, settings map[string]string, app bool) error
	FQDN() (string, error)
}

// Config holds the dependencies of a Charm.
type Config struct {
	Environment hookenv.Environment
	Tools       HookTools
	Pebble      Pebble
	Descriptor  *charm.Descriptor
}

// Validate checks the config is usable.
func (c Config) Validate() error {
	if c.Tools == nil {
		return errors.NotValidf("nil Tools")
	}
	if c.Pebble == nil {
		return errors.NotValidf("nil Pebble")
	}
	if c.Descriptor == nil {
		return errors.NotValidf("nil Descriptor")
	}
	if c.Environment.UnitName == "" {
		return errors.NotValidf("empty unit name")
	}
	return nil
}

// Charm handles a single hook invocation.
type Charm struct {
	config Config
	topo   topology
}

// NewCharm returns a Charm for the hook environment in config.
func NewCharm(config Config) (*Charm, error) {
	if err := config.Validate(); err != nil {
		return nil, errors.Trace(err)
	}
	env := config.Environment
	return &Charm{
		config: config,
		topo: topology{
			Model:       env.ModelName,
			ModelUUID:   env.ModelUUID,
			Application: env.ApplicationName,
			Unit:        env.UnitName,
		},
	}, nil
}

// Run dispatches the current hook. Hooks the charm does not observe are
// ignored.
func (c *Charm) Run() error {
	hook := c.config.Environment.HookName
	switch {
	case hook == "install":
		return errors.Trace(c.syncPorts())
	case hook == "upgrade-charm",
		hook == "leader-elected",
		hook == "config-changed",
		hook == c.pebbleReadyHook(),
		c.isRelationHook(hook):
		logger.Debugf("handling %q", hook)
		return errors.Trace(c.reconcile())
	}
	logger.Debugf("ignoring %q", hook)
	return nil
}

func (c *Charm) pebbleReadyHook() string {
	return charm.ContainerName + "-pebble-ready"
}

func (c *Charm) isRelationHook(hook string) bool {
	for _, endpoint := range []string{ingressEndpoint, catalogueEndpoint, probesEndpoint} {
		for _, kind := range []string{"joined", "changed", "broken"} {
			if hook == fmt.Sprintf("%s-relation-%s", endpoint, kind) {
				return true
			}
		}
	}
	return false
}

// reconcile converges the workload and relations on the current config.
func (c *Charm) reconcile() error {
	tools := c.config.Tools
	port, err := c.serverPort()
	if err != nil {
		return errors.Trace(err)
	}
	if msg := validatePort(port); msg != "" {
		logger.Warningf("%s", msg)
		return errors.Trace(tools.StatusSet(hookenv.Blocked, msg))
	}
	if err := tools.StatusSet(hookenv.Maintenance, "Assembling pod spec"); err != nil {
		return errors.Trace(err)
	}

	leader, err := tools.IsLeader()
	if err != nil {
		return errors.Trace(err)
	}
	if err := c.setPorts(leader, port); err != nil {
		return errors.Trace(err)
	}
	if leader {
		if err := c.publish(port); err != nil {
			return errors.Trace(err)
		}
	}

	if _, err := c.config.Pebble.SysInfo(); err != nil {
		logger.Infof("pebble not reachable: %v", err)
		return errors.Trace(tools.StatusSet(hookenv.Waiting, "Waiting for Pebble in workload container"))
	}
	if _, err := ensureLayer(c.config.Pebble, NewLayer(port)); err != nil {
		return errors.Trace(err)
	}
	return errors.Trace(tools.StatusSet(hookenv.Active, ""))
}

// validatePort returns the blocked status message for an unusable port.
func validatePort(port int) string {
	if port == sshPort {
		return "invalid port number, 22 is reserved for SSH"
	}
	if port < 1 || port > 65535 {
		return fmt.Sprintf("invalid port number %d", port)
	}
	return ""
}

func (c *Charm) serverPort() (int, error) {
	settings, err := c.config.Tools.ConfigGet()
	if err != nil {
		return 0, errors.Annotate(err, "reading charm config")
	}
	return c.config.Descriptor.ServerPort(settings), nil
}

// syncPorts opens the configured port on the leader.
func (c *Charm) syncPorts() error {
	port, err := c.serverPort()
	if err != nil {
		return errors.Trace(err)
	}
	leader, err := c.config.Tools.IsLeader()
	if err != nil {
		return errors.Trace(err)
	}
	if validatePort(port) != "" {
		return nil
	}
	return errors.Trace(c.setPorts(leader, port))
}

// setPorts opens the server port on the leader and closes every other
// opened port.
func (c *Charm) setPorts(leader bool, port int) error {
	tools := c.config.Tools
	opened, err := tools.OpenedPorts()
	if err != nil {
		return errors.Trace(err)
	}
	planned := set.NewStrings()
	if leader {
		planned.Add(hookenv.Port{Protocol: "tcp", Number: port}.String())
	}
	current := set.NewStrings()
	for _, p := range opened {
		current.Add(p.String())
		if planned.Contains(p.String()) {
			continue
		}
		if err := tools.ClosePort(p); err != nil {
			return errors.Annotatef(err, "closing %s", p)
		}
	}
	for _, p := range planned.Difference(current).SortedValues() {
		parsed, err := hookenv.ParsePort(p)
		if err != nil {
			return errors.Trace(err)
		}
		if err := tools.OpenPort(parsed); err != nil {
			return errors.Annotatef(err, "opening %s", p)
		}
	}
	return nil
}

// relationIDs lists the live relations of the endpoint. The relation
// being broken is excluded.
func (c *Charm) relationIDs(endpoint string) ([]string, error) {
	ids, err := c.config.Tools.RelationIDs(endpoint)
	if err != nil {
		return nil, errors.Trace(err)
	}
	env := c.config.Environment
	if !strings.HasSuffix(env.HookName, "-relation-broken") {
		return ids, nil
	}
	var out []string
	for _, id := range ids {
		if id != env.RelationID {
			out = append(out, id)
		}
	}
	return out, nil
}

// remoteApplication returns the application on the other side of the
// relation, or "" when it has no units yet.
func (c *Charm) remoteApplication(relationID string) (string, error) {
	env := c.config.Environment
	if env.RelationID == relationID && env.RemoteApp != "" {
		return env.RemoteApp, nil
	}
	units, err := c.config.Tools.RelationList(relationID)
	if err != nil {
		return "", errors.Trace(err)
	}
	for _, unit := range units {
		if names.IsValidUnit(unit) {
			return names.UnitApplication(unit)
		}
	}
	return "", nil
}

// publish writes the application databags of the ingress, catalogue and
// probes relations.
func (c *Charm) publish(port int) error {
	fqdn, err := c.config.Tools.FQDN()
	if err != nil {
		return errors.Trace(err)
	}
	ingress, err := c.configureIngress(fqdn, port)
	if err != nil {
		return errors.Annotate(err, "configuring ingress")
	}
	url := externalURL(c.topo, ingress, fqdn, port)
	logger.Debugf("studio URL is %s", url)

	if err := c.setAll(catalogueEndpoint, studioCatalogueItem(url).databag()); err != nil {
		return errors.Annotate(err, "updating catalogue")
	}
	probes, err := probesDatabag(c.topo, studioProbes(url), nil)
	if err != nil {
		return errors.Trace(err)
	}
	return errors.Annotate(c.setAll(probesEndpoint, probes), "updating probes")
}

// configureIngress submits the traefik config and returns what the
// ingress provider publishes, if anything.
func (c *Charm) configureIngress(fqdn string, port int) (ingressEndpointData, error) {
	var published ingressEndpointData
	ids, err := c.relationIDs(ingressEndpoint)
	if err != nil || len(ids) == 0 {
		return published, errors.Trace(err)
	}
	config, err := ingressConfig(c.topo, fqdn, port)
	if err != nil {
		return published, errors.Trace(err)
	}
	for _, id := range ids {
		if err := c.config.Tools.RelationSet(id, map[string]string{"config": string(config)}, true); err != nil {
			return published, errors.Trace(err)
		}
		app, err := c.remoteApplication(id)
		if err != nil {
			return published, errors.Trace(err)
		}
		if app == "" || published.ExternalHost != "" {
			continue
		}
		data, err := c.config.Tools.RelationGet(id, app, true)
		if err != nil {
			return published, errors.Trace(err)
		}
		published = ingressEndpointData{
			ExternalHost: data["external_host"],
			Scheme:       data["scheme"],
		}
	}
	return published, nil
}

func (c *Charm) setAll(endpoint string, settings map[string]string) error {
	ids, err := c.relationIDs(endpoint)
	if err != nil {
		return errors.Trace(err)
	}
	for _, id := range ids {
		if err := c.config.Tools.RelationSet(id, settings, true); err != nil {
			return errors.Trace(err)
		}
	}
	return nil
}
