// Copyright 2024 Canonical Ltd.
// Licensed under the AGPLv3, see LICENCE file for details.

package hookenv

import (
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/juju/errors"
	"github.com/juju/loggo"
	"github.com/juju/utils/v4/exec"
	"github.com/kballard/go-shellquote"
	"gopkg.in/yaml.v3"
)

var logger = loggo.GetLogger("foxglove.hookenv")

// Status is a workload status value.
type Status string

const (
	Active      Status = "active"
	Blocked     Status = "blocked"
	Maintenance Status = "maintenance"
	Waiting     Status = "waiting"
)

// Port is an opened port range of the unit.
type Port struct {
	Protocol string
	Number   int
}

func (p Port) String() string {
	return fmt.Sprintf("%d/%s", p.Number, p.Protocol)
}

// ParsePort parses a port as reported by opened-ports, e.g. "8080/tcp".
func ParsePort(s string) (Port, error) {
	num, proto, ok := strings.Cut(s, "/")
	if !ok {
		return Port{}, errors.NotValidf("port %q", s)
	}
	n, err := strconv.Atoi(num)
	if err != nil {
		return Port{}, errors.NotValidf("port %q", s)
	}
	return Port{Protocol: proto, Number: n}, nil
}

// RunFunc runs a shell script and returns its response.
type RunFunc func(params exec.RunParams) (*exec.ExecResponse, error)

// Tools runs hook tools on behalf of the charm.
type Tools struct {
	run     RunFunc
	env     []string
	tempDir string
}

// NewTools returns Tools running commands with exec.RunCommands in the
// current process environment.
func NewTools() *Tools {
	return NewToolsWithRunner(exec.RunCommands, os.Environ(), os.TempDir())
}

// NewToolsWithRunner returns Tools running commands with run. Files
// passed to tools are written in tempDir.
func NewToolsWithRunner(run RunFunc, env []string, tempDir string) *Tools {
	return &Tools{run: run, env: env, tempDir: tempDir}
}

// command runs the tool with the quoted arguments and returns its
// standard output.
func (t *Tools) command(name string, args ...string) ([]byte, error) {
	line := shellquote.Join(append([]string{name}, args...)...)
	logger.Tracef("running %s", line)
	resp, err := t.run(exec.RunParams{
		Commands:    line,
		Environment: t.env,
	})
	if err != nil {
		return nil, errors.Annotatef(err, "running %s", name)
	}
	if resp.Code != 0 {
		stderr := strings.TrimSpace(string(resp.Stderr))
		return nil, errors.Errorf("%s failed with exit code %d: %s", name, resp.Code, stderr)
	}
	return resp.Stdout, nil
}

func (t *Tools) commandJSON(out interface{}, name string, args ...string) error {
	data, err := t.command(name, append([]string{"--format=json"}, args...)...)
	if err != nil {
		return errors.Trace(err)
	}
	if len(strings.TrimSpace(string(data))) == 0 {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return errors.Annotatef(err, "decoding %s output", name)
	}
	return nil
}

// StatusSet sets the workload status of the unit.
func (t *Tools) StatusSet(status Status, message string) error {
	_, err := t.command("status-set", string(status), message)
	return errors.Trace(err)
}

// IsLeader reports whether the unit is the application leader.
func (t *Tools) IsLeader() (bool, error) {
	var leader bool
	err := t.commandJSON(&leader, "is-leader")
	return leader, errors.Trace(err)
}

// ConfigGet returns the application config of the unit.
func (t *Tools) ConfigGet() (map[string]interface{}, error) {
	config := map[string]interface{}{}
	err := t.commandJSON(&config, "config-get")
	return config, errors.Trace(err)
}

// OpenPort opens the port on the unit.
func (t *Tools) OpenPort(port Port) error {
	_, err := t.command("open-port", port.String())
	return errors.Trace(err)
}

// ClosePort closes the port on the unit.
func (t *Tools) ClosePort(port Port) error {
	_, err := t.command("close-port", port.String())
	return errors.Trace(err)
}

// OpenedPorts returns the ports opened by the unit.
func (t *Tools) OpenedPorts() ([]Port, error) {
	var raw []string
	if err := t.commandJSON(&raw, "opened-ports"); err != nil {
		return nil, errors.Trace(err)
	}
	ports := make([]Port, 0, len(raw))
	for _, s := range raw {
		p, err := ParsePort(s)
		if err != nil {
			logger.Warningf("ignoring opened port: %v", err)
			continue
		}
		ports = append(ports, p)
	}
	return ports, nil
}

// RelationIDs returns the ids of the relations established on the
// endpoint.
func (t *Tools) RelationIDs(endpoint string) ([]string, error) {
	var ids []string
	err := t.commandJSON(&ids, "relation-ids", endpoint)
	return ids, errors.Trace(err)
}

// RelationList returns the remote units of the relation.
func (t *Tools) RelationList(relationID string) ([]string, error) {
	var units []string
	err := t.commandJSON(&units, "relation-list", "-r", relationID)
	return units, errors.Trace(err)
}

// RelationGet returns the databag of the named unit, or of its
// application when app is set.
func (t *Tools) RelationGet(relationID, unitOrApp string, app bool) (map[string]string, error) {
	args := []string{"-r", relationID}
	if app {
		args = append(args, "--app")
	}
	args = append(args, "-", unitOrApp)
	data := map[string]string{}
	err := t.commandJSON(&data, "relation-get", args...)
	return data, errors.Trace(err)
}

// RelationSet writes the settings to the local databag of the relation,
// the application databag when app is set. An empty value deletes the
// key.
func (t *Tools) RelationSet(relationID string, settings map[string]string, app bool) error {
	data, err := yaml.Marshal(settings)
	if err != nil {
		return errors.Trace(err)
	}
	f, err := os.CreateTemp(t.tempDir, "relation-set-*.yaml")
	if err != nil {
		return errors.Trace(err)
	}
	defer func() { _ = os.Remove(f.Name()) }()
	if _, err := f.Write(data); err != nil {
		_ = f.Close()
		return errors.Trace(err)
	}
	if err := f.Close(); err != nil {
		return errors.Trace(err)
	}

	args := []string{"-r", relationID}
	if app {
		args = append(args, "--app")
	}
	args = append(args, "--file", f.Name())
	_, err = t.command("relation-set", args...)
	return errors.Trace(err)
}

// FQDN returns the fully qualified domain name of the unit.
func (t *Tools) FQDN() (string, error) {
	out, err := t.command("hostname", "-f")
	if err != nil {
		return "", errors.Trace(err)
	}
	return strings.TrimSpace(string(out)), nil
}
