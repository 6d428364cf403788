// Copyright 2024 Canonical Ltd.
// Licensed under the AGPLv3, see LICENCE file for details.

// Command foxglove-charm is the dispatch entry point of the Foxglove
// Studio charm. The unit agent runs it once per hook.
package main

import (
	"fmt"
	"os"

	"github.com/canonical/pebble/client"
	"github.com/juju/errors"
	"github.com/juju/loggo"

	"github.com/canonical/foxglove-studio-operator/internal/charm"
	"github.com/canonical/foxglove-studio-operator/internal/hookenv"
	"github.com/canonical/foxglove-studio-operator/internal/workload"
)

var logger = loggo.GetLogger("foxglove.cmd.charm")

var (
	_ workload.HookTools = (*hookenv.Tools)(nil)
	_ workload.Pebble    = (*client.Client)(nil)
)

const (
	loggingConfigEnvKey = "FOXGLOVE_LOGGING_CONFIG"
	defaultLogging      = "<root>=INFO"
)

func pebbleSocket(container string) string {
	return fmt.Sprintf("/charm/containers/%s/pebble.socket", container)
}

func main() {
	if err := configureLogging(os.Getenv(loggingConfigEnvKey)); err != nil {
		fmt.Fprintf(os.Stderr, "ERROR parsing %s: %v\n", loggingConfigEnvKey, err)
	}
	if err := run(); err != nil {
		logger.Errorf("%v", err)
		os.Exit(1)
	}
}

func configureLogging(config string) error {
	if config == "" {
		config = defaultLogging
	}
	return loggo.ConfigureLoggers(config)
}

func run() error {
	env, err := hookenv.ReadEnvironment(os.Getenv)
	if err != nil {
		return errors.Annotate(err, "reading hook environment")
	}
	pebble, err := client.New(&client.Config{Socket: pebbleSocket(charm.ContainerName)})
	if err != nil {
		return errors.Annotate(err, "creating pebble client")
	}
	ch, err := workload.NewCharm(workload.Config{
		Environment: env,
		Tools:       hookenv.NewTools(),
		Pebble:      pebble,
		Descriptor:  charm.FoxgloveStudio(),
	})
	if err != nil {
		return errors.Trace(err)
	}
	logger.Debugf("running %q for %s", env.HookName, env.UnitName)
	return errors.Annotatef(ch.Run(), "running %q", env.HookName)
}
