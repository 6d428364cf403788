// Copyright 2024 Canonical Ltd.
// Licensed under the AGPLv3, see LICENCE file for details.

package main

import (
	"os"
	"time"

	"github.com/juju/clock"
	"github.com/juju/cmd/v3"
	"github.com/juju/errors"
	"github.com/juju/gnuflag"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/canonical/foxglove-studio-operator/internal/charm"
	"github.com/canonical/foxglove-studio-operator/internal/deployment"
)

const (
	defaultWaitTimeout = 10 * time.Minute
	defaultPollDelay   = 2 * time.Second
)

const applyDoc = `
Reads module parameters from a YAML file and converges the application
to them. The first apply for a model and application name deploys the
application; later applies update it in place.

Omitted parameters take their defaults; model_uuid is required.

Examples:

    foxglove-deploy apply params.yaml
    foxglove-deploy apply --wait --timeout 5m params.yaml
`

type applyCommand struct {
	cmd.CommandBase
	cluster clusterFlags
	out     cmd.Output

	newRuntime newRuntimeFunc
	clock      clock.Clock
	pollDelay  time.Duration

	paramsFile     string
	wait           bool
	timeout        time.Duration
	metricsOutFile string
}

func newApplyCommand(newRuntime newRuntimeFunc) *applyCommand {
	return &applyCommand{
		newRuntime: newRuntime,
		clock:      clock.WallClock,
		pollDelay:  defaultPollDelay,
	}
}

// Info implements cmd.Command.
func (c *applyCommand) Info() *cmd.Info {
	return &cmd.Info{
		Name:    "apply",
		Args:    "<params.yaml>",
		Purpose: "Deploy or update the application.",
		Doc:     applyDoc,
	}
}

// SetFlags implements cmd.Command.
func (c *applyCommand) SetFlags(f *gnuflag.FlagSet) {
	c.cluster.setFlags(f)
	f.BoolVar(&c.wait, "wait", false, "Wait for all units to be ready")
	f.DurationVar(&c.timeout, "timeout", defaultWaitTimeout, "How long to wait for units")
	f.StringVar(&c.metricsOutFile, "metrics-textfile", "", "Write operation metrics to this file in the prometheus text format")
	c.out.AddFlags(f, "yaml", formatters)
}

// Init implements cmd.Command.
func (c *applyCommand) Init(args []string) error {
	if len(args) == 0 {
		return errors.New("no parameters file specified")
	}
	c.paramsFile = args[0]
	if c.timeout <= 0 {
		return errors.NotValidf("timeout %v", c.timeout)
	}
	return cmd.CheckEmpty(args[1:])
}

// Run implements cmd.Command.
func (c *applyCommand) Run(ctx *cmd.Context) error {
	params, err := c.readParams(ctx)
	if err != nil {
		return errors.Trace(err)
	}
	runtime, err := c.newRuntime(c.cluster.clientConfig())
	if err != nil {
		return errors.Trace(err)
	}

	metrics := deployment.NewMetricsCollector()
	module, err := deployment.NewModule(deployment.Config{
		Runtime:    runtime,
		Models:     runtime,
		Descriptor: charm.FoxgloveStudio(),
		Clock:      c.clock,
		Metrics:    metrics,
	})
	if err != nil {
		return errors.Trace(err)
	}

	stdCtx, cancel := interruptible()
	defer cancel()

	outputs, err := module.Apply(stdCtx, params)
	if mErr := c.writeMetrics(metrics); mErr != nil {
		logger.Warningf("writing metrics: %v", mErr)
	}
	if err != nil {
		return errors.Trace(err)
	}
	ctx.Infof("applied %q to model %s", params.AppName, params.ModelUUID)

	if c.wait {
		model, err := runtime.ModelByUUID(stdCtx, params.ModelUUID)
		if err != nil {
			return errors.Trace(err)
		}
		status, err := deployment.WaitForUnits(stdCtx, deployment.WaitArgs{
			Runtime: runtime,
			Model:   model,
			Name:    params.AppName,
			Units:   params.Units,
			Clock:   c.clock,
			Delay:   c.pollDelay,
			Timeout: c.timeout,
		})
		if err != nil {
			return errors.Trace(err)
		}
		ctx.Infof("%d/%d units ready", status.ReadyUnits, status.Units)
	}
	return c.out.Write(ctx, outputs)
}

func (c *applyCommand) readParams(ctx *cmd.Context) (deployment.Params, error) {
	f, err := os.Open(ctx.AbsPath(c.paramsFile))
	if err != nil {
		return deployment.Params{}, errors.Annotate(err, "opening parameters")
	}
	defer func() { _ = f.Close() }()
	params, err := deployment.ReadParams(f)
	return params, errors.Annotatef(err, "reading %s", c.paramsFile)
}

func (c *applyCommand) writeMetrics(collector *deployment.Collector) error {
	if c.metricsOutFile == "" {
		return nil
	}
	registry := prometheus.NewRegistry()
	if err := registry.Register(collector); err != nil {
		return errors.Trace(err)
	}
	return errors.Trace(prometheus.WriteToTextfile(c.metricsOutFile, registry))
}
