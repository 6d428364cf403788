// Copyright 2024 Canonical Ltd.
// Licensed under the AGPLv3, see LICENCE file for details.

package main

import (
	"github.com/juju/cmd/v3"
	"github.com/juju/errors"
	"github.com/juju/gnuflag"
	"github.com/juju/names/v5"

	"github.com/canonical/foxglove-studio-operator/internal/charm"
	"github.com/canonical/foxglove-studio-operator/internal/deployment"
)

const destroyDoc = `
Removes the application from the model. Destroying an application
that does not exist succeeds.

Examples:

    foxglove-deploy destroy --model-uuid 6e1c5d58-4e2f-4cb1-8b43-1e6b0a3c9f11
    foxglove-deploy destroy --model-uuid 6e1c5d58-4e2f-4cb1-8b43-1e6b0a3c9f11 studio
`

type destroyCommand struct {
	cmd.CommandBase
	cluster clusterFlags

	newRuntime newRuntimeFunc

	modelUUID string
	appName   string
}

func newDestroyCommand(newRuntime newRuntimeFunc) *destroyCommand {
	return &destroyCommand{newRuntime: newRuntime}
}

// Info implements cmd.Command.
func (c *destroyCommand) Info() *cmd.Info {
	return &cmd.Info{
		Name:    "destroy",
		Args:    "[<application name>]",
		Purpose: "Remove the application.",
		Doc:     destroyDoc,
	}
}

// SetFlags implements cmd.Command.
func (c *destroyCommand) SetFlags(f *gnuflag.FlagSet) {
	c.cluster.setFlags(f)
	f.StringVar(&c.modelUUID, "model-uuid", "", "UUID of the model holding the application")
}

// Init implements cmd.Command.
func (c *destroyCommand) Init(args []string) error {
	if c.modelUUID == "" {
		return errors.Annotate(deployment.ErrMissingParameter, "model-uuid")
	}
	c.appName = charm.DefaultName
	if len(args) > 0 {
		c.appName, args = args[0], args[1:]
	}
	if !names.IsValidApplication(c.appName) {
		return errors.NotValidf("application name %q", c.appName)
	}
	return cmd.CheckEmpty(args)
}

// Run implements cmd.Command.
func (c *destroyCommand) Run(ctx *cmd.Context) error {
	runtime, err := c.newRuntime(c.cluster.clientConfig())
	if err != nil {
		return errors.Trace(err)
	}
	module, err := deployment.NewModule(deployment.Config{
		Runtime:    runtime,
		Models:     runtime,
		Descriptor: charm.FoxgloveStudio(),
	})
	if err != nil {
		return errors.Trace(err)
	}

	stdCtx, cancel := interruptible()
	defer cancel()
	if err := module.Destroy(stdCtx, c.modelUUID, c.appName); err != nil {
		return errors.Trace(err)
	}
	ctx.Infof("destroyed %q", c.appName)
	return nil
}
