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

type outputsCommand struct {
	cmd.CommandBase
	out cmd.Output

	appName string
}

// Info implements cmd.Command.
func (c *outputsCommand) Info() *cmd.Info {
	return &cmd.Info{
		Name:    "outputs",
		Args:    "[<application name>]",
		Purpose: "Show the module outputs without contacting the cluster.",
	}
}

// SetFlags implements cmd.Command.
func (c *outputsCommand) SetFlags(f *gnuflag.FlagSet) {
	c.out.AddFlags(f, "yaml", formatters)
}

// Init implements cmd.Command.
func (c *outputsCommand) Init(args []string) error {
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
func (c *outputsCommand) Run(ctx *cmd.Context) error {
	return c.out.Write(ctx, deployment.OutputsFor(c.appName))
}

type showDescriptorCommand struct {
	cmd.CommandBase
	out cmd.Output
}

// descriptorView is the printed form of the charm descriptor.
type descriptorView struct {
	Name       string                `yaml:"name" json:"name"`
	Summary    string                `yaml:"summary" json:"summary"`
	Containers map[string]string     `yaml:"containers" json:"containers"`
	Resources  map[string]string     `yaml:"resources" json:"resources"`
	Requires   map[string]string     `yaml:"requires" json:"requires"`
	Provides   map[string]string     `yaml:"provides" json:"provides"`
	Options    map[string]optionView `yaml:"options" json:"options"`
}

type optionView struct {
	Type    string      `yaml:"type" json:"type"`
	Default interface{} `yaml:"default,omitempty" json:"default,omitempty"`
}

// Info implements cmd.Command.
func (c *showDescriptorCommand) Info() *cmd.Info {
	return &cmd.Info{
		Name:    "show-descriptor",
		Purpose: "Show the charm metadata and config schema.",
	}
}

// SetFlags implements cmd.Command.
func (c *showDescriptorCommand) SetFlags(f *gnuflag.FlagSet) {
	c.out.AddFlags(f, "yaml", formatters)
}

// Init implements cmd.Command.
func (c *showDescriptorCommand) Init(args []string) error {
	return cmd.CheckEmpty(args)
}

// Run implements cmd.Command.
func (c *showDescriptorCommand) Run(ctx *cmd.Context) error {
	return c.out.Write(ctx, newDescriptorView(charm.FoxgloveStudio()))
}

func newDescriptorView(d *charm.Descriptor) descriptorView {
	view := descriptorView{
		Name:       d.Meta.Name,
		Summary:    d.Meta.Summary,
		Containers: make(map[string]string),
		Resources:  d.DefaultResources(),
		Requires:   make(map[string]string),
		Provides:   make(map[string]string),
		Options:    make(map[string]optionView),
	}
	for name, container := range d.Meta.Containers {
		view.Containers[name] = container.Resource
	}
	for _, rel := range d.Meta.Relations() {
		switch rel.Role {
		case charm.RoleRequirer:
			view.Requires[rel.Name] = rel.Interface
		case charm.RoleProvider:
			view.Provides[rel.Name] = rel.Interface
		}
	}
	for name, option := range d.Config.Options {
		view.Options[name] = optionView{Type: option.Type, Default: option.Default}
	}
	return view
}
