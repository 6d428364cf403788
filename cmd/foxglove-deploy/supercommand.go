// Copyright 2024 Canonical Ltd.
// Licensed under the AGPLv3, see LICENCE file for details.

package main

import (
	"context"
	"os"
	"os/signal"
	"runtime"

	"github.com/juju/cmd/v3"
	"github.com/juju/errors"
	"github.com/juju/gnuflag"
	"github.com/juju/loggo"

	"github.com/canonical/foxglove-studio-operator/internal/charm"
	provider "github.com/canonical/foxglove-studio-operator/internal/provider/kubernetes"
)

var logger = loggo.GetLogger("foxglove.cmd.deploy")

// version is set at link time.
var version = "0.1.0"

const loggingConfigEnvKey = "FOXGLOVE_LOGGING_CONFIG"

const superDoc = `
foxglove-deploy declares the Foxglove Studio charm into a Juju model
running on Kubernetes and reports the outputs other modules integrate
against.
`

// newRuntimeFunc returns the runtime for the selected cluster.
type newRuntimeFunc func(provider.ClientConfig) (*provider.Runtime, error)

func newKubernetesRuntime(config provider.ClientConfig) (*provider.Runtime, error) {
	client, err := provider.NewClient(config)
	if err != nil {
		return nil, errors.Trace(err)
	}
	return provider.NewRuntime(client, charm.FoxgloveStudio()), nil
}

// NewSuperCommand returns the foxglove-deploy command with every
// subcommand registered.
func NewSuperCommand(newRuntime newRuntimeFunc) *cmd.SuperCommand {
	super := cmd.NewSuperCommand(cmd.SuperCommandParams{
		Name:    "foxglove-deploy",
		Purpose: "Deploy Foxglove Studio to a Juju Kubernetes model.",
		Doc:     superDoc,
		Log: &cmd.Log{
			DefaultConfig: os.Getenv(loggingConfigEnvKey),
		},
		Version:   version,
		NotifyRun: runNotifier,
	})
	super.Register(newApplyCommand(newRuntime))
	super.Register(newDestroyCommand(newRuntime))
	super.Register(&outputsCommand{})
	super.Register(&showDescriptorCommand{})
	return super
}

func runNotifier(name string) {
	logger.Infof("running %s [%s %s %s]", name, version, runtime.Compiler, runtime.Version())
}

// clusterFlags select the cluster and credentials from a kubeconfig.
type clusterFlags struct {
	kubeConfig string
	context    string
}

func (f *clusterFlags) setFlags(fs *gnuflag.FlagSet) {
	fs.StringVar(&f.kubeConfig, "kubeconfig", "", "Path to the kubeconfig file")
	fs.StringVar(&f.context, "context", "", "Kubeconfig context to use")
}

func (f *clusterFlags) clientConfig() provider.ClientConfig {
	return provider.ClientConfig{
		KubeConfig: f.kubeConfig,
		Context:    f.context,
	}
}

var formatters = map[string]cmd.Formatter{
	"yaml": cmd.FormatYaml,
	"json": cmd.FormatJson,
}

// interruptible returns a context cancelled on SIGINT.
func interruptible() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt)
}
