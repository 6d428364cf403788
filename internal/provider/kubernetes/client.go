// Copyright 2024 Canonical Ltd.
// Licensed under the AGPLv3, see LICENCE file for details.

package kubernetes

import (
	"github.com/juju/errors"
	"k8s.io/client-go/kubernetes"
	"k8s.io/client-go/rest"
	"k8s.io/client-go/tools/clientcmd"
)

// ClientConfig selects the cluster to talk to. An empty KubeConfig uses
// the default loading rules ($KUBECONFIG, then ~/.kube/config).
type ClientConfig struct {
	KubeConfig string
	Context    string
}

// RESTConfig resolves the client config into a REST config.
func (c ClientConfig) RESTConfig() (*rest.Config, error) {
	rules := clientcmd.NewDefaultClientConfigLoadingRules()
	if c.KubeConfig != "" {
		rules.ExplicitPath = c.KubeConfig
	}
	overrides := &clientcmd.ConfigOverrides{}
	if c.Context != "" {
		overrides.CurrentContext = c.Context
	}
	config, err := clientcmd.NewNonInteractiveDeferredLoadingClientConfig(rules, overrides).ClientConfig()
	if err != nil {
		return nil, errors.Annotate(err, "processing kubernetes config")
	}
	return config, nil
}

// NewClient returns a clientset for the configured cluster.
func NewClient(c ClientConfig) (kubernetes.Interface, error) {
	config, err := c.RESTConfig()
	if err != nil {
		return nil, errors.Trace(err)
	}
	client, err := kubernetes.NewForConfig(config)
	if err != nil {
		return nil, errors.Annotate(err, "creating kubernetes client")
	}
	return client, nil
}
