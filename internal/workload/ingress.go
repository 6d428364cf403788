// Copyright 2024 Canonical Ltd.
// Licensed under the AGPLv3, see LICENCE file for details.

package workload

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/juju/errors"
	"gopkg.in/yaml.v3"
)

// defaultDomain is the cluster domain used when it cannot be read from
// the unit's FQDN.
const defaultDomain = "svc.cluster.local"

type traefikConfig struct {
	HTTP traefikHTTP `yaml:"http"`
}

type traefikHTTP struct {
	Routers  map[string]traefikRouter  `yaml:"routers"`
	Services map[string]traefikService `yaml:"services"`
}

type traefikRouter struct {
	EntryPoints []string `yaml:"entryPoints"`
	Rule        string   `yaml:"rule"`
	Service     string   `yaml:"service"`
}

type traefikService struct {
	LoadBalancer traefikLoadBalancer `yaml:"loadBalancer"`
}

type traefikLoadBalancer struct {
	Servers []traefikServer `yaml:"servers"`
}

type traefikServer struct {
	URL string `yaml:"url"`
}

// ingressEndpointData is published by the ingress provider.
type ingressEndpointData struct {
	ExternalHost string
	Scheme       string
}

// topology locates the unit.
type topology struct {
	Model       string
	ModelUUID   string
	Application string
	Unit        string
}

func (t topology) unitDashed() string {
	return strings.ReplaceAll(t.Unit, "/", "-")
}

// pathPrefix is the path the application is exposed under.
func (t topology) pathPrefix() string {
	return fmt.Sprintf("%s-%s", t.Model, t.Application)
}

// clusterDomain extracts the cluster domain from the FQDN of a unit, e.g.
// "svc.cluster.local" from
// "foxglove-studio-0.foxglove-studio-endpoints.robotics.svc.cluster.local".
func clusterDomain(t topology, fqdn string) (string, bool) {
	pattern := fmt.Sprintf(`^%s\..*?%s\.`, regexp.QuoteMeta(t.unitDashed()), regexp.QuoteMeta(t.Model))
	parts := regexp.MustCompile(pattern).Split(fqdn, 2)
	if len(parts) != 2 || parts[1] == "" {
		return "", false
	}
	return parts[1], true
}

// ingressConfig renders the raw traefik configuration routing the path
// prefix of the application to the unit.
func ingressConfig(t topology, fqdn string, port int) ([]byte, error) {
	domain, ok := clusterDomain(t, fqdn)
	if !ok {
		logger.Warningf("cannot read cluster domain from %q, using %q", fqdn, defaultDomain)
		domain = defaultDomain
	}
	router := fmt.Sprintf("juju-%s-%s-router", t.Model, t.Application)
	service := fmt.Sprintf("juju-%s-%s-service", t.Model, t.Application)
	config := traefikConfig{
		HTTP: traefikHTTP{
			Routers: map[string]traefikRouter{
				router: {
					EntryPoints: []string{"web"},
					Rule:        fmt.Sprintf("PathPrefix(`/%s`)", t.pathPrefix()),
					Service:     service,
				},
			},
			Services: map[string]traefikService{
				service: {
					LoadBalancer: traefikLoadBalancer{
						Servers: []traefikServer{{
							URL: fmt.Sprintf("http://%s.%s-endpoints.%s.%s:%d/",
								t.unitDashed(), t.Application, t.Model, domain, port),
						}},
					},
				},
			},
		},
	}
	data, err := yaml.Marshal(config)
	return data, errors.Trace(err)
}

// externalURL is the URL the studio is reachable at: behind the ingress
// once it publishes an external host, otherwise on the unit directly.
func externalURL(t topology, ingress ingressEndpointData, fqdn string, port int) string {
	if ingress.ExternalHost != "" {
		scheme := ingress.Scheme
		if scheme == "" {
			scheme = "http"
		}
		return fmt.Sprintf("%s://%s/%s", scheme, ingress.ExternalHost, t.pathPrefix())
	}
	return fmt.Sprintf("http://%s:%d", fqdn, port)
}
