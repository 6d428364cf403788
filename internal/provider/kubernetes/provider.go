// Copyright 2024 Canonical Ltd.
// Licensed under the AGPLv3, see LICENCE file for details.

// Package kubernetes implements the deployment runtime on a Kubernetes
// cluster. A model is a namespace labelled with the model UUID; an
// application is a statefulset fronted by a service and a headless
// service giving each unit a stable DNS name.
package kubernetes

import (
	"context"
	"reflect"

	"github.com/juju/errors"
	"github.com/juju/loggo"
	corev1 "k8s.io/api/core/v1"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/apimachinery/pkg/labels"
	"k8s.io/client-go/kubernetes"

	"github.com/canonical/foxglove-studio-operator/internal/charm"
	"github.com/canonical/foxglove-studio-operator/internal/deployment"
	"github.com/canonical/foxglove-studio-operator/internal/provider/kubernetes/constants"
	"github.com/canonical/foxglove-studio-operator/internal/provider/kubernetes/resources"
)

var logger = loggo.GetLogger("foxglove.provider.kubernetes")

// Runtime is a deployment.Runtime and deployment.ModelLookup backed by a
// Kubernetes cluster.
type Runtime struct {
	client     kubernetes.Interface
	descriptor *charm.Descriptor
}

var (
	_ deployment.Runtime     = (*Runtime)(nil)
	_ deployment.ModelLookup = (*Runtime)(nil)
)

// NewRuntime returns a runtime using the client. Config settings are
// validated against the descriptor before any write.
func NewRuntime(client kubernetes.Interface, descriptor *charm.Descriptor) *Runtime {
	return &Runtime{
		client:     client,
		descriptor: descriptor,
	}
}

// ModelByUUID is part of the deployment.ModelLookup interface.
func (r *Runtime) ModelByUUID(ctx context.Context, uuid string) (deployment.Model, error) {
	selector := labels.SelectorFromSet(labels.Set{constants.LabelJujuModelUUID: uuid})
	namespaces, err := r.client.CoreV1().Namespaces().List(ctx, metav1.ListOptions{
		LabelSelector: selector.String(),
	})
	if err != nil {
		return deployment.Model{}, errors.Trace(err)
	}
	switch len(namespaces.Items) {
	case 0:
		return deployment.Model{}, errors.NotFoundf("model %q", uuid)
	case 1:
	default:
		return deployment.Model{}, errors.Errorf("model %q matches %d namespaces", uuid, len(namespaces.Items))
	}
	ns := namespaces.Items[0]
	name := ns.Labels[constants.LabelJujuModelName]
	if name == "" {
		name = ns.Name
	}
	return deployment.Model{
		UUID:      uuid,
		Name:      name,
		Namespace: ns.Name,
	}, nil
}

// Application is part of the deployment.Runtime interface.
func (r *Runtime) Application(ctx context.Context, model deployment.Model, name string) (deployment.ApplicationSpec, error) {
	sts := r.statefulSetResource(model, name)
	if err := sts.Get(ctx); errors.Is(err, errors.NotFound) {
		return deployment.ApplicationSpec{}, errors.NotFoundf("application %q in model %q", name, model.Name)
	} else if err != nil {
		return deployment.ApplicationSpec{}, errors.Trace(err)
	}
	spec, err := applicationSpec(model, &sts.StatefulSet)
	return spec, errors.Trace(err)
}

// Deploy is part of the deployment.Runtime interface.
func (r *Runtime) Deploy(ctx context.Context, spec deployment.ApplicationSpec) error {
	port, err := r.serverPort(spec)
	if err != nil {
		return errors.Trace(err)
	}
	existing := r.statefulSetResource(spec.Model, spec.Name)
	if err := existing.Get(ctx); err == nil {
		return errors.AlreadyExistsf("application %q in model %q", spec.Name, spec.Model.Name)
	} else if !errors.Is(err, errors.NotFound) {
		return errors.Trace(err)
	}

	in, err := statefulSet(spec, port)
	if err != nil {
		return errors.Trace(err)
	}
	app, endpoints := services(spec, port)
	err = resources.ApplyAll(ctx,
		r.serviceResource(spec.Model, app.Name, app),
		r.serviceResource(spec.Model, endpoints.Name, endpoints),
		resources.NewStatefulSet(r.client.AppsV1().StatefulSets(spec.Model.Namespace), spec.Model.Namespace, spec.Name, in),
	)
	if err != nil {
		return errors.Trace(err)
	}
	logger.Debugf("created statefulset %q in namespace %q", spec.Name, spec.Model.Namespace)
	return nil
}

// Update is part of the deployment.Runtime interface. Storage cannot be
// changed once an application is deployed.
func (r *Runtime) Update(ctx context.Context, spec deployment.ApplicationSpec) error {
	port, err := r.serverPort(spec)
	if err != nil {
		return errors.Trace(err)
	}
	current, err := r.Application(ctx, spec.Model, spec.Name)
	if err != nil {
		return errors.Trace(err)
	}
	if !reflect.DeepEqual(current.Storage, spec.Storage) {
		return errors.NotSupportedf("changing storage of application %q", spec.Name)
	}

	in, err := statefulSet(spec, port)
	if err != nil {
		return errors.Trace(err)
	}
	app, endpoints := services(spec, port)
	for _, svc := range []*resources.Service{
		r.serviceResource(spec.Model, app.Name, app),
		r.serviceResource(spec.Model, endpoints.Name, endpoints),
	} {
		err := svc.Replace(ctx)
		if errors.Is(err, errors.NotFound) {
			err = svc.Apply(ctx)
		}
		if err != nil {
			return errors.Annotatef(err, "updating service %q", svc.Name)
		}
	}
	sts := resources.NewStatefulSet(r.client.AppsV1().StatefulSets(spec.Model.Namespace), spec.Model.Namespace, spec.Name, in)
	if err := sts.Replace(ctx); errors.Is(err, errors.NotFound) {
		return errors.NotFoundf("application %q in model %q", spec.Name, spec.Model.Name)
	} else if err != nil {
		return errors.Annotatef(err, "replacing statefulset %q", spec.Name)
	}
	logger.Debugf("updated statefulset %q in namespace %q", spec.Name, spec.Model.Namespace)
	return nil
}

// Remove is part of the deployment.Runtime interface. Objects already
// gone are skipped; NotFound means none of them existed.
func (r *Runtime) Remove(ctx context.Context, model deployment.Model, name string) error {
	deleted, err := resources.DeleteAll(ctx,
		r.statefulSetResource(model, name),
		r.serviceResource(model, name, nil),
		r.serviceResource(model, endpointsServiceName(name), nil),
	)
	if err != nil {
		return errors.Trace(err)
	}
	if deleted == 0 {
		return errors.NotFoundf("application %q in model %q", name, model.Name)
	}
	return nil
}

// Status is part of the deployment.Runtime interface.
func (r *Runtime) Status(ctx context.Context, model deployment.Model, name string) (deployment.ApplicationStatus, error) {
	sts := r.statefulSetResource(model, name)
	if err := sts.Get(ctx); errors.Is(err, errors.NotFound) {
		return deployment.ApplicationStatus{}, errors.NotFoundf("application %q in model %q", name, model.Name)
	} else if err != nil {
		return deployment.ApplicationStatus{}, errors.Trace(err)
	}
	desired, ready := sts.Replicas()
	return deployment.ApplicationStatus{
		Units:      desired,
		ReadyUnits: ready,
	}, nil
}

// serverPort validates the config settings of the spec and returns the
// port the workload listens on.
func (r *Runtime) serverPort(spec deployment.ApplicationSpec) (int, error) {
	settings, err := r.descriptor.Config.ValidateSettings(spec.Config)
	if err != nil {
		return 0, errors.Annotatef(err, "config of application %q", spec.Name)
	}
	return r.descriptor.ServerPort(settings), nil
}

func (r *Runtime) statefulSetResource(model deployment.Model, name string) *resources.StatefulSet {
	return resources.NewStatefulSet(r.client.AppsV1().StatefulSets(model.Namespace), model.Namespace, name, nil)
}

func (r *Runtime) serviceResource(model deployment.Model, name string, in *corev1.Service) *resources.Service {
	return resources.NewService(r.client.CoreV1().Services(model.Namespace), model.Namespace, name, in)
}
