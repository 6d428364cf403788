// Copyright 2024 Canonical Ltd.
// Licensed under the AGPLv3, see LICENCE file for details.

package constants

import (
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
)

const (
	// Domain is the primary TLD for juju when giving resource domains to
	// Kubernetes
	Domain = "juju.is"

	// ManagedBy is the value of the managed-by label on every resource
	// created for an application.
	ManagedBy = "juju"

	// EndpointsServiceSuffix is appended to the application name to form
	// the headless service giving each unit a stable DNS name.
	EndpointsServiceSuffix = "-endpoints"

	// StorageMountPrefix is the directory under which storage volumes are
	// mounted in the workload container.
	StorageMountPrefix = "/var/lib/juju/storage"

	// ServerPortName names the container and service port of the workload.
	ServerPortName = "server"
)

// Labels.
const (
	LabelKubernetesAppName    = "app.kubernetes.io/name"
	LabelKubernetesAppManaged = "app.kubernetes.io/managed-by"

	LabelJujuModelName   = "model." + Domain + "/name"
	LabelJujuModelUUID   = "model." + Domain + "/id"
	LabelJujuStorageName = "storage." + Domain + "/name"

	LabelKubernetesArch = "kubernetes.io/arch"
)

// Annotations recording the declared application.
const (
	AnnotationCharm       = "charm." + Domain + "/name"
	AnnotationChannel     = "charm." + Domain + "/channel"
	AnnotationRevision    = "charm." + Domain + "/revision"
	AnnotationBase        = "app." + Domain + "/base"
	AnnotationTrust       = "app." + Domain + "/trust"
	AnnotationConstraints = "app." + Domain + "/constraints"
	AnnotationConfig      = "app." + Domain + "/config"
	AnnotationResources   = "app." + Domain + "/resources"
	AnnotationStoragePool = "storage." + Domain + "/pool"
)

// DefaultPropagationPolicy returns the default propagation policy.
func DefaultPropagationPolicy() *metav1.DeletionPropagation {
	v := metav1.DeletePropagationForeground
	return &v
}
