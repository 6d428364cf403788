// Copyright 2024 Canonical Ltd.
// Licensed under the AGPLv3, see LICENCE file for details.

package resources

import (
	"context"

	"github.com/juju/errors"
	appsv1 "k8s.io/api/apps/v1"
	k8serrors "k8s.io/apimachinery/pkg/api/errors"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/apimachinery/pkg/apis/meta/v1/unstructured"
	"k8s.io/apimachinery/pkg/runtime"
	"k8s.io/apimachinery/pkg/types"
	appsv1client "k8s.io/client-go/kubernetes/typed/apps/v1"

	k8sconstants "github.com/canonical/foxglove-studio-operator/internal/provider/kubernetes/constants"
)

// StatefulSet extends the k8s statefulset.
type StatefulSet struct {
	client appsv1client.StatefulSetInterface
	appsv1.StatefulSet
}

// NewStatefulSet creates a new statefulset resource.
func NewStatefulSet(client appsv1client.StatefulSetInterface, namespace string, name string, in *appsv1.StatefulSet) *StatefulSet {
	if in == nil {
		in = &appsv1.StatefulSet{}
	}
	in.SetName(name)
	in.SetNamespace(namespace)
	return &StatefulSet{client, *in}
}

// ID returns a comparable ID for the Resource
func (ss *StatefulSet) ID() ID {
	return ID{"StatefulSet", ss.Name, ss.Namespace}
}

// Apply patches the resource change.
func (ss *StatefulSet) Apply(ctx context.Context) error {
	data, err := runtime.Encode(unstructured.UnstructuredJSONScheme, &ss.StatefulSet)
	if err != nil {
		return errors.Trace(err)
	}
	res, err := ss.client.Patch(ctx, ss.Name, types.StrategicMergePatchType, data, metav1.PatchOptions{
		FieldManager: JujuFieldManager,
	})
	if k8serrors.IsNotFound(err) {
		res, err = ss.client.Create(ctx, &ss.StatefulSet, metav1.CreateOptions{
			FieldManager: JujuFieldManager,
		})
	}
	if k8serrors.IsConflict(err) {
		return errors.Annotatef(ErrConflict, "statefulset %q", ss.Name)
	}
	if err != nil {
		return errors.Trace(err)
	}
	ss.StatefulSet = *res
	return nil
}

// Replace overwrites the live statefulset with this one. Fields absent
// here are removed from the live object, unlike Apply which merges.
func (ss *StatefulSet) Replace(ctx context.Context) error {
	existing, err := ss.client.Get(ctx, ss.Name, metav1.GetOptions{})
	if k8serrors.IsNotFound(err) {
		return errors.NewNotFound(err, "k8s")
	} else if err != nil {
		return errors.Trace(err)
	}
	ss.ResourceVersion = existing.ResourceVersion
	res, err := ss.client.Update(ctx, &ss.StatefulSet, metav1.UpdateOptions{
		FieldManager: JujuFieldManager,
	})
	if k8serrors.IsConflict(err) {
		return errors.Annotatef(ErrConflict, "statefulset %q", ss.Name)
	}
	if err != nil {
		return errors.Trace(err)
	}
	ss.StatefulSet = *res
	return nil
}

// Get refreshes the resource.
func (ss *StatefulSet) Get(ctx context.Context) error {
	res, err := ss.client.Get(ctx, ss.Name, metav1.GetOptions{})
	if k8serrors.IsNotFound(err) {
		return errors.NewNotFound(err, "k8s")
	} else if err != nil {
		return errors.Trace(err)
	}
	ss.StatefulSet = *res
	return nil
}

// Delete removes the resource.
func (ss *StatefulSet) Delete(ctx context.Context) error {
	err := ss.client.Delete(ctx, ss.Name, metav1.DeleteOptions{
		PropagationPolicy: k8sconstants.DefaultPropagationPolicy(),
	})
	if k8serrors.IsNotFound(err) {
		return errors.NewNotFound(err, "k8s statefulset for deletion")
	} else if err != nil {
		return errors.Trace(err)
	}
	return nil
}

// Replicas returns the desired and ready replica counts.
func (ss *StatefulSet) Replicas() (desired, ready int) {
	if ss.Spec.Replicas != nil {
		desired = int(*ss.Spec.Replicas)
	}
	return desired, int(ss.Status.ReadyReplicas)
}
