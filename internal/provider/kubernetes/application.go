// Copyright 2024 Canonical Ltd.
// Licensed under the AGPLv3, see LICENCE file for details.

package kubernetes

import (
	"encoding/json"
	"fmt"
	"path"
	"sort"
	"strconv"
	"strings"

	"github.com/juju/errors"
	appsv1 "k8s.io/api/apps/v1"
	corev1 "k8s.io/api/core/v1"
	k8sresource "k8s.io/apimachinery/pkg/api/resource"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/apimachinery/pkg/util/intstr"
	"k8s.io/utils/ptr"

	"github.com/canonical/foxglove-studio-operator/internal/charm"
	"github.com/canonical/foxglove-studio-operator/internal/constraints"
	"github.com/canonical/foxglove-studio-operator/internal/deployment"
	"github.com/canonical/foxglove-studio-operator/internal/provider/kubernetes/constants"
	"github.com/canonical/foxglove-studio-operator/internal/storage"
)

// statefulSetRevisionHistoryLimit keeps no old controller revisions.
const statefulSetRevisionHistoryLimit = 0

// selectorLabels select the pods of an application.
func selectorLabels(appName string) map[string]string {
	return map[string]string{
		constants.LabelKubernetesAppName: appName,
	}
}

// appLabels are set on every resource of an application.
func appLabels(model deployment.Model, appName string) map[string]string {
	return map[string]string{
		constants.LabelKubernetesAppName:    appName,
		constants.LabelKubernetesAppManaged: constants.ManagedBy,
		constants.LabelJujuModelName:        model.Name,
	}
}

func endpointsServiceName(appName string) string {
	return appName + constants.EndpointsServiceSuffix
}

// appAnnotations record the declared spec on the statefulset so that it
// can be read back by Application.
func appAnnotations(spec deployment.ApplicationSpec) (map[string]string, error) {
	config, err := encodeStrings(spec.Config)
	if err != nil {
		return nil, errors.Annotate(err, "encoding config")
	}
	res, err := encodeStrings(spec.Resources)
	if err != nil {
		return nil, errors.Annotate(err, "encoding resources")
	}
	annotations := map[string]string{
		constants.AnnotationCharm:       spec.Charm,
		constants.AnnotationChannel:     spec.Origin.Channel.String(),
		constants.AnnotationBase:        spec.Base,
		constants.AnnotationTrust:       strconv.FormatBool(spec.Trust),
		constants.AnnotationConstraints: spec.Constraints.String(),
		constants.AnnotationConfig:      config,
		constants.AnnotationResources:   res,
	}
	if spec.Origin.Pinned {
		annotations[constants.AnnotationRevision] = strconv.Itoa(spec.Origin.Revision)
	}
	return annotations, nil
}

func encodeStrings(in map[string]string) (string, error) {
	if len(in) == 0 {
		return "{}", nil
	}
	data, err := json.Marshal(in)
	return string(data), errors.Trace(err)
}

func decodeStrings(data string) (map[string]string, error) {
	var out map[string]string
	if err := json.Unmarshal([]byte(data), &out); err != nil {
		return nil, errors.Trace(err)
	}
	if len(out) == 0 {
		return nil, nil
	}
	return out, nil
}

// resourceRequirements maps the constraints onto container limits.
// cpu-power is expressed in hundredths of a core and wins over cores.
func resourceRequirements(cons constraints.Value) corev1.ResourceRequirements {
	if cons.IsEmpty() {
		return corev1.ResourceRequirements{}
	}
	limits := corev1.ResourceList{}
	switch {
	case cons.CpuPower != nil:
		limits[corev1.ResourceCPU] = *k8sresource.NewMilliQuantity(int64(*cons.CpuPower)*10, k8sresource.DecimalSI)
	case cons.Cores != nil:
		limits[corev1.ResourceCPU] = *k8sresource.NewQuantity(int64(*cons.Cores), k8sresource.DecimalSI)
	}
	if cons.Mem != nil {
		limits[corev1.ResourceMemory] = k8sresource.MustParse(fmt.Sprintf("%dMi", *cons.Mem))
	}
	if cons.RootDisk != nil {
		limits[corev1.ResourceEphemeralStorage] = k8sresource.MustParse(fmt.Sprintf("%dMi", *cons.RootDisk))
	}
	if len(limits) == 0 {
		return corev1.ResourceRequirements{}
	}
	return corev1.ResourceRequirements{Limits: limits}
}

// nodeSelector maps the arch and tags constraints onto node labels.
func nodeSelector(cons constraints.Value) map[string]string {
	selector := map[string]string{}
	if cons.Arch != nil && *cons.Arch != "" {
		selector[constants.LabelKubernetesArch] = *cons.Arch
	}
	if cons.Tags != nil {
		for _, tag := range *cons.Tags {
			key, value, _ := strings.Cut(tag, "=")
			selector[key] = value
		}
	}
	if len(selector) == 0 {
		return nil
	}
	return selector
}

func storageMountPath(name string) string {
	return path.Join(constants.StorageMountPrefix, name, "0")
}

// volumeClaimTemplates turns storage directives into claims, one per
// store, in name order.
func volumeClaimTemplates(model deployment.Model, appName string, directives map[string]storage.Directive) []corev1.PersistentVolumeClaim {
	names := make([]string, 0, len(directives))
	for name := range directives {
		names = append(names, name)
	}
	sort.Strings(names)

	var claims []corev1.PersistentVolumeClaim
	for _, name := range names {
		d := directives[name]
		logger.Debugf("claiming %s from pool %q for storage %q of %q", d.HumanSize(), d.Pool, name, appName)
		labels := appLabels(model, appName)
		labels[constants.LabelJujuStorageName] = name
		claim := corev1.PersistentVolumeClaim{
			ObjectMeta: metav1.ObjectMeta{
				Name:   fmt.Sprintf("%s-%s", appName, name),
				Labels: labels,
				Annotations: map[string]string{
					constants.AnnotationStoragePool: d.Pool,
				},
			},
			Spec: corev1.PersistentVolumeClaimSpec{
				AccessModes: []corev1.PersistentVolumeAccessMode{corev1.ReadWriteOnce},
				Resources: corev1.VolumeResourceRequirements{
					Requests: corev1.ResourceList{
						corev1.ResourceStorage: *k8sresource.NewQuantity(int64(d.SizeBytes()), k8sresource.BinarySI),
					},
				},
			},
		}
		if d.Pool != "" {
			claim.Spec.StorageClassName = ptr.To(d.Pool)
		}
		claims = append(claims, claim)
	}
	return claims
}

// statefulSet renders the application spec. The server port comes from
// the validated config settings.
func statefulSet(spec deployment.ApplicationSpec, port int) (*appsv1.StatefulSet, error) {
	annotations, err := appAnnotations(spec)
	if err != nil {
		return nil, errors.Trace(err)
	}
	claims := volumeClaimTemplates(spec.Model, spec.Name, spec.Storage)

	var mounts []corev1.VolumeMount
	for _, claim := range claims {
		name := claim.Labels[constants.LabelJujuStorageName]
		mounts = append(mounts, corev1.VolumeMount{
			Name:      claim.Name,
			MountPath: storageMountPath(name),
		})
	}

	container := corev1.Container{
		Name:            charm.ContainerName,
		Image:           spec.Resources[charm.ImageResource],
		ImagePullPolicy: corev1.PullIfNotPresent,
		Ports: []corev1.ContainerPort{{
			Name:          constants.ServerPortName,
			ContainerPort: int32(port),
			Protocol:      corev1.ProtocolTCP,
		}},
		Resources:    resourceRequirements(spec.Constraints),
		VolumeMounts: mounts,
	}

	return &appsv1.StatefulSet{
		ObjectMeta: metav1.ObjectMeta{
			Name:        spec.Name,
			Namespace:   spec.Model.Namespace,
			Labels:      appLabels(spec.Model, spec.Name),
			Annotations: annotations,
		},
		Spec: appsv1.StatefulSetSpec{
			Replicas:             ptr.To(int32(spec.Units)),
			RevisionHistoryLimit: ptr.To(int32(statefulSetRevisionHistoryLimit)),
			ServiceName:          endpointsServiceName(spec.Name),
			Selector: &metav1.LabelSelector{
				MatchLabels: selectorLabels(spec.Name),
			},
			PodManagementPolicy: appsv1.ParallelPodManagement,
			Template: corev1.PodTemplateSpec{
				ObjectMeta: metav1.ObjectMeta{
					Labels: appLabels(spec.Model, spec.Name),
				},
				Spec: corev1.PodSpec{
					AutomountServiceAccountToken: ptr.To(spec.Trust),
					NodeSelector:                 nodeSelector(spec.Constraints),
					Containers:                   []corev1.Container{container},
				},
			},
			VolumeClaimTemplates: claims,
		},
	}, nil
}

// services renders the application service and the headless service
// giving each unit a stable DNS name.
func services(spec deployment.ApplicationSpec, port int) (*corev1.Service, *corev1.Service) {
	servicePort := corev1.ServicePort{
		Name:       constants.ServerPortName,
		Port:       int32(port),
		TargetPort: intstr.FromInt32(int32(port)),
		Protocol:   corev1.ProtocolTCP,
	}
	app := &corev1.Service{
		ObjectMeta: metav1.ObjectMeta{
			Name:      spec.Name,
			Namespace: spec.Model.Namespace,
			Labels:    appLabels(spec.Model, spec.Name),
		},
		Spec: corev1.ServiceSpec{
			Selector: selectorLabels(spec.Name),
			Type:     corev1.ServiceTypeClusterIP,
			Ports:    []corev1.ServicePort{servicePort},
		},
	}
	endpoints := &corev1.Service{
		ObjectMeta: metav1.ObjectMeta{
			Name:      endpointsServiceName(spec.Name),
			Namespace: spec.Model.Namespace,
			Labels:    appLabels(spec.Model, spec.Name),
		},
		Spec: corev1.ServiceSpec{
			Selector:                 selectorLabels(spec.Name),
			Type:                     corev1.ServiceTypeClusterIP,
			ClusterIP:                corev1.ClusterIPNone,
			PublishNotReadyAddresses: true,
			Ports:                    []corev1.ServicePort{servicePort},
		},
	}
	return app, endpoints
}

// applicationSpec reads the declared spec back from a statefulset.
func applicationSpec(model deployment.Model, sts *appsv1.StatefulSet) (deployment.ApplicationSpec, error) {
	annotations := sts.GetAnnotations()
	spec := deployment.ApplicationSpec{
		Model: model,
		Name:  sts.Name,
		Charm: annotations[constants.AnnotationCharm],
		Base:  annotations[constants.AnnotationBase],
	}

	channel, err := charm.ParseChannel(annotations[constants.AnnotationChannel])
	if err != nil {
		return spec, errors.Annotatef(err, "reading channel of %q", sts.Name)
	}
	spec.Origin.Channel = channel
	if rev, ok := annotations[constants.AnnotationRevision]; ok {
		if spec.Origin.Revision, err = strconv.Atoi(rev); err != nil {
			return spec, errors.Annotatef(err, "reading revision of %q", sts.Name)
		}
		spec.Origin.Pinned = true
	}
	if spec.Trust, err = strconv.ParseBool(annotations[constants.AnnotationTrust]); err != nil {
		return spec, errors.Annotatef(err, "reading trust of %q", sts.Name)
	}
	if spec.Constraints, err = constraints.Parse(annotations[constants.AnnotationConstraints]); err != nil {
		return spec, errors.Annotatef(err, "reading constraints of %q", sts.Name)
	}
	if spec.Config, err = decodeStrings(annotations[constants.AnnotationConfig]); err != nil {
		return spec, errors.Annotatef(err, "reading config of %q", sts.Name)
	}
	if spec.Resources, err = decodeStrings(annotations[constants.AnnotationResources]); err != nil {
		return spec, errors.Annotatef(err, "reading resources of %q", sts.Name)
	}
	if sts.Spec.Replicas != nil {
		spec.Units = int(*sts.Spec.Replicas)
	}
	spec.Storage = storageDirectives(sts.Spec.VolumeClaimTemplates)
	return spec, nil
}

func storageDirectives(claims []corev1.PersistentVolumeClaim) map[string]storage.Directive {
	if len(claims) == 0 {
		return nil
	}
	out := make(map[string]storage.Directive, len(claims))
	for _, claim := range claims {
		name := claim.Labels[constants.LabelJujuStorageName]
		size := claim.Spec.Resources.Requests[corev1.ResourceStorage]
		out[name] = storage.Directive{
			Pool:  claim.Annotations[constants.AnnotationStoragePool],
			Size:  uint64(size.Value() / (1024 * 1024)),
			Count: 1,
		}
	}
	return out
}
