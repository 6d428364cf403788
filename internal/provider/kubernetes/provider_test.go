// Copyright 2024 Canonical Ltd.
// Licensed under the AGPLv3, see LICENCE file for details.

package kubernetes_test

import (
	"context"

	"github.com/juju/errors"
	"github.com/juju/testing"
	jc "github.com/juju/testing/checkers"
	gc "gopkg.in/check.v1"
	corev1 "k8s.io/api/core/v1"
	k8serrors "k8s.io/apimachinery/pkg/api/errors"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/client-go/kubernetes/fake"

	"github.com/canonical/foxglove-studio-operator/internal/charm"
	"github.com/canonical/foxglove-studio-operator/internal/constraints"
	"github.com/canonical/foxglove-studio-operator/internal/deployment"
	"github.com/canonical/foxglove-studio-operator/internal/provider/kubernetes"
	"github.com/canonical/foxglove-studio-operator/internal/storage"
)

const modelUUID = "6e1c5d58-4e2f-4cb1-8b43-1e6b0a3c9f11"

type providerSuite struct {
	testing.IsolationSuite

	client  *fake.Clientset
	runtime *kubernetes.Runtime
	model   deployment.Model
}

var _ = gc.Suite(&providerSuite{})

func (s *providerSuite) SetUpTest(c *gc.C) {
	s.IsolationSuite.SetUpTest(c)
	s.client = fake.NewSimpleClientset(
		&corev1.Namespace{
			ObjectMeta: metav1.ObjectMeta{
				Name: "robotics",
				Labels: map[string]string{
					"model.juju.is/id":   modelUUID,
					"model.juju.is/name": "robotics",
				},
			},
		},
		&corev1.Namespace{
			ObjectMeta: metav1.ObjectMeta{
				Name:   "other",
				Labels: map[string]string{"model.juju.is/id": "0b7e7b9a-3f42-4a5e-9d0c-5f1f6b3c2a10"},
			},
		},
	)
	s.runtime = kubernetes.NewRuntime(s.client, charm.FoxgloveStudio())
	s.model = deployment.Model{UUID: modelUUID, Name: "robotics", Namespace: "robotics"}
}

func (s *providerSuite) spec() deployment.ApplicationSpec {
	return deployment.ApplicationSpec{
		Model:       s.model,
		Name:        "foxglove-studio",
		Charm:       "foxglove-studio",
		Origin:      charm.ResolvedOrigin{Channel: charm.Channel{Track: "latest", Risk: charm.Edge}},
		Base:        "ubuntu@22.04",
		Units:       1,
		Constraints: constraints.MustParse("arch=amd64"),
		Resources: map[string]string{
			"foxglove-studio-image": "ghcr.io/foxglove/studio:1.87.0",
		},
	}
}

func (s *providerSuite) TestModelByUUID(c *gc.C) {
	model, err := s.runtime.ModelByUUID(context.Background(), modelUUID)
	c.Assert(err, jc.ErrorIsNil)
	c.Check(model, gc.Equals, s.model)
}

func (s *providerSuite) TestModelByUUIDNameFallback(c *gc.C) {
	model, err := s.runtime.ModelByUUID(context.Background(), "0b7e7b9a-3f42-4a5e-9d0c-5f1f6b3c2a10")
	c.Assert(err, jc.ErrorIsNil)
	c.Check(model.Name, gc.Equals, "other")
	c.Check(model.Namespace, gc.Equals, "other")
}

func (s *providerSuite) TestModelByUUIDNotFound(c *gc.C) {
	_, err := s.runtime.ModelByUUID(context.Background(), "5f0c4a8e-0000-4000-8000-000000000000")
	c.Assert(err, jc.Satisfies, errors.IsNotFound)
}

func (s *providerSuite) TestDeploy(c *gc.C) {
	ctx := context.Background()
	spec := s.spec()
	spec.Config = map[string]string{"server-port": "5050"}
	spec.Constraints = constraints.MustParse("arch=arm64 mem=4G cpu-power=150 tags=pool=robotics")
	spec.Storage = map[string]storage.Directive{"data": {Pool: "fast", Size: 2048, Count: 1}}
	spec.Trust = true

	err := s.runtime.Deploy(ctx, spec)
	c.Assert(err, jc.ErrorIsNil)

	sts, err := s.client.AppsV1().StatefulSets("robotics").Get(ctx, "foxglove-studio", metav1.GetOptions{})
	c.Assert(err, jc.ErrorIsNil)
	c.Check(sts.Labels, jc.DeepEquals, map[string]string{
		"app.kubernetes.io/name":       "foxglove-studio",
		"app.kubernetes.io/managed-by": "juju",
		"model.juju.is/name":           "robotics",
	})
	c.Check(sts.Annotations["charm.juju.is/channel"], gc.Equals, "latest/edge")
	c.Check(sts.Annotations["app.juju.is/trust"], gc.Equals, "true")
	c.Check(sts.Annotations["app.juju.is/config"], gc.Equals, `{"server-port":"5050"}`)
	_, pinned := sts.Annotations["charm.juju.is/revision"]
	c.Check(pinned, jc.IsFalse)
	c.Check(*sts.Spec.Replicas, gc.Equals, int32(1))
	c.Check(sts.Spec.ServiceName, gc.Equals, "foxglove-studio-endpoints")

	pod := sts.Spec.Template.Spec
	c.Check(pod.NodeSelector, jc.DeepEquals, map[string]string{
		"kubernetes.io/arch": "arm64",
		"pool":               "robotics",
	})
	c.Assert(pod.Containers, gc.HasLen, 1)
	container := pod.Containers[0]
	c.Check(container.Name, gc.Equals, "foxglove-studio")
	c.Check(container.Image, gc.Equals, "ghcr.io/foxglove/studio:1.87.0")
	c.Assert(container.Ports, gc.HasLen, 1)
	c.Check(container.Ports[0].ContainerPort, gc.Equals, int32(5050))
	cpu := container.Resources.Limits[corev1.ResourceCPU]
	c.Check(cpu.MilliValue(), gc.Equals, int64(1500))
	mem := container.Resources.Limits[corev1.ResourceMemory]
	c.Check(mem.Value(), gc.Equals, int64(4*1024*1024*1024))
	c.Assert(container.VolumeMounts, gc.HasLen, 1)
	c.Check(container.VolumeMounts[0].MountPath, gc.Equals, "/var/lib/juju/storage/data/0")

	c.Assert(sts.Spec.VolumeClaimTemplates, gc.HasLen, 1)
	claim := sts.Spec.VolumeClaimTemplates[0]
	c.Check(claim.Labels["storage.juju.is/name"], gc.Equals, "data")
	c.Check(*claim.Spec.StorageClassName, gc.Equals, "fast")
	size := claim.Spec.Resources.Requests[corev1.ResourceStorage]
	c.Check(size.String(), gc.Equals, "2Gi")

	svc, err := s.client.CoreV1().Services("robotics").Get(ctx, "foxglove-studio", metav1.GetOptions{})
	c.Assert(err, jc.ErrorIsNil)
	c.Assert(svc.Spec.Ports, gc.HasLen, 1)
	c.Check(svc.Spec.Ports[0].Port, gc.Equals, int32(5050))

	headless, err := s.client.CoreV1().Services("robotics").Get(ctx, "foxglove-studio-endpoints", metav1.GetOptions{})
	c.Assert(err, jc.ErrorIsNil)
	c.Check(headless.Spec.ClusterIP, gc.Equals, corev1.ClusterIPNone)

	got, err := s.runtime.Application(ctx, s.model, "foxglove-studio")
	c.Assert(err, jc.ErrorIsNil)
	c.Check(got, jc.DeepEquals, spec)
}

func (s *providerSuite) TestDeployDefaultPort(c *gc.C) {
	ctx := context.Background()
	err := s.runtime.Deploy(ctx, s.spec())
	c.Assert(err, jc.ErrorIsNil)

	svc, err := s.client.CoreV1().Services("robotics").Get(ctx, "foxglove-studio", metav1.GetOptions{})
	c.Assert(err, jc.ErrorIsNil)
	c.Check(svc.Spec.Ports[0].Port, gc.Equals, int32(8080))
}

func (s *providerSuite) TestDeployAlreadyExists(c *gc.C) {
	ctx := context.Background()
	c.Assert(s.runtime.Deploy(ctx, s.spec()), jc.ErrorIsNil)
	err := s.runtime.Deploy(ctx, s.spec())
	c.Assert(err, jc.Satisfies, errors.IsAlreadyExists)
}

func (s *providerSuite) TestDeployInvalidConfigWritesNothing(c *gc.C) {
	ctx := context.Background()
	spec := s.spec()
	spec.Config = map[string]string{"bogus": "x"}

	err := s.runtime.Deploy(ctx, spec)
	c.Assert(err, gc.ErrorMatches, `config of application "foxglove-studio": unknown option "bogus" not valid`)
	c.Check(errors.Is(err, errors.NotValid), jc.IsTrue)

	_, err = s.client.AppsV1().StatefulSets("robotics").Get(ctx, "foxglove-studio", metav1.GetOptions{})
	c.Check(err, jc.Satisfies, k8serrors.IsNotFound)
	_, err = s.client.CoreV1().Services("robotics").Get(ctx, "foxglove-studio", metav1.GetOptions{})
	c.Check(err, jc.Satisfies, k8serrors.IsNotFound)
}

func (s *providerSuite) TestDeployBadConfigValue(c *gc.C) {
	spec := s.spec()
	spec.Config = map[string]string{"server-port": "eighty"}

	err := s.runtime.Deploy(context.Background(), spec)
	c.Assert(err, gc.ErrorMatches, `config of application "foxglove-studio": option "server-port" value "eighty", expected int not valid`)
}

func (s *providerSuite) TestUpdateNotFound(c *gc.C) {
	err := s.runtime.Update(context.Background(), s.spec())
	c.Assert(err, jc.Satisfies, errors.IsNotFound)
}

func (s *providerSuite) TestUpdate(c *gc.C) {
	ctx := context.Background()
	pinned := s.spec()
	pinned.Origin = charm.ResolvedOrigin{Channel: pinned.Origin.Channel, Revision: 5, Pinned: true}
	c.Assert(s.runtime.Deploy(ctx, pinned), jc.ErrorIsNil)

	sts, err := s.client.AppsV1().StatefulSets("robotics").Get(ctx, "foxglove-studio", metav1.GetOptions{})
	c.Assert(err, jc.ErrorIsNil)
	c.Check(sts.Annotations["charm.juju.is/revision"], gc.Equals, "5")

	updated := s.spec()
	updated.Units = 3
	updated.Config = map[string]string{"server-port": "9090"}
	c.Assert(s.runtime.Update(ctx, updated), jc.ErrorIsNil)

	sts, err = s.client.AppsV1().StatefulSets("robotics").Get(ctx, "foxglove-studio", metav1.GetOptions{})
	c.Assert(err, jc.ErrorIsNil)
	c.Check(*sts.Spec.Replicas, gc.Equals, int32(3))
	_, ok := sts.Annotations["charm.juju.is/revision"]
	c.Check(ok, jc.IsFalse)

	svc, err := s.client.CoreV1().Services("robotics").Get(ctx, "foxglove-studio", metav1.GetOptions{})
	c.Assert(err, jc.ErrorIsNil)
	c.Assert(svc.Spec.Ports, gc.HasLen, 1)
	c.Check(svc.Spec.Ports[0].Port, gc.Equals, int32(9090))

	got, err := s.runtime.Application(ctx, s.model, "foxglove-studio")
	c.Assert(err, jc.ErrorIsNil)
	c.Check(got, jc.DeepEquals, updated)
}

func (s *providerSuite) TestUpdateStorageNotSupported(c *gc.C) {
	ctx := context.Background()
	c.Assert(s.runtime.Deploy(ctx, s.spec()), jc.ErrorIsNil)

	spec := s.spec()
	spec.Storage = map[string]storage.Directive{"data": {Size: 1024, Count: 1}}
	err := s.runtime.Update(ctx, spec)
	c.Assert(err, jc.Satisfies, errors.IsNotSupported)
}

func (s *providerSuite) TestRemove(c *gc.C) {
	ctx := context.Background()
	c.Assert(s.runtime.Deploy(ctx, s.spec()), jc.ErrorIsNil)

	err := s.runtime.Remove(ctx, s.model, "foxglove-studio")
	c.Assert(err, jc.ErrorIsNil)

	_, err = s.client.AppsV1().StatefulSets("robotics").Get(ctx, "foxglove-studio", metav1.GetOptions{})
	c.Check(err, jc.Satisfies, k8serrors.IsNotFound)
	_, err = s.client.CoreV1().Services("robotics").Get(ctx, "foxglove-studio", metav1.GetOptions{})
	c.Check(err, jc.Satisfies, k8serrors.IsNotFound)
	_, err = s.client.CoreV1().Services("robotics").Get(ctx, "foxglove-studio-endpoints", metav1.GetOptions{})
	c.Check(err, jc.Satisfies, k8serrors.IsNotFound)

	err = s.runtime.Remove(ctx, s.model, "foxglove-studio")
	c.Assert(err, jc.Satisfies, errors.IsNotFound)
}

func (s *providerSuite) TestStatus(c *gc.C) {
	ctx := context.Background()
	spec := s.spec()
	spec.Units = 2
	c.Assert(s.runtime.Deploy(ctx, spec), jc.ErrorIsNil)

	status, err := s.runtime.Status(ctx, s.model, "foxglove-studio")
	c.Assert(err, jc.ErrorIsNil)
	c.Check(status, gc.Equals, deployment.ApplicationStatus{Units: 2, ReadyUnits: 0})

	_, err = s.runtime.Status(ctx, s.model, "missing")
	c.Check(err, jc.Satisfies, errors.IsNotFound)
}

func (s *providerSuite) TestResourceRequirementsCores(c *gc.C) {
	req := kubernetes.ResourceRequirements(constraints.MustParse("cores=2"))
	cpu := req.Limits[corev1.ResourceCPU]
	c.Check(cpu.Value(), gc.Equals, int64(2))

	req = kubernetes.ResourceRequirements(constraints.MustParse("arch=amd64"))
	c.Check(req.Limits, gc.IsNil)
}

func (s *providerSuite) TestNodeSelectorEmpty(c *gc.C) {
	c.Check(kubernetes.NodeSelector(constraints.Value{}), gc.IsNil)
}
