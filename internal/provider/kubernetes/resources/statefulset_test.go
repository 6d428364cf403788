// Copyright 2024 Canonical Ltd.
// Licensed under the AGPLv3, see LICENCE file for details.

package resources_test

import (
	"context"

	"github.com/juju/errors"
	jc "github.com/juju/testing/checkers"
	gc "gopkg.in/check.v1"
	appsv1 "k8s.io/api/apps/v1"
	k8serrors "k8s.io/apimachinery/pkg/api/errors"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/apimachinery/pkg/runtime"
	"k8s.io/apimachinery/pkg/runtime/schema"
	k8stesting "k8s.io/client-go/testing"

	"github.com/canonical/foxglove-studio-operator/internal/provider/kubernetes/resources"
)

type statefulSetSuite struct {
	resourceSuite
}

var _ = gc.Suite(&statefulSetSuite{})

func (s *statefulSetSuite) TestApply(c *gc.C) {
	ctx := context.Background()
	sts := &appsv1.StatefulSet{
		ObjectMeta: metav1.ObjectMeta{
			Name:      "sts1",
			Namespace: "test",
		},
	}
	// Create.
	stsResource := resources.NewStatefulSet(s.client.AppsV1().StatefulSets("test"), "test", "sts1", sts)
	c.Assert(stsResource.Apply(ctx), jc.ErrorIsNil)
	result, err := s.client.AppsV1().StatefulSets("test").Get(ctx, "sts1", metav1.GetOptions{})
	c.Assert(err, jc.ErrorIsNil)
	c.Assert(len(result.GetAnnotations()), gc.Equals, 0)

	// Update.
	sts.SetAnnotations(map[string]string{"a": "b"})
	stsResource = resources.NewStatefulSet(s.client.AppsV1().StatefulSets("test"), "test", "sts1", sts)
	c.Assert(stsResource.Apply(ctx), jc.ErrorIsNil)

	result, err = s.client.AppsV1().StatefulSets("test").Get(ctx, "sts1", metav1.GetOptions{})
	c.Assert(err, jc.ErrorIsNil)
	c.Assert(result.GetName(), gc.Equals, `sts1`)
	c.Assert(result.GetNamespace(), gc.Equals, `test`)
	c.Assert(result.GetAnnotations(), jc.DeepEquals, map[string]string{"a": "b"})
}

func (s *statefulSetSuite) TestReplaceRemovesFields(c *gc.C) {
	ctx := context.Background()
	sts := appsv1.StatefulSet{
		ObjectMeta: metav1.ObjectMeta{
			Name:        "sts1",
			Namespace:   "test",
			Annotations: map[string]string{"a": "b", "c": "d"},
		},
	}
	_, err := s.client.AppsV1().StatefulSets("test").Create(ctx, &sts, metav1.CreateOptions{})
	c.Assert(err, jc.ErrorIsNil)

	replacement := &appsv1.StatefulSet{
		ObjectMeta: metav1.ObjectMeta{
			Annotations: map[string]string{"a": "b"},
		},
	}
	stsResource := resources.NewStatefulSet(s.client.AppsV1().StatefulSets("test"), "test", "sts1", replacement)
	c.Assert(stsResource.Replace(ctx), jc.ErrorIsNil)

	result, err := s.client.AppsV1().StatefulSets("test").Get(ctx, "sts1", metav1.GetOptions{})
	c.Assert(err, jc.ErrorIsNil)
	c.Assert(result.GetAnnotations(), jc.DeepEquals, map[string]string{"a": "b"})
}

func (s *statefulSetSuite) TestReplaceMissing(c *gc.C) {
	stsResource := resources.NewStatefulSet(s.client.AppsV1().StatefulSets("test"), "test", "sts1", nil)
	err := stsResource.Replace(context.Background())
	c.Assert(errors.Is(err, errors.NotFound), jc.IsTrue)
}

func (s *statefulSetSuite) TestGet(c *gc.C) {
	ctx := context.Background()
	template := appsv1.StatefulSet{
		ObjectMeta: metav1.ObjectMeta{
			Name:      "sts1",
			Namespace: "test",
		},
	}
	sts1 := template
	sts1.SetAnnotations(map[string]string{"a": "b"})
	_, err := s.client.AppsV1().StatefulSets("test").Create(ctx, &sts1, metav1.CreateOptions{})
	c.Assert(err, jc.ErrorIsNil)

	stsResource := resources.NewStatefulSet(s.client.AppsV1().StatefulSets("test"), "test", "sts1", &template)
	c.Assert(len(stsResource.GetAnnotations()), gc.Equals, 0)
	err = stsResource.Get(ctx)
	c.Assert(err, jc.ErrorIsNil)
	c.Assert(stsResource.GetName(), gc.Equals, `sts1`)
	c.Assert(stsResource.GetNamespace(), gc.Equals, `test`)
	c.Assert(stsResource.GetAnnotations(), jc.DeepEquals, map[string]string{"a": "b"})
}

func (s *statefulSetSuite) TestDelete(c *gc.C) {
	ctx := context.Background()
	sts := appsv1.StatefulSet{
		ObjectMeta: metav1.ObjectMeta{
			Name:      "sts1",
			Namespace: "test",
		},
	}
	_, err := s.client.AppsV1().StatefulSets("test").Create(ctx, &sts, metav1.CreateOptions{})
	c.Assert(err, jc.ErrorIsNil)

	stsResource := resources.NewStatefulSet(s.client.AppsV1().StatefulSets("test"), "test", "sts1", &sts)
	err = stsResource.Delete(ctx)
	c.Assert(err, jc.ErrorIsNil)

	err = stsResource.Delete(ctx)
	c.Assert(errors.Is(err, errors.NotFound), jc.IsTrue)

	err = stsResource.Get(ctx)
	c.Assert(err, jc.Satisfies, errors.IsNotFound)

	_, err = s.client.AppsV1().StatefulSets("test").Get(ctx, "sts1", metav1.GetOptions{})
	c.Assert(err, jc.Satisfies, k8serrors.IsNotFound)
}

func (s *statefulSetSuite) TestReplicas(c *gc.C) {
	three := int32(3)
	stsResource := resources.NewStatefulSet(nil, "test", "sts1", &appsv1.StatefulSet{
		Spec:   appsv1.StatefulSetSpec{Replicas: &three},
		Status: appsv1.StatefulSetStatus{ReadyReplicas: 2},
	})
	desired, ready := stsResource.Replicas()
	c.Check(desired, gc.Equals, 3)
	c.Check(ready, gc.Equals, 2)
}

func (s *statefulSetSuite) TestReplaceConflict(c *gc.C) {
	ctx := context.Background()
	stsResource := resources.NewStatefulSet(s.client.AppsV1().StatefulSets("test"), "test", "sts1", nil)
	c.Assert(stsResource.Apply(ctx), jc.ErrorIsNil)

	s.client.PrependReactor("update", "statefulsets", func(action k8stesting.Action) (bool, runtime.Object, error) {
		return true, nil, k8serrors.NewConflict(schema.GroupResource{Group: "apps", Resource: "statefulsets"}, "sts1", errors.New("modified"))
	})
	err := stsResource.Replace(ctx)
	c.Assert(errors.Is(err, resources.ErrConflict), jc.IsTrue)
	c.Assert(err, gc.ErrorMatches, `statefulset "sts1": resource version conflict`)
}

func (s *statefulSetSuite) TestApplyConflict(c *gc.C) {
	s.client.PrependReactor("patch", "statefulsets", func(action k8stesting.Action) (bool, runtime.Object, error) {
		return true, nil, k8serrors.NewConflict(schema.GroupResource{Group: "apps", Resource: "statefulsets"}, "sts1", errors.New("modified"))
	})
	stsResource := resources.NewStatefulSet(s.client.AppsV1().StatefulSets("test"), "test", "sts1", nil)
	err := stsResource.Apply(context.Background())
	c.Assert(errors.Is(err, resources.ErrConflict), jc.IsTrue)
}
