// Copyright 2024 Canonical Ltd.
// Licensed under the AGPLv3, see LICENCE file for details.

package resources

import (
	"context"

	"github.com/juju/errors"
)

// JujuFieldManager is the field manager recorded on every write.
const JujuFieldManager = "juju"

// ErrConflict is returned when the API server rejects a write because the
// resource changed underneath it.
const ErrConflict = errors.ConstError("resource version conflict")

// ID identifies a resource.
type ID struct {
	Type      string
	Name      string
	Namespace string
}

// Resource is a Kubernetes object the runtime converges.
type Resource interface {
	ID() ID
	Apply(ctx context.Context) error
	Get(ctx context.Context) error
	Delete(ctx context.Context) error
}

// ApplyAll applies the resources in order, stopping at the first error.
func ApplyAll(ctx context.Context, resources ...Resource) error {
	for _, r := range resources {
		if err := r.Apply(ctx); err != nil {
			return errors.Annotatef(err, "applying %s %q", r.ID().Type, r.ID().Name)
		}
	}
	return nil
}

// DeleteAll deletes the resources in order, stopping at the first error.
// Resources already gone are skipped. It returns the number of resources
// deleted.
func DeleteAll(ctx context.Context, resources ...Resource) (int, error) {
	deleted := 0
	for _, r := range resources {
		err := r.Delete(ctx)
		if errors.Is(err, errors.NotFound) {
			continue
		}
		if err != nil {
			return deleted, errors.Annotatef(err, "deleting %s %q", r.ID().Type, r.ID().Name)
		}
		deleted++
	}
	return deleted, nil
}
