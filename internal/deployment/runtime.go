// Copyright 2024 Canonical Ltd.
// Licensed under the AGPLv3, see LICENCE file for details.

package deployment

import (
	"context"

	"github.com/canonical/foxglove-studio-operator/internal/charm"
	"github.com/canonical/foxglove-studio-operator/internal/constraints"
	"github.com/canonical/foxglove-studio-operator/internal/storage"
)

// Model is a resolved target environment.
type Model struct {
	UUID string
	Name string
	// Namespace is the runtime-side scope the model's applications live in.
	Namespace string
}

// ModelLookup resolves target environments by identifier.
type ModelLookup interface {
	// ModelByUUID returns the model with the given UUID, or an error
	// satisfying errors.Is(err, errors.NotFound).
	ModelByUUID(ctx context.Context, uuid string) (Model, error)
}

// ApplicationSpec is the desired state of one application in a model.
type ApplicationSpec struct {
	Model Model
	Name  string
	Charm string

	Origin charm.ResolvedOrigin
	Base   string
	Units  int
	Trust  bool

	// Config is forwarded to the runtime unchanged; the runtime validates
	// it against the charm's config schema.
	Config map[string]string

	Constraints constraints.Value
	Resources   map[string]string
	Storage     map[string]storage.Directive
}

// ApplicationStatus reports how far the runtime has converged.
type ApplicationStatus struct {
	Units      int
	ReadyUnits int
}

// Runtime is the orchestration runtime applications are declared to. It
// owns all deployment state and converges live state to the declared
// specs.
type Runtime interface {
	// Application returns the spec of the named application as currently
	// declared, or an error satisfying errors.Is(err, errors.NotFound).
	Application(ctx context.Context, model Model, name string) (ApplicationSpec, error)

	// Deploy declares a new application. It fails with errors.AlreadyExists
	// if the application exists.
	Deploy(ctx context.Context, spec ApplicationSpec) error

	// Update converges an existing application to the spec. It fails with
	// errors.NotFound if the application does not exist.
	Update(ctx context.Context, spec ApplicationSpec) error

	// Remove deletes the application. Removing a missing application
	// fails with errors.NotFound.
	Remove(ctx context.Context, model Model, name string) error

	// Status reports the convergence of the application.
	Status(ctx context.Context, model Model, name string) (ApplicationStatus, error)
}
