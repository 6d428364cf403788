// Copyright 2024 Canonical Ltd.
// Licensed under the AGPLv3, see LICENCE file for details.

package deployment

import (
	"context"

	"github.com/juju/clock"
	"github.com/juju/errors"
	"github.com/juju/loggo"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/canonical/foxglove-studio-operator/internal/charm"
	"github.com/canonical/foxglove-studio-operator/internal/constraints"
	"github.com/canonical/foxglove-studio-operator/internal/storage"
)

var logger = loggo.GetLogger("foxglove.deployment")

const tracerName = "github.com/canonical/foxglove-studio-operator/internal/deployment"

// Outputs are the values the module exposes for composition. They do
// not depend on the parameters other than the application name.
type Outputs struct {
	AppName  string            `json:"app_name" yaml:"app_name"`
	Requires map[string]string `json:"requires" yaml:"requires"`
	Provides map[string]string `json:"provides" yaml:"provides"`
}

// OutputsFor returns the outputs of the application with the given name.
func OutputsFor(appName string) Outputs {
	return Outputs{
		AppName:  appName,
		Requires: charm.RequiresEndpoints(),
		Provides: charm.ProvidesEndpoints(),
	}
}

// Config holds the dependencies of a Module.
type Config struct {
	Runtime    Runtime
	Models     ModelLookup
	Descriptor *charm.Descriptor

	// Clock times operations. Defaults to the wall clock.
	Clock clock.Clock

	// Metrics is optional.
	Metrics *Collector

	// Tracer defaults to the global otel tracer provider.
	Tracer trace.Tracer
}

// Validate checks the config is usable.
func (c Config) Validate() error {
	if c.Runtime == nil {
		return errors.NotValidf("nil Runtime")
	}
	if c.Models == nil {
		return errors.NotValidf("nil Models")
	}
	if c.Descriptor == nil {
		return errors.NotValidf("nil Descriptor")
	}
	return nil
}

// Module instantiates the charm into a model of the runtime. It holds no
// deployment state: whether an application exists, and at which
// revision, is owned by the runtime.
type Module struct {
	runtime    Runtime
	models     ModelLookup
	descriptor *charm.Descriptor
	clock      clock.Clock
	metrics    *Collector
	tracer     trace.Tracer
}

// NewModule returns a Module using the given config.
func NewModule(config Config) (*Module, error) {
	if err := config.Validate(); err != nil {
		return nil, errors.Trace(err)
	}
	if config.Clock == nil {
		config.Clock = clock.WallClock
	}
	if config.Tracer == nil {
		config.Tracer = otel.Tracer(tracerName)
	}
	return &Module{
		runtime:    config.Runtime,
		models:     config.Models,
		descriptor: config.Descriptor,
		clock:      config.Clock,
		metrics:    config.Metrics,
		tracer:     config.Tracer,
	}, nil
}

// Apply converges the runtime to the parameters. The first apply for a
// model and application name deploys the application; later applies
// update it in place.
func (m *Module) Apply(ctx context.Context, p Params) (_ Outputs, err error) {
	ctx, span := m.tracer.Start(ctx, "Apply", trace.WithAttributes(
		attribute.String("model.uuid", p.ModelUUID),
		attribute.String("application.name", p.AppName),
	))
	defer func() { endSpan(span, err) }()

	start := m.clock.Now()
	defer func() {
		m.metrics.observeApply(m.clock.Now().Sub(start).Seconds())
	}()

	if err := p.Validate(); err != nil {
		return Outputs{}, errors.Trace(err)
	}
	spec, err := m.spec(p)
	if err != nil {
		return Outputs{}, errors.Trace(err)
	}

	model, err := m.models.ModelByUUID(ctx, p.ModelUUID)
	if err != nil {
		return Outputs{}, errors.Annotatef(err, "resolving model %q", p.ModelUUID)
	}
	spec.Model = model
	span.SetAttributes(attribute.String("model.name", model.Name))

	_, err = m.runtime.Application(ctx, model, spec.Name)
	switch {
	case errors.Is(err, errors.NotFound):
		logger.Debugf("deploying %q to model %q at %s", spec.Name, model.Name, spec.Origin)
		err = m.runtime.Deploy(ctx, spec)
		m.metrics.recordOperation(operationDeploy, err)
		if err != nil {
			return Outputs{}, errors.Annotatef(err, "deploying %q", spec.Name)
		}
		logger.Infof("deployed %q to model %q", spec.Name, model.Name)
	case err != nil:
		return Outputs{}, errors.Annotatef(err, "getting application %q", spec.Name)
	default:
		logger.Debugf("updating %q in model %q to %s", spec.Name, model.Name, spec.Origin)
		err = m.runtime.Update(ctx, spec)
		m.metrics.recordOperation(operationUpdate, err)
		if err != nil {
			return Outputs{}, errors.Annotatef(err, "updating %q", spec.Name)
		}
		logger.Infof("updated %q in model %q", spec.Name, model.Name)
	}
	return OutputsFor(spec.Name), nil
}

// Outputs returns the outputs of the named application without
// contacting the runtime.
func (m *Module) Outputs(appName string) Outputs {
	return OutputsFor(appName)
}

// Destroy removes the named application from the model. Destroying an
// application that does not exist is not an error.
func (m *Module) Destroy(ctx context.Context, modelUUID, appName string) (err error) {
	ctx, span := m.tracer.Start(ctx, "Destroy", trace.WithAttributes(
		attribute.String("model.uuid", modelUUID),
		attribute.String("application.name", appName),
	))
	defer func() { endSpan(span, err) }()

	if modelUUID == "" {
		return errors.Annotate(ErrMissingParameter, "model_uuid")
	}
	model, err := m.models.ModelByUUID(ctx, modelUUID)
	if err != nil {
		return errors.Annotatef(err, "resolving model %q", modelUUID)
	}
	err = m.runtime.Remove(ctx, model, appName)
	if errors.Is(err, errors.NotFound) {
		logger.Debugf("application %q already removed from model %q", appName, model.Name)
		return nil
	}
	m.metrics.recordOperation(operationDestroy, err)
	if err != nil {
		return errors.Annotatef(err, "removing %q", appName)
	}
	logger.Infof("removed %q from model %q", appName, model.Name)
	return nil
}

// spec translates validated parameters into an application spec. The
// model is filled in by the caller.
func (m *Module) spec(p Params) (ApplicationSpec, error) {
	origin, err := charm.MakeOrigin(p.Channel, p.Revision)
	if err != nil {
		return ApplicationSpec{}, errors.Trace(err)
	}
	cons, err := constraints.Parse(p.Constraints)
	if err != nil {
		return ApplicationSpec{}, errors.Trace(err)
	}
	directives, err := storage.ParseDirectives(p.StorageDirectives)
	if err != nil {
		return ApplicationSpec{}, errors.Trace(err)
	}
	for name, d := range directives {
		if d.Count != 1 {
			return ApplicationSpec{}, errors.NotValidf("storage %q count %d, expected 1", name, d.Count)
		}
	}
	return ApplicationSpec{
		Name:        p.AppName,
		Charm:       m.descriptor.Meta.Name,
		Origin:      origin.Resolve(),
		Base:        p.Base,
		Units:       p.Units,
		Trust:       p.Trust,
		Config:      copyStrings(p.Config),
		Constraints: cons,
		Resources:   copyStrings(p.Resources),
		Storage:     directives,
	}, nil
}

func endSpan(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()
}

func copyStrings(in map[string]string) map[string]string {
	if in == nil {
		return nil
	}
	out := make(map[string]string, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}
