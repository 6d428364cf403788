// Copyright 2024 Canonical Ltd.
// Licensed under the AGPLv3, see LICENCE file for details.

package deployment

import (
	"context"
	"time"

	"github.com/juju/clock"
	"github.com/juju/errors"
	"github.com/juju/retry"
)

const errNotConverged = errors.ConstError("application not converged")

// WaitArgs holds the arguments to WaitForUnits.
type WaitArgs struct {
	Runtime Runtime
	Model   Model
	Name    string
	Units   int

	Clock   clock.Clock
	Delay   time.Duration
	Timeout time.Duration
}

// Validate checks the arguments are usable.
func (a WaitArgs) Validate() error {
	if a.Runtime == nil {
		return errors.NotValidf("nil Runtime")
	}
	if a.Clock == nil {
		return errors.NotValidf("nil Clock")
	}
	if a.Delay <= 0 {
		return errors.NotValidf("non-positive Delay")
	}
	if a.Timeout <= 0 {
		return errors.NotValidf("non-positive Timeout")
	}
	return nil
}

// WaitForUnits polls the runtime until the application reports the
// expected number of ready units, the timeout expires or the context is
// cancelled. Waiting is the concern of the automation invoking the
// module; Apply itself returns as soon as the runtime accepts the spec.
func WaitForUnits(ctx context.Context, args WaitArgs) (ApplicationStatus, error) {
	if err := args.Validate(); err != nil {
		return ApplicationStatus{}, errors.Trace(err)
	}
	var status ApplicationStatus
	err := retry.Call(retry.CallArgs{
		Func: func() error {
			var err error
			status, err = args.Runtime.Status(ctx, args.Model, args.Name)
			if err != nil {
				return errors.Trace(err)
			}
			if status.Units != args.Units || status.ReadyUnits != args.Units {
				return errNotConverged
			}
			return nil
		},
		IsFatalError: func(err error) bool {
			return !errors.Is(err, errNotConverged)
		},
		NotifyFunc: func(err error, attempt int) {
			logger.Debugf("attempt %d: %q has %d/%d units ready", attempt, args.Name, status.ReadyUnits, args.Units)
		},
		Attempts:    -1,
		Delay:       args.Delay,
		MaxDuration: args.Timeout,
		Clock:       args.Clock,
		Stop:        ctx.Done(),
	})
	if retry.IsDurationExceeded(err) || retry.IsRetryStopped(err) {
		return status, errors.Annotatef(retry.LastError(err), "waiting for %d units of %q", args.Units, args.Name)
	}
	return status, errors.Trace(err)
}
