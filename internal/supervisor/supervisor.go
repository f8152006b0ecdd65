// Package supervisor wraps suture with slog-based event reporting.
package supervisor

import (
	"context"
	"errors"
	"log/slog"

	"github.com/thejerf/suture/v4"
)

// New returns a supervisor that reports its events to logger.
func New(name string, logger *slog.Logger) *suture.Supervisor {
	if logger == nil {
		logger = slog.Default()
	}
	return suture.New(name, suture.Spec{
		EventHook: EventHook(logger),
	})
}

// EventHook logs supervisor events.
func EventHook(logger *slog.Logger) suture.EventHook {
	return func(ei suture.Event) {
		switch e := ei.(type) {
		case suture.EventStopTimeout:
			logger.Info("service failed to terminate in a timely manner", "supervisor", e.SupervisorName, "service", e.ServiceName)
		case suture.EventServicePanic:
			logger.Warn("caught a service panic", "panic", e.PanicMsg, "service", e.ServiceName)
			logger.Debug(e.Stacktrace)
		case suture.EventServiceTerminate:
			logger.Error("service failed", "error", e.Err, "supervisor", e.SupervisorName, "service", e.ServiceName)
		case suture.EventBackoff:
			logger.Debug("too many service failures, backing off", "supervisor", e.SupervisorName)
		case suture.EventResume:
			logger.Debug("exiting backoff state", "supervisor", e.SupervisorName)
		default:
			logger.Warn("unknown supervisor event", "type", int(e.Type()))
		}
	}
}

// Service is a suture.Service with a name for the event log.
type Service interface {
	String() string
	suture.Service
}

// Add registers service so that a non-context error it returns is never
// mistaken for supervisor shutdown.
func Add(super *suture.Supervisor, service Service) suture.ServiceToken {
	return super.Add(sanitizeService{Service: service})
}

type sanitizeService struct {
	Service
}

func (s sanitizeService) Serve(ctx context.Context) error {
	return SanitizeError(ctx, s.Service.Serve(ctx))
}

// SanitizeError hides context errors that did not come from ctx itself.
// Suture stops restarting a service that returns a context error.
func SanitizeError(ctx context.Context, err error) error {
	if err == nil {
		return nil
	}

	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
	}

	if !(errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)) {
		return err
	}

	var errs []error
	if errors.Is(err, suture.ErrDoNotRestart) {
		errs = append(errs, suture.ErrDoNotRestart)
	}
	if errors.Is(err, suture.ErrTerminateSupervisorTree) {
		errs = append(errs, suture.ErrTerminateSupervisorTree)
	}
	errs = append(errs, errors.New(err.Error()))

	return errors.Join(errs...)
}

// Func adapts a function into a named Service.
type Func struct {
	name string
	fn   func(ctx context.Context) error
}

// NewFunc returns a Service running fn under name.
func NewFunc(name string, fn func(ctx context.Context) error) Func {
	return Func{name: name, fn: fn}
}

func (f Func) String() string {
	return f.name
}

func (f Func) Serve(ctx context.Context) error {
	return f.fn(ctx)
}
