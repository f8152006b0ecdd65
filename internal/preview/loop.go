package preview

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"time"
)

// ErrStopped is returned by Call once the loop has exited.
var ErrStopped = errors.New("preview event loop stopped")

// EventSource runs the window system's event dispatch on its own goroutine.
// Each dispatched event is bracketed by a receive on before and after; quit
// fires once the source stops. x11.Connection implements it.
type EventSource interface {
	MainPing() (before, after, quit chan struct{})
	Quit()
}

// Loop owns the goroutine that may touch preview state. Window system
// callbacks run while the loop is parked between before and after, and work
// from other goroutines is handed in through Call, so the two never overlap.
type Loop struct {
	src       EventSource
	calls     chan func()
	stop      chan struct{}
	stopOnce  sync.Once
	done      chan struct{}
	refresh   time.Duration
	onRefresh func()
	logger    *slog.Logger
}

// NewLoop creates a loop over src.
func NewLoop(src EventSource, logger *slog.Logger) *Loop {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Loop{
		src:    src,
		calls:  make(chan func()),
		stop:   make(chan struct{}),
		done:   make(chan struct{}),
		logger: logger,
	}
}

// SetRefresh runs fn on the loop every interval. Must be called before Run;
// a non-positive interval disables the timer.
func (l *Loop) SetRefresh(interval time.Duration, fn func()) {
	l.refresh = interval
	l.onRefresh = fn
}

// Run services events until ctx is cancelled, Stop is called or the source
// quits. Once Run returns no further window system callbacks are dispatched.
func (l *Loop) Run(ctx context.Context) error {
	defer close(l.done)

	before, after, quit := l.src.MainPing()

	var tick <-chan time.Time
	if l.refresh > 0 && l.onRefresh != nil {
		ticker := time.NewTicker(l.refresh)
		defer ticker.Stop()
		tick = ticker.C
	}

	l.logger.Debug("entering event loop", "refresh", l.refresh)
	for {
		// A stop requested from a callback wins over queued work.
		select {
		case <-l.stop:
			return nil
		default:
		}

		select {
		case <-before:
			<-after
		case fn := <-l.calls:
			fn()
		case <-tick:
			l.onRefresh()
		case <-l.stop:
			return nil
		case <-quit:
			l.logger.Debug("event source stopped")
			return nil
		case <-ctx.Done():
			l.src.Quit()
			return ctx.Err()
		}
	}
}

// Stop ends Run after the current callback returns. Safe to call from any
// goroutine, any number of times.
func (l *Loop) Stop() {
	l.stopOnce.Do(func() {
		l.src.Quit()
		close(l.stop)
	})
}

// Call runs fn on the loop goroutine and waits for it to finish. A panic in
// fn is recovered on the loop and returned as an error.
func (l *Loop) Call(ctx context.Context, fn func()) error {
	finished := make(chan struct{})
	var panicErr error
	wrapped := func() {
		defer close(finished)
		defer func() {
			if r := recover(); r != nil {
				panicErr = fmt.Errorf("panic on event loop: %v", r)
			}
		}()
		fn()
	}

	select {
	case l.calls <- wrapped:
	case <-l.done:
		return ErrStopped
	case <-ctx.Done():
		return ctx.Err()
	}

	// Once accepted the call always runs to completion.
	<-finished
	return panicErr
}

// Done is closed when Run returns.
func (l *Loop) Done() <-chan struct{} {
	return l.done
}
