package preview

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"time"
)

// ExistsFunc reports whether the tracked window is still alive.
type ExistsFunc func(ctx context.Context) (bool, error)

// WatcherConfig holds configuration for the watcher.
type WatcherConfig struct {
	Interval time.Duration
	Logger   *slog.Logger
}

// Watcher periodically checks that the tracked window still exists and calls
// onGone once it does not. It implements suture.Service.
type Watcher struct {
	interval time.Duration
	exists   ExistsFunc
	onGone   func()
	logger   *slog.Logger
}

// NewWatcher creates a watcher.
func NewWatcher(cfg WatcherConfig, exists ExistsFunc, onGone func()) *Watcher {
	interval := cfg.Interval
	if interval <= 0 {
		interval = time.Second
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}

	return &Watcher{
		interval: interval,
		exists:   exists,
		onGone:   onGone,
		logger:   logger,
	}
}

func (w *Watcher) String() string {
	return "tracked-window-watcher"
}

// Serve runs the check loop. It returns nil after reporting the window gone,
// or ctx's error on cancellation.
func (w *Watcher) Serve(ctx context.Context) error {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	w.logger.Debug("watcher started", "interval", w.interval)

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			gone, err := w.check(ctx)
			if err != nil {
				return err
			}
			if gone {
				w.logger.Info("tracked window is gone")
				w.onGone()
				// Nothing left to watch; keep suture from restarting us.
				<-ctx.Done()
				return ctx.Err()
			}
		}
	}
}

// check performs a single liveness pass.
func (w *Watcher) check(ctx context.Context) (gone bool, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("watcher panic: %v", r)
		}
	}()

	alive, err := w.exists(ctx)
	if err != nil {
		return false, fmt.Errorf("failed to check tracked window: %w", err)
	}
	return !alive, nil
}
