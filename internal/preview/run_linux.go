//go:build linux

package preview

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/BurntSushi/xgbutil"
	"github.com/BurntSushi/xgbutil/xevent"

	"github.com/1broseidon/topthumb/internal/config"
	"github.com/1broseidon/topthumb/internal/hotkeys"
	"github.com/1broseidon/topthumb/internal/ipc"
	"github.com/1broseidon/topthumb/internal/platform"
	"github.com/1broseidon/topthumb/internal/runtimepath"
	"github.com/1broseidon/topthumb/internal/supervisor"
	"github.com/1broseidon/topthumb/internal/thumbnail"
	"github.com/1broseidon/topthumb/internal/x11"
)

// watchInterval is how often the tracked window's existence is checked.
const watchInterval = time.Second

// Options configures Run.
type Options struct {
	Query  string
	Config *config.Config
	Choose Chooser
	Out    io.Writer
	Logger *slog.Logger
}

// Run opens the display, finds the window to track and shows its live preview
// until the preview is closed, the tracked window goes away or ctx ends.
func Run(ctx context.Context, opts Options) error {
	cfg := opts.Config
	if cfg == nil {
		cfg = config.DefaultConfig()
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	out := opts.Out
	if out == nil {
		out = io.Discard
	}

	backend, err := platform.NewLinuxBackendFromDisplay(cfg.Display, logger)
	if err != nil {
		return err
	}
	defer backend.Disconnect()
	conn := backend.Connection()

	if err := conn.InitExtensions(); err != nil {
		return fmt.Errorf("X server is missing a required extension: %w", err)
	}

	fmt.Fprintf(out, "Looking for %q...\n", opts.Query)
	target, err := FindTarget(backend, opts.Query, opts.Choose)
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "Using window %q\n", target.Title)

	frame, err := backend.ExtendedFrameBounds(target.ID)
	if err != nil {
		return fmt.Errorf("failed to get tracked window bounds: %w", err)
	}
	width, height := frame.Width(), frame.Height()
	if area, err := conn.UsableArea(frame); err == nil {
		width, height = x11.FitSize(width, height, area)
	} else {
		logger.Debug("no usable area, keeping frame size", "error", err)
	}

	win, err := x11.NewPreviewWindow(conn, x11.PreviewOptions{
		Title:       cfg.Title,
		Width:       width,
		Height:      height,
		Topmost:     cfg.Topmost,
		AllDesktops: cfg.AllDesktops,
	})
	if err != nil {
		return err
	}
	defer win.Destroy()

	ctrl, err := thumbnail.New(platform.WindowID(win.ID()), target.ID, thumbnail.Deps{
		Windows:    backend,
		Thumbnails: backend,
		Compositor: backend,
		Logger:     logger,
	}, ControllerOptions(cfg)...)
	if err != nil {
		return err
	}
	defer func() {
		if err := ctrl.Close(); err != nil {
			logger.Warn("failed to release thumbnail", "error", err)
		}
	}()

	loop := NewLoop(conn, logger)
	if cfg.RefreshIntervalMS > 0 {
		loop.SetRefresh(time.Duration(cfg.RefreshIntervalMS)*time.Millisecond, backend.RefreshThumbnails)
	}
	session := NewSession(loop, ctrl, target.Title, target.PID, logger)

	bindWindowEvents(conn.XUtil, win, session)

	keys := hotkeys.NewHandler(conn.XUtil, win.ID(), logger)
	if err := keys.RegisterAll(KeyBindings(cfg, session)); err != nil {
		return err
	}

	socketPath, err := runtimepath.SocketPath(os.Getpid())
	if err != nil {
		return fmt.Errorf("failed to resolve IPC socket path: %w", err)
	}

	serviceCtx, cancelServices := context.WithCancel(ctx)
	defer cancelServices()

	super := supervisor.New("topthumb", logger)
	supervisor.Add(super, ipc.NewServer(socketPath, session, logger))
	supervisor.Add(super, NewWatcher(WatcherConfig{Interval: watchInterval, Logger: logger},
		func(ctx context.Context) (bool, error) {
			var alive bool
			var err error
			if cerr := loop.Call(ctx, func() { alive, err = backend.WindowExists(target.ID) }); cerr != nil {
				return false, cerr
			}
			return alive, err
		},
		loop.Stop,
	))
	superDone := super.ServeBackground(serviceCtx)

	logger.Info("preview running",
		"tracked", target.ID,
		"preview", win.ID(),
		"size", fmt.Sprintf("%dx%d", width, height),
		"socket", socketPath)

	runErr := loop.Run(ctx)

	cancelServices()
	<-superDone

	if err := session.Err(); err != nil {
		return err
	}
	if runErr != nil && !errors.Is(runErr, context.Canceled) {
		return runErr
	}
	return nil
}

// bindWindowEvents translates preview window events into controller messages.
func bindWindowEvents(xu *xgbutil.XUtil, win *x11.PreviewWindow, session *Session) {
	id := win.ID()

	xevent.ButtonPressFun(func(xu *xgbutil.XUtil, ev xevent.ButtonPressEvent) {
		if msg, ok := pressMessage(ev.Detail, ev.EventX, ev.EventY); ok {
			session.Handle(msg)
		}
	}).Connect(xu, id)

	xevent.ButtonReleaseFun(func(xu *xgbutil.XUtil, ev xevent.ButtonReleaseEvent) {
		if msg, ok := releaseMessage(ev.Detail, ev.EventX, ev.EventY); ok {
			session.Handle(msg)
		}
	}).Connect(xu, id)

	xevent.MotionNotifyFun(func(xu *xgbutil.XUtil, ev xevent.MotionNotifyEvent) {
		if msg, ok := motionMessage(ev.State, ev.EventX, ev.EventY); ok {
			session.Handle(msg)
		}
	}).Connect(xu, id)

	xevent.ConfigureNotifyFun(func(xu *xgbutil.XUtil, ev xevent.ConfigureNotifyEvent) {
		session.Handle(thumbnail.Message{Kind: thumbnail.MessageResize})
	}).Connect(xu, id)

	win.OnClose(func() {
		session.Handle(thumbnail.Message{Kind: thumbnail.MessageClose})
	})
}
