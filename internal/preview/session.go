package preview

import (
	"context"
	"io"
	"log/slog"
	"time"

	"github.com/1broseidon/topthumb/internal/geometry"
	"github.com/1broseidon/topthumb/internal/ipc"
	"github.com/1broseidon/topthumb/internal/thumbnail"
)

// Controller is the part of thumbnail.Controller a Session drives.
type Controller interface {
	thumbnail.MessageHandler
	Status() thumbnail.Status
	OnResetGesture() error
	Crop(r geometry.Rect) error
}

var _ Controller = (*thumbnail.Controller)(nil)

// Session connects one controller to its event loop. Window events arrive
// through Handle on the loop goroutine; IPC requests are marshalled onto the
// loop with Loop.Call.
type Session struct {
	loop    *Loop
	ctrl    Controller
	title   string
	pid     int
	timeout time.Duration
	logger  *slog.Logger

	err error
}

var _ ipc.Handler = (*Session)(nil)

// NewSession creates a session. title and pid describe the tracked window.
func NewSession(loop *Loop, ctrl Controller, title string, pid int, logger *slog.Logger) *Session {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Session{
		loop:    loop,
		ctrl:    ctrl,
		title:   title,
		pid:     pid,
		timeout: 5 * time.Second,
		logger:  logger,
	}
}

// Handle dispatches a window message. Must run on the loop goroutine.
func (s *Session) Handle(msg thumbnail.Message) {
	if err := Dispatch(s.ctrl, msg, s.defaultHandler); err != nil {
		s.Fail(err)
	}
}

// defaultHandler is the window system's behavior for messages the controller
// leaves alone.
func (s *Session) defaultHandler(msg thumbnail.Message) {
	if msg.Kind == thumbnail.MessageClose {
		s.logger.Info("preview window closed")
		s.loop.Stop()
	}
}

// Fail records the first fatal error and stops the loop. Must run on the loop
// goroutine.
func (s *Session) Fail(err error) {
	s.logger.Error("preview failed", "error", err)
	if s.err == nil {
		s.err = err
	}
	s.loop.Stop()
}

// Err returns the error that stopped the session, if any. Read it after the
// loop has returned.
func (s *Session) Err() error {
	return s.err
}

func (s *Session) call(fn func()) error {
	ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
	defer cancel()
	return s.loop.Call(ctx, fn)
}

// Status reports the controller state for GET_STATUS.
func (s *Session) Status() (*ipc.StatusData, error) {
	var st thumbnail.Status
	if err := s.call(func() { st = s.ctrl.Status() }); err != nil {
		return nil, err
	}

	return &ipc.StatusData{
		PID:           s.pid,
		Title:         s.title,
		Phase:         st.Phase.String(),
		PreviewWindow: uint32(st.Preview),
		TrackedWindow: uint32(st.Tracked),
		Source:        ipc.NewRectData(st.Source),
		Destination:   ipc.NewRectData(st.Destination),
		Frame:         ipc.NewRectData(st.Frame),
	}, nil
}

// ResetCrop runs the reset gesture.
func (s *Session) ResetCrop() error {
	var err error
	if cerr := s.call(func() { err = s.ctrl.OnResetGesture() }); cerr != nil {
		return cerr
	}
	return err
}

// Crop applies a preview client-space rectangle.
func (s *Session) Crop(crop ipc.CropPayload) error {
	var err error
	if cerr := s.call(func() { err = s.ctrl.Crop(crop.Rect()) }); cerr != nil {
		return cerr
	}
	return err
}
