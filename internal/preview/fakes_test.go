package preview

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/1broseidon/topthumb/internal/geometry"
	"github.com/1broseidon/topthumb/internal/platform"
	"github.com/1broseidon/topthumb/internal/thumbnail"
)

// fakeSource stands in for the X event goroutine.
type fakeSource struct {
	before chan struct{}
	after  chan struct{}
	quit   chan struct{}

	mu    sync.Mutex
	quits int
}

func newFakeSource() *fakeSource {
	return &fakeSource{
		before: make(chan struct{}),
		after:  make(chan struct{}),
		quit:   make(chan struct{}),
	}
}

func (s *fakeSource) MainPing() (before, after, quit chan struct{}) {
	return s.before, s.after, s.quit
}

func (s *fakeSource) Quit() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.quits++
}

func (s *fakeSource) quitCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.quits
}

// dispatch runs fn the way the event goroutine runs a callback.
func (s *fakeSource) dispatch(fn func()) {
	s.before <- struct{}{}
	fn()
	s.after <- struct{}{}
}

type fakeController struct {
	msgs      []thumbnail.Message
	handleErr error
	status    thumbnail.Status
	resets    int
	resetErr  error
	crops     []geometry.Rect
	cropErr   error
}

func (c *fakeController) HandleMessage(msg thumbnail.Message) (bool, error) {
	c.msgs = append(c.msgs, msg)
	if msg.Kind == thumbnail.MessageClose {
		return false, nil
	}
	return true, c.handleErr
}

func (c *fakeController) Status() thumbnail.Status {
	return c.status
}

func (c *fakeController) OnResetGesture() error {
	c.resets++
	return c.resetErr
}

func (c *fakeController) Crop(r geometry.Rect) error {
	c.crops = append(c.crops, r)
	return c.cropErr
}

type fakeLocator struct {
	windows []platform.Window
	err     error
	query   string
}

func (l *fakeLocator) FindWindowsByTitle(query string) ([]platform.Window, error) {
	l.query = query
	return l.windows, l.err
}

// runLoop starts l and returns a function that waits for Run's result.
func runLoop(t *testing.T, ctx context.Context, l *Loop) func() error {
	t.Helper()
	errC := make(chan error, 1)
	go func() { errC <- l.Run(ctx) }()
	return func() error {
		select {
		case err := <-errC:
			return err
		case <-time.After(2 * time.Second):
			t.Fatalf("loop did not return")
			return nil
		}
	}
}
