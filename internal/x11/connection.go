package x11

import (
	"fmt"
	"sync"

	"github.com/BurntSushi/xgb/composite"
	"github.com/BurntSushi/xgb/damage"
	"github.com/BurntSushi/xgb/render"
	"github.com/BurntSushi/xgb/xproto"
	"github.com/BurntSushi/xgbutil"
	"github.com/BurntSushi/xgbutil/keybind"
	"github.com/BurntSushi/xgbutil/xevent"
)

// Connection manages the X11 connection and core X resources
type Connection struct {
	XUtil *xgbutil.XUtil
	Root  xproto.Window

	extOnce sync.Once
	extErr  error
}

// NewConnection establishes a connection to the X11 server. An empty display
// uses $DISPLAY.
func NewConnection(display string) (*Connection, error) {
	xu, err := xgbutil.NewConnDisplay(display)
	if err != nil {
		return nil, err
	}

	// Initialize keybind module (required for preview key bindings)
	keybind.Initialize(xu)

	return &Connection{
		XUtil: xu,
		Root:  xu.RootWin(),
	}, nil
}

// InitExtensions initializes Composite, Render and Damage once per connection.
// Later calls return the first result.
func (c *Connection) InitExtensions() error {
	c.extOnce.Do(func() {
		c.extErr = c.initExtensions()
	})
	return c.extErr
}

func (c *Connection) initExtensions() error {
	conn := c.XUtil.Conn()

	if err := composite.Init(conn); err != nil {
		return fmt.Errorf("composite init failed: %w", err)
	}
	// NameWindowPixmap needs a negotiated version of at least 0.2.
	if _, err := composite.QueryVersion(conn, 0, 4).Reply(); err != nil {
		return fmt.Errorf("composite version query failed: %w", err)
	}

	if err := render.Init(conn); err != nil {
		return fmt.Errorf("render init failed: %w", err)
	}
	if _, err := render.QueryVersion(conn, 0, 11).Reply(); err != nil {
		return fmt.Errorf("render version query failed: %w", err)
	}

	if err := damage.Init(conn); err != nil {
		return fmt.Errorf("damage init failed: %w", err)
	}
	if _, err := damage.QueryVersion(conn, 1, 1).Reply(); err != nil {
		return fmt.Errorf("damage version query failed: %w", err)
	}
	return nil
}

// MainPing starts the X event loop on its own goroutine. See xevent.MainPing.
func (c *Connection) MainPing() (before, after, quit chan struct{}) {
	return xevent.MainPing(c.XUtil)
}

// Quit asks the event loop started by MainPing to stop.
func (c *Connection) Quit() {
	xevent.Quit(c.XUtil)
}

// Sync blocks until the server has processed every request sent so far.
func (c *Connection) Sync() {
	c.XUtil.Sync()
}

// Close cleanly disconnects from the X11 server
func (c *Connection) Close() {
	c.XUtil.Conn().Close()
}
