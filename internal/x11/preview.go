package x11

import (
	"fmt"

	"github.com/BurntSushi/xgb/xproto"
	"github.com/BurntSushi/xgbutil/ewmh"
	"github.com/BurntSushi/xgbutil/icccm"
	"github.com/BurntSushi/xgbutil/xwindow"
)

const stateAbove = "_NET_WM_STATE_ABOVE"

// PreviewEvents is the event mask selected on the preview window.
const PreviewEvents = xproto.EventMaskButtonPress |
	xproto.EventMaskButtonRelease |
	xproto.EventMaskButtonMotion |
	xproto.EventMaskKeyPress |
	xproto.EventMaskExposure |
	xproto.EventMaskStructureNotify

// PreviewOptions configures the preview window.
type PreviewOptions struct {
	Title       string
	Width       int
	Height      int
	Topmost     bool
	AllDesktops bool
}

// PreviewWindow is the top-level window the thumbnail is painted into.
type PreviewWindow struct {
	conn *Connection
	win  *xwindow.Window
}

// NewPreviewWindow creates and maps the preview window.
func NewPreviewWindow(conn *Connection, opts PreviewOptions) (*PreviewWindow, error) {
	if opts.Width < 1 || opts.Height < 1 {
		return nil, fmt.Errorf("invalid preview size %dx%d", opts.Width, opts.Height)
	}

	win, err := xwindow.Generate(conn.XUtil)
	if err != nil {
		return nil, fmt.Errorf("failed to allocate preview window: %w", err)
	}

	// Value list order follows the bit positions of the mask (low → high).
	if err := win.CreateChecked(conn.Root, 0, 0, opts.Width, opts.Height,
		xproto.CwBackPixel|xproto.CwEventMask,
		0, PreviewEvents,
	); err != nil {
		return nil, fmt.Errorf("failed to create preview window: %w", err)
	}

	if err := ewmh.WmNameSet(conn.XUtil, win.Id, opts.Title); err != nil {
		return nil, fmt.Errorf("failed to set preview title: %w", err)
	}
	if err := icccm.WmNameSet(conn.XUtil, win.Id, opts.Title); err != nil {
		return nil, fmt.Errorf("failed to set preview title: %w", err)
	}
	if err := icccm.WmClassSet(conn.XUtil, win.Id, &icccm.WmClass{Instance: "topthumb", Class: "Topthumb"}); err != nil {
		return nil, fmt.Errorf("failed to set preview class: %w", err)
	}
	if opts.Topmost {
		// Honored by window managers that read the state at map time.
		if err := ewmh.WmStateSet(conn.XUtil, win.Id, []string{stateAbove}); err != nil {
			return nil, fmt.Errorf("failed to set preview state: %w", err)
		}
	}

	win.Map()

	p := &PreviewWindow{conn: conn, win: win}
	if opts.Topmost {
		if err := p.SetTopmost(true); err != nil {
			return nil, err
		}
	}
	if opts.AllDesktops {
		if err := conn.SetWindowDesktop(win.Id, AllDesktops); err != nil {
			return nil, fmt.Errorf("failed to make preview sticky: %w", err)
		}
	}
	return p, nil
}

// ID returns the X window id.
func (p *PreviewWindow) ID() xproto.Window {
	return p.win.Id
}

// SetTopmost asks the window manager to keep the preview above other windows.
func (p *PreviewWindow) SetTopmost(on bool) error {
	action := ewmh.StateRemove
	if on {
		action = ewmh.StateAdd
	}
	if err := ewmh.WmStateReq(p.conn.XUtil, p.win.Id, action, stateAbove); err != nil {
		return fmt.Errorf("failed to request always-on-top: %w", err)
	}
	return nil
}

// OnClose runs cb when the window manager asks the preview to close.
func (p *PreviewWindow) OnClose(cb func()) {
	p.win.WMGracefulClose(func(*xwindow.Window) {
		cb()
	})
}

// Destroy detaches every event handler and destroys the window.
func (p *PreviewWindow) Destroy() {
	p.win.Destroy()
}
