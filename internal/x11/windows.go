package x11

import (
	"errors"
	"fmt"
	"strings"

	"github.com/BurntSushi/xgb/xproto"
	"github.com/BurntSushi/xgbutil/ewmh"
	"github.com/BurntSushi/xgbutil/icccm"
	"github.com/BurntSushi/xgbutil/xprop"
	"github.com/BurntSushi/xgbutil/xwindow"

	"github.com/1broseidon/topthumb/internal/geometry"
)

// ClientInfo describes a managed top-level client window.
type ClientInfo struct {
	ID    xproto.Window
	PID   int
	Title string
}

// WindowExists reports whether windowID is still a live window on the server.
func (c *Connection) WindowExists(windowID xproto.Window) (bool, error) {
	_, err := xproto.GetWindowAttributes(c.XUtil.Conn(), windowID).Reply()
	if err == nil {
		return true, nil
	}
	var werr xproto.WindowError
	if errors.As(err, &werr) {
		return false, nil
	}
	return false, err
}

// FindWindowsByTitle returns every normal client window in the EWMH client
// list whose title contains the given substring (case-sensitive), in stacking
// list order.
func (c *Connection) FindWindowsByTitle(substring string) ([]ClientInfo, error) {
	clients, err := ewmh.ClientListGet(c.XUtil)
	if err != nil {
		return nil, fmt.Errorf("failed to get client list: %w", err)
	}

	var matches []ClientInfo
	for _, win := range clients {
		if !c.IsNormalWindow(win) {
			continue
		}
		title := c.WindowTitle(win)
		if !containsSubstring(title, substring) {
			continue
		}

		pid := 0
		if p, err := ewmh.WmPidGet(c.XUtil, win); err == nil {
			pid = int(p)
		}
		matches = append(matches, ClientInfo{ID: win, PID: pid, Title: title})
	}
	return matches, nil
}

// containsSubstring checks if s contains substr (case-sensitive).
func containsSubstring(s, substr string) bool {
	return len(substr) > 0 && len(s) >= len(substr) && strings.Contains(s, substr)
}

// WindowTitle returns _NET_WM_NAME, falling back to WM_NAME.
func (c *Connection) WindowTitle(windowID xproto.Window) string {
	title, err := ewmh.WmNameGet(c.XUtil, windowID)
	if err == nil {
		title = strings.TrimSpace(title)
		if title != "" {
			return title
		}
	}

	title, err = icccm.WmNameGet(c.XUtil, windowID)
	if err == nil {
		return strings.TrimSpace(title)
	}
	return ""
}

// IsNormalWindow checks if a window is a normal application window
func (c *Connection) IsNormalWindow(windowID xproto.Window) bool {
	types, err := ewmh.WmWindowTypeGet(c.XUtil, windowID)
	if err != nil {
		// If we can't determine type, assume it's normal
		return true
	}

	for _, t := range types {
		switch t {
		case "_NET_WM_WINDOW_TYPE_NORMAL", "_NET_WM_WINDOW_TYPE_DIALOG":
			return true
		case "_NET_WM_WINDOW_TYPE_DESKTOP",
			"_NET_WM_WINDOW_TYPE_DOCK",
			"_NET_WM_WINDOW_TYPE_SPLASH",
			"_NET_WM_WINDOW_TYPE_NOTIFICATION":
			return false
		}
	}
	return len(types) == 0
}

// Toplevel walks up from a client window to the child of the root that holds
// it. With a reparenting window manager this is the decoration frame; without
// one it is the client itself.
func (c *Connection) Toplevel(windowID xproto.Window) (xproto.Window, error) {
	current := windowID
	for {
		tree, err := xproto.QueryTree(c.XUtil.Conn(), current).Reply()
		if err != nil {
			return 0, fmt.Errorf("failed to query tree for 0x%x: %w", current, err)
		}
		if tree.Parent == c.Root || tree.Parent == 0 {
			return current, nil
		}
		current = tree.Parent
	}
}

// FrameBounds returns the visible bounds of a client window in root
// coordinates: the top-level frame geometry, or for client-side decorated
// windows the client area minus its _GTK_FRAME_EXTENTS shadow margin.
func (c *Connection) FrameBounds(windowID xproto.Window) (geometry.Rect, error) {
	if left, right, top, bottom, ok := c.gtkFrameExtents(windowID); ok {
		r, err := c.RootRect(windowID)
		if err != nil {
			return geometry.Rect{}, err
		}
		return geometry.Rect{
			Left:   r.Left + left,
			Top:    r.Top + top,
			Right:  r.Right - right,
			Bottom: r.Bottom - bottom,
		}, nil
	}

	toplevel, err := c.Toplevel(windowID)
	if err != nil {
		return geometry.Rect{}, err
	}
	rect, err := xwindow.RawGeometry(c.XUtil, xproto.Drawable(toplevel))
	if err != nil {
		return geometry.Rect{}, fmt.Errorf("failed to get frame geometry: %w", err)
	}
	return geometry.FromXYWH(rect.X(), rect.Y(), rect.Width(), rect.Height()), nil
}

// RootRect returns a window's own geometry translated into root coordinates.
func (c *Connection) RootRect(windowID xproto.Window) (geometry.Rect, error) {
	conn := c.XUtil.Conn()
	geom, err := xproto.GetGeometry(conn, xproto.Drawable(windowID)).Reply()
	if err != nil {
		return geometry.Rect{}, fmt.Errorf("failed to get window geometry: %w", err)
	}
	translate, err := xproto.TranslateCoordinates(conn, windowID, c.Root, 0, 0).Reply()
	if err != nil {
		return geometry.Rect{}, fmt.Errorf("failed to translate coordinates: %w", err)
	}
	return geometry.FromXYWH(int(translate.DstX), int(translate.DstY), int(geom.Width), int(geom.Height)), nil
}

// ClientSize returns a window's client area, origin at its top-left.
func (c *Connection) ClientSize(windowID xproto.Window) (geometry.Rect, error) {
	geom, err := xproto.GetGeometry(c.XUtil.Conn(), xproto.Drawable(windowID)).Reply()
	if err != nil {
		return geometry.Rect{}, fmt.Errorf("failed to get window geometry: %w", err)
	}
	return geometry.FromXYWH(0, 0, int(geom.Width), int(geom.Height)), nil
}

func (c *Connection) gtkFrameExtents(windowID xproto.Window) (left, right, top, bottom int, ok bool) {
	nums, err := xprop.PropValNums(xprop.GetProperty(c.XUtil, windowID, "_GTK_FRAME_EXTENTS"))
	if err != nil || len(nums) != 4 {
		return 0, 0, 0, 0, false
	}
	return int(nums[0]), int(nums[1]), int(nums[2]), int(nums[3]), true
}
