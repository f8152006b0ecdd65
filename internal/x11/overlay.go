package x11

import (
	"fmt"

	"github.com/BurntSushi/xgb/xproto"

	"github.com/1broseidon/topthumb/internal/geometry"
)

// RectOverlay is a rectangle drawn over the preview with child windows: one
// window for a solid fill, or four thin bars around a hollow center. State set
// before Attach is buffered and applied when the windows are created.
type RectOverlay struct {
	conn   *Connection
	parent xproto.Window

	x, y          int
	width, height int
	visible       bool
	color         uint32
	thickness     int // 0 means a solid fill
	hollow        bool

	bars    [4]xproto.Window // top, bottom, left, right
	fill    xproto.Window
	created bool
}

// NewRectOverlay returns an unattached overlay.
func NewRectOverlay(conn *Connection) *RectOverlay {
	return &RectOverlay{conn: conn}
}

// Attach creates the overlay windows as children of parent.
func (o *RectOverlay) Attach(parent xproto.Window) error {
	if o.created {
		return fmt.Errorf("overlay already attached to 0x%x", o.parent)
	}
	o.parent = parent

	var err error
	for i := range o.bars {
		if o.bars[i], err = o.createChildWindow(); err != nil {
			o.Destroy()
			return err
		}
	}
	if o.fill, err = o.createChildWindow(); err != nil {
		o.Destroy()
		return err
	}
	o.created = true
	o.apply()
	return nil
}

// SetOffset moves the overlay's top-left corner within the parent.
func (o *RectOverlay) SetOffset(x, y int) {
	o.x, o.y = x, y
	o.apply()
}

// SetSize sets the overlay's outer size.
func (o *RectOverlay) SetSize(width, height int) {
	o.width, o.height = width, height
	o.apply()
}

// SetVisible maps or unmaps the overlay.
func (o *RectOverlay) SetVisible(visible bool) {
	o.visible = visible
	o.apply()
}

// SetBorder draws the overlay as a border of the given thickness. A hollow
// border leaves the center transparent.
func (o *RectOverlay) SetBorder(color uint32, thickness int, hollow bool) {
	o.color = color
	o.thickness = thickness
	o.hollow = hollow
	o.apply()
}

// SetSolid draws the overlay as a filled rectangle.
func (o *RectOverlay) SetSolid(color uint32) {
	o.color = color
	o.thickness = 0
	o.hollow = false
	o.apply()
}

// Destroy destroys the overlay windows.
func (o *RectOverlay) Destroy() {
	conn := o.conn.XUtil.Conn()
	for i, wid := range o.bars {
		if wid != 0 {
			xproto.DestroyWindow(conn, wid)
		}
		o.bars[i] = 0
	}
	if o.fill != 0 {
		xproto.DestroyWindow(conn, o.fill)
		o.fill = 0
	}
	o.created = false
}

func (o *RectOverlay) apply() {
	if !o.created {
		return
	}
	if !o.visible {
		o.unmapAll()
		return
	}

	x, y := o.x, o.y
	w, h := o.width, o.height

	if o.thickness <= 0 || !o.hollow {
		for _, wid := range o.bars {
			xproto.UnmapWindow(o.conn.XUtil.Conn(), wid)
		}
		o.updateWindow(o.fill, x, y, w, h)
		return
	}

	xproto.UnmapWindow(o.conn.XUtil.Conn(), o.fill)
	for i, r := range borderBars(x, y, w, h, o.thickness) {
		o.updateWindow(o.bars[i], r.Left, r.Top, r.Width(), r.Height())
	}
}

// borderBars lays out a hollow border of thickness t around the w x h rect at
// (x, y): top, bottom, left, right. Top and bottom span the full width; left
// and right fill the gap between them. Bars collapse to empty rects when the
// rect is too small to hold them.
func borderBars(x, y, w, h, t int) [4]geometry.Rect {
	w, h = max(w, 0), max(h, 0)
	th := min(t, h)
	tw := min(t, w)
	side := max(h-2*t, 0)

	return [4]geometry.Rect{
		geometry.FromXYWH(x, y, w, th),
		geometry.FromXYWH(x, y+h-th, w, th),
		geometry.FromXYWH(x, y+t, tw, side),
		geometry.FromXYWH(x+w-tw, y+t, tw, side),
	}
}

func (o *RectOverlay) unmapAll() {
	conn := o.conn.XUtil.Conn()
	for _, wid := range o.bars {
		xproto.UnmapWindow(conn, wid)
	}
	xproto.UnmapWindow(conn, o.fill)
}

// createChildWindow creates an unmapped InputOutput child of the parent. It
// selects no input, so pointer events propagate to the parent.
func (o *RectOverlay) createChildWindow() (xproto.Window, error) {
	conn := o.conn.XUtil.Conn()
	screen := o.conn.XUtil.Screen()

	wid, err := xproto.NewWindowId(conn)
	if err != nil {
		return 0, err
	}

	err = xproto.CreateWindowChecked(
		conn,
		screen.RootDepth,
		wid,
		o.parent,
		0, 0, // x, y (will be updated later)
		1, 1, // width, height (will be updated later)
		0, // border_width
		xproto.WindowClassInputOutput,
		screen.RootVisual,
		xproto.CwBackPixel,
		[]uint32{o.color},
	).Check()
	if err != nil {
		return 0, fmt.Errorf("failed to create overlay window: %w", err)
	}
	return wid, nil
}

// updateWindow moves, resizes, recolors and maps a window. X rejects zero
// sizes, so a collapsed rect is unmapped instead.
func (o *RectOverlay) updateWindow(wid xproto.Window, x, y, width, height int) {
	conn := o.conn.XUtil.Conn()

	if width < 1 || height < 1 {
		xproto.UnmapWindow(conn, wid)
		return
	}

	xproto.ConfigureWindow(
		conn,
		wid,
		xproto.ConfigWindowX|xproto.ConfigWindowY|xproto.ConfigWindowWidth|xproto.ConfigWindowHeight|xproto.ConfigWindowStackMode,
		[]uint32{
			uint32(int32(x)),
			uint32(int32(y)),
			uint32(width),
			uint32(height),
			xproto.StackModeAbove,
		},
	)

	xproto.ChangeWindowAttributes(conn, wid, xproto.CwBackPixel, []uint32{o.color})
	xproto.ClearArea(conn, false, wid, 0, 0, 0, 0)
	xproto.MapWindow(conn, wid)
}
