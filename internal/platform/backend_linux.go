//go:build linux

package platform

import (
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/1broseidon/topthumb/internal/geometry"
	"github.com/1broseidon/topthumb/internal/x11"
	"github.com/BurntSushi/xgb/xproto"
)

// LinuxBackend implements the platform interfaces on an X11 connection.
type LinuxBackend struct {
	conn   *x11.Connection
	mirror *x11.Mirror
	logger *slog.Logger
}

var (
	_ WindowLocator    = (*LinuxBackend)(nil)
	_ WindowSystem     = (*LinuxBackend)(nil)
	_ ThumbnailService = (*LinuxBackend)(nil)
	_ Compositor       = (*LinuxBackend)(nil)
)

// NewLinuxBackend creates a Linux platform backend from an existing X11 connection.
func NewLinuxBackend(conn *x11.Connection, logger *slog.Logger) *LinuxBackend {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &LinuxBackend{conn: conn, logger: logger}
}

// NewLinuxBackendFromDisplay creates a new Linux backend by opening a fresh X11
// connection. An empty display uses $DISPLAY.
func NewLinuxBackendFromDisplay(display string, logger *slog.Logger) (*LinuxBackend, error) {
	conn, err := x11.NewConnection(display)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to X11: %w", err)
	}
	return NewLinuxBackend(conn, logger), nil
}

// Disconnect waits for pending requests (thumbnail and visual teardown) to
// reach the server, then closes the X11 connection.
func (b *LinuxBackend) Disconnect() {
	if b != nil && b.conn != nil {
		b.conn.Sync()
		b.conn.Close()
	}
}

// Connection returns the underlying X11 connection.
func (b *LinuxBackend) Connection() *x11.Connection {
	if b == nil {
		return nil
	}
	return b.conn
}

// FindWindowsByTitle lists normal client windows whose title contains query.
func (b *LinuxBackend) FindWindowsByTitle(query string) ([]Window, error) {
	conn, err := b.connection()
	if err != nil {
		return nil, err
	}

	clients, err := conn.FindWindowsByTitle(query)
	if err != nil {
		return nil, err
	}
	windows := make([]Window, 0, len(clients))
	for _, c := range clients {
		windows = append(windows, Window{ID: WindowID(c.ID), PID: c.PID, Title: c.Title})
	}
	return windows, nil
}

// ExtendedFrameBounds returns the visible frame of a window in root coordinates.
func (b *LinuxBackend) ExtendedFrameBounds(windowID WindowID) (geometry.Rect, error) {
	conn, err := b.connection()
	if err != nil {
		return geometry.Rect{}, err
	}
	return conn.FrameBounds(xproto.Window(windowID))
}

// WindowExists reports whether the window is still alive.
func (b *LinuxBackend) WindowExists(windowID WindowID) (bool, error) {
	conn, err := b.connection()
	if err != nil {
		return false, err
	}
	return conn.WindowExists(xproto.Window(windowID))
}

// ClientRect returns the window's client area with its origin at (0, 0).
func (b *LinuxBackend) ClientRect(windowID WindowID) (geometry.Rect, error) {
	conn, err := b.connection()
	if err != nil {
		return geometry.Rect{}, err
	}
	return conn.ClientSize(xproto.Window(windowID))
}

// Register starts mirroring src into dest.
func (b *LinuxBackend) Register(dest, src WindowID) (ThumbnailID, error) {
	mirror, err := b.ensureMirror()
	if err != nil {
		return 0, err
	}
	id, err := mirror.Register(xproto.Window(dest), xproto.Window(src))
	if err != nil {
		return 0, err
	}
	return ThumbnailID(id), nil
}

// Update applies the fields selected by props.Flags.
func (b *LinuxBackend) Update(id ThumbnailID, props ThumbnailProperties) error {
	if b.mirror == nil {
		return errors.New("no thumbnail registered")
	}
	return b.mirror.Update(uint32(id), mirrorUpdate(props))
}

// Unregister stops mirroring and frees the server resources.
func (b *LinuxBackend) Unregister(id ThumbnailID) error {
	if b.mirror == nil {
		return errors.New("no thumbnail registered")
	}
	return b.mirror.Unregister(uint32(id))
}

// RefreshThumbnails repaints every registered thumbnail.
func (b *LinuxBackend) RefreshThumbnails() {
	if b.mirror != nil {
		b.mirror.Refresh()
	}
}

// CreateRootSurface returns the surface of a window visuals can be attached to.
func (b *LinuxBackend) CreateRootSurface(windowID WindowID) (Surface, error) {
	if _, err := b.connection(); err != nil {
		return nil, err
	}
	return rootSurface{id: windowID}, nil
}

// CreateRectVisual returns an unattached rectangle visual.
func (b *LinuxBackend) CreateRectVisual() (Visual, error) {
	conn, err := b.connection()
	if err != nil {
		return nil, err
	}
	return &rectVisual{overlay: x11.NewRectOverlay(conn)}, nil
}

// AttachToRoot creates the visual's windows on the surface's window.
func (b *LinuxBackend) AttachToRoot(surface Surface, visual Visual) error {
	rv, ok := visual.(*rectVisual)
	if !ok {
		return fmt.Errorf("visual %T was not created by this backend", visual)
	}
	return rv.overlay.Attach(xproto.Window(surface.Window()))
}

func (b *LinuxBackend) ensureMirror() (*x11.Mirror, error) {
	if b.mirror != nil {
		return b.mirror, nil
	}
	conn, err := b.connection()
	if err != nil {
		return nil, err
	}
	mirror, err := x11.NewMirror(conn, b.logger)
	if err != nil {
		return nil, fmt.Errorf("thumbnail service unavailable: %w", err)
	}
	b.mirror = mirror
	return mirror, nil
}

func (b *LinuxBackend) connection() (*x11.Connection, error) {
	if b == nil || b.conn == nil {
		return nil, fmt.Errorf("x11 backend connection is nil")
	}
	return b.conn, nil
}

// mirrorUpdate converts a flagged update into the mirror's optional fields.
func mirrorUpdate(props ThumbnailProperties) x11.MirrorUpdate {
	var u x11.MirrorUpdate
	if props.Has(PropSource) {
		src := props.Source
		u.Source = &src
	}
	if props.Has(PropDestination) {
		dst := props.Destination
		u.Destination = &dst
	}
	if props.Has(PropVisible) {
		visible := props.Visible
		u.Visible = &visible
	}
	if props.Has(PropOpacity) {
		opacity := props.Opacity
		u.Opacity = &opacity
	}
	if props.Has(PropSourceClientAreaOnly) {
		only := props.SourceClientAreaOnly
		u.ClientAreaOnly = &only
	}
	return u
}

type rootSurface struct{ id WindowID }

func (s rootSurface) Window() WindowID { return s.id }

// rectVisual adapts an X11 overlay to the Visual interface.
type rectVisual struct {
	overlay *x11.RectOverlay
}

func (v *rectVisual) SetOffset(x, y int) error {
	v.overlay.SetOffset(x, y)
	return nil
}

func (v *rectVisual) SetSize(width, height int) error {
	if width < 0 || height < 0 {
		return fmt.Errorf("invalid visual size %dx%d", width, height)
	}
	v.overlay.SetSize(width, height)
	return nil
}

func (v *rectVisual) SetVisible(visible bool) error {
	v.overlay.SetVisible(visible)
	return nil
}

func (v *rectVisual) SetBrush(brush Brush) error {
	switch brush.Kind {
	case BrushSolid:
		v.overlay.SetSolid(uint32(brush.Color))
	case BrushNineSlice:
		if brush.Thickness < 0 {
			return fmt.Errorf("invalid border thickness %d", brush.Thickness)
		}
		v.overlay.SetBorder(uint32(brush.Color), brush.Thickness, brush.HollowCenter)
	default:
		return fmt.Errorf("unknown brush kind %d", brush.Kind)
	}
	return nil
}
