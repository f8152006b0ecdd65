package platform

import "github.com/1broseidon/topthumb/internal/geometry"

// WindowID is a platform-neutral window identifier.
type WindowID uint32

// Window describes a top-level window returned by a title query.
type Window struct {
	ID    WindowID
	PID   int
	Title string
}

// WindowLocator finds top-level windows whose title contains a query string.
type WindowLocator interface {
	FindWindowsByTitle(query string) ([]Window, error)
}

// WindowSystem answers geometry queries about windows.
type WindowSystem interface {
	// ExtendedFrameBounds returns the window's on-screen rectangle in screen
	// space, excluding any invisible shadow margin.
	ExtendedFrameBounds(windowID WindowID) (geometry.Rect, error)
	// ClientRect returns the window's client area in its own local space.
	ClientRect(windowID WindowID) (geometry.Rect, error)
}

// ThumbnailID is an opaque handle to a registered mirroring relationship.
type ThumbnailID uint32

// ThumbnailProp is a bit in ThumbnailProperties.Flags naming a field to apply.
type ThumbnailProp uint32

const (
	PropSource ThumbnailProp = 1 << iota
	PropDestination
	PropVisible
	PropOpacity
	PropSourceClientAreaOnly
)

// ThumbnailProperties is a partial update: only fields whose bit is set in
// Flags are applied, the rest keep their current value.
type ThumbnailProperties struct {
	Flags                ThumbnailProp
	Source               geometry.Rect // tracked-content space
	Destination          geometry.Rect // preview client space
	Visible              bool
	Opacity              uint8
	SourceClientAreaOnly bool
}

// Has reports whether the given field is part of the update.
func (p ThumbnailProperties) Has(prop ThumbnailProp) bool {
	return p.Flags&prop != 0
}

// ThumbnailService mirrors the content of a source window into a
// destination window's client area.
type ThumbnailService interface {
	Register(dest, src WindowID) (ThumbnailID, error)
	Update(id ThumbnailID, props ThumbnailProperties) error
	Unregister(id ThumbnailID) error
}

// Color is a 0xRRGGBB value.
type Color uint32

// BrushKind selects how a visual is filled.
type BrushKind int

const (
	BrushSolid BrushKind = iota
	BrushNineSlice
)

// Brush describes a visual's fill: either a solid color, or a border of fixed
// thickness around the edge with an optionally hollow center.
type Brush struct {
	Kind         BrushKind
	Color        Color
	Thickness    int
	HollowCenter bool
}

// NineSliceBrush returns a border brush of the given thickness.
func NineSliceBrush(c Color, thickness int, hollow bool) Brush {
	return Brush{Kind: BrushNineSlice, Color: c, Thickness: thickness, HollowCenter: hollow}
}

// Visual is a rectangular element hosted on a root surface. Offsets are in the
// surface's local space.
type Visual interface {
	SetOffset(x, y int) error
	SetSize(width, height int) error
	SetVisible(visible bool) error
	SetBrush(brush Brush) error
}

// Surface is the root of a window's visual tree.
type Surface interface {
	Window() WindowID
}

// Compositor creates visual elements on top of a window's content.
type Compositor interface {
	CreateRootSurface(windowID WindowID) (Surface, error)
	CreateRectVisual() (Visual, error)
	AttachToRoot(surface Surface, visual Visual) error
}
