package geometry

import "fmt"

// Rect is an edge-based rectangle. Width and height may be zero or negative for
// intermediate results; callers check Empty before using one.
type Rect struct {
	Left   int
	Top    int
	Right  int
	Bottom int
}

// FromXYWH builds a Rect from an origin and a size.
func FromXYWH(x, y, width, height int) Rect {
	return Rect{Left: x, Top: y, Right: x + width, Bottom: y + height}
}

// SpanRect returns the normalized rectangle spanning two corner points,
// independent of which corner came first.
func SpanRect(x1, y1, x2, y2 int) Rect {
	return Rect{
		Left:   min(x1, x2),
		Top:    min(y1, y2),
		Right:  max(x1, x2),
		Bottom: max(y1, y2),
	}
}

func (r Rect) Width() int  { return r.Right - r.Left }
func (r Rect) Height() int { return r.Bottom - r.Top }

// Size returns the rectangle moved to the origin.
func (r Rect) Size() Rect {
	return Rect{Right: r.Width(), Bottom: r.Height()}
}

// Empty reports whether the rectangle has no area.
func (r Rect) Empty() bool {
	return r.Width() <= 0 || r.Height() <= 0
}

// Offset translates the rectangle by (dx, dy).
func (r Rect) Offset(dx, dy int) Rect {
	return Rect{
		Left:   r.Left + dx,
		Top:    r.Top + dy,
		Right:  r.Right + dx,
		Bottom: r.Bottom + dy,
	}
}

// Intersect returns the overlap of r and o. The result is Empty when they do not overlap.
func (r Rect) Intersect(o Rect) Rect {
	out := Rect{
		Left:   max(r.Left, o.Left),
		Top:    max(r.Top, o.Top),
		Right:  min(r.Right, o.Right),
		Bottom: min(r.Bottom, o.Bottom),
	}
	if out.Empty() {
		return Rect{}
	}
	return out
}

// Contains reports whether the point lies inside r (right and bottom edges exclusive).
func (r Rect) Contains(x, y int) bool {
	return x >= r.Left && x < r.Right && y >= r.Top && y < r.Bottom
}

func (r Rect) String() string {
	return fmt.Sprintf("(%d,%d,%d,%d)", r.Left, r.Top, r.Right, r.Bottom)
}
