package geometry

// The preview deals with three coordinate spaces:
//
//   screen   root-window coordinates, where extended frame bounds live
//   client   the preview window's client area, origin at its top-left; pointer
//            events, the destination rect and the snip visual live here
//   tracked  the tracked window's content, origin at its extended-frame
//            top-left; the source rect lives here

// ScreenToTracked maps a screen-space rectangle into tracked space given the
// tracked window's extended frame bounds (screen space).
func ScreenToTracked(r, frame Rect) Rect {
	return r.Offset(-frame.Left, -frame.Top)
}

// ClientToDest maps a client-space rectangle to coordinates relative to the
// destination rect's origin (both client space).
func ClientToDest(r, dest Rect) Rect {
	return r.Offset(-dest.Left, -dest.Top)
}

// DestToTracked converts destination-relative preview pixels back into
// tracked-content pixels by undoing the display scale. Edges are truncated.
func DestToTracked(r Rect, scale float64) Rect {
	if scale <= 0 {
		return Rect{}
	}
	return Rect{
		Left:   int(float64(r.Left) / scale),
		Top:    int(float64(r.Top) / scale),
		Right:  int(float64(r.Right) / scale),
		Bottom: int(float64(r.Bottom) / scale),
	}
}
