// Package geometry holds the pure rectangle math behind the preview: fitting
// tracked-window content into the preview client area and mapping rectangles
// between the coordinate spaces involved.
package geometry

import (
	"errors"
	"fmt"
)

// ErrDegenerate is returned when a rectangle has no usable area for a scale
// computation. Callers treat it as "do not apply this update".
var ErrDegenerate = errors.New("degenerate rectangle")

// ComputeScaleFactor returns the uniform scale that fits content inside window
// without distortion (letterbox semantics).
//
// The scale starts as the width fit; when the window is relatively wider than
// the content the width fit would overflow vertically, so the height fit wins.
func ComputeScaleFactor(window, content Rect) (float64, error) {
	ww, wh := float64(window.Width()), float64(window.Height())
	cw, ch := float64(content.Width()), float64(content.Height())
	if cw <= 0 || ch <= 0 || wh <= 0 {
		return 0, fmt.Errorf("scale %s into %s: %w", content, window, ErrDegenerate)
	}

	windowRatio := ww / wh
	contentRatio := cw / ch

	scale := ww / cw
	if windowRatio > contentRatio {
		scale = wh / ch
	}
	if scale <= 0 {
		return 0, fmt.Errorf("scale %s into %s: %w", content, window, ErrDegenerate)
	}
	return scale, nil
}

// ComputeDestRect fits content inside window and centers it. The result is in
// the window's local space: leftover space is split evenly and every edge is
// truncated to an integer.
func ComputeDestRect(window, content Rect) (Rect, error) {
	scale, err := ComputeScaleFactor(window, content)
	if err != nil {
		return Rect{}, err
	}

	scaledWidth := float64(content.Width()) * scale
	scaledHeight := float64(content.Height()) * scale

	left := int((float64(window.Width()) - scaledWidth) / 2)
	top := int((float64(window.Height()) - scaledHeight) / 2)

	return Rect{
		Left:   left,
		Top:    top,
		Right:  left + int(scaledWidth),
		Bottom: top + int(scaledHeight),
	}, nil
}
