// Package thumbnail owns the live preview of a tracked window: the source and
// destination rectangles pushed to the thumbnail service, and the crop (snip)
// gesture driven by pointer events.
//
// A Controller is not safe for concurrent use. Every method must be called
// from the goroutine that services the preview window's events.
package thumbnail

import (
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/1broseidon/topthumb/internal/geometry"
	"github.com/1broseidon/topthumb/internal/platform"
)

// BorderThickness is the snip visual's border inset. The visual is offset by
// it so the border's inner edge, not its outer edge, follows the pointer.
const BorderThickness = 5

// DefaultSnipColor is the snip border color (red).
const DefaultSnipColor platform.Color = 0xff0000

// ErrGestureActive is returned by Crop when a gesture is in progress or a crop
// is already applied.
var ErrGestureActive = errors.New("crop gesture not idle")

// Deps are the platform collaborators a Controller drives.
type Deps struct {
	Windows    platform.WindowSystem
	Thumbnails platform.ThumbnailService
	Compositor platform.Compositor
	Logger     *slog.Logger
}

type options struct {
	opacity              uint8
	sourceClientAreaOnly bool
	snipColor            platform.Color
}

// Option customizes the initial thumbnail configuration.
type Option func(*options)

// WithOpacity sets the thumbnail opacity pushed at construction (default 255).
func WithOpacity(opacity uint8) Option {
	return func(o *options) { o.opacity = opacity }
}

// WithSourceClientAreaOnly mirrors only the tracked window's client area.
func WithSourceClientAreaOnly(only bool) Option {
	return func(o *options) { o.sourceClientAreaOnly = only }
}

// WithSnipColor sets the snip border color.
func WithSnipColor(c platform.Color) Option {
	return func(o *options) { o.snipColor = c }
}

// Status is a point-in-time view of the controller state.
type Status struct {
	Phase       Phase
	Source      geometry.Rect
	Destination geometry.Rect
	Frame       geometry.Rect
	Preview     platform.WindowID
	Tracked     platform.WindowID
}

// Controller maps the tracked window's content into the preview window.
type Controller struct {
	preview platform.WindowID
	tracked platform.WindowID

	windows    platform.WindowSystem
	thumbnails platform.ThumbnailService
	logger     *slog.Logger

	thumbnail platform.ThumbnailID
	frame     geometry.Rect // tracked extended frame bounds, screen space
	source    geometry.Rect // tracked space
	dest      geometry.Rect // preview client space

	gesture Gesture
	snip    platform.Visual
}

// New registers the thumbnail link between preview and tracked and sets up the
// snip visual. Any collaborator failure is returned; the preview cannot run
// without a live thumbnail link.
func New(preview, tracked platform.WindowID, deps Deps, opts ...Option) (*Controller, error) {
	o := options{opacity: 255, snipColor: DefaultSnipColor}
	for _, opt := range opts {
		opt(&o)
	}

	logger := deps.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}

	frame, err := deps.Windows.ExtendedFrameBounds(tracked)
	if err != nil {
		return nil, fmt.Errorf("failed to get tracked window bounds: %w", err)
	}

	thumb, err := deps.Thumbnails.Register(preview, tracked)
	if err != nil {
		return nil, fmt.Errorf("failed to register thumbnail: %w", err)
	}

	c := &Controller{
		preview:    preview,
		tracked:    tracked,
		windows:    deps.Windows,
		thumbnails: deps.Thumbnails,
		logger:     logger,
		thumbnail:  thumb,
		frame:      frame,
		source:     geometry.ScreenToTracked(frame, frame),
	}

	if err := c.init(deps.Compositor, o); err != nil {
		if uerr := deps.Thumbnails.Unregister(thumb); uerr != nil {
			logger.Warn("failed to unregister thumbnail", "error", uerr)
		}
		return nil, err
	}

	logger.Debug("thumbnail registered",
		"preview", preview,
		"tracked", tracked,
		"frame", frame.String(),
		"destination", c.dest.String())
	return c, nil
}

func (c *Controller) init(compositor platform.Compositor, o options) error {
	client, err := c.windows.ClientRect(c.preview)
	if err != nil {
		return fmt.Errorf("failed to get preview client rect: %w", err)
	}
	c.dest = client

	if err := c.thumbnails.Update(c.thumbnail, platform.ThumbnailProperties{
		Flags:                platform.PropSourceClientAreaOnly | platform.PropVisible | platform.PropOpacity | platform.PropDestination,
		Destination:          c.dest,
		Visible:              true,
		Opacity:              o.opacity,
		SourceClientAreaOnly: o.sourceClientAreaOnly,
	}); err != nil {
		return fmt.Errorf("failed to update thumbnail properties: %w", err)
	}

	surface, err := compositor.CreateRootSurface(c.preview)
	if err != nil {
		return fmt.Errorf("failed to create root surface: %w", err)
	}
	snip, err := compositor.CreateRectVisual()
	if err != nil {
		return fmt.Errorf("failed to create snip visual: %w", err)
	}
	if err := snip.SetBrush(platform.NineSliceBrush(o.snipColor, BorderThickness, true)); err != nil {
		return fmt.Errorf("failed to set snip brush: %w", err)
	}
	if err := snip.SetVisible(false); err != nil {
		return fmt.Errorf("failed to hide snip visual: %w", err)
	}
	if err := compositor.AttachToRoot(surface, snip); err != nil {
		return fmt.Errorf("failed to attach snip visual: %w", err)
	}
	c.snip = snip
	return nil
}

// Close releases the thumbnail link.
func (c *Controller) Close() error {
	return c.thumbnails.Unregister(c.thumbnail)
}

// Phase returns the current gesture phase.
func (c *Controller) Phase() Phase {
	return c.gesture.Phase
}

// Status returns a snapshot of the controller state.
func (c *Controller) Status() Status {
	return Status{
		Phase:       c.gesture.Phase,
		Source:      c.source,
		Destination: c.dest,
		Frame:       c.frame,
		Preview:     c.preview,
		Tracked:     c.tracked,
	}
}

// OnResize refits the destination rect to the preview's current client area
// and pushes only the destination field.
func (c *Controller) OnResize() error {
	client, err := c.windows.ClientRect(c.preview)
	if err != nil {
		return fmt.Errorf("failed to get preview client rect: %w", err)
	}

	dest, err := geometry.ComputeDestRect(client, c.source)
	if errors.Is(err, geometry.ErrDegenerate) {
		c.logger.Debug("resize skipped", "client", client.String(), "source", c.source.String())
		return nil
	}
	if err != nil {
		return err
	}
	c.dest = dest

	if err := c.thumbnails.Update(c.thumbnail, platform.ThumbnailProperties{
		Flags:       platform.PropDestination,
		Destination: c.dest,
	}); err != nil {
		return fmt.Errorf("failed to update thumbnail destination: %w", err)
	}
	return nil
}

// OnPointerDown starts a crop gesture anchored at (x, y). Ignored unless idle.
func (c *Controller) OnPointerDown(x, y int) error {
	if c.gesture.Phase != PhaseIdle {
		return nil
	}

	c.gesture.Start(x, y)
	if err := c.snip.SetOffset(x-BorderThickness, y-BorderThickness); err != nil {
		return err
	}
	if err := c.snip.SetSize(0, 0); err != nil {
		return err
	}
	return c.snip.SetVisible(true)
}

// OnPointerMove stretches the snip visual from the anchor to (x, y). Ignored
// unless a gesture is in progress.
func (c *Controller) OnPointerMove(x, y int) error {
	if c.gesture.Phase != PhaseInProgress {
		return nil
	}

	span := geometry.SpanRect(c.gesture.AnchorX, c.gesture.AnchorY, x, y)
	if err := c.snip.SetOffset(span.Left-BorderThickness, span.Top-BorderThickness); err != nil {
		return err
	}
	return c.snip.SetSize(span.Width()+2*BorderThickness, span.Height()+2*BorderThickness)
}

// OnPointerUp finishes the gesture. A zero-area snip cancels it; otherwise the
// visible part of the snip becomes the new source rect.
func (c *Controller) OnPointerUp(x, y int) error {
	if c.gesture.Phase != PhaseInProgress {
		return nil
	}

	c.gesture.Phase = PhaseCompleted
	if err := c.snip.SetVisible(false); err != nil {
		c.gesture.Reset()
		return err
	}

	snip := geometry.SpanRect(c.gesture.AnchorX, c.gesture.AnchorY, x, y)
	if snip.Empty() {
		c.logger.Debug("snip discarded", "snip", snip.String())
		c.gesture.Reset()
		return nil
	}

	client, err := c.windows.ClientRect(c.preview)
	if err != nil {
		c.gesture.Reset()
		return fmt.Errorf("failed to get preview client rect: %w", err)
	}
	frame, err := c.windows.ExtendedFrameBounds(c.tracked)
	if err != nil {
		c.gesture.Reset()
		return fmt.Errorf("failed to get tracked window bounds: %w", err)
	}

	source, dest, ok := c.cropRects(snip, client, frame)
	if !ok {
		c.logger.Debug("snip discarded", "snip", snip.String(), "destination", c.dest.String())
		c.gesture.Reset()
		return nil
	}
	c.source = source
	c.dest = dest

	c.logger.Debug("snip applied", "snip", snip.String(), "source", source.String(), "destination", dest.String())
	return c.pushSourceAndDest()
}

// cropRects maps a client-space snip into a new source rect and the
// destination rect that fits it. The display scale is recomputed from the
// current client and frame rects rather than cached from the last resize.
func (c *Controller) cropRects(snip, client, frame geometry.Rect) (source, dest geometry.Rect, ok bool) {
	visible := snip.Intersect(c.dest)
	if visible.Empty() {
		return geometry.Rect{}, geometry.Rect{}, false
	}

	scale, err := geometry.ComputeScaleFactor(client, frame)
	if err != nil {
		return geometry.Rect{}, geometry.Rect{}, false
	}

	source = geometry.DestToTracked(geometry.ClientToDest(visible, c.dest), scale)
	if source.Empty() {
		return geometry.Rect{}, geometry.Rect{}, false
	}

	dest, err = geometry.ComputeDestRect(client, source)
	if err != nil {
		return geometry.Rect{}, geometry.Rect{}, false
	}
	return source, dest, true
}

// OnResetGesture restores the full tracked content after a completed crop.
// Ignored unless a crop is applied.
func (c *Controller) OnResetGesture() error {
	if c.gesture.Phase != PhaseCompleted {
		return nil
	}

	frame, err := c.windows.ExtendedFrameBounds(c.tracked)
	if err != nil {
		return fmt.Errorf("failed to get tracked window bounds: %w", err)
	}
	client, err := c.windows.ClientRect(c.preview)
	if err != nil {
		return fmt.Errorf("failed to get preview client rect: %w", err)
	}

	c.gesture.Reset()
	c.frame = frame
	// The source lives in tracked space: the full current extended frame,
	// with its origin moved to the frame's top-left.
	c.source = geometry.ScreenToTracked(frame, frame)

	dest, err := geometry.ComputeDestRect(client, c.source)
	if err == nil {
		c.dest = dest
	} else {
		c.logger.Debug("reset kept previous destination", "client", client.String(), "source", c.source.String())
	}

	c.logger.Debug("crop reset", "source", c.source.String(), "destination", c.dest.String())
	return c.pushSourceAndDest()
}

// Crop applies a preview-space rectangle as if it had been dragged with the
// pointer.
func (c *Controller) Crop(r geometry.Rect) error {
	if c.gesture.Phase != PhaseIdle {
		return fmt.Errorf("%w: %s", ErrGestureActive, c.gesture.Phase)
	}
	if err := c.OnPointerDown(r.Left, r.Top); err != nil {
		return err
	}
	if err := c.OnPointerMove(r.Right, r.Bottom); err != nil {
		return err
	}
	return c.OnPointerUp(r.Right, r.Bottom)
}

func (c *Controller) pushSourceAndDest() error {
	if err := c.thumbnails.Update(c.thumbnail, platform.ThumbnailProperties{
		Flags:       platform.PropSource | platform.PropDestination,
		Source:      c.source,
		Destination: c.dest,
	}); err != nil {
		return fmt.Errorf("failed to update thumbnail properties: %w", err)
	}
	return nil
}
