package thumbnail

import (
	"errors"

	"github.com/1broseidon/topthumb/internal/geometry"
	"github.com/1broseidon/topthumb/internal/platform"
)

const (
	testPreview platform.WindowID = 1
	testTracked platform.WindowID = 2
)

type fakeWindows struct {
	frames  map[platform.WindowID]geometry.Rect
	clients map[platform.WindowID]geometry.Rect
	err     error
}

func (f *fakeWindows) ExtendedFrameBounds(id platform.WindowID) (geometry.Rect, error) {
	if f.err != nil {
		return geometry.Rect{}, f.err
	}
	r, ok := f.frames[id]
	if !ok {
		return geometry.Rect{}, errors.New("no such window")
	}
	return r, nil
}

func (f *fakeWindows) ClientRect(id platform.WindowID) (geometry.Rect, error) {
	if f.err != nil {
		return geometry.Rect{}, f.err
	}
	r, ok := f.clients[id]
	if !ok {
		return geometry.Rect{}, errors.New("no such window")
	}
	return r, nil
}

type fakeThumbnails struct {
	registered   bool
	unregistered bool
	registerErr  error
	updateErr    error
	updates      []platform.ThumbnailProperties
}

func (f *fakeThumbnails) Register(dest, src platform.WindowID) (platform.ThumbnailID, error) {
	if f.registerErr != nil {
		return 0, f.registerErr
	}
	f.registered = true
	return 42, nil
}

func (f *fakeThumbnails) Update(id platform.ThumbnailID, props platform.ThumbnailProperties) error {
	if f.updateErr != nil {
		return f.updateErr
	}
	f.updates = append(f.updates, props)
	return nil
}

func (f *fakeThumbnails) Unregister(id platform.ThumbnailID) error {
	f.unregistered = true
	return nil
}

func (f *fakeThumbnails) last() platform.ThumbnailProperties {
	return f.updates[len(f.updates)-1]
}

type fakeVisual struct {
	x, y          int
	width, height int
	visible       bool
	brush         platform.Brush
	calls         int
}

func (v *fakeVisual) SetOffset(x, y int) error {
	v.calls++
	v.x, v.y = x, y
	return nil
}

func (v *fakeVisual) SetSize(width, height int) error {
	v.calls++
	v.width, v.height = width, height
	return nil
}

func (v *fakeVisual) SetVisible(visible bool) error {
	v.calls++
	v.visible = visible
	return nil
}

func (v *fakeVisual) SetBrush(brush platform.Brush) error {
	v.calls++
	v.brush = brush
	return nil
}

type fakeSurface struct{ id platform.WindowID }

func (s fakeSurface) Window() platform.WindowID { return s.id }

type fakeCompositor struct {
	visual   *fakeVisual
	attached bool
	err      error
}

func (c *fakeCompositor) CreateRootSurface(id platform.WindowID) (platform.Surface, error) {
	if c.err != nil {
		return nil, c.err
	}
	return fakeSurface{id: id}, nil
}

func (c *fakeCompositor) CreateRectVisual() (platform.Visual, error) {
	c.visual = &fakeVisual{}
	return c.visual, nil
}

func (c *fakeCompositor) AttachToRoot(surface platform.Surface, visual platform.Visual) error {
	c.attached = true
	return nil
}

type fixture struct {
	windows    *fakeWindows
	thumbnails *fakeThumbnails
	compositor *fakeCompositor
}

func newFixture(client, frame geometry.Rect) *fixture {
	return &fixture{
		windows: &fakeWindows{
			frames:  map[platform.WindowID]geometry.Rect{testTracked: frame},
			clients: map[platform.WindowID]geometry.Rect{testPreview: client},
		},
		thumbnails: &fakeThumbnails{},
		compositor: &fakeCompositor{},
	}
}

func (f *fixture) deps() Deps {
	return Deps{
		Windows:    f.windows,
		Thumbnails: f.thumbnails,
		Compositor: f.compositor,
	}
}
