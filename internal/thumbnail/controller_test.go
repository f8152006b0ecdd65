package thumbnail

import (
	"errors"
	"testing"

	"github.com/1broseidon/topthumb/internal/geometry"
	"github.com/1broseidon/topthumb/internal/platform"
)

func newTestController(t *testing.T, f *fixture) *Controller {
	t.Helper()
	c, err := New(testPreview, testTracked, f.deps())
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return c
}

func TestNew_PushesInitialProperties(t *testing.T) {
	client := geometry.Rect{Right: 200, Bottom: 200}
	f := newFixture(client, geometry.Rect{Left: 100, Top: 100, Right: 500, Bottom: 500})
	c := newTestController(t, f)

	if len(f.thumbnails.updates) != 1 {
		t.Fatalf("expected 1 update, got %d", len(f.thumbnails.updates))
	}
	got := f.thumbnails.updates[0]
	wantFlags := platform.PropSourceClientAreaOnly | platform.PropVisible | platform.PropOpacity | platform.PropDestination
	if got.Flags != wantFlags {
		t.Fatalf("expected flags %b, got %b", wantFlags, got.Flags)
	}
	if got.Has(platform.PropSource) {
		t.Fatalf("initial update must not set the source field")
	}
	if !got.Visible || got.Opacity != 255 || got.SourceClientAreaOnly {
		t.Fatalf("unexpected initial properties: %+v", got)
	}
	if got.Destination != client {
		t.Fatalf("expected destination %v, got %v", client, got.Destination)
	}

	st := c.Status()
	if st.Phase != PhaseIdle {
		t.Fatalf("expected idle, got %v", st.Phase)
	}
	if want := (geometry.Rect{Right: 400, Bottom: 400}); st.Source != want {
		t.Fatalf("expected full source %v, got %v", want, st.Source)
	}
}

func TestNew_CreatesHiddenSnipVisual(t *testing.T) {
	f := newFixture(geometry.Rect{Right: 200, Bottom: 200}, geometry.Rect{Right: 400, Bottom: 400})
	newTestController(t, f)

	v := f.compositor.visual
	if v == nil || !f.compositor.attached {
		t.Fatalf("expected snip visual to be created and attached")
	}
	if v.visible {
		t.Fatalf("expected snip visual to start hidden")
	}
	want := platform.NineSliceBrush(DefaultSnipColor, BorderThickness, true)
	if v.brush != want {
		t.Fatalf("expected brush %+v, got %+v", want, v.brush)
	}
}

func TestNew_FailsOnPlatformErrors(t *testing.T) {
	boom := errors.New("boom")

	f := newFixture(geometry.Rect{Right: 200, Bottom: 200}, geometry.Rect{Right: 400, Bottom: 400})
	f.windows.err = boom
	if _, err := New(testPreview, testTracked, f.deps()); !errors.Is(err, boom) {
		t.Fatalf("expected geometry error, got %v", err)
	}

	f = newFixture(geometry.Rect{Right: 200, Bottom: 200}, geometry.Rect{Right: 400, Bottom: 400})
	f.thumbnails.registerErr = boom
	if _, err := New(testPreview, testTracked, f.deps()); !errors.Is(err, boom) {
		t.Fatalf("expected register error, got %v", err)
	}

	f = newFixture(geometry.Rect{Right: 200, Bottom: 200}, geometry.Rect{Right: 400, Bottom: 400})
	f.compositor.err = boom
	if _, err := New(testPreview, testTracked, f.deps()); !errors.Is(err, boom) {
		t.Fatalf("expected compositor error, got %v", err)
	}
	if !f.thumbnails.unregistered {
		t.Fatalf("expected thumbnail to be unregistered after a failed construction")
	}
}

func TestOnResize_PushesOnlyDestination(t *testing.T) {
	f := newFixture(geometry.Rect{Right: 200, Bottom: 200}, geometry.Rect{Right: 400, Bottom: 400})
	c := newTestController(t, f)

	f.windows.clients[testPreview] = geometry.Rect{Right: 400, Bottom: 200}
	if err := c.OnResize(); err != nil {
		t.Fatalf("OnResize: %v", err)
	}

	got := f.thumbnails.last()
	if got.Flags != platform.PropDestination {
		t.Fatalf("expected destination-only update, got flags %b", got.Flags)
	}
	if want := (geometry.Rect{Left: 100, Top: 0, Right: 300, Bottom: 200}); got.Destination != want {
		t.Fatalf("expected destination %v, got %v", want, got.Destination)
	}
}

func TestOnResize_Idempotent(t *testing.T) {
	f := newFixture(geometry.Rect{Right: 300, Bottom: 120}, geometry.Rect{Right: 400, Bottom: 400})
	c := newTestController(t, f)

	if err := c.OnResize(); err != nil {
		t.Fatalf("OnResize: %v", err)
	}
	first := c.Status().Destination
	if err := c.OnResize(); err != nil {
		t.Fatalf("OnResize: %v", err)
	}
	if second := c.Status().Destination; first != second {
		t.Fatalf("expected identical destinations, got %v then %v", first, second)
	}
}

func TestOnResize_DegenerateClientIsNoop(t *testing.T) {
	f := newFixture(geometry.Rect{Right: 200, Bottom: 200}, geometry.Rect{Right: 400, Bottom: 400})
	c := newTestController(t, f)
	before := len(f.thumbnails.updates)

	f.windows.clients[testPreview] = geometry.Rect{Right: 200, Bottom: 0}
	if err := c.OnResize(); err != nil {
		t.Fatalf("expected degenerate resize to be silent, got %v", err)
	}
	if len(f.thumbnails.updates) != before {
		t.Fatalf("expected no thumbnail update")
	}
	if want := (geometry.Rect{Right: 200, Bottom: 200}); c.Status().Destination != want {
		t.Fatalf("expected destination unchanged, got %v", c.Status().Destination)
	}
}

func TestPointerDown_ShowsSnipAtInsetAnchor(t *testing.T) {
	f := newFixture(geometry.Rect{Right: 200, Bottom: 200}, geometry.Rect{Right: 400, Bottom: 400})
	c := newTestController(t, f)

	if err := c.OnPointerDown(10, 20); err != nil {
		t.Fatalf("OnPointerDown: %v", err)
	}
	v := f.compositor.visual
	if c.Phase() != PhaseInProgress {
		t.Fatalf("expected in_progress, got %v", c.Phase())
	}
	if v.x != 5 || v.y != 15 || v.width != 0 || v.height != 0 || !v.visible {
		t.Fatalf("unexpected snip visual state: %+v", v)
	}
}

func TestPointerMove_SpansAnchorToPointer(t *testing.T) {
	f := newFixture(geometry.Rect{Right: 200, Bottom: 200}, geometry.Rect{Right: 400, Bottom: 400})
	c := newTestController(t, f)
	v := f.compositor.visual

	_ = c.OnPointerDown(50, 50)
	if err := c.OnPointerMove(80, 70); err != nil {
		t.Fatalf("OnPointerMove: %v", err)
	}
	if v.x != 45 || v.y != 45 || v.width != 40 || v.height != 30 {
		t.Fatalf("unexpected forward drag visual: %+v", v)
	}

	// Dragging up-left of the anchor flips the origin but keeps the inset.
	if err := c.OnPointerMove(20, 30); err != nil {
		t.Fatalf("OnPointerMove: %v", err)
	}
	if v.x != 15 || v.y != 25 || v.width != 40 || v.height != 30 {
		t.Fatalf("unexpected reverse drag visual: %+v", v)
	}
}

func TestGestureCancellation_ZeroArea(t *testing.T) {
	f := newFixture(geometry.Rect{Right: 200, Bottom: 200}, geometry.Rect{Right: 400, Bottom: 400})
	c := newTestController(t, f)
	before := c.Status()
	updates := len(f.thumbnails.updates)

	_ = c.OnPointerDown(10, 10)
	if err := c.OnPointerUp(10, 10); err != nil {
		t.Fatalf("OnPointerUp: %v", err)
	}

	after := c.Status()
	if after.Phase != PhaseIdle {
		t.Fatalf("expected idle after zero-area snip, got %v", after.Phase)
	}
	if after.Source != before.Source || after.Destination != before.Destination {
		t.Fatalf("expected rects unchanged, before=%+v after=%+v", before, after)
	}
	if len(f.thumbnails.updates) != updates {
		t.Fatalf("expected no thumbnail update")
	}
	if f.compositor.visual.visible {
		t.Fatalf("expected snip visual hidden")
	}
}

func TestGestureCancellation_ZeroWidthOnly(t *testing.T) {
	f := newFixture(geometry.Rect{Right: 200, Bottom: 200}, geometry.Rect{Right: 400, Bottom: 400})
	c := newTestController(t, f)

	_ = c.OnPointerDown(10, 10)
	_ = c.OnPointerUp(10, 90)
	if c.Phase() != PhaseIdle {
		t.Fatalf("expected idle after zero-width snip, got %v", c.Phase())
	}
}

func TestGestureCompletion_MapsIntoTrackedSpace(t *testing.T) {
	f := newFixture(geometry.Rect{Right: 200, Bottom: 200}, geometry.Rect{Right: 400, Bottom: 400})
	c := newTestController(t, f)

	_ = c.OnPointerDown(10, 10)
	_ = c.OnPointerMove(50, 50)
	if err := c.OnPointerUp(50, 50); err != nil {
		t.Fatalf("OnPointerUp: %v", err)
	}

	st := c.Status()
	if st.Phase != PhaseCompleted {
		t.Fatalf("expected completed, got %v", st.Phase)
	}
	// scale = 200/400 = 0.5, so (10,10,50,50) maps to (20,20,100,100).
	if want := (geometry.Rect{Left: 20, Top: 20, Right: 100, Bottom: 100}); st.Source != want {
		t.Fatalf("expected source %v, got %v", want, st.Source)
	}
	if want := (geometry.Rect{Right: 200, Bottom: 200}); st.Destination != want {
		t.Fatalf("expected destination %v, got %v", want, st.Destination)
	}

	got := f.thumbnails.last()
	if got.Flags != platform.PropSource|platform.PropDestination {
		t.Fatalf("expected source+destination update, got flags %b", got.Flags)
	}
	if got.Source != st.Source || got.Destination != st.Destination {
		t.Fatalf("pushed rects %v/%v differ from state %v/%v", got.Source, got.Destination, st.Source, st.Destination)
	}
	if f.compositor.visual.visible {
		t.Fatalf("expected snip visual hidden after release")
	}
}

func TestGestureCompletion_ClipsToDestination(t *testing.T) {
	// 400x200 client around a square frame: destination is (100,0,300,200).
	f := newFixture(geometry.Rect{Right: 400, Bottom: 200}, geometry.Rect{Right: 400, Bottom: 400})
	c := newTestController(t, f)
	if err := c.OnResize(); err != nil {
		t.Fatalf("OnResize: %v", err)
	}

	_ = c.OnPointerDown(50, 20)
	if err := c.OnPointerUp(150, 120); err != nil {
		t.Fatalf("OnPointerUp: %v", err)
	}

	// Visible part (100,20,150,120) -> dest-relative (0,20,50,120) -> /0.5.
	if want := (geometry.Rect{Left: 0, Top: 40, Right: 100, Bottom: 240}); c.Status().Source != want {
		t.Fatalf("expected source %v, got %v", want, c.Status().Source)
	}
}

func TestGestureCompletion_OutsideDestinationIsDiscarded(t *testing.T) {
	f := newFixture(geometry.Rect{Right: 400, Bottom: 200}, geometry.Rect{Right: 400, Bottom: 400})
	c := newTestController(t, f)
	if err := c.OnResize(); err != nil {
		t.Fatalf("OnResize: %v", err)
	}
	updates := len(f.thumbnails.updates)

	_ = c.OnPointerDown(10, 10)
	if err := c.OnPointerUp(60, 60); err != nil {
		t.Fatalf("OnPointerUp: %v", err)
	}
	if c.Phase() != PhaseIdle {
		t.Fatalf("expected idle, got %v", c.Phase())
	}
	if len(f.thumbnails.updates) != updates {
		t.Fatalf("expected no thumbnail update")
	}
}

func TestReset_RestoresFullSource(t *testing.T) {
	f := newFixture(geometry.Rect{Right: 200, Bottom: 200}, geometry.Rect{Right: 400, Bottom: 400})
	c := newTestController(t, f)

	_ = c.OnPointerDown(10, 10)
	_ = c.OnPointerUp(50, 50)
	if err := c.OnResetGesture(); err != nil {
		t.Fatalf("OnResetGesture: %v", err)
	}

	st := c.Status()
	if st.Phase != PhaseIdle {
		t.Fatalf("expected idle, got %v", st.Phase)
	}
	if want := (geometry.Rect{Right: 400, Bottom: 400}); st.Source != want {
		t.Fatalf("expected full source %v, got %v", want, st.Source)
	}
	if want := (geometry.Rect{Right: 200, Bottom: 200}); st.Destination != want {
		t.Fatalf("expected destination %v, got %v", want, st.Destination)
	}
	got := f.thumbnails.last()
	if got.Flags != platform.PropSource|platform.PropDestination || got.Source != st.Source {
		t.Fatalf("unexpected reset update: %+v", got)
	}
}

func TestReset_UsesCurrentFrameSize(t *testing.T) {
	f := newFixture(geometry.Rect{Right: 200, Bottom: 200}, geometry.Rect{Left: 30, Top: 40, Right: 430, Bottom: 440})
	c := newTestController(t, f)

	_ = c.OnPointerDown(10, 10)
	_ = c.OnPointerUp(50, 50)

	f.windows.frames[testTracked] = geometry.Rect{Left: 60, Top: 40, Right: 860, Bottom: 440}
	if err := c.OnResetGesture(); err != nil {
		t.Fatalf("OnResetGesture: %v", err)
	}
	st := c.Status()
	if want := (geometry.Rect{Right: 800, Bottom: 400}); st.Source != want {
		t.Fatalf("expected source %v, got %v", want, st.Source)
	}
	if st.Frame != f.windows.frames[testTracked] {
		t.Fatalf("expected frame to be refreshed, got %v", st.Frame)
	}
	if want := (geometry.Rect{Left: 0, Top: 50, Right: 200, Bottom: 150}); st.Destination != want {
		t.Fatalf("expected destination %v, got %v", want, st.Destination)
	}
}

func TestOutOfOrderEvents_AreNoops(t *testing.T) {
	f := newFixture(geometry.Rect{Right: 200, Bottom: 200}, geometry.Rect{Right: 400, Bottom: 400})
	c := newTestController(t, f)
	before := c.Status()
	updates := len(f.thumbnails.updates)
	visualCalls := f.compositor.visual.calls

	if err := c.OnPointerMove(30, 30); err != nil {
		t.Fatalf("OnPointerMove: %v", err)
	}
	if err := c.OnPointerUp(30, 30); err != nil {
		t.Fatalf("OnPointerUp: %v", err)
	}
	if err := c.OnResetGesture(); err != nil {
		t.Fatalf("OnResetGesture: %v", err)
	}

	if c.Status() != before {
		t.Fatalf("expected no state change, before=%+v after=%+v", before, c.Status())
	}
	if len(f.thumbnails.updates) != updates || f.compositor.visual.calls != visualCalls {
		t.Fatalf("expected no collaborator calls")
	}
}

func TestPointerDown_IgnoredWhenCompleted(t *testing.T) {
	f := newFixture(geometry.Rect{Right: 200, Bottom: 200}, geometry.Rect{Right: 400, Bottom: 400})
	c := newTestController(t, f)

	_ = c.OnPointerDown(10, 10)
	_ = c.OnPointerUp(50, 50)
	source := c.Status().Source

	_ = c.OnPointerDown(0, 0)
	_ = c.OnPointerUp(100, 100)
	if c.Phase() != PhaseCompleted {
		t.Fatalf("expected completed to persist until reset, got %v", c.Phase())
	}
	if c.Status().Source != source {
		t.Fatalf("expected source unchanged, got %v", c.Status().Source)
	}
}

func TestCrop_RequiresIdle(t *testing.T) {
	f := newFixture(geometry.Rect{Right: 200, Bottom: 200}, geometry.Rect{Right: 400, Bottom: 400})
	c := newTestController(t, f)

	if err := c.Crop(geometry.Rect{Left: 10, Top: 10, Right: 50, Bottom: 50}); err != nil {
		t.Fatalf("Crop: %v", err)
	}
	if want := (geometry.Rect{Left: 20, Top: 20, Right: 100, Bottom: 100}); c.Status().Source != want {
		t.Fatalf("expected source %v, got %v", want, c.Status().Source)
	}
	if err := c.Crop(geometry.Rect{Right: 10, Bottom: 10}); !errors.Is(err, ErrGestureActive) {
		t.Fatalf("expected ErrGestureActive, got %v", err)
	}
}

func TestHandleMessage_RoutesAndDeclines(t *testing.T) {
	f := newFixture(geometry.Rect{Right: 200, Bottom: 200}, geometry.Rect{Right: 400, Bottom: 400})
	c := newTestController(t, f)

	for _, msg := range []Message{
		{Kind: MessagePointerDown, X: 10, Y: 10},
		{Kind: MessagePointerMove, X: 50, Y: 50},
		{Kind: MessagePointerUp, X: 50, Y: 50},
	} {
		handled, err := c.HandleMessage(msg)
		if err != nil || !handled {
			t.Fatalf("%s: handled=%v err=%v", msg.Kind, handled, err)
		}
	}
	if c.Phase() != PhaseCompleted {
		t.Fatalf("expected completed, got %v", c.Phase())
	}

	handled, err := c.HandleMessage(Message{Kind: MessageClose})
	if handled || err != nil {
		t.Fatalf("expected close to fall through, handled=%v err=%v", handled, err)
	}
}
