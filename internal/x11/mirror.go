package x11

import (
	"fmt"
	"io"
	"log/slog"
	"sync"

	"github.com/BurntSushi/xgb/composite"
	"github.com/BurntSushi/xgb/damage"
	"github.com/BurntSushi/xgb/render"
	"github.com/BurntSushi/xgb/xproto"
	"github.com/BurntSushi/xgbutil"
	"github.com/BurntSushi/xgbutil/xevent"

	"github.com/1broseidon/topthumb/internal/geometry"
)

const filterBilinear = "bilinear"

// MirrorUpdate carries the thumbnail fields to change. Nil fields are left
// untouched.
type MirrorUpdate struct {
	Source         *geometry.Rect
	Destination    *geometry.Rect
	Visible        *bool
	Opacity        *uint8
	ClientAreaOnly *bool
}

// mirrorLink is one registered source→preview thumbnail.
type mirrorLink struct {
	preview xproto.Window
	tracked xproto.Window

	source         geometry.Rect // tracked space
	destination    geometry.Rect // preview client space
	visible        bool
	opacity        uint8
	clientAreaOnly bool

	drawable xproto.Window
	offsetX  int // tracked origin in drawable coordinates
	offsetY  int
	width    int
	height   int

	pixmap  xproto.Pixmap
	srcPic  render.Picture
	dstPic  render.Picture
	maskPic render.Picture
	damage  damage.Damage
	bound   bool
	removed bool
}

// Mirror paints live, scaled copies of one window into another using the
// Composite, Render and Damage extensions. Everything happens server side.
type Mirror struct {
	conn   *Connection
	logger *slog.Logger

	mu      sync.Mutex
	links   map[uint32]*mirrorLink
	next    uint32
	formats map[xproto.Visualid]render.Pictformat
}

// NewMirror initializes the required extensions and starts listening for
// damage on registered sources.
func NewMirror(conn *Connection, logger *slog.Logger) (*Mirror, error) {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	if err := conn.InitExtensions(); err != nil {
		return nil, err
	}

	formats, err := queryVisualFormats(conn)
	if err != nil {
		return nil, err
	}

	m := &Mirror{
		conn:    conn,
		logger:  logger,
		links:   make(map[uint32]*mirrorLink),
		formats: formats,
	}

	xevent.HookFun(func(xu *xgbutil.XUtil, ev interface{}) bool {
		if notify, ok := ev.(damage.NotifyEvent); ok {
			m.onDamage(notify)
		}
		return true
	}).Connect(conn.XUtil)

	return m, nil
}

func queryVisualFormats(conn *Connection) (map[xproto.Visualid]render.Pictformat, error) {
	reply, err := render.QueryPictFormats(conn.XUtil.Conn()).Reply()
	if err != nil {
		return nil, fmt.Errorf("failed to query picture formats: %w", err)
	}
	formats := make(map[xproto.Visualid]render.Pictformat)
	for _, screen := range reply.Screens {
		for _, depth := range screen.Depths {
			for _, visual := range depth.Visuals {
				formats[visual.Visual] = visual.Format
			}
		}
	}
	return formats, nil
}

// Register links tracked (source) to preview (destination). Nothing is
// painted until a destination rect is set.
func (m *Mirror) Register(preview, tracked xproto.Window) (uint32, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	link := &mirrorLink{
		preview: preview,
		tracked: tracked,
		visible: true,
		opacity: 255,
	}

	dstPic, err := m.createPicture(preview)
	if err != nil {
		return 0, fmt.Errorf("failed to create preview picture: %w", err)
	}
	link.dstPic = dstPic

	if err := m.bind(link); err != nil {
		render.FreePicture(m.conn.XUtil.Conn(), dstPic)
		return 0, err
	}

	m.next++
	id := m.next
	m.links[id] = link

	xevent.ExposeFun(func(xu *xgbutil.XUtil, ev xevent.ExposeEvent) {
		if ev.Count != 0 {
			return
		}
		m.mu.Lock()
		defer m.mu.Unlock()
		if !link.removed {
			m.paint(link)
		}
	}).Connect(m.conn.XUtil, preview)

	m.logger.Debug("mirror registered", "id", id, "preview", preview, "tracked", tracked, "drawable", link.drawable)
	return id, nil
}

// Update applies the non-nil fields of u and repaints.
func (m *Mirror) Update(id uint32, u MirrorUpdate) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	link, ok := m.links[id]
	if !ok {
		return fmt.Errorf("mirror %d not registered", id)
	}

	rebind := false
	if u.ClientAreaOnly != nil && *u.ClientAreaOnly != link.clientAreaOnly {
		link.clientAreaOnly = *u.ClientAreaOnly
		rebind = true
	}
	if u.Source != nil {
		link.source = *u.Source
	}
	if u.Destination != nil {
		link.destination = *u.Destination
	}
	if u.Visible != nil {
		link.visible = *u.Visible
	}
	if u.Opacity != nil && *u.Opacity != link.opacity {
		link.opacity = *u.Opacity
		if err := m.updateMask(link); err != nil {
			return err
		}
	}

	if rebind {
		m.unbind(link)
		if err := m.bind(link); err != nil {
			return err
		}
	}

	m.paint(link)
	return nil
}

// Unregister releases every server resource held for the link.
func (m *Mirror) Unregister(id uint32) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	link, ok := m.links[id]
	if !ok {
		return fmt.Errorf("mirror %d not registered", id)
	}
	delete(m.links, id)

	link.removed = true
	m.unbind(link)
	conn := m.conn.XUtil.Conn()
	if link.maskPic != 0 {
		render.FreePicture(conn, link.maskPic)
	}
	render.FreePicture(conn, link.dstPic)
	return nil
}

// Refresh repaints every link. Used by the optional refresh timer.
func (m *Mirror) Refresh() {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, link := range m.links {
		m.paint(link)
	}
}

func (m *Mirror) onDamage(ev damage.NotifyEvent) {
	m.mu.Lock()
	defer m.mu.Unlock()

	damage.Subtract(m.conn.XUtil.Conn(), ev.Damage, 0, 0)
	for _, link := range m.links {
		if link.damage == ev.Damage {
			m.paint(link)
		}
	}
}

// bind redirects the source drawable and names its backing pixmap. On
// failure every resource acquired so far is released again.
func (m *Mirror) bind(link *mirrorLink) (err error) {
	conn := m.conn.XUtil.Conn()

	drawable := link.tracked
	if !link.clientAreaOnly {
		top, err := m.conn.Toplevel(link.tracked)
		if err != nil {
			return err
		}
		drawable = top
	}

	frame, err := m.conn.FrameBounds(link.tracked)
	if err != nil {
		return fmt.Errorf("failed to get tracked window bounds: %w", err)
	}
	drawRect, err := m.conn.RootRect(drawable)
	if err != nil {
		return err
	}

	var undo undoStack
	defer func() {
		if err != nil {
			undo.run()
		}
	}()

	if err := composite.RedirectWindowChecked(conn, drawable, composite.RedirectAutomatic).Check(); err != nil {
		return fmt.Errorf("failed to redirect window 0x%x: %w", drawable, err)
	}
	undo.push(func() { composite.UnredirectWindow(conn, drawable, composite.RedirectAutomatic) })

	pixmap, err := xproto.NewPixmapId(conn)
	if err != nil {
		return err
	}
	if err := composite.NameWindowPixmapChecked(conn, drawable, pixmap).Check(); err != nil {
		return fmt.Errorf("failed to name window pixmap: %w", err)
	}
	undo.push(func() { xproto.FreePixmap(conn, pixmap) })

	format, err := m.windowFormat(drawable)
	if err != nil {
		return err
	}
	srcPic, err := render.NewPictureId(conn)
	if err != nil {
		return err
	}
	if err := render.CreatePictureChecked(conn, srcPic, xproto.Drawable(pixmap), format, 0, nil).Check(); err != nil {
		return fmt.Errorf("failed to create source picture: %w", err)
	}
	undo.push(func() { render.FreePicture(conn, srcPic) })
	render.SetPictureFilter(conn, srcPic, uint16(len(filterBilinear)), filterBilinear, nil)

	dmg, err := damage.NewDamageId(conn)
	if err != nil {
		return err
	}
	damage.Create(conn, dmg, xproto.Drawable(drawable), damage.ReportLevelNonEmpty)

	link.drawable = drawable
	link.offsetX = frame.Left - drawRect.Left
	link.offsetY = frame.Top - drawRect.Top
	link.width = drawRect.Width()
	link.height = drawRect.Height()
	link.pixmap = pixmap
	link.srcPic = srcPic
	link.damage = dmg
	link.bound = true
	return nil
}

// undoStack holds releases for partially acquired server resources.
type undoStack []func()

func (u *undoStack) push(release func()) {
	*u = append(*u, release)
}

// run releases in reverse acquisition order.
func (u undoStack) run() {
	for i := len(u) - 1; i >= 0; i-- {
		u[i]()
	}
}

func (m *Mirror) unbind(link *mirrorLink) {
	if !link.bound {
		return
	}
	conn := m.conn.XUtil.Conn()
	damage.Destroy(conn, link.damage)
	render.FreePicture(conn, link.srcPic)
	xproto.FreePixmap(conn, link.pixmap)
	composite.UnredirectWindow(conn, link.drawable, composite.RedirectAutomatic)
	link.bound = false
}

// refreshIfResized renames the backing pixmap after the source drawable
// changes size; the old pixmap keeps the old contents.
func (m *Mirror) refreshIfResized(link *mirrorLink) error {
	geom, err := xproto.GetGeometry(m.conn.XUtil.Conn(), xproto.Drawable(link.drawable)).Reply()
	if err != nil {
		return err
	}
	if int(geom.Width) == link.width && int(geom.Height) == link.height {
		return nil
	}
	m.unbind(link)
	return m.bind(link)
}

func (m *Mirror) updateMask(link *mirrorLink) error {
	conn := m.conn.XUtil.Conn()
	if link.maskPic != 0 {
		render.FreePicture(conn, link.maskPic)
		link.maskPic = 0
	}
	if link.opacity == 255 {
		return nil
	}
	pic, err := render.NewPictureId(conn)
	if err != nil {
		return err
	}
	alpha := uint16(link.opacity) * 257
	render.CreateSolidFill(conn, pic, render.Color{Alpha: alpha})
	link.maskPic = pic
	return nil
}

// paint fills the letterbox bands and composites the scaled source into the
// destination rect. Errors are logged; a missed frame is repaired by the next
// damage event.
func (m *Mirror) paint(link *mirrorLink) {
	if !link.bound {
		if err := m.bind(link); err != nil {
			m.logger.Debug("mirror bind failed", "error", err)
			return
		}
	}
	if err := m.refreshIfResized(link); err != nil {
		m.logger.Debug("mirror rebind failed", "error", err)
		return
	}

	client, err := m.conn.ClientSize(link.preview)
	if err != nil {
		m.logger.Debug("mirror paint skipped", "error", err)
		return
	}

	conn := m.conn.XUtil.Conn()
	dest := link.destination
	if !link.visible || dest.Empty() || link.source.Empty() {
		render.FillRectangles(conn, render.PictOpSrc, link.dstPic, render.Color{Alpha: 0xffff},
			[]xproto.Rectangle{toXRect(client)})
		return
	}

	if bands := letterboxBands(client, dest); len(bands) > 0 {
		render.FillRectangles(conn, render.PictOpSrc, link.dstPic, render.Color{Alpha: 0xffff}, bands)
	}

	sx := float64(dest.Width()) / float64(link.source.Width())
	sy := float64(dest.Height()) / float64(link.source.Height())
	render.SetPictureTransform(conn, link.srcPic, render.Transform{
		Matrix11: toFixed(1 / sx),
		Matrix22: toFixed(1 / sy),
		Matrix33: toFixed(1),
	})

	srcX := int(float64(link.source.Left+link.offsetX) * sx)
	srcY := int(float64(link.source.Top+link.offsetY) * sy)

	op := byte(render.PictOpSrc)
	mask := render.Picture(0)
	if link.maskPic != 0 {
		op = render.PictOpOver
		mask = link.maskPic
		render.FillRectangles(conn, render.PictOpSrc, link.dstPic, render.Color{Alpha: 0xffff},
			[]xproto.Rectangle{toXRect(dest)})
	}

	render.Composite(conn, op, link.srcPic, mask, link.dstPic,
		int16(srcX), int16(srcY),
		0, 0,
		int16(dest.Left), int16(dest.Top),
		uint16(dest.Width()), uint16(dest.Height()))
}

func (m *Mirror) createPicture(win xproto.Window) (render.Picture, error) {
	conn := m.conn.XUtil.Conn()
	format, err := m.windowFormat(win)
	if err != nil {
		return 0, err
	}
	pic, err := render.NewPictureId(conn)
	if err != nil {
		return 0, err
	}
	if err := render.CreatePictureChecked(conn, pic, xproto.Drawable(win), format, 0, nil).Check(); err != nil {
		return 0, err
	}
	return pic, nil
}

func (m *Mirror) windowFormat(win xproto.Window) (render.Pictformat, error) {
	attrs, err := xproto.GetWindowAttributes(m.conn.XUtil.Conn(), win).Reply()
	if err != nil {
		return 0, fmt.Errorf("failed to get window attributes: %w", err)
	}
	format, ok := m.formats[attrs.Visual]
	if !ok {
		return 0, fmt.Errorf("no picture format for visual 0x%x", attrs.Visual)
	}
	return format, nil
}

// letterboxBands returns the parts of client not covered by dest.
func letterboxBands(client, dest geometry.Rect) []xproto.Rectangle {
	var bands []xproto.Rectangle
	add := func(r geometry.Rect) {
		if !r.Empty() {
			bands = append(bands, toXRect(r))
		}
	}
	add(geometry.Rect{Left: client.Left, Top: client.Top, Right: client.Right, Bottom: dest.Top})
	add(geometry.Rect{Left: client.Left, Top: dest.Bottom, Right: client.Right, Bottom: client.Bottom})
	add(geometry.Rect{Left: client.Left, Top: dest.Top, Right: dest.Left, Bottom: dest.Bottom})
	add(geometry.Rect{Left: dest.Right, Top: dest.Top, Right: client.Right, Bottom: dest.Bottom})
	return bands
}

func toXRect(r geometry.Rect) xproto.Rectangle {
	return xproto.Rectangle{
		X:      int16(r.Left),
		Y:      int16(r.Top),
		Width:  uint16(r.Width()),
		Height: uint16(r.Height()),
	}
}

// toFixed converts to the Render 16.16 fixed-point format.
func toFixed(v float64) render.Fixed {
	return render.Fixed(v * 65536)
}
