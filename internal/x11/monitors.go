package x11

import (
	"fmt"

	"github.com/BurntSushi/xgb/randr"
	"github.com/BurntSushi/xgbutil/ewmh"

	"github.com/1broseidon/topthumb/internal/geometry"
)

// Monitor represents a physical display
type Monitor struct {
	ID     int
	Name   string
	Bounds geometry.Rect
}

// GetMonitors retrieves all active monitors using XRandR
func (c *Connection) GetMonitors() ([]Monitor, error) {
	if err := randr.Init(c.XUtil.Conn()); err != nil {
		return nil, fmt.Errorf("randr init failed: %w", err)
	}

	resources, err := randr.GetScreenResources(c.XUtil.Conn(), c.Root).Reply()
	if err != nil {
		return nil, fmt.Errorf("failed to get screen resources: %w", err)
	}

	var monitors []Monitor
	for i, crtc := range resources.Crtcs {
		crtcInfo, err := randr.GetCrtcInfo(c.XUtil.Conn(), crtc, resources.ConfigTimestamp).Reply()
		if err != nil {
			continue
		}

		// Skip disabled CRTCs
		if crtcInfo.Width == 0 || crtcInfo.Height == 0 || len(crtcInfo.Outputs) == 0 {
			continue
		}

		outputName := fmt.Sprintf("Monitor%d", i)
		outputInfo, err := randr.GetOutputInfo(c.XUtil.Conn(), crtcInfo.Outputs[0], resources.ConfigTimestamp).Reply()
		if err == nil {
			outputName = string(outputInfo.Name)
		}

		monitors = append(monitors, Monitor{
			ID:     i,
			Name:   outputName,
			Bounds: geometry.FromXYWH(int(crtcInfo.X), int(crtcInfo.Y), int(crtcInfo.Width), int(crtcInfo.Height)),
		})
	}
	return monitors, nil
}

// UsableArea returns the part of the monitor under r's center that is not
// covered by panels, according to _NET_WORKAREA.
func (c *Connection) UsableArea(r geometry.Rect) (geometry.Rect, error) {
	monitors, err := c.GetMonitors()
	if err != nil {
		return geometry.Rect{}, err
	}
	mon, ok := monitorAt(monitors, r.Left+r.Width()/2, r.Top+r.Height()/2)
	if !ok {
		return geometry.Rect{}, fmt.Errorf("no monitor contains %s", r)
	}

	area := mon.Bounds
	workArea, err := ewmh.WorkareaGet(c.XUtil)
	if err != nil || len(workArea) == 0 {
		return area, nil
	}

	desktopIndex := 0
	if currentDesktop, err := ewmh.CurrentDesktopGet(c.XUtil); err == nil && int(currentDesktop) < len(workArea) {
		desktopIndex = int(currentDesktop)
	}
	wa := workArea[desktopIndex]
	if usable := area.Intersect(geometry.FromXYWH(wa.X, wa.Y, int(wa.Width), int(wa.Height))); !usable.Empty() {
		return usable, nil
	}
	return area, nil
}

// monitorAt returns the monitor containing (x, y), falling back to the first.
func monitorAt(monitors []Monitor, x, y int) (Monitor, bool) {
	if len(monitors) == 0 {
		return Monitor{}, false
	}
	for _, m := range monitors {
		if m.Bounds.Contains(x, y) {
			return m, true
		}
	}
	return monitors[0], true
}

// FitSize shrinks width x height to fit inside area while keeping the aspect
// ratio. Sizes that already fit are returned unchanged.
func FitSize(width, height int, area geometry.Rect) (int, int) {
	if width <= 0 || height <= 0 || area.Empty() {
		return width, height
	}
	if width <= area.Width() && height <= area.Height() {
		return width, height
	}
	scale, err := geometry.ComputeScaleFactor(area, geometry.FromXYWH(0, 0, width, height))
	if err != nil {
		return width, height
	}
	return max(1, int(float64(width)*scale)), max(1, int(float64(height)*scale))
}
