package hotkeys

import (
	"fmt"
	"io"
	"log/slog"
	"slices"
	"sync"

	"github.com/BurntSushi/xgb/xproto"
	"github.com/BurntSushi/xgbutil"
	"github.com/BurntSushi/xgbutil/keybind"
	"github.com/BurntSushi/xgbutil/xevent"
)

// Binding pairs a key sequence (xgbutil keybind syntax, e.g. "r" or
// "Control-r") with the action it triggers.
type Binding struct {
	Name   string
	Key    string
	Action func()
}

// Handler binds keys on a single window. Bindings fire only while that window
// has keyboard focus; nothing is grabbed globally.
type Handler struct {
	xu     *xgbutil.XUtil
	win    xproto.Window
	logger *slog.Logger
}

var ignoreModsOnce sync.Once

// NewHandler creates a key handler for win.
func NewHandler(xu *xgbutil.XUtil, win xproto.Window, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}

	ignoreModsOnce.Do(func() {
		configureIgnoreMods(xu)
	})

	return &Handler{
		xu:     xu,
		win:    win,
		logger: logger,
	}
}

// RegisterAll registers every binding with a non-empty key.
func (h *Handler) RegisterAll(bindings []Binding) error {
	for _, b := range bindings {
		if b.Key == "" {
			continue
		}
		if err := h.RegisterFunc(b.Key, b.Action); err != nil {
			return fmt.Errorf("failed to register %s key %q: %w", b.Name, b.Key, err)
		}
		h.logger.Debug("key bound", "name", b.Name, "key", b.Key)
	}
	return nil
}

// RegisterFunc registers an arbitrary key callback on the handler's window.
func (h *Handler) RegisterFunc(keySequence string, callback func()) error {
	return keybind.KeyPressFun(func(xu *xgbutil.XUtil, ev xevent.KeyPressEvent) {
		callback()
	}).Connect(h.xu, h.win, keySequence, false)
}

// configureIgnoreMods makes bindings fire regardless of lock modifier state.
func configureIgnoreMods(xu *xgbutil.XUtil) {
	// Always ignore CapsLock.
	caps := uint16(xproto.ModMaskLock)
	numLock := modMaskForKeysym(xu, "Num_Lock")
	scrollLock := modMaskForKeysym(xu, "Scroll_Lock")

	xevent.IgnoreMods = ignoreMasks(caps, numLock, scrollLock)
}

// ignoreMasks returns every combination of the distinct non-zero lock masks,
// including the empty combination.
func ignoreMasks(locks ...uint16) []uint16 {
	var base []uint16
	for _, mask := range locks {
		if mask != 0 && !slices.Contains(base, mask) {
			base = append(base, mask)
		}
	}

	unique := map[uint16]struct{}{0: {}}
	for subset := 1; subset < (1 << len(base)); subset++ {
		var mask uint16
		for bit := range base {
			if subset&(1<<bit) != 0 {
				mask |= base[bit]
			}
		}
		unique[mask] = struct{}{}
	}

	ignore := make([]uint16, 0, len(unique))
	for mask := range unique {
		ignore = append(ignore, mask)
	}
	slices.Sort(ignore)
	return ignore
}

func modMaskForKeysym(xu *xgbutil.XUtil, keysym string) uint16 {
	for _, keycode := range keybind.StrToKeycodes(xu, keysym) {
		if mask := keybind.ModGet(xu, keycode); mask != 0 {
			return mask
		}
	}
	return 0
}
