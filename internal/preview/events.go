package preview

import (
	"github.com/BurntSushi/xgb/xproto"

	"github.com/1broseidon/topthumb/internal/thumbnail"
)

const (
	buttonPrimary   xproto.Button = xproto.ButtonIndex1
	buttonSecondary xproto.Button = xproto.ButtonIndex3
)

// pressMessage maps a button press: the primary button starts a crop and the
// secondary button resets it.
func pressMessage(button xproto.Button, x, y int16) (thumbnail.Message, bool) {
	switch button {
	case buttonPrimary:
		return thumbnail.Message{Kind: thumbnail.MessagePointerDown, X: int(x), Y: int(y)}, true
	case buttonSecondary:
		return thumbnail.Message{Kind: thumbnail.MessageReset}, true
	default:
		return thumbnail.Message{}, false
	}
}

func releaseMessage(button xproto.Button, x, y int16) (thumbnail.Message, bool) {
	if button != buttonPrimary {
		return thumbnail.Message{}, false
	}
	return thumbnail.Message{Kind: thumbnail.MessagePointerUp, X: int(x), Y: int(y)}, true
}

// motionMessage only reports drags of the primary button.
func motionMessage(state uint16, x, y int16) (thumbnail.Message, bool) {
	if state&xproto.KeyButMaskButton1 == 0 {
		return thumbnail.Message{}, false
	}
	return thumbnail.Message{Kind: thumbnail.MessagePointerMove, X: int(x), Y: int(y)}, true
}

// Dispatch hands msg to h and runs fallback for anything h does not consume.
// Errors from h are returned after the message counts as consumed.
func Dispatch(h thumbnail.MessageHandler, msg thumbnail.Message, fallback func(thumbnail.Message)) error {
	handled, err := h.HandleMessage(msg)
	if err != nil {
		return err
	}
	if !handled && fallback != nil {
		fallback(msg)
	}
	return nil
}
