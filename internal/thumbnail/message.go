package thumbnail

// MessageKind identifies a window message the controller may handle.
type MessageKind int

const (
	MessageResize MessageKind = iota + 1
	MessagePointerDown
	MessagePointerMove
	MessagePointerUp
	MessageReset
	MessageClose
)

func (k MessageKind) String() string {
	switch k {
	case MessageResize:
		return "resize"
	case MessagePointerDown:
		return "pointer_down"
	case MessagePointerMove:
		return "pointer_move"
	case MessagePointerUp:
		return "pointer_up"
	case MessageReset:
		return "reset"
	case MessageClose:
		return "close"
	default:
		return "unknown"
	}
}

// Message is a window event translated out of the platform's event types.
// X and Y are client-space pointer coordinates.
type Message struct {
	Kind MessageKind
	X    int
	Y    int
}

// MessageHandler is implemented by anything that reacts to preview window
// messages. It reports whether the message was consumed; unconsumed messages
// go to the window system's default handling.
type MessageHandler interface {
	HandleMessage(msg Message) (bool, error)
}

var _ MessageHandler = (*Controller)(nil)

// HandleMessage routes a message to the matching controller operation.
func (c *Controller) HandleMessage(msg Message) (bool, error) {
	switch msg.Kind {
	case MessageResize:
		return true, c.OnResize()
	case MessagePointerDown:
		return true, c.OnPointerDown(msg.X, msg.Y)
	case MessagePointerMove:
		return true, c.OnPointerMove(msg.X, msg.Y)
	case MessagePointerUp:
		return true, c.OnPointerUp(msg.X, msg.Y)
	case MessageReset:
		return true, c.OnResetGesture()
	default:
		return false, nil
	}
}
