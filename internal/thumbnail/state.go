package thumbnail

// Phase represents the current phase of the crop gesture
type Phase int

const (
	// PhaseIdle means no gesture is in progress
	PhaseIdle Phase = iota
	// PhaseInProgress means the primary button is down and the snip visual tracks the pointer
	PhaseInProgress
	// PhaseCompleted means a crop was applied and only a reset is accepted
	PhaseCompleted
)

// String returns the string representation of the phase
func (p Phase) String() string {
	switch p {
	case PhaseIdle:
		return "idle"
	case PhaseInProgress:
		return "in_progress"
	case PhaseCompleted:
		return "completed"
	default:
		return "unknown"
	}
}

// Gesture holds the transient crop gesture state
type Gesture struct {
	Phase   Phase
	AnchorX int
	AnchorY int
}

// Start moves the gesture into progress anchored at (x, y)
func (g *Gesture) Start(x, y int) {
	g.Phase = PhaseInProgress
	g.AnchorX = x
	g.AnchorY = y
}

// Reset returns the gesture to idle
func (g *Gesture) Reset() {
	g.Phase = PhaseIdle
	g.AnchorX = 0
	g.AnchorY = 0
}
