package display

import "math"

// Gesture classifies a completed pointer interaction.
type Gesture int

const (
	GestureNone Gesture = iota
	// GestureClick is a press-release pair that never moved past the
	// drag threshold.
	GestureClick
	// GestureDrag is a press that crossed the threshold before release.
	GestureDrag
)

// PointerTracker classifies press/move/release sequences into clicks and
// drags. A press starts tracking, movement beyond the threshold promotes
// the gesture to a drag, and once promoted it stays a drag even if the
// pointer returns to the origin.
type PointerTracker struct {
	threshold float64

	pressed  bool
	dragging bool
	originX  float64
	originY  float64
}

// NewPointerTracker builds a tracker with the given drag threshold in pixels.
func NewPointerTracker(threshold float64) *PointerTracker {
	return &PointerTracker{threshold: threshold}
}

// Press starts a new gesture at the given pointer position.
func (t *PointerTracker) Press(x, y float64) {
	t.pressed = true
	t.dragging = false
	t.originX = x
	t.originY = y
}

// Move updates the gesture with a new pointer position. It returns true
// exactly once, on the move that first crosses the drag threshold.
func (t *PointerTracker) Move(x, y float64) bool {
	if !t.pressed || t.dragging {
		return false
	}
	dx := x - t.originX
	dy := y - t.originY
	if math.Hypot(dx, dy) > t.threshold {
		t.dragging = true
		return true
	}
	return false
}

// Release ends the gesture and reports what it was. Movement at or under
// the threshold counts as a click.
func (t *PointerTracker) Release(x, y float64) Gesture {
	if !t.pressed {
		return GestureNone
	}
	t.Move(x, y)
	dragging := t.dragging
	t.pressed = false
	t.dragging = false
	if dragging {
		return GestureDrag
	}
	return GestureClick
}

// Dragging reports whether an in-progress gesture has crossed the threshold.
func (t *PointerTracker) Dragging() bool {
	return t.pressed && t.dragging
}

// Pressed reports whether a gesture is in progress.
func (t *PointerTracker) Pressed() bool {
	return t.pressed
}
