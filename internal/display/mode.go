package display

import (
	"github.com/mimi-overlay/mimi/internal/avatar"
)

// Mode is the single rendering mode active for one tick. Exactly one mode
// applies at any instant; it is computed fresh from the raw state each tick
// rather than carried over.
type Mode int

const (
	// ModeStatic renders the named still pose, idle when none is set.
	ModeStatic Mode = iota
	// ModeAnimation renders a timed frame sequence.
	ModeAnimation
	// ModeGif plays an externally-sourced GIF and suppresses everything else.
	ModeGif
)

// String returns the mode name
func (m Mode) String() string {
	switch m {
	case ModeStatic:
		return "static"
	case ModeAnimation:
		return "animation"
	case ModeGif:
		return "gif"
	default:
		return "unknown"
	}
}

// ResolveMode selects the rendering mode for a state snapshot. Precedence
// is strict: a present gif wins over everything, a non-empty animation wins
// over the static pose. An animation with an empty sequence never enters
// animation mode.
func ResolveMode(state avatar.AvatarState) Mode {
	if state.Gif != nil {
		return ModeGif
	}
	if state.Animation != nil && len(state.Animation.Sequence) > 0 {
		return ModeAnimation
	}
	return ModeStatic
}
