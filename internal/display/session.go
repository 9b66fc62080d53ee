package display

import (
	"time"

	"github.com/mimi-overlay/mimi/internal/avatar"
)

// Session tracks playback timing for one animation instance. Timing is
// anchored to the client clock at the moment the session was created, not
// to any timestamp the producer stamped on the descriptor, so a slow poll
// never causes frames to be skipped at the start.
type Session struct {
	// ID is the animation instance identity. A snapshot carrying a
	// different id replaces the session; the same id leaves it running.
	ID        string
	StartedAt time.Time
}

// NewSession starts timing a new animation instance at now.
func NewSession(id string, now time.Time) *Session {
	return &Session{
		ID:        id,
		StartedAt: now,
	}
}

// Frame is the playback position computed for a single tick.
type Frame struct {
	Index int
	Pose  string
	// Done is set when a non-looping animation has played past its last
	// frame. Index and Pose are meaningless when Done is true.
	Done bool
}

// FrameAt computes the frame to render at now. Looping animations wrap with
// a modulo so they run indefinitely; non-looping animations report Done once
// elapsed time passes the end of the sequence.
func (s *Session) FrameAt(desc *avatar.AnimationDescriptor, now time.Time) Frame {
	n := len(desc.Sequence)
	if n == 0 {
		return Frame{Done: true}
	}

	elapsed := now.Sub(s.StartedAt)
	if elapsed < 0 {
		elapsed = 0
	}

	idx := int(elapsed / desc.FrameDuration())
	if desc.Loop {
		idx = idx % n
		return Frame{Index: idx, Pose: desc.Sequence[idx]}
	}

	if idx >= n {
		return Frame{Done: true}
	}
	return Frame{Index: idx, Pose: desc.Sequence[idx]}
}
