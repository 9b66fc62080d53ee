package avatar

import (
	"time"
)

// Well-known pose names. Poses are named still images resolved by the
// display client's sprite library.
const (
	PoseIdle   = "idle"
	PosePickUp = "pick_up"
)

// DefaultFrameDuration is used when an animation carries neither an
// explicit per-frame duration nor an fps value.
const DefaultFrameDuration = 2 * time.Second

// DefaultGifDuration is applied when a show-gif request omits a duration.
const DefaultGifDuration = 5.0

// Position represents the avatar's screen coordinates
type Position struct {
	X int `json:"x"`
	Y int `json:"y"`
}

// AnimationDescriptor is a declarative frame-sequence request. A producer
// issues a new ID to restart playback even when the sequence is unchanged.
type AnimationDescriptor struct {
	ID              string   `json:"id"`
	Name            string   `json:"name,omitempty"`
	Sequence        []string `json:"sequence"`
	DurationPerPose float64  `json:"durationPerPose,omitempty"`
	FPS             float64  `json:"fps,omitempty"`
	Loop            bool     `json:"loop"`
	StartTime       *float64 `json:"startTime,omitempty"`
}

// FrameDuration resolves how long each frame is shown: the explicit
// durationPerPose if present, else 1/fps, else DefaultFrameDuration.
func (d *AnimationDescriptor) FrameDuration() time.Duration {
	if d.DurationPerPose > 0 {
		return time.Duration(d.DurationPerPose * float64(time.Second))
	}
	if d.FPS > 0 {
		return time.Duration(float64(time.Second) / d.FPS)
	}
	return DefaultFrameDuration
}

// GifDescriptor is a declarative request to play an externally-sourced GIF.
// Duration counts from StartTime, so download latency eats into the display
// budget rather than extending it.
type GifDescriptor struct {
	URL       string  `json:"url"`
	Duration  float64 `json:"duration"`
	StartTime float64 `json:"startTime"`
}

// Expired reports whether the GIF's display budget has run out at the given
// wall-clock time.
func (g *GifDescriptor) Expired(now time.Time) bool {
	return EpochSeconds(now)-g.StartTime >= g.Duration
}

// AvatarState is the single canonical presence record shared between
// producers and the display client.
type AvatarState struct {
	Visible   bool                 `json:"visible"`
	Pose      *string              `json:"pose"`
	Position  Position             `json:"position"`
	Animation *AnimationDescriptor `json:"animation,omitempty"`
	Gif       *GifDescriptor       `json:"gif,omitempty"`
}

// PoseName returns the effective static pose, falling back to idle when the
// pose is null or absent.
func (s *AvatarState) PoseName() string {
	if s.Pose == nil || *s.Pose == "" {
		return PoseIdle
	}
	return *s.Pose
}

// DefaultState returns the state the store owns at startup: visible, idle,
// parked at the original top-right position.
func DefaultState() AvatarState {
	pose := PoseIdle
	return AvatarState{
		Visible:  true,
		Pose:     &pose,
		Position: Position{X: 1000, Y: 100},
	}
}

// EpochSeconds converts a time to fractional seconds since the Unix epoch,
// the unit descriptors use for their startTime stamps.
func EpochSeconds(t time.Time) float64 {
	return float64(t.UnixNano()) / float64(time.Second)
}
