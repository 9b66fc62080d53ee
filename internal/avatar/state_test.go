package avatar

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestAnimationDescriptor_FrameDuration(t *testing.T) {
	t.Run("ExplicitDurationWins", func(t *testing.T) {
		desc := AnimationDescriptor{DurationPerPose: 0.5, FPS: 10}
		assert.Equal(t, 500*time.Millisecond, desc.FrameDuration())
	})

	t.Run("FPSFallback", func(t *testing.T) {
		desc := AnimationDescriptor{FPS: 4}
		assert.Equal(t, 250*time.Millisecond, desc.FrameDuration())
	})

	t.Run("DefaultFallback", func(t *testing.T) {
		desc := AnimationDescriptor{}
		assert.Equal(t, DefaultFrameDuration, desc.FrameDuration())
	})
}

func TestGifDescriptor_Expired(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	gif := GifDescriptor{
		URL:       "https://media.example.com/dance.gif",
		Duration:  5,
		StartTime: EpochSeconds(now),
	}

	assert.False(t, gif.Expired(now))
	assert.False(t, gif.Expired(now.Add(3*time.Second)))
	assert.True(t, gif.Expired(now.Add(5*time.Second)))
	assert.True(t, gif.Expired(now.Add(6*time.Second)))
}

func TestAvatarState_PoseName(t *testing.T) {
	t.Run("NamedPose", func(t *testing.T) {
		pose := "wave1"
		state := AvatarState{Pose: &pose}
		assert.Equal(t, "wave1", state.PoseName())
	})

	t.Run("NullPoseFallsBackToIdle", func(t *testing.T) {
		state := AvatarState{}
		assert.Equal(t, PoseIdle, state.PoseName())
	})

	t.Run("EmptyPoseFallsBackToIdle", func(t *testing.T) {
		pose := ""
		state := AvatarState{Pose: &pose}
		assert.Equal(t, PoseIdle, state.PoseName())
	})
}

func TestDefaultState(t *testing.T) {
	state := DefaultState()

	assert.True(t, state.Visible)
	assert.Equal(t, PoseIdle, state.PoseName())
	assert.Equal(t, Position{X: 1000, Y: 100}, state.Position)
	assert.Nil(t, state.Animation)
	assert.Nil(t, state.Gif)
}
