package avatar

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mimi-overlay/mimi/pkg/logger"
)

func TestLibrary_Load(t *testing.T) {
	t.Run("MissingFileStartsEmpty", func(t *testing.T) {
		lib := NewLibrary(filepath.Join(t.TempDir(), "missing.jsonl"), logger.NewNop())

		require.NoError(t, lib.Load())
		assert.Empty(t, lib.List())
	})

	t.Run("SkipsMalformedLines", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "animations.jsonl")
		content := `{"id":"wave","name":"Wave","frames":["wave1","wave2"],"fps":2,"loop":true}
not json at all
{"id":"","frames":["a"]}
{"id":"nod","name":"Nod","frames":["nod1"],"fps":1,"loop":false}
`
		require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

		lib := NewLibrary(path, logger.NewNop())
		require.NoError(t, lib.Load())

		animations := lib.List()
		require.Len(t, animations, 2)
		assert.Equal(t, "nod", animations[0].ID)
		assert.Equal(t, "wave", animations[1].ID)
	})
}

func TestLibrary_Save(t *testing.T) {
	t.Run("PersistsAndReloads", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "animations.jsonl")
		lib := NewLibrary(path, logger.NewNop())
		require.NoError(t, lib.Load())

		err := lib.Save(Animation{
			ID:     "wave",
			Name:   "Wave",
			Frames: []string{"wave1", "wave2"},
			FPS:    2,
			Loop:   true,
		})
		require.NoError(t, err)

		reloaded := NewLibrary(path, logger.NewNop())
		require.NoError(t, reloaded.Load())

		anim, ok := reloaded.Get("wave")
		require.True(t, ok)
		assert.Equal(t, []string{"wave1", "wave2"}, anim.Frames)
		assert.True(t, anim.Loop)
	})

	t.Run("RejectsDuplicateID", func(t *testing.T) {
		lib := NewLibrary(filepath.Join(t.TempDir(), "animations.jsonl"), logger.NewNop())
		anim := Animation{ID: "wave", Frames: []string{"wave1"}}

		require.NoError(t, lib.Save(anim))
		assert.Error(t, lib.Save(anim))
	})

	t.Run("RejectsInvalidAnimation", func(t *testing.T) {
		lib := NewLibrary(filepath.Join(t.TempDir(), "animations.jsonl"), logger.NewNop())

		assert.Error(t, lib.Save(Animation{Frames: []string{"a"}}))
		assert.Error(t, lib.Save(Animation{ID: "empty"}))
	})

	t.Run("DefaultsFPS", func(t *testing.T) {
		lib := NewLibrary(filepath.Join(t.TempDir(), "animations.jsonl"), logger.NewNop())
		require.NoError(t, lib.Save(Animation{ID: "wave", Frames: []string{"wave1"}}))

		anim, ok := lib.Get("wave")
		require.True(t, ok)
		assert.Equal(t, 2.0, anim.FPS)
	})
}

func TestAnimation_Descriptor(t *testing.T) {
	anim := Animation{
		ID:     "wave",
		Name:   "Wave",
		Frames: []string{"wave1", "wave2"},
		FPS:    4,
		Loop:   true,
	}

	desc := anim.Descriptor("instance-1")

	assert.Equal(t, "instance-1", desc.ID)
	assert.Equal(t, "Wave", desc.Name)
	assert.Equal(t, []string{"wave1", "wave2"}, desc.Sequence)
	assert.Equal(t, 4.0, desc.FPS)
	assert.True(t, desc.Loop)

	// The descriptor owns its frames; mutating it must not touch the recipe
	desc.Sequence[0] = "mutated"
	assert.Equal(t, "wave1", anim.Frames[0])
}
