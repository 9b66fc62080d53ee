package display

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mimi-overlay/mimi/pkg/logger"
)

func writeSprite(t *testing.T, dir, name string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte("png"), 0o644))
}

func TestSpriteLibrary_Load(t *testing.T) {
	dir := t.TempDir()
	writeSprite(t, dir, "idle.png")
	writeSprite(t, dir, "wave1.png")
	writeSprite(t, dir, "blink.gif")
	writeSprite(t, dir, "notes.txt")
	require.NoError(t, os.Mkdir(filepath.Join(dir, "nested"), 0o755))

	lib := NewSpriteLibrary(dir, logger.NewNop())
	require.NoError(t, lib.Load())

	path, ok := lib.Resolve("idle")
	require.True(t, ok)
	assert.Equal(t, filepath.Join(dir, "idle.png"), path)

	assert.True(t, lib.Has("wave1"))
	assert.True(t, lib.Has("blink"))
	assert.False(t, lib.Has("notes"))
	assert.False(t, lib.Has("nested"))
	assert.Len(t, lib.Poses(), 3)
}

func TestSpriteLibrary_LoadMissingDir(t *testing.T) {
	lib := NewSpriteLibrary(filepath.Join(t.TempDir(), "nope"), logger.NewNop())
	assert.Error(t, lib.Load())
}

func TestSpriteLibrary_Watch(t *testing.T) {
	dir := t.TempDir()
	writeSprite(t, dir, "idle.png")

	lib := NewSpriteLibrary(dir, logger.NewNop())
	require.NoError(t, lib.Load())
	require.False(t, lib.Has("wave1"))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() {
		_ = lib.Watch(ctx)
	}()

	// Give the watcher a moment to register before touching the directory
	time.Sleep(50 * time.Millisecond)
	writeSprite(t, dir, "wave1.png")

	assert.Eventually(t, func() bool {
		return lib.Has("wave1")
	}, 2*time.Second, 20*time.Millisecond)
}
