package display

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/fsnotify/fsnotify"
	"github.com/samber/oops"
	"go.uber.org/zap"

	"github.com/mimi-overlay/mimi/pkg/logger"
)

// SpriteLibrary maps pose names to sprite image files found in a directory.
// The pose name is the file name without its extension. The directory can
// be watched so sprites dropped in while the display is running become
// available without a restart.
type SpriteLibrary struct {
	mu      sync.RWMutex
	dir     string
	sprites map[string]string
	logger  *logger.Logger
}

// NewSpriteLibrary creates a library backed by the given directory.
func NewSpriteLibrary(dir string, log *logger.Logger) *SpriteLibrary {
	return &SpriteLibrary{
		dir:     dir,
		sprites: make(map[string]string),
		logger:  log.WithComponent("sprites"),
	}
}

// Load scans the sprite directory and replaces the current mapping.
func (l *SpriteLibrary) Load() error {
	entries, err := os.ReadDir(l.dir)
	if err != nil {
		return oops.In("display").With("dir", l.dir).Wrapf(err, "failed to read sprite directory")
	}

	sprites := make(map[string]string)
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		name := entry.Name()
		ext := strings.ToLower(filepath.Ext(name))
		if ext != ".png" && ext != ".gif" {
			continue
		}
		pose := strings.TrimSuffix(name, filepath.Ext(name))
		sprites[pose] = filepath.Join(l.dir, name)
	}

	l.mu.Lock()
	l.sprites = sprites
	l.mu.Unlock()

	l.logger.Info("Sprites loaded",
		zap.String("dir", l.dir),
		zap.Int("count", len(sprites)))
	return nil
}

// Resolve returns the sprite file for a pose name.
func (l *SpriteLibrary) Resolve(pose string) (string, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	path, ok := l.sprites[pose]
	return path, ok
}

// Has reports whether a sprite exists for the pose name.
func (l *SpriteLibrary) Has(pose string) bool {
	_, ok := l.Resolve(pose)
	return ok
}

// Poses returns the known pose names.
func (l *SpriteLibrary) Poses() []string {
	l.mu.RLock()
	defer l.mu.RUnlock()
	poses := make([]string, 0, len(l.sprites))
	for pose := range l.sprites {
		poses = append(poses, pose)
	}
	return poses
}

// Watch rescans the library whenever the sprite directory changes. It
// blocks until the context is cancelled.
func (l *SpriteLibrary) Watch(ctx context.Context) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return oops.In("display").Wrapf(err, "failed to create sprite watcher")
	}
	defer watcher.Close()

	if err := watcher.Add(l.dir); err != nil {
		return oops.In("display").With("dir", l.dir).Wrapf(err, "failed to watch sprite directory")
	}

	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if event.Op&(fsnotify.Create|fsnotify.Write|fsnotify.Remove|fsnotify.Rename) == 0 {
				continue
			}
			l.logger.Debug("Sprite directory changed", zap.String("event", event.String()))
			if err := l.Load(); err != nil {
				l.logger.Warn("Sprite rescan failed", zap.Error(err))
			}
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			l.logger.Warn("Sprite watcher error", zap.Error(err))
		}
	}
}
