package avatar

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"go.uber.org/zap"

	"github.com/mimi-overlay/mimi/pkg/logger"
)

// Animation is a named, reusable frame sequence kept in the library. It is
// a recipe; playing one mints a fresh AnimationDescriptor with its own
// instance id and start time.
type Animation struct {
	ID      string   `json:"id"`
	Name    string   `json:"name"`
	Frames  []string `json:"frames"`
	FPS     float64  `json:"fps"`
	Loop    bool     `json:"loop"`
	Builtin bool     `json:"builtin,omitempty"`
}

// Library holds named animations, persisted one JSON object per line so
// appends never rewrite the file.
type Library struct {
	mu         sync.RWMutex
	path       string
	animations map[string]Animation
	logger     *logger.Logger
}

// NewLibrary creates an animation library backed by the given JSONL file
func NewLibrary(path string, log *logger.Logger) *Library {
	return &Library{
		path:       path,
		animations: make(map[string]Animation),
		logger:     log.WithComponent("animation-library"),
	}
}

// Load reads the library file. A missing file is not an error; malformed
// lines are skipped with a warning so one bad entry cannot take down the
// whole library.
func (l *Library) Load() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	file, err := os.Open(l.path)
	if err != nil {
		if os.IsNotExist(err) {
			l.logger.Info("No animation library file, starting empty",
				zap.String("path", l.path))
			return nil
		}
		return fmt.Errorf("failed to open animation library: %w", err)
	}
	defer file.Close()

	loaded := 0
	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		var anim Animation
		if err := json.Unmarshal([]byte(line), &anim); err != nil {
			l.logger.Warn("Skipping malformed animation line",
				zap.String("line", line),
				zap.Error(err))
			continue
		}
		if anim.ID == "" || len(anim.Frames) == 0 {
			l.logger.Warn("Skipping animation without id or frames",
				zap.String("line", line))
			continue
		}

		l.animations[anim.ID] = anim
		loaded++
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("failed to read animation library: %w", err)
	}

	l.logger.Info("Animation library loaded",
		zap.String("path", l.path),
		zap.Int("animations", loaded))

	return nil
}

// Get returns the animation with the given id
func (l *Library) Get(id string) (Animation, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	anim, ok := l.animations[id]
	return anim, ok
}

// List returns all animations sorted by id
func (l *Library) List() []Animation {
	l.mu.RLock()
	defer l.mu.RUnlock()

	animations := make([]Animation, 0, len(l.animations))
	for _, anim := range l.animations {
		animations = append(animations, anim)
	}
	sort.Slice(animations, func(i, j int) bool {
		return animations[i].ID < animations[j].ID
	})
	return animations
}

// Save stores the animation in memory and appends it to the library file
func (l *Library) Save(anim Animation) error {
	if anim.ID == "" {
		return NewDomainError(ErrCodeInvalidInput, "animation id is required")
	}
	if len(anim.Frames) == 0 {
		return NewDomainError(ErrCodeEmptySequence, "animation must have at least one frame")
	}
	if anim.FPS <= 0 {
		anim.FPS = 2
	}

	line, err := json.Marshal(anim)
	if err != nil {
		return WrapDomainError(err, ErrCodeInvalidInput, "failed to encode animation")
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	if _, exists := l.animations[anim.ID]; exists {
		return NewDomainErrorf(ErrCodeAlreadyExists, "animation %q already exists", anim.ID)
	}

	if dir := filepath.Dir(l.path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("failed to create animation library directory: %w", err)
		}
	}

	file, err := os.OpenFile(l.path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("failed to open animation library for append: %w", err)
	}
	defer file.Close()

	if _, err := file.Write(append(line, '\n')); err != nil {
		return fmt.Errorf("failed to append animation: %w", err)
	}

	l.animations[anim.ID] = anim

	l.logger.Info("Animation saved",
		zap.String("id", anim.ID),
		zap.Int("frames", len(anim.Frames)))

	return nil
}

// Descriptor mints a playable instance of this animation. Each call gets a
// unique instance id so replaying the same library entry restarts from
// frame zero on the client.
func (a Animation) Descriptor(instanceID string) AnimationDescriptor {
	frames := make([]string, len(a.Frames))
	copy(frames, a.Frames)

	return AnimationDescriptor{
		ID:       instanceID,
		Name:     a.Name,
		Sequence: frames,
		FPS:      a.FPS,
		Loop:     a.Loop,
	}
}
