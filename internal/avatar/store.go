package avatar

import (
	"bytes"
	"encoding/json"
	"sync"
	"time"

	"github.com/ThreeDotsLabs/watermill/message"
	"go.uber.org/zap"

	"github.com/mimi-overlay/mimi/pkg/logger"
)

// Store owns the single canonical avatar state document. All mutation goes
// through Update, which applies a shallow merge: each top-level key present
// in the partial replaces the stored value wholesale, an explicit null
// clears the key, absent keys are untouched. Nested objects are never merged
// recursively, so a partial animation or position must carry every field it
// wants kept. Concurrent writers race at field granularity and the last one
// wins.
//
// The document is kept as raw JSON rather than a struct so that unknown
// keys sent by producers survive the round trip unchanged.
type Store struct {
	mu        sync.RWMutex
	doc       []byte
	logger    *logger.Logger
	publisher message.Publisher
	now       func() time.Time
}

// StoreOption configures a Store
type StoreOption func(*Store)

// WithClock overrides the store's wall clock, for tests
func WithClock(now func() time.Time) StoreOption {
	return func(s *Store) {
		s.now = now
	}
}

// WithPublisher attaches a publisher for state change events
func WithPublisher(publisher message.Publisher) StoreOption {
	return func(s *Store) {
		s.publisher = publisher
	}
}

// NewStore creates a store holding the default startup state
func NewStore(log *logger.Logger, opts ...StoreOption) *Store {
	doc, _ := json.Marshal(DefaultState())

	s := &Store{
		doc:    doc,
		logger: log.WithComponent("avatar-store"),
		now:    time.Now,
	}

	for _, opt := range opts {
		opt(s)
	}

	return s
}

// Read returns a copy of the full current state document. It never fails:
// the store is born holding the default state.
func (s *Store) Read() []byte {
	s.mu.RLock()
	defer s.mu.RUnlock()

	doc := make([]byte, len(s.doc))
	copy(doc, s.doc)
	return doc
}

// Snapshot decodes the current document into a typed state. Unknown keys
// are dropped from the typed view but remain in the document.
func (s *Store) Snapshot() (AvatarState, error) {
	var state AvatarState
	if err := json.Unmarshal(s.Read(), &state); err != nil {
		return AvatarState{}, WrapDomainError(err, ErrCodeInvalidPayload, "failed to decode state document")
	}
	return state, nil
}

// Update merges the supplied partial document into the canonical state.
// The partial must be a JSON object; its top-level keys fully replace the
// corresponding fields, and unknown keys are stored as-is.
func (s *Store) Update(partial []byte) error {
	var keys map[string]json.RawMessage
	if err := json.Unmarshal(partial, &keys); err != nil {
		return WrapDomainError(err, ErrCodeInvalidPayload, "update payload must be a JSON object")
	}
	if len(keys) == 0 {
		return nil
	}

	s.mu.Lock()
	var doc map[string]json.RawMessage
	if err := json.Unmarshal(s.doc, &doc); err != nil {
		s.mu.Unlock()
		return WrapDomainError(err, ErrCodeInvalidPayload, "failed to decode state document")
	}
	for key, value := range keys {
		if isJSONNull(value) {
			delete(doc, key)
			continue
		}
		doc[key] = value
	}
	merged, err := json.Marshal(doc)
	if err != nil {
		s.mu.Unlock()
		return WrapDomainError(err, ErrCodeInvalidPayload, "failed to encode merged state")
	}
	s.doc = merged
	state := make([]byte, len(merged))
	copy(state, merged)
	now := s.now()
	s.mu.Unlock()

	s.logChanges(keys)
	s.publishChange(partial, state, now)

	return nil
}

// PlayAnimation stores a fresh animation descriptor. The start time is
// stamped here so producers cannot desynchronize playback with stale
// stamps, and the avatar is forced visible since an animation request
// implies it should be seen.
func (s *Store) PlayAnimation(desc AnimationDescriptor) error {
	if len(desc.Sequence) == 0 {
		return NewDomainError(ErrCodeEmptySequence, "animation must have at least one frame")
	}
	if desc.ID == "" {
		return NewDomainError(ErrCodeInvalidInput, "animation id is required")
	}

	start := EpochSeconds(s.now())
	desc.StartTime = &start

	return s.updateFields(map[string]interface{}{
		"animation": desc,
		"visible":   true,
	})
}

// StopAnimation clears any running animation and returns the avatar to the
// idle rest pose rather than freezing on the last frame.
func (s *Store) StopAnimation() error {
	return s.updateFields(map[string]interface{}{
		"animation": nil,
		"pose":      PoseIdle,
	})
}

// ShowGif stores a fresh gif descriptor stamped at the current time. The
// gif becomes the sole visual: any animation is cleared and the static pose
// dropped so nothing stale shows through.
func (s *Store) ShowGif(url string, duration float64) error {
	if url == "" {
		return NewDomainError(ErrCodeMissingURL, "gif url is required")
	}
	if duration <= 0 {
		duration = DefaultGifDuration
	}

	desc := GifDescriptor{
		URL:       url,
		Duration:  duration,
		StartTime: EpochSeconds(s.now()),
	}

	return s.updateFields(map[string]interface{}{
		"gif":       desc,
		"animation": nil,
		"pose":      nil,
		"visible":   true,
	})
}

// HideGif clears the gif and restores the idle pose. Re-sending a hide when
// no gif is active is a no-op, not an error.
func (s *Store) HideGif() error {
	return s.updateFields(map[string]interface{}{
		"gif":  nil,
		"pose": PoseIdle,
	})
}

func isJSONNull(value json.RawMessage) bool {
	return bytes.Equal(bytes.TrimSpace(value), []byte("null"))
}

// updateFields marshals a sparse field map and merges it. Nil values
// marshal to JSON null, which the merge treats as "clear this key".
func (s *Store) updateFields(fields map[string]interface{}) error {
	partial, err := json.Marshal(fields)
	if err != nil {
		return WrapDomainError(err, ErrCodeInvalidPayload, "failed to encode update")
	}
	return s.Update(partial)
}

// logChanges mirrors the original server's change log lines for the
// well-known fields.
func (s *Store) logChanges(keys map[string]json.RawMessage) {
	for _, key := range []string{"pose", "visible", "position", "animation", "gif"} {
		if value, ok := keys[key]; ok {
			s.logger.Debug("Avatar state changed",
				zap.String("field", key),
				zap.String("value", string(value)))
		}
	}
}

// publishChange emits a state change event. Publishing is best effort; a
// failed publish must not fail the update that caused it.
func (s *Store) publishChange(changes, state []byte, now time.Time) {
	if s.publisher == nil {
		return
	}

	msg, err := NewStateChangedMessage(changes, state, now)
	if err != nil {
		s.logger.Error("Failed to encode state change event", zap.Error(err))
		return
	}

	if err := s.publisher.Publish(StateChangedTopic, msg); err != nil {
		s.logger.Error("Failed to publish state change event", zap.Error(err))
	}
}
