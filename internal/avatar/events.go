package avatar

import (
	"encoding/json"
	"time"

	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/google/uuid"
)

// StateChangedTopic is the in-process topic state change events are
// published on.
const StateChangedTopic = "avatar.state-changed"

// StateChangedEvent is published after every successful merge into the
// canonical state. Changes carries the merge patch applied; State the full
// document after the merge.
type StateChangedEvent struct {
	Changes   json.RawMessage `json:"changes"`
	State     json.RawMessage `json:"state"`
	Timestamp time.Time       `json:"timestamp"`
	RequestID string          `json:"request_id"`
}

// NewStateChangedMessage builds a watermill message for the given merge
// result.
func NewStateChangedMessage(changes, state []byte, now time.Time) (*message.Message, error) {
	event := StateChangedEvent{
		Changes:   json.RawMessage(changes),
		State:     json.RawMessage(state),
		Timestamp: now,
		RequestID: uuid.New().String(),
	}

	payload, err := json.Marshal(event)
	if err != nil {
		return nil, err
	}

	return message.NewMessage(uuid.New().String(), payload), nil
}
