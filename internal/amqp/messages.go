package amqp

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

// ActivityMessage announces a journal row waiting in the outbox. It carries
// only the id; the worker loads the full record from the database.
type ActivityMessage struct {
	ID        string    `json:"id"`
	Kind      string    `json:"kind"`
	Timestamp time.Time `json:"timestamp"`
}

func NewActivityMessage(id, kind string) *ActivityMessage {
	return &ActivityMessage{
		ID:        id,
		Kind:      kind,
		Timestamp: time.Now(),
	}
}

func (m *ActivityMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

// ActivityMessageFromJSON decodes a message body. A body without an id
// can never be matched to an outbox row and is rejected.
func ActivityMessageFromJSON(data []byte) (*ActivityMessage, error) {
	var msg ActivityMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, fmt.Errorf("decode activity message: %w", err)
	}
	if msg.ID == "" {
		return nil, errors.New("activity message without id")
	}
	return &msg, nil
}
