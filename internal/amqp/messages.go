package amqp

import (
	"encoding/json"
	"time"
)

const (
	EntityActivity = "activity"
	EntityType     = "activity_type"

	OpCreated = "created"
	OpUpdated = "updated"
	OpDeleted = "deleted"
)

// ChangeEvent is a lightweight message describing a store mutation.
// It carries only the entity kind, operation and id; consumers fetch the
// current row from the store when they need the full record.
type ChangeEvent struct {
	Entity    string    `json:"entity"`
	Op        string    `json:"op"`
	ID        string    `json:"id"`
	Timestamp time.Time `json:"timestamp"`
}

// NewChangeEvent creates a change event stamped with the current time.
func NewChangeEvent(entity, op, id string) *ChangeEvent {
	return &ChangeEvent{
		Entity:    entity,
		Op:        op,
		ID:        id,
		Timestamp: time.Now(),
	}
}

// ToJSON converts the event to JSON bytes.
func (e *ChangeEvent) ToJSON() ([]byte, error) {
	return json.Marshal(e)
}

// ChangeEventFromJSON creates an event from JSON bytes.
func ChangeEventFromJSON(data []byte) (*ChangeEvent, error) {
	var ev ChangeEvent
	if err := json.Unmarshal(data, &ev); err != nil {
		return nil, err
	}
	return &ev, nil
}
