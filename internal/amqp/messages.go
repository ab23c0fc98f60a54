package amqp

import (
	"encoding/json"
	"time"
)

// Action names the ledger mutation an event reports.
type Action string

const (
	ActionCreated Action = "created"
	ActionUpdated Action = "updated"
	ActionDeleted Action = "deleted"
)

// EntryEvent is a lightweight notification about a committed ledger change.
// Consumers fetch the entry itself from the ledger if they need more.
type EntryEvent struct {
	Action    Action    `json:"action"`
	EntryID   string    `json:"entry_id"`
	Type      string    `json:"type,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// NewEntryEvent creates an event stamped at now.
func NewEntryEvent(action Action, entryID, entryType string, now time.Time) EntryEvent {
	return EntryEvent{
		Action:    action,
		EntryID:   entryID,
		Type:      entryType,
		Timestamp: now.UTC(),
	}
}

// ToJSON converts the event to JSON bytes
func (e EntryEvent) ToJSON() ([]byte, error) {
	return json.Marshal(e)
}

// EntryEventFromJSON decodes an event from JSON bytes
func EntryEventFromJSON(data []byte) (EntryEvent, error) {
	var ev EntryEvent
	if err := json.Unmarshal(data, &ev); err != nil {
		return EntryEvent{}, err
	}
	return ev, nil
}
