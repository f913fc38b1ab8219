package model

import "time"

// Event is a model of the persistency layer. Events are append-only, one per
// inbound message, and are never mutated or deleted.
type Event struct {
	ID         int32
	DeviceID   int32
	Event      string
	TS         *int64
	Reader     *int
	UID        string
	Reason     string
	Topic      string
	Payload    map[string]interface{}
	RawPayload string
	ReceivedAt time.Time

	CreatedAt time.Time
	UpdatedAt time.Time
}
