package model

import "time"

// Command lifecycle states. Transitions only follow
// queued -> sent -> acked|failed, or queued -> failed on a publish error.
const (
	CommandStatusQueued = "queued"
	CommandStatusSent   = "sent"
	CommandStatusAcked  = "acked"
	CommandStatusFailed = "failed"
)

// Command is a model of the persistency layer. Commands are never deleted,
// they form the audit trail of everything sent to a terminal.
type Command struct {
	ID        int32
	DeviceID  int32
	Topic     string
	MsgID     string
	Payload   map[string]interface{}
	Status    string
	Retries   int
	SentAt    *time.Time
	AckAt     *time.Time
	AckOK     *bool
	AckReason string

	CreatedAt time.Time
	UpdatedAt time.Time
}
