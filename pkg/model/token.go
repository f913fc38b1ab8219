package model

import "time"

// TokenFields are the attributes whose change must be replicated to the
// owning terminal. An update touching none of them emits no commands.
var TokenFields = []string{
	"uid",
	"valid_from",
	"valid_to",
	"day_start_s",
	"day_end_s",
	"remaining_uses",
	"version",
	"device_id",
}

// Token is a model of the persistency layer. It mirrors one device-local
// access credential keyed by UID on the terminal side.
type Token struct {
	ID        int32
	DeviceID  int32
	ClientID  *int32
	BookingID *int32

	UID           string
	ValidFrom     int64
	ValidTo       int64
	DayStartS     int
	DayEndS       int
	RemainingUses int
	Version       int

	CreatedAt time.Time
	UpdatedAt time.Time
}

// AddPayload returns the full field set sent with a ctrl/token/add command.
// Replaying the same token yields the same payload, so adds are idempotent.
func (t *Token) AddPayload() map[string]interface{} {
	return map[string]interface{}{
		"uid":            t.UID,
		"valid_from":     t.ValidFrom,
		"valid_to":       t.ValidTo,
		"day_start_s":    t.DayStartS,
		"day_end_s":      t.DayEndS,
		"remaining_uses": t.RemainingUses,
		"version":        t.Version,
	}
}
