package model

import "time"

// Device presence status values
const (
	DeviceStatusUnknown = "unknown"
	DeviceStatusOnline  = "online"
	DeviceStatusOffline = "offline"
)

// Device is a model of the persistency layer. It represents one physical
// access terminal, identified by the externally assigned DeviceID.
type Device struct {
	ID            int32
	DeviceID      string
	Name          string
	LocationID    *int32
	Status        string
	LastSeenAt    *time.Time
	LastHeartbeat *time.Time
	LastTimeOK    *bool
	LastNetStatus string

	ResyncInProgress  bool
	ResyncRequestedAt *time.Time
	ResyncStartedAt   *time.Time
	ResyncCompletedAt *time.Time
	ResyncFailedAt    *time.Time
	ResyncError       string

	CreatedAt time.Time
	UpdatedAt time.Time
}
