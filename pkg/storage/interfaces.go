package storage

import (
	"time"

	"github.com/fitlab/doorman/pkg/model"
)

// Interface is implemented by the storage
type Interface interface {
	Devices() DeviceStore
	Commands() CommandStore
	Tokens() TokenStore
	Events() EventStore
}

// DeviceStore is responsible for managing the Device model
type DeviceStore interface {
	FetchAll() (map[int32]model.Device, error)
	FindByID(id int32) (*model.Device, error)
	FindByDeviceID(deviceID string) (*model.Device, error)
	Create(m *model.Device) error
	Update(m *model.Device) error
	// BeginResync flips the resync_in_progress flag to true only if it is
	// currently false and reports whether this caller won the flip. The
	// compare-and-set closes the race between two concurrent resync triggers.
	BeginResync(id int32, requestedAt time.Time) (bool, error)
}

// CommandStore is responsible for managing the Command model. Commands are
// never deleted, the table is the audit trail of the command protocol.
type CommandStore interface {
	FetchAll() (map[int32]model.Command, error)
	FindByID(id int32) (*model.Command, error)
	FetchByDeviceID(deviceID int32) ([]model.Command, error)
	// FindByDeviceAndMsgID returns the most recently created command of the
	// device carrying the given message id. Newest-first is the deliberate
	// tie-break for devices echoing a stale id.
	FindByDeviceAndMsgID(deviceID int32, msgID string) (*model.Command, error)
	Create(m *model.Command) error
	Update(m *model.Command) error
}

// TokenStore is responsible for managing the Token model
type TokenStore interface {
	FetchAll() (map[int32]model.Token, error)
	FindByID(id int32) (*model.Token, error)
	// FetchByDeviceID returns the device's tokens in ascending id order so
	// a resync replays them deterministically.
	FetchByDeviceID(deviceID int32) ([]model.Token, error)
	Create(m *model.Token) error
	Update(m *model.Token) error
	Delete(id int32) error
}

// EventStore is responsible for managing the Event model. Events are
// append-only.
type EventStore interface {
	FetchAll() (map[int32]model.Event, error)
	FindByID(id int32) (*model.Event, error)
	FetchByDeviceID(deviceID int32) ([]model.Event, error)
	Create(m *model.Event) error
}
