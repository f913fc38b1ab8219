package postgres

import (
	"github.com/jmoiron/sqlx"
	// PostgreSQL driver
	_ "github.com/lib/pq"

	"github.com/fitlab/doorman/pkg/storage"
)

// store contains all PostgreSQL based sub-stores for managing the models
type store struct {
	devices  *deviceStore
	commands *commandStore
	tokens   *tokenStore
	events   *eventStore
}

// NewStore creates a new PostgreSQL based Storage interface
func NewStore(db *sqlx.DB) storage.Interface {
	return &store{
		devices:  newDeviceStore(db),
		commands: newCommandStore(db),
		tokens:   newTokenStore(db),
		events:   newEventStore(db),
	}
}

// Devices returns a sub-store for managing the Device model
func (s *store) Devices() storage.DeviceStore {
	return s.devices
}

// Commands returns a sub-store for managing the Command model
func (s *store) Commands() storage.CommandStore {
	return s.commands
}

// Tokens returns a sub-store for managing the Token model
func (s *store) Tokens() storage.TokenStore {
	return s.tokens
}

// Events returns a sub-store for managing the Event model
func (s *store) Events() storage.EventStore {
	return s.events
}
