package memory

import "github.com/fitlab/doorman/pkg/storage"

// store contains all memory-based sub-stores for managing the persistent models
type store struct {
	devices  *deviceStore
	commands *commandStore
	tokens   *tokenStore
	events   *eventStore
}

// NewStore creates a new memory-based Storage interface
func NewStore() storage.Interface {
	return &store{
		devices:  newDeviceStore(),
		commands: newCommandStore(),
		tokens:   newTokenStore(),
		events:   newEventStore(),
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
