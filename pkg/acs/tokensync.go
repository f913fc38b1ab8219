package acs

import (
	"github.com/fitlab/doorman/pkg/model"
	"github.com/fitlab/doorman/pkg/storage"
)

// TokenSync turns committed token changes into add/remove commands so a
// device's local token table stays consistent with the backend. Adds carry
// the full field set and are idempotent, the terminal keys tokens by uid.
type TokenSync struct {
	store   storage.Interface
	builder *Builder
}

// NewTokenSync creates a new token synchronizer
func NewTokenSync(store storage.Interface, builder *Builder) *TokenSync {
	return &TokenSync{
		store:   store,
		builder: builder,
	}
}

// TokenChanged emits the commands for a created or updated token. prev is
// nil on create. An update touching none of the replicated fields emits
// nothing. When the token moved between devices, the previous device gets a
// remove before the new device gets the add.
func (s *TokenSync) TokenChanged(token, prev *model.Token) error {
	if prev != nil && !trackedFieldsChanged(prev, token) {
		return nil
	}

	if prev != nil && prev.DeviceID != token.DeviceID {
		oldDevice, err := s.store.Devices().FindByID(prev.DeviceID)
		if err != nil && err != storage.ErrNotFound {
			return err
		}
		if err == nil {
			if _, err := s.builder.Enqueue(oldDevice, SuffixTokenRemove, removePayload(token)); err != nil {
				return err
			}
		}
	}

	device, err := s.store.Devices().FindByID(token.DeviceID)
	if err != nil {
		return err
	}

	_, err = s.builder.Enqueue(device, SuffixTokenAdd, token.AddPayload())
	return err
}

// TokenRemoved emits the remove command for a destroyed token.
func (s *TokenSync) TokenRemoved(token *model.Token) error {
	device, err := s.store.Devices().FindByID(token.DeviceID)
	if err != nil {
		return err
	}

	_, err = s.builder.Enqueue(device, SuffixTokenRemove, removePayload(token))
	return err
}

func removePayload(token *model.Token) map[string]interface{} {
	return map[string]interface{}{"uid": token.UID}
}

func trackedFieldsChanged(prev, cur *model.Token) bool {
	return prev.UID != cur.UID ||
		prev.ValidFrom != cur.ValidFrom ||
		prev.ValidTo != cur.ValidTo ||
		prev.DayStartS != cur.DayStartS ||
		prev.DayEndS != cur.DayEndS ||
		prev.RemainingUses != cur.RemainingUses ||
		prev.Version != cur.Version ||
		prev.DeviceID != cur.DeviceID
}
