package acs

import (
	"encoding/json"
	"fmt"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/fitlab/doorman/pkg/broker"
	"github.com/fitlab/doorman/pkg/model"
	"github.com/fitlab/doorman/pkg/storage"
)

// Dispatcher publishes queued commands over the broker transport and
// schedules the ack timeout check for every sent command.
type Dispatcher struct {
	store      storage.Interface
	broker     broker.Interface
	ackTimeout time.Duration
}

// NewDispatcher creates a new command dispatcher
func NewDispatcher(store storage.Interface, bk broker.Interface, ackTimeout time.Duration) *Dispatcher {
	return &Dispatcher{
		store:      store,
		broker:     bk,
		ackTimeout: ackTimeout,
	}
}

// Dispatch loads the command and publishes it. A command that is no longer
// queued is a no-op, which makes duplicate dispatch scheduling safe. On a
// publish error the retry counter is incremented, the command is marked
// failed and the error is returned to the caller.
func (d *Dispatcher) Dispatch(commandID int32) error {
	cmd, err := d.store.Commands().FindByID(commandID)
	if err == storage.ErrNotFound {
		return nil
	}
	if err != nil {
		return err
	}
	if cmd.Status != model.CommandStatusQueued {
		return nil
	}

	payload, err := json.Marshal(cmd.Payload)
	if err == nil {
		err = d.broker.Publish(cmd.Topic, payload)
	}
	if err != nil {
		cmd.Retries++
		d.failCommand(cmd, fmt.Sprintf("publish_error: %v", err))
		return err
	}

	now := time.Now().Round(time.Second).UTC()
	cmd.Status = model.CommandStatusSent
	cmd.SentAt = &now
	if err := d.store.Commands().Update(cmd); err != nil {
		return err
	}

	time.AfterFunc(d.ackTimeout, func() {
		d.checkTimeout(cmd.ID)
	})

	return nil
}

// checkTimeout runs once the ack timeout elapsed. A command that already
// received its ack, or left the sent state otherwise, is untouched.
func (d *Dispatcher) checkTimeout(commandID int32) {
	cmd, err := d.store.Commands().FindByID(commandID)
	if err != nil {
		if err != storage.ErrNotFound {
			log.Errorf("acs: failed to load command %d for timeout check: %v", commandID, err)
		}
		return
	}
	if cmd.Status != model.CommandStatusSent || cmd.AckAt != nil {
		return
	}

	d.failCommand(cmd, "ack_timeout")
}

func (d *Dispatcher) failCommand(cmd *model.Command, reason string) {
	now := time.Now().Round(time.Second).UTC()
	notOK := false

	cmd.Status = model.CommandStatusFailed
	cmd.AckAt = &now
	cmd.AckOK = &notOK
	cmd.AckReason = reason

	if err := d.store.Commands().Update(cmd); err != nil {
		log.Errorf("acs: failed to mark command %d failed: %v", cmd.ID, err)
	}
}
