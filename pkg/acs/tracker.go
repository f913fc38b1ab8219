package acs

import (
	"time"

	"github.com/fitlab/doorman/pkg/model"
	"github.com/fitlab/doorman/pkg/storage"
)

// Tracker blocks a caller until a command reaches a terminal status. It
// polls the persisted status, so it also observes transitions made by the
// timeout check or the ack resolver. The resync orchestrator uses it to
// serialize its steps and must be the only caller that can afford to block.
type Tracker struct {
	store        storage.Interface
	waitTimeout  time.Duration
	pollInterval time.Duration
}

// NewTracker creates a new command tracker
func NewTracker(store storage.Interface, waitTimeout, pollInterval time.Duration) *Tracker {
	return &Tracker{
		store:        store,
		waitTimeout:  waitTimeout,
		pollInterval: pollInterval,
	}
}

// WaitForAck returns nil once the command is acked, an AckFailedError once
// it is failed, or ErrAckTimeout when the wait deadline elapses first. A
// command still sent past the deadline is force-failed with ack_timeout so
// the terminal state is recorded either way.
func (t *Tracker) WaitForAck(commandID int32) error {
	deadline := time.Now().Add(t.waitTimeout)

	for {
		cmd, err := t.store.Commands().FindByID(commandID)
		if err != nil {
			return err
		}

		switch cmd.Status {
		case model.CommandStatusAcked:
			return nil
		case model.CommandStatusFailed:
			return &AckFailedError{MsgID: cmd.MsgID, Reason: cmd.AckReason}
		}

		if time.Now().After(deadline) {
			if cmd.Status == model.CommandStatusSent {
				t.forceTimeout(cmd)
			}
			return ErrAckTimeout
		}

		time.Sleep(t.pollInterval)
	}
}

func (t *Tracker) forceTimeout(cmd *model.Command) {
	now := time.Now().Round(time.Second).UTC()
	notOK := false

	cmd.Status = model.CommandStatusFailed
	cmd.AckAt = &now
	cmd.AckOK = &notOK
	cmd.AckReason = "ack_timeout"

	t.store.Commands().Update(cmd)
}
