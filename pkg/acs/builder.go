package acs

import (
	"strings"

	log "github.com/sirupsen/logrus"

	"github.com/fitlab/doorman/pkg/model"
	"github.com/fitlab/doorman/pkg/storage"
)

// Builder constructs and persists queued commands. Creating a command kicks
// off an asynchronous dispatch, mirroring the terminal-bound write path:
// enqueue -> dispatch -> sent -> acked|failed.
type Builder struct {
	store      storage.Interface
	dispatcher *Dispatcher
}

// NewBuilder creates a new command builder. The dispatcher may be nil, in
// which case commands stay queued until dispatched explicitly.
func NewBuilder(store storage.Interface, dispatcher *Dispatcher) *Builder {
	return &Builder{
		store:      store,
		dispatcher: dispatcher,
	}
}

// Enqueue persists a new queued command for the device. If the payload has
// no msg_id yet, one is generated with the suffix as prefix ("/" replaced by
// "-") and merged into the payload.
func (b *Builder) Enqueue(device *model.Device, suffix string, payload map[string]interface{}) (*model.Command, error) {
	merged := make(map[string]interface{}, len(payload)+1)
	for k, v := range payload {
		merged[k] = v
	}

	msgID, _ := merged["msg_id"].(string)
	if msgID == "" {
		msgID = NewMsgID(strings.ReplaceAll(suffix, "/", "-"))
		merged["msg_id"] = msgID
	}

	cmd := &model.Command{
		DeviceID: device.ID,
		Topic:    TopicFor(device.DeviceID, suffix),
		MsgID:    msgID,
		Payload:  merged,
		Status:   model.CommandStatusQueued,
	}
	if err := b.store.Commands().Create(cmd); err != nil {
		return nil, err
	}

	if b.dispatcher != nil {
		go func() {
			if err := b.dispatcher.Dispatch(cmd.ID); err != nil {
				log.Errorf("acs: failed to dispatch command %d: %v", cmd.ID, err)
			}
		}()
	}

	return cmd, nil
}
