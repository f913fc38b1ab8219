package acs

import (
	"fmt"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/fitlab/doorman/pkg/model"
	"github.com/fitlab/doorman/pkg/storage"
)

// Resyncer replays a device's full token table after prolonged disconnection
// or a factory reset. Each step is confirmed by the terminal before the next
// one is sent, so no two token operations are in flight at once.
type Resyncer struct {
	store      storage.Interface
	builder    *Builder
	dispatcher *Dispatcher
	tracker    *Tracker
	events     *EventPublisher
}

// NewResyncer creates a new resync orchestrator
func NewResyncer(store storage.Interface, builder *Builder, dispatcher *Dispatcher, tracker *Tracker, events *EventPublisher) *Resyncer {
	return &Resyncer{
		store:      store,
		builder:    builder,
		dispatcher: dispatcher,
		tracker:    tracker,
		events:     events,
	}
}

// Resync drives the begin -> token adds -> end sequence for the device. A
// device with a resync already in progress is left alone; the flag flip is
// a compare-and-set in the store, so concurrent triggers cannot both start.
// On failure the remaining steps are aborted, the error is recorded on the
// device with the requester tag, and returned to the caller's retry layer.
func (r *Resyncer) Resync(deviceID int32, requestedBy string) error {
	device, err := r.store.Devices().FindByID(deviceID)
	if err == storage.ErrNotFound {
		return nil
	}
	if err != nil {
		return err
	}

	won, err := r.store.Devices().BeginResync(device.ID, time.Now().Round(time.Second).UTC())
	if err != nil {
		return err
	}
	if !won {
		log.Infof("acs: resync of device %s already in progress, ignoring trigger by %s", device.DeviceID, requestedBy)
		return nil
	}

	log.WithFields(log.Fields{
		"device":       device.DeviceID,
		"requested_by": requestedBy,
	}).Info("Starting resync")

	if err := r.run(device); err != nil {
		r.finishResync(device.ID, fmt.Sprintf("[%s] %v", requestedBy, err))
		return err
	}

	r.finishResync(device.ID, "")
	log.Infof("acs: resync of device %s completed", device.DeviceID)
	return nil
}

func (r *Resyncer) run(device *model.Device) error {
	if err := r.step(device, SuffixResyncBegin, map[string]interface{}{}); err != nil {
		return err
	}

	tokens, err := r.store.Tokens().FetchByDeviceID(device.ID)
	if err != nil {
		return err
	}

	for i := range tokens {
		if err := r.step(device, SuffixTokenAdd, tokens[i].AddPayload()); err != nil {
			return err
		}
	}

	return r.step(device, SuffixResyncEnd, map[string]interface{}{})
}

// step enqueues one command, dispatches it and blocks until the terminal
// confirmed or rejected it. The builder schedules its own async dispatch as
// well; whichever dispatch runs second finds the command no longer queued.
func (r *Resyncer) step(device *model.Device, suffix string, payload map[string]interface{}) error {
	cmd, err := r.builder.Enqueue(device, suffix, payload)
	if err != nil {
		return err
	}

	if err := r.dispatcher.Dispatch(cmd.ID); err != nil {
		return err
	}

	return r.tracker.WaitForAck(cmd.ID)
}

// finishResync clears the in-progress flag and records the outcome. An
// empty resyncErr means success.
func (r *Resyncer) finishResync(deviceID int32, resyncErr string) {
	device, err := r.store.Devices().FindByID(deviceID)
	if err != nil {
		log.Errorf("acs: failed to reload device %d after resync: %v", deviceID, err)
		return
	}

	now := time.Now().Round(time.Second).UTC()
	device.ResyncInProgress = false
	if resyncErr == "" {
		device.ResyncCompletedAt = &now
	} else {
		device.ResyncFailedAt = &now
		device.ResyncError = resyncErr
	}

	if err := r.store.Devices().Update(device); err != nil {
		log.Errorf("acs: failed to record resync outcome of device %s: %v", device.DeviceID, err)
		return
	}

	if err := r.events.PublishDeviceStatus(device); err != nil {
		log.Errorf("acs: failed to publish device status: %v", err)
	}
}
