package acs

import (
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/fitlab/doorman/pkg/model"
	"github.com/fitlab/doorman/pkg/storage"
)

// Sweeper periodically flips devices to offline once their heartbeats go
// stale. A sweep with nothing stale changes nothing.
type Sweeper struct {
	store        storage.Interface
	events       *EventPublisher
	offlineAfter time.Duration
	interval     time.Duration
}

// NewSweeper creates a new offline sweeper
func NewSweeper(store storage.Interface, events *EventPublisher, offlineAfter, interval time.Duration) *Sweeper {
	return &Sweeper{
		store:        store,
		events:       events,
		offlineAfter: offlineAfter,
		interval:     interval,
	}
}

// Run sweeps on the configured interval until the stop channel closes.
func (s *Sweeper) Run(stopCh <-chan struct{}) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-stopCh:
			return
		case <-ticker.C:
			if err := s.Sweep(); err != nil {
				log.Error("acs: offline sweep failed: ", err)
			}
		}
	}
}

// Sweep marks every device offline whose last heartbeat is older than the
// offline threshold. Devices without any heartbeat yet are skipped.
func (s *Sweeper) Sweep() error {
	devices, err := s.store.Devices().FetchAll()
	if err != nil {
		return err
	}

	cutoff := time.Now().Add(-s.offlineAfter)
	for id := range devices {
		device := devices[id]
		if device.LastHeartbeat == nil || !device.LastHeartbeat.Before(cutoff) {
			continue
		}
		if device.Status == model.DeviceStatusOffline {
			continue
		}

		device.Status = model.DeviceStatusOffline
		if err := s.store.Devices().Update(&device); err != nil {
			return err
		}

		log.Infof("acs: device %s went offline, last heartbeat at %s",
			device.DeviceID, device.LastHeartbeat.Format(time.RFC3339))

		if err := s.events.PublishDeviceStatus(&device); err != nil {
			log.Errorf("acs: failed to publish device status: %v", err)
		}
	}

	return nil
}
