package acs

import (
	"testing"
	"time"

	"github.com/fitlab/doorman/pkg/model"
)

func TestSweepMarksStaleDevicesOffline(t *testing.T) {
	t.Parallel()

	store := newTestStore()
	sweeper := NewSweeper(store, NewEventPublisher(nil), 2*time.Minute, time.Minute)

	stale := createTestDevice(t, store, "ACS-0001")
	staleBeat := time.Now().Add(-10 * time.Minute).Round(time.Second).UTC()
	stale.Status = model.DeviceStatusOnline
	stale.LastHeartbeat = &staleBeat
	if err := store.Devices().Update(stale); err != nil {
		t.Fatalf("failed to update device: %v", err)
	}

	fresh := createTestDevice(t, store, "ACS-0002")
	freshBeat := time.Now().Round(time.Second).UTC()
	fresh.Status = model.DeviceStatusOnline
	fresh.LastHeartbeat = &freshBeat
	if err := store.Devices().Update(fresh); err != nil {
		t.Fatalf("failed to update device: %v", err)
	}

	silent := createTestDevice(t, store, "ACS-0003")

	if err := sweeper.Sweep(); err != nil {
		t.Fatalf("sweep failed: %v", err)
	}

	got, err := store.Devices().FindByID(stale.ID)
	if err != nil {
		t.Fatalf("failed to reload device: %v", err)
	}
	if got.Status != model.DeviceStatusOffline {
		t.Errorf("stale device not swept, status %s", got.Status)
	}

	got, err = store.Devices().FindByID(fresh.ID)
	if err != nil {
		t.Fatalf("failed to reload device: %v", err)
	}
	if got.Status != model.DeviceStatusOnline {
		t.Errorf("fresh device swept, status %s", got.Status)
	}

	// A device that never sent a heartbeat is not touched
	got, err = store.Devices().FindByID(silent.ID)
	if err != nil {
		t.Fatalf("failed to reload device: %v", err)
	}
	if got.Status != model.DeviceStatusUnknown {
		t.Errorf("silent device swept, status %s", got.Status)
	}
}

func TestSweepIsIdempotent(t *testing.T) {
	t.Parallel()

	store := newTestStore()
	sweeper := NewSweeper(store, NewEventPublisher(nil), 2*time.Minute, time.Minute)

	device := createTestDevice(t, store, "ACS-0001")
	staleBeat := time.Now().Add(-10 * time.Minute).Round(time.Second).UTC()
	device.Status = model.DeviceStatusOffline
	device.LastHeartbeat = &staleBeat
	if err := store.Devices().Update(device); err != nil {
		t.Fatalf("failed to update device: %v", err)
	}
	before, err := store.Devices().FindByID(device.ID)
	if err != nil {
		t.Fatalf("failed to load device: %v", err)
	}

	if err := sweeper.Sweep(); err != nil {
		t.Fatalf("sweep failed: %v", err)
	}

	after, err := store.Devices().FindByID(device.ID)
	if err != nil {
		t.Fatalf("failed to reload device: %v", err)
	}
	if after.Status != model.DeviceStatusOffline {
		t.Errorf("unexpected status: %s", after.Status)
	}
	if !after.UpdatedAt.Equal(before.UpdatedAt) {
		t.Error("already offline device was rewritten")
	}
}

func TestSweeperRunStops(t *testing.T) {
	t.Parallel()

	store := newTestStore()
	sweeper := NewSweeper(store, NewEventPublisher(nil), time.Minute, 5*time.Millisecond)

	stopCh := make(chan struct{})
	doneCh := make(chan struct{})
	go func() {
		sweeper.Run(stopCh)
		close(doneCh)
	}()

	time.Sleep(20 * time.Millisecond)
	close(stopCh)

	select {
	case <-doneCh:
	case <-time.After(time.Second):
		t.Fatal("sweeper did not stop")
	}
}
