package memory

import (
	"testing"
	"time"

	"github.com/fitlab/doorman/pkg/model"
	"github.com/fitlab/doorman/pkg/storage"
)

func TestDeviceStoreUniqueDeviceID(t *testing.T) {
	t.Parallel()

	store := NewStore()
	if err := store.Devices().Create(&model.Device{DeviceID: "ACS-0001"}); err != nil {
		t.Fatalf("create failed: %v", err)
	}

	err := store.Devices().Create(&model.Device{DeviceID: "ACS-0001"})
	if err != storage.ErrNotUnique {
		t.Errorf("expected ErrNotUnique, got %v", err)
	}
}

func TestDeviceStoreBeginResync(t *testing.T) {
	t.Parallel()

	store := NewStore()
	device := &model.Device{DeviceID: "ACS-0001"}
	if err := store.Devices().Create(device); err != nil {
		t.Fatalf("create failed: %v", err)
	}

	requestedAt := time.Now().Round(time.Second).UTC()
	won, err := store.Devices().BeginResync(device.ID, requestedAt)
	if err != nil {
		t.Fatalf("begin resync failed: %v", err)
	}
	if !won {
		t.Fatal("expected to win the flag flip")
	}

	// Second trigger loses while the first is still running
	won, err = store.Devices().BeginResync(device.ID, requestedAt)
	if err != nil {
		t.Fatalf("begin resync failed: %v", err)
	}
	if won {
		t.Error("expected concurrent trigger to lose")
	}

	got, err := store.Devices().FindByID(device.ID)
	if err != nil {
		t.Fatalf("find failed: %v", err)
	}
	if !got.ResyncInProgress {
		t.Error("expected resync_in_progress to be set")
	}
	if got.ResyncStartedAt == nil {
		t.Error("expected resync_started_at to be set")
	}
	if got.ResyncRequestedAt == nil || !got.ResyncRequestedAt.Equal(requestedAt) {
		t.Errorf("unexpected resync_requested_at: %v", got.ResyncRequestedAt)
	}

	// After the flag is cleared the next trigger wins again
	got.ResyncInProgress = false
	if err := store.Devices().Update(got); err != nil {
		t.Fatalf("update failed: %v", err)
	}
	won, err = store.Devices().BeginResync(device.ID, requestedAt)
	if err != nil {
		t.Fatalf("begin resync failed: %v", err)
	}
	if !won {
		t.Error("expected trigger to win after clearing the flag")
	}
}

func TestDeviceStoreBeginResyncUnknownDevice(t *testing.T) {
	t.Parallel()

	store := NewStore()
	_, err := store.Devices().BeginResync(4711, time.Now().UTC())
	if err != storage.ErrNotFound {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestCommandStoreUniqueMsgIDPerDevice(t *testing.T) {
	t.Parallel()

	store := NewStore()
	first := &model.Device{DeviceID: "ACS-0001"}
	second := &model.Device{DeviceID: "ACS-0002"}
	if err := store.Devices().Create(first); err != nil {
		t.Fatalf("create failed: %v", err)
	}
	if err := store.Devices().Create(second); err != nil {
		t.Fatalf("create failed: %v", err)
	}

	if err := store.Commands().Create(&model.Command{DeviceID: first.ID, MsgID: "m-1"}); err != nil {
		t.Fatalf("create failed: %v", err)
	}

	err := store.Commands().Create(&model.Command{DeviceID: first.ID, MsgID: "m-1"})
	if err != storage.ErrNotUnique {
		t.Errorf("expected ErrNotUnique, got %v", err)
	}

	// The same msg id on another device is fine
	if err := store.Commands().Create(&model.Command{DeviceID: second.ID, MsgID: "m-1"}); err != nil {
		t.Errorf("expected nil, got %v", err)
	}
}

func TestCommandStoreFindByDeviceAndMsgID(t *testing.T) {
	t.Parallel()

	store := NewStore()
	device := &model.Device{DeviceID: "ACS-0001"}
	if err := store.Devices().Create(device); err != nil {
		t.Fatalf("create failed: %v", err)
	}

	cmd := &model.Command{DeviceID: device.ID, MsgID: "m-1"}
	if err := store.Commands().Create(cmd); err != nil {
		t.Fatalf("create failed: %v", err)
	}

	got, err := store.Commands().FindByDeviceAndMsgID(device.ID, "m-1")
	if err != nil {
		t.Fatalf("find failed: %v", err)
	}
	if got.ID != cmd.ID {
		t.Errorf("unexpected command id: %d", got.ID)
	}

	if _, err := store.Commands().FindByDeviceAndMsgID(device.ID, "m-2"); err != storage.ErrNotFound {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
	if _, err := store.Commands().FindByDeviceAndMsgID(device.ID+1, "m-1"); err != storage.ErrNotFound {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestTokenStoreUniqueUIDPerDevice(t *testing.T) {
	t.Parallel()

	store := NewStore()
	device := &model.Device{DeviceID: "ACS-0001"}
	if err := store.Devices().Create(device); err != nil {
		t.Fatalf("create failed: %v", err)
	}

	if err := store.Tokens().Create(&model.Token{DeviceID: device.ID, UID: "00AA11BB"}); err != nil {
		t.Fatalf("create failed: %v", err)
	}

	err := store.Tokens().Create(&model.Token{DeviceID: device.ID, UID: "00AA11BB"})
	if err != storage.ErrNotUnique {
		t.Errorf("expected ErrNotUnique, got %v", err)
	}
}

func TestTokenStoreFetchByDeviceIDOrdered(t *testing.T) {
	t.Parallel()

	store := NewStore()
	device := &model.Device{DeviceID: "ACS-0001"}
	if err := store.Devices().Create(device); err != nil {
		t.Fatalf("create failed: %v", err)
	}

	uids := []string{"00000001", "00000002", "00000003"}
	for _, uid := range uids {
		if err := store.Tokens().Create(&model.Token{DeviceID: device.ID, UID: uid}); err != nil {
			t.Fatalf("create failed: %v", err)
		}
	}

	tokens, err := store.Tokens().FetchByDeviceID(device.ID)
	if err != nil {
		t.Fatalf("fetch failed: %v", err)
	}
	if len(tokens) != len(uids) {
		t.Fatalf("expected %d tokens, got %d", len(uids), len(tokens))
	}
	for i, token := range tokens {
		if token.UID != uids[i] {
			t.Errorf("token %d out of order: %s", i, token.UID)
		}
	}
}

func TestTokenStoreDelete(t *testing.T) {
	t.Parallel()

	store := NewStore()
	device := &model.Device{DeviceID: "ACS-0001"}
	if err := store.Devices().Create(device); err != nil {
		t.Fatalf("create failed: %v", err)
	}

	token := &model.Token{DeviceID: device.ID, UID: "00AA11BB"}
	if err := store.Tokens().Create(token); err != nil {
		t.Fatalf("create failed: %v", err)
	}

	if err := store.Tokens().Delete(token.ID); err != nil {
		t.Fatalf("delete failed: %v", err)
	}
	if _, err := store.Tokens().FindByID(token.ID); err != storage.ErrNotFound {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
	if err := store.Tokens().Delete(token.ID); err != storage.ErrNotFound {
		t.Errorf("expected ErrNotFound on double delete, got %v", err)
	}
}

func TestEventStoreAppend(t *testing.T) {
	t.Parallel()

	store := NewStore()
	device := &model.Device{DeviceID: "ACS-0001"}
	if err := store.Devices().Create(device); err != nil {
		t.Fatalf("create failed: %v", err)
	}

	if err := store.Events().Create(&model.Event{DeviceID: device.ID, Event: "heartbeat", Topic: "acs/ACS-0001/tele/heartbeat"}); err != nil {
		t.Fatalf("create failed: %v", err)
	}
	if err := store.Events().Create(&model.Event{DeviceID: device.ID, Event: "access_granted", Topic: "acs/ACS-0001/tele/log"}); err != nil {
		t.Fatalf("create failed: %v", err)
	}

	events, err := store.Events().FetchByDeviceID(device.ID)
	if err != nil {
		t.Fatalf("fetch failed: %v", err)
	}
	if len(events) != 2 {
		t.Fatalf("expected 2 events, got %d", len(events))
	}
	if events[0].Event != "heartbeat" || events[1].Event != "access_granted" {
		t.Errorf("events out of order: %s, %s", events[0].Event, events[1].Event)
	}
	if events[0].ReceivedAt.IsZero() {
		t.Error("expected received_at default")
	}
}
