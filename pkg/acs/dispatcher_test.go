package acs

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/fitlab/doorman/pkg/model"
)

const ackTimeoutForTest = 10 * time.Second

func TestDispatchPublishesAndMarksSent(t *testing.T) {
	t.Parallel()

	store := newTestStore()
	device := createTestDevice(t, store, "ACS-0001")
	bk := &fakeBroker{}
	dispatcher := NewDispatcher(store, bk, ackTimeoutForTest)
	builder := NewBuilder(store, nil)

	cmd, err := builder.Enqueue(device, SuffixTokenRemove, map[string]interface{}{"uid": "00AA11BB"})
	if err != nil {
		t.Fatalf("enqueue failed: %v", err)
	}

	if err := dispatcher.Dispatch(cmd.ID); err != nil {
		t.Fatalf("dispatch failed: %v", err)
	}

	msgs := bk.messages()
	if len(msgs) != 1 {
		t.Fatalf("expected 1 published message, got %d", len(msgs))
	}
	if msgs[0].Topic != "acs/ACS-0001/ctrl/token/remove" {
		t.Errorf("unexpected topic: %s", msgs[0].Topic)
	}

	got, err := store.Commands().FindByID(cmd.ID)
	if err != nil {
		t.Fatalf("failed to reload command: %v", err)
	}
	if got.Status != model.CommandStatusSent {
		t.Errorf("unexpected status: %s", got.Status)
	}
	if got.SentAt == nil {
		t.Error("expected sent_at to be set")
	}
}

func TestDispatchIsIdempotent(t *testing.T) {
	t.Parallel()

	store := newTestStore()
	device := createTestDevice(t, store, "ACS-0001")
	bk := &fakeBroker{}
	dispatcher := NewDispatcher(store, bk, ackTimeoutForTest)
	builder := NewBuilder(store, nil)

	cmd, err := builder.Enqueue(device, SuffixResyncBegin, map[string]interface{}{})
	if err != nil {
		t.Fatalf("enqueue failed: %v", err)
	}

	if err := dispatcher.Dispatch(cmd.ID); err != nil {
		t.Fatalf("dispatch failed: %v", err)
	}
	if err := dispatcher.Dispatch(cmd.ID); err != nil {
		t.Fatalf("second dispatch failed: %v", err)
	}

	if len(bk.messages()) != 1 {
		t.Errorf("expected a single publish, got %d", len(bk.messages()))
	}
}

func TestDispatchUnknownCommand(t *testing.T) {
	t.Parallel()

	store := newTestStore()
	dispatcher := NewDispatcher(store, &fakeBroker{}, ackTimeoutForTest)

	if err := dispatcher.Dispatch(4711); err != nil {
		t.Errorf("expected nil for unknown command, got %v", err)
	}
}

func TestDispatchPublishError(t *testing.T) {
	t.Parallel()

	store := newTestStore()
	device := createTestDevice(t, store, "ACS-0001")
	bk := &fakeBroker{publishErr: errors.New("connection lost")}
	dispatcher := NewDispatcher(store, bk, ackTimeoutForTest)
	builder := NewBuilder(store, nil)

	cmd, err := builder.Enqueue(device, SuffixResyncBegin, map[string]interface{}{})
	if err != nil {
		t.Fatalf("enqueue failed: %v", err)
	}

	if err := dispatcher.Dispatch(cmd.ID); err == nil {
		t.Fatal("expected dispatch error")
	}

	got, err := store.Commands().FindByID(cmd.ID)
	if err != nil {
		t.Fatalf("failed to reload command: %v", err)
	}
	if got.Status != model.CommandStatusFailed {
		t.Errorf("unexpected status: %s", got.Status)
	}
	if got.Retries != 1 {
		t.Errorf("unexpected retry count: %d", got.Retries)
	}
	if !strings.HasPrefix(got.AckReason, "publish_error") {
		t.Errorf("unexpected ack reason: %s", got.AckReason)
	}
	if got.AckOK == nil || *got.AckOK {
		t.Error("expected ack_ok to be false")
	}
}

func TestDispatchAckTimeout(t *testing.T) {
	t.Parallel()

	store := newTestStore()
	device := createTestDevice(t, store, "ACS-0001")
	bk := &fakeBroker{}
	dispatcher := NewDispatcher(store, bk, 20*time.Millisecond)
	builder := NewBuilder(store, nil)

	cmd, err := builder.Enqueue(device, SuffixResyncBegin, map[string]interface{}{})
	if err != nil {
		t.Fatalf("enqueue failed: %v", err)
	}

	if err := dispatcher.Dispatch(cmd.ID); err != nil {
		t.Fatalf("dispatch failed: %v", err)
	}

	deadline := time.Now().Add(2 * time.Second)
	for {
		got, err := store.Commands().FindByID(cmd.ID)
		if err != nil {
			t.Fatalf("failed to reload command: %v", err)
		}
		if got.Status == model.CommandStatusFailed {
			if got.AckReason != "ack_timeout" {
				t.Errorf("unexpected ack reason: %s", got.AckReason)
			}
			return
		}
		if time.Now().After(deadline) {
			t.Fatalf("command never timed out, status %s", got.Status)
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func TestTimeoutCheckSkipsAckedCommand(t *testing.T) {
	t.Parallel()

	store := newTestStore()
	device := createTestDevice(t, store, "ACS-0001")
	bk := &fakeBroker{}
	dispatcher := NewDispatcher(store, bk, 20*time.Millisecond)
	builder := NewBuilder(store, nil)

	cmd, err := builder.Enqueue(device, SuffixResyncBegin, map[string]interface{}{})
	if err != nil {
		t.Fatalf("enqueue failed: %v", err)
	}
	if err := dispatcher.Dispatch(cmd.ID); err != nil {
		t.Fatalf("dispatch failed: %v", err)
	}

	// Ack before the timeout fires
	got, err := store.Commands().FindByID(cmd.ID)
	if err != nil {
		t.Fatalf("failed to reload command: %v", err)
	}
	now := time.Now().Round(time.Second).UTC()
	ok := true
	got.Status = model.CommandStatusAcked
	got.AckAt = &now
	got.AckOK = &ok
	if err := store.Commands().Update(got); err != nil {
		t.Fatalf("failed to ack command: %v", err)
	}

	time.Sleep(100 * time.Millisecond)

	got, err = store.Commands().FindByID(cmd.ID)
	if err != nil {
		t.Fatalf("failed to reload command: %v", err)
	}
	if got.Status != model.CommandStatusAcked {
		t.Errorf("timeout check overwrote acked command, status %s", got.Status)
	}
}
