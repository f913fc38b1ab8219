package acs

import (
	"encoding/json"
	"sync"
	"testing"
	"time"

	"github.com/fitlab/doorman/pkg/broker"
	"github.com/fitlab/doorman/pkg/model"
	"github.com/fitlab/doorman/pkg/storage"
	"github.com/fitlab/doorman/pkg/storage/memory"
)

type publishedMessage struct {
	Topic   string
	Payload []byte
}

// fakeBroker records published messages instead of talking to MQTT.
type fakeBroker struct {
	mu         sync.Mutex
	published  []publishedMessage
	publishErr error
}

func (b *fakeBroker) Publish(topic string, payload []byte) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.publishErr != nil {
		return b.publishErr
	}

	b.published = append(b.published, publishedMessage{Topic: topic, Payload: payload})
	return nil
}

func (b *fakeBroker) Subscribe(filters []string, handler broker.MessageHandler) error {
	return nil
}

func (b *fakeBroker) Close() {}

func (b *fakeBroker) messages() []publishedMessage {
	b.mu.Lock()
	defer b.mu.Unlock()

	out := make([]publishedMessage, len(b.published))
	copy(out, b.published)
	return out
}

func (b *fakeBroker) waitForMessages(t *testing.T, n int) []publishedMessage {
	t.Helper()

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if msgs := b.messages(); len(msgs) >= n {
			return msgs
		}
		time.Sleep(5 * time.Millisecond)
	}

	t.Fatalf("expected %d published messages, got %d", n, len(b.messages()))
	return nil
}

func createTestDevice(t *testing.T, store storage.Interface, deviceID string) *model.Device {
	t.Helper()

	m := &model.Device{DeviceID: deviceID}
	if err := store.Devices().Create(m); err != nil {
		t.Fatalf("failed to create device: %v", err)
	}
	return m
}

func decodePayload(t *testing.T, raw []byte) map[string]interface{} {
	t.Helper()

	payload := make(map[string]interface{})
	if err := json.Unmarshal(raw, &payload); err != nil {
		t.Fatalf("failed to decode payload: %v", err)
	}
	return payload
}

// autoAcker resolves every sent command of the store in the background until
// the stop function is called. outcome ok=false fails the commands instead.
func autoAcker(store storage.Interface, ok bool, reason string) (stop func()) {
	stopCh := make(chan struct{})
	doneCh := make(chan struct{})

	go func() {
		defer close(doneCh)
		for {
			select {
			case <-stopCh:
				return
			case <-time.After(5 * time.Millisecond):
			}

			commands, err := store.Commands().FetchAll()
			if err != nil {
				continue
			}
			for id := range commands {
				cmd := commands[id]
				if cmd.Status != model.CommandStatusSent {
					continue
				}

				now := time.Now().Round(time.Second).UTC()
				cmd.Status = model.CommandStatusAcked
				if !ok {
					cmd.Status = model.CommandStatusFailed
				}
				cmd.AckAt = &now
				cmd.AckOK = &ok
				cmd.AckReason = reason
				store.Commands().Update(&cmd)
			}
		}
	}()

	return func() {
		close(stopCh)
		<-doneCh
	}
}

func newTestStore() storage.Interface {
	return memory.NewStore()
}
