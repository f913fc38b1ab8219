package acs

import (
	"encoding/json"
	"time"

	"github.com/nats-io/nats.go"

	"github.com/fitlab/doorman/pkg/model"
)

// NATS subjects for the realtime event feed consumed by the API
const (
	subjectDeviceStatus = "doorman.acs.v1.events.devicestatus"
	subjectDeviceEvent  = "doorman.acs.v1.events.message"
)

// EventPublisher fans device state changes and inbound events out over NATS
// for realtime consumers. A nil publisher (or one without a connection)
// swallows everything, keeping callers free of nil checks.
type EventPublisher struct {
	nc *nats.Conn
}

// NewEventPublisher creates a new event publisher
func NewEventPublisher(nc *nats.Conn) *EventPublisher {
	return &EventPublisher{nc: nc}
}

type deviceStatusDetails struct {
	DeviceID      string     `json:"deviceId"`
	Status        string     `json:"status"`
	LastSeenAt    *time.Time `json:"lastSeenAt,omitempty"`
	LastHeartbeat *time.Time `json:"lastHeartbeatAt,omitempty"`
}

type deviceEventDetails struct {
	DeviceID   string                 `json:"deviceId"`
	Event      string                 `json:"event"`
	Topic      string                 `json:"topic"`
	ReceivedAt time.Time              `json:"receivedAt"`
	Payload    map[string]interface{} `json:"payload,omitempty"`
}

// PublishDeviceStatus announces the device's current presence status.
func (p *EventPublisher) PublishDeviceStatus(device *model.Device) error {
	if p == nil || p.nc == nil {
		return nil
	}

	data, err := json.Marshal(&deviceStatusDetails{
		DeviceID:      device.DeviceID,
		Status:        device.Status,
		LastSeenAt:    device.LastSeenAt,
		LastHeartbeat: device.LastHeartbeat,
	})
	if err != nil {
		return err
	}

	return p.nc.Publish(subjectDeviceStatus, data)
}

// PublishEvent announces a persisted inbound event.
func (p *EventPublisher) PublishEvent(deviceID string, m *model.Event) error {
	if p == nil || p.nc == nil {
		return nil
	}

	data, err := json.Marshal(&deviceEventDetails{
		DeviceID:   deviceID,
		Event:      m.Event,
		Topic:      m.Topic,
		ReceivedAt: m.ReceivedAt,
		Payload:    m.Payload,
	})
	if err != nil {
		return err
	}

	return p.nc.Publish(subjectDeviceEvent, data)
}
