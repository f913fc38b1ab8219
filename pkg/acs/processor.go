package acs

import (
	"encoding/json"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/fitlab/doorman/pkg/model"
	"github.com/fitlab/doorman/pkg/storage"
)

// eventOffline is the log event name a terminal emits right before it shuts
// its network interface down.
const eventOffline = "acs_offline"

// ScheduleResyncFunc triggers an asynchronous resync of a device. Wired to
// the orchestrator at startup.
type ScheduleResyncFunc func(deviceID int32, requestedBy string)

// Processor classifies inbound (topic, payload) pairs by suffix, updates
// device presence, records events and resolves acks. Every inbound message
// ends in exactly one persisted event or a command resolution; a malformed
// message never makes the ingestion path fail.
type Processor struct {
	store          storage.Interface
	events         *EventPublisher
	scheduleResync ScheduleResyncFunc
}

// NewProcessor creates a new incoming message processor
func NewProcessor(store storage.Interface, events *EventPublisher, scheduleResync ScheduleResyncFunc) *Processor {
	return &Processor{
		store:          store,
		events:         events,
		scheduleResync: scheduleResync,
	}
}

// Process handles one raw inbound message. Unparseable topics are dropped
// silently, there is no device to attribute an event to.
func (p *Processor) Process(topic string, payload []byte) {
	parsed := ParseTopic(topic)
	if parsed == nil {
		return
	}

	device, err := p.findOrCreateDevice(parsed.DeviceID)
	if err != nil {
		log.Errorf("acs: failed to resolve device %s: %v", parsed.DeviceID, err)
		return
	}

	now := time.Now().Round(time.Second).UTC()
	device.LastSeenAt = &now
	if err := p.store.Devices().Update(device); err != nil {
		log.Errorf("acs: failed to stamp last_seen_at of device %s: %v", device.DeviceID, err)
	}

	switch parsed.Suffix {
	case SuffixTeleLog:
		p.handleLog(device, topic, payload)
	case SuffixTeleHeartbeat:
		p.handleHeartbeat(device, topic, payload)
	case SuffixTeleLogDebug:
		p.createEvent(device, &model.Event{
			Event:      "log_debug",
			Topic:      topic,
			RawPayload: string(payload),
		})
	case SuffixAck:
		p.handleAck(device, topic, payload)
	case SuffixResyncRequest:
		p.handleResyncRequest(device, topic, payload)
	default:
		p.createEvent(device, &model.Event{
			Event:      "unknown_topic",
			Topic:      topic,
			RawPayload: string(payload),
		})
	}
}

func (p *Processor) handleLog(device *model.Device, topic string, raw []byte) {
	payload := parseJSON(raw)
	if payload == nil {
		p.createEvent(device, &model.Event{
			Event:      "invalid_json",
			Topic:      topic,
			RawPayload: string(raw),
		})
		return
	}

	name, _ := payload["event"].(string)
	if name == "" {
		name = "unknown"
	}

	p.createEvent(device, &model.Event{
		Event:      name,
		Topic:      topic,
		Payload:    payload,
		RawPayload: string(raw),
		TS:         payloadInt64(payload, "ts"),
		Reader:     payloadInt(payload, "reader"),
		UID:        payloadString(payload, "uid"),
		Reason:     payloadString(payload, "reason"),
	})

	status := model.DeviceStatusOnline
	if name == eventOffline {
		status = model.DeviceStatusOffline
	}
	p.updateStatus(device, status)
}

func (p *Processor) handleHeartbeat(device *model.Device, topic string, raw []byte) {
	payload := parseJSON(raw)
	if payload == nil {
		p.createEvent(device, &model.Event{
			Event:      "invalid_json",
			Topic:      topic,
			RawPayload: string(raw),
		})
		return
	}

	now := time.Now().Round(time.Second).UTC()
	device.LastHeartbeat = &now
	if timeOK, ok := payload["time_ok"].(bool); ok {
		device.LastTimeOK = &timeOK
	} else {
		device.LastTimeOK = nil
	}
	device.LastNetStatus = payloadString(payload, "net")
	p.updateStatus(device, model.DeviceStatusOnline)

	p.createEvent(device, &model.Event{
		Event:      "heartbeat",
		Topic:      topic,
		Payload:    payload,
		RawPayload: string(raw),
		TS:         payloadInt64(payload, "ts"),
	})
}

func (p *Processor) handleAck(device *model.Device, topic string, raw []byte) {
	payload := parseJSON(raw)
	if payload == nil {
		p.createEvent(device, &model.Event{
			Event:      "ack_invalid_json",
			Topic:      topic,
			RawPayload: string(raw),
		})
		return
	}

	msgID := payloadString(payload, "msg_id")
	if msgID == "" {
		p.createEvent(device, &model.Event{
			Event:      "ack_missing_msg_id",
			Topic:      topic,
			Payload:    payload,
			RawPayload: string(raw),
		})
		return
	}

	cmd, err := p.store.Commands().FindByDeviceAndMsgID(device.ID, msgID)
	if err == storage.ErrNotFound {
		p.createEvent(device, &model.Event{
			Event:      "ack_unknown_msg_id",
			Topic:      topic,
			Payload:    payload,
			RawPayload: string(raw),
		})
		return
	}
	if err != nil {
		log.Errorf("acs: failed to look up command %s: %v", msgID, err)
		return
	}

	ok, _ := payload["ok"].(bool)
	p.resolveAck(cmd, ok, payloadString(payload, "reason"))
}

func (p *Processor) handleResyncRequest(device *model.Device, topic string, raw []byte) {
	payload := parseJSON(raw)
	if payload == nil {
		p.createEvent(device, &model.Event{
			Event:      "resync_invalid_json",
			Topic:      topic,
			RawPayload: string(raw),
		})
		return
	}

	if action, _ := payload["action"].(string); action != "request" {
		p.createEvent(device, &model.Event{
			Event:      "resync_unknown_action",
			Topic:      topic,
			Payload:    payload,
			RawPayload: string(raw),
		})
		return
	}

	now := time.Now().Round(time.Second).UTC()
	device.ResyncRequestedAt = &now
	if err := p.store.Devices().Update(device); err != nil {
		log.Errorf("acs: failed to stamp resync_requested_at of device %s: %v", device.DeviceID, err)
	}

	p.createEvent(device, &model.Event{
		Event:      "resync_requested",
		Topic:      topic,
		Payload:    payload,
		RawPayload: string(raw),
	})

	if p.scheduleResync != nil {
		p.scheduleResync(device.ID, "device")
	}
}

// resolveAck applies the ack outcome to the command. Terminal commands are
// left untouched, so a late ack after a timeout failure is a no-op.
func (p *Processor) resolveAck(cmd *model.Command, ok bool, reason string) {
	if cmd.Status == model.CommandStatusAcked || cmd.Status == model.CommandStatusFailed {
		return
	}

	now := time.Now().Round(time.Second).UTC()
	cmd.Status = model.CommandStatusAcked
	if !ok {
		cmd.Status = model.CommandStatusFailed
	}
	cmd.AckAt = &now
	cmd.AckOK = &ok
	cmd.AckReason = reason

	if err := p.store.Commands().Update(cmd); err != nil {
		log.Errorf("acs: failed to resolve ack for command %d: %v", cmd.ID, err)
	}
}

func (p *Processor) updateStatus(device *model.Device, status string) {
	changed := device.Status != status
	device.Status = status
	if err := p.store.Devices().Update(device); err != nil {
		log.Errorf("acs: failed to update status of device %s: %v", device.DeviceID, err)
		return
	}

	if changed {
		if err := p.events.PublishDeviceStatus(device); err != nil {
			log.Errorf("acs: failed to publish device status: %v", err)
		}
	}
}

func (p *Processor) findOrCreateDevice(deviceID string) (*model.Device, error) {
	device, err := p.store.Devices().FindByDeviceID(deviceID)
	if err == nil {
		return device, nil
	}
	if err != storage.ErrNotFound {
		return nil, err
	}

	device = &model.Device{
		DeviceID: deviceID,
		Status:   model.DeviceStatusUnknown,
	}
	if err := p.store.Devices().Create(device); err != nil {
		return nil, err
	}

	log.Infof("acs: auto-registered device %s", deviceID)
	return device, nil
}

func (p *Processor) createEvent(device *model.Device, m *model.Event) {
	m.DeviceID = device.ID
	m.ReceivedAt = time.Now().Round(time.Second).UTC()

	if err := p.store.Events().Create(m); err != nil {
		log.Errorf("acs: failed to record event %s of device %s: %v", m.Event, device.DeviceID, err)
		return
	}

	if err := p.events.PublishEvent(device.DeviceID, m); err != nil {
		log.Errorf("acs: failed to publish event: %v", err)
	}
}

func parseJSON(raw []byte) map[string]interface{} {
	payload := make(map[string]interface{})
	if err := json.Unmarshal(raw, &payload); err != nil {
		return nil
	}
	return payload
}

func payloadString(payload map[string]interface{}, key string) string {
	s, _ := payload[key].(string)
	return s
}

func payloadInt64(payload map[string]interface{}, key string) *int64 {
	f, ok := payload[key].(float64)
	if !ok {
		return nil
	}
	out := int64(f)
	return &out
}

func payloadInt(payload map[string]interface{}, key string) *int {
	f, ok := payload[key].(float64)
	if !ok {
		return nil
	}
	out := int(f)
	return &out
}
