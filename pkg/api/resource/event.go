package resource

import (
	"sort"
	"time"

	"github.com/fitlab/doorman/pkg/model"
)

type EventResource struct {
	ID         int32                  `json:"id"`
	DeviceID   int32                  `json:"deviceId"`
	Event      string                 `json:"event"`
	TS         *int64                 `json:"ts,omitempty"`
	Reader     *int                   `json:"reader,omitempty"`
	UID        string                 `json:"uid,omitempty"`
	Reason     string                 `json:"reason,omitempty"`
	Topic      string                 `json:"topic"`
	Payload    map[string]interface{} `json:"payload,omitempty"`
	RawPayload string                 `json:"rawPayload,omitempty"`
	ReceivedAt time.Time              `json:"receivedAt"`
}

type EventListResource struct {
	Members []*EventResource `json:"members"`
}

func NewEvent(m *model.Event) (out *EventResource) {
	out = &EventResource{
		ID:         m.ID,
		DeviceID:   m.DeviceID,
		Event:      m.Event,
		TS:         m.TS,
		Reader:     m.Reader,
		UID:        m.UID,
		Reason:     m.Reason,
		Topic:      m.Topic,
		Payload:    m.Payload,
		RawPayload: m.RawPayload,
		ReceivedAt: m.ReceivedAt,
	}

	return // out
}

func NewEventList(m map[int32]model.Event) (out *EventListResource) {
	out = &EventListResource{
		Members: make([]*EventResource, 0),
	}

	for _, elem := range m {
		out.Members = append(out.Members, NewEvent(&elem))
	}

	// Default sort by ID
	sort.Slice(out.Members, func(i, j int) bool {
		return out.Members[i].ID < out.Members[j].ID
	})

	return // out
}

func NewEventSlice(models []model.Event) (out *EventListResource) {
	out = &EventListResource{
		Members: make([]*EventResource, 0, len(models)),
	}

	for i := range models {
		out.Members = append(out.Members, NewEvent(&models[i]))
	}

	return // out
}
