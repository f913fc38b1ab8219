package resource

import (
	"sort"
	"time"

	"github.com/fitlab/doorman/pkg/model"
)

type CommandResource struct {
	ID        int32                  `json:"id"`
	DeviceID  int32                  `json:"deviceId"`
	Topic     string                 `json:"topic"`
	MsgID     string                 `json:"msgId"`
	Payload   map[string]interface{} `json:"payload"`
	Status    string                 `json:"status"`
	Retries   int                    `json:"retries"`
	SentAt    *time.Time             `json:"sentAt,omitempty"`
	AckAt     *time.Time             `json:"ackAt,omitempty"`
	AckOK     *bool                  `json:"ackOk,omitempty"`
	AckReason string                 `json:"ackReason,omitempty"`
	CreatedAt *time.Time             `json:"createdAt,omitempty"`
}

type CommandListResource struct {
	Members []*CommandResource `json:"members"`
}

func NewCommand(m *model.Command) (out *CommandResource) {
	out = &CommandResource{
		ID:        m.ID,
		DeviceID:  m.DeviceID,
		Topic:     m.Topic,
		MsgID:     m.MsgID,
		Payload:   m.Payload,
		Status:    m.Status,
		Retries:   m.Retries,
		SentAt:    m.SentAt,
		AckAt:     m.AckAt,
		AckOK:     m.AckOK,
		AckReason: m.AckReason,
	}

	if !m.CreatedAt.IsZero() {
		out.CreatedAt = &time.Time{}
		*out.CreatedAt = m.CreatedAt.Round(time.Second)
	}

	return // out
}

func NewCommandList(m map[int32]model.Command) (out *CommandListResource) {
	out = &CommandListResource{
		Members: make([]*CommandResource, 0),
	}

	for _, elem := range m {
		out.Members = append(out.Members, NewCommand(&elem))
	}

	// Default sort by ID
	sort.Slice(out.Members, func(i, j int) bool {
		return out.Members[i].ID < out.Members[j].ID
	})

	return // out
}

func NewCommandSlice(models []model.Command) (out *CommandListResource) {
	out = &CommandListResource{
		Members: make([]*CommandResource, 0, len(models)),
	}

	for i := range models {
		out.Members = append(out.Members, NewCommand(&models[i]))
	}

	return // out
}
