package resource

import (
	"fmt"
	"sort"
	"time"

	"github.com/fitlab/doorman/pkg/model"
)

type DeviceResource struct {
	ID                int32      `json:"id"`
	DeviceID          string     `json:"deviceId"`
	Name              string     `json:"name,omitempty"`
	LocationID        *int32     `json:"locationId,omitempty"`
	Status            string     `json:"status"`
	LastSeenAt        *time.Time `json:"lastSeenAt,omitempty"`
	LastHeartbeatAt   *time.Time `json:"lastHeartbeatAt,omitempty"`
	LastTimeOK        *bool      `json:"lastTimeOk,omitempty"`
	LastNetStatus     string     `json:"lastNetStatus,omitempty"`
	ResyncInProgress  bool       `json:"resyncInProgress"`
	ResyncRequestedAt *time.Time `json:"resyncRequestedAt,omitempty"`
	ResyncStartedAt   *time.Time `json:"resyncStartedAt,omitempty"`
	ResyncCompletedAt *time.Time `json:"resyncCompletedAt,omitempty"`
	ResyncFailedAt    *time.Time `json:"resyncFailedAt,omitempty"`
	ResyncError       string     `json:"resyncError,omitempty"`
	CreatedAt         *time.Time `json:"createdAt,omitempty"`
	UpdatedAt         *time.Time `json:"updatedAt,omitempty"`
}

type DeviceListResource struct {
	Members []*DeviceResource `json:"members"`
}

func NewDevice(m *model.Device) (out *DeviceResource) {
	out = &DeviceResource{
		ID:                m.ID,
		DeviceID:          m.DeviceID,
		Name:              m.Name,
		LocationID:        m.LocationID,
		Status:            m.Status,
		LastSeenAt:        m.LastSeenAt,
		LastHeartbeatAt:   m.LastHeartbeat,
		LastTimeOK:        m.LastTimeOK,
		LastNetStatus:     m.LastNetStatus,
		ResyncInProgress:  m.ResyncInProgress,
		ResyncRequestedAt: m.ResyncRequestedAt,
		ResyncStartedAt:   m.ResyncStartedAt,
		ResyncCompletedAt: m.ResyncCompletedAt,
		ResyncFailedAt:    m.ResyncFailedAt,
		ResyncError:       m.ResyncError,
	}

	if !m.CreatedAt.IsZero() {
		out.CreatedAt = &time.Time{}
		*out.CreatedAt = m.CreatedAt.Round(time.Second)
	}
	if !m.UpdatedAt.IsZero() {
		out.UpdatedAt = &time.Time{}
		*out.UpdatedAt = m.UpdatedAt.Round(time.Second)
	}

	return // out
}

func NewDeviceList(m map[int32]model.Device) (out *DeviceListResource) {
	out = &DeviceListResource{
		Members: make([]*DeviceResource, 0),
	}

	for _, elem := range m {
		out.Members = append(out.Members, NewDevice(&elem))
	}

	// Default sort by ID
	sort.Slice(out.Members, func(i, j int) bool {
		return out.Members[i].ID < out.Members[j].ID
	})

	return // out
}

func ValidateDevice(r *DeviceResource) (m *model.Device, err error) {
	if r.DeviceID == "" {
		return nil, fmt.Errorf("deviceId is required")
	}

	m = &model.Device{
		DeviceID:   r.DeviceID,
		Name:       r.Name,
		LocationID: r.LocationID,
		Status:     model.DeviceStatusUnknown,
	}

	return m, nil
}
