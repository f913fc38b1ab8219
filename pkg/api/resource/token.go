package resource

import (
	"fmt"
	"regexp"
	"sort"
	"strings"
	"time"

	"github.com/fitlab/doorman/pkg/model"
)

var tokenUIDPattern = regexp.MustCompile(`^[0-9A-F]{8}$`)

type TokenResource struct {
	ID            int32      `json:"id"`
	DeviceID      int32      `json:"deviceId"`
	ClientID      *int32     `json:"clientId,omitempty"`
	BookingID     *int32     `json:"bookingId,omitempty"`
	UID           string     `json:"uid"`
	ValidFrom     int64      `json:"validFrom"`
	ValidTo       int64      `json:"validTo"`
	DayStartS     int        `json:"dayStartS"`
	DayEndS       int        `json:"dayEndS"`
	RemainingUses int        `json:"remainingUses"`
	Version       int        `json:"version"`
	CreatedAt     *time.Time `json:"createdAt,omitempty"`
	UpdatedAt     *time.Time `json:"updatedAt,omitempty"`
}

type TokenListResource struct {
	Members []*TokenResource `json:"members"`
}

func NewToken(m *model.Token) (out *TokenResource) {
	out = &TokenResource{
		ID:            m.ID,
		DeviceID:      m.DeviceID,
		ClientID:      m.ClientID,
		BookingID:     m.BookingID,
		UID:           m.UID,
		ValidFrom:     m.ValidFrom,
		ValidTo:       m.ValidTo,
		DayStartS:     m.DayStartS,
		DayEndS:       m.DayEndS,
		RemainingUses: m.RemainingUses,
		Version:       m.Version,
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

func NewTokenList(m map[int32]model.Token) (out *TokenListResource) {
	out = &TokenListResource{
		Members: make([]*TokenResource, 0),
	}

	for _, elem := range m {
		out.Members = append(out.Members, NewToken(&elem))
	}

	// Default sort by ID
	sort.Slice(out.Members, func(i, j int) bool {
		return out.Members[i].ID < out.Members[j].ID
	})

	return // out
}

func NewTokenSlice(models []model.Token) (out *TokenListResource) {
	out = &TokenListResource{
		Members: make([]*TokenResource, 0, len(models)),
	}

	for i := range models {
		out.Members = append(out.Members, NewToken(&models[i]))
	}

	return // out
}

func ValidateToken(r *TokenResource) (m *model.Token, err error) {
	if r.DeviceID == 0 {
		return nil, fmt.Errorf("deviceId is required")
	}

	uid := strings.ToUpper(r.UID)
	if !tokenUIDPattern.MatchString(uid) {
		return nil, fmt.Errorf("uid must be 8 hex characters")
	}
	if r.ValidTo <= r.ValidFrom {
		return nil, fmt.Errorf("validTo must be greater than validFrom")
	}
	if r.DayEndS < r.DayStartS {
		return nil, fmt.Errorf("dayEndS must be greater than or equal to dayStartS")
	}
	if r.RemainingUses < 0 {
		return nil, fmt.Errorf("remainingUses must not be negative")
	}

	version := r.Version
	if version == 0 {
		version = 1
	}

	m = &model.Token{
		DeviceID:      r.DeviceID,
		ClientID:      r.ClientID,
		BookingID:     r.BookingID,
		UID:           uid,
		ValidFrom:     r.ValidFrom,
		ValidTo:       r.ValidTo,
		DayStartS:     r.DayStartS,
		DayEndS:       r.DayEndS,
		RemainingUses: r.RemainingUses,
		Version:       version,
	}

	return m, nil
}
