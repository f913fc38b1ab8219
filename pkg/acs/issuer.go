package acs

import (
	"time"

	"github.com/pkg/errors"

	"github.com/fitlab/doorman/pkg/model"
	"github.com/fitlab/doorman/pkg/storage"
)

// issueWindowBeforeStart opens the token validity window slightly before
// the booked slot starts so clients can enter a few minutes early.
const issueWindowBeforeStart = 5 * time.Minute

const maxUIDAttempts = 20

// BookingWindow is the slice of a booking the issuer needs: which location
// to unlock and for which time window. The booking collaborator owns the
// rest of the booking.
type BookingWindow struct {
	BookingID  int32
	ClientID   *int32
	LocationID int32
	StartsAt   time.Time
	EndsAt     time.Time
}

// Issuer creates one single-use token per terminal of the booked location
// and replicates it through the token synchronizer.
type Issuer struct {
	store storage.Interface
	sync  *TokenSync
}

// NewIssuer creates a new token issuer
func NewIssuer(store storage.Interface, sync *TokenSync) *Issuer {
	return &Issuer{
		store: store,
		sync:  sync,
	}
}

// IssueForBooking issues tokens on every device of the booking's location.
func (i *Issuer) IssueForBooking(b *BookingWindow) error {
	devices, err := i.store.Devices().FetchAll()
	if err != nil {
		return err
	}

	for id := range devices {
		device := devices[id]
		if device.LocationID == nil || *device.LocationID != b.LocationID {
			continue
		}
		if err := i.createToken(&device, b); err != nil {
			return err
		}
	}

	return nil
}

func (i *Issuer) createToken(device *model.Device, b *BookingWindow) error {
	start := b.StartsAt.Add(-issueWindowBeforeStart)

	token := &model.Token{
		DeviceID:      device.ID,
		ClientID:      b.ClientID,
		BookingID:     &b.BookingID,
		ValidFrom:     secondsSinceMidnightUTC(start),
		ValidTo:       secondsSinceMidnightUTC(b.EndsAt),
		DayStartS:     int(secondsSinceMidnightUTC(start)),
		DayEndS:       int(secondsSinceMidnightUTC(b.EndsAt)),
		RemainingUses: 1,
		Version:       1,
	}

	// The uid space is small enough for collisions on a busy device, retry
	// with a fresh uid until the unique index accepts one.
	for attempt := 0; attempt < maxUIDAttempts; attempt++ {
		token.UID = NewTokenUID()

		err := i.store.Tokens().Create(token)
		if err == storage.ErrNotUnique {
			continue
		}
		if err != nil {
			return err
		}

		return i.sync.TokenChanged(token, nil)
	}

	return errors.Errorf("failed to generate a unique token uid for device %s", device.DeviceID)
}

func secondsSinceMidnightUTC(t time.Time) int64 {
	utc := t.UTC()
	return int64(utc.Hour()*3600 + utc.Minute()*60 + utc.Second())
}
