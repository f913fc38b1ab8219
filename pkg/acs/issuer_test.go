package acs

import (
	"regexp"
	"testing"
	"time"
)

func TestIssueForBooking(t *testing.T) {
	t.Parallel()

	store := newTestStore()
	locationID := int32(7)
	otherLocation := int32(8)

	first := createTestDevice(t, store, "ACS-0001")
	first.LocationID = &locationID
	if err := store.Devices().Update(first); err != nil {
		t.Fatalf("failed to update device: %v", err)
	}

	second := createTestDevice(t, store, "ACS-0002")
	second.LocationID = &locationID
	if err := store.Devices().Update(second); err != nil {
		t.Fatalf("failed to update device: %v", err)
	}

	elsewhere := createTestDevice(t, store, "ACS-0003")
	elsewhere.LocationID = &otherLocation
	if err := store.Devices().Update(elsewhere); err != nil {
		t.Fatalf("failed to update device: %v", err)
	}

	issuer := NewIssuer(store, newTestTokenSync(store))

	clientID := int32(1001)
	starts := time.Date(2026, 3, 14, 10, 0, 0, 0, time.UTC)
	ends := time.Date(2026, 3, 14, 11, 0, 0, 0, time.UTC)
	booking := &BookingWindow{
		BookingID:  500,
		ClientID:   &clientID,
		LocationID: locationID,
		StartsAt:   starts,
		EndsAt:     ends,
	}

	if err := issuer.IssueForBooking(booking); err != nil {
		t.Fatalf("issue failed: %v", err)
	}

	uidPattern := regexp.MustCompile(`^[0-9A-F]{8}$`)
	for _, device := range []int32{first.ID, second.ID} {
		tokens, err := store.Tokens().FetchByDeviceID(device)
		if err != nil {
			t.Fatalf("failed to fetch tokens: %v", err)
		}
		if len(tokens) != 1 {
			t.Fatalf("expected 1 token on device %d, got %d", device, len(tokens))
		}

		token := tokens[0]
		if !uidPattern.MatchString(token.UID) {
			t.Errorf("unexpected uid format: %s", token.UID)
		}
		if token.RemainingUses != 1 {
			t.Errorf("unexpected remaining uses: %d", token.RemainingUses)
		}
		if token.BookingID == nil || *token.BookingID != 500 {
			t.Errorf("unexpected booking id: %v", token.BookingID)
		}
		if token.ClientID == nil || *token.ClientID != 1001 {
			t.Errorf("unexpected client id: %v", token.ClientID)
		}

		// Window opens five minutes before the slot, expressed as seconds
		// since midnight UTC
		wantFrom := int64(9*3600 + 55*60)
		wantTo := int64(11 * 3600)
		if token.ValidFrom != wantFrom {
			t.Errorf("unexpected valid_from: %d", token.ValidFrom)
		}
		if token.ValidTo != wantTo {
			t.Errorf("unexpected valid_to: %d", token.ValidTo)
		}
		if int64(token.DayStartS) != wantFrom || int64(token.DayEndS) != wantTo {
			t.Errorf("unexpected daily window: %d-%d", token.DayStartS, token.DayEndS)
		}

		// The new token is replicated to the terminal right away
		commands, err := store.Commands().FetchByDeviceID(device)
		if err != nil {
			t.Fatalf("failed to fetch commands: %v", err)
		}
		if len(commands) != 1 {
			t.Fatalf("expected 1 command on device %d, got %d", device, len(commands))
		}
	}

	tokens, err := store.Tokens().FetchByDeviceID(elsewhere.ID)
	if err != nil {
		t.Fatalf("failed to fetch tokens: %v", err)
	}
	if len(tokens) != 0 {
		t.Errorf("expected no tokens on foreign location device, got %d", len(tokens))
	}
}
