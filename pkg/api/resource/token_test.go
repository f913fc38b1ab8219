package resource

import "testing"

func validTokenResource() *TokenResource {
	return &TokenResource{
		DeviceID:      1,
		UID:           "00aa11bb",
		ValidFrom:     35700,
		ValidTo:       39600,
		DayStartS:     35700,
		DayEndS:       39600,
		RemainingUses: 1,
	}
}

func TestValidateToken(t *testing.T) {
	t.Parallel()

	m, err := ValidateToken(validTokenResource())
	if err != nil {
		t.Fatalf("expected valid token, got %v", err)
	}

	if m.UID != "00AA11BB" {
		t.Errorf("expected uid to be uppercased, got %s", m.UID)
	}
	if m.Version != 1 {
		t.Errorf("expected version default 1, got %d", m.Version)
	}
}

func TestValidateTokenRejectsMissingDevice(t *testing.T) {
	t.Parallel()

	r := validTokenResource()
	r.DeviceID = 0
	if _, err := ValidateToken(r); err == nil {
		t.Error("expected error for missing device id")
	}
}

func TestValidateTokenRejectsBadUID(t *testing.T) {
	t.Parallel()

	for _, uid := range []string{"", "123", "00AA11BB00", "GGGGGGGG"} {
		r := validTokenResource()
		r.UID = uid
		if _, err := ValidateToken(r); err == nil {
			t.Errorf("expected error for uid %q", uid)
		}
	}
}

func TestValidateTokenRejectsInvertedWindow(t *testing.T) {
	t.Parallel()

	r := validTokenResource()
	r.ValidTo = r.ValidFrom
	if _, err := ValidateToken(r); err == nil {
		t.Error("expected error for valid_to <= valid_from")
	}

	r = validTokenResource()
	r.DayEndS = r.DayStartS - 1
	if _, err := ValidateToken(r); err == nil {
		t.Error("expected error for day_end_s < day_start_s")
	}
}

func TestValidateTokenAllowsEqualDailyWindow(t *testing.T) {
	t.Parallel()

	r := validTokenResource()
	r.DayEndS = r.DayStartS
	if _, err := ValidateToken(r); err != nil {
		t.Errorf("expected equal daily window to pass, got %v", err)
	}
}

func TestValidateTokenRejectsNegativeUses(t *testing.T) {
	t.Parallel()

	r := validTokenResource()
	r.RemainingUses = -1
	if _, err := ValidateToken(r); err == nil {
		t.Error("expected error for negative remaining uses")
	}
}
