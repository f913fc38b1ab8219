package acs

import (
	"regexp"
	"strings"
	"testing"
)

func TestNewMsgID(t *testing.T) {
	t.Parallel()

	id := NewMsgID("")
	if len(id) != msgIDLength {
		t.Errorf("unexpected msg id length: %d", len(id))
	}
	for _, c := range id {
		if !strings.ContainsRune(msgIDAlphabet, c) {
			t.Errorf("unexpected character %q in msg id %s", c, id)
		}
	}
}

func TestNewMsgIDWithPrefix(t *testing.T) {
	t.Parallel()

	id := NewMsgID("ctrl-token-add")
	if !strings.HasPrefix(id, "ctrl-token-add-") {
		t.Errorf("expected prefixed msg id, got %s", id)
	}
	if len(id) != len("ctrl-token-add-")+msgIDLength {
		t.Errorf("unexpected msg id length: %d", len(id))
	}
}

func TestNewMsgIDUnique(t *testing.T) {
	t.Parallel()

	seen := make(map[string]bool)
	for i := 0; i < 1000; i++ {
		id := NewMsgID("")
		if seen[id] {
			t.Fatalf("duplicate msg id after %d draws: %s", i, id)
		}
		seen[id] = true
	}
}

func TestNewTokenUID(t *testing.T) {
	t.Parallel()

	pattern := regexp.MustCompile(`^[0-9A-F]{8}$`)
	for i := 0; i < 100; i++ {
		uid := NewTokenUID()
		if !pattern.MatchString(uid) {
			t.Fatalf("unexpected token uid format: %s", uid)
		}
	}
}
