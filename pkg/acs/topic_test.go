package acs

import "testing"

func TestTopicFor(t *testing.T) {
	t.Parallel()

	topic := TopicFor("ACS-0042", SuffixTokenAdd)
	if topic != "acs/ACS-0042/ctrl/token/add" {
		t.Errorf("unexpected topic: %s", topic)
	}
}

func TestParseTopic(t *testing.T) {
	t.Parallel()

	parsed := ParseTopic("acs/ACS-0042/tele/heartbeat")
	if parsed == nil {
		t.Fatal("expected parsed topic, got nil")
	}
	if parsed.DeviceID != "ACS-0042" {
		t.Errorf("unexpected device id: %s", parsed.DeviceID)
	}
	if parsed.Suffix != SuffixTeleHeartbeat {
		t.Errorf("unexpected suffix: %s", parsed.Suffix)
	}
}

func TestParseTopicNestedSuffix(t *testing.T) {
	t.Parallel()

	parsed := ParseTopic("acs/ACS-0042/ctrl/resync/request")
	if parsed == nil {
		t.Fatal("expected parsed topic, got nil")
	}
	if parsed.Suffix != SuffixResyncRequest {
		t.Errorf("unexpected suffix: %s", parsed.Suffix)
	}
}

func TestParseTopicRejectsForeign(t *testing.T) {
	t.Parallel()

	cases := []string{
		"",
		"acs",
		"acs/ACS-0042",
		"other/ACS-0042/tele/log",
		"tele/log",
	}

	for _, topic := range cases {
		if parsed := ParseTopic(topic); parsed != nil {
			t.Errorf("expected nil for topic %q, got %+v", topic, parsed)
		}
	}
}
