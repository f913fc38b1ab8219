package acs

import "strings"

const topicPrefix = "acs"

// Topic suffixes of the wire protocol
const (
	SuffixTeleLog       = "tele/log"
	SuffixTeleHeartbeat = "tele/heartbeat"
	SuffixTeleLogDebug  = "tele/log_debug"
	SuffixAck           = "ack"
	SuffixResyncRequest = "ctrl/resync/request"
	SuffixResyncBegin   = "ctrl/resync/begin"
	SuffixResyncEnd     = "ctrl/resync/end"
	SuffixTokenAdd      = "ctrl/token/add"
	SuffixTokenRemove   = "ctrl/token/remove"
)

// Subscriptions is the fixed topic filter set of the listener.
var Subscriptions = []string{
	"acs/+/tele/log",
	"acs/+/tele/heartbeat",
	"acs/+/tele/log_debug",
	"acs/+/ack",
	"acs/+/ctrl/resync/request",
}

// ParsedTopic is the device id and suffix extracted from a wire topic
type ParsedTopic struct {
	DeviceID string
	Suffix   string
}

// TopicFor builds the wire topic for a device id and suffix.
func TopicFor(deviceID, suffix string) string {
	return topicPrefix + "/" + deviceID + "/" + suffix
}

// ParseTopic splits a wire topic into device id and suffix. It returns nil
// for anything that is not an "acs/{device_id}/{suffix}" topic.
func ParseTopic(topic string) *ParsedTopic {
	parts := strings.Split(topic, "/")
	if len(parts) < 3 || parts[0] != topicPrefix {
		return nil
	}

	return &ParsedTopic{
		DeviceID: parts[1],
		Suffix:   strings.Join(parts[2:], "/"),
	}
}
