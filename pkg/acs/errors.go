package acs

import "fmt"

type acsError string

// ErrAckTimeout is returned by the tracker when a command is not confirmed
// within the wait deadline.
const ErrAckTimeout = acsError("ack timeout")

func (e acsError) Error() string {
	return string(e)
}

// AckFailedError reports a command that reached a failed terminal state,
// either rejected by the terminal or failed earlier in the lifecycle.
type AckFailedError struct {
	MsgID  string
	Reason string
}

func (e *AckFailedError) Error() string {
	return fmt.Sprintf("ack failed for %s: %s", e.MsgID, e.Reason)
}

func IsAckFailedError(e error) bool {
	_, ok := e.(*AckFailedError)
	return ok
}
