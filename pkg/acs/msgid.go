package acs

import (
	"crypto/rand"
	"fmt"
)

const msgIDAlphabet = "0123456789ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz"
const msgIDLength = 12

// NewMsgID returns a random alphanumeric message id. A non-empty prefix is
// prepended for traceability, e.g. "ctrl-token-add-Hh2n0Yt5q1Wd".
func NewMsgID(prefix string) string {
	buf := make([]byte, msgIDLength)
	rand.Read(buf)
	for i, b := range buf {
		buf[i] = msgIDAlphabet[int(b)%len(msgIDAlphabet)]
	}

	if prefix == "" {
		return string(buf)
	}

	return prefix + "-" + string(buf)
}

// NewTokenUID returns a random 8 character uppercase hex token uid.
func NewTokenUID() string {
	buf := make([]byte, 4)
	rand.Read(buf)
	return fmt.Sprintf("%X", buf)
}
