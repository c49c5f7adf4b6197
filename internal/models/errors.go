package models

import (
	"fmt"
)

// MalformedFeedError reports a feed record (or whole document) that violates the expected schema
type MalformedFeedError struct {
	LegID string // Empty when the leg id itself is missing or the document is unreadable
	Field string
	Err   error
}

func (e *MalformedFeedError) Error() string {
	msg := "malformed feed"
	if e.LegID != "" {
		msg += fmt.Sprintf(" (leg %s)", e.LegID)
	}
	if e.Field != "" {
		msg += ": missing or invalid " + e.Field
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *MalformedFeedError) Unwrap() error {
	return e.Err
}
