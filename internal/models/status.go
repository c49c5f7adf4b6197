package models

import (
	"time"
)

// Status is the single discrete state derived for a leg
type Status int

const (
	StatusOnTime Status = iota
	StatusDelayed
	StatusDiverted
	StatusCancelled
	StatusDeparted
	StatusAirborne
	StatusLanded
	StatusInRange
	StatusEnRoute
)

// DelayThreshold is how late (actual or estimated vs scheduled) a leg must be to count as delayed
const DelayThreshold = 30 * time.Minute

// AIDX public status codes
const (
	PublicDiverted  = "DV"
	PublicCancelled = "DX"
)

// AIDX internal status codes (ai:InternalStatus)
const (
	InternalScheduled = "SCH"
	InternalLanded    = "TD"
	InternalInRange   = "TMO"
	InternalDeparted  = "OFB"
	InternalAirborne  = "OFF"
	InternalEnRoute   = "UOT"
	InternalCancelled = "XLD"
)

var internalStatuses = map[string]Status{
	InternalLanded:    StatusLanded,
	InternalInRange:   StatusInRange,
	InternalDeparted:  StatusDeparted,
	InternalAirborne:  StatusAirborne,
	InternalEnRoute:   StatusEnRoute,
	InternalCancelled: StatusCancelled,
}

var statusNames = map[Status]string{
	StatusOnTime:    "ON_TIME",
	StatusDelayed:   "DELAYED",
	StatusDiverted:  "DIVERTED",
	StatusCancelled: "CANCELLED",
	StatusDeparted:  "DEPARTED",
	StatusAirborne:  "AIRBORNE",
	StatusLanded:    "LANDED",
	StatusInRange:   "IN_RANGE",
	StatusEnRoute:   "EN_ROUTE",
}

func (s Status) String() string {
	if name, ok := statusNames[s]; ok {
		return name
	}
	return "UNKNOWN"
}

// IsDelayed reports whether the leg is at least DelayThreshold late.
// The actual time wins over the estimate when both are known.
func IsDelayed(scheduled time.Time, estimated, actual *time.Time) bool {
	ref := actual
	if ref == nil {
		ref = estimated
	}
	if ref == nil {
		return false
	}
	return ref.Sub(scheduled) >= DelayThreshold
}

// Classify derives the leg status from the raw feed fields. First match wins:
// diverted, cancelled (public), delayed, the internal status table, then on time.
// A leg that has landed late is reported DELAYED, never LANDED.
func Classify(public, internal string, scheduled time.Time, estimated, actual *time.Time) (Status, bool) {
	delayed := IsDelayed(scheduled, estimated, actual)

	switch {
	case public == PublicDiverted:
		return StatusDiverted, delayed
	case public == PublicCancelled:
		return StatusCancelled, delayed
	case delayed:
		return StatusDelayed, delayed
	}

	if s, ok := internalStatuses[internal]; ok {
		return s, delayed
	}
	return StatusOnTime, delayed
}
