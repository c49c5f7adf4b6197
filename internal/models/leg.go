package models

import (
	"time"
)

// AirportRef identifies one end of a flight leg
type AirportRef struct {
	Code string // IATA code, e.g. PHL
	Name string // Display name, falls back to Code
}

// DisplayName returns the airport name, or the bare code when no name is known
func (a AirportRef) DisplayName() string {
	if a.Name != "" {
		return a.Name
	}
	return a.Code
}

// Leg is one flight's origin-to-destination segment as seen in a single feed snapshot.
// Legs are rebuilt from scratch on every poll and never mutated after parsing.
type Leg struct {
	ID           string     // Stable feed key, unchanged across polls
	Carrier      string     // Airline code, e.g. AA
	Number       string     // Flight number, e.g. 1234
	Callsign     string     // ATC callsign (live feed only)
	Origin       AirportRef // Departure airport
	Destination  AirportRef // Arrival airport
	OriginDate   time.Time  // Operational day the leg departed (date only)
	Status       Status
	Delayed      bool
	Scheduled    time.Time  // Always present
	Estimated    *time.Time // nil when the feed has no estimate
	Actual       *time.Time // nil until the event has happened
	Inbound      bool       // Destination is the observer's home airport
	TailNumber   string     // Aircraft registration, if reported
	AircraftType string     // Aircraft type display name (live feed only)
}

// RelevantTime returns the most authoritative known time for the leg:
// actual, then estimated, then scheduled.
func (l *Leg) RelevantTime() time.Time {
	if l.Actual != nil {
		return *l.Actual
	}
	if l.Estimated != nil {
		return *l.Estimated
	}
	return l.Scheduled
}

// FlightDesignator returns "AA 1234", or the callsign when no carrier/number is known
func (l *Leg) FlightDesignator() string {
	switch {
	case l.Carrier != "" && l.Number != "":
		return l.Carrier + " " + l.Number
	case l.Callsign != "":
		return l.Callsign
	default:
		return l.Carrier + l.Number
	}
}

// SnapshotMeta describes one fetched feed payload
type SnapshotMeta struct {
	FetchedAt     time.Time
	TransactionID string
}
