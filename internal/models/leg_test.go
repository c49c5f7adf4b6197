package models

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestLeg_RelevantTime(t *testing.T) {
	leg := Leg{Scheduled: at(12, 0)}
	assert.Equal(t, at(12, 0), leg.RelevantTime())

	leg.Estimated = ptr(at(12, 15))
	assert.Equal(t, at(12, 15), leg.RelevantTime())

	// Once actual is known it is used regardless of the estimate
	leg.Actual = ptr(at(12, 5))
	assert.Equal(t, at(12, 5), leg.RelevantTime())
}

func TestLeg_FlightDesignator(t *testing.T) {
	assert.Equal(t, "AA 1234", (&Leg{Carrier: "AA", Number: "1234"}).FlightDesignator())
	assert.Equal(t, "UAL42", (&Leg{Callsign: "UAL42"}).FlightDesignator())
	assert.Equal(t, "AA", (&Leg{Carrier: "AA"}).FlightDesignator())
}

func TestAirportRef_DisplayName(t *testing.T) {
	assert.Equal(t, "Boston", AirportRef{Code: "BOS", Name: "Boston"}.DisplayName())
	assert.Equal(t, "BOS", AirportRef{Code: "BOS"}.DisplayName())
}

func TestReferenceTables_Fallback(t *testing.T) {
	tables := NewReferenceTables(
		[]*Airport{{IATA: "PHL", Label: "Philadelphia"}, {IATA: "XXX"}},
		[]*AircraftType{{ID: "B738", Name: "Boeing 737-800"}},
	)

	assert.Equal(t, "Philadelphia", tables.AirportName("PHL"))
	assert.Equal(t, "XXX", tables.AirportName("XXX"))
	assert.Equal(t, "JFK", tables.AirportName("JFK"))
	assert.Equal(t, "Boeing 737-800", tables.AircraftName("B738"))
	assert.Equal(t, "A321", tables.AircraftName("A321"))

	airports, aircraft := tables.Len()
	assert.Equal(t, 1, airports)
	assert.Equal(t, 1, aircraft)

	var empty *ReferenceTables
	assert.Equal(t, "PHL", empty.AirportName("PHL"))
}

func TestMalformedFeedError(t *testing.T) {
	cause := errors.New("bad time")
	err := &MalformedFeedError{LegID: "123", Field: "scheduled time", Err: cause}

	assert.Equal(t, "malformed feed (leg 123): missing or invalid scheduled time: bad time", err.Error())
	assert.ErrorIs(t, err, cause)

	var target *MalformedFeedError
	assert.True(t, errors.As(error(err), &target))
}
