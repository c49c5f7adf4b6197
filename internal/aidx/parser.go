// Package aidx parses IATA AIDX flight leg snapshots published by airport operations feeds.
package aidx

import (
	"bytes"
	"encoding/xml"
	"fmt"
	"io"
	"strings"
	"time"

	"outside/internal/models"

	"golang.org/x/text/encoding/htmlindex"
)

// Accepted ISO-8601 layouts, most specific first. Layouts without an offset are read in the
// parser's location.
var timeLayouts = []struct {
	layout string
	naive  bool
}{
	{time.RFC3339Nano, false},
	{"2006-01-02T15:04Z07:00", false},
	{"2006-01-02T15:04:05.999999999", true},
	{"2006-01-02T15:04", true},
}

const dateLayout = "2006-01-02"

// Snapshot is one parsed feed payload
type Snapshot struct {
	Meta    models.SnapshotMeta
	Legs    []models.Leg
	Skipped []error // One *models.MalformedFeedError per dropped leg
}

// Parser converts raw AIDX documents into classified legs
type Parser struct {
	home string
	loc  *time.Location
}

// NewParser creates a parser for an observer at the given home airport.
// Timestamps without a UTC offset are interpreted in loc (time.Local when nil).
func NewParser(home string, loc *time.Location) *Parser {
	if loc == nil {
		loc = time.Local
	}
	return &Parser{home: strings.ToUpper(home), loc: loc}
}

// charsetReader converts documents that declare a non UTF-8 encoding, such as ISO-8859-1
func charsetReader(label string, input io.Reader) (io.Reader, error) {
	enc, err := htmlindex.Get(label)
	if err != nil {
		return nil, fmt.Errorf("unsupported encoding %q: %w", label, err)
	}
	return enc.NewDecoder().Reader(input), nil
}

// Parse decodes one document. A document that cannot be decoded, or that has no timestamp,
// fails as a whole. Individual malformed legs are skipped and reported in Snapshot.Skipped.
func (p *Parser) Parse(data []byte) (*Snapshot, error) {
	var doc document
	dec := xml.NewDecoder(bytes.NewReader(data))
	dec.CharsetReader = charsetReader
	if err := dec.Decode(&doc); err != nil {
		return nil, &models.MalformedFeedError{Err: fmt.Errorf("decode document: %w", err)}
	}

	fetchedAt, err := p.parseTime(doc.TimeStamp)
	if err != nil {
		return nil, &models.MalformedFeedError{Field: "TimeStamp", Err: err}
	}

	snap := &Snapshot{
		Meta: models.SnapshotMeta{
			FetchedAt:     fetchedAt,
			TransactionID: doc.TransactionIdentifier,
		},
		Legs: make([]models.Leg, 0, len(doc.FlightLegs)),
	}

	for i := range doc.FlightLegs {
		leg, err := p.parseLeg(&doc.FlightLegs[i])
		if err != nil {
			snap.Skipped = append(snap.Skipped, err)
			continue
		}
		snap.Legs = append(snap.Legs, leg)
	}

	return snap, nil
}

func (p *Parser) parseLeg(fl *flightLeg) (models.Leg, error) {
	li := &fl.LegIdentifier
	ld := &fl.LegData

	id := strings.TrimSpace(li.InternalID)
	if id == "" {
		return models.Leg{}, &models.MalformedFeedError{Field: "InternalId"}
	}
	malformed := func(field string, err error) error {
		return &models.MalformedFeedError{LegID: id, Field: field, Err: err}
	}

	depCode := strings.TrimSpace(li.DepartureAirport)
	if depCode == "" {
		return models.Leg{}, malformed("DepartureAirport", nil)
	}
	arrCode := strings.TrimSpace(li.ArrivalAirport)
	if arrCode == "" {
		return models.Leg{}, malformed("ArrivalAirport", nil)
	}
	if ld.PublicStatus == nil {
		return models.Leg{}, malformed("PublicStatus", nil)
	}
	if ld.InternalStatus == nil {
		return models.Leg{}, malformed("InternalStatus", nil)
	}

	sct := findTime(ld.OperationTimes, isScheduled)
	if sct == nil {
		return models.Leg{}, malformed("scheduled time", nil)
	}
	scheduled, err := p.parseTime(sct.Value)
	if err != nil {
		return models.Leg{}, malformed("scheduled time", err)
	}
	estimated, err := p.optionalTime(ld.OperationTimes, isEstimated)
	if err != nil {
		return models.Leg{}, malformed("estimated time", err)
	}
	actual, err := p.optionalTime(ld.OperationTimes, isActual)
	if err != nil {
		return models.Leg{}, malformed("actual time", err)
	}

	var originDate time.Time
	if s := strings.TrimSpace(li.OriginDate); s != "" {
		originDate, err = time.ParseInLocation(dateLayout, s, p.loc)
		if err != nil {
			return models.Leg{}, malformed("OriginDate", err)
		}
	}

	public := strings.TrimSpace(*ld.PublicStatus)
	internal := strings.TrimSpace(*ld.InternalStatus)
	status, delayed := models.Classify(public, internal, scheduled, estimated, actual)

	leg := models.Leg{
		ID:          id,
		Carrier:     strings.TrimSpace(li.Airline),
		Number:      strings.TrimSpace(li.FlightNumber),
		Origin:      lookupAirport(ld.AirportInfo, depCode),
		Destination: lookupAirport(ld.AirportInfo, arrCode),
		OriginDate:  originDate,
		Status:      status,
		Delayed:     delayed,
		Scheduled:   scheduled,
		Estimated:   estimated,
		Actual:      actual,
		Inbound:     strings.EqualFold(arrCode, p.home),
	}
	if ld.AircraftInfo != nil {
		leg.TailNumber = strings.TrimSpace(ld.AircraftInfo.Registration)
	}

	return leg, nil
}

func (p *Parser) optionalTime(times []operationTime, match func(*operationTime) bool) (*time.Time, error) {
	ot := findTime(times, match)
	if ot == nil {
		return nil, nil
	}
	t, err := p.parseTime(ot.Value)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

func (p *Parser) parseTime(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, fmt.Errorf("empty timestamp")
	}
	for _, l := range timeLayouts {
		var t time.Time
		var err error
		if l.naive {
			t, err = time.ParseInLocation(l.layout, s, p.loc)
		} else {
			t, err = time.Parse(l.layout, s)
		}
		if err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized timestamp %q", s)
}

func findTime(times []operationTime, match func(*operationTime) bool) *operationTime {
	for i := range times {
		if match(&times[i]) {
			return &times[i]
		}
	}
	return nil
}

func isScheduled(ot *operationTime) bool {
	return ot.TimeType == TimeTypeScheduled
}

func isEstimated(ot *operationTime) bool {
	return ot.TimeType == TimeTypeEstimated
}

// isActual matches the touchdown/takeoff actual. Older feed revisions put the
// qualifier in TimeType instead of OperationQualifier.
func isActual(ot *operationTime) bool {
	switch ot.TimeType {
	case QualifierTouchdown, QualifierTakeoff:
		return true
	case TimeTypeActual:
		return ot.OperationQualifier == QualifierTouchdown || ot.OperationQualifier == QualifierTakeoff
	}
	return false
}

// lookupAirport resolves a code against the leg's own airport table
func lookupAirport(info *airportInfo, code string) models.AirportRef {
	ref := models.AirportRef{Code: code, Name: code}
	if info == nil {
		return ref
	}
	for _, a := range info.Airports {
		if a.Code != code {
			continue
		}
		if name := strings.TrimSpace(a.Name); name != "" {
			ref.Name = name
		}
		break
	}
	return ref
}
