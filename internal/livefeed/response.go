package livefeed

import (
	"fmt"
	"math"
	"strconv"

	"google.golang.org/protobuf/encoding/protowire"
)

// LiveFeedResponse field numbers
const (
	respFlights protowire.Number = 1
)

// Flight field numbers
const (
	flightID        protowire.Number = 1
	flightLat       protowire.Number = 2
	flightLon       protowire.Number = 3
	flightTrack     protowire.Number = 4
	flightAlt       protowire.Number = 5
	flightSpeed     protowire.Number = 6
	flightTimestamp protowire.Number = 9
	flightOnGround  protowire.Number = 10
	flightCallsign  protowire.Number = 11
	flightExtraInfo protowire.Number = 13
)

// ExtraInfo field numbers
const (
	extraFlight protowire.Number = 1
	extraReg    protowire.Number = 2
	extraRoute  protowire.Number = 3
	extraType   protowire.Number = 4
)

// Route field numbers
const (
	routeFrom protowire.Number = 1
	routeTo   protowire.Number = 2
)

// Flight is one aircraft position from the live feed
type Flight struct {
	ID           uint32
	Latitude     float64
	Longitude    float64
	Track        uint32
	Altitude     int32
	Speed        int32
	Timestamp    uint32 // Unix seconds
	OnGround     bool
	Callsign     string
	FlightNumber string
	Registration string
	From         string // Origin IATA code
	To           string // Destination IATA code
	AircraftType string // Type designator, e.g. B738
}

// Key returns the stable per-flight identifier
func (f *Flight) Key() string {
	return strconv.FormatUint(uint64(f.ID), 10)
}

// ParseResponse decodes a LiveFeedResponse message (already unframed)
func ParseResponse(msg []byte) ([]Flight, error) {
	var flights []Flight
	err := walk(msg, func(num protowire.Number, typ protowire.Type, v []byte, u uint64) error {
		if num != respFlights || typ != protowire.BytesType {
			return nil
		}
		f, err := parseFlight(v)
		if err != nil {
			return fmt.Errorf("flight %d: %w", len(flights), err)
		}
		flights = append(flights, f)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return flights, nil
}

func parseFlight(msg []byte) (Flight, error) {
	var f Flight
	err := walk(msg, func(num protowire.Number, typ protowire.Type, v []byte, u uint64) error {
		switch num {
		case flightID:
			f.ID = uint32(u)
		case flightLat:
			f.Latitude = float64(math.Float32frombits(uint32(u)))
		case flightLon:
			f.Longitude = float64(math.Float32frombits(uint32(u)))
		case flightTrack:
			f.Track = uint32(u)
		case flightAlt:
			f.Altitude = int32(u)
		case flightSpeed:
			f.Speed = int32(u)
		case flightTimestamp:
			f.Timestamp = uint32(u)
		case flightOnGround:
			f.OnGround = u != 0
		case flightCallsign:
			f.Callsign = string(v)
		case flightExtraInfo:
			return parseExtraInfo(v, &f)
		}
		return nil
	})
	return f, err
}

func parseExtraInfo(msg []byte, f *Flight) error {
	return walk(msg, func(num protowire.Number, typ protowire.Type, v []byte, u uint64) error {
		switch num {
		case extraFlight:
			f.FlightNumber = string(v)
		case extraReg:
			f.Registration = string(v)
		case extraType:
			f.AircraftType = string(v)
		case extraRoute:
			return walk(v, func(num protowire.Number, typ protowire.Type, v []byte, u uint64) error {
				switch num {
				case routeFrom:
					f.From = string(v)
				case routeTo:
					f.To = string(v)
				}
				return nil
			})
		}
		return nil
	})
}

// walk visits every field of a protobuf message. Varint and fixed-width values arrive in u,
// length-delimited values in v.
func walk(msg []byte, fn func(num protowire.Number, typ protowire.Type, v []byte, u uint64) error) error {
	for len(msg) > 0 {
		num, typ, n := protowire.ConsumeTag(msg)
		if n < 0 {
			return protowire.ParseError(n)
		}
		msg = msg[n:]

		var v []byte
		var u uint64
		switch typ {
		case protowire.VarintType:
			u, n = protowire.ConsumeVarint(msg)
		case protowire.Fixed32Type:
			var x uint32
			x, n = protowire.ConsumeFixed32(msg)
			u = uint64(x)
		case protowire.Fixed64Type:
			u, n = protowire.ConsumeFixed64(msg)
		case protowire.BytesType:
			v, n = protowire.ConsumeBytes(msg)
		default:
			n = protowire.ConsumeFieldValue(num, typ, msg)
		}
		if n < 0 {
			return protowire.ParseError(n)
		}
		msg = msg[n:]

		if err := fn(num, typ, v, u); err != nil {
			return err
		}
	}
	return nil
}
