// Package livefeed talks to the live-position radar service. Requests and responses are
// protobuf messages carried in gRPC-web frames.
package livefeed

import (
	"encoding/binary"
	"fmt"
	"math"

	"google.golang.org/protobuf/encoding/protowire"
)

// gRPC-web frame flags
const (
	frameData     byte = 0x00
	frameTrailers byte = 0x80
	frameHeader        = 5 // flag byte + 4-byte big-endian length
)

// LiveFeedRequest field numbers
const (
	reqBounds    protowire.Number = 1
	reqSettings  protowire.Number = 2
	reqLimit     protowire.Number = 7
	reqMaxAge    protowire.Number = 8
	reqFieldMask protowire.Number = 10
)

// Bounds field numbers
const (
	boundsNorth protowire.Number = 1
	boundsSouth protowire.Number = 2
	boundsWest  protowire.Number = 3
	boundsEast  protowire.Number = 4
)

// VisibilitySettings field numbers
const (
	settingsSources  protowire.Number = 1
	settingsServices protowire.Number = 2
	settingsTraffic  protowire.Number = 3
)

const (
	defaultLimit  = 1500
	defaultMaxAge = 14400

	// Every data source and service class; all traffic types
	sourceCount  = 11
	serviceCount = 12
	trafficAll   = 3
)

// Extra fields requested so the response carries route and aircraft type
var fieldMaskPaths = []string{"flight", "reg", "route", "type"}

// BoundingBox is the geographic rectangle flights are requested for
type BoundingBox struct {
	North float64
	South float64
	East  float64
	West  float64
}

// Contains reports whether a position lies inside the box
func (b BoundingBox) Contains(lat, lon float64) bool {
	return lat <= b.North && lat >= b.South && lon >= b.West && lon <= b.East
}

// EncodeRequest builds the LiveFeedRequest protobuf message for a bounding box
func EncodeRequest(box BoundingBox) []byte {
	var bounds []byte
	bounds = appendFloat(bounds, boundsNorth, box.North)
	bounds = appendFloat(bounds, boundsSouth, box.South)
	bounds = appendFloat(bounds, boundsWest, box.West)
	bounds = appendFloat(bounds, boundsEast, box.East)

	var settings []byte
	settings = appendPackedRange(settings, settingsSources, sourceCount)
	settings = appendPackedRange(settings, settingsServices, serviceCount)
	settings = protowire.AppendTag(settings, settingsTraffic, protowire.VarintType)
	settings = protowire.AppendVarint(settings, trafficAll)

	var mask []byte
	for _, p := range fieldMaskPaths {
		mask = protowire.AppendTag(mask, 1, protowire.BytesType)
		mask = protowire.AppendString(mask, p)
	}

	var msg []byte
	msg = protowire.AppendTag(msg, reqBounds, protowire.BytesType)
	msg = protowire.AppendBytes(msg, bounds)
	msg = protowire.AppendTag(msg, reqSettings, protowire.BytesType)
	msg = protowire.AppendBytes(msg, settings)
	msg = protowire.AppendTag(msg, reqLimit, protowire.VarintType)
	msg = protowire.AppendVarint(msg, defaultLimit)
	msg = protowire.AppendTag(msg, reqMaxAge, protowire.VarintType)
	msg = protowire.AppendVarint(msg, defaultMaxAge)
	msg = protowire.AppendTag(msg, reqFieldMask, protowire.BytesType)
	msg = protowire.AppendBytes(msg, mask)
	return msg
}

// Frame wraps a protobuf message in a single gRPC-web data frame
func Frame(msg []byte) []byte {
	out := make([]byte, frameHeader, frameHeader+len(msg))
	out[0] = frameData
	binary.BigEndian.PutUint32(out[1:], uint32(len(msg)))
	return append(out, msg...)
}

// Unframe returns the payload of the first data frame, ignoring trailer frames
func Unframe(body []byte) ([]byte, error) {
	for len(body) > 0 {
		if len(body) < frameHeader {
			return nil, fmt.Errorf("truncated frame header: %d bytes", len(body))
		}
		flag := body[0]
		n := binary.BigEndian.Uint32(body[1:frameHeader])
		body = body[frameHeader:]
		if uint64(n) > uint64(len(body)) {
			return nil, fmt.Errorf("frame length %d exceeds remaining %d bytes", n, len(body))
		}
		payload := body[:n]
		body = body[n:]
		if flag&frameTrailers != 0 {
			continue
		}
		return payload, nil
	}
	return nil, fmt.Errorf("no data frame in response")
}

func appendFloat(b []byte, num protowire.Number, v float64) []byte {
	b = protowire.AppendTag(b, num, protowire.Fixed32Type)
	return protowire.AppendFixed32(b, math.Float32bits(float32(v)))
}

func appendPackedRange(b []byte, num protowire.Number, n int) []byte {
	var packed []byte
	for i := 0; i < n; i++ {
		packed = protowire.AppendVarint(packed, uint64(i))
	}
	b = protowire.AppendTag(b, num, protowire.BytesType)
	return protowire.AppendBytes(b, packed)
}
