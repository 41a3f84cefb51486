package protocol

import (
	"encoding/binary"
	"math"
)

// MoveRawBody is the CmdMoveRaw payload: four signed joystick axes.
type MoveRawBody struct {
	LeftX, LeftY, RightX, RightY int8
}

func (b MoveRawBody) Encode() []byte {
	return []byte{byte(b.LeftX), byte(b.LeftY), byte(b.RightX), byte(b.RightY)}
}

func decodeMoveRaw(b []byte) (Body, error) {
	if err := need(b, 4, "move_raw"); err != nil {
		return nil, err
	}
	return MoveRawBody{
		LeftX:   int8(b[0]),
		LeftY:   int8(b[1]),
		RightX:  int8(b[2]),
		RightY:  int8(b[3]),
	}, nil
}

// RgbLedBody is the CmdRgbLed payload.
type RgbLedBody struct {
	Red, Green, Blue uint8
}

func (b RgbLedBody) Encode() []byte { return []byte{b.Red, b.Green, b.Blue} }

func decodeRgbLed(b []byte) (Body, error) {
	if err := need(b, 3, "rgb_led"); err != nil {
		return nil, err
	}
	return RgbLedBody{Red: b[0], Green: b[1], Blue: b[2]}, nil
}

// XgoActionBody is the CmdXgoAction payload.
type XgoActionBody struct {
	Action uint8
}

func (b XgoActionBody) Encode() []byte { return []byte{b.Action} }

func decodeXgoAction(b []byte) (Body, error) {
	if err := need(b, 1, "xgo_action"); err != nil {
		return nil, err
	}
	return XgoActionBody{Action: b[0]}, nil
}

// AdvertisementExtended carries the calibration/position/battery fields a
// DotBot-kind advertisement may include; see the calibration hand-off.
type AdvertisementExtended struct {
	Calibrated bool
	Direction  int16
	Position   Lh2LocationBody
	Battery    float32
}

// AdvertisementBody is the Advertisement payload: always an application tag,
// optionally (for a DotBot advertising robot) the extended fields above.
type AdvertisementBody struct {
	Application uint8
	Extended    *AdvertisementExtended
}

func (b AdvertisementBody) Encode() []byte {
	out := []byte{b.Application}
	if b.Extended == nil {
		return out
	}
	e := b.Extended
	calBit := byte(0)
	if e.Calibrated {
		calBit = 1
	}
	out = append(out, calBit)
	dir := make([]byte, 2)
	binary.LittleEndian.PutUint16(dir, uint16(e.Direction))
	out = append(out, dir...)
	out = append(out, e.Position.Encode()...)
	batt := make([]byte, 4)
	binary.LittleEndian.PutUint32(batt, float32bits(e.Battery))
	out = append(out, batt...)
	return out
}

func decodeAdvertisement(b []byte) (Body, error) {
	if err := need(b, 1, "advertisement"); err != nil {
		return nil, err
	}
	body := AdvertisementBody{Application: b[0]}
	rest := b[1:]
	if len(rest) == 0 {
		return body, nil
	}
	if err := need(rest, 1+2+12+4, "advertisement (extended)"); err != nil {
		return nil, err
	}
	pos, err := decodeLh2Location(rest[3:15])
	if err != nil {
		return nil, err
	}
	body.Extended = &AdvertisementExtended{
		Calibrated: rest[0] != 0,
		Direction:  int16(binary.LittleEndian.Uint16(rest[1:3])),
		Position:   pos,
		Battery:    float32frombits(binary.LittleEndian.Uint32(rest[15:19])),
	}
	return body, nil
}

// Lh2RawLocationBody is one raw LH2 timing sample, as reported for debugging.
type Lh2RawLocationBody struct {
	Bits            uint64
	PolynomialIndex uint8
	Offset          int8
}

func (b Lh2RawLocationBody) Encode() []byte {
	out := make([]byte, 10)
	binary.LittleEndian.PutUint64(out[0:8], b.Bits)
	out[8] = b.PolynomialIndex
	out[9] = byte(b.Offset)
	return out
}

func decodeLh2RawLocation(b []byte) (Lh2RawLocationBody, error) {
	if err := need(b, 10, "lh2_raw_location"); err != nil {
		return Lh2RawLocationBody{}, err
	}
	return Lh2RawLocationBody{
		Bits:            binary.LittleEndian.Uint64(b[0:8]),
		PolynomialIndex: b[8],
		Offset:          int8(b[9]),
	}, nil
}

// Lh2RawDataBody is a count-prefixed list of raw LH2 samples, debug-only.
type Lh2RawDataBody struct {
	Locations []Lh2RawLocationBody
}

func (b Lh2RawDataBody) Encode() []byte {
	out := []byte{uint8(len(b.Locations))}
	for _, loc := range b.Locations {
		out = append(out, loc.Encode()...)
	}
	return out
}

func decodeLh2RawData(b []byte) (Body, error) {
	if err := need(b, 1, "lh2_raw_data count"); err != nil {
		return nil, err
	}
	count := int(b[0])
	rest := b[1:]
	locs := make([]Lh2RawLocationBody, 0, count)
	for i := 0; i < count; i++ {
		if err := need(rest, 10, "lh2_raw_data element"); err != nil {
			return nil, err
		}
		loc, err := decodeLh2RawLocation(rest[:10])
		if err != nil {
			return nil, err
		}
		locs = append(locs, loc)
		rest = rest[10:]
	}
	return Lh2RawDataBody{Locations: locs}, nil
}

// Lh2LocationBody is a calibrated LH2 position in micro-units.
type Lh2LocationBody struct {
	PosX, PosY, PosZ uint32
}

func (b Lh2LocationBody) Encode() []byte {
	out := make([]byte, 12)
	binary.LittleEndian.PutUint32(out[0:4], b.PosX)
	binary.LittleEndian.PutUint32(out[4:8], b.PosY)
	binary.LittleEndian.PutUint32(out[8:12], b.PosZ)
	return out
}

func decodeLh2Location(b []byte) (Lh2LocationBody, error) {
	if err := need(b, 12, "lh2_location"); err != nil {
		return Lh2LocationBody{}, err
	}
	return Lh2LocationBody{
		PosX: binary.LittleEndian.Uint32(b[0:4]),
		PosY: binary.LittleEndian.Uint32(b[4:8]),
		PosZ: binary.LittleEndian.Uint32(b[8:12]),
	}, nil
}

// GpsPositionBody is a GPS fix in micro-degrees.
type GpsPositionBody struct {
	Latitude, Longitude int32
}

func (b GpsPositionBody) Encode() []byte {
	out := make([]byte, 8)
	binary.LittleEndian.PutUint32(out[0:4], uint32(b.Latitude))
	binary.LittleEndian.PutUint32(out[4:8], uint32(b.Longitude))
	return out
}

func decodeGpsPosition(b []byte) (GpsPositionBody, error) {
	if err := need(b, 8, "gps_position"); err != nil {
		return GpsPositionBody{}, err
	}
	return GpsPositionBody{
		Latitude:  int32(binary.LittleEndian.Uint32(b[0:4])),
		Longitude: int32(binary.LittleEndian.Uint32(b[4:8])),
	}, nil
}

// SailBotDataBody is telemetry specific to sail-driven robots.
type SailBotDataBody struct {
	Direction          uint16
	Latitude, Longitude int32
	Wind               uint16
	Rudder, Sail       int8
}

func (b SailBotDataBody) Encode() []byte {
	out := make([]byte, 14)
	binary.LittleEndian.PutUint16(out[0:2], b.Direction)
	binary.LittleEndian.PutUint32(out[2:6], uint32(b.Latitude))
	binary.LittleEndian.PutUint32(out[6:10], uint32(b.Longitude))
	binary.LittleEndian.PutUint16(out[10:12], b.Wind)
	out[12] = byte(b.Rudder)
	out[13] = byte(b.Sail)
	return out
}

func decodeSailBotData(b []byte) (Body, error) {
	if err := need(b, 14, "sailbot_data"); err != nil {
		return nil, err
	}
	return SailBotDataBody{
		Direction: binary.LittleEndian.Uint16(b[0:2]),
		Latitude:  int32(binary.LittleEndian.Uint32(b[2:6])),
		Longitude: int32(binary.LittleEndian.Uint32(b[6:10])),
		Wind:      binary.LittleEndian.Uint16(b[10:12]),
		Rudder:    int8(b[12]),
		Sail:      int8(b[13]),
	}, nil
}

// Lh2WaypointsBody is a threshold-gated, count-prefixed LH2 waypoint list.
type Lh2WaypointsBody struct {
	Threshold uint8
	Waypoints []Lh2LocationBody
}

func (b Lh2WaypointsBody) Encode() []byte {
	out := []byte{b.Threshold, uint8(len(b.Waypoints))}
	for _, wp := range b.Waypoints {
		out = append(out, wp.Encode()...)
	}
	return out
}

func decodeLh2Waypoints(b []byte) (Body, error) {
	if err := need(b, 2, "lh2_waypoints header"); err != nil {
		return nil, err
	}
	threshold, count := b[0], int(b[1])
	rest := b[2:]
	wps := make([]Lh2LocationBody, 0, count)
	for i := 0; i < count; i++ {
		if err := need(rest, 12, "lh2_waypoints element"); err != nil {
			return nil, err
		}
		wp, err := decodeLh2Location(rest[:12])
		if err != nil {
			return nil, err
		}
		wps = append(wps, wp)
		rest = rest[12:]
	}
	return Lh2WaypointsBody{Threshold: threshold, Waypoints: wps}, nil
}

// GpsWaypointsBody is a threshold-gated, count-prefixed GPS waypoint list.
type GpsWaypointsBody struct {
	Threshold uint8
	Waypoints []GpsPositionBody
}

func (b GpsWaypointsBody) Encode() []byte {
	out := []byte{b.Threshold, uint8(len(b.Waypoints))}
	for _, wp := range b.Waypoints {
		out = append(out, wp.Encode()...)
	}
	return out
}

func decodeGpsWaypoints(b []byte) (Body, error) {
	if err := need(b, 2, "gps_waypoints header"); err != nil {
		return nil, err
	}
	threshold, count := b[0], int(b[1])
	rest := b[2:]
	wps := make([]GpsPositionBody, 0, count)
	for i := 0; i < count; i++ {
		if err := need(rest, 8, "gps_waypoints element"); err != nil {
			return nil, err
		}
		wp, err := decodeGpsPosition(rest[:8])
		if err != nil {
			return nil, err
		}
		wps = append(wps, wp)
		rest = rest[8:]
	}
	return GpsWaypointsBody{Threshold: threshold, Waypoints: wps}, nil
}

// ControlModeBody carries the robot's commanded control mode.
type ControlModeBody struct {
	Mode uint8
}

func (b ControlModeBody) Encode() []byte { return []byte{b.Mode} }

func decodeControlMode(b []byte) (Body, error) {
	if err := need(b, 1, "control_mode"); err != nil {
		return nil, err
	}
	return ControlModeBody{Mode: b[0]}, nil
}

// DotBotDataBody carries debug-only telemetry: heading plus raw LH2 samples.
// It does not itself update a robot's stored position (spec §4.3 step 5).
type DotBotDataBody struct {
	Direction int16
	Lh2Raw    Lh2RawDataBody
}

func (b DotBotDataBody) Encode() []byte {
	out := make([]byte, 2)
	binary.LittleEndian.PutUint16(out, uint16(b.Direction))
	return append(out, b.Lh2Raw.Encode()...)
}

func decodeDotBotData(b []byte) (Body, error) {
	if err := need(b, 2, "dotbot_data"); err != nil {
		return nil, err
	}
	direction := int16(binary.LittleEndian.Uint16(b[0:2]))
	raw, err := decodeLh2RawData(b[2:])
	if err != nil {
		return nil, err
	}
	return DotBotDataBody{Direction: direction, Lh2Raw: raw.(Lh2RawDataBody)}, nil
}

// Lh2CalibrationBody is the lighthouse homography artifact sent to a robot
// that has advertised calibrated=false, per the calibration hand-off. The
// homography itself is opaque to the controller (calibration linear algebra
// is an external collaborator's concern).
type Lh2CalibrationBody struct {
	Index      uint32
	Homography []byte
}

func (b Lh2CalibrationBody) Encode() []byte {
	out := make([]byte, 4)
	binary.LittleEndian.PutUint32(out, b.Index)
	return append(out, b.Homography...)
}

func decodeLh2Calibration(b []byte) (Body, error) {
	if err := need(b, 4, "lh2_calibration"); err != nil {
		return nil, err
	}
	homography := make([]byte, len(b)-4)
	copy(homography, b[4:])
	return Lh2CalibrationBody{Index: binary.LittleEndian.Uint32(b[0:4]), Homography: homography}, nil
}

func float32bits(f float32) uint32 {
	return math.Float32bits(f)
}

func float32frombits(u uint32) float32 {
	return math.Float32frombits(u)
}
