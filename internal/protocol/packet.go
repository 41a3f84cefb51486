// Package protocol implements the binary packet format that rides inside an
// HDLC frame: an 18-byte header followed by a one-byte payload-type tag and a
// typed payload body. All multi-byte integers are little-endian.
package protocol

import "encoding/binary"

// Version is the only protocol version this implementation accepts. Traffic
// from the older 8/10-byte-header generations is rejected with HeaderError
// rather than guessed at.
const Version uint8 = 1

// HeaderSize is the fixed size, in bytes, of a packet header.
const HeaderSize = 18

// PacketKind is the header's "kind" field.
type PacketKind uint8

const (
	KindBeacon       PacketKind = 1
	KindJoinRequest  PacketKind = 2
	KindJoinResponse PacketKind = 3
	KindLeave        PacketKind = 4
	KindData         PacketKind = 5
)

// Header is the fixed leading portion of every packet.
type Header struct {
	Version     uint8
	Kind        PacketKind
	Destination uint64
	Source      uint64
}

func (h Header) encode() []byte {
	buf := make([]byte, HeaderSize)
	buf[0] = h.Version
	buf[1] = byte(h.Kind)
	binary.LittleEndian.PutUint64(buf[2:10], h.Destination)
	binary.LittleEndian.PutUint64(buf[10:18], h.Source)
	return buf
}

func decodeHeader(b []byte) (Header, error) {
	if len(b) < HeaderSize {
		return Header{}, &Error{Kind: HeaderError, Msg: "header: short buffer"}
	}
	h := Header{
		Version:     b[0],
		Kind:        PacketKind(b[1]),
		Destination: binary.LittleEndian.Uint64(b[2:10]),
		Source:      binary.LittleEndian.Uint64(b[10:18]),
	}
	if h.Version != Version {
		return Header{}, &Error{Kind: HeaderError, Msg: "header: unsupported protocol version"}
	}
	return h, nil
}

// PayloadType tags the body that follows the header.
type PayloadType uint8

const (
	CmdMoveRaw          PayloadType = 0
	CmdRgbLed           PayloadType = 1
	Lh2RawLocationType  PayloadType = 2
	Lh2LocationType     PayloadType = 3
	AdvertisementType   PayloadType = 4
	GpsPositionType     PayloadType = 5
	DotBotDataType      PayloadType = 6
	ControlModeType     PayloadType = 7
	Lh2WaypointsType    PayloadType = 8
	GpsWaypointsType    PayloadType = 9
	SailBotDataType     PayloadType = 10
	CmdXgoAction        PayloadType = 11
	Lh2ProcessedData    PayloadType = 12
	Lh2RawDataType      PayloadType = 13
	InvalidPayloadType  PayloadType = 14
	Lh2CalibrationType  PayloadType = 15
	DotBotSimulatorData PayloadType = 250
)

// Body is any decoded payload body; each concrete type below implements it.
type Body interface {
	Encode() []byte
}

// Frame is a fully parsed packet: header, payload-type tag, and body.
type Frame struct {
	Header      Header
	PayloadType PayloadType
	Body        Body
}

// EncodeFrame serializes a frame to its on-wire byte representation
// (unframed — HDLC encoding is a separate step, see package hdlc).
func EncodeFrame(f Frame) []byte {
	out := f.Header.encode()
	out = append(out, byte(f.PayloadType))
	out = append(out, f.Body.Encode()...)
	return out
}

// DecodeFrame parses an unframed packet byte string. Fails with HeaderError
// on a bad version, UnsupportedPayload on an unknown type tag, or
// ShortPayload if the declared body is longer than the remaining bytes.
func DecodeFrame(b []byte) (Frame, error) {
	header, err := decodeHeader(b)
	if err != nil {
		return Frame{}, err
	}
	rest := b[HeaderSize:]
	if len(rest) < 1 {
		return Frame{}, &Error{Kind: ShortPayload, Msg: "missing payload-type byte"}
	}
	pt := PayloadType(rest[0])
	rest = rest[1:]

	decode, ok := decoders[pt]
	if !ok {
		return Frame{}, &Error{Kind: UnsupportedPayload, Msg: "unknown payload type"}
	}
	body, err := decode(rest)
	if err != nil {
		return Frame{}, err
	}
	return Frame{Header: header, PayloadType: pt, Body: body}, nil
}

type decodeFunc func([]byte) (Body, error)

var decoders = map[PayloadType]decodeFunc{
	CmdMoveRaw:         decodeMoveRaw,
	CmdRgbLed:          decodeRgbLed,
	CmdXgoAction:       decodeXgoAction,
	AdvertisementType:  decodeAdvertisement,
	Lh2RawLocationType: wrapLh2RawLocation,
	Lh2RawDataType:     decodeLh2RawData,
	Lh2LocationType:    wrapLh2Location,
	GpsPositionType:    wrapGpsPosition,
	SailBotDataType:    decodeSailBotData,
	Lh2WaypointsType:   decodeLh2Waypoints,
	GpsWaypointsType:   decodeGpsWaypoints,
	ControlModeType:    decodeControlMode,
	DotBotDataType:     decodeDotBotData,
	Lh2CalibrationType: decodeLh2Calibration,
}

func wrapLh2RawLocation(b []byte) (Body, error) {
	v, err := decodeLh2RawLocation(b)
	if err != nil {
		return nil, err
	}
	return v, nil
}

func wrapLh2Location(b []byte) (Body, error) {
	v, err := decodeLh2Location(b)
	if err != nil {
		return nil, err
	}
	return v, nil
}

func wrapGpsPosition(b []byte) (Body, error) {
	v, err := decodeGpsPosition(b)
	if err != nil {
		return nil, err
	}
	return v, nil
}

func need(b []byte, n int, what string) error {
	if len(b) < n {
		return &Error{Kind: ShortPayload, Msg: "short payload: " + what}
	}
	return nil
}
