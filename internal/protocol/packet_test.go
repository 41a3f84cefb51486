package protocol

import (
	"bytes"
	"testing"
)

func TestHeaderEncodeDecodeRoundTrip(t *testing.T) {
	h := Header{Version: Version, Kind: KindData, Destination: 0x1122334455667788, Source: 0x0}
	encoded := h.encode()
	if len(encoded) != HeaderSize {
		t.Fatalf("header length = %d, want %d", len(encoded), HeaderSize)
	}
	got, err := decodeHeader(encoded)
	if err != nil {
		t.Fatalf("decodeHeader: %v", err)
	}
	if got != h {
		t.Errorf("decodeHeader() = %+v, want %+v", got, h)
	}
}

func TestHeaderFieldOrder(t *testing.T) {
	h := Header{Version: 1, Kind: KindData, Destination: 0x1122334455667788, Source: 0}
	encoded := h.encode()
	want := []byte{
		0x01,                               // version
		0x05,                               // kind (Data)
		0x88, 0x77, 0x66, 0x55, 0x44, 0x33, 0x22, 0x11, // destination, little-endian
		0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, // source
	}
	if !bytes.Equal(encoded, want) {
		t.Errorf("header bytes = % x, want % x", encoded, want)
	}
}

func TestRejectsUnsupportedVersion(t *testing.T) {
	h := Header{Version: 9, Kind: KindData, Destination: 1, Source: 0}
	encoded := h.encode()
	_, err := decodeHeader(encoded)
	perr, ok := err.(*Error)
	if !ok || perr.Kind != HeaderError {
		t.Fatalf("decodeHeader with bad version: err = %v, want HeaderError", err)
	}
}

func TestCmdMoveRawEncode(t *testing.T) {
	frame := Frame{
		Header:      Header{Version: Version, Kind: KindData, Destination: 0x1122334455667788, Source: 0},
		PayloadType: CmdMoveRaw,
		Body:        MoveRawBody{LeftX: -10, LeftY: -10, RightX: -10, RightY: -10},
	}
	encoded := EncodeFrame(frame)
	tail := encoded[len(encoded)-5:]
	want := []byte{byte(CmdMoveRaw), 0xF6, 0xF6, 0xF6, 0xF6}
	if !bytes.Equal(tail, want) {
		t.Errorf("payload-type+body = % x, want % x", tail, want)
	}
}

func TestFrameRoundTrip(t *testing.T) {
	cases := []Frame{
		{
			Header:      Header{Version: Version, Kind: KindData, Destination: 1, Source: 2},
			PayloadType: CmdMoveRaw,
			Body:        MoveRawBody{LeftX: 1, LeftY: -2, RightX: 3, RightY: -4},
		},
		{
			Header:      Header{Version: Version, Kind: KindData, Destination: 1, Source: 2},
			PayloadType: CmdRgbLed,
			Body:        RgbLedBody{Red: 10, Green: 20, Blue: 30},
		},
		{
			Header:      Header{Version: Version, Kind: KindBeacon, Destination: 1, Source: 2},
			PayloadType: AdvertisementType,
			Body:        AdvertisementBody{Application: 0},
		},
		{
			Header:      Header{Version: Version, Kind: KindData, Destination: 1, Source: 2},
			PayloadType: AdvertisementType,
			Body: AdvertisementBody{
				Application: 0,
				Extended: &AdvertisementExtended{
					Calibrated: true,
					Direction:  90,
					Position:   Lh2LocationBody{PosX: 500000, PosY: 500000, PosZ: 0},
					Battery:    3.7,
				},
			},
		},
		{
			Header:      Header{Version: Version, Kind: KindData, Destination: 1, Source: 2},
			PayloadType: GpsPositionType,
			Body:        GpsPositionBody{Latitude: 48858370, Longitude: 2294481},
		},
		{
			Header:      Header{Version: Version, Kind: KindData, Destination: 1, Source: 2},
			PayloadType: Lh2WaypointsType,
			Body: Lh2WaypointsBody{
				Threshold: 5,
				Waypoints: []Lh2LocationBody{
					{PosX: 1, PosY: 2, PosZ: 3},
					{PosX: 4, PosY: 5, PosZ: 6},
				},
			},
		},
	}

	for i, f := range cases {
		encoded := EncodeFrame(f)
		got, err := DecodeFrame(encoded)
		if err != nil {
			t.Fatalf("case %d: DecodeFrame: %v", i, err)
		}
		if got.Header != f.Header || got.PayloadType != f.PayloadType {
			t.Errorf("case %d: header/type mismatch: got %+v/%v, want %+v/%v", i, got.Header, got.PayloadType, f.Header, f.PayloadType)
		}
		reencoded := EncodeFrame(got)
		if !bytes.Equal(reencoded, encoded) {
			t.Errorf("case %d: re-encode mismatch: % x vs % x", i, reencoded, encoded)
		}
	}
}

func TestDecodeShortPayload(t *testing.T) {
	f := Frame{
		Header:      Header{Version: Version, Kind: KindData, Destination: 1, Source: 2},
		PayloadType: CmdMoveRaw,
		Body:        MoveRawBody{},
	}
	encoded := EncodeFrame(f)
	truncated := encoded[:len(encoded)-2]
	_, err := DecodeFrame(truncated)
	perr, ok := err.(*Error)
	if !ok || perr.Kind != ShortPayload {
		t.Fatalf("DecodeFrame(truncated): err = %v, want ShortPayload", err)
	}
}

func TestDecodeUnsupportedPayloadType(t *testing.T) {
	h := Header{Version: Version, Kind: KindData, Destination: 1, Source: 2}
	encoded := append(h.encode(), 0xEE) // unknown payload type tag
	_, err := DecodeFrame(encoded)
	perr, ok := err.(*Error)
	if !ok || perr.Kind != UnsupportedPayload {
		t.Fatalf("DecodeFrame(unknown type): err = %v, want UnsupportedPayload", err)
	}
}
