package hdlc

import (
	"bytes"
	"testing"
)

func TestEncodeTestVector(t *testing.T) {
	got := Encode([]byte("test"))
	want := []byte{0x7E, 0x74, 0x65, 0x73, 0x74, 0x88, 0x07, 0x7E}
	if !bytes.Equal(got, want) {
		t.Errorf("Encode(test) = % x, want % x", got, want)
	}
}

func TestDecodeTestVector(t *testing.T) {
	frame := []byte{0x7E, 0x74, 0x65, 0x73, 0x74, 0x88, 0x07, 0x7E}
	d := NewDecoder()
	var state State
	for _, b := range frame {
		state = d.HandleByte(b)
	}
	if state != Ready {
		t.Fatalf("state after frame = %v, want Ready", state)
	}
	payload, err := d.Payload()
	if err != nil {
		t.Fatalf("Payload() error = %v", err)
	}
	if string(payload) != "test" {
		t.Errorf("Payload() = %q, want %q", payload, "test")
	}
	if d.State() != Idle {
		t.Errorf("state after Payload() = %v, want Idle", d.State())
	}
}

func TestRoundTrip(t *testing.T) {
	cases := [][]byte{
		{},
		[]byte("a"),
		{0x7E, 0x7D, 0x00, 0xFF},
		bytes.Repeat([]byte{0xAB}, 200),
	}
	for _, payload := range cases {
		framed := Encode(payload)
		d := NewDecoder()
		var state State
		for _, b := range framed {
			state = d.HandleByte(b)
		}
		if state != Ready {
			t.Fatalf("Encode(% x): state = %v, want Ready", payload, state)
		}
		got, err := d.Payload()
		if err != nil {
			t.Fatalf("Payload() error = %v", err)
		}
		if !bytes.Equal(got, payload) && !(len(got) == 0 && len(payload) == 0) {
			t.Errorf("round trip % x -> % x", payload, got)
		}
	}
}

func TestIdleIgnoresNonFlag(t *testing.T) {
	d := NewDecoder()
	for _, b := range []byte{0x01, 0x02, 0xFF} {
		if s := d.HandleByte(b); s != Idle {
			t.Fatalf("HandleByte(%x) = %v, want Idle", b, s)
		}
	}
	if s := d.HandleByte(flagByte); s != Receiving {
		t.Fatalf("HandleByte(flag) = %v, want Receiving", s)
	}
}

func TestCorruptedFCSIsSoftFailure(t *testing.T) {
	frame := Encode([]byte("test"))
	frame[len(frame)-2] ^= 0xFF // flip a byte of the FCS
	d := NewDecoder()
	var state State
	for _, b := range frame {
		state = d.HandleByte(b)
	}
	if state != Ready {
		t.Fatalf("state = %v, want Ready", state)
	}
	payload, err := d.Payload()
	if err != nil {
		t.Fatalf("Payload() error = %v, want nil (soft failure)", err)
	}
	if len(payload) != 0 {
		t.Errorf("Payload() = % x, want empty on bad FCS", payload)
	}
	if d.State() != Idle {
		t.Errorf("state after bad-FCS Payload() = %v, want Idle", d.State())
	}
}

func TestPayloadBeforeReadyFails(t *testing.T) {
	d := NewDecoder()
	d.HandleByte(flagByte)
	d.HandleByte('a')
	if _, err := d.Payload(); err != ErrIncompleteFrame {
		t.Errorf("Payload() before Ready: err = %v, want ErrIncompleteFrame", err)
	}
}

func TestBackToBackFrames(t *testing.T) {
	frame1 := Encode([]byte("aa"))
	frame2 := Encode([]byte("bb"))
	combined := append(append([]byte{}, frame1...), frame2...)

	d := NewDecoder()
	var payloads [][]byte
	for _, b := range combined {
		if d.HandleByte(b) == Ready {
			p, _ := d.Payload()
			payloads = append(payloads, p)
		}
	}
	if len(payloads) != 2 {
		t.Fatalf("got %d payloads, want 2", len(payloads))
	}
	if string(payloads[0]) != "aa" || string(payloads[1]) != "bb" {
		t.Errorf("payloads = %q, %q", payloads[0], payloads[1])
	}
}
