package netbios

import (
	"bytes"
	"testing"
)

func TestSessionPacketRoundTrip(t *testing.T) {
	cases := []struct {
		name string
		pkt  SessionPacket
	}{
		{"session message", SessionPacket{Type: SessionMessageType, Payload: []byte{0xFE, 'S', 'M', 'B', 1, 2, 3}}},
		{"keep alive", SessionPacket{Type: SessionKeepAliveType, Payload: []byte{}}},
		{"negative response", SessionPacket{Type: NegativeSessionResponseType, Payload: []byte{0x82}}},
		{"positive response", SessionPacket{Type: PositiveSessionResponseType, Payload: []byte{}}},
		{"large payload", SessionPacket{Type: SessionMessageType, Payload: bytes.Repeat([]byte{0xAB}, 0x1ABCD)}},
	}

	for _, tc := range cases {
		raw, err := tc.pkt.Marshal()
		if err != nil {
			t.Fatalf("%s: marshal: %v", tc.name, err)
		}
		var decoded SessionPacket
		if err := decoded.Unmarshal(raw); err != nil {
			t.Fatalf("%s: unmarshal: %v", tc.name, err)
		}
		if decoded.Type != tc.pkt.Type {
			t.Errorf("%s: type 0x%02X, want 0x%02X", tc.name, decoded.Type, tc.pkt.Type)
		}
		if !bytes.Equal(decoded.Payload, tc.pkt.Payload) {
			t.Errorf("%s: payload mismatch", tc.name)
		}
		// Bit-for-bit stability of re-encoding.
		raw2, err := decoded.Marshal()
		if err != nil {
			t.Fatalf("%s: re-marshal: %v", tc.name, err)
		}
		if !bytes.Equal(raw, raw2) {
			t.Errorf("%s: re-encoded packet differs", tc.name)
		}
	}
}

func TestSessionPacketLengthExtension(t *testing.T) {
	pkt := SessionPacket{Type: SessionMessageType, Payload: make([]byte, 0x10001)}
	raw, err := pkt.Marshal()
	if err != nil {
		t.Fatal(err)
	}
	if raw[1]&0x01 == 0 {
		t.Error("expected length extension flag for 17-bit length")
	}

	pkt.Payload = make([]byte, maxPayloadLength+1)
	if _, err := pkt.Marshal(); err == nil {
		t.Error("expected error for payload above 17-bit limit")
	}
}

func TestSessionPacketUnknownType(t *testing.T) {
	var pkt SessionPacket
	err := pkt.Unmarshal([]byte{0x99, 0, 0, 0})
	if err == nil {
		t.Fatal("expected error for unknown packet type")
	}
}

func TestSessionRequestPayload(t *testing.T) {
	pkt := NewSessionRequest(CalledNameWildcard, "WORKSTATION")
	if pkt.Type != SessionRequestType {
		t.Fatalf("type 0x%02X", pkt.Type)
	}
	// Two second-level encoded names, 34 bytes each.
	if len(pkt.Payload) != 68 {
		t.Fatalf("payload length %d, want 68", len(pkt.Payload))
	}

	name, suffix, ok := DecodeName(pkt.Payload[:34])
	if !ok || name != CalledNameWildcard || suffix != SuffixFileServerService {
		t.Errorf("called name %q suffix 0x%02X", name, suffix)
	}
	name, suffix, ok = DecodeName(pkt.Payload[34:])
	if !ok || name != "WORKSTATION" || suffix != SuffixWorkstationService {
		t.Errorf("calling name %q suffix 0x%02X", name, suffix)
	}
}

func TestBufferReassembly(t *testing.T) {
	msg := SessionPacket{Type: SessionMessageType, Payload: []byte("payload-one")}
	raw, _ := msg.Marshal()
	keepAlive, _ := (&SessionPacket{Type: SessionKeepAliveType}).Marshal()
	stream := append(append([]byte{}, raw...), keepAlive...)

	var buf Buffer
	// Feed the stream one byte at a time; no packet may surface early.
	for i, b := range stream {
		if i < len(raw) && buf.HasPacket() {
			t.Fatalf("packet surfaced after %d bytes", i)
		}
		buf.Append([]byte{b})
	}

	if !buf.HasPacket() {
		t.Fatal("expected a complete packet")
	}
	pkt, err := buf.Next()
	if err != nil {
		t.Fatal(err)
	}
	if pkt.Type != SessionMessageType || !bytes.Equal(pkt.Payload, []byte("payload-one")) {
		t.Errorf("first packet wrong: %+v", pkt)
	}

	if !buf.HasPacket() {
		t.Fatal("expected the keep-alive to be buffered")
	}
	pkt, err = buf.Next()
	if err != nil {
		t.Fatal(err)
	}
	if pkt.Type != SessionKeepAliveType {
		t.Errorf("second packet type 0x%02X", pkt.Type)
	}
	if buf.Len() != 0 {
		t.Errorf("%d leftover bytes", buf.Len())
	}
}

func TestBufferMalformedPacketFatal(t *testing.T) {
	var buf Buffer
	buf.Append([]byte{0x99, 0x00, 0x00, 0x01, 0xAA})
	if !buf.HasPacket() {
		t.Fatal("length is satisfied, packet should be complete")
	}
	if _, err := buf.Next(); err == nil {
		t.Fatal("expected decode error for unknown type")
	}
}

func TestEncodeNamePadding(t *testing.T) {
	encoded := EncodeName("srv", SuffixFileServerService)
	if len(encoded) != 34 {
		t.Fatalf("encoded length %d, want 34", len(encoded))
	}
	name, suffix, ok := DecodeName(encoded)
	if !ok {
		t.Fatal("decode failed")
	}
	if name != "SRV" {
		t.Errorf("name %q, want SRV", name)
	}
	if suffix != SuffixFileServerService {
		t.Errorf("suffix 0x%02X", suffix)
	}
}
