package smb1

import (
	"bytes"
	"testing"
)

func TestMessageRoundTrip(t *testing.T) {
	msg := &Message{
		Params: []byte{0xFF, 0x00, 0x12, 0x34},
		Data:   []byte("hello smb1"),
	}
	msg.Header.Protocol = SMB1ProtocolID
	msg.Header.Command = CommandReadAndX
	msg.Header.Flags = FlagsCaseInsensitive | FlagsCanonicalized
	msg.Header.Flags2 = Flags2LongNamesAllowed | Flags2NTStatusCode | Flags2Unicode
	msg.Header.UID = 0x1234
	msg.Header.TID = 0x5678
	msg.Header.MID = 7

	raw := msg.Marshal()
	var decoded Message
	if err := decoded.Unmarshal(raw); err != nil {
		t.Fatal(err)
	}
	if decoded.Header != msg.Header {
		t.Errorf("header differs:\n got %+v\nwant %+v", decoded.Header, msg.Header)
	}
	if !bytes.Equal(decoded.Params, msg.Params) {
		t.Errorf("params %x", decoded.Params)
	}
	if !bytes.Equal(decoded.Data, msg.Data) {
		t.Errorf("data %q", decoded.Data)
	}
	if !bytes.Equal(decoded.Marshal(), raw) {
		t.Error("re-encoded message differs")
	}
}

func TestMessageUnmarshalRejectsGarbage(t *testing.T) {
	var msg Message
	if err := msg.Unmarshal([]byte("not an smb message at all, clearly")); err == nil {
		t.Fatal("expected protocol ID error")
	}
	// Valid header, truncated word block.
	whole := &Message{Params: make([]byte, 8)}
	whole.Header.Protocol = SMB1ProtocolID
	good := whole.Marshal()
	if err := msg.Unmarshal(good[:HeaderSize+3]); err == nil {
		t.Fatal("expected truncation error")
	}
}

func TestNegotiateResponseClassic(t *testing.T) {
	req := NewNegotiateRequest().Marshal()
	challenge := []byte{1, 2, 3, 4, 5, 6, 7, 8}
	caps := CapNTSMB | CapRpcRemoteApi | CapNTStatusCode | CapUnicode
	raw := smb1Respond(req, 0, classicNegotiateParams(caps, 16644, 8), challenge)

	var msg Message
	if err := msg.Unmarshal(raw); err != nil {
		t.Fatal(err)
	}
	classic, extended, err := UnmarshalNegotiateResponse(&msg)
	if err != nil {
		t.Fatal(err)
	}
	if extended != nil {
		t.Fatal("classified as extended")
	}
	if !bytes.Equal(classic.Challenge, challenge) {
		t.Errorf("challenge %x", classic.Challenge)
	}
	if classic.MaxBufferSize != 16644 {
		t.Errorf("max buffer size %d", classic.MaxBufferSize)
	}
}

func TestNegotiateResponseExtended(t *testing.T) {
	req := NewNegotiateRequest().Marshal()
	caps := CapNTSMB | CapRpcRemoteApi | CapNTStatusCode | CapExtendedSecurity
	data := append(bytes.Repeat([]byte{0xAA}, 16), 0x60, 0x01, 0x02)
	raw := smb1Respond(req, 0, classicNegotiateParams(caps, 16644, 0), data)

	var msg Message
	if err := msg.Unmarshal(raw); err != nil {
		t.Fatal(err)
	}
	classic, extended, err := UnmarshalNegotiateResponse(&msg)
	if err != nil {
		t.Fatal(err)
	}
	if classic != nil {
		t.Fatal("classified as classic")
	}
	if !bytes.Equal(extended.SecurityBlob, []byte{0x60, 0x01, 0x02}) {
		t.Errorf("security blob %x", extended.SecurityBlob)
	}
}

func TestWriteAndXDataOffset(t *testing.T) {
	req := &WriteAndXRequest{FID: 9, Offset: 0x123456789A, Data: []byte("abc")}
	msg := req.Marshal()
	msg.Header.Protocol = SMB1ProtocolID
	raw := msg.Marshal()

	var decoded Message
	if err := decoded.Unmarshal(raw); err != nil {
		t.Fatal(err)
	}
	dataOffset := int(decoded.Params[22]) | int(decoded.Params[23])<<8
	if !bytes.Equal(raw[dataOffset:dataOffset+3], []byte("abc")) {
		t.Errorf("data offset %d does not address the payload", dataOffset)
	}
}
