package spnego

import (
	"bytes"
	"testing"
)

var fakeNTLMToken = []byte("NTLMSSP\x00\x01\x00\x00\x00payload")

func TestNegTokenInitCarriesNTLMMech(t *testing.T) {
	blob, err := EncodeNegTokenInit(fakeNTLMToken)
	if err != nil {
		t.Fatal(err)
	}
	if blob[0] != 0x60 {
		t.Errorf("leading tag 0x%02X, want application 0", blob[0])
	}
	if !bytes.Contains(blob, fakeNTLMToken) {
		t.Error("mech token not embedded")
	}
	if !SupportsNTLM(blob) {
		t.Error("own token must advertise NTLM")
	}
}

func TestNegTokenRespRoundTrip(t *testing.T) {
	blob, err := EncodeNegTokenResp(fakeNTLMToken)
	if err != nil {
		t.Fatal(err)
	}
	resp, err := DecodeNegTokenResp(blob)
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(resp.ResponseToken, fakeNTLMToken) {
		t.Errorf("response token %x", resp.ResponseToken)
	}
}

func TestUnwrapChallenge(t *testing.T) {
	wrapped, err := EncodeNegTokenResp(fakeNTLMToken)
	if err != nil {
		t.Fatal(err)
	}
	tok, err := UnwrapChallenge(wrapped)
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(tok, fakeNTLMToken) {
		t.Errorf("unwrapped %x", tok)
	}

	// Bare NTLMSSP payloads are tolerated.
	tok, err = UnwrapChallenge(fakeNTLMToken)
	if err != nil || !bytes.Equal(tok, fakeNTLMToken) {
		t.Errorf("bare token unwrap: %v", err)
	}

	if _, err := UnwrapChallenge([]byte("junk")); err == nil {
		t.Error("junk blob accepted")
	}
}

func TestSupportsNTLMOnHintlessBlobs(t *testing.T) {
	if !SupportsNTLM(nil) {
		t.Error("empty blob must count as supported")
	}
	if !SupportsNTLM([]byte{0x01, 0x02}) {
		t.Error("unparsable blob must count as supported")
	}
}
