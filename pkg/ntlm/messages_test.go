package ntlm

import (
	"bytes"
	"testing"

	"github.com/cmonto/SMBLibrary/internal/encoding"
)

func TestNegotiateMessageLayout(t *testing.T) {
	raw := NewNegotiateMessage().Marshal()
	if !bytes.Equal(raw[0:8], ntlmSignature[:]) {
		t.Errorf("signature %x", raw[0:8])
	}
	if encoding.Uint32LE(raw[8:12]) != NtLmNegotiate {
		t.Errorf("message type %d", encoding.Uint32LE(raw[8:12]))
	}
	flags := encoding.Uint32LE(raw[12:16])
	if flags&NegotiateUnicode == 0 || flags&NegotiateNTLM == 0 {
		t.Errorf("flags 0x%08X", flags)
	}
}

func buildChallenge(t *testing.T, targetInfo []AvPair) []byte {
	t.Helper()
	info := MarshalAvPairs(targetInfo)
	buf := make([]byte, 48+len(info))
	copy(buf[0:8], ntlmSignature[:])
	encoding.PutUint32LE(buf[8:12], NtLmChallenge)
	encoding.PutUint32LE(buf[20:24], DefaultNegotiateFlags)
	copy(buf[24:32], []byte{9, 8, 7, 6, 5, 4, 3, 2})
	encoding.PutUint16LE(buf[40:42], uint16(len(info)))
	encoding.PutUint16LE(buf[42:44], uint16(len(info)))
	encoding.PutUint32LE(buf[44:48], 48)
	copy(buf[48:], info)
	return buf
}

func TestParseChallengeMessage(t *testing.T) {
	raw := buildChallenge(t, []AvPair{
		{AvID: MsvAvNbDomainName, Value: encoding.ToUTF16LE("DOM")},
	})
	challenge, err := ParseChallengeMessage(raw)
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(challenge.ServerChallenge[:], []byte{9, 8, 7, 6, 5, 4, 3, 2}) {
		t.Errorf("server challenge %x", challenge.ServerChallenge)
	}
	pairs := challenge.AvPairs()
	if len(pairs) != 1 || pairs[0].AvID != MsvAvNbDomainName {
		t.Errorf("av pairs %+v", pairs)
	}
}

func TestParseChallengeMessageRejectsGarbage(t *testing.T) {
	if _, err := ParseChallengeMessage([]byte("NTLMSSP\x00")); err == nil {
		t.Error("short message accepted")
	}
	bad := buildChallenge(t, nil)
	bad[0] = 'X'
	if _, err := ParseChallengeMessage(bad); err == nil {
		t.Error("bad signature accepted")
	}
}

func TestInitiatorProducesTokenSequence(t *testing.T) {
	initiator := &Initiator{
		Domain:      "DOM",
		User:        "user",
		Password:    "pw",
		Workstation: "WS",
		Flavor:      FlavorNTLMv2,
	}
	neg := initiator.GetNegotiateMessage()
	if neg == nil {
		t.Fatal("no negotiate token")
	}

	challenge := buildChallenge(t, []AvPair{
		{AvID: MsvAvNbDomainName, Value: encoding.ToUTF16LE("DOM")},
	})
	auth := initiator.GetAuthenticateMessage(challenge)
	if auth == nil {
		t.Fatal("no authenticate token")
	}
	if !bytes.Equal(auth[0:8], ntlmSignature[:]) || encoding.Uint32LE(auth[8:12]) != NtLmAuthenticate {
		t.Error("not an AUTHENTICATE message")
	}
	if len(initiator.SessionKey()) != 16 {
		t.Errorf("session key length %d", len(initiator.SessionKey()))
	}

	// The user name travels in UTF-16LE inside the payload.
	if !bytes.Contains(auth, encoding.ToUTF16LE("user")) {
		t.Error("user name missing from payload")
	}
}

func TestInitiatorDeclinesBadBlob(t *testing.T) {
	initiator := &Initiator{User: "u", Password: "p", Flavor: FlavorNTLMv2}
	if tok := initiator.GetAuthenticateMessage([]byte("not a challenge")); tok != nil {
		t.Error("token produced from a bad blob")
	}
}
