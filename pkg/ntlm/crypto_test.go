package ntlm

import (
	"bytes"
	"encoding/hex"
	"testing"

	"github.com/cmonto/SMBLibrary/internal/encoding"
)

// Test vectors from MS-NLMP section 4.2: user "User", domain "Domain",
// password "Password", server challenge 0123456789abcdef, client challenge
// aaaaaaaaaaaaaaaa.
var (
	vecServerChallenge = unhex("0123456789abcdef")
	vecClientChallenge = unhex("aaaaaaaaaaaaaaaa")
)

func unhex(s string) []byte {
	b, err := hex.DecodeString(s)
	if err != nil {
		panic(err)
	}
	return b
}

func TestNTOWFv1(t *testing.T) {
	want := unhex("a4f49c406510bdcab6824ee7c30fd852")
	if got := NTOWFv1("Password"); !bytes.Equal(got, want) {
		t.Errorf("NTOWFv1 = %x, want %x", got, want)
	}
}

func TestLMOWFv1(t *testing.T) {
	want := unhex("e52cac67419a9a224a3b108f3fa6cb6d")
	if got := LMOWFv1("Password"); !bytes.Equal(got, want) {
		t.Errorf("LMOWFv1 = %x, want %x", got, want)
	}
}

func TestNTLMv1Responses(t *testing.T) {
	wantNT := unhex("67c43011f30298a2ad35ece64f16331c44bdbed927841f94")
	if got := ComputeNTLMv1Response(vecServerChallenge, "Password"); !bytes.Equal(got, wantNT) {
		t.Errorf("NT response = %x, want %x", got, wantNT)
	}
	wantLM := unhex("98def7b87f88aa5dafe2df779688a172def11c7d5ccdef13")
	if got := ComputeLMv1Response(vecServerChallenge, "Password"); !bytes.Equal(got, wantLM) {
		t.Errorf("LM response = %x, want %x", got, wantLM)
	}
}

func TestNTOWFv2(t *testing.T) {
	want := unhex("0c868a403bfd7a93a3001ef22ef02e3f")
	if got := NTOWFv2("Password", "User", "Domain"); !bytes.Equal(got, want) {
		t.Errorf("NTOWFv2 = %x, want %x", got, want)
	}
}

// vecBlob reproduces the MS-NLMP "temp" structure: zero timestamp, the fixed
// client challenge, and AV pairs for domain "Domain" and server "Server".
func vecBlob() *ClientChallenge {
	cc := &ClientChallenge{
		AvPairs: []AvPair{
			{AvID: MsvAvNbDomainName, Value: encoding.ToUTF16LE("Domain")},
			{AvID: MsvAvNbComputerName, Value: encoding.ToUTF16LE("Server")},
		},
	}
	copy(cc.ClientChallenge[:], vecClientChallenge)
	return cc
}

func TestNTLMv2Proof(t *testing.T) {
	blob := vecBlob().Marshal()
	want := unhex("68cd0ab851e51c96aabc927bebef6a1c")
	got := ComputeNTLMv2Proof(vecServerChallenge, blob, "Password", "User", "Domain")
	if !bytes.Equal(got, want) {
		t.Errorf("NTProofStr = %x, want %x", got, want)
	}

	wantKey := unhex("8de40ccadbc14a82f15cb0ad0de95ca3")
	if key := SessionBaseKeyV2(got, "Password", "User", "Domain"); !bytes.Equal(key, wantKey) {
		t.Errorf("session base key = %x, want %x", key, wantKey)
	}
}

func TestLMv2Response(t *testing.T) {
	want := unhex("86c35097ac9cec102554764a57cccc19aaaaaaaaaaaaaaaa")
	got := ComputeLMv2Response(vecServerChallenge, vecClientChallenge, "Password", "User", "Domain")
	if !bytes.Equal(got, want) {
		t.Errorf("LMv2 = %x, want %x", got, want)
	}
}

func TestClientChallengeMarshalLayout(t *testing.T) {
	blob := vecBlob().Marshal()
	if blob[0] != 0x01 || blob[1] != 0x01 {
		t.Errorf("resp type bytes %x", blob[:2])
	}
	if !bytes.Equal(blob[8:16], make([]byte, 8)) {
		t.Error("zero timestamp must serialize as zero FILETIME")
	}
	if !bytes.Equal(blob[16:24], vecClientChallenge) {
		t.Errorf("client challenge at %x", blob[16:24])
	}
	// AV pair list is EOL-terminated and followed by four reserved bytes.
	if !bytes.Equal(blob[len(blob)-8:], make([]byte, 8)) {
		t.Error("missing EOL terminator and trailing reserved bytes")
	}
}

func TestAvPairsRoundTrip(t *testing.T) {
	pairs := []AvPair{
		{AvID: MsvAvNbDomainName, Value: encoding.ToUTF16LE("DOM")},
		{AvID: MsvAvNbComputerName, Value: encoding.ToUTF16LE("HOST")},
	}
	parsed := ParseAvPairs(MarshalAvPairs(pairs))
	if len(parsed) != 2 {
		t.Fatalf("%d pairs", len(parsed))
	}
	for i := range pairs {
		if parsed[i].AvID != pairs[i].AvID || !bytes.Equal(parsed[i].Value, pairs[i].Value) {
			t.Errorf("pair %d mismatch", i)
		}
	}
}
