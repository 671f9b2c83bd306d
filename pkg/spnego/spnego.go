// Package spnego wraps and unwraps NTLM tokens in SPNEGO (RFC 4178)
// negotiation tokens. Outbound tokens use DER via encoding/asn1; inbound
// server blobs are produced by BER encoders, so decoding goes through
// github.com/geoffgarside/ber.
package spnego

import (
	"encoding/asn1"
	"errors"

	"github.com/geoffgarside/ber"
)

var (
	SpnegoOid = asn1.ObjectIdentifier{1, 3, 6, 1, 5, 5, 2}
	NlmpOid   = asn1.ObjectIdentifier{1, 3, 6, 1, 4, 1, 311, 2, 2, 10}
)

// negState values
const (
	AcceptCompleted  asn1.Enumerated = 0
	AcceptIncomplete asn1.Enumerated = 1
	Reject           asn1.Enumerated = 2
)

// NegTokenInit is the initial negotiation token.
type NegTokenInit struct {
	MechTypes   []asn1.ObjectIdentifier `asn1:"explicit,optional,tag:0"`
	ReqFlags    asn1.BitString          `asn1:"explicit,optional,tag:1"`
	MechToken   []byte                  `asn1:"explicit,optional,tag:2"`
	MechListMIC []byte                  `asn1:"explicit,optional,tag:3"`
}

// NegTokenInit2 is the server-side variant carrying negotiation hints.
type NegTokenInit2 struct {
	MechTypes   []asn1.ObjectIdentifier `asn1:"explicit,optional,tag:0"`
	ReqFlags    asn1.BitString          `asn1:"explicit,optional,tag:1"`
	MechToken   []byte                  `asn1:"explicit,optional,tag:2"`
	NegHints    asn1.RawValue           `asn1:"explicit,optional,tag:3"`
	MechListMIC []byte                  `asn1:"explicit,optional,tag:4"`
}

// NegTokenResp is the response negotiation token.
type NegTokenResp struct {
	NegState      asn1.Enumerated       `asn1:"optional,explicit,tag:0"`
	SupportedMech asn1.ObjectIdentifier `asn1:"optional,explicit,tag:1"`
	ResponseToken []byte                `asn1:"optional,explicit,tag:2"`
	MechListMIC   []byte                `asn1:"optional,explicit,tag:3"`
}

// initialContextToken ::= [APPLICATION 0] IMPLICIT SEQUENCE {
//   ThisMech          MechType
//   InnerContextToken negotiateToken
// }
type initialContextToken struct {
	ThisMech asn1.ObjectIdentifier `asn1:"optional"`
	Init     []NegTokenInit        `asn1:"optional,explicit,tag:0"`
	Resp     []NegTokenResp        `asn1:"optional,tag:1"`
}

type initialContextToken2 struct {
	ThisMech asn1.ObjectIdentifier `asn1:"optional"`
	Init2    []NegTokenInit2       `asn1:"optional,explicit,tag:0"`
	Resp     []NegTokenResp        `asn1:"optional,explicit,tag:1"`
}

// EncodeNegTokenInit wraps the NTLM negotiate message in a GSS-API initial
// context token offering the NTLM mechanism.
func EncodeNegTokenInit(mechToken []byte) ([]byte, error) {
	bs, err := asn1.Marshal(
		initialContextToken{
			ThisMech: SpnegoOid,
			Init: []NegTokenInit{
				{
					MechTypes: []asn1.ObjectIdentifier{NlmpOid},
					MechToken: mechToken,
				},
			},
		})
	if err != nil {
		return nil, err
	}

	bs[0] = 0x60 // `asn1:"application,tag:0"`

	return bs, nil
}

// EncodeNegTokenResp wraps a follow-up NTLM token (the authenticate message)
// in a bare NegTokenResp, which is not nested inside an initial context
// token.
func EncodeNegTokenResp(responseToken []byte) ([]byte, error) {
	bs, err := asn1.Marshal(
		initialContextToken{
			Resp: []NegTokenResp{
				{
					NegState:      AcceptIncomplete,
					SupportedMech: NlmpOid,
					ResponseToken: responseToken,
				},
			},
		})
	if err != nil {
		return nil, err
	}

	// Strip the outer SEQUENCE header; the [1] NegTokenResp stands alone.
	skip := 1
	if bs[skip] < 128 {
		skip += 1
	} else {
		skip += int(bs[skip]) - 128 + 1
	}

	return bs[skip:], nil
}

// DecodeNegTokenInit2 parses the server's negotiate-time hint token.
func DecodeNegTokenInit2(bs []byte) (*NegTokenInit2, error) {
	var init initialContextToken2
	if _, err := ber.UnmarshalWithParams(bs, &init, "application,tag:0"); err != nil {
		return nil, err
	}
	if len(init.Init2) == 0 {
		return nil, errors.New("spnego: no NegTokenInit2 in blob")
	}
	return &init.Init2[0], nil
}

// DecodeNegTokenResp parses a server NegTokenResp.
func DecodeNegTokenResp(bs []byte) (*NegTokenResp, error) {
	var resp NegTokenResp
	if _, err := ber.UnmarshalWithParams(bs, &resp, "explicit,tag:1"); err != nil {
		return nil, err
	}
	return &resp, nil
}

// UnwrapChallenge pulls the NTLM token out of a SPNEGO blob, tolerating both
// a proper NegTokenResp and a bare NTLMSSP payload.
func UnwrapChallenge(blob []byte) ([]byte, error) {
	if resp, err := DecodeNegTokenResp(blob); err == nil && len(resp.ResponseToken) > 0 {
		return resp.ResponseToken, nil
	}
	if tok := findNTLMSSP(blob); tok != nil {
		return tok, nil
	}
	return nil, errors.New("spnego: no NTLM token in blob")
}

// SupportsNTLM inspects a server NegTokenInit2 (from negotiate) for the NTLM
// mechanism. An empty or unparsable blob counts as supporting it, because
// some servers send hint-only or no tokens at all.
func SupportsNTLM(blob []byte) bool {
	if len(blob) == 0 {
		return true
	}
	init, err := DecodeNegTokenInit2(blob)
	if err != nil {
		return true
	}
	for _, mech := range init.MechTypes {
		if mech.Equal(NlmpOid) {
			return true
		}
	}
	return false
}

// findNTLMSSP scans for an embedded NTLMSSP signature.
func findNTLMSSP(data []byte) []byte {
	sig := []byte{'N', 'T', 'L', 'M', 'S', 'S', 'P', 0}
	for i := 0; i+8 <= len(data); i++ {
		match := true
		for j := 0; j < 8; j++ {
			if data[i+j] != sig[j] {
				match = false
				break
			}
		}
		if match {
			return data[i:]
		}
	}
	return nil
}
