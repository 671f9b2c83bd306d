package smb1

import (
	"github.com/cmonto/SMBLibrary/internal/encoding"
)

// DialectNTLM012 is the single dialect this client offers.
const DialectNTLM012 = "NT LM 0.12"

// NegotiateRequest carries the offered dialect strings.
type NegotiateRequest struct {
	Dialects []string
}

// NewNegotiateRequest offers NT LM 0.12.
func NewNegotiateRequest() *NegotiateRequest {
	return &NegotiateRequest{Dialects: []string{DialectNTLM012}}
}

// Marshal builds the message: no parameter words, one buffer-format dialect
// entry per string.
func (r *NegotiateRequest) Marshal() *Message {
	var data []byte
	for _, d := range r.Dialects {
		data = append(data, 0x02)
		data = append(data, []byte(d)...)
		data = append(data, 0)
	}
	msg := &Message{Data: data}
	msg.Header.Command = CommandNegotiate
	return msg
}

// NegotiateResponse is the classic (pre-extended security) negotiate
// response. The server proves the NT LM 0.12 dialect selection, its buffer
// limits, capability mask and an 8-byte challenge.
type NegotiateResponse struct {
	DialectIndex    uint16
	SecurityMode    uint8
	MaxMpxCount     uint16
	MaxNumberVCs    uint16
	MaxBufferSize   uint32
	MaxRawSize      uint32
	SessionKey      uint32
	Capabilities    uint32
	SystemTime      uint64
	ServerTimeZone  int16
	ChallengeLength uint8
	Challenge       []byte
	DomainName      string
}

// NegotiateResponseExtended is the extended-security variant: the challenge
// is replaced by a server GUID and a SPNEGO blob.
type NegotiateResponseExtended struct {
	NegotiateResponse
	ServerGuid   [16]byte
	SecurityBlob []byte
}

// negotiateWordCount is the parameter block size of both response variants.
const negotiateWordCount = 17

func (r *NegotiateResponse) unmarshalParams(params []byte) error {
	if len(params) < 2*negotiateWordCount {
		return errTruncatedResponse
	}
	r.DialectIndex = encoding.Uint16LE(params[0:2])
	r.SecurityMode = params[2]
	r.MaxMpxCount = encoding.Uint16LE(params[3:5])
	r.MaxNumberVCs = encoding.Uint16LE(params[5:7])
	r.MaxBufferSize = encoding.Uint32LE(params[7:11])
	r.MaxRawSize = encoding.Uint32LE(params[11:15])
	r.SessionKey = encoding.Uint32LE(params[15:19])
	r.Capabilities = encoding.Uint32LE(params[19:23])
	r.SystemTime = encoding.Uint64LE(params[23:31])
	r.ServerTimeZone = int16(encoding.Uint16LE(params[31:33]))
	r.ChallengeLength = params[33]
	return nil
}

// UnmarshalNegotiateResponse decodes either response variant, selected by the
// ExtendedSecurity capability bit.
func UnmarshalNegotiateResponse(msg *Message) (classic *NegotiateResponse, extended *NegotiateResponseExtended, err error) {
	var base NegotiateResponse
	if err := base.unmarshalParams(msg.Params); err != nil {
		return nil, nil, err
	}

	if base.Capabilities&CapExtendedSecurity != 0 {
		ext := &NegotiateResponseExtended{NegotiateResponse: base}
		if len(msg.Data) < 16 {
			return nil, nil, errTruncatedResponse
		}
		copy(ext.ServerGuid[:], msg.Data[0:16])
		ext.SecurityBlob = msg.Data[16:]
		return nil, ext, nil
	}

	if int(base.ChallengeLength) > len(msg.Data) {
		return nil, nil, errTruncatedResponse
	}
	base.Challenge = msg.Data[:base.ChallengeLength]
	base.DomainName = encoding.FromUTF16LE(msg.Data[base.ChallengeLength:])
	return &base, nil, nil
}
