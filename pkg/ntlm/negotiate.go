package ntlm

import (
	"github.com/cmonto/SMBLibrary/internal/encoding"
)

// NegotiateMessage is the NTLM Type 1 message.
type NegotiateMessage struct {
	NegotiateFlags uint32
	Domain         string
	Workstation    string
	Version        Version
}

// NewNegotiateMessage creates a Type 1 message with the default flags.
func NewNegotiateMessage() *NegotiateMessage {
	return &NegotiateMessage{
		NegotiateFlags: DefaultNegotiateFlags,
		Version:        DefaultVersion(),
	}
}

// Marshal serializes the Type 1 message. Domain and workstation are carried
// as OEM strings whenever they are non-empty; the matching "supplied" flags
// are not set by Marshal. By default both fields are empty.
func (m *NegotiateMessage) Marshal() []byte {
	domain := []byte(m.Domain)
	workstation := []byte(m.Workstation)
	size := 40 + len(domain) + len(workstation)
	buf := make([]byte, size)

	copy(buf[0:8], ntlmSignature[:])
	encoding.PutUint32LE(buf[8:12], NtLmNegotiate)
	encoding.PutUint32LE(buf[12:16], m.NegotiateFlags)
	payloadOffset := uint32(40)
	putField(buf, 16, domain, &payloadOffset)
	putField(buf, 24, workstation, &payloadOffset)
	copy(buf[32:40], m.Version.Marshal())
	return buf
}
