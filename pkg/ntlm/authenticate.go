package ntlm

import (
	"github.com/cmonto/SMBLibrary/internal/encoding"
)

// AuthenticateMessage is the NTLM Type 3 message.
type AuthenticateMessage struct {
	LmChallengeResponse []byte
	NtChallengeResponse []byte
	DomainName          string
	UserName            string
	Workstation         string
	EncryptedSessionKey []byte
	NegotiateFlags      uint32
	Version             Version
}

// Marshal serializes the Type 3 message. The MIC field is omitted, matching
// clients that do not negotiate message integrity.
func (m *AuthenticateMessage) Marshal() []byte {
	domain := encoding.ToUTF16LE(m.DomainName)
	user := encoding.ToUTF16LE(m.UserName)
	workstation := encoding.ToUTF16LE(m.Workstation)

	fixed := 72
	size := fixed + len(domain) + len(user) + len(workstation) +
		len(m.LmChallengeResponse) + len(m.NtChallengeResponse) + len(m.EncryptedSessionKey)
	buf := make([]byte, size)

	copy(buf[0:8], ntlmSignature[:])
	encoding.PutUint32LE(buf[8:12], NtLmAuthenticate)

	payloadOffset := uint32(fixed)
	putField(buf, 12, m.LmChallengeResponse, &payloadOffset)
	putField(buf, 20, m.NtChallengeResponse, &payloadOffset)
	putField(buf, 28, domain, &payloadOffset)
	putField(buf, 36, user, &payloadOffset)
	putField(buf, 44, workstation, &payloadOffset)
	putField(buf, 52, m.EncryptedSessionKey, &payloadOffset)
	encoding.PutUint32LE(buf[60:64], m.NegotiateFlags)
	copy(buf[64:72], m.Version.Marshal())
	return buf
}
