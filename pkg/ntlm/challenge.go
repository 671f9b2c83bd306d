package ntlm

import (
	"bytes"
	"errors"

	"github.com/cmonto/SMBLibrary/internal/encoding"
)

// ChallengeMessage is the NTLM Type 2 message sent by the server.
type ChallengeMessage struct {
	TargetName      string
	NegotiateFlags  uint32
	ServerChallenge [8]byte
	TargetInfo      []byte // raw AV_PAIR list
}

// ParseChallengeMessage parses a Type 2 message.
func ParseChallengeMessage(buf []byte) (*ChallengeMessage, error) {
	if len(buf) < 48 {
		return nil, errors.New("ntlm: challenge message too short")
	}
	if !bytes.Equal(buf[0:8], ntlmSignature[:]) {
		return nil, errors.New("ntlm: invalid message signature")
	}
	if encoding.Uint32LE(buf[8:12]) != NtLmChallenge {
		return nil, errors.New("ntlm: not a challenge message")
	}

	m := &ChallengeMessage{}
	m.TargetName = encoding.FromUTF16LE(readField(buf, 12))
	m.NegotiateFlags = encoding.Uint32LE(buf[20:24])
	copy(m.ServerChallenge[:], buf[24:32])
	m.TargetInfo = readField(buf, 40)
	return m, nil
}

// AvPairs parses the TargetInfo list.
func (m *ChallengeMessage) AvPairs() []AvPair {
	return ParseAvPairs(m.TargetInfo)
}
