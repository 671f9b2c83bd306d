package ntlm

import (
	"github.com/jfjallid/golog"
)

var log = golog.Get("ntlm")

// Flavor selects the response computation used by an Initiator.
type Flavor int

const (
	FlavorNTLMv1 Flavor = iota
	FlavorNTLMv1ExtendedSessionSecurity
	FlavorNTLMv2
)

// Initiator produces the NTLM token sequence for an SPNEGO exchange. A nil
// return from GetAuthenticateMessage means the server blob could not be
// turned into a token (surfaced by callers as SEC_E_INVALID_TOKEN).
type Initiator struct {
	Domain      string
	User        string
	Password    string
	Workstation string
	Flavor      Flavor

	sessionKey []byte
}

// GetNegotiateMessage returns the serialized Type 1 message.
func (i *Initiator) GetNegotiateMessage() []byte {
	return NewNegotiateMessage().Marshal()
}

// GetAuthenticateMessage consumes the server's Type 2 blob and returns the
// serialized Type 3 message, or nil when the blob is unusable.
func (i *Initiator) GetAuthenticateMessage(challengeBlob []byte) []byte {
	challenge, err := ParseChallengeMessage(challengeBlob)
	if err != nil {
		log.Errorln(err)
		return nil
	}

	auth := &AuthenticateMessage{
		DomainName:     i.Domain,
		UserName:       i.User,
		Workstation:    i.Workstation,
		NegotiateFlags: DefaultNegotiateFlags,
		Version:        DefaultVersion(),
	}

	switch i.Flavor {
	case FlavorNTLMv2:
		clientChallenge := NewClientChallenge(i.Domain, i.Workstation)
		// Prefer the server's own target info so the response survives
		// target-validation policies.
		if len(challenge.TargetInfo) > 0 {
			clientChallenge.AvPairs = challenge.AvPairs()
		}
		blob := clientChallenge.Marshal()
		proof := ComputeNTLMv2Proof(challenge.ServerChallenge[:], blob, i.Password, i.User, i.Domain)
		auth.NtChallengeResponse = append(proof, blob...)
		auth.LmChallengeResponse = ComputeLMv2Response(challenge.ServerChallenge[:],
			clientChallenge.ClientChallenge[:], i.Password, i.User, i.Domain)
		i.sessionKey = SessionBaseKeyV2(proof, i.Password, i.User, i.Domain)
	case FlavorNTLMv1, FlavorNTLMv1ExtendedSessionSecurity:
		auth.LmChallengeResponse = ComputeLMv1Response(challenge.ServerChallenge[:], i.Password)
		auth.NtChallengeResponse = ComputeNTLMv1Response(challenge.ServerChallenge[:], i.Password)
		i.sessionKey = SessionBaseKeyV1(i.Password)
	default:
		return nil
	}

	return auth.Marshal()
}

// SessionKey returns the session base key derived by the last authenticate
// message, or nil before one was produced.
func (i *Initiator) SessionKey() []byte {
	return i.sessionKey
}
