package ntlm

import (
	"crypto/des"
	"crypto/hmac"
	"crypto/md5"
	"crypto/rand"
	"strings"
	"time"

	"golang.org/x/crypto/md4"

	"github.com/cmonto/SMBLibrary/internal/encoding"
)

// NTOWFv1 computes the NT one-way function: MD4(UTF-16LE(password)).
func NTOWFv1(password string) []byte {
	h := md4.New()
	h.Write(encoding.ToUTF16LE(password))
	return h.Sum(nil)
}

// LMOWFv1 computes the LM one-way function: the uppercased password, padded
// to 14 bytes, split into two DES keys encrypting the magic constant.
func LMOWFv1(password string) []byte {
	magic := []byte("KGS!@#$%")
	padded := make([]byte, 14)
	copy(padded, strings.ToUpper(password))
	out := make([]byte, 16)
	desEncrypt(out[0:8], padded[0:7], magic)
	desEncrypt(out[8:16], padded[7:14], magic)
	return out
}

// NTOWFv2 computes the NTLMv2 hash: HMAC-MD5(NTOWFv1, UPPER(user)+domain).
func NTOWFv2(password, username, domain string) []byte {
	return hmacMD5(NTOWFv1(password), encoding.ToUTF16LE(strings.ToUpper(username)+domain))
}

// ComputeLMv1Response computes the 24-byte LM response to a server challenge.
func ComputeLMv1Response(serverChallenge []byte, password string) []byte {
	return desl(LMOWFv1(password), serverChallenge)
}

// ComputeNTLMv1Response computes the 24-byte NTLM response to a server
// challenge.
func ComputeNTLMv1Response(serverChallenge []byte, password string) []byte {
	return desl(NTOWFv1(password), serverChallenge)
}

// ComputeLMv2Response computes LMv2: HMAC-MD5 over server and client
// challenges, with the client challenge appended.
func ComputeLMv2Response(serverChallenge, clientChallenge []byte, password, username, domain string) []byte {
	resp := hmacMD5(NTOWFv2(password, username, domain), concat(serverChallenge, clientChallenge))
	return append(resp, clientChallenge...)
}

// ClientChallenge is the NTLMv2_CLIENT_CHALLENGE ("temp"/blob) structure.
type ClientChallenge struct {
	Timestamp       time.Time
	ClientChallenge [8]byte
	AvPairs         []AvPair
}

// NewClientChallenge builds the v2 blob with the current UTC time, a random
// 8-byte challenge, and the {domain, machine name} AV pairs.
func NewClientChallenge(domain, machineName string) *ClientChallenge {
	cc := &ClientChallenge{Timestamp: time.Now().UTC()}
	rand.Read(cc.ClientChallenge[:])
	cc.AvPairs = []AvPair{
		{AvID: MsvAvNbDomainName, Value: encoding.ToUTF16LE(domain)},
		{AvID: MsvAvNbComputerName, Value: encoding.ToUTF16LE(machineName)},
	}
	return cc
}

// Marshal serializes the blob.
func (c *ClientChallenge) Marshal() []byte {
	targetInfo := MarshalAvPairs(c.AvPairs)
	buf := make([]byte, 28+len(targetInfo)+4)
	buf[0] = 0x01 // RespType
	buf[1] = 0x01 // HiRespType
	encoding.PutUint64LE(buf[8:16], encoding.TimeToFiletime(c.Timestamp))
	copy(buf[16:24], c.ClientChallenge[:])
	copy(buf[28:], targetInfo)
	return buf
}

// ComputeNTLMv2Proof computes the 16-byte NTProofStr over the serialized
// blob. The full NT response is proof || blob.
func ComputeNTLMv2Proof(serverChallenge, blob []byte, password, username, domain string) []byte {
	return hmacMD5(NTOWFv2(password, username, domain), concat(serverChallenge, blob))
}

// SessionBaseKeyV1 derives the v1 session base key: MD4(NTOWFv1).
func SessionBaseKeyV1(password string) []byte {
	h := md4.New()
	h.Write(NTOWFv1(password))
	return h.Sum(nil)
}

// SessionBaseKeyV2 derives the v2 session base key: HMAC-MD5(NTOWFv2, proof).
func SessionBaseKeyV2(proof []byte, password, username, domain string) []byte {
	return hmacMD5(NTOWFv2(password, username, domain), proof)
}

// GenerateClientChallenge returns 8 random bytes.
func GenerateClientChallenge() []byte {
	challenge := make([]byte, 8)
	rand.Read(challenge)
	return challenge
}

// desl applies DESL: the 16-byte key is null-padded to 21 bytes and split
// into three DES keys, each encrypting the 8-byte challenge.
func desl(key, challenge []byte) []byte {
	padded := make([]byte, 21)
	copy(padded, key)
	out := make([]byte, 24)
	desEncrypt(out[0:8], padded[0:7], challenge)
	desEncrypt(out[8:16], padded[7:14], challenge)
	desEncrypt(out[16:24], padded[14:21], challenge)
	return out
}

// desEncrypt expands a 7-byte key to 8 bytes with odd parity and encrypts one
// DES block.
func desEncrypt(dst, key7, block []byte) {
	key := make([]byte, 8)
	key[0] = key7[0]
	key[1] = key7[0]<<7 | key7[1]>>1
	key[2] = key7[1]<<6 | key7[2]>>2
	key[3] = key7[2]<<5 | key7[3]>>3
	key[4] = key7[3]<<4 | key7[4]>>4
	key[5] = key7[4]<<3 | key7[5]>>5
	key[6] = key7[5]<<2 | key7[6]>>6
	key[7] = key7[6] << 1
	for i := range key {
		// odd parity in the low bit
		b := key[i]
		b ^= b >> 4
		b ^= b >> 2
		b ^= b >> 1
		key[i] = key[i]&0xFE | ^b&0x01
	}
	cipher, err := des.NewCipher(key)
	if err != nil {
		return
	}
	cipher.Encrypt(dst, block)
}

func hmacMD5(key, data []byte) []byte {
	h := hmac.New(md5.New, key)
	h.Write(data)
	return h.Sum(nil)
}

func concat(a, b []byte) []byte {
	out := make([]byte, 0, len(a)+len(b))
	out = append(out, a...)
	return append(out, b...)
}
