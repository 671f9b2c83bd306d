// Package ntlm implements the NTLMSSP messages and the NTLM v1/v2 response
// computations used for SMB authentication. The response computations are
// pure functions over the server challenge and credentials.
package ntlm

import (
	"github.com/cmonto/SMBLibrary/internal/encoding"
)

// Message signature and types
var ntlmSignature = [8]byte{'N', 'T', 'L', 'M', 'S', 'S', 'P', 0}

const (
	NtLmNegotiate    uint32 = 0x00000001 // Type 1
	NtLmChallenge    uint32 = 0x00000002 // Type 2
	NtLmAuthenticate uint32 = 0x00000003 // Type 3
)

// NTLMSSP negotiate flags
const (
	NegotiateUnicode                 uint32 = 0x00000001
	NegotiateOEM                     uint32 = 0x00000002
	RequestTarget                    uint32 = 0x00000004
	NegotiateSign                    uint32 = 0x00000010
	NegotiateSeal                    uint32 = 0x00000020
	NegotiateLmKey                   uint32 = 0x00000080
	NegotiateNTLM                    uint32 = 0x00000200
	NegotiateAnonymous               uint32 = 0x00000800
	NegotiateOEMDomainSupplied       uint32 = 0x00001000
	NegotiateOEMWorkstationSupplied  uint32 = 0x00002000
	NegotiateAlwaysSign              uint32 = 0x00008000
	TargetTypeDomain                 uint32 = 0x00010000
	TargetTypeServer                 uint32 = 0x00020000
	NegotiateExtendedSessionSecurity uint32 = 0x00080000
	NegotiateTargetInfo              uint32 = 0x00800000
	NegotiateVersion                 uint32 = 0x02000000
	Negotiate128                     uint32 = 0x20000000
	NegotiateKeyExchange             uint32 = 0x40000000
	Negotiate56                      uint32 = 0x80000000
)

// DefaultNegotiateFlags advertised in the Type 1 message
var DefaultNegotiateFlags = NegotiateUnicode |
	RequestTarget |
	NegotiateNTLM |
	NegotiateAlwaysSign |
	NegotiateExtendedSessionSecurity |
	NegotiateTargetInfo |
	NegotiateVersion |
	Negotiate128 |
	Negotiate56

// Version is the Version field carried in NTLM messages.
type Version struct {
	ProductMajorVersion uint8
	ProductMinorVersion uint8
	ProductBuild        uint16
	Reserved            [3]byte
	NTLMRevisionCurrent uint8
}

// DefaultVersion returns a Windows 10 compatible version.
func DefaultVersion() Version {
	return Version{
		ProductMajorVersion: 10,
		ProductMinorVersion: 0,
		ProductBuild:        19041,
		NTLMRevisionCurrent: 15, // NTLMSSP_REVISION_W2K3
	}
}

// Marshal serializes the version.
func (v *Version) Marshal() []byte {
	buf := make([]byte, 8)
	buf[0] = v.ProductMajorVersion
	buf[1] = v.ProductMinorVersion
	encoding.PutUint16LE(buf[2:4], v.ProductBuild)
	copy(buf[4:7], v.Reserved[:])
	buf[7] = v.NTLMRevisionCurrent
	return buf
}

// AvPair is one AV_PAIR structure in TargetInfo.
type AvPair struct {
	AvID  uint16
	Value []byte
}

// AV_PAIR IDs
const (
	MsvAvEOL             uint16 = 0x0000
	MsvAvNbComputerName  uint16 = 0x0001
	MsvAvNbDomainName    uint16 = 0x0002
	MsvAvDnsComputerName uint16 = 0x0003
	MsvAvDnsDomainName   uint16 = 0x0004
	MsvAvDnsTreeName     uint16 = 0x0005
	MsvAvFlags           uint16 = 0x0006
	MsvAvTimestamp       uint16 = 0x0007
)

// ParseAvPairs parses an AV_PAIR list from a TargetInfo buffer.
func ParseAvPairs(data []byte) []AvPair {
	var pairs []AvPair
	offset := 0
	for offset+4 <= len(data) {
		avID := encoding.Uint16LE(data[offset : offset+2])
		avLen := encoding.Uint16LE(data[offset+2 : offset+4])
		offset += 4
		if avID == MsvAvEOL {
			break
		}
		if offset+int(avLen) > len(data) {
			break
		}
		pairs = append(pairs, AvPair{AvID: avID, Value: data[offset : offset+int(avLen)]})
		offset += int(avLen)
	}
	return pairs
}

// MarshalAvPairs serializes an AV_PAIR list, terminated by MsvAvEOL.
func MarshalAvPairs(pairs []AvPair) []byte {
	var buf []byte
	for _, p := range pairs {
		pair := make([]byte, 4+len(p.Value))
		encoding.PutUint16LE(pair[0:2], p.AvID)
		encoding.PutUint16LE(pair[2:4], uint16(len(p.Value)))
		copy(pair[4:], p.Value)
		buf = append(buf, pair...)
	}
	return append(buf, 0, 0, 0, 0)
}

// payload fields in NTLM messages are (length, maxLength, offset) triplets
func putField(buf []byte, fieldOffset int, value []byte, payloadOffset *uint32) {
	encoding.PutUint16LE(buf[fieldOffset:], uint16(len(value)))
	encoding.PutUint16LE(buf[fieldOffset+2:], uint16(len(value)))
	encoding.PutUint32LE(buf[fieldOffset+4:], *payloadOffset)
	copy(buf[*payloadOffset:], value)
	*payloadOffset += uint32(len(value))
}

func readField(buf []byte, fieldOffset int) []byte {
	if fieldOffset+8 > len(buf) {
		return nil
	}
	length := encoding.Uint16LE(buf[fieldOffset:])
	offset := encoding.Uint32LE(buf[fieldOffset+4:])
	if length == 0 || int(offset)+int(length) > len(buf) {
		return nil
	}
	out := make([]byte, length)
	copy(out, buf[offset:int(offset)+int(length)])
	return out
}
