package types

import (
	"time"

	"github.com/cmonto/SMBLibrary/internal/encoding"
)

// Capabilities flags in negotiate
type Capabilities uint32

const (
	GlobalCapDFS              Capabilities = 0x00000001
	GlobalCapLeasing          Capabilities = 0x00000002
	GlobalCapLargeMTU         Capabilities = 0x00000004
	GlobalCapMultiChannel     Capabilities = 0x00000008
	GlobalCapPersistentHandle Capabilities = 0x00000010
	GlobalCapDirectoryLeasing Capabilities = 0x00000020
	GlobalCapEncryption       Capabilities = 0x00000040
)

// NegotiateRequest represents an SMB2 NEGOTIATE request.
type NegotiateRequest struct {
	StructureSize   uint16 // 36
	DialectCount    uint16
	SecurityMode    uint16
	Reserved        uint16
	Capabilities    Capabilities
	ClientGuid      [16]byte
	ClientStartTime time.Time // serialized as FILETIME, UTC
	Dialects        []Dialect
}

// NewNegotiateRequest creates a NEGOTIATE request offering the 2.0.2 and 2.1
// dialects.
func NewNegotiateRequest(clientGuid [16]byte, startTime time.Time) *NegotiateRequest {
	return &NegotiateRequest{
		StructureSize:   36,
		SecurityMode:    NegotiateSigningEnabled,
		ClientGuid:      clientGuid,
		ClientStartTime: startTime.UTC(),
		Dialects:        []Dialect{DialectSMB2_0_2, DialectSMB2_1},
	}
}

// Marshal serializes the NEGOTIATE request.
func (r *NegotiateRequest) Marshal() []byte {
	r.DialectCount = uint16(len(r.Dialects))
	buf := make([]byte, 36+2*len(r.Dialects))
	encoding.PutUint16LE(buf[0:2], r.StructureSize)
	encoding.PutUint16LE(buf[2:4], r.DialectCount)
	encoding.PutUint16LE(buf[4:6], r.SecurityMode)
	encoding.PutUint16LE(buf[6:8], r.Reserved)
	encoding.PutUint32LE(buf[8:12], uint32(r.Capabilities))
	copy(buf[12:28], r.ClientGuid[:])
	encoding.PutUint64LE(buf[28:36], encoding.TimeToFiletime(r.ClientStartTime))
	for i, d := range r.Dialects {
		encoding.PutUint16LE(buf[36+2*i:], uint16(d))
	}
	return buf
}

// Unmarshal deserializes a NEGOTIATE request.
func (r *NegotiateRequest) Unmarshal(buf []byte) error {
	if len(buf) < 36 {
		return ErrBufferTooSmall
	}
	r.StructureSize = encoding.Uint16LE(buf[0:2])
	r.DialectCount = encoding.Uint16LE(buf[2:4])
	r.SecurityMode = encoding.Uint16LE(buf[4:6])
	r.Reserved = encoding.Uint16LE(buf[6:8])
	r.Capabilities = Capabilities(encoding.Uint32LE(buf[8:12]))
	copy(r.ClientGuid[:], buf[12:28])
	r.ClientStartTime = encoding.FiletimeToTime(encoding.Uint64LE(buf[28:36])).UTC()
	if len(buf) < 36+2*int(r.DialectCount) {
		return ErrBufferTooSmall
	}
	r.Dialects = make([]Dialect, r.DialectCount)
	for i := range r.Dialects {
		r.Dialects[i] = Dialect(encoding.Uint16LE(buf[36+2*i:]))
	}
	return nil
}

// NegotiateResponse represents an SMB2 NEGOTIATE response.
type NegotiateResponse struct {
	StructureSize        uint16 // 65
	SecurityMode         uint16
	DialectRevision      Dialect
	Reserved             uint16
	ServerGuid           [16]byte
	Capabilities         Capabilities
	MaxTransactSize      uint32
	MaxReadSize          uint32
	MaxWriteSize         uint32
	SystemTime           uint64
	ServerStartTime      uint64
	SecurityBufferOffset uint16
	SecurityBufferLength uint16
	Reserved2            uint32
	SecurityBuffer       []byte
}

// RequiresSigning reports whether the server mandates message signing.
func (r *NegotiateResponse) RequiresSigning() bool {
	return r.SecurityMode&NegotiateSigningRequired != 0
}

// Marshal serializes the NEGOTIATE response.
func (r *NegotiateResponse) Marshal() []byte {
	r.SecurityBufferOffset = 0
	r.SecurityBufferLength = uint16(len(r.SecurityBuffer))
	if r.SecurityBufferLength > 0 {
		r.SecurityBufferOffset = SMB2HeaderSize + 64
	}
	buf := make([]byte, 64+len(r.SecurityBuffer))
	encoding.PutUint16LE(buf[0:2], r.StructureSize)
	encoding.PutUint16LE(buf[2:4], r.SecurityMode)
	encoding.PutUint16LE(buf[4:6], uint16(r.DialectRevision))
	encoding.PutUint16LE(buf[6:8], r.Reserved)
	copy(buf[8:24], r.ServerGuid[:])
	encoding.PutUint32LE(buf[24:28], uint32(r.Capabilities))
	encoding.PutUint32LE(buf[28:32], r.MaxTransactSize)
	encoding.PutUint32LE(buf[32:36], r.MaxReadSize)
	encoding.PutUint32LE(buf[36:40], r.MaxWriteSize)
	encoding.PutUint64LE(buf[40:48], r.SystemTime)
	encoding.PutUint64LE(buf[48:56], r.ServerStartTime)
	encoding.PutUint16LE(buf[56:58], r.SecurityBufferOffset)
	encoding.PutUint16LE(buf[58:60], r.SecurityBufferLength)
	encoding.PutUint32LE(buf[60:64], r.Reserved2)
	copy(buf[64:], r.SecurityBuffer)
	return buf
}

// Unmarshal deserializes a NEGOTIATE response.
func (r *NegotiateResponse) Unmarshal(buf []byte) error {
	if len(buf) < 64 {
		return ErrBufferTooSmall
	}
	r.StructureSize = encoding.Uint16LE(buf[0:2])
	r.SecurityMode = encoding.Uint16LE(buf[2:4])
	r.DialectRevision = Dialect(encoding.Uint16LE(buf[4:6]))
	r.Reserved = encoding.Uint16LE(buf[6:8])
	copy(r.ServerGuid[:], buf[8:24])
	r.Capabilities = Capabilities(encoding.Uint32LE(buf[24:28]))
	r.MaxTransactSize = encoding.Uint32LE(buf[28:32])
	r.MaxReadSize = encoding.Uint32LE(buf[32:36])
	r.MaxWriteSize = encoding.Uint32LE(buf[36:40])
	r.SystemTime = encoding.Uint64LE(buf[40:48])
	r.ServerStartTime = encoding.Uint64LE(buf[48:56])
	r.SecurityBufferOffset = encoding.Uint16LE(buf[56:58])
	r.SecurityBufferLength = encoding.Uint16LE(buf[58:60])
	r.Reserved2 = encoding.Uint32LE(buf[60:64])
	r.SecurityBuffer = extractBuffer(buf, uint32(r.SecurityBufferOffset), uint32(r.SecurityBufferLength))
	return nil
}

// extractBuffer slices a variable-length field addressed relative to the SMB2
// header start, as all SMB2 offsets are.
func extractBuffer(body []byte, offset, length uint32) []byte {
	if length == 0 {
		return nil
	}
	start := int(offset) - SMB2HeaderSize
	if start < 0 || start+int(length) > len(body) {
		return nil
	}
	out := make([]byte, length)
	copy(out, body[start:start+int(length)])
	return out
}
