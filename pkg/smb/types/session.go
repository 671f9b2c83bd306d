package types

import (
	"github.com/cmonto/SMBLibrary/internal/encoding"
)

// SessionFlags in SESSION_SETUP responses
const (
	SessionFlagIsGuest uint16 = 0x0001
	SessionFlagIsNull  uint16 = 0x0002
)

// SessionSetupRequest represents an SMB2 SESSION_SETUP request. The security
// buffer carries a SPNEGO token.
type SessionSetupRequest struct {
	StructureSize        uint16 // 25
	Flags                uint8
	SecurityMode         uint8
	Capabilities         Capabilities
	Channel              uint32
	SecurityBufferOffset uint16
	SecurityBufferLength uint16
	PreviousSessionID    uint64
	SecurityBuffer       []byte
}

// NewSessionSetupRequest creates a SESSION_SETUP request.
func NewSessionSetupRequest(securityBuffer []byte) *SessionSetupRequest {
	return &SessionSetupRequest{
		StructureSize:  25,
		SecurityMode:   uint8(NegotiateSigningEnabled),
		SecurityBuffer: securityBuffer,
	}
}

// Marshal serializes the SESSION_SETUP request.
func (r *SessionSetupRequest) Marshal() []byte {
	r.SecurityBufferOffset = SMB2HeaderSize + 24
	r.SecurityBufferLength = uint16(len(r.SecurityBuffer))
	buf := make([]byte, 24+len(r.SecurityBuffer))
	encoding.PutUint16LE(buf[0:2], r.StructureSize)
	buf[2] = r.Flags
	buf[3] = r.SecurityMode
	encoding.PutUint32LE(buf[4:8], uint32(r.Capabilities))
	encoding.PutUint32LE(buf[8:12], r.Channel)
	encoding.PutUint16LE(buf[12:14], r.SecurityBufferOffset)
	encoding.PutUint16LE(buf[14:16], r.SecurityBufferLength)
	encoding.PutUint64LE(buf[16:24], r.PreviousSessionID)
	copy(buf[24:], r.SecurityBuffer)
	return buf
}

// SessionSetupResponse represents an SMB2 SESSION_SETUP response.
type SessionSetupResponse struct {
	StructureSize        uint16 // 9
	SessionFlags         uint16
	SecurityBufferOffset uint16
	SecurityBufferLength uint16
	SecurityBuffer       []byte
}

// IsGuest reports whether the server granted a guest session.
func (r *SessionSetupResponse) IsGuest() bool {
	return r.SessionFlags&SessionFlagIsGuest != 0
}

// Marshal serializes the SESSION_SETUP response.
func (r *SessionSetupResponse) Marshal() []byte {
	r.SecurityBufferOffset = 0
	r.SecurityBufferLength = uint16(len(r.SecurityBuffer))
	if r.SecurityBufferLength > 0 {
		r.SecurityBufferOffset = SMB2HeaderSize + 8
	}
	buf := make([]byte, 8+len(r.SecurityBuffer))
	encoding.PutUint16LE(buf[0:2], r.StructureSize)
	encoding.PutUint16LE(buf[2:4], r.SessionFlags)
	encoding.PutUint16LE(buf[4:6], r.SecurityBufferOffset)
	encoding.PutUint16LE(buf[6:8], r.SecurityBufferLength)
	copy(buf[8:], r.SecurityBuffer)
	return buf
}

// Unmarshal deserializes a SESSION_SETUP response.
func (r *SessionSetupResponse) Unmarshal(buf []byte) error {
	if len(buf) < 8 {
		return ErrBufferTooSmall
	}
	r.StructureSize = encoding.Uint16LE(buf[0:2])
	r.SessionFlags = encoding.Uint16LE(buf[2:4])
	r.SecurityBufferOffset = encoding.Uint16LE(buf[4:6])
	r.SecurityBufferLength = encoding.Uint16LE(buf[6:8])
	r.SecurityBuffer = extractBuffer(buf, uint32(r.SecurityBufferOffset), uint32(r.SecurityBufferLength))
	return nil
}

// LogoffRequest represents an SMB2 LOGOFF request.
type LogoffRequest struct {
	StructureSize uint16 // 4
	Reserved      uint16
}

// NewLogoffRequest creates a LOGOFF request.
func NewLogoffRequest() *LogoffRequest {
	return &LogoffRequest{StructureSize: 4}
}

// Marshal serializes the LOGOFF request.
func (r *LogoffRequest) Marshal() []byte {
	buf := make([]byte, 4)
	encoding.PutUint16LE(buf[0:2], r.StructureSize)
	encoding.PutUint16LE(buf[2:4], r.Reserved)
	return buf
}

// EchoRequest represents an SMB2 ECHO request.
type EchoRequest struct {
	StructureSize uint16 // 4
	Reserved      uint16
}

// NewEchoRequest creates an ECHO request.
func NewEchoRequest() *EchoRequest {
	return &EchoRequest{StructureSize: 4}
}

// Marshal serializes the ECHO request.
func (r *EchoRequest) Marshal() []byte {
	buf := make([]byte, 4)
	encoding.PutUint16LE(buf[0:2], r.StructureSize)
	encoding.PutUint16LE(buf[2:4], r.Reserved)
	return buf
}
