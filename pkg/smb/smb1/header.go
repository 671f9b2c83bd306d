// Package smb1 implements the SMB1 (NT LM 0.12) client: dialect negotiation,
// session setup over both security models, tree connect, and the legacy AndX
// file store.
package smb1

import (
	"errors"

	"github.com/cmonto/SMBLibrary/internal/encoding"
)

// SMB1 command codes
type Command uint8

const (
	CommandClose            Command = 0x04
	CommandEcho             Command = 0x2B
	CommandReadAndX         Command = 0x2E
	CommandWriteAndX        Command = 0x2F
	CommandTrans2           Command = 0x32
	CommandTreeDisconnect   Command = 0x71
	CommandNegotiate        Command = 0x72
	CommandSessionSetupAndX Command = 0x73
	CommandLogoffAndX       Command = 0x74
	CommandTreeConnectAndX  Command = 0x75
	CommandNTTrans          Command = 0xA0
	CommandNTCreateAndX     Command = 0xA2
	CommandLockingAndX      Command = 0x24
)

// AndXNoFurtherCommand terminates an AndX chain.
const AndXNoFurtherCommand uint8 = 0xFF

// Header flags
const (
	FlagsCaseInsensitive uint8 = 0x08
	FlagsCanonicalized   uint8 = 0x10
	FlagsReply           uint8 = 0x80
)

// Header flags2
const (
	Flags2LongNamesAllowed uint16 = 0x0001
	Flags2LongNameUsed     uint16 = 0x0040
	Flags2ExtendedSecurity uint16 = 0x0800
	Flags2NTStatusCode     uint16 = 0x4000
	Flags2Unicode          uint16 = 0x8000
)

// Server capability bits from negotiate
const (
	CapRawMode              uint32 = 0x00000001
	CapUnicode              uint32 = 0x00000004
	CapLargeFiles           uint32 = 0x00000008
	CapNTSMB                uint32 = 0x00000010
	CapRpcRemoteApi         uint32 = 0x00000020
	CapNTStatusCode         uint32 = 0x00000040
	CapNTFind               uint32 = 0x00000200
	CapInfoLevelPassthrough uint32 = 0x00002000
	CapLargeRead            uint32 = 0x00004000
	CapLargeWrite           uint32 = 0x00008000
	CapExtendedSecurity     uint32 = 0x80000000
)

// MID reserved values for unsolicited server messages
const (
	MIDOplockBreak uint16 = 0xFFFF
)

// HeaderSize is the fixed SMB1 header size.
const HeaderSize = 32

// SMB1ProtocolID is the 0xFF 'S' 'M' 'B' signature.
var SMB1ProtocolID = [4]byte{0xFF, 'S', 'M', 'B'}

// Header is the SMB1 message header.
type Header struct {
	Protocol [4]byte
	Command  Command
	Status   uint32
	Flags    uint8
	Flags2   uint16
	PIDHigh  uint16
	Security [8]byte
	Reserved uint16
	TID      uint16
	PIDLow   uint16
	UID      uint16
	MID      uint16
}

// Marshal serializes the header.
func (h *Header) Marshal() []byte {
	buf := make([]byte, HeaderSize)
	copy(buf[0:4], h.Protocol[:])
	buf[4] = byte(h.Command)
	encoding.PutUint32LE(buf[5:9], h.Status)
	buf[9] = h.Flags
	encoding.PutUint16LE(buf[10:12], h.Flags2)
	encoding.PutUint16LE(buf[12:14], h.PIDHigh)
	copy(buf[14:22], h.Security[:])
	encoding.PutUint16LE(buf[22:24], h.Reserved)
	encoding.PutUint16LE(buf[24:26], h.TID)
	encoding.PutUint16LE(buf[26:28], h.PIDLow)
	encoding.PutUint16LE(buf[28:30], h.UID)
	encoding.PutUint16LE(buf[30:32], h.MID)
	return buf
}

// Unmarshal parses the header.
func (h *Header) Unmarshal(buf []byte) error {
	if len(buf) < HeaderSize {
		return errors.New("buffer too short for SMB1 header")
	}
	copy(h.Protocol[:], buf[0:4])
	if h.Protocol != SMB1ProtocolID {
		return errors.New("invalid SMB1 protocol ID")
	}
	h.Command = Command(buf[4])
	h.Status = encoding.Uint32LE(buf[5:9])
	h.Flags = buf[9]
	h.Flags2 = encoding.Uint16LE(buf[10:12])
	h.PIDHigh = encoding.Uint16LE(buf[12:14])
	copy(h.Security[:], buf[14:22])
	h.Reserved = encoding.Uint16LE(buf[22:24])
	h.TID = encoding.Uint16LE(buf[24:26])
	h.PIDLow = encoding.Uint16LE(buf[26:28])
	h.UID = encoding.Uint16LE(buf[28:30])
	h.MID = encoding.Uint16LE(buf[30:32])
	return nil
}

// IsResponse reports whether the reply flag is set.
func (h *Header) IsResponse() bool {
	return h.Flags&FlagsReply != 0
}

// Message is one SMB1 message: the header plus the raw parameter words and
// data bytes of a single (non-chained) command.
type Message struct {
	Header Header
	Params []byte // parameter words, without the leading word count
	Data   []byte // data bytes, without the leading byte count
	Raw    []byte // the full message, for offset-addressed fields
}

// Unmarshal parses header, word block and byte block.
func (m *Message) Unmarshal(buf []byte) error {
	if err := m.Header.Unmarshal(buf); err != nil {
		return err
	}
	m.Raw = buf
	body := buf[HeaderSize:]
	if len(body) < 1 {
		return errors.New("missing SMB1 word count")
	}
	wordCount := int(body[0])
	if len(body) < 1+2*wordCount+2 {
		return errors.New("truncated SMB1 parameter block")
	}
	m.Params = body[1 : 1+2*wordCount]
	byteCount := int(encoding.Uint16LE(body[1+2*wordCount:]))
	dataStart := 1 + 2*wordCount + 2
	if len(body) < dataStart+byteCount {
		return errors.New("truncated SMB1 data block")
	}
	m.Data = body[dataStart : dataStart+byteCount]
	return nil
}

// Marshal serializes the message.
func (m *Message) Marshal() []byte {
	buf := m.Header.Marshal()
	buf = append(buf, byte(len(m.Params)/2))
	buf = append(buf, m.Params...)
	buf = encoding.AppendUint16LE(buf, uint16(len(m.Data)))
	return append(buf, m.Data...)
}
