package smb1

import (
	"errors"

	"github.com/cmonto/SMBLibrary/internal/encoding"
)

var errTruncatedResponse = errors.New("smb1: truncated response")

// ClientMaxBufferSize is advertised in session setup and bounds ReadAndX.
const ClientMaxBufferSize = 65535

// ClientMaxMpxCount is the multiplex depth advertised in session setup.
const ClientMaxMpxCount = 1

// SessionSetupAndXRequest is the pre-extended-security session setup,
// carrying the OEM (LM) and Unicode (NT) challenge responses directly.
type SessionSetupAndXRequest struct {
	MaxBufferSize   uint16
	MaxMpxCount     uint16
	VcNumber        uint16
	SessionKey      uint32
	Capabilities    uint32
	OEMPassword     []byte
	UnicodePassword []byte
	AccountName     string
	PrimaryDomain   string
	NativeOS        string
	NativeLanMan    string
}

// Marshal builds the 13-word request.
func (r *SessionSetupAndXRequest) Marshal() *Message {
	params := make([]byte, 26)
	params[0] = AndXNoFurtherCommand
	encoding.PutUint16LE(params[2:4], 0) // AndXOffset
	encoding.PutUint16LE(params[4:6], r.MaxBufferSize)
	encoding.PutUint16LE(params[6:8], r.MaxMpxCount)
	encoding.PutUint16LE(params[8:10], r.VcNumber)
	encoding.PutUint32LE(params[10:14], r.SessionKey)
	encoding.PutUint16LE(params[14:16], uint16(len(r.OEMPassword)))
	encoding.PutUint16LE(params[16:18], uint16(len(r.UnicodePassword)))
	// params[18:22] reserved
	encoding.PutUint32LE(params[22:26], r.Capabilities)

	var data []byte
	data = append(data, r.OEMPassword...)
	data = append(data, r.UnicodePassword...)
	if len(data)%2 == 0 {
		data = append(data, 0) // pad so Unicode strings start aligned
	}
	data = append(data, encoding.ToUTF16LEWithNull(r.AccountName)...)
	data = append(data, encoding.ToUTF16LEWithNull(r.PrimaryDomain)...)
	data = append(data, encoding.ToUTF16LEWithNull(r.NativeOS)...)
	data = append(data, encoding.ToUTF16LEWithNull(r.NativeLanMan)...)

	msg := &Message{Params: params, Data: data}
	msg.Header.Command = CommandSessionSetupAndX
	return msg
}

// SessionSetupAndXResponse is the 3-word pre-extended response.
type SessionSetupAndXResponse struct {
	Action uint16
}

// Unmarshal parses the response parameters.
func (r *SessionSetupAndXResponse) Unmarshal(msg *Message) error {
	if len(msg.Params) < 6 {
		return errTruncatedResponse
	}
	r.Action = encoding.Uint16LE(msg.Params[4:6])
	return nil
}

// SessionSetupAndXRequestExtended is the extended-security session setup
// carrying a SPNEGO blob.
type SessionSetupAndXRequestExtended struct {
	MaxBufferSize uint16
	MaxMpxCount   uint16
	VcNumber      uint16
	SessionKey    uint32
	Capabilities  uint32
	SecurityBlob  []byte
	NativeOS      string
	NativeLanMan  string
}

// Marshal builds the 12-word request.
func (r *SessionSetupAndXRequestExtended) Marshal() *Message {
	params := make([]byte, 24)
	params[0] = AndXNoFurtherCommand
	encoding.PutUint16LE(params[4:6], r.MaxBufferSize)
	encoding.PutUint16LE(params[6:8], r.MaxMpxCount)
	encoding.PutUint16LE(params[8:10], r.VcNumber)
	encoding.PutUint32LE(params[10:14], r.SessionKey)
	encoding.PutUint16LE(params[14:16], uint16(len(r.SecurityBlob)))
	// params[16:20] reserved
	encoding.PutUint32LE(params[20:24], r.Capabilities)

	var data []byte
	data = append(data, r.SecurityBlob...)
	if len(data)%2 == 0 {
		data = append(data, 0)
	}
	data = append(data, encoding.ToUTF16LEWithNull(r.NativeOS)...)
	data = append(data, encoding.ToUTF16LEWithNull(r.NativeLanMan)...)

	msg := &Message{Params: params, Data: data}
	msg.Header.Command = CommandSessionSetupAndX
	return msg
}

// SessionSetupAndXResponseExtended is the 4-word extended response carrying
// the server's SPNEGO reply blob.
type SessionSetupAndXResponseExtended struct {
	Action       uint16
	SecurityBlob []byte
}

// Unmarshal parses the response.
func (r *SessionSetupAndXResponseExtended) Unmarshal(msg *Message) error {
	if len(msg.Params) < 8 {
		return errTruncatedResponse
	}
	r.Action = encoding.Uint16LE(msg.Params[4:6])
	blobLength := int(encoding.Uint16LE(msg.Params[6:8]))
	if blobLength > len(msg.Data) {
		return errTruncatedResponse
	}
	r.SecurityBlob = msg.Data[:blobLength]
	return nil
}

// LogoffAndXRequest is the 2-word logoff.
type LogoffAndXRequest struct{}

// Marshal builds the request.
func (r *LogoffAndXRequest) Marshal() *Message {
	params := make([]byte, 4)
	params[0] = AndXNoFurtherCommand
	msg := &Message{Params: params}
	msg.Header.Command = CommandLogoffAndX
	return msg
}

// EchoRequest is the SMB1 liveness probe.
type EchoRequest struct {
	EchoCount uint16
	Data      []byte
}

// Marshal builds the request.
func (r *EchoRequest) Marshal() *Message {
	params := make([]byte, 2)
	encoding.PutUint16LE(params[0:2], r.EchoCount)
	msg := &Message{Params: params, Data: r.Data}
	msg.Header.Command = CommandEcho
	return msg
}
