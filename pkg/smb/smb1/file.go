package smb1

import (
	"github.com/cmonto/SMBLibrary/internal/encoding"
	"github.com/cmonto/SMBLibrary/pkg/smb/types"
)

// Parameter block sizes used by the read/write size formulas.
const (
	ReadAndXResponseParametersLength      = 24
	WriteAndXRequestParametersFixedLength = 24
)

// NTCreateAndXRequest opens or creates a file through the NT dialect create.
type NTCreateAndXRequest struct {
	Flags              uint32
	RootDirectoryFID   uint32
	DesiredAccess      types.AccessMask
	AllocationSize     uint64
	ExtFileAttributes  types.FileAttributes
	ShareAccess        types.ShareAccess
	CreateDisposition  types.CreateDisposition
	CreateOptions      types.CreateOptions
	ImpersonationLevel uint32
	SecurityFlags      uint8
	FileName           string
	Unicode            bool
}

// Marshal builds the 24-word request.
func (r *NTCreateAndXRequest) Marshal() *Message {
	var name []byte
	if r.Unicode {
		name = encoding.ToUTF16LEWithNull(r.FileName)
	} else {
		name = append([]byte(r.FileName), 0)
	}

	params := make([]byte, 48)
	params[0] = AndXNoFurtherCommand
	// params[1] AndXReserved, params[2:4] AndXOffset, params[4] Reserved
	encoding.PutUint16LE(params[5:7], uint16(len(name)))
	encoding.PutUint32LE(params[7:11], r.Flags)
	encoding.PutUint32LE(params[11:15], r.RootDirectoryFID)
	encoding.PutUint32LE(params[15:19], uint32(r.DesiredAccess))
	encoding.PutUint64LE(params[19:27], r.AllocationSize)
	encoding.PutUint32LE(params[27:31], uint32(r.ExtFileAttributes))
	encoding.PutUint32LE(params[31:35], uint32(r.ShareAccess))
	encoding.PutUint32LE(params[35:39], uint32(r.CreateDisposition))
	encoding.PutUint32LE(params[39:43], uint32(r.CreateOptions))
	encoding.PutUint32LE(params[43:47], r.ImpersonationLevel)
	params[47] = r.SecurityFlags

	var data []byte
	if r.Unicode {
		data = append(data, 0) // pad to align the Unicode name
	}
	data = append(data, name...)

	msg := &Message{Params: params, Data: data}
	msg.Header.Command = CommandNTCreateAndX
	return msg
}

// NTCreateAndXResponse reports the opened FID and create action.
type NTCreateAndXResponse struct {
	OpLockLevel       uint8
	FID               uint16
	CreateDisposition uint32 // action taken
	CreationTime      uint64
	LastAccessTime    uint64
	LastWriteTime     uint64
	ChangeTime        uint64
	ExtFileAttributes types.FileAttributes
	AllocationSize    uint64
	EndOfFile         uint64
	FileType          uint16
	NMPipeStatus      uint16
	Directory         bool
}

// Unmarshal parses the 34-word response.
func (r *NTCreateAndXResponse) Unmarshal(msg *Message) error {
	if len(msg.Params) < 68 {
		return errTruncatedResponse
	}
	p := msg.Params
	r.OpLockLevel = p[4]
	r.FID = encoding.Uint16LE(p[5:7])
	r.CreateDisposition = encoding.Uint32LE(p[7:11])
	r.CreationTime = encoding.Uint64LE(p[11:19])
	r.LastAccessTime = encoding.Uint64LE(p[19:27])
	r.LastWriteTime = encoding.Uint64LE(p[27:35])
	r.ChangeTime = encoding.Uint64LE(p[35:43])
	r.ExtFileAttributes = types.FileAttributes(encoding.Uint32LE(p[43:47]))
	r.AllocationSize = encoding.Uint64LE(p[47:55])
	r.EndOfFile = encoding.Uint64LE(p[55:63])
	r.FileType = encoding.Uint16LE(p[63:65])
	r.NMPipeStatus = encoding.Uint16LE(p[65:67])
	r.Directory = p[67] != 0
	return nil
}

// CloseRequest releases a FID.
type CloseRequest struct {
	FID              uint16
	LastTimeModified uint32
}

// Marshal builds the 3-word request.
func (r *CloseRequest) Marshal() *Message {
	params := make([]byte, 6)
	encoding.PutUint16LE(params[0:2], r.FID)
	encoding.PutUint32LE(params[2:6], r.LastTimeModified)
	msg := &Message{Params: params}
	msg.Header.Command = CommandClose
	return msg
}

// ReadAndXRequest reads from a FID at a 64-bit offset.
type ReadAndXRequest struct {
	FID      uint16
	Offset   uint64
	MaxCount uint16
	MinCount uint16
}

// Marshal builds the 12-word request (64-bit offset form).
func (r *ReadAndXRequest) Marshal() *Message {
	params := make([]byte, 24)
	params[0] = AndXNoFurtherCommand
	encoding.PutUint16LE(params[4:6], r.FID)
	encoding.PutUint32LE(params[6:10], uint32(r.Offset))
	encoding.PutUint16LE(params[10:12], r.MaxCount)
	encoding.PutUint16LE(params[12:14], r.MinCount)
	// params[14:18] Timeout, params[18:20] Remaining
	encoding.PutUint32LE(params[20:24], uint32(r.Offset>>32))
	msg := &Message{Params: params}
	msg.Header.Command = CommandReadAndX
	return msg
}

// ReadAndXResponse carries the read data.
type ReadAndXResponse struct {
	Available uint16
	Data      []byte
}

// Unmarshal parses the 12-word response; the data is addressed by an offset
// from the start of the SMB1 header.
func (r *ReadAndXResponse) Unmarshal(msg *Message, raw []byte) error {
	if len(msg.Params) < ReadAndXResponseParametersLength {
		return errTruncatedResponse
	}
	p := msg.Params
	r.Available = encoding.Uint16LE(p[4:6])
	dataLength := int(encoding.Uint16LE(p[10:12]))
	dataOffset := int(encoding.Uint16LE(p[12:14]))
	dataLength |= int(encoding.Uint16LE(p[14:16])) << 16 // DataLengthHigh
	if dataLength == 0 {
		return nil
	}
	if dataOffset+dataLength > len(raw) {
		return errTruncatedResponse
	}
	r.Data = raw[dataOffset : dataOffset+dataLength]
	return nil
}

// WriteAndXRequest writes to a FID at a 64-bit offset.
type WriteAndXRequest struct {
	FID    uint16
	Offset uint64
	Data   []byte
}

// Marshal builds the 14-word request (64-bit offset form). The data offset
// is absolute from the SMB1 header start.
func (r *WriteAndXRequest) Marshal() *Message {
	params := make([]byte, 28)
	params[0] = AndXNoFurtherCommand
	encoding.PutUint16LE(params[4:6], r.FID)
	encoding.PutUint32LE(params[6:10], uint32(r.Offset))
	// params[10:14] Timeout, params[14:16] WriteMode, params[16:18] Remaining
	encoding.PutUint16LE(params[18:20], uint16(len(r.Data)>>16)) // DataLengthHigh
	encoding.PutUint16LE(params[20:22], uint16(len(r.Data)))
	dataOffset := HeaderSize + 1 + len(params) + 2
	encoding.PutUint16LE(params[22:24], uint16(dataOffset))
	encoding.PutUint32LE(params[24:28], uint32(r.Offset>>32))

	msg := &Message{Params: params, Data: r.Data}
	msg.Header.Command = CommandWriteAndX
	return msg
}

// WriteAndXResponse reports the number of bytes written.
type WriteAndXResponse struct {
	Count     uint32
	Available uint16
}

// Unmarshal parses the 6-word response.
func (r *WriteAndXResponse) Unmarshal(msg *Message) error {
	if len(msg.Params) < 12 {
		return errTruncatedResponse
	}
	p := msg.Params
	count := uint32(encoding.Uint16LE(p[4:6]))
	r.Available = encoding.Uint16LE(p[6:8])
	count |= uint32(encoding.Uint16LE(p[8:10])) << 16 // CountHigh
	r.Count = count
	return nil
}
