package types

import (
	"github.com/cmonto/SMBLibrary/internal/encoding"
)

// IoctlIsFsctl marks the control code as a file system control code.
const IoctlIsFsctl uint32 = 0x00000001

// IoctlRequest represents an SMB2 IOCTL request.
type IoctlRequest struct {
	StructureSize     uint16 // 57
	Reserved          uint16
	CtlCode           uint32
	FileID            FileID
	InputOffset       uint32
	InputCount        uint32
	MaxInputResponse  uint32
	OutputOffset      uint32
	OutputCount       uint32
	MaxOutputResponse uint32
	Flags             uint32
	Reserved2         uint32
	Input             []byte
}

// NewIoctlRequest creates an IOCTL request with the FSCTL flag set.
func NewIoctlRequest(fileID FileID, ctlCode uint32, input []byte, maxOutput uint32) *IoctlRequest {
	return &IoctlRequest{
		StructureSize:     57,
		CtlCode:           ctlCode,
		FileID:            fileID,
		MaxOutputResponse: maxOutput,
		Flags:             IoctlIsFsctl,
		Input:             input,
	}
}

// Marshal serializes the IOCTL request.
func (r *IoctlRequest) Marshal() []byte {
	r.InputOffset = 0
	r.InputCount = uint32(len(r.Input))
	if r.InputCount > 0 {
		r.InputOffset = SMB2HeaderSize + 56
	}
	buf := make([]byte, 56+len(r.Input))
	encoding.PutUint16LE(buf[0:2], r.StructureSize)
	encoding.PutUint16LE(buf[2:4], r.Reserved)
	encoding.PutUint32LE(buf[4:8], r.CtlCode)
	copy(buf[8:24], r.FileID.Marshal())
	encoding.PutUint32LE(buf[24:28], r.InputOffset)
	encoding.PutUint32LE(buf[28:32], r.InputCount)
	encoding.PutUint32LE(buf[32:36], r.MaxInputResponse)
	encoding.PutUint32LE(buf[36:40], r.OutputOffset)
	encoding.PutUint32LE(buf[40:44], r.OutputCount)
	encoding.PutUint32LE(buf[44:48], r.MaxOutputResponse)
	encoding.PutUint32LE(buf[48:52], r.Flags)
	encoding.PutUint32LE(buf[52:56], r.Reserved2)
	copy(buf[56:], r.Input)
	return buf
}

// IoctlResponse represents an SMB2 IOCTL response.
type IoctlResponse struct {
	StructureSize uint16 // 49
	Reserved      uint16
	CtlCode       uint32
	FileID        FileID
	InputOffset   uint32
	InputCount    uint32
	OutputOffset  uint32
	OutputCount   uint32
	Flags         uint32
	Reserved2     uint32
	Output        []byte
}

// Unmarshal deserializes an IOCTL response.
func (r *IoctlResponse) Unmarshal(buf []byte) error {
	if len(buf) < 48 {
		return ErrBufferTooSmall
	}
	r.StructureSize = encoding.Uint16LE(buf[0:2])
	r.Reserved = encoding.Uint16LE(buf[2:4])
	r.CtlCode = encoding.Uint32LE(buf[4:8])
	r.FileID.Unmarshal(buf[8:24])
	r.InputOffset = encoding.Uint32LE(buf[24:28])
	r.InputCount = encoding.Uint32LE(buf[28:32])
	r.OutputOffset = encoding.Uint32LE(buf[32:36])
	r.OutputCount = encoding.Uint32LE(buf[36:40])
	r.Flags = encoding.Uint32LE(buf[40:44])
	r.Reserved2 = encoding.Uint32LE(buf[44:48])
	r.Output = extractBuffer(buf, r.OutputOffset, r.OutputCount)
	return nil
}
