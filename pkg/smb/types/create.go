package types

import (
	"github.com/cmonto/SMBLibrary/internal/encoding"
)

// FileID is the SMB2 16-byte file handle.
type FileID struct {
	Persistent [8]byte
	Volatile   [8]byte
}

// Marshal serializes the FileID.
func (f *FileID) Marshal() []byte {
	buf := make([]byte, 16)
	copy(buf[0:8], f.Persistent[:])
	copy(buf[8:16], f.Volatile[:])
	return buf
}

// Unmarshal deserializes a FileID.
func (f *FileID) Unmarshal(buf []byte) {
	if len(buf) >= 16 {
		copy(f.Persistent[:], buf[0:8])
		copy(f.Volatile[:], buf[8:16])
	}
}

// IsZero returns true if the FileID is zero/invalid.
func (f *FileID) IsZero() bool {
	for i := 0; i < 8; i++ {
		if f.Persistent[i] != 0 || f.Volatile[i] != 0 {
			return false
		}
	}
	return true
}

// ImpersonationLevel values
const (
	ImpersonationAnonymous     uint32 = 0
	ImpersonationIdentify      uint32 = 1
	ImpersonationImpersonation uint32 = 2
	ImpersonationDelegation    uint32 = 3
)

// OplockLevel values
const (
	OplockLevelNone      uint8 = 0x00
	OplockLevelII        uint8 = 0x01
	OplockLevelExclusive uint8 = 0x08
	OplockLevelBatch     uint8 = 0x09
)

// CreateRequest represents an SMB2 CREATE request.
type CreateRequest struct {
	StructureSize        uint16 // 57
	SecurityFlags        uint8
	RequestedOplockLevel uint8
	ImpersonationLevel   uint32
	SmbCreateFlags       uint64
	Reserved             uint64
	DesiredAccess        AccessMask
	FileAttributes       FileAttributes
	ShareAccess          ShareAccess
	CreateDisposition    CreateDisposition
	CreateOptions        CreateOptions
	NameOffset           uint16
	NameLength           uint16
	CreateContextsOffset uint32
	CreateContextsLength uint32
	Name                 []byte // UTF-16LE path relative to the tree root
}

// NewCreateRequest creates a CREATE request.
func NewCreateRequest(name []byte, access AccessMask, attrs FileAttributes,
	share ShareAccess, disposition CreateDisposition, options CreateOptions) *CreateRequest {
	return &CreateRequest{
		StructureSize:      57,
		ImpersonationLevel: ImpersonationImpersonation,
		DesiredAccess:      access,
		FileAttributes:     attrs,
		ShareAccess:        share,
		CreateDisposition:  disposition,
		CreateOptions:      options,
		Name:               name,
	}
}

// Marshal serializes the CREATE request. The name starts right after the
// 56-byte fixed part; one pad byte is emitted for an empty name.
func (r *CreateRequest) Marshal() []byte {
	r.NameOffset = SMB2HeaderSize + 56
	r.NameLength = uint16(len(r.Name))

	bufLen := 56 + len(r.Name)
	if bufLen == 56 {
		bufLen = 57
	}
	buf := make([]byte, bufLen)

	encoding.PutUint16LE(buf[0:2], r.StructureSize)
	buf[2] = r.SecurityFlags
	buf[3] = r.RequestedOplockLevel
	encoding.PutUint32LE(buf[4:8], r.ImpersonationLevel)
	encoding.PutUint64LE(buf[8:16], r.SmbCreateFlags)
	encoding.PutUint64LE(buf[16:24], r.Reserved)
	encoding.PutUint32LE(buf[24:28], uint32(r.DesiredAccess))
	encoding.PutUint32LE(buf[28:32], uint32(r.FileAttributes))
	encoding.PutUint32LE(buf[32:36], uint32(r.ShareAccess))
	encoding.PutUint32LE(buf[36:40], uint32(r.CreateDisposition))
	encoding.PutUint32LE(buf[40:44], uint32(r.CreateOptions))
	encoding.PutUint16LE(buf[44:46], r.NameOffset)
	encoding.PutUint16LE(buf[46:48], r.NameLength)
	encoding.PutUint32LE(buf[48:52], r.CreateContextsOffset)
	encoding.PutUint32LE(buf[52:56], r.CreateContextsLength)
	copy(buf[56:], r.Name)
	return buf
}

// CreateAction values reported by CREATE responses
const (
	CreateActionSuperseded  uint32 = 0
	CreateActionOpened      uint32 = 1
	CreateActionCreated     uint32 = 2
	CreateActionOverwritten uint32 = 3
)

// FileStatusFromCreateAction maps a CREATE response action to the
// dialect-independent FileStatus. Unknown actions count as opened.
func FileStatusFromCreateAction(action uint32) FileStatus {
	switch action {
	case CreateActionSuperseded:
		return FileStatusSuperseded
	case CreateActionCreated:
		return FileStatusCreated
	case CreateActionOverwritten:
		return FileStatusOverwritten
	default:
		return FileStatusOpened
	}
}

// CreateResponse represents an SMB2 CREATE response.
type CreateResponse struct {
	StructureSize        uint16 // 89
	OplockLevel          uint8
	Flags                uint8
	CreateAction         uint32
	CreationTime         uint64
	LastAccessTime       uint64
	LastWriteTime        uint64
	ChangeTime           uint64
	AllocationSize       uint64
	EndOfFile            uint64
	FileAttributes       FileAttributes
	Reserved2            uint32
	FileID               FileID
	CreateContextsOffset uint32
	CreateContextsLength uint32
}

// Unmarshal deserializes a CREATE response.
func (r *CreateResponse) Unmarshal(buf []byte) error {
	if len(buf) < 88 {
		return ErrBufferTooSmall
	}
	r.StructureSize = encoding.Uint16LE(buf[0:2])
	r.OplockLevel = buf[2]
	r.Flags = buf[3]
	r.CreateAction = encoding.Uint32LE(buf[4:8])
	r.CreationTime = encoding.Uint64LE(buf[8:16])
	r.LastAccessTime = encoding.Uint64LE(buf[16:24])
	r.LastWriteTime = encoding.Uint64LE(buf[24:32])
	r.ChangeTime = encoding.Uint64LE(buf[32:40])
	r.AllocationSize = encoding.Uint64LE(buf[40:48])
	r.EndOfFile = encoding.Uint64LE(buf[48:56])
	r.FileAttributes = FileAttributes(encoding.Uint32LE(buf[56:60]))
	r.Reserved2 = encoding.Uint32LE(buf[60:64])
	r.FileID.Unmarshal(buf[64:80])
	r.CreateContextsOffset = encoding.Uint32LE(buf[80:84])
	r.CreateContextsLength = encoding.Uint32LE(buf[84:88])
	return nil
}

// CloseRequest represents an SMB2 CLOSE request.
type CloseRequest struct {
	StructureSize uint16 // 24
	Flags         uint16
	Reserved      uint32
	FileID        FileID
}

// NewCloseRequest creates a CLOSE request.
func NewCloseRequest(fileID FileID) *CloseRequest {
	return &CloseRequest{
		StructureSize: 24,
		FileID:        fileID,
	}
}

// Marshal serializes the CLOSE request.
func (r *CloseRequest) Marshal() []byte {
	buf := make([]byte, 24)
	encoding.PutUint16LE(buf[0:2], r.StructureSize)
	encoding.PutUint16LE(buf[2:4], r.Flags)
	encoding.PutUint32LE(buf[4:8], r.Reserved)
	copy(buf[8:24], r.FileID.Marshal())
	return buf
}
