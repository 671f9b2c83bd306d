package types

import (
	"github.com/cmonto/SMBLibrary/internal/encoding"
)

// QueryDirectory flags
const (
	QueryDirectoryRestartScans   uint8 = 0x01
	QueryDirectoryReturnSingle   uint8 = 0x02
	QueryDirectoryIndexSpecified uint8 = 0x04
	QueryDirectoryReopen         uint8 = 0x10
)

// QueryDirectoryRequest represents an SMB2 QUERY_DIRECTORY request.
type QueryDirectoryRequest struct {
	StructureSize      uint16 // 33
	InformationClass   FileInfoClass
	Flags              uint8
	FileIndex          uint32
	FileID             FileID
	FileNameOffset     uint16
	FileNameLength     uint16
	OutputBufferLength uint32
	FileName           []byte // search pattern, UTF-16LE
}

// NewQueryDirectoryRequest creates a QUERY_DIRECTORY request.
func NewQueryDirectoryRequest(fileID FileID, pattern []byte, infoClass FileInfoClass) *QueryDirectoryRequest {
	return &QueryDirectoryRequest{
		StructureSize:      33,
		InformationClass:   infoClass,
		FileID:             fileID,
		OutputBufferLength: 65536,
		FileName:           pattern,
	}
}

// Marshal serializes the QUERY_DIRECTORY request.
func (r *QueryDirectoryRequest) Marshal() []byte {
	r.FileNameOffset = 0
	r.FileNameLength = uint16(len(r.FileName))
	if r.FileNameLength > 0 {
		r.FileNameOffset = SMB2HeaderSize + 32
	}
	buf := make([]byte, 32+len(r.FileName))
	encoding.PutUint16LE(buf[0:2], r.StructureSize)
	buf[2] = uint8(r.InformationClass)
	buf[3] = r.Flags
	encoding.PutUint32LE(buf[4:8], r.FileIndex)
	copy(buf[8:24], r.FileID.Marshal())
	encoding.PutUint16LE(buf[24:26], r.FileNameOffset)
	encoding.PutUint16LE(buf[26:28], r.FileNameLength)
	encoding.PutUint32LE(buf[28:32], r.OutputBufferLength)
	copy(buf[32:], r.FileName)
	return buf
}

// QueryDirectoryResponse represents an SMB2 QUERY_DIRECTORY response.
type QueryDirectoryResponse struct {
	StructureSize      uint16 // 9
	OutputBufferOffset uint16
	OutputBufferLength uint32
	OutputBuffer       []byte
}

// Unmarshal deserializes a QUERY_DIRECTORY response.
func (r *QueryDirectoryResponse) Unmarshal(buf []byte) error {
	if len(buf) < 8 {
		return ErrBufferTooSmall
	}
	r.StructureSize = encoding.Uint16LE(buf[0:2])
	r.OutputBufferOffset = encoding.Uint16LE(buf[2:4])
	r.OutputBufferLength = encoding.Uint32LE(buf[4:8])
	r.OutputBuffer = extractBuffer(buf, uint32(r.OutputBufferOffset), r.OutputBufferLength)
	return nil
}

// ParseFileBothDirInfo walks a FileBothDirectoryInformation buffer and
// returns the decoded entries.
func ParseFileBothDirInfo(buf []byte) []FindEntry {
	var entries []FindEntry
	offset := 0
	for offset+94 <= len(buf) {
		next := encoding.Uint32LE(buf[offset : offset+4])
		entry := buf[offset:]
		if next > 0 && offset+int(next) <= len(buf) {
			entry = buf[offset : offset+int(next)]
		}

		nameLen := int(encoding.Uint32LE(entry[60:64]))
		shortLen := int(entry[68])
		if 94+nameLen > len(entry) {
			break
		}
		entries = append(entries, FindEntry{
			FileName:       encoding.FromUTF16LE(entry[94 : 94+nameLen]),
			ShortName:      encoding.FromUTF16LE(entry[70 : 70+min(shortLen, 24)]),
			Size:           encoding.Uint64LE(entry[40:48]),
			AllocationSize: encoding.Uint64LE(entry[48:56]),
			Attributes:     FileAttributes(encoding.Uint32LE(entry[56:60])),
			CreationTime:   encoding.FiletimeToTime(encoding.Uint64LE(entry[8:16])),
			LastAccessTime: encoding.FiletimeToTime(encoding.Uint64LE(entry[16:24])),
			LastWriteTime:  encoding.FiletimeToTime(encoding.Uint64LE(entry[24:32])),
			ChangeTime:     encoding.FiletimeToTime(encoding.Uint64LE(entry[32:40])),
		})

		if next == 0 {
			break
		}
		offset += int(next)
	}
	return entries
}

// QueryInfoRequest represents an SMB2 QUERY_INFO request.
type QueryInfoRequest struct {
	StructureSize      uint16 // 41
	InfoType           uint8
	FileInfoClass      uint8
	OutputBufferLength uint32
	InputBufferOffset  uint16
	Reserved           uint16
	InputBufferLength  uint32
	AdditionalInfo     uint32
	Flags              uint32
	FileID             FileID
}

// NewQueryInfoRequest creates a QUERY_INFO request.
func NewQueryInfoRequest(fileID FileID, infoType, infoClass uint8, additionalInfo, outputLength uint32) *QueryInfoRequest {
	return &QueryInfoRequest{
		StructureSize:      41,
		InfoType:           infoType,
		FileInfoClass:      infoClass,
		OutputBufferLength: outputLength,
		AdditionalInfo:     additionalInfo,
		FileID:             fileID,
	}
}

// Marshal serializes the QUERY_INFO request.
func (r *QueryInfoRequest) Marshal() []byte {
	buf := make([]byte, 40)
	encoding.PutUint16LE(buf[0:2], r.StructureSize)
	buf[2] = r.InfoType
	buf[3] = r.FileInfoClass
	encoding.PutUint32LE(buf[4:8], r.OutputBufferLength)
	encoding.PutUint16LE(buf[8:10], r.InputBufferOffset)
	encoding.PutUint16LE(buf[10:12], r.Reserved)
	encoding.PutUint32LE(buf[12:16], r.InputBufferLength)
	encoding.PutUint32LE(buf[16:20], r.AdditionalInfo)
	encoding.PutUint32LE(buf[20:24], r.Flags)
	copy(buf[24:40], r.FileID.Marshal())
	return buf
}

// QueryInfoResponse represents an SMB2 QUERY_INFO response.
type QueryInfoResponse struct {
	StructureSize      uint16 // 9
	OutputBufferOffset uint16
	OutputBufferLength uint32
	OutputBuffer       []byte
}

// Unmarshal deserializes a QUERY_INFO response.
func (r *QueryInfoResponse) Unmarshal(buf []byte) error {
	if len(buf) < 8 {
		return ErrBufferTooSmall
	}
	r.StructureSize = encoding.Uint16LE(buf[0:2])
	r.OutputBufferOffset = encoding.Uint16LE(buf[2:4])
	r.OutputBufferLength = encoding.Uint32LE(buf[4:8])
	r.OutputBuffer = extractBuffer(buf, uint32(r.OutputBufferOffset), r.OutputBufferLength)
	return nil
}

// SetInfoRequest represents an SMB2 SET_INFO request.
type SetInfoRequest struct {
	StructureSize  uint16 // 33
	InfoType       uint8
	FileInfoClass  uint8
	BufferLength   uint32
	BufferOffset   uint16
	Reserved       uint16
	AdditionalInfo uint32
	FileID         FileID
	Buffer         []byte
}

// NewSetInfoRequest creates a SET_INFO request.
func NewSetInfoRequest(fileID FileID, infoType, infoClass uint8, buffer []byte) *SetInfoRequest {
	return &SetInfoRequest{
		StructureSize: 33,
		InfoType:      infoType,
		FileInfoClass: infoClass,
		BufferLength:  uint32(len(buffer)),
		BufferOffset:  SMB2HeaderSize + 32,
		FileID:        fileID,
		Buffer:        buffer,
	}
}

// Marshal serializes the SET_INFO request.
func (r *SetInfoRequest) Marshal() []byte {
	buf := make([]byte, 32+len(r.Buffer))
	encoding.PutUint16LE(buf[0:2], r.StructureSize)
	buf[2] = r.InfoType
	buf[3] = r.FileInfoClass
	encoding.PutUint32LE(buf[4:8], r.BufferLength)
	encoding.PutUint16LE(buf[8:10], r.BufferOffset)
	encoding.PutUint16LE(buf[10:12], r.Reserved)
	encoding.PutUint32LE(buf[12:16], r.AdditionalInfo)
	copy(buf[16:32], r.FileID.Marshal())
	copy(buf[32:], r.Buffer)
	return buf
}
