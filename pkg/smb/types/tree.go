package types

import (
	"github.com/cmonto/SMBLibrary/internal/encoding"
)

// TreeConnectRequest represents an SMB2 TREE_CONNECT request.
type TreeConnectRequest struct {
	StructureSize uint16 // 9
	Reserved      uint16
	PathOffset    uint16
	PathLength    uint16
	Path          []byte // UNC path, UTF-16LE
}

// NewTreeConnectRequest creates a TREE_CONNECT request for a UNC path.
func NewTreeConnectRequest(path []byte) *TreeConnectRequest {
	return &TreeConnectRequest{
		StructureSize: 9,
		Path:          path,
	}
}

// Marshal serializes the TREE_CONNECT request.
func (r *TreeConnectRequest) Marshal() []byte {
	r.PathOffset = SMB2HeaderSize + 8
	r.PathLength = uint16(len(r.Path))
	buf := make([]byte, 8+len(r.Path))
	encoding.PutUint16LE(buf[0:2], r.StructureSize)
	encoding.PutUint16LE(buf[2:4], r.Reserved)
	encoding.PutUint16LE(buf[4:6], r.PathOffset)
	encoding.PutUint16LE(buf[6:8], r.PathLength)
	copy(buf[8:], r.Path)
	return buf
}

// TreeConnectResponse represents an SMB2 TREE_CONNECT response.
type TreeConnectResponse struct {
	StructureSize uint16 // 16
	ShareType     ShareType
	Reserved      uint8
	ShareFlags    uint32
	Capabilities  uint32
	MaximalAccess AccessMask
}

// Unmarshal deserializes a TREE_CONNECT response.
func (r *TreeConnectResponse) Unmarshal(buf []byte) error {
	if len(buf) < 16 {
		return ErrBufferTooSmall
	}
	r.StructureSize = encoding.Uint16LE(buf[0:2])
	r.ShareType = ShareType(buf[2])
	r.Reserved = buf[3]
	r.ShareFlags = encoding.Uint32LE(buf[4:8])
	r.Capabilities = encoding.Uint32LE(buf[8:12])
	r.MaximalAccess = AccessMask(encoding.Uint32LE(buf[12:16]))
	return nil
}

// TreeDisconnectRequest represents an SMB2 TREE_DISCONNECT request.
type TreeDisconnectRequest struct {
	StructureSize uint16 // 4
	Reserved      uint16
}

// NewTreeDisconnectRequest creates a TREE_DISCONNECT request.
func NewTreeDisconnectRequest() *TreeDisconnectRequest {
	return &TreeDisconnectRequest{StructureSize: 4}
}

// Marshal serializes the TREE_DISCONNECT request.
func (r *TreeDisconnectRequest) Marshal() []byte {
	buf := make([]byte, 4)
	encoding.PutUint16LE(buf[0:2], r.StructureSize)
	encoding.PutUint16LE(buf[2:4], r.Reserved)
	return buf
}
