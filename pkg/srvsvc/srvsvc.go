// Package srvsvc implements the slice of the Server Service Remote Protocol
// (MS-SRVS) the client needs: NetShareEnum at information level 1.
package srvsvc

import (
	"github.com/jfjallid/golog"

	"github.com/cmonto/SMBLibrary/internal/encoding"
	"github.com/cmonto/SMBLibrary/pkg/dcerpc"
	"github.com/cmonto/SMBLibrary/pkg/pipe"
	"github.com/cmonto/SMBLibrary/pkg/smb/types"
)

var log = golog.Get("srvsvc")

// PipeName is the endpoint of the server service.
const PipeName = "srvsvc"

// InterfaceUUID is 4b324fc8-1670-01d3-1278-5a47bf6ee188 in wire byte order.
var InterfaceUUID = dcerpc.UUID{
	0xc8, 0x4f, 0x32, 0x4b, 0x70, 0x16, 0xd3, 0x01,
	0x12, 0x78, 0x5a, 0x47, 0xbf, 0x6e, 0xe1, 0x88,
}

// InterfaceVersion is the srvsvc interface major version.
const InterfaceVersion = 3

// OpNetShareEnum is the NetrShareEnum opnum.
const OpNetShareEnum = 15

// ShareType is the srvsvc STYPE value of a share.
type ShareType uint32

// Share type values and modifier flags
const (
	ShareTypeDiskDrive ShareType = 0x00000000
	ShareTypePrinter   ShareType = 0x00000001
	ShareTypeDevice    ShareType = 0x00000002
	ShareTypeIPC       ShareType = 0x00000003
	ShareTypeTemporary ShareType = 0x40000000
	ShareTypeSpecial   ShareType = 0x80000000
)

// IsDiskDrive reports whether the share is a disk share, ignoring the
// special/temporary modifier bits (admin shares like C$ carry them).
func (t ShareType) IsDiskDrive() bool {
	return t&0x0FFFFFFF == ShareTypeDiskDrive
}

// ShareInfo is one SHARE_INFO_1 entry.
type ShareInfo struct {
	Name   string
	Type   ShareType
	Remark string
}

// NetShareEnum enumerates the shares of serverName over an IPC$ file store.
// The status is STATUS_SUCCESS on a completed enumeration; pipe or RPC
// failures surface the failing operation's status.
func NetShareEnum(fs types.FileStore, serverName string) ([]ShareInfo, types.NTStatus) {
	p, status := pipe.Open(fs, PipeName)
	if !status.IsSuccess() {
		return nil, status
	}
	defer p.Close()

	rpc := dcerpc.NewClient(p)
	if err := rpc.Bind(InterfaceUUID, InterfaceVersion); err != nil {
		log.Errorln(err)
		return nil, types.StatusPipeDisconnected
	}

	stub, err := rpc.Call(OpNetShareEnum, encodeNetShareEnum(serverName, 1))
	if err != nil {
		log.Errorln(err)
		return nil, types.StatusPipeDisconnected
	}
	shares, ok := parseNetShareEnumResponse(stub)
	if !ok {
		return nil, types.StatusInvalidSMB
	}
	return shares, types.StatusSuccess
}

// encodeNetShareEnum builds the NetrShareEnum NDR stub for level 1 with a
// referent server name and an empty container.
func encodeNetShareEnum(serverName string, level uint32) []byte {
	name := encoding.ToUTF16LE("\\\\" + serverName)
	nameChars := uint32(len(name)/2 + 1) // including terminator

	stub := make([]byte, 0, 64)
	// ServerName: unique pointer to a conformant varying wide string
	stub = encoding.AppendUint32LE(stub, 0x00020000)
	stub = encoding.AppendUint32LE(stub, nameChars)
	stub = encoding.AppendUint32LE(stub, 0)
	stub = encoding.AppendUint32LE(stub, nameChars)
	stub = append(stub, name...)
	stub = append(stub, 0, 0)
	for len(stub)%4 != 0 {
		stub = append(stub, 0)
	}

	// InfoStruct: level, switched union with a pointer to an empty container
	stub = encoding.AppendUint32LE(stub, level)
	stub = encoding.AppendUint32LE(stub, level)
	stub = encoding.AppendUint32LE(stub, 0x00020004) // container pointer
	stub = encoding.AppendUint32LE(stub, 0)          // EntriesRead
	stub = encoding.AppendUint32LE(stub, 0)          // Buffer (null)

	// PreferedMaximumLength
	stub = encoding.AppendUint32LE(stub, 0xFFFFFFFF)

	// ResumeHandle: pointer to zero
	stub = encoding.AppendUint32LE(stub, 0x00020008)
	stub = encoding.AppendUint32LE(stub, 0)
	return stub
}

// parseNetShareEnumResponse walks the SHARE_INFO_1 container: the fixed
// entry triples first, then the deferred conformant varying strings.
func parseNetShareEnumResponse(stub []byte) ([]ShareInfo, bool) {
	if len(stub) < 12 {
		return nil, false
	}
	// Level(4) + container pointer(4), then EntriesRead
	offset := 8
	entriesRead := encoding.Uint32LE(stub[offset:])
	offset += 4
	if entriesRead == 0 {
		return nil, true
	}
	if entriesRead > 4096 {
		return nil, false
	}
	offset += 8 // array pointer + MaxCount

	// Fixed part: netname ptr, type, remark ptr per entry
	shareTypes := make([]ShareType, 0, entriesRead)
	for i := uint32(0); i < entriesRead; i++ {
		if offset+12 > len(stub) {
			return nil, false
		}
		shareTypes = append(shareTypes, ShareType(encoding.Uint32LE(stub[offset+4:])))
		offset += 12
	}

	shares := make([]ShareInfo, 0, entriesRead)
	for _, shareType := range shareTypes {
		name, next, ok := readConformantString(stub, offset)
		if !ok {
			return shares, false
		}
		remark, next, ok := readConformantString(stub, next)
		if !ok {
			return shares, false
		}
		offset = next
		shares = append(shares, ShareInfo{Name: name, Type: shareType, Remark: remark})
	}
	return shares, true
}

// readConformantString decodes one conformant varying wide string and
// returns the following 4-aligned offset.
func readConformantString(stub []byte, offset int) (string, int, bool) {
	if offset+12 > len(stub) {
		return "", 0, false
	}
	actualCount := int(encoding.Uint32LE(stub[offset+8:]))
	offset += 12
	byteLen := actualCount * 2
	if byteLen < 0 || offset+byteLen > len(stub) {
		return "", 0, false
	}
	s := encoding.FromUTF16LE(stub[offset : offset+byteLen])
	offset += byteLen
	for offset%4 != 0 {
		offset++
	}
	return s, offset, true
}
