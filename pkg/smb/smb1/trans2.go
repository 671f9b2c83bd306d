package smb1

import (
	"github.com/cmonto/SMBLibrary/internal/encoding"
	"github.com/cmonto/SMBLibrary/pkg/smb/types"
)

// Trans2 subcommands
const (
	Trans2FindFirst2           uint16 = 0x0001
	Trans2FindNext2            uint16 = 0x0002
	Trans2QueryFSInformation   uint16 = 0x0003
	Trans2QueryFileInformation uint16 = 0x0007
	Trans2SetFileInformation   uint16 = 0x0008
)

// Find flags
const (
	FindCloseAtEOS       uint16 = 0x0002
	FindReturnResumeKeys uint16 = 0x0004
	FindContinueFromLast uint16 = 0x0008
)

// FindFileBothDirectoryInfo is the information level used for directory
// enumeration; its wire layout matches the SMB2 FileBothDirectoryInformation
// entries.
const FindFileBothDirectoryInfo uint16 = 0x0104

// infoPassthroughBase maps NT information classes onto SMB_INFO_PASSTHROUGH
// levels. The client requires the InfoLevelPassthrough capability.
const infoPassthroughBase uint16 = 1000

// newTransaction2 assembles a TRANS2 primary request: 14 fixed words plus
// one setup word, the empty transaction name, and the 4-aligned parameter
// and data blocks. All counts must fit one message; this client never issues
// multi-part transactions.
func newTransaction2(subcommand uint16, transParams, transData []byte) *Message {
	params := make([]byte, 30)
	encoding.PutUint16LE(params[0:2], uint16(len(transParams))) // TotalParameterCount
	encoding.PutUint16LE(params[2:4], uint16(len(transData)))   // TotalDataCount
	encoding.PutUint16LE(params[4:6], 16)                       // MaxParameterCount
	encoding.PutUint16LE(params[6:8], ClientMaxBufferSize-512)  // MaxDataCount
	params[8] = 0                                               // MaxSetupCount
	// params[9] reserved, params[10:12] flags, params[12:16] timeout,
	// params[16:18] reserved
	encoding.PutUint16LE(params[18:20], uint16(len(transParams))) // ParameterCount
	encoding.PutUint16LE(params[22:24], uint16(len(transData)))   // DataCount
	params[26] = 1                                                // SetupCount
	encoding.PutUint16LE(params[28:30], subcommand)

	// The data block: name (one null byte for TRANS2), padding, parameters,
	// padding, data. Offsets are absolute from the SMB1 header start.
	bodyStart := HeaderSize + 1 + len(params) + 2
	var data []byte
	data = append(data, 0) // transaction name
	for (bodyStart+len(data))%4 != 0 {
		data = append(data, 0)
	}
	encoding.PutUint16LE(params[20:22], uint16(bodyStart+len(data))) // ParameterOffset
	data = append(data, transParams...)
	for (bodyStart+len(data))%4 != 0 {
		data = append(data, 0)
	}
	encoding.PutUint16LE(params[24:26], uint16(bodyStart+len(data))) // DataOffset
	data = append(data, transData...)

	msg := &Message{Params: params, Data: data}
	msg.Header.Command = CommandTrans2
	return msg
}

// parseTransactionResponse extracts the parameter and data blocks of a
// TRANS2 or NT_TRANSACT response, which address them by absolute offsets.
func parseTransactionResponse(msg *Message, wide bool) (transParams, transData []byte, err error) {
	p := msg.Params
	var paramCount, paramOffset, dataCount, dataOffset int
	if wide {
		// NT_TRANSACT response: 3 reserved bytes then 32-bit counts.
		if len(p) < 35 {
			return nil, nil, errTruncatedResponse
		}
		paramCount = int(encoding.Uint32LE(p[11:15]))
		paramOffset = int(encoding.Uint32LE(p[15:19]))
		dataCount = int(encoding.Uint32LE(p[23:27]))
		dataOffset = int(encoding.Uint32LE(p[27:31]))
	} else {
		if len(p) < 20 {
			return nil, nil, errTruncatedResponse
		}
		paramCount = int(encoding.Uint16LE(p[6:8]))
		paramOffset = int(encoding.Uint16LE(p[8:10]))
		dataCount = int(encoding.Uint16LE(p[12:14]))
		dataOffset = int(encoding.Uint16LE(p[14:16]))
	}
	if paramOffset+paramCount > len(msg.Raw) || dataOffset+dataCount > len(msg.Raw) {
		return nil, nil, errTruncatedResponse
	}
	return msg.Raw[paramOffset : paramOffset+paramCount],
		msg.Raw[dataOffset : dataOffset+dataCount], nil
}

// FindFirst2Request starts a directory search.
type FindFirst2Request struct {
	SearchAttributes uint16
	SearchCount      uint16
	Flags            uint16
	InformationLevel uint16
	FileName         string
}

// Marshal builds the TRANS2_FIND_FIRST2 message.
func (r *FindFirst2Request) Marshal() *Message {
	params := make([]byte, 12)
	encoding.PutUint16LE(params[0:2], r.SearchAttributes)
	encoding.PutUint16LE(params[2:4], r.SearchCount)
	encoding.PutUint16LE(params[4:6], r.Flags)
	encoding.PutUint16LE(params[6:8], r.InformationLevel)
	// params[8:12] SearchStorageType
	params = append(params, encoding.ToUTF16LEWithNull(r.FileName)...)
	return newTransaction2(Trans2FindFirst2, params, nil)
}

// FindFirst2Response reports the search handle and first batch.
type FindFirst2Response struct {
	SID         uint16
	SearchCount uint16
	EndOfSearch bool
	Entries     []types.FindEntry
}

// Unmarshal parses the response.
func (r *FindFirst2Response) Unmarshal(msg *Message) error {
	transParams, transData, err := parseTransactionResponse(msg, false)
	if err != nil {
		return err
	}
	if len(transParams) < 10 {
		return errTruncatedResponse
	}
	r.SID = encoding.Uint16LE(transParams[0:2])
	r.SearchCount = encoding.Uint16LE(transParams[2:4])
	r.EndOfSearch = encoding.Uint16LE(transParams[4:6]) != 0
	r.Entries = types.ParseFileBothDirInfo(transData)
	return nil
}

// FindNext2Request continues a directory search.
type FindNext2Request struct {
	SID              uint16
	SearchCount      uint16
	InformationLevel uint16
	Flags            uint16
	FileName         string
}

// Marshal builds the TRANS2_FIND_NEXT2 message.
func (r *FindNext2Request) Marshal() *Message {
	params := make([]byte, 12)
	encoding.PutUint16LE(params[0:2], r.SID)
	encoding.PutUint16LE(params[2:4], r.SearchCount)
	encoding.PutUint16LE(params[4:6], r.InformationLevel)
	// params[6:10] ResumeKey
	encoding.PutUint16LE(params[10:12], r.Flags)
	params = append(params, encoding.ToUTF16LEWithNull(r.FileName)...)
	return newTransaction2(Trans2FindNext2, params, nil)
}

// FindNext2Response reports a follow-up batch.
type FindNext2Response struct {
	SearchCount uint16
	EndOfSearch bool
	Entries     []types.FindEntry
}

// Unmarshal parses the response.
func (r *FindNext2Response) Unmarshal(msg *Message) error {
	transParams, transData, err := parseTransactionResponse(msg, false)
	if err != nil {
		return err
	}
	if len(transParams) < 8 {
		return errTruncatedResponse
	}
	r.SearchCount = encoding.Uint16LE(transParams[0:2])
	r.EndOfSearch = encoding.Uint16LE(transParams[2:4]) != 0
	r.Entries = types.ParseFileBothDirInfo(transData)
	return nil
}

// NewQueryFileInformation builds a TRANS2_QUERY_FILE_INFORMATION message
// using the passthrough information level.
func NewQueryFileInformation(fid uint16, infoClass types.FileInfoClass) *Message {
	params := make([]byte, 4)
	encoding.PutUint16LE(params[0:2], fid)
	encoding.PutUint16LE(params[2:4], infoPassthroughBase+uint16(infoClass))
	return newTransaction2(Trans2QueryFileInformation, params, nil)
}

// NewSetFileInformation builds a TRANS2_SET_FILE_INFORMATION message using
// the passthrough information level.
func NewSetFileInformation(fid uint16, infoClass types.FileInfoClass, buffer []byte) *Message {
	params := make([]byte, 6)
	encoding.PutUint16LE(params[0:2], fid)
	encoding.PutUint16LE(params[2:4], infoPassthroughBase+uint16(infoClass))
	return newTransaction2(Trans2SetFileInformation, params, buffer)
}

// NewQueryFSInformation builds a TRANS2_QUERY_FS_INFORMATION message using
// the passthrough information level.
func NewQueryFSInformation(infoClass types.FSInfoClass) *Message {
	params := make([]byte, 2)
	encoding.PutUint16LE(params[0:2], infoPassthroughBase+uint16(infoClass))
	return newTransaction2(Trans2QueryFSInformation, params, nil)
}

// TransactionData extracts the data block from an information-query
// transaction response.
func TransactionData(msg *Message) ([]byte, error) {
	_, data, err := parseTransactionResponse(msg, false)
	return data, err
}
