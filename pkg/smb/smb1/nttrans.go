package smb1

import (
	"github.com/cmonto/SMBLibrary/internal/encoding"
)

// NT_TRANSACT functions
const (
	NTTransactIoctl        uint16 = 0x0002
	NTTransactNotifyChange uint16 = 0x0004
)

// newNTTransaction assembles an NT_TRANSACT primary request: 19 fixed words
// plus the setup words and the 4-aligned parameter and data blocks.
func newNTTransaction(function uint16, setup []byte, transParams, transData []byte) *Message {
	params := make([]byte, 38+len(setup))
	params[0] = 0 // MaxSetupCount
	// params[1:3] reserved
	encoding.PutUint32LE(params[3:7], uint32(len(transParams)))  // TotalParameterCount
	encoding.PutUint32LE(params[7:11], uint32(len(transData)))   // TotalDataCount
	encoding.PutUint32LE(params[11:15], 16)                      // MaxParameterCount
	encoding.PutUint32LE(params[15:19], ClientMaxBufferSize-512) // MaxDataCount
	encoding.PutUint32LE(params[19:23], uint32(len(transParams)))
	encoding.PutUint32LE(params[27:31], uint32(len(transData)))
	params[35] = uint8(len(setup) / 2)
	encoding.PutUint16LE(params[36:38], function)
	copy(params[38:], setup)

	bodyStart := HeaderSize + 1 + len(params) + 2
	var data []byte
	for (bodyStart+len(data))%4 != 0 {
		data = append(data, 0)
	}
	encoding.PutUint32LE(params[23:27], uint32(bodyStart+len(data))) // ParameterOffset
	data = append(data, transParams...)
	for (bodyStart+len(data))%4 != 0 {
		data = append(data, 0)
	}
	encoding.PutUint32LE(params[31:35], uint32(bodyStart+len(data))) // DataOffset
	data = append(data, transData...)

	msg := &Message{Params: params, Data: data}
	msg.Header.Command = CommandNTTrans
	return msg
}

// NewIoctlRequest builds an NT_TRANSACT_IOCTL message. The setup carries the
// control code and the FID; the data block is the ioctl input.
func NewIoctlRequest(fid uint16, ctlCode uint32, isFsctl bool, input []byte) *Message {
	setup := make([]byte, 8)
	encoding.PutUint32LE(setup[0:4], ctlCode)
	encoding.PutUint16LE(setup[4:6], fid)
	if isFsctl {
		setup[6] = 1
	}
	return newNTTransaction(NTTransactIoctl, setup, nil, input)
}

// NewNotifyChangeRequest builds an NT_TRANSACT_NOTIFY_CHANGE message.
func NewNotifyChangeRequest(fid uint16, completionFilter uint32, watchTree bool) *Message {
	setup := make([]byte, 8)
	encoding.PutUint32LE(setup[0:4], completionFilter)
	encoding.PutUint16LE(setup[4:6], fid)
	if watchTree {
		setup[6] = 1
	}
	return newNTTransaction(NTTransactNotifyChange, setup, nil, nil)
}

// NTTransactionOutput extracts parameter and data blocks from an NT_TRANSACT
// response. IOCTL output arrives in the data block; NOTIFY_CHANGE results in
// the parameter block.
func NTTransactionOutput(msg *Message) (transParams, transData []byte, err error) {
	return parseTransactionResponse(msg, true)
}
