// Package dcerpc implements the minimal DCE/RPC connection-oriented client
// needed to call well-known interfaces over SMB named pipes: bind, request,
// and response reassembly.
package dcerpc

import (
	"errors"

	"github.com/jfjallid/golog"

	"github.com/cmonto/SMBLibrary/internal/encoding"
	"github.com/cmonto/SMBLibrary/pkg/pipe"
	"github.com/cmonto/SMBLibrary/pkg/smb/types"
)

var log = golog.Get("dcerpc")

// PDU types
const (
	ptypeRequest  uint8 = 0
	ptypeResponse uint8 = 2
	ptypeFault    uint8 = 3
	ptypeBind     uint8 = 11
	ptypeBindAck  uint8 = 12
	ptypeBindNak  uint8 = 13
)

// PFC flags
const (
	pfcFirstFrag uint8 = 0x01
	pfcLastFrag  uint8 = 0x02
)

const (
	headerSize   = 16
	maxXmitFrag  = 4280
	maxRecvFrag  = 4280
	ndrLittleEnd = 0x10
)

// UUID is a syntax identifier in wire byte order.
type UUID [16]byte

// NDR32 is the NDR 32-bit transfer syntax, version 2.
var NDR32 = UUID{
	0x04, 0x5d, 0x88, 0x8a, 0xeb, 0x1c, 0xc9, 0x11,
	0x9f, 0xe8, 0x08, 0x00, 0x2b, 0x10, 0x48, 0x60,
}

var (
	ErrBindRejected = errors.New("dcerpc: bind rejected")
	ErrFault        = errors.New("dcerpc: fault response")
	ErrBadResponse  = errors.New("dcerpc: malformed response")
)

// Client speaks connection-oriented DCE/RPC over a named pipe.
type Client struct {
	pipe   *pipe.Pipe
	callID uint32
}

// NewClient creates an RPC client over an open pipe.
func NewClient(p *pipe.Pipe) *Client {
	return &Client{pipe: p}
}

// header lays down the 16-byte common PDU header.
func (c *Client) header(buf []byte, ptype uint8, fragLen uint16) {
	buf[0] = 5 // major version
	buf[1] = 0 // minor version
	buf[2] = ptype
	buf[3] = pfcFirstFrag | pfcLastFrag
	buf[4] = ndrLittleEnd
	encoding.PutUint16LE(buf[8:10], fragLen)
	encoding.PutUint32LE(buf[12:16], c.callID)
}

// Bind negotiates one presentation context for the interface.
func (c *Client) Bind(abstractSyntax UUID, version uint16) error {
	c.callID++
	buf := make([]byte, 72)
	c.header(buf, ptypeBind, uint16(len(buf)))
	encoding.PutUint16LE(buf[16:18], maxXmitFrag)
	encoding.PutUint16LE(buf[18:20], maxRecvFrag)
	// assoc group 0
	buf[24] = 1 // context count
	// context id 0, one transfer syntax
	buf[28+2] = 1
	copy(buf[32:48], abstractSyntax[:])
	encoding.PutUint16LE(buf[48:50], version)
	copy(buf[52:68], NDR32[:])
	encoding.PutUint32LE(buf[68:72], 2) // transfer syntax version

	resp, status := c.pipe.Transact(buf)
	if !status.IsSuccess() {
		return errors.New("dcerpc: bind transact failed")
	}
	if len(resp) < headerSize || resp[2] != ptypeBindAck {
		log.Errorf("bind answered with PDU type %d\n", pduType(resp))
		return ErrBindRejected
	}
	return nil
}

// Call issues one request and reassembles the (possibly fragmented)
// response stub.
func (c *Client) Call(opnum uint16, stub []byte) ([]byte, error) {
	c.callID++
	buf := make([]byte, 24+len(stub))
	c.header(buf, ptypeRequest, uint16(len(buf)))
	encoding.PutUint32LE(buf[16:20], uint32(len(stub))) // alloc hint
	// context id 0
	encoding.PutUint16LE(buf[22:24], opnum)
	copy(buf[24:], stub)

	resp, status := c.pipe.Transact(buf)
	if !status.IsSuccess() {
		return nil, errors.New("dcerpc: request transact failed")
	}

	var out []byte
	for {
		if len(resp) < 24 {
			return nil, ErrBadResponse
		}
		switch resp[2] {
		case ptypeResponse:
		case ptypeFault:
			return nil, ErrFault
		default:
			return nil, ErrBadResponse
		}
		fragLen := int(encoding.Uint16LE(resp[8:10]))
		if fragLen > len(resp) {
			return nil, ErrBadResponse
		}
		out = append(out, resp[24:fragLen]...)
		if resp[3]&pfcLastFrag != 0 {
			return out, nil
		}
		var pipeStatus types.NTStatus
		resp, pipeStatus = c.pipe.Read(maxRecvFrag)
		if !pipeStatus.IsSuccess() && pipeStatus != types.StatusBufferOverflow {
			return nil, ErrBadResponse
		}
	}
}

func pduType(resp []byte) int {
	if len(resp) < 3 {
		return -1
	}
	return int(resp[2])
}
