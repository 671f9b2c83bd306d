package smb1

import (
	"io"
	"sync"

	"github.com/cmonto/SMBLibrary/internal/encoding"
)

// fakeTransport is an in-memory wireTransport driven by a scripted handler.
type fakeTransport struct {
	mu       sync.Mutex
	closed   bool
	incoming chan []byte
	handler  func(req *Message) [][]byte
}

func newFakeTransport(handler func(req *Message) [][]byte) *fakeTransport {
	return &fakeTransport{
		incoming: make(chan []byte, 64),
		handler:  handler,
	}
}

func (t *fakeTransport) Send(body []byte) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.closed || t.handler == nil {
		return
	}
	var req Message
	if err := req.Unmarshal(body); err != nil {
		return
	}
	for _, resp := range t.handler(&req) {
		t.incoming <- resp
	}
}

func (t *fakeTransport) push(msg []byte) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if !t.closed {
		t.incoming <- msg
	}
}

func (t *fakeTransport) Receive() ([]byte, error) {
	msg, ok := <-t.incoming
	if !ok {
		return nil, io.EOF
	}
	return msg, nil
}

func (t *fakeTransport) Close() {
	t.mu.Lock()
	defer t.mu.Unlock()
	if !t.closed {
		t.closed = true
		close(t.incoming)
	}
}

// smb1Respond mirrors the request header into a reply frame.
func smb1Respond(req *Message, status uint32, params, data []byte) []byte {
	resp := &Message{Params: params, Data: data}
	resp.Header = req.Header
	resp.Header.Protocol = SMB1ProtocolID
	resp.Header.Flags |= FlagsReply
	resp.Header.Status = status
	return resp.Marshal()
}

// andxParams prefixes response parameter words with an empty AndX block.
func andxParams(rest ...byte) []byte {
	params := []byte{AndXNoFurtherCommand, 0, 0, 0}
	return append(params, rest...)
}

// classicNegotiateParams builds the 17-word pre-extended-security negotiate
// parameter block.
func classicNegotiateParams(caps uint32, maxBufferSize uint32, challengeLen uint8) []byte {
	params := make([]byte, 34)
	params[2] = 0x03 // user-level security, encrypted passwords
	encoding.PutUint16LE(params[3:5], 50)
	encoding.PutUint16LE(params[5:7], 1)
	encoding.PutUint32LE(params[7:11], maxBufferSize)
	encoding.PutUint32LE(params[11:15], 65536)
	encoding.PutUint32LE(params[19:23], caps)
	params[33] = challengeLen
	return params
}

// trans2Response assembles a TRANS2 reply with the given transaction
// parameter and data blocks.
func trans2Response(req *Message, status uint32, transParams, transData []byte) []byte {
	fixed := make([]byte, 20)
	encoding.PutUint16LE(fixed[0:2], uint16(len(transParams)))
	encoding.PutUint16LE(fixed[2:4], uint16(len(transData)))
	encoding.PutUint16LE(fixed[6:8], uint16(len(transParams)))
	encoding.PutUint16LE(fixed[12:14], uint16(len(transData)))

	bodyStart := HeaderSize + 1 + len(fixed) + 2
	var data []byte
	for (bodyStart+len(data))%4 != 0 {
		data = append(data, 0)
	}
	encoding.PutUint16LE(fixed[8:10], uint16(bodyStart+len(data))) // ParameterOffset
	data = append(data, transParams...)
	for (bodyStart+len(data))%4 != 0 {
		data = append(data, 0)
	}
	encoding.PutUint16LE(fixed[14:16], uint16(bodyStart+len(data))) // DataOffset
	data = append(data, transData...)

	return smb1Respond(req, status, fixed, data)
}

// dirEntry builds one FIND_FILE_BOTH_DIRECTORY_INFO entry.
func dirEntry(name string) []byte {
	nameBytes := encoding.ToUTF16LE(name)
	buf := make([]byte, 94+len(nameBytes))
	encoding.PutUint32LE(buf[56:60], 0x80) // FILE_ATTRIBUTE_NORMAL
	encoding.PutUint32LE(buf[60:64], uint32(len(nameBytes)))
	copy(buf[94:], nameBytes)
	return buf
}

// chainDirEntries links entries by NextEntryOffset.
func chainDirEntries(entries ...[]byte) []byte {
	var out []byte
	for i, e := range entries {
		if i < len(entries)-1 {
			encoding.PutUint32LE(e[0:4], uint32(len(e)))
		}
		out = append(out, e...)
	}
	return out
}
