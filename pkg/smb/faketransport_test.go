package smb

import (
	"io"
	"sync"

	"github.com/cmonto/SMBLibrary/internal/encoding"
	"github.com/cmonto/SMBLibrary/pkg/smb/types"
)

// fakeTransport is an in-memory wireTransport driven by a scripted handler.
type fakeTransport struct {
	mu       sync.Mutex
	closed   bool
	incoming chan []byte
	handler  func(req []byte) [][]byte
}

func newFakeTransport(handler func(req []byte) [][]byte) *fakeTransport {
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
	for _, resp := range t.handler(body) {
		t.incoming <- resp
	}
}

// push injects an unsolicited message.
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

func (t *fakeTransport) closedState() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.closed
}

func (t *fakeTransport) Close() {
	t.mu.Lock()
	defer t.mu.Unlock()
	if !t.closed {
		t.closed = true
		close(t.incoming)
	}
}

// respond builds a response frame mirroring the request's correlation
// fields.
func respond(req []byte, status types.NTStatus, body []byte, credits uint16) []byte {
	var reqHeader types.Header
	if err := reqHeader.Unmarshal(req); err != nil {
		panic(err)
	}
	h := types.NewHeader(reqHeader.Command)
	h.Status = status
	h.Flags = types.FlagsServerToRedir
	h.MessageID = reqHeader.MessageID
	h.SessionID = reqHeader.SessionID
	h.TreeID = reqHeader.TreeID
	h.CreditRequest = credits
	return append(h.Marshal(), body...)
}

// unsolicited builds a server-initiated frame.
func unsolicited(cmd types.Command, messageID uint64) []byte {
	h := types.NewHeader(cmd)
	h.Flags = types.FlagsServerToRedir
	h.MessageID = messageID
	return h.Marshal()
}

// dirEntry builds one FileBothDirectoryInformation entry for a plain file.
func dirEntry(name string) []byte {
	nameBytes := encoding.ToUTF16LE(name)
	buf := make([]byte, 94+len(nameBytes))
	encoding.PutUint32LE(buf[56:60], uint32(types.FileAttributeNormal))
	encoding.PutUint32LE(buf[60:64], uint32(len(nameBytes)))
	copy(buf[94:], nameBytes)
	return buf
}

// chainDirEntries links entries by filling in their NextEntryOffset fields.
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
