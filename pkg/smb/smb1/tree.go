package smb1

import (
	"github.com/cmonto/SMBLibrary/internal/encoding"
)

// Service strings for TreeConnectAndX
const (
	ServiceDisk      = "A:"
	ServicePrinter   = "LPT1:"
	ServiceNamedPipe = "IPC"
	ServiceAny       = "?????"
)

// TreeConnectAndXRequest binds to a share.
type TreeConnectAndXRequest struct {
	Flags    uint16
	Password []byte
	Path     string
	Service  string
}

// NewTreeConnectAndXRequest creates a request for the given share path.
func NewTreeConnectAndXRequest(path, service string) *TreeConnectAndXRequest {
	return &TreeConnectAndXRequest{
		Password: []byte{0},
		Path:     path,
		Service:  service,
	}
}

// Marshal builds the 4-word request.
func (r *TreeConnectAndXRequest) Marshal() *Message {
	params := make([]byte, 8)
	params[0] = AndXNoFurtherCommand
	encoding.PutUint16LE(params[4:6], r.Flags)
	encoding.PutUint16LE(params[6:8], uint16(len(r.Password)))

	var data []byte
	data = append(data, r.Password...)
	if len(data)%2 == 0 {
		data = append(data, 0) // pad before the Unicode path
	}
	data = append(data, encoding.ToUTF16LEWithNull(r.Path)...)
	data = append(data, []byte(r.Service)...)
	data = append(data, 0)

	msg := &Message{Params: params, Data: data}
	msg.Header.Command = CommandTreeConnectAndX
	return msg
}

// TreeConnectAndXResponse reports the connected service.
type TreeConnectAndXResponse struct {
	OptionalSupport uint16
	Service         string
}

// Unmarshal parses the response.
func (r *TreeConnectAndXResponse) Unmarshal(msg *Message) error {
	if len(msg.Params) < 6 {
		return errTruncatedResponse
	}
	r.OptionalSupport = encoding.Uint16LE(msg.Params[4:6])
	for i, b := range msg.Data {
		if b == 0 {
			r.Service = string(msg.Data[:i])
			break
		}
	}
	return nil
}

// TreeDisconnectRequest unbinds the current tree.
type TreeDisconnectRequest struct{}

// Marshal builds the request (no parameters).
func (r *TreeDisconnectRequest) Marshal() *Message {
	msg := &Message{}
	msg.Header.Command = CommandTreeDisconnect
	return msg
}
