// Package pipe provides named-pipe I/O over an IPC$ tree, shared by both
// dialect file stores.
package pipe

import (
	"github.com/cmonto/SMBLibrary/pkg/smb/types"
)

// Pipe is an open named pipe on an IPC$ tree.
type Pipe struct {
	fs     types.FileStore
	handle types.FileHandle
	name   string
}

// Open opens a named pipe for transacted I/O.
func Open(fs types.FileStore, name string) (*Pipe, types.NTStatus) {
	handle, _, status := fs.CreateFile(name,
		types.FileReadData|types.FileWriteData|types.Synchronize,
		0,
		types.FileShareRead|types.FileShareWrite,
		types.FileOpen,
		types.FileNonDirectoryFile)
	if !status.IsSuccess() {
		return nil, status
	}
	return &Pipe{fs: fs, handle: handle, name: name}, types.StatusSuccess
}

// Transact writes a request PDU and reads one response buffer. A
// STATUS_BUFFER_OVERFLOW read is followed up until the server drains the
// message.
func (p *Pipe) Transact(input []byte) ([]byte, types.NTStatus) {
	written, status := p.fs.WriteFile(p.handle, 0, input)
	if !status.IsSuccess() {
		return nil, status
	}
	if int(written) < len(input) {
		return nil, types.StatusPipeDisconnected
	}

	var output []byte
	for {
		chunk, status := p.fs.ReadFile(p.handle, 0, 4096)
		if !status.IsSuccess() && status != types.StatusBufferOverflow {
			return output, status
		}
		output = append(output, chunk...)
		if status != types.StatusBufferOverflow {
			return output, types.StatusSuccess
		}
	}
}

// Read pulls more data from the pipe, for fragmented responses.
func (p *Pipe) Read(maxCount uint32) ([]byte, types.NTStatus) {
	return p.fs.ReadFile(p.handle, 0, maxCount)
}

// Close releases the pipe handle.
func (p *Pipe) Close() types.NTStatus {
	return p.fs.CloseFile(p.handle)
}

// Name returns the pipe name.
func (p *Pipe) Name() string {
	return p.name
}
