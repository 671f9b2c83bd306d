package smb

import (
	"github.com/cmonto/SMBLibrary/internal/encoding"
	"github.com/cmonto/SMBLibrary/pkg/smb/types"
)

// FileStore is the SMB2 per-tree file operation surface.
type FileStore struct {
	client    *Client
	treeID    uint32
	shareName string
	shareType types.ShareType
}

var _ types.FileStore = (*FileStore)(nil)

// TreeID returns the bound tree identifier.
func (fs *FileStore) TreeID() uint32 {
	return fs.treeID
}

// ShareName returns the share this store is bound to.
func (fs *FileStore) ShareName() string {
	return fs.shareName
}

// IsPipe reports whether the bound share is IPC$.
func (fs *FileStore) IsPipe() bool {
	return fs.shareType == types.ShareTypePipe
}

// fileID validates that the handle belongs to this dialect and store.
func (fs *FileStore) fileID(handle types.FileHandle) (types.FileID, bool) {
	id, ok := handle.(types.FileID)
	return id, ok
}

// CreateFile opens or creates a file, directory or pipe on the tree.
func (fs *FileStore) CreateFile(path string, desiredAccess types.AccessMask,
	fileAttributes types.FileAttributes, shareAccess types.ShareAccess,
	createDisposition types.CreateDisposition, createOptions types.CreateOptions) (types.FileHandle, types.FileStatus, types.NTStatus) {

	req := types.NewCreateRequest(encoding.ToUTF16LE(path), desiredAccess,
		fileAttributes, shareAccess, createDisposition, createOptions)

	msg, status := fs.client.sendRecv(types.CommandCreate, fs.treeID, req.Marshal())
	if msg == nil || !msg.Header.Status.IsSuccess() {
		return nil, 0, status
	}
	var resp types.CreateResponse
	if err := resp.Unmarshal(msg.Body); err != nil {
		return nil, 0, types.StatusInvalidSMB
	}
	return resp.FileID, types.FileStatusFromCreateAction(resp.CreateAction), msg.Header.Status
}

// CloseFile releases the handle.
func (fs *FileStore) CloseFile(handle types.FileHandle) types.NTStatus {
	id, ok := fs.fileID(handle)
	if !ok {
		return types.StatusInvalidHandle
	}
	_, status := fs.client.sendRecv(types.CommandClose, fs.treeID,
		types.NewCloseRequest(id).Marshal())
	return status
}

// ReadFile reads up to maxCount bytes at offset. The count is clamped to the
// negotiated max read size.
func (fs *FileStore) ReadFile(handle types.FileHandle, offset uint64, maxCount uint32) ([]byte, types.NTStatus) {
	id, ok := fs.fileID(handle)
	if !ok {
		return nil, types.StatusInvalidHandle
	}
	if maxCount > fs.client.maxReadSize {
		maxCount = fs.client.maxReadSize
	}
	req := types.NewReadRequest(id, offset, maxCount)
	msg, status := fs.client.sendRecv(types.CommandRead, fs.treeID, req.Marshal())
	if msg == nil {
		return nil, status
	}
	// STATUS_BUFFER_OVERFLOW still delivers data on pipe reads.
	if !msg.Header.Status.IsSuccess() && msg.Header.Status != types.StatusBufferOverflow {
		return nil, msg.Header.Status
	}
	var resp types.ReadResponse
	if err := resp.Unmarshal(msg.Body); err != nil {
		return nil, types.StatusInvalidSMB
	}
	return resp.Data, msg.Header.Status
}

// WriteFile writes data at offset, chunking to the negotiated max write size.
func (fs *FileStore) WriteFile(handle types.FileHandle, offset uint64, data []byte) (uint32, types.NTStatus) {
	id, ok := fs.fileID(handle)
	if !ok {
		return 0, types.StatusInvalidHandle
	}
	var written uint32
	for len(data) > 0 {
		chunk := data
		if uint32(len(chunk)) > fs.client.maxWriteSize {
			chunk = chunk[:fs.client.maxWriteSize]
		}
		req := types.NewWriteRequest(id, offset, chunk)
		msg, status := fs.client.sendRecv(types.CommandWrite, fs.treeID, req.Marshal())
		if msg == nil {
			return written, status
		}
		if !msg.Header.Status.IsSuccess() {
			return written, msg.Header.Status
		}
		var resp types.WriteResponse
		if err := resp.Unmarshal(msg.Body); err != nil {
			return written, types.StatusInvalidSMB
		}
		written += resp.Count
		offset += uint64(resp.Count)
		data = data[resp.Count:]
	}
	return written, types.StatusSuccess
}

// FlushFileBuffers is not implemented by this client.
func (fs *FileStore) FlushFileBuffers(handle types.FileHandle) types.NTStatus {
	return types.StatusNotImplemented
}

// LockFile is not implemented by this client.
func (fs *FileStore) LockFile(handle types.FileHandle, offset, length uint64, exclusive bool) types.NTStatus {
	return types.StatusNotImplemented
}

// UnlockFile is not implemented by this client.
func (fs *FileStore) UnlockFile(handle types.FileHandle, offset, length uint64) types.NTStatus {
	return types.StatusNotImplemented
}

// QueryDirectory enumerates a directory handle. The first request reopens the
// scan; follow-ups page through it until the server reports no more files.
// The accumulated entries are returned together with the terminal status.
func (fs *FileStore) QueryDirectory(handle types.FileHandle, fileName string,
	informationClass types.FileInfoClass) ([]types.FindEntry, types.NTStatus) {
	id, ok := fs.fileID(handle)
	if !ok {
		return nil, types.StatusInvalidHandle
	}

	var entries []types.FindEntry
	pattern := encoding.ToUTF16LE(fileName)
	reopen := true
	for {
		req := types.NewQueryDirectoryRequest(id, pattern, informationClass)
		if reopen {
			req.Flags = types.QueryDirectoryReopen
			reopen = false
		}
		msg, status := fs.client.sendRecv(types.CommandQueryDirectory, fs.treeID, req.Marshal())
		if msg == nil {
			return entries, status
		}
		if !msg.Header.Status.IsSuccess() {
			return entries, msg.Header.Status
		}
		var resp types.QueryDirectoryResponse
		if err := resp.Unmarshal(msg.Body); err != nil {
			return entries, types.StatusInvalidSMB
		}
		entries = append(entries, types.ParseFileBothDirInfo(resp.OutputBuffer)...)
	}
}

// GetFileInformation queries a file information class on the handle.
func (fs *FileStore) GetFileInformation(handle types.FileHandle, informationClass types.FileInfoClass) ([]byte, types.NTStatus) {
	id, ok := fs.fileID(handle)
	if !ok {
		return nil, types.StatusInvalidHandle
	}
	req := types.NewQueryInfoRequest(id, types.InfoTypeFile, uint8(informationClass), 0, fs.client.maxTransactSize)
	return fs.queryInfo(req)
}

// SetFileInformation sets a file information class on the handle.
func (fs *FileStore) SetFileInformation(handle types.FileHandle, informationClass types.FileInfoClass, buffer []byte) types.NTStatus {
	id, ok := fs.fileID(handle)
	if !ok {
		return types.StatusInvalidHandle
	}
	req := types.NewSetInfoRequest(id, types.InfoTypeFile, uint8(informationClass), buffer)
	_, status := fs.client.sendRecv(types.CommandSetInfo, fs.treeID, req.Marshal())
	return status
}

// GetFileSystemInformation opens the tree root, queries the file system
// information class, and closes the handle again.
func (fs *FileStore) GetFileSystemInformation(informationClass types.FSInfoClass) ([]byte, types.NTStatus) {
	handle, _, status := fs.CreateFile("",
		types.FileListDirectory|types.FileReadAttributes|types.Synchronize,
		0, types.FileShareRead|types.FileShareWrite|types.FileShareDelete,
		types.FileOpen, types.FileSyncIoNonAlert|types.FileDirectoryFile)
	if !status.IsSuccess() {
		return nil, status
	}
	defer fs.CloseFile(handle)
	return fs.GetFileSystemInformationForHandle(handle, informationClass)
}

// GetFileSystemInformationForHandle queries a file system information class
// on an existing handle.
func (fs *FileStore) GetFileSystemInformationForHandle(handle types.FileHandle, informationClass types.FSInfoClass) ([]byte, types.NTStatus) {
	id, ok := fs.fileID(handle)
	if !ok {
		return nil, types.StatusInvalidHandle
	}
	req := types.NewQueryInfoRequest(id, types.InfoTypeFileSystem, uint8(informationClass), 0, fs.client.maxTransactSize)
	return fs.queryInfo(req)
}

// SetFileSystemInformation is not implemented by this client.
func (fs *FileStore) SetFileSystemInformation(informationClass types.FSInfoClass, buffer []byte) types.NTStatus {
	return types.StatusNotImplemented
}

// GetSecurityInformation queries the security descriptor of the handle.
func (fs *FileStore) GetSecurityInformation(handle types.FileHandle, securityInformation uint32) ([]byte, types.NTStatus) {
	id, ok := fs.fileID(handle)
	if !ok {
		return nil, types.StatusInvalidHandle
	}
	req := types.NewQueryInfoRequest(id, types.InfoTypeSecurity, 0, securityInformation, fs.client.maxTransactSize)
	return fs.queryInfo(req)
}

// SetSecurityInformation is refused; the server-side semantics are not
// exposed by this client.
func (fs *FileStore) SetSecurityInformation(handle types.FileHandle, securityInformation uint32, securityDescriptor []byte) types.NTStatus {
	return types.StatusNotSupported
}

// NotifyChange is not implemented by this client.
func (fs *FileStore) NotifyChange(handle types.FileHandle, completionFilter uint32, watchTree bool, outputBufferSize uint32) ([]byte, types.NTStatus) {
	return nil, types.StatusNotImplemented
}

// DeviceIOControl issues an FSCTL against the handle. Both STATUS_SUCCESS
// and STATUS_BUFFER_OVERFLOW deliver output data.
func (fs *FileStore) DeviceIOControl(handle types.FileHandle, ctlCode uint32, input []byte, maxOutputSize uint32) ([]byte, types.NTStatus) {
	id, ok := fs.fileID(handle)
	if !ok {
		return nil, types.StatusInvalidHandle
	}
	req := types.NewIoctlRequest(id, ctlCode, input, maxOutputSize)
	msg, status := fs.client.sendRecv(types.CommandIoctl, fs.treeID, req.Marshal())
	if msg == nil {
		return nil, status
	}
	if !msg.Header.Status.IsSuccess() && msg.Header.Status != types.StatusBufferOverflow {
		return nil, msg.Header.Status
	}
	var resp types.IoctlResponse
	if err := resp.Unmarshal(msg.Body); err != nil {
		return nil, types.StatusInvalidSMB
	}
	return resp.Output, msg.Header.Status
}

// Cancel is not implemented by this client.
func (fs *FileStore) Cancel() types.NTStatus {
	return types.StatusNotImplemented
}

// Disconnect unbinds the tree.
func (fs *FileStore) Disconnect() types.NTStatus {
	_, status := fs.client.sendRecv(types.CommandTreeDisconnect, fs.treeID,
		types.NewTreeDisconnectRequest().Marshal())
	return status
}

// queryInfo runs one QUERY_INFO round-trip and extracts the output buffer.
func (fs *FileStore) queryInfo(req *types.QueryInfoRequest) ([]byte, types.NTStatus) {
	msg, status := fs.client.sendRecv(types.CommandQueryInfo, fs.treeID, req.Marshal())
	if msg == nil {
		return nil, status
	}
	if !msg.Header.Status.IsSuccess() && msg.Header.Status != types.StatusBufferOverflow {
		return nil, msg.Header.Status
	}
	var resp types.QueryInfoResponse
	if err := resp.Unmarshal(msg.Body); err != nil {
		return nil, types.StatusInvalidSMB
	}
	return resp.OutputBuffer, msg.Header.Status
}
