package smb1

import (
	"github.com/cmonto/SMBLibrary/pkg/smb/types"
)

// FileStore is the SMB1 per-tree file operation surface, implemented over
// the legacy AndX and transaction commands.
type FileStore struct {
	client *Client
	treeID uint16
}

var _ types.FileStore = (*FileStore)(nil)

// TreeID returns the bound tree identifier.
func (fs *FileStore) TreeID() uint16 {
	return fs.treeID
}

// fid validates that the handle belongs to this dialect and tree.
func (fs *FileStore) fid(handle types.FileHandle) (uint16, bool) {
	h, ok := handle.(types.LegacyHandle)
	if !ok || h.TID != fs.treeID {
		return 0, false
	}
	return h.FID, true
}

// CreateFile opens or creates a file through NTCreateAndX.
func (fs *FileStore) CreateFile(path string, desiredAccess types.AccessMask,
	fileAttributes types.FileAttributes, shareAccess types.ShareAccess,
	createDisposition types.CreateDisposition, createOptions types.CreateOptions) (types.FileHandle, types.FileStatus, types.NTStatus) {

	req := &NTCreateAndXRequest{
		DesiredAccess:      desiredAccess,
		ExtFileAttributes:  fileAttributes,
		ShareAccess:        shareAccess,
		CreateDisposition:  createDisposition,
		CreateOptions:      createOptions,
		ImpersonationLevel: types.ImpersonationImpersonation,
		FileName:           path,
		Unicode:            fs.client.unicode,
	}
	resp, status := fs.client.sendRecv(req.Marshal(), fs.treeID)
	if resp == nil || !types.NTStatus(resp.Header.Status).IsSuccess() {
		return nil, 0, status
	}
	var createResp NTCreateAndXResponse
	if err := createResp.Unmarshal(resp); err != nil {
		return nil, 0, types.StatusInvalidSMB
	}
	handle := types.LegacyHandle{FID: createResp.FID, TID: fs.treeID}
	return handle, types.FileStatusFromCreateAction(createResp.CreateDisposition), status
}

// CloseFile releases the FID.
func (fs *FileStore) CloseFile(handle types.FileHandle) types.NTStatus {
	fid, ok := fs.fid(handle)
	if !ok {
		return types.StatusInvalidHandle
	}
	req := &CloseRequest{FID: fid}
	_, status := fs.client.sendRecv(req.Marshal(), fs.treeID)
	return status
}

// ReadFile reads up to maxCount bytes at offset via ReadAndX.
func (fs *FileStore) ReadFile(handle types.FileHandle, offset uint64, maxCount uint32) ([]byte, types.NTStatus) {
	fid, ok := fs.fid(handle)
	if !ok {
		return nil, types.StatusInvalidHandle
	}
	if maxCount > fs.client.MaxReadSize() {
		maxCount = fs.client.MaxReadSize()
	}
	req := &ReadAndXRequest{FID: fid, Offset: offset, MaxCount: uint16(maxCount)}
	resp, status := fs.client.sendRecv(req.Marshal(), fs.treeID)
	if resp == nil {
		return nil, status
	}
	if !types.NTStatus(resp.Header.Status).IsSuccess() {
		return nil, types.NTStatus(resp.Header.Status)
	}
	var readResp ReadAndXResponse
	if err := readResp.Unmarshal(resp, resp.Raw); err != nil {
		return nil, types.StatusInvalidSMB
	}
	return readResp.Data, status
}

// WriteFile writes data at offset via WriteAndX, chunked to the server's
// buffer limit.
func (fs *FileStore) WriteFile(handle types.FileHandle, offset uint64, data []byte) (uint32, types.NTStatus) {
	fid, ok := fs.fid(handle)
	if !ok {
		return 0, types.StatusInvalidHandle
	}
	maxWrite := fs.client.MaxWriteSize()
	var written uint32
	for len(data) > 0 {
		chunk := data
		if uint32(len(chunk)) > maxWrite {
			chunk = chunk[:maxWrite]
		}
		req := &WriteAndXRequest{FID: fid, Offset: offset, Data: chunk}
		resp, status := fs.client.sendRecv(req.Marshal(), fs.treeID)
		if resp == nil {
			return written, status
		}
		if !types.NTStatus(resp.Header.Status).IsSuccess() {
			return written, types.NTStatus(resp.Header.Status)
		}
		var writeResp WriteAndXResponse
		if err := writeResp.Unmarshal(resp); err != nil {
			return written, types.StatusInvalidSMB
		}
		written += writeResp.Count
		offset += uint64(writeResp.Count)
		data = data[writeResp.Count:]
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

// QueryDirectory pages through FindFirst2/FindNext2. The handle is unused:
// SMB1 searches are addressed by path pattern.
func (fs *FileStore) QueryDirectory(handle types.FileHandle, fileName string,
	informationClass types.FileInfoClass) ([]types.FindEntry, types.NTStatus) {

	first := &FindFirst2Request{
		SearchAttributes: 0x0037, // include hidden, system and directories
		SearchCount:      100,
		Flags:            FindCloseAtEOS,
		InformationLevel: FindFileBothDirectoryInfo,
		FileName:         fileName,
	}
	resp, status := fs.client.sendRecv(first.Marshal(), fs.treeID)
	if resp == nil {
		return nil, status
	}
	if !types.NTStatus(resp.Header.Status).IsSuccess() {
		return nil, types.NTStatus(resp.Header.Status)
	}
	var firstResp FindFirst2Response
	if err := firstResp.Unmarshal(resp); err != nil {
		return nil, types.StatusInvalidSMB
	}
	entries := firstResp.Entries

	endOfSearch := firstResp.EndOfSearch
	for !endOfSearch {
		next := &FindNext2Request{
			SID:              firstResp.SID,
			SearchCount:      100,
			InformationLevel: FindFileBothDirectoryInfo,
			Flags:            FindCloseAtEOS | FindContinueFromLast,
		}
		resp, status := fs.client.sendRecv(next.Marshal(), fs.treeID)
		if resp == nil {
			return entries, status
		}
		if !types.NTStatus(resp.Header.Status).IsSuccess() {
			return entries, types.NTStatus(resp.Header.Status)
		}
		var nextResp FindNext2Response
		if err := nextResp.Unmarshal(resp); err != nil {
			return entries, types.StatusInvalidSMB
		}
		entries = append(entries, nextResp.Entries...)
		endOfSearch = nextResp.EndOfSearch || nextResp.SearchCount == 0
	}
	return entries, types.StatusSuccess
}

// GetFileInformation queries a passthrough information class on the FID.
func (fs *FileStore) GetFileInformation(handle types.FileHandle, informationClass types.FileInfoClass) ([]byte, types.NTStatus) {
	fid, ok := fs.fid(handle)
	if !ok {
		return nil, types.StatusInvalidHandle
	}
	resp, status := fs.client.sendRecv(NewQueryFileInformation(fid, informationClass), fs.treeID)
	if resp == nil {
		return nil, status
	}
	if !types.NTStatus(resp.Header.Status).IsSuccess() {
		return nil, types.NTStatus(resp.Header.Status)
	}
	data, err := TransactionData(resp)
	if err != nil {
		return nil, types.StatusInvalidSMB
	}
	return data, status
}

// SetFileInformation sets a passthrough information class on the FID.
func (fs *FileStore) SetFileInformation(handle types.FileHandle, informationClass types.FileInfoClass, buffer []byte) types.NTStatus {
	fid, ok := fs.fid(handle)
	if !ok {
		return types.StatusInvalidHandle
	}
	_, status := fs.client.sendRecv(NewSetFileInformation(fid, informationClass, buffer), fs.treeID)
	return status
}

// GetFileSystemInformation queries a passthrough file system information
// class on the tree.
func (fs *FileStore) GetFileSystemInformation(informationClass types.FSInfoClass) ([]byte, types.NTStatus) {
	resp, status := fs.client.sendRecv(NewQueryFSInformation(informationClass), fs.treeID)
	if resp == nil {
		return nil, status
	}
	if !types.NTStatus(resp.Header.Status).IsSuccess() {
		return nil, types.NTStatus(resp.Header.Status)
	}
	data, err := TransactionData(resp)
	if err != nil {
		return nil, types.StatusInvalidSMB
	}
	return data, status
}

// SetFileSystemInformation is not implemented by this client.
func (fs *FileStore) SetFileSystemInformation(informationClass types.FSInfoClass, buffer []byte) types.NTStatus {
	return types.StatusNotImplemented
}

// GetSecurityInformation is not implemented by this client.
func (fs *FileStore) GetSecurityInformation(handle types.FileHandle, securityInformation uint32) ([]byte, types.NTStatus) {
	return nil, types.StatusNotImplemented
}

// SetSecurityInformation is not implemented by this client.
func (fs *FileStore) SetSecurityInformation(handle types.FileHandle, securityInformation uint32, securityDescriptor []byte) types.NTStatus {
	return types.StatusNotImplemented
}

// NotifyChange issues NT_TRANSACT_NOTIFY_CHANGE and returns the change data
// from the parameter block.
func (fs *FileStore) NotifyChange(handle types.FileHandle, completionFilter uint32, watchTree bool, outputBufferSize uint32) ([]byte, types.NTStatus) {
	fid, ok := fs.fid(handle)
	if !ok {
		return nil, types.StatusInvalidHandle
	}
	resp, status := fs.client.sendRecv(NewNotifyChangeRequest(fid, completionFilter, watchTree), fs.treeID)
	if resp == nil {
		return nil, status
	}
	if !types.NTStatus(resp.Header.Status).IsSuccess() {
		return nil, types.NTStatus(resp.Header.Status)
	}
	transParams, _, err := NTTransactionOutput(resp)
	if err != nil {
		return nil, types.StatusInvalidSMB
	}
	return transParams, status
}

// DeviceIOControl issues NT_TRANSACT_IOCTL against the FID. Both
// STATUS_SUCCESS and STATUS_BUFFER_OVERFLOW deliver data.
func (fs *FileStore) DeviceIOControl(handle types.FileHandle, ctlCode uint32, input []byte, maxOutputSize uint32) ([]byte, types.NTStatus) {
	fid, ok := fs.fid(handle)
	if !ok {
		return nil, types.StatusInvalidHandle
	}
	resp, status := fs.client.sendRecv(NewIoctlRequest(fid, ctlCode, true, input), fs.treeID)
	if resp == nil {
		return nil, status
	}
	respStatus := types.NTStatus(resp.Header.Status)
	if !respStatus.IsSuccess() && respStatus != types.StatusBufferOverflow {
		return nil, respStatus
	}
	_, transData, err := NTTransactionOutput(resp)
	if err != nil {
		return nil, types.StatusInvalidSMB
	}
	return transData, respStatus
}

// Cancel is not implemented by this client.
func (fs *FileStore) Cancel() types.NTStatus {
	return types.StatusNotImplemented
}

// Disconnect unbinds the tree.
func (fs *FileStore) Disconnect() types.NTStatus {
	_, status := fs.client.sendRecv((&TreeDisconnectRequest{}).Marshal(), fs.treeID)
	return status
}
