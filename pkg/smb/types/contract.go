package types

import (
	"errors"
	"time"

	"github.com/cmonto/SMBLibrary/pkg/netbios"
)

// Lifecycle misuse errors. Protocol outcomes are NTStatus values; these are
// returned only when the caller invokes an operation in the wrong client
// state.
var (
	ErrNotConnected    = errors.New("smb: client is not connected")
	ErrAlreadyLoggedIn = errors.New("smb: client is already logged in")
	ErrNotLoggedIn     = errors.New("smb: client is not logged in")
)

// AuthMethod selects the NTLM flavor used during Login.
type AuthMethod int

const (
	AuthNTLMv1 AuthMethod = iota
	AuthNTLMv1ExtendedSessionSecurity
	AuthNTLMv2
)

// FileStatus is the dialect-independent outcome of CreateFile.
type FileStatus uint32

const (
	FileStatusSuperseded  FileStatus = 0
	FileStatusOpened      FileStatus = 1
	FileStatusCreated     FileStatus = 2
	FileStatusOverwritten FileStatus = 3
)

// FileHandle is an opaque open-file token. The concrete type is owned by the
// file store that issued it; handing a handle to the other dialect's store
// yields STATUS_INVALID_HANDLE.
type FileHandle interface {
	isFileHandle()
}

// LegacyHandle is the SMB1 handle: a FID scoped to its owning TID.
type LegacyHandle struct {
	FID uint16
	TID uint16
}

func (LegacyHandle) isFileHandle() {}

func (FileID) isFileHandle() {}

// FindEntry is one directory entry produced by QueryDirectory.
type FindEntry struct {
	FileName       string
	ShortName      string
	Size           uint64
	AllocationSize uint64
	Attributes     FileAttributes
	CreationTime   time.Time
	LastAccessTime time.Time
	LastWriteTime  time.Time
	ChangeTime     time.Time
}

// IsDirectory reports whether the entry is a directory.
func (e *FindEntry) IsDirectory() bool {
	return e.Attributes&FileAttributeDirectory != 0
}

// FileStore is the per-tree file operation surface, identical across
// dialects. Operations return the server's NTStatus verbatim;
// STATUS_INVALID_SMB stands in for a response that never arrived.
type FileStore interface {
	CreateFile(path string, desiredAccess AccessMask, fileAttributes FileAttributes,
		shareAccess ShareAccess, createDisposition CreateDisposition,
		createOptions CreateOptions) (FileHandle, FileStatus, NTStatus)
	CloseFile(handle FileHandle) NTStatus
	ReadFile(handle FileHandle, offset uint64, maxCount uint32) ([]byte, NTStatus)
	WriteFile(handle FileHandle, offset uint64, data []byte) (uint32, NTStatus)
	FlushFileBuffers(handle FileHandle) NTStatus
	LockFile(handle FileHandle, offset uint64, length uint64, exclusive bool) NTStatus
	UnlockFile(handle FileHandle, offset uint64, length uint64) NTStatus
	QueryDirectory(handle FileHandle, fileName string, informationClass FileInfoClass) ([]FindEntry, NTStatus)
	GetFileInformation(handle FileHandle, informationClass FileInfoClass) ([]byte, NTStatus)
	SetFileInformation(handle FileHandle, informationClass FileInfoClass, buffer []byte) NTStatus
	GetFileSystemInformation(informationClass FSInfoClass) ([]byte, NTStatus)
	SetFileSystemInformation(informationClass FSInfoClass, buffer []byte) NTStatus
	GetSecurityInformation(handle FileHandle, securityInformation uint32) ([]byte, NTStatus)
	SetSecurityInformation(handle FileHandle, securityInformation uint32, securityDescriptor []byte) NTStatus
	NotifyChange(handle FileHandle, completionFilter uint32, watchTree bool, outputBufferSize uint32) ([]byte, NTStatus)
	DeviceIOControl(handle FileHandle, ctlCode uint32, input []byte, maxOutputSize uint32) ([]byte, NTStatus)
	Cancel() NTStatus
	Disconnect() NTStatus
}

// Client is the dialect-independent connection surface.
type Client interface {
	Connect(host string, transport netbios.TransportKind) error
	Login(domain, username, password string, method AuthMethod) (NTStatus, error)
	Logoff() (NTStatus, error)
	ListShares() ([]string, NTStatus, error)
	TreeConnect(shareName string) (FileStore, NTStatus, error)
	Disconnect()
	IsConnected() bool
	IsLoggedIn() bool
}
