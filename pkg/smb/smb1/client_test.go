package smb1

import (
	"bytes"
	"testing"

	"github.com/cmonto/SMBLibrary/internal/encoding"
	"github.com/cmonto/SMBLibrary/pkg/smb/types"
)

// fakeServer scripts the server side of an SMB1 conversation.
type fakeServer struct {
	extendedSecurity bool
	loginFail        bool
	withoutRemoteAPI bool

	setupCalls int
	uid        uint16
	tid        uint16
	challenge  []byte

	fileData  []byte
	findPages [][]byte
	findPage  int

	lastSessionSetup *Message
}

const fakeFID uint16 = 0x4001

func newFakeServer() *fakeServer {
	return &fakeServer{
		uid:       5,
		tid:       7,
		challenge: []byte{8, 7, 6, 5, 4, 3, 2, 1},
	}
}

func (s *fakeServer) transport() *fakeTransport {
	return newFakeTransport(s.handle)
}

func (s *fakeServer) caps() uint32 {
	caps := CapNTSMB | CapRpcRemoteApi | CapNTStatusCode | CapNTFind |
		CapUnicode | CapLargeFiles | CapLargeRead
	if s.withoutRemoteAPI {
		caps &^= CapRpcRemoteApi
	}
	if s.extendedSecurity {
		caps |= CapExtendedSecurity
	}
	return caps
}

func (s *fakeServer) handle(req *Message) [][]byte {
	switch req.Header.Command {
	case CommandNegotiate:
		if s.extendedSecurity {
			data := make([]byte, 16) // server GUID, empty security blob
			return [][]byte{smb1Respond(req, 0, classicNegotiateParams(s.caps(), 16644, 0), data)}
		}
		return [][]byte{smb1Respond(req, 0, classicNegotiateParams(s.caps(), 16644, 8), s.challenge)}

	case CommandSessionSetupAndX:
		s.setupCalls++
		s.lastSessionSetup = req
		if s.extendedSecurity {
			if s.setupCalls == 1 {
				blob := fakeChallengeToken(s.challenge)
				params := andxParams(0, 0, byte(len(blob)), byte(len(blob)>>8))
				frame := smb1Respond(req, uint32(types.StatusMoreProcessingReq), params, blob)
				setUID(frame, s.uid)
				return [][]byte{frame}
			}
			status := uint32(0)
			if s.loginFail {
				status = uint32(types.StatusLogonFailure)
			}
			frame := smb1Respond(req, status, andxParams(0, 0, 0, 0), nil)
			setUID(frame, s.uid)
			return [][]byte{frame}
		}
		status := uint32(0)
		if s.loginFail {
			status = uint32(types.StatusLogonFailure)
		}
		frame := smb1Respond(req, status, andxParams(0, 0), nil)
		setUID(frame, s.uid)
		return [][]byte{frame}

	case CommandTreeConnectAndX:
		frame := smb1Respond(req, 0, andxParams(0, 0), []byte("A:\x00"))
		setTID(frame, s.tid)
		return [][]byte{frame}

	case CommandNTCreateAndX:
		params := make([]byte, 68)
		params[0] = AndXNoFurtherCommand
		encoding.PutUint16LE(params[5:7], fakeFID)
		encoding.PutUint32LE(params[7:11], 2) // FILE_CREATED
		return [][]byte{smb1Respond(req, 0, params, nil)}

	case CommandReadAndX:
		offset := uint64(encoding.Uint32LE(req.Params[6:10])) |
			uint64(encoding.Uint32LE(req.Params[20:24]))<<32
		maxCount := int(encoding.Uint16LE(req.Params[10:12]))
		data := []byte{}
		if int(offset) < len(s.fileData) {
			data = s.fileData[offset:]
			if len(data) > maxCount {
				data = data[:maxCount]
			}
		}
		params := make([]byte, 24)
		params[0] = AndXNoFurtherCommand
		encoding.PutUint16LE(params[10:12], uint16(len(data)))
		encoding.PutUint16LE(params[12:14], uint16(HeaderSize+1+24+2))
		return [][]byte{smb1Respond(req, 0, params, data)}

	case CommandWriteAndX:
		length := int(encoding.Uint16LE(req.Params[20:22]))
		length |= int(encoding.Uint16LE(req.Params[18:20])) << 16
		dataOffset := int(encoding.Uint16LE(req.Params[22:24]))
		offset := uint64(encoding.Uint32LE(req.Params[6:10])) |
			uint64(encoding.Uint32LE(req.Params[24:28]))<<32
		data := req.Raw[dataOffset : dataOffset+length]

		need := int(offset) + len(data)
		if len(s.fileData) < need {
			s.fileData = append(s.fileData, make([]byte, need-len(s.fileData))...)
		}
		copy(s.fileData[offset:], data)

		params := make([]byte, 12)
		params[0] = AndXNoFurtherCommand
		encoding.PutUint16LE(params[4:6], uint16(length))
		encoding.PutUint16LE(params[8:10], uint16(length>>16))
		return [][]byte{smb1Respond(req, 0, params, nil)}

	case CommandTrans2:
		return [][]byte{s.handleTrans2(req)}

	case CommandClose, CommandTreeDisconnect, CommandLogoffAndX:
		return [][]byte{smb1Respond(req, 0, nil, nil)}

	default:
		return [][]byte{smb1Respond(req, uint32(types.StatusNotSupported), nil, nil)}
	}
}

func (s *fakeServer) handleTrans2(req *Message) []byte {
	subcommand := encoding.Uint16LE(req.Params[28:30])
	switch subcommand {
	case Trans2FindFirst2:
		var page []byte
		if len(s.findPages) > 0 {
			page = s.findPages[0]
			s.findPage = 1
		}
		params := make([]byte, 10)
		encoding.PutUint16LE(params[0:2], 0xBEEF) // SID
		encoding.PutUint16LE(params[2:4], 1)      // SearchCount
		if s.findPage >= len(s.findPages) {
			encoding.PutUint16LE(params[4:6], 1) // EndOfSearch
		}
		return trans2Response(req, 0, params, page)
	case Trans2FindNext2:
		var page []byte
		if s.findPage < len(s.findPages) {
			page = s.findPages[s.findPage]
			s.findPage++
		}
		params := make([]byte, 8)
		encoding.PutUint16LE(params[0:2], 1)
		if s.findPage >= len(s.findPages) {
			encoding.PutUint16LE(params[2:4], 1)
		}
		return trans2Response(req, 0, params, page)
	case Trans2QueryFSInformation:
		return trans2Response(req, 0, nil, []byte{0xFA, 0xCE})
	default:
		return smb1Respond(req, uint32(types.StatusNotSupported), nil, nil)
	}
}

func setUID(frame []byte, uid uint16) {
	encoding.PutUint16LE(frame[28:30], uid)
}

func setTID(frame []byte, tid uint16) {
	encoding.PutUint16LE(frame[24:26], tid)
}

// fakeChallengeToken is a minimal bare NTLM CHALLENGE message.
func fakeChallengeToken(challenge []byte) []byte {
	tok := make([]byte, 48)
	copy(tok[0:8], []byte("NTLMSSP\x00"))
	tok[8] = 2
	copy(tok[24:32], challenge)
	return tok
}

func testClient(t *testing.T, server *fakeServer, force bool) *Client {
	t.Helper()
	cfg := DefaultClientConfig()
	cfg.ForceExtendedSecurity = force
	client := NewClientWithConfig(cfg)
	if err := client.connectOver(server.transport(), "192.0.2.1"); err != nil {
		t.Fatalf("connect: %v", err)
	}
	return client
}

func TestNegotiateRequiresCoreCapabilities(t *testing.T) {
	server := newFakeServer()
	server.withoutRemoteAPI = true
	client := NewClient()
	if err := client.connectOver(server.transport(), "192.0.2.1"); err == nil {
		t.Fatal("negotiate accepted a server without RPC remote API")
	}
}

func TestForceExtendedSecurityRejectsClassic(t *testing.T) {
	server := newFakeServer() // classic response
	cfg := DefaultClientConfig()
	cfg.ForceExtendedSecurity = true
	client := NewClientWithConfig(cfg)
	err := client.connectOver(server.transport(), "192.0.2.1")
	if err != ErrExtendedSecurityRequired {
		t.Fatalf("got %v, want ErrExtendedSecurityRequired", err)
	}
}

func TestPreExtendedLoginNTLMv2(t *testing.T) {
	server := newFakeServer()
	client := testClient(t, server, false)
	defer client.Disconnect()

	if client.securityBlob != nil || client.serverChallenge == nil {
		t.Fatal("negotiate must capture the server challenge, not a blob")
	}

	status, err := client.Login("DOMAIN", "User", "Password", types.AuthNTLMv2)
	if err != nil {
		t.Fatal(err)
	}
	if !status.IsSuccess() || !client.IsLoggedIn() {
		t.Fatalf("status 0x%08X, logged in %v", uint32(status), client.IsLoggedIn())
	}
	if client.uid != server.uid {
		t.Errorf("uid %d, want %d", client.uid, server.uid)
	}

	// The request carried an LMv2 OEM password (16-byte HMAC plus the
	// 8-byte client challenge) and a proof-prefixed NTLMv2 blob.
	req := server.lastSessionSetup
	oemLen := encoding.Uint16LE(req.Params[14:16])
	ntLen := encoding.Uint16LE(req.Params[16:18])
	if oemLen != 24 {
		t.Errorf("OEM password length %d, want 24", oemLen)
	}
	if ntLen < 44 {
		t.Errorf("Unicode password length %d, want at least proof+blob", ntLen)
	}
}

func TestPreExtendedLoginRejectsExtendedSessionSecurity(t *testing.T) {
	client := testClient(t, newFakeServer(), false)
	defer client.Disconnect()

	_, err := client.Login("d", "u", "p", types.AuthNTLMv1ExtendedSessionSecurity)
	if err != ErrInvalidAuthMethod {
		t.Fatalf("got %v, want ErrInvalidAuthMethod", err)
	}
}

func TestExtendedLoginFailureKeepsLoggedOut(t *testing.T) {
	server := newFakeServer()
	server.extendedSecurity = true
	server.loginFail = true
	client := testClient(t, server, true)
	defer client.Disconnect()

	status, err := client.Login("DOM", "user", "bad", types.AuthNTLMv2)
	if err != nil {
		t.Fatal(err)
	}
	if status != types.StatusLogonFailure {
		t.Errorf("status 0x%08X, want STATUS_LOGON_FAILURE", uint32(status))
	}
	if client.IsLoggedIn() {
		t.Error("client must not be logged in")
	}
	if server.setupCalls != 2 {
		t.Errorf("%d session setups, want 2", server.setupCalls)
	}
}

func TestExtendedLoginSuccess(t *testing.T) {
	server := newFakeServer()
	server.extendedSecurity = true
	client := testClient(t, server, true)
	defer client.Disconnect()

	status, err := client.Login("DOM", "user", "pw", types.AuthNTLMv2)
	if err != nil {
		t.Fatal(err)
	}
	if !status.IsSuccess() || !client.IsLoggedIn() {
		t.Fatalf("status 0x%08X", uint32(status))
	}
	if client.uid != server.uid {
		t.Errorf("uid %d, want %d", client.uid, server.uid)
	}
}

func TestMaxTransferSizes(t *testing.T) {
	client := testClient(t, newFakeServer(), false)
	defer client.Disconnect()

	wantRead := uint32(ClientMaxBufferSize - (HeaderSize + 3 + ReadAndXResponseParametersLength))
	if got := client.MaxReadSize(); got != wantRead {
		t.Errorf("MaxReadSize %d, want %d", got, wantRead)
	}

	// Unicode was negotiated: one extra pad byte comes off the write size.
	wantWrite := uint32(16644-(HeaderSize+3+WriteAndXRequestParametersFixedLength+4)) - 1
	if got := client.MaxWriteSize(); got != wantWrite {
		t.Errorf("MaxWriteSize %d, want %d", got, wantWrite)
	}
}

func loggedInStore(t *testing.T, server *fakeServer) (*Client, *FileStore) {
	t.Helper()
	client := testClient(t, server, false)
	if status, err := client.Login("DOM", "user", "pw", types.AuthNTLMv2); err != nil || !status.IsSuccess() {
		t.Fatalf("login: %v / 0x%08X", err, uint32(status))
	}
	fs, status, err := client.treeConnect("SHARE", ServiceAny)
	if err != nil || !status.IsSuccess() {
		t.Fatalf("tree connect: %v / 0x%08X", err, uint32(status))
	}
	return client, fs
}

func TestFileStoreCreateWriteRead(t *testing.T) {
	server := newFakeServer()
	client, fs := loggedInStore(t, server)
	defer client.Disconnect()

	if fs.TreeID() != server.tid {
		t.Errorf("tree id %d, want %d", fs.TreeID(), server.tid)
	}

	handle, fileStatus, status := fs.CreateFile("dir\\file.bin",
		types.GenericRead|types.GenericWrite, types.FileAttributeNormal,
		0, types.FileCreate, types.FileNonDirectoryFile)
	if !status.IsSuccess() {
		t.Fatalf("create status 0x%08X", uint32(status))
	}
	if fileStatus != types.FileStatusCreated {
		t.Errorf("file status %d", fileStatus)
	}
	legacy, ok := handle.(types.LegacyHandle)
	if !ok || legacy.FID != fakeFID || legacy.TID != server.tid {
		t.Fatalf("handle %+v", handle)
	}

	payload := bytes.Repeat([]byte{0xC3}, 4000)
	written, status := fs.WriteFile(handle, 0, payload)
	if !status.IsSuccess() || written != uint32(len(payload)) {
		t.Fatalf("write %d bytes, status 0x%08X", written, uint32(status))
	}

	got, status := fs.ReadFile(handle, 0, 4000)
	if !status.IsSuccess() || !bytes.Equal(got, payload) {
		t.Fatalf("read back %d bytes, status 0x%08X", len(got), uint32(status))
	}

	if status := fs.CloseFile(handle); !status.IsSuccess() {
		t.Errorf("close status 0x%08X", uint32(status))
	}
}

func TestFileStoreRejectsForeignHandle(t *testing.T) {
	client, fs := loggedInStore(t, newFakeServer())
	defer client.Disconnect()

	// An SMB2 handle is the wrong dialect; a FID from another tree is the
	// wrong owner. Both are refused.
	if status := fs.CloseFile(types.FileID{}); status != types.StatusInvalidHandle {
		t.Errorf("SMB2 handle accepted: 0x%08X", uint32(status))
	}
	other := types.LegacyHandle{FID: 1, TID: fs.treeID + 1}
	if status := fs.CloseFile(other); status != types.StatusInvalidHandle {
		t.Errorf("foreign-tree handle accepted: 0x%08X", uint32(status))
	}
}

func TestQueryDirectoryFindPaging(t *testing.T) {
	server := newFakeServer()
	names := []string{"one.txt", "two.txt", "three.txt"}
	server.findPages = [][]byte{
		chainDirEntries(dirEntry(names[0]), dirEntry(names[1])),
		chainDirEntries(dirEntry(names[2])),
	}
	client, fs := loggedInStore(t, server)
	defer client.Disconnect()

	entries, status := fs.QueryDirectory(nil, "\\*", types.FileBothDirectoryInformation)
	if !status.IsSuccess() {
		t.Fatalf("status 0x%08X", uint32(status))
	}
	if len(entries) != len(names) {
		t.Fatalf("%d entries, want %d", len(entries), len(names))
	}
	for i, name := range names {
		if entries[i].FileName != name {
			t.Errorf("entry %d: %q, want %q", i, entries[i].FileName, name)
		}
	}
}

func TestGetFileSystemInformation(t *testing.T) {
	client, fs := loggedInStore(t, newFakeServer())
	defer client.Disconnect()

	data, status := fs.GetFileSystemInformation(types.FileFsSizeInformation)
	if !status.IsSuccess() {
		t.Fatalf("status 0x%08X", uint32(status))
	}
	if !bytes.Equal(data, []byte{0xFA, 0xCE}) {
		t.Errorf("fs info %x", data)
	}
}

func TestNotImplementedOperations(t *testing.T) {
	client, fs := loggedInStore(t, newFakeServer())
	defer client.Disconnect()

	handle := types.LegacyHandle{FID: 1, TID: fs.treeID}
	if status := fs.FlushFileBuffers(handle); status != types.StatusNotImplemented {
		t.Errorf("flush: 0x%08X", uint32(status))
	}
	if status := fs.LockFile(handle, 0, 1, true); status != types.StatusNotImplemented {
		t.Errorf("lock: 0x%08X", uint32(status))
	}
	if status := fs.SetFileSystemInformation(types.FileFsSizeInformation, nil); status != types.StatusNotImplemented {
		t.Errorf("set fs info: 0x%08X", uint32(status))
	}
	if status := fs.Cancel(); status != types.StatusNotImplemented {
		t.Errorf("cancel: 0x%08X", uint32(status))
	}
}
