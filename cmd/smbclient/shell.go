package main

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/chzyer/readline"

	"github.com/cmonto/SMBLibrary/pkg/smb"
	"github.com/cmonto/SMBLibrary/pkg/smb/types"
)

// shell is the interactive command loop over a logged-in client.
type shell struct {
	client types.Client
	target string
	store  types.FileStore
	share  string
}

func newShell(client types.Client, target string) *shell {
	return &shell{client: client, target: target}
}

func (s *shell) run() {
	completer := readline.NewPrefixCompleter(
		readline.PcItem("shares"),
		readline.PcItem("use"),
		readline.PcItem("ls"),
		readline.PcItem("cat"),
		readline.PcItem("get"),
		readline.PcItem("put"),
		readline.PcItem("mkdir"),
		readline.PcItem("rm"),
		readline.PcItem("ping"),
		readline.PcItem("help"),
		readline.PcItem("exit"),
	)
	rl, err := readline.NewEx(&readline.Config{
		Prompt:       s.prompt(),
		AutoComplete: completer,
	})
	if err != nil {
		errorf("failed to initialize readline: %v", err)
		return
	}
	defer rl.Close()

	for {
		line, err := rl.Readline()
		if err == readline.ErrInterrupt {
			continue
		}
		if err == io.EOF {
			return
		}
		fields := strings.Fields(line)
		if len(fields) == 0 {
			continue
		}
		cmd, args := fields[0], fields[1:]
		switch cmd {
		case "exit", "quit":
			s.disconnectShare()
			return
		case "help":
			s.help()
		case "shares":
			s.listShares()
		case "use":
			if len(args) != 1 {
				errorf("usage: use <share>")
				continue
			}
			s.connectShare(args[0])
		case "ls":
			pattern := "*"
			if len(args) > 0 {
				pattern = args[0]
			}
			s.list(pattern)
		case "cat":
			if len(args) != 1 {
				errorf("usage: cat <file>")
				continue
			}
			s.cat(args[0])
		case "get":
			if len(args) < 1 {
				errorf("usage: get <remote> [local]")
				continue
			}
			local := args[0]
			if len(args) > 1 {
				local = args[1]
			}
			s.get(args[0], local)
		case "put":
			if len(args) < 1 {
				errorf("usage: put <local> [remote]")
				continue
			}
			remote := args[0]
			if len(args) > 1 {
				remote = args[1]
			}
			s.put(args[0], remote)
		case "mkdir":
			if len(args) != 1 {
				errorf("usage: mkdir <dir>")
				continue
			}
			s.mkdir(args[0])
		case "rm":
			if len(args) != 1 {
				errorf("usage: rm <file>")
				continue
			}
			s.rm(args[0])
		case "ping":
			s.ping()
		default:
			errorf("unknown command %q, try help", cmd)
		}
		rl.SetPrompt(s.prompt())
	}
}

func (s *shell) prompt() string {
	if s.share == "" {
		return fmt.Sprintf("smb: \\\\%s> ", s.target)
	}
	return fmt.Sprintf("smb: \\\\%s\\%s> ", s.target, s.share)
}

func (s *shell) help() {
	fmt.Println(`shares            list disk shares
use <share>       connect to a share
ls [pattern]      list the current directory
cat <file>        print a remote file
get <r> [l]       download a file
put <l> [r]       upload a file
mkdir <dir>       create a directory
rm <file>         delete a file
ping              probe server liveness (SMB2)
exit              leave`)
}

func (s *shell) listShares() {
	shares, status, err := s.client.ListShares()
	if err != nil {
		errorf("%v", err)
		return
	}
	if !status.IsSuccess() {
		errorf("ListShares failed with status 0x%08X", uint32(status))
		return
	}
	for _, name := range shares {
		fmt.Println(name)
	}
}

func (s *shell) connectShare(share string) {
	s.disconnectShare()
	store, status, err := s.client.TreeConnect(share)
	if err != nil {
		errorf("%v", err)
		return
	}
	if !status.IsSuccess() {
		errorf("tree connect failed with status 0x%08X", uint32(status))
		return
	}
	s.store = store
	s.share = share
}

func (s *shell) disconnectShare() {
	if s.store != nil {
		s.store.Disconnect()
		s.store = nil
		s.share = ""
	}
}

func (s *shell) requireShare() bool {
	if s.store == nil {
		errorf("not connected to a share, try: use <share>")
		return false
	}
	return true
}

func (s *shell) list(pattern string) {
	if !s.requireShare() {
		return
	}
	handle, _, status := s.store.CreateFile("",
		types.FileListDirectory|types.FileReadAttributes|types.Synchronize,
		0, types.FileShareRead|types.FileShareWrite,
		types.FileOpen, types.FileDirectoryFile)
	if !status.IsSuccess() {
		errorf("open directory failed with status 0x%08X", uint32(status))
		return
	}
	defer s.store.CloseFile(handle)

	entries, status := s.store.QueryDirectory(handle, pattern, types.FileBothDirectoryInformation)
	if !status.IsSuccess() && status != types.StatusNoMoreFiles {
		errorf("query directory failed with status 0x%08X", uint32(status))
		return
	}
	for _, e := range entries {
		kind := " "
		if e.IsDirectory() {
			kind = "D"
		}
		fmt.Printf("%s %12d  %s  %s\n", kind, e.Size,
			e.LastWriteTime.Format("2006-01-02 15:04"), e.FileName)
	}
}

// readAll pulls a whole remote file through the store.
func (s *shell) readAll(path string) ([]byte, bool) {
	handle, _, status := s.store.CreateFile(path,
		types.FileReadData|types.FileReadAttributes|types.Synchronize,
		0, types.FileShareRead, types.FileOpen,
		types.FileNonDirectoryFile|types.FileSyncIoNonAlert)
	if !status.IsSuccess() {
		errorf("open failed with status 0x%08X", uint32(status))
		return nil, false
	}
	defer s.store.CloseFile(handle)

	var out []byte
	var offset uint64
	for {
		chunk, status := s.store.ReadFile(handle, offset, 65536)
		if status == types.StatusEndOfFile || (status.IsSuccess() && len(chunk) == 0) {
			return out, true
		}
		if !status.IsSuccess() {
			errorf("read failed with status 0x%08X", uint32(status))
			return nil, false
		}
		out = append(out, chunk...)
		offset += uint64(len(chunk))
	}
}

func (s *shell) cat(path string) {
	if !s.requireShare() {
		return
	}
	data, ok := s.readAll(path)
	if ok {
		os.Stdout.Write(data)
	}
}

func (s *shell) get(remote, local string) {
	if !s.requireShare() {
		return
	}
	data, ok := s.readAll(remote)
	if !ok {
		return
	}
	if err := os.WriteFile(local, data, 0644); err != nil {
		errorf("%v", err)
		return
	}
	fmt.Printf("downloaded %s (%d bytes)\n", remote, len(data))
}

func (s *shell) put(local, remote string) {
	if !s.requireShare() {
		return
	}
	data, err := os.ReadFile(local)
	if err != nil {
		errorf("%v", err)
		return
	}
	handle, _, status := s.store.CreateFile(remote,
		types.FileWriteData|types.FileWriteAttributes|types.Synchronize,
		types.FileAttributeNormal, 0, types.FileOverwriteIf,
		types.FileNonDirectoryFile|types.FileSyncIoNonAlert)
	if !status.IsSuccess() {
		errorf("create failed with status 0x%08X", uint32(status))
		return
	}
	defer s.store.CloseFile(handle)

	written, status := s.store.WriteFile(handle, 0, data)
	if !status.IsSuccess() {
		errorf("write failed with status 0x%08X", uint32(status))
		return
	}
	fmt.Printf("uploaded %s (%d bytes)\n", remote, written)
}

func (s *shell) mkdir(path string) {
	if !s.requireShare() {
		return
	}
	handle, _, status := s.store.CreateFile(path,
		types.FileReadAttributes|types.Synchronize, 0, 0,
		types.FileCreate, types.FileDirectoryFile)
	if !status.IsSuccess() {
		errorf("mkdir failed with status 0x%08X", uint32(status))
		return
	}
	s.store.CloseFile(handle)
}

func (s *shell) rm(path string) {
	if !s.requireShare() {
		return
	}
	handle, _, status := s.store.CreateFile(path,
		types.Delete, 0, types.FileShareDelete, types.FileOpen,
		types.FileNonDirectoryFile|types.FileDeleteOnClose)
	if !status.IsSuccess() {
		errorf("rm failed with status 0x%08X", uint32(status))
		return
	}
	s.store.CloseFile(handle)
}

func (s *shell) ping() {
	client, ok := s.client.(*smb.Client)
	if !ok {
		errorf("ping is only wired for the SMB2 client")
		return
	}
	status, err := client.Echo()
	if err != nil {
		errorf("%v", err)
		return
	}
	fmt.Printf("echo status 0x%08X\n", uint32(status))
}
