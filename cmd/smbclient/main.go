package main

import (
	"fmt"
	"os"
	"syscall"

	"github.com/jfjallid/golog"
	"github.com/mjwhitta/cli"
	"golang.org/x/term"

	"github.com/cmonto/SMBLibrary/pkg/netbios"
	"github.com/cmonto/SMBLibrary/pkg/smb"
	"github.com/cmonto/SMBLibrary/pkg/smb/smb1"
	"github.com/cmonto/SMBLibrary/pkg/smb/types"
)

const version = "0.1.0"

var logPackages = []string{"netbios", "smb1", "smb2", "ntlm", "dcerpc", "srvsvc"}

func main() {
	var (
		target   string
		username string
		password string
		domain   string
		share    string
		useSMB1  bool
		useNBT   bool
		ntlmv1   bool
		verbose  bool
	)

	cli.Align = true
	cli.Banner = "smbclient [OPTIONS]"
	cli.Info("Dual-dialect SMB client - shares, files, directories")

	cli.Flag(&target, "t", "target", "", "Target server IP/hostname")
	cli.Flag(&username, "u", "user", "", "Username")
	cli.Flag(&password, "p", "password", "", "Password (prompted if omitted)")
	cli.Flag(&domain, "d", "domain", "", "Domain name")
	cli.Flag(&share, "s", "share", "", "Share to connect to on startup")
	cli.Flag(&useSMB1, "1", "smb1", false, "Use the SMB1 (NT LM 0.12) dialect")
	cli.Flag(&useNBT, "n", "netbios", false, "Use NetBIOS-over-TCP (port 139)")
	cli.Flag(&ntlmv1, "w", "ntlmv1", false, "Authenticate with NTLMv1 instead of NTLMv2")
	cli.Flag(&verbose, "v", "verbose", false, "Verbose protocol logging")
	cli.Parse()

	if verbose {
		for _, pkg := range logPackages {
			golog.Set(pkg, pkg, golog.LevelDebug, golog.LstdFlags,
				golog.DefaultOutput, golog.DefaultErrOutput)
		}
	}

	if target == "" {
		errorf("Missing target (-t)")
		cli.Usage(1)
	}
	if username != "" && password == "" {
		password = promptPassword()
	}

	hostName, err := os.Hostname()
	if err != nil || hostName == "" {
		hostName = "LOCALHOST"
	}

	var client types.Client
	if useSMB1 {
		cfg := smb1.DefaultClientConfig()
		cfg.HostName = hostName
		client = smb1.NewClientWithConfig(cfg)
	} else {
		cfg := smb.DefaultClientConfig()
		cfg.HostName = hostName
		client = smb.NewClientWithConfig(cfg)
	}

	transport := netbios.TransportDirectTCP
	if useNBT {
		transport = netbios.TransportNetBIOS
	}
	if err := client.Connect(target, transport); err != nil {
		errorf("Connect failed: %v", err)
		os.Exit(1)
	}
	defer client.Disconnect()

	method := types.AuthNTLMv2
	if ntlmv1 {
		method = types.AuthNTLMv1
	}
	status, err := client.Login(domain, username, password, method)
	if err != nil {
		errorf("Login failed: %v", err)
		os.Exit(1)
	}
	if !status.IsSuccess() {
		errorf("Login failed with status 0x%08X", uint32(status))
		os.Exit(1)
	}
	fmt.Printf("smbclient %s - connected to %s as %s\\%s\n", version, target, domain, username)

	sh := newShell(client, target)
	if share != "" {
		sh.connectShare(share)
	}
	sh.run()

	if client.IsLoggedIn() {
		client.Logoff()
	}
}

func promptPassword() string {
	fmt.Fprint(os.Stderr, "Password: ")
	passBytes, err := term.ReadPassword(int(syscall.Stdin))
	fmt.Fprintln(os.Stderr)
	if err != nil {
		return ""
	}
	return string(passBytes)
}

func errorf(format string, args ...any) {
	fmt.Fprintf(os.Stderr, "[-] "+format+"\n", args...)
}
