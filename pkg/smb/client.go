package smb

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/cmonto/SMBLibrary/internal/encoding"
	"github.com/cmonto/SMBLibrary/pkg/netbios"
	"github.com/cmonto/SMBLibrary/pkg/ntlm"
	"github.com/cmonto/SMBLibrary/pkg/smb/types"
	"github.com/cmonto/SMBLibrary/pkg/spnego"
	"github.com/cmonto/SMBLibrary/pkg/srvsvc"
)

// ClientMaxTransactSize caps the sizes advertised by the server.
const (
	ClientMaxTransactSize uint32 = 65536
	ClientMaxReadSize     uint32 = 65536
	ClientMaxWriteSize    uint32 = 65536
)

// ClientConfig configures client behavior.
type ClientConfig struct {
	Timeout   time.Duration // response and credit wait bound
	HostName  string        // NetBIOS calling name and NTLM workstation
	Socks5URL string        // optional SOCKS5 proxy
}

// DefaultClientConfig returns the default client configuration.
func DefaultClientConfig() ClientConfig {
	return ClientConfig{
		Timeout:  DefaultResponseTimeout,
		HostName: "LOCALHOST",
	}
}

// Client is an SMB2 (2.0.2 / 2.1) client.
type Client struct {
	config ClientConfig

	transport *netbios.Transport
	conn      *connection
	connected bool
	loggedIn  bool

	dialect         types.Dialect
	signingRequired bool
	maxTransactSize uint32
	maxReadSize     uint32
	maxWriteSize    uint32
	securityBlob    []byte

	sessionID  uint64
	sessionKey []byte
	serverIP   string
}

var _ types.Client = (*Client)(nil)

// NewClient creates a new SMB2 client with default configuration.
func NewClient() *Client {
	return NewClientWithConfig(DefaultClientConfig())
}

// NewClientWithConfig creates a new SMB2 client.
func NewClientWithConfig(config ClientConfig) *Client {
	if config.Timeout <= 0 {
		config.Timeout = DefaultResponseTimeout
	}
	if config.HostName == "" {
		config.HostName = "LOCALHOST"
	}
	return &Client{config: config}
}

// Connect establishes the transport and negotiates the dialect.
func (c *Client) Connect(host string, transport netbios.TransportKind) error {
	if c.connected {
		return nil
	}
	t, err := netbios.Dial(host, transport, netbios.Config{
		Timeout:   c.config.Timeout,
		HostName:  c.config.HostName,
		Socks5URL: c.config.Socks5URL,
	})
	if err != nil {
		return err
	}
	c.transport = t
	if err := c.connectOver(t, t.RemoteIP()); err != nil {
		c.transport = nil
		return err
	}
	return nil
}

// connectOver negotiates over an established framed transport.
func (c *Client) connectOver(t wireTransport, serverIP string) error {
	c.conn = newConnection(t, c.config.Timeout)
	c.serverIP = serverIP

	if err := c.negotiate(); err != nil {
		c.conn.close()
		c.conn = nil
		return err
	}
	c.connected = true
	return nil
}

// negotiate offers dialects 2.0.2 and 2.1 and captures the server limits.
func (c *Client) negotiate() error {
	guid := uuid.New()
	req := types.NewNegotiateRequest([16]byte(guid), time.Now())

	msg, status := c.sendRecv(types.CommandNegotiate, 0, req.Marshal())
	if msg == nil {
		return fmt.Errorf("negotiate: no response (status 0x%08X)", uint32(status))
	}
	if !status.IsSuccess() {
		return fmt.Errorf("negotiate failed with status 0x%08X", uint32(status))
	}

	var resp types.NegotiateResponse
	if err := resp.Unmarshal(msg.Body); err != nil {
		return fmt.Errorf("negotiate: %w", err)
	}
	switch resp.DialectRevision {
	case types.DialectSMB2_0_2, types.DialectSMB2_1:
	default:
		return fmt.Errorf("negotiate: unsupported dialect 0x%04X", uint16(resp.DialectRevision))
	}

	c.dialect = resp.DialectRevision
	c.signingRequired = resp.RequiresSigning()
	c.maxTransactSize = min(resp.MaxTransactSize, ClientMaxTransactSize)
	c.maxReadSize = min(resp.MaxReadSize, ClientMaxReadSize)
	c.maxWriteSize = min(resp.MaxWriteSize, ClientMaxWriteSize)
	c.securityBlob = resp.SecurityBuffer

	log.Debugf("negotiated dialect 0x%04X, signing required: %v\n",
		uint16(c.dialect), c.signingRequired)
	return nil
}

// Login performs the two-step SPNEGO/NTLM session setup.
func (c *Client) Login(domain, username, password string, method types.AuthMethod) (types.NTStatus, error) {
	if !c.connected {
		return types.StatusInvalidSMB, types.ErrNotConnected
	}
	if !spnego.SupportsNTLM(c.securityBlob) {
		return types.SecEInvalidToken, nil
	}

	initiator := &ntlm.Initiator{
		Domain:      domain,
		User:        username,
		Password:    password,
		Workstation: c.config.HostName,
		Flavor:      flavorFromMethod(method),
	}

	negotiateToken := initiator.GetNegotiateMessage()
	if negotiateToken == nil {
		return types.SecEInvalidToken, nil
	}
	blob, err := spnego.EncodeNegTokenInit(negotiateToken)
	if err != nil {
		return types.SecEInvalidToken, nil
	}

	req := types.NewSessionSetupRequest(blob)
	msg, status := c.sendRecv(types.CommandSessionSetup, 0, req.Marshal())
	if msg == nil {
		return status, nil
	}
	if msg.Header.Status != types.StatusMoreProcessingReq {
		return msg.Header.Status, nil
	}
	// The session id is assigned by the first response and mirrored on every
	// subsequent header.
	c.sessionID = msg.Header.SessionID

	var setupResp types.SessionSetupResponse
	if err := setupResp.Unmarshal(msg.Body); err != nil {
		return types.StatusInvalidSMB, nil
	}
	challenge, err := spnego.UnwrapChallenge(setupResp.SecurityBuffer)
	if err != nil {
		return types.SecEInvalidToken, nil
	}

	authenticateToken := initiator.GetAuthenticateMessage(challenge)
	if authenticateToken == nil {
		return types.SecEInvalidToken, nil
	}
	blob, err = spnego.EncodeNegTokenResp(authenticateToken)
	if err != nil {
		return types.SecEInvalidToken, nil
	}

	req = types.NewSessionSetupRequest(blob)
	msg, status = c.sendRecv(types.CommandSessionSetup, 0, req.Marshal())
	if msg == nil {
		return status, nil
	}
	if msg.Header.Status.IsSuccess() {
		c.loggedIn = true
		c.sessionKey = initiator.SessionKey()
	}
	return msg.Header.Status, nil
}

func flavorFromMethod(method types.AuthMethod) ntlm.Flavor {
	switch method {
	case types.AuthNTLMv1:
		return ntlm.FlavorNTLMv1
	case types.AuthNTLMv1ExtendedSessionSecurity:
		return ntlm.FlavorNTLMv1ExtendedSessionSecurity
	default:
		return ntlm.FlavorNTLMv2
	}
}

// Logoff tears down the session.
func (c *Client) Logoff() (types.NTStatus, error) {
	if !c.connected {
		return types.StatusInvalidSMB, types.ErrNotConnected
	}
	if !c.loggedIn {
		return types.StatusInvalidSMB, types.ErrNotLoggedIn
	}
	msg, status := c.sendRecv(types.CommandLogoff, 0, types.NewLogoffRequest().Marshal())
	if msg == nil {
		return status, nil
	}
	if msg.Header.Status.IsSuccess() {
		c.loggedIn = false
		c.sessionID = 0
	}
	return msg.Header.Status, nil
}

// TreeConnect binds to a share and returns its file store.
func (c *Client) TreeConnect(shareName string) (types.FileStore, types.NTStatus, error) {
	fs, status, err := c.treeConnect(shareName)
	if fs == nil {
		return nil, status, err
	}
	return fs, status, err
}

// treeConnect returns the concrete store so internal callers avoid the
// typed-nil interface trap.
func (c *Client) treeConnect(shareName string) (*FileStore, types.NTStatus, error) {
	if !c.connected {
		return nil, types.StatusInvalidSMB, types.ErrNotConnected
	}
	if !c.loggedIn {
		return nil, types.StatusInvalidSMB, types.ErrNotLoggedIn
	}
	path := fmt.Sprintf(`\\%s\%s`, c.serverIP, shareName)
	req := types.NewTreeConnectRequest(encoding.ToUTF16LE(path))

	msg, status := c.sendRecv(types.CommandTreeConnect, 0, req.Marshal())
	if msg == nil {
		return nil, status, nil
	}
	if !msg.Header.Status.IsSuccess() {
		return nil, msg.Header.Status, nil
	}
	var resp types.TreeConnectResponse
	if err := resp.Unmarshal(msg.Body); err != nil {
		return nil, types.StatusInvalidSMB, nil
	}
	return &FileStore{
		client:    c,
		treeID:    msg.Header.TreeID,
		shareName: shareName,
		shareType: resp.ShareType,
	}, types.StatusSuccess, nil
}

// ListShares enumerates the server's disk shares through the srvsvc pipe.
func (c *Client) ListShares() ([]string, types.NTStatus, error) {
	if !c.connected {
		return nil, types.StatusInvalidSMB, types.ErrNotConnected
	}
	if !c.loggedIn {
		return nil, types.StatusInvalidSMB, types.ErrNotLoggedIn
	}
	fs, status, err := c.treeConnect("IPC$")
	if fs == nil {
		return nil, status, err
	}
	defer fs.Disconnect()

	shares, status := srvsvc.NetShareEnum(fs, c.serverIP)
	if !status.IsSuccess() {
		return nil, status, nil
	}
	var names []string
	for _, share := range shares {
		if share.Type.IsDiskDrive() {
			names = append(names, share.Name)
		}
	}
	return names, types.StatusSuccess, nil
}

// Echo probes server liveness.
func (c *Client) Echo() (types.NTStatus, error) {
	if !c.connected {
		return types.StatusInvalidSMB, types.ErrNotConnected
	}
	msg, status := c.sendRecv(types.CommandEcho, 0, types.NewEchoRequest().Marshal())
	if msg == nil {
		return status, nil
	}
	return msg.Header.Status, nil
}

// Disconnect disposes the socket and resets the lifecycle state.
func (c *Client) Disconnect() {
	if c.conn != nil {
		c.conn.close()
		c.conn = nil
		c.transport = nil
	}
	c.connected = false
	c.loggedIn = false
	c.sessionID = 0
}

// IsConnected reports whether the transport is up and negotiated.
func (c *Client) IsConnected() bool {
	if c.connected && c.transport != nil && c.transport.IsClosed() {
		// Unsolicited server close drops the client back to disconnected.
		c.connected = false
		c.loggedIn = false
	}
	return c.connected
}

// IsLoggedIn reports whether a session is established.
func (c *Client) IsLoggedIn() bool {
	return c.IsConnected() && c.loggedIn
}

// Dialect returns the negotiated dialect.
func (c *Client) Dialect() types.Dialect {
	return c.dialect
}

// SigningRequired reports whether the server mandates signing.
func (c *Client) SigningRequired() bool {
	return c.signingRequired
}

// MaxReadSize returns the negotiated read limit.
func (c *Client) MaxReadSize() uint32 {
	return c.maxReadSize
}

// MaxWriteSize returns the negotiated write limit.
func (c *Client) MaxWriteSize() uint32 {
	return c.maxWriteSize
}

// SessionKey returns the NTLM session base key after a successful login.
func (c *Client) SessionKey() []byte {
	return c.sessionKey
}

// sendRecv stamps, sends and correlates one command round-trip. A nil
// message means the response never arrived (or only STATUS_PENDING did); the
// paired status is the synthetic STATUS_INVALID_SMB.
func (c *Client) sendRecv(cmd types.Command, treeID uint32, body []byte) (*message, types.NTStatus) {
	header := types.NewHeader(cmd)
	header.SessionID = c.sessionID
	header.TreeID = treeID

	messageID, ok := c.conn.send(header, body)
	if !ok {
		// Credit starvation; the send was never issued.
		return nil, types.StatusInsufficientResources
	}
	msg := c.conn.waitFor(cmd, messageID)
	if msg == nil {
		return nil, types.StatusInvalidSMB
	}
	return msg, msg.Header.Status
}
