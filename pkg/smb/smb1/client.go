package smb1

import (
	"errors"
	"fmt"
	"time"

	"github.com/cmonto/SMBLibrary/pkg/netbios"
	"github.com/cmonto/SMBLibrary/pkg/ntlm"
	"github.com/cmonto/SMBLibrary/pkg/smb/types"
	"github.com/cmonto/SMBLibrary/pkg/spnego"
	"github.com/cmonto/SMBLibrary/pkg/srvsvc"
)

// ErrExtendedSecurityRequired is returned by Connect when the server answers
// with a classic negotiate response but extended security was forced.
var ErrExtendedSecurityRequired = errors.New("smb1: server does not support extended security")

// ErrInvalidAuthMethod is returned by Login when the method cannot be used
// on the negotiated security model.
var ErrInvalidAuthMethod = errors.New("smb1: auth method not usable without extended security")

// ClientConfig configures the SMB1 client.
type ClientConfig struct {
	ConnectTimeout        time.Duration
	HostName              string // NetBIOS calling name and NTLMv2 machine name
	Socks5URL             string
	ForceExtendedSecurity bool
}

// DefaultClientConfig returns the default configuration.
func DefaultClientConfig() ClientConfig {
	return ClientConfig{
		ConnectTimeout: 30 * time.Second,
		HostName:       "LOCALHOST",
	}
}

// Client is an SMB1 (NT LM 0.12) client.
type Client struct {
	config ClientConfig

	transport *netbios.Transport
	conn      *connection
	connected bool
	loggedIn  bool

	uid                 uint16
	unicode             bool
	largeFiles          bool
	largeRead           bool
	largeWrite          bool
	infoPassthrough     bool
	serverMaxBufferSize uint32
	maxMpxCount         uint16

	// Exactly one of the two is set after a successful negotiate.
	serverChallenge []byte
	securityBlob    []byte

	serverIP string
}

var _ types.Client = (*Client)(nil)

// NewClient creates a new SMB1 client with default configuration.
func NewClient() *Client {
	return NewClientWithConfig(DefaultClientConfig())
}

// NewClientWithConfig creates a new SMB1 client.
func NewClientWithConfig(config ClientConfig) *Client {
	if config.ConnectTimeout <= 0 {
		config.ConnectTimeout = 30 * time.Second
	}
	if config.HostName == "" {
		config.HostName = "LOCALHOST"
	}
	return &Client{config: config}
}

// Connect establishes the transport and negotiates the NT LM 0.12 dialect.
func (c *Client) Connect(host string, transport netbios.TransportKind) error {
	if c.connected {
		return nil
	}
	t, err := netbios.Dial(host, transport, netbios.Config{
		Timeout:   c.config.ConnectTimeout,
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
	c.conn = newConnection(t)
	c.serverIP = serverIP

	if err := c.negotiate(); err != nil {
		c.conn.close()
		c.conn = nil
		return err
	}
	c.connected = true
	return nil
}

// requiredCapabilities must all be granted by the server for the session to
// be usable: NT dialect semantics, the remote API pipe, and NT status codes.
const requiredCapabilities = CapNTSMB | CapRpcRemoteApi | CapNTStatusCode

// negotiate offers NT LM 0.12 and captures either the server challenge or
// the extended-security blob.
func (c *Client) negotiate() error {
	msg := NewNegotiateRequest().Marshal()
	c.stampHeader(msg, 0)

	resp, status := c.conn.sendRecv(msg)
	if resp == nil {
		return fmt.Errorf("negotiate: no response within %s", ResponseTimeout)
	}
	if !status.IsSuccess() {
		return fmt.Errorf("negotiate failed with status 0x%08X", uint32(status))
	}

	classic, extended, err := UnmarshalNegotiateResponse(resp)
	if err != nil {
		return fmt.Errorf("negotiate: %w", err)
	}

	var caps uint32
	switch {
	case extended != nil:
		caps = extended.Capabilities
		c.securityBlob = extended.SecurityBlob
		c.serverMaxBufferSize = extended.MaxBufferSize
		c.maxMpxCount = extended.MaxMpxCount
	case classic != nil:
		if c.config.ForceExtendedSecurity {
			return ErrExtendedSecurityRequired
		}
		caps = classic.Capabilities
		c.serverChallenge = classic.Challenge
		c.serverMaxBufferSize = classic.MaxBufferSize
		c.maxMpxCount = classic.MaxMpxCount
	}
	if caps&requiredCapabilities != requiredCapabilities {
		return fmt.Errorf("negotiate: missing required capabilities 0x%08X", caps)
	}

	c.unicode = caps&CapUnicode != 0
	c.largeFiles = caps&CapLargeFiles != 0
	c.largeRead = caps&CapLargeRead != 0
	c.largeWrite = caps&CapLargeWrite != 0
	c.infoPassthrough = caps&CapInfoLevelPassthrough != 0

	log.Debugf("negotiated NT LM 0.12, unicode: %v, extended security: %v\n",
		c.unicode, c.securityBlob != nil)
	return nil
}

// clientCapabilities is the capability mask sent in session setup.
func (c *Client) clientCapabilities() uint32 {
	caps := CapNTSMB | CapRpcRemoteApi | CapNTStatusCode | CapNTFind
	if c.unicode {
		caps |= CapUnicode
	}
	if c.largeFiles {
		caps |= CapLargeFiles
	}
	if c.largeRead {
		caps |= CapLargeRead
	}
	return caps
}

// Login authenticates the session over whichever security model was
// negotiated.
func (c *Client) Login(domain, username, password string, method types.AuthMethod) (types.NTStatus, error) {
	if !c.connected {
		return types.StatusInvalidSMB, types.ErrNotConnected
	}
	if c.securityBlob != nil {
		return c.loginExtended(domain, username, password, method)
	}
	return c.loginPreExtended(domain, username, password, method)
}

// loginPreExtended performs the one-shot session setup carrying the LM and
// NT challenge responses computed from the negotiate challenge.
func (c *Client) loginPreExtended(domain, username, password string, method types.AuthMethod) (types.NTStatus, error) {
	req := &SessionSetupAndXRequest{
		MaxBufferSize: ClientMaxBufferSize,
		MaxMpxCount:   ClientMaxMpxCount,
		VcNumber:      1,
		Capabilities:  c.clientCapabilities(),
		AccountName:   username,
		PrimaryDomain: domain,
		NativeOS:      "Unix",
		NativeLanMan:  "SMBLibrary",
	}

	switch method {
	case types.AuthNTLMv1:
		req.OEMPassword = ntlm.ComputeLMv1Response(c.serverChallenge, password)
		req.UnicodePassword = ntlm.ComputeNTLMv1Response(c.serverChallenge, password)
	case types.AuthNTLMv1ExtendedSessionSecurity:
		return types.StatusInvalidSMB, ErrInvalidAuthMethod
	case types.AuthNTLMv2:
		clientChallenge := ntlm.NewClientChallenge(domain, c.config.HostName)
		blob := clientChallenge.Marshal()
		proof := ntlm.ComputeNTLMv2Proof(c.serverChallenge, blob, password, username, domain)
		req.OEMPassword = ntlm.ComputeLMv2Response(c.serverChallenge,
			clientChallenge.ClientChallenge[:], password, username, domain)
		req.UnicodePassword = append(proof, blob...)
	}

	msg := req.Marshal()
	c.stampHeader(msg, 0)
	resp, status := c.conn.sendRecv(msg)
	if resp == nil {
		return status, nil
	}
	if types.NTStatus(resp.Header.Status).IsSuccess() {
		c.uid = resp.Header.UID
		c.loggedIn = true
	}
	return types.NTStatus(resp.Header.Status), nil
}

// loginExtended performs the SPNEGO/NTLM two-step session setup.
func (c *Client) loginExtended(domain, username, password string, method types.AuthMethod) (types.NTStatus, error) {
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

	resp, status := c.sessionSetupExtended(blob)
	if resp == nil {
		return status, nil
	}
	if types.NTStatus(resp.Header.Status) != types.StatusMoreProcessingReq {
		return types.NTStatus(resp.Header.Status), nil
	}
	var setupResp SessionSetupAndXResponseExtended
	if err := setupResp.Unmarshal(resp); err != nil {
		return types.StatusInvalidSMB, nil
	}
	// The server assigns the UID on the first leg.
	c.uid = resp.Header.UID

	challenge, err := spnego.UnwrapChallenge(setupResp.SecurityBlob)
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

	resp, status = c.sessionSetupExtended(blob)
	if resp == nil {
		return status, nil
	}
	if types.NTStatus(resp.Header.Status).IsSuccess() {
		c.loggedIn = true
	}
	return types.NTStatus(resp.Header.Status), nil
}

func (c *Client) sessionSetupExtended(blob []byte) (*Message, types.NTStatus) {
	req := &SessionSetupAndXRequestExtended{
		MaxBufferSize: ClientMaxBufferSize,
		MaxMpxCount:   ClientMaxMpxCount,
		VcNumber:      1,
		Capabilities:  c.clientCapabilities() | CapExtendedSecurity,
		SecurityBlob:  blob,
		NativeOS:      "Unix",
		NativeLanMan:  "SMBLibrary",
	}
	msg := req.Marshal()
	c.stampHeader(msg, 0)
	return c.conn.sendRecv(msg)
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
	msg := (&LogoffAndXRequest{}).Marshal()
	c.stampHeader(msg, 0)
	resp, status := c.conn.sendRecv(msg)
	if resp == nil {
		return status, nil
	}
	if types.NTStatus(resp.Header.Status).IsSuccess() {
		c.loggedIn = false
		c.uid = 0
	}
	return types.NTStatus(resp.Header.Status), nil
}

// TreeConnect binds to a share and returns its file store.
func (c *Client) TreeConnect(shareName string) (types.FileStore, types.NTStatus, error) {
	fs, status, err := c.treeConnect(shareName, ServiceAny)
	if fs == nil {
		return nil, status, err
	}
	return fs, status, err
}

func (c *Client) treeConnect(shareName, service string) (*FileStore, types.NTStatus, error) {
	if !c.connected {
		return nil, types.StatusInvalidSMB, types.ErrNotConnected
	}
	if !c.loggedIn {
		return nil, types.StatusInvalidSMB, types.ErrNotLoggedIn
	}
	msg := NewTreeConnectAndXRequest(shareName, service).Marshal()
	c.stampHeader(msg, 0)
	resp, status := c.conn.sendRecv(msg)
	if resp == nil {
		return nil, status, nil
	}
	if !types.NTStatus(resp.Header.Status).IsSuccess() {
		return nil, types.NTStatus(resp.Header.Status), nil
	}
	return &FileStore{
		client: c,
		treeID: resp.Header.TID,
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
	fs, status, err := c.treeConnect("IPC$", ServiceNamedPipe)
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

// Disconnect disposes the socket and resets the lifecycle state.
func (c *Client) Disconnect() {
	if c.conn != nil {
		c.conn.close()
		c.conn = nil
		c.transport = nil
	}
	c.connected = false
	c.loggedIn = false
	c.uid = 0
}

// IsConnected reports whether the transport is up and negotiated.
func (c *Client) IsConnected() bool {
	if c.connected && c.transport != nil && c.transport.IsClosed() {
		c.connected = false
		c.loggedIn = false
	}
	return c.connected
}

// IsLoggedIn reports whether a session is established.
func (c *Client) IsLoggedIn() bool {
	return c.IsConnected() && c.loggedIn
}

// Unicode reports whether the Unicode capability was negotiated.
func (c *Client) Unicode() bool {
	return c.unicode
}

// MaxReadSize is bounded by the client receive buffer less the ReadAndX
// response envelope.
func (c *Client) MaxReadSize() uint32 {
	return ClientMaxBufferSize - (HeaderSize + 3 + ReadAndXResponseParametersLength)
}

// MaxWriteSize is bounded by the server receive buffer less the WriteAndX
// request envelope; Unicode padding costs one more byte.
func (c *Client) MaxWriteSize() uint32 {
	size := c.serverMaxBufferSize - (HeaderSize + 3 + WriteAndXRequestParametersFixedLength + 4)
	if c.unicode {
		size--
	}
	return size
}

// stampHeader applies the outbound header defaults.
func (c *Client) stampHeader(msg *Message, tid uint16) {
	msg.Header.Protocol = SMB1ProtocolID
	msg.Header.Flags = FlagsCaseInsensitive | FlagsCanonicalized
	msg.Header.Flags2 = Flags2LongNamesAllowed | Flags2LongNameUsed | Flags2NTStatusCode
	if c.unicode {
		msg.Header.Flags2 |= Flags2Unicode
	}
	if c.config.ForceExtendedSecurity {
		msg.Header.Flags2 |= Flags2ExtendedSecurity
	}
	msg.Header.UID = c.uid
	msg.Header.TID = tid
}

// sendRecv stamps the header for the given tree and runs one round-trip.
func (c *Client) sendRecv(msg *Message, tid uint16) (*Message, types.NTStatus) {
	c.stampHeader(msg, tid)
	return c.conn.sendRecv(msg)
}
