package netbios

import (
	"errors"
	"fmt"
	"net"
	"net/url"
	"sync"
	"time"

	"github.com/jfjallid/golog"
	"golang.org/x/net/proxy"
)

var log = golog.Get("netbios")

// Transport kinds
type TransportKind int

const (
	TransportDirectTCP TransportKind = iota // port 445, no session handshake
	TransportNetBIOS                        // port 139, Session Request first
)

const (
	DirectTCPPort = 445
	NetBIOSPort   = 139
)

var (
	ErrNegativeResponse = errors.New("netbios: negative session response")
	ErrClosed           = errors.New("netbios: transport closed")
)

// Config configures transport behavior.
type Config struct {
	Timeout   time.Duration
	HostName  string // calling name for the NetBIOS session request
	Socks5URL string // optional SOCKS5 proxy (e.g. "socks5://127.0.0.1:1080")
}

// DefaultConfig returns default transport configuration.
func DefaultConfig() Config {
	return Config{
		Timeout:  30 * time.Second,
		HostName: "LOCALHOST",
	}
}

// Transport owns the TCP socket and the session-service framing on top of it.
type Transport struct {
	mu     sync.Mutex
	conn   net.Conn
	buf    Buffer
	kind   TransportKind
	closed bool
}

// Dial connects to the server and, for NetBIOS transports, performs the
// Session Request handshake against the *SMBSERVER wildcard name.
func Dial(host string, kind TransportKind, cfg Config) (*Transport, error) {
	port := DirectTCPPort
	if kind == TransportNetBIOS {
		port = NetBIOSPort
	}
	addr := fmt.Sprintf("%s:%d", host, port)

	var conn net.Conn
	var err error
	if cfg.Socks5URL != "" {
		conn, err = dialSocks5(cfg.Socks5URL, addr, cfg.Timeout)
	} else {
		conn, err = net.DialTimeout("tcp", addr, cfg.Timeout)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to connect to %s: %w", addr, err)
	}

	t := &Transport{conn: conn, kind: kind}

	if kind == TransportNetBIOS {
		if err := t.sessionRequest(cfg.HostName, cfg.Timeout); err != nil {
			t.Close()
			return nil, err
		}
	}
	return t, nil
}

// dialSocks5 establishes the TCP connection through a SOCKS5 proxy.
func dialSocks5(proxyURL, target string, timeout time.Duration) (net.Conn, error) {
	u, err := url.Parse(proxyURL)
	if err != nil {
		return nil, fmt.Errorf("invalid SOCKS5 URL: %w", err)
	}
	var auth *proxy.Auth
	if u.User != nil {
		pass, _ := u.User.Password()
		auth = &proxy.Auth{User: u.User.Username(), Password: pass}
	}
	dialer, err := proxy.SOCKS5("tcp", u.Host, auth, &net.Dialer{Timeout: timeout})
	if err != nil {
		return nil, fmt.Errorf("failed to create SOCKS5 dialer: %w", err)
	}
	return dialer.Dial("tcp", target)
}

// sessionRequest sends the Session Request and requires a positive response.
func (t *Transport) sessionRequest(hostName string, timeout time.Duration) error {
	pkt := NewSessionRequest(CalledNameWildcard, hostName)
	raw, err := pkt.Marshal()
	if err != nil {
		return err
	}
	conn := t.conn
	if timeout > 0 {
		conn.SetDeadline(time.Now().Add(timeout))
		defer conn.SetDeadline(time.Time{})
	}
	if _, err := conn.Write(raw); err != nil {
		return fmt.Errorf("session request failed: %w", err)
	}
	resp, err := t.nextPacket()
	if err != nil {
		return err
	}
	if resp.Type != PositiveSessionResponseType {
		log.Errorf("session request rejected, packet type 0x%02X\n", resp.Type)
		return ErrNegativeResponse
	}
	return nil
}

// Send wraps the message in a Session Message packet and writes it. Send
// failures (closed socket, reset) are swallowed: the caller observes the
// failure as a response timeout.
func (t *Transport) Send(body []byte) {
	t.mu.Lock()
	conn := t.conn
	t.mu.Unlock()
	if conn == nil {
		log.Debugln("send on closed transport dropped")
		return
	}
	raw, err := NewSessionMessage(body).Marshal()
	if err != nil {
		log.Errorln(err)
		return
	}
	if _, err := conn.Write(raw); err != nil {
		log.Debugf("send failed, dropping %d bytes: %v\n", len(body), err)
	}
}

// Receive blocks until one SMB message payload is available. KeepAlive and
// PositiveSessionResponse packets are ignored; a NegativeSessionResponse, a
// malformed packet, or a zero-byte read closes the socket and returns an
// error.
func (t *Transport) Receive() ([]byte, error) {
	for {
		pkt, err := t.nextPacket()
		if err != nil {
			return nil, err
		}
		switch pkt.Type {
		case SessionKeepAliveType, PositiveSessionResponseType:
			// NetBIOS-only noise, dropped.
		case NegativeSessionResponseType:
			log.Errorf("negative session response, error code 0x%02X\n", pkt.NegativeErrorCode())
			t.Close()
			return nil, ErrNegativeResponse
		case SessionMessageType:
			return pkt.Payload, nil
		}
	}
}

// nextPacket reassembles the byte stream and returns the next session packet.
func (t *Transport) nextPacket() (*SessionPacket, error) {
	chunk := make([]byte, 4096)
	for {
		if t.buf.HasPacket() {
			pkt, err := t.buf.Next()
			if err != nil {
				log.Errorf("malformed session packet: %v\n", err)
				t.Close()
				return nil, err
			}
			return pkt, nil
		}

		t.mu.Lock()
		conn := t.conn
		t.mu.Unlock()
		if conn == nil {
			return nil, ErrClosed
		}
		n, err := conn.Read(chunk)
		if n > 0 {
			t.buf.Append(chunk[:n])
			continue
		}
		if err != nil {
			t.Close()
			return nil, err
		}
	}
}

// Close disposes the socket. Blocked Receive calls return with an error.
func (t *Transport) Close() {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.conn != nil {
		t.conn.Close()
		t.conn = nil
	}
	t.closed = true
}

// IsClosed reports whether the transport has been disposed.
func (t *Transport) IsClosed() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.closed
}

// RemoteIP returns the server address without the port, for UNC paths.
func (t *Transport) RemoteIP() string {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.conn == nil {
		return ""
	}
	host, _, err := net.SplitHostPort(t.conn.RemoteAddr().String())
	if err != nil {
		return t.conn.RemoteAddr().String()
	}
	return host
}
