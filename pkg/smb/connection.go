// Package smb implements the SMB2 (2.0.2 / 2.1) client: connection state
// machine, credit-based flow control, request/response correlation, and the
// SMB2 file store.
package smb

import (
	"sync"
	"time"

	"github.com/jfjallid/golog"

	"github.com/cmonto/SMBLibrary/pkg/smb/types"
)

var log = golog.Get("smb2")

const (
	// inboxPollInterval bounds the re-check latency between signal pulses.
	inboxPollInterval = 50 * time.Millisecond
	// DefaultResponseTimeout bounds waitFor and waitForCredits.
	DefaultResponseTimeout = 60 * time.Second
)

// message is one decoded inbound SMB2 message: the header plus the opaque
// command body.
type message struct {
	Header types.Header
	Body   []byte
}

// wireTransport is the slice of the framed transport the connection needs;
// netbios.Transport implements it.
type wireTransport interface {
	Send(body []byte)
	Receive() ([]byte, error)
	Close()
}

// connection couples the framed transport with the inbox, the credit ledger
// and the message-id counter. One mutex guards all three; the signal channel
// is an auto-reset event waking one waiter per pulse.
type connection struct {
	transport wireTransport
	timeout   time.Duration

	mu        sync.Mutex
	inbox     []*message
	credits   uint16
	messageID uint64
	closed    bool
	signal    chan struct{}
	done      chan struct{}
}

func newConnection(t wireTransport, timeout time.Duration) *connection {
	if timeout <= 0 {
		timeout = DefaultResponseTimeout
	}
	c := &connection{
		transport: t,
		timeout:   timeout,
		credits:   1,
		signal:    make(chan struct{}, 1),
		done:      make(chan struct{}),
	}
	go c.readLoop()
	return c
}

// pulse wakes exactly one waiter; waiters re-check state under the lock.
func (c *connection) pulse() {
	select {
	case c.signal <- struct{}{}:
	default:
	}
}

// readLoop is the dedicated background reader: it receives session-message
// payloads, decodes the SMB2 header, applies the unsolicited-message rules,
// and appends to the inbox. Any transport or decode failure is terminal.
func (c *connection) readLoop() {
	defer close(c.done)
	for {
		payload, err := c.transport.Receive()
		if err != nil {
			c.shutdown()
			return
		}

		var msg message
		if err := msg.Header.Unmarshal(payload); err != nil {
			// Decode failures are fatal for the connection.
			log.Errorf("dropping connection, bad SMB2 message: %v\n", err)
			c.transport.Close()
			c.shutdown()
			return
		}
		msg.Body = payload[types.SMB2HeaderSize:]

		if msg.Header.MessageID == types.UnsolicitedMessageID &&
			msg.Header.Command != types.CommandOplockBreak {
			log.Debugf("dropping unsolicited %s\n", msg.Header.Command)
			continue
		}

		c.mu.Lock()
		c.credits += msg.Header.CreditRequest
		c.inbox = append(c.inbox, &msg)
		c.mu.Unlock()
		c.pulse()
	}
}

// shutdown marks the connection dead and unblocks all waiters.
func (c *connection) shutdown() {
	c.mu.Lock()
	c.closed = true
	c.mu.Unlock()
	c.pulse()
}

// send stamps the header (credits, message-id, session, tree) and transmits.
// It blocks until one credit is available; exhaustion of the wait is the only
// send-side failure surfaced to callers.
func (c *connection) send(header *types.Header, body []byte) (uint64, bool) {
	granted, ok := c.waitForCredits(1)
	if !ok {
		return 0, false
	}

	c.mu.Lock()
	header.MessageID = c.messageID
	c.messageID++
	c.mu.Unlock()

	header.CreditCharge = 1
	header.CreditRequest = granted

	c.transport.Send(append(header.Marshal(), body...))
	return header.MessageID, true
}

// waitForCredits blocks until the ledger holds at least charge credits, then
// consumes them. The consumed amount doubles as the header's credit request.
func (c *connection) waitForCredits(charge uint16) (uint16, bool) {
	deadline := time.Now().Add(c.timeout)
	for {
		c.mu.Lock()
		if c.credits >= charge {
			c.credits -= charge
			c.mu.Unlock()
			return charge, true
		}
		closed := c.closed
		c.mu.Unlock()

		if closed || time.Now().After(deadline) {
			log.Errorln("timed out waiting for credits")
			return 0, false
		}
		select {
		case <-c.signal:
		case <-time.After(inboxPollInterval):
		}
	}
}

// waitFor blocks until a response matching (command, messageID) is in the
// inbox and removes it. A matched STATUS_PENDING interim response is removed
// and the wait abandoned with a nil message. Timeout also yields nil; callers
// translate nil into STATUS_INVALID_SMB.
func (c *connection) waitFor(cmd types.Command, messageID uint64) *message {
	deadline := time.Now().Add(c.timeout)
	for {
		c.mu.Lock()
		for i, m := range c.inbox {
			if m.Header.Command != cmd || m.Header.MessageID != messageID {
				continue
			}
			c.inbox = append(c.inbox[:i], c.inbox[i+1:]...)
			c.mu.Unlock()
			if m.Header.Status == types.StatusPending {
				// Interim response; this client does not stitch the
				// final async reply.
				return nil
			}
			return m
		}
		closed := c.closed
		c.mu.Unlock()

		if closed || time.Now().After(deadline) {
			return nil
		}
		select {
		case <-c.signal:
		case <-time.After(inboxPollInterval):
		}
	}
}

// availableCredits reports the ledger value, for diagnostics.
func (c *connection) availableCredits() uint16 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.credits
}

// close disposes the transport; the read loop then shuts the connection down
// and unblocks waiters.
func (c *connection) close() {
	c.transport.Close()
	<-c.done
}
