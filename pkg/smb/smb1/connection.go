package smb1

import (
	"sync"
	"time"

	"github.com/jfjallid/golog"

	"github.com/cmonto/SMBLibrary/pkg/smb/types"
)

var log = golog.Get("smb1")

const (
	// ResponseTimeout bounds every SMB1 wait.
	ResponseTimeout = 5 * time.Second
	// inboxPollInterval bounds the re-check latency between signal pulses.
	inboxPollInterval = 100 * time.Millisecond
)

// wireTransport is the slice of the framed transport the connection needs;
// netbios.Transport implements it.
type wireTransport interface {
	Send(body []byte)
	Receive() ([]byte, error)
	Close()
}

// connection couples the framed transport with the SMB1 inbox. Responses are
// correlated by command code only, so callers must serialize same-command
// requests; the client itself is single-threaded per operation.
type connection struct {
	transport wireTransport

	mu     sync.Mutex
	inbox  []*Message
	mid    uint16
	closed bool
	signal chan struct{}
	done   chan struct{}
}

func newConnection(t wireTransport) *connection {
	c := &connection{
		transport: t,
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

// readLoop is the dedicated background reader. Messages that are neither
// replies nor one of the recognized unsolicited patterns (an oplock break
// with MID 0xFFFF, or PID 0 / MID 0) are dropped.
func (c *connection) readLoop() {
	defer close(c.done)
	for {
		payload, err := c.transport.Receive()
		if err != nil {
			c.shutdown()
			return
		}

		var msg Message
		if err := msg.Unmarshal(payload); err != nil {
			// Decode failures are fatal for the connection.
			log.Errorf("dropping connection, bad SMB1 message: %v\n", err)
			c.transport.Close()
			c.shutdown()
			return
		}

		if !msg.Header.IsResponse() {
			oplockBreak := msg.Header.MID == MIDOplockBreak
			pidZero := msg.Header.PIDLow == 0 && msg.Header.PIDHigh == 0 && msg.Header.MID == 0
			if !oplockBreak && !pidZero {
				log.Debugf("dropping unsolicited command 0x%02X\n", uint8(msg.Header.Command))
				continue
			}
		}

		c.mu.Lock()
		c.inbox = append(c.inbox, &msg)
		c.mu.Unlock()
		c.pulse()
	}
}

// shutdown marks the connection dead and unblocks waiters.
func (c *connection) shutdown() {
	c.mu.Lock()
	c.closed = true
	c.mu.Unlock()
	c.pulse()
}

// nextMID allocates the next multiplex id.
func (c *connection) nextMID() uint16 {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.mid++
	return c.mid
}

// send transmits one message; transport failures are swallowed and observed
// as a wait timeout.
func (c *connection) send(msg *Message) {
	c.transport.Send(msg.Marshal())
}

// waitFor blocks until a response with the given command code arrives, and
// removes it from the inbox. nil means timeout or terminated connection;
// callers translate that into STATUS_INVALID_SMB.
func (c *connection) waitFor(cmd Command) *Message {
	deadline := time.Now().Add(ResponseTimeout)
	for {
		c.mu.Lock()
		for i, m := range c.inbox {
			if m.Header.Command != cmd || !m.Header.IsResponse() {
				continue
			}
			c.inbox = append(c.inbox[:i], c.inbox[i+1:]...)
			c.mu.Unlock()
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

// sendRecv is the common round-trip: allocate a MID, send, wait.
func (c *connection) sendRecv(msg *Message) (*Message, types.NTStatus) {
	msg.Header.MID = c.nextMID()
	c.send(msg)
	resp := c.waitFor(msg.Header.Command)
	if resp == nil {
		return nil, types.StatusInvalidSMB
	}
	return resp, types.NTStatus(resp.Header.Status)
}

// close disposes the transport and waits for the reader to exit.
func (c *connection) close() {
	c.transport.Close()
	<-c.done
}
