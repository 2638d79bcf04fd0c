// Package client implements the Dubbo consumer side: one long-lived TCP
// connection per Client, multiplexed by a background receive loop.
//
//	Invoke ──write frame──→ conn ──→ provider
//	recvLoop: ←── frame ←── conn
//	    heartbeat request  → reply immediately
//	    heartbeat response → drop
//	    response / telnet  → delivery queue → the blocked caller
//
// Responses are delivered strictly in arrival order, which matches
// submission order because each Invoke blocks for its response. Pool layers
// concurrency across connections on top of this.
package client

import (
	"io"
	"log"
	"net"
	"sync"
	"sync/atomic"
	"time"

	"github.com/pkg/errors"

	"dubbo-go/message"
	"dubbo-go/protocol"
)

const (
	// DefaultDubboVersion is the protocol version advertised in requests.
	DefaultDubboVersion = "2.5.3"

	defaultRecvTimeout       = 5 * time.Second
	defaultHeartbeatInterval = 60 * time.Second
)

var (
	// ErrTimeout reports that no response arrived within the receive window.
	ErrTimeout = errors.New("client: receive timeout")

	// ErrConnectionClosed reports a send or receive on a dead connection.
	ErrConnectionClosed = errors.New("client: connection closed")
)

// Options tune a Client. The zero value selects the defaults.
type Options struct {
	DubboVersion      string        // default 2.5.3
	RecvTimeout       time.Duration // default 5s
	HeartbeatInterval time.Duration // default 60s
}

// Invocation names one remote call.
type Invocation struct {
	ServiceName    string
	MethodName     string
	ServiceVersion string // default 1.0
	Args           []any
	Attachments    map[any]any
	Timeout        time.Duration // overrides the client's receive timeout
}

// Client is one consumer connection.
type Client struct {
	conn      net.Conn
	dec       *protocol.Decoder
	opts      Options
	requestID atomic.Int64

	queue chan message.Message
	done  chan struct{}

	// sending serialises frame writes; Invoke, the heartbeat loop and
	// heartbeat replies from the receive loop all share the socket.
	sending sync.Mutex
	closed  atomic.Bool

	// calling serialises whole calls (write plus await), so concurrent
	// callers sharing the client each take the response to their own request.
	calling sync.Mutex
}

// Dial connects with default options and starts the background loops.
func Dial(addr string) (*Client, error) {
	return DialOptions(addr, Options{})
}

// DialOptions connects with explicit options.
func DialOptions(addr string, opts Options) (*Client, error) {
	conn, err := net.Dial("tcp", addr)
	if err != nil {
		return nil, errors.Wrap(err, "client: dial")
	}
	if opts.DubboVersion == "" {
		opts.DubboVersion = DefaultDubboVersion
	}
	if opts.RecvTimeout == 0 {
		opts.RecvTimeout = defaultRecvTimeout
	}
	if opts.HeartbeatInterval == 0 {
		opts.HeartbeatInterval = defaultHeartbeatInterval
	}
	c := &Client{
		conn:  conn,
		dec:   protocol.NewDecoder(conn),
		opts:  opts,
		queue: make(chan message.Message, 128),
		done:  make(chan struct{}),
	}
	go c.recvLoop()
	go c.heartbeatLoop()
	return c, nil
}

// Invoke sends a two-way request and blocks for its response.
func (c *Client) Invoke(inv Invocation) (*message.Response, error) {
	c.calling.Lock()
	defer c.calling.Unlock()
	if err := c.send(inv, true); err != nil {
		return nil, err
	}
	msg, err := c.await(inv.Timeout)
	if err != nil {
		return nil, err
	}
	resp, ok := msg.(*message.Response)
	if !ok {
		return nil, errors.Errorf("client: unexpected message %T", msg)
	}
	return resp, nil
}

// InvokeOneWay sends a fire-and-forget request; no response will come.
func (c *Client) InvokeOneWay(inv Invocation) error {
	return c.send(inv, false)
}

func (c *Client) send(inv Invocation, twoway bool) error {
	req := &message.Request{
		ID:             c.requestID.Add(1),
		TwoWay:         twoway,
		DubboVersion:   c.opts.DubboVersion,
		ServiceName:    inv.ServiceName,
		ServiceVersion: inv.ServiceVersion,
		MethodName:     inv.MethodName,
		Args:           inv.Args,
		Attachments:    inv.Attachments,
	}
	frame, err := protocol.EncodeRequest(req)
	if err != nil {
		return err
	}
	return c.write(frame)
}

// ListServices runs the telnet "ls" command on the provider port.
func (c *Client) ListServices() ([]string, error) {
	return c.telnetCommand("ls")
}

// ListMethods runs "ls <service>" on the provider port.
func (c *Client) ListMethods(serviceName string) ([]string, error) {
	return c.telnetCommand("ls " + serviceName)
}

func (c *Client) telnetCommand(command string) ([]string, error) {
	c.calling.Lock()
	defer c.calling.Unlock()
	if err := c.write([]byte(command + "\n")); err != nil {
		return nil, err
	}
	msg, err := c.await(0)
	if err != nil {
		return nil, err
	}
	line, ok := msg.(message.TelnetLine)
	if !ok {
		return nil, errors.Errorf("client: unexpected message %T", msg)
	}
	return line.Lines(), nil
}

// SendHeartbeatRequest sends a one-way heartbeat probe.
func (c *Client) SendHeartbeatRequest(id int64) error {
	frame, err := protocol.EncodeHeartbeatRequest(&message.HeartbeatRequest{ID: id})
	if err != nil {
		return err
	}
	return c.write(frame)
}

// SendHeartbeatResponse answers a two-way heartbeat probe from the peer.
func (c *Client) SendHeartbeatResponse(id int64) error {
	frame, err := protocol.EncodeHeartbeatResponse(&message.HeartbeatResponse{ID: id})
	if err != nil {
		return err
	}
	return c.write(frame)
}

// Close shuts the connection down; the receive loop observes the closed
// socket and releases any blocked callers.
func (c *Client) Close() error {
	if c.closed.CompareAndSwap(false, true) {
		return c.conn.Close()
	}
	return nil
}

func (c *Client) write(frame []byte) error {
	c.sending.Lock()
	defer c.sending.Unlock()
	if c.closed.Load() {
		return ErrConnectionClosed
	}
	if _, err := c.conn.Write(frame); err != nil {
		return errors.Wrap(ErrConnectionClosed, err.Error())
	}
	return nil
}

// await pops the next delivered message, bounded by the receive timeout.
func (c *Client) await(timeout time.Duration) (message.Message, error) {
	if timeout == 0 {
		timeout = c.opts.RecvTimeout
	}
	timer := time.NewTimer(timeout)
	defer timer.Stop()
	select {
	case msg := <-c.queue:
		return msg, nil
	case <-timer.C:
		return nil, ErrTimeout
	case <-c.done:
		// drain anything delivered before the connection died
		select {
		case msg := <-c.queue:
			return msg, nil
		default:
		}
		return nil, ErrConnectionClosed
	}
}

// recvLoop parses one frame at a time and routes it. Heartbeats are handled
// in place; everything else is queued for the blocked caller.
func (c *Client) recvLoop() {
	defer close(c.done)
	for {
		msg, err := c.dec.Decode()
		if err != nil {
			if errors.Is(err, io.EOF) || c.closed.Load() {
				log.Printf("got EOF, stop recv loop")
			} else {
				log.Printf("recv loop error: %v", err)
			}
			return
		}
		switch m := msg.(type) {
		case *message.HeartbeatRequest:
			if m.TwoWay {
				if err := c.SendHeartbeatResponse(m.ID); err != nil {
					log.Printf("heartbeat reply failed: %v", err)
					return
				}
			} else {
				log.Printf("skip heartbeat request message not twoway")
			}
		case *message.HeartbeatResponse:
			// keep-alive answer, nothing to do
		default:
			c.queue <- msg
		}
	}
}

// heartbeatLoop probes the provider with one-way heartbeats until the
// connection dies.
func (c *Client) heartbeatLoop() {
	ticker := time.NewTicker(c.opts.HeartbeatInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			if err := c.SendHeartbeatRequest(c.requestID.Add(1)); err != nil {
				log.Printf("got write error, stop heartbeat loop")
				return
			}
		case <-c.done:
			return
		}
	}
}
