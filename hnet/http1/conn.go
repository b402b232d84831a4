package http1

import (
	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/mel2oo/go-http1/hnet"
	"github.com/mel2oo/go-http1/mempool"
	"github.com/mel2oo/go-http1/memview"
)

// Role says which side of the exchange a connection parses: a server parses
// requests, a client parses responses.
type Role int

const (
	RoleServer Role = iota
	RoleClient
)

// Config fixes a connection's behavior at construction.
type Config struct {
	Role   Role
	Limits Limits

	// Sink receives every event of the connection, in arrival order.
	Sink hnet.EventSink

	// RequireHost rejects HTTP/1.1 requests without a Host header. Server
	// only.
	RequireHost bool

	// TranslateHead suppresses the body of responses to HEAD requests while
	// keeping their Content-Length. Server only.
	TranslateHead bool

	// StrictContinue fails the connection if body bytes arrive while a
	// request is held at the 100-continue gate. Off by default: clients are
	// allowed to send the body without waiting.
	StrictContinue bool

	// Pool, when non-nil, copies message bodies into pooled storage so the
	// transport's read buffers can be recycled immediately.
	Pool mempool.BufferPool
}

// Conn is the per-connection driver. It owns the current inbound receiver
// and the outbound byte queue, performs no I/O of its own, and is not safe
// for concurrent use: one goroutine per connection.
//
// Inbound bytes enter through Feed; parsed structure leaves through the
// event sink. Outbound messages enter through the Send methods and leave as
// byte buffers through Outbound, to be written to the transport in order.
type Conn struct {
	id  uuid.UUID
	cfg Config

	pending memview.MemView
	reqRx   *RequestReceiver
	respRx  *ResponseReceiver

	out [][]byte

	// Methods of sent requests awaiting their responses, so responses to
	// HEAD are framed correctly. Client only.
	sentMethods []string

	// Method of the request currently being answered. Server only.
	lastReqMethod string

	expectLatched bool
	closing       bool
	err           error
}

func NewConn(cfg Config) (*Conn, error) {
	if err := cfg.Limits.Validate(); err != nil {
		return nil, errors.Wrap(err, "invalid limits")
	}
	if cfg.Sink == nil {
		return nil, errors.New("config needs an event sink")
	}

	c := &Conn{
		id:  uuid.New(),
		cfg: cfg,
	}
	switch cfg.Role {
	case RoleServer:
		c.reqRx = NewRequestReceiver(cfg.Limits, c.onEvent)
		c.reqRx.StreamID = c.id
		c.reqRx.RequireHost = cfg.RequireHost
		c.reqRx.Pool = cfg.Pool
	case RoleClient:
		c.respRx = NewResponseReceiver(cfg.Limits, c.onEvent)
		c.respRx.StreamID = c.id
		c.respRx.Pool = cfg.Pool
	default:
		return nil, errors.Errorf("unknown role %d", cfg.Role)
	}
	return c, nil
}

func (c *Conn) ID() uuid.UUID { return c.id }

// Err returns the fatal error that stopped the connection, if any.
func (c *Conn) Err() error { return c.err }

// onEvent observes the receiver's events before forwarding them to the
// caller's sink.
func (c *Conn) onEvent(e hnet.Event) {
	if rh, ok := e.(hnet.RequestHeaders); ok {
		c.lastReqMethod = rh.Request.Method
	}
	c.cfg.Sink.OnEvent(e)
}

// Feed hands the connection the next buffer read from the transport. The
// buffer must remain valid until the events derived from it have been
// consumed. Returns the connection's fatal error, if parsing failed.
func (c *Conn) Feed(input memview.MemView) error {
	if c.err != nil {
		return c.err
	}
	if c.closing {
		// The message exchange is over; anything further is ignored.
		return nil
	}
	c.pending.Append(input)
	return c.drive()
}

// EOF reports that the transport's read side closed. A response framed by
// connection close completes here; everything else mid-message is simply a
// disconnect.
func (c *Conn) EOF() {
	if c.err == nil && c.respRx != nil {
		c.respRx.Eof()
	}
	c.closing = true
	c.cfg.Sink.OnEvent(hnet.Disconnect{})
}

// Disconnected reports a transport failure. Pending state is discarded.
func (c *Conn) Disconnected(err error) {
	c.closing = true
	c.pending.Clear()
	c.cfg.Sink.OnEvent(hnet.Disconnect{Err: err})
}

// AllowContinue grants a request held at the 100-continue gate. The interim
// response is queued for transmission and body parsing resumes.
func (c *Conn) AllowContinue() error {
	if c.err != nil {
		return c.err
	}
	if !c.expectLatched {
		return nil
	}
	c.expectLatched = false
	c.out = append(c.out, encodeContinue())
	c.reqRx.AllowContinue()
	return c.drive()
}

// drive runs the current receiver over the pending input until it blocks,
// completes messages, or fails. Completed messages on a kept-alive
// connection recycle the receiver and continue, so pipelined messages in
// one buffer all surface.
func (c *Conn) drive() error {
	for {
		var (
			consumed int64
			state    RxState
			err      error
		)
		if c.cfg.Role == RoleServer {
			consumed, state, err = c.reqRx.Receive(c.pending)
		} else {
			c.respRx.HeadResponse = len(c.sentMethods) > 0 && c.sentMethods[0] == "HEAD"
			consumed, state, err = c.respRx.Receive(c.pending)
		}
		c.trim(consumed)

		if err != nil {
			c.err = err
			c.cfg.Sink.OnEvent(hnet.ParseFailure{Err: err})
			return err
		}

		switch state {
		case RxIncomplete:
			return nil

		case RxExpectContinue:
			c.expectLatched = true
			if c.cfg.StrictContinue && c.pending.Len() > 0 {
				err := &ProtocolError{Kind: ExpectContinueConflict}
				c.err = err
				c.cfg.Sink.OnEvent(hnet.ParseFailure{Err: err})
				return err
			}
			return nil

		case RxValid:
			if !c.recycle() {
				return nil
			}

		default:
			return nil
		}
	}
}

// recycle resets the receiver after a completed message. Returns false when
// the connection must close instead.
func (c *Conn) recycle() bool {
	if c.cfg.Role == RoleServer {
		keep := c.reqRx.KeepAlive()
		if !keep {
			c.closing = true
			c.pending.Clear()
			return false
		}
		c.reqRx.Clear()
		return true
	}

	// A 1xx interim response is followed by the real response for the same
	// exchange; it neither advances the sequence nor consumes the sent
	// method.
	if c.respRx.Interim() {
		seq := c.respRx.Seq
		c.respRx.Clear()
		c.respRx.Seq = seq
		return true
	}

	if len(c.sentMethods) > 0 {
		c.sentMethods = c.sentMethods[1:]
	}
	keep := c.respRx.KeepAlive()
	if !keep {
		c.closing = true
		c.pending.Clear()
		return false
	}
	c.respRx.Clear()
	return true
}

func (c *Conn) trim(consumed int64) {
	if consumed <= 0 {
		return
	}
	if consumed >= c.pending.Len() {
		c.pending = memview.MemView{}
		return
	}
	c.pending = c.pending.SubView(consumed, c.pending.Len())
}

// SendRequest queues an encoded request for transmission. Client only.
func (c *Conn) SendRequest(e *RequestEncoder, body []byte) error {
	if c.cfg.Role != RoleClient {
		return errors.New("SendRequest on a server connection")
	}
	data, err := e.Encode(body)
	if err != nil {
		return err
	}
	c.out = append(c.out, data)
	c.sentMethods = append(c.sentMethods, e.Method)
	return nil
}

// SendRequestChunked queues the head of a chunked request. The body follows
// via SendChunk and SendLastChunk. Client only.
func (c *Conn) SendRequestChunked(e *RequestEncoder) error {
	if c.cfg.Role != RoleClient {
		return errors.New("SendRequestChunked on a server connection")
	}
	data, err := e.EncodeChunked()
	if err != nil {
		return err
	}
	c.out = append(c.out, data)
	c.sentMethods = append(c.sentMethods, e.Method)
	return nil
}

// SendResponse queues an encoded response for transmission. Server only.
// With TranslateHead set, responses to HEAD requests are sent without their
// body.
func (c *Conn) SendResponse(e *ResponseEncoder, body []byte) error {
	if c.cfg.Role != RoleServer {
		return errors.New("SendResponse on a client connection")
	}
	if c.cfg.TranslateHead && c.lastReqMethod == "HEAD" {
		e.SuppressBody = true
	}
	data, err := e.Encode(body)
	if err != nil {
		return err
	}
	c.out = append(c.out, data)
	return nil
}

// SendResponseChunked queues the head of a chunked response. Server only.
func (c *Conn) SendResponseChunked(e *ResponseEncoder) error {
	if c.cfg.Role != RoleServer {
		return errors.New("SendResponseChunked on a client connection")
	}
	data, err := e.EncodeChunked()
	if err != nil {
		return err
	}
	c.out = append(c.out, data)
	return nil
}

// SendChunk queues one chunk of an in-progress chunked body.
func (c *Conn) SendChunk(data []byte) {
	if len(data) == 0 {
		return
	}
	c.out = append(c.out, EncodeChunk(data))
}

// SendLastChunk queues the terminating chunk with optional trailers.
func (c *Conn) SendLastChunk(trailers []hnet.HeaderField) error {
	data, err := EncodeLastChunk(trailers)
	if err != nil {
		return err
	}
	c.out = append(c.out, data)
	return nil
}

// Outbound drains the queue of byte buffers awaiting transmission. The
// transport must write them in order.
func (c *Conn) Outbound() [][]byte {
	out := c.out
	c.out = nil
	return out
}

// Closing reports whether the connection is done exchanging messages and
// should be closed once the outbound queue drains.
func (c *Conn) Closing() bool {
	return c.closing || c.err != nil
}
