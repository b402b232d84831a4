package hnet

import (
	"fmt"

	"github.com/mel2oo/go-http1/memview"
)

// Event is the interface implemented by everything a connection can report:
// parsed message heads, body data, chunks, completion, interim-response
// gates, parse failures and disconnects. A single tagged sink receives all
// of them in arrival order.
type Event interface {
	// ReleaseBuffers releases any pooled storage owned by the event.
	ReleaseBuffers()

	Print() string
}

// EventSink consumes the events of one connection. Implementations must
// consume body and chunk views before returning, or retain the underlying
// buffers: the engine does not copy them.
type EventSink interface {
	OnEvent(Event)
}

// EventSinkFunc adapts a function to an EventSink.
type EventSinkFunc func(Event)

func (f EventSinkFunc) OnEvent(e Event) { f(e) }

// RequestHeaders reports that a request line and its headers have been
// received. The request body is not yet populated.
type RequestHeaders struct {
	Request *Request
}

var _ Event = (*RequestHeaders)(nil)

func (e RequestHeaders) ReleaseBuffers() {}
func (e RequestHeaders) Print() string {
	return fmt.Sprintf("## HTTP -> Request: %s %s %s", e.Request.StreamID, e.Request.Method, e.Request.Target)
}

// ResponseHeaders reports that a status line and its headers have been
// received. The response body is not yet populated.
type ResponseHeaders struct {
	Response *Response
}

var _ Event = (*ResponseHeaders)(nil)

func (e ResponseHeaders) ReleaseBuffers() {}
func (e ResponseHeaders) Print() string {
	return fmt.Sprintf("## HTTP <- Response: %s %d", e.Response.StreamID, e.Response.StatusCode)
}

// BodyBytes carries a slice of a sized or read-to-close message body, as a
// view into the buffers fed to the connection.
type BodyBytes struct {
	Data memview.MemView
}

var _ Event = (*BodyBytes)(nil)

func (e BodyBytes) ReleaseBuffers() { e.Data.Clear() }
func (e BodyBytes) Print() string {
	return fmt.Sprintf("## HTTP body: %d bytes", e.Data.Len())
}

// ChunkReceived carries one complete chunk of a chunked body. The final
// chunk has IsLast set and may carry trailers.
type ChunkReceived struct {
	Chunk Chunk
}

var _ Event = (*ChunkReceived)(nil)

func (e ChunkReceived) ReleaseBuffers() { e.Chunk.Data.Clear() }
func (e ChunkReceived) Print() string {
	if e.Chunk.IsLast {
		return "## HTTP chunk: last"
	}
	return fmt.Sprintf("## HTTP chunk: %d bytes", e.Chunk.Size)
}

// MessageComplete reports that the current message, body included, has been
// fully received.
type MessageComplete struct {
	// Set for requests and responses respectively; at most one is non-nil.
	Request  *Request
	Response *Response
}

var _ Event = (*MessageComplete)(nil)

func (e MessageComplete) ReleaseBuffers() {
	if e.Request != nil {
		e.Request.ReleaseBuffers()
	}
	if e.Response != nil {
		e.Response.ReleaseBuffers()
	}
}
func (e MessageComplete) Print() string { return "## HTTP message complete" }

// ExpectContinue reports that a request carries "Expect: 100-continue" and
// the engine is holding before its body. The application decides whether to
// call AllowContinue on the connection.
type ExpectContinue struct {
	Request *Request
}

var _ Event = (*ExpectContinue)(nil)

func (e ExpectContinue) ReleaseBuffers() {}
func (e ExpectContinue) Print() string   { return "## HTTP expect 100-continue" }

// ParseFailure reports a fatal parse or protocol error. The connection
// refuses further input after emitting one.
type ParseFailure struct {
	Err error
}

var _ Event = (*ParseFailure)(nil)

func (e ParseFailure) ReleaseBuffers() {}
func (e ParseFailure) Print() string   { return fmt.Sprintf("## HTTP parse failure: %v", e.Err) }

// Disconnect reports that the transport reached end of stream or failed.
type Disconnect struct {
	// Nil for an orderly end of stream.
	Err error
}

var _ Event = (*Disconnect)(nil)

func (e Disconnect) ReleaseBuffers() {}
func (e Disconnect) Print() string   { return "## HTTP disconnect" }
