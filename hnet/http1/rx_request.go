package http1

import (
	"io"

	"github.com/google/uuid"

	"github.com/mel2oo/go-http1/hnet"
	"github.com/mel2oo/go-http1/mempool"
	"github.com/mel2oo/go-http1/memview"
)

// RequestReceiver assembles one HTTP request: request line, headers, then a
// body framed by Content-Length or chunked transfer coding. Requests
// without framing information have no body.
//
// The receiver is fed views of the inbound byte stream through Receive and
// reports progress through the event callback: RequestHeaders once the head
// is parsed, BodyBytes or ChunkReceived as body data arrives, and
// MessageComplete at the end. Body data events are views into the fed
// input; for chunked bodies the request's Body field stays empty.
type RequestReceiver struct {
	// StreamID and Seq identify the exchange the next message belongs to.
	StreamID uuid.UUID
	Seq      int

	// RequireHost rejects HTTP/1.1 requests without a Host header.
	RequireHost bool

	// Pool, when non-nil, copies sized bodies into pooled storage so the
	// caller's read buffers can be recycled immediately. Without it the
	// request body aliases the fed input.
	Pool mempool.BufferPool

	limits Limits
	emit   func(hnet.Event)

	line    requestLine
	headers headersParser
	chunks  chunkReceiver

	req           *hnet.Request
	contentLength int64
	bodyRead      int64
	bodyTotal     int64
	bodyBuffer    mempool.Buffer
	allowed       bool // 100-continue granted
	completed     bool
	phase         rxPhase
	err           error
}

func NewRequestReceiver(limits Limits, emit func(hnet.Event)) *RequestReceiver {
	rx := &RequestReceiver{
		limits: limits,
		emit:   emit,
	}
	rx.line = newRequestLine(&rx.limits)
	rx.headers = newHeadersParser(&rx.limits)
	rx.chunks = newChunkReceiver(&rx.limits)
	return rx
}

// Clear resets the receiver for the next message on a kept-alive
// connection. Limits, identity and options are retained; Seq advances.
func (rx *RequestReceiver) Clear() {
	rx.line.clear()
	rx.headers.clear()
	rx.chunks.clear()
	rx.req = nil
	rx.contentLength = 0
	rx.bodyRead = 0
	rx.bodyTotal = 0
	rx.bodyBuffer = nil
	rx.allowed = false
	rx.completed = false
	rx.phase = phaseStartLine
	rx.err = nil
	rx.Seq++
}

// AllowContinue unblocks a request held at the 100-continue gate. The next
// Receive call proceeds into the body.
func (rx *RequestReceiver) AllowContinue() {
	rx.allowed = true
}

// Request returns the message being assembled, or nil before the request
// line has completed.
func (rx *RequestReceiver) Request() *hnet.Request {
	return rx.req
}

// KeepAlive reports whether the connection may be reused after this
// message: HTTP/1.1 without "Connection: close", or HTTP/1.0 with
// "Connection: keep-alive". Valid once headers have been received.
func (rx *RequestReceiver) KeepAlive() bool {
	if rx.req == nil {
		return false
	}
	if rx.req.ProtoMajor == 1 && rx.req.ProtoMinor >= 1 {
		return !rx.req.Header.CloseConnection()
	}
	if rx.req.ProtoMajor == 1 && rx.req.ProtoMinor == 0 {
		return rx.req.Header.KeepAlive()
	}
	return false
}

// Receive consumes bytes from pending, advancing the message state machine
// and emitting events for everything that completed. It returns the number
// of bytes consumed; the caller must drop them from its pending input
// before the next call. Once RxInvalid is returned every later call
// returns the same error.
func (rx *RequestReceiver) Receive(pending memview.MemView) (int64, RxState, error) {
	if rx.err != nil {
		return 0, RxInvalid, rx.err
	}

	r := pending.CreateReader()
	for {
		switch rx.phase {
		case phaseStartLine:
			ok, perr := rx.line.parse(r)
			if perr != nil {
				return rx.fail(r, perr)
			}
			if !ok {
				return r.BytesRead(), RxIncomplete, nil
			}
			rx.req = hnet.NewRequest(rx.StreamID, rx.Seq)
			rx.req.Method = string(rx.line.method)
			rx.req.Target = string(rx.line.target)
			rx.req.ProtoMajor = rx.line.major
			rx.req.ProtoMinor = rx.line.minor
			rx.phase = phaseHeaders

		case phaseHeaders:
			ok, perr := rx.headers.parse(r, rx.req.Header)
			if perr != nil {
				return rx.fail(r, perr)
			}
			if !ok {
				return r.BytesRead(), RxIncomplete, nil
			}
			if err := rx.decideFraming(); err != nil {
				return rx.fail(r, err)
			}
			rx.emit(hnet.RequestHeaders{Request: rx.req})
			if rx.phase == phaseExpectContinue {
				rx.emit(hnet.ExpectContinue{Request: rx.req})
				return r.BytesRead(), RxExpectContinue, nil
			}

		case phaseExpectContinue:
			if !rx.allowed {
				return r.BytesRead(), RxExpectContinue, nil
			}
			rx.phase = phaseBody

		case phaseBody:
			avail := pending.Len() - r.BytesRead()
			if avail == 0 {
				return r.BytesRead(), RxIncomplete, nil
			}
			take := minInt64(rx.contentLength-rx.bodyRead, avail)
			view := pending.SubView(r.BytesRead(), r.BytesRead()+take)
			r.Skip(take)
			rx.bodyRead += take
			if err := rx.appendBody(view); err != nil {
				return rx.fail(r, err)
			}
			rx.emit(hnet.BodyBytes{Data: view})
			if rx.bodyRead == rx.contentLength {
				rx.phase = phaseComplete
			}

		case phaseChunks:
			done, err := rx.chunks.receive(pending, r, &rx.bodyTotal, func(chunk hnet.Chunk) {
				rx.emit(hnet.ChunkReceived{Chunk: chunk})
			})
			if err != nil {
				return rx.fail(r, err)
			}
			if !done {
				return r.BytesRead(), RxIncomplete, nil
			}
			rx.phase = phaseComplete

		case phaseComplete:
			rx.finish()
			return r.BytesRead(), RxValid, nil
		}
	}
}

// decideFraming inspects the headers and picks the body framing: chunked
// beats Content-Length; a request without either has no body. Also applies
// the Host requirement and the 100-continue gate.
func (rx *RequestReceiver) decideFraming() error {
	h := rx.req.Header

	if rx.RequireHost && rx.req.ProtoMajor == 1 && rx.req.ProtoMinor >= 1 {
		if _, found := h.Find("host"); !found {
			return &ProtocolError{Kind: MissingHost}
		}
	}

	if h.IsChunked() {
		rx.phase = phaseChunks
		return nil
	}

	clOpt, err := h.ContentLength()
	if err != nil {
		return parseError(MalformedHeader, "%v", err)
	}
	if cl, present := clOpt.Get(); present {
		if cl > rx.limits.MaxBodyLength {
			return parseError(BodyTooLarge, "Content-Length %d exceeds %d", cl, rx.limits.MaxBodyLength)
		}
		if cl == 0 {
			rx.phase = phaseComplete
			return nil
		}
		rx.contentLength = cl
		if h.ExpectContinue() && !rx.allowed {
			rx.phase = phaseExpectContinue
		} else {
			rx.phase = phaseBody
		}
		return nil
	}

	rx.phase = phaseComplete
	return nil
}

func (rx *RequestReceiver) appendBody(view memview.MemView) error {
	if rx.Pool == nil {
		rx.req.Body.Append(view)
		return nil
	}
	if rx.bodyBuffer == nil {
		rx.bodyBuffer = rx.Pool.NewBuffer()
	}
	if _, err := io.Copy(rx.bodyBuffer, view.CreateReader()); err != nil {
		return parseError(BodyTooLarge, "body exceeds pooled capacity")
	}
	return nil
}

func (rx *RequestReceiver) finish() {
	if rx.completed {
		return
	}
	rx.completed = true
	if rx.bodyBuffer != nil {
		rx.req.Body = rx.bodyBuffer.Bytes()
		rx.req.SetBodyBuffer(rx.bodyBuffer)
	}
	rx.emit(hnet.MessageComplete{Request: rx.req})
}

func (rx *RequestReceiver) fail(r *memview.MemViewReader, err error) (int64, RxState, error) {
	rx.err = err
	return r.BytesRead(), RxInvalid, err
}
