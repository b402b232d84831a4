package http1

import (
	"io"

	"github.com/google/uuid"

	"github.com/mel2oo/go-http1/hnet"
	"github.com/mel2oo/go-http1/mempool"
	"github.com/mel2oo/go-http1/memview"
)

// ResponseReceiver assembles one HTTP response. Responses support an extra
// framing mode that requests do not: without Content-Length or chunked
// coding, the body runs until the peer closes the connection, which the
// owner signals through Eof.
type ResponseReceiver struct {
	// StreamID and Seq identify the exchange the next message belongs to.
	StreamID uuid.UUID
	Seq      int

	// HeadResponse marks the next message as the response to a HEAD
	// request, which carries headers like Content-Length but no body.
	HeadResponse bool

	// Pool, when non-nil, copies sized and read-to-close bodies into pooled
	// storage. Without it the response body aliases the fed input.
	Pool mempool.BufferPool

	limits Limits
	emit   func(hnet.Event)

	line    statusLine
	headers headersParser
	chunks  chunkReceiver

	resp          *hnet.Response
	contentLength int64
	bodyRead      int64
	bodyTotal     int64
	bodyBuffer    mempool.Buffer
	completed     bool
	phase         rxPhase
	err           error
}

func NewResponseReceiver(limits Limits, emit func(hnet.Event)) *ResponseReceiver {
	rx := &ResponseReceiver{
		limits: limits,
		emit:   emit,
	}
	rx.line = newStatusLine(&rx.limits)
	rx.headers = newHeadersParser(&rx.limits)
	rx.chunks = newChunkReceiver(&rx.limits)
	return rx
}

// Clear resets the receiver for the next message on a kept-alive
// connection. Limits, identity and pool are retained; Seq advances and the
// HEAD marker is consumed.
func (rx *ResponseReceiver) Clear() {
	rx.line.clear()
	rx.headers.clear()
	rx.chunks.clear()
	rx.resp = nil
	rx.contentLength = 0
	rx.bodyRead = 0
	rx.bodyTotal = 0
	rx.bodyBuffer = nil
	rx.completed = false
	rx.phase = phaseStartLine
	rx.err = nil
	rx.HeadResponse = false
	rx.Seq++
}

// Response returns the message being assembled, or nil before the status
// line has completed.
func (rx *ResponseReceiver) Response() *hnet.Response {
	return rx.resp
}

// KeepAlive reports whether the connection may be reused after this
// message. A response framed by connection close can never keep alive.
func (rx *ResponseReceiver) KeepAlive() bool {
	if rx.resp == nil {
		return false
	}
	if rx.phase == phaseBodyToEOF {
		return false
	}
	if rx.resp.ProtoMajor == 1 && rx.resp.ProtoMinor >= 1 {
		return !rx.resp.Header.CloseConnection()
	}
	if rx.resp.ProtoMajor == 1 && rx.resp.ProtoMinor == 0 {
		return rx.resp.Header.KeepAlive()
	}
	return false
}

// Interim reports whether the current message is a 1xx interim response,
// which is followed by another response for the same exchange.
func (rx *ResponseReceiver) Interim() bool {
	return rx.resp != nil && rx.resp.StatusCode >= 100 && rx.resp.StatusCode < 200
}

// Receive consumes bytes from pending, advancing the message state machine
// and emitting events for everything that completed. It returns the number
// of bytes consumed; the caller must drop them from its pending input
// before the next call.
func (rx *ResponseReceiver) Receive(pending memview.MemView) (int64, RxState, error) {
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
			rx.resp = hnet.NewResponse(rx.StreamID, rx.Seq)
			rx.resp.StatusCode = rx.line.status
			rx.resp.ReasonPhrase = string(rx.line.reason)
			rx.resp.ProtoMajor = rx.line.major
			rx.resp.ProtoMinor = rx.line.minor
			rx.phase = phaseHeaders

		case phaseHeaders:
			ok, perr := rx.headers.parse(r, rx.resp.Header)
			if perr != nil {
				return rx.fail(r, perr)
			}
			if !ok {
				return r.BytesRead(), RxIncomplete, nil
			}
			if err := rx.decideFraming(); err != nil {
				return rx.fail(r, err)
			}
			rx.emit(hnet.ResponseHeaders{Response: rx.resp})

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

		case phaseBodyToEOF:
			avail := pending.Len() - r.BytesRead()
			if avail == 0 {
				return r.BytesRead(), RxIncomplete, nil
			}
			view := pending.SubView(r.BytesRead(), r.BytesRead()+avail)
			r.Skip(avail)
			rx.bodyRead += avail
			if rx.bodyRead > rx.limits.MaxBodyLength {
				return rx.fail(r, parseError(BodyTooLarge, "body exceeds %d bytes", rx.limits.MaxBodyLength))
			}
			if err := rx.appendBody(view); err != nil {
				return rx.fail(r, err)
			}
			rx.emit(hnet.BodyBytes{Data: view})
			return r.BytesRead(), RxIncomplete, nil

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

// Eof reports the end of the inbound stream. A response framed by
// connection close completes here; anything else mid-message is truncated.
func (rx *ResponseReceiver) Eof() RxState {
	if rx.err != nil {
		return RxInvalid
	}
	switch rx.phase {
	case phaseBodyToEOF:
		rx.finish()
		return RxValid
	case phaseComplete:
		return RxValid
	default:
		return RxIncomplete
	}
}

// decideFraming picks the body framing for the response: no-body statuses
// and HEAD responses first, then chunked, then Content-Length, then
// read-to-close.
func (rx *ResponseReceiver) decideFraming() error {
	h := rx.resp.Header

	if rx.HeadResponse || StatusCode(rx.resp.StatusCode).HasNoBody() {
		rx.phase = phaseComplete
		return nil
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
		rx.phase = phaseBody
		return nil
	}

	rx.phase = phaseBodyToEOF
	return nil
}

func (rx *ResponseReceiver) appendBody(view memview.MemView) error {
	if rx.Pool == nil {
		rx.resp.Body.Append(view)
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

func (rx *ResponseReceiver) finish() {
	if rx.completed {
		return
	}
	rx.completed = true
	if rx.bodyBuffer != nil {
		rx.resp.Body = rx.bodyBuffer.Bytes()
		rx.resp.SetBodyBuffer(rx.bodyBuffer)
	}
	rx.emit(hnet.MessageComplete{Response: rx.resp})
}

func (rx *ResponseReceiver) fail(r *memview.MemViewReader, err error) (int64, RxState, error) {
	rx.err = err
	return r.BytesRead(), RxInvalid, err
}
