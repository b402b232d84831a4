package hnet

import (
	"net/http"
	"strconv"

	"github.com/google/uuid"

	"github.com/mel2oo/go-http1/mempool"
	"github.com/mel2oo/go-http1/memview"
)

// Request is a received (or replayed) HTTP request. StreamID and Seq
// uniquely identify one request/response exchange on a connection: Seq
// increments for every completed exchange, so pipelined messages on the
// same connection stay distinguishable.
type Request struct {
	StreamID uuid.UUID
	Seq      int

	Method     string
	Target     string // request-target exactly as received; URI validation is a caller concern
	ProtoMajor int    // e.g. 1 in HTTP/1.0
	ProtoMinor int    // e.g. 0 in HTTP/1.0
	Header     *Headers
	Body       memview.MemView

	// Parsed cookies, populated only by the net/http and HAR conversions.
	Cookies []*http.Cookie

	// The pooled buffer (if any) that owns the storage backing Body.
	buffer mempool.Buffer
}

func NewRequest(streamID uuid.UUID, seq int) *Request {
	return &Request{
		StreamID: streamID,
		Seq:      seq,
		Header:   NewHeaders(),
	}
}

// SetBodyBuffer hands the request ownership of the pooled buffer backing
// its body.
func (r *Request) SetBodyBuffer(b mempool.Buffer) { r.buffer = b }

func (r *Request) ReleaseBuffers() {
	if r.buffer != nil {
		r.buffer.Release()
		r.buffer = nil
	}
	r.Body.Clear()
}

// GetStreamKey returns a string key associating this request with its
// response.
func (r *Request) GetStreamKey() string {
	return r.StreamID.String() + ":" + strconv.Itoa(r.Seq)
}

// Response is a received (or replayed) HTTP response.
type Response struct {
	StreamID uuid.UUID
	Seq      int

	StatusCode   int
	ReasonPhrase string
	ProtoMajor   int
	ProtoMinor   int
	Header       *Headers
	Body         memview.MemView

	// Parsed cookies, populated only by the net/http and HAR conversions.
	Cookies []*http.Cookie

	// The pooled buffer (if any) that owns the storage backing Body.
	buffer mempool.Buffer
}

func NewResponse(streamID uuid.UUID, seq int) *Response {
	return &Response{
		StreamID: streamID,
		Seq:      seq,
		Header:   NewHeaders(),
	}
}

func (r *Response) SetBodyBuffer(b mempool.Buffer) { r.buffer = b }

func (r *Response) ReleaseBuffers() {
	if r.buffer != nil {
		r.buffer.Release()
		r.buffer = nil
	}
	r.Body.Clear()
}

// GetStreamKey returns a string key associating this response with its
// request.
func (r *Response) GetStreamKey() string {
	return r.StreamID.String() + ":" + strconv.Itoa(r.Seq)
}

// Chunk is one segment of a chunked body. A zero-size chunk has IsLast set
// and carries the trailers, if any.
type Chunk struct {
	Size      int64
	Extension string // everything after ';' on the chunk header line, verbatim
	Data      memview.MemView
	IsLast    bool
	Trailers  *Headers // non-nil only on the last chunk, may be empty
}
