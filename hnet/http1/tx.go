package http1

import (
	"bytes"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/mel2oo/go-http1/hnet"
)

// httpDateFormat is the RFC 7231 IMF-fixdate layout.
const httpDateFormat = "Mon, 02 Jan 2006 15:04:05 GMT"

// headerBlock is the ordered header list of an outgoing message. Names keep
// the caller's case on the wire; lookups are case-insensitive.
type headerBlock struct {
	fields []hnet.HeaderField
}

// add validates and appends one field. Any CR or LF in the name or value is
// rejected outright: a value such as "x\r\n\r\nGET /evil HTTP/1.1" would
// otherwise split the header block into a second message.
func (b *headerBlock) add(name, value string) error {
	if len(name) == 0 {
		return parseError(MalformedHeader, "empty header name")
	}
	for i := 0; i < len(name); i++ {
		if !IsTokenChar(name[i]) {
			return parseError(MalformedHeader, "invalid byte 0x%02x in header name", name[i])
		}
	}
	if strings.ContainsAny(name, "\r\n") || strings.ContainsAny(value, "\r\n") {
		return parseError(SplitHeadersRejected, "CR or LF in header %q", name)
	}
	b.fields = append(b.fields, hnet.HeaderField{Name: name, Value: value})
	return nil
}

func (b *headerBlock) has(name string) bool {
	for _, f := range b.fields {
		if strings.EqualFold(f.Name, name) {
			return true
		}
	}
	return false
}

func (b *headerBlock) writeTo(out *bytes.Buffer) {
	for _, f := range b.fields {
		out.WriteString(f.Name)
		out.WriteString(": ")
		out.WriteString(f.Value)
		out.WriteString("\r\n")
	}
}

// RequestEncoder builds the wire form of an HTTP request.
type RequestEncoder struct {
	Method string
	Target string
	Major  int
	Minor  int

	hdr headerBlock
}

// NewRequestEncoder returns an encoder for an HTTP/1.1 request.
func NewRequestEncoder(method, target string) *RequestEncoder {
	return &RequestEncoder{
		Method: method,
		Target: target,
		Major:  1,
		Minor:  1,
	}
}

// AddHeader appends a header field, preserving the given name case on the
// wire. Fields containing CR or LF are rejected.
func (e *RequestEncoder) AddHeader(name, value string) error {
	return e.hdr.add(name, value)
}

// Encode produces the request head followed by the given body. When the
// body is non-empty and no Content-Length was set explicitly, one is
// inserted.
func (e *RequestEncoder) Encode(body []byte) ([]byte, error) {
	var out bytes.Buffer
	if err := e.writeHead(&out, len(body) > 0, int64(len(body))); err != nil {
		return nil, err
	}
	out.Write(body)
	return out.Bytes(), nil
}

// EncodeChunked produces the request head for a chunked body, inserting
// "Transfer-Encoding: chunked". The body follows via EncodeChunk and
// EncodeLastChunk.
func (e *RequestEncoder) EncodeChunked() ([]byte, error) {
	var out bytes.Buffer
	if !e.hdr.has("transfer-encoding") {
		if err := e.hdr.add("Transfer-Encoding", "chunked"); err != nil {
			return nil, err
		}
	}
	if err := e.writeHead(&out, false, 0); err != nil {
		return nil, err
	}
	return out.Bytes(), nil
}

func (e *RequestEncoder) writeHead(out *bytes.Buffer, withLength bool, length int64) error {
	if e.Method == "" || strings.ContainsAny(e.Method, " \r\n") {
		return parseError(MalformedStartLine, "invalid method %q", e.Method)
	}
	if e.Target == "" || strings.ContainsAny(e.Target, " \r\n") {
		return parseError(MalformedStartLine, "invalid request-target %q", e.Target)
	}

	fmt.Fprintf(out, "%s %s HTTP/%d.%d\r\n", e.Method, e.Target, e.Major, e.Minor)

	if withLength && !e.hdr.has("content-length") {
		if err := e.hdr.add("Content-Length", strconv.FormatInt(length, 10)); err != nil {
			return err
		}
	}
	e.hdr.writeTo(out)
	out.WriteString("\r\n")
	return nil
}

// ResponseEncoder builds the wire form of an HTTP response.
type ResponseEncoder struct {
	Status StatusCode
	Reason string
	Major  int
	Minor  int

	// SuppressBody omits the body while keeping its Content-Length, as
	// required for responses to HEAD requests.
	SuppressBody bool

	// Date overrides the automatically inserted Date header; zero means the
	// current time.
	Date time.Time

	hdr headerBlock
}

// NewResponseEncoder returns an encoder for an HTTP/1.1 response with the
// default reason phrase for the status.
func NewResponseEncoder(status StatusCode) *ResponseEncoder {
	return &ResponseEncoder{
		Status: status,
		Reason: ReasonPhrase(status),
		Major:  1,
		Minor:  1,
	}
}

// AddHeader appends a header field, preserving the given name case on the
// wire. Fields containing CR or LF are rejected.
func (e *ResponseEncoder) AddHeader(name, value string) error {
	return e.hdr.add(name, value)
}

// Encode produces the response head followed by the given body. A Date
// header is inserted if the caller did not set one; a Content-Length is
// inserted for non-empty bodies unless already present. Server headers are
// only sent when the caller supplied one.
func (e *ResponseEncoder) Encode(body []byte) ([]byte, error) {
	var out bytes.Buffer
	if err := e.writeHead(&out, len(body) > 0, int64(len(body))); err != nil {
		return nil, err
	}
	if !e.SuppressBody {
		out.Write(body)
	}
	return out.Bytes(), nil
}

// EncodeChunked produces the response head for a chunked body, inserting
// "Transfer-Encoding: chunked".
func (e *ResponseEncoder) EncodeChunked() ([]byte, error) {
	var out bytes.Buffer
	if !e.hdr.has("transfer-encoding") {
		if err := e.hdr.add("Transfer-Encoding", "chunked"); err != nil {
			return nil, err
		}
	}
	if err := e.writeHead(&out, false, 0); err != nil {
		return nil, err
	}
	return out.Bytes(), nil
}

func (e *ResponseEncoder) writeHead(out *bytes.Buffer, withLength bool, length int64) error {
	if e.Status < 100 || e.Status > 999 {
		return parseError(MalformedStartLine, "invalid status code %d", e.Status)
	}
	if strings.ContainsAny(e.Reason, "\r\n") {
		return parseError(SplitHeadersRejected, "CR or LF in reason phrase")
	}

	fmt.Fprintf(out, "HTTP/%d.%d %03d %s\r\n", e.Major, e.Minor, int(e.Status), e.Reason)

	if !e.hdr.has("date") {
		date := e.Date
		if date.IsZero() {
			date = time.Now()
		}
		if err := e.hdr.add("Date", date.UTC().Format(httpDateFormat)); err != nil {
			return err
		}
	}
	if withLength && !e.hdr.has("content-length") {
		if err := e.hdr.add("Content-Length", strconv.FormatInt(length, 10)); err != nil {
			return err
		}
	}
	e.hdr.writeTo(out)
	out.WriteString("\r\n")
	return nil
}

// EncodeChunk frames one chunk of a chunked body: the size in hex, CRLF,
// the data, CRLF. Empty data must go through EncodeLastChunk instead, since
// a zero size terminates the body.
func EncodeChunk(data []byte) []byte {
	var out bytes.Buffer
	fmt.Fprintf(&out, "%X\r\n", len(data))
	out.Write(data)
	out.WriteString("\r\n")
	return out.Bytes()
}

// EncodeLastChunk frames the terminating zero-size chunk with optional
// trailer fields.
func EncodeLastChunk(trailers []hnet.HeaderField) ([]byte, error) {
	var block headerBlock
	for _, f := range trailers {
		if err := block.add(f.Name, f.Value); err != nil {
			return nil, err
		}
	}

	var out bytes.Buffer
	out.WriteString("0\r\n")
	block.writeTo(&out)
	out.WriteString("\r\n")
	return out.Bytes(), nil
}

// encodeContinue is the interim response sent when the application accepts
// a 100-continue request.
func encodeContinue() []byte {
	return []byte("HTTP/1.1 100 Continue\r\n\r\n")
}
