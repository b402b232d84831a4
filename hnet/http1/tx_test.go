package http1

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mel2oo/go-http1/hnet"
)

func TestEncodeRequest(t *testing.T) {
	e := NewRequestEncoder("GET", "/search?q=go")
	require.NoError(t, e.AddHeader("Host", "example.com"))
	require.NoError(t, e.AddHeader("User-Agent", "go-http1"))

	wire, err := e.Encode(nil)
	require.NoError(t, err)

	assert.Equal(t,
		"GET /search?q=go HTTP/1.1\r\nHost: example.com\r\nUser-Agent: go-http1\r\n\r\n",
		string(wire))
}

func TestEncodeRequestInsertsContentLength(t *testing.T) {
	e := NewRequestEncoder("POST", "/upload")
	require.NoError(t, e.AddHeader("Host", "example.com"))

	wire, err := e.Encode([]byte("hello"))
	require.NoError(t, err)

	s := string(wire)
	assert.Contains(t, s, "Content-Length: 5\r\n")
	assert.True(t, strings.HasSuffix(s, "\r\n\r\nhello"))
}

func TestEncodeRequestKeepsExplicitContentLength(t *testing.T) {
	e := NewRequestEncoder("POST", "/upload")
	require.NoError(t, e.AddHeader("Content-Length", "5"))

	wire, err := e.Encode([]byte("hello"))
	require.NoError(t, err)
	assert.Equal(t, 1, strings.Count(string(wire), "Content-Length"))
}

func TestEncodeResponse(t *testing.T) {
	e := NewResponseEncoder(StatusNotFound)
	e.Date = time.Date(2024, time.March, 1, 12, 0, 0, 0, time.UTC)

	wire, err := e.Encode([]byte("missing"))
	require.NoError(t, err)

	s := string(wire)
	assert.True(t, strings.HasPrefix(s, "HTTP/1.1 404 Not Found\r\n"))
	assert.Contains(t, s, "Date: Fri, 01 Mar 2024 12:00:00 GMT\r\n")
	assert.Contains(t, s, "Content-Length: 7\r\n")
	assert.True(t, strings.HasSuffix(s, "\r\n\r\nmissing"))

	// No Server header unless the caller supplied one.
	assert.NotContains(t, s, "Server:")
}

func TestEncodeResponseKeepsCallerDate(t *testing.T) {
	e := NewResponseEncoder(StatusOK)
	require.NoError(t, e.AddHeader("Date", "Thu, 01 Jan 1970 00:00:00 GMT"))

	wire, err := e.Encode(nil)
	require.NoError(t, err)
	assert.Equal(t, 1, strings.Count(string(wire), "Date:"))
}

func TestEncodeHeadResponseSuppressesBody(t *testing.T) {
	e := NewResponseEncoder(StatusOK)
	e.Date = time.Unix(0, 0)
	e.SuppressBody = true

	wire, err := e.Encode([]byte("hello"))
	require.NoError(t, err)

	s := string(wire)
	assert.Contains(t, s, "Content-Length: 5\r\n")
	assert.True(t, strings.HasSuffix(s, "\r\n\r\n"))
}

func TestEncoderRejectsSplitHeaders(t *testing.T) {
	e := NewRequestEncoder("GET", "/")

	err := e.AddHeader("X-Evil", "x\r\n\r\nGET /evil HTTP/1.1")
	require.Error(t, err)
	assert.Equal(t, SplitHeadersRejected, err.(*ParseError).Kind)

	err = e.AddHeader("X-Sneaky", "a\nb")
	require.Error(t, err)

	err = e.AddHeader("Bad Name", "x")
	require.Error(t, err)

	assert.True(t, hnet.AreHeadersSplit("x\r\n\r\nGET /evil HTTP/1.1"))
}

// The encoder's header block never contains an embedded blank line.
func TestEncoderOutputIsSplitFree(t *testing.T) {
	e := NewResponseEncoder(StatusOK)
	e.Date = time.Unix(0, 0)
	require.NoError(t, e.AddHeader("Content-Type", "text/plain"))
	require.NoError(t, e.AddHeader("X-Trace", "abc"))

	wire, err := e.Encode(nil)
	require.NoError(t, err)

	// Strip the terminating blank line before checking.
	block := strings.TrimSuffix(string(wire), "\r\n")
	assert.False(t, hnet.AreHeadersSplit(block))
}

func TestEncodeChunkFraming(t *testing.T) {
	assert.Equal(t, "5\r\nhello\r\n", string(EncodeChunk([]byte("hello"))))
	assert.Equal(t, "1A\r\n"+strings.Repeat("x", 26)+"\r\n",
		string(EncodeChunk([]byte(strings.Repeat("x", 26)))))

	last, err := EncodeLastChunk(nil)
	require.NoError(t, err)
	assert.Equal(t, "0\r\n\r\n", string(last))

	last, err = EncodeLastChunk([]hnet.HeaderField{{Name: "X-Trace", Value: "abc"}})
	require.NoError(t, err)
	assert.Equal(t, "0\r\nX-Trace: abc\r\n\r\n", string(last))
}

func TestEncodeChunkedHead(t *testing.T) {
	e := NewResponseEncoder(StatusOK)
	e.Date = time.Unix(0, 0)

	wire, err := e.EncodeChunked()
	require.NoError(t, err)
	assert.Contains(t, string(wire), "Transfer-Encoding: chunked\r\n")
}

// Re-parsing an encoded request yields the same method, target, headers and
// body.
func TestRequestRoundTrip(t *testing.T) {
	e := NewRequestEncoder("POST", "/round/trip")
	require.NoError(t, e.AddHeader("Host", "example.com"))
	require.NoError(t, e.AddHeader("X-Trace", "abc"))
	require.NoError(t, e.AddHeader("Cookie", "a=1"))
	require.NoError(t, e.AddHeader("Cookie", "b=2"))

	wire, err := e.Encode([]byte("payload"))
	require.NoError(t, err)

	log := &eventLog{}
	rx := NewRequestReceiver(DefaultLimits(), log.emit)
	state, err := feedAll(t, rx, string(wire))
	require.NoError(t, err)
	require.Equal(t, RxValid, state)

	req := log.requestHeaders()
	require.NotNil(t, req)
	assert.Equal(t, "POST", req.Method)
	assert.Equal(t, "/round/trip", req.Target)
	assert.Equal(t, 1, req.ProtoMajor)
	assert.Equal(t, 1, req.ProtoMinor)

	host, _ := req.Header.Find("host")
	assert.Equal(t, "example.com", host)
	trace, _ := req.Header.Find("x-trace")
	assert.Equal(t, "abc", trace)
	cookie, _ := req.Header.Find("cookie")
	assert.Equal(t, "a=1; b=2", cookie)
	cl, err := req.Header.ContentLength()
	require.NoError(t, err)
	assert.Equal(t, int64(7), cl.GetOrDefault(-1))

	assert.Equal(t, "payload", log.bodyString())
}

// Re-parsing an encoded response yields the same status, headers and body;
// a chunked encoding decodes to the body that a sized encoding would carry.
func TestResponseRoundTrip(t *testing.T) {
	e := NewResponseEncoder(StatusOK)
	e.Date = time.Unix(0, 0)
	require.NoError(t, e.AddHeader("Content-Type", "text/plain"))

	wire, err := e.Encode([]byte("hello world"))
	require.NoError(t, err)

	log := &eventLog{}
	rx := NewResponseReceiver(DefaultLimits(), log.emit)
	state, err := feedAll(t, rx, string(wire))
	require.NoError(t, err)
	require.Equal(t, RxValid, state)

	resp := log.responseHeaders()
	require.NotNil(t, resp)
	assert.Equal(t, 200, resp.StatusCode)
	assert.Equal(t, "OK", resp.ReasonPhrase)
	assert.Equal(t, "hello world", log.bodyString())

	// Chunked equivalent.
	ec := NewResponseEncoder(StatusOK)
	ec.Date = time.Unix(0, 0)
	head, err := ec.EncodeChunked()
	require.NoError(t, err)
	last, err := EncodeLastChunk(nil)
	require.NoError(t, err)

	logc := &eventLog{}
	rxc := NewResponseReceiver(DefaultLimits(), logc.emit)
	state, err = feedAll(t, rxc,
		string(head),
		string(EncodeChunk([]byte("hello "))),
		string(EncodeChunk([]byte("world"))),
		string(last))
	require.NoError(t, err)
	require.Equal(t, RxValid, state)
	assert.Equal(t, "hello world", logc.chunkDataString())
}
