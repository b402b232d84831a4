package hnet

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAddAndFind(t *testing.T) {
	h := NewHeaders()
	h.Add("Host", "example.com")

	value, found := h.Find("host")
	assert.True(t, found)
	assert.Equal(t, "example.com", value)

	value, found = h.Find("HOST")
	assert.True(t, found)
	assert.Equal(t, "example.com", value)

	_, found = h.Find("accept")
	assert.False(t, found)

	assert.Equal(t, 1, h.Count())
	assert.Equal(t, int64(len("host")+len("example.com")), h.Length())
}

func TestDuplicateMerge(t *testing.T) {
	h := NewHeaders()
	h.Add("Accept", "text/html")
	h.Add("accept", "application/json")

	value, _ := h.Find("accept")
	assert.Equal(t, "text/html,application/json", value)
	assert.Equal(t, 1, h.Count())
}

func TestDuplicateCookieMerge(t *testing.T) {
	h := NewHeaders()
	h.Add("Cookie", "a=1")
	h.Add("Cookie", "b=2")

	value, _ := h.Find("cookie")
	assert.Equal(t, "a=1; b=2", value)

	// Any name containing "cookie" gets the cookie separator.
	h.Add("Set-Cookie", "s=1")
	h.Add("Set-Cookie", "t=2")
	value, _ = h.Find("set-cookie")
	assert.Equal(t, "s=1; t=2", value)
}

func TestContentLength(t *testing.T) {
	h := NewHeaders()

	cl, err := h.ContentLength()
	assert.NoError(t, err)
	assert.True(t, cl.IsNone())

	h.Add("Content-Length", "0")
	cl, err = h.ContentLength()
	assert.NoError(t, err)
	assert.Equal(t, int64(0), cl.GetOrDefault(-1))

	h.Clear()
	h.Add("Content-Length", "1234")
	cl, err = h.ContentLength()
	assert.NoError(t, err)
	assert.Equal(t, int64(1234), cl.GetOrDefault(-1))

	h.Clear()
	h.Add("Content-Length", "12x4")
	_, err = h.ContentLength()
	assert.Error(t, err)

	h.Clear()
	h.Add("Content-Length", "-5")
	_, err = h.ContentLength()
	assert.Error(t, err)
}

func TestIsChunked(t *testing.T) {
	h := NewHeaders()
	assert.False(t, h.IsChunked())

	h.Add("Transfer-Encoding", "chunked")
	assert.True(t, h.IsChunked())

	// "identity" means no transfer coding, RFC 2616 section 4.4.
	h.Clear()
	h.Add("Transfer-Encoding", "Identity")
	assert.False(t, h.IsChunked())
}

func TestConnectionFlags(t *testing.T) {
	h := NewHeaders()
	assert.False(t, h.CloseConnection())
	assert.False(t, h.KeepAlive())

	h.Add("Connection", "Close")
	assert.True(t, h.CloseConnection())

	h.Clear()
	h.Add("Connection", "Keep-Alive")
	assert.True(t, h.KeepAlive())
}

func TestExpectContinue(t *testing.T) {
	h := NewHeaders()
	assert.False(t, h.ExpectContinue())

	h.Add("Expect", "100-Continue")
	assert.True(t, h.ExpectContinue())
}

func TestWantsUpgrade(t *testing.T) {
	h := NewHeaders()
	_, found := h.WantsUpgrade()
	assert.False(t, found)

	h.Add("Upgrade", "websocket")
	proto, found := h.WantsUpgrade()
	assert.True(t, found)
	assert.Equal(t, "websocket", proto)
}

func TestToWireIsSplitFree(t *testing.T) {
	h := NewHeaders()
	h.Add("Host", "example.com")
	h.Add("Accept", "text/html")
	h.Add("Cookie", "a=1")
	h.Add("Cookie", "b=2")

	wire := string(h.ToWire())
	assert.False(t, AreHeadersSplit(wire))
	assert.Contains(t, wire, "host: example.com\r\n")
	assert.Contains(t, wire, "cookie: a=1; b=2\r\n")
}

func TestAreHeadersSplit(t *testing.T) {
	testCases := []struct {
		name     string
		input    string
		expected bool
	}{
		{"empty", "", false},
		{"single header", "Host: a\r\n", false},
		{"two headers", "Host: a\r\nAccept: b\r\n", false},
		{"double LF", "Host: a\n\nGET /evil HTTP/1.1", true},
		{"LF CR LF", "Host: a\n\r\nGET /evil HTTP/1.1", true},
		{"smuggled blank line", "x\r\n\r\nGET /evil HTTP/1.1", true},
		{"lone CRLF pair", "\r\n", false},
	}

	for _, c := range testCases {
		assert.Equal(t, c.expected, AreHeadersSplit(c.input), c.name)
	}
}
