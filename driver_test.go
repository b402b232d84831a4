package gohttp1

import (
	"bytes"
	"context"
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mel2oo/go-http1/hnet"
	"github.com/mel2oo/go-http1/hnet/http1"
)

// scriptTransport plays back a fixed sequence of reads and records writes.
type scriptTransport struct {
	reads  [][]byte
	next   int
	wrote  bytes.Buffer
	closed bool
}

var _ Transport = (*scriptTransport)(nil)

func (t *scriptTransport) Connect(context.Context) error   { return nil }
func (t *scriptTransport) Handshake(context.Context) error { return nil }

func (t *scriptTransport) Read(p []byte) (int, error) {
	if t.next >= len(t.reads) {
		return 0, io.EOF
	}
	n := copy(p, t.reads[t.next])
	t.next++
	return n, nil
}

func (t *scriptTransport) Write(p []byte) (int, error) {
	return t.wrote.Write(p)
}

func (t *scriptTransport) Close() error {
	t.closed = true
	return nil
}

// echoSink answers every completed request with a 200 carrying the request
// target.
type echoSink struct {
	conn   *http1.Conn
	events []hnet.Event
}

func (s *echoSink) OnEvent(e hnet.Event) {
	s.events = append(s.events, e)
	if mc, ok := e.(hnet.MessageComplete); ok && mc.Request != nil {
		enc := http1.NewResponseEncoder(http1.StatusOK)
		s.conn.SendResponse(enc, []byte(mc.Request.Target))
	}
}

func TestServeAnswersAndCloses(t *testing.T) {
	sink := &echoSink{}
	conn, err := http1.NewConn(http1.Config{
		Role:   http1.RoleServer,
		Limits: http1.DefaultLimits(),
		Sink:   sink,
	})
	require.NoError(t, err)
	sink.conn = conn

	transport := &scriptTransport{
		reads: [][]byte{
			[]byte("GET /hello HTTP/1.1\r\nHost: a\r\nConnec"),
			[]byte("tion: close\r\n\r\n"),
		},
	}

	require.NoError(t, Serve(context.Background(), transport, conn))

	out := transport.wrote.String()
	assert.True(t, strings.HasPrefix(out, "HTTP/1.1 200 OK\r\n"))
	assert.True(t, strings.HasSuffix(out, "\r\n\r\n/hello"))
	assert.True(t, transport.closed)
}

func TestServeReportsEOF(t *testing.T) {
	sink := &echoSink{}
	conn, err := http1.NewConn(http1.Config{
		Role:   http1.RoleServer,
		Limits: http1.DefaultLimits(),
		Sink:   sink,
	})
	require.NoError(t, err)
	sink.conn = conn

	transport := &scriptTransport{
		reads: [][]byte{[]byte("GET / HTTP/1.1\r\nHost: a")},
	}

	require.NoError(t, Serve(context.Background(), transport, conn))

	last, ok := sink.events[len(sink.events)-1].(hnet.Disconnect)
	require.True(t, ok)
	assert.NoError(t, last.Err)
	assert.True(t, transport.closed)
}

func TestServeFailsOnParseError(t *testing.T) {
	sink := &echoSink{}
	conn, err := http1.NewConn(http1.Config{
		Role:   http1.RoleServer,
		Limits: http1.DefaultLimits(),
		Sink:   sink,
	})
	require.NoError(t, err)
	sink.conn = conn

	transport := &scriptTransport{
		reads: [][]byte{[]byte("NOT_HTTP\x01\r\n\r\n")},
	}

	err = Serve(context.Background(), transport, conn)
	assert.Error(t, err)
	assert.True(t, transport.closed)
}
