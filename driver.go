// Package gohttp1 drives the HTTP/1.x wire engine over a real transport.
//
// The engine itself (hnet/http1) performs no I/O: it is fed byte views and
// emits events. This package supplies the missing piece for the common
// blocking case: a transport capability interface with plain-TCP and TLS
// implementations, and a loop that shuttles bytes between a transport and a
// connection.
package gohttp1

import (
	"context"
	"crypto/tls"
	"io"
	"net"

	"github.com/pkg/errors"

	"github.com/mel2oo/go-http1/hnet/http1"
	"github.com/mel2oo/go-http1/memview"
)

// Transport is the capability set a byte transport owes the engine.
// Implementations deliver inbound bytes through Read, accept outbound
// buffers through Write in order, and report EOF exactly once.
type Transport interface {
	// Connect establishes the underlying connection.
	Connect(ctx context.Context) error

	// Handshake performs any post-connect negotiation, such as TLS.
	Handshake(ctx context.Context) error

	io.Reader
	io.Writer
	io.Closer
}

// PlainTransport is a Transport over unencrypted TCP.
type PlainTransport struct {
	Addr   string
	Dialer net.Dialer

	conn net.Conn
}

var _ Transport = (*PlainTransport)(nil)

func (t *PlainTransport) Connect(ctx context.Context) error {
	conn, err := t.Dialer.DialContext(ctx, "tcp", t.Addr)
	if err != nil {
		return errors.Wrapf(err, "failed to connect to %s", t.Addr)
	}
	t.conn = conn
	return nil
}

func (t *PlainTransport) Handshake(context.Context) error { return nil }

func (t *PlainTransport) Read(p []byte) (int, error)  { return t.conn.Read(p) }
func (t *PlainTransport) Write(p []byte) (int, error) { return t.conn.Write(p) }
func (t *PlainTransport) Close() error {
	if t.conn == nil {
		return nil
	}
	return t.conn.Close()
}

// TLSTransport is a Transport over TLS. Certificate validation and session
// behavior follow the supplied tls.Config.
type TLSTransport struct {
	Addr   string
	Config *tls.Config
	Dialer net.Dialer

	conn *tls.Conn
}

var _ Transport = (*TLSTransport)(nil)

func (t *TLSTransport) Connect(ctx context.Context) error {
	raw, err := t.Dialer.DialContext(ctx, "tcp", t.Addr)
	if err != nil {
		return errors.Wrapf(err, "failed to connect to %s", t.Addr)
	}
	t.conn = tls.Client(raw, t.Config)
	return nil
}

func (t *TLSTransport) Handshake(ctx context.Context) error {
	if err := t.conn.HandshakeContext(ctx); err != nil {
		return errors.Wrap(err, "TLS handshake failed")
	}
	return nil
}

func (t *TLSTransport) Read(p []byte) (int, error)  { return t.conn.Read(p) }
func (t *TLSTransport) Write(p []byte) (int, error) { return t.conn.Write(p) }
func (t *TLSTransport) Close() error {
	if t.conn == nil {
		return nil
	}
	return t.conn.Close()
}

// readBufferSize is the size of each buffer handed to Transport.Read. A
// fresh buffer is allocated per read because the connection hands out views
// into it.
const readBufferSize = 4096

// Serve shuttles bytes between an established transport and a connection
// until the exchange ends or ctx is cancelled. The transport is closed on
// return.
func Serve(ctx context.Context, t Transport, conn *http1.Conn) error {
	defer t.Close()

	for {
		if err := flush(t, conn); err != nil {
			conn.Disconnected(err)
			return err
		}
		if conn.Closing() {
			return conn.Err()
		}
		if err := ctx.Err(); err != nil {
			conn.Disconnected(err)
			return err
		}

		buf := make([]byte, readBufferSize)
		n, err := t.Read(buf)
		if n > 0 {
			if ferr := conn.Feed(memview.New(buf[:n])); ferr != nil {
				// Send anything still queued before closing, such as a reply
				// the sink queued on ParseFailure; the engine itself queues
				// nothing for a parse error.
				flush(t, conn)
				return ferr
			}
		}
		if err == io.EOF {
			conn.EOF()
			return flush(t, conn)
		}
		if err != nil {
			conn.Disconnected(err)
			return errors.Wrap(err, "transport read failed")
		}
	}
}

func flush(t Transport, conn *http1.Conn) error {
	for _, buf := range conn.Outbound() {
		if _, err := t.Write(buf); err != nil {
			return errors.Wrap(err, "transport write failed")
		}
	}
	return nil
}
