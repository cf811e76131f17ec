// Package transport wraps the raw TCP connection a session speaks SCNP
// over, applying read/write deadlines derived from a single configured
// timeout so a wedged network doesn't block a caller forever.
package transport

import (
	"context"
	"io"
	"net"
	"time"

	"github.com/opensap/hdb-go/internal/protocol/dial"
)

// Conn is a deadline-enforcing io.ReadWriteCloser over a TCP connection.
type Conn struct {
	nc      net.Conn
	timeout time.Duration
}

// Dial opens a TCP connection to addr (host:port) with the given read/write
// timeout applied to every subsequent Read/Write call. A zero timeout
// disables deadlines. The connection itself is established through
// dial.Default; use DialVia to substitute a different dialer (a proxy, a
// test double).
func Dial(addr string, timeout time.Duration) (*Conn, error) {
	return DialVia(dial.Default, addr, timeout)
}

// DialVia is Dial, but opens the underlying connection through d rather than
// dial.Default — the seam that lets a caller route through a SOCKS proxy
// (see the proxy package) or any other Dialer.
func DialVia(d dial.Dialer, addr string, timeout time.Duration) (*Conn, error) {
	ctx, cancel := context.WithTimeout(context.Background(), dialTimeout(timeout))
	defer cancel()
	nc, err := d.DialContext(ctx, addr)
	if err != nil {
		return nil, err
	}
	if tc, ok := nc.(*net.TCPConn); ok {
		tc.SetNoDelay(true)
	}
	return &Conn{nc: nc, timeout: timeout}, nil
}

func dialTimeout(timeout time.Duration) time.Duration {
	if timeout <= 0 {
		return 30 * time.Second
	}
	return timeout
}

func (c *Conn) deadline() time.Time {
	if c.timeout <= 0 {
		return time.Time{}
	}
	return time.Now().Add(c.timeout)
}

// Read implements io.Reader, applying the connection's configured deadline
// before delegating to the underlying socket.
func (c *Conn) Read(p []byte) (int, error) {
	if err := c.nc.SetReadDeadline(c.deadline()); err != nil {
		return 0, err
	}
	return c.nc.Read(p)
}

// Write implements io.Writer, applying the connection's configured deadline
// before delegating to the underlying socket.
func (c *Conn) Write(p []byte) (int, error) {
	if err := c.nc.SetWriteDeadline(c.deadline()); err != nil {
		return 0, err
	}
	return c.nc.Write(p)
}

// Close closes the underlying connection.
func (c *Conn) Close() error { return c.nc.Close() }

var _ io.ReadWriteCloser = (*Conn)(nil)
