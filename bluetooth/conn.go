package bluetooth

import (
	"io"
	"net"
	"os"
	"sync/atomic"
	"time"
)

// Conn is a connected RFCOMM stream.
type Conn struct {
	api socketAPI
	h   Handle

	local, remote *Addr

	closed atomic.Bool
}

func newConn(api socketAPI, h Handle, local, remote *Addr) *Conn {
	return &Conn{api: api, h: h, local: local, remote: remote}
}

// Handle returns the underlying socket handle.
func (c *Conn) Handle() Handle {
	return c.h
}

func (c *Conn) opError(op string, err error) error {
	if c.api.isTimeout(err) {
		err = os.ErrDeadlineExceeded
	}

	return &net.OpError{Op: op, Net: Network, Source: c.local, Addr: c.remote, Err: err}
}

func (c *Conn) Read(b []byte) (int, error) {
	if c.closed.Load() {
		return 0, c.opError("read", net.ErrClosed)
	} else if len(b) == 0 {
		return 0, nil
	}

	n, err := c.api.recv(c.h, b)
	if err != nil {
		return 0, c.opError("read", err)
	} else if n == 0 {
		return 0, io.EOF
	}

	return n, nil
}

func (c *Conn) Write(b []byte) (int, error) {
	if c.closed.Load() {
		return 0, c.opError("write", net.ErrClosed)
	}

	var written int
	for written < len(b) {
		n, err := c.api.send(c.h, b[written:])
		if err != nil {
			return written, c.opError("write", err)
		} else if n == 0 {
			return written, c.opError("write", io.ErrUnexpectedEOF)
		}

		written += n
	}

	return written, nil
}

func (c *Conn) Close() error {
	if c.closed.Swap(true) {
		return nil
	}

	if err := c.api.closesocket(c.h); err != nil {
		return c.opError("close", err)
	}

	return nil
}

func (c *Conn) LocalAddr() net.Addr {
	return c.local
}

func (c *Conn) RemoteAddr() net.Addr {
	return c.remote
}

func (c *Conn) SetDeadline(t time.Time) error {
	if err := c.SetReadDeadline(t); err != nil {
		return err
	}

	return c.SetWriteDeadline(t)
}

func (c *Conn) SetReadDeadline(t time.Time) error {
	return c.setTimeout(timeoutRecv, t)
}

func (c *Conn) SetWriteDeadline(t time.Time) error {
	return c.setTimeout(timeoutSend, t)
}

// setTimeout maps a deadline onto the socket timeout options. A zero time
// disables the timeout, a deadline in the past becomes the shortest timeout
// the option can express since zero means infinite.
func (c *Conn) setTimeout(kind timeoutKind, t time.Time) error {
	var d time.Duration
	if !t.IsZero() {
		d = time.Until(t)
		if d < time.Millisecond {
			d = time.Millisecond
		}
	}

	if err := c.api.setTimeout(c.h, kind, d); err != nil {
		return c.opError("set", err)
	}

	return nil
}
