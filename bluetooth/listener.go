// Package bluetooth provides an RFCOMM listener that advertises itself in the
// host service discovery registry.
package bluetooth

import (
	"fmt"
	"net"
	"sync"
	"sync/atomic"

	hostctl "github.com/devgianlu/go-hostctl"
)

// DefaultBacklog is the number of pending connections the listening socket
// queues.
const DefaultBacklog = 4

type Listener struct {
	log hostctl.Logger
	api socketAPI

	sock  Handle
	local *Addr
	reg   *registration
	seq   *sequence

	closed    atomic.Bool
	closeOnce sync.Once
	closeErr  error
}

// Listen creates an RFCOMM socket bound to any free channel, advertises desc
// in the service discovery registry and starts listening. When a step fails
// every resource acquired before it is released again.
func Listen(log hostctl.Logger, desc ServiceDescriptor) (*Listener, error) {
	return listen(log, defaultAPI, desc)
}

func listen(log hostctl.Logger, api socketAPI, desc ServiceDescriptor) (*Listener, error) {
	reg, err := desc.encode()
	if err != nil {
		return nil, err
	}

	l := &Listener{log: log, api: api, sock: InvalidHandle, reg: reg}
	l.seq = &sequence{log: log}

	err = l.seq.run(
		step{name: "startup", acquire: api.startup, release: api.cleanup},
		step{
			name: "socket",
			acquire: func() (err error) {
				l.sock, err = api.socket()
				if err == nil && IsInvalid(l.sock) {
					err = fmt.Errorf("socket returned an invalid handle")
				}
				return err
			},
			release: func() error { return api.closesocket(l.sock) },
		},
		step{name: "bind", acquire: func() error { return api.bind(l.sock, &Addr{Port: PortAny}) }},
		step{
			name: "getsockname",
			acquire: func() (err error) {
				l.local, err = api.getsockname(l.sock)
				return err
			},
		},
		step{
			name: "register",
			acquire: func() error {
				reg.local = l.local
				return api.setService(reg, serviceRegister)
			},
			release: func() error { return api.setService(reg, serviceDelete) },
		},
		step{name: "listen", acquire: func() error { return api.listen(l.sock, DefaultBacklog) }},
	)
	if err != nil {
		return nil, err
	}

	l.local.ServiceClass = desc.ClassID
	log.WithField("channel", l.local.Port).Infof("rfcomm service %s listening", desc.ClassID)
	return l, nil
}

// AcceptHandle blocks until a peer connects and returns the connected socket
// handle, which the caller owns. There is no timeout, closing the listener
// from another goroutine unblocks it with net.ErrClosed.
func (l *Listener) AcceptHandle() (Handle, *Addr, error) {
	if l.closed.Load() {
		return InvalidHandle, nil, net.ErrClosed
	}

	h, remote, err := l.api.accept(l.sock)
	if err != nil {
		if l.closed.Load() {
			return InvalidHandle, nil, net.ErrClosed
		}

		return InvalidHandle, nil, &net.OpError{Op: "accept", Net: Network, Addr: l.local, Err: err}
	} else if IsInvalid(h) {
		return InvalidHandle, nil, &net.OpError{Op: "accept", Net: Network, Addr: l.local, Err: fmt.Errorf("invalid connection handle")}
	}

	return h, remote, nil
}

func (l *Listener) Accept() (net.Conn, error) {
	h, remote, err := l.AcceptHandle()
	if err != nil {
		return nil, err
	}

	l.log.Debugf("accepted rfcomm connection from %s", remote)
	return newConn(l.api, h, l.local, remote), nil
}

// Close removes the service record, closes the listening socket and releases
// the socket subsystem, in this order. It is safe to call more than once.
func (l *Listener) Close() error {
	l.closeOnce.Do(func() {
		l.closed.Store(true)
		if err := l.seq.unwind(); err != nil {
			l.closeErr = fmt.Errorf("failed closing rfcomm listener: %w", err)
		}
	})

	return l.closeErr
}

func (l *Listener) Addr() net.Addr {
	return l.local
}
