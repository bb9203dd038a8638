//go:build !windows

package agent

import (
	"context"
	"net"

	hostctl "github.com/devgianlu/go-hostctl"
)

var ErrUnsupported = &hostctl.Error{Code: hostctl.CodeUnsupportedOS, Msg: "named pipes are not supported on this platform"}

func Listen() (net.Listener, error) {
	return nil, ErrUnsupported
}

func Dial(context.Context) (net.Conn, error) {
	return nil, ErrUnsupported
}
