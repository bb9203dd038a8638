package bluetooth

import hostctl "github.com/devgianlu/go-hostctl"

// ErrUnsupported is returned on builds without a native RFCOMM socket stack.
// It matches hostctl.ErrUnsupportedOS.
var ErrUnsupported = &hostctl.Error{Code: hostctl.CodeUnsupportedOS, Msg: "rfcomm sockets are not supported on this platform"}
