package host

import hostctl "github.com/devgianlu/go-hostctl"

// ErrUnsupported is returned by every operation on platforms without the
// host APIs. It matches hostctl.ErrUnsupportedOS.
var ErrUnsupported = &hostctl.Error{Code: hostctl.CodeUnsupportedOS, Msg: "host control is not supported on this platform"}
