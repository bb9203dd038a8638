package bluetooth

// Handle is an OS socket handle.
type Handle uintptr

// InvalidHandle is the sentinel the OS uses for a socket that could not be
// created or accepted (INVALID_SOCKET).
const InvalidHandle = ^Handle(0)

// IsInvalid reports whether h is the invalid-socket sentinel.
func IsInvalid(h Handle) bool {
	return h == InvalidHandle
}
