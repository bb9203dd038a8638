package go_hostctl

import "runtime"

// IsSupportedPlatform reports whether the host bindings are backed by a real
// implementation on this build. Everywhere else they fail with
// ErrUnsupportedOS.
func IsSupportedPlatform() bool {
	return runtime.GOOS == "windows"
}
