package go_hostctl

import (
	"fmt"
	"runtime"
)

var version = "dev"

func VersionNumberString() string {
	return version
}

func VersionString() string {
	return fmt.Sprintf("go-hostctl %s", VersionNumberString())
}

func SystemInfoString() string {
	return fmt.Sprintf("%s; %s/%s; Go %s", VersionString(), runtime.GOOS, runtime.GOARCH, runtime.Version())
}
