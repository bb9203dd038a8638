//go:build !windows

package main

import hostctl "github.com/devgianlu/go-hostctl"

func installService(*Config) error {
	return hostctl.ErrUnsupportedOS
}

func uninstallService() error {
	return hostctl.ErrUnsupportedOS
}

func runService(*App) error {
	return hostctl.ErrUnsupportedOS
}
