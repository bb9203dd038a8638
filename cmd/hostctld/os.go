package main

import (
	"errors"
	"os"
	"path/filepath"
	"runtime"
)

// UserStateDir returns the default root directory for user-specific state
// data: $XDG_STATE_HOME or $HOME/.local/state on Unix, os.UserConfigDir
// elsewhere.
func UserStateDir() (string, error) {
	var dir string

	switch runtime.GOOS {
	case "windows", "darwin", "ios", "plan9":
		return os.UserConfigDir()
	default:
		dir = os.Getenv("XDG_STATE_HOME")
		if dir == "" {
			dir = os.Getenv("HOME")
			if dir == "" {
				return "", errors.New("neither $XDG_STATE_HOME nor $HOME are defined")
			}
			dir += "/.local/state"
		}
	}

	return dir, nil
}

// defaultConfigDir is where the daemon keeps its configuration and lock
// file when no directory is given.
func defaultConfigDir() string {
	if runtime.GOOS == "windows" {
		// services run as SYSTEM, whose profile is not a sensible place
		if dir := os.Getenv("ProgramData"); dir != "" {
			return filepath.Join(dir, "hostctl")
		}
	}

	dir, err := UserStateDir()
	if err != nil {
		return "."
	}

	return filepath.Join(dir, "hostctl")
}
