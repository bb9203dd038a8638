//go:build windows

package agent

import (
	"context"
	"errors"
	"fmt"
	"net"

	"github.com/Microsoft/go-winio"
	"golang.org/x/sys/windows"
)

const noActiveSession = 0xFFFFFFFF

var errNoConsoleSession = errors.New("no active console session")

// Listen creates the pipe of the current session, accessible only to SYSTEM
// and the user running the agent.
func Listen() (net.Listener, error) {
	var session uint32
	if err := windows.ProcessIdToSessionId(windows.GetCurrentProcessId(), &session); err != nil {
		return nil, fmt.Errorf("failed resolving session id: %w", err)
	}

	user, err := windows.GetCurrentProcessToken().GetTokenUser()
	if err != nil {
		return nil, fmt.Errorf("failed resolving agent user: %w", err)
	}

	return winio.ListenPipe(PipeName(session), &winio.PipeConfig{
		SecurityDescriptor: pipeSecurity(user.User.Sid.String()),
		InputBufferSize:    512,
		OutputBufferSize:   512,
	})
}

// Dial connects to the agent of the active console session.
func Dial(ctx context.Context) (net.Conn, error) {
	session := windows.WTSGetActiveConsoleSessionId()
	if session == noActiveSession {
		return nil, errNoConsoleSession
	}

	return winio.DialPipeContext(ctx, PipeName(session))
}
