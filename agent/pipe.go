package agent

import "fmt"

// PipePrefix is the common prefix of the per-session agent pipes.
const PipePrefix = `\\.\pipe\hostctl.agent.v1.`

// PipeName is the pipe the agent of the given session listens on.
func PipeName(session uint32) string {
	return fmt.Sprintf("%s%d", PipePrefix, session)
}

// pipeSecurity grants SYSTEM and the agent's own user full access.
func pipeSecurity(userSID string) string {
	return fmt.Sprintf("D:P(A;;GA;;;SY)(A;;GA;;;%s)", userSID)
}
