// Package agent forwards session-bound requests from the privileged daemon
// to a helper process running inside the interactive user session.
//
// A request is a single Command byte. The response is the little-endian
// int32 status code of the request followed, for CommandSessionLocked only,
// by one byte holding the lock state.
package agent

import (
	"encoding/binary"
	"fmt"
	"io"

	hostctl "github.com/devgianlu/go-hostctl"
)

type Command byte

const (
	CommandLock          Command = 0x01
	CommandPing          Command = 0x02
	CommandSessionLocked Command = 0x03
)

func (c Command) String() string {
	switch c {
	case CommandLock:
		return "lock"
	case CommandPing:
		return "ping"
	case CommandSessionLocked:
		return "session_locked"
	default:
		return fmt.Sprintf("unknown(%#x)", byte(c))
	}
}

func (c Command) valid() bool {
	return c >= CommandLock && c <= CommandSessionLocked
}

type Response struct {
	Code   hostctl.Code
	Locked bool
}

// Err returns the taxonomy error of the response, nil on success.
func (r Response) Err() error {
	if e := hostctl.ErrorByCode(r.Code); e != nil {
		return e
	}

	return nil
}

func writeCommand(w io.Writer, cmd Command) error {
	_, err := w.Write([]byte{byte(cmd)})
	return err
}

func readCommand(r io.Reader) (Command, error) {
	var buf [1]byte
	if _, err := io.ReadFull(r, buf[:]); err != nil {
		return 0, err
	}

	return Command(buf[0]), nil
}

func writeResponse(w io.Writer, cmd Command, resp Response) error {
	buf := make([]byte, 4, 5)
	binary.LittleEndian.PutUint32(buf, uint32(resp.Code))

	if cmd == CommandSessionLocked {
		var locked byte
		if resp.Locked {
			locked = 1
		}

		buf = append(buf, locked)
	}

	_, err := w.Write(buf)
	return err
}

func readResponse(r io.Reader, cmd Command) (Response, error) {
	var buf [4]byte
	if _, err := io.ReadFull(r, buf[:]); err != nil {
		return Response{}, fmt.Errorf("failed reading response code: %w", err)
	}

	resp := Response{Code: hostctl.Code(int32(binary.LittleEndian.Uint32(buf[:])))}

	if cmd == CommandSessionLocked && resp.Code == hostctl.CodeSuccess {
		if _, err := io.ReadFull(r, buf[:1]); err != nil {
			return Response{}, fmt.Errorf("failed reading lock state: %w", err)
		}

		resp.Locked = buf[0] != 0
	}

	return resp, nil
}
