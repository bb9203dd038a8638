package agent

import (
	"context"
	"errors"
	"fmt"
	"net"
	"sync"
	"time"

	hostctl "github.com/devgianlu/go-hostctl"
)

const requestTimeout = 10 * time.Second

type Handler interface {
	HandleCommand(ctx context.Context, cmd Command) Response
}

type HandlerFunc func(ctx context.Context, cmd Command) Response

func (f HandlerFunc) HandleCommand(ctx context.Context, cmd Command) Response {
	return f(ctx, cmd)
}

// Locker is what the agent needs from the host controller.
type Locker interface {
	Lock() error
	IsSessionLocked() (bool, error)
}

// NewLockHandler serves the commands with the given locker.
func NewLockHandler(log hostctl.Logger, locker Locker) Handler {
	return HandlerFunc(func(_ context.Context, cmd Command) Response {
		switch cmd {
		case CommandPing:
			return Response{Code: hostctl.CodeSuccess}
		case CommandLock:
			if err := locker.Lock(); err != nil {
				log.WithError(err).Error("failed locking session")
				return Response{Code: codeOf(err)}
			}

			log.Info("session locked")
			return Response{Code: hostctl.CodeSuccess}
		case CommandSessionLocked:
			locked, err := locker.IsSessionLocked()
			if err != nil {
				log.WithError(err).Error("failed querying session lock state")
				return Response{Code: codeOf(err)}
			}

			return Response{Code: hostctl.CodeSuccess, Locked: locked}
		default:
			return Response{Code: hostctl.CodeParameterError}
		}
	})
}

// OS errors outside the taxonomy are reported as internal failures.
func codeOf(err error) hostctl.Code {
	if code := hostctl.CodeOf(err); code != hostctl.CodeUnknown {
		return code
	}

	return hostctl.CodeInternal
}

// Serve accepts connections on l and answers one command per connection
// until ctx is cancelled or l is closed. The listener is closed on return.
func Serve(ctx context.Context, log hostctl.Logger, l net.Listener, h Handler) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	var wg sync.WaitGroup
	defer wg.Wait()

	go func() {
		<-ctx.Done()
		_ = l.Close()
	}()

	for {
		conn, err := l.Accept()
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, net.ErrClosed) {
				return nil
			}

			return fmt.Errorf("failed accepting agent connection: %w", err)
		}

		wg.Add(1)
		go func() {
			defer wg.Done()
			serveConn(ctx, log, conn, h)
		}()
	}
}

func serveConn(ctx context.Context, log hostctl.Logger, conn net.Conn, h Handler) {
	defer func() { _ = conn.Close() }()

	_ = conn.SetDeadline(time.Now().Add(requestTimeout))

	cmd, err := readCommand(conn)
	if err != nil {
		log.WithError(err).Debug("failed reading agent command")
		return
	}

	var resp Response
	if !cmd.valid() {
		log.Warnf("received unknown agent command %s", cmd)
		resp = Response{Code: hostctl.CodeParameterError}
	} else {
		log.Debugf("received agent command %s", cmd)
		resp = h.HandleCommand(ctx, cmd)
	}

	if err := writeResponse(conn, cmd, resp); err != nil {
		log.WithError(err).Warnf("failed writing response to %s", cmd)
	}
}
