package bluetooth

import (
	"errors"
	"fmt"

	hostctl "github.com/devgianlu/go-hostctl"
)

// SetupError is returned by Listen when one of the setup steps fails. Every
// step acquired before Step has already been released.
type SetupError struct {
	Step string
	Err  error
}

func (e *SetupError) Error() string {
	return fmt.Sprintf("failed bluetooth setup at %s: %v", e.Step, e.Err)
}

func (e *SetupError) Unwrap() error {
	return e.Err
}

func (e *SetupError) Is(target error) bool {
	return errors.Is(hostctl.ErrBluetoothInit, target)
}

type step struct {
	name    string
	acquire func() error
	release func() error
}

// sequence runs acquire functions in order and remembers the matching
// release functions so they can be undone in reverse order.
type sequence struct {
	log  hostctl.Logger
	done []step
}

func (s *sequence) run(steps ...step) error {
	for _, st := range steps {
		if err := st.acquire(); err != nil {
			if rerr := s.unwind(); rerr != nil {
				s.log.WithError(rerr).Warnf("failed releasing bluetooth resources after %s failure", st.name)
			}

			return &SetupError{Step: st.name, Err: err}
		}

		s.log.Tracef("bluetooth setup step %s done", st.name)
		s.done = append(s.done, st)
	}

	return nil
}

func (s *sequence) unwind() error {
	var errs []error
	for i := len(s.done) - 1; i >= 0; i-- {
		st := s.done[i]
		if st.release == nil {
			continue
		}

		if err := st.release(); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", st.name, err))
		}
	}

	s.done = nil
	return errors.Join(errs...)
}
