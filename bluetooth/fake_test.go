package bluetooth

import (
	"errors"
	"fmt"
	"sync"
	"time"
)

var errFakeClosed = errors.New("socket closed")
var errFakeTimeout = errors.New("timed out")

// fakeAPI is an in-memory socket stack recording every call it receives.
type fakeAPI struct {
	mu sync.Mutex

	calls   []string
	failOn  string
	next    Handle
	open    map[Handle]bool
	started int

	registered map[string]*registration

	incoming chan Handle
	closing  map[Handle]chan struct{}

	data     map[Handle][]byte
	sent     map[Handle][]byte
	timeouts map[Handle][2]time.Duration
}

func newFakeAPI() *fakeAPI {
	return &fakeAPI{
		next:       100,
		open:       make(map[Handle]bool),
		registered: make(map[string]*registration),
		incoming:   make(chan Handle, 4),
		closing:    make(map[Handle]chan struct{}),
		data:       make(map[Handle][]byte),
		sent:       make(map[Handle][]byte),
		timeouts:   make(map[Handle][2]time.Duration),
	}
}

func (f *fakeAPI) record(call string) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.calls = append(f.calls, call)
	if call == f.failOn {
		return fmt.Errorf("%s failed", call)
	}
	return nil
}

func (f *fakeAPI) Calls() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.calls...)
}

func (f *fakeAPI) OpenHandles() int {
	f.mu.Lock()
	defer f.mu.Unlock()

	var n int
	for _, open := range f.open {
		if open {
			n++
		}
	}
	return n
}

func (f *fakeAPI) newHandle() Handle {
	f.mu.Lock()
	defer f.mu.Unlock()

	h := f.next
	f.next++
	f.open[h] = true
	f.closing[h] = make(chan struct{})
	return h
}

func (f *fakeAPI) startup() error {
	if err := f.record("startup"); err != nil {
		return err
	}

	f.mu.Lock()
	f.started++
	f.mu.Unlock()
	return nil
}

func (f *fakeAPI) cleanup() error {
	_ = f.record("cleanup")

	f.mu.Lock()
	f.started--
	f.mu.Unlock()
	return nil
}

func (f *fakeAPI) socket() (Handle, error) {
	if err := f.record("socket"); err != nil {
		return InvalidHandle, err
	}

	return f.newHandle(), nil
}

func (f *fakeAPI) bind(h Handle, addr *Addr) error {
	if addr.Port != PortAny {
		return fmt.Errorf("unexpected port %d", addr.Port)
	}
	return f.record("bind")
}

func (f *fakeAPI) getsockname(Handle) (*Addr, error) {
	if err := f.record("getsockname"); err != nil {
		return nil, err
	}

	return &Addr{Device: 0x001122334455, Port: 5}, nil
}

func (f *fakeAPI) listen(_ Handle, backlog int) error {
	if backlog != DefaultBacklog {
		return fmt.Errorf("unexpected backlog %d", backlog)
	}
	return f.record("listen")
}

func (f *fakeAPI) accept(h Handle) (Handle, *Addr, error) {
	f.mu.Lock()
	closing := f.closing[h]
	f.mu.Unlock()

	select {
	case <-closing:
		return InvalidHandle, nil, errFakeClosed
	case peer := <-f.incoming:
		f.mu.Lock()
		f.open[peer] = true
		if f.closing[peer] == nil {
			f.closing[peer] = make(chan struct{})
		}
		f.mu.Unlock()

		return peer, &Addr{Device: 0xAABBCCDDEEFF, Port: 5}, nil
	}
}

func (f *fakeAPI) closesocket(h Handle) error {
	_ = f.record("closesocket")

	f.mu.Lock()
	defer f.mu.Unlock()

	if !f.open[h] {
		return errFakeClosed
	}

	f.open[h] = false
	close(f.closing[h])
	return nil
}

func (f *fakeAPI) setService(reg *registration, op serviceOp) error {
	switch op {
	case serviceRegister:
		if err := f.record("register"); err != nil {
			return err
		}

		f.mu.Lock()
		f.registered[reg.classID.String()] = reg
		f.mu.Unlock()
	case serviceDelete:
		_ = f.record("deregister")

		f.mu.Lock()
		delete(f.registered, reg.classID.String())
		f.mu.Unlock()
	}

	return nil
}

func (f *fakeAPI) recv(h Handle, b []byte) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.timeouts[h][0] == time.Millisecond && len(f.data[h]) == 0 {
		return 0, errFakeTimeout
	}

	n := copy(b, f.data[h])
	f.data[h] = f.data[h][n:]
	return n, nil
}

func (f *fakeAPI) send(h Handle, b []byte) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	// accept at most 3 bytes per call to exercise partial writes
	n := min(len(b), 3)
	f.sent[h] = append(f.sent[h], b[:n]...)
	return n, nil
}

func (f *fakeAPI) setTimeout(h Handle, kind timeoutKind, d time.Duration) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	t := f.timeouts[h]
	t[kind] = d
	f.timeouts[h] = t
	return nil
}

func (f *fakeAPI) isTimeout(err error) bool {
	return errors.Is(err, errFakeTimeout)
}
