package host

import (
	"sync"
	"syscall"

	"github.com/devgianlu/go-hostctl/wstr"
)

// fakeSystem records host calls and returns canned results.
type fakeSystem struct {
	mu sync.Mutex

	calls []string

	privileges map[string]bool
	privErr    error
	restoreErr error

	shutdownFlags ShutdownFlags
	shutdownErr   error
	suspendErr    error
	lockErr       error

	remote    bool
	locked    bool
	lockedErr error

	priority        uint32
	throttling      bool
	throttlingErr   error
	priorityHistory []uint32

	accounts     map[string]string
	users        []UserInfo
	usersErr     error
	logonErr     error
	lastLogin    [3]string
	lastPassword []uint16
	openTokens   int
}

func newFakeSystem() *fakeSystem {
	return &fakeSystem{
		privileges: make(map[string]bool),
		priority:   normalPriorityClass,
		accounts:   make(map[string]string),
	}
}

func (f *fakeSystem) record(call string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, call)
}

func (f *fakeSystem) enablePrivilege(name []uint16) (func() error, error) {
	f.record("enablePrivilege")
	if f.privErr != nil {
		return nil, f.privErr
	}

	n := wstr.Decode(name)
	f.privileges[n] = true
	return func() error {
		f.record("restorePrivilege")
		f.privileges[n] = false
		return f.restoreErr
	}, nil
}

func (f *fakeSystem) exitWindows(flags ShutdownFlags, reason uint32) error {
	f.record("exitWindows")
	f.shutdownFlags = flags
	return f.shutdownErr
}

func (f *fakeSystem) suspend() error {
	f.record("suspend")
	return f.suspendErr
}

func (f *fakeSystem) lockWorkStation() error {
	f.record("lockWorkStation")
	return f.lockErr
}

func (f *fakeSystem) remoteSession() bool {
	return f.remote
}

func (f *fakeSystem) sessionLocked() (bool, error) {
	return f.locked, f.lockedErr
}

func (f *fakeSystem) priorityClass() (uint32, error) {
	return f.priority, nil
}

func (f *fakeSystem) setPriorityClass(class uint32) error {
	f.priority = class
	f.priorityHistory = append(f.priorityHistory, class)
	return nil
}

func (f *fakeSystem) setPowerThrottling(enable bool) error {
	if f.throttlingErr != nil {
		return f.throttlingErr
	}

	f.throttling = enable
	return nil
}

func (f *fakeSystem) logonUser(username, domain, password []uint16) (func() error, error) {
	f.record("logonUser")
	f.lastLogin = [3]string{wstr.Decode(username), wstr.Decode(domain), wstr.Decode(password)}
	f.lastPassword = password

	if f.logonErr != nil {
		return nil, f.logonErr
	}

	if pass, ok := f.accounts[f.lastLogin[0]]; !ok || pass != f.lastLogin[2] {
		return nil, syscall.Errno(errorLogonFailure)
	}

	f.openTokens++
	return func() error {
		f.openTokens--
		return nil
	}, nil
}

func (f *fakeSystem) enumerateUsers() ([]UserInfo, error) {
	return f.users, f.usersErr
}
