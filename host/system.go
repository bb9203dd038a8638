package host

// system is the set of host primitives the Controller is built on. Errors
// are returned exactly as the OS reported them.
type system interface {
	// enablePrivilege enables the named privilege on the process token and
	// returns a function restoring the previous token state.
	enablePrivilege(name []uint16) (restore func() error, err error)

	exitWindows(flags ShutdownFlags, reason uint32) error
	suspend() error
	lockWorkStation() error

	remoteSession() bool
	sessionLocked() (bool, error)

	priorityClass() (uint32, error)
	setPriorityClass(class uint32) error
	setPowerThrottling(enable bool) error

	// logonUser verifies the credentials and returns a function releasing
	// the obtained token.
	logonUser(username, domain, password []uint16) (closeToken func() error, err error)
	enumerateUsers() ([]UserInfo, error)
}

const (
	normalPriorityClass = 0x00000020
	idlePriorityClass   = 0x00000040
)

// UserInfo describes a local account.
type UserInfo struct {
	Username  string
	FullName  string
	Comment   string
	Privilege uint32
	Flags     uint32
	LastLogon uint32
}
