//go:build !windows

package host

var defaultSystem system = unsupported{}

type unsupported struct{}

func (unsupported) enablePrivilege([]uint16) (func() error, error) { return nil, ErrUnsupported }
func (unsupported) exitWindows(ShutdownFlags, uint32) error          { return ErrUnsupported }
func (unsupported) suspend() error                                   { return ErrUnsupported }
func (unsupported) lockWorkStation() error                           { return ErrUnsupported }
func (unsupported) remoteSession() bool                              { return false }
func (unsupported) sessionLocked() (bool, error)                     { return false, ErrUnsupported }
func (unsupported) priorityClass() (uint32, error)                   { return 0, ErrUnsupported }
func (unsupported) setPriorityClass(uint32) error                    { return ErrUnsupported }
func (unsupported) setPowerThrottling(bool) error                    { return ErrUnsupported }
func (unsupported) enumerateUsers() ([]UserInfo, error)              { return nil, ErrUnsupported }

func (unsupported) logonUser(_, _, _ []uint16) (func() error, error) {
	return nil, ErrUnsupported
}
