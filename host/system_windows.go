//go:build windows

package host

import (
	"fmt"
	"unsafe"

	"github.com/devgianlu/go-hostctl/wstr"
	"golang.org/x/sys/windows"
)

var (
	modadvapi32 = windows.NewLazySystemDLL("advapi32.dll")
	modkernel32 = windows.NewLazySystemDLL("kernel32.dll")
	modnetapi32 = windows.NewLazySystemDLL("netapi32.dll")
	modpowrprof = windows.NewLazySystemDLL("powrprof.dll")
	moduser32   = windows.NewLazySystemDLL("user32.dll")
	modwtsapi32 = windows.NewLazySystemDLL("wtsapi32.dll")

	procAdjustTokenPrivileges       = modadvapi32.NewProc("AdjustTokenPrivileges")
	procLogonUserW                  = modadvapi32.NewProc("LogonUserW")
	procGetPriorityClass            = modkernel32.NewProc("GetPriorityClass")
	procSetPriorityClass            = modkernel32.NewProc("SetPriorityClass")
	procSetProcessInformation       = modkernel32.NewProc("SetProcessInformation")
	procNetUserEnum                 = modnetapi32.NewProc("NetUserEnum")
	procSetSuspendState             = modpowrprof.NewProc("SetSuspendState")
	procLockWorkStation             = moduser32.NewProc("LockWorkStation")
	procGetSystemMetrics            = moduser32.NewProc("GetSystemMetrics")
	procWTSQuerySessionInformationW = modwtsapi32.NewProc("WTSQuerySessionInformationW")
)

const (
	smRemoteSession = 0x1000

	wtsCurrentServerHandle = 0
	wtsCurrentSession      = 0xFFFFFFFF
	wtsSessionInfoEx       = 25

	wtsSessionStateLock   = 0
	wtsSessionStateUnlock = 1

	processPowerThrottling             = 4
	processPowerThrottlingCurrentVer   = 1
	processPowerThrottlingExecuteSpeed = 0x1

	logon32LogonInteractive = 2
	logon32ProviderDefault  = 0

	filterNormalAccount = 0x0002
	maxPreferredLength  = 0xFFFFFFFF
	nerrSuccess         = 0
	errorMoreData       = windows.Errno(234)
)

var defaultSystem system = winsys{}

type winsys struct{}

func adjustTokenPrivileges(token windows.Token, newState *windows.Tokenprivileges, prevState *windows.Tokenprivileges) error {
	var size, retLen uint32
	if prevState != nil {
		size = uint32(unsafe.Sizeof(*prevState))
	}

	r1, _, e1 := procAdjustTokenPrivileges.Call(
		uintptr(token),
		0,
		uintptr(unsafe.Pointer(newState)),
		uintptr(size),
		uintptr(unsafe.Pointer(prevState)),
		uintptr(unsafe.Pointer(&retLen)),
	)
	if r1 == 0 {
		return e1
	}

	// success does not mean every privilege was assigned
	if e1 == windows.ERROR_NOT_ALL_ASSIGNED {
		return windows.ERROR_NOT_ALL_ASSIGNED
	}

	return nil
}

func openProcessToken() (windows.Token, error) {
	var token windows.Token
	if err := windows.OpenProcessToken(windows.CurrentProcess(), windows.TOKEN_ADJUST_PRIVILEGES|windows.TOKEN_QUERY, &token); err != nil {
		return 0, err
	}

	return token, nil
}

func (winsys) enablePrivilege(name []uint16) (func() error, error) {
	var luid windows.LUID
	if err := windows.LookupPrivilegeValue(nil, wstr.Ptr(name), &luid); err != nil {
		return nil, err
	}

	token, err := openProcessToken()
	if err != nil {
		return nil, err
	}
	defer token.Close()

	newState := windows.Tokenprivileges{PrivilegeCount: 1}
	newState.Privileges[0] = windows.LUIDAndAttributes{Luid: luid, Attributes: windows.SE_PRIVILEGE_ENABLED}

	var prevState windows.Tokenprivileges
	if err := adjustTokenPrivileges(token, &newState, &prevState); err != nil {
		return nil, err
	}

	return func() error {
		token, err := openProcessToken()
		if err != nil {
			return err
		}
		defer token.Close()

		// an empty previous state means the privilege was already enabled
		if prevState.PrivilegeCount == 0 {
			return nil
		}

		return adjustTokenPrivileges(token, &prevState, nil)
	}, nil
}

func (winsys) exitWindows(flags ShutdownFlags, reason uint32) error {
	return windows.ExitWindowsEx(uint32(flags), reason)
}

func (winsys) suspend() error {
	// no hibernation, forced, wake events stay enabled
	r1, _, e1 := procSetSuspendState.Call(0, 1, 0)
	if r1 == 0 {
		return e1
	}

	return nil
}

func (winsys) lockWorkStation() error {
	r1, _, e1 := procLockWorkStation.Call()
	if r1 == 0 {
		return e1
	}

	return nil
}

func (winsys) remoteSession() bool {
	r1, _, _ := procGetSystemMetrics.Call(smRemoteSession)
	return r1 != 0
}

func (winsys) sessionLocked() (bool, error) {
	var buf uintptr
	var size uint32
	r1, _, e1 := procWTSQuerySessionInformationW.Call(
		wtsCurrentServerHandle,
		wtsCurrentSession,
		wtsSessionInfoEx,
		uintptr(unsafe.Pointer(&buf)),
		uintptr(unsafe.Pointer(&size)),
	)
	if r1 == 0 {
		return false, e1
	}
	defer windows.WTSFreeMemory(buf)

	// WTSINFOEXW: Level at 0, Data.WTSInfoExLevel1.SessionFlags at 16
	if size < 20 {
		return false, fmt.Errorf("short session info: %d bytes", size)
	}

	level := *(*uint32)(unsafe.Pointer(buf))
	if level != 1 {
		return false, fmt.Errorf("unexpected session info level %d", level)
	}

	flags := *(*int32)(unsafe.Add(unsafe.Pointer(buf), 16))

	// Windows 7 and Server 2008 R2 report the two states swapped
	ver := windows.RtlGetVersion()
	swapped := ver.MajorVersion == 6 && ver.MinorVersion == 1

	switch flags {
	case wtsSessionStateLock:
		return !swapped, nil
	case wtsSessionStateUnlock:
		return swapped, nil
	default:
		return false, fmt.Errorf("unknown session state %d", flags)
	}
}

func (winsys) priorityClass() (uint32, error) {
	r1, _, e1 := procGetPriorityClass.Call(uintptr(windows.CurrentProcess()))
	if r1 == 0 {
		return 0, e1
	}

	return uint32(r1), nil
}

func (winsys) setPriorityClass(class uint32) error {
	r1, _, e1 := procSetPriorityClass.Call(uintptr(windows.CurrentProcess()), uintptr(class))
	if r1 == 0 {
		return e1
	}

	return nil
}

type processPowerThrottlingState struct {
	version     uint32
	controlMask uint32
	stateMask   uint32
}

// powerThrottlingState opts into execution speed throttling, or clears the
// control mask so the system manages throttling again.
func powerThrottlingState(enable bool) processPowerThrottlingState {
	state := processPowerThrottlingState{version: processPowerThrottlingCurrentVer}
	if enable {
		state.controlMask = processPowerThrottlingExecuteSpeed
		state.stateMask = processPowerThrottlingExecuteSpeed
	}

	return state
}

func (winsys) setPowerThrottling(enable bool) error {
	state := powerThrottlingState(enable)

	r1, _, e1 := procSetProcessInformation.Call(
		uintptr(windows.CurrentProcess()),
		processPowerThrottling,
		uintptr(unsafe.Pointer(&state)),
		unsafe.Sizeof(state),
	)
	if r1 == 0 {
		return e1
	}

	return nil
}

func (winsys) logonUser(username, domain, password []uint16) (func() error, error) {
	var token windows.Token
	r1, _, e1 := procLogonUserW.Call(
		uintptr(unsafe.Pointer(wstr.Ptr(username))),
		uintptr(unsafe.Pointer(wstr.Ptr(domain))),
		uintptr(unsafe.Pointer(wstr.Ptr(password))),
		logon32LogonInteractive,
		logon32ProviderDefault,
		uintptr(unsafe.Pointer(&token)),
	)
	if r1 == 0 {
		return nil, e1
	}

	return token.Close, nil
}

// userInfo2 mirrors USER_INFO_2.
type userInfo2 struct {
	name         *uint16
	password     *uint16
	passwordAge  uint32
	priv         uint32
	homeDir      *uint16
	comment      *uint16
	flags        uint32
	scriptPath   *uint16
	authFlags    uint32
	fullName     *uint16
	usrComment   *uint16
	parms        *uint16
	workstations *uint16
	lastLogon    uint32
	lastLogoff   uint32
	acctExpires  uint32
	maxStorage   uint32
	unitsPerWeek uint32
	logonHours   *byte
	badPwCount   uint32
	numLogons    uint32
	logonServer  *uint16
	countryCode  uint32
	codePage     uint32
}

func (winsys) enumerateUsers() ([]UserInfo, error) {
	var users []UserInfo
	var resume uint32

	for {
		var buf *byte
		var read, total uint32
		r1, _, _ := procNetUserEnum.Call(
			0,
			2,
			filterNormalAccount,
			uintptr(unsafe.Pointer(&buf)),
			maxPreferredLength,
			uintptr(unsafe.Pointer(&read)),
			uintptr(unsafe.Pointer(&total)),
			uintptr(unsafe.Pointer(&resume)),
		)

		status := windows.Errno(r1)
		if status != nerrSuccess && status != errorMoreData {
			return nil, status
		}

		if buf != nil {
			entries := unsafe.Slice((*userInfo2)(unsafe.Pointer(buf)), read)
			for _, e := range entries {
				users = append(users, UserInfo{
					Username:  wstr.DecodePtr(e.name),
					FullName:  wstr.DecodePtr(e.fullName),
					Comment:   wstr.DecodePtr(e.comment),
					Privilege: e.priv,
					Flags:     e.flags,
					LastLogon: e.lastLogon,
				})
			}

			_ = windows.NetApiBufferFree(buf)
		}

		if status != errorMoreData {
			return users, nil
		}
	}
}
