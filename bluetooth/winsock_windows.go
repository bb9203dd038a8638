//go:build windows

package bluetooth

import (
	"encoding/binary"
	"errors"
	"runtime"
	"time"
	"unsafe"

	"github.com/devgianlu/go-hostctl/wstr"
	"github.com/google/uuid"
	"golang.org/x/sys/windows"
)

var (
	modws2_32 = windows.NewLazySystemDLL("ws2_32.dll")

	procBind           = modws2_32.NewProc("bind")
	procGetsockname    = modws2_32.NewProc("getsockname")
	procAccept         = modws2_32.NewProc("accept")
	procWSASetServiceW = modws2_32.NewProc("WSASetServiceW")
)

const (
	socketError = -1
	nsBTH       = 16
	winsock22   = 0x0202

	soRcvTimeo = 0x1006
	soSndTimeo = 0x1005

	wsaeTimedOut = windows.Errno(10060)
)

// socketAddress mirrors SOCKET_ADDRESS.
type socketAddress struct {
	sockaddr uintptr
	length   int32
}

// csAddrInfo mirrors CSADDR_INFO.
type csAddrInfo struct {
	local      socketAddress
	remote     socketAddress
	socketType int32
	protocol   int32
}

// wsaQuerySet mirrors WSAQUERYSETW.
type wsaQuerySet struct {
	size                uint32
	serviceInstanceName *uint16
	serviceClassId      *windows.GUID
	version             uintptr
	comment             *uint16
	nameSpace           uint32
	nsProviderId        *windows.GUID
	context             *uint16
	numberOfProtocols   uint32
	afpProtocols        uintptr
	queryString         *uint16
	numberOfCsAddrs     uint32
	csaBuffer           *csAddrInfo
	outputFlags         uint32
	blob                uintptr
}

var defaultAPI socketAPI = winsock{}

type winsock struct{}

func (winsock) startup() error {
	var data windows.WSAData
	return windows.WSAStartup(winsock22, &data)
}

func (winsock) cleanup() error {
	return windows.WSACleanup()
}

func (winsock) socket() (Handle, error) {
	h, err := windows.Socket(afBTH, windows.SOCK_STREAM, bthprotoRFCOMM)
	if err != nil {
		return InvalidHandle, err
	}

	return Handle(h), nil
}

func (winsock) bind(h Handle, addr *Addr) error {
	raw := addr.marshal()
	r1, _, e1 := procBind.Call(uintptr(h), uintptr(unsafe.Pointer(&raw[0])), uintptr(len(raw)))
	if int32(r1) == socketError {
		return e1
	}

	return nil
}

func (winsock) getsockname(h Handle) (*Addr, error) {
	var raw [sockaddrBthLen]byte
	n := int32(len(raw))
	r1, _, e1 := procGetsockname.Call(uintptr(h), uintptr(unsafe.Pointer(&raw[0])), uintptr(unsafe.Pointer(&n)))
	if int32(r1) == socketError {
		return nil, e1
	}

	return unmarshalAddr(raw[:n])
}

func (winsock) listen(h Handle, backlog int) error {
	return windows.Listen(windows.Handle(h), backlog)
}

func (winsock) accept(h Handle) (Handle, *Addr, error) {
	var raw [sockaddrBthLen]byte
	n := int32(len(raw))
	r1, _, e1 := procAccept.Call(uintptr(h), uintptr(unsafe.Pointer(&raw[0])), uintptr(unsafe.Pointer(&n)))
	if IsInvalid(Handle(r1)) {
		return InvalidHandle, nil, e1
	}

	remote, err := unmarshalAddr(raw[:n])
	if err != nil {
		// the peer address is informative only
		remote = &Addr{}
	}

	return Handle(r1), remote, nil
}

func (winsock) closesocket(h Handle) error {
	return windows.Closesocket(windows.Handle(h))
}

func toGUID(u uuid.UUID) windows.GUID {
	b := guidBytes(u)

	var g windows.GUID
	g.Data1 = binary.LittleEndian.Uint32(b[0:4])
	g.Data2 = binary.LittleEndian.Uint16(b[4:6])
	g.Data3 = binary.LittleEndian.Uint16(b[6:8])
	copy(g.Data4[:], b[8:])
	return g
}

func (winsock) setService(reg *registration, op serviceOp) error {
	if reg.local == nil {
		return errors.New("service registration without a bound address")
	}

	raw := reg.local.marshal()
	sa := socketAddress{sockaddr: uintptr(unsafe.Pointer(&raw[0])), length: int32(len(raw))}
	addr := csAddrInfo{
		local:      sa,
		remote:     sa,
		socketType: windows.SOCK_STREAM,
		protocol:   bthprotoRFCOMM,
	}

	classID := toGUID(reg.classID)
	qs := wsaQuerySet{
		serviceInstanceName: wstr.Ptr(reg.name),
		serviceClassId:      &classID,
		comment:             wstr.Ptr(reg.comment),
		nameSpace:           nsBTH,
		numberOfCsAddrs:     1,
		csaBuffer:           &addr,
	}
	qs.size = uint32(unsafe.Sizeof(qs))

	r1, _, e1 := procWSASetServiceW.Call(uintptr(unsafe.Pointer(&qs)), uintptr(op), 0)
	runtime.KeepAlive(&raw)
	runtime.KeepAlive(reg)
	if int32(r1) == socketError {
		return e1
	}

	return nil
}

func (winsock) recv(h Handle, b []byte) (int, error) {
	buf := windows.WSABuf{Len: uint32(len(b)), Buf: &b[0]}

	var done, flags uint32
	if err := windows.WSARecv(windows.Handle(h), &buf, 1, &done, &flags, nil, nil); err != nil {
		return 0, err
	}

	return int(done), nil
}

func (winsock) send(h Handle, b []byte) (int, error) {
	buf := windows.WSABuf{Len: uint32(len(b)), Buf: &b[0]}

	var done uint32
	if err := windows.WSASend(windows.Handle(h), &buf, 1, &done, 0, nil, nil); err != nil {
		return 0, err
	}

	return int(done), nil
}

func (winsock) setTimeout(h Handle, kind timeoutKind, d time.Duration) error {
	opt := soRcvTimeo
	if kind == timeoutSend {
		opt = soSndTimeo
	}

	return windows.SetsockoptInt(windows.Handle(h), windows.SOL_SOCKET, opt, int(d/time.Millisecond))
}

func (winsock) isTimeout(err error) bool {
	return errors.Is(err, wsaeTimedOut)
}
