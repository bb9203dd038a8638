package bluetooth

import "time"

type serviceOp uint32

const (
	serviceRegister serviceOp = 0 // RNRSERVICE_REGISTER
	serviceDelete   serviceOp = 2 // RNRSERVICE_DELETE
)

type timeoutKind int

const (
	timeoutRecv timeoutKind = iota
	timeoutSend
)

// socketAPI is the subset of the host socket interface the listener needs.
type socketAPI interface {
	startup() error
	cleanup() error

	socket() (Handle, error)
	bind(h Handle, addr *Addr) error
	getsockname(h Handle) (*Addr, error)
	listen(h Handle, backlog int) error
	accept(h Handle) (Handle, *Addr, error)
	closesocket(h Handle) error

	setService(reg *registration, op serviceOp) error

	recv(h Handle, b []byte) (int, error)
	send(h Handle, b []byte) (int, error)
	setTimeout(h Handle, kind timeoutKind, d time.Duration) error
	isTimeout(err error) bool
}
