//go:build !windows

package bluetooth

import "time"

var defaultAPI socketAPI = unsupported{}

type unsupported struct{}

func (unsupported) startup() error { return ErrUnsupported }
func (unsupported) cleanup() error { return nil }

func (unsupported) socket() (Handle, error) { return InvalidHandle, ErrUnsupported }
func (unsupported) bind(Handle, *Addr) error { return ErrUnsupported }
func (unsupported) getsockname(Handle) (*Addr, error) { return nil, ErrUnsupported }
func (unsupported) listen(Handle, int) error { return ErrUnsupported }
func (unsupported) accept(Handle) (Handle, *Addr, error) { return InvalidHandle, nil, ErrUnsupported }
func (unsupported) closesocket(Handle) error { return ErrUnsupported }
func (unsupported) setService(*registration, serviceOp) error { return ErrUnsupported }

func (unsupported) recv(Handle, []byte) (int, error) { return 0, ErrUnsupported }
func (unsupported) send(Handle, []byte) (int, error) { return 0, ErrUnsupported }
func (unsupported) setTimeout(Handle, timeoutKind, time.Duration) error { return ErrUnsupported }
func (unsupported) isTimeout(error) bool { return false }
