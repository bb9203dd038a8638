package host

import (
	"errors"
	"fmt"
	"sync"

	"github.com/devgianlu/go-hostctl/wstr"
)

const (
	ShutdownPrivilege = "SeShutdownPrivilege"
	TcbPrivilege      = "SeTcbPrivilege"
)

var ErrPrivilegeNotHeld = errors.New("privilege not held")

// Privilege is an enabled privilege of the process token. Operations that
// need it take it as an argument, Release restores the token to the state
// it had before the privilege was acquired.
type Privilege struct {
	name string

	mu      sync.Mutex
	restore func() error
}

func (p *Privilege) Name() string {
	return p.name
}

func (p *Privilege) Held() bool {
	if p == nil {
		return false
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	return p.restore != nil
}

// Release gives the privilege back. Calling it more than once is a no-op.
func (p *Privilege) Release() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.restore == nil {
		return nil
	}

	restore := p.restore
	p.restore = nil

	if err := restore(); err != nil {
		return fmt.Errorf("failed releasing %s: %w", p.name, err)
	}

	return nil
}

// AcquirePrivilege enables the named privilege on the process token.
func (c *Controller) AcquirePrivilege(name string) (*Privilege, error) {
	nameW, err := wstr.Encode(name, 0)
	if err != nil {
		return nil, fmt.Errorf("invalid privilege name: %w", err)
	}

	restore, err := c.sys.enablePrivilege(nameW)
	if err != nil {
		c.log.WithError(err).Errorf("failed acquiring %s", name)
		return nil, err
	}

	c.log.Debugf("acquired %s", name)
	return &Privilege{name: name, restore: restore}, nil
}

func (c *Controller) AcquireShutdownPrivilege() (*Privilege, error) {
	return c.AcquirePrivilege(ShutdownPrivilege)
}

func requirePrivilege(p *Privilege, name string) error {
	if !p.Held() || p.name != name {
		return fmt.Errorf("%w: %s", ErrPrivilegeNotHeld, name)
	}

	return nil
}
