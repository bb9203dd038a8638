// Package zeroconf advertises the control API of the daemon on the local
// network so companion apps can find it without configuration.
package zeroconf

import (
	"errors"
	"fmt"
	"strconv"
	"sync"

	hostctl "github.com/devgianlu/go-hostctl"
)

const (
	ServiceType = "_hostctl._tcp"
	Domain      = "local."
)

// Info is what gets published about the daemon.
type Info struct {
	Name      string
	Port      int
	Version   string
	TLS       bool
	Bluetooth bool
	Sealed    bool
}

func (i Info) txt() []string {
	return []string{
		"version=" + i.Version,
		"tls=" + strconv.FormatBool(i.TLS),
		"bt=" + strconv.FormatBool(i.Bluetooth),
		"sealed=" + strconv.FormatBool(i.Sealed),
	}
}

type Advertiser struct {
	log hostctl.Logger
	reg ServiceRegistrar

	mu      sync.Mutex
	started bool
}

func NewAdvertiser(log hostctl.Logger, reg ServiceRegistrar) *Advertiser {
	return &Advertiser{log: log, reg: reg}
}

// Start publishes info. It fails if the advertiser is already running.
func (a *Advertiser) Start(info Info) error {
	if len(info.Name) == 0 {
		return errors.New("missing service name")
	} else if info.Port <= 0 || info.Port > 65535 {
		return fmt.Errorf("invalid service port %d", info.Port)
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	if a.started {
		return errors.New("advertiser already started")
	}

	if err := a.reg.Register(info.Name, ServiceType, Domain, info.Port, info.txt()); err != nil {
		return fmt.Errorf("failed registering %s: %w", ServiceType, err)
	}

	a.started = true
	a.log.Infof("advertising %s as %q on port %d", ServiceType, info.Name, info.Port)
	return nil
}

func (a *Advertiser) Close() {
	a.mu.Lock()
	defer a.mu.Unlock()

	if !a.started {
		return
	}

	a.reg.Shutdown()
	a.started = false
}
