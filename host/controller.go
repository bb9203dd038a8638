// Package host wraps the privileged one-shot operations of the local machine:
// shutdown, standby, workstation lock, session queries, process power
// throttling and credential verification.
package host

import (
	"fmt"
	"sync"

	hostctl "github.com/devgianlu/go-hostctl"
)

// Controller runs host operations. Power, lock and shutdown operations
// return the error reported by the OS unchanged, logon results are
// translated into the taxonomy of the root package.
type Controller struct {
	log hostctl.Logger
	sys system

	powerLock     sync.Mutex
	powerSaving   bool
	savedPriority uint32
}

func NewController(log hostctl.Logger) *Controller {
	return &Controller{log: log, sys: defaultSystem}
}

// Shutdown asks the OS to log off, shut down or reboot according to flags.
// It returns as soon as the request is accepted, the shutdown itself
// happens asynchronously and may still be aborted.
func (c *Controller) Shutdown(p *Privilege, flags ShutdownFlags) error {
	if err := requirePrivilege(p, ShutdownPrivilege); err != nil {
		return err
	}

	if err := c.sys.exitWindows(flags, shutdownReason); err != nil {
		c.log.WithError(err).Errorf("failed requesting shutdown with flags %#x", uint32(flags))
		return err
	}

	c.log.Infof("shutdown requested with flags %#x", uint32(flags))
	return nil
}

// ShutdownWithType is Shutdown for one of the named flag combinations.
func (c *Controller) ShutdownWithType(p *Privilege, t ShutdownType) error {
	flags, err := t.Flags()
	if err != nil {
		return fmt.Errorf("%w: %w", hostctl.ErrParameter, err)
	}

	return c.Shutdown(p, flags)
}

// Standby suspends the machine, without hibernating and without asking
// applications for permission.
func (c *Controller) Standby(p *Privilege) error {
	if err := requirePrivilege(p, ShutdownPrivilege); err != nil {
		return err
	}

	if err := c.sys.suspend(); err != nil {
		c.log.WithError(err).Error("failed requesting standby")
		return err
	}

	return nil
}

func (c *Controller) Lock() error {
	if err := c.sys.lockWorkStation(); err != nil {
		c.log.WithError(err).Error("failed locking workstation")
		return err
	}

	return nil
}

// IsRemoteSession reports whether the calling process runs in a remote
// desktop session.
func (c *Controller) IsRemoteSession() bool {
	return c.sys.remoteSession()
}

// IsSessionLocked reports whether the session of the calling process is
// locked.
func (c *Controller) IsSessionLocked() (bool, error) {
	return c.sys.sessionLocked()
}

// SetPowerSavingMode turns execution speed throttling of the current process
// on or off. Enabling also drops the process to the idle priority class,
// disabling restores the class the process had before.
func (c *Controller) SetPowerSavingMode(enable bool) error {
	c.powerLock.Lock()
	defer c.powerLock.Unlock()

	if enable {
		return c.enablePowerSaving()
	}

	return c.disablePowerSaving()
}

func (c *Controller) enablePowerSaving() error {
	if !c.powerSaving {
		class, err := c.sys.priorityClass()
		if err != nil {
			return fmt.Errorf("failed reading priority class: %w", err)
		}

		c.savedPriority = class
	}

	if err := c.sys.setPriorityClass(idlePriorityClass); err != nil {
		return fmt.Errorf("failed setting idle priority class: %w", err)
	}

	if err := c.sys.setPowerThrottling(true); err != nil {
		if rerr := c.sys.setPriorityClass(c.savedPriority); rerr != nil {
			c.log.WithError(rerr).Warn("failed restoring priority class")
		}

		return fmt.Errorf("failed enabling power throttling: %w", err)
	}

	c.powerSaving = true
	c.log.Infof("power saving mode enabled")
	return nil
}

func (c *Controller) disablePowerSaving() error {
	class := uint32(normalPriorityClass)
	if c.powerSaving {
		class = c.savedPriority
	}

	if err := c.sys.setPriorityClass(class); err != nil {
		return fmt.Errorf("failed restoring priority class: %w", err)
	}

	if err := c.sys.setPowerThrottling(false); err != nil {
		return fmt.Errorf("failed disabling power throttling: %w", err)
	}

	c.powerSaving = false
	c.log.Infof("power saving mode disabled")
	return nil
}

// PowerSaving reports whether SetPowerSavingMode(true) is in effect.
func (c *Controller) PowerSaving() bool {
	c.powerLock.Lock()
	defer c.powerLock.Unlock()
	return c.powerSaving
}
