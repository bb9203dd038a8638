package host

import (
	"fmt"
	"strings"

	"golang.org/x/exp/slices"
)

// ShutdownFlags is the flag mask handed to ExitWindowsEx.
type ShutdownFlags uint32

const (
	FlagLogoff         ShutdownFlags = 0x00000000
	FlagShutdown       ShutdownFlags = 0x00000001
	FlagReboot         ShutdownFlags = 0x00000002
	FlagForce          ShutdownFlags = 0x00000004
	FlagPoweroff       ShutdownFlags = 0x00000008
	FlagForceIfHung    ShutdownFlags = 0x00000010
	FlagRestartApps    ShutdownFlags = 0x00000040
	FlagHybridShutdown ShutdownFlags = 0x00400000
)

const (
	reasonMajorOther = 0x00000000
	reasonMinorOther = 0x00000000

	// reason recorded with every request
	shutdownReason = reasonMajorOther | reasonMinorOther
)

// ShutdownType names a commonly used combination of ShutdownFlags.
type ShutdownType string

const (
	ShutdownLogoff                 ShutdownType = "logoff"
	ShutdownForceShutdown          ShutdownType = "force_shutdown"
	ShutdownForceReboot            ShutdownType = "force_reboot"
	ShutdownShutdown               ShutdownType = "shutdown"
	ShutdownReboot                 ShutdownType = "reboot"
	ShutdownForce                  ShutdownType = "force"
	ShutdownPoweroff               ShutdownType = "poweroff"
	ShutdownRestartApps            ShutdownType = "restart_apps"
	ShutdownHybrid                 ShutdownType = "hybrid_shutdown"
	ShutdownForcePoweroff          ShutdownType = "force_poweroff"
	ShutdownRebootRestartApps      ShutdownType = "reboot_restart_apps"
	ShutdownForceRebootRestartApps ShutdownType = "force_reboot_restart_apps"
	ShutdownShutdownRestartApps    ShutdownType = "shutdown_restart_apps"
	ShutdownHybridForce            ShutdownType = "hybrid_shutdown_force"
	ShutdownHybridRestartApps      ShutdownType = "hybrid_shutdown_restart_apps"
	ShutdownHybridForceRestartApps ShutdownType = "hybrid_shutdown_force_restart_apps"
)

var shutdownTypeFlags = map[ShutdownType]ShutdownFlags{
	ShutdownLogoff:                 FlagLogoff,
	ShutdownForceShutdown:          FlagShutdown | FlagForce,
	ShutdownForceReboot:            FlagReboot | FlagForce,
	ShutdownShutdown:               FlagShutdown,
	ShutdownReboot:                 FlagReboot,
	ShutdownForce:                  FlagForce,
	ShutdownPoweroff:               FlagPoweroff,
	ShutdownRestartApps:            FlagRestartApps,
	ShutdownHybrid:                 FlagHybridShutdown,
	ShutdownForcePoweroff:          FlagPoweroff | FlagForce,
	ShutdownRebootRestartApps:      FlagReboot | FlagRestartApps,
	ShutdownForceRebootRestartApps: FlagReboot | FlagForce | FlagRestartApps,
	ShutdownShutdownRestartApps:    FlagShutdown | FlagRestartApps,
	ShutdownHybridForce:            FlagHybridShutdown | FlagForce,
	ShutdownHybridRestartApps:      FlagHybridShutdown | FlagRestartApps,
	ShutdownHybridForceRestartApps: FlagHybridShutdown | FlagForce | FlagRestartApps,
}

func ParseShutdownType(s string) (ShutdownType, error) {
	t := ShutdownType(strings.ToLower(strings.TrimSpace(s)))
	if _, ok := shutdownTypeFlags[t]; !ok {
		return "", fmt.Errorf("unknown shutdown type: %s", s)
	}

	return t, nil
}

func (t ShutdownType) Flags() (ShutdownFlags, error) {
	flags, ok := shutdownTypeFlags[t]
	if !ok {
		return 0, fmt.Errorf("unknown shutdown type: %s", t)
	}

	return flags, nil
}

// ShutdownTypes lists every known ShutdownType in lexical order.
func ShutdownTypes() []ShutdownType {
	types := make([]ShutdownType, 0, len(shutdownTypeFlags))
	for t := range shutdownTypeFlags {
		types = append(types, t)
	}

	slices.Sort(types)
	return types
}
