//go:build windows

package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	log "github.com/sirupsen/logrus"
	"golang.org/x/sys/windows/svc"
	"golang.org/x/sys/windows/svc/eventlog"
	"golang.org/x/sys/windows/svc/mgr"
)

func installService(cfg *Config) error {
	exe, err := os.Executable()
	if err != nil {
		return fmt.Errorf("failed resolving executable path: %w", err)
	}

	m, err := mgr.Connect()
	if err != nil {
		return err
	}
	defer m.Disconnect()

	if s, err := m.OpenService(serviceName); err == nil {
		s.Close()
		return fmt.Errorf("service %s already exists", serviceName)
	}

	s, err := m.CreateService(serviceName, exe, mgr.Config{
		DisplayName: serviceDisplayName,
		Description: serviceDescription,
		StartType:   mgr.StartAutomatic,
	}, "--service", "run", "--config_dir", cfg.ConfigDir)
	if err != nil {
		return err
	}
	defer s.Close()

	if err := eventlog.InstallAsEventCreate(serviceName, eventlog.Error|eventlog.Warning|eventlog.Info); err != nil {
		if !strings.Contains(err.Error(), "exists") {
			_ = s.Delete()
			return fmt.Errorf("failed installing event log source: %w", err)
		}
	}

	return nil
}

func uninstallService() error {
	m, err := mgr.Connect()
	if err != nil {
		return err
	}
	defer m.Disconnect()

	s, err := m.OpenService(serviceName)
	if err != nil {
		return fmt.Errorf("service %s is not installed", serviceName)
	}
	defer s.Close()

	if err := s.Delete(); err != nil {
		return err
	}

	if err := eventlog.Remove(serviceName); err != nil {
		return fmt.Errorf("failed removing event log source: %w", err)
	}

	return nil
}

// eventlogHook mirrors log entries to the Windows event log.
type eventlogHook struct {
	elog *eventlog.Log
}

func (h *eventlogHook) Levels() []log.Level {
	return []log.Level{log.PanicLevel, log.FatalLevel, log.ErrorLevel, log.WarnLevel, log.InfoLevel}
}

func (h *eventlogHook) Fire(entry *log.Entry) error {
	line, err := entry.String()
	if err != nil {
		return err
	}

	switch entry.Level {
	case log.PanicLevel, log.FatalLevel, log.ErrorLevel:
		return h.elog.Error(3, line)
	case log.WarnLevel:
		return h.elog.Warning(2, line)
	default:
		return h.elog.Info(1, line)
	}
}

type serviceHandler struct {
	app *App
	err error
}

func (h *serviceHandler) Execute(_ []string, r <-chan svc.ChangeRequest, changes chan<- svc.Status) (bool, uint32) {
	const accepted = svc.AcceptStop | svc.AcceptShutdown
	changes <- svc.Status{State: svc.StartPending}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	done := make(chan error, 1)
	go func() { done <- h.app.Run(ctx) }()

	changes <- svc.Status{State: svc.Running, Accepts: accepted}

	for {
		select {
		case err := <-done:
			// the app stopped on its own
			h.err = err
			if err != nil {
				return true, 1
			}

			return false, 0
		case c := <-r:
			switch c.Cmd {
			case svc.Interrogate:
				changes <- c.CurrentStatus
			case svc.Stop, svc.Shutdown:
				changes <- svc.Status{State: svc.StopPending}
				cancel()

				if h.err = <-done; h.err != nil {
					return true, 2
				}

				return false, 0
			}
		}
	}
}

func runService(app *App) error {
	isService, err := svc.IsWindowsService()
	if err != nil {
		return fmt.Errorf("failed detecting service environment: %w", err)
	} else if !isService {
		return errors.New("not started by the service control manager")
	}

	elog, err := eventlog.Open(serviceName)
	if err != nil {
		return fmt.Errorf("failed opening event log: %w", err)
	}
	defer elog.Close()

	log.AddHook(&eventlogHook{elog: elog})

	h := &serviceHandler{app: app}
	if err := svc.Run(serviceName, h); err != nil {
		return err
	}

	return h.err
}
