package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"sync"
	"syscall"

	hostctl "github.com/devgianlu/go-hostctl"
	"github.com/devgianlu/go-hostctl/agent"
	"github.com/devgianlu/go-hostctl/bluetooth"
	"github.com/devgianlu/go-hostctl/host"
	"github.com/devgianlu/go-hostctl/internal/logging"
	"github.com/devgianlu/go-hostctl/unlock"
	"github.com/devgianlu/go-hostctl/zeroconf"
	"github.com/gofrs/flock"
	log "github.com/sirupsen/logrus"
)

// hostController is the part of host.Controller the daemon drives.
type hostController interface {
	AcquireShutdownPrivilege() (*host.Privilege, error)
	ShutdownWithType(p *host.Privilege, t host.ShutdownType) error
	Standby(p *host.Privilege) error
	Lock() error
	IsRemoteSession() bool
	IsSessionLocked() (bool, error)
	SetPowerSavingMode(enable bool) error
	PowerSaving() bool
	TryLogin(username, password, domain string) error
}

type sessionLocker interface {
	Lock(ctx context.Context) error
}

type controllerLocker struct {
	ctrl hostController
}

func (l controllerLocker) Lock(context.Context) error {
	return l.ctrl.Lock()
}

type App struct {
	cfg *Config
	log hostctl.Logger

	ctrl   hostController
	locker sessionLocker

	server *ApiServer
	adv    *zeroconf.Advertiser

	bt     *bluetooth.Listener
	btWg   sync.WaitGroup
	unlock *unlock.Handler
}

func NewApp(cfg *Config) (*App, error) {
	app := &App{cfg: cfg, log: logging.LogrusAdapter{Log: log.NewEntry(log.StandardLogger())}}
	app.ctrl = host.NewController(app.log.WithField("module", "host"))

	if cfg.Lock.UseAgent {
		app.locker = agent.NewClient()
	} else {
		app.locker = controllerLocker{app.ctrl}
	}

	var sealer *unlock.Sealer
	if len(cfg.Unlock.Secret) > 0 {
		var err error
		if sealer, err = unlock.NewSealer([]byte(cfg.Unlock.Secret)); err != nil {
			return nil, fmt.Errorf("failed initializing unlock sealer: %w", err)
		}
	}

	app.unlock = unlock.NewHandler(app.log.WithField("module", "unlock"), app.ctrl, sealer)
	app.unlock.OnResult = func(res unlock.Result) {
		app.emit(ApiEventTypeLogin, &ApiEventDataLogin{
			Source:   "bluetooth",
			Username: hostctl.ObfuscateUsername(res.Username),
			Code:     hostctl.CodeOf(res.Err),
		})
	}

	return app, nil
}

func (app *App) emit(typ ApiEventType, data any) {
	if app.server != nil {
		app.server.Emit(&ApiEvent{Type: typ, Data: data})
	}
}

func (app *App) status() *ApiResponseStatus {
	resp := &ApiResponseStatus{
		Version:       hostctl.VersionNumberString(),
		Platform:      hostctl.SystemInfoString(),
		Supported:     hostctl.IsSupportedPlatform(),
		RemoteSession: app.ctrl.IsRemoteSession(),
		PowerSaving:   app.ctrl.PowerSaving(),
		Bluetooth:     ApiResponseStatusBluetooth{Enabled: app.bt != nil},
	}

	if locked, err := app.ctrl.IsSessionLocked(); err != nil {
		app.log.WithError(err).Debug("failed querying session lock state")
	} else {
		resp.SessionLocked = &locked
	}

	if app.bt != nil {
		resp.Bluetooth.Address = app.bt.Addr().String()
	}

	return resp
}

// withShutdownPrivilege runs fn holding the shutdown privilege.
func (app *App) withShutdownPrivilege(fn func(p *host.Privilege) error) error {
	p, err := app.ctrl.AcquireShutdownPrivilege()
	if err != nil {
		return fmt.Errorf("failed acquiring shutdown privilege: %w", err)
	}

	defer func() {
		if err := p.Release(); err != nil {
			app.log.WithError(err).Warn("failed releasing shutdown privilege")
		}
	}()

	return fn(p)
}

func (app *App) handleApiRequest(ctx context.Context, req ApiRequest) (any, error) {
	switch req.Type {
	case ApiRequestTypeStatus:
		return app.status(), nil
	case ApiRequestTypeShutdownTypes:
		return host.ShutdownTypes(), nil
	case ApiRequestTypeShutdown:
		typ := req.Data.(host.ShutdownType)
		if err := app.withShutdownPrivilege(func(p *host.Privilege) error {
			return app.ctrl.ShutdownWithType(p, typ)
		}); err != nil {
			return nil, err
		}

		app.emit(ApiEventTypeShutdown, &ApiEventDataShutdown{Type: typ})
		return nil, nil
	case ApiRequestTypeStandby:
		if err := app.withShutdownPrivilege(app.ctrl.Standby); err != nil {
			return nil, err
		}

		app.emit(ApiEventTypeStandby, nil)
		return nil, nil
	case ApiRequestTypeLock:
		if err := app.locker.Lock(ctx); err != nil {
			return nil, err
		}

		app.emit(ApiEventTypeLock, nil)
		return nil, nil
	case ApiRequestTypeSetPowerSaving:
		enabled := req.Data.(bool)
		if err := app.ctrl.SetPowerSavingMode(enabled); err != nil {
			return nil, fmt.Errorf("%w: %w", hostctl.ErrSetPowerSaveMode, err)
		}

		app.emit(ApiEventTypePowerSaving, &ApiEventDataPowerSaving{Enabled: enabled})
		return nil, nil
	case ApiRequestTypeLogin:
		data := req.Data.(ApiRequestDataLogin)
		err := app.ctrl.TryLogin(data.Username, data.Password, data.Domain)

		app.emit(ApiEventTypeLogin, &ApiEventDataLogin{
			Source:   "api",
			Username: hostctl.ObfuscateUsername(data.Username),
			Code:     hostctl.CodeOf(err),
		})
		return NewApiResponseResult(err), nil
	default:
		return nil, fmt.Errorf("unknown request type: %s", req.Type)
	}
}

// acquireInstanceLock makes sure a single daemon runs per configuration
// directory. The returned lock must be released on exit.
func acquireInstanceLock(configDir string) (*flock.Flock, error) {
	if err := os.MkdirAll(configDir, 0o700); err != nil {
		return nil, fmt.Errorf("failed creating config directory: %w", err)
	}

	lock := flock.New(filepath.Join(configDir, "hostctld.lock"))
	if ok, err := lock.TryLock(); err != nil {
		return nil, fmt.Errorf("failed acquiring lock file: %w", err)
	} else if !ok {
		return nil, hostctl.ErrServiceAlreadyRunning
	}

	return lock, nil
}

// Run starts every enabled component and serves API requests until ctx is
// cancelled.
func (app *App) Run(ctx context.Context) error {
	lock, err := acquireInstanceLock(app.cfg.ConfigDir)
	if err != nil {
		return err
	}
	defer func() { _ = lock.Unlock() }()

	log.Infof("starting %s", hostctl.SystemInfoString())

	if app.cfg.PowerSaving {
		if err := app.ctrl.SetPowerSavingMode(true); err != nil {
			log.WithError(err).Warn("failed enabling power saving mode")
		}
	}

	if app.cfg.Server.Enabled {
		app.server, err = NewApiServer(app.cfg.Server.Address, app.cfg.Server.Port, app.cfg.Server.AllowOrigin, app.cfg.Server.CertFile, app.cfg.Server.KeyFile, app.cfg.Server.Token)
		if err != nil {
			return fmt.Errorf("failed creating api server: %w", err)
		}
	} else {
		app.server, _ = NewStubApiServer()
	}
	defer app.server.Close()

	if app.cfg.Bluetooth.Enabled {
		if err := app.startBluetooth(); err != nil {
			// the api stays useful without bluetooth
			log.WithError(err).Error("failed starting bluetooth listener")
		} else {
			defer app.stopBluetooth()
		}
	}

	if app.cfg.Zeroconf.Enabled && app.cfg.Server.Enabled {
		if err := app.startZeroconf(); err != nil {
			log.WithError(err).Warn("failed advertising api server")
		} else {
			defer app.adv.Close()
		}
	}

	for {
		select {
		case <-ctx.Done():
			log.Info("shutting down")
			return nil
		case req := <-app.server.Receive():
			data, err := app.handleApiRequest(ctx, req)
			req.Reply(data, err)
		}
	}
}

func (app *App) startZeroconf() error {
	name := app.cfg.Zeroconf.Name
	if len(name) == 0 {
		name, _ = os.Hostname()
	}

	app.adv = zeroconf.NewAdvertiser(app.log.WithField("module", "zeroconf"), zeroconf.NewBuiltinRegistrar(nil))
	return app.adv.Start(zeroconf.Info{
		Name:      name,
		Port:      app.server.Port(),
		Version:   hostctl.VersionNumberString(),
		TLS:       len(app.cfg.Server.CertFile) > 0,
		Bluetooth: app.bt != nil,
		Sealed:    len(app.cfg.Unlock.Secret) > 0,
	})
}

func main() {
	cfg, err := loadConfig(os.Args[1:])
	if err != nil {
		log.WithError(err).Fatal("failed loading configuration")
	}

	// parse and set log level
	logLevel, err := log.ParseLevel(cfg.LogLevel)
	if err != nil {
		log.WithError(err).Fatalf("invalid log level: %s", cfg.LogLevel)
	} else {
		log.SetLevel(logLevel)
	}

	switch cfg.Service {
	case "install":
		if err := installService(cfg); err != nil {
			log.WithError(err).Fatal("failed installing service")
		}

		log.Infof("service %s installed", serviceName)
		return
	case "uninstall":
		if err := uninstallService(); err != nil {
			log.WithError(err).Fatal("failed uninstalling service")
		}

		log.Infof("service %s uninstalled", serviceName)
		return
	}

	app, err := NewApp(cfg)
	if err != nil {
		log.WithError(err).Fatal("failed creating app")
	}

	if cfg.Service == "run" {
		if err := runService(app); err != nil {
			log.WithError(err).Fatal("failed running service")
		}

		return
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := app.Run(ctx); err != nil {
		if errors.Is(err, hostctl.ErrServiceAlreadyRunning) {
			log.Fatalf("another instance is already running in %s", cfg.ConfigDir)
		}

		log.WithError(err).Fatal("failed running app")
	}
}
