package main

import (
	"errors"
	"fmt"
	"net"

	"github.com/devgianlu/go-hostctl/bluetooth"
	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"
)

func (app *App) startBluetooth() error {
	classID, err := uuid.Parse(app.cfg.Bluetooth.ServiceClassID)
	if err != nil {
		return fmt.Errorf("invalid service class id: %w", err)
	}

	app.bt, err = bluetooth.Listen(app.log.WithField("module", "bluetooth"), bluetooth.ServiceDescriptor{
		ClassID:      classID,
		InstanceName: app.cfg.Bluetooth.InstanceName,
		Comment:      app.cfg.Bluetooth.Comment,
	})
	if err != nil {
		return err
	}

	log.Infof("bluetooth listener advertised on %s", app.bt.Addr())

	app.btWg.Add(1)
	go func() {
		defer app.btWg.Done()
		app.acceptLoop(app.bt)
	}()

	return nil
}

func (app *App) acceptLoop(l net.Listener) {
	for {
		conn, err := l.Accept()
		if errors.Is(err, net.ErrClosed) {
			return
		} else if err != nil {
			log.WithError(err).Error("failed accepting bluetooth connection")
			return
		}

		log.Debugf("new bluetooth connection from %s", conn.RemoteAddr())
		app.emit(ApiEventTypeBluetoothConnection, &ApiEventDataBluetoothConnection{Remote: conn.RemoteAddr().String()})

		app.btWg.Add(1)
		go func() {
			defer app.btWg.Done()
			app.unlock.ServeConn(conn)
		}()
	}
}

func (app *App) stopBluetooth() {
	if err := app.bt.Close(); err != nil {
		log.WithError(err).Warn("failed closing bluetooth listener")
	}

	app.btWg.Wait()
	app.bt = nil
}
