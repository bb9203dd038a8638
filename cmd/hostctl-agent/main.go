package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/devgianlu/go-hostctl/agent"
	"github.com/devgianlu/go-hostctl/host"
	"github.com/devgianlu/go-hostctl/internal/logging"
	"github.com/sirupsen/logrus"
	flag "github.com/spf13/pflag"
)

func main() {
	logLevel := flag.String("log_level", "info", "the log level")
	flag.Parse()

	level, err := logrus.ParseLevel(*logLevel)
	if err != nil {
		logrus.WithError(err).Fatalf("invalid log level: %s", *logLevel)
	}
	logrus.SetLevel(level)

	log := logging.NewLogrusAdapter("agent")

	l, err := agent.Listen()
	if err != nil {
		logrus.WithError(err).Fatal("failed listening on agent pipe")
	}

	logrus.Infof("agent listening on %s", l.Addr())

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	ctrl := host.NewController(log.WithField("module", "host"))
	if err := agent.Serve(ctx, log, l, agent.NewLockHandler(log, ctrl)); err != nil {
		logrus.WithError(err).Fatal("agent stopped")
	}
}
