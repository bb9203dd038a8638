package main

import (
	"errors"
	"fmt"
	"io/fs"
	"net"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/confmap"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/posflag"
	"github.com/knadh/koanf/v2"
	"github.com/sirupsen/logrus"
	flag "github.com/spf13/pflag"
)

// DefaultServiceClassID is the RFCOMM service class companion apps look for.
const DefaultServiceClassID = "4e5877c0-8297-4aae-b7bd-73a8cbc1edaf"

type Config struct {
	ConfigDir string `koanf:"config_dir"`

	// Service is the Windows service action requested on the command line.
	Service string `koanf:"service"`

	LogLevel    string `koanf:"log_level"`
	PowerSaving bool   `koanf:"power_saving"`

	Bluetooth struct {
		Enabled        bool   `koanf:"enabled"`
		ServiceClassID string `koanf:"service_class_id"`
		InstanceName   string `koanf:"instance_name"`
		Comment        string `koanf:"comment"`
	} `koanf:"bluetooth"`

	Unlock struct {
		Secret string `koanf:"secret"`
	} `koanf:"unlock"`

	Server struct {
		Enabled     bool   `koanf:"enabled"`
		Address     string `koanf:"address"`
		Port        int    `koanf:"port"`
		AllowOrigin string `koanf:"allow_origin"`
		CertFile    string `koanf:"cert_file"`
		KeyFile     string `koanf:"key_file"`
		Token       string `koanf:"token"`
	} `koanf:"server"`

	Zeroconf struct {
		Enabled bool   `koanf:"enabled"`
		Name    string `koanf:"name"`
	} `koanf:"zeroconf"`

	Lock struct {
		UseAgent bool `koanf:"use_agent"`
	} `koanf:"lock"`
}

func (c *Config) validate() error {
	if _, err := logrus.ParseLevel(c.LogLevel); err != nil {
		return fmt.Errorf("invalid log level: %s", c.LogLevel)
	}

	if c.Bluetooth.Enabled {
		if _, err := uuid.Parse(c.Bluetooth.ServiceClassID); err != nil {
			return fmt.Errorf("invalid bluetooth service class id: %w", err)
		}
	}

	if c.Server.Enabled && (c.Server.Port < 0 || c.Server.Port > 65535) {
		return fmt.Errorf("invalid server port: %d", c.Server.Port)
	}

	if c.Server.Enabled && len(c.Server.Token) == 0 && !isLoopback(c.Server.Address) {
		return fmt.Errorf("server token is required when listening on %q", c.Server.Address)
	}

	if (len(c.Server.CertFile) > 0) != (len(c.Server.KeyFile) > 0) {
		return errors.New("server cert_file and key_file must be set together")
	}

	switch c.Service {
	case "", "install", "uninstall", "run":
	default:
		return fmt.Errorf("unknown service action: %s", c.Service)
	}

	return nil
}

func isLoopback(address string) bool {
	if address == "localhost" {
		return true
	}

	ip := net.ParseIP(address)
	return ip != nil && ip.IsLoopback()
}

func loadConfig(args []string) (*Config, error) {
	f := flag.NewFlagSet("hostctld", flag.ContinueOnError)
	f.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage of %s:\n", f.Name())
		f.PrintDefaults()
	}

	var configDir string
	f.StringVar(&configDir, "config_dir", defaultConfigDir(), "the configuration directory")

	var configPath string
	f.StringVar(&configPath, "config_path", "config.yml", "the configuration file path, relative to config_dir")

	f.String("log_level", "info", "the log level")
	f.String("service", "", "Windows service action: install, uninstall or run")

	if err := f.Parse(args); err != nil {
		return nil, err
	}

	k := koanf.New(".")

	// defaults
	if err := k.Load(confmap.Provider(map[string]interface{}{
		"log_level":                  "info",
		"power_saving":               false,
		"bluetooth.enabled":          true,
		"bluetooth.service_class_id": DefaultServiceClassID,
		"bluetooth.instance_name":    "Remote Unlock Service",
		"bluetooth.comment":          "hostctl remote unlock",
		"server.enabled":             false,
		"server.address":             "localhost",
		"server.port":                3678,
		"zeroconf.enabled":           false,
		"lock.use_agent":             false,
	}, "."), nil); err != nil {
		return nil, fmt.Errorf("failed loading configuration defaults: %w", err)
	}

	if !filepath.IsAbs(configPath) {
		configPath = filepath.Join(configDir, configPath)
	}

	if _, err := os.Stat(configPath); err == nil {
		if err := k.Load(file.Provider(configPath), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("failed reading configuration file: %w", err)
		}
	} else if !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("failed reading configuration file: %w", err)
	}

	// flags override the file only when given explicitly
	if err := k.Load(posflag.Provider(f, ".", k), nil); err != nil {
		return nil, fmt.Errorf("failed loading command line configuration: %w", err)
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, fmt.Errorf("failed unmarshalling configuration: %w", err)
	}

	cfg.ConfigDir = configDir
	cfg.LogLevel = strings.ToLower(cfg.LogLevel)

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}
