package main

import (
	"os"
	"path/filepath"
	"testing"

	hostctl "github.com/devgianlu/go-hostctl"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfigDefaults(t *testing.T) {
	dir := t.TempDir()

	cfg, err := loadConfig([]string{"--config_dir", dir})
	require.NoError(t, err)

	assert.Equal(t, dir, cfg.ConfigDir)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.True(t, cfg.Bluetooth.Enabled)
	assert.Equal(t, DefaultServiceClassID, cfg.Bluetooth.ServiceClassID)
	assert.Equal(t, "Remote Unlock Service", cfg.Bluetooth.InstanceName)
	assert.False(t, cfg.Server.Enabled)
	assert.Equal(t, 3678, cfg.Server.Port)
	assert.False(t, cfg.Lock.UseAgent)
	assert.Empty(t, cfg.Service)
}

func TestLoadConfigFile(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yml"), []byte(`
log_level: debug
power_saving: true
bluetooth:
  enabled: false
server:
  enabled: true
  port: 8080
  allow_origin: http://localhost:3000
unlock:
  secret: s3cret
lock:
  use_agent: true
`), 0o600))

	cfg, err := loadConfig([]string{"--config_dir", dir})
	require.NoError(t, err)

	assert.Equal(t, "debug", cfg.LogLevel)
	assert.True(t, cfg.PowerSaving)
	assert.False(t, cfg.Bluetooth.Enabled)
	assert.True(t, cfg.Server.Enabled)
	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, "localhost", cfg.Server.Address)
	assert.Equal(t, "http://localhost:3000", cfg.Server.AllowOrigin)
	assert.Equal(t, "s3cret", cfg.Unlock.Secret)
	assert.True(t, cfg.Lock.UseAgent)
}

func TestLoadConfigFlagsOverrideFile(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "other.yml"), []byte("log_level: debug\n"), 0o600))

	cfg, err := loadConfig([]string{"--config_dir", dir, "--config_path", "other.yml", "--log_level", "WARN"})
	require.NoError(t, err)
	assert.Equal(t, "warn", cfg.LogLevel)

	cfg, err = loadConfig([]string{"--config_dir", dir, "--config_path", "other.yml"})
	require.NoError(t, err)
	assert.Equal(t, "debug", cfg.LogLevel)
}

func TestLoadConfigInvalid(t *testing.T) {
	dir := t.TempDir()

	_, err := loadConfig([]string{"--config_dir", dir, "--log_level", "loud"})
	assert.Error(t, err)

	_, err = loadConfig([]string{"--config_dir", dir, "--service", "restart"})
	assert.Error(t, err)

	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yml"), []byte("bluetooth:\n  service_class_id: nope\n"), 0o600))
	_, err = loadConfig([]string{"--config_dir", dir})
	assert.Error(t, err)

	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yml"), []byte("server:\n  cert_file: a.pem\n"), 0o600))
	_, err = loadConfig([]string{"--config_dir", dir})
	assert.Error(t, err)
}

func TestAcquireInstanceLock(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "nested")

	lock, err := acquireInstanceLock(dir)
	require.NoError(t, err)
	defer lock.Unlock()

	_, err = acquireInstanceLock(dir)
	assert.ErrorIs(t, err, hostctl.ErrServiceAlreadyRunning)
}

func TestLoadConfigServerTokenRequiredOffLoopback(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yml"), []byte(`
server:
  enabled: true
  address: 0.0.0.0
`), 0o600))

	_, err := loadConfig([]string{"--config_dir", dir})
	assert.ErrorContains(t, err, "server token is required")

	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yml"), []byte(`
server:
  enabled: true
  address: 0.0.0.0
  token: t0ken
`), 0o600))

	cfg, err := loadConfig([]string{"--config_dir", dir})
	require.NoError(t, err)
	assert.Equal(t, "t0ken", cfg.Server.Token)
}

func TestIsLoopback(t *testing.T) {
	assert.True(t, isLoopback("localhost"))
	assert.True(t, isLoopback("127.0.0.1"))
	assert.True(t, isLoopback("::1"))
	assert.False(t, isLoopback(""))
	assert.False(t, isLoopback("0.0.0.0"))
	assert.False(t, isLoopback("192.168.1.10"))
}
