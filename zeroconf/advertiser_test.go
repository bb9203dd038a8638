package zeroconf

import (
	"errors"
	"testing"

	hostctl "github.com/devgianlu/go-hostctl"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeRegistrar struct {
	name, serviceType, domain string
	port                      int
	txt                       []string
	err                       error
	shutdowns                 int
}

func (f *fakeRegistrar) Register(name, serviceType, domain string, port int, txt []string) error {
	f.name, f.serviceType, f.domain, f.port, f.txt = name, serviceType, domain, port, txt
	return f.err
}

func (f *fakeRegistrar) Shutdown() {
	f.shutdowns++
}

func TestAdvertiser(t *testing.T) {
	reg := &fakeRegistrar{}
	a := NewAdvertiser(&hostctl.NullLogger{}, reg)

	require.NoError(t, a.Start(Info{Name: "desktop", Port: 3678, Version: "1.0.0", Bluetooth: true}))
	assert.Equal(t, "desktop", reg.name)
	assert.Equal(t, ServiceType, reg.serviceType)
	assert.Equal(t, Domain, reg.domain)
	assert.Equal(t, 3678, reg.port)
	assert.Equal(t, []string{"version=1.0.0", "tls=false", "bt=true", "sealed=false"}, reg.txt)

	assert.Error(t, a.Start(Info{Name: "desktop", Port: 3678}))

	a.Close()
	a.Close()
	assert.Equal(t, 1, reg.shutdowns)
}

func TestAdvertiserValidation(t *testing.T) {
	a := NewAdvertiser(&hostctl.NullLogger{}, &fakeRegistrar{})

	assert.Error(t, a.Start(Info{Port: 1}))
	assert.Error(t, a.Start(Info{Name: "x"}))
	assert.Error(t, a.Start(Info{Name: "x", Port: 70000}))
}

func TestAdvertiserRegisterFailure(t *testing.T) {
	reg := &fakeRegistrar{err: errors.New("no interfaces")}
	a := NewAdvertiser(&hostctl.NullLogger{}, reg)

	assert.Error(t, a.Start(Info{Name: "x", Port: 1}))

	a.Close()
	assert.Zero(t, reg.shutdowns)
}
