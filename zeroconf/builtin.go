package zeroconf

import (
	"net"

	"github.com/grandcat/zeroconf"
)

// BuiltinRegistrar implements ServiceRegistrar with the pure-Go responder of
// grandcat/zeroconf.
type BuiltinRegistrar struct {
	server *zeroconf.Server
	ifaces []net.Interface
}

// NewBuiltinRegistrar advertises on ifaces, or on every interface if empty.
func NewBuiltinRegistrar(ifaces []net.Interface) *BuiltinRegistrar {
	return &BuiltinRegistrar{ifaces: ifaces}
}

func (b *BuiltinRegistrar) Register(name, serviceType, domain string, port int, txt []string) error {
	var err error
	b.server, err = zeroconf.Register(name, serviceType, domain, port, txt, b.ifaces)
	return err
}

func (b *BuiltinRegistrar) Shutdown() {
	if b.server != nil {
		b.server.Shutdown()
		b.server = nil
	}
}
