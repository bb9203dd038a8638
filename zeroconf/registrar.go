package zeroconf

// ServiceRegistrar publishes a DNS-SD service over mDNS.
type ServiceRegistrar interface {
	// Register publishes the service. txt holds key=value pairs.
	Register(name, serviceType, domain string, port int, txt []string) error

	// Shutdown stops advertising the service and releases resources.
	Shutdown()
}
