package main

const (
	serviceName        = "hostctld"
	serviceDisplayName = "Host control daemon"
	serviceDescription = "Remote shutdown, lock and Bluetooth credential verification"
)
