// Package discovery centralizes local service address conventions.
package discovery

import (
	"net"
	"strconv"
	"strings"
)

const (
	// ServiceWeb is the account request web service identity.
	ServiceWeb = "web"
	// ServiceWorker is the account worker identity.
	ServiceWorker = "worker"
)

const defaultHost = "localhost"

var grpcPorts = map[string]int{
	ServiceWorker: 8089,
}

var httpPorts = map[string]int{
	ServiceWeb: 8086,
}

// DefaultGRPCAddr returns the conventional gRPC address for a service.
func DefaultGRPCAddr(service string) string {
	return defaultAddr(strings.TrimSpace(service), grpcPorts)
}

// DefaultHTTPAddr returns the conventional HTTP address for a service.
func DefaultHTTPAddr(service string) string {
	return defaultAddr(strings.TrimSpace(service), httpPorts)
}

// DefaultGRPCPort returns the conventional gRPC port for a service, or 0.
func DefaultGRPCPort(service string) int {
	return grpcPorts[strings.TrimSpace(service)]
}

// OrDefaultGRPCAddr returns value when set, otherwise the service convention.
func OrDefaultGRPCAddr(value, service string) string {
	value = strings.TrimSpace(value)
	if value != "" {
		return value
	}
	return DefaultGRPCAddr(service)
}

// OrDefaultHTTPAddr returns value when set, otherwise the service convention.
func OrDefaultHTTPAddr(value, service string) string {
	value = strings.TrimSpace(value)
	if value != "" {
		return value
	}
	return DefaultHTTPAddr(service)
}

func defaultAddr(service string, ports map[string]int) string {
	port, ok := ports[service]
	if !ok || port <= 0 {
		return ""
	}
	return net.JoinHostPort(defaultHost, strconv.Itoa(port))
}
