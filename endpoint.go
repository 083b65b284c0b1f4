package ipcwire

import (
	"fmt"
	"net"
	"os"
	"strconv"
	"strings"
)

// Endpoint is a resolved service designation: either a TCP host:port, or —
// on systems with filesystem sockets — a path. It is immutable once
// resolved.
type Endpoint struct {
	Network string // "tcp" or "unix"
	Address string
}

// String renders the endpoint as "network:address", e.g. "tcp:127.0.0.1:4242".
func (e Endpoint) String() string {
	return e.Network + ":" + e.Address
}

// isPathService reports whether service names a filesystem path rather
// than a decimal TCP port, per spec.md §6: "a path (string containing a
// path separator)".
func isPathService(service string) bool {
	return strings.ContainsRune(service, os.PathSeparator) || strings.ContainsRune(service, '/')
}

// ResolveEndpoint turns a (host, service) pair into an Endpoint. service is
// either a decimal port number, meaning TCP, or a path containing a
// separator, meaning a local filesystem socket (host is ignored in that
// case). host may be empty for TCP, meaning "any local address" on the
// server side or "localhost" on the client side — callers decide which via
// net.Dial/net.Listen semantics.
func ResolveEndpoint(host, service string) (Endpoint, error) {
	if service == "" {
		return Endpoint{}, fmt.Errorf("ipcwire: empty service")
	}
	if isPathService(service) {
		return Endpoint{Network: "unix", Address: service}, nil
	}
	if _, err := strconv.ParseUint(service, 10, 16); err != nil {
		return Endpoint{}, fmt.Errorf("ipcwire: service %q is neither a path nor a decimal port: %w", service, err)
	}
	return Endpoint{Network: "tcp", Address: net.JoinHostPort(host, service)}, nil
}
