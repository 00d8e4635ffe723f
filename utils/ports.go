package utils

import (
	"errors"
	"fmt"
	"net"
	"strconv"
)

var ErrPortInUse = errors.New("port is already in use")

// ListenFirstFree binds host:port, or the first free port among the next scan ports
// The returned listener is already bound, so the chosen port cannot be taken between probe and serve
func ListenFirstFree(host string, port, scan int) (net.Listener, error) {
	var lastErr error
	for p := port; p <= port+scan && p <= 65535; p++ {
		ln, err := net.Listen("tcp", net.JoinHostPort(host, strconv.Itoa(p)))
		if err == nil {
			return ln, nil
		}
		lastErr = err
	}
	if scan == 0 {
		return nil, fmt.Errorf("%w: %d: %v", ErrPortInUse, port, lastErr)
	}
	return nil, fmt.Errorf("%w: no free port in %d-%d: %v", ErrPortInUse, port, port+scan, lastErr)
}

// ListenerPort returns the TCP port ln is bound to
func ListenerPort(ln net.Listener) int {
	if addr, ok := ln.Addr().(*net.TCPAddr); ok {
		return addr.Port
	}
	return 0
}
