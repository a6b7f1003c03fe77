//go:build !linux

package serial

import (
	"errors"
	"time"
)

var errMarkedUnsupported = errors.New("parity-marking transport is only supported on linux; use the plain transport")

// RawPort is a stub for non-Linux platforms.
type RawPort struct{}

// OpenMarked always fails on non-Linux platforms.
func OpenMarked(portName string, baudRate int, readTimeout time.Duration) (*RawPort, error) {
	return nil, errMarkedUnsupported
}

// Close is a stub.
func (p *RawPort) Close() error {
	return errMarkedUnsupported
}

// Read is a stub.
func (p *RawPort) Read(buf []byte) (int, error) {
	return 0, errMarkedUnsupported
}

// PortName is a stub.
func (p *RawPort) PortName() string {
	return ""
}

