package serial

import (
	"fmt"
	"io"
	"time"

	"go.bug.st/serial"
)

// DefaultReadTimeout bounds every read so callers can observe cancellation
// and idle periods on a quiet bus.
const DefaultReadTimeout = 100 * time.Millisecond

// Transport selects how the port is programmed.
type Transport string

const (
	// TransportMarked enables stick parity with parity marking, so the UART
	// inserts 0xFF 0x00 in front of every byte that carried the 9th bit.
	TransportMarked Transport = "parmrk"
	// TransportPlain opens the port 8N1. Use it for bridges that already
	// deliver the escaped stream.
	TransportPlain Transport = "plain"
)

// Conn is an open port delivering the raw byte stream.
type Conn interface {
	io.ReadCloser
	PortName() string
}

// OpenTransport opens portName with the given transport.
func OpenTransport(t Transport, portName string, baudRate int, readTimeout time.Duration) (Conn, error) {
	switch t {
	case TransportMarked:
		p, err := OpenMarked(portName, baudRate, readTimeout)
		if err != nil {
			return nil, err
		}
		return p, nil
	case TransportPlain:
		p, err := Open(portName, baudRate, readTimeout)
		if err != nil {
			return nil, err
		}
		return p, nil
	default:
		return nil, fmt.Errorf("unknown transport %q", t)
	}
}

// Port wraps a go.bug.st serial port.
type Port struct {
	port     serial.Port
	portName string
}

// Open opens a serial port 8N1 with the specified baud rate.
func Open(portName string, baudRate int, readTimeout time.Duration) (*Port, error) {
	mode := &serial.Mode{
		BaudRate: baudRate,
		DataBits: 8,
		Parity:   serial.NoParity,
		StopBits: serial.OneStopBit,
	}

	port, err := serial.Open(portName, mode)
	if err != nil {
		return nil, fmt.Errorf("failed to open port %s: %w", portName, err)
	}

	if readTimeout <= 0 {
		readTimeout = DefaultReadTimeout
	}
	if err := port.SetReadTimeout(readTimeout); err != nil {
		port.Close()
		return nil, fmt.Errorf("failed to set read timeout: %w", err)
	}

	return &Port{
		port:     port,
		portName: portName,
	}, nil
}

// Close closes the serial port.
func (p *Port) Close() error {
	if p.port != nil {
		return p.port.Close()
	}
	return nil
}

// Read reads data from the serial port. It returns 0, nil when the read
// timeout expires with no data.
func (p *Port) Read(buf []byte) (int, error) {
	return p.port.Read(buf)
}

// PortName returns the port name.
func (p *Port) PortName() string {
	return p.portName
}

// ListPorts returns a list of available serial ports.
func ListPorts() ([]string, error) {
	ports, err := serial.GetPortsList()
	if err != nil {
		return nil, err
	}
	return ports, nil
}
