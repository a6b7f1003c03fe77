//go:build linux

package serial

import (
	"fmt"
	"os"
	"syscall"
	"time"
	"unsafe"
)

// termios constants for Linux
const (
	TCGETS  = 0x5401
	TCSETS  = 0x5402
	TCSETSW = 0x5403
	TCFLSH  = 0x540B

	// c_iflag
	IGNBRK = 0x1
	BRKINT = 0x2
	IGNPAR = 0x4
	PARMRK = 0x8
	INPCK  = 0x10
	ISTRIP = 0x20
	INLCR  = 0x40
	IGNCR  = 0x80
	ICRNL  = 0x100
	IXON   = 0x400
	IXANY  = 0x800
	IXOFF  = 0x1000

	// c_oflag
	OPOST = 0x1

	// c_cflag
	CBAUD   = 0x100F
	CSIZE   = 0x30
	CS8     = 0x30
	CSTOPB  = 0x40
	CREAD   = 0x80
	PARENB  = 0x100
	PARODD  = 0x200
	CLOCAL  = 0x800
	CMSPAR  = 0x40000000
	CRTSCTS = 0x80000000

	// c_lflag
	ISIG   = 0x1
	ICANON = 0x2
	ECHO   = 0x8
	ECHONL = 0x40
	IEXTEN = 0x8000

	// VMIN/VTIME indices
	VMIN  = 6
	VTIME = 5

	// tcflush constants
	TCIFLUSH = 0
)

// Baud rate constants
var baudRates = map[int]uint32{
	1200:   0x9,
	2400:   0xb,
	4800:   0xc,
	9600:   0xd,
	19200:  0xe,
	38400:  0xf,
	57600:  0x1001,
	115200: 0x1002,
}

// termios structure for Linux
type termios struct {
	Iflag  uint32
	Oflag  uint32
	Cflag  uint32
	Lflag  uint32
	Line   uint8
	Cc     [32]uint8
	Ispeed uint32
	Ospeed uint32
}

// RawPort is a serial port programmed through raw termios ioctls, which is
// the only way to reach CMSPAR and PARMRK.
type RawPort struct {
	fd          int
	file        *os.File
	portName    string
	baudRate    int
	readTimeout time.Duration
}

// OpenMarked opens a serial port with stick parity and parity marking.
func OpenMarked(portName string, baudRate int, readTimeout time.Duration) (*RawPort, error) {
	// Open with O_RDWR | O_NOCTTY | O_NONBLOCK
	fd, err := syscall.Open(portName, syscall.O_RDWR|syscall.O_NOCTTY|syscall.O_NONBLOCK, 0)
	if err != nil {
		return nil, fmt.Errorf("failed to open port %s: %w", portName, err)
	}

	// Clear non-blocking mode after open using Syscall
	flags, _, errno := syscall.Syscall(syscall.SYS_FCNTL, uintptr(fd), syscall.F_GETFL, 0)
	if errno == 0 {
		syscall.Syscall(syscall.SYS_FCNTL, uintptr(fd), syscall.F_SETFL, flags&^syscall.O_NONBLOCK)
	}

	if readTimeout <= 0 {
		readTimeout = DefaultReadTimeout
	}
	port := &RawPort{
		fd:          fd,
		file:        os.NewFile(uintptr(fd), portName),
		portName:    portName,
		baudRate:    baudRate,
		readTimeout: readTimeout,
	}

	if err := port.configure(); err != nil {
		port.file.Close()
		return nil, err
	}

	port.flush()
	return port, nil
}

func (p *RawPort) configure() error {
	var t termios

	if _, _, errno := syscall.Syscall(syscall.SYS_IOCTL, uintptr(p.fd), TCGETS, uintptr(unsafe.Pointer(&t))); errno != 0 {
		return fmt.Errorf("tcgetattr failed: %v", errno)
	}

	baudCode, ok := baudRates[p.baudRate]
	if !ok {
		return fmt.Errorf("unsupported baud rate: %d", p.baudRate)
	}

	// Raw mode, but keep parity checking on: with PARMRK set a byte whose
	// parity bit mismatches the stuck value arrives as 0xFF 0x00 <byte>, and
	// a literal 0xFF arrives as 0xFF 0xFF.
	t.Iflag &^= IGNBRK | BRKINT | IGNPAR | ISTRIP | INLCR | IGNCR | ICRNL | IXON | IXOFF | IXANY
	t.Iflag |= INPCK | PARMRK
	t.Oflag &^= OPOST
	t.Lflag &^= ECHO | ECHONL | ICANON | ISIG | IEXTEN

	// 8 data bits, space parity (PARENB|CMSPAR without PARODD), 1 stop bit.
	t.Cflag &^= CBAUD | CSIZE | PARODD | CSTOPB | CRTSCTS
	t.Cflag |= CS8 | CREAD | CLOCAL | PARENB | CMSPAR | baudCode

	t.Ispeed = baudCode
	t.Ospeed = baudCode

	// VMIN=0 with VTIME in tenths of a second: reads return 0 bytes on an
	// idle bus instead of blocking forever.
	t.Cc[VMIN] = 0
	t.Cc[VTIME] = vtime(p.readTimeout)

	if _, _, errno := syscall.Syscall(syscall.SYS_IOCTL, uintptr(p.fd), TCSETSW, uintptr(unsafe.Pointer(&t))); errno != 0 {
		return fmt.Errorf("tcsetattr failed: %v", errno)
	}

	return nil
}

func vtime(d time.Duration) uint8 {
	v := d.Milliseconds() / 100
	if v < 1 {
		v = 1
	}
	if v > 255 {
		v = 255
	}
	return uint8(v)
}

// Close closes the serial port
func (p *RawPort) Close() error {
	if p.file != nil {
		return p.file.Close()
	}
	return nil
}

// Read reads data from the serial port. It returns 0, nil when the bus was
// quiet for the read timeout.
func (p *RawPort) Read(buf []byte) (int, error) {
	for {
		n, err := syscall.Read(p.fd, buf)
		if err == syscall.EINTR {
			continue
		}
		if n < 0 {
			n = 0
		}
		return n, err
	}
}

// flush discards any buffered input
func (p *RawPort) flush() error {
	_, _, errno := syscall.Syscall(syscall.SYS_IOCTL, uintptr(p.fd), TCFLSH, TCIFLUSH)
	if errno != 0 {
		return errno
	}
	return nil
}

// PortName returns the port name
func (p *RawPort) PortName() string {
	return p.portName
}

