package detect

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/rs/zerolog"

	"github.com/bigbag/seatalk-reader/internal/parmrk"
	"github.com/bigbag/seatalk-reader/internal/serial"
	"github.com/bigbag/seatalk-reader/internal/session"
)

// DefaultWindow is how long each port is listened to. Most instruments
// repeat their datagrams at least once a second.
const DefaultWindow = 2 * time.Second

// Result describes the traffic seen on one port.
type Result struct {
	Port      string
	Bytes     int64
	Frames    int64
	Malformed int64
	Commands  []byte
}

// Active reports whether complete frames were seen.
func (r *Result) Active() bool {
	return r.Frames > 0
}

// Options controls a scan.
type Options struct {
	Transport serial.Transport
	BaudRate  int
	Window    time.Duration
	Logger    zerolog.Logger
}

// ScanPorts listens on every available port and returns the ones that
// carried marked frames.
func ScanPorts(ctx context.Context, opts Options) ([]Result, error) {
	ports, err := serial.ListPorts()
	if err != nil {
		return nil, fmt.Errorf("failed to list ports: %w", err)
	}

	if len(ports) == 0 {
		return nil, fmt.Errorf("no serial ports found")
	}

	var results []Result
	for _, portName := range ports {
		result, err := ProbePort(ctx, portName, opts)
		if err != nil {
			if ctx.Err() != nil {
				return results, ctx.Err()
			}
			opts.Logger.Debug().Str("port", portName).Err(err).Msg("probe failed")
			continue
		}
		if result.Active() {
			results = append(results, *result)
		}
	}

	return results, nil
}

// ProbePort listens on a specific port for one window.
func ProbePort(ctx context.Context, portName string, opts Options) (*Result, error) {
	port, err := serial.OpenTransport(opts.Transport, portName, opts.BaudRate, serial.DefaultReadTimeout)
	if err != nil {
		return nil, err
	}
	defer port.Close()

	result, err := Listen(ctx, port, opts.Window, opts.Logger)
	if err != nil {
		return nil, err
	}
	result.Port = portName
	return result, nil
}

// Listen decodes src for window and summarizes what it saw. Reaching the end
// of the window or of the stream is not an error.
func Listen(ctx context.Context, src io.Reader, window time.Duration, logger zerolog.Logger) (*Result, error) {
	if window <= 0 {
		window = DefaultWindow
	}
	ctx, cancel := context.WithTimeout(ctx, window)
	defer cancel()

	tally := &tally{seen: make(map[byte]bool)}
	s := session.New(src, tally, session.WithLogger(logger))
	err := s.Run(ctx)
	if err != nil && !errors.Is(err, context.DeadlineExceeded) {
		return nil, err
	}

	stats := s.Stats()
	// A frame flushed when the window closes may be cut off mid-datagram.
	// At a clean end of stream it is as complete as the source allows.
	if stats.Termination == session.EndOfStream && tally.tail != nil {
		tally.count(*tally.tail)
	}
	return &Result{
		Bytes:     stats.Bytes,
		Frames:    tally.frames,
		Malformed: stats.Malformed,
		Commands:  tally.commands,
	}, nil
}

// tally counts complete frames and the distinct commands among them. A
// frame handed over without a closing boundary is held in tail.
type tally struct {
	frames   int64
	seen     map[byte]bool
	commands []byte
	closing  bool
	tail     *byte
}

func (t *tally) HandleEvent(ev parmrk.Event) error {
	t.closing = ev.Kind == parmrk.KindBoundary
	return nil
}

func (t *tally) HandleFrame(f parmrk.Frame) error {
	cmd, ok := f.Command()
	if !ok {
		return nil
	}
	if !t.closing {
		t.tail = &cmd
		return nil
	}
	t.count(cmd)
	return nil
}

func (t *tally) count(cmd byte) {
	t.frames++
	if !t.seen[cmd] {
		t.seen[cmd] = true
		t.commands = append(t.commands, cmd)
	}
}
