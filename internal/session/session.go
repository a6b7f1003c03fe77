// Package session drives a decoder from a byte source until the stream
// ends, the transport fails, the bus goes idle for too long or the caller
// cancels.
package session

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/bigbag/seatalk-reader/internal/parmrk"
)

// DefaultBufferSize matches a UART FIFO burst; the decoder does not care.
const DefaultBufferSize = 80

// ErrIdleTimeout ends a session whose source delivered nothing for longer
// than the configured idle timeout.
var ErrIdleTimeout = errors.New("bus idle timeout")

// TransportError wraps a read failure of the byte source.
type TransportError struct {
	Offset int64
	Err    error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("read failed after %d bytes: %v", e.Offset, e.Err)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

// Termination tells why a session stopped.
type Termination int

const (
	Running Termination = iota
	EndOfStream
	TransportFailure
	IdleTimeout
	Cancelled
	SinkFailure
)

func (t Termination) String() string {
	switch t {
	case Running:
		return "running"
	case EndOfStream:
		return "end of stream"
	case TransportFailure:
		return "transport failure"
	case IdleTimeout:
		return "idle timeout"
	case Cancelled:
		return "cancelled"
	case SinkFailure:
		return "sink failure"
	default:
		return fmt.Sprintf("Termination(%d)", int(t))
	}
}

// Sink receives every decoder event and every completed frame. A frame is
// delivered after the event that completed it.
type Sink interface {
	HandleEvent(ev parmrk.Event) error
	HandleFrame(f parmrk.Frame) error
}

// Stats summarizes a session.
type Stats struct {
	Bytes          int64
	Chunks         int64
	Frames         int64
	Malformed      int64
	IdleReads      int64
	TrailingEscape bool
	Termination    Termination
}

// Option configures a Session.
type Option func(*Session)

// WithLogger sets the diagnostics logger.
func WithLogger(logger zerolog.Logger) Option {
	return func(s *Session) {
		s.logger = logger
	}
}

// WithIdleTimeout ends the session when no byte arrives for d. Zero disables.
func WithIdleTimeout(d time.Duration) Option {
	return func(s *Session) {
		s.idleTimeout = d
	}
}

// WithBufferSize sets the read buffer size.
func WithBufferSize(n int) Option {
	return func(s *Session) {
		if n > 0 {
			s.bufferSize = n
		}
	}
}

// Session owns one decoder for the lifetime of one byte source.
type Session struct {
	src         io.Reader
	sink        Sink
	logger      zerolog.Logger
	idleTimeout time.Duration
	bufferSize  int

	dec    *parmrk.Decoder
	asm    parmrk.Assembler
	events []parmrk.Event
	stats  Stats
}

// New creates a session reading src. A read returning 0 bytes and no error
// is an idle tick, io.EOF is a clean end of stream, anything else is a
// transport failure.
func New(src io.Reader, sink Sink, opts ...Option) *Session {
	s := &Session{
		src:        src,
		sink:       sink,
		logger:     log.Logger,
		bufferSize: DefaultBufferSize,
		dec:        parmrk.NewDecoder(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Stats returns the counters collected so far.
func (s *Session) Stats() Stats {
	return s.stats
}

// Run reads until a terminal condition. It returns nil on end of stream,
// the context error on cancellation, *TransportError on a read failure and
// ErrIdleTimeout when the bus stays quiet. Whatever the cause, the decoder
// is finished and the trailing frame delivered before Run returns.
func (s *Session) Run(ctx context.Context) error {
	if s.stats.Termination != Running {
		return fmt.Errorf("session already ended: %s", s.stats.Termination)
	}

	buf := make([]byte, s.bufferSize)
	lastData := time.Now()

	for {
		if err := ctx.Err(); err != nil {
			return s.finish(Cancelled, err)
		}

		n, err := s.src.Read(buf)
		if n > 0 {
			lastData = time.Now()
			s.stats.Chunks++
			s.stats.Bytes += int64(n)
			if serr := s.deliver(buf[:n]); serr != nil {
				return s.finish(SinkFailure, serr)
			}
		}

		if err != nil {
			if errors.Is(err, io.EOF) {
				return s.finish(EndOfStream, nil)
			}
			// Closing the port is how a blocked read gets cancelled.
			if cerr := ctx.Err(); cerr != nil {
				return s.finish(Cancelled, cerr)
			}
			return s.finish(TransportFailure, &TransportError{Offset: s.stats.Bytes, Err: err})
		}

		if n == 0 {
			s.stats.IdleReads++
			s.logger.Trace().Int64("idle_reads", s.stats.IdleReads).Msg("read timeout")
			if s.idleTimeout > 0 && time.Since(lastData) >= s.idleTimeout {
				return s.finish(IdleTimeout, ErrIdleTimeout)
			}
		}
	}
}

func (s *Session) deliver(chunk []byte) error {
	s.events = s.dec.Decode(chunk, s.events[:0])
	return s.dispatch()
}

func (s *Session) dispatch() error {
	for _, ev := range s.events {
		switch ev.Kind {
		case parmrk.KindMalformedEscape:
			s.stats.Malformed++
			s.logger.Warn().
				Int64("offset", ev.Offset).
				Str("continuation", fmt.Sprintf("0x%02X", ev.Value)).
				Msg("malformed escape, dropping 0xFF")
		case parmrk.KindUnresolvedEscape:
			s.stats.TrailingEscape = true
			s.logger.Warn().Int64("offset", ev.Offset).Msg("stream ended inside an escape sequence")
		}

		if err := s.sink.HandleEvent(ev); err != nil {
			return fmt.Errorf("sink: %w", err)
		}
		if f, ok := s.asm.Push(ev); ok {
			if err := s.frame(f); err != nil {
				return err
			}
		}
	}
	return nil
}

func (s *Session) frame(f parmrk.Frame) error {
	s.stats.Frames++
	if err := s.sink.HandleFrame(f); err != nil {
		return fmt.Errorf("sink: %w", err)
	}
	return nil
}

func (s *Session) finish(t Termination, cause error) error {
	s.stats.Termination = t

	s.events = s.dec.Finish(s.events[:0])
	var err error
	if t != SinkFailure {
		err = s.dispatch()
		if f, ok := s.asm.Flush(); ok && err == nil {
			err = s.frame(f)
		}
		if err != nil {
			s.stats.Termination = SinkFailure
			if cause != nil {
				s.logger.Error().Err(err).Msg("sink failed while flushing")
			}
		}
	}

	s.logger.Debug().
		Str("termination", s.stats.Termination.String()).
		Int64("bytes", s.stats.Bytes).
		Int64("frames", s.stats.Frames).
		Int64("malformed", s.stats.Malformed).
		Int64("idle_reads", s.stats.IdleReads).
		Msg("session ended")

	if cause != nil {
		return cause
	}
	return err
}
