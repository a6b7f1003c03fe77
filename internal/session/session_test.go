package session

import (
	"bytes"
	"context"
	"errors"
	"io"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/bigbag/seatalk-reader/internal/parmrk"
)

type recordingSink struct {
	events   []parmrk.Event
	frames   []parmrk.Frame
	failWith error
	// frameErr is returned by HandleFrame.
	frameErr error
}

func (r *recordingSink) HandleEvent(ev parmrk.Event) error {
	r.events = append(r.events, ev)
	return r.failWith
}

func (r *recordingSink) HandleFrame(f parmrk.Frame) error {
	r.frames = append(r.frames, f)
	return r.frameErr
}

type readStep struct {
	data []byte
	err  error
}

// scriptedReader returns one step per Read, then io.EOF.
type scriptedReader struct {
	steps []readStep
	after func()
}

func (r *scriptedReader) Read(p []byte) (int, error) {
	if len(r.steps) == 0 {
		return 0, io.EOF
	}
	step := r.steps[0]
	r.steps = r.steps[1:]
	n := copy(p, step.data)
	if len(r.steps) == 0 && r.after != nil {
		r.after()
	}
	return n, step.err
}

// idleReader never delivers data.
type idleReader struct{}

func (idleReader) Read(p []byte) (int, error) {
	time.Sleep(time.Millisecond)
	return 0, nil
}

func newTestSession(src io.Reader, sink Sink, opts ...Option) *Session {
	opts = append([]Option{WithLogger(zerolog.Nop())}, opts...)
	return New(src, sink, opts...)
}

func TestRun_EndOfStream(t *testing.T) {
	raw := []byte{0x11, 0xFF, 0x00, 0x22, 0x33, 0xFF, 0xFF, 0x44}
	sink := &recordingSink{}
	s := newTestSession(bytes.NewReader(raw), sink)

	require.NoError(t, s.Run(context.Background()))

	require.Len(t, sink.frames, 2)
	require.True(t, sink.frames[0].Partial)
	require.Equal(t, []byte{0x11}, sink.frames[0].Data)
	require.False(t, sink.frames[1].Partial)
	require.Equal(t, []byte{0x22, 0x33, 0xFF, 0x44}, sink.frames[1].Data)

	stats := s.Stats()
	require.Equal(t, EndOfStream, stats.Termination)
	require.Equal(t, int64(len(raw)), stats.Bytes)
	require.Equal(t, int64(2), stats.Frames)
	require.False(t, stats.TrailingEscape)
}

func TestRun_EscapeSplitAcrossReads(t *testing.T) {
	raw := []byte{0x11, 0xFF, 0x00, 0x22, 0xFF, 0xFF, 0x33}
	whole := &recordingSink{}
	require.NoError(t, newTestSession(bytes.NewReader(raw), whole).Run(context.Background()))

	for size := 1; size <= len(raw); size++ {
		split := &recordingSink{}
		src := &scriptedReader{}
		for rest := raw; len(rest) > 0; {
			n := size
			if n > len(rest) {
				n = len(rest)
			}
			src.steps = append(src.steps, readStep{data: rest[:n]})
			rest = rest[n:]
		}
		require.NoError(t, newTestSession(src, split, WithBufferSize(size)).Run(context.Background()))
		require.Equal(t, whole.events, split.events, "chunk size %d", size)
		require.Equal(t, whole.frames, split.frames, "chunk size %d", size)
	}
}

func TestRun_IdleReadsAreNotErrors(t *testing.T) {
	src := &scriptedReader{steps: []readStep{
		{data: []byte{0xFF}},
		{},
		{},
		{data: []byte{0x00, 0x20, 0x01}},
	}}
	sink := &recordingSink{}
	s := newTestSession(src, sink)

	require.NoError(t, s.Run(context.Background()))
	require.Equal(t, int64(2), s.Stats().IdleReads)
	require.Len(t, sink.frames, 1)
	require.Equal(t, []byte{0x20, 0x01}, sink.frames[0].Data)
}

func TestRun_TrailingEscape(t *testing.T) {
	sink := &recordingSink{}
	s := newTestSession(bytes.NewReader([]byte{0xFF, 0x00, 0x20, 0xFF}), sink)

	require.NoError(t, s.Run(context.Background()))
	require.True(t, s.Stats().TrailingEscape)

	last := sink.events[len(sink.events)-1]
	require.Equal(t, parmrk.KindUnresolvedEscape, last.Kind)
	require.Equal(t, int64(3), last.Offset)

	require.Len(t, sink.frames, 1)
	require.Equal(t, []byte{0x20}, sink.frames[0].Data)
}

func TestRun_MalformedEscapeCounted(t *testing.T) {
	sink := &recordingSink{}
	s := newTestSession(bytes.NewReader([]byte{0xFF, 0x00, 0x20, 0xFF, 0x05, 0x06}), sink)

	require.NoError(t, s.Run(context.Background()))
	require.Equal(t, int64(1), s.Stats().Malformed)
	require.Len(t, sink.frames, 1)
	require.Equal(t, []byte{0x20, 0x05, 0x06}, sink.frames[0].Data)
}

func TestRun_TransportError(t *testing.T) {
	readErr := errors.New("device unplugged")
	src := &scriptedReader{steps: []readStep{
		{data: []byte{0xFF, 0x00, 0x20}},
		{data: []byte{0x01}, err: readErr},
	}}
	sink := &recordingSink{}
	s := newTestSession(src, sink)

	err := s.Run(context.Background())
	require.Error(t, err)
	require.ErrorIs(t, err, readErr)

	var terr *TransportError
	require.True(t, errors.As(err, &terr))
	require.Equal(t, int64(4), terr.Offset)

	require.Equal(t, TransportFailure, s.Stats().Termination)
	// Data delivered with the failing read is still decoded and flushed.
	require.Len(t, sink.frames, 1)
	require.Equal(t, []byte{0x20, 0x01}, sink.frames[0].Data)
}

func TestRun_IdleTimeout(t *testing.T) {
	s := newTestSession(idleReader{}, &recordingSink{}, WithIdleTimeout(20*time.Millisecond))

	err := s.Run(context.Background())
	require.ErrorIs(t, err, ErrIdleTimeout)
	require.Equal(t, IdleTimeout, s.Stats().Termination)
	require.Greater(t, s.Stats().IdleReads, int64(0))
}

func TestRun_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	src := &scriptedReader{
		steps: []readStep{{data: []byte{0xFF, 0x00, 0x20, 0xFF}}, {}},
		after: cancel,
	}
	sink := &recordingSink{}
	s := newTestSession(src, sink)

	err := s.Run(ctx)
	require.ErrorIs(t, err, context.Canceled)
	require.Equal(t, Cancelled, s.Stats().Termination)
	// The dangling escape is reported, never lost.
	require.True(t, s.Stats().TrailingEscape)
	require.Len(t, sink.frames, 1)
}

func TestRun_CancelledWhileReadFails(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	src := &scriptedReader{
		steps: []readStep{{err: errors.New("file already closed")}},
		after: cancel,
	}
	s := newTestSession(src, &recordingSink{})

	err := s.Run(ctx)
	require.ErrorIs(t, err, context.Canceled)
	require.Equal(t, Cancelled, s.Stats().Termination)
}

func TestRun_SinkFailure(t *testing.T) {
	sinkErr := errors.New("broken pipe")
	sink := &recordingSink{failWith: sinkErr}
	s := newTestSession(bytes.NewReader([]byte{0x01, 0x02}), sink)

	err := s.Run(context.Background())
	require.ErrorIs(t, err, sinkErr)
	require.Equal(t, SinkFailure, s.Stats().Termination)
	require.Len(t, sink.events, 1)
}

func TestRun_SinkFailsOnFinalFrame(t *testing.T) {
	sinkErr := errors.New("broken pipe")
	sink := &recordingSink{frameErr: sinkErr}
	s := newTestSession(bytes.NewReader([]byte{0xFF, 0x00, 0x20, 0x01}), sink)

	err := s.Run(context.Background())
	require.ErrorIs(t, err, sinkErr)
	require.Equal(t, SinkFailure, s.Stats().Termination)
	require.Len(t, sink.frames, 1)
}

func TestRun_SinkFailsOnFinalFrameAfterCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	src := &scriptedReader{
		steps: []readStep{{data: []byte{0xFF, 0x00, 0x20, 0x01}}, {}},
		after: cancel,
	}
	sinkErr := errors.New("broken pipe")
	sink := &recordingSink{frameErr: sinkErr}
	var logs bytes.Buffer
	s := newTestSession(src, sink, WithLogger(zerolog.New(&logs)))

	err := s.Run(ctx)
	require.ErrorIs(t, err, context.Canceled)
	require.Equal(t, SinkFailure, s.Stats().Termination)
	require.Contains(t, logs.String(), "broken pipe")
}

func TestRun_OnlyOnce(t *testing.T) {
	s := newTestSession(bytes.NewReader(nil), &recordingSink{})
	require.NoError(t, s.Run(context.Background()))
	require.Error(t, s.Run(context.Background()))
}
