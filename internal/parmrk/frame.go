package parmrk

import (
	"fmt"
	"strings"
)

// Frame is one bus command: the marked start byte followed by its
// continuation bytes.
type Frame struct {
	Data []byte
	// Partial is set for the leading frame of a stream that was joined
	// mid-command; its first byte is not a known start byte.
	Partial bool
	// Offset is the raw stream position of the first data byte.
	Offset int64
}

// Command returns the start byte, or false for a partial frame.
func (f Frame) Command() (byte, bool) {
	if f.Partial || len(f.Data) == 0 {
		return 0, false
	}
	return f.Data[0], true
}

// Hex formats the frame as space separated two-digit hex values.
func (f Frame) Hex() string {
	var sb strings.Builder
	for i, b := range f.Data {
		if i > 0 {
			sb.WriteByte(' ')
		}
		fmt.Fprintf(&sb, "%02X", b)
	}
	return sb.String()
}

// Assembler groups decoder events into frames.
type Assembler struct {
	cur     Frame
	started bool
}

// Push consumes one event. It returns the frame completed by a boundary.
// Frames with no data are never returned.
func (a *Assembler) Push(ev Event) (Frame, bool) {
	switch ev.Kind {
	case KindByte:
		if len(a.cur.Data) == 0 {
			a.cur.Offset = ev.Offset
			a.cur.Partial = !ev.FrameStart && !a.started
		}
		a.cur.Data = append(a.cur.Data, ev.Value)
	case KindBoundary:
		a.started = true
		return a.take()
	}
	return Frame{}, false
}

// Flush returns the frame in progress at end of stream.
func (a *Assembler) Flush() (Frame, bool) {
	return a.take()
}

func (a *Assembler) take() (Frame, bool) {
	f := a.cur
	a.cur = Frame{}
	if len(f.Data) == 0 {
		return Frame{}, false
	}
	return f, true
}

// DecodeFrames decodes a complete raw stream and returns its frames along
// with any diagnostic events.
func DecodeFrames(raw []byte) (frames []Frame, diags []Event) {
	var (
		d      Decoder
		a      Assembler
		events []Event
	)
	events = d.Decode(raw, events)
	events = d.Finish(events)
	for _, ev := range events {
		switch ev.Kind {
		case KindMalformedEscape, KindUnresolvedEscape:
			diags = append(diags, ev)
		}
		if f, ok := a.Push(ev); ok {
			frames = append(frames, f)
		}
	}
	if f, ok := a.Flush(); ok {
		frames = append(frames, f)
	}
	return frames, diags
}
