// Package parmrk decodes byte streams produced by a UART running with stick
// parity and parity marking, where the 9th data bit arrives as an escape
// sequence in front of the marked byte.
package parmrk

import "fmt"

const (
	Esc    = 0xFF // escape introducer
	Mark   = 0x00 // Esc Mark <b>: b carried the 9th bit
	EscEsc = 0xFF // Esc EscEsc: literal 0xFF
)

// State is the escape state carried between bytes.
type State int

const (
	StateNormal State = iota
	StateEscapeSeen
	// StateMarkSeen follows Esc Mark. The next byte is the start byte and
	// is taken literally, 0xFF included.
	StateMarkSeen
)

func (s State) String() string {
	switch s {
	case StateNormal:
		return "normal"
	case StateEscapeSeen:
		return "escape-seen"
	case StateMarkSeen:
		return "mark-seen"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

// Kind identifies a decoder event.
type Kind int

const (
	// KindByte is a decoded data byte.
	KindByte Kind = iota
	// KindBoundary ends the current frame. The next KindByte starts a new one.
	KindBoundary
	// KindMalformedEscape reports Esc followed by a byte other than Mark or
	// EscEsc. Value holds that byte, Offset points at the discarded Esc.
	KindMalformedEscape
	// KindUnresolvedEscape reports a stream that ended right after Esc.
	KindUnresolvedEscape
)

func (k Kind) String() string {
	switch k {
	case KindByte:
		return "byte"
	case KindBoundary:
		return "boundary"
	case KindMalformedEscape:
		return "malformed-escape"
	case KindUnresolvedEscape:
		return "unresolved-escape"
	default:
		return fmt.Sprintf("Kind(%d)", int(k))
	}
}

// Event is a single decoder output.
type Event struct {
	Kind       Kind
	Value      byte
	FrameStart bool
	// Offset is the raw stream position of the byte that produced the event.
	Offset int64
}

func (e Event) String() string {
	switch e.Kind {
	case KindByte:
		if e.FrameStart {
			return fmt.Sprintf("byte(0x%02X, start)@%d", e.Value, e.Offset)
		}
		return fmt.Sprintf("byte(0x%02X)@%d", e.Value, e.Offset)
	case KindMalformedEscape:
		return fmt.Sprintf("malformed-escape(0xFF 0x%02X)@%d", e.Value, e.Offset)
	default:
		return fmt.Sprintf("%s@%d", e.Kind, e.Offset)
	}
}

// Decoder is the escape state machine. It keeps its state between calls so
// an escape split across two reads decodes the same as one read whole.
// A Decoder must not be fed from more than one goroutine.
type Decoder struct {
	state State
	// escOffset is where the pending Esc was seen.
	escOffset int64
	offset    int64
}

// NewDecoder returns a decoder at the start of a stream.
func NewDecoder() *Decoder {
	return &Decoder{}
}

// State returns the current escape state.
func (d *Decoder) State() State {
	return d.state
}

// Offset returns the number of raw bytes consumed so far.
func (d *Decoder) Offset() int64 {
	return d.offset
}

// Reset returns the decoder to the start-of-stream state.
func (d *Decoder) Reset() {
	*d = Decoder{}
}

// Feed consumes one raw byte and appends the resulting events to events.
// At most two events are appended per byte.
func (d *Decoder) Feed(b byte, events []Event) []Event {
	pos := d.offset
	d.offset++

	switch d.state {
	case StateMarkSeen:
		d.state = StateNormal
		return append(events, Event{Kind: KindByte, Value: b, FrameStart: true, Offset: pos})
	case StateEscapeSeen:
		return d.escape(b, pos, events)
	}

	if b == Esc {
		d.state = StateEscapeSeen
		d.escOffset = pos
		return events
	}
	return append(events, Event{Kind: KindByte, Value: b, Offset: pos})
}

func (d *Decoder) escape(b byte, pos int64, events []Event) []Event {
	switch b {
	case Mark:
		d.state = StateMarkSeen
		return append(events, Event{Kind: KindBoundary, Offset: d.escOffset})
	case EscEsc:
		d.state = StateNormal
		return append(events, Event{Kind: KindByte, Value: Esc, Offset: d.escOffset})
	default:
		d.state = StateNormal
		return append(events,
			Event{Kind: KindMalformedEscape, Value: b, Offset: d.escOffset},
			Event{Kind: KindByte, Value: b, Offset: pos},
		)
	}
}

// Decode feeds every byte of chunk.
func (d *Decoder) Decode(chunk []byte, events []Event) []Event {
	for _, b := range chunk {
		events = d.Feed(b, events)
	}
	return events
}

// Finish marks the end of the stream and returns the decoder to
// StateNormal. A pending Esc is reported once as KindUnresolvedEscape. A
// marker with no start byte after it is complete as it stands and reports
// nothing.
func (d *Decoder) Finish(events []Event) []Event {
	pending := d.state == StateEscapeSeen
	d.state = StateNormal
	if !pending {
		return events
	}
	return append(events, Event{Kind: KindUnresolvedEscape, Offset: d.escOffset})
}
