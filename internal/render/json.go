package render

import (
	"encoding/json"
	"io"
	"time"

	"github.com/bigbag/seatalk-reader/internal/parmrk"
	"github.com/bigbag/seatalk-reader/internal/seatalk"
)

// FrameRecord is the JSON form of a frame.
type FrameRecord struct {
	Time        time.Time `json:"time"`
	Offset      int64     `json:"offset"`
	Partial     bool      `json:"partial,omitempty"`
	Command     *byte     `json:"command,omitempty"`
	Name        string    `json:"name,omitempty"`
	Hex         string    `json:"hex"`
	Description string    `json:"description,omitempty"`
}

// NewFrameRecord builds the record for f, stamped with now.
func NewFrameRecord(f parmrk.Frame, now time.Time) FrameRecord {
	rec := FrameRecord{
		Time:    now.UTC(),
		Offset:  f.Offset,
		Partial: f.Partial,
		Hex:     f.Hex(),
	}
	if cmd, ok := f.Command(); ok {
		rec.Command = &cmd
		rec.Name = seatalk.CommandName(cmd)
		rec.Description = seatalk.Describe(f.Data)
	}
	return rec
}

// JSONWriter writes one JSON object per frame.
type JSONWriter struct {
	enc *json.Encoder
	now func() time.Time
}

// NewJSONWriter creates a JSONWriter.
func NewJSONWriter(w io.Writer) *JSONWriter {
	return &JSONWriter{enc: json.NewEncoder(w), now: time.Now}
}

// HandleEvent implements session.Sink.
func (j *JSONWriter) HandleEvent(ev parmrk.Event) error {
	return nil
}

// HandleFrame implements session.Sink.
func (j *JSONWriter) HandleFrame(f parmrk.Frame) error {
	return j.enc.Encode(NewFrameRecord(f, j.now()))
}
