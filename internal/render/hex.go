// Package render turns decoded frames into output.
package render

import (
	"fmt"
	"io"

	"github.com/bigbag/seatalk-reader/internal/parmrk"
	"github.com/bigbag/seatalk-reader/internal/seatalk"
)

// HexWriter prints each decoded byte as soon as it arrives, two hex digits
// separated by spaces, and ends the line when the frame completes.
type HexWriter struct {
	w        io.Writer
	annotate bool
	col      int
}

// NewHexWriter creates a HexWriter. With annotate set, frames the seatalk
// package can describe get the reading appended to their line.
func NewHexWriter(w io.Writer, annotate bool) *HexWriter {
	return &HexWriter{w: w, annotate: annotate}
}

// HandleEvent implements session.Sink.
func (h *HexWriter) HandleEvent(ev parmrk.Event) error {
	if ev.Kind != parmrk.KindByte {
		return nil
	}
	sep := " "
	if h.col == 0 {
		sep = ""
	}
	h.col++
	_, err := fmt.Fprintf(h.w, "%s%02X", sep, ev.Value)
	return err
}

// HandleFrame implements session.Sink.
func (h *HexWriter) HandleFrame(f parmrk.Frame) error {
	h.col = 0
	if h.annotate && !f.Partial {
		if desc := seatalk.Describe(f.Data); desc != "" {
			_, err := fmt.Fprintf(h.w, "    ===> %s\n", desc)
			return err
		}
	}
	_, err := io.WriteString(h.w, "\n")
	return err
}
