package render

import (
	"github.com/bigbag/seatalk-reader/internal/parmrk"
	"github.com/bigbag/seatalk-reader/internal/session"
)

// Multi fans events and frames out to several sinks, stopping at the first
// error.
type Multi []session.Sink

// HandleEvent implements session.Sink.
func (m Multi) HandleEvent(ev parmrk.Event) error {
	for _, s := range m {
		if err := s.HandleEvent(ev); err != nil {
			return err
		}
	}
	return nil
}

// HandleFrame implements session.Sink.
func (m Multi) HandleFrame(f parmrk.Frame) error {
	for _, s := range m {
		if err := s.HandleFrame(f); err != nil {
			return err
		}
	}
	return nil
}
