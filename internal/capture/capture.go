// Package capture records raw bus traffic to files and plays it back.
package capture

import (
	"fmt"
	"io"
	"os"
)

// ChunkReader caps every read at Size bytes, which makes a file replay
// deliver escapes split across reads the way a slow UART does.
type ChunkReader struct {
	R    io.Reader
	Size int
}

func (c *ChunkReader) Read(p []byte) (int, error) {
	if c.Size > 0 && len(p) > c.Size {
		p = p[:c.Size]
	}
	return c.R.Read(p)
}

// Recorder copies every raw byte read from a source into a capture file.
// Idle reads pass through untouched.
type Recorder struct {
	src  io.Reader
	file *os.File
	n    int64
}

// NewRecorder creates (or truncates) path and tees src into it.
func NewRecorder(src io.Reader, path string) (*Recorder, error) {
	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("failed to create capture file: %w", err)
	}
	return &Recorder{src: src, file: f}, nil
}

func (r *Recorder) Read(p []byte) (int, error) {
	n, err := r.src.Read(p)
	if n > 0 {
		if _, werr := r.file.Write(p[:n]); werr != nil && err == nil {
			err = fmt.Errorf("capture write failed: %w", werr)
		}
		r.n += int64(n)
	}
	return n, err
}

// Written returns the number of bytes recorded.
func (r *Recorder) Written() int64 {
	return r.n
}

// Close syncs and closes the capture file. It does not close the source.
func (r *Recorder) Close() error {
	if err := r.file.Sync(); err != nil {
		r.file.Close()
		return err
	}
	return r.file.Close()
}

// Open opens a capture file for replay and returns its size.
func Open(path string) (*os.File, int64, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to open capture: %w", err)
	}
	info, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, 0, fmt.Errorf("failed to stat capture: %w", err)
	}
	return f, info.Size(), nil
}
