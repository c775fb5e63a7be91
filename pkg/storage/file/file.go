// Package file persists summaries as CSV to a file path or an open stream.
package file

import (
	"context"
	"fmt"
	"io"
	"os"
	"sync"

	"github.com/censys/rssi-agg/pkg/export"
	"github.com/censys/rssi-agg/pkg/storage"
)

// Sink writes each summary as CSV, replacing the previous content of its
// destination.
type Sink struct {
	mu   sync.Mutex
	path string
	w    io.Writer
}

// NewSink returns a Sink that truncates and rewrites path on every save.
func NewSink(path string) *Sink {
	return &Sink{path: path}
}

// NewWriterSink returns a Sink that appends every summary to w. Callers own w.
func NewWriterSink(w io.Writer) *Sink {
	return &Sink{w: w}
}

// Path returns the destination file, or "" for a stream sink.
func (s *Sink) Path() string { return s.path }

// SaveSummary writes summary.Records() as "address,signal,quality" lines.
func (s *Sink) SaveSummary(ctx context.Context, summary storage.Summary) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.w != nil {
		if err := export.WriteCSV(s.w, summary.Records()); err != nil {
			return fmt.Errorf("write summary: %w", err)
		}
		return nil
	}

	f, err := os.Create(s.path)
	if err != nil {
		return fmt.Errorf("%w: open %q: %v", export.ErrSinkUnavailable, s.path, err)
	}
	if err := export.WriteCSV(f, summary.Records()); err != nil {
		f.Close()
		return fmt.Errorf("write summary to %q: %w", s.path, err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("close %q: %w", s.path, err)
	}
	return nil
}
