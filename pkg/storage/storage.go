package storage

import (
	"context"
	"time"

	"github.com/censys/rssi-agg/pkg/scanning"
)

// Summary is the bounded export of one ranked scan: the strongest and the
// weakest access points.
type Summary struct {
	CapturedAt time.Time
	Interface  string
	Top        []scanning.ScanRecord
	Bottom     []scanning.ScanRecord
}

// Records returns Top followed by Bottom, the order the summary is written in.
func (s Summary) Records() []scanning.ScanRecord {
	out := make([]scanning.ScanRecord, 0, len(s.Top)+len(s.Bottom))
	out = append(out, s.Top...)
	return append(out, s.Bottom...)
}

// Sink persists summaries. Saving replaces whatever the sink held before.
type Sink interface {
	SaveSummary(ctx context.Context, summary Summary) error
}
