package processing

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"time"

	"github.com/censys/rssi-agg/pkg/export"
	"github.com/censys/rssi-agg/pkg/metrics"
	"github.com/censys/rssi-agg/pkg/ranking"
	"github.com/censys/rssi-agg/pkg/scanning"
	"github.com/censys/rssi-agg/pkg/source"
	"github.com/censys/rssi-agg/pkg/storage"
)

// ErrEmptyCapture is returned by Run when SkipEmpty is set and the capture
// holds no paired records.
var ErrEmptyCapture = errors.New("capture holds no records")

// Analyze buffers raw, extracts every paired record and ranks them by
// signal. Any malformed record fails the whole call.
func Analyze(raw []byte) ([]scanning.ScanRecord, error) {
	block, err := scanning.ParseBlock(raw)
	if err != nil {
		return nil, err
	}
	return AnalyzeBlock(block)
}

// AnalyzeBlock is Analyze over an already buffered block.
func AnalyzeBlock(block scanning.Block) ([]scanning.ScanRecord, error) {
	records, err := scanning.ExtractAll(block)
	if err != nil {
		return nil, fmt.Errorf("extract records: %w", err)
	}
	return ranking.BySignal(records), nil
}

// ResolveCount returns configured, or half of n when configured is zero.
func ResolveCount(configured, n int) int {
	if configured != 0 {
		return configured
	}
	return n / 2
}

// Export selects the bounded subset of ranked and saves it to sink. The
// ranked slice is left untouched so a failed export can be retried.
func Export(ctx context.Context, sink storage.Sink, ranked []scanning.ScanRecord, toWrite int, iface string, at time.Time) (storage.Summary, error) {
	summary, err := export.Select(ranked, toWrite)
	if err != nil {
		return storage.Summary{}, err
	}
	summary.Interface = iface
	summary.CapturedAt = at.UTC()
	if err := sink.SaveSummary(ctx, summary); err != nil {
		return storage.Summary{}, fmt.Errorf("save summary: %w", err)
	}
	return summary, nil
}

// Report is the outcome of one Pipeline run.
type Report struct {
	Ranked       []scanning.ScanRecord
	Summary      storage.Summary
	ScanDuration time.Duration
}

// Pipeline wires a scan source to a sink: capture, extract, rank, export.
type Pipeline struct {
	Source    source.Source
	Sink      storage.Sink
	Interface string
	// ExportCount is the requested export size; zero exports half the
	// ranked records.
	ExportCount int
	// Display, when set, receives the full ranked table.
	Display io.Writer
	// MetricsPath, when set, receives a Prometheus textfile after each
	// successful run.
	MetricsPath string
	// SkipEmpty makes Run return ErrEmptyCapture instead of exporting an
	// empty summary over the previous one. Watchers set it because a capture
	// file is truncated before the next scan is written into it.
	SkipEmpty bool

	now func() time.Time
}

func (p *Pipeline) clock() time.Time {
	if p.now != nil {
		return p.now()
	}
	return time.Now()
}

// Run performs one capture and export. On an export failure the returned
// Report still carries the ranked records.
func (p *Pipeline) Run(ctx context.Context) (Report, error) {
	var rep Report

	start := p.clock()
	raw, err := p.Source.Capture(ctx)
	rep.ScanDuration = p.clock().Sub(start)
	if err != nil {
		return rep, fmt.Errorf("capture: %w", err)
	}

	ranked, err := Analyze(raw)
	if err != nil {
		return rep, err
	}
	rep.Ranked = ranked
	if p.SkipEmpty && len(ranked) == 0 {
		return rep, ErrEmptyCapture
	}
	log.Printf("scan analyzed interface=%s access_points=%d scan_duration=%s", p.Interface, len(ranked), rep.ScanDuration)

	if p.Display != nil {
		if err := export.Display(p.Display, ranked); err != nil {
			log.Printf("display failed: %v", err)
		}
	}

	toWrite := ResolveCount(p.ExportCount, len(ranked))
	summary, err := Export(ctx, p.Sink, ranked, toWrite, p.Interface, start)
	if err != nil {
		return rep, err
	}
	rep.Summary = summary
	log.Printf("summary saved interface=%s exported=%d", p.Interface, len(summary.Records()))

	if p.MetricsPath != "" {
		if err := metrics.WriteTextfile(p.MetricsPath, rep.Stats(p.Interface, p.clock())); err != nil {
			log.Printf("metrics textfile not written path=%s: %v", p.MetricsPath, err)
		}
	}
	return rep, nil
}

// Stats summarizes the report for the metrics textfile.
func (r Report) Stats(iface string, completedAt time.Time) metrics.RunStats {
	stats := metrics.RunStats{
		Interface:    iface,
		AccessPoints: len(r.Ranked),
		Exported:     len(r.Summary.Records()),
		ScanDuration: r.ScanDuration,
		CompletedAt:  completedAt,
	}
	if n := len(r.Ranked); n > 0 {
		stats.Strongest = r.Ranked[0].Signal
		stats.Weakest = r.Ranked[n-1].Signal
	}
	return stats
}
