// Package metrics writes the outcome of the last run as a Prometheus
// textfile, suitable for the node_exporter textfile collector.
package metrics

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"time"

	dto "github.com/prometheus/client_model/go"
	"github.com/prometheus/common/expfmt"
	"google.golang.org/protobuf/proto"
)

// Metric names written to the textfile.
const (
	MetricAccessPoints    = "rssi_agg_access_points"
	MetricExported        = "rssi_agg_exported_records"
	MetricScanDuration    = "rssi_agg_scan_duration_seconds"
	MetricSignalStrongest = "rssi_agg_signal_strongest_dbm"
	MetricSignalWeakest   = "rssi_agg_signal_weakest_dbm"
	MetricLastRun         = "rssi_agg_last_run_timestamp_seconds"
)

// RunStats describes one completed pipeline run.
type RunStats struct {
	Interface    string
	AccessPoints int
	Exported     int
	ScanDuration time.Duration
	// Strongest and Weakest are only written when AccessPoints > 0.
	Strongest   int
	Weakest     int
	CompletedAt time.Time
}

// Families converts stats into gauge metric families labelled by interface.
func Families(stats RunStats) []*dto.MetricFamily {
	fams := []*dto.MetricFamily{
		gauge(MetricAccessPoints, "Access points parsed from the last scan.", stats.Interface, float64(stats.AccessPoints)),
		gauge(MetricExported, "Records written by the last bounded export.", stats.Interface, float64(stats.Exported)),
		gauge(MetricScanDuration, "Wall time taken by the scan command.", stats.Interface, stats.ScanDuration.Seconds()),
	}
	if stats.AccessPoints > 0 {
		fams = append(fams,
			gauge(MetricSignalStrongest, "Strongest signal level seen in the last scan.", stats.Interface, float64(stats.Strongest)),
			gauge(MetricSignalWeakest, "Weakest signal level seen in the last scan.", stats.Interface, float64(stats.Weakest)),
		)
	}
	fams = append(fams,
		gauge(MetricLastRun, "Unix time the last run completed.", stats.Interface, float64(stats.CompletedAt.UnixNano())/1e9))
	return fams
}

// WriteTextfile renders stats in the Prometheus text format and replaces path
// atomically so the collector never reads a partial file.
func WriteTextfile(path string, stats RunStats) error {
	var buf bytes.Buffer
	for _, mf := range Families(stats) {
		if _, err := expfmt.MetricFamilyToText(&buf, mf); err != nil {
			return fmt.Errorf("encode %s: %w", mf.GetName(), err)
		}
	}

	tmp, err := os.CreateTemp(filepath.Dir(path), filepath.Base(path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("create metrics temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(buf.Bytes()); err != nil {
		tmp.Close()
		return fmt.Errorf("write metrics: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close metrics: %w", err)
	}
	if err := os.Chmod(tmp.Name(), 0o644); err != nil {
		return fmt.Errorf("chmod metrics: %w", err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("replace metrics file: %w", err)
	}
	return nil
}

func gauge(name, help, iface string, v float64) *dto.MetricFamily {
	m := &dto.Metric{Gauge: &dto.Gauge{Value: proto.Float64(v)}}
	if iface != "" {
		m.Label = []*dto.LabelPair{{Name: proto.String("interface"), Value: proto.String(iface)}}
	}
	return &dto.MetricFamily{
		Name:   proto.String(name),
		Help:   proto.String(help),
		Type:   dto.MetricType_GAUGE.Enum(),
		Metric: []*dto.Metric{m},
	}
}
