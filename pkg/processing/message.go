package processing

import (
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/censys/rssi-agg/pkg/scanning"
)

// Message attributes understood by ParseScanMessage.
const (
	AttrInterface   = "interface"
	AttrCapturedAt  = "captured_at"
	AttrExportCount = "export_count"
)

// ScanMessage is one raw scan capture delivered over Pub/Sub. The message
// body is the filtered iwlist output; metadata travels in attributes.
type ScanMessage struct {
	Interface  string
	CapturedAt time.Time
	// ExportCount overrides the configured export size when non-zero.
	ExportCount int
	Block       scanning.Block
}

// ParseScanMessage buffers the message body and decodes its attributes.
// captured_at is Unix seconds; it defaults to now when absent.
func ParseScanMessage(data []byte, attrs map[string]string) (ScanMessage, error) {
	if len(data) == 0 {
		return ScanMessage{}, errors.New("missing scan data")
	}
	block, err := scanning.ParseBlock(data)
	if err != nil {
		return ScanMessage{}, err
	}

	msg := ScanMessage{
		Interface:  attrs[AttrInterface],
		CapturedAt: time.Now().UTC(),
		Block:      block,
	}
	if v, ok := attrs[AttrCapturedAt]; ok {
		ts, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return ScanMessage{}, fmt.Errorf("decode %s: %w", AttrCapturedAt, err)
		}
		msg.CapturedAt = time.Unix(ts, 0).UTC()
	}
	if v, ok := attrs[AttrExportCount]; ok {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			return ScanMessage{}, fmt.Errorf("decode %s: invalid value %q", AttrExportCount, v)
		}
		msg.ExportCount = n
	}
	return msg, nil
}
