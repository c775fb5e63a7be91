// Package export selects the bounded top/bottom subset of a ranked scan and
// renders it as CSV or as the console table.
package export

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/censys/rssi-agg/pkg/scanning"
	"github.com/censys/rssi-agg/pkg/storage"
)

var (
	// ErrInsufficientRecords is returned when more records are requested
	// than were ranked.
	ErrInsufficientRecords = errors.New("insufficient records")
	// ErrInvalidCount is returned for a negative export count.
	ErrInvalidCount = errors.New("invalid export count")
	// ErrSinkUnavailable is returned by sinks that cannot open their
	// destination for writing.
	ErrSinkUnavailable = errors.New("sink unavailable")
)

const separator = "--------------------"

// EvenCount rounds toWrite up to the nearest even number.
func EvenCount(toWrite int) int {
	return toWrite + toWrite%2
}

// Select returns the first K/2 and last K/2 records of ranked, where K is
// toWrite rounded up to an even number. ranked is not modified and the
// returned slices do not alias it.
func Select(ranked []scanning.ScanRecord, toWrite int) (storage.Summary, error) {
	if toWrite < 0 {
		return storage.Summary{}, fmt.Errorf("%w: %d", ErrInvalidCount, toWrite)
	}
	k := EvenCount(toWrite)
	n := len(ranked)
	if k > n {
		return storage.Summary{}, fmt.Errorf("%w: requested %d, ranked %d", ErrInsufficientRecords, k, n)
	}
	half := k / 2
	top := make([]scanning.ScanRecord, half)
	copy(top, ranked[:half])
	bottom := make([]scanning.ScanRecord, half)
	copy(bottom, ranked[n-half:])
	return storage.Summary{Top: top, Bottom: bottom}, nil
}

// FormatCSV renders one record as "address,signal,quality" with a newline.
func FormatCSV(r scanning.ScanRecord) string {
	return fmt.Sprintf("%d,%d,%d\n", r.Address, r.Signal, r.Quality)
}

// WriteCSV writes records to w, one FormatCSV line each, without a header.
func WriteCSV(w io.Writer, records []scanning.ScanRecord) error {
	var b strings.Builder
	for _, r := range records {
		b.WriteString(FormatCSV(r))
	}
	_, err := io.WriteString(w, b.String())
	return err
}

// FormatDisplay renders one record as a fixed-width console row.
func FormatDisplay(r scanning.ScanRecord) string {
	return fmt.Sprintf("%020d: %d/70\t%d dBm\n", r.Address, r.Quality, r.Signal)
}

// Display writes records as a table framed by separator lines.
func Display(w io.Writer, records []scanning.ScanRecord) error {
	var b strings.Builder
	b.WriteString(separator + "\n")
	for _, r := range records {
		b.WriteString(FormatDisplay(r))
	}
	b.WriteString(separator + "\n")
	_, err := io.WriteString(w, b.String())
	return err
}
