// Package ranking orders scan records by signal strength.
package ranking

import (
	"cmp"
	"slices"

	"github.com/censys/rssi-agg/pkg/scanning"
)

// BySignal returns a copy of records sorted by Signal, strongest first.
// Records with equal signal keep their input order. The input slice is not
// modified.
func BySignal(records []scanning.ScanRecord) []scanning.ScanRecord {
	ranked := slices.Clone(records)
	if ranked == nil {
		ranked = []scanning.ScanRecord{}
	}
	slices.SortStableFunc(ranked, func(a, b scanning.ScanRecord) int {
		return cmp.Compare(b.Signal, a.Signal)
	})
	return ranked
}
