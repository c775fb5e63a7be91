package scanning

import (
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

var (
	// ErrMalformedAddress is returned when an address line does not carry
	// exactly six two-digit hex octets after its first colon.
	ErrMalformedAddress = errors.New("malformed address")
	// ErrMalformedQualityLine is returned when a quality line does not match
	// "Quality=<int>/70 Signal level=<int> dBm".
	ErrMalformedQualityLine = errors.New("malformed quality line")
	// ErrTruncatedInput is returned when a record's lines are missing.
	ErrTruncatedInput = errors.New("truncated input")
)

const addressOctets = 6

// ScanRecord holds the measurements reported for one access point.
type ScanRecord struct {
	Address uint64
	Quality int
	Signal  int
}

// qualityLine follows scanf whitespace rules: any run of blanks matches a
// single space in " Quality=%d/70 Signal level=%d dBm".
var qualityLine = regexp.MustCompile(`^\s*Quality=([+-]?\d+)/70\s+Signal level=([+-]?\d+) dBm\s*$`)

// ParseAddress extracts the hardware address that follows the first ':' of
// line and packs it big-endian into the low 48 bits of the result.
func ParseAddress(line string) (uint64, error) {
	line = trimEOL(line)
	idx := strings.IndexByte(line, ':')
	if idx < 0 {
		return 0, fmt.Errorf("%w: no separator in %q", ErrMalformedAddress, line)
	}
	// skip the separator and the blank after it
	if idx+2 > len(line) {
		return 0, fmt.Errorf("%w: empty address in %q", ErrMalformedAddress, line)
	}
	payload := line[idx+2:]

	octets := strings.Split(payload, ":")
	if len(octets) != addressOctets {
		return 0, fmt.Errorf("%w: want %d octets, got %d in %q", ErrMalformedAddress, addressOctets, len(octets), payload)
	}

	var addr uint64
	for _, o := range octets {
		if len(o) != 2 {
			return 0, fmt.Errorf("%w: octet %q is not two hex digits", ErrMalformedAddress, o)
		}
		b, err := strconv.ParseUint(o, 16, 8)
		if err != nil {
			return 0, fmt.Errorf("%w: octet %q: %v", ErrMalformedAddress, o, err)
		}
		addr = addr<<8 | b
	}
	return addr, nil
}

// FormatAddress renders the low 48 bits of addr as AA:BB:CC:DD:EE:FF.
func FormatAddress(addr uint64) string {
	var b strings.Builder
	for i := addressOctets - 1; i >= 0; i-- {
		fmt.Fprintf(&b, "%02X", byte(addr>>(8*uint(i))))
		if i > 0 {
			b.WriteByte(':')
		}
	}
	return b.String()
}

// ParseQuality extracts the quality score and signal level from a quality line.
func ParseQuality(line string) (quality, signal int, err error) {
	m := qualityLine.FindStringSubmatch(trimEOL(line))
	if m == nil {
		return 0, 0, fmt.Errorf("%w: %q", ErrMalformedQualityLine, trimEOL(line))
	}
	if quality, err = strconv.Atoi(m[1]); err != nil {
		return 0, 0, fmt.Errorf("%w: quality: %v", ErrMalformedQualityLine, err)
	}
	if signal, err = strconv.Atoi(m[2]); err != nil {
		return 0, 0, fmt.Errorf("%w: signal: %v", ErrMalformedQualityLine, err)
	}
	return quality, signal, nil
}

// ParseRecord builds a ScanRecord from an address line and the quality line
// that follows it. Quality is not range-checked against the 0-70 scale.
func ParseRecord(addrLine, qualityLine string) (ScanRecord, error) {
	addr, err := ParseAddress(addrLine)
	if err != nil {
		return ScanRecord{}, err
	}
	quality, signal, err := ParseQuality(qualityLine)
	if err != nil {
		return ScanRecord{}, err
	}
	return ScanRecord{Address: addr, Quality: quality, Signal: signal}, nil
}

func trimEOL(line string) string {
	line = strings.TrimSuffix(line, "\n")
	return strings.TrimSuffix(line, "\r")
}
