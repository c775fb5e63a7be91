package scanning

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"io"
	"strings"
)

const maxLineSize = 64 * 1024

// Block is a scan capture buffered in memory, one entry per line with the
// line terminator removed. Even lines (0-based) are address lines and odd
// lines are quality lines.
type Block struct {
	lines []string
}

// NewBlock wraps lines without copying them. Callers must not modify lines
// afterwards.
func NewBlock(lines []string) Block {
	return Block{lines: lines}
}

// ReadBlock reads r to EOF and returns its lines. A line longer than 64 KiB
// is reported as a malformed address or quality line depending on its
// position.
func ReadBlock(r io.Reader) (Block, error) {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 4096), maxLineSize)
	var lines []string
	for sc.Scan() {
		lines = append(lines, strings.TrimSuffix(sc.Text(), "\r"))
	}
	if err := sc.Err(); err != nil {
		if errors.Is(err, bufio.ErrTooLong) {
			kind := ErrMalformedAddress
			if len(lines)%2 == 1 {
				kind = ErrMalformedQualityLine
			}
			return Block{}, fmt.Errorf("record at line %d: %w: longer than %d bytes", len(lines)+1, kind, maxLineSize)
		}
		return Block{}, fmt.Errorf("read scan block: %w", err)
	}
	return Block{lines: lines}, nil
}

// ParseBlock is ReadBlock over an in-memory capture.
func ParseBlock(raw []byte) (Block, error) {
	return ReadBlock(bytes.NewReader(raw))
}

// Len returns the number of lines in the block.
func (b Block) Len() int { return len(b.lines) }

// Count returns the number of paired records in the block. A trailing
// unpaired line is ignored.
func (b Block) Count() int {
	return CountRecords(b.lines)
}

// CountRecords returns floor(len(lines)/2).
func CountRecords(lines []string) int {
	return len(lines) / 2
}

// Cursor reads records from a Block two lines at a time.
type Cursor struct {
	block Block
	pos   int
}

// NewCursor returns a Cursor positioned at the first line of b.
func NewCursor(b Block) *Cursor {
	return &Cursor{block: b}
}

// Next parses the record at the current position and advances past its two
// lines. It returns ErrTruncatedInput if fewer than two lines remain.
func (c *Cursor) Next() (ScanRecord, error) {
	if c.block.Len()-c.pos < 2 {
		return ScanRecord{}, fmt.Errorf("%w: record at line %d needs 2 lines, %d left",
			ErrTruncatedInput, c.pos+1, c.block.Len()-c.pos)
	}
	addrLine, qualLine := c.block.lines[c.pos], c.block.lines[c.pos+1]
	start := c.pos + 1
	c.pos += 2

	rec, err := ParseRecord(addrLine, qualLine)
	if err != nil {
		return ScanRecord{}, fmt.Errorf("record at line %d: %w", start, err)
	}
	return rec, nil
}

// Extract reads n records from the start of b. Any failure aborts the whole
// extraction and no records are returned.
func Extract(b Block, n int) ([]ScanRecord, error) {
	cur := NewCursor(b)
	records := make([]ScanRecord, 0, n)
	for i := 0; i < n; i++ {
		rec, err := cur.Next()
		if err != nil {
			return nil, err
		}
		records = append(records, rec)
	}
	return records, nil
}

// ExtractAll counts the records in b and extracts all of them.
func ExtractAll(b Block) ([]ScanRecord, error) {
	return Extract(b, b.Count())
}
