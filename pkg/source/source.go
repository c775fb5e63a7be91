// Package source captures raw wireless scan output.
//
// CommandSource runs `iwlist <iface> scanning` and keeps only the address and
// quality lines, the same filtering as `egrep 'Quality|Address'`. FileSource
// reads a capture that was produced elsewhere. Watch re-triggers a callback
// whenever a capture file is rewritten.
package source

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"strings"
	"time"
)

// Source produces one raw scan capture per call.
type Source interface {
	Capture(ctx context.Context) ([]byte, error)
}

// CommandSource captures scans by running iwlist.
type CommandSource struct {
	Interface string
	Timeout   time.Duration

	// SaveTo, when set, receives a copy of every filtered capture.
	SaveTo string

	// command is swapped in tests.
	command func(ctx context.Context, name string, args ...string) *exec.Cmd
}

// NewCommandSource returns a CommandSource for iface.
func NewCommandSource(iface string, timeout time.Duration) *CommandSource {
	return &CommandSource{Interface: iface, Timeout: timeout, command: exec.CommandContext}
}

// Capture runs the scan and returns its filtered output.
func (s *CommandSource) Capture(ctx context.Context) ([]byte, error) {
	if s.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.Timeout)
		defer cancel()
	}
	command := s.command
	if command == nil {
		command = exec.CommandContext
	}

	cmd := command(ctx, "iwlist", s.Interface, "scanning")
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	out, err := cmd.Output()
	if err != nil {
		if msg := strings.TrimSpace(stderr.String()); msg != "" {
			return nil, fmt.Errorf("iwlist %s scanning: %w: %s", s.Interface, err, msg)
		}
		return nil, fmt.Errorf("iwlist %s scanning: %w", s.Interface, err)
	}

	filtered := FilterScanOutput(out)
	if s.SaveTo != "" {
		if err := os.WriteFile(s.SaveTo, filtered, 0o644); err != nil {
			return nil, fmt.Errorf("save capture %q: %w", s.SaveTo, err)
		}
	}
	return filtered, nil
}

// FileSource reads a previously written capture.
type FileSource struct {
	Path string
}

// Capture returns the content of the file.
func (s FileSource) Capture(ctx context.Context) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	data, err := os.ReadFile(s.Path)
	if err != nil {
		return nil, fmt.Errorf("read capture: %w", err)
	}
	return data, nil
}

// FilterScanOutput keeps the lines of raw iwlist output that mention
// "Quality" or "Address", in order, each terminated by a newline.
func FilterScanOutput(raw []byte) []byte {
	var out bytes.Buffer
	sc := bufio.NewScanner(bytes.NewReader(raw))
	for sc.Scan() {
		line := sc.Text()
		if strings.Contains(line, "Quality") || strings.Contains(line, "Address") {
			out.WriteString(line)
			out.WriteByte('\n')
		}
	}
	return out.Bytes()
}
