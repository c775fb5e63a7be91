package source

import (
	"context"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"
	"time"
)

const iwlistOutput = `wlan0     Scan completed :
          Cell 01 - Address: 00:11:22:33:44:55
                    Channel:6
                    Frequency:2.437 GHz (Channel 6)
                    Quality=70/70  Signal level=-30 dBm
                    Encryption key:on
                    ESSID:"home"
          Cell 02 - Address: 66:77:88:99:AA:BB
                    Channel:11
                    Quality=40/70  Signal level=-70 dBm
                    ESSID:"cafe"
`

func TestFilterScanOutput(t *testing.T) {
	got := string(FilterScanOutput([]byte(iwlistOutput)))
	lines := strings.Split(strings.TrimSuffix(got, "\n"), "\n")
	if len(lines) != 4 {
		t.Fatalf("got %d lines: %q", len(lines), got)
	}
	if !strings.Contains(lines[0], "Address: 00:11:22:33:44:55") ||
		!strings.Contains(lines[1], "Quality=70/70") ||
		!strings.Contains(lines[2], "Address: 66:77:88:99:AA:BB") ||
		!strings.Contains(lines[3], "Quality=40/70") {
		t.Fatalf("unexpected filtered output %q", got)
	}
}

func TestFileSource(t *testing.T) {
	path := filepath.Join(t.TempDir(), "output.txt")
	if err := os.WriteFile(path, []byte("abc\n"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	got, err := FileSource{Path: path}.Capture(context.Background())
	if err != nil {
		t.Fatalf("Capture: %v", err)
	}
	if string(got) != "abc\n" {
		t.Fatalf("got %q", got)
	}

	if _, err := (FileSource{Path: path + ".missing"}).Capture(context.Background()); err == nil {
		t.Fatalf("expected error for missing file")
	}
}

func TestCommandSource_FiltersAndSaves(t *testing.T) {
	saveTo := filepath.Join(t.TempDir(), "output.txt")
	var gotArgs []string
	s := NewCommandSource("wlan7", time.Second)
	s.SaveTo = saveTo
	s.command = func(ctx context.Context, name string, args ...string) *exec.Cmd {
		gotArgs = append([]string{name}, args...)
		cmd := exec.CommandContext(ctx, "cat", "-")
		cmd.Stdin = strings.NewReader(iwlistOutput)
		return cmd
	}

	out, err := s.Capture(context.Background())
	if err != nil {
		t.Fatalf("Capture: %v", err)
	}
	if strings.Join(gotArgs, " ") != "iwlist wlan7 scanning" {
		t.Fatalf("unexpected command %q", gotArgs)
	}
	if strings.Count(string(out), "\n") != 4 {
		t.Fatalf("expected 4 filtered lines, got %q", out)
	}
	saved, err := os.ReadFile(saveTo)
	if err != nil {
		t.Fatalf("read saved capture: %v", err)
	}
	if string(saved) != string(out) {
		t.Fatalf("saved capture differs: %q vs %q", saved, out)
	}
}

func TestCommandSource_Failure(t *testing.T) {
	s := NewCommandSource("wlan0", time.Second)
	s.command = func(ctx context.Context, name string, args ...string) *exec.Cmd {
		return exec.CommandContext(ctx, "sh", "-c", "echo 'Interface does not support scanning' >&2; exit 1")
	}
	_, err := s.Capture(context.Background())
	if err == nil {
		t.Fatalf("expected error")
	}
	if !strings.Contains(err.Error(), "support scanning") {
		t.Fatalf("stderr not included in error: %v", err)
	}
}

func TestWatch_CallsOnWrite(t *testing.T) {
	path := filepath.Join(t.TempDir(), "output.txt")
	if err := os.WriteFile(path, nil, 0o644); err != nil {
		t.Fatalf("seed: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var calls atomic.Int32
	done := make(chan error, 1)
	go func() {
		done <- Watch(ctx, path, 10*time.Millisecond, func(context.Context) error {
			calls.Add(1)
			return nil
		})
	}()

	// The watcher registers asynchronously, so keep writing until it fires.
	deadline := time.Now().Add(5 * time.Second)
	for calls.Load() == 0 {
		if time.Now().After(deadline) {
			t.Fatalf("onChange never called")
		}
		if err := os.WriteFile(path, []byte("x\n"), 0o644); err != nil {
			t.Fatalf("write: %v", err)
		}
		time.Sleep(50 * time.Millisecond)
	}

	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("Watch returned %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatalf("Watch did not stop after cancel")
	}
}

func TestWatch_CoalescesBurst(t *testing.T) {
	path := filepath.Join(t.TempDir(), "output.txt")
	if err := os.WriteFile(path, nil, 0o644); err != nil {
		t.Fatalf("seed: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	const settle = 200 * time.Millisecond
	var calls atomic.Int32
	done := make(chan error, 1)
	go func() {
		done <- Watch(ctx, path, settle, func(context.Context) error {
			calls.Add(1)
			return nil
		})
	}()

	// Wait for the watcher to be live.
	deadline := time.Now().Add(5 * time.Second)
	for calls.Load() == 0 {
		if time.Now().After(deadline) {
			t.Fatalf("onChange never called")
		}
		if err := os.WriteFile(path, []byte("x\n"), 0o644); err != nil {
			t.Fatalf("write: %v", err)
		}
		time.Sleep(3 * settle)
	}
	calls.Store(0)

	// A scan streamed into the file: truncate, then append line by line.
	f, err := os.Create(path)
	if err != nil {
		t.Fatalf("truncate: %v", err)
	}
	for _, line := range strings.SplitAfter(iwlistOutput, "\n") {
		if _, err := f.WriteString(line); err != nil {
			t.Fatalf("append: %v", err)
		}
		time.Sleep(10 * time.Millisecond)
	}
	if err := f.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	time.Sleep(3 * settle)
	if got := calls.Load(); got != 1 {
		t.Fatalf("onChange called %d times for one burst, want 1", got)
	}

	cancel()
	if err := <-done; err != nil {
		t.Fatalf("Watch returned %v", err)
	}
}
