package main

import (
	"bytes"
	"context"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

const capture = `          Cell 01 - Address: 00:11:22:33:44:01
                    Quality=30/70  Signal level=-80 dBm
          Cell 02 - Address: 00:11:22:33:44:02
                    Quality=70/70  Signal level=-30 dBm
          Cell 03 - Address: 00:11:22:33:44:03
                    Quality=50/70  Signal level=-55 dBm
`

func TestRunCommand_FromCaptureFile(t *testing.T) {
	dir := t.TempDir()
	input := filepath.Join(dir, "output.txt")
	output := filepath.Join(dir, "rssi_agg.csv")
	if err := os.WriteFile(input, []byte(capture), 0o644); err != nil {
		t.Fatalf("write capture: %v", err)
	}

	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetArgs([]string{"run", "--config", filepath.Join(dir, "absent.yaml"), "--input", input, "--output", output, "--count", "2", "--quiet=false"})
	if err := rootCmd.Execute(); err != nil {
		t.Fatalf("run: %v", err)
	}

	got, err := os.ReadFile(output)
	if err != nil {
		t.Fatalf("read output: %v", err)
	}
	if string(got) != "73588229122,-30,70\n73588229121,-80,30\n" {
		t.Fatalf("unexpected csv %q", got)
	}
	if !strings.Contains(out.String(), "--------------------") {
		t.Fatalf("ranked table not printed: %q", out.String())
	}
	if !strings.Contains(out.String(), "Data has been stored in") {
		t.Fatalf("missing completion message: %q", out.String())
	}
}

const wantCSV = "73588229122,-30,70\n73588229121,-80,30\n"

// startCommand executes args in the background and returns a func that
// cancels the command and waits for it to exit.
func startCommand(t *testing.T, args ...string) func() {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	rootCmd.SetOut(io.Discard)
	rootCmd.SetArgs(args)
	done := make(chan error, 1)
	go func() { done <- rootCmd.ExecuteContext(ctx) }()
	return func() {
		t.Helper()
		cancel()
		select {
		case err := <-done:
			if err != nil {
				t.Fatalf("%s: %v", args[0], err)
			}
		case <-time.After(5 * time.Second):
			t.Fatalf("%s did not stop after cancel", args[0])
		}
	}
}

// waitForFile polls path until it holds want.
func waitForFile(t *testing.T, path, want string, poke func()) {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for {
		if got, err := os.ReadFile(path); err == nil && string(got) == want {
			return
		}
		if time.Now().After(deadline) {
			got, _ := os.ReadFile(path)
			t.Fatalf("%s never held %q, last %q", path, want, got)
		}
		if poke != nil {
			poke()
		}
		time.Sleep(50 * time.Millisecond)
	}
}

func TestLoopCommand_RerunsEachInterval(t *testing.T) {
	dir := t.TempDir()
	input := filepath.Join(dir, "output.txt")
	output := filepath.Join(dir, "rssi_agg.csv")
	cfgPath := filepath.Join(dir, "config.yaml")
	if err := os.WriteFile(input, []byte(capture), 0o644); err != nil {
		t.Fatalf("write capture: %v", err)
	}
	if err := os.WriteFile(cfgPath, []byte("scan:\n  interval: 20ms\n"), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	stop := startCommand(t, "loop", "--config", cfgPath, "--input", input, "--output", output, "--count", "2", "--quiet")
	defer stop()

	waitForFile(t, output, wantCSV, nil)

	// a later tick writes the summary again
	if err := os.Remove(output); err != nil {
		t.Fatalf("remove output: %v", err)
	}
	waitForFile(t, output, wantCSV, nil)
}

func TestWatchCommand_EmptyCaptureKeepsPreviousCSV(t *testing.T) {
	dir := t.TempDir()
	input := filepath.Join(dir, "output.txt")
	output := filepath.Join(dir, "rssi_agg.csv")
	cfgPath := filepath.Join(dir, "config.yaml")
	if err := os.WriteFile(input, nil, 0o644); err != nil {
		t.Fatalf("seed capture: %v", err)
	}
	if err := os.WriteFile(cfgPath, []byte("scan:\n  settle: 20ms\n"), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	stop := startCommand(t, "watch", "--config", cfgPath, "--input", input, "--output", output, "--count", "2", "--quiet")
	defer stop()

	// The watcher registers asynchronously, so keep rewriting until it runs.
	waitForFile(t, output, wantCSV, func() {
		if err := os.WriteFile(input, []byte(capture), 0o644); err != nil {
			t.Fatalf("write capture: %v", err)
		}
	})

	// the next scan truncates the capture before writing into it
	if err := os.WriteFile(input, nil, 0o644); err != nil {
		t.Fatalf("truncate capture: %v", err)
	}
	time.Sleep(300 * time.Millisecond)

	got, err := os.ReadFile(output)
	if err != nil {
		t.Fatalf("read output: %v", err)
	}
	if string(got) != wantCSV {
		t.Fatalf("empty capture replaced the summary: %q", got)
	}
}
