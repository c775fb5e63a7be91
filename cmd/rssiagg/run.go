package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/censys/rssi-agg/pkg/config"
	"github.com/censys/rssi-agg/pkg/processing"
	"github.com/censys/rssi-agg/pkg/source"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Capture one scan, rank it and save the summary.",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		p, closeSink, err := buildPipeline(ctx, cmd, cfg)
		if err != nil {
			return err
		}
		defer closeSink()

		if _, err := p.Run(ctx); err != nil {
			return err
		}
		if cfg.Sink.Backend == config.BackendFile {
			fmt.Fprintf(cmd.OutOrStdout(), "Data has been stored in '%s'.\n", cfg.Sink.Path)
		}
		return nil
	},
}

var loopCmd = &cobra.Command{
	Use:   "loop",
	Short: "Run a capture every scan.interval until interrupted.",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		p, closeSink, err := buildPipeline(ctx, cmd, cfg)
		if err != nil {
			return err
		}
		defer closeSink()

		log.Printf("loop started interface=%s interval=%s", cfg.Scan.Interface, cfg.Scan.Interval)
		runLogged(ctx, p)

		ticker := time.NewTicker(cfg.Scan.Interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				log.Printf("loop stopped")
				return nil
			case <-ticker.C:
				runLogged(ctx, p)
			}
		}
	},
}

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Re-run whenever the capture file is rewritten.",
	Long: `watch observes the capture file (--input, or scan.capture_file) and ` +
		`processes it each time another process writes a new scan into it.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		if inputPath == "" {
			inputPath = cfg.Scan.CaptureFile
		}
		p, closeSink, err := buildPipeline(ctx, cmd, cfg)
		if err != nil {
			return err
		}
		defer closeSink()
		p.SkipEmpty = true

		return source.Watch(ctx, inputPath, cfg.Scan.Settle, func(ctx context.Context) error {
			_, err := p.Run(ctx)
			if errors.Is(err, processing.ErrEmptyCapture) {
				log.Printf("capture empty, keeping previous summary path=%s", inputPath)
				return nil
			}
			return err
		})
	},
}

// runLogged runs p once and logs instead of returning failures, so a bad
// scan does not stop the loop.
func runLogged(ctx context.Context, p *processing.Pipeline) {
	if _, err := p.Run(ctx); err != nil && ctx.Err() == nil {
		log.Printf("run failed interface=%s: %v", p.Interface, err)
	}
}
