package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/censys/rssi-agg/pkg/config"
	"github.com/censys/rssi-agg/pkg/processing"
	"github.com/censys/rssi-agg/pkg/source"
)

var (
	configPath string
	inputPath  string
	outputPath string
	count      int
	quiet      bool
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "rssiagg",
	Short: "Rank nearby access points by signal strength and keep the extremes.",
	Long: `rssiagg captures "iwlist <iface> scanning" output, ranks the access ` +
		`points it finds by signal level and saves the strongest and weakest ` +
		`entries as CSV or to Postgres.`,
	SilenceUsage: true,
}

// Execute adds all child commands to the root command and sets flags
// appropriately.
func Execute() {
	if err := rootCmd.ExecuteContext(context.Background()); err != nil {
		os.Exit(1)
	}
}

func init() {
	pf := rootCmd.PersistentFlags()
	pf.StringVarP(&configPath, "config", "c", os.Getenv("RSSI_CONFIG"), "path to config file")
	pf.StringVarP(&inputPath, "input", "i", "", "read a capture file instead of running iwlist")
	pf.StringVarP(&outputPath, "output", "o", "", "CSV destination (overrides sink.path)")
	pf.IntVarP(&count, "count", "n", -1, "records to export, rounded up to even (0 = half of those found)")
	pf.BoolVarP(&quiet, "quiet", "q", false, "do not print the ranked table")

	rootCmd.AddCommand(runCmd, loopCmd, watchCmd)
}

// loadConfig loads the config file and applies command-line overrides.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}
	if cmd.Flags().Changed("output") {
		cfg.Sink.Backend = config.BackendFile
		cfg.Sink.Path = outputPath
	}
	if cmd.Flags().Changed("count") {
		if count < 0 {
			return nil, fmt.Errorf("--count must not be negative")
		}
		cfg.Export.Count = count
	}
	return cfg, nil
}

// buildPipeline wires a Pipeline from cfg. The close func releases the sink.
func buildPipeline(ctx context.Context, cmd *cobra.Command, cfg *config.Config) (*processing.Pipeline, func(), error) {
	sink, closeSink, err := processing.OpenSink(ctx, cfg.Sink)
	if err != nil {
		return nil, nil, err
	}

	var src source.Source
	if inputPath != "" {
		src = source.FileSource{Path: inputPath}
	} else {
		cs := source.NewCommandSource(cfg.Scan.Interface, cfg.Scan.Timeout)
		cs.SaveTo = cfg.Scan.CaptureFile
		src = cs
	}

	p := &processing.Pipeline{
		Source:      src,
		Sink:        sink,
		Interface:   cfg.Scan.Interface,
		ExportCount: cfg.Export.Count,
		MetricsPath: cfg.Metrics.Path,
	}
	if !quiet {
		p.Display = cmd.OutOrStdout()
	}
	return p, closeSink, nil
}
