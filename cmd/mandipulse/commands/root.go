// Package commands implements the CLI for the mandipulse agent.
package commands

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/mandipulse/mandipulse/internal/config"
	"github.com/mandipulse/mandipulse/internal/logger"
	"github.com/mandipulse/mandipulse/internal/runner"
	"github.com/mandipulse/mandipulse/internal/version"
)

const logDir = "data/logs"

var rootCmd = &cobra.Command{
	Use:   "mandipulse",
	Short: "Autonomous discovery and scraping agent for mandi price portals",
	Long: `Mandipulse crawls Indian agricultural market portals, discovers how
each one exposes commodity prices (API endpoints, HTML tables, or
downloadable files), and scrapes them into a unified price schema.

Examples:
  # Discover and scrape every configured source
  mandipulse

  # Scrape only, using stored extraction configs
  mandipulse --mode scrape

  # Handle one portal end to end
  mandipulse --url "https://agmarknet.gov.in"

  # Offline run from a CSV source list
  mandipulse --mode scrape --input csv`,
	SilenceUsage: true,
	RunE:         runAgent,
}

func init() {
	flags := rootCmd.Flags()

	flags.String("mode", "", "agent mode: scrape, discover, discover_and_scrape, single_url")
	flags.StringP("url", "u", "", "single URL to process (implies --mode single_url)")
	flags.String("input", "", "source input: mongo, csv")
	flags.String("log", "", "log destination: mongo, txt")
	flags.Bool("headless", true, "run the browser headless")
	flags.Bool("debug", false, "enable debug logging")
	flags.BoolP("quiet", "q", false, "only show errors")

	_ = viper.BindPFlag("debug", flags.Lookup("debug"))
	_ = viper.BindPFlag("quiet", flags.Lookup("quiet"))

	rootCmd.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Println(version.Full())
		},
	})
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

func runAgent(cmd *cobra.Command, args []string) error {
	flags := cmd.Flags()

	ov := config.Overrides{
		Debug: viper.GetBool("debug"),
		Quiet: viper.GetBool("quiet"),
	}
	if flags.Changed("mode") {
		v, _ := flags.GetString("mode")
		ov.Mode = &v
	}
	if flags.Changed("url") {
		v, _ := flags.GetString("url")
		ov.URL = &v
	}
	if flags.Changed("input") {
		v, _ := flags.GetString("input")
		ov.Input = &v
	}
	if flags.Changed("log") {
		v, _ := flags.GetString("log")
		ov.Log = &v
	}
	if flags.Changed("headless") {
		v, _ := flags.GetBool("headless")
		ov.Headless = &v
	}

	cfg, err := config.Load(ov)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return err
	}

	initLogger(cfg)

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	logger.Info("agent starting",
		"version", version.Version,
		"mode", cfg.AgentMode,
		"input", cfg.InputMode,
		"provider", cfg.LLMProvider)

	if err := runner.New(cfg).Run(ctx); err != nil {
		if errors.Is(err, context.Canceled) {
			logger.Info("agent interrupted, shutting down")
			return nil
		}
		logger.Error("agent run failed", "error", err)
		return err
	}

	logger.Info("agent finished")
	return nil
}

// initLogger sets up the console handler and, for txt log mode, a
// timestamped file sink. The Mongo sink is attached by the runner once a
// connection exists.
func initLogger(cfg *config.Config) {
	opts := logger.Options{
		Debug: cfg.Debug,
		Quiet: cfg.Quiet,
	}

	if cfg.LogMode == config.LogTxt {
		sink, _, err := logger.NewFileSink(logDir)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Warning: could not open log file: %v\n", err)
		} else {
			opts.Sinks = append(opts.Sinks, sink)
		}
	}

	logger.Init(opts)
}
