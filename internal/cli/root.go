// Package cli implements the command-line interface for ashare.
package cli

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/quantrail/ashare/internal/adapter"
	"github.com/quantrail/ashare/internal/cache"
	"github.com/quantrail/ashare/internal/config"
	"github.com/quantrail/ashare/internal/core"
	"github.com/quantrail/ashare/internal/logging"
	"github.com/quantrail/ashare/internal/output"
	"github.com/quantrail/ashare/internal/provider"
)

// Global flags
var (
	cfgPath  string
	cacheDir string
	logLevel string
	format   string
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:           "ashare",
	Short:         "ashare – A-share market data with a local cache",
	Long:          `A command-line utility for fetching Chinese A-share market data, backed by a local expiring cache.`,
	Version:       core.Version,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

func init() {
	// Persistent flags available to all commands
	rootCmd.PersistentFlags().StringVar(&cfgPath, "config", "", "Path to config file (default ~/.ashare/config.yaml)")
	rootCmd.PersistentFlags().StringVar(&cacheDir, "cache-dir", "", "Cache directory (default ~/.ashare/cache)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "Log level (trace, debug, info, warn, error)")
	rootCmd.PersistentFlags().StringVarP(&format, "format", "o", output.FormatTable, "Output format (table, csv, json)")
}

// app bundles the explicitly constructed dependencies for one command run.
type app struct {
	cfg     *config.Config
	store   *cache.Store
	adapter *adapter.Adapter
}

// newApp loads configuration, applies flag overrides and wires the logger,
// cache store, provider and adapter together.
func newApp(workers int) (*app, error) {
	cfg, err := config.Load(cfgPath)
	if err != nil {
		return nil, err
	}
	if cacheDir != "" {
		cfg.CacheDir = cacheDir
	}
	if logLevel != "" {
		cfg.LogLevel = logLevel
	}
	if workers > 0 {
		cfg.MaxWorkers = workers
	}

	logger := logging.New(cfg.LogLevel)

	store, err := cache.Open(cfg.CachePath(), logger)
	if err != nil {
		return nil, err
	}

	em := provider.NewEastmoney(provider.Options{
		Timeout:    time.Duration(cfg.Provider.TimeoutSec) * time.Second,
		RetryCount: cfg.Provider.RetryCount,
		RetryDelay: time.Duration(cfg.Provider.RetryDelaySec) * time.Second,
	}, logger)

	return &app{
		cfg:   cfg,
		store: store,
		adapter: adapter.New(em, store, logger,
			adapter.WithMaxWorkers(cfg.MaxWorkers),
			adapter.WithAdjust(cfg.Adjust)),
	}, nil
}

// Close releases the app's resources.
func (a *app) Close() {
	a.store.Close()
}
