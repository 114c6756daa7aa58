package cli

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/quantrail/ashare/internal/core"
	"github.com/quantrail/ashare/internal/market"
	"github.com/quantrail/ashare/internal/output"
)

func init() {
	// Add all subcommands
	rootCmd.AddCommand(historyCmd)
	rootCmd.AddCommand(batchCmd)
	rootCmd.AddCommand(listCmd)
	rootCmd.AddCommand(infoCmd)
	rootCmd.AddCommand(quoteCmd)
	rootCmd.AddCommand(purgeCmd)

	for _, cmd := range []*cobra.Command{historyCmd, batchCmd} {
		cmd.Flags().StringP("period", "p", "daily", "Bar period (daily, weekly, monthly)")
		cmd.Flags().String("start", "", "Start date YYYYMMDD (required)")
		cmd.Flags().String("end", "", "End date YYYYMMDD (default today)")
		cmd.MarkFlagRequired("start")
	}
	batchCmd.Flags().IntP("workers", "w", 0, fmt.Sprintf("Max concurrent fetches (default %d)", core.DefaultMaxWorkers))
}

// historyCmd fetches historical bars for one symbol
var historyCmd = &cobra.Command{
	Use:   "history SYMBOL",
	Short: "Fetch historical bars for a symbol (e.g. 600519.SH)",
	Args:  cobra.ExactArgs(1),
	RunE:  handleHistory,
}

// batchCmd fetches historical bars for many symbols
var batchCmd = &cobra.Command{
	Use:   "batch SYMBOL...",
	Short: "Fetch historical bars for several symbols in one call",
	Args:  cobra.MinimumNArgs(1),
	RunE:  handleBatch,
}

// listCmd prints the A-share listing
var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List all A-share stocks",
	Args:  cobra.NoArgs,
	RunE:  handleList,
}

// infoCmd prints per-symbol detail
var infoCmd = &cobra.Command{
	Use:   "info SYMBOL",
	Short: "Show detail for a symbol (name, industry, listing date)",
	Args:  cobra.ExactArgs(1),
	RunE:  handleInfo,
}

// quoteCmd prints real-time quotes
var quoteCmd = &cobra.Command{
	Use:   "quote SYMBOL...",
	Short: "Fetch real-time quotes for one or more symbols",
	Args:  cobra.MinimumNArgs(1),
	RunE:  handleQuote,
}

// purgeCmd removes expired cache entries
var purgeCmd = &cobra.Command{
	Use:   "purge",
	Short: "Delete expired entries from the local cache",
	Args:  cobra.NoArgs,
	RunE:  handlePurge,
}

// rangeFlags reads the shared period/start/end flags.
func rangeFlags(cmd *cobra.Command) (market.Period, string, string, error) {
	periodStr, _ := cmd.Flags().GetString("period")
	start, _ := cmd.Flags().GetString("start")
	end, _ := cmd.Flags().GetString("end")

	period, err := market.ParsePeriod(periodStr)
	if err != nil {
		return "", "", "", err
	}
	if end == "" {
		end = time.Now().Format(core.DateFmt)
	}
	return period, start, end, nil
}

func handleHistory(cmd *cobra.Command, args []string) error {
	period, start, end, err := rangeFlags(cmd)
	if err != nil {
		return err
	}

	app, err := newApp(0)
	if err != nil {
		return err
	}
	defer app.Close()

	bars, err := app.adapter.HistoricalData(cmd.Context(), args[0], period, start, end)
	if err != nil {
		return err
	}
	return output.Bars(cmd.OutOrStdout(), format, bars)
}

func handleBatch(cmd *cobra.Command, args []string) error {
	period, start, end, err := rangeFlags(cmd)
	if err != nil {
		return err
	}
	workers, _ := cmd.Flags().GetInt("workers")

	app, err := newApp(workers)
	if err != nil {
		return err
	}
	defer app.Close()

	bars, err := app.adapter.BatchHistoricalData(cmd.Context(), args, period, start, end)
	if err != nil {
		return err
	}
	return output.Bars(cmd.OutOrStdout(), format, bars)
}

func handleList(cmd *cobra.Command, args []string) error {
	app, err := newApp(0)
	if err != nil {
		return err
	}
	defer app.Close()

	stocks, err := app.adapter.StockList(cmd.Context())
	if err != nil {
		return err
	}
	return output.Listing(cmd.OutOrStdout(), format, stocks)
}

func handleInfo(cmd *cobra.Command, args []string) error {
	app, err := newApp(0)
	if err != nil {
		return err
	}
	defer app.Close()

	info, err := app.adapter.StockInfo(cmd.Context(), args[0])
	if err != nil {
		return err
	}
	return output.Info(cmd.OutOrStdout(), format, info)
}

func handleQuote(cmd *cobra.Command, args []string) error {
	app, err := newApp(0)
	if err != nil {
		return err
	}
	defer app.Close()

	quotes, err := app.adapter.RealTimeQuotes(cmd.Context(), args)
	if err != nil {
		return err
	}
	return output.Quotes(cmd.OutOrStdout(), format, quotes)
}

func handlePurge(cmd *cobra.Command, args []string) error {
	app, err := newApp(0)
	if err != nil {
		return err
	}
	defer app.Close()

	n, err := app.store.PurgeExpired()
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Removed %d expired cache entries\n", n)
	return nil
}
