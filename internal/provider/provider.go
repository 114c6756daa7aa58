// Package provider defines the upstream market-data source contract and its
// Eastmoney HTTP implementation.
//
// Providers return tabular data with provider-native column labels; callers
// translate them to canonical field names via market.ColumnMap. A provider
// call may fail with a transport error or return an empty frame; deciding
// what an empty frame means is the caller's business.
package provider

import (
	"context"
	"fmt"

	"github.com/quantrail/ashare/internal/market"
)

// Provider is the external data source for bars, listings and quotes.
type Provider interface {
	// FetchBars returns historical bars for a bare six-digit code over
	// [start, end] (YYYYMMDD, inclusive) at the given period granularity.
	// adjust selects the price-adjustment convention ("qfq", "hfq" or "").
	FetchBars(ctx context.Context, code string, period market.Period, start, end, adjust string) (market.RawFrame, error)

	// FetchListing returns the (code, name) table of all listed A-shares.
	FetchListing(ctx context.Context) (market.RawFrame, error)

	// FetchStockInfo returns per-symbol detail (name, industry, listing
	// date) for one bare code, as a single-row frame.
	FetchStockInfo(ctx context.Context, code string) (market.RawFrame, error)

	// FetchQuotes returns current prices for the given bare codes.
	FetchQuotes(ctx context.Context, codes []string) (market.RawFrame, error)
}

// Error is returned when the provider answers with an HTTP error status.
type Error struct {
	StatusCode int
	Message    string
}

func (e *Error) Error() string {
	return fmt.Sprintf("provider error (HTTP %d): %s", e.StatusCode, e.Message)
}
