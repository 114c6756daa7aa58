// Package adapter orchestrates market-data retrieval: it consults the local
// cache, fetches only what is missing from the provider (with bounded
// concurrency for batches), normalizes the raw frames, writes fresh results
// back to the cache and returns one unified result set.
package adapter

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/quantrail/ashare/internal/cache"
	"github.com/quantrail/ashare/internal/core"
	"github.com/quantrail/ashare/internal/market"
	"github.com/quantrail/ashare/internal/provider"
)

// Adapter is the single entry point for "get me data for symbol(s) X over
// period/date-range Y". All dependencies are injected.
type Adapter struct {
	provider   provider.Provider
	store      *cache.Store
	log        zerolog.Logger
	maxWorkers int
	adjust     string
}

// Option customizes an Adapter.
type Option func(*Adapter)

// WithMaxWorkers caps the number of concurrent provider fetches in a batch.
func WithMaxWorkers(n int) Option {
	return func(a *Adapter) {
		if n > 0 {
			a.maxWorkers = n
		}
	}
}

// WithAdjust sets the price-adjustment convention for provider fetches.
func WithAdjust(adjust string) Option {
	return func(a *Adapter) { a.adjust = adjust }
}

// New creates an Adapter over the given provider and cache store.
func New(p provider.Provider, store *cache.Store, logger zerolog.Logger, opts ...Option) *Adapter {
	a := &Adapter{
		provider:   p,
		store:      store,
		log:        logger.With().Str("component", "adapter").Logger(),
		maxWorkers: core.DefaultMaxWorkers,
		adjust:     core.DefaultAdjust,
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// HistoricalData returns normalized bars for one symbol, serving from cache
// when a fresh entry exists. A cache write failure is logged and the fetched
// data returned regardless.
func (a *Adapter) HistoricalData(ctx context.Context, symbol string, period market.Period, start, end string) ([]market.Bar, error) {
	if err := market.ValidateDateRange(start, end); err != nil {
		return nil, err
	}

	key := cache.Key{Symbol: symbol, Period: period, Start: start, End: end}
	if bars, ok := a.store.Get(key); ok {
		return bars, nil
	}

	bars, err := a.fetchBars(ctx, symbol, period, start, end)
	if err != nil {
		return nil, err
	}

	if err := a.store.Put(key, bars); err != nil {
		a.log.Warn().Err(err).Str("symbol", symbol).Msg("cache write failed, returning fetched data anyway")
	}
	return bars, nil
}

// DailyData is a convenience wrapper for HistoricalData with a daily period.
func (a *Adapter) DailyData(ctx context.Context, symbol, start, end string) ([]market.Bar, error) {
	return a.HistoricalData(ctx, symbol, market.PeriodDaily, start, end)
}

// BatchHistoricalData returns normalized bars for many symbols over one
// period and date range. Cached symbols cost no provider calls; the rest are
// fetched with at most maxWorkers requests in flight. One symbol's failure
// does not cancel fetches already running, but the batch returns the first
// error and no partial results. Duplicate symbols are treated as independent
// requests.
func (a *Adapter) BatchHistoricalData(ctx context.Context, symbols []string, period market.Period, start, end string) ([]market.Bar, error) {
	if err := market.ValidateDateRange(start, end); err != nil {
		return nil, err
	}

	missing, hits := a.store.GetBatch(symbols, period, start, end)
	if len(missing) == 0 {
		a.log.Debug().Int("symbols", len(symbols)).Msg("batch served entirely from cache")
		return concat(hits), nil
	}

	a.log.Debug().
		Int("symbols", len(symbols)).
		Int("missing", len(missing)).
		Msg("fetching symbols not in cache")

	// Fresh results are paired positionally with the missing list; GetBatch
	// guarantees that list preserves input order.
	fresh := make([][]market.Bar, len(missing))
	var g errgroup.Group
	g.SetLimit(a.maxWorkers)
	for i, symbol := range missing {
		i, symbol := i, symbol
		g.Go(func() error {
			bars, err := a.fetchBars(ctx, symbol, period, start, end)
			if err != nil {
				return err
			}
			fresh[i] = bars
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	if err := a.store.PutBatch(missing, period, start, end, fresh); err != nil {
		a.log.Warn().Err(err).Msg("batch cache write failed, returning fetched data anyway")
	}

	return concat(append(hits, fresh...)), nil
}

// StockList returns all listed A-shares, cached with its own expiry.
// Codes whose prefix maps to no known exchange (e.g. Beijing board) are
// skipped rather than failing the whole listing.
func (a *Adapter) StockList(ctx context.Context) ([]market.StockInfo, error) {
	if stocks, ok := a.store.GetListing(); ok {
		return stocks, nil
	}

	frame, err := a.provider.FetchListing(ctx)
	if err != nil {
		return nil, fmt.Errorf("fetch stock listing: %w", err)
	}
	if frame.Empty() {
		return nil, fmt.Errorf("stock listing: %w", market.ErrEmptyDataset)
	}

	idx := frame.Index()
	codeIdx, okCode := idx["code"]
	nameIdx, okName := idx["name"]
	if !okCode || !okName {
		return nil, fmt.Errorf("listing frame missing code/name columns")
	}

	stocks := make([]market.StockInfo, 0, len(frame.Rows))
	for _, row := range frame.Rows {
		symbol, err := market.SymbolForCode(row[codeIdx])
		if err != nil {
			a.log.Debug().Str("code", row[codeIdx]).Msg("skipping listing entry on unknown exchange")
			continue
		}
		stocks = append(stocks, market.StockInfo{Symbol: symbol, Name: row[nameIdx], Market: "CN"})
	}

	if err := a.store.PutListing(stocks); err != nil {
		a.log.Warn().Err(err).Msg("listing cache write failed, returning fetched data anyway")
	}
	return stocks, nil
}

// StockInfo returns per-symbol detail (name, industry, listing date).
// Detail is fetched live on every call, like quotes.
func (a *Adapter) StockInfo(ctx context.Context, symbol string) (market.StockInfo, error) {
	if err := market.ValidateSymbol(symbol); err != nil {
		return market.StockInfo{}, err
	}

	frame, err := a.provider.FetchStockInfo(ctx, market.BareCode(symbol))
	if err != nil {
		return market.StockInfo{}, fmt.Errorf("fetch stock info %s: %w", symbol, err)
	}
	if frame.Empty() {
		return market.StockInfo{}, fmt.Errorf("stock info %s: %w", symbol, market.ErrEmptyDataset)
	}

	idx := frame.Index()
	row := frame.Rows[0]
	info := market.StockInfo{Symbol: symbol, Market: "CN"}
	if i, ok := idx["name"]; ok {
		info.Name = infoField(row[i])
	}
	if i, ok := idx["industry"]; ok {
		info.Industry = infoField(row[i])
	}
	if i, ok := idx["list_date"]; ok {
		info.ListDate = infoField(row[i])
	}
	return info, nil
}

// RealTimeQuotes returns current prices for the given symbols, keyed by
// symbol. Quotes are never cached.
func (a *Adapter) RealTimeQuotes(ctx context.Context, symbols []string) (map[string]market.Quote, error) {
	codes := make([]string, 0, len(symbols))
	for _, symbol := range symbols {
		if err := market.ValidateSymbol(symbol); err != nil {
			return nil, err
		}
		codes = append(codes, market.BareCode(symbol))
	}

	frame, err := a.provider.FetchQuotes(ctx, codes)
	if err != nil {
		return nil, fmt.Errorf("fetch quotes: %w", err)
	}
	if frame.Empty() {
		return nil, fmt.Errorf("quotes for %v: %w", symbols, market.ErrEmptyDataset)
	}

	idx := frame.Index()
	for _, col := range []string{"code", "name", "last", "open", "high", "low", "volume", "amount"} {
		if _, ok := idx[col]; !ok {
			return nil, fmt.Errorf("quote frame missing column %q", col)
		}
	}

	byCode := make(map[string][]string, len(frame.Rows))
	for _, row := range frame.Rows {
		byCode[row[idx["code"]]] = row
	}

	now := time.Now()
	quotes := make(map[string]market.Quote, len(symbols))
	for _, symbol := range symbols {
		row, ok := byCode[market.BareCode(symbol)]
		if !ok {
			return nil, fmt.Errorf("no quote for %s: %w", symbol, market.ErrEmptyDataset)
		}
		q := market.Quote{Symbol: symbol, Name: row[idx["name"]], Timestamp: now}
		q.Last = quoteFloat(row[idx["last"]])
		q.Open = quoteFloat(row[idx["open"]])
		q.High = quoteFloat(row[idx["high"]])
		q.Low = quoteFloat(row[idx["low"]])
		q.Volume = int64(quoteFloat(row[idx["volume"]]))
		q.Amount = quoteFloat(row[idx["amount"]])
		quotes[symbol] = q
	}
	return quotes, nil
}

// fetchBars is the uncached fetch-and-normalize path for one symbol.
func (a *Adapter) fetchBars(ctx context.Context, symbol string, period market.Period, start, end string) ([]market.Bar, error) {
	if err := market.ValidateSymbol(symbol); err != nil {
		return nil, err
	}

	frame, err := a.provider.FetchBars(ctx, market.BareCode(symbol), period, start, end, a.adjust)
	if err != nil {
		return nil, fmt.Errorf("fetch %s: %w", symbol, err)
	}
	if frame.Empty() {
		return nil, fmt.Errorf("%s %s %s-%s: %w", symbol, period, start, end, market.ErrEmptyDataset)
	}

	bars, err := market.Normalize(frame, symbol)
	if err != nil {
		return nil, fmt.Errorf("normalize %s: %w", symbol, err)
	}
	return bars, nil
}

// infoField blanks the provider's "-" placeholder for absent detail values.
func infoField(s string) string {
	if s == "-" {
		return ""
	}
	return s
}

// quoteFloat parses a quote cell; suspended stocks report "-".
func quoteFloat(s string) float64 {
	if s == "" || s == "-" {
		return 0
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0
	}
	return f
}

func concat(groups [][]market.Bar) []market.Bar {
	n := 0
	for _, g := range groups {
		n += len(g)
	}
	all := make([]market.Bar, 0, n)
	for _, g := range groups {
		all = append(all, g...)
	}
	return all
}
