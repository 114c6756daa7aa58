package provider

import (
	"context"
	"sync"

	"github.com/quantrail/ashare/internal/market"
)

// Mock is an in-memory Provider for deterministic unit tests. Every request
// is recorded so tests can assert exact call counts.
type Mock struct {
	mu       sync.Mutex
	bars     map[string]market.RawFrame
	failBars map[string]error
	info     map[string]market.RawFrame
	listing  market.RawFrame
	quotes   market.RawFrame
	calls    []Call
}

// Call records one request made to the mock.
type Call struct {
	Op     string // "bars", "listing", "quotes" or "info"
	Code   string
	Period market.Period
	Start  string
	End    string
}

// NewMock creates an empty mock provider.
func NewMock() *Mock {
	return &Mock{
		bars:     make(map[string]market.RawFrame),
		failBars: make(map[string]error),
		info:     make(map[string]market.RawFrame),
	}
}

// SeedBars registers the frame FetchBars returns for a bare code.
func (m *Mock) SeedBars(code string, frame market.RawFrame) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.bars[code] = frame
}

// SeedBarRows registers provider-shaped kline rows for a code. Rows use the
// native column order (see BarColumns).
func (m *Mock) SeedBarRows(code string, rows ...[]string) {
	m.SeedBars(code, market.RawFrame{Columns: BarColumns(), Rows: rows})
}

// FailBars makes FetchBars for the given code return err.
func (m *Mock) FailBars(code string, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.failBars[code] = err
}

// SeedListing sets the frame returned by FetchListing.
func (m *Mock) SeedListing(frame market.RawFrame) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.listing = frame
}

// SeedInfo registers the frame FetchStockInfo returns for a bare code.
func (m *Mock) SeedInfo(code string, frame market.RawFrame) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.info[code] = frame
}

// SeedQuotes sets the frame returned by FetchQuotes.
func (m *Mock) SeedQuotes(frame market.RawFrame) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.quotes = frame
}

// FetchBars returns the seeded frame for code, or an empty frame when
// nothing was seeded.
func (m *Mock) FetchBars(ctx context.Context, code string, period market.Period, start, end, adjust string) (market.RawFrame, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = append(m.calls, Call{Op: "bars", Code: code, Period: period, Start: start, End: end})

	if err, ok := m.failBars[code]; ok {
		return market.RawFrame{}, err
	}
	if frame, ok := m.bars[code]; ok {
		return frame, nil
	}
	return market.RawFrame{Columns: BarColumns()}, nil
}

// FetchListing returns the seeded listing frame.
func (m *Mock) FetchListing(ctx context.Context) (market.RawFrame, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = append(m.calls, Call{Op: "listing"})
	return m.listing, nil
}

// FetchStockInfo returns the seeded detail frame for code, or an empty
// frame when nothing was seeded.
func (m *Mock) FetchStockInfo(ctx context.Context, code string) (market.RawFrame, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = append(m.calls, Call{Op: "info", Code: code})

	if frame, ok := m.info[code]; ok {
		return frame, nil
	}
	return market.RawFrame{Columns: InfoColumns()}, nil
}

// FetchQuotes returns the seeded quote frame.
func (m *Mock) FetchQuotes(ctx context.Context, codes []string) (market.RawFrame, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = append(m.calls, Call{Op: "quotes"})
	return m.quotes, nil
}

// Calls returns a copy of all recorded requests.
func (m *Mock) Calls() []Call {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]Call, len(m.calls))
	copy(out, m.calls)
	return out
}

// CallsMade returns the total number of requests recorded.
func (m *Mock) CallsMade() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.calls)
}

// BarCalls returns how many bar fetches were made for a bare code.
func (m *Mock) BarCalls(code string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, c := range m.calls {
		if c.Op == "bars" && c.Code == code {
			n++
		}
	}
	return n
}

// Reset clears all seeds and recorded requests.
func (m *Mock) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.bars = make(map[string]market.RawFrame)
	m.failBars = make(map[string]error)
	m.info = make(map[string]market.RawFrame)
	m.listing = market.RawFrame{}
	m.quotes = market.RawFrame{}
	m.calls = nil
}

// BarColumns returns the provider-native kline column labels, for building
// provider-shaped frames in tests.
func BarColumns() []string {
	out := make([]string, len(barColumns))
	copy(out, barColumns)
	return out
}

// QuoteColumns returns the provider-native quote column labels.
func QuoteColumns() []string {
	out := make([]string, len(quoteColumns))
	copy(out, quoteColumns)
	return out
}

// ListingColumns returns the provider-native listing column labels.
func ListingColumns() []string {
	out := make([]string, len(listingColumns))
	copy(out, listingColumns)
	return out
}

// InfoColumns returns the provider-native stock detail column labels.
func InfoColumns() []string {
	out := make([]string, len(infoColumns))
	copy(out, infoColumns)
	return out
}
