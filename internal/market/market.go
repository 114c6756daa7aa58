// Package market defines the domain types for A-share market data: bars,
// quotes, listings, the provider column mapping, and validation rules.
package market

import (
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/quantrail/ashare/internal/core"
)

// Validation and fetch error taxonomy. Callers match with errors.Is.
var (
	ErrInvalidSymbol    = errors.New("invalid symbol")
	ErrUnknownExchange  = errors.New("unknown exchange")
	ErrInvalidDateRange = errors.New("invalid date range")
	ErrEmptyDataset     = errors.New("empty dataset")
)

// Period is the bar granularity.
type Period string

const (
	PeriodDaily   Period = "daily"
	PeriodWeekly  Period = "weekly"
	PeriodMonthly Period = "monthly"
)

// ParsePeriod converts a user-supplied string into a Period.
func ParsePeriod(s string) (Period, error) {
	switch Period(strings.ToLower(s)) {
	case PeriodDaily, PeriodWeekly, PeriodMonthly:
		return Period(strings.ToLower(s)), nil
	}
	return "", fmt.Errorf("invalid period %q (want daily, weekly or monthly)", s)
}

func (p Period) String() string { return string(p) }

// Bar is one row of normalized historical data. Field order matches
// CanonicalColumns.
type Bar struct {
	Date   string  `json:"date"` // YYYYMMDD
	Open   float64 `json:"open"`
	High   float64 `json:"high"`
	Low    float64 `json:"low"`
	Close  float64 `json:"close"`
	Volume int64   `json:"volume"`
	Amount float64 `json:"amount"`
	Symbol string  `json:"symbol"`
}

// CanonicalColumns is the column order of normalized bar output.
var CanonicalColumns = []string{"date", "open", "high", "low", "close", "volume", "amount", "symbol"}

// StockInfo describes one stock. Listing entries carry only symbol, name
// and market; the per-symbol detail endpoint also fills industry and
// listing date.
type StockInfo struct {
	Symbol   string `json:"symbol"`
	Name     string `json:"name"`
	Industry string `json:"industry,omitempty"`
	ListDate string `json:"list_date,omitempty"` // YYYYMMDD
	Market   string `json:"market"`
}

// Quote is a real-time snapshot for one symbol.
type Quote struct {
	Symbol    string    `json:"symbol"`
	Name      string    `json:"name"`
	Open      float64   `json:"open"`
	High      float64   `json:"high"`
	Low       float64   `json:"low"`
	Last      float64   `json:"last"`
	Volume    int64     `json:"volume"`
	Amount    float64   `json:"amount"`
	Timestamp time.Time `json:"timestamp"`
}

// RawFrame is tabular data as returned by the provider, with
// provider-native column labels. Rows are positionally aligned with Columns.
type RawFrame struct {
	Columns []string
	Rows    [][]string
}

// Empty reports whether the frame has no rows.
func (f RawFrame) Empty() bool { return len(f.Rows) == 0 }

// ColumnMap translates provider-native labels to canonical field names.
// Labels without a canonical counterpart in Bar are mapped so frames can be
// indexed uniformly; Normalize only selects the canonical bar columns.
var ColumnMap = map[string]string{
	"日期":  "date",
	"开盘":  "open",
	"收盘":  "close",
	"最高":  "high",
	"最低":  "low",
	"成交量": "volume",
	"成交额": "amount",
	"振幅":  "amplitude",
	"涨跌幅": "pct_change",
	"涨跌额": "change",
	"换手率": "turnover",
	"最新价": "last",
	"代码":  "code",
	"名称":  "name",
	"行业":  "industry",
	"上市时间": "list_date",
}

// Index maps canonical field names to their column positions. Labels
// already in canonical form are accepted as-is.
func (f RawFrame) Index() map[string]int {
	idx := make(map[string]int, len(f.Columns))
	for i, label := range f.Columns {
		name := label
		if mapped, ok := ColumnMap[label]; ok {
			name = mapped
		}
		idx[name] = i
	}
	return idx
}

// Normalize converts a provider-shaped frame into bars: provider labels are
// renamed via ColumnMap, exactly the canonical columns are selected, dates
// are canonicalized to YYYYMMDD, rows are sorted ascending by date and the
// symbol is attached to every row.
func Normalize(f RawFrame, symbol string) ([]Bar, error) {
	idx := f.Index()
	for _, col := range []string{"date", "open", "high", "low", "close", "volume", "amount"} {
		if _, ok := idx[col]; !ok {
			return nil, fmt.Errorf("provider frame missing column %q", col)
		}
	}

	bars := make([]Bar, 0, len(f.Rows))
	for i, row := range f.Rows {
		if len(row) != len(f.Columns) {
			return nil, fmt.Errorf("row %d has %d cells, want %d", i, len(row), len(f.Columns))
		}

		date, err := CanonicalDate(row[idx["date"]])
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", i, err)
		}

		bar := Bar{Date: date, Symbol: symbol}
		if bar.Open, err = parseFloat(row[idx["open"]]); err != nil {
			return nil, fmt.Errorf("row %d open: %w", i, err)
		}
		if bar.High, err = parseFloat(row[idx["high"]]); err != nil {
			return nil, fmt.Errorf("row %d high: %w", i, err)
		}
		if bar.Low, err = parseFloat(row[idx["low"]]); err != nil {
			return nil, fmt.Errorf("row %d low: %w", i, err)
		}
		if bar.Close, err = parseFloat(row[idx["close"]]); err != nil {
			return nil, fmt.Errorf("row %d close: %w", i, err)
		}
		if bar.Volume, err = parseVolume(row[idx["volume"]]); err != nil {
			return nil, fmt.Errorf("row %d volume: %w", i, err)
		}
		if bar.Amount, err = parseFloat(row[idx["amount"]]); err != nil {
			return nil, fmt.Errorf("row %d amount: %w", i, err)
		}
		bars = append(bars, bar)
	}

	sort.SliceStable(bars, func(i, j int) bool { return bars[i].Date < bars[j].Date })
	return bars, nil
}

// CanonicalDate normalizes a provider date string to YYYYMMDD.
func CanonicalDate(s string) (string, error) {
	for _, layout := range []string{core.DateFmt, core.ProviderDateFmt} {
		if t, err := time.Parse(layout, s); err == nil {
			return t.Format(core.DateFmt), nil
		}
	}
	return "", fmt.Errorf("unrecognized date %q", s)
}

// ValidateDateRange checks that start and end are well-formed YYYYMMDD dates
// with start not after end. It runs before any I/O is attempted.
func ValidateDateRange(start, end string) error {
	s, err := time.Parse(core.DateFmt, start)
	if err != nil {
		return fmt.Errorf("%w: bad start date %q", ErrInvalidDateRange, start)
	}
	e, err := time.Parse(core.DateFmt, end)
	if err != nil {
		return fmt.Errorf("%w: bad end date %q", ErrInvalidDateRange, end)
	}
	if s.After(e) {
		return fmt.Errorf("%w: start %s after end %s", ErrInvalidDateRange, start, end)
	}
	return nil
}

func parseFloat(s string) (float64, error) {
	if s == "" || s == "-" {
		return 0, nil
	}
	return strconv.ParseFloat(s, 64)
}

func parseVolume(s string) (int64, error) {
	if s == "" || s == "-" {
		return 0, nil
	}
	if n, err := strconv.ParseInt(s, 10, 64); err == nil {
		return n, nil
	}
	// Some feeds report volume with a decimal part.
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, err
	}
	return int64(f), nil
}
