// Package cache implements the local SQLite-backed store for fetched market
// data with time-based invalidation.
//
// One table maps a (symbol, period, start, end) request fingerprint to the
// JSON-serialized result set, stamped with created_at/expires_at. Expired
// entries are filtered out at read time and physically removed by
// PurgeExpired. The store fails open: a read error is a miss, a write error
// is reported but never fatal to the caller's data.
package cache

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/rs/zerolog"

	"github.com/quantrail/ashare/internal/market"
)

// Key uniquely identifies one cached result set.
type Key struct {
	Symbol string
	Period market.Period
	Start  string // YYYYMMDD
	End    string // YYYYMMDD
}

func (k Key) String() string {
	return fmt.Sprintf("%s %s %s-%s", k.Symbol, k.Period, k.Start, k.End)
}

// Per-period cache lifetimes. Coarser bars change less often and may live
// longer.
var periodTTL = map[market.Period]time.Duration{
	market.PeriodDaily:   7 * 24 * time.Hour,
	market.PeriodWeekly:  15 * 24 * time.Hour,
	market.PeriodMonthly: 30 * 24 * time.Hour,
}

// Listing entries use a reserved row and a much shorter lifetime, since new
// listings and delistings happen on any trading day.
const (
	ListingTTL    = 24 * time.Hour
	listingSymbol = "_listing"
	listingPeriod = "listing"
)

// TTLFor returns the cache lifetime for a period.
func TTLFor(period market.Period) time.Duration {
	if ttl, ok := periodTTL[period]; ok {
		return ttl
	}
	return periodTTL[market.PeriodDaily]
}

const schema = `
CREATE TABLE IF NOT EXISTS stock_data (
	symbol     TEXT NOT NULL,
	period     TEXT NOT NULL,
	start_date TEXT NOT NULL,
	end_date   TEXT NOT NULL,
	payload    BLOB NOT NULL,
	created_at INTEGER NOT NULL,
	expires_at INTEGER NOT NULL,
	PRIMARY KEY (symbol, period, start_date, end_date)
)`

// Store is the SQLite-backed cache.
type Store struct {
	db  *sql.DB
	log zerolog.Logger
	now func() time.Time // injectable clock for expiry tests
}

// Open creates or opens the cache database at path, creating parent
// directories and the schema as needed.
func Open(path string, logger zerolog.Logger) (*Store, error) {
	if dir := filepath.Dir(path); dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create cache dir: %w", err)
		}
	}

	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("open cache db: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("init cache schema: %w", err)
	}

	return &Store{
		db:  db,
		log: logger.With().Str("component", "cache").Logger(),
		now: time.Now,
	}, nil
}

// Close releases the underlying database handle.
func (s *Store) Close() error {
	return s.db.Close()
}

// Get returns the cached bars for key iff a fresh entry exists. A missing,
// expired or unreadable entry is a miss, never an error.
func (s *Store) Get(key Key) ([]market.Bar, bool) {
	payload, ok := s.getPayload(key.Symbol, string(key.Period), key.Start, key.End)
	if !ok {
		s.log.Debug().Stringer("key", key).Msg("cache miss")
		return nil, false
	}

	var bars []market.Bar
	if err := json.Unmarshal(payload, &bars); err != nil {
		s.log.Error().Err(err).Stringer("key", key).Msg("corrupt cache payload, treating as miss")
		return nil, false
	}

	s.log.Debug().Stringer("key", key).Int("rows", len(bars)).Msg("cache hit")
	return bars, true
}

// Put serializes bars and upserts the entry under key, computing the expiry
// from the key's period. A previous entry for the same key is replaced.
func (s *Store) Put(key Key, bars []market.Bar) error {
	payload, err := json.Marshal(bars)
	if err != nil {
		return fmt.Errorf("serialize cache payload: %w", err)
	}
	if err := s.putPayload(key.Symbol, string(key.Period), key.Start, key.End, payload, TTLFor(key.Period)); err != nil {
		return err
	}
	s.log.Debug().Stringer("key", key).Int("rows", len(bars)).Msg("cache write")
	return nil
}

// GetBatch partitions symbols sharing one period and date range into cache
// misses and hits. The missing list preserves input order; hit payloads
// carry no positional relation to it.
func (s *Store) GetBatch(symbols []string, period market.Period, start, end string) (missing []string, hits [][]market.Bar) {
	for _, symbol := range symbols {
		if bars, ok := s.Get(Key{Symbol: symbol, Period: period, Start: start, End: end}); ok {
			hits = append(hits, bars)
		} else {
			missing = append(missing, symbol)
		}
	}
	return missing, hits
}

// PutBatch stores data[i] under symbols[i] for each i. The slices must be
// the same length.
func (s *Store) PutBatch(symbols []string, period market.Period, start, end string, data [][]market.Bar) error {
	if len(symbols) != len(data) {
		return fmt.Errorf("put batch: %d symbols but %d result sets", len(symbols), len(data))
	}
	for i, symbol := range symbols {
		if err := s.Put(Key{Symbol: symbol, Period: period, Start: start, End: end}, data[i]); err != nil {
			return err
		}
	}
	return nil
}

// PurgeExpired deletes all entries past their expiry and returns how many
// rows were removed. Idempotent.
func (s *Store) PurgeExpired() (int64, error) {
	res, err := s.db.Exec(`DELETE FROM stock_data WHERE expires_at <= ?`, s.now().Unix())
	if err != nil {
		return 0, fmt.Errorf("purge expired: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("purge expired: %w", err)
	}
	if n > 0 {
		s.log.Debug().Int64("rows", n).Msg("purged expired cache entries")
	}
	return n, nil
}

// GetListing returns the cached stock listing if a fresh copy exists.
func (s *Store) GetListing() ([]market.StockInfo, bool) {
	payload, ok := s.getPayload(listingSymbol, listingPeriod, "", "")
	if !ok {
		return nil, false
	}
	var stocks []market.StockInfo
	if err := json.Unmarshal(payload, &stocks); err != nil {
		s.log.Error().Err(err).Msg("corrupt listing payload, treating as miss")
		return nil, false
	}
	return stocks, true
}

// PutListing caches the stock listing under its reserved key with the
// listing lifetime.
func (s *Store) PutListing(stocks []market.StockInfo) error {
	payload, err := json.Marshal(stocks)
	if err != nil {
		return fmt.Errorf("serialize listing payload: %w", err)
	}
	return s.putPayload(listingSymbol, listingPeriod, "", "", payload, ListingTTL)
}

func (s *Store) getPayload(symbol, period, start, end string) ([]byte, bool) {
	var payload []byte
	err := s.db.QueryRow(`
		SELECT payload FROM stock_data
		WHERE symbol = ? AND period = ? AND start_date = ? AND end_date = ?
		AND expires_at > ?`,
		symbol, period, start, end, s.now().Unix(),
	).Scan(&payload)
	switch {
	case err == sql.ErrNoRows:
		return nil, false
	case err != nil:
		// Fail open: a broken cache must never block the caller.
		s.log.Error().Err(err).Str("symbol", symbol).Msg("cache read failed, treating as miss")
		return nil, false
	}
	return payload, true
}

func (s *Store) putPayload(symbol, period, start, end string, payload []byte, ttl time.Duration) error {
	now := s.now()
	_, err := s.db.Exec(`
		INSERT OR REPLACE INTO stock_data
		(symbol, period, start_date, end_date, payload, created_at, expires_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		symbol, period, start, end, payload, now.Unix(), now.Add(ttl).Unix(),
	)
	if err != nil {
		return fmt.Errorf("cache write for %s: %w", symbol, err)
	}
	return nil
}
