// Package core provides shared constants and configuration defaults for ashare.
package core

import (
	"os"
	"path/filepath"
)

// Provider endpoints. Eastmoney serves the same quote feeds the common
// akshare wrappers read from.
const (
	KlineBaseURL   = "https://push2his.eastmoney.com/api/qt/stock/kline/get"
	ListingBaseURL = "https://push2.eastmoney.com/api/qt/clist/get"
	QuoteBaseURL   = "https://push2.eastmoney.com/api/qt/ulist.np/get"
	InfoBaseURL    = "https://push2.eastmoney.com/api/qt/stock/get"
)

// Date formats.
const (
	DateFmt         = "20060102"   // canonical YYYYMMDD used in requests and bars
	ProviderDateFmt = "2006-01-02" // date layout in provider kline rows
)

// Fetch defaults.
const (
	DefaultMaxWorkers = 5     // concurrent provider fetches in a batch
	DefaultAdjust     = "qfq" // forward-adjusted prices
	DefaultTimeoutSec = 30
	DefaultRetryCount = 3
	DefaultRetryDelay = 1 // seconds, doubled per attempt
)

// ConfigEnvVar points at an alternate config file location.
const ConfigEnvVar = "ASHARE_CONFIG"

// AppDir returns the per-user ashare directory (~/.ashare).
func AppDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		home = "."
	}
	return filepath.Join(home, ".ashare")
}

// CacheRoot returns the default cache directory path.
func CacheRoot() string {
	return filepath.Join(AppDir(), "cache")
}

// Version is the current CLI version.
const Version = "0.3.1"
