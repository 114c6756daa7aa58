package provider

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/quantrail/ashare/internal/core"
	"github.com/quantrail/ashare/internal/market"
)

// Provider-native column labels, in the order the kline feed emits fields
// f51–f61.
var barColumns = []string{"日期", "开盘", "收盘", "最高", "最低", "成交量", "成交额", "振幅", "涨跌幅", "涨跌额", "换手率"}

var (
	listingColumns = []string{"代码", "名称"}
	quoteColumns   = []string{"代码", "名称", "最新价", "开盘", "最高", "最低", "成交量", "成交额"}
	infoColumns    = []string{"代码", "名称", "行业", "上市时间"}
)

// periodKlt maps periods to the feed's klt parameter.
var periodKlt = map[market.Period]string{
	market.PeriodDaily:   "101",
	market.PeriodWeekly:  "102",
	market.PeriodMonthly: "103",
}

// adjustFqt maps adjustment conventions to the feed's fqt parameter.
var adjustFqt = map[string]string{
	"":    "0",
	"qfq": "1",
	"hfq": "2",
}

// Eastmoney fetches A-share data from the Eastmoney quote endpoints.
type Eastmoney struct {
	httpClient *http.Client
	log        zerolog.Logger
	retryCount int
	retryDelay time.Duration

	// Base URLs, overridable in tests.
	klineURL   string
	listingURL string
	quoteURL   string
	infoURL    string
}

// Options configures the Eastmoney client. Zero values fall back to the
// core defaults.
type Options struct {
	Timeout    time.Duration
	RetryCount int
	RetryDelay time.Duration
}

// NewEastmoney creates an Eastmoney client.
func NewEastmoney(opts Options, logger zerolog.Logger) *Eastmoney {
	if opts.Timeout <= 0 {
		opts.Timeout = core.DefaultTimeoutSec * time.Second
	}
	if opts.RetryCount < 1 {
		opts.RetryCount = core.DefaultRetryCount
	}
	if opts.RetryDelay <= 0 {
		opts.RetryDelay = core.DefaultRetryDelay * time.Second
	}
	return &Eastmoney{
		httpClient: &http.Client{Timeout: opts.Timeout},
		log:        logger.With().Str("component", "provider").Logger(),
		retryCount: opts.RetryCount,
		retryDelay: opts.RetryDelay,
		klineURL:   core.KlineBaseURL,
		listingURL: core.ListingBaseURL,
		quoteURL:   core.QuoteBaseURL,
		infoURL:    core.InfoBaseURL,
	}
}

// FetchBars retrieves historical klines for one code.
func (c *Eastmoney) FetchBars(ctx context.Context, code string, period market.Period, start, end, adjust string) (market.RawFrame, error) {
	secid, err := secID(code)
	if err != nil {
		return market.RawFrame{}, err
	}
	klt, ok := periodKlt[period]
	if !ok {
		return market.RawFrame{}, fmt.Errorf("unsupported period %q", period)
	}
	fqt, ok := adjustFqt[adjust]
	if !ok {
		return market.RawFrame{}, fmt.Errorf("unsupported adjust type %q", adjust)
	}

	params := url.Values{}
	params.Set("secid", secid)
	params.Set("klt", klt)
	params.Set("fqt", fqt)
	params.Set("beg", start)
	params.Set("end", end)
	params.Set("fields1", "f1,f2,f3,f4,f5,f6")
	params.Set("fields2", "f51,f52,f53,f54,f55,f56,f57,f58,f59,f60,f61")

	body, err := c.get(ctx, c.klineURL, params)
	if err != nil {
		return market.RawFrame{}, err
	}

	var resp struct {
		Data *struct {
			Klines []string `json:"klines"`
		} `json:"data"`
	}
	if err := json.Unmarshal(body, &resp); err != nil {
		return market.RawFrame{}, fmt.Errorf("decode kline response: %w", err)
	}

	frame := market.RawFrame{Columns: barColumns}
	if resp.Data == nil {
		return frame, nil
	}
	for _, line := range resp.Data.Klines {
		cells := strings.Split(line, ",")
		if len(cells) != len(barColumns) {
			return market.RawFrame{}, fmt.Errorf("malformed kline %q", line)
		}
		frame.Rows = append(frame.Rows, cells)
	}
	return frame, nil
}

// FetchListing retrieves the (code, name) table of all listed A-shares.
func (c *Eastmoney) FetchListing(ctx context.Context) (market.RawFrame, error) {
	params := url.Values{}
	params.Set("pn", "1")
	params.Set("pz", "50000")
	params.Set("po", "1")
	params.Set("np", "1")
	params.Set("fltt", "2")
	params.Set("fid", "f12")
	// Spaces encode as '+' in the query string, which is the separator the
	// fs filter expects (SZ main/other boards, SH main board, SH STAR).
	params.Set("fs", "m:0 t:6,m:0 t:80,m:1 t:2,m:1 t:23")
	params.Set("fields", "f12,f14")

	body, err := c.get(ctx, c.listingURL, params)
	if err != nil {
		return market.RawFrame{}, err
	}

	diff, err := decodeDiff(body)
	if err != nil {
		return market.RawFrame{}, err
	}

	frame := market.RawFrame{Columns: listingColumns}
	for _, row := range diff {
		frame.Rows = append(frame.Rows, []string{cell(row["f12"]), cell(row["f14"])})
	}
	return frame, nil
}

// FetchQuotes retrieves current prices for the given bare codes.
func (c *Eastmoney) FetchQuotes(ctx context.Context, codes []string) (market.RawFrame, error) {
	secids := make([]string, 0, len(codes))
	for _, code := range codes {
		id, err := secID(code)
		if err != nil {
			return market.RawFrame{}, err
		}
		secids = append(secids, id)
	}

	params := url.Values{}
	params.Set("secids", strings.Join(secids, ","))
	params.Set("fltt", "2")
	params.Set("invt", "2")
	params.Set("fields", "f2,f5,f6,f12,f14,f15,f16,f17")

	body, err := c.get(ctx, c.quoteURL, params)
	if err != nil {
		return market.RawFrame{}, err
	}

	diff, err := decodeDiff(body)
	if err != nil {
		return market.RawFrame{}, err
	}

	frame := market.RawFrame{Columns: quoteColumns}
	for _, row := range diff {
		frame.Rows = append(frame.Rows, []string{
			cell(row["f12"]), // 代码
			cell(row["f14"]), // 名称
			cell(row["f2"]),  // 最新价
			cell(row["f17"]), // 开盘
			cell(row["f15"]), // 最高
			cell(row["f16"]), // 最低
			cell(row["f5"]),  // 成交量
			cell(row["f6"]),  // 成交额
		})
	}
	return frame, nil
}

// FetchStockInfo retrieves per-symbol detail for one bare code. The stock
// detail endpoint answers with a flat field object rather than a diff list.
func (c *Eastmoney) FetchStockInfo(ctx context.Context, code string) (market.RawFrame, error) {
	secid, err := secID(code)
	if err != nil {
		return market.RawFrame{}, err
	}

	params := url.Values{}
	params.Set("secid", secid)
	params.Set("fltt", "2")
	params.Set("invt", "2")
	params.Set("fields", "f57,f58,f127,f189")

	body, err := c.get(ctx, c.infoURL, params)
	if err != nil {
		return market.RawFrame{}, err
	}

	var resp struct {
		Data map[string]any `json:"data"`
	}
	if err := json.Unmarshal(body, &resp); err != nil {
		return market.RawFrame{}, fmt.Errorf("decode stock info response: %w", err)
	}

	frame := market.RawFrame{Columns: infoColumns}
	if resp.Data == nil || resp.Data["f57"] == nil {
		return frame, nil
	}
	frame.Rows = append(frame.Rows, []string{
		cell(resp.Data["f57"]),  // 代码
		cell(resp.Data["f58"]),  // 名称
		cell(resp.Data["f127"]), // 行业
		cell(resp.Data["f189"]), // 上市时间
	})
	return frame, nil
}

// get performs a GET request with bounded retry. HTTP 5xx and 429 responses
// and transport errors are retried with exponential back-off; other error
// statuses fail immediately.
func (c *Eastmoney) get(ctx context.Context, base string, params url.Values) ([]byte, error) {
	urlStr := base + "?" + params.Encode()
	c.log.Debug().Str("url", urlStr).Msg("GET")

	var lastErr error
	for attempt := 1; attempt <= c.retryCount; attempt++ {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, urlStr, nil)
		if err != nil {
			return nil, fmt.Errorf("build request: %w", err)
		}
		req.Header.Set("Accept", "application/json")

		resp, err := c.httpClient.Do(req)
		if err != nil {
			lastErr = fmt.Errorf("request failed: %w", err)
			if !c.backoff(ctx, attempt, lastErr) {
				break
			}
			continue
		}

		body, err := io.ReadAll(resp.Body)
		resp.Body.Close()
		if err != nil {
			return nil, fmt.Errorf("read response body: %w", err)
		}

		if resp.StatusCode >= 500 || resp.StatusCode == http.StatusTooManyRequests {
			lastErr = &Error{StatusCode: resp.StatusCode, Message: strings.TrimSpace(string(body))}
			if !c.backoff(ctx, attempt, lastErr) {
				break
			}
			continue
		}
		if resp.StatusCode >= 400 {
			return nil, &Error{StatusCode: resp.StatusCode, Message: strings.TrimSpace(string(body))}
		}

		return body, nil
	}

	return nil, lastErr
}

// backoff sleeps before the next retry. Returns false when attempts are
// exhausted or the context is done.
func (c *Eastmoney) backoff(ctx context.Context, attempt int, cause error) bool {
	if attempt >= c.retryCount {
		return false
	}
	wait := c.retryDelay * time.Duration(1<<(attempt-1))
	c.log.Debug().Err(cause).Int("attempt", attempt).Dur("wait", wait).Msg("retrying provider request")
	select {
	case <-time.After(wait):
		return true
	case <-ctx.Done():
		return false
	}
}

// secID converts a bare code to the feed's secid ("1." for SH, "0." for SZ).
func secID(code string) (string, error) {
	ex, err := market.ExchangeForCode(code)
	if err != nil {
		return "", err
	}
	if ex == "SH" {
		return "1." + code, nil
	}
	return "0." + code, nil
}

// decodeDiff extracts the data.diff object list shared by the listing and
// quote endpoints.
func decodeDiff(body []byte) ([]map[string]any, error) {
	var resp struct {
		Data *struct {
			Diff []map[string]any `json:"diff"`
		} `json:"data"`
	}
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	if resp.Data == nil {
		return nil, nil
	}
	return resp.Data.Diff, nil
}

// cell renders a diff value as a string. Suspended stocks report "-" for
// price fields; that is passed through for the normalizer to zero out.
func cell(v any) string {
	switch x := v.(type) {
	case string:
		return x
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64)
	case json.Number:
		return x.String()
	case nil:
		return "-"
	default:
		return fmt.Sprint(x)
	}
}
