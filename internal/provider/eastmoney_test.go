package provider

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quantrail/ashare/internal/logging"
	"github.com/quantrail/ashare/internal/market"
)

func testClient(t *testing.T, handler http.HandlerFunc) (*Eastmoney, *httptest.Server) {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	c := NewEastmoney(Options{
		Timeout:    2 * time.Second,
		RetryCount: 3,
		RetryDelay: time.Millisecond,
	}, logging.Nop())
	c.klineURL = srv.URL
	c.listingURL = srv.URL
	c.quoteURL = srv.URL
	c.infoURL = srv.URL
	return c, srv
}

func TestFetchBarsParsesKlines(t *testing.T) {
	var gotQuery map[string][]string
	c, _ := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		gotQuery = r.URL.Query()
		w.Write([]byte(`{"data":{"code":"600519","klines":[
			"2023-01-03,1689.0,1690.5,1695.0,1675.0,29000,4900000,1.2,0.1,1.7,0.23",
			"2023-01-04,1690.0,1700.5,1712.0,1680.1,31000,5200000,1.9,0.4,6.8,0.25"
		]}}`))
	})

	frame, err := c.FetchBars(context.Background(), "600519", market.PeriodDaily, "20230101", "20230110", "qfq")
	require.NoError(t, err)
	require.Len(t, frame.Rows, 2)
	assert.Equal(t, BarColumns(), frame.Columns)
	assert.Equal(t, "2023-01-03", frame.Rows[0][0])
	assert.Equal(t, "1689.0", frame.Rows[0][1])

	assert.Equal(t, "1.600519", gotQuery["secid"][0], "SH codes map to market 1")
	assert.Equal(t, "101", gotQuery["klt"][0])
	assert.Equal(t, "1", gotQuery["fqt"][0])
	assert.Equal(t, "20230101", gotQuery["beg"][0])
	assert.Equal(t, "20230110", gotQuery["end"][0])

	// The normalizer accepts what the client produces.
	bars, err := market.Normalize(frame, "600519.SH")
	require.NoError(t, err)
	assert.Equal(t, "20230103", bars[0].Date)
}

func TestFetchBarsNullData(t *testing.T) {
	c, _ := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"data":null}`))
	})

	frame, err := c.FetchBars(context.Background(), "600519", market.PeriodDaily, "20230101", "20230110", "")
	require.NoError(t, err)
	assert.True(t, frame.Empty())
}

func TestFetchBarsUnknownExchange(t *testing.T) {
	c, _ := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		t.Error("request must not be sent for an unknown exchange")
	})

	_, err := c.FetchBars(context.Background(), "999999", market.PeriodDaily, "20230101", "20230110", "")
	assert.ErrorIs(t, err, market.ErrUnknownExchange)
}

func TestGetRetriesServerErrors(t *testing.T) {
	attempts := 0
	c, _ := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		attempts++
		if attempts < 3 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		w.Write([]byte(`{"data":{"klines":[]}}`))
	})

	_, err := c.FetchBars(context.Background(), "600519", market.PeriodDaily, "20230101", "20230110", "")
	require.NoError(t, err)
	assert.Equal(t, 3, attempts)
}

func TestGetExhaustsRetries(t *testing.T) {
	attempts := 0
	c, _ := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		attempts++
		w.WriteHeader(http.StatusServiceUnavailable)
	})

	_, err := c.FetchBars(context.Background(), "600519", market.PeriodDaily, "20230101", "20230110", "")
	require.Error(t, err)
	assert.Equal(t, 3, attempts)

	var perr *Error
	require.ErrorAs(t, err, &perr)
	assert.Equal(t, http.StatusServiceUnavailable, perr.StatusCode)
}

func TestGetClientErrorNotRetried(t *testing.T) {
	attempts := 0
	c, _ := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		attempts++
		w.WriteHeader(http.StatusNotFound)
	})

	_, err := c.FetchBars(context.Background(), "600519", market.PeriodDaily, "20230101", "20230110", "")
	require.Error(t, err)
	assert.Equal(t, 1, attempts, "4xx responses are not retryable")
}

func TestFetchListing(t *testing.T) {
	c, _ := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"data":{"total":2,"diff":[
			{"f12":"600519","f14":"贵州茅台"},
			{"f12":"000001","f14":"平安银行"}
		]}}`))
	})

	frame, err := c.FetchListing(context.Background())
	require.NoError(t, err)
	assert.Equal(t, ListingColumns(), frame.Columns)
	require.Len(t, frame.Rows, 2)
	assert.Equal(t, []string{"600519", "贵州茅台"}, frame.Rows[0])
}

func TestFetchQuotes(t *testing.T) {
	var gotSecids string
	c, _ := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		gotSecids = r.URL.Query().Get("secids")
		w.Write([]byte(`{"data":{"diff":[
			{"f2":1700.5,"f5":31000,"f6":5200000.0,"f12":"600519","f14":"贵州茅台","f15":1712.0,"f16":1680.0,"f17":1690.0},
			{"f2":"-","f5":0,"f6":"-","f12":"000001","f14":"平安银行","f15":"-","f16":"-","f17":"-"}
		]}}`))
	})

	frame, err := c.FetchQuotes(context.Background(), []string{"600519", "000001"})
	require.NoError(t, err)
	assert.Equal(t, "1.600519,0.000001", gotSecids)
	require.Len(t, frame.Rows, 2)
	assert.Equal(t, QuoteColumns(), frame.Columns)
	assert.Equal(t, "1700.5", frame.Rows[0][2])
	assert.Equal(t, "-", frame.Rows[1][2], "suspended prices pass through as dashes")
}

func TestFetchStockInfo(t *testing.T) {
	var gotSecid string
	c, _ := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		gotSecid = r.URL.Query().Get("secid")
		w.Write([]byte(`{"data":{"f57":"600519","f58":"贵州茅台","f127":"酿酒行业","f189":20010827}}`))
	})

	frame, err := c.FetchStockInfo(context.Background(), "600519")
	require.NoError(t, err)
	assert.Equal(t, "1.600519", gotSecid)
	assert.Equal(t, InfoColumns(), frame.Columns)
	require.Len(t, frame.Rows, 1)
	assert.Equal(t, []string{"600519", "贵州茅台", "酿酒行业", "20010827"}, frame.Rows[0])
}

func TestFetchStockInfoNullData(t *testing.T) {
	c, _ := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"data":null}`))
	})

	frame, err := c.FetchStockInfo(context.Background(), "600519")
	require.NoError(t, err)
	assert.True(t, frame.Empty())
}

func TestMockCallCounting(t *testing.T) {
	m := NewMock()
	m.SeedBarRows("600519", []string{"2023-01-03", "1", "2", "3", "0.5", "100", "200", "1", "1", "1", "1"})

	_, err := m.FetchBars(context.Background(), "600519", market.PeriodDaily, "20230101", "20230110", "qfq")
	require.NoError(t, err)
	_, err = m.FetchBars(context.Background(), "000001", market.PeriodDaily, "20230101", "20230110", "qfq")
	require.NoError(t, err)

	assert.Equal(t, 2, m.CallsMade())
	assert.Equal(t, 1, m.BarCalls("600519"))
	assert.Equal(t, 1, m.BarCalls("000001"))

	m.Reset()
	assert.Zero(t, m.CallsMade())
}
