package output_test

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quantrail/ashare/internal/market"
	"github.com/quantrail/ashare/internal/output"
)

var testBars = []market.Bar{
	{Date: "20230103", Open: 1689, High: 1695, Low: 1675, Close: 1690.5, Volume: 29000, Amount: 4.9e6, Symbol: "600519.SH"},
	{Date: "20230104", Open: 1690, High: 1712, Low: 1680, Close: 1700.5, Volume: 31000, Amount: 5.2e6, Symbol: "600519.SH"},
}

func TestBarsCSVHeaderIsCanonical(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, output.Bars(&buf, output.FormatCSV, testBars))

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 3)
	assert.Equal(t, strings.Join(market.CanonicalColumns, ","), lines[0])
	assert.True(t, strings.HasPrefix(lines[1], "20230103,"))
	assert.True(t, strings.HasSuffix(lines[1], ",600519.SH"))
}

func TestBarsJSONRoundTrip(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, output.Bars(&buf, output.FormatJSON, testBars))

	var decoded []market.Bar
	require.NoError(t, json.Unmarshal(buf.Bytes(), &decoded))
	assert.Equal(t, testBars, decoded)
}

func TestBarsTable(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, output.Bars(&buf, output.FormatTable, testBars))
	assert.Contains(t, buf.String(), "DATE")
	assert.Contains(t, buf.String(), "600519.SH")
}

func TestBarsUnknownFormat(t *testing.T) {
	assert.Error(t, output.Bars(&bytes.Buffer{}, "yaml", testBars))
}

func TestQuotesSortedBySymbol(t *testing.T) {
	quotes := map[string]market.Quote{
		"600519.SH": {Symbol: "600519.SH", Name: "贵州茅台", Last: 1700.5},
		"000001.SZ": {Symbol: "000001.SZ", Name: "平安银行", Last: 11.2},
	}

	var buf bytes.Buffer
	require.NoError(t, output.Quotes(&buf, output.FormatTable, quotes))

	out := buf.String()
	assert.Less(t, strings.Index(out, "000001.SZ"), strings.Index(out, "600519.SH"))
}

func TestQuotesCSV(t *testing.T) {
	quotes := map[string]market.Quote{
		"600519.SH": {Symbol: "600519.SH", Name: "贵州茅台", Last: 1700.5, Open: 1690, High: 1712, Low: 1680, Volume: 31000, Amount: 5.2e6},
		"000001.SZ": {Symbol: "000001.SZ", Name: "平安银行", Last: 11.2, Open: 11, High: 11.4, Low: 10.9, Volume: 9000, Amount: 1e5},
	}

	var buf bytes.Buffer
	require.NoError(t, output.Quotes(&buf, output.FormatCSV, quotes))

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 3)
	assert.Equal(t, "symbol,name,last,open,high,low,volume,amount", lines[0])
	assert.Equal(t, "000001.SZ,平安银行,11.2,11,11.4,10.9,9000,100000", lines[1])
	assert.Equal(t, "600519.SH,贵州茅台,1700.5,1690,1712,1680,31000,5200000", lines[2])
}

func TestInfoFormats(t *testing.T) {
	info := market.StockInfo{Symbol: "600519.SH", Name: "贵州茅台", Industry: "酿酒行业", ListDate: "20010827", Market: "CN"}

	var buf bytes.Buffer
	require.NoError(t, output.Info(&buf, output.FormatCSV, info))
	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 2)
	assert.Equal(t, "symbol,name,industry,list_date,market", lines[0])
	assert.Equal(t, "600519.SH,贵州茅台,酿酒行业,20010827,CN", lines[1])

	buf.Reset()
	require.NoError(t, output.Info(&buf, output.FormatTable, info))
	assert.Contains(t, buf.String(), "INDUSTRY")
	assert.Contains(t, buf.String(), "酿酒行业")

	buf.Reset()
	require.NoError(t, output.Info(&buf, output.FormatJSON, info))
	var decoded market.StockInfo
	require.NoError(t, json.Unmarshal(buf.Bytes(), &decoded))
	assert.Equal(t, info, decoded)
}

func TestListingCSV(t *testing.T) {
	stocks := []market.StockInfo{{Symbol: "600519.SH", Name: "贵州茅台", Market: "CN"}}

	var buf bytes.Buffer
	require.NoError(t, output.Listing(&buf, output.FormatCSV, stocks))

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 2)
	assert.Equal(t, "symbol,name,market", lines[0])
	assert.Equal(t, "600519.SH,贵州茅台,CN", lines[1])
}
