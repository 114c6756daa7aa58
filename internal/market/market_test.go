package market

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// providerFrame builds a frame shaped like the kline feed: native labels,
// deliberately unsorted rows.
func providerFrame() RawFrame {
	return RawFrame{
		Columns: []string{"日期", "开盘", "收盘", "最高", "最低", "成交量", "成交额", "振幅", "涨跌幅", "涨跌额", "换手率"},
		Rows: [][]string{
			{"2023-01-04", "1690.0", "1700.5", "1712.0", "1680.1", "31000", "5.2e9", "1.9", "0.4", "6.8", "0.25"},
			{"2023-01-03", "1689.0", "1689.5", "1695.0", "1675.0", "29000", "4.9e9", "1.2", "0.1", "1.7", "0.23"},
		},
	}
}

func TestNormalizeMapsAndSorts(t *testing.T) {
	bars, err := Normalize(providerFrame(), "600519.SH")
	require.NoError(t, err)
	require.Len(t, bars, 2)

	// Rows sorted ascending by date, dates canonicalized, symbol attached.
	assert.Equal(t, "20230103", bars[0].Date)
	assert.Equal(t, "20230104", bars[1].Date)
	for _, b := range bars {
		assert.Equal(t, "600519.SH", b.Symbol)
	}

	assert.Equal(t, 1689.0, bars[0].Open)
	assert.Equal(t, 1695.0, bars[0].High)
	assert.Equal(t, 1675.0, bars[0].Low)
	assert.Equal(t, 1689.5, bars[0].Close)
	assert.Equal(t, int64(29000), bars[0].Volume)
	assert.Equal(t, 4.9e9, bars[0].Amount)
}

func TestNormalizeCanonicalColumns(t *testing.T) {
	// The canonical output shape is exactly these columns, in this order.
	assert.Equal(t, []string{"date", "open", "high", "low", "close", "volume", "amount", "symbol"}, CanonicalColumns)
}

func TestNormalizeMissingColumn(t *testing.T) {
	frame := RawFrame{
		Columns: []string{"日期", "开盘"},
		Rows:    [][]string{{"2023-01-03", "10.0"}},
	}
	_, err := Normalize(frame, "000001.SZ")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "missing column")
}

func TestNormalizeRaggedRow(t *testing.T) {
	frame := providerFrame()
	frame.Rows[0] = frame.Rows[0][:5]
	_, err := Normalize(frame, "600519.SH")
	require.Error(t, err)
}

func TestNormalizeAcceptsCanonicalLabels(t *testing.T) {
	frame := RawFrame{
		Columns: []string{"date", "open", "close", "high", "low", "volume", "amount"},
		Rows:    [][]string{{"20230103", "1", "2", "3", "0.5", "100", "200"}},
	}
	bars, err := Normalize(frame, "000001.SZ")
	require.NoError(t, err)
	require.Len(t, bars, 1)
	assert.Equal(t, 3.0, bars[0].High)
}

func TestNormalizeSuspendedValues(t *testing.T) {
	frame := providerFrame()
	frame.Rows[0][1] = "-" // suspended stocks report "-" for prices
	bars, err := Normalize(frame, "600519.SH")
	require.NoError(t, err)
	assert.Equal(t, 0.0, bars[1].Open) // row sorts to second place
}

func TestCanonicalDate(t *testing.T) {
	for in, want := range map[string]string{
		"2023-01-03": "20230103",
		"20230103":   "20230103",
	} {
		got, err := CanonicalDate(in)
		require.NoError(t, err)
		assert.Equal(t, want, got)
	}

	_, err := CanonicalDate("03/01/2023")
	assert.Error(t, err)
}

func TestValidateDateRange(t *testing.T) {
	assert.NoError(t, ValidateDateRange("20230101", "20230110"))
	assert.NoError(t, ValidateDateRange("20230101", "20230101"))

	err := ValidateDateRange("20230110", "20230101")
	assert.ErrorIs(t, err, ErrInvalidDateRange)

	assert.ErrorIs(t, ValidateDateRange("2023-01-01", "20230110"), ErrInvalidDateRange)
	assert.ErrorIs(t, ValidateDateRange("20230101", "tomorrow"), ErrInvalidDateRange)
}

func TestParsePeriod(t *testing.T) {
	for in, want := range map[string]Period{
		"daily":   PeriodDaily,
		"Weekly":  PeriodWeekly,
		"MONTHLY": PeriodMonthly,
	} {
		got, err := ParsePeriod(in)
		require.NoError(t, err)
		assert.Equal(t, want, got)
	}

	_, err := ParsePeriod("hourly")
	assert.Error(t, err)
}
