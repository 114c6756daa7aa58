// Package output renders bars, quotes and listings as tables, CSV or JSON.
package output

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"strconv"
	"text/tabwriter"

	"github.com/quantrail/ashare/internal/market"
)

// Supported output formats.
const (
	FormatTable = "table"
	FormatCSV   = "csv"
	FormatJSON  = "json"
)

// Bars writes a bar result set in the requested format. Columns follow the
// canonical order.
func Bars(w io.Writer, format string, bars []market.Bar) error {
	switch format {
	case FormatJSON:
		return printJSON(w, bars)
	case FormatCSV:
		return barsCSV(w, bars)
	case FormatTable:
		return barsTable(w, bars)
	}
	return fmt.Errorf("unknown output format %q", format)
}

// Quotes writes real-time quotes sorted by symbol.
func Quotes(w io.Writer, format string, quotes map[string]market.Quote) error {
	symbols := make([]string, 0, len(quotes))
	for s := range quotes {
		symbols = append(symbols, s)
	}
	sort.Strings(symbols)

	switch format {
	case FormatJSON:
		ordered := make([]market.Quote, 0, len(symbols))
		for _, s := range symbols {
			ordered = append(ordered, quotes[s])
		}
		return printJSON(w, ordered)
	case FormatCSV:
		cw := csv.NewWriter(w)
		if err := cw.Write([]string{"symbol", "name", "last", "open", "high", "low", "volume", "amount"}); err != nil {
			return err
		}
		for _, s := range symbols {
			q := quotes[s]
			record := []string{
				q.Symbol,
				q.Name,
				strconv.FormatFloat(q.Last, 'f', -1, 64),
				strconv.FormatFloat(q.Open, 'f', -1, 64),
				strconv.FormatFloat(q.High, 'f', -1, 64),
				strconv.FormatFloat(q.Low, 'f', -1, 64),
				strconv.FormatInt(q.Volume, 10),
				strconv.FormatFloat(q.Amount, 'f', -1, 64),
			}
			if err := cw.Write(record); err != nil {
				return err
			}
		}
		cw.Flush()
		return cw.Error()
	case FormatTable:
		tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
		fmt.Fprintln(tw, "SYMBOL\tNAME\tLAST\tOPEN\tHIGH\tLOW\tVOLUME\tAMOUNT")
		for _, s := range symbols {
			q := quotes[s]
			fmt.Fprintf(tw, "%s\t%s\t%.2f\t%.2f\t%.2f\t%.2f\t%d\t%.2f\n",
				q.Symbol, q.Name, q.Last, q.Open, q.High, q.Low, q.Volume, q.Amount)
		}
		return tw.Flush()
	}
	return fmt.Errorf("unknown output format %q", format)
}

// Listing writes the stock listing.
func Listing(w io.Writer, format string, stocks []market.StockInfo) error {
	switch format {
	case FormatJSON:
		return printJSON(w, stocks)
	case FormatCSV:
		cw := csv.NewWriter(w)
		if err := cw.Write([]string{"symbol", "name", "market"}); err != nil {
			return err
		}
		for _, s := range stocks {
			if err := cw.Write([]string{s.Symbol, s.Name, s.Market}); err != nil {
				return err
			}
		}
		cw.Flush()
		return cw.Error()
	case FormatTable:
		tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
		fmt.Fprintln(tw, "SYMBOL\tNAME\tMARKET")
		for _, s := range stocks {
			fmt.Fprintf(tw, "%s\t%s\t%s\n", s.Symbol, s.Name, s.Market)
		}
		return tw.Flush()
	}
	return fmt.Errorf("unknown output format %q", format)
}

// Info writes per-symbol detail.
func Info(w io.Writer, format string, info market.StockInfo) error {
	switch format {
	case FormatJSON:
		return printJSON(w, info)
	case FormatCSV:
		cw := csv.NewWriter(w)
		if err := cw.Write([]string{"symbol", "name", "industry", "list_date", "market"}); err != nil {
			return err
		}
		if err := cw.Write([]string{info.Symbol, info.Name, info.Industry, info.ListDate, info.Market}); err != nil {
			return err
		}
		cw.Flush()
		return cw.Error()
	case FormatTable:
		tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
		fmt.Fprintf(tw, "SYMBOL\t%s\n", info.Symbol)
		fmt.Fprintf(tw, "NAME\t%s\n", info.Name)
		fmt.Fprintf(tw, "INDUSTRY\t%s\n", info.Industry)
		fmt.Fprintf(tw, "LIST DATE\t%s\n", info.ListDate)
		fmt.Fprintf(tw, "MARKET\t%s\n", info.Market)
		return tw.Flush()
	}
	return fmt.Errorf("unknown output format %q", format)
}

func barsCSV(w io.Writer, bars []market.Bar) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(market.CanonicalColumns); err != nil {
		return err
	}
	for _, b := range bars {
		record := []string{
			b.Date,
			strconv.FormatFloat(b.Open, 'f', -1, 64),
			strconv.FormatFloat(b.High, 'f', -1, 64),
			strconv.FormatFloat(b.Low, 'f', -1, 64),
			strconv.FormatFloat(b.Close, 'f', -1, 64),
			strconv.FormatInt(b.Volume, 10),
			strconv.FormatFloat(b.Amount, 'f', -1, 64),
			b.Symbol,
		}
		if err := cw.Write(record); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

func barsTable(w io.Writer, bars []market.Bar) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "DATE\tOPEN\tHIGH\tLOW\tCLOSE\tVOLUME\tAMOUNT\tSYMBOL")
	for _, b := range bars {
		fmt.Fprintf(tw, "%s\t%.2f\t%.2f\t%.2f\t%.2f\t%d\t%.2f\t%s\n",
			b.Date, b.Open, b.High, b.Low, b.Close, b.Volume, b.Amount, b.Symbol)
	}
	return tw.Flush()
}

func printJSON(w io.Writer, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(w, string(data))
	return err
}
