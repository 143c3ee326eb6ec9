package screener

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// row is one security line of the screener table.
type row struct {
	Symbol          string
	Price           float64
	DollarVolume    float64
	MarketCap       float64
	PERatio         float64
	HasFundamentals bool
}

// parseScreenerHTML extracts rows from one page of the screener table.
// Column layout: symbol | price | dollar volume | market cap | P/E.
// Securities without fundamental coverage show dashes in the last two
// columns.
func parseScreenerHTML(html string) ([]row, bool, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, false, err
	}

	table := doc.Find("table.screener-table")
	if table.Length() == 0 {
		return nil, false, fmt.Errorf("screener table not found")
	}

	var rows []row
	table.Find("tbody tr").Each(func(i int, tr *goquery.Selection) {
		cells := tr.Find("td")
		if cells.Length() < 5 {
			return
		}

		symbol := strings.TrimSpace(cells.Eq(0).Text())
		if symbol == "" {
			return
		}

		price, err := parseNumber(cells.Eq(1).Text())
		if err != nil || price <= 0 {
			return
		}

		dollarVolume, err := parseNumber(cells.Eq(2).Text())
		if err != nil {
			dollarVolume = 0
		}

		r := row{
			Symbol:       symbol,
			Price:        price,
			DollarVolume: dollarVolume,
		}

		marketCap, capErr := parseNumber(cells.Eq(3).Text())
		peRatio, peErr := parseNumber(cells.Eq(4).Text())
		if capErr == nil && peErr == nil {
			r.MarketCap = marketCap
			r.PERatio = peRatio
			r.HasFundamentals = true
		}

		rows = append(rows, r)
	})

	hasMore := doc.Find("a.next-page").Length() > 0
	return rows, hasMore, nil
}

// parseNumber parses screener number formats: plain ("12.34"), grouped
// ("1,234.5") and abbreviated ("1.5B", "300M", "2.1K"). Dashes and
// placeholders are errors so callers can tell missing from zero.
func parseNumber(s string) (float64, error) {
	s = strings.TrimSpace(s)
	s = strings.TrimPrefix(s, "$")
	s = strings.ReplaceAll(s, ",", "")

	if s == "" || s == "-" || s == "—" || strings.EqualFold(s, "n/a") {
		return 0, fmt.Errorf("no value")
	}

	multiplier := 1.0
	switch {
	case strings.HasSuffix(s, "B"):
		multiplier = 1e9
		s = strings.TrimSuffix(s, "B")
	case strings.HasSuffix(s, "M"):
		multiplier = 1e6
		s = strings.TrimSuffix(s, "M")
	case strings.HasSuffix(s, "K"):
		multiplier = 1e3
		s = strings.TrimSuffix(s, "K")
	}

	value, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, fmt.Errorf("parse %q: %w", s, err)
	}
	return value * multiplier, nil
}
