package export

import (
	"fmt"
	"io"
	"sort"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/shopspring/decimal"
	"github.com/tripledger/bookings/internal/models"
)

// PrintSummary renders the bookings as a table followed by per-currency
// totals.
func PrintSummary(w io.Writer, bookings []models.Booking) {
	t := newTable(w)

	header := table.Row{}
	for _, h := range models.CSVHeader {
		header = append(header, h)
	}
	t.AppendHeader(header)

	for _, b := range bookings {
		row := table.Row{}
		for _, v := range b.CSVRow() {
			row = append(row, v)
		}
		t.AppendRow(row)
	}

	for _, total := range totalsByCurrency(bookings) {
		t.AppendFooter(table.Row{"", "", "", "", "Total", total})
	}
	t.SetCaption(fmt.Sprintf("%d booking(s)", len(bookings)))
	t.Render()
}

func newTable(w io.Writer) table.Writer {
	t := table.NewWriter()
	t.SetStyle(table.StyleRounded)
	t.SetOutputMirror(w)
	return t
}

// totalsByCurrency sums amounts per currency, sorted by currency code. An
// unknown currency sorts first.
func totalsByCurrency(bookings []models.Booking) []string {
	sums := map[string]decimal.Decimal{}
	for _, b := range bookings {
		sums[b.TotalPrice.Currency] = sums[b.TotalPrice.Currency].Add(b.TotalPrice.Amount)
	}

	currencies := make([]string, 0, len(sums))
	for c := range sums {
		currencies = append(currencies, c)
	}
	sort.Strings(currencies)

	totals := make([]string, 0, len(currencies))
	for _, c := range currencies {
		totals = append(totals, models.Price{Amount: sums[c], Currency: c}.String())
	}
	return totals
}
