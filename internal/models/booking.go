package models

import (
	"encoding/json"
	"strings"

	"github.com/shopspring/decimal"
)

// RawBooking is the text captured verbatim from one booking card.
type RawBooking struct {
	HotelName      string `json:"hotel_name"`
	AddressText    string `json:"address_text,omitempty"`
	CityText       string `json:"city_text,omitempty"`
	CountryText    string `json:"country_text,omitempty"`
	StartDateText  string `json:"start_date_text"`
	EndDateText    string `json:"end_date_text"`
	TotalPriceText string `json:"total_price_text"`
}

// NewRawBooking returns false when any required field is empty; such a card
// is an expected miss, not an error.
func NewRawBooking(hotel, address, start, end, total string) (RawBooking, bool) {
	raw := RawBooking{
		HotelName:      strings.TrimSpace(hotel),
		AddressText:    strings.TrimSpace(address),
		StartDateText:  strings.TrimSpace(start),
		EndDateText:    strings.TrimSpace(end),
		TotalPriceText: strings.TrimSpace(total),
	}
	return raw, raw.Complete()
}

func (r RawBooking) Complete() bool {
	return r.HotelName != "" && r.StartDateText != "" && r.EndDateText != "" && r.TotalPriceText != ""
}

// Key identifies a card by its visible content. Nested card matches and
// re-scans after pagination produce the same key.
func (r RawBooking) Key() string {
	return strings.Join([]string{
		r.HotelName, r.AddressText, r.StartDateText, r.EndDateText, r.TotalPriceText,
	}, "\x1f")
}

type Price struct {
	Amount   decimal.Decimal
	Currency string
}

// FormatAmount keeps the scale the amount was written with, so 250.00 stays
// "250.00" instead of decimal's trimmed "250".
func FormatAmount(d decimal.Decimal) string {
	if exp := d.Exponent(); exp < 0 {
		return d.StringFixed(-exp)
	}
	return d.String()
}

func (p Price) String() string {
	if p.Currency != "" {
		return FormatAmount(p.Amount) + " " + p.Currency
	}
	return FormatAmount(p.Amount)
}

func (p Price) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Amount   string `json:"amount"`
		Currency string `json:"currency,omitempty"`
	}{FormatAmount(p.Amount), p.Currency})
}

// Booking is a validated reservation ready for export.
type Booking struct {
	City       string `json:"city"`
	Country    string `json:"country"`
	HotelName  string `json:"hotel_name"`
	StartDate  Date   `json:"start_date"`
	EndDate    Date   `json:"end_date"`
	TotalPrice Price  `json:"total_price"`
}

var CSVHeader = []string{
	"City",
	"Country",
	"Hotel name",
	"Start date",
	"End date",
	"Total price of booking",
}

func (b Booking) CSVRow() []string {
	return []string{
		b.City,
		b.Country,
		b.HotelName,
		b.StartDate.String(),
		b.EndDate.String(),
		b.TotalPrice.String(),
	}
}
