package normalize

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tripledger/bookings/internal/models"
)

func sampleRaw() models.RawBooking {
	return models.RawBooking{
		HotelName:      "  Hotel Lumière ",
		AddressText:    "12 Rue de Rivoli, Paris, France",
		StartDateText:  "Check-in: 12 Jan 2024",
		EndDateText:    "Jan 15, 2024",
		TotalPriceText: "Total EUR 250.00",
	}
}

func TestNormalize(t *testing.T) {
	b, err := Normalize(sampleRaw())
	require.NoError(t, err)

	assert.Equal(t, "Paris", b.City)
	assert.Equal(t, "France", b.Country)
	assert.Equal(t, "Hotel Lumière", b.HotelName)
	assert.Equal(t, models.NewDate(2024, time.January, 12), b.StartDate)
	assert.Equal(t, models.NewDate(2024, time.January, 15), b.EndDate)
	assert.Equal(t, "250.00 EUR", b.TotalPrice.String())
}

func TestNormalize_Idempotent(t *testing.T) {
	raw := sampleRaw()

	first, err := Normalize(raw)
	require.NoError(t, err)
	second, err := Normalize(raw)
	require.NoError(t, err)

	assert.Equal(t, first.CSVRow(), second.CSVRow())
}

func TestNormalize_Errors(t *testing.T) {
	testCases := []struct {
		name   string
		mutate func(*models.RawBooking)
		target error
		prefix string
	}{
		{name: "bad start", mutate: func(r *models.RawBooking) { r.StartDateText = "soon-ish" }, target: ErrDateParse, prefix: "start date"},
		{name: "bad end", mutate: func(r *models.RawBooking) { r.EndDateText = "" }, target: ErrDateParse, prefix: "end date"},
		{name: "bad price", mutate: func(r *models.RawBooking) { r.TotalPriceText = "free" }, target: ErrPriceParse, prefix: "total price"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			raw := sampleRaw()
			tc.mutate(&raw)

			_, err := Normalize(raw)
			require.Error(t, err)
			assert.True(t, errors.Is(err, tc.target))
			assert.Contains(t, err.Error(), tc.prefix)
		})
	}
}

func TestNormalizeAll_SkipsFailures(t *testing.T) {
	bad := sampleRaw()
	bad.TotalPriceText = "n/a"

	other := sampleRaw()
	other.HotelName = "Mountain View Inn"
	other.AddressText = "Bahnhofstrasse 5, Zermatt, Switzerland"
	other.TotalPriceText = "999 CHF"

	bookings := NormalizeAll([]models.RawBooking{sampleRaw(), bad, other})
	require.Len(t, bookings, 2)
	assert.Equal(t, "Hotel Lumière", bookings[0].HotelName)
	assert.Equal(t, "Mountain View Inn", bookings[1].HotelName)
	assert.Equal(t, "CHF", bookings[1].TotalPrice.Currency)
}

func TestNormalizeAll_Empty(t *testing.T) {
	assert.Empty(t, NormalizeAll(nil))
}

func TestFilterByDate(t *testing.T) {
	mk := func(name string, m time.Month, d int) models.Booking {
		return models.Booking{HotelName: name, StartDate: models.NewDate(2024, m, d)}
	}
	bookings := []models.Booking{
		mk("jan", time.January, 10),
		mk("feb", time.February, 1),
		mk("mar", time.March, 31),
	}
	from := models.NewDate(2024, time.February, 1)
	to := models.NewDate(2024, time.March, 31)

	names := func(bs []models.Booking) []string {
		var out []string
		for _, b := range bs {
			out = append(out, b.HotelName)
		}
		return out
	}

	testCases := []struct {
		name     string
		from     *models.Date
		to       *models.Date
		expected []string
	}{
		{name: "no bounds", expected: []string{"jan", "feb", "mar"}},
		{name: "inclusive range", from: &from, to: &to, expected: []string{"feb", "mar"}},
		{name: "from only", from: &from, expected: []string{"feb", "mar"}},
		{name: "to only", to: &from, expected: []string{"jan", "feb"}},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.expected, names(FilterByDate(bookings, tc.from, tc.to)))
		})
	}
}
