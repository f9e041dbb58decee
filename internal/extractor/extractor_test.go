package extractor

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tripledger/bookings/internal/dom"
	"github.com/tripledger/bookings/internal/models"
)

const templateHTML = `
<div class="card">
  <h2>Hotel Sunshine</h2>
  <div class="addr">Lisbon, Portugal</div>
  <div class="checkin">Check-in: 2023-09-01</div>
  <div class="checkout">Check-out: 2023-09-05</div>
  <div class="total">Total: € 450,00</div>
</div>
<div class="card">
  <h2>Mountain View Inn</h2>
  <div class="addr">Zermatt, Switzerland</div>
  <div class="checkin">Check-in: Sep 10, 2022</div>
  <div class="checkout">Check-out: Sep 12, 2022</div>
  <div class="total">Total: CHF 780</div>
</div>
`

const tripsHTML = `<html><body>
<h1>Past trips</h1>
<div data-testid="trips-list">
  <section data-testid="trip-card">
    <h3 data-testid="hotel-name">Hotel Lumière</h3>
    <p data-testid="address">12 Rue de Rivoli, Paris, France</p>
    <dl>
      <dt>Check-in</dt><dd>Fri, 12 Jan 2024</dd>
      <dt>Check-out</dt><dd>Mon, 15 Jan 2024</dd>
    </dl>
    <div><span>Total</span> <span>€ 250.00</span></div>
  </section>
  <section data-testid="trip-card">
    <h3>Canal House</h3>
    <p class="hotel-address">Keizersgracht 148, Amsterdam, Netherlands</p>
    <dl>
      <dt>Check-in</dt><dd>Mar 3, 2023</dd>
      <dt>Check-out</dt><dd>Mar 5, 2023</dd>
    </dl>
    <div data-testid="price-summary">Paid US$ 512</div>
  </section>
  <section data-testid="trip-card">
    <h3>No Price Lodge</h3>
    <dl>
      <dt>Check-in</dt><dd>Apr 1, 2023</dd>
      <dt>Check-out</dt><dd>Apr 2, 2023</dd>
    </dl>
    <div>Total</div>
  </section>
</div>
</body></html>`

func staticPage(t *testing.T, html string) *dom.Static {
	t.Helper()
	page, err := dom.NewStatic(html)
	require.NoError(t, err)
	return page
}

func TestFromHTML(t *testing.T) {
	raws := FromHTML(templateHTML)
	require.Len(t, raws, 2)

	assert.Equal(t, "Hotel Sunshine", raws[0].HotelName)
	assert.Contains(t, raws[0].AddressText, "Lisbon")
	assert.Equal(t, "2023-09-01", raws[0].StartDateText)
	assert.Equal(t, "2023-09-05", raws[0].EndDateText)
	assert.Contains(t, raws[0].TotalPriceText, "€")

	assert.Equal(t, "Mountain View Inn", raws[1].HotelName)
	assert.Equal(t, "Sep 10, 2022", raws[1].StartDateText)
	assert.Equal(t, "CHF 780", raws[1].TotalPriceText)
}

func TestFromHTML_NoMatch(t *testing.T) {
	assert.Empty(t, FromHTML(`<div class="card"><h2>Broken</h2></div>`))
}

func TestFromHTML_DropsIncompleteCards(t *testing.T) {
	html := `
<div class="card">
  <h2>No Total Hotel</h2>
  <div class="addr">Porto, Portugal</div>
  <div class="checkin">Check-in: 2023-09-01</div>
  <div class="checkout">Check-out: 2023-09-05</div>
  <div class="total">Total: </div>
</div>
<div class="card">
  <h2>  </h2>
  <div class="addr">Faro, Portugal</div>
  <div class="checkin">Check-in: 2023-10-01</div>
  <div class="checkout">Check-out: 2023-10-03</div>
  <div class="total">Total: € 120</div>
</div>
<div class="card">
  <h2>Casa Verde</h2>
  <div class="addr"></div>
  <div class="checkin">Check-in: 2023-11-01</div>
  <div class="checkout">Check-out: 2023-11-02</div>
  <div class="total">Total: € 80</div>
</div>`

	raws := FromHTML(html)
	require.Len(t, raws, 1)
	assert.Equal(t, "Casa Verde", raws[0].HotelName)
	assert.Empty(t, raws[0].AddressText)
	assert.Equal(t, "€ 80", raws[0].TotalPriceText)
}

func TestExtract_TemplateMarkup(t *testing.T) {
	raws := New(0).Extract(context.Background(), staticPage(t, templateHTML))
	expected := FromHTML(templateHTML)
	require.Len(t, raws, len(expected))

	for i := range expected {
		assert.Equal(t, expected[i].HotelName, raws[i].HotelName)
		assert.Equal(t, expected[i].AddressText, raws[i].AddressText)
		assert.Equal(t, expected[i].StartDateText, raws[i].StartDateText)
		assert.Equal(t, expected[i].EndDateText, raws[i].EndDateText)
		// the heuristic keeps the label, the template strips it
		assert.Equal(t, "Total: "+expected[i].TotalPriceText, raws[i].TotalPriceText)
	}
}

func TestExtract_TripsPage(t *testing.T) {
	raws := New(0).Extract(context.Background(), staticPage(t, tripsHTML))
	require.Len(t, raws, 2)

	assert.Equal(t, models.RawBooking{
		HotelName:      "Hotel Lumière",
		AddressText:    "12 Rue de Rivoli, Paris, France",
		StartDateText:  "Fri, 12 Jan 2024",
		EndDateText:    "Mon, 15 Jan 2024",
		TotalPriceText: "€ 250.00",
	}, raws[0])

	assert.Equal(t, "Canal House", raws[1].HotelName)
	assert.Equal(t, "Keizersgracht 148, Amsterdam, Netherlands", raws[1].AddressText)
	assert.Equal(t, "Mar 3, 2023", raws[1].StartDateText)
	assert.Equal(t, "Paid US$ 512", raws[1].TotalPriceText)
}

func TestCards_Strategies(t *testing.T) {
	testCases := []struct {
		name     string
		html     string
		expected int
	}{
		{
			name:     "innermost div only",
			html:     `<div><div><p>Check-in</p><p>Check-out</p></div><div><p>check-in</p><p>check-out</p></div></div>`,
			expected: 2,
		},
		{
			name:     "section beats div",
			html:     `<section><div>Check-in Check-out</div></section><div>Check-in Check-out</div>`,
			expected: 1,
		},
		{
			name:     "reservation testid fallback",
			html:     `<ul><li data-testid="reservation-row">a</li><li data-testid="reservation-row">b</li></ul>`,
			expected: 2,
		},
		{
			name: "nothing",
			html: `<p>No trips yet</p>`,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			cards := New(0).Cards(context.Background(), staticPage(t, tc.html))
			assert.Len(t, cards, tc.expected)
		})
	}
}

func TestRecords_Dedup(t *testing.T) {
	html := templateHTML + `<div class="card">
  <h2>Hotel Sunshine</h2>
  <div class="addr">Lisbon, Portugal</div>
  <div class="checkin">Check-in: 2023-09-01</div>
  <div class="checkout">Check-out: 2023-09-05</div>
  <div class="total">Total: € 450,00</div>
</div>`

	raws := New(0).Extract(context.Background(), staticPage(t, html))
	require.Len(t, raws, 2)
	assert.Equal(t, "Hotel Sunshine", raws[0].HotelName)
	assert.Equal(t, "Mountain View Inn", raws[1].HotelName)
}

func TestRecord_MissingFields(t *testing.T) {
	testCases := []struct {
		name string
		html string
	}{
		{name: "no hotel", html: `<div class="card"><div>Check-in: 2023-09-01</div><div>Check-out: 2023-09-05</div><div>Total 10 EUR</div></div>`},
		{name: "no price digits", html: `<div class="card"><h2>X</h2><div>Check-in: 2023-09-01</div><div>Check-out: 2023-09-05</div><div>Total: tbd</div></div>`},
		{name: "hidden hotel", html: `<div class="card"><h2 style="display:none">X</h2><div>Check-in: 2023-09-01</div><div>Check-out: 2023-09-05</div><div>Total 10 EUR</div></div>`},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			page := staticPage(t, tc.html)
			cards, err := page.FindCSS(context.Background(), "div.card")
			require.NoError(t, err)
			require.Len(t, cards, 1)

			_, ok := New(0).Record(context.Background(), cards[0])
			assert.False(t, ok)
		})
	}
}

func TestExtract_CanceledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	assert.Empty(t, New(0).Extract(ctx, staticPage(t, templateHTML)))
}
