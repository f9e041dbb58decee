package extractor

import (
	"regexp"

	"github.com/tripledger/bookings/internal/models"
)

var cardTemplateRegex = regexp.MustCompile(`(?is)<div class="card">\s*<h2>(.*?)</h2>\s*<div class="addr">(.*?)</div>\s*<div class="checkin">Check-in[:\s]*(.*?)</div>\s*<div class="checkout">Check-out[:\s]*(.*?)</div>\s*<div class="total">Total[:\s]*(.*?)</div>`)

// FromHTML reads cards written in the fixed export template without a DOM.
// Cards missing the hotel name, either date or the price are dropped.
func FromHTML(html string) []models.RawBooking {
	var raws []models.RawBooking
	for _, m := range cardTemplateRegex.FindAllStringSubmatch(html, -1) {
		if raw, ok := models.NewRawBooking(m[1], m[2], m[3], m[4], m[5]); ok {
			raws = append(raws, raw)
		}
	}
	return raws
}
