package normalize

import (
	"fmt"
	"strings"

	"github.com/tripledger/bookings/internal/models"
	"github.com/tripledger/bookings/pkg/logger"
)

// Normalize converts one raw record. It has no side effects, so the same
// input always yields the same booking.
func Normalize(raw models.RawBooking) (models.Booking, error) {
	return defaultDateParser.Normalize(raw)
}

func (p DateParser) Normalize(raw models.RawBooking) (models.Booking, error) {
	start, err := p.Parse(raw.StartDateText)
	if err != nil {
		return models.Booking{}, fmt.Errorf("start date: %w", err)
	}
	end, err := p.Parse(raw.EndDateText)
	if err != nil {
		return models.Booking{}, fmt.Errorf("end date: %w", err)
	}
	price, err := ParsePrice(raw.TotalPriceText)
	if err != nil {
		return models.Booking{}, fmt.Errorf("total price: %w", err)
	}

	city, country := ExtractLocation(raw.AddressText, raw.CityText, raw.CountryText)

	return models.Booking{
		City:       city,
		Country:    country,
		HotelName:  strings.TrimSpace(raw.HotelName),
		StartDate:  start,
		EndDate:    end,
		TotalPrice: models.Price{Amount: price.Amount, Currency: price.Currency},
	}, nil
}

// NormalizeAll normalizes every record independently. Records that fail are
// logged at debug level and left out.
func NormalizeAll(raws []models.RawBooking) []models.Booking {
	log := logger.Log

	bookings := make([]models.Booking, 0, len(raws))
	for _, raw := range raws {
		b, err := Normalize(raw)
		if err != nil {
			log.Debug().Err(err).Str("hotel", raw.HotelName).Msg("skipping booking due to normalization error")
			continue
		}
		bookings = append(bookings, b)
	}
	return bookings
}

// FilterByDate keeps bookings whose check-in lies within [from, to]. A nil
// bound is open; with both nil the input is returned unchanged.
func FilterByDate(bookings []models.Booking, from, to *models.Date) []models.Booking {
	if from == nil && to == nil {
		return bookings
	}

	result := make([]models.Booking, 0, len(bookings))
	for _, b := range bookings {
		if from != nil && b.StartDate.Before(*from) {
			continue
		}
		if to != nil && b.StartDate.After(*to) {
			continue
		}
		result = append(result, b)
	}
	return result
}
