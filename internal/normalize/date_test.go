package normalize

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tripledger/bookings/internal/models"
)

func TestParseDate_Variants(t *testing.T) {
	expected := models.NewDate(2024, time.January, 12)

	for _, text := range []string{"2024-01-12", "12 Jan 2024", "Jan 12, 2024"} {
		t.Run(text, func(t *testing.T) {
			d, err := ParseDate(text)
			require.NoError(t, err)
			assert.Equal(t, expected, d)
		})
	}
}

func TestParseDate_Strategies(t *testing.T) {
	testCases := []struct {
		name     string
		text     string
		expected models.Date
	}{
		{name: "iso with spaces", text: "  2023-09-01 ", expected: models.NewDate(2023, time.September, 1)},
		{name: "iso datetime", text: "2023-09-01T14:00:00", expected: models.NewDate(2023, time.September, 1)},
		{name: "month first numeric", text: "01/02/2024", expected: models.NewDate(2024, time.January, 2)},
		{name: "long month", text: "September 10, 2022", expected: models.NewDate(2022, time.September, 10)},
		{name: "fuzzy label", text: "Check-in: Sep 10, 2022", expected: models.NewDate(2022, time.September, 10)},
		{name: "fuzzy weekday", text: "Fri, 1 Sep 2023 from 15:00", expected: models.NewDate(2023, time.September, 1)},
		{name: "ordinal", text: "Arriving on the 3rd Mar 2021", expected: models.NewDate(2021, time.March, 3)},
		{name: "sept day first", text: "1 Sept 2023", expected: models.NewDate(2023, time.September, 1)},
		{name: "sept month first", text: "Sept 1, 2023", expected: models.NewDate(2023, time.September, 1)},
		{name: "sept with label", text: "Check-out: Sept 4, 2023", expected: models.NewDate(2023, time.September, 4)},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			d, err := ParseDate(tc.text)
			require.NoError(t, err)
			assert.Equal(t, tc.expected, d)
		})
	}
}

func TestDateParser_NaturalLanguage(t *testing.T) {
	p := DateParser{Now: func() time.Time {
		return time.Date(2024, time.March, 15, 12, 0, 0, 0, time.UTC)
	}}

	d, err := p.Parse("yesterday")
	require.NoError(t, err)
	assert.Equal(t, models.NewDate(2024, time.March, 14), d)

	d, err = p.Parse("tomorrow")
	require.NoError(t, err)
	assert.Equal(t, models.NewDate(2024, time.March, 16), d)
}

func TestParseDate_Errors(t *testing.T) {
	for _, text := range []string{
		"",
		"   ",
		"no date here",
		"2024-02-30",
		"2023-13-01",
		"Check-in from 15:00",
	} {
		t.Run(text, func(t *testing.T) {
			_, err := ParseDate(text)
			require.Error(t, err)
			assert.True(t, errors.Is(err, ErrDateParse))

			var de *DateParseError
			require.True(t, errors.As(err, &de))
			assert.Equal(t, text, de.Text)
		})
	}
}

func TestDateParser_NaturalLanguageNeedsWholeText(t *testing.T) {
	p := DateParser{Now: func() time.Time {
		return time.Date(2024, time.March, 15, 12, 0, 0, 0, time.UTC)
	}}

	testCases := []struct {
		name string
		text string
	}{
		{name: "time only", text: "from 15:00 onwards"},
		{name: "phrase in longer text", text: "tomorrow or the day after, unconfirmed"},
		{name: "date word with trailing noise", text: "yesterday maybe"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := p.Parse(tc.text)
			assert.ErrorIs(t, err, ErrDateParse)
		})
	}

	d, err := p.Parse("Yesterday.")
	require.NoError(t, err)
	assert.Equal(t, models.NewDate(2024, time.March, 14), d)
}
