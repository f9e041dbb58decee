package normalize

import (
	"errors"
	"fmt"
)

var (
	ErrDateParse  = errors.New("unable to parse date")
	ErrPriceParse = errors.New("unable to parse price")
)

type DateParseError struct {
	Text string
}

func (e *DateParseError) Error() string {
	return fmt.Sprintf("unable to parse date from: %q", e.Text)
}

func (e *DateParseError) Unwrap() error {
	return ErrDateParse
}

type PriceParseError struct {
	Text   string
	Reason string
}

func (e *PriceParseError) Error() string {
	return fmt.Sprintf("%s: %q", e.Reason, e.Text)
}

func (e *PriceParseError) Unwrap() error {
	return ErrPriceParse
}
