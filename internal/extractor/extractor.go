package extractor

import (
	"context"
	"time"

	"github.com/tripledger/bookings/internal/dom"
	"github.com/tripledger/bookings/internal/models"
	"github.com/tripledger/bookings/pkg/logger"
)

const DefaultProbeTimeout = 2 * time.Second

type cardStrategy struct {
	name string
	find func(ctx context.Context, root dom.Node) ([]dom.Node, error)
}

// Tried in order, the first strategy that yields any card wins.
var cardStrategies = []cardStrategy{
	{"section with dates", func(ctx context.Context, root dom.Node) ([]dom.Node, error) {
		return root.FindHasText(ctx, "section", []string{"Check-in", "Check-out"})
	}},
	{"div with dates", func(ctx context.Context, root dom.Node) ([]dom.Node, error) {
		return root.FindHasText(ctx, "div", []string{"Check-in", "Check-out"})
	}},
	{"trip testid", func(ctx context.Context, root dom.Node) ([]dom.Node, error) {
		return root.FindCSS(ctx, "[data-testid*='trip']")
	}},
	{"reservation testid", func(ctx context.Context, root dom.Node) ([]dom.Node, error) {
		return root.FindCSS(ctx, "[data-testid*='reservation']")
	}},
}

type Extractor struct {
	probeTimeout time.Duration
}

func New(probeTimeout time.Duration) *Extractor {
	if probeTimeout <= 0 {
		probeTimeout = DefaultProbeTimeout
	}
	return &Extractor{probeTimeout: probeTimeout}
}

// Cards locates booking containers under root.
func (e *Extractor) Cards(ctx context.Context, root dom.Node) []dom.Node {
	log := logger.Log

	for _, s := range cardStrategies {
		if ctx.Err() != nil {
			return nil
		}
		cards, err := s.find(ctx, root)
		if err != nil {
			log.Debug().Err(err).Str("strategy", s.name).Msg("card strategy failed")
			continue
		}
		if len(cards) > 0 {
			log.Debug().Str("strategy", s.name).Int("cards", len(cards)).Msg("booking cards found")
			return cards
		}
	}
	return nil
}

// Record runs the field chains against one card. Cards missing the hotel
// name, either date or the price are reported as not found.
func (e *Extractor) Record(ctx context.Context, card dom.Node) (models.RawBooking, bool) {
	hotel, ok := e.run(ctx, card, hotelProbes)
	if !ok {
		return models.RawBooking{}, false
	}
	address, _ := e.run(ctx, card, addressProbes)
	start, _ := e.run(ctx, card, checkInProbes)
	end, _ := e.run(ctx, card, checkOutProbes)
	total, _ := e.run(ctx, card, priceProbes)

	return models.NewRawBooking(hotel, address, start, end, total)
}

// Records extracts every complete card, dropping duplicates but keeping
// document order.
func (e *Extractor) Records(ctx context.Context, cards []dom.Node) []models.RawBooking {
	seen := make(map[string]struct{}, len(cards))
	raws := make([]models.RawBooking, 0, len(cards))

	for _, card := range cards {
		raw, ok := e.Record(ctx, card)
		if !ok {
			continue
		}
		key := raw.Key()
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		raws = append(raws, raw)
	}
	return raws
}

func (e *Extractor) Extract(ctx context.Context, root dom.Node) []models.RawBooking {
	return e.Records(ctx, e.Cards(ctx, root))
}

func (e *Extractor) run(ctx context.Context, card dom.Node, chain []probe) (string, bool) {
	for _, p := range chain {
		if ctx.Err() != nil {
			return "", false
		}
		if v, ok := e.try(ctx, card, p); ok {
			return v, true
		}
	}
	return "", false
}

func (e *Extractor) try(ctx context.Context, card dom.Node, p probe) (string, bool) {
	probeCtx, cancel := context.WithTimeout(ctx, e.probeTimeout)
	defer cancel()

	v, err := p.fn(probeCtx, card)
	if err != nil {
		logger.Log.Debug().Err(err).Str("probe", p.name).Msg("probe failed")
		return "", false
	}
	if v == "" || (p.accept != nil && !p.accept(v)) {
		return "", false
	}
	return v, true
}
