package scrape

import (
	"context"
	"regexp"
	"time"

	"github.com/tripledger/bookings/internal/dom"
	"github.com/tripledger/bookings/internal/extractor"
	"github.com/tripledger/bookings/pkg/logger"
	"golang.org/x/time/rate"
)

const (
	DefaultMaxLoadMore = 5
	networkIdleTimeout = 5 * time.Second
)

var loadMoreName = regexp.MustCompile(`(?i)(load|show) more`)

// Paginator expands a lazily loaded reservation list by clicking its
// "Load more" control until it disappears or the ceiling is reached.
type Paginator struct {
	extractor   *extractor.Extractor
	maxLoadMore int
	idleTimeout time.Duration
	limit       rate.Limit
}

func NewPaginator(ex *extractor.Extractor, maxLoadMore int, throttle time.Duration) *Paginator {
	if maxLoadMore < 0 {
		maxLoadMore = DefaultMaxLoadMore
	}

	limit := rate.Inf
	if throttle > 0 {
		limit = rate.Every(throttle)
	}

	return &Paginator{
		extractor:   ex,
		maxLoadMore: maxLoadMore,
		idleTimeout: networkIdleTimeout,
		limit:       limit,
	}
}

// Run returns the card set after pagination. Each successful click is
// followed by a rescan, and a non-empty rescan replaces the previous set.
func (p *Paginator) Run(ctx context.Context, page dom.Page, cards []dom.Node) []dom.Node {
	log := logger.Log

	// burst spent up front so the first click is throttled too
	limiter := p.newLimiter()

	for i := 0; i < p.maxLoadMore; i++ {
		if !p.clickLoadMore(ctx, page) {
			break
		}

		if err := limiter.Wait(ctx); err != nil {
			log.Debug().Err(err).Msg("pagination stopped")
			break
		}

		if rescanned := p.extractor.Cards(ctx, page); len(rescanned) > 0 {
			cards = rescanned
		}
		log.Debug().Int("round", i+1).Int("cards", len(cards)).Msg("load more clicked")
	}
	return cards
}

func (p *Paginator) newLimiter() *rate.Limiter {
	limiter := rate.NewLimiter(p.limit, 1)
	limiter.Allow()
	return limiter
}

func (p *Paginator) clickLoadMore(ctx context.Context, page dom.Page) bool {
	log := logger.Log

	candidates := []func() ([]dom.Node, error){
		func() ([]dom.Node, error) { return page.FindByRole(ctx, "button", loadMoreName) },
		func() ([]dom.Node, error) { return page.FindByText(ctx, loadMoreName) },
	}

	for _, find := range candidates {
		if ctx.Err() != nil {
			return false
		}
		nodes, err := find()
		if err != nil {
			log.Debug().Err(err).Msg("load more lookup failed")
			continue
		}
		button, ok := dom.FirstVisible(ctx, nodes)
		if !ok {
			continue
		}
		if err := button.Click(ctx); err != nil {
			log.Debug().Err(err).Msg("load more click failed")
			continue
		}
		if err := page.WaitNetworkIdle(ctx, p.idleTimeout); err != nil {
			log.Debug().Err(err).Msg("network not idle after load more, continuing")
		}
		return true
	}
	return false
}
