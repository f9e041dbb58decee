package scrape

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/tripledger/bookings/internal/browser"
	"github.com/tripledger/bookings/internal/config"
	"github.com/tripledger/bookings/internal/dom"
	"github.com/tripledger/bookings/internal/extractor"
	"github.com/tripledger/bookings/internal/models"
	"github.com/tripledger/bookings/pkg/logger"
)

type Options struct {
	Headless bool
	Debug    bool
	// RemoteURL attaches to a running Chrome instead of launching one.
	RemoteURL string
}

// Scraper fetches the raw reservation list of one account.
type Scraper struct {
	cfg       *config.Config
	opts      Options
	extractor *extractor.Extractor
	paginator *Paginator
	tripsURLs []string

	fetchOnce  func(ctx context.Context) ([]models.RawBooking, error)
	newBackOff func() backoff.BackOff
}

func New(cfg *config.Config, opts Options) *Scraper {
	ex := extractor.New(cfg.ProbeTimeout)
	s := &Scraper{
		cfg:       cfg,
		opts:      opts,
		extractor: ex,
		paginator: NewPaginator(ex, cfg.MaxLoadMore, cfg.Throttle),
		tripsURLs: browser.TripsURLs,
	}
	s.fetchOnce = s.fetchSession
	s.newBackOff = newExponentialBackOff
	return s
}

func newExponentialBackOff() backoff.BackOff {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = time.Second
	b.MaxInterval = 8 * time.Second
	b.RandomizationFactor = 0.5
	b.MaxElapsedTime = 0
	b.Reset()
	return b
}

// Fetch runs a whole browser session, retrying transient failures with
// jittered exponential backoff. Login failures are not retried.
func (s *Scraper) Fetch(ctx context.Context) ([]models.RawBooking, error) {
	log := logger.Log

	attempts := s.cfg.FetchAttempts
	if attempts < 1 {
		attempts = 1
	}
	b := backoff.WithContext(backoff.WithMaxRetries(s.newBackOff(), uint64(attempts-1)), ctx)

	attempt := 0
	op := func() ([]models.RawBooking, error) {
		attempt++
		raws, err := s.fetchOnce(ctx)
		if errors.Is(err, browser.ErrLogin) || errors.Is(err, context.Canceled) {
			return nil, backoff.Permanent(err)
		}
		return raws, err
	}
	notify := func(err error, wait time.Duration) {
		log.Warn().Err(err).Int("attempt", attempt).Dur("retry_in", wait).Msg("fetch failed, retrying")
	}

	raws, err := backoff.RetryNotifyWithData(op, b, notify)
	if err != nil {
		return nil, fmt.Errorf("fetch bookings: %w", err)
	}
	return raws, nil
}

func (s *Scraper) fetchSession(ctx context.Context) ([]models.RawBooking, error) {
	b, err := browser.New(ctx, browser.Options{Headless: s.opts.Headless, RemoteURL: s.opts.RemoteURL})
	if err != nil {
		return nil, err
	}
	defer b.Close()

	store := browser.NewSessionStore(s.cfg.SessionPath())
	page, err := b.LoggedInPage(ctx, store, browser.Credentials{Email: s.cfg.Email, Password: s.cfg.Password})
	if err != nil {
		return nil, err
	}
	defer page.Close()

	return s.collect(ctx, page)
}

// collect walks the known trips URLs until one shows booking cards, falling
// back to whatever page the session ended on, then paginates and extracts.
func (s *Scraper) collect(ctx context.Context, page dom.Page) ([]models.RawBooking, error) {
	log := logger.Log

	var cards []dom.Node
	for _, url := range s.tripsURLs {
		if err := page.Navigate(ctx, url); err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			log.Debug().Err(err).Str("url", url).Msg("trips url failed")
			continue
		}
		if err := sleep(ctx, s.cfg.PageLoadDelay); err != nil {
			return nil, err
		}
		if cards = s.extractor.Cards(ctx, page); len(cards) > 0 {
			log.Info().Str("url", url).Int("cards", len(cards)).Msg("trips page found")
			break
		}
	}

	if len(cards) == 0 {
		cards = s.extractor.Cards(ctx, page)
	}

	cards = s.paginator.Run(ctx, page, cards)
	raws := s.extractor.Records(ctx, cards)

	if s.opts.Debug {
		s.saveSnapshot(ctx, page)
	}

	if len(raws) == 0 {
		log.Info().Msg("no bookings found; if you have bookings, try --no-headless to assist with human verification or UI changes")
	}
	return raws, ctx.Err()
}

func (s *Scraper) saveSnapshot(ctx context.Context, page dom.Page) {
	log := logger.Log

	html, err := page.HTML(ctx)
	if err != nil {
		log.Debug().Err(err).Msg("snapshot skipped")
		return
	}

	dir := s.cfg.SnapshotDir()
	if err := os.MkdirAll(dir, 0o755); err != nil {
		log.Warn().Err(err).Msg("create snapshot dir failed")
		return
	}
	path := filepath.Join(dir, fmt.Sprintf("trips-%s.html", time.Now().UTC().Format("20060102-150405")))
	if err := os.WriteFile(path, []byte(html), 0o644); err != nil {
		log.Warn().Err(err).Msg("write snapshot failed")
		return
	}
	log.Info().Str("path", path).Msg("page snapshot saved")
}

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
