package scrape

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tripledger/bookings/internal/extractor"
)

func TestPaginator_Run(t *testing.T) {
	testCases := []struct {
		name        string
		docs        []string
		maxLoadMore int
		cards       int
		clicks      int
	}{
		{
			name:        "loads until button disappears",
			docs:        []string{tripsDoc(1, true), tripsDoc(2, true), tripsDoc(3, false)},
			maxLoadMore: 5,
			cards:       3,
			clicks:      2,
		},
		{
			name:        "stops at ceiling",
			docs:        []string{tripsDoc(1, true), tripsDoc(2, true), tripsDoc(3, true), tripsDoc(4, false)},
			maxLoadMore: 2,
			cards:       3,
			clicks:      2,
		},
		{
			name:        "empty rescan keeps previous cards",
			docs:        []string{tripsDoc(2, true), `<html><body><p>Loading…</p></body></html>`},
			maxLoadMore: 5,
			cards:       2,
			clicks:      1,
		},
		{
			name:        "hidden button is ignored",
			docs:        []string{`<html><body>` + tripsDoc(1, false) + `<div style="display:none"><button>Show more</button></div></body></html>`, tripsDoc(2, false)},
			maxLoadMore: 5,
			cards:       1,
			clicks:      0,
		},
		{
			name:        "text fallback",
			docs:        []string{tripsDoc(1, false) + `<span>Show more trips</span>`, tripsDoc(2, false)},
			maxLoadMore: 5,
			cards:       2,
			clicks:      1,
		},
		{
			name:        "disabled",
			docs:        []string{tripsDoc(1, true), tripsDoc(2, false)},
			maxLoadMore: 0,
			cards:       1,
			clicks:      0,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			ctx := context.Background()
			page := newSteppingPage(t, tc.docs...)
			ex := extractor.New(0)
			p := NewPaginator(ex, tc.maxLoadMore, 0)

			cards := p.Run(ctx, page, ex.Cards(ctx, page))

			assert.Len(t, cards, tc.cards)
			assert.Equal(t, tc.clicks, page.clicks)
			assert.Equal(t, tc.clicks, page.idleCalls)
		})
	}
}

func TestPaginator_IdleTimeoutDegrades(t *testing.T) {
	ctx := context.Background()
	page := newSteppingPage(t, tripsDoc(1, true), tripsDoc(2, false))
	page.idleErr = errors.New("wait network idle: context deadline exceeded")

	ex := extractor.New(0)
	cards := NewPaginator(ex, 5, 0).Run(ctx, page, ex.Cards(ctx, page))

	assert.Len(t, cards, 2)
}

func TestPaginator_CanceledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	page := newSteppingPage(t, tripsDoc(1, true), tripsDoc(2, false))
	ex := extractor.New(0)
	initial := ex.Cards(ctx, page)
	cancel()

	cards := NewPaginator(ex, 5, 0).Run(ctx, page, initial)

	assert.Len(t, cards, 1)
	assert.Zero(t, page.clicks)
}

func TestPaginator_ThrottlesFirstRoundAfterIdle(t *testing.T) {
	const throttle = 200 * time.Millisecond

	ctx := context.Background()
	ex := extractor.New(0)
	p := NewPaginator(ex, 5, throttle)

	// the paginator sits idle longer than the throttle, as it does while
	// the trips page loads
	time.Sleep(throttle + 50*time.Millisecond)

	page := newSteppingPage(t, tripsDoc(1, true), tripsDoc(2, false))
	start := time.Now()
	cards := p.Run(ctx, page, ex.Cards(ctx, page))
	elapsed := time.Since(start)

	require.Len(t, cards, 2)
	assert.Equal(t, 1, page.clicks)
	assert.GreaterOrEqual(t, elapsed, throttle-20*time.Millisecond)
}

func TestPaginator_EachRunThrottled(t *testing.T) {
	const throttle = 150 * time.Millisecond

	ctx := context.Background()
	ex := extractor.New(0)
	p := NewPaginator(ex, 5, throttle)

	for i := 0; i < 2; i++ {
		page := newSteppingPage(t, tripsDoc(1, true), tripsDoc(2, false))
		start := time.Now()
		p.Run(ctx, page, ex.Cards(ctx, page))
		assert.GreaterOrEqual(t, time.Since(start), throttle-20*time.Millisecond)
	}
}
