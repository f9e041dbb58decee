package scrape

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/tripledger/bookings/internal/dom"
)

// steppingPage shows docs[idx]; clicking any node found through it moves
// on to the next document, the way a "Load more" button grows the list.
type steppingPage struct {
	docs      []*dom.Static
	idx       int
	clicks    int
	idleCalls int
	navigated []string
	navErr    map[string]error
	idleErr   error
}

var _ dom.Page = (*steppingPage)(nil)

func newSteppingPage(t *testing.T, docs ...string) *steppingPage {
	t.Helper()
	p := &steppingPage{navErr: map[string]error{}}
	for _, html := range docs {
		s, err := dom.NewStatic(html)
		require.NoError(t, err)
		p.docs = append(p.docs, s)
	}
	return p
}

func (p *steppingPage) cur() *dom.Static {
	return p.docs[p.idx]
}

func (p *steppingPage) wrap(nodes []dom.Node, err error) ([]dom.Node, error) {
	for i, n := range nodes {
		nodes[i] = steppingNode{Node: n, page: p}
	}
	return nodes, err
}

func (p *steppingPage) FindByRole(ctx context.Context, role string, name *regexp.Regexp) ([]dom.Node, error) {
	return p.wrap(p.cur().FindByRole(ctx, role, name))
}

func (p *steppingPage) FindByText(ctx context.Context, re *regexp.Regexp) ([]dom.Node, error) {
	return p.wrap(p.cur().FindByText(ctx, re))
}

func (p *steppingPage) FindCSS(ctx context.Context, selector string) ([]dom.Node, error) {
	return p.wrap(p.cur().FindCSS(ctx, selector))
}

func (p *steppingPage) FindHasText(ctx context.Context, selector string, texts []string) ([]dom.Node, error) {
	return p.wrap(p.cur().FindHasText(ctx, selector, texts))
}

func (p *steppingPage) Following(ctx context.Context) (dom.Node, bool, error) {
	return p.cur().Following(ctx)
}

func (p *steppingPage) Visible(ctx context.Context) (bool, error) {
	return p.cur().Visible(ctx)
}

func (p *steppingPage) InnerText(ctx context.Context) (string, error) {
	return p.cur().InnerText(ctx)
}

func (p *steppingPage) Click(ctx context.Context) error {
	return dom.ErrNotInteractive
}

func (p *steppingPage) Fill(ctx context.Context, value string) error {
	return dom.ErrNotInteractive
}

func (p *steppingPage) Navigate(ctx context.Context, url string) error {
	p.navigated = append(p.navigated, url)
	return p.navErr[url]
}

func (p *steppingPage) WaitNetworkIdle(ctx context.Context, timeout time.Duration) error {
	p.idleCalls++
	return p.idleErr
}

func (p *steppingPage) HTML(ctx context.Context) (string, error) {
	return p.cur().HTML(ctx)
}

func (p *steppingPage) URL(ctx context.Context) (string, error) {
	return "https://www.booking.com/trips", nil
}

type steppingNode struct {
	dom.Node
	page *steppingPage
}

func (n steppingNode) Click(ctx context.Context) error {
	if n.page.idx+1 >= len(n.page.docs) {
		return errors.New("nothing more to load")
	}
	n.page.idx++
	n.page.clicks++
	return nil
}

// tripsDoc renders n booking cards, with a load-more button when more is
// true.
func tripsDoc(n int, more bool) string {
	html := "<html><body>"
	for i := 1; i <= n; i++ {
		html += fmt.Sprintf(`<section data-testid="trip-card">
  <h3>Hotel %d</h3>
  <p data-testid="address">Street %d, Lisbon, Portugal</p>
  <div>Check-in: 2023-09-%02d</div>
  <div>Check-out: 2023-09-%02d</div>
  <div>Total: € %d0.00</div>
</section>`, i, i, i, i+1, i)
	}
	if more {
		html += `<button type="button">Load more</button>`
	}
	return html + "</body></html>"
}
