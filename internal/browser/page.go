package browser

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"sync"
	"time"

	"github.com/chromedp/cdproto/network"
	"github.com/chromedp/chromedp"
	"github.com/tripledger/bookings/internal/dom"
)

const (
	callTimeout       = 5 * time.Second
	navigationTimeout = 20 * time.Second
	idleWindow        = 500 * time.Millisecond
)

var errPageRoot = errors.New("browser: operation needs an element, not the page")

// LivePage is a dom.Page backed by a Chrome tab.
type LivePage struct {
	liveNode
	ctx     context.Context
	cancel  context.CancelFunc
	tracker *networkTracker
}

var _ dom.Page = (*LivePage)(nil)

func newLivePage(tabCtx context.Context, cancel context.CancelFunc) *LivePage {
	p := &LivePage{ctx: tabCtx, cancel: cancel, tracker: newNetworkTracker()}
	p.liveNode = liveNode{page: p}
	return p
}

func (p *LivePage) Close() {
	p.cancel()
}

func (p *LivePage) Navigate(ctx context.Context, url string) error {
	if err := p.run(ctx, navigationTimeout, chromedp.Navigate(url), chromedp.WaitReady("body", chromedp.ByQuery)); err != nil {
		return fmt.Errorf("navigate %s: %w", url, err)
	}
	return nil
}

// WaitNetworkIdle returns once no request has been in flight for 500ms.
func (p *LivePage) WaitNetworkIdle(ctx context.Context, timeout time.Duration) error {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	ticker := time.NewTicker(100 * time.Millisecond)
	defer ticker.Stop()

	for {
		if p.tracker.idleFor(time.Now()) >= idleWindow {
			return nil
		}
		select {
		case <-ctx.Done():
			return fmt.Errorf("wait network idle: %w", ctx.Err())
		case <-ticker.C:
		}
	}
}

func (p *LivePage) HTML(ctx context.Context) (string, error) {
	var html string
	err := p.run(ctx, callTimeout, chromedp.OuterHTML("html", &html, chromedp.ByQuery))
	return html, err
}

func (p *LivePage) URL(ctx context.Context) (string, error) {
	var url string
	err := p.run(ctx, callTimeout, chromedp.Location(&url))
	return url, err
}

func (p *LivePage) run(ctx context.Context, timeout time.Duration, actions ...chromedp.Action) error {
	return runBounded(ctx, p.ctx, timeout, actions...)
}

// runBounded runs actions on target's tab while honouring both the
// caller's cancellation and the shorter of timeout and the caller deadline.
func runBounded(ctx, target context.Context, timeout time.Duration, actions ...chromedp.Action) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if dl, ok := ctx.Deadline(); ok {
		if left := time.Until(dl); left < timeout {
			timeout = left
		}
	}

	runCtx, cancel := context.WithTimeout(target, timeout)
	defer cancel()
	stop := context.AfterFunc(ctx, cancel)
	defer stop()

	return chromedp.Run(runCtx, actions...)
}

type liveNode struct {
	page *LivePage
	id   string
}

func (n liveNode) selector() string {
	return `[data-bx="` + n.id + `"]`
}

func (n liveNode) eval(ctx context.Context, js string, out any) error {
	return n.page.run(ctx, callTimeout, chromedp.Evaluate(js, out))
}

func (n liveNode) nodes(ctx context.Context, js string) ([]dom.Node, error) {
	var ids []string
	if err := n.eval(ctx, js, &ids); err != nil {
		return nil, err
	}
	nodes := make([]dom.Node, len(ids))
	for i, id := range ids {
		nodes[i] = liveNode{page: n.page, id: id}
	}
	return nodes, nil
}

func (n liveNode) FindCSS(ctx context.Context, selector string) ([]dom.Node, error) {
	return n.nodes(ctx, script(findCSSScript, n.id, selector))
}

func (n liveNode) FindByRole(ctx context.Context, role string, name *regexp.Regexp) ([]dom.Node, error) {
	selector, err := dom.RoleSelector(role)
	if err != nil {
		return nil, err
	}
	return n.nodes(ctx, script(findRoleScript, name, n.id, selector))
}

func (n liveNode) FindByText(ctx context.Context, re *regexp.Regexp) ([]dom.Node, error) {
	return n.nodes(ctx, script(findTextScript, re, n.id))
}

func (n liveNode) FindHasText(ctx context.Context, selector string, texts []string) ([]dom.Node, error) {
	return n.nodes(ctx, script(findHasTextScript, texts, n.id, selector))
}

func (n liveNode) Following(ctx context.Context) (dom.Node, bool, error) {
	var id string
	if err := n.eval(ctx, script(followingScript, n.id), &id); err != nil || id == "" {
		return nil, false, err
	}
	return liveNode{page: n.page, id: id}, true, nil
}

func (n liveNode) Visible(ctx context.Context) (bool, error) {
	var ok bool
	err := n.eval(ctx, script(visibleScript, n.id), &ok)
	return ok, err
}

func (n liveNode) InnerText(ctx context.Context) (string, error) {
	var text string
	err := n.eval(ctx, script(innerTextScript, n.id), &text)
	return text, err
}

func (n liveNode) Click(ctx context.Context) error {
	if n.id == "" {
		return errPageRoot
	}
	return n.page.run(ctx, callTimeout, chromedp.Click(n.selector(), chromedp.ByQuery))
}

func (n liveNode) Fill(ctx context.Context, value string) error {
	if n.id == "" {
		return errPageRoot
	}
	sel := n.selector()
	return n.page.run(ctx, callTimeout,
		chromedp.Focus(sel, chromedp.ByQuery),
		chromedp.SetValue(sel, "", chromedp.ByQuery),
		chromedp.SendKeys(sel, value, chromedp.ByQuery),
	)
}

// networkTracker counts requests between RequestWillBeSent and
// LoadingFinished/LoadingFailed. Redirects reuse the request id.
type networkTracker struct {
	mu         sync.Mutex
	inflight   map[network.RequestID]struct{}
	lastChange time.Time
}

func newNetworkTracker() *networkTracker {
	return &networkTracker{inflight: make(map[network.RequestID]struct{}), lastChange: time.Now()}
}

func (t *networkTracker) handle(ev interface{}) {
	switch e := ev.(type) {
	case *network.EventRequestWillBeSent:
		t.update(e.RequestID, true)
	case *network.EventLoadingFinished:
		t.update(e.RequestID, false)
	case *network.EventLoadingFailed:
		t.update(e.RequestID, false)
	}
}

func (t *networkTracker) update(id network.RequestID, started bool) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if started {
		t.inflight[id] = struct{}{}
	} else {
		delete(t.inflight, id)
	}
	t.lastChange = time.Now()
}

func (t *networkTracker) idleFor(now time.Time) time.Duration {
	t.mu.Lock()
	defer t.mu.Unlock()

	if len(t.inflight) > 0 {
		return 0
	}
	return now.Sub(t.lastChange)
}
