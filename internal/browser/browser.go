package browser

import (
	"context"
	"fmt"
	"time"

	"github.com/chromedp/cdproto/emulation"
	"github.com/chromedp/cdproto/network"
	"github.com/chromedp/cdproto/page"
	"github.com/chromedp/cdproto/storage"
	"github.com/chromedp/chromedp"
	cdpopts "github.com/tripledger/bookings/pkg/chromedp"
	"github.com/tripledger/bookings/pkg/logger"
)

const acceptLanguage = "en-GB,en;q=0.9,en-US;q=0.8"

type Options struct {
	Headless bool
	// RemoteURL attaches to an already running Chrome (ws:// or http://
	// DevTools endpoint) instead of launching one.
	RemoteURL string
}

// Browser owns one Chrome process. Pages are opened as tabs on it.
type Browser struct {
	allocCtx      context.Context
	allocCancel   context.CancelFunc
	browserCtx    context.Context
	browserCancel context.CancelFunc
	headless      bool
}

func New(ctx context.Context, opts Options) (*Browser, error) {
	var (
		allocCtx    context.Context
		allocCancel context.CancelFunc
	)
	if opts.RemoteURL != "" {
		allocCtx, allocCancel = chromedp.NewRemoteAllocator(ctx, opts.RemoteURL)
	} else {
		allocCtx, allocCancel = chromedp.NewExecAllocator(ctx, cdpopts.GetExecAllocatorOptions(opts.Headless)...)
	}
	browserCtx, browserCancel := chromedp.NewContext(allocCtx)

	if err := chromedp.Run(browserCtx); err != nil {
		browserCancel()
		allocCancel()
		return nil, fmt.Errorf("start browser: %w", err)
	}

	logger.Log.Info().Bool("headless", opts.Headless).Bool("remote", opts.RemoteURL != "").Msg("browser started")

	return &Browser{
		allocCtx:      allocCtx,
		allocCancel:   allocCancel,
		browserCtx:    browserCtx,
		browserCancel: browserCancel,
		headless:      opts.Headless,
	}, nil
}

func (b *Browser) Headless() bool {
	return b.headless
}

func (b *Browser) Close() {
	if b.browserCancel != nil {
		b.browserCancel()
	}
	if b.allocCancel != nil {
		b.allocCancel()
	}
	logger.Log.Info().Msg("browser closed")
}

// NewPage opens a tab with the stealth setup applied and network tracking
// enabled. The tab lives until the returned page is closed.
func (b *Browser) NewPage(ctx context.Context) (*LivePage, error) {
	tabCtx, tabCancel := chromedp.NewContext(b.browserCtx)
	p := newLivePage(tabCtx, tabCancel)

	chromedp.ListenTarget(tabCtx, p.tracker.handle)

	tasks := chromedp.Tasks{
		network.Enable(),
		chromedp.ActionFunc(func(ctx context.Context) error {
			return emulation.SetUserAgentOverride(cdpopts.UserAgent).
				WithAcceptLanguage(acceptLanguage).
				WithPlatform("macOS").
				Do(ctx)
		}),
		chromedp.ActionFunc(func(ctx context.Context) error {
			return network.SetExtraHTTPHeaders(network.Headers{
				"Accept-Language":           acceptLanguage,
				"Upgrade-Insecure-Requests": "1",
				"DNT":                       "1",
			}).Do(ctx)
		}),
		chromedp.ActionFunc(func(ctx context.Context) error {
			_, err := page.AddScriptToEvaluateOnNewDocument(cdpopts.GetStealthScripts()).Do(ctx)
			return err
		}),
	}

	// The first Run on a tab must not carry a shorter-lived context, or the
	// tab is torn down when it expires.
	if err := chromedp.Run(tabCtx, tasks); err != nil {
		tabCancel()
		return nil, fmt.Errorf("open tab: %w", err)
	}
	if err := ctx.Err(); err != nil {
		tabCancel()
		return nil, err
	}
	return p, nil
}

// SetCookies installs cookies for every tab of the browser.
func (b *Browser) SetCookies(ctx context.Context, cookies []*network.CookieParam) error {
	if len(cookies) == 0 {
		return nil
	}
	return runBounded(ctx, b.browserCtx, 10*time.Second, network.SetCookies(cookies))
}

func (b *Browser) ClearCookies(ctx context.Context) error {
	return runBounded(ctx, b.browserCtx, 10*time.Second, network.ClearBrowserCookies())
}

// Cookies returns every cookie in the browser's jar, not only those of the
// current URL.
func (b *Browser) Cookies(ctx context.Context) ([]*network.Cookie, error) {
	var cookies []*network.Cookie
	err := runBounded(ctx, b.browserCtx, 10*time.Second, chromedp.ActionFunc(func(ctx context.Context) error {
		var err error
		cookies, err = storage.GetCookies().Do(ctx)
		return err
	}))
	return cookies, err
}
