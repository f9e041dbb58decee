package browser

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/tripledger/bookings/internal/dom"
	"github.com/tripledger/bookings/pkg/logger"
)

var LoginURLs = []string{
	"https://account.booking.com/sign-in",
	"https://secure.booking.com/book.html?op=login",
}

const HomeURL = "https://www.booking.com/"

var TripsURLs = []string{
	"https://www.booking.com/trips",
	"https://secure.booking.com/myreservations.en-gb.html",
}

var ErrLogin = errors.New("login failed")

type LoginError struct {
	Reason    string
	Challenge ChallengeResult
}

func (e *LoginError) Error() string {
	msg := "login failed: " + e.Reason
	if e.Challenge.Detected() {
		msg += fmt.Sprintf(" (%s: %s)", e.Challenge.Kind, e.Challenge.Reason)
	}
	return msg
}

func (e *LoginError) Unwrap() error {
	return ErrLogin
}

type Credentials struct {
	Email    string
	Password string
}

var (
	signInLinkName    = regexp.MustCompile(`(?i)sign in`)
	accountButtonName = regexp.MustCompile(`(?i)account|profile`)
	continueName      = regexp.MustCompile(`(?i)continue|next`)
	submitName        = regexp.MustCompile(`(?i)sign in|log in|continue`)
	emailName         = regexp.MustCompile(`(?i)email`)
	loggedInURL       = regexp.MustCompile(`booking\.com/(trips|home|index|my.*)`)
)

// LoginTimings groups the waits of the login flow so tests can shrink them.
type LoginTimings struct {
	StepPause    time.Duration
	RedirectWait time.Duration
	ManualWait   time.Duration
	PollInterval time.Duration
}

var DefaultLoginTimings = LoginTimings{
	StepPause:    500 * time.Millisecond,
	RedirectWait: 15 * time.Second,
	ManualWait:   20 * time.Second,
	PollInterval: 250 * time.Millisecond,
}

type fieldCandidate func(ctx context.Context, page dom.Page) ([]dom.Node, error)

func byCSS(selector string) fieldCandidate {
	return func(ctx context.Context, page dom.Page) ([]dom.Node, error) {
		return page.FindCSS(ctx, selector)
	}
}

func byRole(role string, name *regexp.Regexp) fieldCandidate {
	return func(ctx context.Context, page dom.Page) ([]dom.Node, error) {
		return page.FindByRole(ctx, role, name)
	}
}

var emailCandidates = []fieldCandidate{
	byRole("textbox", emailName),
	byCSS(`input[name="username"]`),
	byCSS(`input[type=email]`),
}

var passwordCandidates = []fieldCandidate{
	byCSS(`input[name="password"]`),
	byCSS(`input[type=password]`),
}

var submitCandidates = []fieldCandidate{
	byRole("button", submitName),
	byCSS(`button[type=submit]`),
}

// LooksLoggedIn guesses the session state of the current page: a visible
// "Sign in" link means logged out, an account or profile button means logged
// in, otherwise the page content is searched for trips markers.
func LooksLoggedIn(ctx context.Context, page dom.Page) bool {
	if links, err := page.FindByRole(ctx, "link", signInLinkName); err == nil {
		if _, ok := dom.FirstVisible(ctx, links); ok {
			return false
		}
	}

	if buttons, err := page.FindByRole(ctx, "button", accountButtonName); err == nil {
		if _, ok := dom.FirstVisible(ctx, buttons); ok {
			return true
		}
	}

	_ = page.WaitNetworkIdle(ctx, 2*time.Second)

	html, err := page.HTML(ctx)
	if err != nil {
		return false
	}
	content := strings.ToLower(html)
	return strings.Contains(content, "trips") || strings.Contains(content, "my reservations")
}

// Login runs the two step email/password form on page. headless decides what
// happens when no logged-in URL shows up in time: fail with a LoginError, or
// leave the window to the user for ManualWait.
func Login(ctx context.Context, page dom.Page, creds Credentials, headless bool, timings LoginTimings) error {
	log := logger.Log

	if err := page.Navigate(ctx, LoginURLs[0]); err != nil {
		return fmt.Errorf("open login page: %w", err)
	}

	if !fillFirst(ctx, page, emailCandidates, creds.Email) {
		return &LoginError{Reason: "could not find email field on login page"}
	}

	if buttons, err := page.FindByRole(ctx, "button", continueName); err == nil && len(buttons) > 0 {
		if err := buttons[0].Click(ctx); err != nil {
			log.Debug().Err(err).Msg("continue button click failed")
		}
	}

	if err := sleep(ctx, timings.StepPause); err != nil {
		return err
	}

	if !fillFirst(ctx, page, passwordCandidates, creds.Password) {
		return &LoginError{Reason: "could not find password field on login page"}
	}

	clickFirst(ctx, page, submitCandidates)

	if waitForURL(ctx, page, loggedInURL, timings.RedirectWait, timings.PollInterval) {
		log.Info().Msg("login redirect detected")
	} else {
		if err := ctx.Err(); err != nil {
			return err
		}
		html, _ := page.HTML(ctx)
		challenge := DetectChallenge(html)

		if headless {
			return &LoginError{
				Reason:    "login may require CAPTCHA/2FA, re-run with --no-headless to complete verification",
				Challenge: challenge,
			}
		}

		log.Warn().Str("challenge", string(challenge.Kind)).Dur("wait", timings.ManualWait).
			Msg("login not confirmed, complete verification in the browser window")
		if err := sleep(ctx, timings.ManualWait); err != nil {
			return err
		}
	}

	if err := page.Navigate(ctx, HomeURL); err != nil {
		return fmt.Errorf("open home page: %w", err)
	}
	return nil
}

func fillFirst(ctx context.Context, page dom.Page, candidates []fieldCandidate, value string) bool {
	for _, c := range candidates {
		nodes, err := c(ctx, page)
		if err != nil || len(nodes) == 0 {
			continue
		}
		if err := nodes[0].Fill(ctx, value); err != nil {
			logger.Log.Debug().Err(err).Msg("fill failed, trying next field candidate")
			continue
		}
		return true
	}
	return false
}

func clickFirst(ctx context.Context, page dom.Page, candidates []fieldCandidate) bool {
	for _, c := range candidates {
		nodes, err := c(ctx, page)
		if err != nil || len(nodes) == 0 {
			continue
		}
		if err := nodes[0].Click(ctx); err != nil {
			logger.Log.Debug().Err(err).Msg("click failed, trying next candidate")
			continue
		}
		return true
	}
	return false
}

func waitForURL(ctx context.Context, page dom.Page, re *regexp.Regexp, timeout, interval time.Duration) bool {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		if url, err := page.URL(ctx); err == nil && re.MatchString(url) {
			return true
		}
		select {
		case <-ctx.Done():
			return false
		case <-ticker.C:
		}
	}
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

// LoggedInPage returns a tab with an authenticated session, reusing stored
// cookies when they are still accepted and logging in otherwise. The session
// is written back to store on success.
func (b *Browser) LoggedInPage(ctx context.Context, store *SessionStore, creds Credentials) (*LivePage, error) {
	log := logger.Log

	page, err := b.NewPage(ctx)
	if err != nil {
		return nil, err
	}

	if b.restoreSession(ctx, page, store) {
		log.Info().Str("path", store.Path()).Msg("reusing stored session")
		b.saveSession(ctx, store)
		return page, nil
	}

	if err := b.ClearCookies(ctx); err != nil {
		log.Debug().Err(err).Msg("clear cookies failed")
	}

	log.Info().Msg("logging in")
	if err := Login(ctx, page, creds, b.headless, DefaultLoginTimings); err != nil {
		page.Close()
		return nil, err
	}

	b.saveSession(ctx, store)
	return page, nil
}

func (b *Browser) restoreSession(ctx context.Context, page *LivePage, store *SessionStore) bool {
	log := logger.Log

	cookies, err := store.Load()
	if err != nil {
		log.Warn().Err(err).Msg("ignoring unreadable session file")
		return false
	}
	if len(cookies) == 0 {
		return false
	}
	if err := b.SetCookies(ctx, cookies); err != nil {
		log.Warn().Err(err).Msg("restore cookies failed")
		return false
	}
	if err := page.Navigate(ctx, HomeURL); err != nil {
		log.Warn().Err(err).Msg("open home page with stored session failed")
		return false
	}
	return LooksLoggedIn(ctx, page)
}

func (b *Browser) saveSession(ctx context.Context, store *SessionStore) {
	cookies, err := b.Cookies(ctx)
	if err != nil {
		logger.Log.Warn().Err(err).Msg("read cookies failed, session not saved")
		return
	}
	if err := store.Save(cookies); err != nil {
		logger.Log.Warn().Err(err).Msg("save session failed")
		return
	}
	logger.Log.Debug().Int("cookies", len(cookies)).Str("path", store.Path()).Msg("session saved")
}
