package browser

import (
	"regexp"
	"strings"
)

type ChallengeKind string

const (
	ChallengeNone    ChallengeKind = ""
	ChallengeCaptcha ChallengeKind = "captcha"
	ChallengeTwoStep ChallengeKind = "2fa"
	ChallengeBlocked ChallengeKind = "blocked"
)

// ChallengeResult describes a page that needs a human before the scrape can
// go on.
type ChallengeResult struct {
	Kind   ChallengeKind
	Reason string
}

func (r ChallengeResult) Detected() bool {
	return r.Kind != ChallengeNone
}

var titleRegex = regexp.MustCompile(`(?i)<title[^>]*>([^<]*)</title>`)

var captchaMarkers = []string{
	"g-recaptcha",
	"recaptcha/api",
	"hcaptcha.com",
	"h-captcha",
	"px-captcha",
	"press & hold",
	"press and hold",
	"verify you are human",
	"are you a robot",
	"captcha-delivery",
}

var twoStepMarkers = []string{
	"verification code",
	"enter the code",
	"we sent a code",
	"we've sent a code",
	"two-factor",
	"2-step verification",
	"verify your identity",
	"check your inbox",
}

var blockingPhrases = []string{
	"Sorry, your request has been denied",
	"Sorry, you have been blocked",
	"Attention Required! | Cloudflare",
	"Access Denied",
	"403 Forbidden",
	"Too many requests",
	"unusual traffic",
}

// DetectChallenge checks page HTML for anything that stops an unattended
// login, most specific first:
// 1. CAPTCHA widgets and bot checks
// 2. one-time code / 2FA prompts
// 3. blocking phrases
// 4. bare error title on a short page
func DetectChallenge(html string) ChallengeResult {
	if html == "" {
		return ChallengeResult{}
	}
	lower := strings.ToLower(html)

	for _, m := range captchaMarkers {
		if strings.Contains(lower, m) {
			return ChallengeResult{Kind: ChallengeCaptcha, Reason: m}
		}
	}

	for _, m := range twoStepMarkers {
		if strings.Contains(lower, m) {
			return ChallengeResult{Kind: ChallengeTwoStep, Reason: m}
		}
	}

	for _, phrase := range blockingPhrases {
		if strings.Contains(lower, strings.ToLower(phrase)) {
			return ChallengeResult{Kind: ChallengeBlocked, Reason: phrase}
		}
	}

	if len(html) < 10000 {
		title := strings.ToLower(extractTitle(html))
		if title == "error" {
			return ChallengeResult{Kind: ChallengeBlocked, Reason: "error title"}
		}
	}

	return ChallengeResult{}
}

func extractTitle(html string) string {
	if match := titleRegex.FindStringSubmatch(html); len(match) > 1 {
		return strings.TrimSpace(match[1])
	}
	return ""
}
