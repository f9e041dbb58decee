package extractor

import (
	"context"
	"regexp"
	"strings"

	"github.com/tripledger/bookings/internal/dom"
)

type probe struct {
	name   string
	fn     func(ctx context.Context, card dom.Node) (string, error)
	accept func(string) bool
}

var (
	checkInLabel  = regexp.MustCompile(`(?i)check-?in`)
	checkOutLabel = regexp.MustCompile(`(?i)check-?out`)
	addressText   = regexp.MustCompile(`,\s*[A-Za-z ]+$`)
	totalLabel    = regexp.MustCompile(`(?i)total`)
	digitRegex    = regexp.MustCompile(`\d`)

	checkInPrefix  = regexp.MustCompile(`(?i)^\s*check-?in\s*[:\-]?\s*`)
	checkOutPrefix = regexp.MustCompile(`(?i)^\s*check-?out\s*[:\-]?\s*`)
)

func hasDigit(s string) bool {
	return digitRegex.MatchString(s)
}

var hotelProbes = []probe{
	byRole("heading", "heading"),
	byCSS("hotel testid", "[data-testid*='hotel-name']"),
	byCSS("hotel class", "[class*='hotel']"),
}

var addressProbes = []probe{
	byCSS("address testid", "[data-testid*='address']"),
	byCSS("address class", "[class*='address']"),
	byText("address text", addressText),
}

var checkInProbes = []probe{
	labelled("check-in", checkInLabel, checkInPrefix),
}

var checkOutProbes = []probe{
	labelled("check-out", checkOutLabel, checkOutPrefix),
}

var priceProbes = []probe{
	withAccept(byText("total text", totalLabel), hasDigit),
	withAccept(byText("price text", regexp.MustCompile(`(?i)price`)), hasDigit),
	withAccept(byText("paid text", regexp.MustCompile(`(?i)paid`)), hasDigit),
	withAccept(byCSS("price testid", "[data-testid*='price']"), hasDigit),
	withAccept(following("total value", totalLabel), hasDigit),
}

func withAccept(p probe, accept func(string) bool) probe {
	p.accept = accept
	return p
}

func byRole(name, role string) probe {
	return probe{name: name, fn: func(ctx context.Context, card dom.Node) (string, error) {
		return visibleText(ctx)(card.FindByRole(ctx, role, nil))
	}}
}

func byCSS(name, selector string) probe {
	return probe{name: name, fn: func(ctx context.Context, card dom.Node) (string, error) {
		return visibleText(ctx)(card.FindCSS(ctx, selector))
	}}
}

func byText(name string, re *regexp.Regexp) probe {
	return probe{name: name, fn: func(ctx context.Context, card dom.Node) (string, error) {
		return visibleText(ctx)(card.FindByText(ctx, re))
	}}
}

// labelled reads a date next to its label. "Check-in: 2023-09-01" carries
// the value in the label itself, otherwise the value is the element that
// follows the label.
func labelled(name string, label, prefix *regexp.Regexp) probe {
	return probe{name: name, fn: func(ctx context.Context, card dom.Node) (string, error) {
		nodes, err := card.FindByText(ctx, label)
		if err != nil || len(nodes) == 0 {
			return "", err
		}
		text, err := nodes[0].InnerText(ctx)
		if err != nil {
			return "", err
		}
		if loc := prefix.FindStringIndex(text); loc != nil {
			if rest := strings.TrimSpace(text[loc[1]:]); rest != "" {
				return rest, nil
			}
		}
		return followingText(ctx, nodes[0])
	}}
}

func following(name string, label *regexp.Regexp) probe {
	return probe{name: name, fn: func(ctx context.Context, card dom.Node) (string, error) {
		nodes, err := card.FindByText(ctx, label)
		if err != nil || len(nodes) == 0 {
			return "", err
		}
		return followingText(ctx, nodes[0])
	}}
}

func followingText(ctx context.Context, n dom.Node) (string, error) {
	next, ok, err := n.Following(ctx)
	if err != nil || !ok {
		return "", err
	}
	text, err := next.InnerText(ctx)
	return strings.TrimSpace(text), err
}

func visibleText(ctx context.Context) func([]dom.Node, error) (string, error) {
	return func(nodes []dom.Node, err error) (string, error) {
		if err != nil {
			return "", err
		}
		n, ok := dom.FirstVisible(ctx, nodes)
		if !ok {
			return "", nil
		}
		text, err := n.InnerText(ctx)
		return strings.TrimSpace(text), err
	}
}
