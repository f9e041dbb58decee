// Package dom is the narrow view of a rendered page that the extractor and
// the pagination driver work against. browser.LivePage implements it over a
// running Chrome tab, Static over a parsed HTML document.
package dom

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"
)

var ErrNotInteractive = errors.New("dom: page is not interactive")

type Node interface {
	// FindByRole returns descendants with the ARIA role whose accessible name
	// matches name. A nil name matches any.
	FindByRole(ctx context.Context, role string, name *regexp.Regexp) ([]Node, error)
	// FindByText returns the innermost descendants whose text matches re.
	FindByText(ctx context.Context, re *regexp.Regexp) ([]Node, error)
	FindCSS(ctx context.Context, selector string) ([]Node, error)
	// FindHasText returns the innermost descendants matching selector whose
	// text contains every one of texts, ignoring case.
	FindHasText(ctx context.Context, selector string, texts []string) ([]Node, error)
	// Following returns the first element after this one in document order
	// that is not one of its descendants.
	Following(ctx context.Context) (Node, bool, error)
	Visible(ctx context.Context) (bool, error)
	// InnerText is the rendered text with whitespace collapsed.
	InnerText(ctx context.Context) (string, error)
	Click(ctx context.Context) error
	Fill(ctx context.Context, value string) error
}

type Page interface {
	Node
	Navigate(ctx context.Context, url string) error
	WaitNetworkIdle(ctx context.Context, timeout time.Duration) error
	HTML(ctx context.Context) (string, error)
	URL(ctx context.Context) (string, error)
}

// RoleSelectors maps the roles the scraper asks for to the elements that
// carry them implicitly or explicitly.
var RoleSelectors = map[string]string{
	"heading": "h1, h2, h3, h4, h5, h6, [role=heading]",
	"button":  "button, [role=button], input[type=button], input[type=submit]",
	"link":    "a[href], [role=link]",
	"textbox": "input:not([type]), input[type=text], input[type=email], input[type=tel], textarea, [role=textbox]",
}

func RoleSelector(role string) (string, error) {
	sel, ok := RoleSelectors[role]
	if !ok {
		return "", fmt.Errorf("dom: unsupported role %q", role)
	}
	return sel, nil
}

var whitespaceRegex = regexp.MustCompile(`\s+`)

func CleanText(s string) string {
	return strings.TrimSpace(whitespaceRegex.ReplaceAllString(s, " "))
}

// First returns the first node of a query result.
func First(nodes []Node, err error) (Node, bool, error) {
	if err != nil || len(nodes) == 0 {
		return nil, false, err
	}
	return nodes[0], true, nil
}

// FirstVisible returns the first visible node. Visibility errors count as
// hidden.
func FirstVisible(ctx context.Context, nodes []Node) (Node, bool) {
	for _, n := range nodes {
		if ok, err := n.Visible(ctx); err == nil && ok {
			return n, true
		}
	}
	return nil, false
}
