package dom

import (
	"context"
	"regexp"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"
)

// Static is a read-only Page over a parsed document: saved snapshots, mail
// bodies and HTML posted to the API. Click, Fill and Navigate fail with
// ErrNotInteractive.
type Static struct {
	staticNode
	doc *goquery.Document

	// Source is reported by URL.
	Source string
}

func NewStatic(htmlText string) (*Static, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(htmlText))
	if err != nil {
		return nil, err
	}
	return &Static{staticNode: staticNode{sel: doc.Selection}, doc: doc, Source: "about:blank"}, nil
}

func (s *Static) Navigate(ctx context.Context, url string) error {
	return ErrNotInteractive
}

func (s *Static) WaitNetworkIdle(ctx context.Context, timeout time.Duration) error {
	return ctx.Err()
}

func (s *Static) HTML(ctx context.Context) (string, error) {
	return s.doc.Html()
}

func (s *Static) URL(ctx context.Context) (string, error) {
	return s.Source, nil
}

type staticNode struct {
	sel *goquery.Selection
}

// Selection exposes the underlying goquery selection.
func (n staticNode) Selection() *goquery.Selection {
	return n.sel
}

func (n staticNode) FindCSS(ctx context.Context, selector string) ([]Node, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return wrap(n.sel.Find(selector)), nil
}

func (n staticNode) FindByRole(ctx context.Context, role string, name *regexp.Regexp) ([]Node, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	selector, err := RoleSelector(role)
	if err != nil {
		return nil, err
	}

	matched := n.sel.Find(selector)
	if name != nil {
		matched = matched.FilterFunction(func(_ int, s *goquery.Selection) bool {
			return name.MatchString(accessibleName(s))
		})
	}
	return wrap(matched), nil
}

func (n staticNode) FindByText(ctx context.Context, re *regexp.Regexp) ([]Node, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	matched := n.sel.Find("*").Not("script, style, noscript, template").FilterFunction(func(_ int, s *goquery.Selection) bool {
		return re.MatchString(renderText(s))
	})
	return wrap(innermost(matched)), nil
}

func (n staticNode) FindHasText(ctx context.Context, selector string, texts []string) ([]Node, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	lowered := make([]string, len(texts))
	for i, t := range texts {
		lowered[i] = strings.ToLower(t)
	}

	matched := n.sel.Find(selector).FilterFunction(func(_ int, s *goquery.Selection) bool {
		text := strings.ToLower(renderText(s))
		for _, t := range lowered {
			if !strings.Contains(text, t) {
				return false
			}
		}
		return true
	})
	return wrap(innermost(matched)), nil
}

func (n staticNode) Following(ctx context.Context) (Node, bool, error) {
	if err := ctx.Err(); err != nil {
		return nil, false, err
	}
	for cur := n.sel.First(); cur.Length() > 0; cur = cur.Parent() {
		if next := cur.Next(); next.Length() > 0 {
			return staticNode{sel: next.First()}, true, nil
		}
	}
	return nil, false, nil
}

func (n staticNode) Visible(ctx context.Context) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	if n.sel.Length() == 0 {
		return false, nil
	}
	if goquery.NodeName(n.sel) == "input" {
		if t, _ := n.sel.Attr("type"); strings.EqualFold(t, "hidden") {
			return false, nil
		}
	}
	for cur := n.sel.First(); cur.Length() > 0; cur = cur.Parent() {
		if hidden(cur) {
			return false, nil
		}
	}
	return true, nil
}

func (n staticNode) InnerText(ctx context.Context) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	return renderText(n.sel), nil
}

func (n staticNode) Click(ctx context.Context) error {
	return ErrNotInteractive
}

func (n staticNode) Fill(ctx context.Context, value string) error {
	return ErrNotInteractive
}

func wrap(s *goquery.Selection) []Node {
	nodes := make([]Node, 0, s.Length())
	s.Each(func(_ int, el *goquery.Selection) {
		nodes = append(nodes, staticNode{sel: el})
	})
	return nodes
}

// innermost drops every element that contains another element of the set.
func innermost(s *goquery.Selection) *goquery.Selection {
	return s.FilterFunction(func(_ int, el *goquery.Selection) bool {
		return el.Find("*").Intersection(s).Length() == 0
	})
}

func hidden(s *goquery.Selection) bool {
	if _, ok := s.Attr("hidden"); ok {
		return true
	}
	if v, _ := s.Attr("aria-hidden"); v == "true" {
		return true
	}
	style, _ := s.Attr("style")
	style = strings.ToLower(strings.ReplaceAll(style, " ", ""))
	return strings.Contains(style, "display:none") || strings.Contains(style, "visibility:hidden")
}

// accessibleName follows the usual order: aria-label, an associated
// <label>, own text, then placeholder, title and value.
func accessibleName(s *goquery.Selection) string {
	if label, ok := s.Attr("aria-label"); ok && strings.TrimSpace(label) != "" {
		return CleanText(label)
	}
	if id, ok := s.Attr("id"); ok && id != "" {
		root := s.Parents().Last()
		if label := root.Find("label[for]").FilterFunction(func(_ int, l *goquery.Selection) bool {
			f, _ := l.Attr("for")
			return f == id
		}); label.Length() > 0 {
			return renderText(label.First())
		}
	}
	if label := s.Closest("label"); label.Length() > 0 && goquery.NodeName(s) != "label" {
		return renderText(label)
	}
	if text := renderText(s); text != "" {
		return text
	}
	for _, attr := range []string{"placeholder", "title", "value"} {
		if v, ok := s.Attr(attr); ok && strings.TrimSpace(v) != "" {
			return CleanText(v)
		}
	}
	return ""
}

var blockElements = map[string]bool{
	"address": true, "article": true, "aside": true, "br": true, "dd": true, "div": true,
	"dl": true, "dt": true, "footer": true, "form": true, "h1": true, "h2": true,
	"h3": true, "h4": true, "h5": true, "h6": true, "header": true, "hr": true,
	"li": true, "main": true, "nav": true, "ol": true, "p": true, "section": true,
	"table": true, "td": true, "th": true, "tr": true, "ul": true,
}

// renderText approximates innerText: block boundaries become spaces, inline
// boundaries do not, script and style content is dropped.
func renderText(s *goquery.Selection) string {
	var b strings.Builder
	var walk func(*html.Node)
	walk = func(node *html.Node) {
		switch node.Type {
		case html.TextNode:
			b.WriteString(node.Data)
			return
		case html.ElementNode:
			switch node.Data {
			case "script", "style", "noscript", "template":
				return
			}
		}
		block := node.Type == html.ElementNode && blockElements[node.Data]
		if block {
			b.WriteByte(' ')
		}
		for c := node.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
		if block {
			b.WriteByte(' ')
		}
	}
	for _, node := range s.Nodes {
		walk(node)
	}
	return CleanText(b.String())
}
