package browser

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strings"
)

// prelude is prepended to every evaluated query. Elements handed back to Go
// are tagged with a data-bx id that is unique per document.
const prelude = `
const bx = window.__bx || (window.__bx = {doc: Math.random().toString(36).slice(2), seq: 0});
const tag = (el) => {
	if (!el.dataset.bx) { el.dataset.bx = bx.doc + '-' + (++bx.seq); }
	return el.dataset.bx;
};
const scope = (id) => {
	const el = id ? document.querySelector('[data-bx="' + id + '"]') : document;
	if (!el) { throw new Error('node detached: ' + id); }
	return el;
};
const norm = (s) => (s || '').replace(/\s+/g, ' ').trim();
const render = (el) => el === document ? norm(document.body ? document.body.innerText : '') : norm(el.innerText || el.textContent);
const flat = (el) => norm(el.textContent);
const skipped = ['SCRIPT', 'STYLE', 'NOSCRIPT', 'TEMPLATE'];
const innermost = (list) => list.filter((el) => !list.some((o) => o !== el && el.contains(o)));
const accName = (el) => {
	const aria = el.getAttribute('aria-label');
	if (aria && aria.trim()) { return norm(aria); }
	if (el.id) {
		const l = document.querySelector('label[for="' + CSS.escape(el.id) + '"]');
		if (l) { return render(l); }
	}
	if (el.tagName !== 'LABEL') {
		const l = el.closest('label');
		if (l) { return render(l); }
	}
	const t = render(el);
	if (t) { return t; }
	for (const a of ['placeholder', 'title', 'value']) {
		const v = el.getAttribute(a);
		if (v && v.trim()) { return norm(v); }
	}
	return '';
};
const visible = (el) => {
	if (el === document) { return true; }
	const r = el.getBoundingClientRect();
	if (r.width === 0 || r.height === 0) { return false; }
	return getComputedStyle(el).visibility !== 'hidden';
};
`

func script(body string, args ...any) string {
	quoted := make([]any, len(args))
	for i, a := range args {
		quoted[i] = jsValue(a)
	}
	return "(() => {" + prelude + fmt.Sprintf(body, quoted...) + "})()"
}

func jsValue(v any) string {
	if re, ok := v.(*regexp.Regexp); ok {
		return jsRegExp(re)
	}
	b, err := json.Marshal(v)
	if err != nil {
		return "null"
	}
	return string(b)
}

// jsRegExp converts the RE2 patterns used by the scraper. Only a leading
// (?i) flag group is translated; the rest of the syntax is shared.
func jsRegExp(re *regexp.Regexp) string {
	if re == nil {
		return "null"
	}
	src, flags := re.String(), ""
	if strings.HasPrefix(src, "(?i)") {
		src, flags = strings.TrimPrefix(src, "(?i)"), "i"
	}
	return fmt.Sprintf("new RegExp(%s, %s)", jsValue(src), jsValue(flags))
}

const (
	findCSSScript = `return Array.from(scope(%s).querySelectorAll(%s)).map(tag);`

	findRoleScript = `
const re = %s;
return Array.from(scope(%s).querySelectorAll(%s))
	.filter((el) => !re || re.test(accName(el)))
	.map(tag);`

	findTextScript = `
const re = %s;
const all = Array.from(scope(%s).querySelectorAll('*'))
	.filter((el) => !skipped.includes(el.tagName) && re.test(flat(el)));
return innermost(all).map(tag);`

	findHasTextScript = `
const texts = %s.map((t) => t.toLowerCase());
const all = Array.from(scope(%s).querySelectorAll(%s))
	.filter((el) => { const t = flat(el).toLowerCase(); return texts.every((x) => t.includes(x)); });
return innermost(all).map(tag);`

	followingScript = `
let n = scope(%s);
if (n === document) { return ''; }
while (n && n !== document.documentElement) {
	if (n.nextElementSibling) { return tag(n.nextElementSibling); }
	n = n.parentElement;
}
return '';`

	visibleScript   = `return visible(scope(%s));`
	innerTextScript = `return render(scope(%s));`
)
