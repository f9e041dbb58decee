package normalize

import (
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/shopspring/decimal"
)

type ParsedPrice struct {
	Amount   decimal.Decimal
	Currency string
}

type currencySymbol struct {
	symbol string
	code   string
}

// Order matters: the first symbol contained in the text wins, so "$" shadows
// "C$" and "R$" exactly like the table has always behaved.
var currencySymbols = []currencySymbol{
	{"$", "USD"},
	{"€", "EUR"},
	{"£", "GBP"},
	{"CHF", "CHF"},
	{"C$", "CAD"},
	{"CA$", "CAD"},
	{"A$", "AUD"},
	{"AU$", "AUD"},
	{"₺", "TRY"},
	{"₽", "RUB"},
	{"zł", "PLN"},
	{"R$", "BRL"},
	{"₹", "INR"},
	{"¥", "JPY"},
	{"₩", "KRW"},
}

var currencyCodeRegex = regexp.MustCompile(`[A-Z]{3}`)

// ParsePrice extracts the amount and currency from text such as "$1,234.56",
// "€ 1.234,56" or "Total: 999 CHF".
func ParsePrice(text string) (ParsedPrice, error) {
	cleaned := strings.TrimSpace(text)

	currency := detectCurrency(cleaned)

	numeric, ok := findNumeric(cleaned)
	if !ok {
		return ParsedPrice{}, &PriceParseError{Text: text, Reason: "unable to extract numeric price"}
	}

	normalized := normalizeDecimalString(numeric)
	amount, err := decimal.NewFromString(normalized)
	if err != nil {
		return ParsedPrice{}, &PriceParseError{Text: normalized, Reason: "invalid numeric price after normalization"}
	}

	return ParsedPrice{Amount: amount, Currency: currency}, nil
}

// detectCurrency prefers a standalone ISO code over any symbol.
func detectCurrency(s string) string {
	if code := currencyCode(s); code != "" {
		return code
	}
	for _, c := range currencySymbols {
		if strings.Contains(s, c.symbol) {
			return c.code
		}
	}
	return ""
}

// currencyCode finds the first three-letter code standing as its own word.
// Word characters are Unicode letters, numbers and underscore, so "éUSD" has
// no code.
func currencyCode(s string) string {
	for _, loc := range currencyCodeRegex.FindAllStringIndex(s, -1) {
		before, _ := utf8.DecodeLastRuneInString(s[:loc[0]])
		after, _ := utf8.DecodeRuneInString(s[loc[1]:])
		if !isWordRune(before) && !isWordRune(after) {
			return s[loc[0]:loc[1]]
		}
	}
	return ""
}

func isWordRune(r rune) bool {
	return r == '_' || unicode.IsLetter(r) || unicode.IsNumber(r)
}

// findNumeric returns the leftmost match of
//
//	(?<!\d)(?:\d{1,3}(?:[.,]\d{3})+|\d+)(?:[.,]\d{2})?(?!\d)
//
// with backtracking order preserved. RE2 has no lookaround, so the pattern is
// walked by hand: alternatives left to right, greedy counts from longest.
func findNumeric(s string) (string, bool) {
	for i := 0; i < len(s); i++ {
		if !isDigit(s, i) || isDigit(s, i-1) {
			continue
		}
		if end, ok := matchNumericAt(s, i); ok {
			return s[i:end], true
		}
	}
	return "", false
}

func matchNumericAt(s string, start int) (int, bool) {
	// \d{1,3}(?:[.,]\d{3})+
	for lead := 3; lead >= 1; lead-- {
		if !allDigits(s, start, start+lead) {
			continue
		}
		groups := []int{}
		for p := start + lead; isSeparator(s, p) && allDigits(s, p+1, p+4); p += 4 {
			groups = append(groups, p+4)
		}
		for k := len(groups) - 1; k >= 0; k-- {
			if end, ok := withDecimalTail(s, groups[k]); ok {
				return end, true
			}
		}
	}

	// \d+
	run := 0
	for isDigit(s, start+run) {
		run++
	}
	for n := run; n >= 1; n-- {
		if end, ok := withDecimalTail(s, start+n); ok {
			return end, true
		}
	}
	return 0, false
}

// withDecimalTail applies (?:[.,]\d{2})?(?!\d) at pos, trying the tail first.
func withDecimalTail(s string, pos int) (int, bool) {
	if isSeparator(s, pos) && allDigits(s, pos+1, pos+3) && !isDigit(s, pos+3) {
		return pos + 3, true
	}
	if !isDigit(s, pos) {
		return pos, true
	}
	return 0, false
}

// normalizeDecimalString decides which of ',' and '.' is the decimal separator.
func normalizeDecimalString(num string) string {
	hasComma := strings.Contains(num, ",")
	hasDot := strings.Contains(num, ".")

	switch {
	case hasComma && hasDot:
		if strings.LastIndex(num, ",") > strings.LastIndex(num, ".") {
			// 1.234,56
			return strings.ReplaceAll(strings.ReplaceAll(num, ".", ""), ",", ".")
		}
		// 1,234.56
		return strings.ReplaceAll(num, ",", "")
	case hasComma:
		parts := strings.Split(num, ",")
		if len(parts[len(parts)-1]) == 3 && allNumeric(parts) {
			return strings.Join(parts, "")
		}
		return strings.ReplaceAll(num, ",", ".")
	default:
		return num
	}
}

func allNumeric(parts []string) bool {
	for _, p := range parts {
		if p == "" || !allDigits(p, 0, len(p)) {
			return false
		}
	}
	return true
}

func isDigit(s string, i int) bool {
	return i >= 0 && i < len(s) && s[i] >= '0' && s[i] <= '9'
}

func isSeparator(s string, i int) bool {
	return i >= 0 && i < len(s) && (s[i] == '.' || s[i] == ',')
}

func allDigits(s string, from, to int) bool {
	if from < 0 || to > len(s) || from >= to {
		return false
	}
	for i := from; i < to; i++ {
		if !isDigit(s, i) {
			return false
		}
	}
	return true
}
