package normalize

import (
	"regexp"
	"strings"
	"sync"
	"time"

	"github.com/araddon/dateparse"
	"github.com/olebedev/when"
	"github.com/olebedev/when/rules"
	"github.com/olebedev/when/rules/en"
	"github.com/tripledger/bookings/internal/models"
)

var isoLayouts = []string{
	"2006-01-02",
	"2006-01-02T15:04:05",
	"2006-01-02T15:04",
	"2006-01-02 15:04:05",
	"2006-01-02 15:04",
	time.RFC3339,
}

// Date-looking substrings tried when the whole text is not a date, e.g.
// "Check-in: Fri, 1 Sep 2023 from 15:00".
var fuzzyDatePatterns = []*regexp.Regexp{
	regexp.MustCompile(`\d{4}-\d{1,2}-\d{1,2}`),
	regexp.MustCompile(`\d{1,2}(?:st|nd|rd|th)?\s+[A-Za-z]{3,9}\.?,?\s+\d{2,4}`),
	regexp.MustCompile(`[A-Za-z]{3,9}\.?\s+\d{1,2}(?:st|nd|rd|th)?,?\s+\d{4}`),
	regexp.MustCompile(`\d{1,2}[/.]\d{1,2}[/.]\d{2,4}`),
}

var (
	ordinalSuffix = regexp.MustCompile(`(\d)(?:st|nd|rd|th)\b`)
	septAbbrev    = regexp.MustCompile(`(?i)\bsept\b`)
)

// Rules that resolve a calendar day. Time-of-day rules are left out: on
// their own they anchor to today.
var naturalRules = []rules.Rule{
	en.Weekday(rules.Override),
	en.CasualDate(rules.Override),
	en.Deadline(rules.Override),
	en.PastTime(rules.Override),
	en.ExactMonthDate(rules.Override),
}

const naturalNoise = " \t.,;:"

var (
	naturalOnce   sync.Once
	naturalParser *when.Parser
)

func natural() *when.Parser {
	naturalOnce.Do(func() {
		naturalParser = when.New(nil)
		naturalParser.Add(naturalRules...)
	})
	return naturalParser
}

// DateParser turns free-form date text into a calendar date. Now anchors
// relative phrases such as "yesterday"; nil means time.Now.
type DateParser struct {
	Now func() time.Time
}

var defaultDateParser = DateParser{}

// ParseDate tries strict ISO, then a month-first general parser with fuzzy
// substring extraction, then natural language. First success wins.
func ParseDate(text string) (models.Date, error) {
	return defaultDateParser.Parse(text)
}

func (p DateParser) Parse(text string) (models.Date, error) {
	cleaned := strings.TrimSpace(text)
	if cleaned == "" {
		return models.Date{}, &DateParseError{Text: text}
	}

	if d, ok := parseISO(cleaned); ok {
		return d, nil
	}
	if d, ok := parseGeneral(cleaned); ok {
		return d, nil
	}
	if d, ok := p.parseNatural(cleaned); ok {
		return d, nil
	}

	return models.Date{}, &DateParseError{Text: text}
}

func parseISO(s string) (models.Date, bool) {
	for _, layout := range isoLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return models.DateOf(t), true
		}
	}
	return models.Date{}, false
}

// parseGeneral relies on dateparse resolving ambiguous numeric dates month
// first (01/02/2024 is January 2nd).
func parseGeneral(s string) (models.Date, bool) {
	if d, ok := parseAny(s); ok {
		return d, true
	}

	for _, re := range fuzzyDatePatterns {
		for _, candidate := range re.FindAllString(s, -1) {
			if d, ok := parseAny(candidate); ok {
				return d, true
			}
		}
	}
	return models.Date{}, false
}

func parseAny(s string) (models.Date, bool) {
	s = ordinalSuffix.ReplaceAllString(strings.TrimSpace(s), "$1")
	s = septAbbrev.ReplaceAllString(s, "Sep")
	t, err := dateparse.ParseIn(s, time.UTC, dateparse.PreferMonthFirst(true))
	if err != nil {
		return models.Date{}, false
	}
	return models.DateOf(t), true
}

func (p DateParser) parseNatural(s string) (models.Date, bool) {
	now := time.Now
	if p.Now != nil {
		now = p.Now
	}

	r, err := natural().Parse(s, now())
	if err != nil || r == nil {
		return models.Date{}, false
	}
	// a phrase inside longer text ("Sept 1" of "Sept 1, 2023") drops the rest
	if !strings.EqualFold(strings.Trim(r.Text, naturalNoise), strings.Trim(s, naturalNoise)) {
		return models.Date{}, false
	}
	return models.DateOf(r.Time), true
}
