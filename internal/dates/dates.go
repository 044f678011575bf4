// Package dates parses the heterogeneous date strings found in scraped
// table cells and decides whether a date falls inside a scheduling window.
package dates

import (
	"regexp"
	"strings"
	"time"
)

// The site mixes several human-readable date conventions with no
// machine-readable attribute, so parsing is a tolerant ordered walk over
// known layouts rather than a single format.
var layouts = []string{
	"2 January 2006",
	"2 Jan 2006",
	"January 2 2006",
	"January 2, 2006",
	"2006-01-02",
	"02/01/2006",
}

var (
	weekdayPrefixRe = regexp.MustCompile(`(?i)^(monday|tuesday|wednesday|thursday|friday|saturday|sunday)[,\s]+`)
	ordinalRe       = regexp.MustCompile(`(?i)\b(\d{1,2})(st|nd|rd|th)\b`)
	yearRe          = regexp.MustCompile(`\b\d{4}\b`)
	rangeSeparator  = " - "
)

// Parse converts free-form scraped date text into a calendar date. It
// reports ok=false for month/year section headers, placeholders like
// "Date to be confirmed", and anything else that matches no known layout.
// For range inputs only the start date is returned. Text without a year
// is completed with defaultYear.
func Parse(raw string, defaultYear int) (time.Time, bool) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return time.Time{}, false
	}

	// "1st October - 3rd October 2025": only the start date matters.
	if i := strings.Index(s, rangeSeparator); i >= 0 {
		s = strings.TrimSpace(s[:i])
	}

	s = weekdayPrefixRe.ReplaceAllString(s, "")
	s = ordinalRe.ReplaceAllString(s, "$1")
	s = strings.TrimSpace(s)

	if !yearRe.MatchString(s) {
		s = s + " " + time.Date(defaultYear, 1, 1, 0, 0, 0, 0, time.UTC).Format("2006")
	}

	s = normalizeCase(s)

	for _, layout := range layouts {
		t, err := time.Parse(layout, s)
		if err != nil {
			continue
		}
		if t.Year() < 2000 || t.Year() > 2099 {
			return time.Time{}, false
		}
		return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC), true
	}
	return time.Time{}, false
}

// normalizeCase rewrites each alphabetic token as Titlecase so that header
// conventions like "OCTOBER 2025" or "2 october 2025" match Go layouts.
func normalizeCase(s string) string {
	fields := strings.Fields(s)
	for i, f := range fields {
		if len(f) == 0 || !isAlpha(rune(f[0])) {
			continue
		}
		fields[i] = strings.ToUpper(f[:1]) + strings.ToLower(f[1:])
	}
	return strings.Join(fields, " ")
}

func isAlpha(r rune) bool {
	return (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z')
}

// Window is the fixed closed date interval of interest for one run.
type Window struct {
	Start time.Time
	End   time.Time
}

// NewWindow truncates both bounds to midnight UTC.
func NewWindow(start, end time.Time) Window {
	return Window{Start: day(start), End: day(end)}
}

// Contains reports whether t falls inside the window, inclusive both ends.
func (w Window) Contains(t time.Time) bool {
	t = day(t)
	return !t.Before(w.Start) && !t.After(w.End)
}

func day(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
