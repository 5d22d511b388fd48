// Package normalize canonicalizes the free-form fields of a raw transaction
// record: dates, amounts, merchant labels, and spending categories. Every
// normalizer is a pure function of its input; failures are values, never
// panics.
package normalize

import (
	"errors"
	"regexp"
	"strings"
	"time"
)

// ErrUnparseableDate is returned when no parsing strategy yields a
// plausible calendar date.
var ErrUnparseableDate = errors.New("unparseable date")

// structuredLayouts are tried in fixed priority order. Month-first (US)
// slash layouts come before day-first: on an ambiguous numeric date the US
// reading wins whenever the first component is a valid month, and the
// day-first layouts only catch inputs whose first component exceeds 12.
var structuredLayouts = []string{
	"2006-01-02",
	"2006.01.02",
	"01/02/2006",
	"1/2/2006",
	"01/02/06",
	"1/2/06",
	"02/01/2006",
	"2/1/2006",
	"02-Jan-06",
	"2-Jan-06",
	"02-Jan-2006",
	"2-Jan-2006",
}

// textualLayouts back the natural-language fallback, after ordinal
// suffixes are stripped.
var textualLayouts = []string{
	"Jan 2, 2006",
	"January 2, 2006",
	"Jan 2 2006",
	"January 2 2006",
	"2 Jan 2006",
	"2 January 2006",
	"2 Jan, 2006",
	"2 January, 2006",
}

var ordinalSuffix = regexp.MustCompile(`(\d{1,2})(?:st|nd|rd|th)\b`)

// NormalizeDate parses a free-form date string into a canonical timestamp.
// Empty or whitespace-only input and implausible dates both return
// ErrUnparseableDate; the caller treats that as a hard parse failure for
// the record.
func NormalizeDate(text string) (time.Time, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return time.Time{}, ErrUnparseableDate
	}

	for _, layout := range structuredLayouts {
		if ts, err := time.Parse(layout, text); err == nil {
			return ts, nil
		}
	}

	// Best-effort natural-language parse: drop ordinal suffixes
	// ("17th" -> "17"), collapse whitespace, and retry textual layouts.
	cleaned := ordinalSuffix.ReplaceAllString(text, "$1")
	cleaned = strings.Join(strings.Fields(cleaned), " ")
	for _, layout := range textualLayouts {
		if ts, err := time.Parse(layout, cleaned); err == nil {
			return ts, nil
		}
	}

	return time.Time{}, ErrUnparseableDate
}
