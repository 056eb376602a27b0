// Package extract locates named fields inside fetched pages by declarative
// CSS locator. Extraction is a pure function over the parsed document:
// absence of a field is a normal result, never an error.
package extract

import (
	"fmt"
	"strconv"
	"strings"
	"unicode"

	"github.com/PuerkitoBio/goquery"
)

// Locator declares how to find one named field. When Attr is empty the
// matched element's text is taken, otherwise the named attribute.
type Locator struct {
	Field    string
	Selector string
	Attr     string
}

// Extract resolves every locator against sel and returns the fields that
// matched, normalized. Fields with no match are simply absent from the map.
func Extract(sel *goquery.Selection, locators []Locator) map[string]string {
	fields := make(map[string]string, len(locators))
	for _, loc := range locators {
		if val, ok := First(sel, loc); ok {
			fields[loc.Field] = val
		}
	}
	return fields
}

// First returns the first match for a single locator, normalized.
func First(sel *goquery.Selection, loc Locator) (string, bool) {
	match := sel.Find(loc.Selector).First()
	if match.Length() == 0 {
		return "", false
	}

	if loc.Attr != "" {
		val, ok := match.Attr(loc.Attr)
		if !ok {
			return "", false
		}
		return strings.TrimSpace(val), true
	}

	text := NormalizeText(match.Text())
	if text == "" {
		return "", false
	}
	return text, true
}

// ratingSuffix is the literal tail Amazon appends to star ratings.
const ratingSuffix = "out of 5 stars"

// ParseRating parses strings like "4.0 out of 5 stars" into a float in
// [0, 5]. A failure here is a recoverable per-record error: the caller drops
// the record and moves on.
func ParseRating(raw string) (float64, error) {
	s := strings.TrimSpace(strings.TrimSuffix(strings.TrimSpace(raw), ratingSuffix))
	if s == "" {
		return 0, fmt.Errorf("rating: empty value in %q", raw)
	}

	val, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, fmt.Errorf("rating: parse %q: %w", raw, err)
	}
	if val < 0 || val > 5 {
		return 0, fmt.Errorf("rating: %v out of range [0,5]", val)
	}
	return val, nil
}

// NormalizeText strips leading/trailing whitespace and collapses internal
// whitespace runs to single spaces.
func NormalizeText(s string) string {
	s = strings.TrimSpace(s)
	fields := strings.FieldsFunc(s, func(r rune) bool {
		return unicode.IsSpace(r)
	})
	return strings.Join(fields, " ")
}
