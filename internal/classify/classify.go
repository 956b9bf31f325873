// Package classify turns one raw CSV cell into a FieldType tag and provides
// the locale-aware numeric helpers that profiling and synthesis share.
//
// Classification is strictly ordered (first match wins):
//
//  1. boolean literals (true/false/1/0/yes/no, case-insensitive)
//  2. date/datetime via a fixed layout list, then an ISO-8601 fallback
//  3. base-10 integer (any length; leading sign allowed)
//  4. grouped/locale decimal ("1.234,56", "1,234.56", "3,14")
//  5. plain decimal containing '.', ',' or an exponent marker
//  6. float (catches inf/nan and other strconv-parseable forms)
//  7. string
package classify

import (
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// dateTimeLayouts is the ordered list of accepted date/time formats. The
// ISO-8601 fallbacks below are tried only when none of these match.
var dateTimeLayouts = []string{
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02",
	"2006/01/02",
	"02/01/2006",
	"01/02/2006",
}

// isoFallbackLayouts approximate a general ISO-8601 parse for values the
// fixed list misses (fractional seconds, zone offsets, minute precision).
var isoFallbackLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02T15:04",
}

var (
	// groupedNumberRe matches digit groups of 1-3 joined by '.' or ','
	// separators, e.g. "1.234,56" or "1,234.56" or "3,14".
	groupedNumberRe = regexp.MustCompile(`^[+-]?\d{1,3}(?:[.,]\d+)+$`)
	// plainDecimalRe matches a single integer part with one separator run,
	// e.g. "1234,56" or "1234.56".
	plainDecimalRe = regexp.MustCompile(`^[+-]?\d+[.,]\d+$`)
)

// Classify maps a single raw cell to its FieldType. The empty string maps to
// TypeEmpty; anything unparseable falls through to TypeString.
func Classify(raw string) FieldType {
	if raw == "" {
		return TypeEmpty
	}

	lower := strings.ToLower(strings.TrimSpace(raw))
	switch lower {
	case "true", "false", "1", "0", "yes", "no":
		return TypeBoolean
	}

	if dt, ok := ParseDateTime(raw); ok {
		if hasClockTime(dt) {
			return TypeDateTime
		}
		return TypeDate
	}

	if isInteger(lower) {
		return TypeInteger
	}

	if sep, ok := DecimalSeparator(raw); ok {
		normalized := normalizeSeparators(strings.TrimSpace(raw), sep)
		if _, err := decimal.NewFromString(normalized); err == nil {
			return TypeDecimal
		}
	}

	if _, err := decimal.NewFromString(lower); err == nil {
		if strings.ContainsAny(lower, ".,eE") {
			return TypeDecimal
		}
	}

	if _, err := strconv.ParseFloat(lower, 64); err == nil {
		return TypeFloat
	}

	return TypeString
}

// ParseDateTime parses raw against the fixed layout list, then the ISO-8601
// fallbacks. It reports false when no layout matches.
func ParseDateTime(raw string) (time.Time, bool) {
	txt := strings.TrimSpace(raw)
	if txt == "" {
		return time.Time{}, false
	}
	for _, layout := range dateTimeLayouts {
		if t, err := time.Parse(layout, txt); err == nil {
			return t, true
		}
	}
	for _, layout := range isoFallbackLayouts {
		if t, err := time.Parse(layout, txt); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// DecimalSeparator classifies the decimal separator a numeric-looking value
// uses. It reports ok=false when the value does not match either grouped or
// plain decimal shapes. When it matches, the separator is "," if a comma
// occurs anywhere in the value, else ".". The classifier is deliberately
// separate from numeric parsing so the ambiguous-format heuristic can be
// tested in isolation.
func DecimalSeparator(raw string) (string, bool) {
	txt := strings.TrimSpace(raw)
	if txt == "" {
		return "", false
	}
	if groupedNumberRe.MatchString(txt) || plainDecimalRe.MatchString(txt) {
		if strings.Contains(txt, ",") {
			return ",", true
		}
		return ".", true
	}
	return "", false
}

// NormalizeNumeric parses raw as a float64, treating a detected decimal
// separator as the decimal point and stripping the other character as a
// thousands grouper. Values without a detected separator are parsed as-is.
func NormalizeNumeric(raw string) (float64, bool) {
	txt := strings.TrimSpace(raw)
	if txt == "" {
		return 0, false
	}

	candidate := txt
	if sep, ok := DecimalSeparator(txt); ok {
		candidate = normalizeSeparators(txt, sep)
	}

	if f, err := strconv.ParseFloat(candidate, 64); err == nil {
		return f, true
	}
	if f, err := strconv.ParseFloat(txt, 64); err == nil {
		return f, true
	}
	return 0, false
}

// normalizeSeparators rewrites txt so that '.' is the decimal point: when the
// detected separator is ',', dots are dropped as groupers and the comma
// becomes the point; otherwise commas are dropped.
func normalizeSeparators(txt, sep string) string {
	if sep == "," {
		txt = strings.ReplaceAll(txt, ".", "")
		return strings.ReplaceAll(txt, ",", ".")
	}
	return strings.ReplaceAll(txt, ",", "")
}

// isInteger accepts an optional sign followed by one or more ASCII digits.
// Length is unbounded; values that overflow int64 still classify as integer.
func isInteger(s string) bool {
	if s == "" {
		return false
	}
	i := 0
	if s[0] == '+' || s[0] == '-' {
		i = 1
	}
	if i == len(s) {
		return false
	}
	for ; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return true
}

// hasClockTime reports whether t carries a non-midnight time-of-day.
func hasClockTime(t time.Time) bool {
	h, m, s := t.Clock()
	return h != 0 || m != 0 || s != 0 || t.Nanosecond() != 0
}
