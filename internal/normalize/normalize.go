// Package normalize converts locale-formatted cell values into canonical forms.
// It is the single coercion chokepoint between raw statement cells and the rest
// of the pipeline: parsers hand every display string through here and never do
// their own string-to-number or string-to-date conversion.
package normalize

import (
	"regexp"
	"strconv"
	"strings"

	"golang.org/x/text/unicode/norm"
)

var (
	currencySymbols = strings.NewReplacer("€", "", "$", "", "£", "", "\u00a0", "")
	longDigitRuns   = regexp.MustCompile(`[0-9]{3,}`)
	whitespaceRuns  = regexp.MustCompile(`\s+`)
)

// ParseAmount converts a locale-formatted amount string to a float.
//
// Both European ("1.234,56") and US ("1,234.56") separator conventions are
// accepted: whichever separator appears rightmost is the decimal separator,
// the other is stripped as a thousands separator. A lone comma is treated as
// a decimal separator ("12,34" -> 12.34). Currency symbols are ignored.
// Unparseable input yields 0; ParseAmount never returns an error because a
// zero amount is still a usable row while a broken amount cell must not sink
// the whole import.
func ParseAmount(raw string) float64 {
	s := strings.TrimSpace(currencySymbols.Replace(raw))
	s = strings.ReplaceAll(s, " ", "")
	if s == "" {
		return 0
	}

	comma := strings.LastIndex(s, ",")
	dot := strings.LastIndex(s, ".")
	switch {
	case comma >= 0 && dot >= 0:
		if comma > dot {
			// European: 1.234,56
			s = strings.ReplaceAll(s, ".", "")
			s = strings.Replace(s, ",", ".", 1)
		} else {
			// US: 1,234.56
			s = strings.ReplaceAll(s, ",", "")
		}
	case comma >= 0:
		// Lone comma is a decimal separator: 12,34
		s = strings.Replace(s, ",", ".", 1)
	}

	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0
	}
	return v
}

// FormatDate converts a DD/MM/YYYY date string to ISO YYYY-MM-DD.
// Returns "" for anything that is not exactly three slash-separated numeric
// parts with a 4-digit year. Day and month are left-padded to two digits.
func FormatDate(raw string) string {
	parts := strings.Split(strings.TrimSpace(raw), "/")
	if len(parts) != 3 {
		return ""
	}

	day, month, year := parts[0], parts[1], parts[2]
	if len(year) != 4 || !allDigits(year) {
		return ""
	}
	if len(day) == 0 || len(day) > 2 || !allDigits(day) {
		return ""
	}
	if len(month) == 0 || len(month) > 2 || !allDigits(month) {
		return ""
	}

	if len(day) == 1 {
		day = "0" + day
	}
	if len(month) == 1 {
		month = "0" + month
	}
	return year + "-" + month + "-" + day
}

func allDigits(s string) bool {
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

// NormalizeDescription produces the canonical matching key used throughout the
// categorization engine and persisted as learned rule patterns: NFC-composed,
// lower-cased, digit runs of length >= 3 removed (store and terminal IDs would
// otherwise fragment otherwise-identical merchant strings), and whitespace
// collapsed.
func NormalizeDescription(raw string) string {
	s := norm.NFC.String(raw)
	s = strings.ToLower(s)
	s = longDigitRuns.ReplaceAllString(s, "")
	s = whitespaceRuns.ReplaceAllString(s, " ")
	return strings.TrimSpace(s)
}
