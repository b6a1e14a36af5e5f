// Package size parses marketplace shoe-size strings into a canonical
// display key and, where possible, a numeric value used for
// cross-provider matching.
package size

import (
	"regexp"
	"strconv"
	"strings"
)

// Sizes like "10" or "10.5". Comma decimals from EU feeds are
// normalized to a dot before matching.
var numericSize = regexp.MustCompile(`^\d{1,2}(\.5)?$`)

// Parsed is the result of parsing one raw size string.
type Parsed struct {
	// Display is the normalized key used for string matching: trimmed,
	// upper-cased, comma decimal replaced by a dot.
	Display string
	// Numeric is set only when the whole string is a plain shoe size.
	// Suffixed sizes ("14W", "9.5Y", "10C") keep a nil Numeric and are
	// matched by Display instead, because the same digits mean a
	// different physical size on a different scale.
	Numeric *float64
}

// Parse normalizes a raw provider size string.
//
// Fallback rules:
//   - empty input yields an empty Display and nil Numeric;
//   - a pure number (optionally with a .5 or ,5 half) parses to Numeric;
//   - anything else (widths, kids scales, "OS") is display-only.
func Parse(raw string) Parsed {
	display := strings.ToUpper(strings.TrimSpace(raw))
	display = strings.ReplaceAll(display, ",", ".")
	if display == "" {
		return Parsed{}
	}

	if numericSize.MatchString(display) {
		if v, err := strconv.ParseFloat(display, 64); err == nil {
			return Parsed{Display: display, Numeric: &v}
		}
	}
	return Parsed{Display: display}
}
