/*
Package query turns free-text shopping intent into structured inputs for
the ranking engine: the price slot, the per-query user context and the
cleaned text sent to similarity search.
*/
package query

import (
	"math"
	"strconv"
	"strings"
)

// freestandingThreshold is the value a bare number must exceed to be read
// as a price ("laptop 50000" but not "top 10").
const freestandingThreshold = 100

// upperBoundCues precede a maximum price ("under 500", "up to 2000").
var upperBoundCues = map[string]bool{
	"under": true,
	"below": true,
	"less":  true,
	"upto":  true,
	"up":    true,
	"to":    true,
}

var currencyStripper = strings.NewReplacer("₹", "", "$", "", "€", "", "£", "", "¥", "", ",", "")

// Slots are the constraints extracted from a query.
type Slots struct {
	// MaxPrice is nil when the query names no upper price bound.
	MaxPrice *float64 `json:"max_price"`
}

// ParseSlots extracts at most one max_price constraint.
//
// Two left-to-right passes run over the tokens: a cue word followed by a
// number sets the price, then any all-digit token greater than 100 sets it.
// The last match wins, so the second pass overrides the first.
func ParseSlots(q string) Slots {
	words := Tokens(q)

	var slots Slots
	for i, w := range words {
		if !upperBoundCues[w] || i+1 >= len(words) {
			continue
		}
		if n, ok := parseNumber(words[i+1]); ok {
			slots.MaxPrice = &n
		}
	}

	for _, w := range words {
		if !isDigits(w) {
			continue
		}
		n, err := strconv.ParseFloat(w, 64)
		if err != nil || n <= freestandingThreshold {
			continue
		}
		slots.MaxPrice = &n
	}

	return slots
}

// Tokens lower-cases q, splits it on whitespace and strips currency symbols
// and thousands separators from every token.
func Tokens(q string) []string {
	fields := strings.Fields(strings.ToLower(q))
	words := make([]string, len(fields))
	for i, f := range fields {
		words[i] = strings.TrimSpace(currencyStripper.Replace(f))
	}
	return words
}

// IsNumeric reports whether the trimmed query is made only of digits.
// Numeric queries skip similarity search.
func IsNumeric(q string) bool {
	return isDigits(strings.TrimSpace(q))
}

// ShouldSearch reports whether q is worth sending to similarity search:
// longer than three characters and not purely numeric.
func ShouldSearch(q string) bool {
	trimmed := strings.TrimSpace(q)
	return len([]rune(trimmed)) > 3 && !IsNumeric(trimmed)
}

func parseNumber(s string) (float64, bool) {
	n, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsInf(n, 0) || math.IsNaN(n) {
		return 0, false
	}
	return n, true
}

func isDigits(s string) bool {
	if s == "" {
		return false
	}
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return true
}
