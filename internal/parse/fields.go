// Package parse converts the free-form text fields of a listings table into
// numbers.
//
// Every parser is total: malformed input never produces an error, it produces
// an invalid (Valid=false) pgtype value which is the missing sentinel used
// throughout the module. Invalid values marshal to JSON null.
package parse

import (
	"math"
	"strconv"
	"strings"

	"github.com/jackc/pgx/v5/pgtype"
)

// naTokens are the cell values a CSV reader treats as "no value".
var naTokens = map[string]struct{}{
	"":        {},
	"nan":     {},
	"-nan":    {},
	"na":      {},
	"n/a":     {},
	"#n/a":    {},
	"#na":     {},
	"null":    {},
	"none":    {},
	"<na>":    {},
	"1.#ind":  {},
	"-1.#ind": {},
}

// IsMissing reports whether raw is an empty cell or a textual NA placeholder.
func IsMissing(raw string) bool {
	_, ok := naTokens[strings.ToLower(strings.TrimSpace(raw))]
	return ok
}

// Price parses a listing price such as "4,50,000".
// Text containing "ask" in any letter case ("Ask For Price") is missing.
// Currency symbols are not stripped.
func Price(raw string) pgtype.Float8 {
	if IsMissing(raw) {
		return pgtype.Float8{}
	}
	if strings.Contains(strings.ToLower(raw), "ask") {
		return pgtype.Float8{}
	}
	s := strings.TrimSpace(strings.ReplaceAll(raw, ",", ""))
	return toFloat8(s)
}

// Kms parses a distance such as "45,000 kms" or "12000km".
// The "kms" suffix is removed before "km" so "45kms" does not leave an "s".
func Kms(raw string) pgtype.Float8 {
	if IsMissing(raw) {
		return pgtype.Float8{}
	}
	s := strings.ToLower(raw)
	s = strings.ReplaceAll(s, ",", "")
	s = strings.ReplaceAll(s, "kms", "")
	s = strings.ReplaceAll(s, "km", "")
	s = strings.TrimSpace(s)
	return toFloat8(s)
}

// Year parses a model year such as "2015". Only whole integers are accepted,
// so "2015.0" and "unknown" are missing.
func Year(raw string) pgtype.Int8 {
	s := strings.TrimSpace(raw)
	if s == "" {
		return pgtype.Int8{}
	}
	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return pgtype.Int8{}
	}
	return pgtype.Int8{Int64: n, Valid: true}
}

// FormatFloat renders v as plain decimal text without an exponent, so a
// value that is already numeric round-trips through the text parsers intact.
func FormatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

func toFloat8(s string) pgtype.Float8 {
	if s == "" {
		return pgtype.Float8{}
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return pgtype.Float8{}
	}
	return pgtype.Float8{Float64: f, Valid: true}
}
