package domain

import (
	"bytes"
	"encoding/json"
	"math"
	"strconv"
	"strings"
)

// Number is a leniently parsed numeric cell value.
// Karte fields are typed by hand into a worksheet, so a JSON number, a
// numeric string with thousands separators ("2,500"), a blank and outright
// garbage are all accepted. Anything that does not parse is 0.
type Number float64

// UnmarshalJSON accepts numbers, strings and null.
func (n *Number) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) == 0 || bytes.Equal(b, []byte("null")) {
		*n = 0
		return nil
	}
	if b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			*n = 0
			return nil
		}
		*n = Number(ParseAmount(s))
		return nil
	}
	*n = Number(ParseAmount(string(b)))
	return nil
}

// Float returns n as a float64.
func (n Number) Float() float64 { return float64(n) }

// String formats n without a trailing ".0" for whole values.
func (n Number) String() string {
	return FormatNumber(float64(n))
}

// ParseAmount converts free-form cell text into a number.
// Commas are stripped before parsing; blanks, garbage, NaN and
// infinities all yield 0.
func ParseAmount(s string) float64 {
	s = strings.TrimSpace(strings.ReplaceAll(s, ",", ""))
	if s == "" {
		return 0
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0
	}
	return v
}

// FormatNumber renders v the way a spreadsheet cell would show it:
// integers without a fractional part, everything else in shortest form.
func FormatNumber(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

// roundHalfUp rounds halves toward positive infinity, matching the rounding
// the office spreadsheets use for per-person figures (-2.5 rounds to -2).
func roundHalfUp(v float64) float64 {
	return math.Floor(v + 0.5)
}
