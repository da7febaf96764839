// Package review holds the wire shapes exchanged with the decision backends.
// Every field is optional on the wire: numbers tolerate strings, nulls and
// garbage, and nested traces are kept as raw JSON until a consumer needs them.
package review

import (
	"bytes"
	"encoding/json"
	"math"
	"strconv"
	"strings"
)

// Num is a lenient JSON number. Valid is false when the field was absent,
// null, non-numeric or not finite; Value is then zero.
type Num struct {
	Value float64
	Valid bool
}

// NumOf returns a valid Num.
func NumOf(v float64) Num {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return Num{}
	}
	return Num{Value: v, Valid: true}
}

// Float returns the value, or zero when missing.
func (n Num) Float() float64 {
	if !n.Valid {
		return 0
	}
	return n.Value
}

// Or returns the value when valid, else fallback.
func (n Num) Or(fallback float64) float64 {
	if n.Valid {
		return n.Value
	}
	return fallback
}

// Positive reports whether the number is present and greater than zero.
func (n Num) Positive() bool {
	return n.Valid && n.Value > 0
}

// UnmarshalJSON implements json.Unmarshaler.
func (n *Num) UnmarshalJSON(data []byte) error {
	*n = Num{}
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		return nil
	}
	var raw string
	if data[0] == '"' {
		if err := json.Unmarshal(data, &raw); err != nil {
			return nil
		}
		raw = strings.TrimSpace(raw)
	} else {
		raw = string(data)
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return nil
	}
	*n = NumOf(v)
	return nil
}

// MarshalJSON implements json.Marshaler.
func (n Num) MarshalJSON() ([]byte, error) {
	if !n.Valid {
		return []byte("null"), nil
	}
	return []byte(strconv.FormatFloat(n.Value, 'f', -1, 64)), nil
}

// FirstPositive returns the first number that is present and positive.
func FirstPositive(nums ...Num) (Num, bool) {
	for _, n := range nums {
		if n.Positive() {
			return n, true
		}
	}
	return Num{}, false
}
