package review

import (
	"encoding/json"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	rtypes "github.com/turtacn/CaseLens/pkg/types/review"
)

// Placeholder printed in place of a missing price.
const Missing = "—"

// FormatAmount renders v with thousands separators and at most two decimals.
func FormatAmount(v float64) string {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return ""
	}
	s := decimal.NewFromFloat(v).Round(2).String()
	neg := strings.HasPrefix(s, "-")
	s = strings.TrimPrefix(s, "-")
	intPart, frac, _ := strings.Cut(s, ".")

	var sb strings.Builder
	if neg {
		sb.WriteByte('-')
	}
	for i, r := range intPart {
		if i > 0 && (len(intPart)-i)%3 == 0 {
			sb.WriteByte(',')
		}
		sb.WriteRune(r)
	}
	if frac != "" {
		sb.WriteByte('.')
		sb.WriteString(frac)
	}
	return sb.String()
}

// FormatMoney renders an amount followed by its currency code.
func FormatMoney(v float64, currency string) string {
	amount := FormatAmount(v)
	if amount == "" || currency == "" {
		return amount
	}
	return amount + " " + currency
}

// FormatPercent renders v with two decimals and a percent sign. Non-finite
// values render as the empty string.
func FormatPercent(v float64) string {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return ""
	}
	return decimal.NewFromFloat(v).StringFixed(2) + "%"
}

// FormatNumber renders a plain number without grouping, e.g. for context
// entries that are compared verbatim.
func FormatNumber(v float64) string {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return ""
	}
	return strconv.FormatFloat(v, 'f', -1, 64)
}

// NumString renders a lenient number, or "" when it is missing.
func NumString(n rtypes.Num) string {
	if !n.Valid {
		return ""
	}
	return FormatNumber(n.Value)
}

// NormalizeConfidence turns a fractional 0..1 confidence into a percentage
// rounded to two decimals and clamped to [0, 100].
func NormalizeConfidence(n rtypes.Num) (float64, bool) {
	if !n.Valid {
		return 0, false
	}
	pct := decimal.NewFromFloat(n.Value).Mul(decimal.NewFromInt(100)).Round(2).InexactFloat64()
	switch {
	case pct < 0:
		pct = 0
	case pct > 100:
		pct = 100
	}
	return pct, true
}

// CompositeID joins identifier parts with ':' skipping empty ones.
func CompositeID(parts ...string) string {
	kept := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			kept = append(kept, p)
		}
	}
	return strings.Join(kept, ":")
}

var timestampLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05.999999999Z07:00",
	"2006-01-02 15:04:05",
	"2006-01-02",
}

// ParseTimestamp parses the timestamp shapes the backends emit. Values
// without a zone are read as UTC. Unparseable input yields the zero time.
func ParseTimestamp(s string) time.Time {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}
	}
	for _, layout := range timestampLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC()
		}
	}
	return time.Time{}
}

// StringValue renders an arbitrary JSON value for display. Strings are
// returned as is, nil as "", everything else as compact JSON.
func StringValue(v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return x
	case float64:
		return FormatNumber(x)
	case bool:
		return strconv.FormatBool(x)
	case json.Number:
		return x.String()
	}
	b, err := json.Marshal(v)
	if err != nil {
		return ""
	}
	return string(b)
}

// blank reports whether a rendered value should be dropped from summaries.
func blank(s string) bool {
	s = strings.TrimSpace(s)
	return s == "" || s == "null"
}
