package review

import (
	"encoding/json"
	"strconv"
	"strings"
)

// Summary defaults.
const (
	DefaultMetaKVCap          = 14
	DefaultMetaLargeThreshold = 900
	slowElapsedMs             = 1500
)

// MetaKV is one high-signal key/value pulled out of event metadata.
type MetaKV struct {
	Key       string `json:"key"`
	Value     string `json:"value"`
	Mono      bool   `json:"mono,omitempty"`
	Highlight bool   `json:"highlight,omitempty"`
}

type kvCollector struct {
	out []MetaKV
}

func (c *kvCollector) push(key string, v any, mono, highlight bool) {
	if v == nil {
		return
	}
	s := StringValue(v)
	if s == "" || s == "-" || s == "null" {
		return
	}
	c.out = append(c.out, MetaKV{Key: key, Value: s, Mono: mono, Highlight: highlight})
}

// Summarize extracts the allow-listed metadata keys in a fixed order. The
// event's own run and group ids fill in when the metadata lacks them.
// Non-positive limit selects DefaultMetaKVCap.
func Summarize(meta map[string]any, runID, groupID string, limit int) []MetaKV {
	if limit <= 0 {
		limit = DefaultMetaKVCap
	}
	m := meta
	if m == nil {
		m = map[string]any{}
	}
	var c kvCollector

	for _, k := range []string{"domain", "policy_id", "policy_version", "reference_id", "reference_type"} {
		c.push(k, m[k], true, false)
	}
	c.push("run_id", orFallback(m["run_id"], runID), true, false)
	c.push("group_id", orFallback(m["group_id"], groupID), true, false)

	for _, k := range []string{"transaction_id", "aggregate_type", "aggregate_key"} {
		c.push(k, m[k], true, false)
	}
	c.push("ledger_lines", m["ledger_lines"], false, false)

	c.push("hits", m["hits"], false, false)
	c.push("inserted", m["inserted"], false, false)
	c.push("total_links", m["total_links"], false, false)
	c.push("min_similarity", m["min_similarity"], false, false)
	c.push("ref_dt", m["ref_dt"], true, false)
	c.push("counterparty_id", m["counterparty_id"], true, false)
	c.push("counterparty_name", m["counterparty_name"], false, false)

	for _, k := range []string{"line_count", "document_link_count", "eligible_contract_count", "total_prices_loaded", "mapping_count"} {
		c.push(k, m[k], false, false)
	}
	elapsed, ok := toFloat(m["elapsed_ms"])
	c.push("elapsed_ms", m["elapsed_ms"], false, ok && elapsed > slowElapsedMs)

	decision := strings.ToUpper(StringValue(m["decision"]))
	c.push("decision", m["decision"], true, decision != "PASS")
	risk := strings.ToUpper(StringValue(m["risk_level"]))
	c.push("risk_level", m["risk_level"], true, strings.Contains(risk, "MED") || strings.Contains(risk, "HIGH"))
	c.push("confidence", m["confidence"], false, false)

	if b, ok := m["baseline"].(map[string]any); ok {
		c.push("baseline.value", b["value"], false, false)
		c.push("baseline.currency", b["currency"], true, false)
	}
	if bs, ok := m["baseline_source"].(map[string]any); ok {
		c.push("baseline_source.method", bs["method"], true, false)
	}
	c.push("technique", m["technique"], true, false)

	if len(c.out) > limit {
		return c.out[:limit]
	}
	return c.out
}

// IsMetaLarge reports whether the serialized metadata is longer than limit
// characters. Metadata that cannot be serialized counts as large.
func IsMetaLarge(meta map[string]any, limit int) bool {
	if meta == nil {
		return false
	}
	if limit <= 0 {
		limit = DefaultMetaLargeThreshold
	}
	b, err := json.Marshal(meta)
	if err != nil {
		return true
	}
	return len(b) > limit
}

func orFallback(v any, fallback string) any {
	if v != nil {
		return v
	}
	if fallback == "" {
		return nil
	}
	return fallback
}

func toFloat(v any) (float64, bool) {
	switch x := v.(type) {
	case float64:
		return x, true
	case int:
		return float64(x), true
	case int64:
		return float64(x), true
	case json.Number:
		f, err := x.Float64()
		return f, err == nil
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(x), 64)
		return f, err == nil
	}
	return 0, false
}
