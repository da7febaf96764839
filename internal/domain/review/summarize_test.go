package review

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSummarize_OrderAndFlags(t *testing.T) {
	meta := map[string]any{
		"technique":       "3WAY",
		"decision":        "REVIEW",
		"risk_level":      "MEDIUM",
		"elapsed_ms":      2000.0,
		"domain":          "procurement",
		"confidence":      0.82,
		"unlisted":        "ignored",
		"baseline":        map[string]any{"value": 10.5, "currency": "THB"},
		"baseline_source": map[string]any{"method": "contract"},
	}
	kv := Summarize(meta, "R1", "G1", 0)

	var keys []string
	for _, e := range kv {
		keys = append(keys, e.Key)
	}
	assert.Equal(t, []string{
		"domain", "run_id", "group_id", "elapsed_ms", "decision", "risk_level", "confidence",
		"baseline.value", "baseline.currency", "baseline_source.method", "technique",
	}, keys)

	byKey := map[string]MetaKV{}
	for _, e := range kv {
		byKey[e.Key] = e
	}
	assert.Equal(t, MetaKV{Key: "run_id", Value: "R1", Mono: true}, byKey["run_id"])
	assert.True(t, byKey["elapsed_ms"].Highlight)
	assert.Equal(t, "2000", byKey["elapsed_ms"].Value)
	assert.True(t, byKey["decision"].Highlight)
	assert.True(t, byKey["risk_level"].Highlight)
	assert.False(t, byKey["confidence"].Highlight)
	assert.Equal(t, "10.5", byKey["baseline.value"].Value)
	assert.True(t, byKey["baseline.currency"].Mono)
}

func TestSummarize_MetaOverridesEventIDs(t *testing.T) {
	kv := Summarize(map[string]any{"run_id": "R-meta"}, "R-event", "", 0)
	require.Len(t, kv, 1)
	assert.Equal(t, "R-meta", kv[0].Value)
}

func TestSummarize_SkipsEmptyValues(t *testing.T) {
	meta := map[string]any{
		"domain":     nil,
		"policy_id":  "",
		"hits":       "-",
		"inserted":   "null",
		"decision":   "PASS",
		"elapsed_ms": "900",
		"risk_level": "LOW",
	}
	kv := Summarize(meta, "", "", 0)
	require.Len(t, kv, 3)
	for _, e := range kv {
		assert.False(t, e.Highlight, e.Key)
	}
}

func TestSummarize_Cap(t *testing.T) {
	meta := map[string]any{}
	for _, k := range []string{
		"domain", "policy_id", "policy_version", "reference_id", "reference_type", "run_id", "group_id",
		"transaction_id", "aggregate_type", "aggregate_key", "ledger_lines", "hits", "inserted",
		"total_links", "min_similarity", "ref_dt", "counterparty_id",
	} {
		meta[k] = "v-" + k
	}
	kv := Summarize(meta, "", "", 0)
	require.Len(t, kv, DefaultMetaKVCap)
	assert.Equal(t, "domain", kv[0].Key)
	assert.Equal(t, "total_links", kv[DefaultMetaKVCap-1].Key)

	assert.Len(t, Summarize(meta, "", "", 3), 3)
}

func TestIsMetaLarge(t *testing.T) {
	assert.False(t, IsMetaLarge(nil, 0))
	assert.False(t, IsMetaLarge(map[string]any{"a": "b"}, 0))
	assert.True(t, IsMetaLarge(map[string]any{"blob": strings.Repeat("x", 900)}, 0))
	assert.True(t, IsMetaLarge(map[string]any{"a": "bcdef"}, 5))
	assert.True(t, IsMetaLarge(map[string]any{"ch": make(chan int)}, 0))
}
