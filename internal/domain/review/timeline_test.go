package review

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/sebdah/goldie/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	rtypes "github.com/turtacn/CaseLens/pkg/types/review"
)

func loadView(t *testing.T) rtypes.DecisionRunView {
	t.Helper()
	raw, err := os.ReadFile(filepath.Join("testdata", "decision_run_view.json"))
	require.NoError(t, err)
	var v rtypes.DecisionRunView
	require.NoError(t, json.Unmarshal(raw, &v))
	return v
}

func renderTimeline(events []AuditEvent) []byte {
	var b strings.Builder
	for _, e := range events {
		fmt.Fprintf(&b, "%s %s %s %s %s\n", e.Timestamp.Format(time.RFC3339), e.ID, e.Action, e.Severity, e.Status)
		fmt.Fprintf(&b, "  actor: %s (%s)\n", e.Actor.Name, e.Actor.Role)
		fmt.Fprintf(&b, "  message: %s\n", e.Message)
		for _, c := range e.Context {
			mark := ""
			if c.Highlight {
				mark = " !"
			}
			fmt.Fprintf(&b, "  - %s: %s%s\n", c.Key, c.Value, mark)
		}
	}
	return []byte(b.String())
}

func TestDeriveTimeline_Golden(t *testing.T) {
	events := NewDeriver("", 0).DeriveTimeline(loadView(t))

	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, "decision_run_timeline", renderTimeline(events))
}

func TestDeriveTimeline_Idempotent(t *testing.T) {
	v := loadView(t)
	d := NewDeriver("", 0)

	first := d.DeriveTimeline(v)
	second := d.DeriveTimeline(v)
	require.Len(t, second, len(first))
	for i := range first {
		assert.Equal(t, first[i].ID, second[i].ID)
		assert.Equal(t, first[i].Action, second[i].Action)
	}
	assert.Equal(t, first, second)
}

func TestDeriveTimeline_NewestFirst(t *testing.T) {
	events := NewDeriver("", 0).DeriveTimeline(loadView(t))
	require.Len(t, events, 6)
	for i := 1; i < len(events); i++ {
		assert.False(t, events[i].Timestamp.After(events[i-1].Timestamp), "event %d is newer than event %d", i, i-1)
	}
	assert.Equal(t, ActionRunCreated, events[len(events)-1].Action)
}

func TestDeriveTimeline_UniqueIDs(t *testing.T) {
	events := NewDeriver("", 0).DeriveTimeline(loadView(t))
	seen := map[string]bool{}
	for _, e := range events {
		assert.True(t, strings.HasPrefix(e.ID, "evt_"))
		assert.Len(t, e.ID, 36)
		assert.False(t, seen[e.ID], "duplicate id %s", e.ID)
		seen[e.ID] = true
	}
}

func TestDeriveTimeline_GRExceedsPO(t *testing.T) {
	v := rtypes.DecisionRunView{
		CaseID:    "C1",
		RunID:     "R1",
		CreatedAt: "2026-01-10T10:00:00Z",
		Items: []rtypes.DecisionRunItem{{
			GroupID:  "G1",
			Item:     rtypes.DecisionRunItemIdentity{SKU: "SKU-9"},
			Quantity: rtypes.DecisionRunQuantity{PO: rtypes.NumOf(100), GR: rtypes.NumOf(120), Inv: rtypes.NumOf(100)},
			Rules: []rtypes.DecisionRunRule{{
				RuleID:      "QTY-1",
				Group:       "quantity",
				Result:      "Fail",
				Severity:    "MEDIUM",
				Calculation: &rtypes.RuleCalculation{Field: FieldGRExceedsPO, Actual: 120.0, Expected: 100.0},
			}},
		}},
	}

	events := NewDeriver("", 0).DeriveTimeline(v)
	var failed *AuditEvent
	for i := range events {
		if events[i].Action == ActionRuleFailed {
			failed = &events[i]
		}
	}
	require.NotNil(t, failed)
	assert.Contains(t, failed.Message, "excess 20 unit")
	assert.Contains(t, failed.Message, "(SKU: SKU-9)")
	assert.Equal(t, SeverityWarn, failed.Severity)
	assert.Equal(t, StatusFlagged, failed.Status)
	assert.Equal(t, actorRuleEngine, failed.Actor)

	// items without their own timestamp inherit the run's
	assert.Equal(t, ParseTimestamp(v.CreatedAt), failed.Timestamp)

	entries := map[string]ContextEntry{}
	for _, c := range failed.Context {
		entries[c.Key] = c
	}
	assert.True(t, entries["GR"].Highlight)
	assert.Equal(t, "120", entries["GR"].Value)
	assert.False(t, entries["PO"].Highlight)
	assert.False(t, entries["INV"].Highlight)
}

func TestDeriveTimeline_TiesListRunThenItemsThenRules(t *testing.T) {
	v := rtypes.DecisionRunView{
		CaseID:    "C1",
		RunID:     "R1",
		CreatedAt: "2026-01-10T10:00:00Z",
		Items: []rtypes.DecisionRunItem{
			{GroupID: "G1", Rules: []rtypes.DecisionRunRule{{RuleID: "R-1", Result: "FAIL"}}},
			{GroupID: "G2", Rules: []rtypes.DecisionRunRule{{RuleID: "R-2", Result: "PASS"}}},
		},
	}

	events := NewDeriver("", 0).DeriveTimeline(v)

	got := make([]string, 0, len(events))
	for _, e := range events {
		got = append(got, e.Action+" "+e.GroupID+" "+e.RuleID)
	}
	assert.Equal(t, []string{
		ActionRunCreated + "  ",
		ActionItemEvaluated + " G1 ",
		ActionItemEvaluated + " G2 ",
		ActionRuleFailed + " G1 R-1",
		ActionRulePassed + " G2 R-2",
	}, got)
}

func TestDeriveTimeline_DropsBlankContext(t *testing.T) {
	v := rtypes.DecisionRunView{
		RunID: "R1",
		Items: []rtypes.DecisionRunItem{{
			GroupID: "G1",
			Item:    rtypes.DecisionRunItemIdentity{SKU: "null", Name: "  "},
			Rules:   []rtypes.DecisionRunRule{{RuleID: "P1", Result: "PASS"}},
		}},
	}
	events := NewDeriver("", 0).DeriveTimeline(v)
	require.Len(t, events, 3)
	for _, e := range events {
		for _, c := range e.Context {
			assert.False(t, blank(c.Value), "%s carries blank value in %s", e.Action, c.Key)
		}
	}
	// passed rule without messages
	for _, e := range events {
		if e.Action == ActionRulePassed {
			assert.Equal(t, "Rule P1 passed", e.Message)
			assert.Equal(t, SeverityInfo, e.Severity)
		}
	}
}

func TestDeriveTimeline_EmptyView(t *testing.T) {
	events := NewDeriver("", 0).DeriveTimeline(rtypes.DecisionRunView{})
	require.Len(t, events, 1)
	assert.Equal(t, ActionRunCreated, events[0].Action)
	assert.Equal(t, "Decision run — created, 0 item(s)", events[0].Message)
}

func TestEventID_StableAndDistinct(t *testing.T) {
	ts := time.Date(2026, 3, 1, 8, 0, 5, 0, time.UTC)
	k := EventKey{Action: ActionRuleFailed, CaseID: "CASE-1", RunID: "RUN-1", GroupID: "G-QTY", RuleID: "QTY-GR-PO", Timestamp: ts}

	assert.Equal(t, "evt_1c024070ca96eaeda06e7e919cff80e3", EventID(k))
	assert.Equal(t, EventID(k), EventID(k))

	other := k
	other.Ordinal = 1
	assert.NotEqual(t, EventID(k), EventID(other))

	local := k
	local.Timestamp = ts.In(time.FixedZone("ICT", 7*3600))
	assert.Equal(t, EventID(k), EventID(local))
}
