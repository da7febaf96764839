package review

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	rtypes "github.com/turtacn/CaseLens/pkg/types/review"
)

func feedFixture() []rtypes.AuditTimelineEvent {
	return []rtypes.AuditTimelineEvent{
		{ID: "1", Type: "CASE_INGESTED", Severity: "INFO", Actor: "alice", RunID: "R1", Timestamp: "2026-02-01T09:00:00Z"},
		{ID: "2", Type: "RULE_FAILED", Title: "GR exceeds PO", Severity: "error", RunID: "R2", GroupID: "G1", Timestamp: "2026-02-02T09:00:00Z",
			Meta: map[string]any{"rule_id": "QTY-1", "decision": "REVIEW"}},
		{ID: "3", Type: "RULE_FAILED", Severity: "CRITICAL", Actor: "bob", Timestamp: "2026-02-02T08:00:00Z"},
		{ID: "4", Type: "DECISION_MADE", Severity: "WARN", Actor: "alice", RunID: "R2", Timestamp: "2026-02-01T23:30:00Z"},
	}
}

func buildFeed(t *testing.T) []FeedEvent {
	t.Helper()
	return FeedBuilder{Location: time.UTC}.Build(feedFixture())
}

func feedIDs(events []FeedEvent) []string {
	ids := make([]string, 0, len(events))
	for _, e := range events {
		ids = append(ids, e.ID)
	}
	return ids
}

func TestFeedBuilder_Build(t *testing.T) {
	events := buildFeed(t)
	require.Len(t, events, 4)
	assert.Equal(t, []string{"2", "3", "4", "1"}, feedIDs(events))

	e := events[0]
	assert.Equal(t, "GR exceeds PO", e.TitleText)
	assert.Equal(t, "run: R2 · group: G1", e.SubtitleText)
	assert.Equal(t, CategoryHighAttention, e.Category)
	assert.Equal(t, "2026-02-02", e.DateKey)
	assert.Contains(t, e.MetaJSONPretty, "\n  \"decision\": \"REVIEW\"")
	assert.False(t, e.MetaIsLarge)

	assert.Equal(t, "RULE_FAILED", events[1].TitleText)
	assert.Equal(t, "bob", events[1].SubtitleText)
	assert.Equal(t, "{}", events[1].MetaJSONPretty)
	assert.Equal(t, CategoryDecision, events[2].Category)
}

func TestFeedBuilder_LocalDateKey(t *testing.T) {
	bangkok := time.FixedZone("ICT", 7*3600)
	events := FeedBuilder{Location: bangkok}.Build(feedFixture())
	for _, e := range events {
		if e.ID == "4" {
			assert.Equal(t, "2026-02-02", e.DateKey)
		}
	}
}

func TestFeedFilter_Apply(t *testing.T) {
	events := buildFeed(t)

	tests := []struct {
		name   string
		filter FeedFilter
		want   []string
	}{
		{name: "all", filter: FeedFilter{Severity: FilterAll, Type: FilterAll}, want: []string{"2", "3", "4", "1"}},
		{name: "severity_case_insensitive", filter: FeedFilter{Severity: "ERROR"}, want: []string{"2"}},
		{name: "type", filter: FeedFilter{Type: "RULE_FAILED"}, want: []string{"2", "3"}},
		{name: "missing_actor_is_system", filter: FeedFilter{Actor: SystemActor}, want: []string{"2"}},
		{name: "missing_run_is_dash", filter: FeedFilter{Run: NoRun}, want: []string{"3"}},
		{name: "query_matches_meta", filter: FeedFilter{Query: "qty-1"}, want: []string{"2"}},
		{name: "query_matches_actor", filter: FeedFilter{Query: " ALICE "}, want: []string{"4", "1"}},
		{name: "combined", filter: FeedFilter{Actor: "alice", Run: "R2"}, want: []string{"4"}},
		{name: "no_match", filter: FeedFilter{Query: "nothing-here"}, want: []string{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, feedIDs(tt.filter.Apply(events)))
		})
	}
}

func TestOptionsAndKPI(t *testing.T) {
	events := buildFeed(t)

	opts := Options(events)
	assert.Equal(t, []string{FilterAll, "CASE_INGESTED", "DECISION_MADE", "RULE_FAILED"}, opts.Types)
	assert.Equal(t, []string{FilterAll, "SYSTEM", "alice", "bob"}, opts.Actors)
	assert.Equal(t, []string{FilterAll, "R1", "R2"}, opts.Runs)

	assert.Equal(t, FeedKPI{Total: 4, Critical: 1, Error: 1, Warn: 1, Info: 1}, KPI(events))
	assert.Equal(t, FeedKPI{}, KPI(nil))
}

func TestGroupByDate(t *testing.T) {
	groups := GroupByDate(buildFeed(t))
	require.Len(t, groups, 2)
	assert.Equal(t, "2026-02-02", groups[0].DateKey)
	assert.Equal(t, []string{"2", "3"}, feedIDs(groups[0].Events))
	assert.Equal(t, "2026-02-01", groups[1].DateKey)
	assert.Equal(t, []string{"4", "1"}, feedIDs(groups[1].Events))
}

func TestToFeedEvents(t *testing.T) {
	derived := NewDeriver("", 0).DeriveTimeline(loadView(t))
	feed := ToFeedEvents(derived)
	require.Len(t, feed, len(derived))

	f := feed[1]
	assert.Equal(t, derived[1].ID, f.ID)
	assert.Equal(t, ActionRuleFailed, f.Type)
	assert.Equal(t, SeverityError, f.Severity)
	assert.Equal(t, "Rule Engine", f.Actor)
	assert.Equal(t, "2026-03-01T08:00:05Z", f.Timestamp)
	assert.Equal(t, StatusFlagged, f.Meta["status"])
	assert.Equal(t, "QTY-GR-PO", f.Meta["rule_id"])

	built := FeedBuilder{Location: time.UTC}.Build(feed)
	assert.Equal(t, feedIDs(built)[0], derived[0].ID)
}
