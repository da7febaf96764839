package review

import (
	"encoding/json"
	"sort"
	"strings"
	"time"

	rtypes "github.com/turtacn/CaseLens/pkg/types/review"
)

// FilterAll disables a feed filter.
const FilterAll = "ALL"

// Placeholders used when a feed event lacks an actor or a run.
const (
	SystemActor = "SYSTEM"
	NoRun       = "-"
)

// FeedEvent is a prebuilt audit event enriched for display.
type FeedEvent struct {
	rtypes.AuditTimelineEvent

	Time           time.Time `json:"-"`
	DateKey        string    `json:"date_key"`
	Category       Category  `json:"category"`
	Icon           string    `json:"icon"`
	TitleText      string    `json:"title_text"`
	SubtitleText   string    `json:"subtitle_text"`
	MetaKV         []MetaKV  `json:"meta_kv,omitempty"`
	MetaIsLarge    bool      `json:"meta_is_large"`
	MetaJSONPretty string    `json:"meta_json_pretty"`
}

// FeedFilter selects feed events. Empty fields behave like FilterAll.
type FeedFilter struct {
	Query    string
	Severity string
	Type     string
	Actor    string
	Run      string
}

// FeedOptions lists the selectable values per filter, FilterAll first.
type FeedOptions struct {
	Types  []string `json:"types"`
	Actors []string `json:"actors"`
	Runs   []string `json:"runs"`
}

// FeedKPI counts a filtered feed by severity. Info is whatever is not
// critical, error or warn.
type FeedKPI struct {
	Total    int `json:"total"`
	Critical int `json:"critical"`
	Error    int `json:"error"`
	Warn     int `json:"warn"`
	Info     int `json:"info"`
}

// DateGroup is the events of one local calendar day.
type DateGroup struct {
	DateKey string      `json:"date_key"`
	Events  []FeedEvent `json:"events"`
}

// FeedBuilder enriches raw feed events.
type FeedBuilder struct {
	Location       *time.Location
	KVCap          int
	LargeThreshold int
}

// Build enriches events and returns them newest first.
func (b FeedBuilder) Build(events []rtypes.AuditTimelineEvent) []FeedEvent {
	loc := b.Location
	if loc == nil {
		loc = time.Local
	}
	out := make([]FeedEvent, 0, len(events))
	for _, e := range events {
		ts := ParseTimestamp(e.Timestamp)
		cls := Classify(e.Type, e.Severity)
		fe := FeedEvent{
			AuditTimelineEvent: e,
			Time:               ts,
			Category:           cls.Category,
			Icon:               cls.Icon,
			TitleText:          firstNonEmpty(e.Title, e.Type),
			SubtitleText:       subtitle(e),
			MetaKV:             Summarize(e.Meta, e.RunID, e.GroupID, b.KVCap),
			MetaIsLarge:        IsMetaLarge(e.Meta, b.LargeThreshold),
			MetaJSONPretty:     prettyJSON(e.Meta),
		}
		if !ts.IsZero() {
			fe.DateKey = ts.In(loc).Format("2006-01-02")
		}
		out = append(out, fe)
	}
	sortNewestFirst(out)
	return out
}

func subtitle(e rtypes.AuditTimelineEvent) string {
	var bits []string
	if e.RunID != "" {
		bits = append(bits, "run: "+e.RunID)
	}
	if e.GroupID != "" {
		bits = append(bits, "group: "+e.GroupID)
	}
	if e.Actor != "" {
		bits = append(bits, e.Actor)
	}
	return strings.Join(bits, " · ")
}

func prettyJSON(meta map[string]any) string {
	if meta == nil {
		meta = map[string]any{}
	}
	b, err := json.MarshalIndent(meta, "", "  ")
	if err != nil {
		return StringValue(meta)
	}
	return string(b)
}

func sortNewestFirst(events []FeedEvent) {
	sort.SliceStable(events, func(i, j int) bool {
		return events[i].Time.After(events[j].Time)
	})
}

func active(v string) bool {
	v = strings.TrimSpace(v)
	return v != "" && v != FilterAll
}

func actorOf(e FeedEvent) string {
	return firstNonEmpty(e.Actor, SystemActor)
}

func runOf(e FeedEvent) string {
	return firstNonEmpty(e.RunID, NoRun)
}

// Matches reports whether e passes every active filter.
func (f FeedFilter) Matches(e FeedEvent) bool {
	if active(f.Severity) && !strings.EqualFold(e.Severity, strings.TrimSpace(f.Severity)) {
		return false
	}
	if active(f.Type) && e.Type != f.Type {
		return false
	}
	if active(f.Actor) && actorOf(e) != f.Actor {
		return false
	}
	if active(f.Run) && runOf(e) != f.Run {
		return false
	}

	q := strings.ToLower(strings.TrimSpace(f.Query))
	if q == "" {
		return true
	}
	meta, _ := json.Marshal(e.Meta)
	if e.Meta == nil {
		meta = []byte("{}")
	}
	var hay []string
	for _, s := range []string{e.Type, e.Title, e.Actor, e.Severity, e.RunID, e.GroupID, string(meta)} {
		if s != "" {
			hay = append(hay, s)
		}
	}
	return strings.Contains(strings.ToLower(strings.Join(hay, " ")), q)
}

// Apply returns the events passing f, newest first.
func (f FeedFilter) Apply(events []FeedEvent) []FeedEvent {
	out := make([]FeedEvent, 0, len(events))
	for _, e := range events {
		if f.Matches(e) {
			out = append(out, e)
		}
	}
	sortNewestFirst(out)
	return out
}

// Options collects the distinct types, actors and runs of events.
func Options(events []FeedEvent) FeedOptions {
	types := map[string]struct{}{}
	actors := map[string]struct{}{}
	runs := map[string]struct{}{}
	for _, e := range events {
		types[e.Type] = struct{}{}
		actors[actorOf(e)] = struct{}{}
		if e.RunID != "" {
			runs[e.RunID] = struct{}{}
		}
	}
	return FeedOptions{Types: withAll(types), Actors: withAll(actors), Runs: withAll(runs)}
}

func withAll(set map[string]struct{}) []string {
	vals := make([]string, 0, len(set))
	for v := range set {
		vals = append(vals, v)
	}
	sort.Strings(vals)
	return append([]string{FilterAll}, vals...)
}

// KPI counts events by severity.
func KPI(events []FeedEvent) FeedKPI {
	k := FeedKPI{Total: len(events)}
	for _, e := range events {
		switch strings.ToUpper(e.Severity) {
		case SeverityCritical:
			k.Critical++
		case SeverityError:
			k.Error++
		case SeverityWarn:
			k.Warn++
		}
	}
	k.Info = k.Total - k.Critical - k.Error - k.Warn
	return k
}

// GroupByDate buckets events by local date key, newest day first. Event
// order within a day is preserved.
func GroupByDate(events []FeedEvent) []DateGroup {
	index := map[string]int{}
	var groups []DateGroup
	for _, e := range events {
		i, ok := index[e.DateKey]
		if !ok {
			i = len(groups)
			index[e.DateKey] = i
			groups = append(groups, DateGroup{DateKey: e.DateKey})
		}
		groups[i].Events = append(groups[i].Events, e)
	}
	sort.SliceStable(groups, func(i, j int) bool {
		return groups[i].DateKey > groups[j].DateKey
	})
	return groups
}

// ToFeedEvents converts derived audit events into the feed's wire shape so
// both sources share one filter and display path.
func ToFeedEvents(events []AuditEvent) []rtypes.AuditTimelineEvent {
	out := make([]rtypes.AuditTimelineEvent, 0, len(events))
	for _, e := range events {
		meta := make(map[string]any, len(e.Metadata)+1)
		for k, v := range e.Metadata {
			meta[k] = v
		}
		if e.Status != "" {
			meta["status"] = e.Status
		}
		fe := rtypes.AuditTimelineEvent{
			ID:       e.ID,
			Type:     e.Action,
			Title:    e.Message,
			Severity: e.Severity,
			Actor:    e.Actor.Name,
			RunID:    e.RunID,
			GroupID:  e.GroupID,
			Meta:     meta,
		}
		if !e.Timestamp.IsZero() {
			fe.Timestamp = e.Timestamp.UTC().Format(time.RFC3339Nano)
		}
		out = append(out, fe)
	}
	return out
}
