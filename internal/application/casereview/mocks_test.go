package casereview

import (
	"context"
	"encoding/json"
	"strings"
	"sync"
	"time"

	"github.com/turtacn/CaseLens/internal/domain/review"
	"github.com/turtacn/CaseLens/pkg/errors"
	rtypes "github.com/turtacn/CaseLens/pkg/types/review"
)

// ---------------------------------------------------------------------------
// Mock implementations
// ---------------------------------------------------------------------------

type mockBackend struct {
	getCaseFn          func(ctx context.Context, caseID string) (*rtypes.CaseHeader, error)
	getSummaryFn       func(ctx context.Context, caseID string) (*rtypes.DecisionSummary, error)
	getGroupsFn        func(ctx context.Context, caseID string) (*rtypes.CaseGroupsResponse, error)
	getViewFn          func(ctx context.Context, caseID string) (*rtypes.DecisionRunView, error)
	getResultsFn       func(ctx context.Context, caseID, runID string) (*rtypes.FinanceDecisionResultsResponse, error)
	getRulesFn         func(ctx context.Context, groupID string) (*rtypes.GroupRulesResponse, error)
	getEvidenceFn      func(ctx context.Context, groupID string) (*rtypes.GroupEvidenceResponse, error)
	getPageFn          func(ctx context.Context, documentID string, page int) (*rtypes.DocumentPage, error)
	getAuditTimelineFn func(ctx context.Context, caseID string) (*rtypes.AuditTimelineResponse, error)

	mu    sync.Mutex
	calls map[string]int
}

func newMockBackend() *mockBackend {
	return &mockBackend{calls: map[string]int{}}
}

func (m *mockBackend) record(name string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls[name]++
}

func (m *mockBackend) count(name string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls[name]
}

func (m *mockBackend) GetCase(ctx context.Context, caseID string) (*rtypes.CaseHeader, error) {
	m.record("case")
	if m.getCaseFn != nil {
		return m.getCaseFn(ctx, caseID)
	}
	return &rtypes.CaseHeader{CaseID: caseID}, nil
}

func (m *mockBackend) GetDecisionSummary(ctx context.Context, caseID string) (*rtypes.DecisionSummary, error) {
	m.record("summary")
	if m.getSummaryFn != nil {
		return m.getSummaryFn(ctx, caseID)
	}
	return &rtypes.DecisionSummary{CaseID: caseID}, nil
}

func (m *mockBackend) GetCaseGroups(ctx context.Context, caseID string) (*rtypes.CaseGroupsResponse, error) {
	m.record("groups")
	if m.getGroupsFn != nil {
		return m.getGroupsFn(ctx, caseID)
	}
	return &rtypes.CaseGroupsResponse{CaseID: caseID}, nil
}

func (m *mockBackend) GetCaseView(ctx context.Context, caseID string) (*rtypes.DecisionRunView, error) {
	m.record("view")
	if m.getViewFn != nil {
		return m.getViewFn(ctx, caseID)
	}
	return &rtypes.DecisionRunView{CaseID: caseID}, nil
}

func (m *mockBackend) GetDecisionResults(ctx context.Context, caseID, runID string) (*rtypes.FinanceDecisionResultsResponse, error) {
	m.record("results")
	if m.getResultsFn != nil {
		return m.getResultsFn(ctx, caseID, runID)
	}
	return &rtypes.FinanceDecisionResultsResponse{CaseID: caseID, RunID: runID}, nil
}

func (m *mockBackend) GetGroupRules(ctx context.Context, groupID string) (*rtypes.GroupRulesResponse, error) {
	m.record("rules")
	if m.getRulesFn != nil {
		return m.getRulesFn(ctx, groupID)
	}
	return &rtypes.GroupRulesResponse{GroupID: groupID}, nil
}

func (m *mockBackend) GetGroupEvidence(ctx context.Context, groupID string) (*rtypes.GroupEvidenceResponse, error) {
	m.record("evidence")
	if m.getEvidenceFn != nil {
		return m.getEvidenceFn(ctx, groupID)
	}
	return &rtypes.GroupEvidenceResponse{GroupID: groupID}, nil
}

func (m *mockBackend) GetDocumentPage(ctx context.Context, documentID string, page int) (*rtypes.DocumentPage, error) {
	m.record("page")
	if m.getPageFn != nil {
		return m.getPageFn(ctx, documentID, page)
	}
	return nil, errors.New(errors.ErrCodeDocumentNotFound, "no page")
}

func (m *mockBackend) GetAuditTimeline(ctx context.Context, caseID string) (*rtypes.AuditTimelineResponse, error) {
	m.record("audit")
	if m.getAuditTimelineFn != nil {
		return m.getAuditTimelineFn(ctx, caseID)
	}
	return &rtypes.AuditTimelineResponse{CaseID: caseID}, nil
}

type mockPublisher struct {
	mu     sync.Mutex
	err    error
	cases  []string
	events []review.AuditEvent
}

func (m *mockPublisher) PublishAuditEvents(_ context.Context, caseID string, events []review.AuditEvent) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	m.cases = append(m.cases, caseID)
	m.events = append(m.events, events...)
	return nil
}

type mockIngester struct {
	fn   func(ctx context.Context, req rtypes.IngestRequest) (*rtypes.IngestResponse, error)
	last rtypes.IngestRequest
}

func (m *mockIngester) IngestCase(ctx context.Context, req rtypes.IngestRequest) (*rtypes.IngestResponse, error) {
	m.last = req
	if m.fn != nil {
		return m.fn(ctx, req)
	}
	return &rtypes.IngestResponse{CaseID: req.CaseID, Status: "accepted"}, nil
}

type mockNotifier struct {
	err     error
	updates []string
}

func (m *mockNotifier) NotifyCaseUpdated(_ context.Context, caseID, domain string) error {
	m.updates = append(m.updates, caseID+"/"+domain)
	return m.err
}

type mockResolver struct {
	url string
	err error
}

func (m *mockResolver) ResolvePageURL(_ context.Context, key string) (string, error) {
	if m.err != nil {
		return "", m.err
	}
	return m.url + key, nil
}

// memCache is an in-memory CachePort storing JSON.
type memCache struct {
	mu   sync.Mutex
	data map[string][]byte
	ttls map[string]time.Duration
}

func newMemCache() *memCache {
	return &memCache{data: map[string][]byte{}, ttls: map[string]time.Duration{}}
}

func (c *memCache) Get(_ context.Context, key string, dest interface{}) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	b, ok := c.data[key]
	if !ok {
		return errors.New(errors.ErrCodeNotFound, "cache miss")
	}
	return json.Unmarshal(b, dest)
}

func (c *memCache) Set(_ context.Context, key string, value interface{}, ttl time.Duration) error {
	b, err := json.Marshal(value)
	if err != nil {
		return err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.data[key] = b
	c.ttls[key] = ttl
	return nil
}

func (c *memCache) Delete(_ context.Context, keys ...string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, k := range keys {
		delete(c.data, k)
	}
	return nil
}

func (c *memCache) DeleteByPrefix(_ context.Context, prefix string) (int64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	var n int64
	for k := range c.data {
		if strings.HasPrefix(k, prefix) {
			delete(c.data, k)
			n++
		}
	}
	return n, nil
}

// keyOnlyCache hides memCache's prefix deletion.
type keyOnlyCache struct{ mem *memCache }

func (c keyOnlyCache) Get(ctx context.Context, key string, dest interface{}) error {
	return c.mem.Get(ctx, key, dest)
}

func (c keyOnlyCache) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	return c.mem.Set(ctx, key, value, ttl)
}

func (c keyOnlyCache) Delete(ctx context.Context, keys ...string) error {
	return c.mem.Delete(ctx, keys...)
}

func (c *memCache) has(key string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, ok := c.data[key]
	return ok
}

type recordingMetrics struct {
	mu      sync.Mutex
	fetches map[string]int
	hits    map[string]int
	misses  map[string]int
	stale   map[string]int
}

func newRecordingMetrics() *recordingMetrics {
	return &recordingMetrics{
		fetches: map[string]int{},
		hits:    map[string]int{},
		misses:  map[string]int{},
		stale:   map[string]int{},
	}
}

func (r *recordingMetrics) ObserveFetch(endpoint string, _ time.Duration, _ error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.fetches[endpoint]++
}

func (r *recordingMetrics) ObserveDerivation(string, int, time.Duration) {}

func (r *recordingMetrics) ObserveCache(cache string, hit bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if hit {
		r.hits[cache]++
	} else {
		r.misses[cache]++
	}
}

func (r *recordingMetrics) IncStaleDropped(kind string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.stale[kind]++
}

func (r *recordingMetrics) staleCount(kind string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.stale[kind]
}

// ---------------------------------------------------------------------------
// Fixtures
// ---------------------------------------------------------------------------

func rawGroups(elems ...string) []json.RawMessage {
	out := make([]json.RawMessage, 0, len(elems))
	for _, e := range elems {
		out = append(out, json.RawMessage(e))
	}
	return out
}

func procurementGroups(caseID string) *rtypes.CaseGroupsResponse {
	return &rtypes.CaseGroupsResponse{
		CaseID: caseID,
		Groups: rawGroups(
			`{"group_id":"G-LOW","risk_level":"LOW","decision":"PASS","sku":{"sku":"S-1","name":"Bolt","quantity":2,"unit_price":{"value":5,"currency":"USD"}}}`,
			`{"group_id":"G-HIGH","risk_level":"HIGH","decision":"REVIEW","sku":{"sku":"S-2","name":"Nut","quantity":4,"unit_price":{"value":3,"currency":"USD"}}}`,
			`{"group_id":"G-MED","risk_level":"MEDIUM","decision":"REVIEW","sku":{"sku":"S-3","name":"Washer","quantity":1,"unit_price":{"value":1,"currency":"USD"}}}`,
		),
	}
}

const financeTrace = `{
  "inputs": {"po_item": {"sku": "FIN-7", "quantity": 10, "unit_price": {"value": 100, "currency": "EUR"}}},
  "explainability": {
    "sku": "FIN-7",
    "qty": {"po": 10, "gr": 10, "inv": 12, "over_inv_qty": 2},
    "price": {"po_unit_price": 100, "inv_unit_price": 100}
  },
  "rules": [
    {"rule_id": "QTY-INV-GR", "group": "QUANTITY", "severity": "HIGH", "result": "FAIL", "calculation": {"field": "inv_exceeds_gr", "actual": 12, "expected": 10}},
    {"rule_id": "PRICE-OK", "group": "PRICE", "severity": "LOW", "result": "PASS", "exec_message": "Price matches PO"}
  ]
}`
