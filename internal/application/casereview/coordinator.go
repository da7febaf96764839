package casereview

import (
	"context"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"

	"github.com/turtacn/CaseLens/internal/domain/review"
	"github.com/turtacn/CaseLens/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/CaseLens/pkg/errors"
	rtypes "github.com/turtacn/CaseLens/pkg/types/review"
)

// Coordinator holds the review state of one session: the tracked case, its
// ranked groups, the active group and the why/evidence caches keyed by group
// id. State is guarded by a mutex; network calls run outside the lock and
// their results are discarded when the tracked case changed meanwhile.
type Coordinator struct {
	backend    Backend
	normalizer review.Normalizer
	explainer  review.Explainer
	logger     logging.Logger
	metrics    Metrics

	sf singleflight.Group

	mu            sync.Mutex
	caseID        string
	runID         string
	groups        []review.Group
	groupsLoaded  bool
	activeGroupID string
	why           map[string]*rtypes.GroupRulesResponse
	evidence      map[string]*rtypes.GroupEvidenceResponse
}

// CoordinatorOption configures a Coordinator.
type CoordinatorOption func(*Coordinator)

// WithMetrics sets the metrics sink.
func WithMetrics(m Metrics) CoordinatorOption {
	return func(c *Coordinator) {
		if m != nil {
			c.metrics = m
		}
	}
}

// WithNormalizer replaces the default normalizer; the explainer follows its
// currency.
func WithNormalizer(n review.Normalizer) CoordinatorOption {
	return func(c *Coordinator) {
		c.normalizer = n
		c.explainer = review.Explainer{Currency: n.Currency}
	}
}

// NewCoordinator returns an empty Coordinator.
func NewCoordinator(backend Backend, logger logging.Logger, opts ...CoordinatorOption) *Coordinator {
	if logger == nil {
		logger = logging.NewNopLogger()
	}
	c := &Coordinator{
		backend:  backend,
		logger:   logger.Named("coordinator"),
		metrics:  NopMetrics(),
		why:      map[string]*rtypes.GroupRulesResponse{},
		evidence: map[string]*rtypes.GroupEvidenceResponse{},
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

func (c *Coordinator) resetLocked(caseID string) {
	c.caseID = caseID
	c.runID = ""
	c.groups = nil
	c.groupsLoaded = false
	c.activeGroupID = ""
	c.why = map[string]*rtypes.GroupRulesResponse{}
	c.evidence = map[string]*rtypes.GroupEvidenceResponse{}
}

func (c *Coordinator) tracking(caseID string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.caseID == caseID
}

func (c *Coordinator) stale(kind, caseID string, fields ...logging.Field) {
	c.metrics.IncStaleDropped(kind)
	c.logger.Debug("dropping stale response", append(fields, logging.String("kind", kind), logging.CaseID(caseID))...)
}

// LoadCase switches to caseID and loads its groups, then selects the default
// group. Switching cases drops every cache. Loading the already loaded case
// is a no-op. Backend failures are logged and leave the case empty.
func (c *Coordinator) LoadCase(ctx context.Context, caseID string) error {
	def, err := c.loadGroups(ctx, caseID)
	if err != nil || def == "" {
		return err
	}
	return c.SelectGroup(ctx, def)
}

// LoadGroups is LoadCase without the default selection. No group is active
// afterwards and no rules or evidence are fetched.
func (c *Coordinator) LoadGroups(ctx context.Context, caseID string) error {
	_, err := c.loadGroups(ctx, caseID)
	return err
}

// loadGroups returns the default group id when groups were freshly loaded.
func (c *Coordinator) loadGroups(ctx context.Context, caseID string) (string, error) {
	caseID = strings.TrimSpace(caseID)
	if caseID == "" {
		return "", errors.New(errors.ErrCodeCaseIDRequired, "case id is required")
	}

	c.mu.Lock()
	if c.caseID != caseID {
		c.resetLocked(caseID)
	} else if c.groupsLoaded {
		c.mu.Unlock()
		return "", nil
	}
	c.mu.Unlock()

	start := time.Now()
	resp, err := c.backend.GetCaseGroups(ctx, caseID)
	c.metrics.ObserveFetch("case_groups", time.Since(start), err)
	if err != nil {
		c.logger.Warn("failed to load case groups", logging.CaseID(caseID), logging.Err(err))
		resp = &rtypes.CaseGroupsResponse{}
	}

	payload := review.DecodeGroups(*resp)
	var (
		groups   []review.Group
		why      map[string]*rtypes.GroupRulesResponse
		evidence map[string]*rtypes.GroupEvidenceResponse
	)
	if payload.Shape != review.ShapeProcurement && payload.RunID != "" {
		groups, why, evidence = c.loadFinance(ctx, caseID, payload.RunID)
	} else {
		groups = c.normalizer.NormalizePayload(payload)
	}
	review.SortByRisk(groups)

	c.mu.Lock()
	if c.caseID != caseID {
		c.mu.Unlock()
		c.stale("groups", caseID)
		return "", nil
	}
	c.runID = payload.RunID
	c.groups = groups
	c.groupsLoaded = true
	for gid, w := range why {
		c.why[gid] = w
	}
	for gid, e := range evidence {
		c.evidence[gid] = e
	}
	def := review.DefaultGroupID(groups)
	c.mu.Unlock()

	c.logger.Info("case loaded",
		logging.CaseID(caseID),
		logging.RunID(payload.RunID),
		logging.String("shape", payload.Shape.String()),
		logging.Int("groups", len(groups)),
	)
	return def, nil
}

// loadFinance fetches the decision results of runID, keeps one per group and
// prefills why (with synthesized explanations) and empty evidence.
func (c *Coordinator) loadFinance(ctx context.Context, caseID, runID string) ([]review.Group, map[string]*rtypes.GroupRulesResponse, map[string]*rtypes.GroupEvidenceResponse) {
	start := time.Now()
	resp, err := c.backend.GetDecisionResults(ctx, caseID, runID)
	c.metrics.ObserveFetch("decision_results", time.Since(start), err)
	if err != nil {
		c.logger.Warn("failed to load decision results", logging.CaseID(caseID), logging.RunID(runID), logging.Err(err))
		return nil, nil, nil
	}

	selected := review.SelectRunResults(resp.Results, runID)
	groups := make([]review.Group, 0, len(selected))
	why := make(map[string]*rtypes.GroupRulesResponse, len(selected))
	evidence := make(map[string]*rtypes.GroupEvidenceResponse, len(selected))
	for _, r := range selected {
		g := c.normalizer.MapFinance(r)
		groups = append(groups, g)
		why[g.GroupID] = c.financeWhy(r, g)
		evidence[g.GroupID] = &rtypes.GroupEvidenceResponse{
			GroupID:   g.GroupID,
			Documents: []rtypes.EvidenceDocument{},
			Evidences: []rtypes.EvidenceItem{},
		}
	}
	return groups, why, evidence
}

func (c *Coordinator) financeWhy(r rtypes.FinanceDecisionResult, g review.Group) *rtypes.GroupRulesResponse {
	tr := rtypes.ParseFinanceTrace(r.Trace)
	ev := review.EvidenceFromTrace(tr)
	out := &rtypes.GroupRulesResponse{
		GroupID:    g.GroupID,
		Decision:   g.Decision,
		RiskLevel:  g.RiskLevel,
		Confidence: r.Confidence,
		Rules:      make([]rtypes.GroupRule, 0, len(tr.Rules)),
	}
	for _, rule := range tr.Rules {
		out.Rules = append(out.Rules, rtypes.GroupRule{
			RuleID:      rule.RuleID,
			Severity:    rule.Severity,
			Result:      rule.Result,
			Explanation: c.explainer.Explain(review.RuleRefFromTrace(rule), ev),
			Calculation: rule.Calculation,
			ExecMessage: rule.ExecMessage,
		})
	}
	return out
}

// SelectGroup makes groupID active and loads its why and evidence
// concurrently. It returns once both loads finished. Selecting the active
// group again is a no-op once anything about it is cached.
func (c *Coordinator) SelectGroup(ctx context.Context, groupID string) error {
	groupID = strings.TrimSpace(groupID)
	if groupID == "" {
		return errors.New(errors.ErrCodeGroupIDRequired, "group id is required")
	}

	c.mu.Lock()
	_, hasWhy := c.why[groupID]
	_, hasEvidence := c.evidence[groupID]
	if c.activeGroupID == groupID && (hasWhy || hasEvidence) {
		c.mu.Unlock()
		return nil
	}
	c.activeGroupID = groupID
	c.mu.Unlock()

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return c.LoadWhy(gctx, groupID) })
	g.Go(func() error { return c.LoadEvidence(gctx, groupID) })
	return g.Wait()
}

// LoadWhy fetches the rule results of groupID unless cached. Concurrent
// calls for the same group share one request. A failed fetch is logged and
// leaves the cache empty so a later call retries.
func (c *Coordinator) LoadWhy(ctx context.Context, groupID string) error {
	c.mu.Lock()
	caseID := c.caseID
	_, cached := c.why[groupID]
	c.mu.Unlock()
	if cached {
		return nil
	}

	_, err, _ := c.sf.Do("why\x00"+caseID+"\x00"+groupID, func() (interface{}, error) {
		start := time.Now()
		resp, err := c.backend.GetGroupRules(ctx, groupID)
		c.metrics.ObserveFetch("group_rules", time.Since(start), err)
		if err != nil {
			c.logger.Warn("failed to load group rules", logging.CaseID(caseID), logging.GroupID(groupID), logging.Err(err))
			return nil, ctx.Err()
		}
		if resp == nil {
			resp = &rtypes.GroupRulesResponse{GroupID: groupID}
		}
		c.explainRules(resp)

		c.mu.Lock()
		defer c.mu.Unlock()
		if c.caseID != caseID {
			c.stale("why", caseID, logging.GroupID(groupID))
			return nil, nil
		}
		if _, ok := c.why[groupID]; !ok {
			c.why[groupID] = resp
		}
		return nil, nil
	})
	return err
}

// LoadEvidence is LoadWhy for the evidence of groupID.
func (c *Coordinator) LoadEvidence(ctx context.Context, groupID string) error {
	c.mu.Lock()
	caseID := c.caseID
	_, cached := c.evidence[groupID]
	c.mu.Unlock()
	if cached {
		return nil
	}

	_, err, _ := c.sf.Do("evidence\x00"+caseID+"\x00"+groupID, func() (interface{}, error) {
		start := time.Now()
		resp, err := c.backend.GetGroupEvidence(ctx, groupID)
		c.metrics.ObserveFetch("group_evidence", time.Since(start), err)
		if err != nil {
			c.logger.Warn("failed to load group evidence", logging.CaseID(caseID), logging.GroupID(groupID), logging.Err(err))
			return nil, ctx.Err()
		}
		if resp == nil {
			resp = &rtypes.GroupEvidenceResponse{GroupID: groupID}
		}

		c.mu.Lock()
		defer c.mu.Unlock()
		if c.caseID != caseID {
			c.stale("evidence", caseID, logging.GroupID(groupID))
			return nil, nil
		}
		if _, ok := c.evidence[groupID]; !ok {
			c.evidence[groupID] = resp
		}
		return nil, nil
	})
	return err
}

// explainRules fills rules that arrive without an explanation.
func (c *Coordinator) explainRules(resp *rtypes.GroupRulesResponse) {
	for i := range resp.Rules {
		r := &resp.Rules[i]
		if strings.TrimSpace(r.Explanation) != "" {
			continue
		}
		ref := review.RuleRef{Exec: r.ExecMessage}
		if strings.TrimSpace(ref.Exec) == "" {
			ref.Exec = r.AuditMessage
		}
		if r.Calculation != nil {
			ref.Field = r.Calculation.Field
		}
		r.Explanation = c.explainer.Explain(ref, review.Evidence{})
	}
}

// ─────────────────────────────────────────────────────────────────────────────
// Views
// ─────────────────────────────────────────────────────────────────────────────

// CaseID returns the tracked case.
func (c *Coordinator) CaseID() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.caseID
}

// RunID returns the run id the groups were loaded for, if any.
func (c *Coordinator) RunID() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.runID
}

// Groups returns the ranked groups of the tracked case.
func (c *Coordinator) Groups() []review.Group {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]review.Group(nil), c.groups...)
}

// Group looks a loaded group up by id.
func (c *Coordinator) Group(groupID string) (review.Group, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.groupLocked(groupID)
}

func (c *Coordinator) groupLocked(groupID string) (review.Group, bool) {
	for _, g := range c.groups {
		if g.GroupID == groupID {
			return g, true
		}
	}
	return review.Group{}, false
}

// ActiveGroupID returns the selected group id.
func (c *Coordinator) ActiveGroupID() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.activeGroupID
}

// ActiveGroup returns the selected group.
func (c *Coordinator) ActiveGroup() (review.Group, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.activeGroupID == "" {
		return review.Group{}, false
	}
	return c.groupLocked(c.activeGroupID)
}

// ActiveWhy returns the cached rule results of the selected group, or nil.
func (c *Coordinator) ActiveWhy() *rtypes.GroupRulesResponse {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.why[c.activeGroupID]
}

// ActiveRules returns the rules of ActiveWhy.
func (c *Coordinator) ActiveRules() []rtypes.GroupRule {
	if w := c.ActiveWhy(); w != nil {
		return w.Rules
	}
	return nil
}

// ActiveEvidence returns the cached evidence of the selected group, or nil.
func (c *Coordinator) ActiveEvidence() *rtypes.GroupEvidenceResponse {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.evidence[c.activeGroupID]
}

// ActiveDocuments returns the documents of ActiveEvidence.
func (c *Coordinator) ActiveDocuments() []rtypes.EvidenceDocument {
	if e := c.ActiveEvidence(); e != nil {
		return e.Documents
	}
	return nil
}

// ActiveEvidences returns the evidence items of ActiveEvidence.
func (c *Coordinator) ActiveEvidences() []rtypes.EvidenceItem {
	if e := c.ActiveEvidence(); e != nil {
		return e.Evidences
	}
	return nil
}
