package casereview

import (
	"context"
	"encoding/json"
	"time"

	"github.com/turtacn/CaseLens/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/CaseLens/pkg/errors"
	rtypes "github.com/turtacn/CaseLens/pkg/types/review"
)

// DefaultCacheTTL bounds how long backend responses are reused.
const DefaultCacheTTL = 5 * time.Minute

const cacheKeyPrefix = "caselens:"

// CachedBackend decorates a Backend with a response cache. Document pages
// are never cached because their URLs may expire. Group rules and evidence
// are keyed by group id only, so every fresh groups, view or results
// response also records its group ids in a per-case member index that
// InvalidateCase walks.
type CachedBackend struct {
	next    Backend
	cache   CachePort
	ttl     time.Duration
	logger  logging.Logger
	metrics Metrics
}

// NewCachedBackend wraps next. A non-positive ttl selects DefaultCacheTTL.
func NewCachedBackend(next Backend, cache CachePort, ttl time.Duration, logger logging.Logger, metrics Metrics) *CachedBackend {
	if ttl <= 0 {
		ttl = DefaultCacheTTL
	}
	if logger == nil {
		logger = logging.NewNopLogger()
	}
	if metrics == nil {
		metrics = NopMetrics()
	}
	return &CachedBackend{next: next, cache: cache, ttl: ttl, logger: logger.Named("cache"), metrics: metrics}
}

func caseKey(caseID, part string) string {
	return cacheKeyPrefix + "case:" + caseID + ":" + part
}

func groupKey(groupID, part string) string {
	return cacheKeyPrefix + "group:" + groupID + ":" + part
}

func cached[T any](ctx context.Context, b *CachedBackend, name, key string, load func(context.Context) (*T, error)) (*T, error) {
	var v T
	err := b.cache.Get(ctx, key, &v)
	if err == nil {
		b.metrics.ObserveCache(name, true)
		return &v, nil
	}
	if !errors.IsNotFound(err) {
		b.logger.Debug("cache read failed", logging.String("key", key), logging.Err(err))
	}
	b.metrics.ObserveCache(name, false)

	out, err := load(ctx)
	if err != nil {
		return nil, err
	}
	if out != nil {
		if err := b.cache.Set(ctx, key, out, b.ttl); err != nil {
			b.logger.Warn("cache write failed", logging.String("key", key), logging.Err(err))
		}
	}
	return out, nil
}

func (b *CachedBackend) GetCase(ctx context.Context, caseID string) (*rtypes.CaseHeader, error) {
	return cached(ctx, b, "case", caseKey(caseID, "header"), func(ctx context.Context) (*rtypes.CaseHeader, error) {
		return b.next.GetCase(ctx, caseID)
	})
}

func (b *CachedBackend) GetDecisionSummary(ctx context.Context, caseID string) (*rtypes.DecisionSummary, error) {
	return cached(ctx, b, "decision_summary", caseKey(caseID, "summary"), func(ctx context.Context) (*rtypes.DecisionSummary, error) {
		return b.next.GetDecisionSummary(ctx, caseID)
	})
}

func (b *CachedBackend) GetCaseGroups(ctx context.Context, caseID string) (*rtypes.CaseGroupsResponse, error) {
	return cached(ctx, b, "case_groups", caseKey(caseID, "groups"), func(ctx context.Context) (*rtypes.CaseGroupsResponse, error) {
		out, err := b.next.GetCaseGroups(ctx, caseID)
		if err == nil && out != nil {
			b.rememberGroups(ctx, caseID, rawGroupIDs(out.Groups))
		}
		return out, err
	})
}

func (b *CachedBackend) GetCaseView(ctx context.Context, caseID string) (*rtypes.DecisionRunView, error) {
	return cached(ctx, b, "case_view", caseKey(caseID, "view"), func(ctx context.Context) (*rtypes.DecisionRunView, error) {
		out, err := b.next.GetCaseView(ctx, caseID)
		if err == nil && out != nil {
			ids := make([]string, 0, len(out.Items))
			for _, it := range out.Items {
				ids = append(ids, it.GroupID)
			}
			b.rememberGroups(ctx, caseID, ids)
		}
		return out, err
	})
}

func (b *CachedBackend) GetDecisionResults(ctx context.Context, caseID, runID string) (*rtypes.FinanceDecisionResultsResponse, error) {
	load := func(ctx context.Context) (*rtypes.FinanceDecisionResultsResponse, error) {
		out, err := b.next.GetDecisionResults(ctx, caseID, runID)
		if err == nil && out != nil {
			ids := make([]string, 0, len(out.Results))
			for _, r := range out.Results {
				ids = append(ids, r.GroupID)
			}
			b.rememberGroups(ctx, caseID, ids)
		}
		return out, err
	}
	if runID == "" {
		return load(ctx)
	}
	return cached(ctx, b, "decision_results", caseKey(caseID, "results:"+runID), load)
}

func (b *CachedBackend) GetGroupRules(ctx context.Context, groupID string) (*rtypes.GroupRulesResponse, error) {
	return cached(ctx, b, "group_rules", groupKey(groupID, "rules"), func(ctx context.Context) (*rtypes.GroupRulesResponse, error) {
		return b.next.GetGroupRules(ctx, groupID)
	})
}

func (b *CachedBackend) GetGroupEvidence(ctx context.Context, groupID string) (*rtypes.GroupEvidenceResponse, error) {
	return cached(ctx, b, "group_evidence", groupKey(groupID, "evidence"), func(ctx context.Context) (*rtypes.GroupEvidenceResponse, error) {
		return b.next.GetGroupEvidence(ctx, groupID)
	})
}

func (b *CachedBackend) GetDocumentPage(ctx context.Context, documentID string, page int) (*rtypes.DocumentPage, error) {
	return b.next.GetDocumentPage(ctx, documentID, page)
}

func (b *CachedBackend) GetAuditTimeline(ctx context.Context, caseID string) (*rtypes.AuditTimelineResponse, error) {
	return cached(ctx, b, "audit_timeline", caseKey(caseID, "audit"), func(ctx context.Context) (*rtypes.AuditTimelineResponse, error) {
		return b.next.GetAuditTimeline(ctx, caseID)
	})
}

// rememberGroups merges ids into the member index of caseID. The index
// outlives the responses it was built from so that group entries written
// late in a response's lifetime are still found.
func (b *CachedBackend) rememberGroups(ctx context.Context, caseID string, ids []string) {
	known := b.members(ctx, caseID)
	seen := make(map[string]bool, len(known))
	for _, id := range known {
		seen[id] = true
	}
	added := false
	for _, id := range ids {
		if id == "" || seen[id] {
			continue
		}
		seen[id] = true
		known = append(known, id)
		added = true
	}
	if !added {
		return
	}
	if err := b.cache.Set(ctx, caseKey(caseID, "members"), known, 2*b.ttl); err != nil {
		b.logger.Warn("cache write failed", logging.String("key", caseKey(caseID, "members")), logging.Err(err))
	}
}

func (b *CachedBackend) members(ctx context.Context, caseID string) []string {
	var ids []string
	if err := b.cache.Get(ctx, caseKey(caseID, "members"), &ids); err != nil {
		if !errors.IsNotFound(err) {
			b.logger.Debug("cache read failed", logging.String("key", caseKey(caseID, "members")), logging.Err(err))
		}
		return nil
	}
	return ids
}

func rawGroupIDs(groups []json.RawMessage) []string {
	ids := make([]string, 0, len(groups))
	for _, raw := range groups {
		var g struct {
			GroupID string `json:"group_id"`
		}
		if json.Unmarshal(raw, &g) == nil {
			ids = append(ids, g.GroupID)
		}
	}
	return ids
}

// InvalidateCase drops the case-level responses of caseID and the rules and
// evidence of every group the case is known to contain. Caches that
// implement PrefixDeleter also lose the per-run decision results.
func (b *CachedBackend) InvalidateCase(ctx context.Context, caseID string) error {
	var firstErr error
	keep := func(err error) {
		if err != nil && firstErr == nil {
			firstErr = err
		}
	}

	ids := b.members(ctx, caseID)
	if len(ids) > 0 {
		keys := make([]string, 0, 2*len(ids))
		for _, id := range ids {
			keys = append(keys, groupKey(id, "rules"), groupKey(id, "evidence"))
		}
		keep(b.cache.Delete(ctx, keys...))
	}

	if pd, ok := b.cache.(PrefixDeleter); ok {
		_, err := pd.DeleteByPrefix(ctx, caseKey(caseID, ""))
		keep(err)
	} else {
		keep(b.cache.Delete(ctx,
			caseKey(caseID, "header"),
			caseKey(caseID, "summary"),
			caseKey(caseID, "groups"),
			caseKey(caseID, "view"),
			caseKey(caseID, "audit"),
			caseKey(caseID, "members"),
		))
	}

	if firstErr != nil {
		b.logger.Warn("case invalidation incomplete", logging.CaseID(caseID), logging.Err(firstErr))
		return firstErr
	}
	b.logger.Debug("case invalidated", logging.CaseID(caseID), logging.Int("groups", len(ids)))
	return nil
}

var (
	_ Backend         = (*CachedBackend)(nil)
	_ CaseInvalidator = (*CachedBackend)(nil)
)
