package casereview

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	rtypes "github.com/turtacn/CaseLens/pkg/types/review"
)

func TestCachedBackend_ReusesResponses(t *testing.T) {
	ctx := context.Background()
	backend := newMockBackend()
	backend.getGroupsFn = func(_ context.Context, caseID string) (*rtypes.CaseGroupsResponse, error) {
		return procurementGroups(caseID), nil
	}
	cache := newMemCache()
	metrics := newRecordingMetrics()
	cb := NewCachedBackend(backend, cache, time.Minute, nil, metrics)

	first, err := cb.GetCaseGroups(ctx, "CASE-1")
	require.NoError(t, err)
	second, err := cb.GetCaseGroups(ctx, "CASE-1")
	require.NoError(t, err)

	assert.Equal(t, 1, backend.count("groups"))
	require.Len(t, second.Groups, 3)
	assert.JSONEq(t, string(first.Groups[1]), string(second.Groups[1]))
	assert.Equal(t, 1, metrics.hits["case_groups"])
	assert.Equal(t, 1, metrics.misses["case_groups"])
	assert.Equal(t, time.Minute, cache.ttls[caseKey("CASE-1", "groups")])
}

func TestCachedBackend_RoundTripsNumbers(t *testing.T) {
	ctx := context.Background()
	backend := newMockBackend()
	backend.getRulesFn = func(_ context.Context, groupID string) (*rtypes.GroupRulesResponse, error) {
		return &rtypes.GroupRulesResponse{GroupID: groupID, Confidence: rtypes.NumOf(0.4)}, nil
	}
	cb := NewCachedBackend(backend, newMemCache(), 0, nil, nil)

	_, err := cb.GetGroupRules(ctx, "G1")
	require.NoError(t, err)
	got, err := cb.GetGroupRules(ctx, "G1")
	require.NoError(t, err)

	assert.Equal(t, 1, backend.count("rules"))
	assert.True(t, got.Confidence.Valid)
	assert.Equal(t, 0.4, got.Confidence.Value)
}

func TestCachedBackend_ErrorsAreNotCached(t *testing.T) {
	ctx := context.Background()
	backend := newMockBackend()
	backend.getViewFn = func(context.Context, string) (*rtypes.DecisionRunView, error) {
		return nil, fmt.Errorf("down")
	}
	cache := newMemCache()
	cb := NewCachedBackend(backend, cache, 0, nil, nil)

	_, err := cb.GetCaseView(ctx, "CASE-1")
	require.Error(t, err)
	_, err = cb.GetCaseView(ctx, "CASE-1")
	require.Error(t, err)

	assert.Equal(t, 2, backend.count("view"))
	assert.False(t, cache.has(caseKey("CASE-1", "view")))
}

func TestCachedBackend_PassThrough(t *testing.T) {
	ctx := context.Background()
	backend := newMockBackend()
	backend.getPageFn = func(context.Context, string, int) (*rtypes.DocumentPage, error) {
		return &rtypes.DocumentPage{PDFURL: "u"}, nil
	}
	cb := NewCachedBackend(backend, newMemCache(), 0, nil, nil)

	for i := 0; i < 2; i++ {
		_, err := cb.GetDocumentPage(ctx, "D", 1)
		require.NoError(t, err)
		_, err = cb.GetDecisionResults(ctx, "CASE-1", "")
		require.NoError(t, err)
	}
	assert.Equal(t, 2, backend.count("page"))
	assert.Equal(t, 2, backend.count("results"))

	_, err := cb.GetDecisionResults(ctx, "CASE-1", "RUN-1")
	require.NoError(t, err)
	_, err = cb.GetDecisionResults(ctx, "CASE-1", "RUN-1")
	require.NoError(t, err)
	assert.Equal(t, 3, backend.count("results"))
}

func TestCachedBackend_InvalidateCase(t *testing.T) {
	ctx := context.Background()
	cache := newMemCache()
	cb := NewCachedBackend(newMockBackend(), cache, 0, nil, nil)

	_, err := cb.GetCase(ctx, "CASE-1")
	require.NoError(t, err)
	_, err = cb.GetAuditTimeline(ctx, "CASE-1")
	require.NoError(t, err)
	require.True(t, cache.has(caseKey("CASE-1", "header")))

	require.NoError(t, cb.InvalidateCase(ctx, "CASE-1"))
	assert.False(t, cache.has(caseKey("CASE-1", "header")))
	assert.False(t, cache.has(caseKey("CASE-1", "audit")))
}

func TestCachedBackend_InvalidateCaseDropsGroupEntries(t *testing.T) {
	ctx := context.Background()
	decision := "OLD"
	backend := newMockBackend()
	backend.getGroupsFn = func(_ context.Context, caseID string) (*rtypes.CaseGroupsResponse, error) {
		return procurementGroups(caseID), nil
	}
	backend.getRulesFn = func(_ context.Context, groupID string) (*rtypes.GroupRulesResponse, error) {
		return &rtypes.GroupRulesResponse{GroupID: groupID, Decision: decision}, nil
	}
	cache := newMemCache()
	cb := NewCachedBackend(backend, cache, time.Minute, nil, nil)

	_, err := cb.GetCaseGroups(ctx, "C1")
	require.NoError(t, err)
	_, err = cb.GetDecisionResults(ctx, "C1", "RUN-1")
	require.NoError(t, err)
	got, err := cb.GetGroupRules(ctx, "G-HIGH")
	require.NoError(t, err)
	require.Equal(t, "OLD", got.Decision)
	_, err = cb.GetGroupEvidence(ctx, "G-LOW")
	require.NoError(t, err)
	assert.Equal(t, 2*time.Minute, cache.ttls[caseKey("C1", "members")])

	decision = "NEW"
	require.NoError(t, cb.InvalidateCase(ctx, "C1"))

	assert.False(t, cache.has(groupKey("G-LOW", "evidence")))
	assert.False(t, cache.has(caseKey("C1", "members")))
	assert.False(t, cache.has(caseKey("C1", "results:RUN-1")))

	got, err = cb.GetGroupRules(ctx, "G-HIGH")
	require.NoError(t, err)
	assert.Equal(t, "NEW", got.Decision)
	assert.Equal(t, 2, backend.count("rules"))
}

func TestCachedBackend_InvalidateCaseWithoutPrefixDeletion(t *testing.T) {
	ctx := context.Background()
	backend := newMockBackend()
	backend.getResultsFn = func(_ context.Context, caseID, runID string) (*rtypes.FinanceDecisionResultsResponse, error) {
		return &rtypes.FinanceDecisionResultsResponse{CaseID: caseID, RunID: runID, Results: []rtypes.FinanceDecisionResult{
			{GroupID: "F-1"}, {GroupID: "F-2"}, {GroupID: "F-1"},
		}}, nil
	}
	backend.getViewFn = func(_ context.Context, caseID string) (*rtypes.DecisionRunView, error) {
		return &rtypes.DecisionRunView{CaseID: caseID, Items: []rtypes.DecisionRunItem{{GroupID: "V-1"}}}, nil
	}
	mem := newMemCache()
	cb := NewCachedBackend(backend, keyOnlyCache{mem}, time.Minute, nil, nil)

	_, err := cb.GetDecisionResults(ctx, "C2", "RUN-9")
	require.NoError(t, err)
	_, err = cb.GetCaseView(ctx, "C2")
	require.NoError(t, err)
	for _, id := range []string{"F-1", "F-2", "V-1"} {
		_, err = cb.GetGroupRules(ctx, id)
		require.NoError(t, err)
	}
	assert.ElementsMatch(t, []string{"F-1", "F-2", "V-1"}, cb.members(ctx, "C2"))

	require.NoError(t, cb.InvalidateCase(ctx, "C2"))

	for _, id := range []string{"F-1", "F-2", "V-1"} {
		assert.False(t, mem.has(groupKey(id, "rules")), id)
	}
	assert.False(t, mem.has(caseKey("C2", "view")))
	assert.False(t, mem.has(caseKey("C2", "members")))
	// results of a finished run are immutable and survive key-only caches
	assert.True(t, mem.has(caseKey("C2", "results:RUN-9")))
}

func TestCachedBackend_WithCoordinator(t *testing.T) {
	ctx := context.Background()
	backend := newMockBackend()
	backend.getGroupsFn = func(_ context.Context, caseID string) (*rtypes.CaseGroupsResponse, error) {
		return procurementGroups(caseID), nil
	}
	cb := NewCachedBackend(backend, newMemCache(), 0, nil, nil)

	for i := 0; i < 2; i++ {
		c := NewCoordinator(cb, nil)
		require.NoError(t, c.LoadCase(ctx, "CASE-1"))
		assert.Equal(t, "G-HIGH", c.ActiveGroupID())
	}
	assert.Equal(t, 1, backend.count("groups"))
	assert.Equal(t, 1, backend.count("rules"))
}
