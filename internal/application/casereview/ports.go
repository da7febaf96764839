// Package casereview orchestrates exception case review: it loads groups and
// their why/evidence through a Backend, keeps per-case caches, derives audit
// timelines and tracks the open evidence document.
package casereview

import (
	"context"
	"time"

	"github.com/turtacn/CaseLens/internal/domain/review"
	rtypes "github.com/turtacn/CaseLens/pkg/types/review"
)

// Backend is the read side of the decision backends.
type Backend interface {
	GetCase(ctx context.Context, caseID string) (*rtypes.CaseHeader, error)
	GetDecisionSummary(ctx context.Context, caseID string) (*rtypes.DecisionSummary, error)
	GetCaseGroups(ctx context.Context, caseID string) (*rtypes.CaseGroupsResponse, error)
	GetCaseView(ctx context.Context, caseID string) (*rtypes.DecisionRunView, error)
	GetDecisionResults(ctx context.Context, caseID, runID string) (*rtypes.FinanceDecisionResultsResponse, error)
	GetGroupRules(ctx context.Context, groupID string) (*rtypes.GroupRulesResponse, error)
	GetGroupEvidence(ctx context.Context, groupID string) (*rtypes.GroupEvidenceResponse, error)
	GetDocumentPage(ctx context.Context, documentID string, page int) (*rtypes.DocumentPage, error)
	GetAuditTimeline(ctx context.Context, caseID string) (*rtypes.AuditTimelineResponse, error)
}

// Ingester is the user write path into the backends.
type Ingester interface {
	IngestCase(ctx context.Context, req rtypes.IngestRequest) (*rtypes.IngestResponse, error)
}

// AuditPublisher ships derived audit events downstream.
type AuditPublisher interface {
	PublishAuditEvents(ctx context.Context, caseID string, events []review.AuditEvent) error
}

// CaseNotifier announces that a case changed and must be re-derived.
type CaseNotifier interface {
	NotifyCaseUpdated(ctx context.Context, caseID, domain string) error
}

// PageURLResolver turns an object storage key into a displayable URL.
type PageURLResolver interface {
	ResolvePageURL(ctx context.Context, storageKey string) (string, error)
}

// CachePort abstracts a key/value cache with JSON values.
type CachePort interface {
	Get(ctx context.Context, key string, dest interface{}) error
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error
	Delete(ctx context.Context, keys ...string) error
}

// PrefixDeleter is implemented by caches that can drop every key under a
// prefix. CachedBackend uses it to clear all responses of a case at once.
type PrefixDeleter interface {
	DeleteByPrefix(ctx context.Context, prefix string) (int64, error)
}

// Metrics receives review pipeline measurements.
type Metrics interface {
	ObserveFetch(endpoint string, d time.Duration, err error)
	ObserveDerivation(source string, events int, d time.Duration)
	ObserveCache(cache string, hit bool)
	IncStaleDropped(kind string)
}

type nopMetrics struct{}

func (nopMetrics) ObserveFetch(string, time.Duration, error)    {}
func (nopMetrics) ObserveDerivation(string, int, time.Duration) {}
func (nopMetrics) ObserveCache(string, bool)                    {}
func (nopMetrics) IncStaleDropped(string)                       {}

// NopMetrics discards all measurements.
func NopMetrics() Metrics { return nopMetrics{} }
