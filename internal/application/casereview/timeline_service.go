package casereview

import (
	"context"
	"strings"
	"time"

	"github.com/turtacn/CaseLens/internal/domain/review"
	"github.com/turtacn/CaseLens/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/CaseLens/pkg/errors"
	rtypes "github.com/turtacn/CaseLens/pkg/types/review"
)

// Feed sources.
const (
	SourceView  = "view"
	SourceAudit = "audit_timeline"
)

// FeedResult is a filtered, display-ready audit feed. Options are computed
// over the unfiltered feed; KPI and Days over the filtered one.
type FeedResult struct {
	CaseID  string             `json:"case_id"`
	Source  string             `json:"source"`
	Events  []review.FeedEvent `json:"events"`
	Days    []review.DateGroup `json:"days"`
	Options review.FeedOptions `json:"options"`
	KPI     review.FeedKPI     `json:"kpi"`
}

// TimelineService derives audit timelines from case views and serves the
// filterable audit feed.
type TimelineService struct {
	backend   Backend
	publisher AuditPublisher
	deriver   review.Deriver
	builder   review.FeedBuilder
	logger    logging.Logger
	metrics   Metrics
}

// NewTimelineService wires a TimelineService. publisher may be nil when
// derived events are never shipped.
func NewTimelineService(backend Backend, publisher AuditPublisher, settings Settings, logger logging.Logger, metrics Metrics) *TimelineService {
	if logger == nil {
		logger = logging.NewNopLogger()
	}
	if metrics == nil {
		metrics = NopMetrics()
	}
	return &TimelineService{
		backend:   backend,
		publisher: publisher,
		deriver:   settings.Deriver(),
		builder:   settings.FeedBuilder(),
		logger:    logger.Named("timeline"),
		metrics:   metrics,
	}
}

func (s *TimelineService) derive(ctx context.Context, caseID string) ([]review.AuditEvent, error) {
	caseID = strings.TrimSpace(caseID)
	if caseID == "" {
		return nil, errors.New(errors.ErrCodeCaseIDRequired, "case id is required")
	}

	start := time.Now()
	view, err := s.backend.GetCaseView(ctx, caseID)
	s.metrics.ObserveFetch("case_view", time.Since(start), err)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeBackendUnavailable, "failed to load case view")
	}
	if view == nil {
		return nil, nil
	}
	if view.CaseID == "" {
		view.CaseID = caseID
	}

	start = time.Now()
	events := s.deriver.DeriveTimeline(*view)
	s.metrics.ObserveDerivation(SourceView, len(events), time.Since(start))
	return events, nil
}

// Derive returns the audit timeline derived from the case view, newest
// first. A backend failure is logged and yields an empty timeline.
func (s *TimelineService) Derive(ctx context.Context, caseID string) ([]review.AuditEvent, error) {
	events, err := s.derive(ctx, caseID)
	if err != nil {
		if errors.IsCode(err, errors.ErrCodeCaseIDRequired) {
			return nil, err
		}
		s.logger.Warn("timeline derivation degraded", logging.CaseID(caseID), logging.Err(err))
		return []review.AuditEvent{}, nil
	}
	if events == nil {
		events = []review.AuditEvent{}
	}
	return events, nil
}

// Feed returns the filtered audit feed of caseID. The derived timeline is
// preferred; when it is empty the prebuilt audit timeline is used.
func (s *TimelineService) Feed(ctx context.Context, caseID string, filter review.FeedFilter) (*FeedResult, error) {
	derived, err := s.Derive(ctx, caseID)
	if err != nil {
		return nil, err
	}

	source := SourceView
	raw := review.ToFeedEvents(derived)
	if len(raw) == 0 {
		source = SourceAudit
		raw = s.auditTimeline(ctx, caseID)
	}

	all := s.builder.Build(raw)
	filtered := filter.Apply(all)
	return &FeedResult{
		CaseID:  caseID,
		Source:  source,
		Events:  filtered,
		Days:    review.GroupByDate(filtered),
		Options: review.Options(all),
		KPI:     review.KPI(filtered),
	}, nil
}

func (s *TimelineService) auditTimeline(ctx context.Context, caseID string) []rtypes.AuditTimelineEvent {
	start := time.Now()
	resp, err := s.backend.GetAuditTimeline(ctx, caseID)
	s.metrics.ObserveFetch("audit_timeline", time.Since(start), err)
	if err != nil {
		s.logger.Warn("failed to load audit timeline", logging.CaseID(caseID), logging.Err(err))
		return nil
	}
	if resp == nil {
		return nil
	}
	s.metrics.ObserveDerivation(SourceAudit, len(resp.Events), time.Since(start))
	return resp.Events
}

// Publish derives the timeline of caseID and ships it to the publisher. It
// returns the number of events published. Unlike Derive, backend failures
// are returned so the caller can retry.
func (s *TimelineService) Publish(ctx context.Context, caseID string) (int, error) {
	if s.publisher == nil {
		return 0, errors.New(errors.ErrCodeFeedPublish, "no audit publisher configured")
	}
	events, err := s.derive(ctx, caseID)
	if err != nil {
		return 0, err
	}
	if len(events) == 0 {
		s.logger.Debug("nothing to publish", logging.CaseID(caseID))
		return 0, nil
	}
	if err := s.publisher.PublishAuditEvents(ctx, caseID, events); err != nil {
		return 0, errors.Wrap(err, errors.ErrCodeFeedPublish, "failed to publish audit events")
	}
	s.logger.Info("audit events published", logging.CaseID(caseID), logging.Int("events", len(events)))
	return len(events), nil
}
