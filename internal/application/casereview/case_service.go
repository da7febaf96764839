package casereview

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/turtacn/CaseLens/internal/domain/review"
	"github.com/turtacn/CaseLens/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/CaseLens/pkg/errors"
	rtypes "github.com/turtacn/CaseLens/pkg/types/review"
)

// CaseSummary is the case header combined with its latest decision.
type CaseSummary struct {
	CaseID        string             `json:"case_id"`
	Header        *rtypes.CaseHeader `json:"header,omitempty"`
	RunID         string             `json:"run_id,omitempty"`
	Decision      string             `json:"decision,omitempty"`
	RiskLevel     string             `json:"risk_level,omitempty"`
	ConfidencePct *float64           `json:"confidence_pct,omitempty"`
	ReasonCodes   []string           `json:"reason_codes,omitempty"`
}

// CaseInvalidator drops whatever is cached about a case.
type CaseInvalidator interface {
	InvalidateCase(ctx context.Context, caseID string) error
}

// CaseService serves case headers and the ingest write path.
type CaseService struct {
	backend     Backend
	ingester    Ingester
	notifier    CaseNotifier
	invalidator CaseInvalidator
	logger      logging.Logger
	metrics     Metrics
}

// CaseServiceOption configures a CaseService.
type CaseServiceOption func(*CaseService)

// WithNotifier announces ingested cases.
func WithNotifier(n CaseNotifier) CaseServiceOption {
	return func(s *CaseService) { s.notifier = n }
}

// WithInvalidator drops cached case data after an ingest.
func WithInvalidator(i CaseInvalidator) CaseServiceOption {
	return func(s *CaseService) { s.invalidator = i }
}

// WithCaseMetrics sets the metrics sink.
func WithCaseMetrics(m Metrics) CaseServiceOption {
	return func(s *CaseService) {
		if m != nil {
			s.metrics = m
		}
	}
}

// NewCaseService wires a CaseService. ingester may be nil for read-only use.
func NewCaseService(backend Backend, ingester Ingester, logger logging.Logger, opts ...CaseServiceOption) *CaseService {
	if logger == nil {
		logger = logging.NewNopLogger()
	}
	s := &CaseService{
		backend:  backend,
		ingester: ingester,
		logger:   logger.Named("case"),
		metrics:  NopMetrics(),
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

// Summary loads the case header and decision summary concurrently. Either
// part degrades to empty when its fetch fails.
func (s *CaseService) Summary(ctx context.Context, caseID string) (*CaseSummary, error) {
	caseID = strings.TrimSpace(caseID)
	if caseID == "" {
		return nil, errors.New(errors.ErrCodeCaseIDRequired, "case id is required")
	}

	var (
		header *rtypes.CaseHeader
		ds     *rtypes.DecisionSummary
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		start := time.Now()
		h, err := s.backend.GetCase(gctx, caseID)
		s.metrics.ObserveFetch("case", time.Since(start), err)
		if err != nil {
			s.logger.Warn("failed to load case header", logging.CaseID(caseID), logging.Err(err))
			return nil
		}
		header = h
		return nil
	})
	g.Go(func() error {
		start := time.Now()
		d, err := s.backend.GetDecisionSummary(gctx, caseID)
		s.metrics.ObserveFetch("decision_summary", time.Since(start), err)
		if err != nil {
			s.logger.Warn("failed to load decision summary", logging.CaseID(caseID), logging.Err(err))
			return nil
		}
		ds = d
		return nil
	})
	_ = g.Wait()

	out := &CaseSummary{CaseID: caseID, Header: header}
	if header != nil {
		out.Decision = header.Decision
		out.RiskLevel = header.RiskLevel
		if pct, ok := review.NormalizeConfidence(header.Confidence); ok {
			out.ConfidencePct = &pct
		}
	}
	if ds != nil {
		out.RunID = ds.RunID
		if ds.Decision != "" {
			out.Decision = ds.Decision
		}
		if ds.RiskLevel != "" {
			out.RiskLevel = ds.RiskLevel
		}
		if pct, ok := review.NormalizeConfidence(ds.Confidence); ok {
			out.ConfidencePct = &pct
		}
		out.ReasonCodes = ds.ReasonCodes
	}
	return out, nil
}

// Ingest submits a case to the backends. Unlike reads, failures are
// returned. A successful ingest drops cached data of the case and announces
// it so the worker re-derives its timeline.
func (s *CaseService) Ingest(ctx context.Context, req rtypes.IngestRequest) (*rtypes.IngestResponse, error) {
	req.CaseID = strings.TrimSpace(req.CaseID)
	if req.CaseID == "" {
		return nil, errors.New(errors.ErrCodeCaseIDRequired, "case id is required")
	}
	if strings.TrimSpace(req.Domain) == "" {
		req.Domain = string(review.DomainProcurement)
	}
	if len(req.Payload) == 0 {
		req.Payload = json.RawMessage("{}")
	}
	if s.ingester == nil {
		return nil, errors.New(errors.ErrCodeNotImplemented, "ingest is not configured")
	}

	start := time.Now()
	resp, err := s.ingester.IngestCase(ctx, req)
	s.metrics.ObserveFetch("ingest", time.Since(start), err)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeCaseIngestFailed, "case ingest failed")
	}
	if resp == nil {
		resp = &rtypes.IngestResponse{CaseID: req.CaseID}
	}

	if s.invalidator != nil {
		if err := s.invalidator.InvalidateCase(ctx, req.CaseID); err != nil {
			s.logger.Warn("failed to invalidate cached case", logging.CaseID(req.CaseID), logging.Err(err))
		}
	}
	if s.notifier != nil {
		if err := s.notifier.NotifyCaseUpdated(ctx, req.CaseID, req.Domain); err != nil {
			s.logger.Warn("failed to announce case update", logging.CaseID(req.CaseID), logging.Err(err))
		}
	}
	s.logger.Info("case ingested", logging.CaseID(req.CaseID), logging.String("domain", req.Domain))
	return resp, nil
}
