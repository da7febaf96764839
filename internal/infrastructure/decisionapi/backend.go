// Package decisionapi connects the review pipeline to the decision backends
// through pkg/client.
package decisionapi

import (
	"context"
	"fmt"

	"github.com/turtacn/CaseLens/internal/application/casereview"
	"github.com/turtacn/CaseLens/internal/config"
	"github.com/turtacn/CaseLens/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/CaseLens/pkg/client"
	rtypes "github.com/turtacn/CaseLens/pkg/types/review"
)

var (
	_ casereview.Backend  = (*Backend)(nil)
	_ casereview.Ingester = (*Backend)(nil)
)

// NewClient builds a backend client from cfg. Client debug output goes to log.
func NewClient(cfg config.BackendConfig, log logging.Logger) (*client.Client, error) {
	opts := []client.Option{
		client.WithLogger(NewClientLogger(log)),
		client.WithActorID(cfg.ActorID),
		client.WithUserAgent(cfg.UserAgent),
	}
	if cfg.Timeout > 0 {
		opts = append(opts, client.WithTimeout(cfg.Timeout))
	}
	if cfg.RetryMax > 0 {
		opts = append(opts, client.WithRetryMax(cfg.RetryMax))
	}
	return client.NewClient(cfg.BaseURL, cfg.APIKey, opts...)
}

// Backend serves casereview reads and ingest from a client.Client.
type Backend struct {
	c *client.Client
}

func NewBackend(c *client.Client) *Backend {
	return &Backend{c: c}
}

func (b *Backend) GetCase(ctx context.Context, caseID string) (*rtypes.CaseHeader, error) {
	return b.c.Cases().Get(ctx, caseID)
}

func (b *Backend) GetDecisionSummary(ctx context.Context, caseID string) (*rtypes.DecisionSummary, error) {
	return b.c.Cases().DecisionSummary(ctx, caseID)
}

func (b *Backend) GetCaseGroups(ctx context.Context, caseID string) (*rtypes.CaseGroupsResponse, error) {
	return b.c.Cases().Groups(ctx, caseID)
}

func (b *Backend) GetCaseView(ctx context.Context, caseID string) (*rtypes.DecisionRunView, error) {
	return b.c.Cases().View(ctx, caseID)
}

func (b *Backend) GetDecisionResults(ctx context.Context, caseID, runID string) (*rtypes.FinanceDecisionResultsResponse, error) {
	return b.c.Cases().DecisionResults(ctx, caseID, runID)
}

func (b *Backend) GetGroupRules(ctx context.Context, groupID string) (*rtypes.GroupRulesResponse, error) {
	return b.c.Groups().Rules(ctx, groupID)
}

func (b *Backend) GetGroupEvidence(ctx context.Context, groupID string) (*rtypes.GroupEvidenceResponse, error) {
	return b.c.Groups().Evidence(ctx, groupID)
}

func (b *Backend) GetDocumentPage(ctx context.Context, documentID string, page int) (*rtypes.DocumentPage, error) {
	return b.c.Documents().Page(ctx, documentID, page)
}

func (b *Backend) GetAuditTimeline(ctx context.Context, caseID string) (*rtypes.AuditTimelineResponse, error) {
	return b.c.Cases().AuditTimeline(ctx, caseID)
}

func (b *Backend) IngestCase(ctx context.Context, req rtypes.IngestRequest) (*rtypes.IngestResponse, error) {
	return b.c.Cases().Ingest(ctx, req)
}

// ClientLogger adapts a structured logger to the printf-style client.Logger.
type ClientLogger struct {
	log logging.Logger
}

func NewClientLogger(log logging.Logger) *ClientLogger {
	if log == nil {
		log = logging.NewNopLogger()
	}
	return &ClientLogger{log: log.Named("backend")}
}

func (l *ClientLogger) Debugf(format string, args ...interface{}) {
	l.log.Debug(fmt.Sprintf(format, args...))
}

func (l *ClientLogger) Infof(format string, args ...interface{}) {
	l.log.Info(fmt.Sprintf(format, args...))
}

func (l *ClientLogger) Errorf(format string, args ...interface{}) {
	l.log.Error(fmt.Sprintf(format, args...))
}

// Settings translates the review section into pipeline settings.
func Settings(cfg config.ReviewConfig) (casereview.Settings, error) {
	loc, err := cfg.Location()
	if err != nil {
		return casereview.Settings{}, fmt.Errorf("review timezone %q: %w", cfg.Timezone, err)
	}
	return casereview.Settings{
		Currency:           cfg.DefaultCurrency,
		ExposureThreshold:  cfg.ExposureTotalThreshold,
		Location:           loc,
		MetaKVCap:          cfg.MetaKVCap,
		MetaLargeThreshold: cfg.MetaLargeThreshold,
	}, nil
}
