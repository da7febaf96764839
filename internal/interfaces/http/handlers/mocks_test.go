package handlers

import (
	"context"
	"encoding/json"

	"github.com/stretchr/testify/mock"

	"github.com/turtacn/CaseLens/internal/application/casereview"
	"github.com/turtacn/CaseLens/internal/domain/review"
	rtypes "github.com/turtacn/CaseLens/pkg/types/review"
)

type MockBackend struct {
	mock.Mock
}

func (m *MockBackend) GetCase(ctx context.Context, caseID string) (*rtypes.CaseHeader, error) {
	args := m.Called(ctx, caseID)
	v, _ := args.Get(0).(*rtypes.CaseHeader)
	return v, args.Error(1)
}

func (m *MockBackend) GetDecisionSummary(ctx context.Context, caseID string) (*rtypes.DecisionSummary, error) {
	args := m.Called(ctx, caseID)
	v, _ := args.Get(0).(*rtypes.DecisionSummary)
	return v, args.Error(1)
}

func (m *MockBackend) GetCaseGroups(ctx context.Context, caseID string) (*rtypes.CaseGroupsResponse, error) {
	args := m.Called(ctx, caseID)
	v, _ := args.Get(0).(*rtypes.CaseGroupsResponse)
	return v, args.Error(1)
}

func (m *MockBackend) GetCaseView(ctx context.Context, caseID string) (*rtypes.DecisionRunView, error) {
	args := m.Called(ctx, caseID)
	v, _ := args.Get(0).(*rtypes.DecisionRunView)
	return v, args.Error(1)
}

func (m *MockBackend) GetDecisionResults(ctx context.Context, caseID, runID string) (*rtypes.FinanceDecisionResultsResponse, error) {
	args := m.Called(ctx, caseID, runID)
	v, _ := args.Get(0).(*rtypes.FinanceDecisionResultsResponse)
	return v, args.Error(1)
}

func (m *MockBackend) GetGroupRules(ctx context.Context, groupID string) (*rtypes.GroupRulesResponse, error) {
	args := m.Called(ctx, groupID)
	v, _ := args.Get(0).(*rtypes.GroupRulesResponse)
	return v, args.Error(1)
}

func (m *MockBackend) GetGroupEvidence(ctx context.Context, groupID string) (*rtypes.GroupEvidenceResponse, error) {
	args := m.Called(ctx, groupID)
	v, _ := args.Get(0).(*rtypes.GroupEvidenceResponse)
	return v, args.Error(1)
}

func (m *MockBackend) GetDocumentPage(ctx context.Context, documentID string, page int) (*rtypes.DocumentPage, error) {
	args := m.Called(ctx, documentID, page)
	v, _ := args.Get(0).(*rtypes.DocumentPage)
	return v, args.Error(1)
}

func (m *MockBackend) GetAuditTimeline(ctx context.Context, caseID string) (*rtypes.AuditTimelineResponse, error) {
	args := m.Called(ctx, caseID)
	v, _ := args.Get(0).(*rtypes.AuditTimelineResponse)
	return v, args.Error(1)
}

type MockTimelineReader struct {
	mock.Mock
}

func (m *MockTimelineReader) Derive(ctx context.Context, caseID string) ([]review.AuditEvent, error) {
	args := m.Called(ctx, caseID)
	v, _ := args.Get(0).([]review.AuditEvent)
	return v, args.Error(1)
}

func (m *MockTimelineReader) Feed(ctx context.Context, caseID string, filter review.FeedFilter) (*casereview.FeedResult, error) {
	args := m.Called(ctx, caseID, filter)
	v, _ := args.Get(0).(*casereview.FeedResult)
	return v, args.Error(1)
}

type MockCaseReader struct {
	mock.Mock
}

func (m *MockCaseReader) Summary(ctx context.Context, caseID string) (*casereview.CaseSummary, error) {
	args := m.Called(ctx, caseID)
	v, _ := args.Get(0).(*casereview.CaseSummary)
	return v, args.Error(1)
}

func (m *MockCaseReader) Ingest(ctx context.Context, req rtypes.IngestRequest) (*rtypes.IngestResponse, error) {
	args := m.Called(ctx, req)
	v, _ := args.Get(0).(*rtypes.IngestResponse)
	return v, args.Error(1)
}

type stubResolver struct {
	url string
	err error
}

func (s stubResolver) ResolvePageURL(_ context.Context, _ string) (string, error) { return s.url, s.err }

func rawGroups(groups ...string) []json.RawMessage {
	out := make([]json.RawMessage, len(groups))
	for i, g := range groups {
		out[i] = json.RawMessage(g)
	}
	return out
}

func procurementGroups(caseID string) *rtypes.CaseGroupsResponse {
	return &rtypes.CaseGroupsResponse{
		CaseID: caseID,
		Groups: rawGroups(
			`{"group_id":"G-LOW","risk_level":"LOW","decision":"PASS","sku":{"sku":"S-1","name":"Bolt","quantity":2,"unit_price":{"value":5,"currency":"USD"}}}`,
			`{"group_id":"G-HIGH","risk_level":"HIGH","decision":"REVIEW","sku":{"sku":"S-2","name":"Nut","quantity":4,"unit_price":{"value":3,"currency":"USD"}}}`,
		),
	}
}
