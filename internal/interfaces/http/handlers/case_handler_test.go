package handlers

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"

	"github.com/turtacn/CaseLens/internal/application/casereview"
	"github.com/turtacn/CaseLens/internal/domain/review"
	"github.com/turtacn/CaseLens/pkg/errors"
	rtypes "github.com/turtacn/CaseLens/pkg/types/review"
)

type CaseHandlerTestSuite struct {
	suite.Suite
	backend   *MockBackend
	timelines *MockTimelineReader
	cases     *MockCaseReader
	router    chi.Router
}

func (s *CaseHandlerTestSuite) SetupTest() {
	s.backend = new(MockBackend)
	s.timelines = new(MockTimelineReader)
	s.cases = new(MockCaseReader)

	h := NewCaseHandler(func() *casereview.Coordinator {
		return casereview.NewCoordinator(s.backend, nil)
	}, s.timelines, s.cases, nil)

	r := chi.NewRouter()
	r.Post("/cases/ingest", h.Ingest)
	r.Get("/cases/{caseID}/groups", h.ListGroups)
	r.Get("/cases/{caseID}/groups/{groupID}/why", h.GetWhy)
	r.Get("/cases/{caseID}/groups/{groupID}/evidence", h.GetEvidence)
	r.Get("/cases/{caseID}/timeline", h.GetTimeline)
	r.Get("/cases/{caseID}/feed", h.GetFeed)
	r.Get("/cases/{caseID}/summary", h.GetSummary)
	s.router = r
}

func (s *CaseHandlerTestSuite) TearDownTest() {
	s.backend.AssertExpectations(s.T())
	s.timelines.AssertExpectations(s.T())
	s.cases.AssertExpectations(s.T())
}

func (s *CaseHandlerTestSuite) do(method, path string, body []byte) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, httptest.NewRequest(method, path, bytes.NewReader(body)))
	return w
}

func (s *CaseHandlerTestSuite) expectProcurementCase() {
	s.backend.On("GetCaseGroups", mock.Anything, "C-1").Return(procurementGroups("C-1"), nil).Once()
	s.backend.On("GetGroupRules", mock.Anything, "G-HIGH").Return(&rtypes.GroupRulesResponse{
		GroupID: "G-HIGH",
		Rules:   []rtypes.GroupRule{{RuleID: "R1", Result: "FAIL", ExecMessage: "price above contract"}},
	}, nil).Maybe()
	s.backend.On("GetGroupEvidence", mock.Anything, "G-HIGH").Return(&rtypes.GroupEvidenceResponse{
		GroupID:   "G-HIGH",
		Documents: []rtypes.EvidenceDocument{{DocumentID: "D-9", FileName: "contract.pdf"}},
	}, nil).Maybe()
}

func (s *CaseHandlerTestSuite) TestListGroups() {
	s.expectProcurementCase()

	w := s.do(http.MethodGet, "/cases/C-1/groups", nil)

	s.Require().Equal(http.StatusOK, w.Code)
	var resp GroupsResponse
	s.Require().NoError(json.Unmarshal(w.Body.Bytes(), &resp))
	s.Equal("C-1", resp.CaseID)
	s.Equal("G-HIGH", resp.ActiveGroupID)
	s.Require().Len(resp.Groups, 2)
	s.Equal("G-HIGH", resp.Groups[0].GroupID)
	s.Equal("G-LOW", resp.Groups[1].GroupID)
	s.backend.AssertNotCalled(s.T(), "GetGroupRules", mock.Anything, mock.Anything)
	s.backend.AssertNotCalled(s.T(), "GetGroupEvidence", mock.Anything, mock.Anything)
}

func (s *CaseHandlerTestSuite) TestListGroups_BackendDownDegradesToEmpty() {
	s.backend.On("GetCaseGroups", mock.Anything, "C-2").Return(nil, errors.New(errors.ErrCodeBackendUnavailable, "down")).Once()

	w := s.do(http.MethodGet, "/cases/C-2/groups", nil)

	s.Require().Equal(http.StatusOK, w.Code)
	s.JSONEq(`{"case_id":"C-2","groups":[]}`, w.Body.String())
}

func (s *CaseHandlerTestSuite) TestGetWhy() {
	s.expectProcurementCase()

	w := s.do(http.MethodGet, "/cases/C-1/groups/G-HIGH/why", nil)

	s.Require().Equal(http.StatusOK, w.Code)
	var resp WhyResponse
	s.Require().NoError(json.Unmarshal(w.Body.Bytes(), &resp))
	s.Equal("G-HIGH", resp.Group.GroupID)
	s.Require().Len(resp.Why.Rules, 1)
	s.Equal("R1", resp.Why.Rules[0].RuleID)
}

func (s *CaseHandlerTestSuite) TestGetWhy_UnknownGroup() {
	s.expectProcurementCase()

	w := s.do(http.MethodGet, "/cases/C-1/groups/G-NOPE/why", nil)

	s.Equal(http.StatusNotFound, w.Code)
	var resp ErrorResponse
	s.Require().NoError(json.Unmarshal(w.Body.Bytes(), &resp))
	s.Equal(string(errors.ErrCodeGroupNotFound), resp.Code)
}

func (s *CaseHandlerTestSuite) TestGetEvidence_SelectsNonDefaultGroup() {
	s.expectProcurementCase()
	s.backend.On("GetGroupRules", mock.Anything, "G-LOW").Return(&rtypes.GroupRulesResponse{GroupID: "G-LOW"}, nil).Once()
	s.backend.On("GetGroupEvidence", mock.Anything, "G-LOW").Return(nil, errors.New(errors.ErrCodeBackendUnavailable, "down")).Once()

	w := s.do(http.MethodGet, "/cases/C-1/groups/G-LOW/evidence", nil)

	s.Require().Equal(http.StatusOK, w.Code)
	s.JSONEq(`{"case_id":"C-1","group_id":"G-LOW","documents":[],"evidences":[]}`, w.Body.String())
	s.backend.AssertNotCalled(s.T(), "GetGroupRules", mock.Anything, "G-HIGH")
	s.backend.AssertNotCalled(s.T(), "GetGroupEvidence", mock.Anything, "G-HIGH")
}

func (s *CaseHandlerTestSuite) TestGetWhy_NonDefaultGroupFetchesOnlyThatGroup() {
	s.expectProcurementCase()
	s.backend.On("GetGroupRules", mock.Anything, "G-LOW").Return(&rtypes.GroupRulesResponse{
		GroupID: "G-LOW",
		Rules:   []rtypes.GroupRule{{RuleID: "R-LOW", Result: "PASS"}},
	}, nil).Once()
	s.backend.On("GetGroupEvidence", mock.Anything, "G-LOW").Return(&rtypes.GroupEvidenceResponse{GroupID: "G-LOW"}, nil).Once()

	w := s.do(http.MethodGet, "/cases/C-1/groups/G-LOW/why", nil)

	s.Require().Equal(http.StatusOK, w.Code)
	var resp WhyResponse
	s.Require().NoError(json.Unmarshal(w.Body.Bytes(), &resp))
	s.Require().Len(resp.Why.Rules, 1)
	s.Equal("R-LOW", resp.Why.Rules[0].RuleID)
	s.backend.AssertNumberOfCalls(s.T(), "GetGroupRules", 1)
	s.backend.AssertNumberOfCalls(s.T(), "GetGroupEvidence", 1)
}

func (s *CaseHandlerTestSuite) TestGetTimeline() {
	events := []review.AuditEvent{{ID: "evt-1", Action: review.ActionRunCreated, CaseID: "C-1"}}
	s.timelines.On("Derive", mock.Anything, "C-1").Return(events, nil).Once()

	w := s.do(http.MethodGet, "/cases/C-1/timeline", nil)

	s.Require().Equal(http.StatusOK, w.Code)
	var resp TimelineResponse
	s.Require().NoError(json.Unmarshal(w.Body.Bytes(), &resp))
	s.Require().Len(resp.Events, 1)
	s.Equal("evt-1", resp.Events[0].ID)
}

func (s *CaseHandlerTestSuite) TestGetFeed_PassesFilter() {
	want := review.FeedFilter{Query: "price", Severity: "WARN", Type: "ALL", Actor: "SYSTEM", Run: "RUN-1"}
	s.timelines.On("Feed", mock.Anything, "C-1", want).Return(&casereview.FeedResult{CaseID: "C-1", Source: casereview.SourceAudit}, nil).Once()

	w := s.do(http.MethodGet, "/cases/C-1/feed?q=price&severity=WARN&type=ALL&actor=SYSTEM&run=RUN-1", nil)

	s.Require().Equal(http.StatusOK, w.Code)
	var resp casereview.FeedResult
	s.Require().NoError(json.Unmarshal(w.Body.Bytes(), &resp))
	s.Equal(casereview.SourceAudit, resp.Source)
}

func (s *CaseHandlerTestSuite) TestGetSummary() {
	pct := 87.5
	s.cases.On("Summary", mock.Anything, "C-1").Return(&casereview.CaseSummary{CaseID: "C-1", Decision: "REVIEW", ConfidencePct: &pct}, nil).Once()

	w := s.do(http.MethodGet, "/cases/C-1/summary", nil)

	s.Require().Equal(http.StatusOK, w.Code)
	s.JSONEq(`{"case_id":"C-1","decision":"REVIEW","confidence_pct":87.5}`, w.Body.String())
}

func (s *CaseHandlerTestSuite) TestIngest() {
	req := rtypes.IngestRequest{CaseID: "C-7", Domain: "finance_ap", Payload: json.RawMessage(`{"a":1}`)}
	s.cases.On("Ingest", mock.Anything, req).Return(&rtypes.IngestResponse{CaseID: "C-7", Status: "queued"}, nil).Once()

	w := s.do(http.MethodPost, "/cases/ingest", []byte(`{"case_id":"C-7","domain":"finance_ap","payload":{"a":1}}`))

	s.Equal(http.StatusAccepted, w.Code)
	s.JSONEq(`{"case_id":"C-7","status":"queued"}`, w.Body.String())
}

func (s *CaseHandlerTestSuite) TestIngest_BadBody() {
	w := s.do(http.MethodPost, "/cases/ingest", []byte(`{"case_id":`))

	s.Equal(http.StatusBadRequest, w.Code)
}

func (s *CaseHandlerTestSuite) TestIngest_BackendFailureHidesCause() {
	s.cases.On("Ingest", mock.Anything, mock.Anything).
		Return(nil, errors.Wrap(assert.AnError, errors.ErrCodeCaseIngestFailed, "case ingest failed")).Once()

	w := s.do(http.MethodPost, "/cases/ingest", []byte(`{"case_id":"C-7"}`))

	s.Equal(http.StatusBadGateway, w.Code)
	var resp ErrorResponse
	s.Require().NoError(json.Unmarshal(w.Body.Bytes(), &resp))
	s.Equal(string(errors.ErrCodeCaseIngestFailed), resp.Code)
	s.NotContains(resp.Message, assert.AnError.Error())
}

func TestCaseHandlerSuite(t *testing.T) {
	suite.Run(t, new(CaseHandlerTestSuite))
}

func TestWriteAppError_UnknownErrorIsInternal(t *testing.T) {
	w := httptest.NewRecorder()
	writeAppError(w, httptest.NewRequest(http.MethodGet, "/", nil), assert.AnError)

	require.Equal(t, http.StatusInternalServerError, w.Code)
	var resp ErrorResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, string(errors.ErrCodeInternal), resp.Code)
	assert.Equal(t, "internal server error", resp.Message)
}
