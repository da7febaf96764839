package handlers

import (
	"context"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/turtacn/CaseLens/internal/application/casereview"
	"github.com/turtacn/CaseLens/internal/domain/review"
	"github.com/turtacn/CaseLens/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/CaseLens/pkg/errors"
	rtypes "github.com/turtacn/CaseLens/pkg/types/review"
)

// CoordinatorFactory returns a fresh coordinator. Each request gets its own
// so concurrent requests never switch each other's case.
type CoordinatorFactory func() *casereview.Coordinator

// TimelineReader derives timelines and feeds.
type TimelineReader interface {
	Derive(ctx context.Context, caseID string) ([]review.AuditEvent, error)
	Feed(ctx context.Context, caseID string, filter review.FeedFilter) (*casereview.FeedResult, error)
}

// CaseReader serves summaries and ingests.
type CaseReader interface {
	Summary(ctx context.Context, caseID string) (*casereview.CaseSummary, error)
	Ingest(ctx context.Context, req rtypes.IngestRequest) (*rtypes.IngestResponse, error)
}

// CaseHandler serves the case review endpoints.
type CaseHandler struct {
	coordinators CoordinatorFactory
	timelines    TimelineReader
	cases        CaseReader
	logger       logging.Logger
}

func NewCaseHandler(coordinators CoordinatorFactory, timelines TimelineReader, cases CaseReader, logger logging.Logger) *CaseHandler {
	if logger == nil {
		logger = logging.NewNopLogger()
	}
	return &CaseHandler{
		coordinators: coordinators,
		timelines:    timelines,
		cases:        cases,
		logger:       logger.Named("case_handler"),
	}
}

type GroupsResponse struct {
	CaseID        string         `json:"case_id"`
	RunID         string         `json:"run_id,omitempty"`
	ActiveGroupID string         `json:"active_group_id,omitempty"`
	Groups        []review.Group `json:"groups"`
}

type WhyResponse struct {
	CaseID string                     `json:"case_id"`
	Group  review.Group               `json:"group"`
	Why    *rtypes.GroupRulesResponse `json:"why"`
}

type EvidenceResponse struct {
	CaseID    string                    `json:"case_id"`
	GroupID   string                    `json:"group_id"`
	Documents []rtypes.EvidenceDocument `json:"documents"`
	Evidences []rtypes.EvidenceItem     `json:"evidences"`
}

type TimelineResponse struct {
	CaseID string              `json:"case_id"`
	Events []review.AuditEvent `json:"events"`
}

// ListGroups handles GET /api/v1/cases/{caseID}/groups.
func (h *CaseHandler) ListGroups(w http.ResponseWriter, r *http.Request) {
	caseID := chi.URLParam(r, "caseID")
	c := h.coordinators()
	if err := c.LoadGroups(r.Context(), caseID); err != nil {
		writeAppError(w, r, err)
		return
	}
	groups := c.Groups()
	if groups == nil {
		groups = []review.Group{}
	}
	writeJSON(w, http.StatusOK, GroupsResponse{
		CaseID:        c.CaseID(),
		RunID:         c.RunID(),
		ActiveGroupID: review.DefaultGroupID(groups),
		Groups:        groups,
	})
}

// selectGroup loads caseID and makes groupID active. Unknown groups are 404.
func (h *CaseHandler) selectGroup(r *http.Request) (*casereview.Coordinator, review.Group, error) {
	caseID := chi.URLParam(r, "caseID")
	groupID := strings.TrimSpace(chi.URLParam(r, "groupID"))

	c := h.coordinators()
	if err := c.LoadGroups(r.Context(), caseID); err != nil {
		return nil, review.Group{}, err
	}
	g, ok := c.Group(groupID)
	if !ok {
		return nil, review.Group{}, errors.New(errors.ErrCodeGroupNotFound, "group not found in case").
			WithDetail("case_id=" + caseID + " group_id=" + groupID)
	}
	if err := c.SelectGroup(r.Context(), groupID); err != nil {
		return nil, review.Group{}, err
	}
	return c, g, nil
}

// GetWhy handles GET /api/v1/cases/{caseID}/groups/{groupID}/why.
func (h *CaseHandler) GetWhy(w http.ResponseWriter, r *http.Request) {
	c, g, err := h.selectGroup(r)
	if err != nil {
		writeAppError(w, r, err)
		return
	}
	why := c.ActiveWhy()
	if why == nil {
		why = &rtypes.GroupRulesResponse{GroupID: g.GroupID, Rules: []rtypes.GroupRule{}}
	}
	writeJSON(w, http.StatusOK, WhyResponse{CaseID: c.CaseID(), Group: g, Why: why})
}

// GetEvidence handles GET /api/v1/cases/{caseID}/groups/{groupID}/evidence.
func (h *CaseHandler) GetEvidence(w http.ResponseWriter, r *http.Request) {
	c, g, err := h.selectGroup(r)
	if err != nil {
		writeAppError(w, r, err)
		return
	}
	resp := EvidenceResponse{
		CaseID:    c.CaseID(),
		GroupID:   g.GroupID,
		Documents: c.ActiveDocuments(),
		Evidences: c.ActiveEvidences(),
	}
	if resp.Documents == nil {
		resp.Documents = []rtypes.EvidenceDocument{}
	}
	if resp.Evidences == nil {
		resp.Evidences = []rtypes.EvidenceItem{}
	}
	writeJSON(w, http.StatusOK, resp)
}

// GetTimeline handles GET /api/v1/cases/{caseID}/timeline.
func (h *CaseHandler) GetTimeline(w http.ResponseWriter, r *http.Request) {
	caseID := chi.URLParam(r, "caseID")
	events, err := h.timelines.Derive(r.Context(), caseID)
	if err != nil {
		writeAppError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, TimelineResponse{CaseID: caseID, Events: events})
}

// GetFeed handles GET /api/v1/cases/{caseID}/feed.
func (h *CaseHandler) GetFeed(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filter := review.FeedFilter{
		Query:    q.Get("q"),
		Severity: q.Get("severity"),
		Type:     q.Get("type"),
		Actor:    q.Get("actor"),
		Run:      q.Get("run"),
	}
	feed, err := h.timelines.Feed(r.Context(), chi.URLParam(r, "caseID"), filter)
	if err != nil {
		writeAppError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, feed)
}

// GetSummary handles GET /api/v1/cases/{caseID}/summary.
func (h *CaseHandler) GetSummary(w http.ResponseWriter, r *http.Request) {
	summary, err := h.cases.Summary(r.Context(), chi.URLParam(r, "caseID"))
	if err != nil {
		writeAppError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, summary)
}

// Ingest handles POST /api/v1/cases/ingest.
func (h *CaseHandler) Ingest(w http.ResponseWriter, r *http.Request) {
	var req rtypes.IngestRequest
	if err := decodeJSON(r, &req); err != nil {
		writeAppError(w, r, err)
		return
	}
	resp, err := h.cases.Ingest(r.Context(), req)
	if err != nil {
		h.logger.Error("ingest failed", logging.CaseID(req.CaseID), logging.Err(err))
		writeAppError(w, r, err)
		return
	}
	writeJSON(w, http.StatusAccepted, resp)
}
