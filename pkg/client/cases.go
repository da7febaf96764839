package client

import (
	"context"
	"net/url"
	"strings"

	"github.com/turtacn/CaseLens/pkg/errors"
	rtypes "github.com/turtacn/CaseLens/pkg/types/review"
)

// CasesClient covers the case-scoped endpoints.
type CasesClient struct {
	client *Client
}

func casePath(caseID, suffix string) (string, error) {
	if strings.TrimSpace(caseID) == "" {
		return "", errors.New(errors.ErrCodeCaseIDRequired, "case id is required")
	}
	return "/api/v1/cases/" + escape(caseID) + suffix, nil
}

// Get returns the case header.
func (c *CasesClient) Get(ctx context.Context, caseID string) (*rtypes.CaseHeader, error) {
	path, err := casePath(caseID, "")
	if err != nil {
		return nil, err
	}
	var out rtypes.CaseHeader
	if err := c.client.get(ctx, path, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// DecisionSummary returns the latest decision of the case. Confidence is
// fractional as sent by the backend.
func (c *CasesClient) DecisionSummary(ctx context.Context, caseID string) (*rtypes.DecisionSummary, error) {
	path, err := casePath(caseID, "/decision-summary")
	if err != nil {
		return nil, err
	}
	var out rtypes.DecisionSummary
	if err := c.client.get(ctx, path, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Groups returns the raw groups of the case, accepting both the wrapped and
// the bare-array response.
func (c *CasesClient) Groups(ctx context.Context, caseID string) (*rtypes.CaseGroupsResponse, error) {
	path, err := casePath(caseID, "/groups")
	if err != nil {
		return nil, err
	}
	var out rtypes.CaseGroupsResponse
	if err := c.client.get(ctx, path, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// View returns the unified decision-run view.
func (c *CasesClient) View(ctx context.Context, caseID string) (*rtypes.DecisionRunView, error) {
	path, err := casePath(caseID, "/view")
	if err != nil {
		return nil, err
	}
	var out rtypes.DecisionRunView
	if err := c.client.get(ctx, path, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// DecisionResults returns the finance decision results, narrowed to runID
// when given.
func (c *CasesClient) DecisionResults(ctx context.Context, caseID, runID string) (*rtypes.FinanceDecisionResultsResponse, error) {
	path, err := casePath(caseID, "/decision-results")
	if err != nil {
		return nil, err
	}
	if runID = strings.TrimSpace(runID); runID != "" {
		path += "?" + url.Values{"run_id": {runID}}.Encode()
	}
	var out rtypes.FinanceDecisionResultsResponse
	if err := c.client.get(ctx, path, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// AuditTimeline returns the prebuilt audit feed.
func (c *CasesClient) AuditTimeline(ctx context.Context, caseID string) (*rtypes.AuditTimelineResponse, error) {
	path, err := casePath(caseID, "/audit-timeline")
	if err != nil {
		return nil, err
	}
	var out rtypes.AuditTimelineResponse
	if err := c.client.get(ctx, path, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Ingest submits a case payload.
func (c *CasesClient) Ingest(ctx context.Context, req rtypes.IngestRequest) (*rtypes.IngestResponse, error) {
	if strings.TrimSpace(req.CaseID) == "" {
		return nil, errors.New(errors.ErrCodeCaseIDRequired, "case id is required")
	}
	var out rtypes.IngestResponse
	if err := c.client.post(ctx, "/api/cases/ingest", req, &out); err != nil {
		return nil, err
	}
	if out.CaseID == "" {
		out.CaseID = req.CaseID
	}
	return &out, nil
}
