package review

// AuditTimelineEvent is one entry of the prebuilt audit feed.
type AuditTimelineEvent struct {
	ID        string         `json:"id"`
	Type      string         `json:"type"`
	Title     string         `json:"title,omitempty"`
	Severity  string         `json:"severity,omitempty"`
	Actor     string         `json:"actor,omitempty"`
	RunID     string         `json:"run_id,omitempty"`
	GroupID   string         `json:"group_id,omitempty"`
	Timestamp string         `json:"timestamp"`
	Meta      map[string]any `json:"meta,omitempty"`
}

// AuditTimelineResponse is returned by GET /api/v1/cases/{id}/audit-timeline.
type AuditTimelineResponse struct {
	CaseID string               `json:"case_id,omitempty"`
	Events []AuditTimelineEvent `json:"events"`
}
