package review

import (
	"bytes"
	"encoding/json"
)

// Money is a currency-tagged amount as sent by the backends.
type Money struct {
	Value    Num    `json:"value"`
	Currency string `json:"currency,omitempty"`
}

// CaseHeader is returned by GET /api/v1/cases/{id}.
type CaseHeader struct {
	CaseID        string `json:"case_id"`
	Domain        string `json:"domain,omitempty"`
	ReferenceType string `json:"reference_type,omitempty"`
	ReferenceID   string `json:"reference_id,omitempty"`
	EntityID      string `json:"entity_id,omitempty"`
	EntityName    string `json:"entity_name,omitempty"`
	AmountTotal   Num    `json:"amount_total"`
	Currency      string `json:"currency,omitempty"`
	Status        string `json:"status,omitempty"`
	Decision      string `json:"decision,omitempty"`
	RiskLevel     string `json:"risk_level,omitempty"`
	Confidence    Num    `json:"confidence"`
	CreatedAt     string `json:"created_at,omitempty"`
	UpdatedAt     string `json:"updated_at,omitempty"`
}

// DecisionSummary is returned by GET /api/v1/cases/{id}/decision-summary.
// Confidence is fractional (0..1) on the wire.
type DecisionSummary struct {
	CaseID      string   `json:"case_id,omitempty"`
	RunID       string   `json:"run_id,omitempty"`
	Decision    string   `json:"decision,omitempty"`
	RiskLevel   string   `json:"risk_level,omitempty"`
	Confidence  Num      `json:"confidence"`
	ReasonCodes []string `json:"reason_codes,omitempty"`
}

// CaseGroupsResponse is returned by GET /api/v1/cases/{id}/groups. The
// backend answers either with an object carrying "groups" or with a bare
// array; both decode into this type. Groups stay raw so the normalizer can
// discriminate their shape.
type CaseGroupsResponse struct {
	CaseID string            `json:"case_id,omitempty"`
	RunID  string            `json:"run_id,omitempty"`
	Groups []json.RawMessage `json:"groups"`
}

// UnmarshalJSON implements json.Unmarshaler.
func (r *CaseGroupsResponse) UnmarshalJSON(data []byte) error {
	*r = CaseGroupsResponse{}
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		return nil
	}
	if data[0] == '[' {
		return json.Unmarshal(data, &r.Groups)
	}
	var obj struct {
		CaseID   string            `json:"case_id"`
		RunID    string            `json:"run_id"`
		RunIDAlt string            `json:"runId"`
		Groups   []json.RawMessage `json:"groups"`
	}
	if err := json.Unmarshal(data, &obj); err != nil {
		return err
	}
	r.CaseID = obj.CaseID
	r.RunID = obj.RunID
	if r.RunID == "" {
		r.RunID = obj.RunIDAlt
	}
	r.Groups = obj.Groups
	return nil
}

// IngestRequest is the body of POST /api/cases/ingest.
type IngestRequest struct {
	CaseID  string          `json:"case_id"`
	Domain  string          `json:"domain"`
	Payload json.RawMessage `json:"payload"`
}

// IngestResponse is the acknowledgement of an ingest.
type IngestResponse struct {
	CaseID string `json:"case_id,omitempty"`
	Status string `json:"status,omitempty"`
}
