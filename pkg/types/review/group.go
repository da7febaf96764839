package review

import "encoding/json"

// GroupSku is the line-item snapshot a procurement group carries.
type GroupSku struct {
	ItemID        string `json:"item_id,omitempty"`
	SKU           string `json:"sku,omitempty"`
	Name          string `json:"name,omitempty"`
	Description   string `json:"description,omitempty"`
	ItemName      string `json:"item_name,omitempty"`
	CreatedAt     string `json:"created_at,omitempty"`
	Quantity      Num    `json:"quantity"`
	UOM           string `json:"uom,omitempty"`
	UnitPrice     *Money `json:"unit_price,omitempty"`
	TotalPrice    *Money `json:"total_price,omitempty"`
	SourceLineRef string `json:"source_line_ref,omitempty"`
}

// GroupReason is a driver entry attached to a group.
type GroupReason struct {
	RuleID   string `json:"rule_id"`
	Severity string `json:"severity,omitempty"`
	Exec     string `json:"exec,omitempty"`
}

// EvidenceRefs points at facts and evidences backing a group.
type EvidenceRefs struct {
	FactIDs     []string `json:"fact_ids,omitempty"`
	EvidenceIDs []string `json:"evidence_ids,omitempty"`
}

// CaseGroup is a procurement-shaped group as returned by /groups.
type CaseGroup struct {
	GroupID      string          `json:"group_id"`
	Decision     string          `json:"decision,omitempty"`
	RiskLevel    string          `json:"risk_level,omitempty"`
	Confidence   Num             `json:"confidence"`
	SKU          *GroupSku       `json:"sku,omitempty"`
	Reasons      []GroupReason   `json:"reasons,omitempty"`
	Baseline     *Money          `json:"baseline,omitempty"`
	EvidenceRefs *EvidenceRefs   `json:"evidence_refs,omitempty"`
	RawTrace     json.RawMessage `json:"raw_trace,omitempty"`
}

// RuleCalculation is the numeric detail of one rule evaluation.
type RuleCalculation struct {
	Field    string `json:"field"`
	Actual   any    `json:"actual"`
	Expected any    `json:"expected"`
	Operator string `json:"operator,omitempty"`
}

// GroupRule is one rule result in a group's why trail.
type GroupRule struct {
	RuleID       string           `json:"rule_id"`
	Severity     string           `json:"severity,omitempty"`
	Result       string           `json:"result,omitempty"`
	Explanation  string           `json:"explanation,omitempty"`
	Calculation  *RuleCalculation `json:"calculation,omitempty"`
	ExecMessage  string           `json:"exec_message,omitempty"`
	AuditMessage string           `json:"audit_message,omitempty"`
}

// GroupRulesResponse is returned by GET /api/v1/groups/groups/{id}/rules.
type GroupRulesResponse struct {
	GroupID    string      `json:"group_id"`
	Decision   string      `json:"decision,omitempty"`
	RiskLevel  string      `json:"risk_level,omitempty"`
	Confidence Num         `json:"confidence"`
	Rules      []GroupRule `json:"rules"`
}
