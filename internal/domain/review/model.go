// Package review holds the canonical exception-review model and the pure
// engines that normalize backend payloads and derive audit timelines from them.
package review

import (
	"encoding/json"
	"time"

	rtypes "github.com/turtacn/CaseLens/pkg/types/review"
)

// Domain tags the producer shape a Group was normalized from.
type Domain string

const (
	DomainProcurement Domain = "procurement"
	DomainFinanceAP   Domain = "finance_ap"
	DomainDecisionRun Domain = "decision_run"
)

// Money is a currency-tagged amount. Currency is never empty once a value
// has passed through the normalizer.
type Money struct {
	Value    float64 `json:"value"`
	Currency string  `json:"currency"`
}

// SkuSnapshot is the line item a group is about.
type SkuSnapshot struct {
	ItemID        string  `json:"item_id"`
	SKU           string  `json:"sku"`
	Name          string  `json:"name"`
	Description   string  `json:"description,omitempty"`
	Quantity      float64 `json:"quantity"`
	UOM           string  `json:"uom,omitempty"`
	UnitPrice     Money   `json:"unit_price"`
	TotalPrice    Money   `json:"total_price"`
	SourceLineRef string  `json:"source_line_ref,omitempty"`
}

// Reason is a driver contributing to a group's risk.
type Reason struct {
	RuleID   string `json:"rule_id"`
	Severity string `json:"severity,omitempty"`
	Label    string `json:"label,omitempty"`
}

// Group is the canonical exception group every downstream component works
// with, whatever backend shape it came from.
type Group struct {
	GroupID       string               `json:"group_id"`
	Decision      string               `json:"decision"`
	RiskLevel     string               `json:"risk_level"`
	ConfidencePct *float64             `json:"confidence_pct,omitempty"`
	SKU           SkuSnapshot          `json:"sku"`
	Baseline      *Money               `json:"baseline,omitempty"`
	Exposure      *Money               `json:"exposure,omitempty"`
	Reasons       []Reason             `json:"reasons,omitempty"`
	EvidenceRefs  *rtypes.EvidenceRefs `json:"evidence_refs,omitempty"`
	Domain        Domain               `json:"domain"`
	RawTrace      json.RawMessage      `json:"raw_trace,omitempty"`
}

// Actor is who an audit event is attributed to.
type Actor struct {
	Name string `json:"name"`
	Role string `json:"role"`
}

// ContextEntry is one key/value line shown under an audit event.
type ContextEntry struct {
	Key       string `json:"key"`
	Value     string `json:"value"`
	Highlight bool   `json:"highlight,omitempty"`
}

// Audit event actions.
const (
	ActionRunCreated    = "RUN_CREATED"
	ActionItemEvaluated = "ITEM_EVALUATED"
	ActionRuleFailed    = "RULE_FAILED"
	ActionRulePassed    = "RULE_PASSED"
)

// Audit event statuses.
const (
	StatusCompleted = "COMPLETED"
	StatusFlagged   = "FLAGGED"
)

// Severities shared by derived and prebuilt events.
const (
	SeverityInfo     = "INFO"
	SeverityWarn     = "WARN"
	SeverityError    = "ERROR"
	SeverityCritical = "CRITICAL"
)

// AuditEvent is a synthetic timeline entry derived from a case view.
type AuditEvent struct {
	ID        string         `json:"id"`
	Action    string         `json:"action"`
	Actor     Actor          `json:"actor"`
	Timestamp time.Time      `json:"timestamp"`
	Message   string         `json:"message"`
	Status    string         `json:"status"`
	Severity  string         `json:"severity"`
	CaseID    string         `json:"case_id,omitempty"`
	RunID     string         `json:"run_id,omitempty"`
	GroupID   string         `json:"group_id,omitempty"`
	RuleID    string         `json:"rule_id,omitempty"`
	Context   []ContextEntry `json:"context,omitempty"`
	Metadata  map[string]any `json:"metadata,omitempty"`
}
