package review

import "encoding/json"

// FinanceDecisionResult is one raw rule trace returned by
// GET /api/v1/cases/{id}/decision-results.
type FinanceDecisionResult struct {
	ResultID       string            `json:"result_id,omitempty"`
	RunID          string            `json:"run_id,omitempty"`
	GroupID        string            `json:"group_id"`
	DecisionStatus string            `json:"decision_status,omitempty"`
	Decision       string            `json:"decision,omitempty"`
	RiskLevel      string            `json:"risk_level,omitempty"`
	Confidence     Num               `json:"confidence"`
	ReasonCodes    []string          `json:"reason_codes,omitempty"`
	FailActions    []json.RawMessage `json:"fail_actions,omitempty"`
	Trace          json.RawMessage   `json:"trace,omitempty"`
	EvidenceRefs   *EvidenceRefs     `json:"evidence_refs,omitempty"`
	CreatedAt      string            `json:"created_at,omitempty"`
}

// FinanceDecisionResultsResponse wraps the decision results of a case.
type FinanceDecisionResultsResponse struct {
	CaseID  string                  `json:"case_id,omitempty"`
	RunID   string                  `json:"run_id,omitempty"`
	Count   int                     `json:"count"`
	Results []FinanceDecisionResult `json:"results"`
}

// TracePOItem is trace.inputs.po_item.
type TracePOItem struct {
	ItemID        string `json:"item_id,omitempty"`
	SKU           string `json:"sku,omitempty"`
	ItemName      string `json:"item_name,omitempty"`
	Name          string `json:"name,omitempty"`
	Quantity      Num    `json:"quantity"`
	UOM           string `json:"uom,omitempty"`
	UnitPrice     *Money `json:"unit_price,omitempty"`
	TotalPrice    *Money `json:"total_price,omitempty"`
	SourceLineRef string `json:"source_line_ref,omitempty"`
	CreatedAt     string `json:"created_at,omitempty"`
}

// TraceInputs is trace.inputs.
type TraceInputs struct {
	POItem TracePOItem `json:"po_item"`
}

// TraceQty is trace.explainability.qty.
type TraceQty struct {
	PO         Num `json:"po"`
	GR         Num `json:"gr"`
	Inv        Num `json:"inv"`
	OverGRQty  Num `json:"over_gr_qty"`
	OverInvQty Num `json:"over_inv_qty"`
}

// TracePrice is trace.explainability.price.
type TracePrice struct {
	POUnitPrice  Num `json:"po_unit_price"`
	InvUnitPrice Num `json:"inv_unit_price"`
	DiffAbs      Num `json:"diff_abs"`
	DiffPct      Num `json:"diff_pct"`
}

// TraceItem is trace.explainability.item.
type TraceItem struct {
	ItemName    string `json:"item_name,omitempty"`
	Description string `json:"description,omitempty"`
	UOM         string `json:"uom,omitempty"`
}

// Explainability is trace.explainability.
type Explainability struct {
	SKU   string     `json:"sku,omitempty"`
	Item  TraceItem  `json:"item"`
	Qty   TraceQty   `json:"qty"`
	Price TracePrice `json:"price"`
}

// TraceRuleExplanation is the message pair a trace rule may carry.
type TraceRuleExplanation struct {
	Exec  string `json:"exec,omitempty"`
	Audit string `json:"audit,omitempty"`
}

// TraceRule is one rule evaluation inside a finance trace.
type TraceRule struct {
	RuleID      string                `json:"rule_id"`
	Group       string                `json:"group,omitempty"`
	Severity    string                `json:"severity,omitempty"`
	Result      string                `json:"result,omitempty"`
	Explanation *TraceRuleExplanation `json:"explanation,omitempty"`
	ExecMessage string                `json:"exec_message,omitempty"`
	Calculation *RuleCalculation      `json:"calculation,omitempty"`
}

// FinanceTrace is the typed projection of a finance decision trace.
type FinanceTrace struct {
	Inputs         TraceInputs    `json:"inputs"`
	Explainability Explainability `json:"explainability"`
	Rules          []TraceRule    `json:"rules,omitempty"`
}

// ParseFinanceTrace projects a raw trace. Malformed input yields the zero
// trace; shape mismatches never fail.
func ParseFinanceTrace(raw json.RawMessage) FinanceTrace {
	var t FinanceTrace
	if len(raw) == 0 {
		return t
	}
	if err := json.Unmarshal(raw, &t); err != nil {
		return FinanceTrace{}
	}
	return t
}
