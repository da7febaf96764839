package review

import "encoding/json"

// Price contexts carried by DecisionRunPrice.Context.
const (
	PriceContextBaseline = "BASELINE"
	PriceContextThreeWay = "3WAY_MATCH"
)

// PolicyRef identifies the policy a run evaluated against.
type PolicyRef struct {
	PolicyID      string `json:"policy_id"`
	PolicyVersion string `json:"policy_version,omitempty"`
}

// Exposure is the run-level aggregate exposure.
type Exposure struct {
	Currency        string `json:"currency,omitempty"`
	UnitVarianceSum Num    `json:"unit_variance_sum"`
}

// ReasonCount is one entry of the run's top reason codes.
type ReasonCount struct {
	Code  string `json:"code"`
	Count int    `json:"count"`
}

// DecisionRunSummary summarizes one run.
type DecisionRunSummary struct {
	OverallDecision string        `json:"overall_decision,omitempty"`
	RiskLevel       string        `json:"risk_level,omitempty"`
	ConfidenceAvg   Num           `json:"confidence_avg"`
	ItemCount       int           `json:"item_count"`
	Exposure        *Exposure     `json:"exposure,omitempty"`
	TopReasonCodes  []ReasonCount `json:"top_reason_codes,omitempty"`
}

// DecisionRunItemIdentity identifies the line item.
type DecisionRunItemIdentity struct {
	SKU  string `json:"sku,omitempty"`
	Name string `json:"name,omitempty"`
	UOM  string `json:"uom,omitempty"`
}

// QuantityFlags are the precomputed three-way match flags.
type QuantityFlags struct {
	GRExceedsPO  bool `json:"gr_exceeds_po,omitempty"`
	InvExceedsGR bool `json:"inv_exceeds_gr,omitempty"`
	InvWithoutGR bool `json:"inv_without_gr,omitempty"`
}

// DecisionRunQuantity is the PO / GR / invoice quantity triple.
type DecisionRunQuantity struct {
	PO         Num            `json:"po"`
	GR         Num            `json:"gr"`
	Inv        Num            `json:"inv"`
	OverGRQty  Num            `json:"over_gr_qty"`
	OverInvQty Num            `json:"over_inv_qty"`
	Flags      *QuantityFlags `json:"flags,omitempty"`
}

// DecisionRunPrice is the price record of an item. Baseline context
// compares against a contracted unit price; three-way context compares the
// invoice against the PO.
type DecisionRunPrice struct {
	Context         string `json:"context,omitempty"`
	POUnit          Num    `json:"po_unit"`
	InvUnit         Num    `json:"inv_unit"`
	BaselineUnit    Num    `json:"baseline_unit"`
	VariancePct     Num    `json:"variance_pct"`
	VarianceAbs     Num    `json:"variance_abs"`
	DiffPct         Num    `json:"diff_pct"`
	DiffAbs         Num    `json:"diff_abs"`
	ToleranceAbs    Num    `json:"tolerance_abs"`
	Currency        string `json:"currency,omitempty"`
	WithinTolerance *bool  `json:"within_tolerance,omitempty"`
	HasBaseline     bool   `json:"has_baseline,omitempty"`
}

// DecisionRunDriver is a rule contributing to an item's risk.
type DecisionRunDriver struct {
	RuleID   string `json:"rule_id"`
	Label    string `json:"label,omitempty"`
	Severity string `json:"severity,omitempty"`
}

// DecisionRunItemStatus is the item verdict.
type DecisionRunItemStatus struct {
	Decision   string `json:"decision,omitempty"`
	Risk       string `json:"risk,omitempty"`
	Confidence Num    `json:"confidence"`
}

// DecisionRunRule is one rule result attached to an item.
type DecisionRunRule struct {
	RuleID       string            `json:"rule_id"`
	Group        string            `json:"group,omitempty"`
	Domain       string            `json:"domain,omitempty"`
	Result       string            `json:"result,omitempty"`
	Severity     string            `json:"severity,omitempty"`
	ExecMessage  string            `json:"exec_message,omitempty"`
	AuditMessage string            `json:"audit_message,omitempty"`
	Calculation  *RuleCalculation  `json:"calculation,omitempty"`
	FailActions  []json.RawMessage `json:"fail_actions,omitempty"`
}

// DecisionRunArtifacts records which documents exist for the item.
type DecisionRunArtifacts struct {
	PO      bool `json:"po,omitempty"`
	GRN     bool `json:"grn,omitempty"`
	Invoice bool `json:"invoice,omitempty"`
}

// DecisionRunItem is one evaluated line item of a run.
type DecisionRunItem struct {
	GroupID    string                  `json:"group_id"`
	Status     *DecisionRunItemStatus  `json:"status,omitempty"`
	Item       DecisionRunItemIdentity `json:"item"`
	Quantity   DecisionRunQuantity     `json:"quantity"`
	Price      DecisionRunPrice        `json:"price"`
	Drivers    []DecisionRunDriver     `json:"drivers,omitempty"`
	NextAction string                  `json:"next_action,omitempty"`
	Rules      []DecisionRunRule       `json:"rules,omitempty"`
	Artifacts  *DecisionRunArtifacts   `json:"artifacts,omitempty"`
	CreatedAt  string                  `json:"created_at,omitempty"`
}

// DecisionRunView is returned by GET /api/v1/cases/{id}/view.
type DecisionRunView struct {
	CaseID    string              `json:"case_id"`
	RunID     string              `json:"run_id"`
	Policy    *PolicyRef          `json:"policy,omitempty"`
	Technique string              `json:"technique,omitempty"`
	CreatedAt string              `json:"created_at,omitempty"`
	Summary   *DecisionRunSummary `json:"summary,omitempty"`
	Items     []DecisionRunItem   `json:"items"`
}
