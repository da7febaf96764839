package review

import (
	"sort"
	"strconv"
	"strings"
	"time"

	rtypes "github.com/turtacn/CaseLens/pkg/types/review"
)

var (
	actorDecisionEngine = Actor{Name: "Decision Engine", Role: "System"}
	actorRuleEngine     = Actor{Name: "Rule Engine", Role: "System"}
)

// Deriver synthesizes an audit timeline from a decision-run view. The
// timeline is derived, not recorded: deriving the same view twice yields
// the same events with the same ids in the same order.
type Deriver struct {
	Normalizer Normalizer
	Explainer  Explainer
}

// NewDeriver returns a Deriver using currency as the default currency and
// threshold as the exposure unit/total threshold.
func NewDeriver(currency string, threshold float64) Deriver {
	return Deriver{
		Normalizer: NewNormalizer(currency, threshold),
		Explainer:  Explainer{Currency: currency},
	}
}

type contextBuilder struct {
	entries []ContextEntry
}

func (b *contextBuilder) add(key, value string, highlight bool) {
	if blank(value) {
		return
	}
	b.entries = append(b.entries, ContextEntry{Key: key, Value: value, Highlight: highlight})
}

func (b *contextBuilder) money(key string, n rtypes.Num, currency string, highlight bool) {
	if n.Valid {
		b.add(key, FormatMoney(n.Value, currency), highlight)
	}
}

func (b *contextBuilder) percent(key string, n rtypes.Num, highlight bool) {
	if n.Valid {
		b.add(key, FormatPercent(n.Value), highlight)
	}
}

func notPass(decision string) bool {
	d := strings.TrimSpace(decision)
	return d != "" && !strings.EqualFold(d, "PASS")
}

func outOfTolerance(p rtypes.DecisionRunPrice) bool {
	return p.WithinTolerance != nil && !*p.WithinTolerance
}

// DeriveTimeline emits RUN_CREATED, then ITEM_EVALUATED for every item, then
// one RULE_FAILED / RULE_PASSED per rule of every item, and returns them
// newest first. Events sharing a timestamp keep that emission order, so a tie
// lists the run before all items and all items before any rule.
func (d Deriver) DeriveTimeline(v rtypes.DecisionRunView) []AuditEvent {
	runTS := ParseTimestamp(v.CreatedAt)
	events := make([]AuditEvent, 0, 1+len(v.Items)*3)
	events = append(events, d.runEvent(v, runTS))

	var rules []AuditEvent
	for _, it := range v.Items {
		itemTS := ParseTimestamp(it.CreatedAt)
		if itemTS.IsZero() {
			itemTS = runTS
		}
		events = append(events, d.itemEvent(v, it, itemTS))
		for i, r := range it.Rules {
			rules = append(rules, d.ruleEvent(v, it, r, i, itemTS))
		}
	}
	events = append(events, rules...)

	sort.SliceStable(events, func(i, j int) bool {
		return events[i].Timestamp.After(events[j].Timestamp)
	})
	return events
}

func (d Deriver) runEvent(v rtypes.DecisionRunView, ts time.Time) AuditEvent {
	summary := v.Summary
	if summary == nil {
		summary = &rtypes.DecisionRunSummary{}
	}
	itemCount := summary.ItemCount
	if itemCount == 0 {
		itemCount = len(v.Items)
	}

	msg := "Decision run " + firstNonEmpty(v.RunID, Missing) + " created"
	if summary.OverallDecision != "" {
		msg += ": " + summary.OverallDecision
		if summary.RiskLevel != "" {
			msg += " (risk " + summary.RiskLevel + ")"
		}
	}
	msg += ", " + strconv.Itoa(itemCount) + " item(s)"

	var b contextBuilder
	b.add("Run", v.RunID, false)
	b.add("Technique", v.Technique, false)
	meta := map[string]any{"run_id": v.RunID, "case_id": v.CaseID}
	if v.Policy != nil && v.Policy.PolicyID != "" {
		policy := v.Policy.PolicyID
		if v.Policy.PolicyVersion != "" {
			policy += " v" + v.Policy.PolicyVersion
		}
		b.add("Policy", policy, false)
		meta["policy_id"] = v.Policy.PolicyID
		meta["policy_version"] = v.Policy.PolicyVersion
	}
	b.add("Decision", summary.OverallDecision, notPass(summary.OverallDecision))
	b.add("Risk", summary.RiskLevel, RiskRank(summary.RiskLevel) >= 2)
	if pct, ok := NormalizeConfidence(summary.ConfidenceAvg); ok {
		b.add("Confidence", FormatPercent(pct), false)
		meta["confidence"] = pct
	}
	b.add("Items", strconv.Itoa(itemCount), false)
	if x := summary.Exposure; x != nil && x.UnitVarianceSum.Valid {
		currency := d.Normalizer.currency(x.Currency)
		b.add("Exposure", FormatMoney(x.UnitVarianceSum.Value, currency), false)
	}
	if v.Technique != "" {
		meta["technique"] = v.Technique
	}
	if summary.OverallDecision != "" {
		meta["decision"] = summary.OverallDecision
	}
	if summary.RiskLevel != "" {
		meta["risk_level"] = summary.RiskLevel
	}

	return AuditEvent{
		ID:        EventID(EventKey{Action: ActionRunCreated, CaseID: v.CaseID, RunID: v.RunID, Timestamp: ts}),
		Action:    ActionRunCreated,
		Actor:     actorDecisionEngine,
		Timestamp: ts,
		Message:   msg,
		Status:    StatusCompleted,
		Severity:  SeverityInfo,
		CaseID:    v.CaseID,
		RunID:     v.RunID,
		Context:   b.entries,
		Metadata:  meta,
	}
}

func (d Deriver) itemEvent(v rtypes.DecisionRunView, it rtypes.DecisionRunItem, ts time.Time) AuditEvent {
	status := it.Status
	if status == nil {
		status = &rtypes.DecisionRunItemStatus{}
	}
	currency := d.Normalizer.currency(it.Price.Currency)

	label := strings.TrimSpace(strings.Join([]string{it.Item.SKU, it.Item.Name}, " "))
	label = firstNonEmpty(label, it.GroupID)
	msg := label + " evaluated"
	if status.Decision != "" {
		msg += ": " + status.Decision
		if status.Risk != "" {
			msg += " (risk " + status.Risk + ")"
		}
	}

	var b contextBuilder
	b.add("Group", it.GroupID, false)
	b.add("SKU", it.Item.SKU, false)
	b.add("Item", it.Item.Name, false)
	b.add("Decision", status.Decision, notPass(status.Decision))
	b.add("Risk", status.Risk, RiskRank(status.Risk) >= 2)
	meta := map[string]any{"run_id": v.RunID, "group_id": it.GroupID}
	if pct, ok := NormalizeConfidence(status.Confidence); ok {
		b.add("Confidence", FormatPercent(pct), false)
		meta["confidence"] = pct
	}
	b.add("PO", NumString(it.Quantity.PO), false)
	b.add("GR", NumString(it.Quantity.GR), false)
	b.add("INV", NumString(it.Quantity.Inv), false)

	p := it.Price
	flagged := outOfTolerance(p)
	b.add("Price context", p.Context, false)
	if strings.EqualFold(p.Context, rtypes.PriceContextBaseline) {
		b.money("Baseline unit", p.BaselineUnit, currency, false)
		b.money("PO unit", p.POUnit, currency, false)
		b.percent("Variance %", p.VariancePct, flagged)
		b.money("Variance", p.VarianceAbs, currency, flagged)
	} else {
		ev := EvidenceFromItem(it)
		b.money("PO unit", p.POUnit, currency, false)
		b.money("INV unit", p.InvUnit, currency, false)
		b.percent("Diff %", ev.DiffPct, flagged)
		b.money("Diff", ev.DiffAbs, currency, flagged)
	}
	b.money("Tolerance", p.ToleranceAbs, currency, false)

	if e := ComputeExposure(ExposureFromItem(it), d.Normalizer.threshold()); e.IsPositive() {
		b.add("Exposure", FormatMoney(e.InexactFloat64(), currency), true)
		meta["exposure"] = e.InexactFloat64()
	}
	b.add("Next action", it.NextAction, false)

	if status.Decision != "" {
		meta["decision"] = status.Decision
	}
	if status.Risk != "" {
		meta["risk_level"] = status.Risk
	}
	if it.Item.SKU != "" {
		meta["sku"] = it.Item.SKU
	}

	return AuditEvent{
		ID:        EventID(EventKey{Action: ActionItemEvaluated, CaseID: v.CaseID, RunID: v.RunID, GroupID: it.GroupID, Timestamp: ts}),
		Action:    ActionItemEvaluated,
		Actor:     actorDecisionEngine,
		Timestamp: ts,
		Message:   msg,
		Status:    StatusCompleted,
		Severity:  SeverityForRisk(status.Risk),
		CaseID:    v.CaseID,
		RunID:     v.RunID,
		GroupID:   it.GroupID,
		Context:   b.entries,
		Metadata:  meta,
	}
}

func (d Deriver) ruleEvent(v rtypes.DecisionRunView, it rtypes.DecisionRunItem, r rtypes.DecisionRunRule, ordinal int, ts time.Time) AuditEvent {
	failed := strings.EqualFold(strings.TrimSpace(r.Result), "FAIL")
	category := strings.ToUpper(strings.TrimSpace(r.Group))
	currency := d.Normalizer.currency(it.Price.Currency)

	action, status, severity := ActionRulePassed, StatusCompleted, SeverityInfo
	var msg string
	if failed {
		action, status, severity = ActionRuleFailed, StatusFlagged, SeverityForFailedRule(r.Severity)
		msg = d.Explainer.Explain(RuleRefFromItem(r), EvidenceFromItem(it))
	} else {
		msg = firstNonEmpty(r.AuditMessage, r.ExecMessage, "Rule "+firstNonEmpty(r.RuleID, Missing)+" passed")
	}

	var b contextBuilder
	b.add("Rule", r.RuleID, false)
	b.add("Category", category, false)
	b.add("Result", r.Result, failed)
	b.add("Severity", r.Severity, failed && RiskRank(r.Severity) >= 3)
	field := ""
	if c := r.Calculation; c != nil {
		field = c.Field
		b.add("Field", c.Field, false)
		b.add("Operator", c.Operator, false)
		b.add("Actual", StringValue(c.Actual), failed)
		b.add("Expected", StringValue(c.Expected), false)
	}

	switch category {
	case CategoryQuantity, CategoryProcess:
		b.add("PO", NumString(it.Quantity.PO), false)
		b.add("GR", NumString(it.Quantity.GR), failed && field == FieldGRExceedsPO)
		b.add("INV", NumString(it.Quantity.Inv), failed && (field == FieldInvExceedsGR || field == FieldInvWithoutGR))
	case CategoryPrice:
		p := it.Price
		if p.HasBaseline || p.BaselineUnit.Valid {
			b.money("Baseline unit", p.BaselineUnit, currency, false)
			b.money("PO unit", p.POUnit, currency, false)
			b.percent("Variance %", p.VariancePct, failed)
			b.money("Variance", p.VarianceAbs, currency, failed)
		} else {
			ev := EvidenceFromItem(it)
			b.money("PO unit", p.POUnit, currency, false)
			b.money("INV unit", p.InvUnit, currency, false)
			b.percent("Diff %", ev.DiffPct, failed)
			b.money("Diff", ev.DiffAbs, currency, failed)
		}
	}

	meta := map[string]any{
		"run_id":   v.RunID,
		"group_id": it.GroupID,
		"rule_id":  r.RuleID,
		"result":   r.Result,
	}
	if r.Domain != "" {
		meta["domain"] = r.Domain
	}
	if r.Severity != "" {
		meta["severity"] = r.Severity
	}

	return AuditEvent{
		ID: EventID(EventKey{
			Action: action, CaseID: v.CaseID, RunID: v.RunID, GroupID: it.GroupID,
			RuleID: r.RuleID, Ordinal: ordinal, Timestamp: ts,
		}),
		Action:    action,
		Actor:     actorRuleEngine,
		Timestamp: ts,
		Message:   msg,
		Status:    status,
		Severity:  severity,
		CaseID:    v.CaseID,
		RunID:     v.RunID,
		GroupID:   it.GroupID,
		RuleID:    r.RuleID,
		Context:   b.entries,
		Metadata:  meta,
	}
}
