package review

import (
	"encoding/json"
	"strings"

	"github.com/shopspring/decimal"

	rtypes "github.com/turtacn/CaseLens/pkg/types/review"
)

// Defaults applied when a payload leaves a field out.
const (
	DefaultCurrency = "THB"
	DefaultDecision = "REVIEW"
	DefaultRisk     = "LOW"
	FinanceItemName = "Finance AP Item"
	DefaultUOM      = "unit"
)

// Normalizer maps raw backend payloads into canonical Groups. It is a value
// type; the zero value uses THB and the default exposure threshold.
type Normalizer struct {
	Currency          string
	ExposureThreshold decimal.Decimal
}

// NewNormalizer returns a Normalizer for the given default currency and
// exposure threshold. Empty or non-positive arguments select the defaults.
func NewNormalizer(currency string, threshold float64) Normalizer {
	n := Normalizer{Currency: strings.TrimSpace(currency)}
	if threshold > 0 {
		n.ExposureThreshold = decimal.NewFromFloat(threshold)
	}
	return n
}

func (n Normalizer) currency(candidates ...string) string {
	for _, c := range candidates {
		if c = strings.TrimSpace(c); c != "" {
			return c
		}
	}
	if n.Currency != "" {
		return n.Currency
	}
	return DefaultCurrency
}

func (n Normalizer) threshold() decimal.Decimal {
	if n.ExposureThreshold.IsPositive() {
		return n.ExposureThreshold
	}
	return DefaultExposureThreshold
}

// Normalize detects the shape of raw and maps it into Groups.
func (n Normalizer) Normalize(raw json.RawMessage) []Group {
	return n.NormalizePayload(Decode(raw))
}

// NormalizePayload maps an already decoded payload. Exactly one mapping
// function runs, chosen by the payload's shape.
func (n Normalizer) NormalizePayload(p Payload) []Group {
	switch p.Shape {
	case ShapeProcurement:
		out := make([]Group, 0, len(p.Procurement))
		for _, g := range p.Procurement {
			out = append(out, n.MapProcurement(g))
		}
		return out
	case ShapeFinance:
		out := make([]Group, 0, len(p.Finance))
		for _, r := range p.Finance {
			out = append(out, n.MapFinance(r))
		}
		return out
	case ShapeDecisionRun:
		if p.View == nil {
			return nil
		}
		out := make([]Group, 0, len(p.View.Items))
		for _, it := range p.View.Items {
			out = append(out, n.MapDecisionRunItem(it))
		}
		return out
	}
	return nil
}

func (n Normalizer) money(m *rtypes.Money, fallbackCurrency string) Money {
	if m == nil {
		return Money{Currency: n.currency(fallbackCurrency)}
	}
	return Money{Value: m.Value.Float(), Currency: n.currency(m.Currency, fallbackCurrency)}
}

func confidencePtr(c rtypes.Num) *float64 {
	pct, ok := NormalizeConfidence(c)
	if !ok {
		return nil
	}
	return &pct
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v = strings.TrimSpace(v); v != "" {
			return v
		}
	}
	return ""
}

// MapProcurement maps a procurement group that already carries its sku.
func (n Normalizer) MapProcurement(g rtypes.CaseGroup) Group {
	out := Group{
		GroupID:       g.GroupID,
		Decision:      firstNonEmpty(g.Decision, DefaultDecision),
		RiskLevel:     firstNonEmpty(g.RiskLevel, DefaultRisk),
		ConfidencePct: confidencePtr(g.Confidence),
		EvidenceRefs:  g.EvidenceRefs,
		Domain:        DomainProcurement,
		RawTrace:      g.RawTrace,
	}
	for _, r := range g.Reasons {
		out.Reasons = append(out.Reasons, Reason{RuleID: r.RuleID, Severity: r.Severity, Label: r.Exec})
	}

	sku := g.SKU
	if sku == nil {
		sku = &rtypes.GroupSku{}
	}
	var unitCurrency string
	if sku.UnitPrice != nil {
		unitCurrency = sku.UnitPrice.Currency
	}
	unit := n.money(sku.UnitPrice, "")
	total := n.money(sku.TotalPrice, unitCurrency)
	if sku.UnitPrice != nil {
		if line, ok := ResolveLine(sku.UnitPrice.Value, sku.Quantity, rtypes.Num{}, rtypes.Num{}); ok {
			total = moneyOf(line.Total, unit.Currency)
		}
	}
	out.SKU = SkuSnapshot{
		ItemID:        firstNonEmpty(sku.ItemID, g.GroupID),
		SKU:           sku.SKU,
		Name:          firstNonEmpty(sku.ItemName, sku.Name, sku.SKU),
		Description:   sku.Description,
		Quantity:      sku.Quantity.Float(),
		UOM:           sku.UOM,
		UnitPrice:     unit,
		TotalPrice:    total,
		SourceLineRef: sku.SourceLineRef,
	}
	if g.Baseline != nil {
		b := n.money(g.Baseline, unit.Currency)
		out.Baseline = &b
	}
	return out
}

// MapFinance maps a finance decision result, injecting the sku snapshot
// from the trace's PO item and using the PO unit price as baseline.
func (n Normalizer) MapFinance(r rtypes.FinanceDecisionResult) Group {
	tr := rtypes.ParseFinanceTrace(r.Trace)
	po := tr.Inputs.POItem
	exp := tr.Explainability

	var poCurrency string
	if po.UnitPrice != nil {
		poCurrency = po.UnitPrice.Currency
	}
	currency := n.currency(poCurrency)

	unit := Money{Value: exp.Price.InvUnitPrice.Float(), Currency: currency}
	if po.UnitPrice != nil {
		unit = n.money(po.UnitPrice, currency)
	}
	qty := po.Quantity.Float()
	total := n.money(po.TotalPrice, currency)

	// The invoice quantity only pairs with an invoice unit price.
	poUnit := exp.Price.POUnitPrice
	if !poUnit.Valid && po.UnitPrice != nil {
		poUnit = po.UnitPrice.Value
	}
	poQty := exp.Qty.PO
	if !poQty.Valid {
		poQty = po.Quantity
	}
	if line, ok := ResolveLine(exp.Price.InvUnitPrice, exp.Qty.Inv, poUnit, poQty); ok {
		unit.Value = line.Unit.InexactFloat64()
		qty = line.Qty.InexactFloat64()
		total = moneyOf(line.Total, currency)
	}

	out := Group{
		GroupID:       r.GroupID,
		Decision:      firstNonEmpty(r.DecisionStatus, r.Decision, DefaultDecision),
		RiskLevel:     firstNonEmpty(r.RiskLevel, DefaultRisk),
		ConfidencePct: confidencePtr(r.Confidence),
		SKU: SkuSnapshot{
			ItemID:        firstNonEmpty(po.ItemID, r.GroupID),
			SKU:           firstNonEmpty(po.SKU, exp.SKU, Missing),
			Name:          firstNonEmpty(exp.Item.ItemName, po.ItemName, po.SKU, FinanceItemName),
			Description:   exp.Item.Description,
			Quantity:      qty,
			UOM:           po.UOM,
			UnitPrice:     unit,
			TotalPrice:    total,
			SourceLineRef: po.SourceLineRef,
		},
		Baseline:     &Money{Value: exp.Price.POUnitPrice.Float(), Currency: currency},
		EvidenceRefs: r.EvidenceRefs,
		Domain:       DomainFinanceAP,
		RawTrace:     r.Trace,
	}
	for _, code := range r.ReasonCodes {
		out.Reasons = append(out.Reasons, Reason{RuleID: code})
	}
	if e := ComputeExposure(ExposureFromTrace(tr), n.threshold()); e.IsPositive() {
		m := moneyOf(e, currency)
		out.Exposure = &m
	}
	return out
}

// MapDecisionRunItem maps one item of a unified decision-run view.
func (n Normalizer) MapDecisionRunItem(it rtypes.DecisionRunItem) Group {
	currency := n.currency(it.Price.Currency)
	status := it.Status
	if status == nil {
		status = &rtypes.DecisionRunItemStatus{}
	}

	line, _ := ResolveLine(it.Price.InvUnit, it.Quantity.Inv, it.Price.POUnit, it.Quantity.PO)

	out := Group{
		GroupID:       it.GroupID,
		Decision:      firstNonEmpty(status.Decision, DefaultDecision),
		RiskLevel:     firstNonEmpty(status.Risk, DefaultRisk),
		ConfidencePct: confidencePtr(status.Confidence),
		SKU: SkuSnapshot{
			ItemID:     it.GroupID,
			SKU:        it.Item.SKU,
			Name:       firstNonEmpty(it.Item.Name, it.Item.SKU),
			Quantity:   line.Qty.InexactFloat64(),
			UOM:        it.Item.UOM,
			UnitPrice:  moneyOf(line.Unit, currency),
			TotalPrice: moneyOf(line.Total, currency),
		},
		Domain: DomainDecisionRun,
	}
	if it.Price.HasBaseline || it.Price.BaselineUnit.Valid {
		out.Baseline = &Money{Value: it.Price.BaselineUnit.Float(), Currency: currency}
	}
	for _, d := range it.Drivers {
		out.Reasons = append(out.Reasons, Reason{RuleID: d.RuleID, Severity: d.Severity, Label: d.Label})
	}
	if e := ComputeExposure(ExposureFromItem(it), n.threshold()); e.IsPositive() {
		m := moneyOf(e, currency)
		out.Exposure = &m
	}
	if raw, err := json.Marshal(it); err == nil {
		out.RawTrace = raw
	}
	return out
}
