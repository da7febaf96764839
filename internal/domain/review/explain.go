package review

import (
	"fmt"
	"strings"

	rtypes "github.com/turtacn/CaseLens/pkg/types/review"
)

// Rule categories and calculation fields with a dedicated explanation.
const (
	CategoryQuantity = "QUANTITY"
	CategoryPrice    = "PRICE"
	CategoryProcess  = "PROCESS"
	CategoryFraud    = "FRAUD"

	FieldGRExceedsPO          = "gr_exceeds_po"
	FieldInvExceedsGR         = "inv_exceeds_gr"
	FieldInvWithoutGR         = "inv_without_gr"
	FieldPriceWithinTolerance = "price_within_tolerance"
	FieldDupInvoice           = "dup_invoice"
)

// GenericExplanation is used when nothing more specific is known.
const GenericExplanation = "Exception requires review"

// RuleRef is the part of a rule result the synthesizer dispatches on.
type RuleRef struct {
	Category string
	Field    string
	Exec     string
}

// Evidence holds the numbers an explanation may quote.
type Evidence struct {
	SKU      string
	UOM      string
	Currency string

	POQty      rtypes.Num
	GRQty      rtypes.Num
	InvQty     rtypes.Num
	OverGRQty  rtypes.Num
	OverInvQty rtypes.Num

	POUnit  rtypes.Num
	InvUnit rtypes.Num
	DiffAbs rtypes.Num
	DiffPct rtypes.Num
}

// RuleRefFromTrace adapts a finance trace rule.
func RuleRefFromTrace(r rtypes.TraceRule) RuleRef {
	ref := RuleRef{Category: r.Group, Exec: r.ExecMessage}
	if r.Calculation != nil {
		ref.Field = r.Calculation.Field
	}
	if r.Explanation != nil && strings.TrimSpace(r.Explanation.Exec) != "" {
		ref.Exec = r.Explanation.Exec
	}
	return ref
}

// RuleRefFromItem adapts a decision-run rule.
func RuleRefFromItem(r rtypes.DecisionRunRule) RuleRef {
	ref := RuleRef{Category: r.Group, Exec: r.ExecMessage}
	if r.Calculation != nil {
		ref.Field = r.Calculation.Field
	}
	return ref
}

// EvidenceFromTrace reads trace.explainability and trace.inputs.po_item.
func EvidenceFromTrace(tr rtypes.FinanceTrace) Evidence {
	exp := tr.Explainability
	po := tr.Inputs.POItem
	ev := Evidence{
		SKU:        firstNonEmpty(exp.SKU, po.SKU),
		UOM:        firstNonEmpty(exp.Item.UOM, po.UOM),
		POQty:      exp.Qty.PO,
		GRQty:      exp.Qty.GR,
		InvQty:     exp.Qty.Inv,
		OverGRQty:  exp.Qty.OverGRQty,
		OverInvQty: exp.Qty.OverInvQty,
		POUnit:     exp.Price.POUnitPrice,
		InvUnit:    exp.Price.InvUnitPrice,
		DiffAbs:    exp.Price.DiffAbs,
		DiffPct:    exp.Price.DiffPct,
	}
	if po.UnitPrice != nil {
		ev.Currency = po.UnitPrice.Currency
		if !ev.InvUnit.Valid {
			ev.InvUnit = po.UnitPrice.Value
		}
	}
	return ev
}

// EvidenceFromItem reads a decision-run item. Three-way items may report
// their difference in the variance fields.
func EvidenceFromItem(it rtypes.DecisionRunItem) Evidence {
	ev := Evidence{
		SKU:        it.Item.SKU,
		UOM:        it.Item.UOM,
		Currency:   it.Price.Currency,
		POQty:      it.Quantity.PO,
		GRQty:      it.Quantity.GR,
		InvQty:     it.Quantity.Inv,
		OverGRQty:  it.Quantity.OverGRQty,
		OverInvQty: it.Quantity.OverInvQty,
		POUnit:     it.Price.POUnit,
		InvUnit:    it.Price.InvUnit,
		DiffAbs:    it.Price.DiffAbs,
		DiffPct:    it.Price.DiffPct,
	}
	if !ev.DiffAbs.Valid {
		ev.DiffAbs = it.Price.VarianceAbs
	}
	if !ev.DiffPct.Valid {
		ev.DiffPct = it.Price.VariancePct
	}
	return ev
}

// Explainer synthesizes business-readable rule explanations.
type Explainer struct {
	Currency string
}

// Explain returns the explanation for rule given its evidence. It never
// panics; missing evidence yields a shorter message.
func (e Explainer) Explain(rule RuleRef, ev Evidence) string {
	category := strings.ToUpper(strings.TrimSpace(rule.Category))
	field := strings.TrimSpace(rule.Field)

	uom := firstNonEmpty(ev.UOM, DefaultUOM)
	skuSuffix := ""
	if sku := strings.TrimSpace(ev.SKU); sku != "" {
		skuSuffix = " (SKU: " + sku + ")"
	}

	switch {
	case category == CategoryQuantity && field == FieldGRExceedsPO:
		const head = "3-way match: goods receipt (GR) exceeds purchase order (PO)"
		if !ev.GRQty.Valid || !ev.POQty.Valid {
			return head + skuSuffix
		}
		excess := ev.OverGRQty.Or(ev.GRQty.Value - ev.POQty.Value)
		return fmt.Sprintf("%s: GR %s %s vs PO %s %s (excess %s %s)%s", head,
			FormatAmount(ev.GRQty.Value), uom, FormatAmount(ev.POQty.Value), uom,
			FormatAmount(excess), uom, skuSuffix)

	case category == CategoryQuantity && field == FieldInvExceedsGR:
		const head = "3-way match: invoice quantity exceeds goods receipt (GR)"
		if !ev.InvQty.Valid || !ev.GRQty.Valid {
			return head + skuSuffix
		}
		excess := ev.OverInvQty.Or(ev.InvQty.Value - ev.GRQty.Value)
		return fmt.Sprintf("%s: invoice %s %s vs GR %s %s (excess %s %s)%s", head,
			FormatAmount(ev.InvQty.Value), uom, FormatAmount(ev.GRQty.Value), uom,
			FormatAmount(excess), uom, skuSuffix)

	case category == CategoryProcess && field == FieldInvWithoutGR:
		return "3-way match not ready: an invoice exists but no goods receipt (GRN) is recorded" + skuSuffix

	case category == CategoryPrice && field == FieldPriceWithinTolerance:
		currency := firstNonEmpty(ev.Currency, e.Currency, DefaultCurrency)
		price := func(n rtypes.Num) string {
			if !n.Valid {
				return Missing
			}
			return FormatMoney(n.Value, currency)
		}
		var parts []string
		if ev.DiffAbs.Valid {
			parts = append(parts, FormatMoney(ev.DiffAbs.Value, currency))
		}
		if ev.DiffPct.Valid {
			parts = append(parts, FormatPercent(ev.DiffPct.Value))
		}
		diff := ""
		if len(parts) > 0 {
			diff = " (difference " + strings.Join(parts, ", ") + ")"
		}
		return fmt.Sprintf("Invoice unit price does not match PO: invoice %s/unit vs PO %s/unit%s%s",
			price(ev.InvUnit), price(ev.POUnit), diff, skuSuffix)

	case category == CategoryFraud && field == FieldDupInvoice:
		return "Possible duplicate invoice: check the vendor, invoice number, billing cycle and previously recorded lines" + skuSuffix
	}

	if exec := strings.TrimSpace(rule.Exec); exec != "" {
		return exec
	}
	return GenericExplanation
}
