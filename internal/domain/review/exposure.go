package review

import (
	"strings"

	"github.com/shopspring/decimal"

	rtypes "github.com/turtacn/CaseLens/pkg/types/review"
)

// DefaultExposureThreshold separates per-unit from already-total diff
// amounts. The backends do not say which one they report; amounts above the
// threshold are taken as totals. This is a heuristic and will misclassify a
// per-unit diff larger than the threshold.
var DefaultExposureThreshold = decimal.NewFromInt(10000)

// ExposureInput is the price and quantity evidence exposure is computed from.
type ExposureInput struct {
	Context     string
	VarianceAbs rtypes.Num
	DiffAbs     rtypes.Num
	InvQty      rtypes.Num
	GRQty       rtypes.Num
	POQty       rtypes.Num
}

// ExposureFromItem collects the exposure evidence of a decision-run item.
func ExposureFromItem(item rtypes.DecisionRunItem) ExposureInput {
	return ExposureInput{
		Context:     item.Price.Context,
		VarianceAbs: item.Price.VarianceAbs,
		DiffAbs:     item.Price.DiffAbs,
		InvQty:      item.Quantity.Inv,
		GRQty:       item.Quantity.GR,
		POQty:       item.Quantity.PO,
	}
}

// ExposureFromTrace collects the exposure evidence of a finance trace.
func ExposureFromTrace(tr rtypes.FinanceTrace) ExposureInput {
	return ExposureInput{
		DiffAbs: tr.Explainability.Price.DiffAbs,
		InvQty:  tr.Explainability.Qty.Inv,
		GRQty:   tr.Explainability.Qty.GR,
		POQty:   tr.Explainability.Qty.PO,
	}
}

// ComputeExposure applies the exposure precedence:
//
//  1. a baseline-context variance amount is already the total;
//  2. otherwise a diff amount (or a three-way variance amount) above
//     threshold is already the total;
//  3. at or below threshold it is per unit and is multiplied by the invoice,
//     goods-receipt or PO quantity, the first one present.
//
// Amounts are taken by magnitude. The result is zero when nothing applies.
func ComputeExposure(in ExposureInput, threshold decimal.Decimal) decimal.Decimal {
	if strings.EqualFold(in.Context, rtypes.PriceContextBaseline) && in.VarianceAbs.Valid {
		return decimal.NewFromFloat(in.VarianceAbs.Value).Abs()
	}

	diff := in.DiffAbs
	if !diff.Valid {
		diff = in.VarianceAbs
	}
	if !diff.Valid {
		return decimal.Zero
	}

	amount := decimal.NewFromFloat(diff.Value).Abs()
	if amount.GreaterThan(threshold) {
		return amount
	}
	qty, ok := rtypes.FirstPositive(in.InvQty, in.GRQty, in.POQty)
	if !ok {
		return decimal.Zero
	}
	return amount.Mul(decimal.NewFromFloat(qty.Value))
}

// Line is the unit price and quantity a total was computed from.
type Line struct {
	Unit    decimal.Decimal
	Qty     decimal.Decimal
	Total   decimal.Decimal
	Invoice bool
}

// ResolveLine picks invoice unit × invoice quantity, falling back to PO
// unit × PO quantity when the invoice side is incomplete (no unit price or
// no invoiced quantity). ok is false when neither pair is available.
func ResolveLine(invUnit, invQty, poUnit, poQty rtypes.Num) (Line, bool) {
	if invUnit.Valid && invQty.Positive() {
		return newLine(invUnit.Value, invQty.Value, true), true
	}
	if poUnit.Valid && poQty.Valid {
		return newLine(poUnit.Value, poQty.Value, false), true
	}
	return Line{}, false
}

func newLine(unit, qty float64, invoice bool) Line {
	u := decimal.NewFromFloat(unit)
	q := decimal.NewFromFloat(qty)
	return Line{Unit: u, Qty: q, Total: u.Mul(q), Invoice: invoice}
}

func moneyOf(d decimal.Decimal, currency string) Money {
	return Money{Value: d.Round(4).InexactFloat64(), Currency: currency}
}
