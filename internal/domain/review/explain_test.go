package review

import (
	"encoding/json"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"

	rtypes "github.com/turtacn/CaseLens/pkg/types/review"
)

func TestExplainer_Explain(t *testing.T) {
	n := rtypes.NumOf
	e := Explainer{Currency: "THB"}

	tests := []struct {
		name string
		rule RuleRef
		ev   Evidence
		want string
	}{
		{
			name: "gr_exceeds_po",
			rule: RuleRef{Category: "QUANTITY", Field: FieldGRExceedsPO},
			ev:   Evidence{SKU: "SKU-1", POQty: n(100), GRQty: n(120)},
			want: "3-way match: goods receipt (GR) exceeds purchase order (PO): GR 120 unit vs PO 100 unit (excess 20 unit) (SKU: SKU-1)",
		},
		{
			name: "gr_exceeds_po_reported_excess",
			rule: RuleRef{Category: "quantity", Field: FieldGRExceedsPO},
			ev:   Evidence{UOM: "kg", POQty: n(1000), GRQty: n(1250.5), OverGRQty: n(250)},
			want: "3-way match: goods receipt (GR) exceeds purchase order (PO): GR 1,250.5 kg vs PO 1,000 kg (excess 250 kg)",
		},
		{
			name: "gr_exceeds_po_without_quantities",
			rule: RuleRef{Category: "QUANTITY", Field: FieldGRExceedsPO},
			ev:   Evidence{GRQty: n(5)},
			want: "3-way match: goods receipt (GR) exceeds purchase order (PO)",
		},
		{
			name: "inv_exceeds_gr",
			rule: RuleRef{Category: "QUANTITY", Field: FieldInvExceedsGR},
			ev:   Evidence{SKU: "S", GRQty: n(8), InvQty: n(10)},
			want: "3-way match: invoice quantity exceeds goods receipt (GR): invoice 10 unit vs GR 8 unit (excess 2 unit) (SKU: S)",
		},
		{
			name: "inv_without_gr",
			rule: RuleRef{Category: "PROCESS", Field: FieldInvWithoutGR},
			want: "3-way match not ready: an invoice exists but no goods receipt (GRN) is recorded",
		},
		{
			name: "price_with_difference",
			rule: RuleRef{Category: "PRICE", Field: FieldPriceWithinTolerance},
			ev:   Evidence{POUnit: n(100), InvUnit: n(112.5), DiffAbs: n(12.5), DiffPct: n(12.5)},
			want: "Invoice unit price does not match PO: invoice 112.5 THB/unit vs PO 100 THB/unit (difference 12.5 THB, 12.50%)",
		},
		{
			name: "price_missing_invoice",
			rule: RuleRef{Category: "PRICE", Field: FieldPriceWithinTolerance},
			ev:   Evidence{Currency: "USD", POUnit: n(4), DiffPct: n(math.NaN())},
			want: "Invoice unit price does not match PO: invoice —/unit vs PO 4 USD/unit",
		},
		{
			name: "dup_invoice",
			rule: RuleRef{Category: "FRAUD", Field: FieldDupInvoice},
			want: "Possible duplicate invoice: check the vendor, invoice number, billing cycle and previously recorded lines",
		},
		{
			name: "unknown_uses_exec",
			rule: RuleRef{Category: "PRICE", Field: "something_else", Exec: "Backend says so"},
			want: "Backend says so",
		},
		{
			name: "unknown_generic",
			rule: RuleRef{Category: "OTHER"},
			want: GenericExplanation,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := e.Explain(tt.rule, tt.ev)
			assert.Equal(t, tt.want, got)
			assert.NotContains(t, got, "NaN")
		})
	}
}

func TestRuleRefFromTrace_ExplanationOverridesExec(t *testing.T) {
	ref := RuleRefFromTrace(rtypes.TraceRule{
		Group:       "FRAUD",
		ExecMessage: "exec",
		Explanation: &rtypes.TraceRuleExplanation{Exec: "explained"},
		Calculation: &rtypes.RuleCalculation{Field: "x"},
	})
	assert.Equal(t, RuleRef{Category: "FRAUD", Field: "x", Exec: "explained"}, ref)

	ref = RuleRefFromTrace(rtypes.TraceRule{ExecMessage: "exec", Explanation: &rtypes.TraceRuleExplanation{Exec: " "}})
	assert.Equal(t, "exec", ref.Exec)
}

func TestEvidenceFromTrace(t *testing.T) {
	tr := rtypes.ParseFinanceTrace(json.RawMessage(financeTraceJSON))
	ev := EvidenceFromTrace(tr)

	assert.Equal(t, "FIN-7", ev.SKU)
	assert.Equal(t, "pcs", ev.UOM)
	assert.Equal(t, "EUR", ev.Currency)
	assert.Equal(t, 120.0, ev.GRQty.Value)
	assert.Equal(t, 10.0, ev.InvUnit.Value)
}

func TestEvidenceFromItem_VarianceFallback(t *testing.T) {
	ev := EvidenceFromItem(rtypes.DecisionRunItem{
		Price: rtypes.DecisionRunPrice{VarianceAbs: rtypes.NumOf(3), VariancePct: rtypes.NumOf(1.5), DiffPct: rtypes.NumOf(2)},
	})
	assert.Equal(t, 3.0, ev.DiffAbs.Value)
	assert.Equal(t, 2.0, ev.DiffPct.Value)
}

const financeTraceJSON = `{"inputs":{"po_item":{"sku":"FIN-7","uom":"pcs","unit_price":{"value":10,"currency":"EUR"}}},
 "explainability":{"qty":{"po":100,"gr":120}}}`
