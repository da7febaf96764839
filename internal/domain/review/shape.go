package review

import (
	"bytes"
	"encoding/json"

	rtypes "github.com/turtacn/CaseLens/pkg/types/review"
)

// Shape is the producer shape of a raw groups/items payload.
type Shape int

const (
	ShapeUnknown Shape = iota
	ShapeProcurement
	ShapeFinance
	ShapeDecisionRun
)

func (s Shape) String() string {
	switch s {
	case ShapeProcurement:
		return "procurement"
	case ShapeFinance:
		return "finance"
	case ShapeDecisionRun:
		return "decision_run"
	default:
		return "unknown"
	}
}

// shapeHint is the minimum needed to tell shapes apart.
type shapeHint struct {
	SKU    json.RawMessage   `json:"sku"`
	Items  json.RawMessage   `json:"items"`
	Groups []json.RawMessage `json:"groups"`
}

func present(raw json.RawMessage) bool {
	raw = bytes.TrimSpace(raw)
	return len(raw) > 0 && !bytes.Equal(raw, []byte("null")) && !bytes.Equal(raw, []byte("false")) &&
		!bytes.Equal(raw, []byte(`""`))
}

// DetectGroupsShape discriminates a list of group records: any element
// carrying a sku makes the list procurement-shaped, otherwise a non-empty
// list is a finance result list.
func DetectGroupsShape(elems []json.RawMessage) Shape {
	if len(elems) == 0 {
		return ShapeUnknown
	}
	for _, e := range elems {
		var p shapeHint
		if json.Unmarshal(e, &p) == nil && present(p.SKU) {
			return ShapeProcurement
		}
	}
	return ShapeFinance
}

// DetectShape discriminates a whole payload: an object carrying items is a
// decision-run view; an object carrying groups, or a bare array, is a group
// list resolved by DetectGroupsShape.
func DetectShape(raw json.RawMessage) Shape {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 {
		return ShapeUnknown
	}
	switch raw[0] {
	case '[':
		var elems []json.RawMessage
		if json.Unmarshal(raw, &elems) != nil {
			return ShapeUnknown
		}
		return DetectGroupsShape(elems)
	case '{':
		var p shapeHint
		if json.Unmarshal(raw, &p) != nil {
			return ShapeUnknown
		}
		if present(p.Items) {
			return ShapeDecisionRun
		}
		return DetectGroupsShape(p.Groups)
	}
	return ShapeUnknown
}

// Payload is a raw payload resolved into exactly one of its shapes.
type Payload struct {
	Shape       Shape
	RunID       string
	Procurement []rtypes.CaseGroup
	Finance     []rtypes.FinanceDecisionResult
	View        *rtypes.DecisionRunView
}

// Decode resolves raw into a Payload. Elements that fail to decode are
// skipped; decoding never fails as a whole.
func Decode(raw json.RawMessage) Payload {
	shape := DetectShape(raw)
	switch shape {
	case ShapeDecisionRun:
		var v rtypes.DecisionRunView
		if json.Unmarshal(raw, &v) != nil {
			return Payload{}
		}
		return Payload{Shape: shape, RunID: v.RunID, View: &v}
	case ShapeProcurement, ShapeFinance:
		var resp rtypes.CaseGroupsResponse
		if json.Unmarshal(raw, &resp) != nil {
			return Payload{}
		}
		return DecodeGroups(resp)
	}
	return Payload{}
}

// DecodeGroups resolves a /groups response.
func DecodeGroups(resp rtypes.CaseGroupsResponse) Payload {
	p := Payload{Shape: DetectGroupsShape(resp.Groups), RunID: resp.RunID}
	for _, e := range resp.Groups {
		switch p.Shape {
		case ShapeProcurement:
			var g rtypes.CaseGroup
			if json.Unmarshal(e, &g) == nil {
				p.Procurement = append(p.Procurement, g)
			}
		case ShapeFinance:
			var r rtypes.FinanceDecisionResult
			if json.Unmarshal(e, &r) == nil {
				p.Finance = append(p.Finance, r)
			}
		}
	}
	return p
}
