package cli

import (
	"strconv"
	"strings"
	"time"

	"github.com/turtacn/CaseLens/internal/application/casereview"
	"github.com/turtacn/CaseLens/internal/domain/review"
	rtypes "github.com/turtacn/CaseLens/pkg/types/review"
)

type groupsView struct {
	CaseID        string         `json:"case_id"`
	RunID         string         `json:"run_id,omitempty"`
	ActiveGroupID string         `json:"active_group_id,omitempty"`
	Groups        []review.Group `json:"groups"`
}

func (v groupsView) TableHeaders() []string {
	return []string{"", "GROUP", "RISK", "DECISION", "SKU", "QTY", "UNIT PRICE", "EXPOSURE"}
}

func (v groupsView) TableRows() [][]string {
	rows := make([][]string, 0, len(v.Groups))
	for _, g := range v.Groups {
		marker := ""
		if g.GroupID == v.ActiveGroupID {
			marker = "*"
		}
		exposure := ""
		if g.Exposure != nil {
			exposure = review.FormatMoney(g.Exposure.Value, g.Exposure.Currency)
		}
		rows = append(rows, []string{
			marker,
			g.GroupID,
			g.RiskLevel,
			g.Decision,
			firstNonEmpty(g.SKU.SKU, g.SKU.Name),
			review.FormatNumber(g.SKU.Quantity),
			review.FormatMoney(g.SKU.UnitPrice.Value, g.SKU.UnitPrice.Currency),
			exposure,
		})
	}
	return rows
}

type whyView struct {
	CaseID string                     `json:"case_id"`
	Group  review.Group               `json:"group"`
	Why    *rtypes.GroupRulesResponse `json:"why"`
}

func (v whyView) TableHeaders() []string {
	return []string{"RULE", "SEVERITY", "RESULT", "EXPLANATION"}
}

func (v whyView) TableRows() [][]string {
	if v.Why == nil {
		return nil
	}
	rows := make([][]string, 0, len(v.Why.Rules))
	for _, r := range v.Why.Rules {
		rows = append(rows, []string{
			r.RuleID,
			r.Severity,
			r.Result,
			firstNonEmpty(r.Explanation, r.ExecMessage, r.AuditMessage),
		})
	}
	return rows
}

type evidenceView struct {
	CaseID    string                    `json:"case_id"`
	GroupID   string                    `json:"group_id"`
	Documents []rtypes.EvidenceDocument `json:"documents"`
	Evidences []rtypes.EvidenceItem     `json:"evidences"`
}

func (v evidenceView) TableHeaders() []string {
	return []string{"KIND", "ID", "DOCUMENT", "PAGE", "TITLE"}
}

func (v evidenceView) TableRows() [][]string {
	rows := make([][]string, 0, len(v.Documents)+len(v.Evidences))
	for _, d := range v.Documents {
		rows = append(rows, []string{"document", d.DocumentID, d.DocumentID, "", firstNonEmpty(d.FileName, d.DocumentType)})
	}
	for _, e := range v.Evidences {
		rows = append(rows, []string{
			firstNonEmpty(e.Kind, "evidence"),
			e.EvidenceID,
			e.DocumentID,
			review.NumString(e.PageNumber),
			firstNonEmpty(e.Title, e.Snippet),
		})
	}
	return rows
}

type timelineView struct {
	CaseID string              `json:"case_id"`
	Events []review.AuditEvent `json:"events"`
}

func (v timelineView) TableHeaders() []string {
	return []string{"TIME", "ACTION", "SEVERITY", "GROUP", "MESSAGE"}
}

func (v timelineView) TableRows() [][]string {
	rows := make([][]string, 0, len(v.Events))
	for _, e := range v.Events {
		ts := ""
		if !e.Timestamp.IsZero() {
			ts = e.Timestamp.Format(time.RFC3339)
		}
		rows = append(rows, []string{ts, e.Action, e.Severity, e.GroupID, e.Message})
	}
	return rows
}

type feedView struct {
	*casereview.FeedResult
}

func (v feedView) TableHeaders() []string {
	return []string{"DATE", "SEVERITY", "TYPE", "TITLE", "DETAILS"}
}

func (v feedView) TableRows() [][]string {
	rows := make([][]string, 0, len(v.Events))
	for _, e := range v.Events {
		kv := make([]string, 0, len(e.MetaKV))
		for _, m := range e.MetaKV {
			kv = append(kv, m.Key+"="+m.Value)
		}
		rows = append(rows, []string{e.DateKey, e.Severity, e.Type, e.TitleText, strings.Join(kv, " ")})
	}
	return rows
}

type summaryView struct {
	*casereview.CaseSummary
}

func (v summaryView) TableHeaders() []string { return []string{"FIELD", "VALUE"} }

func (v summaryView) TableRows() [][]string {
	rows := [][]string{
		{"case_id", v.CaseID},
		{"run_id", v.RunID},
		{"decision", v.Decision},
		{"risk_level", v.RiskLevel},
	}
	if v.ConfidencePct != nil {
		rows = append(rows, []string{"confidence", review.FormatPercent(*v.ConfidencePct)})
	}
	if len(v.ReasonCodes) > 0 {
		rows = append(rows, []string{"reasons", strings.Join(v.ReasonCodes, ", ")})
	}
	return rows
}

type pageView struct {
	casereview.ViewerState
}

func (v pageView) TableHeaders() []string { return []string{"DOCUMENT", "PAGE", "STATUS", "URL"} }

func (v pageView) TableRows() [][]string {
	return [][]string{{v.DocumentID, strconv.Itoa(v.Page), string(v.Status), v.URL}}
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}
