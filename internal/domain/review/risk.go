package review

import (
	"sort"
	"strings"

	rtypes "github.com/turtacn/CaseLens/pkg/types/review"
)

// RiskRank orders risk levels: CRITICAL=4, HIGH=3, MEDIUM/MED=2, LOW=1,
// anything else 0.
func RiskRank(level string) int {
	switch strings.ToUpper(strings.TrimSpace(level)) {
	case "CRITICAL":
		return 4
	case "HIGH":
		return 3
	case "MEDIUM", "MED":
		return 2
	case "LOW":
		return 1
	}
	return 0
}

// SortByRisk sorts groups by descending risk rank in place, keeping the
// backend order among equal ranks.
func SortByRisk(groups []Group) {
	sort.SliceStable(groups, func(i, j int) bool {
		return RiskRank(groups[i].RiskLevel) > RiskRank(groups[j].RiskLevel)
	})
}

// DefaultGroupID picks the first group whose risk is not LOW, else the
// first group. It returns "" for an empty list.
func DefaultGroupID(groups []Group) string {
	for _, g := range groups {
		if !strings.EqualFold(strings.TrimSpace(g.RiskLevel), "LOW") {
			return g.GroupID
		}
	}
	if len(groups) > 0 {
		return groups[0].GroupID
	}
	return ""
}

// SeverityForRisk maps an item risk level to an event severity.
func SeverityForRisk(level string) string {
	switch RiskRank(level) {
	case 4:
		return SeverityCritical
	case 3:
		return SeverityError
	case 2:
		return SeverityWarn
	}
	return SeverityInfo
}

// SeverityForFailedRule maps a failed rule's severity to an event severity.
// A failed rule is never below WARN.
func SeverityForFailedRule(severity string) string {
	switch RiskRank(severity) {
	case 4:
		return SeverityCritical
	case 3:
		return SeverityError
	}
	return SeverityWarn
}

// SelectRunResults narrows finance decision results to one per group. When
// runID is set, results of that run are preferred; if none match, all
// results are considered. Among the candidates of a group the one with the
// latest created_at wins, a later element winning ties. Results without a
// group id are dropped. Output keeps first-seen group order.
func SelectRunResults(results []rtypes.FinanceDecisionResult, runID string) []rtypes.FinanceDecisionResult {
	candidates := results
	if runID = strings.TrimSpace(runID); runID != "" {
		var same []rtypes.FinanceDecisionResult
		for _, r := range results {
			if r.RunID == runID {
				same = append(same, r)
			}
		}
		if len(same) > 0 {
			candidates = same
		}
	}

	var order []string
	best := make(map[string]int, len(candidates))
	for i, r := range candidates {
		gid := strings.TrimSpace(r.GroupID)
		if gid == "" {
			continue
		}
		prev, seen := best[gid]
		if !seen {
			order = append(order, gid)
			best[gid] = i
			continue
		}
		ts := ParseTimestamp(r.CreatedAt)
		prevTS := ParseTimestamp(candidates[prev].CreatedAt)
		if !ts.Before(prevTS) {
			best[gid] = i
		}
	}

	out := make([]rtypes.FinanceDecisionResult, 0, len(order))
	for _, gid := range order {
		out = append(out, candidates[best[gid]])
	}
	return out
}
