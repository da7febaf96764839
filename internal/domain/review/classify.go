package review

import "strings"

// Category is the presentation bucket of an audit event.
type Category string

const (
	CategoryHighAttention Category = "high_attention"
	CategoryCaution       Category = "caution"
	CategoryNeutral       Category = "neutral"
	CategoryDecision      Category = "decision"
	CategoryDiscovery     Category = "discovery"
	CategoryPricing       Category = "pricing"
	CategoryLedger        Category = "ledger"
)

// Icons accompanying a Category.
const (
	IconError     = "error"
	IconWarning   = "warning"
	IconInfo      = "info"
	IconDecision  = "decision"
	IconPipeline  = "pipeline"
	IconDiscovery = "discovery"
	IconPricing   = "pricing"
	IconLedger    = "ledger"
)

// Classification is the result of Classify.
type Classification struct {
	Category Category `json:"category"`
	Icon     string   `json:"icon"`
}

type keywordRule struct {
	keywords []string
	class    Classification
	// keepSeverity retains the severity category and only swaps the icon.
	keepSeverity bool
}

var keywordRules = []keywordRule{
	{keywords: []string{"DECISION", "APPROV", "REJECT", "ESCALATE"}, class: Classification{CategoryDecision, IconDecision}},
	{keywords: []string{"PIPELINE", "ORCHESTR", "STARTED", "COMPLETED", "DONE"}, class: Classification{Icon: IconPipeline}, keepSeverity: true},
	{keywords: []string{"DISCOVERY", "VECTOR", "RELATIONAL"}, class: Classification{CategoryDiscovery, IconDiscovery}},
	{keywords: []string{"CONTRACT", "BASELINE", "PRICE"}, class: Classification{CategoryPricing, IconPricing}},
	{keywords: []string{"TRANSACTION", "SEEDED", "LEDGER"}, class: Classification{CategoryLedger, IconLedger}},
}

// ClassifySeverity buckets a severity alone.
func ClassifySeverity(severity string) Classification {
	switch strings.ToUpper(strings.TrimSpace(severity)) {
	case SeverityCritical, SeverityError:
		return Classification{CategoryHighAttention, IconError}
	case SeverityWarn:
		return Classification{CategoryCaution, IconWarning}
	}
	return Classification{CategoryNeutral, IconInfo}
}

// Classify buckets an event by severity, then lets the first matching type
// keyword override the result.
func Classify(eventType, severity string) Classification {
	bySeverity := ClassifySeverity(severity)
	t := strings.ToUpper(eventType)
	for _, r := range keywordRules {
		if !containsAny(t, r.keywords) {
			continue
		}
		if r.keepSeverity {
			return Classification{Category: bySeverity.Category, Icon: r.class.Icon}
		}
		return r.class
	}
	return bySeverity
}

func containsAny(s string, subs []string) bool {
	for _, sub := range subs {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}
