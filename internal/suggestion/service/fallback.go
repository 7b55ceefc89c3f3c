package service

import (
	"strings"

	"civicchain/internal/suggestion/models"
)

type keywordRule struct {
	keywords   []string
	department string
	category   string
}

// Rules are checked in order; the first rule with a matching keyword wins.
var keywordRules = []keywordRule{
	{[]string{"water", "tap", "drainage"}, "water-supply", "Utilities"},
	{[]string{"electricity", "power", "light"}, "electricity", "Utilities"},
	{[]string{"road", "transport", "bus"}, "roads-transport", "Transportation"},
	{[]string{"health", "hospital", "doctor"}, "health-medical", "Healthcare"},
	{[]string{"school", "education", "teacher"}, "education", "Education"},
	{[]string{"police", "crime", "security"}, "police-security", "Security"},
}

const (
	defaultDepartment = "municipal-services"
	defaultCategory   = "General"
	matchConfidence   = 0.8
	defaultConfidence = 0.6
	fallbackReasoning = "Keyword-based analysis (fallback method)"

	DefaultPriority = "medium"
)

func keywordDepartment(text string) *models.DepartmentSuggestion {
	lower := strings.ToLower(text)
	for _, rule := range keywordRules {
		for _, kw := range rule.keywords {
			if strings.Contains(lower, kw) {
				return &models.DepartmentSuggestion{
					Department: rule.department,
					Category:   rule.category,
					Confidence: matchConfidence,
					Reasoning:  fallbackReasoning,
					Source:     models.SourceFallback,
				}
			}
		}
	}
	return &models.DepartmentSuggestion{
		Department: defaultDepartment,
		Category:   defaultCategory,
		Confidence: defaultConfidence,
		Reasoning:  fallbackReasoning,
		Source:     models.SourceFallback,
	}
}

func defaultPriority() *models.PriorityAnalysis {
	return &models.PriorityAnalysis{
		Priority:       DefaultPriority,
		Reasoning:      "Default priority assigned due to analysis error",
		AffectedPeople: "Unknown",
		Timeframe:      "Standard processing time",
		Source:         models.SourceFallback,
	}
}
