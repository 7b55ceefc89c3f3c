package adapters

import (
	"context"

	"civicchain/internal/grievance/models"
	suggestion "civicchain/internal/suggestion/service"
)

// SuggestionAdapter lets the grievance service ask the suggestion service
// for a department and a priority.
type SuggestionAdapter struct {
	suggestions *suggestion.Service
}

func NewSuggestionAdapter(suggestions *suggestion.Service) *SuggestionAdapter {
	return &SuggestionAdapter{suggestions: suggestions}
}

func (a *SuggestionAdapter) SuggestDepartment(ctx context.Context, text string) (string, string) {
	s := a.suggestions.SuggestDepartment(ctx, text)
	return s.Department, s.Category
}

func (a *SuggestionAdapter) SuggestPriority(ctx context.Context, text string) models.Priority {
	return models.Priority(a.suggestions.AnalyzePriority(ctx, text).Priority)
}
