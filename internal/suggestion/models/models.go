package models

import (
	"strings"

	dErrors "civicchain/pkg/domain-errors"
)

// Source says whether a suggestion came from the remote classifier or the
// local keyword table.
type Source string

const (
	SourceClassifier Source = "classifier"
	SourceFallback   Source = "fallback"
)

type DepartmentSuggestion struct {
	Department string  `json:"department"`
	Category   string  `json:"category"`
	Confidence float64 `json:"confidence"`
	Reasoning  string  `json:"reasoning"`
	Source     Source  `json:"source"`
}

type PriorityAnalysis struct {
	Priority       string `json:"priority"`
	Reasoning      string `json:"reasoning"`
	AffectedPeople string `json:"affected_people,omitempty"`
	Timeframe      string `json:"timeframe,omitempty"`
	Source         Source `json:"source"`
}

type SuggestRequest struct {
	Text string `json:"text"`
}

const maxTextLength = 5000

func (r *SuggestRequest) Normalize() {
	if r != nil {
		r.Text = strings.TrimSpace(r.Text)
	}
}

func (r *SuggestRequest) Validate() error {
	if r == nil {
		return dErrors.New(dErrors.CodeBadRequest, "request body is required")
	}
	if r.Text == "" {
		return dErrors.New(dErrors.CodeValidation, "text is required")
	}
	if len(r.Text) > maxTextLength {
		return dErrors.New(dErrors.CodeValidation, "text is too long")
	}
	return nil
}

// SuggestResponse combines both analyses for the HTTP surface.
type SuggestResponse struct {
	Department DepartmentSuggestion `json:"department"`
	Priority   PriorityAnalysis     `json:"priority"`
}
