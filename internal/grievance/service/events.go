package service

import "time"

const RoutingKeyStatusChanged = "grievance.status_changed"

// StatusChangedEvent is published for every applied transition.
type StatusChangedEvent struct {
	GrievanceID string    `json:"grievance_id"`
	From        string    `json:"from"`
	To          string    `json:"to"`
	Note        string    `json:"note"`
	Department  string    `json:"department"`
	Region      string    `json:"region"`
	OccurredAt  time.Time `json:"occurred_at"`
}
