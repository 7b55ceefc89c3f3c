package models

import (
	"time"

	id "civicchain/pkg/domain"
	dErrors "civicchain/pkg/domain-errors"
)

type Status string

const (
	StatusRaised     Status = "raised"
	StatusInProgress Status = "in_progress"
	StatusResolved   Status = "resolved"
	StatusFailed     Status = "failed"
)

func (s Status) IsValid() bool {
	switch s {
	case StatusRaised, StatusInProgress, StatusResolved, StatusFailed:
		return true
	}
	return false
}

func (s Status) String() string { return string(s) }

type Priority string

const (
	PriorityLow    Priority = "low"
	PriorityMedium Priority = "medium"
	PriorityHigh   Priority = "high"
	PriorityUrgent Priority = "urgent"
)

func (p Priority) IsValid() bool {
	switch p {
	case PriorityLow, PriorityMedium, PriorityHigh, PriorityUrgent:
		return true
	}
	return false
}

// TimelineEntry is one step of the append-only status history.
type TimelineEntry struct {
	Status    Status    `json:"status"`
	Note      string    `json:"note"`
	Timestamp time.Time `json:"timestamp"`
}

// Reporter holds contact details copied at submission time.
type Reporter struct {
	Name    string `json:"name"`
	Email   string `json:"email"`
	Phone   string `json:"phone,omitempty"`
	Address string `json:"address,omitempty"`
}

// Grievance is a citizen complaint and its status history.
//
// The last timeline entry always carries the current Status. OwnerRef is
// the owner's email at submission time, not a live reference.
type Grievance struct {
	ID             id.GrievanceID
	OwnerAccountID id.AccountID
	OwnerRef       string
	Reporter       Reporter
	Description    string
	Department     string
	Region         string
	Category       string
	Priority       Priority
	Status         Status
	Timeline       []TimelineEntry

	// TransactionHash and BlockNumber are opaque annotations supplied by the
	// caller. Nothing checks them.
	TransactionHash string
	BlockNumber     *int64

	CreatedAt time.Time
	UpdatedAt time.Time
}

const raisedNote = "Grievance raised"

// NewGrievance builds a grievance in the raised state with its first
// timeline entry.
func NewGrievance(grievanceID id.GrievanceID, fields Fields, now time.Time) (*Grievance, error) {
	if grievanceID == "" {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "grievance id is required")
	}
	if fields.Description == "" || fields.Region == "" || fields.Department == "" {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "description, region and department are required")
	}
	if !fields.Priority.IsValid() {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "priority is invalid")
	}
	return &Grievance{
		ID:              grievanceID,
		OwnerAccountID:  fields.OwnerAccountID,
		OwnerRef:        fields.OwnerRef,
		Reporter:        fields.Reporter,
		Description:     fields.Description,
		Department:      fields.Department,
		Region:          fields.Region,
		Category:        fields.Category,
		Priority:        fields.Priority,
		Status:          StatusRaised,
		Timeline:        []TimelineEntry{{Status: StatusRaised, Note: raisedNote, Timestamp: now}},
		TransactionHash: fields.TransactionHash,
		BlockNumber:     fields.BlockNumber,
		CreatedAt:       now,
		UpdatedAt:       now,
	}, nil
}

// Fields are the caller-controlled parts of a new grievance.
type Fields struct {
	OwnerAccountID  id.AccountID
	OwnerRef        string
	Reporter        Reporter
	Description     string
	Department      string
	Region          string
	Category        string
	Priority        Priority
	TransactionHash string
	BlockNumber     *int64
}

// DefaultNote is the timeline note used when a transition carries none.
func DefaultNote(status Status) string {
	return "Status updated to " + string(status)
}

// ApplyStatus appends one timeline entry and moves the grievance to status.
// The policy decides whether the move is allowed.
func (g *Grievance) ApplyStatus(policy TransitionPolicy, status Status, note string, now time.Time) (from Status, err error) {
	if !status.IsValid() {
		return "", dErrors.Newf(dErrors.CodeValidation, "unknown status %q", status)
	}
	if !policy.Allows(g.Status, status) {
		return "", dErrors.Newf(dErrors.CodeConflict, "transition from %s to %s is not allowed", g.Status, status)
	}
	if note == "" {
		note = DefaultNote(status)
	}
	from = g.Status
	g.Timeline = append(g.Timeline, TimelineEntry{Status: status, Note: note, Timestamp: now})
	g.Status = status
	g.UpdatedAt = now
	return from, nil
}

// LastEntry returns the newest timeline entry.
func (g *Grievance) LastEntry() TimelineEntry {
	return g.Timeline[len(g.Timeline)-1]
}

// Clone returns a deep copy safe to hand out of a store.
func (g *Grievance) Clone() *Grievance {
	c := *g
	c.Timeline = append([]TimelineEntry(nil), g.Timeline...)
	if g.BlockNumber != nil {
		n := *g.BlockNumber
		c.BlockNumber = &n
	}
	return &c
}
