package models

import "fmt"

// TransitionPolicy decides which status may follow which.
type TransitionPolicy interface {
	Allows(from, to Status) bool
}

// Permissive allows any status to follow any other, including reopening a
// resolved or failed grievance.
type Permissive struct{}

func (Permissive) Allows(_, _ Status) bool { return true }

// ForwardOnly allows raised -> in_progress -> resolved|failed, skipping
// steps but never going back or between the two closed states.
type ForwardOnly struct{}

var forwardRank = map[Status]int{
	StatusRaised:     0,
	StatusInProgress: 1,
	StatusResolved:   2,
	StatusFailed:     2,
}

func (ForwardOnly) Allows(from, to Status) bool {
	f, okFrom := forwardRank[from]
	t, okTo := forwardRank[to]
	return okFrom && okTo && t > f
}

const (
	PolicyPermissive  = "permissive"
	PolicyForwardOnly = "forward-only"
)

// PolicyByName maps a configured rule name to a policy.
func PolicyByName(name string) (TransitionPolicy, error) {
	switch name {
	case "", PolicyPermissive:
		return Permissive{}, nil
	case PolicyForwardOnly:
		return ForwardOnly{}, nil
	default:
		return nil, fmt.Errorf("unknown transition rule %q", name)
	}
}
