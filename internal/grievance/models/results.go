package models

import id "civicchain/pkg/domain"

type Page struct {
	Items []*Grievance
	Total int
	Page  int
	Limit int
}

// BulkFailure explains why one id in a bulk transition was not updated.
type BulkFailure struct {
	ID     id.GrievanceID
	Reason string
}

// BulkResult lists per-id outcomes in request order.
type BulkResult struct {
	Updated []id.GrievanceID
	Failed  []BulkFailure
}

// Counts are grievance totals grouped three ways.
type Counts struct {
	Total        int
	ByStatus     map[string]int
	ByRegion     map[string]int
	ByDepartment map[string]int
}

func NewCounts() *Counts {
	return &Counts{
		ByStatus:     map[string]int{},
		ByRegion:     map[string]int{},
		ByDepartment: map[string]int{},
	}
}

// Add counts one grievance.
func (c *Counts) Add(g *Grievance) {
	c.Total++
	c.ByStatus[string(g.Status)]++
	c.ByRegion[g.Region]++
	c.ByDepartment[g.Department]++
}

// Aggregate is Counts plus the number of registered accounts.
type Aggregate struct {
	Counts
	TotalAccounts int
}
