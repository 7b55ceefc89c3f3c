// Package grievance persists grievances and their timelines.
//
// Error Contract:
//   - FindByID, Transition return sentinel.ErrNotFound for unknown ids.
//   - CreateIfAbsent returns sentinel.ErrAlreadyUsed when the id is taken.
//   - Errors returned by a Transition callback are passed through wrapped.
package grievance

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"civicchain/internal/grievance/models"
	id "civicchain/pkg/domain"
	"civicchain/pkg/platform/sentinel"
)

// InMemory keeps grievances in a map guarded by one lock. Transitions hold
// the write lock across the callback so a read-modify-write is atomic.
type InMemory struct {
	mu         sync.RWMutex
	grievances map[id.GrievanceID]*models.Grievance
}

func NewInMemory() *InMemory {
	return &InMemory{grievances: make(map[id.GrievanceID]*models.Grievance)}
}

func (s *InMemory) CreateIfAbsent(_ context.Context, g *models.Grievance) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.grievances[g.ID]; exists {
		return fmt.Errorf("grievance %s: %w", g.ID, sentinel.ErrAlreadyUsed)
	}
	s.grievances[g.ID] = g.Clone()
	return nil
}

func (s *InMemory) FindByID(_ context.Context, grievanceID id.GrievanceID) (*models.Grievance, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	g, ok := s.grievances[grievanceID]
	if !ok {
		return nil, fmt.Errorf("grievance %s: %w", grievanceID, sentinel.ErrNotFound)
	}
	return g.Clone(), nil
}

func (s *InMemory) Transition(_ context.Context, grievanceID id.GrievanceID, fn func(*models.Grievance) error) (*models.Grievance, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	current, ok := s.grievances[grievanceID]
	if !ok {
		return nil, fmt.Errorf("grievance %s: %w", grievanceID, sentinel.ErrNotFound)
	}
	working := current.Clone()
	if err := fn(working); err != nil {
		return nil, fmt.Errorf("transition grievance %s: %w", grievanceID, err)
	}
	s.grievances[grievanceID] = working
	return working.Clone(), nil
}

func (s *InMemory) ExistingIDs(_ context.Context, ids []id.GrievanceID) (map[id.GrievanceID]bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(map[id.GrievanceID]bool, len(ids))
	for _, gid := range ids {
		if _, ok := s.grievances[gid]; ok {
			out[gid] = true
		}
	}
	return out, nil
}

func (s *InMemory) List(_ context.Context, filter models.ListFilter) ([]*models.Grievance, int, error) {
	s.mu.RLock()
	matched := make([]*models.Grievance, 0)
	for _, g := range s.grievances {
		if filter.Matches(g) {
			matched = append(matched, g)
		}
	}
	s.mu.RUnlock()

	sort.Slice(matched, func(i, j int) bool {
		if matched[i].CreatedAt.Equal(matched[j].CreatedAt) {
			return matched[i].ID > matched[j].ID
		}
		return matched[i].CreatedAt.After(matched[j].CreatedAt)
	})

	total := len(matched)
	start := min(filter.Offset(), total)
	end := min(start+filter.Limit, total)
	page := make([]*models.Grievance, 0, end-start)
	for _, g := range matched[start:end] {
		page = append(page, g.Clone())
	}
	return page, total, nil
}

func (s *InMemory) Counts(_ context.Context) (*models.Counts, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	c := models.NewCounts()
	for _, g := range s.grievances {
		c.Add(g)
	}
	return c, nil
}
