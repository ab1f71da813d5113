package alert

import (
	"context"
	"sort"
	"sync"
	"time"
)

// InMemoryRepository is an in-memory implementation of Repository.
// It backs tests and single-process deployments without a database.
type InMemoryRepository struct {
	mu     sync.RWMutex
	alerts map[string]*Alert
	now    func() time.Time
}

// Ensure InMemoryRepository implements Repository.
var _ Repository = (*InMemoryRepository)(nil)

// NewInMemoryRepository creates a new in-memory alert repository.
func NewInMemoryRepository() *InMemoryRepository {
	return &InMemoryRepository{
		alerts: make(map[string]*Alert),
		now:    time.Now,
	}
}

// FindAll returns copies of every alert, oldest first.
func (r *InMemoryRepository) FindAll(_ context.Context) ([]*Alert, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]*Alert, 0, len(r.alerts))
	for _, a := range r.alerts {
		out = append(out, a.clone())
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID < out[j].ID
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out, nil
}

// FindByID retrieves an alert by ID.
func (r *InMemoryRepository) FindByID(_ context.Context, id string) (*Alert, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	a, ok := r.alerts[id]
	if !ok {
		return nil, ErrAlertNotFound
	}
	return a.clone(), nil
}

// Create stores a new alert.
func (r *InMemoryRepository) Create(_ context.Context, alert *Alert) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.alerts[alert.ID] = alert.clone()
	return nil
}

// Update replaces the editable fields of an existing alert.
func (r *InMemoryRepository) Update(_ context.Context, alert *Alert) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	existing, ok := r.alerts[alert.ID]
	if !ok {
		return ErrAlertNotFound
	}

	updated := alert.clone()
	updated.IsTriggered = existing.IsTriggered
	updated.CreatedAt = existing.CreatedAt
	r.alerts[alert.ID] = updated
	return nil
}

// Delete removes an alert.
func (r *InMemoryRepository) Delete(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.alerts[id]; !ok {
		return ErrAlertNotFound
	}
	delete(r.alerts, id)
	return nil
}

// UpdateStatus sets the triggered flag.
func (r *InMemoryRepository) UpdateStatus(_ context.Context, id string, triggered bool) (*Alert, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	a, ok := r.alerts[id]
	if !ok {
		return nil, ErrAlertNotFound
	}
	a.IsTriggered = triggered
	a.UpdatedAt = r.now()
	return a.clone(), nil
}

// CompareAndSetTriggered flips the triggered flag under the write lock.
func (r *InMemoryRepository) CompareAndSetTriggered(_ context.Context, id string, expected, next bool) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	a, ok := r.alerts[id]
	if !ok {
		return false, ErrAlertNotFound
	}
	if a.IsTriggered != expected {
		return false, nil
	}
	a.IsTriggered = next
	a.UpdatedAt = r.now()
	return true, nil
}
