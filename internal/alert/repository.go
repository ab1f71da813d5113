package alert

import "context"

// Repository defines the interface for alert persistence.
type Repository interface {
	// FindAll returns every alert ordered by creation time.
	FindAll(ctx context.Context) ([]*Alert, error)

	// FindByID returns ErrAlertNotFound if the alert doesn't exist.
	FindByID(ctx context.Context, id string) (*Alert, error)

	// Create stores a new alert.
	Create(ctx context.Context, alert *Alert) error

	// Update replaces the user-editable fields of an existing alert.
	// The triggered flag is left untouched.
	Update(ctx context.Context, alert *Alert) error

	// Delete removes an alert. Returns ErrAlertNotFound if nothing was deleted.
	Delete(ctx context.Context, id string) error

	// UpdateStatus sets the triggered flag unconditionally and returns the alert.
	UpdateStatus(ctx context.Context, id string, triggered bool) (*Alert, error)

	// CompareAndSetTriggered sets the triggered flag to next only if it
	// currently equals expected. It reports whether the write happened.
	CompareAndSetTriggered(ctx context.Context, id string, expected, next bool) (bool, error)
}
