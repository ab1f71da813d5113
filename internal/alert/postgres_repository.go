package alert

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/alertrix/alertrix/internal/weather"
)

// PostgresRepository is a PostgreSQL implementation of Repository.
type PostgresRepository struct {
	pool *pgxpool.Pool
}

// Ensure PostgresRepository implements Repository.
var _ Repository = (*PostgresRepository)(nil)

// NewPostgresRepository creates a new PostgreSQL alert repository.
func NewPostgresRepository(pool *pgxpool.Pool) *PostgresRepository {
	return &PostgresRepository{pool: pool}
}

const alertColumns = `
	id, name, description, emails,
	location_lat, location_lon, location_name, units,
	condition_parameter, condition_operator, condition_value,
	is_triggered, created_at, updated_at
`

// FindAll returns every alert ordered by creation time.
func (r *PostgresRepository) FindAll(ctx context.Context) ([]*Alert, error) {
	query := `SELECT ` + alertColumns + ` FROM alerts ORDER BY created_at, id`

	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("querying alerts: %w", err)
	}
	defer rows.Close()

	var alerts []*Alert
	for rows.Next() {
		a, err := scanAlert(rows)
		if err != nil {
			return nil, err
		}
		alerts = append(alerts, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating alerts: %w", err)
	}

	return alerts, nil
}

// FindByID retrieves an alert by ID.
func (r *PostgresRepository) FindByID(ctx context.Context, id string) (*Alert, error) {
	query := `SELECT ` + alertColumns + ` FROM alerts WHERE id = $1`

	a, err := scanAlert(r.pool.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrAlertNotFound
		}
		return nil, err
	}
	return a, nil
}

// Create stores a new alert.
func (r *PostgresRepository) Create(ctx context.Context, a *Alert) error {
	query := `
		INSERT INTO alerts (
			id, name, description, emails,
			location_lat, location_lon, location_name, units,
			condition_parameter, condition_operator, condition_value,
			is_triggered, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
	`

	_, err := r.pool.Exec(ctx, query,
		a.ID, a.Name, a.Description, emailsOrEmpty(a.Emails),
		a.Location.Lat, a.Location.Lon, a.Location.Name, string(a.Units),
		string(a.Condition.Parameter), string(a.Condition.Operator), a.Condition.Value,
		a.IsTriggered, a.CreatedAt, a.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("inserting alert: %w", err)
	}
	return nil
}

// Update replaces the editable fields of an alert.
func (r *PostgresRepository) Update(ctx context.Context, a *Alert) error {
	query := `
		UPDATE alerts SET
			name = $2,
			description = $3,
			emails = $4,
			location_lat = $5,
			location_lon = $6,
			location_name = $7,
			units = $8,
			condition_parameter = $9,
			condition_operator = $10,
			condition_value = $11,
			updated_at = $12
		WHERE id = $1
	`

	tag, err := r.pool.Exec(ctx, query,
		a.ID, a.Name, a.Description, emailsOrEmpty(a.Emails),
		a.Location.Lat, a.Location.Lon, a.Location.Name, string(a.Units),
		string(a.Condition.Parameter), string(a.Condition.Operator), a.Condition.Value,
		a.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("updating alert: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrAlertNotFound
	}
	return nil
}

// Delete removes an alert.
func (r *PostgresRepository) Delete(ctx context.Context, id string) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM alerts WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("deleting alert: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrAlertNotFound
	}
	return nil
}

// UpdateStatus sets the triggered flag and returns the updated alert.
func (r *PostgresRepository) UpdateStatus(ctx context.Context, id string, triggered bool) (*Alert, error) {
	query := `
		UPDATE alerts SET is_triggered = $2, updated_at = NOW()
		WHERE id = $1
		RETURNING ` + alertColumns

	a, err := scanAlert(r.pool.QueryRow(ctx, query, id, triggered))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrAlertNotFound
		}
		return nil, fmt.Errorf("updating alert status: %w", err)
	}
	return a, nil
}

// CompareAndSetTriggered flips the flag in a single conditional UPDATE so
// concurrent sweeps cannot both win the same transition.
func (r *PostgresRepository) CompareAndSetTriggered(ctx context.Context, id string, expected, next bool) (bool, error) {
	query := `
		UPDATE alerts SET is_triggered = $3, updated_at = NOW()
		WHERE id = $1 AND is_triggered = $2
	`

	tag, err := r.pool.Exec(ctx, query, id, expected, next)
	if err != nil {
		return false, fmt.Errorf("transitioning alert status: %w", err)
	}
	if tag.RowsAffected() == 1 {
		return true, nil
	}

	var exists bool
	if err := r.pool.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM alerts WHERE id = $1)`, id).Scan(&exists); err != nil {
		return false, fmt.Errorf("checking alert: %w", err)
	}
	if !exists {
		return false, ErrAlertNotFound
	}
	return false, nil
}

func scanAlert(row pgx.Row) (*Alert, error) {
	var (
		a         Alert
		units     string
		parameter string
		operator  string
	)

	err := row.Scan(
		&a.ID,
		&a.Name,
		&a.Description,
		&a.Emails,
		&a.Location.Lat,
		&a.Location.Lon,
		&a.Location.Name,
		&units,
		&parameter,
		&operator,
		&a.Condition.Value,
		&a.IsTriggered,
		&a.CreatedAt,
		&a.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	a.Units = weather.Units(units)
	a.Condition.Parameter = weather.Parameter(parameter)
	a.Condition.Operator = Operator(operator)
	return &a, nil
}

func emailsOrEmpty(emails []string) []string {
	if emails == nil {
		return []string{}
	}
	return emails
}
