package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"punchclock.service/internal/core/model"
)

// PunchRepository is the concrete implementation for a PostgreSQL database.
// The punches table is append-only; there are no update or delete queries.
type PunchRepository struct {
	DB *sql.DB
}

// NewPunchRepository create new instance
func NewPunchRepository(db *sql.DB) Repository {
	return &PunchRepository{DB: db}
}

// Insert appends a punch and returns the server-assigned id.
func (r *PunchRepository) Insert(ctx context.Context, p model.Punch) (int64, error) {

	trace.SpanFromContext(ctx).SetAttributes(attribute.Int64("app.employeeId", p.EmployeeID))

	var id int64
	query := `INSERT INTO punches (employee_id, type, timestamp, latitude, longitude, note)
              VALUES ($1, $2, $3, $4, $5, $6) RETURNING id`

	err := r.DB.QueryRowContext(ctx, query, p.EmployeeID, p.Type, p.Timestamp, p.Latitude, p.Longitude, p.Note).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("insert punch: %w", err)
	}

	return id, nil
}

// ListByEmployee returns all punches for an employee, newest first.
func (r *PunchRepository) ListByEmployee(ctx context.Context, employeeID int64) ([]model.Punch, error) {

	trace.SpanFromContext(ctx).SetAttributes(attribute.Int64("app.employeeId", employeeID))

	query := `SELECT id, employee_id, type, timestamp, latitude, longitude, note
              FROM punches
              WHERE employee_id = $1
              ORDER BY timestamp DESC`

	rows, err := r.DB.QueryContext(ctx, query, employeeID)
	if err != nil {
		return nil, fmt.Errorf("list punches: %w", err)
	}
	defer rows.Close()

	return scanPunches(rows)
}

// ListSince returns the punches for an employee with timestamp >= since,
// oldest first. This is the input ordering the aggregation walk relies on.
func (r *PunchRepository) ListSince(ctx context.Context, employeeID int64, since time.Time) ([]model.Punch, error) {

	trace.SpanFromContext(ctx).SetAttributes(attribute.Int64("app.employeeId", employeeID))

	query := `SELECT id, employee_id, type, timestamp, latitude, longitude, note
              FROM punches
              WHERE employee_id = $1 AND timestamp >= $2
              ORDER BY timestamp ASC`

	rows, err := r.DB.QueryContext(ctx, query, employeeID, since)
	if err != nil {
		return nil, fmt.Errorf("list punches since: %w", err)
	}
	defer rows.Close()

	return scanPunches(rows)
}

// CountMatching reports how many stored punches share the same employee,
// type and timestamp. A count above one means a resubmission after a lost
// acknowledgment was double-recorded.
func (r *PunchRepository) CountMatching(ctx context.Context, employeeID int64, t model.PunchType, ts time.Time) (int64, error) {
	var n int64
	query := `SELECT COUNT(*) FROM punches WHERE employee_id = $1 AND type = $2 AND timestamp = $3`

	err := r.DB.QueryRowContext(ctx, query, employeeID, t, ts).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count matching punches: %w", err)
	}

	return n, nil
}

func scanPunches(rows *sql.Rows) ([]model.Punch, error) {
	var punches []model.Punch
	for rows.Next() {
		var p model.Punch
		var note sql.NullString
		if err := rows.Scan(&p.ID, &p.EmployeeID, &p.Type, &p.Timestamp, &p.Latitude, &p.Longitude, &note); err != nil {
			return nil, fmt.Errorf("scan punch: %w", err)
		}
		p.Note = note.String
		punches = append(punches, p)
	}
	return punches, rows.Err()
}
