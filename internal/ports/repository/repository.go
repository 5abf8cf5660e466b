package repository

import (
	"context"
	"time"

	"punchclock.service/internal/core/model"
)

// Repository contract for the authoritative punch log.
type Repository interface {
	Insert(ctx context.Context, p model.Punch) (int64, error)
	ListByEmployee(ctx context.Context, employeeID int64) ([]model.Punch, error)
	ListSince(ctx context.Context, employeeID int64, since time.Time) ([]model.Punch, error)
	CountMatching(ctx context.Context, employeeID int64, t model.PunchType, ts time.Time) (int64, error)
}
