package core

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"punchclock.service/internal/core/model"
	"punchclock.service/internal/ports/messaging"
	"punchclock.service/internal/ports/repository"
)

// WeeklyWindow is the trailing span the summary is computed over. It is
// re-evaluated relative to "now" on every query.
const WeeklyWindow = 7 * 24 * time.Hour

// SummaryCache is a read-through cache for rendered weekly totals.
type SummaryCache interface {
	Get(ctx context.Context, employeeID int64) (string, bool)
	Set(ctx context.Context, employeeID int64, total string)
	Invalidate(ctx context.Context, employeeID int64)
}

// PunchService is the authoritative side of the punch lifecycle: it appends
// punches to the store, serves the per-employee history, and derives the
// trailing weekly summary.
type PunchService struct {
	repo     repository.Repository
	producer messaging.EventProducer
	cache    SummaryCache
	now      func() time.Time
}

// NewPunchService creates a new instance of our main application service,
// wiring up the database repository, the event producer and the summary cache.
func NewPunchService(repo repository.Repository, p messaging.EventProducer, cache SummaryCache) *PunchService {
	return &PunchService{
		repo:     repo,
		producer: p,
		cache:    cache,
		now:      time.Now,
	}
}

// RecordPunch appends a punch and returns its server-assigned id. Every
// punch is a single independent write; there is no batching. A stored punch
// is never updated or deleted afterwards.
func (s *PunchService) RecordPunch(ctx context.Context, p model.Punch) (int64, error) {
	id, err := s.repo.Insert(ctx, p)
	if err != nil {
		return 0, err
	}

	if s.cache != nil {
		s.cache.Invalidate(ctx, p.EmployeeID)
	}

	event := messaging.PunchAcceptedEvent{
		EventID:    uuid.NewString(),
		PunchID:    id,
		EmployeeID: p.EmployeeID,
		Type:       p.Type,
		Timestamp:  p.Timestamp,
		OccurredAt: s.now().UTC(),
	}
	if err := s.producer.PublishPunchAccepted(ctx, event); err != nil {
		// The punch is already durable; a lost monitoring event is not
		// worth failing the request over.
		log.Ctx(ctx).Warn().Err(err).Int64("punch_id", id).Msg("Failed to publish punch-accepted event")
	}

	return id, nil
}

// ListPunches returns the employee's full punch history, newest first.
func (s *PunchService) ListPunches(ctx context.Context, employeeID int64) ([]model.Punch, error) {
	return s.repo.ListByEmployee(ctx, employeeID)
}

// WeeklySummary computes total worked hours over the trailing seven days,
// rendered as a fixed two-decimal string.
func (s *PunchService) WeeklySummary(ctx context.Context, employeeID int64) (string, error) {
	if s.cache != nil {
		if total, ok := s.cache.Get(ctx, employeeID); ok {
			return total, nil
		}
	}

	since := s.now().UTC().Add(-WeeklyWindow)
	punches, err := s.repo.ListSince(ctx, employeeID, since)
	if err != nil {
		return "", err
	}

	total := FormatHours(WeeklyHours(punches))

	if s.cache != nil {
		s.cache.Set(ctx, employeeID, total)
	}
	return total, nil
}
