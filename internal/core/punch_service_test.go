package core

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"punchclock.service/internal/core/model"
	"punchclock.service/internal/ports/messaging"
)

type fakeRepo struct {
	punches   []model.Punch
	nextID    int64
	insertErr error
	lastSince time.Time
}

func (r *fakeRepo) Insert(ctx context.Context, p model.Punch) (int64, error) {
	if r.insertErr != nil {
		return 0, r.insertErr
	}
	r.nextID++
	p.ID = r.nextID
	r.punches = append(r.punches, p)
	return p.ID, nil
}

func (r *fakeRepo) ListByEmployee(ctx context.Context, employeeID int64) ([]model.Punch, error) {
	return r.punches, nil
}

func (r *fakeRepo) ListSince(ctx context.Context, employeeID int64, since time.Time) ([]model.Punch, error) {
	r.lastSince = since
	return r.punches, nil
}

func (r *fakeRepo) CountMatching(ctx context.Context, employeeID int64, t model.PunchType, ts time.Time) (int64, error) {
	return 1, nil
}

type fakeProducer struct {
	events []messaging.PunchAcceptedEvent
	err    error
}

func (p *fakeProducer) PublishPunchAccepted(ctx context.Context, event messaging.PunchAcceptedEvent) error {
	if p.err != nil {
		return p.err
	}
	p.events = append(p.events, event)
	return nil
}

type fakeCache struct {
	values      map[int64]string
	invalidated []int64
}

func newFakeCache() *fakeCache {
	return &fakeCache{values: map[int64]string{}}
}

func (c *fakeCache) Get(ctx context.Context, employeeID int64) (string, bool) {
	v, ok := c.values[employeeID]
	return v, ok
}

func (c *fakeCache) Set(ctx context.Context, employeeID int64, total string) {
	c.values[employeeID] = total
}

func (c *fakeCache) Invalidate(ctx context.Context, employeeID int64) {
	c.invalidated = append(c.invalidated, employeeID)
	delete(c.values, employeeID)
}

func testPunch() model.Punch {
	return model.Punch{
		EmployeeID: 1,
		Type:       model.TypeIn,
		Timestamp:  time.Date(2026, 8, 24, 9, 0, 0, 0, time.UTC),
		Latitude:   45.42,
		Longitude:  -75.69,
	}
}

func TestRecordPunch_PublishesEventAndInvalidatesCache(t *testing.T) {
	repo := &fakeRepo{}
	producer := &fakeProducer{}
	cache := newFakeCache()
	cache.values[1] = "5.00"

	svc := NewPunchService(repo, producer, cache)

	id, err := svc.RecordPunch(context.Background(), testPunch())
	require.NoError(t, err)
	assert.Equal(t, int64(1), id)

	require.Len(t, producer.events, 1)
	event := producer.events[0]
	assert.Equal(t, id, event.PunchID)
	assert.Equal(t, int64(1), event.EmployeeID)
	assert.Equal(t, model.TypeIn, event.Type)
	assert.NotEmpty(t, event.EventID)

	assert.Equal(t, []int64{1}, cache.invalidated)
}

func TestRecordPunch_PublishFailureDoesNotFailRequest(t *testing.T) {
	repo := &fakeRepo{}
	producer := &fakeProducer{err: errors.New("queue down")}

	svc := NewPunchService(repo, producer, nil)

	id, err := svc.RecordPunch(context.Background(), testPunch())
	require.NoError(t, err)
	assert.Equal(t, int64(1), id)
}

func TestRecordPunch_RepoErrorPropagates(t *testing.T) {
	repo := &fakeRepo{insertErr: errors.New("db down")}
	svc := NewPunchService(repo, &fakeProducer{}, nil)

	_, err := svc.RecordPunch(context.Background(), testPunch())
	assert.Error(t, err)
}

func TestWeeklySummary_ComputesOverTrailingWindow(t *testing.T) {
	now := time.Date(2026, 8, 31, 12, 0, 0, 0, time.UTC)
	repo := &fakeRepo{punches: []model.Punch{
		{Type: model.TypeIn, Timestamp: now.Add(-8 * time.Hour)},
		{Type: model.TypeOut, Timestamp: now.Add(-5 * time.Hour)},
	}}
	cache := newFakeCache()

	svc := NewPunchService(repo, &fakeProducer{}, cache)
	svc.now = func() time.Time { return now }

	total, err := svc.WeeklySummary(context.Background(), 1)
	require.NoError(t, err)
	assert.Equal(t, "3.00", total)

	// The repo was asked for the trailing seven days.
	assert.True(t, repo.lastSince.Equal(now.Add(-WeeklyWindow)))

	// The rendered total was written through to the cache.
	cached, ok := cache.Get(context.Background(), 1)
	require.True(t, ok)
	assert.Equal(t, "3.00", cached)
}

func TestWeeklySummary_ServesCacheHit(t *testing.T) {
	repo := &fakeRepo{punches: []model.Punch{
		{Type: model.TypeIn, Timestamp: time.Now().Add(-2 * time.Hour)},
		{Type: model.TypeOut, Timestamp: time.Now()},
	}}
	cache := newFakeCache()
	cache.values[1] = "9.99"

	svc := NewPunchService(repo, &fakeProducer{}, cache)

	total, err := svc.WeeklySummary(context.Background(), 1)
	require.NoError(t, err)
	assert.Equal(t, "9.99", total)
}

func TestWeeklySummary_EmptyWindow(t *testing.T) {
	svc := NewPunchService(&fakeRepo{}, &fakeProducer{}, nil)

	total, err := svc.WeeklySummary(context.Background(), 1)
	require.NoError(t, err)
	assert.Equal(t, "0.00", total)
}
