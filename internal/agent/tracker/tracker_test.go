package tracker

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"punchclock.service/internal/agent"
	"punchclock.service/internal/core/model"
)

type fakeRemote struct {
	punches    []model.Punch
	listErr    error
	submitErr  error
	submitted  []model.Punch
	summary    string
	summaryErr error
}

func (r *fakeRemote) SubmitPunch(ctx context.Context, p model.Punch) (int64, error) {
	if r.submitErr != nil {
		return 0, r.submitErr
	}
	r.submitted = append(r.submitted, p)
	return int64(len(r.submitted)), nil
}

func (r *fakeRemote) ListPunches(ctx context.Context, employeeID int64) ([]model.Punch, error) {
	if r.listErr != nil {
		return nil, r.listErr
	}
	return r.punches, nil
}

func (r *fakeRemote) WeeklySummary(ctx context.Context, employeeID int64) (string, error) {
	if r.summaryErr != nil {
		return "", r.summaryErr
	}
	return r.summary, nil
}

type fakeStore struct {
	enqueued    []model.Punch
	enqueueErr  error
	cachedList  []model.Punch
	cachedHours string
	hasHours    bool
	savedList   [][]model.Punch
}

func (s *fakeStore) Enqueue(ctx context.Context, p model.Punch) error {
	if s.enqueueErr != nil {
		return s.enqueueErr
	}
	s.enqueued = append(s.enqueued, p)
	return nil
}

func (s *fakeStore) SavePunchCache(ctx context.Context, punches []model.Punch) error {
	s.cachedList = punches
	s.savedList = append(s.savedList, punches)
	return nil
}

func (s *fakeStore) LoadPunchCache(ctx context.Context) ([]model.Punch, error) {
	return s.cachedList, nil
}

func (s *fakeStore) SaveWeeklyHours(ctx context.Context, total string) error {
	s.cachedHours = total
	s.hasHours = true
	return nil
}

func (s *fakeStore) LoadWeeklyHours(ctx context.Context) (string, bool, error) {
	return s.cachedHours, s.hasHours, nil
}

var transportErr = fmt.Errorf("%w: connection refused", agent.ErrTransport)

func location() StaticLocation {
	return StaticLocation{Lat: 45.42, Lon: -75.69}
}

func lastPunch(typ model.PunchType, ago time.Duration) []model.Punch {
	return []model.Punch{{
		ID:         7,
		EmployeeID: 1,
		Type:       typ,
		Timestamp:  time.Now().UTC().Add(-ago),
	}}
}

func TestPunch_DoublePunchRejectedBeforeQueueOrStore(t *testing.T) {
	remote := &fakeRemote{punches: lastPunch(model.TypeIn, time.Hour)}
	store := &fakeStore{}
	trk := New(remote, store, location(), 1, nil)

	_, err := trk.Punch(context.Background(), model.TypeIn, "")

	require.ErrorIs(t, err, agent.ErrDoublePunch)
	assert.Empty(t, remote.submitted)
	assert.Empty(t, store.enqueued)
}

func TestPunch_NoPunchesMeansOut(t *testing.T) {
	// With no history the employee is "out": punching out is a double
	// punch, punching in works.
	remote := &fakeRemote{}
	store := &fakeStore{}
	trk := New(remote, store, location(), 1, nil)

	_, err := trk.Punch(context.Background(), model.TypeOut, "")
	require.ErrorIs(t, err, agent.ErrDoublePunch)

	result, err := trk.Punch(context.Background(), model.TypeIn, "")
	require.NoError(t, err)
	assert.True(t, result.Synced)
	require.Len(t, remote.submitted, 1)
}

func TestPunch_LocationFailureIsCaptureFault(t *testing.T) {
	remote := &fakeRemote{}
	store := &fakeStore{}
	trk := New(remote, store, StaticLocation{}, 1, nil)

	_, err := trk.Punch(context.Background(), model.TypeIn, "")

	require.ErrorIs(t, err, agent.ErrCapture)
	// The punch was never created, let alone queued or submitted.
	assert.Empty(t, remote.submitted)
	assert.Empty(t, store.enqueued)
}

func TestPunch_TransportFailureFallsBackToQueue(t *testing.T) {
	remote := &fakeRemote{submitErr: transportErr}
	store := &fakeStore{}
	notified := false
	trk := New(remote, store, location(), 1, func() { notified = true })

	result, err := trk.Punch(context.Background(), model.TypeIn, "gate 3")
	require.NoError(t, err)

	assert.False(t, result.Synced)
	assert.Contains(t, result.Message, "saved offline")

	require.Len(t, store.enqueued, 1)
	p := store.enqueued[0]
	assert.Equal(t, model.StatusPending, p.SyncStatus)
	assert.Equal(t, model.TypeIn, p.Type)
	assert.Equal(t, "gate 3", p.Note)
	assert.NotZero(t, p.ID) // provisional id
	assert.Equal(t, result.ID, p.ID)

	// The sync engine got scheduled.
	assert.True(t, notified)
}

func TestPunch_StorageFaultEscalates(t *testing.T) {
	remote := &fakeRemote{submitErr: transportErr}
	store := &fakeStore{enqueueErr: fmt.Errorf("%w: disk full", agent.ErrStorage)}
	trk := New(remote, store, location(), 1, nil)

	_, err := trk.Punch(context.Background(), model.TypeIn, "")

	require.ErrorIs(t, err, agent.ErrStorage)
}

func TestPunch_ServerRejectionSurfacedNotQueued(t *testing.T) {
	remote := &fakeRemote{
		punches:   nil,
		submitErr: fmt.Errorf("%w: status 400", agent.ErrRejected),
	}
	store := &fakeStore{}
	trk := New(remote, store, location(), 1, nil)

	_, err := trk.Punch(context.Background(), model.TypeIn, "")

	require.ErrorIs(t, err, agent.ErrRejected)
	assert.Empty(t, store.enqueued)
}

func TestStatus_UsesCacheWhenStoreUnreachable(t *testing.T) {
	store := &fakeStore{cachedList: lastPunch(model.TypeIn, 2*time.Hour)}
	remote := &fakeRemote{listErr: transportErr}
	trk := New(remote, store, location(), 1, nil)

	status, err := trk.Status(context.Background())
	require.NoError(t, err)

	assert.True(t, status.Cached)
	assert.Equal(t, model.TypeIn, status.Type)
	assert.InDelta(t, (2 * time.Hour).Seconds(), status.Elapsed.Seconds(), 5)
}

func TestStatus_RefreshesCacheOnLiveRead(t *testing.T) {
	remote := &fakeRemote{punches: lastPunch(model.TypeOut, time.Hour)}
	store := &fakeStore{}
	trk := New(remote, store, location(), 1, nil)

	status, err := trk.Status(context.Background())
	require.NoError(t, err)

	assert.False(t, status.Cached)
	assert.Equal(t, model.TypeOut, status.Type)
	assert.Zero(t, status.Elapsed)
	require.Len(t, store.savedList, 1)
}

func TestWeeklyHours_FallsBackToCacheThenZero(t *testing.T) {
	remote := &fakeRemote{summaryErr: transportErr}

	// No cached value yet: default to "0.00".
	trk := New(remote, &fakeStore{}, location(), 1, nil)
	total, cached, err := trk.WeeklyHours(context.Background())
	require.NoError(t, err)
	assert.True(t, cached)
	assert.Equal(t, "0.00", total)

	// With a cached value, serve it.
	store := &fakeStore{cachedHours: "12.50", hasHours: true}
	trk = New(remote, store, location(), 1, nil)
	total, cached, err = trk.WeeklyHours(context.Background())
	require.NoError(t, err)
	assert.True(t, cached)
	assert.Equal(t, "12.50", total)
}

func TestWeeklyHours_LiveReadRefreshesCache(t *testing.T) {
	remote := &fakeRemote{summary: "7.00"}
	store := &fakeStore{}
	trk := New(remote, store, location(), 1, nil)

	total, cached, err := trk.WeeklyHours(context.Background())
	require.NoError(t, err)
	assert.False(t, cached)
	assert.Equal(t, "7.00", total)
	assert.Equal(t, "7.00", store.cachedHours)
}

func TestFormatElapsed(t *testing.T) {
	assert.Equal(t, "00:00:00", FormatElapsed(0))
	assert.Equal(t, "00:00:59", FormatElapsed(59*time.Second))
	assert.Equal(t, "01:01:01", FormatElapsed(time.Hour+time.Minute+time.Second))
	assert.Equal(t, "27:46:39", FormatElapsed(99999*time.Second))
	assert.Equal(t, "00:00:00", FormatElapsed(-time.Minute))
}
