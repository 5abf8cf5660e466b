package syncer

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"punchclock.service/internal/agent"
	"punchclock.service/internal/core/model"
)

type fakeQueue struct {
	mu        sync.Mutex
	items     []model.Punch
	listCalls int
}

func (q *fakeQueue) ListPending(ctx context.Context) ([]model.Punch, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.listCalls++
	snapshot := make([]model.Punch, len(q.items))
	copy(snapshot, q.items)
	return snapshot, nil
}

func (q *fakeQueue) Remove(ctx context.Context, id int64) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	for i, p := range q.items {
		if p.ID == id {
			q.items = append(q.items[:i], q.items[i+1:]...)
			return nil
		}
	}
	return nil
}

func (q *fakeQueue) add(p model.Punch) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.items = append(q.items, p)
}

func (q *fakeQueue) len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items)
}

type fakeRemote struct {
	mu        sync.Mutex
	errs      map[int64]error
	submitted []int64
	nextID    int64
	onSubmit  func(p model.Punch)
}

func (r *fakeRemote) SubmitPunch(ctx context.Context, p model.Punch) (int64, error) {
	r.mu.Lock()
	hook := r.onSubmit
	err := r.errs[p.ID]
	r.mu.Unlock()

	if hook != nil {
		hook(p)
	}
	if err != nil {
		return 0, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.nextID++
	r.submitted = append(r.submitted, p.ID)
	return r.nextID, nil
}

func queued(ids ...int64) []model.Punch {
	punches := make([]model.Punch, 0, len(ids))
	for _, id := range ids {
		punches = append(punches, model.Punch{
			ID:         id,
			EmployeeID: 1,
			Type:       model.TypeIn,
			Timestamp:  time.Now().UTC(),
			SyncStatus: model.StatusPending,
		})
	}
	return punches
}

func TestSync_DrainsQueueInOrder(t *testing.T) {
	q := &fakeQueue{items: queued(1, 2, 3)}
	remote := &fakeRemote{}
	s := New(q, remote, time.Second)

	res, err := s.Sync(context.Background())
	require.NoError(t, err)

	assert.Equal(t, Result{Submitted: 3}, res)
	assert.Equal(t, []int64{1, 2, 3}, remote.submitted)
	assert.Equal(t, 0, q.len())
}

func TestSync_SecondPassIsNoOp(t *testing.T) {
	q := &fakeQueue{items: queued(1, 2)}
	remote := &fakeRemote{}
	s := New(q, remote, time.Second)

	res, err := s.Sync(context.Background())
	require.NoError(t, err)
	require.Equal(t, Result{Submitted: 2}, res)

	res, err = s.Sync(context.Background())
	require.NoError(t, err)
	assert.Equal(t, Result{}, res)
	assert.Len(t, remote.submitted, 2)
}

func TestSync_FailureDoesNotBlockLaterRecords(t *testing.T) {
	q := &fakeQueue{items: queued(1, 2, 3)}
	remote := &fakeRemote{errs: map[int64]error{
		2: fmt.Errorf("%w: connection refused", agent.ErrTransport),
	}}
	s := New(q, remote, time.Second)

	res, err := s.Sync(context.Background())
	require.NoError(t, err)

	assert.Equal(t, Result{Submitted: 2, Failed: 1}, res)
	assert.Equal(t, []int64{1, 3}, remote.submitted)

	// The failed record stays queued for the next pass.
	require.Equal(t, 1, q.len())
	assert.Equal(t, int64(2), q.items[0].ID)
	assert.True(t, res.Pending())
}

// stallingRemote never answers for one chosen record; it only returns once
// the submission context is cancelled.
type stallingRemote struct {
	fakeRemote
	stallID int64
}

func (r *stallingRemote) SubmitPunch(ctx context.Context, p model.Punch) (int64, error) {
	if p.ID == r.stallID {
		<-ctx.Done()
		return 0, fmt.Errorf("%w: %v", agent.ErrTransport, ctx.Err())
	}
	return r.fakeRemote.SubmitPunch(ctx, p)
}

func TestSync_HungSubmissionIsCutOffByTimeout(t *testing.T) {
	q := &fakeQueue{items: queued(1, 2, 3)}
	remote := &stallingRemote{stallID: 2}
	s := New(q, remote, 20*time.Millisecond)

	start := time.Now()
	res, err := s.Sync(context.Background())
	require.NoError(t, err)

	// The stalled record is abandoned when its submission deadline expires
	// instead of hanging the whole pass; the records behind it still go out.
	assert.Less(t, time.Since(start), 5*time.Second)
	assert.Equal(t, Result{Submitted: 2, Failed: 1}, res)
	assert.Equal(t, []int64{1, 3}, remote.submitted)

	// It stays queued for a later attempt.
	require.Equal(t, 1, q.len())
	assert.Equal(t, int64(2), q.items[0].ID)
}

func TestSync_RejectedRecordIsDropped(t *testing.T) {
	q := &fakeQueue{items: queued(1, 2)}
	remote := &fakeRemote{errs: map[int64]error{
		1: fmt.Errorf("%w: status 400", agent.ErrRejected),
	}}
	s := New(q, remote, time.Second)

	res, err := s.Sync(context.Background())
	require.NoError(t, err)

	// The malformed record is gone from the retry path, not kept for
	// another doomed attempt.
	assert.Equal(t, Result{Submitted: 1, Rejected: 1}, res)
	assert.Equal(t, 0, q.len())
	assert.False(t, res.Pending())
}

func TestSync_MidPassEnqueueWaitsForNextPass(t *testing.T) {
	q := &fakeQueue{items: queued(1)}
	remote := &fakeRemote{}
	remote.onSubmit = func(p model.Punch) {
		if p.ID == 1 {
			q.add(queued(99)[0])
		}
	}
	s := New(q, remote, time.Second)

	res, err := s.Sync(context.Background())
	require.NoError(t, err)

	// The pass drains the snapshot it took, nothing more.
	assert.Equal(t, Result{Submitted: 1}, res)
	require.Equal(t, 1, q.len())
	assert.Equal(t, int64(99), q.items[0].ID)

	res, err = s.Sync(context.Background())
	require.NoError(t, err)
	assert.Equal(t, Result{Submitted: 1}, res)
	assert.Equal(t, 0, q.len())
}

func TestSync_ConcurrentInvocationsShareOnePass(t *testing.T) {
	q := &fakeQueue{items: queued(1)}
	remote := &fakeRemote{}

	gate := make(chan struct{})
	remote.onSubmit = func(model.Punch) { <-gate }

	s := New(q, remote, time.Minute)

	var wg sync.WaitGroup
	results := make([]Result, 2)
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			res, err := s.Sync(context.Background())
			assert.NoError(t, err)
			results[i] = res
		}(i)
	}

	// Let both invocations land on the in-flight pass, then release it.
	time.Sleep(50 * time.Millisecond)
	close(gate)
	wg.Wait()

	// One traversal happened; both callers saw its result.
	q.mu.Lock()
	assert.Equal(t, 1, q.listCalls)
	q.mu.Unlock()
	assert.Len(t, remote.submitted, 1)
	assert.Equal(t, results[0], results[1])
}
