// Package syncer drains the device's pending queue against the punch store.
package syncer

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/sony/gobreaker"
	"golang.org/x/sync/singleflight"
	"punchclock.service/internal/agent"
	"punchclock.service/internal/core/model"
)

// Submitter delivers a single punch to the store.
type Submitter interface {
	SubmitPunch(ctx context.Context, p model.Punch) (int64, error)
}

// PendingQueue is the slice of the device store the syncer needs.
type PendingQueue interface {
	ListPending(ctx context.Context) ([]model.Punch, error)
	Remove(ctx context.Context, id int64) error
}

// Result summarizes one sync pass.
type Result struct {
	Submitted int
	Rejected  int
	Failed    int
}

// Pending reports whether records were left in the queue for a later pass.
func (r Result) Pending() bool {
	return r.Failed > 0
}

// Syncer performs single-flight sync passes: one snapshot of the pending
// list, drained front to back. A failed submission leaves its record queued
// and never blocks the rest of the pass; records enqueued while a pass runs
// wait for the next invocation. Submissions go through a circuit breaker so
// an unreachable store fails the remainder of a pass fast instead of eating
// a full timeout per record.
type Syncer struct {
	queue   PendingQueue
	remote  Submitter
	timeout time.Duration
	group   singleflight.Group
	cb      *gobreaker.CircuitBreaker
}

// New creates a syncer with a per-submission timeout.
func New(queue PendingQueue, remote Submitter, timeout time.Duration) *Syncer {
	settings := gobreaker.Settings{
		Name:        "Punch-Store",
		MaxRequests: 5,
		Interval:    60 * time.Second,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			// Trip if failure rate is bigger then 50% after at least 10 requests
			failureRatio := float64(counts.TotalFailures) / float64(counts.Requests)
			return counts.Requests >= 10 && failureRatio >= 0.5
		},
		// A validation rejection is the server answering, not the server
		// being unhealthy.
		IsSuccessful: func(err error) bool {
			return err == nil || errors.Is(err, agent.ErrRejected)
		},
	}

	return &Syncer{
		queue:   queue,
		remote:  remote,
		timeout: timeout,
		cb:      gobreaker.NewCircuitBreaker(settings),
	}
}

// Sync runs one sync pass. Concurrent invocations join the in-flight pass
// and share its result instead of starting a second traversal of the same
// queue.
func (s *Syncer) Sync(ctx context.Context) (Result, error) {
	v, err, _ := s.group.Do("sync-pass", func() (interface{}, error) {
		return s.pass(ctx)
	})
	if err != nil {
		return Result{}, err
	}
	return v.(Result), nil
}

func (s *Syncer) pass(ctx context.Context) (Result, error) {
	var res Result

	pending, err := s.queue.ListPending(ctx)
	if err != nil {
		return res, err
	}
	if len(pending) == 0 {
		return res, nil
	}

	log.Ctx(ctx).Info().Int("pending", len(pending)).Msg("Sync pass starting")

	for _, p := range pending {
		if ctx.Err() != nil {
			return res, ctx.Err()
		}

		id, err := s.submit(ctx, p)
		switch {
		case err == nil:
			if rmErr := s.queue.Remove(ctx, p.ID); rmErr != nil {
				// The punch is on the server but still queued locally; the
				// next pass will resubmit it and the monitor worker will
				// see the duplicate.
				log.Ctx(ctx).Error().Err(rmErr).Int64("client_id", p.ID).Msg("Failed to remove synced punch from queue")
			}
			res.Submitted++
			log.Ctx(ctx).Info().Int64("client_id", p.ID).Int64("server_id", id).Msg("Punch synced")

		case errors.Is(err, agent.ErrRejected):
			// Malformed record; retrying would repeat the rejection.
			if rmErr := s.queue.Remove(ctx, p.ID); rmErr != nil {
				log.Ctx(ctx).Error().Err(rmErr).Int64("client_id", p.ID).Msg("Failed to drop rejected punch from queue")
			}
			res.Rejected++
			log.Ctx(ctx).Error().Err(err).Int64("client_id", p.ID).Msg("Punch rejected by server, dropped from retry path")

		default:
			res.Failed++
			log.Ctx(ctx).Warn().Err(err).Int64("client_id", p.ID).Msg("Punch submission failed, will retry on next pass")
		}
	}

	log.Ctx(ctx).Info().
		Int("submitted", res.Submitted).
		Int("rejected", res.Rejected).
		Int("failed", res.Failed).
		Msg("Sync pass finished")

	return res, nil
}

func (s *Syncer) submit(ctx context.Context, p model.Punch) (int64, error) {
	attemptCtx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	v, err := s.cb.Execute(func() (interface{}, error) {
		return s.remote.SubmitPunch(attemptCtx, p)
	})
	if err != nil {
		if errors.Is(err, gobreaker.ErrOpenState) {
			return 0, agent.ErrTransport
		}
		return 0, err
	}
	return v.(int64), nil
}
