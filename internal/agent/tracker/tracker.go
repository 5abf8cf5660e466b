// Package tracker implements the device's capture flow and the status
// reconciler that guards it.
package tracker

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"
	"punchclock.service/internal/agent"
	"punchclock.service/internal/core/model"
)

// LocationProvider captures the device's current coordinates. Geolocation is
// an external collaborator: when it cannot produce a fix, punch creation
// itself fails.
type LocationProvider interface {
	Current(ctx context.Context) (lat, lon float64, err error)
}

// StaticLocation serves a fixed coordinate pair, the usual setup for a
// wall-mounted clock terminal. An unconfigured (zero) pair fails capture.
type StaticLocation struct {
	Lat float64
	Lon float64
}

func (l StaticLocation) Current(ctx context.Context) (float64, float64, error) {
	if l.Lat == 0 && l.Lon == 0 {
		return 0, 0, fmt.Errorf("%w: device location not configured", agent.ErrCapture)
	}
	return l.Lat, l.Lon, nil
}

// Remote is the punch store as seen from the device.
type Remote interface {
	SubmitPunch(ctx context.Context, p model.Punch) (int64, error)
	ListPunches(ctx context.Context, employeeID int64) ([]model.Punch, error)
	WeeklySummary(ctx context.Context, employeeID int64) (string, error)
}

// DeviceStore is the slice of the local store the tracker needs: the
// pending queue for offline fallback and the read caches.
type DeviceStore interface {
	Enqueue(ctx context.Context, p model.Punch) error
	SavePunchCache(ctx context.Context, punches []model.Punch) error
	LoadPunchCache(ctx context.Context) ([]model.Punch, error)
	SaveWeeklyHours(ctx context.Context, total string) error
	LoadWeeklyHours(ctx context.Context) (string, bool, error)
}

// Status is the employee's reconciled clock state. Elapsed is only set while
// the state is "in". Cached marks that the server was unreachable and the
// answer came from the last-known punch list.
type Status struct {
	Type    model.PunchType
	Elapsed time.Duration
	Cached  bool
}

// CaptureResult reports what happened to a captured punch. A punch that
// could not reach the server immediately is not lost: it sits in the queue
// with its provisional id until a sync pass delivers it.
type CaptureResult struct {
	ID      int64
	Synced  bool
	Message string
}

// Tracker drives punch capture for one employee on one device.
type Tracker struct {
	remote      Remote
	store       DeviceStore
	loc         LocationProvider
	employeeID  int64
	requestSync func()
	now         func() time.Time
}

// New wires up a tracker. requestSync is invoked after an offline fallback
// enqueue so the sync engine gets scheduled; pass a no-op if nothing listens.
func New(remote Remote, store DeviceStore, loc LocationProvider, employeeID int64, requestSync func()) *Tracker {
	if requestSync == nil {
		requestSync = func() {}
	}
	return &Tracker{
		remote:      remote,
		store:       store,
		loc:         loc,
		employeeID:  employeeID,
		requestSync: requestSync,
		now:         time.Now,
	}
}

// Punch captures a clock event. The flow: reconcile current status, reject a
// same-type punch, capture location, try the store directly, and fall back
// to the durable queue when the store is unreachable.
func (t *Tracker) Punch(ctx context.Context, typ model.PunchType, note string) (CaptureResult, error) {
	if !typ.Valid() {
		return CaptureResult{}, fmt.Errorf("%w: unknown punch type %q", agent.ErrRejected, typ)
	}

	status, err := t.Status(ctx)
	if err != nil {
		return CaptureResult{}, err
	}
	if status.Type == typ {
		return CaptureResult{}, fmt.Errorf("%w: already punched %q", agent.ErrDoublePunch, typ)
	}

	lat, lon, err := t.loc.Current(ctx)
	if err != nil {
		if errors.Is(err, agent.ErrCapture) {
			return CaptureResult{}, err
		}
		return CaptureResult{}, fmt.Errorf("%w: %v", agent.ErrCapture, err)
	}

	now := t.now()
	punch := model.Punch{
		ID:         now.UnixNano(), // provisional id, only meaningful inside the queue
		EmployeeID: t.employeeID,
		Type:       typ,
		Timestamp:  now.UTC(),
		Latitude:   lat,
		Longitude:  lon,
		Note:       note,
		SyncStatus: model.StatusPending,
	}

	serverID, err := t.remote.SubmitPunch(ctx, punch)
	switch {
	case err == nil:
		t.refreshCaches(ctx)
		return CaptureResult{ID: serverID, Synced: true, Message: "Punch recorded."}, nil

	case errors.Is(err, agent.ErrRejected):
		// The server considers the record malformed; queueing it would
		// just repeat the rejection later.
		return CaptureResult{}, err

	default:
		if qErr := t.store.Enqueue(ctx, punch); qErr != nil {
			return CaptureResult{}, qErr
		}
		t.requestSync()
		log.Ctx(ctx).Warn().Err(err).Int64("client_id", punch.ID).Msg("Store unreachable, punch saved offline")
		return CaptureResult{
			ID:      punch.ID,
			Synced:  false,
			Message: "Punch saved offline. It will be synced when you're back online.",
		}, nil
	}
}

// Status derives the current clock state from the most recent punch,
// preferring the live store and falling back to the cached list when the
// store is unreachable. An employee with no punches at all is "out".
func (t *Tracker) Status(ctx context.Context) (Status, error) {
	var status Status

	punches, err := t.remote.ListPunches(ctx, t.employeeID)
	if err != nil {
		if !errors.Is(err, agent.ErrTransport) {
			return status, err
		}
		punches, err = t.store.LoadPunchCache(ctx)
		if err != nil {
			return status, err
		}
		status.Cached = true
	} else {
		if err := t.store.SavePunchCache(ctx, punches); err != nil {
			log.Ctx(ctx).Warn().Err(err).Msg("Failed to refresh punch cache")
		}
	}

	if len(punches) == 0 {
		status.Type = model.TypeOut
		return status, nil
	}

	last := punches[0] // newest first
	status.Type = last.Type
	if last.Type == model.TypeIn {
		status.Elapsed = t.now().UTC().Sub(last.Timestamp)
	}
	return status, nil
}

// WeeklyHours returns the trailing-week total, falling back to the
// last-known value (or "0.00") when the store is unreachable.
func (t *Tracker) WeeklyHours(ctx context.Context) (total string, cached bool, err error) {
	total, err = t.remote.WeeklySummary(ctx, t.employeeID)
	if err == nil {
		if saveErr := t.store.SaveWeeklyHours(ctx, total); saveErr != nil {
			log.Ctx(ctx).Warn().Err(saveErr).Msg("Failed to cache weekly hours")
		}
		return total, false, nil
	}
	if !errors.Is(err, agent.ErrTransport) {
		return "", false, err
	}

	total, ok, err := t.store.LoadWeeklyHours(ctx)
	if err != nil {
		return "", false, err
	}
	if !ok {
		total = "0.00"
	}
	return total, true, nil
}

func (t *Tracker) refreshCaches(ctx context.Context) {
	if punches, err := t.remote.ListPunches(ctx, t.employeeID); err == nil {
		if err := t.store.SavePunchCache(ctx, punches); err != nil {
			log.Ctx(ctx).Warn().Err(err).Msg("Failed to refresh punch cache")
		}
	}
	if total, err := t.remote.WeeklySummary(ctx, t.employeeID); err == nil {
		if err := t.store.SaveWeeklyHours(ctx, total); err != nil {
			log.Ctx(ctx).Warn().Err(err).Msg("Failed to cache weekly hours")
		}
	}
}

// FormatElapsed renders a duration as HH:MM:SS for the status display.
func FormatElapsed(d time.Duration) string {
	if d < 0 {
		d = 0
	}
	secs := int64(d.Seconds())
	return fmt.Sprintf("%02d:%02d:%02d", secs/3600, (secs%3600)/60, secs%60)
}
