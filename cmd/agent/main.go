// Entry point for the device agent: captures punches for one employee,
// queues them durably while offline, and drains the queue against the punch
// store. The device UI talks to the agent over localhost; SIGHUP is the
// external "connectivity resumed" trigger.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/gorilla/mux"
	"github.com/rs/zerolog/log"

	"punchclock.service/internal/agent"
	"punchclock.service/internal/agent/apiclient"
	"punchclock.service/internal/agent/queue"
	"punchclock.service/internal/agent/syncer"
	"punchclock.service/internal/agent/tracker"
	"punchclock.service/internal/config"
	"punchclock.service/internal/core/model"
	"punchclock.service/pkg/logger"
)

func main() {
	// Load config
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatal().Err(err).Msg("Could not load configuration")
	}

	logger.Setup(cfg.IsLocalDev)

	// Device-local durable store
	store, err := queue.Open(cfg.AgentDBPath)
	if err != nil {
		log.Fatal().Err(err).Str("path", cfg.AgentDBPath).Msg("Could not open agent database")
	}
	defer store.Close()

	client := apiclient.New(cfg.APIBaseURL, cfg.SubmitTimeout)
	engine := syncer.New(store, client, cfg.SubmitTimeout)

	// requestSync wakes the sync loop without blocking the capture flow.
	syncRequests := make(chan struct{}, 1)
	requestSync := func() {
		select {
		case syncRequests <- struct{}{}:
		default:
		}
	}

	loc := tracker.StaticLocation{Lat: cfg.DeviceLatitude, Lon: cfg.DeviceLongitude}
	trk := tracker.New(client, store, loc, cfg.EmployeeID, requestSync)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// SIGHUP stands in for the platform's "back online" notification.
	reconnect := make(chan os.Signal, 1)
	signal.Notify(reconnect, syscall.SIGHUP)
	go func() {
		for range reconnect {
			log.Info().Msg("Reconnect signal received, scheduling sync")
			requestSync()
		}
	}()

	go runSyncLoop(ctx, engine, syncRequests, cfg.SyncInterval)

	srv := &http.Server{
		Addr:    ":" + cfg.AgentPort,
		Handler: newControlRouter(trk),
	}

	go func() {
		log.Info().Str("port", cfg.AgentPort).Int64("employee_id", cfg.EmployeeID).Msg("Agent control API starting")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("listen")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info().Msg("Shutting down agent...")

	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Fatal().Err(err).Msg("Agent forced to shutdown")
	}

	log.Info().Msg("Agent exiting")
}

// runSyncLoop runs sync passes on a timer and on demand. After a pass that
// left records queued the next attempt backs off exponentially; a clean pass
// resets the cadence to the configured interval.
func runSyncLoop(ctx context.Context, engine *syncer.Syncer, requests <-chan struct{}, interval time.Duration) {
	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = interval
	bo.MaxInterval = 10 * interval

	timer := time.NewTimer(interval)
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-requests:
			if !timer.Stop() {
				select {
				case <-timer.C:
				default:
				}
			}
		case <-timer.C:
		}

		res, err := engine.Sync(ctx)
		if err != nil {
			log.Error().Err(err).Msg("Sync pass failed")
		}

		next := interval
		if err != nil || res.Pending() {
			next = bo.NextBackOff()
		} else {
			bo.Reset()
		}
		timer.Reset(next)
	}
}

type punchRequest struct {
	Note string `json:"note"`
}

// newControlRouter exposes the capture and status operations to the device UI.
func newControlRouter(trk *tracker.Tracker) *mux.Router {
	r := mux.NewRouter()

	r.HandleFunc("/punch/in", punchHandler(trk, model.TypeIn)).Methods(http.MethodPost)
	r.HandleFunc("/punch/out", punchHandler(trk, model.TypeOut)).Methods(http.MethodPost)

	r.HandleFunc("/status", func(w http.ResponseWriter, req *http.Request) {
		status, err := trk.Status(req.Context())
		if err != nil {
			writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{
			"status":         status.Type,
			"elapsed":        tracker.FormatElapsed(status.Elapsed),
			"elapsedSeconds": int64(status.Elapsed.Seconds()),
			"cached":         status.Cached,
		})
	}).Methods(http.MethodGet)

	r.HandleFunc("/weekly-summary", func(w http.ResponseWriter, req *http.Request) {
		total, cached, err := trk.WeeklyHours(req.Context())
		if err != nil {
			writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{
			"totalHours": total,
			"cached":     cached,
		})
	}).Methods(http.MethodGet)

	return r
}

func punchHandler(trk *tracker.Tracker, typ model.PunchType) http.HandlerFunc {
	return func(w http.ResponseWriter, req *http.Request) {
		var body punchRequest
		if req.Body != nil {
			_ = json.NewDecoder(req.Body).Decode(&body)
		}

		result, err := trk.Punch(req.Context(), typ, body.Note)
		if err != nil {
			writeJSON(w, captureStatusCode(err), map[string]string{"error": err.Error()})
			return
		}

		status := http.StatusCreated
		if !result.Synced {
			status = http.StatusAccepted
		}
		writeJSON(w, status, map[string]any{
			"id":      result.ID,
			"synced":  result.Synced,
			"message": result.Message,
		})
	}
}

func captureStatusCode(err error) int {
	switch {
	case errors.Is(err, agent.ErrDoublePunch):
		return http.StatusConflict
	case errors.Is(err, agent.ErrCapture):
		return http.StatusUnprocessableEntity
	case errors.Is(err, agent.ErrRejected):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(body)
}
