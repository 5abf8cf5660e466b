// Package monitor consumes punch-accepted events and surfaces duplicate
// server records. Resubmission after a lost acknowledgment is an accepted
// delivery gap, but it must be observable rather than silent.
package monitor

import (
	"context"
	"encoding/json"
	"fmt"
	"math"

	"github.com/aws/aws-sdk-go-v2/service/sqs/types"
	"github.com/rs/zerolog/log"
	"punchclock.service/internal/core"
	"punchclock.service/internal/ports/messaging"
	"punchclock.service/internal/ports/repository"
)

type DuplicateProcessor struct {
	repo   repository.Repository
	alerts core.AlertService
}

// NewProcessor sets up a processor that checks every accepted punch for
// duplicate siblings in the store and alerts when it finds any.
func NewProcessor(repo repository.Repository, alerts core.AlertService) *DuplicateProcessor {
	return &DuplicateProcessor{
		repo:   repo,
		alerts: alerts,
	}
}

// Process handles one punch-accepted event. It counts stored punches with
// the same employee, type and timestamp; more than one means a submission
// was double-recorded.
func (p *DuplicateProcessor) Process(ctx context.Context, msg types.Message) (bool, int32, error) {
	var event messaging.PunchAcceptedEvent
	if err := json.Unmarshal([]byte(*msg.Body), &event); err != nil {
		log.Ctx(ctx).Error().Err(err).Msg("Failed to unmarshal punch-accepted event")
		return false, 0, err // Do not retry on malformed message
	}

	count, err := p.repo.CountMatching(ctx, event.EmployeeID, event.Type, event.Timestamp)
	if err != nil {
		return true, 10, fmt.Errorf("failed to count matching punches: %w", err)
	}

	if count <= 1 {
		return false, 0, nil
	}

	duplicates := count - 1

	// The metric the dashboards scrape: duplicate punch records observed
	// per employee per day.
	log.Ctx(ctx).Warn().
		Str("metric", "duplicate_punch_records").
		Int64("employee_id", event.EmployeeID).
		Int64("duplicates", duplicates).
		Str("day", event.Timestamp.UTC().Format("2006-01-02")).
		Int64("punch_id", event.PunchID).
		Msg("Duplicate punch records detected")

	if err := p.alerts.SendDuplicateAlert(ctx, event.EmployeeID, duplicates); err != nil {
		delay := calculateBackoff(receiveCount(msg))
		return true, delay, fmt.Errorf("failed to send duplicate alert: %w", err)
	}

	return false, 0, nil
}

// receiveCount reads the approximate delivery attempt from the SQS message.
func receiveCount(msg types.Message) int {
	if v, ok := msg.Attributes["ApproximateReceiveCount"]; ok {
		var n int
		if _, err := fmt.Sscanf(v, "%d", &n); err == nil {
			return n
		}
	}
	return 1
}

// calculateBackoff determines how long to wait before retrying a failed job.
// It increases the delay exponentially with each retry.
func calculateBackoff(retryCount int) int32 {
	backoff := int32(math.Pow(2, float64(retryCount)) * 10)
	if backoff > 3600 {
		return 3600 // max at 1 hour
	}
	return backoff
}
