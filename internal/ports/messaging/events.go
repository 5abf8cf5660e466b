package messaging

import (
	"time"

	"punchclock.service/internal/core/model"
)

// PunchAcceptedEvent is the JSON payload published to SQS whenever the store
// accepts a punch. The monitor worker consumes it to watch for duplicate
// records caused by resubmission after a lost acknowledgment.
type PunchAcceptedEvent struct {
	EventID    string          `json:"eventId"`
	PunchID    int64           `json:"punchId"`
	EmployeeID int64           `json:"employeeId"`
	Type       model.PunchType `json:"type"`
	Timestamp  time.Time       `json:"timestamp"`
	OccurredAt time.Time       `json:"occurredAt"`
}
