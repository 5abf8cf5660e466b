package core

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/ses"
	"github.com/aws/aws-sdk-go-v2/service/ses/types"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"punchclock.service/pkg/telemetry"
)

type AlertService interface {
	SendDuplicateAlert(ctx context.Context, employeeID int64, duplicates int64) error
}

type SESAlertService struct {
	client    *ses.Client
	sender    string
	recipient string
}

func NewSESAlertService(client *ses.Client, sender, recipient string) *SESAlertService {
	return &SESAlertService{client: client, sender: sender, recipient: recipient}
}

// SendDuplicateAlert emails the operations inbox when a punch turns out to
// have been double-recorded by a resubmission after a lost acknowledgment.
func (s *SESAlertService) SendDuplicateAlert(ctx context.Context, employeeID int64, duplicates int64) error {
	tracer := otel.Tracer("ses-alert-service")
	ctx, span := tracer.Start(ctx, "send_alert", trace.WithSpanKind(trace.SpanKindClient))
	defer span.End()

	// The SQS span extractor stashes the employee id it parsed from the
	// triggering message; prefer it for trace attribution so the alert
	// lands on the same dimension as the rest of the pipeline.
	spanEmployee := telemetry.GetEmployeeIDFromContext(ctx)
	if spanEmployee == 0 {
		spanEmployee = employeeID
	}
	span.SetAttributes(attribute.Int64("app.employeeId", spanEmployee))

	input := &ses.SendEmailInput{
		Source: aws.String(s.sender),
		Destination: &types.Destination{
			ToAddresses: []string{s.recipient},
		},
		Message: &types.Message{
			Subject: &types.Content{
				Data: aws.String("Duplicate punch records detected"),
			},
			Body: &types.Body{
				Text: &types.Content{
					Data: aws.String(fmt.Sprintf("Employee %d has %d duplicate punch record(s). A submission was most likely retried after its acknowledgment was lost.", employeeID, duplicates)),
				},
			},
		},
	}

	_, err := s.client.SendEmail(ctx, input)
	return err
}
