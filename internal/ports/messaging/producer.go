package messaging

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"punchclock.service/pkg/telemetry"
)

// SQSProducer publishes punch-accepted events to an SQS queue.
type SQSProducer struct {
	client   SQSClient
	queueURL string
}

// NewSQSProducer new instance of SQS producer.
func NewSQSProducer(client SQSClient, queueURL string) *SQSProducer {
	return &SQSProducer{
		client:   client,
		queueURL: queueURL,
	}
}

// PublishPunchAccepted sends the event to the punch-events queue, carrying
// the current trace context in the message attributes.
func (p *SQSProducer) PublishPunchAccepted(ctx context.Context, event PunchAcceptedEvent) error {
	body, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	// Enrich the current span with employee id if available
	span := trace.SpanFromContext(ctx)
	if span.IsRecording() {
		span.SetAttributes(attribute.Int64("app.employeeId", event.EmployeeID))
	}

	attributes := telemetry.InjectTraceContext(ctx)
	attributes["EventType"] = telemetry.StringAttribute("PUNCH_ACCEPTED")

	_, err = p.client.SendMessage(ctx, &sqs.SendMessageInput{
		QueueUrl:          aws.String(p.queueURL),
		MessageBody:       aws.String(string(body)),
		MessageAttributes: attributes,
	})
	if err != nil {
		return fmt.Errorf("failed to send message to punch events queue: %w", err)
	}
	return nil
}
