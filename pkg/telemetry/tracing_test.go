package telemetry

import (
	"context"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sqs/types"
	"github.com/stretchr/testify/assert"
)

func TestStartSpanFromSQSMessage_CarriesEmployeeID(t *testing.T) {
	msg := types.Message{
		MessageId: aws.String("msg-1"),
		Body:      aws.String(`{"employeeId": 7}`),
	}

	ctx, span := StartSpanFromSQSMessage(context.Background(), msg)
	defer span.End()

	assert.Equal(t, int64(7), GetEmployeeIDFromContext(ctx))
}

func TestGetEmployeeIDFromContext_ZeroWhenAbsent(t *testing.T) {
	assert.Equal(t, int64(0), GetEmployeeIDFromContext(context.Background()))
}
