package jobs

import (
	"context"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

type testQueueConfig struct {
	addr string
}

func (c testQueueConfig) GetRedisAddr() string             { return c.addr }
func (c testQueueConfig) GetRedisPassword() string         { return "" }
func (c testQueueConfig) GetRedisDB() int                  { return 0 }
func (c testQueueConfig) GetQueueConcurrency() int         { return 1 }
func (c testQueueConfig) GetSMSQueueConcurrency() int      { return 1 }
func (c testQueueConfig) GetCalendlyQueueConcurrency() int { return 1 }
func (c testQueueConfig) GetJobMaxRetries() int            { return 3 }

func TestEnqueueSMSProcessDeduplicates(t *testing.T) {
	srv := miniredis.RunT(t)

	client := NewClient(testQueueConfig{addr: srv.Addr()})
	defer func() {
		_ = client.Close()
	}()

	eventID := uuid.New()
	ctx := context.Background()

	require.NoError(t, client.EnqueueSMSProcess(ctx, eventID))

	// A second delivery of the same webhook event is a no-op, not an error.
	require.NoError(t, client.EnqueueSMSProcess(ctx, eventID))

	require.NoError(t, client.EnqueueSMSProcess(ctx, uuid.New()))
}

func TestEnqueueCalendlyProcessDeduplicates(t *testing.T) {
	srv := miniredis.RunT(t)

	client := NewClient(testQueueConfig{addr: srv.Addr()})
	defer func() {
		_ = client.Close()
	}()

	eventID := uuid.New()
	ctx := context.Background()

	require.NoError(t, client.EnqueueCalendlyProcess(ctx, eventID))
	require.NoError(t, client.EnqueueCalendlyProcess(ctx, eventID))
}

func TestNilClientDropsWork(t *testing.T) {
	var client *Client

	require.NoError(t, client.EnqueueSMSProcess(context.Background(), uuid.New()))
	require.NoError(t, client.Close())
}

func TestTaskPayloadRoundTrip(t *testing.T) {
	task, err := NewSMSProcessTask(SMSProcessPayload{WebhookEventID: "abc"})
	require.NoError(t, err)
	require.Equal(t, TaskSMSProcess, task.Type())

	payload, err := ParseSMSProcessPayload(task)
	require.NoError(t, err)
	require.Equal(t, "abc", payload.WebhookEventID)
}
