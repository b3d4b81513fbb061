//go:build integration

package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/ory/dockertest/v3"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	redisclient "github.com/expo-directory/backend/pkg/redis"
)

var testClient *redis.Client

func TestMain(m *testing.M) {
	dock, err := dockertest.NewPool("")
	if err != nil {
		fmt.Fprintf(os.Stderr, "docker: %v\n", err)
		os.Exit(1)
	}
	resource, err := dock.Run("redis", "7-alpine", nil)
	if err != nil {
		fmt.Fprintf(os.Stderr, "start redis: %v\n", err)
		os.Exit(1)
	}
	_ = resource.Expire(60)

	dock.MaxWait = 30 * time.Second
	if err := dock.Retry(func() error {
		c, err := redisclient.NewClient(context.Background(), redisclient.Options{Addr: "localhost:" + resource.GetPort("6379/tcp")}, zap.NewNop())
		if err != nil {
			return err
		}
		testClient = c.Client
		return nil
	}); err != nil {
		fmt.Fprintf(os.Stderr, "connect redis: %v\n", err)
		_ = dock.Purge(resource)
		os.Exit(1)
	}

	code := m.Run()
	_ = testClient.Close()
	_ = dock.Purge(resource)
	os.Exit(code)
}

func TestEnqueueDequeue(t *testing.T) {
	ctx := context.Background()
	require.NoError(t, testClient.FlushDB(ctx).Err())
	q := NewQueue(testClient, zap.NewNop())

	id := uuid.New()
	require.NoError(t, q.EnqueueImageSync(ctx, id))

	job, err := q.Dequeue(ctx)
	require.NoError(t, err)
	require.NotNil(t, job)
	assert.Equal(t, JobTypeImageSync, job.Type)
	var payload ImageSyncPayload
	require.NoError(t, json.Unmarshal(job.Payload, &payload))
	assert.Equal(t, id, payload.ExhibitionID)
}

func TestRetryMovesToDLQ(t *testing.T) {
	ctx := context.Background()
	require.NoError(t, testClient.FlushDB(ctx).Err())
	q := NewQueue(testClient, zap.NewNop())
	require.NoError(t, q.EnqueueImageSync(ctx, uuid.New()))

	job, err := q.Dequeue(ctx)
	require.NoError(t, err)
	for i := 1; i < MaxRetries; i++ {
		require.NoError(t, q.Retry(ctx, job))
		job, err = q.Dequeue(ctx)
		require.NoError(t, err)
		require.NotNil(t, job)
		assert.Equal(t, i, job.Attempt)
	}
	require.NoError(t, q.Retry(ctx, job))

	assert.EqualValues(t, 0, testClient.LLen(ctx, QueueImageSync).Val())
	assert.EqualValues(t, 1, testClient.LLen(ctx, QueueDLQ).Val())
}

func TestDequeueSkipsMalformedJobs(t *testing.T) {
	ctx := context.Background()
	require.NoError(t, testClient.FlushDB(ctx).Err())
	require.NoError(t, testClient.RPush(ctx, QueueImageSync, "not json").Err())

	job, err := NewQueue(testClient, zap.NewNop()).Dequeue(ctx)
	require.NoError(t, err)
	assert.Nil(t, job)
}
