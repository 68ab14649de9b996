package queue

import (
	"context"
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/time/rate"

	"doula/pkg/redis"
)

// 队列测试需要真实 Redis，设置 REDIS_ADDR（如 127.0.0.1:6379）后启用
func setupQueueService(t *testing.T) *QueueService {
	t.Helper()

	addr := os.Getenv("REDIS_ADDR")
	if addr == "" {
		t.Skip("REDIS_ADDR 未设置，跳过队列集成测试")
	}

	client := redis.NewClient(redis.RedisConfig{
		Address:      addr,
		DB:           15,
		PoolSize:     10,
		MinIdleConns: 1,
		Timeout:      5 * time.Second,
	})

	qs := &QueueService{
		client:      client,
		prefix:      fmt.Sprintf("doula:test:%d", time.Now().UnixNano()),
		timeout:     time.Minute,
		rateLimiter: rate.NewLimiter(1000, 1000),
		metrics:     NewQueueMetrics(),
	}
	t.Cleanup(func() {
		client.Client.Del(context.Background(), qs.eventsKey(), qs.processingKey(), qs.deadKey())
	})
	return qs
}

func popWithTimeout(t *testing.T, qs *QueueService) *ProviderEventTask {
	t.Helper()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	task, err := qs.PopTask(ctx)
	require.NoError(t, err)
	return task
}

func TestQueueTaskAckRemovesFromProcessing(t *testing.T) {
	qs := setupQueueService(t)
	ctx := context.Background()

	require.NoError(t, qs.PushTask(ctx, &ProviderEventTask{
		ID:             "task-1",
		Provider:       "stripe",
		EventType:      "payment_intent.succeeded",
		CorrelationKey: "pi_1",
		ClaimedStatus:  "completed",
	}))

	task := popWithTimeout(t, qs)
	assert.Equal(t, "task-1", task.ID)

	// 消费中的条目停留在 processing 列表，确认后才移除
	n, err := qs.client.Client.LLen(ctx, qs.processingKey()).Result()
	require.NoError(t, err)
	assert.EqualValues(t, 1, n)

	require.NoError(t, qs.AckTask(ctx, task))
	n, err = qs.client.Client.LLen(ctx, qs.processingKey()).Result()
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestQueueRecoversUnackedTasks(t *testing.T) {
	qs := setupQueueService(t)
	ctx := context.Background()

	require.NoError(t, qs.PushTask(ctx, &ProviderEventTask{
		ID:             "task-2",
		Provider:       "paypal",
		EventType:      "PAYMENT.CAPTURE.COMPLETED",
		CorrelationKey: "ORDER-1",
		ClaimedStatus:  "completed",
	}))

	// 取出后不确认，模拟工作器在应用前崩溃
	_ = popWithTimeout(t, qs)

	moved, err := qs.RecoverProcessing(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, moved)

	// 事件回到队列，可以被再次消费
	again := popWithTimeout(t, qs)
	assert.Equal(t, "task-2", again.ID)
	require.NoError(t, qs.AckTask(ctx, again))
}

func TestQueueRequeueIncrementsAttempts(t *testing.T) {
	qs := setupQueueService(t)
	ctx := context.Background()

	require.NoError(t, qs.PushTask(ctx, &ProviderEventTask{
		ID:             "task-3",
		Provider:       "stripe",
		EventType:      "payment_intent.succeeded",
		CorrelationKey: "pi_3",
		ClaimedStatus:  "completed",
	}))

	task := popWithTimeout(t, qs)
	require.NoError(t, qs.RequeueTask(ctx, task))

	// processing 列表已清空，重入队的条目带上尝试次数
	n, err := qs.client.Client.LLen(ctx, qs.processingKey()).Result()
	require.NoError(t, err)
	assert.Zero(t, n)

	again := popWithTimeout(t, qs)
	assert.Equal(t, "task-3", again.ID)
	assert.Equal(t, 1, again.Attempts)
	require.NoError(t, qs.AckTask(ctx, again))
}

func TestQueueDeadLetterKeepsEntry(t *testing.T) {
	qs := setupQueueService(t)
	ctx := context.Background()

	require.NoError(t, qs.PushTask(ctx, &ProviderEventTask{
		ID:             "task-4",
		Provider:       "stripe",
		EventType:      "charge.refunded",
		CorrelationKey: "pi_4",
		ClaimedStatus:  "refunded",
	}))

	task := popWithTimeout(t, qs)
	require.NoError(t, qs.DeadLetterTask(ctx, task))

	n, err := qs.client.Client.LLen(ctx, qs.processingKey()).Result()
	require.NoError(t, err)
	assert.Zero(t, n)

	n, err = qs.client.Client.LLen(ctx, qs.deadKey()).Result()
	require.NoError(t, err)
	assert.EqualValues(t, 1, n)
}
