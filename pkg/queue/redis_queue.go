package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	goredis "github.com/redis/go-redis/v9"
	"golang.org/x/time/rate"

	"doula/pkg/config"
	"doula/pkg/redis"
)

// TaskStatus 任务状态
type TaskStatus string

const (
	TaskPending   TaskStatus = "pending"
	TaskRunning   TaskStatus = "running"
	TaskCompleted TaskStatus = "completed"
	TaskFailed    TaskStatus = "failed"
)

// ProviderEventTask 提供商事件投递任务
// webhook 入口验证签名后立即入队并回 200，对账在工作器里异步完成。
// 消费采用两段式：事件先移入 processing 列表，确认后才移除，
// 工作器中途崩溃的事件在重启时放回队列，已确认入队的事件不会丢失
type ProviderEventTask struct {
	ID             string          `json:"id"`
	Provider       string          `json:"provider"`
	EventType      string          `json:"event_type"`
	CorrelationKey string          `json:"correlation_key"`
	ClaimedStatus  string          `json:"claimed_status"`
	RefundAmount   string          `json:"refund_amount"`
	Reason         string          `json:"reason"`
	Payload        json.RawMessage `json:"payload"`
	Status         TaskStatus      `json:"status"`
	Attempts       int             `json:"attempts"`
	CreatedAt      time.Time       `json:"created_at"`

	// processing 列表里的原始条目，确认与重入队按原文匹配
	raw string
}

// QueueService Redis 队列服务
// 支持高并发操作和可靠的任务处理
type QueueService struct {
	client      *redis.RedisClient
	prefix      string
	timeout     time.Duration
	rateLimiter *rate.Limiter
	metrics     *QueueMetrics
}

// NewQueueService 创建新的队列服务实例
func NewQueueService() *QueueService {
	rateLimit := config.GetInt("queue.rate_limit", 1000)
	burst := config.GetInt("queue.rate_burst", rateLimit)

	return &QueueService{
		client:      redis.GetRedis(redis.QueueDB),
		prefix:      config.GetString("redis.queue_prefix", "doula:webhook"),
		timeout:     time.Duration(config.GetInt("redis.queue_timeout", 3600)) * time.Second,
		rateLimiter: rate.NewLimiter(rate.Limit(rateLimit), burst),
		metrics:     NewQueueMetrics(),
	}
}

// Metrics 暴露指标收集器
func (q *QueueService) Metrics() *QueueMetrics {
	return q.metrics
}

// PushTask 将事件任务推送到队列
// 支持限流和监控指标收集
func (q *QueueService) PushTask(ctx context.Context, task *ProviderEventTask) error {
	// 应用限流
	if err := q.rateLimiter.Wait(ctx); err != nil {
		return fmt.Errorf("rate limit exceeded: %w", err)
	}

	start := time.Now()
	defer func() {
		if q.metrics != nil {
			q.metrics.RecordPushLatency(time.Since(start))
		}
	}()

	if task.CreatedAt.IsZero() {
		task.CreatedAt = time.Now()
	}
	task.Status = TaskPending

	taskJSON, err := json.Marshal(task)
	if err != nil {
		q.metrics.RecordError(OpPush)
		return fmt.Errorf("failed to marshal task: %w", err)
	}

	// 使用事务确保原子性
	statusKey := fmt.Sprintf("%s:status:%s", q.prefix, task.ID)

	pipe := q.client.Client.Pipeline()
	pipe.LPush(ctx, q.eventsKey(), taskJSON)
	pipe.Set(ctx, statusKey, string(TaskPending), q.timeout)

	_, err = pipe.Exec(ctx)
	if err != nil {
		q.metrics.RecordError(OpPush)
		return fmt.Errorf("failed to push task: %w", err)
	}

	q.metrics.StartWaitTime(TaskID(task.ID))
	q.metrics.RecordSuccess(OpPush)
	return nil
}

// PopTask 从队列中获取任务，阻塞直到有任务或上下文取消
// 条目原子地移入 processing 列表，直到 AckTask 确认前都可恢复
func (q *QueueService) PopTask(ctx context.Context) (*ProviderEventTask, error) {
	raw, err := q.client.Client.BLMove(ctx, q.eventsKey(), q.processingKey(), "RIGHT", "LEFT", 0).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to pop task from queue: %w", err)
	}

	var task ProviderEventTask
	if err := json.Unmarshal([]byte(raw), &task); err != nil {
		// 无法解析的条目从 processing 移除，避免重启时反复放回
		q.client.Client.LRem(ctx, q.processingKey(), 1, raw)
		return nil, fmt.Errorf("failed to unmarshal task: %w", err)
	}

	task.raw = raw
	return &task, nil
}

// AckTask 确认任务已处理完成，从 processing 列表移除
func (q *QueueService) AckTask(ctx context.Context, task *ProviderEventTask) error {
	if task.raw == "" {
		return nil
	}
	if err := q.client.Client.LRem(ctx, q.processingKey(), 1, task.raw).Err(); err != nil {
		return fmt.Errorf("failed to ack task: %w", err)
	}
	return nil
}

// RequeueTask 把处理失败的任务放回队列重试，累计尝试次数
func (q *QueueService) RequeueTask(ctx context.Context, task *ProviderEventTask) error {
	task.Attempts++
	task.Status = TaskPending

	taskJSON, err := json.Marshal(task)
	if err != nil {
		return fmt.Errorf("failed to marshal task: %w", err)
	}

	pipe := q.client.Client.Pipeline()
	if task.raw != "" {
		pipe.LRem(ctx, q.processingKey(), 1, task.raw)
	}
	pipe.RPush(ctx, q.eventsKey(), taskJSON)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to requeue task: %w", err)
	}
	return nil
}

// DeadLetterTask 重试耗尽的任务移入死信列表，保留现场供人工排查
func (q *QueueService) DeadLetterTask(ctx context.Context, task *ProviderEventTask) error {
	pipe := q.client.Client.Pipeline()
	if task.raw != "" {
		pipe.LRem(ctx, q.processingKey(), 1, task.raw)
		pipe.RPush(ctx, q.deadKey(), task.raw)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to dead-letter task: %w", err)
	}
	return nil
}

// RecoverProcessing 把上次运行遗留在 processing 列表的任务放回队列
// 工作器启动时调用，配合引擎的幂等性，重复应用是无害的
func (q *QueueService) RecoverProcessing(ctx context.Context) (int, error) {
	moved := 0
	for {
		_, err := q.client.Client.LMove(ctx, q.processingKey(), q.eventsKey(), "RIGHT", "RIGHT").Result()
		if err != nil {
			if err == goredis.Nil {
				return moved, nil
			}
			return moved, fmt.Errorf("failed to recover processing tasks: %w", err)
		}
		moved++
	}
}

func (q *QueueService) eventsKey() string {
	return fmt.Sprintf("%s:events", q.prefix)
}

func (q *QueueService) processingKey() string {
	return fmt.Sprintf("%s:processing", q.prefix)
}

func (q *QueueService) deadKey() string {
	return fmt.Sprintf("%s:dead", q.prefix)
}

// UpdateTaskStatus 更新任务状态
func (q *QueueService) UpdateTaskStatus(ctx context.Context, taskID string, status TaskStatus, result string) error {
	statusKey := fmt.Sprintf("%s:status:%s", q.prefix, taskID)
	if err := q.client.Client.Set(ctx, statusKey, string(status), q.timeout).Err(); err != nil {
		return fmt.Errorf("failed to update task status: %w", err)
	}

	if result != "" {
		resultKey := fmt.Sprintf("%s:result:%s", q.prefix, taskID)
		if err := q.client.Client.Set(ctx, resultKey, result, q.timeout).Err(); err != nil {
			return fmt.Errorf("failed to save task result: %w", err)
		}
	}

	return nil
}

// GetTaskStatus 获取任务状态
func (q *QueueService) GetTaskStatus(ctx context.Context, taskID string) (TaskStatus, error) {
	statusKey := fmt.Sprintf("%s:status:%s", q.prefix, taskID)
	status, err := q.client.Client.Get(ctx, statusKey).Result()
	if err != nil {
		if err == goredis.Nil {
			return "", nil // 任务不存在
		}
		return "", fmt.Errorf("failed to get task status: %w", err)
	}

	return TaskStatus(status), nil
}

// Ping 检查队列服务健康状态
func (q *QueueService) Ping(ctx context.Context) error {
	return q.client.Ping()
}
