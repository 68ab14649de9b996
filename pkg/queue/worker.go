package queue

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"

	"doula/app/models/payment"
	"doula/pkg/logger"
	"doula/pkg/payment/reconcile"
)

// Worker 队列工作器
// 从事件队列消费提供商事件，交给对账引擎应用
type Worker struct {
	queueService *QueueService
	engine       *reconcile.Engine
	stopChan     chan struct{}
	workerCount  int
	metrics      *QueueMetrics
	wg           sync.WaitGroup
	config       WorkerConfig
}

// WorkerConfig 工作器配置
type WorkerConfig struct {
	WorkerCount     int           // 并发工作器数量
	MaxRetries      int           // 最大重试次数
	RetryInterval   time.Duration // 重试间隔
	ShutdownTimeout time.Duration // 关闭超时时间
}

// NewWorker 创建新的工作器组
func NewWorker(qs *QueueService, engine *reconcile.Engine, config WorkerConfig) *Worker {
	if config.WorkerCount <= 0 {
		config.WorkerCount = 10
	}
	if config.MaxRetries <= 0 {
		config.MaxRetries = 3
	}
	if config.RetryInterval <= 0 {
		config.RetryInterval = time.Second
	}
	if config.ShutdownTimeout <= 0 {
		config.ShutdownTimeout = 30 * time.Second
	}

	return &Worker{
		queueService: qs,
		engine:       engine,
		stopChan:     make(chan struct{}),
		workerCount:  config.WorkerCount,
		metrics:      qs.Metrics(),
		config:       config,
	}
}

// Start 启动工作器组
// 先把上次运行遗留在 processing 列表的事件放回队列，再开始消费
func (w *Worker) Start() {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if moved, err := w.queueService.RecoverProcessing(ctx); err != nil {
		logger.ErrorString("Worker", "Recover", err.Error())
	} else if moved > 0 {
		logger.WarnString("Worker", "Recover", fmt.Sprintf("requeued %d in-flight events", moved))
	}

	for i := 0; i < w.workerCount; i++ {
		w.wg.Add(1)
		go w.startWorker(i)
	}
}

// startWorker 启动单个工作器
func (w *Worker) startWorker(id int) {
	defer w.wg.Done()

	logger.InfoString("Worker", "Start", fmt.Sprintf("Worker %d started", id))

	for {
		select {
		case <-w.stopChan:
			logger.InfoString("Worker", "Stop", fmt.Sprintf("Worker %d stopping", id))
			return
		default:
			if err := w.processNextTask(); err != nil {
				logger.ErrorString("Worker", "Error", fmt.Sprintf("Worker %d error: %v", id, err))
				time.Sleep(w.config.RetryInterval) // 错误恢复延迟
			}
		}
	}
}

// processNextTask 取出并处理下一个事件任务
func (w *Worker) processNextTask() error {
	start := time.Now()
	defer func() {
		w.metrics.RecordProcessingTime(time.Since(start))
	}()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	task, err := w.queueService.PopTask(ctx)
	if err != nil {
		if errors.Is(err, redis.Nil) || ctx.Err() != nil {
			time.Sleep(100 * time.Millisecond) // 避免空队列时的忙等
			return nil
		}
		return fmt.Errorf("pop task error: %w", err)
	}

	return w.handleTask(ctx, task)
}

// handleTask 处理单个事件任务
// 业务拒绝（无效变迁、金额越界）是终态，记录后按已处理对待，不回队列
func (w *Worker) handleTask(ctx context.Context, task *ProviderEventTask) error {
	w.metrics.EndWaitTime(TaskID(task.ID))

	taskCtx, cancel := context.WithTimeout(ctx, 20*time.Second)
	defer cancel()

	if err := w.queueService.UpdateTaskStatus(ctx, task.ID, TaskRunning, ""); err != nil {
		return fmt.Errorf("update task status error: %w", err)
	}

	result, err := w.engine.ApplyEvent(taskCtx, toEngineEvent(task))
	if err != nil {
		w.metrics.RecordError(OpProcess)
		if updateErr := w.queueService.UpdateTaskStatus(ctx, task.ID, TaskFailed, err.Error()); updateErr != nil {
			logger.ErrorString("Worker", "UpdateStatus", updateErr.Error())
		}
		if reconcile.IsBusinessError(err) {
			// 重放也会得到同样的拒绝，审计行已落库，确认即可
			logger.WarnString("Worker", "Rejected",
				fmt.Sprintf("event %s rejected: %v", task.ID, err))
			return w.queueService.AckTask(ctx, task)
		}

		// 瞬时失败：放回队列重试，重试耗尽进死信列表
		if task.Attempts+1 >= w.config.MaxRetries {
			logger.ErrorString("Worker", "DeadLetter",
				fmt.Sprintf("event %s exhausted %d attempts: %v", task.ID, task.Attempts+1, err))
			if dlErr := w.queueService.DeadLetterTask(ctx, task); dlErr != nil {
				logger.ErrorString("Worker", "DeadLetter", dlErr.Error())
			}
			return fmt.Errorf("apply event error: %w", err)
		}
		if rqErr := w.queueService.RequeueTask(ctx, task); rqErr != nil {
			logger.ErrorString("Worker", "Requeue", rqErr.Error())
		}
		return fmt.Errorf("apply event error: %w", err)
	}

	outcome := "applied"
	if result.Duplicate {
		outcome = "duplicate"
	}
	if err := w.queueService.UpdateTaskStatus(ctx, task.ID, TaskCompleted, outcome); err != nil {
		logger.ErrorString("Worker", "UpdateStatus", err.Error())
	}

	w.metrics.RecordSuccess(OpProcess)
	// 状态已落库，确认后事件才从 processing 列表消失
	return w.queueService.AckTask(ctx, task)
}

// toEngineEvent 任务到引擎事件的转换
func toEngineEvent(task *ProviderEventTask) reconcile.Event {
	refund := decimal.Zero
	if task.RefundAmount != "" {
		if d, err := decimal.NewFromString(task.RefundAmount); err == nil {
			refund = d
		}
	}

	return reconcile.Event{
		Provider:       payment.Method(task.Provider),
		CorrelationKey: task.CorrelationKey,
		ClaimedStatus:  payment.Status(task.ClaimedStatus),
		RefundAmount:   refund,
		Reason:         task.Reason,
		Payload:        payment.JSON(task.Payload),
	}
}

// Stop 优雅关闭工作器组
func (w *Worker) Stop() {
	close(w.stopChan)

	done := make(chan struct{})
	go func() {
		w.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		logger.InfoString("Worker", "Stop", "All workers stopped gracefully")
	case <-time.After(w.config.ShutdownTimeout):
		logger.WarnString("Worker", "Stop", "Worker shutdown timed out")
	}
}
