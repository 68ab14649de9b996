package bootstrap

import (
	"time"

	"doula/pkg/config"
	"doula/pkg/database"
	"doula/pkg/logger"
	"doula/pkg/payment/reconcile"
	"doula/pkg/queue"
	"doula/pkg/redis"
)

// SetupQueue 初始化事件队列与对账工作器
// 返回队列服务（webhook 入口入队用）与工作器（关闭时优雅停止）
func SetupQueue() (*queue.QueueService, *queue.Worker) {
	if redis.Manager == nil {
		logger.ErrorString("Queue", "Setup", "Redis manager not initialized")
		return nil, nil
	}

	queueService := queue.NewQueueService()
	engine := reconcile.NewEngine(database.DB)

	worker := queue.NewWorker(queueService, engine, queue.WorkerConfig{
		WorkerCount:     config.GetInt("queue.worker_count", 10),
		MaxRetries:      config.GetInt("queue.retry_times", 3),
		RetryInterval:   time.Duration(config.GetInt("queue.retry_delay", 1)) * time.Second,
		ShutdownTimeout: 30 * time.Second,
	})

	worker.Start()

	logger.InfoString("Queue", "Setup", "队列服务启动成功")
	return queueService, worker
}
