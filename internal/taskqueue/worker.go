package taskqueue

import (
	"github.com/hibiken/asynq"
	"go.uber.org/zap"
)

// Worker processes queued tasks.
type Worker struct {
	server *asynq.Server
	logger *zap.Logger
}

// NewWorker creates a task worker backed by Redis.
func NewWorker(redisAddr string, logger *zap.Logger) *Worker {
	server := asynq.NewServer(
		asynq.RedisClientOpt{Addr: redisAddr},
		asynq.Config{Concurrency: 5},
	)
	return &Worker{server: server, logger: logger}
}

// Start runs the worker loop until Stop is called.
func (w *Worker) Start() error {
	mux := asynq.NewServeMux()
	mux.HandleFunc(TypeAlertNotify, handleAlertNotify(w.logger))
	return w.server.Start(mux)
}

// Stop shuts the worker down, waiting for in-flight tasks.
func (w *Worker) Stop() {
	w.server.Shutdown()
}
