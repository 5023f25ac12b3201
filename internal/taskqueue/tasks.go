package taskqueue

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/hibiken/asynq"
	"go.uber.org/zap"

	"powermesh/internal/models"
)

// TypeAlertNotify is the task type for out-of-band alert delivery.
const TypeAlertNotify = "alert:notify"

// Client enqueues background tasks. Enqueue failures are the caller's to
// log; the queue is best-effort and never blocks the evaluation loop.
type Client struct {
	client *asynq.Client
}

// NewClient creates a task queue client backed by Redis.
func NewClient(redisAddr string) *Client {
	return &Client{client: asynq.NewClient(asynq.RedisClientOpt{Addr: redisAddr})}
}

// Close releases the client's Redis connection.
func (c *Client) Close() error {
	return c.client.Close()
}

// NotifyAlert enqueues delivery of a persisted alert.
func (c *Client) NotifyAlert(a models.Alert) error {
	payload, err := json.Marshal(a)
	if err != nil {
		return err
	}
	task := asynq.NewTask(TypeAlertNotify, payload)
	if _, err := c.client.Enqueue(task, asynq.MaxRetry(3)); err != nil {
		return fmt.Errorf("enqueue %s: %w", TypeAlertNotify, err)
	}
	return nil
}

// handleAlertNotify delivers one alert notification. Delivery is a logged
// stand-in for a real channel (push, email).
func handleAlertNotify(logger *zap.Logger) asynq.HandlerFunc {
	return func(ctx context.Context, t *asynq.Task) error {
		var a models.Alert
		if err := json.Unmarshal(t.Payload(), &a); err != nil {
			return fmt.Errorf("bad %s payload: %w", TypeAlertNotify, err)
		}
		logger.Info("delivering alert notification",
			zap.String("alert_id", a.ID),
			zap.String("severity", a.Severity),
			zap.String("message", a.Message))
		return nil
	}
}
