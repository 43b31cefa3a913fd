package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/hibiken/asynq"
	"go.uber.org/zap"
)

const (
	TypeSendEmail      = "email:send"
	QueueNotifications = "notifications"
)

// AsynqDispatcher enqueues messages as asynq tasks for the worker process.
// Delivery is attempted once; enqueue failures are logged and dropped.
type AsynqDispatcher struct {
	client  *asynq.Client
	logger  *zap.Logger
	timeout time.Duration
}

func NewAsynqDispatcher(client *asynq.Client, logger *zap.Logger) *AsynqDispatcher {
	return &AsynqDispatcher{
		client:  client,
		logger:  logger,
		timeout: 5 * time.Second,
	}
}

// Dispatch enqueues msg in the background and returns immediately
func (d *AsynqDispatcher) Dispatch(ctx context.Context, msg Message) {
	if msg.To == "" {
		d.logger.Warn("notification without recipient dropped", zap.String("kind", string(msg.Kind)))
		return
	}

	go func() {
		ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), d.timeout)
		defer cancel()

		task, err := NewSendEmailTask(msg)
		if err != nil {
			d.logger.Error("failed to build notification task", zap.String("kind", string(msg.Kind)), zap.Error(err))
			return
		}

		info, err := d.client.EnqueueContext(ctx, task)
		if err != nil {
			d.logger.Error("failed to enqueue notification",
				zap.String("kind", string(msg.Kind)),
				zap.Error(err),
			)
			return
		}

		d.logger.Debug("notification enqueued",
			zap.String("kind", string(msg.Kind)),
			zap.String("task_id", info.ID),
		)
	}()
}

// NewSendEmailTask builds the asynq task carrying msg
func NewSendEmailTask(msg Message) (*asynq.Task, error) {
	payload, err := json.Marshal(msg)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal notification: %w", err)
	}
	return asynq.NewTask(TypeSendEmail, payload,
		asynq.Queue(QueueNotifications),
		asynq.MaxRetry(0),
		asynq.Timeout(30*time.Second),
	), nil
}

// InlineDispatcher delivers messages in a goroutine of the current process.
// Used when no Redis is configured.
type InlineDispatcher struct {
	mailer Mailer
	logger *zap.Logger
	wg     sync.WaitGroup
}

func NewInlineDispatcher(mailer Mailer, logger *zap.Logger) *InlineDispatcher {
	return &InlineDispatcher{mailer: mailer, logger: logger}
}

func (d *InlineDispatcher) Dispatch(ctx context.Context, msg Message) {
	d.wg.Add(1)
	go func() {
		defer d.wg.Done()
		ctx := context.WithoutCancel(ctx)
		if err := deliver(ctx, d.mailer, msg); err != nil {
			d.logger.Error("failed to deliver notification",
				zap.String("kind", string(msg.Kind)),
				zap.Error(err),
			)
		}
	}()
}

// Wait blocks until every dispatched message has been handled
func (d *InlineDispatcher) Wait() {
	d.wg.Wait()
}

func deliver(ctx context.Context, mailer Mailer, msg Message) error {
	subject, body, err := Render(msg)
	if err != nil {
		return err
	}
	return mailer.Send(ctx, msg.To, subject, body)
}
