package notify

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/hibiken/asynq"
	"go.uber.org/zap"
)

// Worker consumes notification tasks and hands them to a Mailer
type Worker struct {
	mailer Mailer
	logger *zap.Logger
}

func NewWorker(mailer Mailer, logger *zap.Logger) *Worker {
	return &Worker{mailer: mailer, logger: logger}
}

// Register attaches the worker's handlers to mux
func (w *Worker) Register(mux *asynq.ServeMux) {
	mux.HandleFunc(TypeSendEmail, w.HandleSendEmail)
}

// HandleSendEmail renders and sends one email. Failures are logged and the
// task is not retried.
func (w *Worker) HandleSendEmail(ctx context.Context, t *asynq.Task) error {
	var msg Message
	if err := json.Unmarshal(t.Payload(), &msg); err != nil {
		w.logger.Error("invalid notification payload", zap.Error(err))
		return fmt.Errorf("invalid payload: %v: %w", err, asynq.SkipRetry)
	}

	if err := deliver(ctx, w.mailer, msg); err != nil {
		w.logger.Error("failed to send notification",
			zap.String("kind", string(msg.Kind)),
			zap.Error(err),
		)
		return fmt.Errorf("send %s: %v: %w", msg.Kind, err, asynq.SkipRetry)
	}

	w.logger.Info("notification sent", zap.String("kind", string(msg.Kind)))
	return nil
}

// NewServer creates the asynq server that runs the worker
func NewServer(redisOpt asynq.RedisClientOpt, concurrency int, logger *zap.Logger) *asynq.Server {
	return asynq.NewServer(redisOpt, asynq.Config{
		Concurrency: concurrency,
		Queues: map[string]int{
			QueueNotifications: 1,
		},
		ErrorHandler: asynq.ErrorHandlerFunc(func(ctx context.Context, task *asynq.Task, err error) {
			logger.Warn("notification task failed", zap.String("type", task.Type()), zap.Error(err))
		}),
	})
}

// LogMailer writes emails to the log instead of sending them
type LogMailer struct {
	logger *zap.Logger
}

func NewLogMailer(logger *zap.Logger) *LogMailer {
	return &LogMailer{logger: logger}
}

func (m *LogMailer) Send(_ context.Context, to, subject, body string) error {
	m.logger.Info("email",
		zap.String("to", to),
		zap.String("subject", subject),
		zap.String("body", body),
	)
	return nil
}
