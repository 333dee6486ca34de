package notify

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/clout9/backend/internal/db"
	"github.com/clout9/backend/internal/queue"
	"github.com/clout9/backend/pkg/logging"
)

// Dispatcher executes delivery tasks pulled off the queue. Delivery is
// best effort: a failed push to one device does not stop delivery to
// the recipient's other devices.
type Dispatcher struct {
	repo   *db.Repository
	pusher Pusher
	mailer Mailer
	logger *zap.Logger
}

// NewDispatcher creates a dispatcher
func NewDispatcher(repo *db.Repository, pusher Pusher, mailer Mailer) *Dispatcher {
	return &Dispatcher{
		repo:   repo,
		pusher: pusher,
		mailer: mailer,
		logger: logging.WithComponent("dispatcher"),
	}
}

// Handle executes one task
func (d *Dispatcher) Handle(ctx context.Context, task *queue.Task) error {
	if task.Name == queue.TaskSendEmail {
		return d.mailer.SendResetEmail(ctx, task.Email, task.Token)
	}
	return d.handlePush(ctx, task)
}

func (d *Dispatcher) handlePush(ctx context.Context, task *queue.Task) error {
	from, err := d.repo.Users().GetByID(ctx, task.FromUserID)
	if err != nil {
		return fmt.Errorf("failed to load sender %d: %w", task.FromUserID, err)
	}
	if from == nil {
		return fmt.Errorf("sender %d not found", task.FromUserID)
	}

	title, body, ok := PushMessage(task.Name, from.Username)
	if !ok {
		return fmt.Errorf("unknown task name %q", task.Name)
	}

	devices, err := d.repo.Devices().ListByUser(ctx, task.ToUserID)
	if err != nil {
		return fmt.Errorf("failed to load devices for user %d: %w", task.ToUserID, err)
	}

	for _, device := range devices {
		if err := d.pusher.Push(ctx, device.RegistrationID, title, body); err != nil {
			d.logger.Warn("push delivery failed",
				zap.Int64("device_id", device.ID),
				zap.Int64("to_user_id", task.ToUserID),
				zap.String("task", task.Name),
				zap.Error(err))
		}
	}
	return nil
}

// Enqueue pushes a task onto the queue, logging and swallowing any
// failure. Social writes never fail because delivery is unavailable.
func Enqueue(ctx context.Context, q queue.Queue, task *queue.Task) {
	if err := q.Enqueue(ctx, task); err != nil {
		logging.GetLogger().Error("failed to enqueue task",
			zap.String("task", task.Name),
			zap.Error(err))
	}
}
