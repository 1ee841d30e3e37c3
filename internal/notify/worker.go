package notify

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/guardpost/apiserver/internal/mq"
	"go.uber.org/zap"
)

// Subscriber is the subset of *mq.MQ used by Worker.
type Subscriber interface {
	Subscribe(ctx context.Context, channel string, handler mq.Handler, opts ...mq.SubscribeOption) error
}

// Worker drains queued emails and delivers them through a transport. Each
// message is acknowledged before delivery is attempted, so a failed send is
// dropped rather than retried.
type Worker struct {
	subscriber Subscriber
	channel    string
	transport  Transport
	logger     *zap.Logger
}

func NewWorker(subscriber Subscriber, channel string, transport Transport, logger *zap.Logger) *Worker {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Worker{
		subscriber: subscriber,
		channel:    channel,
		transport:  transport,
		logger:     logger,
	}
}

// Run consumes until ctx is cancelled.
func (w *Worker) Run(ctx context.Context) error {
	w.logger.Info("notification worker started", zap.String("channel", w.channel))
	return w.subscriber.Subscribe(ctx, w.channel, w.handle, mq.AtMostOnce())
}

func (w *Worker) handle(ctx context.Context, msg mq.Message) error {
	var email Email
	if err := json.Unmarshal(msg.Data, &email); err != nil {
		return fmt.Errorf("decode email %s: %w", msg.ID, err)
	}
	id, err := w.transport.Send(ctx, email)
	if err != nil {
		return fmt.Errorf("deliver %s: %w", email.Event, err)
	}
	w.logger.Info("queued notification delivered",
		zap.String("queue_message_id", msg.ID),
		zap.String("message_id", id),
		zap.String("event", string(email.Event)),
	)
	return nil
}
