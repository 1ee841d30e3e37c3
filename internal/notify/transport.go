package notify

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/guardpost/apiserver/config"
	"github.com/guardpost/apiserver/internal/mq"
	"go.uber.org/zap"
)

// Transport delivers a rendered email and returns the message id.
type Transport interface {
	Send(ctx context.Context, email Email) (string, error)
}

// Publisher is the subset of *mq.MQ used by QueueTransport.
type Publisher interface {
	Publish(ctx context.Context, channel string, data []byte, attrs map[string]string) (string, error)
}

// NewTransport returns the transport named by cfg.Transport. publisher is
// only required for the queue transport.
func NewTransport(cfg config.MailConfig, publisher Publisher, channel string, logger *zap.Logger) (Transport, error) {
	switch cfg.Transport {
	case "log", "":
		return NewLogTransport(logger), nil
	case "smtp":
		return NewSMTPTransport(cfg)
	case "queue":
		if publisher == nil {
			return nil, errors.New("queue mail transport requires a message queue")
		}
		return NewQueueTransport(publisher, channel), nil
	default:
		return nil, fmt.Errorf("unknown mail transport %q", cfg.Transport)
	}
}

// LogTransport writes messages to the log instead of sending them.
type LogTransport struct {
	logger *zap.Logger
}

func NewLogTransport(logger *zap.Logger) *LogTransport {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &LogTransport{logger: logger}
}

func (t *LogTransport) Send(_ context.Context, email Email) (string, error) {
	id := uuid.NewString()
	t.logger.Info("email",
		zap.String("message_id", id),
		zap.String("event", string(email.Event)),
		zap.Strings("to", email.To),
		zap.String("subject", email.Subject),
		zap.Int("html_bytes", len(email.HTML)),
	)
	return id, nil
}

// QueueTransport publishes the email envelope for the worker to deliver.
type QueueTransport struct {
	publisher Publisher
	channel   string
}

func NewQueueTransport(publisher Publisher, channel string) *QueueTransport {
	return &QueueTransport{publisher: publisher, channel: channel}
}

func (t *QueueTransport) Send(ctx context.Context, email Email) (string, error) {
	data, err := json.Marshal(email)
	if err != nil {
		return "", err
	}
	return t.publisher.Publish(ctx, t.channel, data, map[string]string{"event": string(email.Event)})
}

var _ Publisher = (*mq.MQ)(nil)
