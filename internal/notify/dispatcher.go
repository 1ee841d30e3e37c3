package notify

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/guardpost/apiserver/internal/metrics"
	"go.uber.org/zap"
)

const defaultSendTimeout = 15 * time.Second

// Dispatcher renders event notifications and hands them to a transport.
// Delivery is best effort: failures are logged and counted, never returned
// to the mutation that triggered them.
type Dispatcher struct {
	transport  Transport
	recipients []string
	timeout    time.Duration
	logger     *zap.Logger
	wg         sync.WaitGroup
}

func NewDispatcher(transport Transport, recipients []string, timeout time.Duration, logger *zap.Logger) *Dispatcher {
	if timeout <= 0 {
		timeout = defaultSendTimeout
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Dispatcher{
		transport:  transport,
		recipients: recipients,
		timeout:    timeout,
		logger:     logger,
	}
}

// Notify renders and sends the notification for event synchronously.
func (d *Dispatcher) Notify(ctx context.Context, event EventType, payload Payload) DeliveryResult {
	logger := d.logger.With(zap.String("event", string(event)))

	to := d.recipientsFor(event, payload)
	if len(to) == 0 {
		metrics.Notifications.WithLabelValues(string(event), "skipped").Inc()
		logger.Debug("notification skipped, no recipients")
		return DeliveryResult{Error: "no recipients"}
	}

	subject, html, err := Render(event, payload)
	if err != nil {
		metrics.Notifications.WithLabelValues(string(event), "failed").Inc()
		logger.Error("render notification", zap.Error(err))
		return DeliveryResult{Error: err.Error()}
	}

	id, err := d.transport.Send(ctx, Email{Event: event, To: to, Subject: subject, HTML: html})
	if err != nil {
		metrics.Notifications.WithLabelValues(string(event), "failed").Inc()
		logger.Warn("notification delivery failed", zap.Error(err))
		return DeliveryResult{Error: err.Error()}
	}

	metrics.Notifications.WithLabelValues(string(event), "sent").Inc()
	logger.Info("notification sent", zap.String("message_id", id), zap.Int("recipients", len(to)))
	return DeliveryResult{Success: true, MessageID: id}
}

// NotifyAsync sends the notification on its own goroutine with a fresh
// timeout, so the caller's request lifetime does not cancel it.
func (d *Dispatcher) NotifyAsync(event EventType, payload Payload) {
	d.wg.Add(1)
	go func() {
		defer d.wg.Done()
		ctx, cancel := context.WithTimeout(context.Background(), d.timeout)
		defer cancel()
		d.Notify(ctx, event, payload)
	}()
}

// Wait blocks until in-flight async notifications finish or ctx is done.
func (d *Dispatcher) Wait(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		d.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (d *Dispatcher) recipientsFor(event EventType, payload Payload) []string {
	seen := make(map[string]struct{}, len(d.recipients)+1)
	var to []string
	add := func(address string) {
		address = strings.TrimSpace(address)
		if address == "" {
			return
		}
		key := strings.ToLower(address)
		if _, ok := seen[key]; ok {
			return
		}
		seen[key] = struct{}{}
		to = append(to, address)
	}

	for _, address := range d.recipients {
		add(address)
	}
	if event == EventUserRegistered {
		if email, ok := payload["email"].(string); ok {
			add(email)
		}
	}
	return to
}
