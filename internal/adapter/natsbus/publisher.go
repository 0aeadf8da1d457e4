// Package natsbus delivers notifications over NATS core publish.
package natsbus

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/couchcryptid/tide-notifier/internal/domain"
	"github.com/nats-io/nats.go"
)

// Publisher sends notifications to a NATS subject.
// It implements notify.MessageSender.
type Publisher struct {
	nc      *nats.Conn
	subject string
	logger  *slog.Logger
}

// Connect dials the NATS server with reconnect handling that logs through logger.
func Connect(url string, logger *slog.Logger) (*nats.Conn, error) {
	nc, err := nats.Connect(url,
		nats.Name("tide-notifier"),
		nats.ReconnectWait(time.Second),
		nats.MaxReconnects(-1),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			if err != nil {
				logger.Warn("nats disconnected", "error", err)
			}
		}),
		nats.ReconnectHandler(func(_ *nats.Conn) {
			logger.Info("nats reconnected")
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("connect to nats: %w", err)
	}
	return nc, nil
}

// NewPublisher creates a publisher for subject on an established connection.
func NewPublisher(nc *nats.Conn, subject string, logger *slog.Logger) *Publisher {
	return &Publisher{nc: nc, subject: subject, logger: logger}
}

// Send publishes one notification and waits for the server to acknowledge the
// flush, so a broken connection surfaces as a delivery failure.
func (p *Publisher) Send(ctx context.Context, subscriber domain.Subscriber, notification domain.Notification) error {
	msg, err := buildMsg(p.subject, domain.NewDelivery(subscriber, notification))
	if err != nil {
		return fmt.Errorf("%w: %w", domain.ErrDeliveryFailed, err)
	}
	if err := p.nc.PublishMsg(msg); err != nil {
		return fmt.Errorf("%w: nats publish: %w", domain.ErrDeliveryFailed, err)
	}
	// FlushWithContext rejects contexts without a deadline.
	if _, ok := ctx.Deadline(); !ok {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, p.flushTimeout())
		defer cancel()
	}
	if err := p.nc.FlushWithContext(ctx); err != nil {
		return fmt.Errorf("%w: nats flush: %w", domain.ErrDeliveryFailed, err)
	}
	p.logger.Debug("notification published", "subject", p.subject, "recipient", subscriber.Email)
	return nil
}

func (p *Publisher) flushTimeout() time.Duration {
	if t := p.nc.Opts.Timeout; t > 0 {
		return t
	}
	return nats.DefaultTimeout
}

func buildMsg(subject string, d domain.Delivery) (*nats.Msg, error) {
	data, err := json.Marshal(d)
	if err != nil {
		return nil, fmt.Errorf("serialize delivery: %w", err)
	}
	headers := nats.Header{}
	headers.Set("Recipient", d.Email)
	headers.Set("Sent-At", d.SentAt.Format(time.RFC3339))
	return &nats.Msg{
		Subject: subject,
		Data:    data,
		Header:  headers,
	}, nil
}
