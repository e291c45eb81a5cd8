package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"go.opentelemetry.io/otel"
	"go.uber.org/zap"
)

// HandlerFunc processes one delivery body.
type HandlerFunc func(ctx context.Context, body []byte) error

// Consumer keeps a subscription to one queue alive across broker restarts.
type Consumer struct {
	URL     string
	Queue   string
	Handler HandlerFunc
	Logger  *zap.Logger
}

// Run dials with exponential backoff and consumes until ctx is cancelled.
func (c *Consumer) Run(ctx context.Context) error {
	backoff := time.Second
	for {
		conn, err := amqp.Dial(c.URL)
		if err != nil {
			c.Logger.Warn("consumer dial failed", zap.String("queue", c.Queue), zap.Duration("retry_in", backoff), zap.Error(err))
			if !sleep(ctx, backoff) {
				return ctx.Err()
			}
			if backoff < 30*time.Second {
				backoff *= 2
			}
			continue
		}
		backoff = time.Second

		err = c.consume(ctx, conn)
		_ = conn.Close()
		if ctx.Err() != nil {
			return ctx.Err()
		}
		c.Logger.Warn("consume loop ended, reconnecting", zap.String("queue", c.Queue), zap.Error(err))
		if !sleep(ctx, 2*time.Second) {
			return ctx.Err()
		}
	}
}

func (c *Consumer) consume(ctx context.Context, conn *amqp.Connection) error {
	ch, err := conn.Channel()
	if err != nil {
		return fmt.Errorf("channel open: %w", err)
	}
	defer func() { _ = ch.Close() }()

	if err := ch.Qos(50, 0, false); err != nil {
		c.Logger.Warn("consumer set QoS failed", zap.Error(err))
	}
	if _, err := ch.QueueDeclare(c.Queue, true, false, false, false, nil); err != nil {
		return fmt.Errorf("queue declare: %w", err)
	}
	msgs, err := ch.Consume(c.Queue, "", false, false, false, false, nil)
	if err != nil {
		return fmt.Errorf("queue consume: %w", err)
	}

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case d, ok := <-msgs:
			if !ok {
				return errors.New("deliveries channel closed")
			}
			mctx, span := otel.Tracer("nesavent").Start(extractTrace(ctx, d.Headers), "consume "+c.Queue)
			err := c.Handler(mctx, d.Body)
			span.End()
			if err != nil {
				c.Logger.Error("handle message failed", zap.String("queue", c.Queue), zap.Error(err))
				_ = d.Nack(false, false) // do not requeue, avoids tight loops
				continue
			}
			_ = d.Ack(false)
		}
	}
}

func sleep(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}

// NotificationLogHandler appends notification.created deliveries to
// dir/notifications.log.
func NotificationLogHandler(dir string) HandlerFunc {
	return func(_ context.Context, body []byte) error {
		var ev NotificationCreatedEvent
		if err := json.Unmarshal(body, &ev); err != nil {
			return fmt.Errorf("unmarshal: %w", err)
		}
		line := fmt.Sprintf("[%s] Notification | id=%d | user_id=%d | type=%s | title=%q | message=%q\n",
			ev.CreatedAt.UTC().Format(time.RFC3339), ev.NotificationID, ev.UserID, ev.Type, ev.Title, ev.Message)
		return appendLine(dir, "notifications.log", line)
	}
}

// TicketLogHandler appends ticket.issued deliveries to dir/tickets.log.
func TicketLogHandler(dir string) HandlerFunc {
	return func(_ context.Context, body []byte) error {
		var ev TicketIssuedEvent
		if err := json.Unmarshal(body, &ev); err != nil {
			return fmt.Errorf("unmarshal: %w", err)
		}
		line := fmt.Sprintf("[%s] Tickets issued | order_id=%d | event_id=%d | buyer_id=%d | email=%s | total=%d | codes=[%s]\n",
			ev.PaidAt.UTC().Format(time.RFC3339), ev.OrderID, ev.EventID, ev.BuyerID, ev.BuyerEmail, ev.TotalAmount,
			strings.Join(ev.TicketCodes, ","))
		return appendLine(dir, "tickets.log", line)
	}
}

func appendLine(dir, name, line string) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("mkdir logs: %w", err)
	}
	f, err := os.OpenFile(filepath.Join(dir, name), os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("open log file: %w", err)
	}
	defer f.Close()
	if _, err := f.WriteString(line); err != nil {
		return fmt.Errorf("write log: %w", err)
	}
	return nil
}
