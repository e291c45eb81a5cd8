package queue

import (
	"context"
	"encoding/json"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"
	"go.uber.org/zap"
)

// Publisher sends JSON messages to durable queues. A connection is opened
// per publish; traffic is low (one message per payment or moderation step).
type Publisher struct {
	url    string
	logger *zap.Logger
}

func NewPublisher(url string, logger *zap.Logger) *Publisher {
	return &Publisher{url: url, logger: logger}
}

// Publish marshals payload and publishes it persistently to queue. Errors
// are logged and returned so the caller can decide to ignore them.
func (p *Publisher) Publish(ctx context.Context, queue string, payload any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	conn, err := amqp.Dial(p.url)
	if err != nil {
		p.logger.Warn("rabbitmq dial failed", zap.String("queue", queue), zap.Error(err))
		return err
	}
	defer func() { _ = conn.Close() }()

	ch, err := conn.Channel()
	if err != nil {
		p.logger.Warn("rabbitmq channel open failed", zap.Error(err))
		return err
	}
	defer func() { _ = ch.Close() }()

	if _, err := ch.QueueDeclare(queue, true, false, false, false, nil); err != nil {
		p.logger.Warn("rabbitmq queue declare failed", zap.String("queue", queue), zap.Error(err))
		return err
	}

	pub := amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		Timestamp:    time.Now().UTC(),
		Headers:      traceHeaders(ctx),
		Body:         body,
	}
	if err := ch.PublishWithContext(ctx, "", queue, false, false, pub); err != nil {
		p.logger.Warn("rabbitmq publish failed", zap.String("queue", queue), zap.Error(err))
		return err
	}
	return nil
}

// traceHeaders injects the current span context so consumers can continue
// the trace.
func traceHeaders(ctx context.Context) amqp.Table {
	carrier := propagation.MapCarrier{}
	otel.GetTextMapPropagator().Inject(ctx, carrier)
	if len(carrier) == 0 {
		return nil
	}
	h := amqp.Table{}
	for k, v := range carrier {
		h[k] = v
	}
	return h
}

// extractTrace is the consumer side of traceHeaders.
func extractTrace(ctx context.Context, h amqp.Table) context.Context {
	carrier := propagation.MapCarrier{}
	for k, v := range h {
		if s, ok := v.(string); ok {
			carrier[k] = s
		}
	}
	return otel.GetTextMapPropagator().Extract(ctx, carrier)
}
