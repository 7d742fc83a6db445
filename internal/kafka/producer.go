package kafka

import (
	"context"
	"encoding/json"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/segmentio/kafka-go"
	"github.com/sethvargo/go-retry"

	"github.com/deofis/cursos-online-apirest/internal/domain"
	"github.com/deofis/cursos-online-apirest/internal/logger"
)

const (
	EventOrderRegistered   = "order.registered"
	EventCheckoutCompleted = "checkout.completed"
)

// OrderEvent is the message the notification worker consumes to send
// customer and admin emails.
type OrderEvent struct {
	ID          string    `json:"id"`
	Type        string    `json:"type"`
	OrderNumber int64     `json:"order_number"`
	Recipient   string    `json:"recipient"`
	Total       string    `json:"total"`
	OccurredAt  time.Time `json:"occurred_at"`
}

// Producer publishes order events. Delivery is fire-and-forget: failures are
// retried briefly, then logged and dropped, and never reach the order flow.
type Producer struct {
	w *kafka.Writer
}

func NewProducer(brokersSTR, topic string) *Producer {
	brokers := strings.Split(brokersSTR, ",")

	return &Producer{
		w: &kafka.Writer{
			Addr:         kafka.TCP(brokers...),
			Topic:        topic,
			Balancer:     &kafka.LeastBytes{},
			RequiredAcks: kafka.RequireAll,
			Async:        false,
		},
	}
}

func (p *Producer) Close() error {
	return p.w.Close()
}

func (p *Producer) OrderRegistered(ctx context.Context, o *domain.Order) {
	p.publish(ctx, EventOrderRegistered, o)
}

func (p *Producer) PaymentCompleted(ctx context.Context, o *domain.Order) {
	p.publish(ctx, EventCheckoutCompleted, o)
}

func (p *Producer) publish(ctx context.Context, eventType string, o *domain.Order) {
	event := OrderEvent{
		ID:          uuid.NewString(),
		Type:        eventType,
		OrderNumber: o.Number,
		Recipient:   o.Customer.Email,
		Total:       o.Total.String(),
		OccurredAt:  time.Now().UTC(),
	}

	value, err := json.Marshal(event)
	if err != nil {
		logger.Warn("event marshal failed", "type", eventType, "order", o.Number, "err", err)
		return
	}

	msg := kafka.Message{
		Key:   []byte(strconv.FormatInt(o.Number, 10)),
		Value: value,
		Headers: []kafka.Header{
			{Key: "content-type", Value: []byte("application/json")},
		},
	}

	backoff := retry.WithMaxRetries(3, retry.NewExponential(200*time.Millisecond))
	err = retry.Do(ctx, backoff, func(ctx context.Context) error {
		if err := p.w.WriteMessages(ctx, msg); err != nil {
			return retry.RetryableError(err)
		}
		return nil
	})
	if err != nil {
		logger.Warn("event publish failed, dropping", "type", eventType, "order", o.Number, "err", err)
	}
}
