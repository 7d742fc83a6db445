package kafka

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"github.com/segmentio/kafka-go"

	"github.com/deofis/cursos-online-apirest/internal/logger"
)

type ConsumerConfig struct {
	Brokers string
	Topic   string
	GroupID string
}

// StartConsumer runs the notification worker: it reads order events and
// hands each one to deliver. A failed delivery is logged and the message
// committed anyway; notifications are best-effort by contract.
func StartConsumer(ctx context.Context, cfg ConsumerConfig, deliver func(context.Context, OrderEvent) error) *kafka.Reader {
	brokers := strings.Split(cfg.Brokers, ",")

	r := kafka.NewReader(kafka.ReaderConfig{
		Brokers:         brokers,
		GroupID:         cfg.GroupID,
		Topic:           cfg.Topic,
		MinBytes:        1,
		MaxBytes:        10e6,
		StartOffset:     kafka.FirstOffset,
		ReadLagInterval: -1,
	})

	logger.Info("kafka consumer starting", "brokers", cfg.Brokers, "topic", cfg.Topic, "group", cfg.GroupID)

	go func() {
		defer r.Close()

		backoff := 300 * time.Millisecond
		for {
			m, err := r.FetchMessage(ctx)
			if err != nil {
				if ctx.Err() != nil {
					return
				}
				logger.Warn("kafka fetch error", "err", err)
				time.Sleep(backoff)
				continue
			}

			var event OrderEvent
			if err := json.Unmarshal(m.Value, &event); err != nil {
				logger.Warn("kafka invalid event, skip and commit", "err", err)
				_ = r.CommitMessages(ctx, m)
				continue
			}

			if err := deliver(ctx, event); err != nil {
				logger.Warn("notification delivery failed", "type", event.Type, "order", event.OrderNumber, "err", err)
			}

			if err := r.CommitMessages(ctx, m); err != nil {
				logger.Warn("kafka commit failed", "err", err)
			}
		}
	}()
	return r
}
