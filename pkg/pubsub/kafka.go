package pubsub

import (
	"context"
	"errors"
	"fmt"

	"github.com/IBM/sarama"
	"github.com/sakashimaa/go-event-shop/pkg/domain"
	"github.com/sakashimaa/go-event-shop/pkg/kafka"
	"github.com/sakashimaa/go-event-shop/pkg/mylogger"
	"go.uber.org/zap"
)

type KafkaBus struct {
	source   string
	producer kafka.Producer
	group    *kafka.ConsumerGroup
	logger   *zap.Logger
	handlers int
}

// NewKafkaBus needs a groupID only when the caller subscribes.
func NewKafkaBus(brokers []string, groupID, source string, maxDeliveries int, logger *zap.Logger) (*KafkaBus, error) {
	producer, err := kafka.NewProducer(brokers, logger)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrTransport, err)
	}

	return &KafkaBus{
		source:   source,
		producer: producer,
		group:    kafka.NewConsumerGroup(brokers, groupID, maxDeliveries, logger),
		logger:   logger,
	}, nil
}

func (b *KafkaBus) Publish(ctx context.Context, topic string, payload any) error {
	env, raw, err := newEnvelope(topic, b.source, payload)
	if err != nil {
		return err
	}

	if err := b.producer.Send(ctx, topic, env.ID, raw, map[string]string{HeaderMessageID: env.ID}); err != nil {
		return fmt.Errorf("%w: publish %s: %w", domain.ErrTransport, topic, err)
	}

	return nil
}

func (b *KafkaBus) Subscribe(topic string, handler Handler) error {
	b.handlers++
	b.group.Handle(topic, func(ctx context.Context, record *sarama.ConsumerMessage, attempt int) error {
		env, err := parseEnvelope(record.Value)
		if err != nil {
			mylogger.Warn(ctx, b.logger, "Dropping malformed message",
				zap.String("topic", record.Topic),
				zap.Int64("offset", record.Offset),
				zap.Error(err),
			)
			return nil
		}

		return handler(ctx, Message{
			ID:       env.ID,
			Topic:    record.Topic,
			Source:   env.Source,
			Data:     env.Data,
			Metadata: kafka.Headers(record),
			Attempt:  attempt,
		})
	})

	return nil
}

func (b *KafkaBus) Run(ctx context.Context) error {
	if b.handlers == 0 {
		<-ctx.Done()
		return nil
	}

	if err := b.group.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		return fmt.Errorf("%w: %w", domain.ErrTransport, err)
	}
	return nil
}

func (b *KafkaBus) Close() error {
	return b.producer.Close()
}
