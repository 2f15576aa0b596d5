package kafka

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/IBM/sarama"
	"github.com/sakashimaa/go-event-shop/pkg/mylogger"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

// HandlerFunc receives the delivery attempt within the current session,
// starting at 1.
type HandlerFunc func(ctx context.Context, msg *sarama.ConsumerMessage, attempt int) error

type ConsumerGroup struct {
	brokers     []string
	groupID     string
	maxAttempts int
	handlers    map[string]HandlerFunc
	logger      *zap.Logger
}

func NewConsumerGroup(brokers []string, groupID string, maxAttempts int, logger *zap.Logger) *ConsumerGroup {
	if maxAttempts < 1 {
		maxAttempts = 1
	}

	return &ConsumerGroup{
		brokers:     brokers,
		groupID:     groupID,
		maxAttempts: maxAttempts,
		handlers:    make(map[string]HandlerFunc),
		logger:      logger,
	}
}

// Handle must be called before Run.
func (c *ConsumerGroup) Handle(topic string, handler HandlerFunc) {
	c.handlers[topic] = handler
}

func (c *ConsumerGroup) Topics() []string {
	topics := make([]string, 0, len(c.handlers))
	for topic := range c.handlers {
		topics = append(topics, topic)
	}
	return topics
}

// Run consumes until ctx is cancelled. A message whose handler keeps failing
// is left uncommitted and the session is restarted, so it is delivered again.
func (c *ConsumerGroup) Run(ctx context.Context) error {
	if len(c.handlers) == 0 {
		return errors.New("consumer group has no handlers")
	}

	config := sarama.NewConfig()
	config.Version = sarama.V3_0_0_0
	config.Consumer.Return.Errors = true
	config.Consumer.Offsets.Initial = sarama.OffsetOldest
	config.Consumer.Group.Rebalance.GroupStrategies = []sarama.BalanceStrategy{sarama.BalanceStrategyRoundRobin}

	group, err := sarama.NewConsumerGroup(c.brokers, c.groupID, config)
	if err != nil {
		return fmt.Errorf("error creating consumer group: %w", err)
	}

	defer func() {
		if err := group.Close(); err != nil {
			mylogger.Error(ctx, c.logger, "Error closing consumer group", zap.Error(err))
		}
	}()

	go func() {
		for err := range group.Errors() {
			mylogger.Warn(ctx, c.logger, "Consumer group error", zap.Error(err))
		}
	}()

	consumer := &saramaHandler{
		handlers:    c.handlers,
		maxAttempts: c.maxAttempts,
		logger:      c.logger,
	}

	topics := c.Topics()
	for {
		err := group.Consume(ctx, topics, consumer)
		if err != nil {
			mylogger.Error(ctx, c.logger, "Error consuming in consumer loop", zap.Error(err))
		}

		if ctx.Err() != nil {
			mylogger.Info(ctx, c.logger, "Context cancelled, shutting down consumer")
			return nil
		}

		if err != nil {
			select {
			case <-ctx.Done():
				return nil
			case <-time.After(time.Second):
			}
		}
	}
}

type saramaHandler struct {
	handlers    map[string]HandlerFunc
	maxAttempts int
	logger      *zap.Logger
}

func (h *saramaHandler) Setup(_ sarama.ConsumerGroupSession) error   { return nil }
func (h *saramaHandler) Cleanup(_ sarama.ConsumerGroupSession) error { return nil }

func (h *saramaHandler) ConsumeClaim(session sarama.ConsumerGroupSession, claim sarama.ConsumerGroupClaim) error {
	for msg := range claim.Messages() {
		handler, ok := h.handlers[msg.Topic]
		if !ok {
			session.MarkMessage(msg, "")
			continue
		}

		if err := h.process(session.Context(), handler, msg); err != nil {
			return err
		}
		session.MarkMessage(msg, "")
	}

	return nil
}

func (h *saramaHandler) process(parent context.Context, handler HandlerFunc, msg *sarama.ConsumerMessage) error {
	ctx, span := h.extractTracing(parent, msg)
	defer span.End()

	var err error
	for attempt := 1; attempt <= h.maxAttempts; attempt++ {
		if err = handler(ctx, msg, attempt); err == nil {
			return nil
		}

		mylogger.Error(
			ctx,
			h.logger,
			"Failed to process message",
			zap.String("topic", msg.Topic),
			zap.Int32("partition", msg.Partition),
			zap.Int64("offset", msg.Offset),
			zap.Int("attempt", attempt),
			zap.Error(err),
		)

		if parent.Err() != nil {
			break
		}
	}

	span.RecordError(err)
	span.SetStatus(codes.Error, "handler failed")
	return fmt.Errorf("topic %s offset %d: %w", msg.Topic, msg.Offset, err)
}

func (h *saramaHandler) extractTracing(ctx context.Context, msg *sarama.ConsumerMessage) (context.Context, trace.Span) {
	carrier := propagation.MapCarrier{}
	for _, header := range msg.Headers {
		carrier[string(header.Key)] = string(header.Value)
	}

	ctx = otel.GetTextMapPropagator().Extract(ctx, carrier)

	return otel.Tracer("pkg/kafka/consumer").Start(ctx, "kafka_process",
		trace.WithSpanKind(trace.SpanKindConsumer),
		trace.WithAttributes(
			attribute.String("messaging.destination.name", msg.Topic),
			attribute.Int64("messaging.kafka.offset", msg.Offset),
		),
	)
}

// Headers flattens record headers into a map.
func Headers(msg *sarama.ConsumerMessage) map[string]string {
	headers := make(map[string]string, len(msg.Headers))
	for _, header := range msg.Headers {
		headers[string(header.Key)] = string(header.Value)
	}
	return headers
}
