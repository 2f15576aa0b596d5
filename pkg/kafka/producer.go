package kafka

import (
	"context"
	"fmt"

	"github.com/IBM/sarama"
	"github.com/sakashimaa/go-event-shop/pkg/mylogger"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"
	"go.uber.org/zap"
)

type Producer interface {
	// Send writes value to topic with trace context injected into the
	// record headers alongside the given ones.
	Send(ctx context.Context, topic, key string, value []byte, headers map[string]string) error
	Close() error
}

type producer struct {
	syncProducer sarama.SyncProducer
	logger       *zap.Logger
}

func NewProducer(brokers []string, logger *zap.Logger) (Producer, error) {
	config := sarama.NewConfig()
	config.Producer.Return.Successes = true
	config.Producer.RequiredAcks = sarama.WaitForAll
	config.Producer.Retry.Max = 5

	p, err := sarama.NewSyncProducer(brokers, config)
	if err != nil {
		return nil, fmt.Errorf("error creating producer: %w", err)
	}

	return &producer{syncProducer: p, logger: logger}, nil
}

func (p *producer) Send(ctx context.Context, topic, key string, value []byte, headers map[string]string) error {
	carrier := propagation.MapCarrier{}
	for k, v := range headers {
		carrier[k] = v
	}
	otel.GetTextMapPropagator().Inject(ctx, carrier)

	recordHeaders := make([]sarama.RecordHeader, 0, len(carrier))
	for k, v := range carrier {
		recordHeaders = append(recordHeaders, sarama.RecordHeader{
			Key:   []byte(k),
			Value: []byte(v),
		})
	}

	msg := &sarama.ProducerMessage{
		Topic:   topic,
		Value:   sarama.ByteEncoder(value),
		Headers: recordHeaders,
	}
	if key != "" {
		msg.Key = sarama.StringEncoder(key)
	}

	partition, offset, err := p.syncProducer.SendMessage(msg)
	if err != nil {
		return fmt.Errorf("error sending message: %w", err)
	}

	mylogger.Debug(
		ctx,
		p.logger,
		"Message sent",
		zap.String("topic", topic),
		zap.Int32("partition", partition),
		zap.Int64("offset", offset),
	)
	return nil
}

func (p *producer) Close() error {
	return p.syncProducer.Close()
}
