package pubsub

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/sakashimaa/go-event-shop/pkg/domain"
	"github.com/sakashimaa/go-event-shop/pkg/mylogger"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"
	"go.uber.org/zap"
)

const memoryQueueSize = 256

type subscription struct {
	topic   string
	handler Handler
	queue   chan Message
}

// MemoryBus delivers in process. Each subscription has its own queue drained
// in publish order; a failing handler is retried up to maxDeliveries times
// before the message is dropped.
//
// Publish waits for room in a full queue until ctx is done and then fails, so
// a nil return always means every subscriber has the message queued. A failed
// fan-out may already have reached some subscribers.
type MemoryBus struct {
	source        string
	maxDeliveries int
	logger        *zap.Logger

	mu     sync.RWMutex
	subs   map[string][]*subscription
	closed bool

	pending sync.WaitGroup
	workers sync.WaitGroup
}

func NewMemoryBus(source string, maxDeliveries int, logger *zap.Logger) *MemoryBus {
	if maxDeliveries < 1 {
		maxDeliveries = 1
	}

	return &MemoryBus{
		source:        source,
		maxDeliveries: maxDeliveries,
		logger:        logger,
		subs:          make(map[string][]*subscription),
	}
}

func (b *MemoryBus) Publish(ctx context.Context, topic string, payload any) error {
	env, _, err := newEnvelope(topic, b.source, payload)
	if err != nil {
		return err
	}

	carrier := propagation.MapCarrier{HeaderMessageID: env.ID}
	otel.GetTextMapPropagator().Inject(ctx, carrier)

	b.mu.RLock()
	defer b.mu.RUnlock()

	if b.closed {
		return ErrClosed
	}

	for _, sub := range b.subs[topic] {
		msg := Message{
			ID:       env.ID,
			Topic:    topic,
			Source:   env.Source,
			Data:     append(json.RawMessage(nil), env.Data...),
			Metadata: copyMap(carrier),
		}

		b.pending.Add(1)
		if err := b.enqueue(ctx, sub, msg); err != nil {
			b.pending.Done()
			mylogger.Warn(ctx, b.logger, "Subscriber queue full, message not published",
				zap.String("topic", topic),
				zap.String("message_id", env.ID),
				zap.Error(err),
			)
			return err
		}
	}

	return nil
}

// enqueue prefers a free slot over an expired ctx.
func (b *MemoryBus) enqueue(ctx context.Context, sub *subscription, msg Message) error {
	select {
	case sub.queue <- msg:
		return nil
	default:
	}

	select {
	case sub.queue <- msg:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("%w: subscriber queue for %q full: %w", domain.ErrTransport, sub.topic, ctx.Err())
	}
}

func (b *MemoryBus) Subscribe(topic string, handler Handler) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return ErrClosed
	}

	sub := &subscription{
		topic:   topic,
		handler: handler,
		queue:   make(chan Message, memoryQueueSize),
	}
	b.subs[topic] = append(b.subs[topic], sub)

	b.workers.Add(1)
	go b.drain(sub)

	return nil
}

// Run only blocks; subscriptions are drained from the moment they are made.
func (b *MemoryBus) Run(ctx context.Context) error {
	<-ctx.Done()
	return nil
}

// Wait blocks until every queued message has been handled or given up on.
func (b *MemoryBus) Wait() {
	b.pending.Wait()
}

func (b *MemoryBus) Close() error {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return nil
	}
	b.closed = true
	for _, subs := range b.subs {
		for _, sub := range subs {
			close(sub.queue)
		}
	}
	b.mu.Unlock()

	b.workers.Wait()
	return nil
}

func (b *MemoryBus) drain(sub *subscription) {
	defer b.workers.Done()

	for msg := range sub.queue {
		b.deliver(sub, msg)
		b.pending.Done()
	}
}

func (b *MemoryBus) deliver(sub *subscription, msg Message) {
	ctx := otel.GetTextMapPropagator().Extract(context.Background(), propagation.MapCarrier(msg.Metadata))

	for attempt := 1; attempt <= b.maxDeliveries; attempt++ {
		msg.Attempt = attempt

		err := sub.handler(ctx, msg)
		if err == nil {
			return
		}

		mylogger.Warn(ctx, b.logger, "Handler failed, redelivering",
			zap.String("topic", msg.Topic),
			zap.String("message_id", msg.ID),
			zap.Int("attempt", attempt),
			zap.Error(err),
		)
	}

	mylogger.Error(ctx, b.logger, "Giving up on message",
		zap.String("topic", msg.Topic),
		zap.String("message_id", msg.ID),
		zap.Int("deliveries", b.maxDeliveries),
	)
}

func copyMap(m map[string]string) map[string]string {
	out := make(map[string]string, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}
