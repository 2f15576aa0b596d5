package service

import (
	"context"
	"sync"
	"time"

	"github.com/sakashimaa/go-event-shop/pkg/concurrency"
	"github.com/sakashimaa/go-event-shop/pkg/metrics"
	"github.com/sakashimaa/go-event-shop/pkg/mylogger"
	"github.com/sakashimaa/go-event-shop/pkg/pubsub"
	"go.uber.org/zap"
)

// Notifier publishes best-effort events off the request path. Notify never
// blocks on the broker and never reports a failure to the caller.
type Notifier interface {
	Notify(ctx context.Context, topic string, payload any)
	Close()
}

type poolNotifier struct {
	pool      *concurrency.WorkerPool
	publisher pubsub.Publisher
	timeout   time.Duration
	metrics   *metrics.Metrics
	logger    *zap.Logger
	closeOnce sync.Once
}

func NewPoolNotifier(
	pool *concurrency.WorkerPool,
	publisher pubsub.Publisher,
	timeout time.Duration,
	m *metrics.Metrics,
	logger *zap.Logger,
) Notifier {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}

	return &poolNotifier{
		pool:      pool,
		publisher: publisher,
		timeout:   timeout,
		metrics:   m,
		logger:    logger,
	}
}

func (n *poolNotifier) Notify(ctx context.Context, topic string, payload any) {
	// keep the trace, drop the request deadline
	detached := context.WithoutCancel(ctx)

	err := n.pool.Submit(func() {
		ctx, cancel := context.WithTimeout(detached, n.timeout)
		defer cancel()

		if err := n.publisher.Publish(ctx, topic, payload); err != nil {
			n.metrics.EventsPublished.WithLabelValues(topic, metrics.ResultError).Inc()
			mylogger.Warn(ctx, n.logger, "Notification publish failed", zap.String("topic", topic), zap.Error(err))
			return
		}

		n.metrics.EventsPublished.WithLabelValues(topic, metrics.ResultOK).Inc()
	})
	if err != nil {
		n.metrics.EventsPublished.WithLabelValues(topic, metrics.ResultDropped).Inc()
		mylogger.Warn(ctx, n.logger, "Notification dropped", zap.String("topic", topic), zap.Error(err))
	}
}

// Close waits for queued notifications.
func (n *poolNotifier) Close() {
	n.closeOnce.Do(n.pool.Stop)
}
