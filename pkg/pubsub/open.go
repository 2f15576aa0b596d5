package pubsub

import (
	"context"
	"fmt"

	"github.com/sakashimaa/go-event-shop/pkg/config"
	"github.com/sakashimaa/go-event-shop/pkg/kafka"
	"github.com/sakashimaa/go-event-shop/pkg/utils"
	"go.uber.org/zap"
)

const (
	BackendKafka  = "kafka"
	BackendMemory = "memory"
)

// Open builds the bus selected by cfg. source names the publishing service.
func Open(ctx context.Context, cfg config.PubSub, source string, logger *zap.Logger) (Bus, error) {
	switch cfg.Backend {
	case BackendKafka:
		err := utils.WaitFor(ctx, logger, "kafka", 10, func(context.Context) error {
			return kafka.Ping(cfg.Brokers)
		})
		if err != nil {
			return nil, fmt.Errorf("connect kafka: %w", err)
		}

		return NewKafkaBus(cfg.Brokers, cfg.GroupID, source, cfg.MaxDeliveries, logger)
	case BackendMemory:
		return NewMemoryBus(source, cfg.MaxDeliveries, logger), nil
	default:
		return nil, fmt.Errorf("unknown pubsub backend %q", cfg.Backend)
	}
}
