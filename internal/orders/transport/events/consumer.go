package events

import (
	"context"
	"fmt"

	"github.com/sakashimaa/go-event-shop/internal/orders/service"
	"github.com/sakashimaa/go-event-shop/pkg/contracts"
	"github.com/sakashimaa/go-event-shop/pkg/mylogger"
	"github.com/sakashimaa/go-event-shop/pkg/pubsub"
	"go.uber.org/zap"
)

// Consumer acknowledges poison messages and leaves everything else that
// failed unacknowledged so the broker redelivers it.
type Consumer struct {
	service service.OrderService
	logger  *zap.Logger
}

func NewConsumer(service service.OrderService, logger *zap.Logger) *Consumer {
	return &Consumer{
		service: service,
		logger:  logger,
	}
}

func (c *Consumer) Register(sub pubsub.Subscriber) error {
	if err := sub.Subscribe(contracts.TopicNewOrders, c.HandleNewOrder); err != nil {
		return fmt.Errorf("subscribe %s: %w", contracts.TopicNewOrders, err)
	}
	if err := sub.Subscribe(contracts.TopicNewCartItem, c.HandleCartItem); err != nil {
		return fmt.Errorf("subscribe %s: %w", contracts.TopicNewCartItem, err)
	}
	return nil
}

func (c *Consumer) HandleNewOrder(ctx context.Context, msg pubsub.Message) error {
	order, err := pubsub.Decode[contracts.OrderDto](msg)
	if err != nil {
		mylogger.Warn(ctx, c.logger, "Dropping undecodable order", zap.String("message_id", msg.ID), zap.Error(err))
		return nil
	}

	if err := c.service.ReceiveOrder(ctx, order); err != nil {
		if service.IsPoison(err) {
			mylogger.Warn(ctx, c.logger, "Dropping invalid order", zap.String("message_id", msg.ID), zap.Error(err))
			return nil
		}

		return err
	}

	return nil
}

func (c *Consumer) HandleCartItem(ctx context.Context, msg pubsub.Message) error {
	item, err := pubsub.Decode[string](msg)
	if err != nil {
		mylogger.Warn(ctx, c.logger, "Dropping undecodable cart item", zap.String("message_id", msg.ID), zap.Error(err))
		return nil
	}

	c.service.WatchCartItem(ctx, item)
	return nil
}
