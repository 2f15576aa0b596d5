package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/sakashimaa/go-event-shop/internal/cart/client"
	"github.com/sakashimaa/go-event-shop/pkg/aggregate"
	"github.com/sakashimaa/go-event-shop/pkg/contracts"
	"github.com/sakashimaa/go-event-shop/pkg/domain"
	"github.com/sakashimaa/go-event-shop/pkg/metrics"
	"github.com/sakashimaa/go-event-shop/pkg/mylogger"
	"github.com/sakashimaa/go-event-shop/pkg/pubsub"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

var ErrCartEmpty = fmt.Errorf("%w: cart is empty, add some items before checking out", domain.ErrInvalidState)

type CartService interface {
	AddItem(ctx context.Context, itemID string) error
	GetCart(ctx context.Context) (contracts.CartDto, error)
	// Checkout publishes the cart as a new order and then deletes it. A failed
	// publish leaves the cart in place; a failed delete after a successful
	// publish is returned and leaves the cart stale.
	Checkout(ctx context.Context) (contracts.OrderDto, error)
	Clear(ctx context.Context) error
}

type cartService struct {
	catalog   client.ProductLookup
	carts     *aggregate.Repository[contracts.CartDto]
	publisher pubsub.Publisher
	notifier  Notifier
	metrics   *metrics.Metrics
	tracer    trace.Tracer
	logger    *zap.Logger
}

func NewCartService(
	catalog client.ProductLookup,
	carts *aggregate.Repository[contracts.CartDto],
	publisher pubsub.Publisher,
	notifier Notifier,
	m *metrics.Metrics,
	logger *zap.Logger,
) CartService {
	return &cartService{
		catalog:   catalog,
		carts:     carts,
		publisher: publisher,
		notifier:  notifier,
		metrics:   m,
		tracer:    otel.Tracer("cart/service"),
		logger:    logger,
	}
}

func (s *cartService) AddItem(ctx context.Context, itemID string) error {
	ctx, span := s.tracer.Start(ctx, "CartService.AddItem")
	defer span.End()

	span.SetAttributes(attribute.String("item_id", itemID))

	if itemID == "" {
		s.metrics.ItemsAdded.WithLabelValues(metrics.ResultInvalid).Inc()
		return fmt.Errorf("%w: item id is required", domain.ErrInvalidInput)
	}

	if _, err := s.catalog.Lookup(ctx, itemID); err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			s.metrics.ItemsAdded.WithLabelValues(metrics.ResultNotFound).Inc()
			mylogger.Warn(ctx, s.logger, "Product does not exist", zap.String("item", itemID))
			return fmt.Errorf("the product [%s] does not exist: %w", itemID, err)
		}

		s.metrics.ItemsAdded.WithLabelValues(metrics.ResultError).Inc()
		mylogger.Error(ctx, s.logger, "Catalog lookup failed", zap.String("item", itemID), zap.Error(err))
		return fmt.Errorf("couldn't add item [%s] to the cart: %w", itemID, err)
	}

	cart, err := s.carts.Update(ctx, func(cart contracts.CartDto, found bool) (contracts.CartDto, error) {
		if !found || cart.Items == nil {
			mylogger.Info(ctx, s.logger, "Adding item to new cart", zap.String("item", itemID))
			return contracts.CartDto{Items: []string{itemID}}, nil
		}

		mylogger.Info(ctx, s.logger, "Adding item to cart", zap.String("item", itemID))
		cart.Items = append(cart.Items, itemID)
		return cart, nil
	})
	if err != nil {
		s.metrics.ItemsAdded.WithLabelValues(metrics.ResultError).Inc()
		mylogger.Error(ctx, s.logger, "Couldn't save cart", zap.String("item", itemID), zap.Error(err))
		return fmt.Errorf("couldn't add item [%s] to the cart: %w", itemID, err)
	}

	span.SetAttributes(attribute.Int("cart.size", len(cart.Items)))
	s.metrics.ItemsAdded.WithLabelValues(metrics.ResultOK).Inc()

	s.notifier.Notify(ctx, contracts.TopicNewCartItem, itemID)

	return nil
}

func (s *cartService) GetCart(ctx context.Context) (contracts.CartDto, error) {
	ctx, span := s.tracer.Start(ctx, "CartService.GetCart")
	defer span.End()

	cart, found, err := s.carts.Load(ctx)
	if err != nil {
		mylogger.Error(ctx, s.logger, "Attempting to retrieve cart", zap.Error(err))
		return contracts.CartDto{}, fmt.Errorf("error getting cart: %w", err)
	}

	if !found || cart.Items == nil {
		return contracts.CartDto{Items: []string{}}, nil
	}

	return cart, nil
}

func (s *cartService) Checkout(ctx context.Context) (contracts.OrderDto, error) {
	ctx, span := s.tracer.Start(ctx, "CartService.Checkout")
	defer span.End()

	cart, found, err := s.carts.Load(ctx)
	if err != nil {
		s.metrics.Checkouts.WithLabelValues(metrics.ResultError).Inc()
		mylogger.Error(ctx, s.logger, "Attempting to retrieve cart", zap.Error(err))
		return contracts.OrderDto{}, fmt.Errorf("error getting cart: %w", err)
	}

	if !found || len(cart.Items) == 0 {
		s.metrics.Checkouts.WithLabelValues(metrics.ResultInvalid).Inc()
		return contracts.OrderDto{}, ErrCartEmpty
	}

	order := contracts.OrderDto{
		ID:    uuid.NewString(),
		Items: append([]string(nil), cart.Items...),
	}

	span.SetAttributes(
		attribute.String("order_id", order.ID),
		attribute.Int("order.size", len(order.Items)),
	)
	mylogger.Info(ctx, s.logger, "Checking out", zap.String("order_id", order.ID), zap.Int("count", len(order.Items)))

	if err := s.publisher.Publish(ctx, contracts.TopicNewOrders, order); err != nil {
		s.metrics.EventsPublished.WithLabelValues(contracts.TopicNewOrders, metrics.ResultError).Inc()
		s.metrics.Checkouts.WithLabelValues(metrics.ResultError).Inc()
		mylogger.Error(ctx, s.logger, "Couldn't publish order, cart kept", zap.String("order_id", order.ID), zap.Error(err))
		return contracts.OrderDto{}, fmt.Errorf("error publishing order: %w", err)
	}
	s.metrics.EventsPublished.WithLabelValues(contracts.TopicNewOrders, metrics.ResultOK).Inc()

	if err := s.carts.Delete(ctx); err != nil {
		s.metrics.Checkouts.WithLabelValues(metrics.ResultError).Inc()
		mylogger.Error(
			ctx,
			s.logger,
			"Order published but cart not deleted, cart is stale until cleared",
			zap.String("order_id", order.ID),
			zap.Error(err),
		)
		return order, fmt.Errorf("error deleting cart after publishing order %s: %w", order.ID, err)
	}

	s.metrics.Checkouts.WithLabelValues(metrics.ResultOK).Inc()
	return order, nil
}

func (s *cartService) Clear(ctx context.Context) error {
	ctx, span := s.tracer.Start(ctx, "CartService.Clear")
	defer span.End()

	if err := s.carts.Delete(ctx); err != nil {
		mylogger.Error(ctx, s.logger, "Couldn't clear cart", zap.Error(err))
		return fmt.Errorf("error clearing cart: %w", err)
	}

	return nil
}
