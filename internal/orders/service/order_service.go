package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/sakashimaa/go-event-shop/internal/orders/domain"
	"github.com/sakashimaa/go-event-shop/pkg/aggregate"
	"github.com/sakashimaa/go-event-shop/pkg/contracts"
	generalDomain "github.com/sakashimaa/go-event-shop/pkg/domain"
	"github.com/sakashimaa/go-event-shop/pkg/metrics"
	"github.com/sakashimaa/go-event-shop/pkg/mylogger"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

var ErrOrderWithoutItems = fmt.Errorf("%w: OrderDto must contain items", generalDomain.ErrInvalidInput)

type OrderService interface {
	GetOrders(ctx context.Context) (contracts.OrderDto, error)
	// ReceiveOrder appends the order's items to the current orders.
	ReceiveOrder(ctx context.Context, order contracts.OrderDto) error
	WatchCartItem(ctx context.Context, itemID string)
	Clear(ctx context.Context) error
}

type Options struct {
	// IdempotentOrders skips an order whose id was already applied.
	// Orders without an id are always applied.
	IdempotentOrders bool
}

type orderService struct {
	orders  *aggregate.Repository[domain.CurrentOrders]
	opts    Options
	metrics *metrics.Metrics
	tracer  trace.Tracer
	logger  *zap.Logger
}

func NewOrderService(
	orders *aggregate.Repository[domain.CurrentOrders],
	opts Options,
	m *metrics.Metrics,
	logger *zap.Logger,
) OrderService {
	return &orderService{
		orders:  orders,
		opts:    opts,
		metrics: m,
		tracer:  otel.Tracer("orders/service"),
		logger:  logger,
	}
}

func (s *orderService) GetOrders(ctx context.Context) (contracts.OrderDto, error) {
	ctx, span := s.tracer.Start(ctx, "OrderService.GetOrders")
	defer span.End()

	current, _, err := s.orders.Load(ctx)
	if err != nil {
		mylogger.Error(ctx, s.logger, "Attempting to retrieve current orders", zap.Error(err))
		return contracts.OrderDto{}, fmt.Errorf("error getting current orders: %w", err)
	}

	return current.ToDto(), nil
}

func (s *orderService) ReceiveOrder(ctx context.Context, order contracts.OrderDto) error {
	ctx, span := s.tracer.Start(ctx, "OrderService.ReceiveOrder")
	defer span.End()

	span.SetAttributes(
		attribute.String("order_id", order.ID),
		attribute.Int("order.size", len(order.Items)),
	)

	if len(order.Items) == 0 {
		s.metrics.OrdersReceived.WithLabelValues(metrics.ResultInvalid).Inc()
		mylogger.Warn(ctx, s.logger, "Order without items rejected", zap.String("order_id", order.ID))
		return ErrOrderWithoutItems
	}

	mylogger.Info(
		ctx,
		s.logger,
		"New order received",
		zap.String("order_id", order.ID),
		zap.String("items", strings.Join(order.Items, ", ")),
	)

	dedup := s.opts.IdempotentOrders && order.ID != ""
	duplicate := false

	_, err := s.orders.Update(ctx, func(current domain.CurrentOrders, found bool) (domain.CurrentOrders, error) {
		duplicate = false

		if dedup && current.Processed(order.ID) {
			duplicate = true
			return current, aggregate.ErrNoChange
		}

		if !found || current.Items == nil {
			mylogger.Debug(ctx, s.logger, "Starting new current orders list")
			current.Items = append([]string(nil), order.Items...)
		} else {
			current.Items = append(current.Items, order.Items...)
		}

		if dedup {
			current.MarkProcessed(order.ID)
		}

		return current, nil
	})
	if err != nil {
		s.metrics.OrdersReceived.WithLabelValues(metrics.ResultError).Inc()
		mylogger.Error(ctx, s.logger, "Couldn't save current orders", zap.String("order_id", order.ID), zap.Error(err))
		return fmt.Errorf("error receiving order %s: %w", order.ID, err)
	}

	if duplicate {
		s.metrics.OrdersReceived.WithLabelValues(metrics.ResultDuplicate).Inc()
		mylogger.Info(ctx, s.logger, "Order already applied, skipping", zap.String("order_id", order.ID))
		return nil
	}

	s.metrics.OrdersReceived.WithLabelValues(metrics.ResultOK).Inc()
	return nil
}

func (s *orderService) WatchCartItem(ctx context.Context, itemID string) {
	mylogger.Info(ctx, s.logger, "Someone added an item to their cart", zap.String("item", itemID))
}

func (s *orderService) Clear(ctx context.Context) error {
	ctx, span := s.tracer.Start(ctx, "OrderService.Clear")
	defer span.End()

	if err := s.orders.Delete(ctx); err != nil {
		mylogger.Error(ctx, s.logger, "Couldn't clear current orders", zap.Error(err))
		return fmt.Errorf("error clearing current orders: %w", err)
	}

	return nil
}

// IsPoison reports whether redelivering err can never succeed.
func IsPoison(err error) bool {
	return errors.Is(err, generalDomain.ErrInvalidInput)
}
