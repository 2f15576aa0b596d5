package http

import (
	"context"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/sakashimaa/go-event-shop/internal/orders/service"
	"github.com/sakashimaa/go-event-shop/pkg/contracts"
	"github.com/sakashimaa/go-event-shop/pkg/mylogger"
	"github.com/sakashimaa/go-event-shop/pkg/utils"
	"go.uber.org/zap"
)

type OrderHandler struct {
	service  service.OrderService
	validate *validator.Validate
	timeout  time.Duration
	logger   *zap.Logger
}

func NewOrderHandler(service service.OrderService, timeout time.Duration, logger *zap.Logger) *OrderHandler {
	return &OrderHandler{
		service:  service,
		validate: validator.New(),
		timeout:  timeout,
		logger:   logger,
	}
}

func (h *OrderHandler) GetOrders(c *fiber.Ctx) error {
	ctx, cancel := context.WithTimeout(c.UserContext(), h.timeout)
	defer cancel()

	orders, err := h.service.GetOrders(ctx)
	if err != nil {
		return c.Status(utils.ErrorToHTTP(err)).JSON(fiber.Map{
			"error": err.Error(),
		})
	}

	return c.Status(fiber.StatusOK).JSON(orders)
}

func (h *OrderHandler) Submit(c *fiber.Ctx) error {
	ctx, cancel := context.WithTimeout(c.UserContext(), h.timeout)
	defer cancel()

	input := new(contracts.OrderDto)
	if err := c.BodyParser(input); err != nil {
		mylogger.Warn(ctx, h.logger, "failed to parse order body", zap.Error(err))

		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "error parsing body",
		})
	}

	if err := h.validate.Struct(input); err != nil {
		mylogger.Warn(ctx, h.logger, "order rejected", zap.Error(err))

		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": utils.FormatValidationError(err),
		})
	}

	if err := h.service.ReceiveOrder(ctx, *input); err != nil {
		httpCode := utils.ErrorToHTTP(err)

		mylogger.Warn(
			ctx,
			h.logger,
			"submit order failed",
			zap.Int("http_code", httpCode),
			zap.Error(err),
		)

		return c.Status(httpCode).JSON(fiber.Map{
			"error": err.Error(),
		})
	}

	return c.SendStatus(fiber.StatusOK)
}

func (h *OrderHandler) Watch(c *fiber.Ctx) error {
	h.service.WatchCartItem(c.UserContext(), contracts.ParseItemID(c.Body()))
	return c.SendStatus(fiber.StatusOK)
}

func (h *OrderHandler) Clear(c *fiber.Ctx) error {
	ctx, cancel := context.WithTimeout(c.UserContext(), h.timeout)
	defer cancel()

	if err := h.service.Clear(ctx); err != nil {
		return c.Status(utils.ErrorToHTTP(err)).JSON(fiber.Map{
			"error": err.Error(),
		})
	}

	return c.SendStatus(fiber.StatusOK)
}
