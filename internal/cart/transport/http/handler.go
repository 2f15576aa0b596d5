package http

import (
	"context"
	"errors"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/sakashimaa/go-event-shop/internal/cart/service"
	"github.com/sakashimaa/go-event-shop/pkg/contracts"
	"github.com/sakashimaa/go-event-shop/pkg/domain"
	"github.com/sakashimaa/go-event-shop/pkg/mylogger"
	"github.com/sakashimaa/go-event-shop/pkg/utils"
	"go.uber.org/zap"
)

type CartHandler struct {
	service service.CartService
	timeout time.Duration
	logger  *zap.Logger
}

func NewCartHandler(service service.CartService, timeout time.Duration, logger *zap.Logger) *CartHandler {
	return &CartHandler{
		service: service,
		timeout: timeout,
		logger:  logger,
	}
}

func (h *CartHandler) GetCart(c *fiber.Ctx) error {
	ctx, cancel := context.WithTimeout(c.UserContext(), h.timeout)
	defer cancel()

	cart, err := h.service.GetCart(ctx)
	if err != nil {
		return h.fail(ctx, c, "get cart failed", err)
	}

	return c.Status(fiber.StatusOK).JSON(cart)
}

func (h *CartHandler) AddToCart(c *fiber.Ctx) error {
	ctx, cancel := context.WithTimeout(c.UserContext(), h.timeout)
	defer cancel()

	item := contracts.ParseItemID(c.Body())
	if item == "" {
		mylogger.Warn(ctx, h.logger, "item is missing")

		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "item is required",
		})
	}

	if err := h.service.AddItem(ctx, item); err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
				"error": "The product [" + item + "] does not exist!",
			})
		}

		return h.fail(ctx, c, "add to cart failed", err)
	}

	return c.SendStatus(fiber.StatusOK)
}

func (h *CartHandler) Checkout(c *fiber.Ctx) error {
	ctx, cancel := context.WithTimeout(c.UserContext(), h.timeout)
	defer cancel()

	order, err := h.service.Checkout(ctx)
	if err != nil {
		return h.fail(ctx, c, "checkout failed", err)
	}

	mylogger.Info(ctx, h.logger, "checkout succeeded", zap.String("order_id", order.ID))

	return c.SendStatus(fiber.StatusOK)
}

func (h *CartHandler) Clear(c *fiber.Ctx) error {
	ctx, cancel := context.WithTimeout(c.UserContext(), h.timeout)
	defer cancel()

	if err := h.service.Clear(ctx); err != nil {
		return h.fail(ctx, c, "clear failed", err)
	}

	return c.SendStatus(fiber.StatusOK)
}

func (h *CartHandler) fail(ctx context.Context, c *fiber.Ctx, msg string, err error) error {
	httpCode := utils.ErrorToHTTP(err)

	mylogger.Warn(
		ctx,
		h.logger,
		msg,
		zap.Int("http_code", httpCode),
		zap.Error(err),
	)

	return c.Status(httpCode).JSON(fiber.Map{
		"error": err.Error(),
	})
}
