package http

import (
	"context"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/sakashimaa/go-event-shop/internal/catalog/domain"
	"github.com/sakashimaa/go-event-shop/internal/catalog/service"
	"github.com/sakashimaa/go-event-shop/pkg/contracts"
	"github.com/sakashimaa/go-event-shop/pkg/mylogger"
	"github.com/sakashimaa/go-event-shop/pkg/utils"
	"go.uber.org/zap"
)

type ProductHandler struct {
	service  service.CatalogService
	validate *validator.Validate
	timeout  time.Duration
	logger   *zap.Logger
}

func NewProductHandler(service service.CatalogService, timeout time.Duration, logger *zap.Logger) *ProductHandler {
	return &ProductHandler{
		service:  service,
		validate: validator.New(),
		timeout:  timeout,
		logger:   logger,
	}
}

func (h *ProductHandler) GetProduct(c *fiber.Ctx) error {
	ctx, cancel := context.WithTimeout(c.UserContext(), h.timeout)
	defer cancel()

	name := c.Query("name")
	if name == "" {
		mylogger.Warn(ctx, h.logger, "name is missing")

		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "name is required",
		})
	}

	product, err := h.service.Lookup(ctx, name)
	if err != nil {
		httpCode := utils.ErrorToHTTP(err)

		mylogger.Warn(
			ctx,
			h.logger,
			"lookup failed",
			zap.String("name", name),
			zap.Int("http_code", httpCode),
			zap.Error(err),
		)

		return c.Status(httpCode).JSON(fiber.Map{
			"error": err.Error(),
		})
	}

	return c.Status(fiber.StatusOK).JSON(product.ToDto())
}

func (h *ProductHandler) ListProducts(c *fiber.Ctx) error {
	ctx, cancel := context.WithTimeout(c.UserContext(), h.timeout)
	defer cancel()

	products, err := h.service.List(ctx)
	if err != nil {
		return c.Status(utils.ErrorToHTTP(err)).JSON(fiber.Map{
			"error": err.Error(),
		})
	}

	res := make([]contracts.ProductDto, 0, len(products))
	for _, p := range products {
		res = append(res, p.ToDto())
	}

	return c.Status(fiber.StatusOK).JSON(res)
}

func (h *ProductHandler) Create(c *fiber.Ctx) error {
	ctx, cancel := context.WithTimeout(c.UserContext(), h.timeout)
	defer cancel()

	input := new(contracts.ProductDto)
	if err := c.BodyParser(input); err != nil {
		mylogger.Warn(ctx, h.logger, "failed to parse body in create", zap.Error(err))

		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "error parsing body",
		})
	}

	if err := h.validate.Struct(input); err != nil {
		mylogger.Warn(ctx, h.logger, "failed to validate input", zap.Error(err))

		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": utils.FormatValidationError(err),
		})
	}

	id, err := h.service.Add(ctx, domain.FromDto(*input))
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": err.Error(),
		})
	}

	mylogger.Info(ctx, h.logger, "create product succeeded", zap.Int64("created_id", id))

	return c.SendStatus(fiber.StatusOK)
}

func (h *ProductHandler) Clear(c *fiber.Ctx) error {
	ctx, cancel := context.WithTimeout(c.UserContext(), h.timeout)
	defer cancel()

	if err := h.service.ClearAll(ctx); err != nil {
		return c.Status(utils.ErrorToHTTP(err)).JSON(fiber.Map{
			"error": err.Error(),
		})
	}

	return c.SendStatus(fiber.StatusOK)
}
