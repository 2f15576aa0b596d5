package httpserver

import (
	"github.com/gofiber/contrib/otelfiber"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/limiter"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/sakashimaa/go-event-shop/pkg/config"
	"github.com/sakashimaa/go-event-shop/pkg/metrics"
)

// New returns a fiber app with tracing, per-IP rate limiting, /health and,
// when enabled, /metrics. Service routes are registered by the caller.
func New(cfg *config.Config, service string, m *metrics.Metrics) *fiber.App {
	app := fiber.New(fiber.Config{
		AppName:      service,
		ReadTimeout:  cfg.HTTP.Timeout,
		WriteTimeout: cfg.HTTP.Timeout,
	})

	app.Use(recover.New())
	app.Use(otelfiber.Middleware())

	app.Use(limiter.New(limiter.Config{
		Max:        cfg.Limiter.Max,
		Expiration: cfg.Limiter.Expiration,
		KeyGenerator: func(c *fiber.Ctx) string {
			return c.IP()
		},
		Next: func(c *fiber.Ctx) bool {
			return c.Path() == "/health" || c.Path() == "/metrics"
		},
		LimitReached: func(c *fiber.Ctx) error {
			return c.Status(fiber.StatusTooManyRequests).JSON(fiber.Map{
				"error": "Too many requests. Try again later.",
			})
		},
	}))

	app.Get("/health", func(c *fiber.Ctx) error {
		return c.SendString(service + " is alive!")
	})

	if cfg.Metrics.Enabled && m != nil {
		app.Get("/metrics", m.Handler())
	}

	return app
}
