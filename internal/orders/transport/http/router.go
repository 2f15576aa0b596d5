package http

import "github.com/gofiber/fiber/v2"

func RegisterRoutes(app *fiber.App, h *OrderHandler) {
	app.Get("/orders", h.GetOrders)
	app.Post("/orders/submit", h.Submit)
	app.Post("/orders/watch", h.Watch)
	app.Post("/clear", h.Clear)
}
