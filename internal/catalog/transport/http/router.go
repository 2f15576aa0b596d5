package http

import "github.com/gofiber/fiber/v2"

func RegisterRoutes(app *fiber.App, h *ProductHandler) {
	app.Get("/product", h.GetProduct)
	app.Get("/products", h.ListProducts)
	app.Post("/products", h.Create)
	app.Post("/clear", h.Clear)
}
