package http

import "github.com/gofiber/fiber/v2"

func RegisterRoutes(app *fiber.App, h *CartHandler) {
	app.Get("/getCart", h.GetCart)
	app.Post("/addToCart", h.AddToCart)
	app.Post("/checkout", h.Checkout)
	app.Post("/clear", h.Clear)
}
