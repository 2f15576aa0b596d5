package http

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/sakashimaa/go-event-shop/internal/cart/service"
	"github.com/sakashimaa/go-event-shop/pkg/contracts"
	"github.com/sakashimaa/go-event-shop/pkg/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type fakeCart struct {
	items       []string
	known       map[string]bool
	checkoutErr error
}

func (f *fakeCart) AddItem(_ context.Context, item string) error {
	if !f.known[item] {
		return fmt.Errorf("product [%s] %w", item, domain.ErrNotFound)
	}
	f.items = append(f.items, item)
	return nil
}

func (f *fakeCart) GetCart(context.Context) (contracts.CartDto, error) {
	return contracts.CartDto{Items: append([]string{}, f.items...)}, nil
}

func (f *fakeCart) Checkout(context.Context) (contracts.OrderDto, error) {
	if f.checkoutErr != nil {
		return contracts.OrderDto{}, f.checkoutErr
	}
	if len(f.items) == 0 {
		return contracts.OrderDto{}, service.ErrCartEmpty
	}
	order := contracts.OrderDto{ID: "1", Items: f.items}
	f.items = nil
	return order, nil
}

func (f *fakeCart) Clear(context.Context) error {
	f.items = nil
	return nil
}

func newApp(svc service.CartService) *fiber.App {
	app := fiber.New()
	RegisterRoutes(app, NewCartHandler(svc, time.Second, zap.NewNop()))
	return app
}

func do(t *testing.T, app *fiber.App, method, path, body string) (int, map[string]any) {
	t.Helper()

	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")

	resp, err := app.Test(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	var decoded map[string]any
	_ = json.NewDecoder(resp.Body).Decode(&decoded)
	return resp.StatusCode, decoded
}

func TestCartRoutes(t *testing.T) {
	app := newApp(&fakeCart{known: map[string]bool{"widget": true, "gadget": true}})

	status, body := do(t, app, "GET", "/getCart", "")
	assert.Equal(t, fiber.StatusOK, status)
	assert.Equal(t, []any{}, body["items"])

	status, _ = do(t, app, "POST", "/addToCart", `"widget"`)
	assert.Equal(t, fiber.StatusOK, status)

	status, _ = do(t, app, "POST", "/addToCart", `gadget`)
	assert.Equal(t, fiber.StatusOK, status)

	status, body = do(t, app, "GET", "/getCart", "")
	assert.Equal(t, fiber.StatusOK, status)
	assert.Equal(t, []any{"widget", "gadget"}, body["items"])

	status, _ = do(t, app, "POST", "/checkout", "")
	assert.Equal(t, fiber.StatusOK, status)

	status, body = do(t, app, "POST", "/checkout", "")
	assert.Equal(t, fiber.StatusBadRequest, status)
	assert.Contains(t, body["error"], "cart is empty")

	status, _ = do(t, app, "POST", "/clear", "")
	assert.Equal(t, fiber.StatusOK, status)
}

func TestAddToCartUnknownProduct(t *testing.T) {
	app := newApp(&fakeCart{known: map[string]bool{}})

	status, body := do(t, app, "POST", "/addToCart", `"unknown-sku"`)
	assert.Equal(t, fiber.StatusNotFound, status)
	assert.Equal(t, "The product [unknown-sku] does not exist!", body["error"])
}

func TestAddToCartMissingItem(t *testing.T) {
	app := newApp(&fakeCart{})

	status, _ := do(t, app, "POST", "/addToCart", `""`)
	assert.Equal(t, fiber.StatusBadRequest, status)
}

func TestCheckoutTransportFailure(t *testing.T) {
	app := newApp(&fakeCart{checkoutErr: fmt.Errorf("%w: broker down", domain.ErrTransport)})

	status, _ := do(t, app, "POST", "/checkout", "")
	assert.Equal(t, fiber.StatusInternalServerError, status)
}
