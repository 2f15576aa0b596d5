package http

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/sakashimaa/go-event-shop/internal/catalog/domain"
	"github.com/sakashimaa/go-event-shop/internal/catalog/repository"
	"github.com/sakashimaa/go-event-shop/pkg/contracts"
	generalDomain "github.com/sakashimaa/go-event-shop/pkg/domain"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type fakeCatalog struct {
	products []domain.Product
	addErr   error
	cleared  bool
}

func (f *fakeCatalog) Lookup(_ context.Context, name string) (*domain.Product, error) {
	for _, p := range f.products {
		if p.Name == name {
			return &p, nil
		}
	}
	return nil, repository.ErrProductNotFound
}

func (f *fakeCatalog) List(context.Context) ([]domain.Product, error) {
	return f.products, nil
}

func (f *fakeCatalog) Add(_ context.Context, p *domain.Product) (int64, error) {
	if f.addErr != nil {
		return 0, f.addErr
	}
	f.products = append(f.products, *p)
	return int64(len(f.products)), nil
}

func (f *fakeCatalog) ClearAll(context.Context) error {
	f.products = nil
	f.cleared = true
	return nil
}

func newApp(svc *fakeCatalog) *fiber.App {
	app := fiber.New()
	RegisterRoutes(app, NewProductHandler(svc, time.Second, zap.NewNop()))
	return app
}

func TestGetProduct(t *testing.T) {
	app := newApp(&fakeCatalog{products: []domain.Product{
		{ID: 1, Name: "widget", Price: decimal.RequireFromString("9.99")},
	}})

	resp, err := app.Test(httptest.NewRequest("GET", "/product?name=widget", nil))
	require.NoError(t, err)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.JSONEq(t, `{"name":"widget","unitPrice":9.99}`, string(body))

	var dto contracts.ProductDto
	require.NoError(t, json.Unmarshal(body, &dto))
	assert.Equal(t, "widget", dto.Name)
	assert.True(t, dto.UnitPrice.Equal(decimal.RequireFromString("9.99")))

	resp, err = app.Test(httptest.NewRequest("GET", "/product?name=unknown-sku", nil))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusNotFound, resp.StatusCode)

	resp, err = app.Test(httptest.NewRequest("GET", "/product", nil))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
}

func TestListProductsEmptyIsArray(t *testing.T) {
	app := newApp(&fakeCatalog{})

	resp, err := app.Test(httptest.NewRequest("GET", "/products", nil))
	require.NoError(t, err)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)

	var list []contracts.ProductDto
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&list))
	assert.NotNil(t, list)
	assert.Empty(t, list)
}

func TestCreateProduct(t *testing.T) {
	svc := &fakeCatalog{}
	app := newApp(svc)

	req := httptest.NewRequest("POST", "/products", strings.NewReader(`{"name":"widget","unitPrice":12.345}`))
	req.Header.Set("Content-Type", "application/json")

	resp, err := app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
	require.Len(t, svc.products, 1)
	assert.Equal(t, "12.35", svc.products[0].Price.StringFixed(2))
}

func TestCreateProductValidation(t *testing.T) {
	app := newApp(&fakeCatalog{})

	req := httptest.NewRequest("POST", "/products", strings.NewReader(`{"unitPrice":1}`))
	req.Header.Set("Content-Type", "application/json")

	resp, err := app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)

	var body map[string]map[string]string
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, "name is required", body["error"]["name"])
}

func TestCreateProductStorageError(t *testing.T) {
	app := newApp(&fakeCatalog{addErr: fmt.Errorf("%w: numeric overflow", generalDomain.ErrStorage)})

	req := httptest.NewRequest("POST", "/products", strings.NewReader(`{"name":"widget","unitPrice":100000}`))
	req.Header.Set("Content-Type", "application/json")

	resp, err := app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusInternalServerError, resp.StatusCode)
}

func TestClear(t *testing.T) {
	svc := &fakeCatalog{products: []domain.Product{{Name: "widget"}}}
	app := newApp(svc)

	resp, err := app.Test(httptest.NewRequest("POST", "/clear", nil))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
	assert.True(t, svc.cleared)
}
