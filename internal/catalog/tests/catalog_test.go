package tests

import (
	"context"
	"time"

	"github.com/sakashimaa/go-event-shop/internal/catalog/domain"
	generalDomain "github.com/sakashimaa/go-event-shop/pkg/domain"
	"github.com/shopspring/decimal"
)

func (s *IntegrationTestSuite) addProduct(name, price string) int64 {
	id, err := s.CatalogService.Add(s.Ctx, &domain.Product{
		Name:  name,
		Price: decimal.RequireFromString(price),
	})
	s.Require().NoError(err)
	s.Require().NotZero(id)
	return id
}

func (s *IntegrationTestSuite) TestAddAndLookup_Success() {
	id := s.addProduct("widget", "9.99")

	product, err := s.CatalogService.Lookup(s.Ctx, "widget")
	s.Require().NoError(err)
	s.Equal(id, product.ID)
	s.Equal("9.99", product.Price.StringFixed(2))
}

func (s *IntegrationTestSuite) TestLookupDuplicateNamesReturnsOldest() {
	first := s.addProduct("widget", "1.00")
	s.addProduct("widget", "2.00")

	product, err := s.CatalogService.Lookup(s.Ctx, "widget")
	s.Require().NoError(err)
	s.Equal(first, product.ID)
}

func (s *IntegrationTestSuite) TestLookupUnknown_NotFound() {
	_, err := s.CatalogService.Lookup(s.Ctx, "unknown-sku")
	s.Require().ErrorIs(err, generalDomain.ErrNotFound)
}

func (s *IntegrationTestSuite) TestListOrderedByPriceDesc() {
	s.addProduct("cheap", "1.50")
	s.addProduct("pricey", "99.00")
	s.addProduct("middle", "10.00")
	s.addProduct("refund", "-5.00")

	list, err := s.CatalogService.List(s.Ctx)
	s.Require().NoError(err)

	var names []string
	for _, p := range list {
		names = append(names, p.Name)
	}
	s.Equal([]string{"pricey", "middle", "cheap"}, names)
}

func (s *IntegrationTestSuite) TestListEmpty() {
	list, err := s.CatalogService.List(s.Ctx)
	s.Require().NoError(err)
	s.NotNil(list)
	s.Empty(list)
}

func (s *IntegrationTestSuite) TestAddPriceOverflow_StorageError() {
	_, err := s.CatalogService.Add(s.Ctx, &domain.Product{
		Name:  "yacht",
		Price: decimal.RequireFromString("100000.00"),
	})
	s.Require().ErrorIs(err, generalDomain.ErrStorage)
}

func (s *IntegrationTestSuite) TestAddContextTimeout_Failed() {
	ctx, cancel := context.WithTimeout(s.Ctx, time.Nanosecond)
	defer cancel()

	_, err := s.CatalogService.Add(ctx, &domain.Product{Name: "widget", Price: decimal.NewFromInt(1)})
	s.Require().ErrorIs(err, context.DeadlineExceeded)
}

func (s *IntegrationTestSuite) TestClearAll() {
	s.addProduct("widget", "9.99")
	s.Require().NoError(s.CatalogService.ClearAll(s.Ctx))
	s.Require().NoError(s.CatalogService.ClearAll(s.Ctx))

	_, err := s.CatalogService.Lookup(s.Ctx, "widget")
	s.Require().ErrorIs(err, generalDomain.ErrNotFound)
}

func (s *IntegrationTestSuite) TestCachedLookupReadsThroughAndInvalidates() {
	s.addProduct("widget", "9.99")

	product, err := s.CachedService.Lookup(s.Ctx, "widget")
	s.Require().NoError(err)
	s.Equal("9.99", product.Price.StringFixed(2))

	exists, err := s.RedisClient.Exists(s.Ctx, "catalog:product:widget").Result()
	s.Require().NoError(err)
	s.Equal(int64(1), exists)

	// served from cache while the row is gone underneath it
	s.TruncateTable("products")
	product, err = s.CachedService.Lookup(s.Ctx, "widget")
	s.Require().NoError(err)
	s.Equal("widget", product.Name)

	s.Require().NoError(s.CachedService.ClearAll(s.Ctx))
	_, err = s.CachedService.Lookup(s.Ctx, "widget")
	s.Require().ErrorIs(err, generalDomain.ErrNotFound)
}

func (s *IntegrationTestSuite) TestCachedAddInvalidatesName() {
	_, err := s.CachedService.Lookup(s.Ctx, "widget")
	s.Require().ErrorIs(err, generalDomain.ErrNotFound)

	_, err = s.CachedService.Add(s.Ctx, &domain.Product{Name: "widget", Price: decimal.RequireFromString("3.00")})
	s.Require().NoError(err)

	product, err := s.CachedService.Lookup(s.Ctx, "widget")
	s.Require().NoError(err)
	s.Equal("3.00", product.Price.StringFixed(2))
}
