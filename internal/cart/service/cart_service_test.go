package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/sakashimaa/go-event-shop/pkg/aggregate"
	"github.com/sakashimaa/go-event-shop/pkg/concurrency"
	"github.com/sakashimaa/go-event-shop/pkg/contracts"
	"github.com/sakashimaa/go-event-shop/pkg/domain"
	"github.com/sakashimaa/go-event-shop/pkg/metrics"
	"github.com/sakashimaa/go-event-shop/pkg/statestore"
	"github.com/sakashimaa/go-event-shop/pkg/statestore/statestoretest"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
	"go.uber.org/zap"
)

type fakeCatalog struct {
	products map[string]decimal.Decimal
	err      error
}

func (f *fakeCatalog) Lookup(_ context.Context, name string) (contracts.ProductDto, error) {
	if f.err != nil {
		return contracts.ProductDto{}, f.err
	}
	price, ok := f.products[name]
	if !ok {
		return contracts.ProductDto{}, fmt.Errorf("product [%s] %w", name, domain.ErrNotFound)
	}
	return contracts.ProductDto{Name: name, UnitPrice: price}, nil
}

type published struct {
	topic   string
	payload any
}

type fakePublisher struct {
	mu     sync.Mutex
	events []published
	errs   map[string]error
}

func (f *fakePublisher) Publish(_ context.Context, topic string, payload any) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.errs[topic]; err != nil {
		return err
	}
	f.events = append(f.events, published{topic: topic, payload: payload})
	return nil
}

func (f *fakePublisher) onTopic(topic string) []any {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []any
	for _, e := range f.events {
		if e.topic == topic {
			out = append(out, e.payload)
		}
	}
	return out
}

type CartServiceTestSuite struct {
	suite.Suite

	ctx       context.Context
	store     *statestoretest.FaultyStore
	catalog   *fakeCatalog
	publisher *fakePublisher
	notifier  Notifier
	service   CartService
}

func TestCartServiceSuite(t *testing.T) {
	suite.Run(t, new(CartServiceTestSuite))
}

func (s *CartServiceTestSuite) SetupTest() {
	s.ctx = context.Background()
	s.store = statestoretest.NewFaultyStore(statestore.NewMemoryStore(contracts.StoreName))
	s.catalog = &fakeCatalog{products: map[string]decimal.Decimal{
		"widget": decimal.RequireFromString("9.99"),
		"gadget": decimal.RequireFromString("19.99"),
	}}
	s.publisher = &fakePublisher{errs: map[string]error{}}
	s.service = s.newService(s.store, aggregate.LastWriteWins)
}

func (s *CartServiceTestSuite) TearDownTest() {
	s.notifier.Close()
}

func (s *CartServiceTestSuite) newService(store statestore.Store, mode aggregate.Mode) CartService {
	logger := zap.NewNop()
	m := metrics.New("cart")

	carts, err := aggregate.NewRepository[contracts.CartDto](store, contracts.CartKey, aggregate.WithMode(mode))
	s.Require().NoError(err)

	pool := concurrency.NewWorkerPool(concurrency.PoolConfig{Name: "notifier", MaxWorkers: 2, MaxCapacity: 16, NonBlocking: true}, logger)
	s.notifier = NewPoolNotifier(pool, s.publisher, time.Second, m, logger)

	return NewCartService(s.catalog, carts, s.publisher, s.notifier, m, logger)
}

func (s *CartServiceTestSuite) cartItems() []string {
	cart, err := s.service.GetCart(s.ctx)
	s.Require().NoError(err)
	return cart.Items
}

func (s *CartServiceTestSuite) TestGetCartAbsentIsEmpty() {
	s.Equal([]string{}, s.cartItems())
}

func (s *CartServiceTestSuite) TestSerialAddsKeepCallOrder() {
	for _, item := range []string{"widget", "gadget", "widget"} {
		s.Require().NoError(s.service.AddItem(s.ctx, item))
	}

	s.Equal([]string{"widget", "gadget", "widget"}, s.cartItems())
}

func (s *CartServiceTestSuite) TestAddItemPublishesCartItemEvent() {
	s.Require().NoError(s.service.AddItem(s.ctx, "widget"))
	s.notifier.Close()

	s.Equal([]any{"widget"}, s.publisher.onTopic(contracts.TopicNewCartItem))
}

func (s *CartServiceTestSuite) TestAddUnknownItemIsNotFoundAndLeavesCart() {
	s.Require().NoError(s.service.AddItem(s.ctx, "widget"))

	err := s.service.AddItem(s.ctx, "unknown-sku")
	s.ErrorIs(err, domain.ErrNotFound)
	s.Equal([]string{"widget"}, s.cartItems())
}

func (s *CartServiceTestSuite) TestAddEmptyItemIsInvalidInput() {
	s.ErrorIs(s.service.AddItem(s.ctx, ""), domain.ErrInvalidInput)
}

func (s *CartServiceTestSuite) TestAddItemCatalogDownIsTransport() {
	s.catalog.err = fmt.Errorf("%w: connection refused", domain.ErrTransport)

	s.ErrorIs(s.service.AddItem(s.ctx, "widget"), domain.ErrTransport)
	s.Equal([]string{}, s.cartItems())
}

func (s *CartServiceTestSuite) TestAddItemSurvivesNotificationFailure() {
	s.publisher.errs[contracts.TopicNewCartItem] = fmt.Errorf("%w: broker down", domain.ErrTransport)

	s.Require().NoError(s.service.AddItem(s.ctx, "widget"))
	s.notifier.Close()

	s.Equal([]string{"widget"}, s.cartItems())
	s.Empty(s.publisher.onTopic(contracts.TopicNewCartItem))
}

func (s *CartServiceTestSuite) TestAddItemStoreFailurePropagates() {
	s.store.SetErr = fmt.Errorf("%w: redis down", domain.ErrTransport)

	s.ErrorIs(s.service.AddItem(s.ctx, "widget"), domain.ErrTransport)
}

func (s *CartServiceTestSuite) TestCheckoutAbsentCartIsInvalidState() {
	_, err := s.service.Checkout(s.ctx)
	s.ErrorIs(err, domain.ErrInvalidState)
	s.Empty(s.publisher.onTopic(contracts.TopicNewOrders))
	s.Zero(s.store.DeleteCalls())
}

func (s *CartServiceTestSuite) TestCheckoutEmptyCartLeavesKeyUntouched() {
	s.Require().NoError(s.store.Set(s.ctx, contracts.CartKey, []byte(`{"items":[]}`)))

	_, err := s.service.Checkout(s.ctx)
	s.ErrorIs(err, domain.ErrInvalidState)

	_, found, err := s.store.Get(s.ctx, contracts.CartKey)
	s.Require().NoError(err)
	s.True(found)
	s.Zero(s.store.DeleteCalls())
}

func (s *CartServiceTestSuite) TestCheckoutPublishesOneOrderThenDeletes() {
	s.Require().NoError(s.service.AddItem(s.ctx, "widget"))
	s.Require().NoError(s.service.AddItem(s.ctx, "gadget"))

	order, err := s.service.Checkout(s.ctx)
	s.Require().NoError(err)
	s.NotEmpty(order.ID)
	s.Equal([]string{"widget", "gadget"}, order.Items)

	orders := s.publisher.onTopic(contracts.TopicNewOrders)
	s.Require().Len(orders, 1)
	s.Equal(order, orders[0])

	s.Equal([]string{}, s.cartItems())
}

func (s *CartServiceTestSuite) TestCheckoutPublishFailureKeepsCart() {
	s.Require().NoError(s.service.AddItem(s.ctx, "widget"))
	s.publisher.errs[contracts.TopicNewOrders] = fmt.Errorf("%w: broker down", domain.ErrTransport)

	_, err := s.service.Checkout(s.ctx)
	s.ErrorIs(err, domain.ErrTransport)
	s.Zero(s.store.DeleteCalls())
	s.Equal([]string{"widget"}, s.cartItems())
}

func (s *CartServiceTestSuite) TestCheckoutDeleteFailureAfterPublishLeavesStaleCart() {
	s.Require().NoError(s.service.AddItem(s.ctx, "widget"))
	s.store.DeleteErr = fmt.Errorf("%w: redis down", domain.ErrTransport)

	order, err := s.service.Checkout(s.ctx)
	s.ErrorIs(err, domain.ErrTransport)
	s.Equal([]string{"widget"}, order.Items)
	s.Len(s.publisher.onTopic(contracts.TopicNewOrders), 1)

	s.store.DeleteErr = nil
	s.Equal([]string{"widget"}, s.cartItems())

	s.Require().NoError(s.service.Clear(s.ctx))
	s.Equal([]string{}, s.cartItems())
}

func (s *CartServiceTestSuite) TestClearIsIdempotent() {
	s.Require().NoError(s.service.AddItem(s.ctx, "widget"))

	s.Require().NoError(s.service.Clear(s.ctx))
	s.Require().NoError(s.service.Clear(s.ctx))
	s.Equal([]string{}, s.cartItems())
}

func (s *CartServiceTestSuite) TestConcurrentAddsLoseAnUpdate() {
	barrier := statestoretest.NewBarrierStore(statestore.NewMemoryStore(contracts.StoreName), 2)
	s.notifier.Close()
	s.service = s.newService(barrier, aggregate.LastWriteWins)

	s.addConcurrently("widget", "gadget")

	items := s.cartItems()
	s.Len(items, 1)
	s.Subset([]string{"widget", "gadget"}, items)
}

func (s *CartServiceTestSuite) TestOptimisticModeKeepsConcurrentAdds() {
	barrier := statestoretest.NewBarrierStore(statestore.NewMemoryStore(contracts.StoreName), 2)
	s.notifier.Close()
	s.service = s.newService(barrier, aggregate.Optimistic)

	s.addConcurrently("widget", "gadget")

	s.ElementsMatch([]string{"widget", "gadget"}, s.cartItems())
}

func (s *CartServiceTestSuite) addConcurrently(items ...string) {
	var wg sync.WaitGroup
	errs := make(chan error, len(items))
	for _, item := range items {
		wg.Add(1)
		go func() {
			defer wg.Done()
			errs <- s.service.AddItem(s.ctx, item)
		}()
	}
	wg.Wait()
	close(errs)

	for err := range errs {
		s.Require().NoError(err)
	}
}

func TestErrCartEmpty(t *testing.T) {
	require.True(t, errors.Is(ErrCartEmpty, domain.ErrInvalidState))
	assert.Contains(t, ErrCartEmpty.Error(), "cart is empty")
}
