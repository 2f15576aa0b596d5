package utils

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/go-playground/validator/v10"
	"github.com/sakashimaa/go-event-shop/pkg/domain"
	"github.com/sony/gobreaker"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestParseWithFallback(t *testing.T) {
	t.Setenv("SHOP_TEST_VALUE", "  value ")
	assert.Equal(t, "value", ParseWithFallback("SHOP_TEST_VALUE", "fallback"))

	t.Setenv("SHOP_TEST_BLANK", "   ")
	assert.Equal(t, "fallback", ParseWithFallback("SHOP_TEST_BLANK", "fallback"))

	assert.Equal(t, "fallback", ParseWithFallback("SHOP_TEST_UNSET_VARIABLE", "fallback"))
}

func TestErrorToHTTP(t *testing.T) {
	cases := []struct {
		err  error
		want int
	}{
		{fmt.Errorf("lookup: %w", domain.ErrNotFound), http.StatusNotFound},
		{fmt.Errorf("checkout: %w", domain.ErrInvalidState), http.StatusBadRequest},
		{domain.ErrInvalidInput, http.StatusBadRequest},
		{fmt.Errorf("%w: %w", domain.ErrTransport, gobreaker.ErrOpenState), http.StatusServiceUnavailable},
		{context.DeadlineExceeded, http.StatusGatewayTimeout},
		{domain.ErrStorage, http.StatusInternalServerError},
		{domain.ErrConflict, http.StatusInternalServerError},
		{errors.New("boom"), http.StatusInternalServerError},
	}

	for _, tc := range cases {
		assert.Equal(t, tc.want, ErrorToHTTP(tc.err), tc.err.Error())
	}
}

func TestFormatValidationError(t *testing.T) {
	type order struct {
		Items []string `validate:"required,min=1"`
	}

	err := validator.New().Struct(order{Items: []string{}})
	require.Error(t, err)

	assert.Equal(t, map[string]string{"items": "items must contain at least 1 element(s)"}, FormatValidationError(err))
	assert.Equal(t, map[string]string{"body": "bad json"}, FormatValidationError(errors.New("bad json")))
}

func TestWaitForRetriesUntilReady(t *testing.T) {
	calls := 0
	err := WaitFor(context.Background(), zap.NewNop(), "dep", 5, func(context.Context) error {
		calls++
		if calls < 3 {
			return errors.New("not yet")
		}
		return nil
	})

	require.NoError(t, err)
	assert.Equal(t, 3, calls)
}

func TestWaitForGivesUp(t *testing.T) {
	calls := 0
	err := WaitFor(context.Background(), zap.NewNop(), "dep", 1, func(context.Context) error {
		calls++
		return errors.New("down")
	})

	require.Error(t, err)
	assert.Equal(t, 2, calls)
}

func TestExecuteWithBreakerOpens(t *testing.T) {
	cb := NewBreaker("test", zap.NewNop(), nil)
	boom := errors.New("boom")

	for i := 0; i < 5; i++ {
		_, err := ExecuteWithBreaker(cb, func() (int, error) { return 0, boom })
		require.ErrorIs(t, err, boom)
	}

	_, err := ExecuteWithBreaker(cb, func() (int, error) { return 1, nil })
	assert.ErrorIs(t, err, gobreaker.ErrOpenState)
}
