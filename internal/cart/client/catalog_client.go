package client

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/sakashimaa/go-event-shop/pkg/contracts"
	"github.com/sakashimaa/go-event-shop/pkg/domain"
	"github.com/sakashimaa/go-event-shop/pkg/utils"
	"github.com/sony/gobreaker"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.uber.org/zap"
)

// ProductLookup is the only thing the cart needs from the catalog.
type ProductLookup interface {
	Lookup(ctx context.Context, name string) (contracts.ProductDto, error)
}

type CatalogClient struct {
	baseURL    string
	httpClient *http.Client
	cb         *gobreaker.CircuitBreaker
}

func NewCatalogClient(baseURL string, timeout time.Duration, logger *zap.Logger) *CatalogClient {
	return &CatalogClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{
			Timeout:   timeout,
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		},
		// an unknown product is an answer, not a failure of the catalog
		cb: utils.NewBreaker("CatalogService", logger, func(err error) bool {
			return err == nil || errors.Is(err, domain.ErrNotFound) || errors.Is(err, domain.ErrInvalidInput)
		}),
	}
}

func (c *CatalogClient) Lookup(ctx context.Context, name string) (contracts.ProductDto, error) {
	product, err := utils.ExecuteWithBreaker(c.cb, func() (contracts.ProductDto, error) {
		return c.lookup(ctx, name)
	})
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return product, fmt.Errorf("%w: catalog unavailable: %w", domain.ErrTransport, err)
	}

	return product, err
}

func (c *CatalogClient) lookup(ctx context.Context, name string) (contracts.ProductDto, error) {
	var product contracts.ProductDto

	endpoint := c.baseURL + "/product?name=" + url.QueryEscape(name)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return product, fmt.Errorf("%w: build catalog request: %w", domain.ErrInvalidInput, err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return product, fmt.Errorf("%w: catalog lookup %q: %w", domain.ErrTransport, name, err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		_, _ = io.Copy(io.Discard, resp.Body)
		return product, fmt.Errorf("product [%s] %w", name, domain.ErrNotFound)
	case resp.StatusCode == http.StatusBadRequest:
		_, _ = io.Copy(io.Discard, resp.Body)
		return product, fmt.Errorf("%w: catalog rejected product name %q", domain.ErrInvalidInput, name)
	case resp.StatusCode != http.StatusOK:
		_, _ = io.Copy(io.Discard, resp.Body)
		return product, fmt.Errorf("%w: catalog lookup %q: status %d", domain.ErrTransport, name, resp.StatusCode)
	}

	if err := json.NewDecoder(resp.Body).Decode(&product); err != nil {
		return product, fmt.Errorf("%w: decode catalog response: %w", domain.ErrTransport, err)
	}

	return product, nil
}
