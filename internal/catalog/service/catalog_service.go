package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/sakashimaa/go-event-shop/internal/catalog/domain"
	"github.com/sakashimaa/go-event-shop/internal/catalog/repository"
	generalDomain "github.com/sakashimaa/go-event-shop/pkg/domain"
	"github.com/sakashimaa/go-event-shop/pkg/mylogger"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

type CatalogService interface {
	Lookup(ctx context.Context, name string) (*domain.Product, error)
	List(ctx context.Context) ([]domain.Product, error)
	Add(ctx context.Context, product *domain.Product) (int64, error)
	ClearAll(ctx context.Context) error
}

type catalogService struct {
	productRepo repository.ProductRepository
	tracer      trace.Tracer
	logger      *zap.Logger
}

func NewCatalogService(productRepo repository.ProductRepository, logger *zap.Logger) CatalogService {
	return &catalogService{
		productRepo: productRepo,
		tracer:      otel.Tracer("catalog/service"),
		logger:      logger,
	}
}

func (s *catalogService) Lookup(ctx context.Context, name string) (*domain.Product, error) {
	ctx, span := s.tracer.Start(ctx, "CatalogService.Lookup")
	defer span.End()

	span.SetAttributes(attribute.String("name", name))

	if name == "" {
		return nil, fmt.Errorf("%w: product name is required", generalDomain.ErrInvalidInput)
	}

	res, err := s.productRepo.FindByName(ctx, name)
	if err != nil {
		if errors.Is(err, repository.ErrProductNotFound) {
			mylogger.Warn(ctx, s.logger, "product not found", zap.String("name", name))
			return nil, err
		}

		mylogger.Error(ctx, s.logger, "error looking up product", zap.Error(err))
		return nil, fmt.Errorf("error looking up product %q: %w", name, err)
	}

	return res, nil
}

func (s *catalogService) List(ctx context.Context) ([]domain.Product, error) {
	ctx, span := s.tracer.Start(ctx, "CatalogService.List")
	defer span.End()

	list, err := s.productRepo.List(ctx)
	if err != nil {
		mylogger.Error(ctx, s.logger, "list error", zap.Error(err))
		return nil, fmt.Errorf("error listing products: %w", err)
	}

	return list, nil
}

func (s *catalogService) Add(ctx context.Context, product *domain.Product) (int64, error) {
	ctx, span := s.tracer.Start(ctx, "CatalogService.Add")
	defer span.End()

	id, err := s.productRepo.Create(ctx, product)
	if err != nil {
		mylogger.Error(
			ctx,
			s.logger,
			"Couldn't add new product to catalogue",
			zap.String("name", product.Name),
			zap.Error(err),
		)
		return 0, fmt.Errorf("error adding product: %w", err)
	}

	mylogger.Info(
		ctx,
		s.logger,
		"Added new product",
		zap.String("name", product.Name),
		zap.Int64("id", id),
		zap.String("price", product.Price.StringFixed(2)),
	)

	return id, nil
}

func (s *catalogService) ClearAll(ctx context.Context) error {
	ctx, span := s.tracer.Start(ctx, "CatalogService.ClearAll")
	defer span.End()

	deleted, err := s.productRepo.DeleteAll(ctx)
	if err != nil {
		mylogger.Error(ctx, s.logger, "error clearing catalogue", zap.Error(err))
		return fmt.Errorf("error clearing catalogue: %w", err)
	}

	mylogger.Info(ctx, s.logger, "Catalogue cleared", zap.Int64("deleted", deleted))
	return nil
}
