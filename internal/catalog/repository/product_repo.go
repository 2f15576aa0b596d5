package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/sakashimaa/go-event-shop/internal/catalog/domain"
	generalDomain "github.com/sakashimaa/go-event-shop/pkg/domain"
	"github.com/sakashimaa/go-event-shop/pkg/mylogger"
	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

type ProductRepository interface {
	FindByName(ctx context.Context, name string) (*domain.Product, error)
	List(ctx context.Context) ([]domain.Product, error)
	Create(ctx context.Context, product *domain.Product) (int64, error)
	DeleteAll(ctx context.Context) (int64, error)
}

type productRepo struct {
	pool   *pgxpool.Pool
	tracer trace.Tracer
	logger *zap.Logger
}

func NewProductRepository(pool *pgxpool.Pool, logger *zap.Logger) ProductRepository {
	return &productRepo{
		pool:   pool,
		logger: logger,
		tracer: otel.Tracer("catalog/product_repo"),
	}
}

// FindByName returns the oldest product with the given name; names are not unique.
func (r *productRepo) FindByName(ctx context.Context, name string) (*domain.Product, error) {
	ctx, span := r.tracer.Start(ctx, "ProductRepository.FindByName")
	defer span.End()

	span.SetAttributes(attribute.String("name", name))

	query := `
		SELECT id, name, price::text
		FROM products
		WHERE name = $1
		ORDER BY id
		LIMIT 1;
	`

	var (
		res   domain.Product
		price string
	)
	if err := r.pool.QueryRow(ctx, query, name).Scan(&res.ID, &res.Name, &price); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrProductNotFound
		}

		span.RecordError(err)

		mylogger.Error(
			ctx,
			r.logger,
			"Error find by name",
			zap.String("name", name),
			zap.Error(err),
		)

		return nil, r.wrap("error getting product", err)
	}

	var err error
	if res.Price, err = decimal.NewFromString(price); err != nil {
		return nil, fmt.Errorf("%w: bad price %q: %w", generalDomain.ErrStorage, price, err)
	}

	return &res, nil
}

// List skips products with a negative price and orders by price, highest first.
func (r *productRepo) List(ctx context.Context) ([]domain.Product, error) {
	ctx, span := r.tracer.Start(ctx, "ProductRepository.List")
	defer span.End()

	query := `
		SELECT id, name, price::text
		FROM products
		WHERE price >= 0
		ORDER BY price DESC, id;
	`

	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		span.RecordError(err)

		mylogger.Error(ctx, r.logger, "Error getting products", zap.Error(err))

		return nil, r.wrap("error selecting products", err)
	}
	defer rows.Close()

	products := make([]domain.Product, 0)
	for rows.Next() {
		var (
			p     domain.Product
			price string
		)
		if err := rows.Scan(&p.ID, &p.Name, &price); err != nil {
			span.RecordError(err)

			mylogger.Error(ctx, r.logger, "Failed to scan rows", zap.Error(err))

			return nil, fmt.Errorf("%w: error scanning rows: %w", generalDomain.ErrStorage, err)
		}

		if p.Price, err = decimal.NewFromString(price); err != nil {
			return nil, fmt.Errorf("%w: bad price %q: %w", generalDomain.ErrStorage, price, err)
		}

		products = append(products, p)
	}
	if err := rows.Err(); err != nil {
		span.RecordError(err)

		mylogger.Error(ctx, r.logger, "Rows iteration error", zap.Error(err))

		return nil, r.wrap("rows iteration error", err)
	}

	return products, nil
}

func (r *productRepo) Create(ctx context.Context, product *domain.Product) (int64, error) {
	ctx, span := r.tracer.Start(ctx, "ProductRepository.Create")
	defer span.End()

	span.SetAttributes(
		attribute.String("name", product.Name),
		attribute.String("price", product.Price.String()),
	)

	query := `
		INSERT INTO products (name, price)
		VALUES ($1, $2::numeric)
		RETURNING id;
	`

	if err := r.pool.QueryRow(ctx, query, product.Name, product.Price.String()).Scan(&product.ID); err != nil {
		span.RecordError(err)

		mylogger.Error(
			ctx,
			r.logger,
			"Error creating product",
			zap.String("name", product.Name),
			zap.Error(err),
		)

		return 0, r.wrap("error creating product", err)
	}

	return product.ID, nil
}

func (r *productRepo) DeleteAll(ctx context.Context) (int64, error) {
	ctx, span := r.tracer.Start(ctx, "ProductRepository.DeleteAll")
	defer span.End()

	commandTag, err := r.pool.Exec(ctx, `DELETE FROM products`)
	if err != nil {
		span.RecordError(err)

		mylogger.Error(ctx, r.logger, "Error deleting products", zap.Error(err))

		return 0, r.wrap("error deleting products", err)
	}

	return commandTag.RowsAffected(), nil
}

// wrap classifies pg failures: unique violations are conflicts, other server
// errors are storage failures and anything else never reached the server.
func (r *productRepo) wrap(msg string, err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		if pgErr.Code == uniqueViolation {
			return fmt.Errorf("%w: %s: %w", generalDomain.ErrConflict, msg, err)
		}
		return fmt.Errorf("%w: %s: %w", generalDomain.ErrStorage, msg, err)
	}

	return fmt.Errorf("%w: %s: %w", generalDomain.ErrTransport, msg, err)
}
