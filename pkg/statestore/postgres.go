package statestore

import (
	"context"
	"errors"
	"strconv"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

type PostgresStore struct {
	name   string
	pool   *pgxpool.Pool
	tracer trace.Tracer
}

func NewPostgresStore(pool *pgxpool.Pool, name string) *PostgresStore {
	return &PostgresStore{
		name:   name,
		pool:   pool,
		tracer: otel.Tracer("statestore/postgres"),
	}
}

// Init creates the state table and etag sequence when they do not exist yet.
func (s *PostgresStore) Init(ctx context.Context) error {
	query := `
		CREATE SEQUENCE IF NOT EXISTS state_etag_seq;

		CREATE TABLE IF NOT EXISTS state (
			key        TEXT PRIMARY KEY,
			value      BYTEA NOT NULL,
			etag       BIGINT NOT NULL,
			updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		);
	`

	if _, err := s.pool.Exec(ctx, query); err != nil {
		return transportErr("init", s.name, err)
	}

	return nil
}

func (s *PostgresStore) Name() string { return s.name }

func (s *PostgresStore) Get(ctx context.Context, key string) (Item, bool, error) {
	ctx, span := s.tracer.Start(ctx, "PostgresStore.Get")
	defer span.End()

	span.SetAttributes(attribute.String("state.key", key))

	query := `
		SELECT value, etag
		FROM state
		WHERE key = $1
	`

	var (
		value []byte
		etag  int64
	)
	if err := s.pool.QueryRow(ctx, query, namespaced(s.name, key)).Scan(&value, &etag); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Item{}, false, nil
		}

		span.RecordError(err)
		return Item{}, false, transportErr("get", key, err)
	}

	return Item{Key: key, Value: value, ETag: strconv.FormatInt(etag, 10)}, true, nil
}

func (s *PostgresStore) Set(ctx context.Context, key string, value []byte) error {
	ctx, span := s.tracer.Start(ctx, "PostgresStore.Set")
	defer span.End()

	span.SetAttributes(attribute.String("state.key", key))

	query := `
		INSERT INTO state (key, value, etag)
		VALUES ($1, $2, nextval('state_etag_seq'))
		ON CONFLICT (key) DO UPDATE
		SET value = EXCLUDED.value, etag = EXCLUDED.etag, updated_at = NOW()
	`

	if _, err := s.pool.Exec(ctx, query, namespaced(s.name, key), value); err != nil {
		span.RecordError(err)
		return transportErr("set", key, err)
	}

	return nil
}

func (s *PostgresStore) SetIfMatch(ctx context.Context, key string, value []byte, etag string) error {
	ctx, span := s.tracer.Start(ctx, "PostgresStore.SetIfMatch")
	defer span.End()

	span.SetAttributes(
		attribute.String("state.key", key),
		attribute.String("state.etag", etag),
	)

	var (
		query string
		args  []any
	)

	if etag == "" {
		query = `
			INSERT INTO state (key, value, etag)
			VALUES ($1, $2, nextval('state_etag_seq'))
			ON CONFLICT (key) DO NOTHING
		`
		args = []any{namespaced(s.name, key), value}
	} else {
		expected, err := strconv.ParseInt(etag, 10, 64)
		if err != nil {
			return ErrETagMismatch
		}

		query = `
			UPDATE state
			SET value = $2, etag = nextval('state_etag_seq'), updated_at = NOW()
			WHERE key = $1 AND etag = $3
		`
		args = []any{namespaced(s.name, key), value, expected}
	}

	commandTag, err := s.pool.Exec(ctx, query, args...)
	if err != nil {
		span.RecordError(err)
		return transportErr("set", key, err)
	}

	if commandTag.RowsAffected() == 0 {
		return ErrETagMismatch
	}

	return nil
}

func (s *PostgresStore) Delete(ctx context.Context, key string) error {
	ctx, span := s.tracer.Start(ctx, "PostgresStore.Delete")
	defer span.End()

	span.SetAttributes(attribute.String("state.key", key))

	query := `
		DELETE FROM state
		WHERE key = $1
	`

	if _, err := s.pool.Exec(ctx, query, namespaced(s.name, key)); err != nil {
		span.RecordError(err)
		return transportErr("delete", key, err)
	}

	return nil
}

func (s *PostgresStore) Close() error {
	s.pool.Close()
	return nil
}
