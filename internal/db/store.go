package db

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	dbgen "github.com/noah-isme/backend-langganan/internal/db/gen"
)

// Store pairs the generated queries with the pool they run on.
type Store struct {
	pool    *pgxpool.Pool
	queries *dbgen.Queries
}

// NewStore constructs a Store over pool.
func NewStore(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool, queries: dbgen.New(pool)}
}

// Queries returns the non-transactional query set.
func (s *Store) Queries() *dbgen.Queries {
	return s.queries
}

// InTx runs fn inside a transaction, committing when fn returns nil.
func (s *Store) InTx(ctx context.Context, fn func(*dbgen.Queries) error) error {
	if s == nil || s.pool == nil {
		return errors.New("db: store not configured")
	}
	tx, err := s.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer func() {
		_ = tx.Rollback(ctx)
	}()
	if err := fn(s.queries.WithTx(tx)); err != nil {
		return err
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}
