package pg

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Store adds transactional writes on top of Queries.
type Store struct {
	*Queries
	pool *pgxpool.Pool
}

func NewStore(pool *pgxpool.Pool) *Store {
	return &Store{Queries: New(pool), pool: pool}
}

// SavePackage replaces a package and all of its items atomically.
func (s *Store) SavePackage(ctx context.Context, p Package, items []PackageItem) error {
	return pgx.BeginFunc(ctx, s.pool, func(tx pgx.Tx) error {
		q := s.WithTx(tx)
		if err := q.UpsertPackage(ctx, p); err != nil {
			return fmt.Errorf("upsert package: %w", err)
		}
		if err := q.DeletePackageItems(ctx, p.PackageID); err != nil {
			return fmt.Errorf("delete items: %w", err)
		}
		if _, err := q.CopyPackageItems(ctx, items); err != nil {
			return fmt.Errorf("copy items: %w", err)
		}
		return nil
	})
}
