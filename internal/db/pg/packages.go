package pg

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
)

const getPackage = `
SELECT package_id, name, title, attributes, divisions, test_time, ranged, updated_at
FROM packages
WHERE package_id = $1`

func (q *Queries) GetPackage(ctx context.Context, packageID string) (Package, error) {
	rows, err := q.db.Query(ctx, getPackage, packageID)
	if err != nil {
		return Package{}, err
	}
	return pgx.CollectOneRow(rows, pgx.RowToStructByName[Package])
}

const listPackages = `
SELECT p.package_id, p.name, p.title, p.attributes, p.divisions, p.test_time, p.ranged, p.updated_at,
       count(i.name) AS item_count
FROM packages p
LEFT JOIN package_items i ON i.package_id = p.package_id
GROUP BY p.package_id
ORDER BY p.title, p.package_id`

func (q *Queries) ListPackages(ctx context.Context) ([]PackageSummary, error) {
	rows, err := q.db.Query(ctx, listPackages)
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, pgx.RowToStructByName[PackageSummary])
}

const listPackageItems = `
SELECT package_id, position, item_id, name, weight, data
FROM package_items
WHERE package_id = $1
ORDER BY position`

func (q *Queries) ListPackageItems(ctx context.Context, packageID string) ([]PackageItem, error) {
	rows, err := q.db.Query(ctx, listPackageItems, packageID)
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, pgx.RowToStructByName[PackageItem])
}

const upsertPackage = `
INSERT INTO packages (package_id, name, title, attributes, divisions, test_time, ranged)
VALUES ($1, $2, $3, $4, $5, $6, $7)
ON CONFLICT (package_id) DO UPDATE
SET name = EXCLUDED.name,
    title = EXCLUDED.title,
    attributes = EXCLUDED.attributes,
    divisions = EXCLUDED.divisions,
    test_time = EXCLUDED.test_time,
    ranged = EXCLUDED.ranged,
    updated_at = now()`

func (q *Queries) UpsertPackage(ctx context.Context, p Package) error {
	_, err := q.db.Exec(ctx, upsertPackage, p.PackageID, p.Name, p.Title, p.Attributes, p.Divisions, p.TestTime, p.Ranged)
	return err
}

const deletePackageItems = `DELETE FROM package_items WHERE package_id = $1`

func (q *Queries) DeletePackageItems(ctx context.Context, packageID string) error {
	_, err := q.db.Exec(ctx, deletePackageItems, packageID)
	return err
}

var packageItemColumns = []string{"package_id", "position", "item_id", "name", "weight", "data"}

// CopyPackageItems bulk loads items with COPY.
func (q *Queries) CopyPackageItems(ctx context.Context, items []PackageItem) (int64, error) {
	return q.db.CopyFrom(ctx, pgx.Identifier{"package_items"}, packageItemColumns,
		pgx.CopyFromSlice(len(items), func(i int) ([]any, error) {
			it := items[i]
			return []any{it.PackageID, it.Position, it.ItemID, it.Name, it.Weight, it.Data}, nil
		}))
}

const updateItemWeight = `
UPDATE package_items SET weight = $3
WHERE package_id = $1 AND name = $2`

// UpdateItemWeights sends one UPDATE per item in a single batch round trip.
func (q *Queries) UpdateItemWeights(ctx context.Context, packageID string, weights []ItemWeight) error {
	if len(weights) == 0 {
		return nil
	}
	batch := &pgx.Batch{}
	for _, w := range weights {
		batch.Queue(updateItemWeight, packageID, w.Name, w.Weight)
	}
	br := q.db.SendBatch(ctx, batch)
	for _, w := range weights {
		if _, err := br.Exec(); err != nil {
			_ = br.Close()
			return fmt.Errorf("update weight for %s: %w", w.Name, err)
		}
	}
	return br.Close()
}
