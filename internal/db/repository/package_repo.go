package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/gokatarajesh/trivia-engine/internal/catalog"
	"github.com/gokatarajesh/trivia-engine/internal/db/pg"
)

type packageStore interface {
	GetPackage(ctx context.Context, packageID string) (pg.Package, error)
	ListPackages(ctx context.Context) ([]pg.PackageSummary, error)
	ListPackageItems(ctx context.Context, packageID string) ([]pg.PackageItem, error)
	SavePackage(ctx context.Context, p pg.Package, items []pg.PackageItem) error
	UpdateItemWeights(ctx context.Context, packageID string, weights []pg.ItemWeight) error
}

// PackageRepository maps catalog packages onto the packages and package_items tables.
type PackageRepository struct {
	store packageStore
}

// NewPackageRepository constructs a package repository.
func NewPackageRepository(store packageStore) *PackageRepository {
	return &PackageRepository{store: store}
}

// Get loads a package with its items in stored order.
func (r *PackageRepository) Get(ctx context.Context, id string) (*catalog.Package, error) {
	row, err := r.store.GetPackage(ctx, id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, catalog.ErrPackageNotFound
		}
		return nil, err
	}
	pkg, err := packageFromRow(row)
	if err != nil {
		return nil, err
	}

	items, err := r.store.ListPackageItems(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("list items: %w", err)
	}
	pkg.Items = make([]catalog.Item, 0, len(items))
	for _, it := range items {
		var item catalog.Item
		if err := json.Unmarshal(it.Data, &item); err != nil {
			return nil, fmt.Errorf("decode item %s: %w", it.Name, err)
		}
		item.Name = it.Name
		item.Weight = int(it.Weight)
		if item.ID == "" {
			item.ID = it.ItemID
		}
		pkg.Items = append(pkg.Items, item)
	}
	pkg.Normalize()
	return &pkg, nil
}

// List returns package summaries ordered by title.
func (r *PackageRepository) List(ctx context.Context) ([]catalog.Summary, error) {
	rows, err := r.store.ListPackages(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]catalog.Summary, 0, len(rows))
	for _, row := range rows {
		pkg, err := packageFromRow(row.Package)
		if err != nil {
			return nil, err
		}
		s := pkg.Summarize()
		s.ItemCount = int(row.ItemCount)
		out = append(out, s)
	}
	return out, nil
}

// Save replaces the stored package and its items.
func (r *PackageRepository) Save(ctx context.Context, pkg catalog.Package) error {
	attrs, err := json.Marshal(pkg.Attributes)
	if err != nil {
		return fmt.Errorf("encode attributes: %w", err)
	}
	divisions := pkg.Divisions
	if divisions == nil {
		divisions = []catalog.Division{}
	}
	divs, err := json.Marshal(divisions)
	if err != nil {
		return fmt.Errorf("encode divisions: %w", err)
	}

	items := make([]pg.PackageItem, 0, len(pkg.Items))
	for i, it := range pkg.Items {
		data, err := json.Marshal(it)
		if err != nil {
			return fmt.Errorf("encode item %s: %w", it.Name, err)
		}
		items = append(items, pg.PackageItem{
			PackageID: pkg.ID,
			Position:  int32(i),
			ItemID:    it.ID,
			Name:      it.Name,
			Weight:    int32(it.EffectiveWeight()),
			Data:      data,
		})
	}

	return r.store.SavePackage(ctx, pg.Package{
		PackageID:  pkg.ID,
		Name:       pkg.Name,
		Title:      pkg.Title,
		Attributes: attrs,
		Divisions:  divs,
		TestTime:   int32(pkg.TestTime),
		Ranged:     pkg.Ranged,
	}, items)
}

// UpdateWeights writes the sampling weight of each item.
func (r *PackageRepository) UpdateWeights(ctx context.Context, packageID string, items []catalog.Item) error {
	weights := make([]pg.ItemWeight, 0, len(items))
	for _, it := range items {
		weights = append(weights, pg.ItemWeight{Name: it.Name, Weight: int32(it.EffectiveWeight())})
	}
	return r.store.UpdateItemWeights(ctx, packageID, weights)
}

func packageFromRow(row pg.Package) (catalog.Package, error) {
	pkg := catalog.Package{
		ID:       row.PackageID,
		Name:     row.Name,
		Title:    row.Title,
		TestTime: int(row.TestTime),
		Ranged:   row.Ranged,
	}
	if len(row.Attributes) > 0 {
		if err := json.Unmarshal(row.Attributes, &pkg.Attributes); err != nil {
			return catalog.Package{}, fmt.Errorf("decode attributes of %s: %w", row.PackageID, err)
		}
	}
	if len(row.Divisions) > 0 {
		if err := json.Unmarshal(row.Divisions, &pkg.Divisions); err != nil {
			return catalog.Package{}, fmt.Errorf("decode divisions of %s: %w", row.PackageID, err)
		}
	}
	return pkg, nil
}
