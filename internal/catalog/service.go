package catalog

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog"
)

var (
	ErrPackageNotFound = errors.New("package not found")
	ErrInvalidPackage  = errors.New("invalid package")
)

// Summary is a package without its items, for option screens.
type Summary struct {
	ID         string      `json:"_id"`
	Name       string      `json:"name"`
	Title      string      `json:"title"`
	ItemCount  int         `json:"item_count"`
	Attributes []Attribute `json:"attributes"`
	Divisions  []Division  `json:"divisions,omitempty"`
	TestTime   int         `json:"test_time,omitempty"`
	Ranged     string      `json:"ranged,omitempty"`
}

// Summarize drops the items of p.
func (p *Package) Summarize() Summary {
	return Summary{
		ID:         p.ID,
		Name:       p.Name,
		Title:      p.Title,
		ItemCount:  len(p.Items),
		Attributes: p.Attributes,
		Divisions:  p.Divisions,
		TestTime:   p.TestTime,
		Ranged:     p.Ranged,
	}
}

// Validate checks the invariants sessions rely on.
func (p *Package) Validate() error {
	if p.ID == "" {
		return fmt.Errorf("%w: missing id", ErrInvalidPackage)
	}
	if len(p.Items) == 0 {
		return fmt.Errorf("%w: package %s has no items", ErrInvalidPackage, p.ID)
	}
	seenAttr := make(map[string]bool, len(p.Attributes))
	for _, a := range p.Attributes {
		switch a.Type {
		case TypeString, TypeNumber, TypeImage:
		default:
			return fmt.Errorf("%w: attribute %q has type %q", ErrInvalidPackage, a.Name, a.Type)
		}
		if seenAttr[a.Name] {
			return fmt.Errorf("%w: duplicate attribute %q", ErrInvalidPackage, a.Name)
		}
		seenAttr[a.Name] = true
	}
	if p.Ranged != "" {
		if a, ok := p.Attribute(p.Ranged); !ok || a.Type != TypeNumber {
			return fmt.Errorf("%w: ranged attribute %q must be numeric", ErrInvalidPackage, p.Ranged)
		}
	}
	seenItem := make(map[string]bool, len(p.Items))
	for _, it := range p.Items {
		if it.Name == "" {
			return fmt.Errorf("%w: item %q has no name", ErrInvalidPackage, it.ID)
		}
		if seenItem[it.Name] {
			return fmt.Errorf("%w: duplicate item %q", ErrInvalidPackage, it.Name)
		}
		seenItem[it.Name] = true
	}
	return nil
}

// Store persists packages.
type Store interface {
	Get(ctx context.Context, id string) (*Package, error)
	List(ctx context.Context) ([]Summary, error)
	Save(ctx context.Context, pkg Package) error
	UpdateWeights(ctx context.Context, packageID string, items []Item) error
}

// PackageCache is the read-through layer in front of Store.
type PackageCache interface {
	Get(ctx context.Context, id string) (*Package, error)
	Set(ctx context.Context, pkg Package) error
	Invalidate(ctx context.Context, id string) error
}

// Service loads packages through the cache and keeps it coherent with writes.
type Service struct {
	store  Store
	cache  PackageCache
	logger zerolog.Logger
}

// NewService wires a package service. cache may be nil.
func NewService(store Store, cache PackageCache, logger zerolog.Logger) *Service {
	return &Service{
		store:  store,
		cache:  cache,
		logger: logger.With().Str("component", "catalog").Logger(),
	}
}

// Package returns the package with id, or ErrPackageNotFound.
func (s *Service) Package(ctx context.Context, id string) (*Package, error) {
	if s.cache != nil {
		pkg, err := s.cache.Get(ctx, id)
		if err != nil {
			s.logger.Warn().Err(err).Str("package_id", id).Msg("package cache read failed")
		} else if pkg != nil {
			return pkg, nil
		}
	}

	pkg, err := s.store.Get(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("load package %s: %w", id, err)
	}
	pkg.Normalize()

	if s.cache != nil {
		if err := s.cache.Set(ctx, *pkg); err != nil {
			s.logger.Warn().Err(err).Str("package_id", id).Msg("package cache write failed")
		}
	}
	return pkg, nil
}

// List returns summaries of every stored package.
func (s *Service) List(ctx context.Context) ([]Summary, error) {
	out, err := s.store.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list packages: %w", err)
	}
	return out, nil
}

// Import normalizes, validates and stores pkg, replacing any previous version.
func (s *Service) Import(ctx context.Context, pkg Package) error {
	pkg.Normalize()
	if err := pkg.Validate(); err != nil {
		return err
	}
	if err := s.store.Save(ctx, pkg); err != nil {
		return fmt.Errorf("save package %s: %w", pkg.ID, err)
	}
	s.invalidate(ctx, pkg.ID)
	s.logger.Info().Str("package_id", pkg.ID).Int("items", len(pkg.Items)).Msg("package imported")
	return nil
}

// UpdateWeights persists adjusted item weights.
func (s *Service) UpdateWeights(ctx context.Context, packageID string, items []Item) error {
	if len(items) == 0 {
		return nil
	}
	if err := s.store.UpdateWeights(ctx, packageID, items); err != nil {
		return fmt.Errorf("update weights for %s: %w", packageID, err)
	}
	s.invalidate(ctx, packageID)
	return nil
}

func (s *Service) invalidate(ctx context.Context, id string) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Invalidate(ctx, id); err != nil {
		s.logger.Warn().Err(err).Str("package_id", id).Msg("package cache invalidation failed")
	}
}
