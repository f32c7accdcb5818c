package source

import (
	"context"
	"sync"

	"github.com/pkg/errors"

	"github.com/kouprlabs/voltaserve-migrate/migration"
)

var ErrNoMigrations = errors.New("no migrations")
var ErrNotRegistered = errors.New("migration version is not registered")

type Filter struct {
	Versions []migration.Version
}

// Lister is implemented by a code-defined registry of migrations.
type Lister interface {
	ListMigrations() (migration.Migrations, error)
}

type ListerFunc func() (migration.Migrations, error)

func (f ListerFunc) ListMigrations() (migration.Migrations, error) {
	return f()
}

// Factories lists the migrations built by the given factories.
func Factories(factories ...migration.Factory) Lister {
	return ListerFunc(func() (migration.Migrations, error) {
		return migration.NewMigrations(factories...)
	})
}

type Selector interface {
	All(ctx context.Context) (migration.Migrations, error)
	Select(ctx context.Context, f Filter) (migration.Migrations, error)
}

// RegistrySource loads and validates a registry once and serves it from
// memory afterwards.
type RegistrySource struct {
	lister Lister

	mu         sync.Mutex
	migrations migration.Migrations
}

var _ Selector = (*RegistrySource)(nil)

func NewRegistrySource(l Lister) *RegistrySource {
	return &RegistrySource{lister: l}
}

func (s *RegistrySource) All(ctx context.Context) (migration.Migrations, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.migrations != nil {
		return s.migrations, nil
	}

	migrations, err := s.lister.ListMigrations()
	if err != nil {
		return nil, errors.Wrap(err, "could not list migrations")
	}

	if err := migration.Validate(migrations); err != nil {
		return nil, err
	}

	if len(migrations) == 0 {
		return nil, ErrNoMigrations
	}

	s.migrations = migrations

	return migrations, nil
}

// Select returns the requested versions in registry order, or the whole
// registry when no versions are requested.
func (s *RegistrySource) Select(ctx context.Context, f Filter) (migration.Migrations, error) {
	migrations, err := s.All(ctx)
	if err != nil {
		return nil, err
	}

	if len(f.Versions) == 0 {
		return migrations, nil
	}

	for _, v := range f.Versions {
		if migrations.Find(v) == nil {
			return nil, errors.Wrapf(ErrNotRegistered, "[%s]", v)
		}
	}

	var result migration.Migrations
	for i := range migrations {
		if migration.InVersions(migrations[i].Version, f.Versions) {
			result = append(result, migrations[i])
		}
	}

	return result, nil
}
