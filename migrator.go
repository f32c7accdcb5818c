package migrate

import (
	"context"
	"time"

	"github.com/pkg/errors"

	"github.com/kouprlabs/voltaserve-migrate/internal/database"
	"github.com/kouprlabs/voltaserve-migrate/internal/logger"
	"github.com/kouprlabs/voltaserve-migrate/internal/source"
	"github.com/kouprlabs/voltaserve-migrate/migration"
	"github.com/kouprlabs/voltaserve-migrate/migrations"
)

var ErrGatewayNotInitialized = errors.New("database gateway has not been initialized")

// ErrNothingToMigrate is returned when a run has no step to apply or revert.
var ErrNothingToMigrate = database.ErrNoChangesRequired

// ErrPendingPredecessor is returned when requested versions would be applied
// ahead of an older pending step.
var ErrPendingPredecessor = database.ErrPendingPredecessor

type CloserFunc func() error

type (
	Status struct {
		Key        string
		Name       string
		Version    migration.Version
		Applied    bool
		Batch      uint
		MigratedAt time.Time
		// Registered is false for applied-log entries with no step in the registry.
		Registered bool
	}

	Preview struct {
		Key        string
		Statements []string
	}
)

type Migrator struct {
	lg        logger.Logger
	gateway   database.Gateway
	selector  source.Selector
	closerFns []CloserFunc
}

// NewMigrator creates a migrator from option callbacks. A database option is
// required; the Voltaserve registry is used unless another one is given.
func NewMigrator(opts ...OptionFunc) (*Migrator, CloserFunc, error) {
	m := new(Migrator)
	m.lg = logger.NullLogger{}

	for _, oFunc := range opts {
		if err := oFunc(m); err != nil {
			return nil, nil, m.closeAfter(err)
		}
	}

	if m.gateway == nil {
		return nil, nil, m.closeAfter(ErrGatewayNotInitialized)
	}

	if m.selector == nil {
		m.selector = source.NewRegistrySource(migrations.Migrator{})
	}

	m.gateway.SetLogger(m.lg)

	return m, m.close, nil
}

// Migrate applies pending steps oldest first. Every step runs in its own
// transaction and the run stops at the first failure.
func (m *Migrator) Migrate(ctx context.Context, cfs ...ActionConfigurator) (migration.Migrations, error) {
	all, p, err := m.prepare(ctx, cfs)
	if err != nil {
		return nil, err
	}

	migrated, err := m.gateway.Migrate(ctx, all, p)
	if err != nil {
		m.logError(err)
		return migrated, err
	}

	return migrated, nil
}

// Rollback reverts applied steps newest first, all of them unless limited
// with WithSteps or WithVersions.
func (m *Migrator) Rollback(ctx context.Context, cfs ...ActionConfigurator) (migration.Migrations, error) {
	all, p, err := m.prepare(ctx, cfs)
	if err != nil {
		return nil, errors.Wrap(err, "could not rollback migrations")
	}

	executed, err := m.gateway.Rollback(ctx, all, p)
	if err != nil {
		m.logError(err)
		return executed, errors.Wrap(err, "could not rollback migrations")
	}

	return executed, nil
}

// Reset reverts every applied step.
func (m *Migrator) Reset(ctx context.Context) (migration.Migrations, error) {
	return m.Rollback(ctx)
}

// Refresh first rolls back the migrations and then migrates them again.
func (m *Migrator) Refresh(ctx context.Context, cfs ...ActionConfigurator) (migration.Migrations, migration.Migrations, error) {
	all, p, err := m.prepare(ctx, cfs)
	if err != nil {
		return nil, nil, err
	}

	rolledBack, migrated, err := m.gateway.Refresh(ctx, all, p)
	if err != nil {
		m.logError(err)
		return rolledBack, migrated, err
	}

	return rolledBack, migrated, nil
}

// Fresh drops every table in the database and migrates everything again.
func (m *Migrator) Fresh(ctx context.Context) (migration.Migrations, error) {
	all, err := m.selector.All(ctx)
	if err != nil {
		m.lg.Error(err)
		return nil, err
	}

	migrated, err := m.gateway.Fresh(ctx, all)
	if err != nil {
		m.logError(err)
		return migrated, err
	}

	return migrated, nil
}

// Status reports every registered step and every applied-log entry the
// registry does not know about.
func (m *Migrator) Status(ctx context.Context) ([]Status, error) {
	all, err := m.selector.All(ctx)
	if err != nil {
		m.lg.Error(err)
		return nil, err
	}

	applied, err := m.gateway.ReadVersions(ctx)
	if err != nil {
		m.lg.Error(err)
		return nil, errors.Wrap(err, "could not read applied migrations")
	}

	byVersion := make(map[migration.Version]database.Version, len(applied))
	for _, v := range applied {
		byVersion[v.Version] = v
	}

	result := make([]Status, 0, len(all))
	for _, mg := range all {
		s := Status{Key: mg.Key, Name: mg.Name, Version: mg.Version, Registered: true}
		if v, ok := byVersion[mg.Version]; ok {
			s.Applied = true
			s.Batch = uint(v.Batch)
			s.MigratedAt = v.MigratedAt
		}

		result = append(result, s)
	}

	for _, v := range applied {
		if all.Find(v.Version) == nil {
			result = append(result, Status{
				Key:        v.Name,
				Version:    v.Version,
				Applied:    true,
				Batch:      uint(v.Batch),
				MigratedAt: v.MigratedAt,
			})
		}
	}

	return result, nil
}

// Plan returns the statements Migrate would execute, without executing them.
func (m *Migrator) Plan(ctx context.Context, cfs ...ActionConfigurator) ([]Preview, error) {
	return m.dryRun(ctx, database.OperationMigrate, cfs)
}

// PlanRollback returns the statements Rollback would execute.
func (m *Migrator) PlanRollback(ctx context.Context, cfs ...ActionConfigurator) ([]Preview, error) {
	return m.dryRun(ctx, database.OperationRollback, cfs)
}

func (m *Migrator) dryRun(ctx context.Context, operation string, cfs []ActionConfigurator) ([]Preview, error) {
	all, p, err := m.prepare(ctx, cfs)
	if err != nil {
		return nil, err
	}

	previews, err := m.gateway.DryRun(ctx, all, p, operation)
	if err != nil {
		m.logError(err)
		return nil, err
	}

	result := make([]Preview, 0, len(previews))
	for _, pv := range previews {
		result = append(result, Preview{Key: pv.Key, Statements: pv.Statements})
	}

	return result, nil
}

// prepare returns the whole registry, so history checks see every step, and
// narrows the plan to the requested versions.
func (m *Migrator) prepare(ctx context.Context, cfs []ActionConfigurator) (migration.Migrations, database.Plan, error) {
	act := newAction(cfs)

	all, err := m.selector.All(ctx)
	if err != nil {
		m.lg.Error(err)
		return nil, database.Plan{}, err
	}

	p := database.Plan{Steps: act.steps}
	if len(act.versions) > 0 {
		selected, err := m.selector.Select(ctx, source.Filter{Versions: act.versions})
		if err != nil {
			m.lg.Error(err)
			return nil, database.Plan{}, err
		}

		p.Versions = selected.Versions()
	}

	return all, p, nil
}

func (m *Migrator) logError(err error) {
	if !errors.Is(err, ErrNothingToMigrate) {
		m.lg.Error(err)
	}
}

func (m *Migrator) close() error {
	if m.gateway == nil {
		return ErrGatewayNotInitialized
	}

	for _, fn := range m.closerFns {
		if err := fn(); err != nil {
			m.lg.Error(err)
		}
	}

	return nil
}

func (m *Migrator) closeAfter(err error) error {
	for _, fn := range m.closerFns {
		if closeErr := fn(); closeErr != nil {
			err = errors.Wrap(err, closeErr.Error())
		}
	}

	return err
}
