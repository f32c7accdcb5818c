package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/pkg/errors"

	"github.com/kouprlabs/voltaserve-migrate/internal/logger"
	"github.com/kouprlabs/voltaserve-migrate/migration"
	"github.com/kouprlabs/voltaserve-migrate/schema"
)

var ErrNoChangesRequired = errors.New("no changes to the database required")
var ErrUnknownVersion = errors.New("applied version is not registered")
var ErrLockNotAcquired = errors.New("migration lock could not be acquired")
var ErrMigrationIsMalformed = errors.New("migration version record is malformed")
var ErrPendingPredecessor = errors.New("an older migration is still pending")

const (
	DefaultMigrationsTable = "migrations"
	DefaultLockKey         = "voltaserve_migrations"
	DefaultLockSeconds     = 10

	OperationRollback = "rollback"
	OperationMigrate  = "migrate"
	OperationRefresh  = "refresh"
	OperationFresh    = "fresh"

	ASC  = "ASC"
	DESC = "DESC"
)

type CommonOptions struct {
	MigrationsTable string
}

type (
	Batch uint

	// Version is a row of the applied-log.
	Version struct {
		Version    migration.Version `db:"version"`
		Name       string            `db:"name"`
		Batch      Batch             `db:"batch"`
		MigratedAt time.Time         `db:"migrated_at"`
	}

	Plan struct {
		Steps    int
		Versions []migration.Version
	}

	ReadVersionsFilter struct {
		Limit int
		Sort  string
	}

	// Preview holds the statements a step would execute.
	Preview struct {
		Key        string
		Operation  string
		Statements []string
	}
)

// CtxExecutor is satisfied by *sql.Conn, *sqlx.Conn and *sqlx.Tx.
type CtxExecutor interface {
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
	QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row
}

type Locker interface {
	Lock(ctx context.Context, ex CtxExecutor) error
	Unlock(ctx context.Context, ex CtxExecutor) error
}

type NullLocker struct{}

func (NullLocker) Lock(context.Context, CtxExecutor) error {
	return nil
}

func (NullLocker) Unlock(context.Context, CtxExecutor) error {
	return nil
}

// StateManager builds the queries that maintain the applied-log table.
type StateManager interface {
	MigrationsTable() string
	InitQuery() string
	InsertQuery(v Version) (string, []interface{}, error)
	RemoveQuery(v Version) (string, []interface{}, error)
	ReadVersionsQuery(f ReadVersionsFilter) (string, error)
	DropQuery() string
	ShowTablesQuery() string
	DropTablesQueries(tables []string) []string
}

// Dialect is everything a gateway needs to know about one database.
type Dialect interface {
	StateManager
	schema.Dialect
}

type Gateway interface {
	SetLogger(logger.Logger)
	Migrate(ctx context.Context, migrations migration.Migrations, p Plan) (migration.Migrations, error)
	Rollback(ctx context.Context, migrations migration.Migrations, p Plan) (migration.Migrations, error)
	Refresh(ctx context.Context, migrations migration.Migrations, p Plan) (migration.Migrations, migration.Migrations, error)
	Fresh(ctx context.Context, migrations migration.Migrations) (migration.Migrations, error)
	DryRun(ctx context.Context, migrations migration.Migrations, p Plan, operation string) ([]Preview, error)
	ReadVersions(ctx context.Context) ([]Version, error)
	ShowTables(ctx context.Context) ([]string, error)
	CreateMigrationsTable(ctx context.Context) error
	DropMigrationsTable(ctx context.Context) error
	Close() error
}

// ValidateVersion checks an applied-log row before it is written.
func ValidateVersion(v Version) error {
	if v.Version == "" {
		return errors.Wrap(ErrMigrationIsMalformed, "version must be specified")
	}

	if v.Name == "" {
		return errors.Wrapf(ErrMigrationIsMalformed, "name of version [%s] must be specified", v.Version)
	}

	if v.Batch < 1 {
		return errors.Wrapf(ErrMigrationIsMalformed, "batch of version [%s] must be greater than 0", v.Version)
	}

	if v.MigratedAt.IsZero() {
		return errors.Wrapf(ErrMigrationIsMalformed, "migrated_at of version [%s] must be specified", v.Version)
	}

	return nil
}

// BuildReadVersionsQuery reads the applied-log of an already quoted table.
func BuildReadVersionsQuery(table string, f ReadVersionsFilter) (string, error) {
	if f.Limit < 0 {
		return "", errors.Wrapf(ErrMigrationIsMalformed, "limit %d must not be negative", f.Limit)
	}

	sort := ASC
	switch f.Sort {
	case "", ASC:
	case DESC:
		sort = DESC
	default:
		return "", errors.Wrapf(ErrMigrationIsMalformed, "unknown sort order [%s]", f.Sort)
	}

	q := fmt.Sprintf("SELECT version, name, batch, migrated_at FROM %s ORDER BY version %s", table, sort)
	if f.Limit > 0 {
		q += fmt.Sprintf(" LIMIT %d", f.Limit)
	}

	return q, nil
}

func AppliedVersions(versions []Version) []migration.Version {
	result := make([]migration.Version, 0, len(versions))
	for i := range versions {
		result = append(result, versions[i].Version)
	}
	return result
}

// NextBatch is one past the highest batch in the applied-log.
func NextBatch(versions []Version) Batch {
	var max Batch
	for i := range versions {
		if versions[i].Batch > max {
			max = versions[i].Batch
		}
	}
	return max + 1
}

// CheckHistory fails when the applied-log references a version the registry
// does not contain.
func CheckHistory(migrations migration.Migrations, applied []Version) error {
	for i := range applied {
		if migrations.Find(applied[i].Version) == nil {
			return errors.Wrapf(ErrUnknownVersion, "[%s] (%s)", applied[i].Version, applied[i].Name)
		}
	}

	return nil
}

func ScheduleForMigration(
	migrations migration.Migrations,
	migratedVersions []migration.Version,
	p Plan,
) migration.Migrations {
	var scheduled migration.Migrations

	for i := range migrations {
		if !migration.InVersions(migrations[i].Version, migratedVersions) {
			if p.Steps != 0 && len(scheduled) >= p.Steps {
				break
			}

			if len(p.Versions) == 0 || migration.InVersions(migrations[i].Version, p.Versions) {
				scheduled = append(scheduled, migrations[i])
			}
		}
	}

	return scheduled
}

// CheckPending fails when a registered step older than the newest scheduled
// one is neither applied nor scheduled. Applying past it would break the
// oldest first order of the applied-log.
func CheckPending(
	migrations migration.Migrations,
	migratedVersions []migration.Version,
	scheduled migration.Migrations,
) error {
	if len(scheduled) == 0 {
		return nil
	}

	newest := scheduled[0].Version
	for i := range scheduled {
		if scheduled[i].Version > newest {
			newest = scheduled[i].Version
		}
	}

	for i := range migrations {
		if migrations[i].Version >= newest {
			break
		}

		if migration.InVersions(migrations[i].Version, migratedVersions) ||
			migration.InVersions(migrations[i].Version, scheduled.Versions()) {
			continue
		}

		return errors.Wrapf(ErrPendingPredecessor, "[%s] must be applied before [%s]", migrations[i].Key, newest)
	}

	return nil
}

func ScheduleForRollback(
	migrations migration.Migrations,
	migratedVersions []migration.Version,
	p Plan,
) migration.Migrations {
	var scheduled migration.Migrations

	for i := len(migrations) - 1; i >= 0; i-- {
		if len(p.Versions) > 0 && !migration.InVersions(migrations[i].Version, p.Versions) {
			continue
		}

		if migration.InVersions(migrations[i].Version, migratedVersions) {
			if p.Steps != 0 && len(scheduled) >= p.Steps {
				break
			}

			scheduled = append(scheduled, migrations[i])
		}
	}

	return scheduled
}

// ScheduleForRefresh returns the migrations to roll back, newest first. They
// are migrated again in reverse order of the result.
func ScheduleForRefresh(
	migrations migration.Migrations,
	migratedVersions []migration.Version,
	p Plan,
) migration.Migrations {
	return ScheduleForRollback(migrations, migratedVersions, p)
}
