package migrate

import (
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/kouprlabs/voltaserve-migrate/internal/database"
	"github.com/kouprlabs/voltaserve-migrate/internal/database/sqlgateway"
	"github.com/kouprlabs/voltaserve-migrate/internal/database/sqlgateway/postgres"
)

type PostgresOptionFunc func(*postgres.Options, *sqlgateway.ConnectOptions)

func UsePostgres(db *sqlx.DB, options ...PostgresOptionFunc) OptionFunc {
	return func(m *Migrator) error {
		pgOpts := &postgres.Options{
			LockFor: database.DefaultLockSeconds,
			LockKey: database.DefaultLockKey,
			CommonOptions: database.CommonOptions{
				MigrationsTable: database.DefaultMigrationsTable,
			},
		}

		connectOpts := sqlgateway.NewDefaultConnectOptions()

		for _, oFunc := range options {
			oFunc(pgOpts, connectOpts)
		}

		connector := sqlgateway.MakeRetryingConnector(db, connectOpts)
		gateway := sqlgateway.NewPostgresGateway(connector, *pgOpts)

		m.closerFns = append(m.closerFns, gateway.Close)
		m.gateway = gateway

		return nil
	}
}

func WithPostgresNoLock() PostgresOptionFunc {
	return func(pgOpts *postgres.Options, connectOpts *sqlgateway.ConnectOptions) {
		pgOpts.NoLock = true
	}
}

func WithPostgresLockKey(key string) PostgresOptionFunc {
	return func(pgOpts *postgres.Options, connectOpts *sqlgateway.ConnectOptions) {
		pgOpts.LockKey = key
	}
}

// WithPostgresLockFor sets how many seconds to wait for another run to
// release the advisory lock.
func WithPostgresLockFor(lockFor int) PostgresOptionFunc {
	return func(pgOpts *postgres.Options, connectOpts *sqlgateway.ConnectOptions) {
		pgOpts.LockFor = lockFor
	}
}

func WithPostgresMigrationTable(migrationTable string) PostgresOptionFunc {
	return func(pgOpts *postgres.Options, connectOpts *sqlgateway.ConnectOptions) {
		pgOpts.MigrationsTable = migrationTable
	}
}

func WithPostgresConnectionTimeout(timeout time.Duration) PostgresOptionFunc {
	return func(pgOpts *postgres.Options, connectOpts *sqlgateway.ConnectOptions) {
		connectOpts.MaxTimeout = timeout
	}
}

func WithPostgresMaxConnectionAttempts(attempts int) PostgresOptionFunc {
	return func(pgOpts *postgres.Options, connectOpts *sqlgateway.ConnectOptions) {
		connectOpts.MaxAttempts = attempts
	}
}
