package sqlgateway

import (
	"context"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"

	"github.com/kouprlabs/voltaserve-migrate/internal/database"
	"github.com/kouprlabs/voltaserve-migrate/internal/database/sqlgateway/mysql"
	"github.com/kouprlabs/voltaserve-migrate/internal/database/sqlgateway/postgres"
	"github.com/kouprlabs/voltaserve-migrate/internal/database/sqlgateway/sqlite"
	"github.com/kouprlabs/voltaserve-migrate/internal/logger"
	"github.com/kouprlabs/voltaserve-migrate/migration"
	"github.com/kouprlabs/voltaserve-migrate/schema"
)

type SQLGateway struct {
	locker    database.Locker
	lg        logger.Logger
	connector SQLConnector
	dialect   database.Dialect
	now       func() time.Time
}

var _ database.Gateway = (*SQLGateway)(nil)

func NewMySQLGateway(connector SQLConnector, opts mysql.Options) *SQLGateway {
	return newGateway(
		connector,
		mysql.NewDialect(opts.MigrationsTable, opts.Charset),
		mysql.NewLocker(opts.LockKey, opts.LockFor, opts.NoLock),
	)
}

func NewPostgresGateway(connector SQLConnector, opts postgres.Options) *SQLGateway {
	return newGateway(
		connector,
		postgres.NewDialect(opts.MigrationsTable),
		postgres.NewLocker(opts.LockKey, opts.LockFor, opts.NoLock),
	)
}

// NewSqliteGateway relies on SQLite's own file locking.
func NewSqliteGateway(connector SQLConnector, opts sqlite.Options) *SQLGateway {
	return newGateway(connector, sqlite.NewDialect(opts.MigrationsTable), database.NullLocker{})
}

func newGateway(connector SQLConnector, dialect database.Dialect, locker database.Locker) *SQLGateway {
	return &SQLGateway{
		locker:    locker,
		lg:        logger.NullLogger{},
		connector: connector,
		dialect:   dialect,
		now:       time.Now,
	}
}

func (g *SQLGateway) SetLogger(lg logger.Logger) {
	if lg == nil {
		lg = logger.NullLogger{}
	}

	g.lg = lg
}

func (g *SQLGateway) Migrate(
	ctx context.Context,
	migrations migration.Migrations,
	p database.Plan,
) (migration.Migrations, error) {
	var migrated migration.Migrations

	f := func(conn *sqlx.Conn, applied []database.Version) error {
		versions := database.AppliedVersions(applied)
		scheduled := database.ScheduleForMigration(migrations, versions, p)

		if len(scheduled) == 0 {
			return database.ErrNoChangesRequired
		}

		if err := database.CheckPending(migrations, versions, scheduled); err != nil {
			return err
		}

		batch := database.NextBatch(applied)
		for i := range scheduled {
			if err := g.migrateOne(ctx, conn, scheduled[i], batch); err != nil {
				return err
			}

			g.lg.Successf("migrated: version: %s batch: %d name: %s", scheduled[i].Version, batch, scheduled[i].Name)

			migrated = append(migrated, scheduled[i])
		}

		return nil
	}

	if err := g.execUnderLock(ctx, database.OperationMigrate, migrations, f); err != nil {
		return migrated, err
	}

	return migrated, nil
}

func (g *SQLGateway) Rollback(
	ctx context.Context,
	migrations migration.Migrations,
	p database.Plan,
) (migration.Migrations, error) {
	var rolledBack migration.Migrations

	f := func(conn *sqlx.Conn, applied []database.Version) error {
		scheduled := database.ScheduleForRollback(migrations, database.AppliedVersions(applied), p)

		if len(scheduled) == 0 {
			return database.ErrNoChangesRequired
		}

		if err := checkReversible(scheduled); err != nil {
			return err
		}

		for i := range scheduled {
			g.lg.Debugf("rolling back version: %s, name %s", scheduled[i].Version, scheduled[i].Name)

			if err := g.rollbackOne(ctx, conn, scheduled[i]); err != nil {
				return err
			}

			g.lg.Successf("rolled back version: %s, name %s", scheduled[i].Version, scheduled[i].Name)

			rolledBack = append(rolledBack, scheduled[i])
		}

		return nil
	}

	if err := g.execUnderLock(ctx, database.OperationRollback, migrations, f); err != nil {
		return rolledBack, err
	}

	return rolledBack, nil
}

func (g *SQLGateway) Refresh(
	ctx context.Context,
	migrations migration.Migrations,
	p database.Plan,
) (migration.Migrations, migration.Migrations, error) {
	var rolledBack migration.Migrations
	var migrated migration.Migrations

	f := func(conn *sqlx.Conn, applied []database.Version) error {
		versions := database.AppliedVersions(applied)
		scheduled := database.ScheduleForRefresh(migrations, versions, p)

		if len(scheduled) == 0 {
			return database.ErrNoChangesRequired
		}

		if err := database.CheckPending(migrations, versions, scheduled); err != nil {
			return err
		}

		if err := checkReversible(scheduled); err != nil {
			return err
		}

		for i := range scheduled {
			g.lg.Debugf("rolling back version: %s, name %s", scheduled[i].Version, scheduled[i].Name)

			if err := g.rollbackOne(ctx, conn, scheduled[i]); err != nil {
				return err
			}

			rolledBack = append(rolledBack, scheduled[i])
			g.lg.Successf("rolled back version: %s, name %s", scheduled[i].Version, scheduled[i].Name)
		}

		batch := database.NextBatch(applied)
		for i := len(scheduled) - 1; i >= 0; i-- {
			g.lg.Debugf("migrating version: %s, batch %d, name %s", scheduled[i].Version, batch, scheduled[i].Name)

			if err := g.migrateOne(ctx, conn, scheduled[i], batch); err != nil {
				return err
			}

			migrated = append(migrated, scheduled[i])
			g.lg.Successf("migrated version: %s, batch %d, name %s", scheduled[i].Version, batch, scheduled[i].Name)
		}

		return nil
	}

	if err := g.execUnderLock(ctx, database.OperationRefresh, migrations, f); err != nil {
		return rolledBack, migrated, err
	}

	return rolledBack, migrated, nil
}

// Fresh drops every table of the database, the applied-log included, and
// applies all migrations from scratch as batch 1.
func (g *SQLGateway) Fresh(ctx context.Context, migrations migration.Migrations) (migration.Migrations, error) {
	var migrated migration.Migrations

	conn, err := g.connector.Connect(ctx)
	if err != nil {
		return nil, err
	}

	if err := g.locker.Lock(ctx, conn); err != nil {
		return nil, errors.Wrap(err, "database lock failed")
	}

	tables, err := g.showTables(ctx, conn)
	if err != nil {
		return nil, g.handleError(ctx, conn, err)
	}

	for _, q := range g.dialect.DropTablesQueries(tables) {
		g.lg.SQL(q)
		if _, err := conn.ExecContext(ctx, q); err != nil {
			return nil, g.handleError(ctx, conn, errors.Wrapf(err, "could not drop tables with [%s]", q))
		}
	}

	if len(tables) > 0 {
		g.lg.Successf("dropped %d tables", len(tables))
	}

	if err := g.createMigrationsTable(ctx, conn); err != nil {
		return nil, g.handleError(ctx, conn, err)
	}

	for i := range migrations {
		if err := g.migrateOne(ctx, conn, migrations[i], 1); err != nil {
			err = errors.Wrapf(err, "operation [%s] failed", database.OperationFresh)
			return migrated, g.handleError(ctx, conn, err)
		}

		g.lg.Successf("migrated: version: %s batch: %d name: %s", migrations[i].Version, 1, migrations[i].Name)
		migrated = append(migrated, migrations[i])
	}

	if len(migrated) == 0 {
		return nil, g.handleError(ctx, conn, database.ErrNoChangesRequired)
	}

	return migrated, g.unlock(ctx, conn)
}

// DryRun records the statements the scheduled steps would execute without
// running them. Inspection calls made by a step see the current schema.
func (g *SQLGateway) DryRun(
	ctx context.Context,
	migrations migration.Migrations,
	p database.Plan,
	operation string,
) ([]database.Preview, error) {
	conn, err := g.connector.Connect(ctx)
	if err != nil {
		return nil, err
	}

	applied, err := g.readVersions(ctx, conn)
	if err != nil {
		return nil, err
	}

	if err := database.CheckHistory(migrations, applied); err != nil {
		return nil, err
	}

	versions := database.AppliedVersions(applied)

	var scheduled migration.Migrations
	switch operation {
	case database.OperationMigrate:
		scheduled = database.ScheduleForMigration(migrations, versions, p)
		if err := database.CheckPending(migrations, versions, scheduled); err != nil {
			return nil, err
		}
	case database.OperationRollback:
		scheduled = database.ScheduleForRollback(migrations, versions, p)
	default:
		return nil, errors.Errorf("dry run of [%s] is not supported", operation)
	}

	if len(scheduled) == 0 {
		return nil, database.ErrNoChangesRequired
	}

	recorder := schema.NewRecorder(g.dialect, schema.NewManager(conn, g.dialect, logger.NullLogger{}))

	result := make([]database.Preview, 0, len(scheduled))
	for i := range scheduled {
		recorder.Reset()

		if operation == database.OperationMigrate {
			err = scheduled[i].Migrate(ctx, recorder)
		} else {
			err = scheduled[i].Rollback(ctx, recorder)
		}

		if err != nil {
			return result, errors.Wrapf(err, "could not plan [%s] of [%s]", operation, scheduled[i].Key)
		}

		result = append(result, database.Preview{
			Key:        scheduled[i].Key,
			Operation:  operation,
			Statements: recorder.Statements(),
		})
	}

	return result, nil
}

// ReadVersions returns the applied-log oldest first. A missing applied-log
// reads as empty.
func (g *SQLGateway) ReadVersions(ctx context.Context) ([]database.Version, error) {
	conn, err := g.connector.Connect(ctx)
	if err != nil {
		return nil, err
	}

	return g.readVersions(ctx, conn)
}

func (g *SQLGateway) ShowTables(ctx context.Context) ([]string, error) {
	conn, err := g.connector.Connect(ctx)
	if err != nil {
		return nil, err
	}

	return g.showTables(ctx, conn)
}

func (g *SQLGateway) CreateMigrationsTable(ctx context.Context) error {
	conn, err := g.connector.Connect(ctx)
	if err != nil {
		return err
	}

	return g.createMigrationsTable(ctx, conn)
}

func (g *SQLGateway) DropMigrationsTable(ctx context.Context) error {
	conn, err := g.connector.Connect(ctx)
	if err != nil {
		return err
	}

	q := g.dialect.DropQuery()
	g.lg.SQL(q)

	if _, err := conn.ExecContext(ctx, q); err != nil {
		return errors.Wrapf(err, "could not drop [%s] table", g.dialect.MigrationsTable())
	}

	return nil
}

func (g *SQLGateway) Close() error {
	return g.connector.Close()
}

func (g *SQLGateway) execUnderLock(
	ctx context.Context,
	operation string,
	migrations migration.Migrations,
	f func(*sqlx.Conn, []database.Version) error,
) error {
	conn, err := g.connector.Connect(ctx)
	if err != nil {
		return err
	}

	if err := g.locker.Lock(ctx, conn); err != nil {
		return errors.Wrap(err, "database lock failed")
	}

	if err := g.createMigrationsTable(ctx, conn); err != nil {
		return g.handleError(ctx, conn, err)
	}

	applied, err := g.readVersions(ctx, conn)
	if err != nil {
		return g.handleError(ctx, conn, errors.Wrapf(err, "operation [%s] failed", operation))
	}

	if err := database.CheckHistory(migrations, applied); err != nil {
		return g.handleError(ctx, conn, errors.Wrapf(err, "operation [%s] refused", operation))
	}

	if err := f(conn, applied); err != nil {
		if errors.Is(err, database.ErrNoChangesRequired) {
			return g.handleError(ctx, conn, err)
		}

		return g.handleError(ctx, conn, errors.Wrapf(err, "operation [%s] failed", operation))
	}

	return g.unlock(ctx, conn)
}

// migrateOne applies a step and records it in the same transaction.
func (g *SQLGateway) migrateOne(ctx context.Context, conn *sqlx.Conn, m *migration.Migration, batch database.Batch) error {
	insertQuery, args, err := g.dialect.InsertQuery(database.Version{
		Version:    m.Version,
		Name:       m.Key,
		Batch:      batch,
		MigratedAt: g.now(),
	})
	if err != nil {
		return err
	}

	return transact(ctx, conn, func(ctx context.Context, tx *sqlx.Tx) error {
		if err := m.Migrate(ctx, schema.NewManager(tx, g.dialect, g.lg)); err != nil {
			return errors.Wrapf(err, "could not migrate version: %s, name %s", m.Version, m.Name)
		}

		g.lg.SQL(insertQuery, args...)

		if _, err := tx.ExecContext(ctx, insertQuery, args...); err != nil {
			return errors.Wrapf(err, "could not insert migration version: %s, name %s", m.Version, m.Name)
		}

		return nil
	})
}

func (g *SQLGateway) rollbackOne(ctx context.Context, conn *sqlx.Conn, m *migration.Migration) error {
	removeVersionQuery, args, err := g.dialect.RemoveQuery(database.Version{Version: m.Version, Name: m.Key})
	if err != nil {
		return err
	}

	return transact(ctx, conn, func(ctx context.Context, tx *sqlx.Tx) error {
		if err := m.Rollback(ctx, schema.NewManager(tx, g.dialect, g.lg)); err != nil {
			return errors.Wrapf(err, "could not rollback version: %s, name %s", m.Version, m.Name)
		}

		g.lg.SQL(removeVersionQuery, args...)

		if _, err := tx.ExecContext(ctx, removeVersionQuery, args...); err != nil {
			return errors.Wrapf(err, "could not remove migration version: %s, name %s", m.Version, m.Name)
		}

		return nil
	})
}

func (g *SQLGateway) createMigrationsTable(ctx context.Context, conn *sqlx.Conn) error {
	q := g.dialect.InitQuery()
	g.lg.SQL(q)

	if _, err := conn.ExecContext(ctx, q); err != nil {
		return errors.Wrapf(err, "could not create [%s] table", g.dialect.MigrationsTable())
	}

	return nil
}

func (g *SQLGateway) readVersions(ctx context.Context, conn *sqlx.Conn) ([]database.Version, error) {
	exists, err := schema.NewManager(conn, g.dialect, logger.NullLogger{}).HasTable(ctx, g.dialect.MigrationsTable())
	if err != nil {
		return nil, err
	}

	if !exists {
		return nil, nil
	}

	q, err := g.dialect.ReadVersionsQuery(database.ReadVersionsFilter{Sort: database.ASC})
	if err != nil {
		return nil, err
	}

	var result []database.Version
	if err := sqlx.SelectContext(ctx, conn, &result, q); err != nil {
		return nil, errors.Wrap(err, "could not read migration versions")
	}

	return result, nil
}

func (g *SQLGateway) showTables(ctx context.Context, conn *sqlx.Conn) ([]string, error) {
	var result []string
	if err := sqlx.SelectContext(ctx, conn, &result, g.dialect.ShowTablesQuery()); err != nil {
		return nil, errors.Wrap(err, "could not list all tables")
	}

	return result, nil
}

func (g *SQLGateway) unlock(ctx context.Context, conn *sqlx.Conn) error {
	return g.locker.Unlock(context.WithoutCancel(ctx), conn)
}

func (g *SQLGateway) handleError(ctx context.Context, conn *sqlx.Conn, err error) error {
	result := err

	if unlockErr := g.unlock(ctx, conn); unlockErr != nil {
		result = errors.Wrapf(result, "%s", unlockErr.Error())
	}

	return result
}

func checkReversible(scheduled migration.Migrations) error {
	for i := range scheduled {
		if !scheduled[i].Reversible() {
			return errors.Wrapf(migration.ErrIrreversible, "[%s] cannot be rolled back", scheduled[i].Key)
		}
	}

	return nil
}
