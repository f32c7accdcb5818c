package cli

import (
	"log"
	"os"

	"github.com/go-sql-driver/mysql"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/jmoiron/sqlx"
	_ "github.com/mattn/go-sqlite3"
	"github.com/pkg/errors"
	"github.com/xo/dburl"

	migrate "github.com/kouprlabs/voltaserve-migrate"
	"github.com/kouprlabs/voltaserve-migrate/internal/logger"
)

var ErrUnknownDriver = errors.New("unknown database driver")

type (
	migratorFactory    func(db *sqlx.DB, cfg Config) migrate.OptionFunc
	migratorFactoryMap map[string]migratorFactory
)

// connection is a database url resolved to a registered sql driver.
type connection struct {
	scheme string
	driver string
	dsn    string
}

var factories = migratorFactoryMap{
	"postgres": postgresOption,
	"mysql":    mysqlOption,
	"sqlite3":  sqliteOption,
}

// sql driver names registered by the imported drivers
var sqlDrivers = map[string]string{
	"postgres": "pgx",
	"mysql":    "mysql",
	"sqlite3":  "sqlite3",
}

func parseDatabaseURL(databaseURL string) (connection, error) {
	u, err := dburl.Parse(databaseURL)
	if err != nil {
		return connection{}, errors.Wrapf(err, "could not parse database url")
	}

	driver, ok := sqlDrivers[u.Driver]
	if !ok {
		return connection{}, errors.Wrapf(ErrUnknownDriver, "[%s]", u.Driver)
	}

	dsn := u.DSN
	if u.Driver == "mysql" {
		if dsn, err = normalizeMySQLDSN(dsn); err != nil {
			return connection{}, err
		}
	}

	return connection{scheme: u.Driver, driver: driver, dsn: dsn}, nil
}

// normalizeMySQLDSN makes DATETIME columns scan into time.Time.
func normalizeMySQLDSN(dsn string) (string, error) {
	cfg, err := mysql.ParseDSN(dsn)
	if err != nil {
		return "", errors.Wrap(err, "could not parse mysql dsn")
	}

	cfg.ParseTime = true

	return cfg.FormatDSN(), nil
}

func createMigrator(cfg Config) (*migrate.Migrator, migrate.CloserFunc, error) {
	conn, err := parseDatabaseURL(cfg.DatabaseURL)
	if err != nil {
		return nil, nil, err
	}

	lg, err := createLoggerOption(cfg)
	if err != nil {
		return nil, nil, err
	}

	return createMigratorFrom(conn, factories, cfg, lg)
}

func createMigratorFrom(
	conn connection,
	factoryMap migratorFactoryMap,
	cfg Config,
	opts ...migrate.OptionFunc,
) (*migrate.Migrator, migrate.CloserFunc, error) {
	factory, ok := factoryMap[conn.scheme]
	if !ok {
		return nil, nil, errors.Errorf("could not find factory for driver [%s]", conn.scheme)
	}

	db, err := sqlx.Open(conn.driver, conn.dsn)
	if err != nil {
		return nil, nil, errors.Wrapf(err, "could not open %s database", conn.scheme)
	}

	m, closer, err := migrate.NewMigrator(append([]migrate.OptionFunc{factory(db, cfg)}, opts...)...)
	if err != nil {
		_ = db.Close()
		return nil, nil, err
	}

	return m, func() error {
		closeErr := closer()
		if err := db.Close(); err != nil {
			return err
		}
		return closeErr
	}, nil
}

func createLoggerOption(cfg Config) (migrate.OptionFunc, error) {
	switch cfg.LogFormat {
	case LogFormatColor, "":
		return migrate.UseColorLogger(log.New(os.Stdout, "", 0), cfg.LogSQL, cfg.LogDebug), nil
	case LogFormatPlain:
		return migrate.UseLogger(log.New(os.Stdout, "", 0), cfg.LogSQL, cfg.LogDebug), nil
	default:
		l, err := logger.NewLogrus(cfg.LogFormat)
		if err != nil {
			return nil, errors.Wrap(ErrInvalidLogFormat, err.Error())
		}

		l.SetOutput(os.Stdout)

		return migrate.UseStructuredLogger(l, cfg.LogSQL, cfg.LogDebug), nil
	}
}

func postgresOption(db *sqlx.DB, cfg Config) migrate.OptionFunc {
	var opts []migrate.PostgresOptionFunc
	if cfg.MigrationsTable != "" {
		opts = append(opts, migrate.WithPostgresMigrationTable(cfg.MigrationsTable))
	}
	if cfg.LockKey != "" {
		opts = append(opts, migrate.WithPostgresLockKey(cfg.LockKey))
	}
	if cfg.LockSeconds > 0 {
		opts = append(opts, migrate.WithPostgresLockFor(cfg.LockSeconds))
	}
	if cfg.MaxConnectionAttempts > 0 {
		opts = append(opts, migrate.WithPostgresMaxConnectionAttempts(cfg.MaxConnectionAttempts))
	}
	if cfg.ConnectionTimeout > 0 {
		opts = append(opts, migrate.WithPostgresConnectionTimeout(cfg.ConnectionTimeout))
	}

	return migrate.UsePostgres(db, opts...)
}

func mysqlOption(db *sqlx.DB, cfg Config) migrate.OptionFunc {
	var opts []migrate.MySQLOptionFunc
	if cfg.MigrationsTable != "" {
		opts = append(opts, migrate.WithMySQLMigrationTable(cfg.MigrationsTable))
	}
	if cfg.LockKey != "" {
		opts = append(opts, migrate.WithMySQLLockKey(cfg.LockKey))
	}
	if cfg.LockSeconds > 0 {
		opts = append(opts, migrate.WithMySQLLockFor(cfg.LockSeconds))
	}
	if cfg.MaxConnectionAttempts > 0 {
		opts = append(opts, migrate.WithMySQLMaxConnectionAttempts(cfg.MaxConnectionAttempts))
	}
	if cfg.ConnectionTimeout > 0 {
		opts = append(opts, migrate.WithMySQLConnectionTimeout(cfg.ConnectionTimeout))
	}

	return migrate.UseMySQL(db, opts...)
}

func sqliteOption(db *sqlx.DB, cfg Config) migrate.OptionFunc {
	var opts []migrate.SqliteOptionFunc
	if cfg.MigrationsTable != "" {
		opts = append(opts, migrate.WithSqliteMigrationTable(cfg.MigrationsTable))
	}
	if cfg.MaxConnectionAttempts > 0 {
		opts = append(opts, migrate.WithSqliteMaxConnectionAttempts(cfg.MaxConnectionAttempts))
	}
	if cfg.ConnectionTimeout > 0 {
		opts = append(opts, migrate.WithSqliteConnectionTimeout(cfg.ConnectionTimeout))
	}

	return migrate.UseSqlite(db, opts...)
}
