package migrate

import (
	"github.com/sirupsen/logrus"

	"github.com/kouprlabs/voltaserve-migrate/internal/logger"
	"github.com/kouprlabs/voltaserve-migrate/internal/source"
	"github.com/kouprlabs/voltaserve-migrate/migration"
)

type OptionFunc func(*Migrator) error

// Lister provides the registry of migrations, see migrations.Migrator.
type Lister interface {
	ListMigrations() (migration.Migrations, error)
}

func UseRegistry(l Lister) OptionFunc {
	return func(m *Migrator) error {
		m.selector = source.NewRegistrySource(l)
		return nil
	}
}

func UseMigrations(factories ...migration.Factory) OptionFunc {
	return func(m *Migrator) error {
		m.selector = source.NewRegistrySource(source.Factories(factories...))
		return nil
	}
}

func UseColorLogger(p logger.Printer, printSql, printDebug bool) OptionFunc {
	return func(m *Migrator) error {
		m.lg = logger.NewColorLogger(p, printSql, printDebug)
		return nil
	}
}

func UseLogger(p logger.Printer, printSql, printDebug bool) OptionFunc {
	return func(m *Migrator) error {
		m.lg = logger.NewBWLogger(p, printSql, printDebug)
		return nil
	}
}

func UseStructuredLogger(l *logrus.Logger, printSql, printDebug bool) OptionFunc {
	return func(m *Migrator) error {
		m.lg = logger.NewStructuredLogger(l, printSql, printDebug)
		return nil
	}
}
