package postgres

import (
	"fmt"
	"strings"

	"github.com/pkg/errors"

	"github.com/kouprlabs/voltaserve-migrate/internal/database"
	"github.com/kouprlabs/voltaserve-migrate/schema"
)

type Dialect struct {
	migrationsTable string
}

var _ database.Dialect = (*Dialect)(nil)

func NewDialect(migrationsTable string) *Dialect {
	if migrationsTable == "" {
		migrationsTable = database.DefaultMigrationsTable
	}

	return &Dialect{migrationsTable: migrationsTable}
}

func (d Dialect) Name() string {
	return "postgres"
}

func (d Dialect) Quote(ident string) string {
	return `"` + strings.ReplaceAll(ident, `"`, `""`) + `"`
}

func (d Dialect) ColumnType(t schema.Type) (string, error) {
	switch t.Kind {
	case schema.KindString:
		if t.Length > 0 {
			return fmt.Sprintf("VARCHAR(%d)", t.Length), nil
		}
		return "TEXT", nil
	case schema.KindText:
		return "TEXT", nil
	case schema.KindInteger:
		return "INTEGER", nil
	case schema.KindBigInteger:
		return "BIGINT", nil
	case schema.KindBoolean:
		return "BOOLEAN", nil
	case schema.KindTimestamp:
		return "TIMESTAMPTZ", nil
	case schema.KindJSON:
		return "JSONB", nil
	}

	return "", errors.Wrapf(schema.ErrUnsupportedType, "[%s] on postgres", t.Kind)
}

func (d Dialect) TableOptions() string {
	return ""
}

func (d Dialect) Supports(f schema.Feature) bool {
	switch f {
	case schema.FeatureIndexIfNotExists,
		schema.FeatureDropIndexIfExists,
		schema.FeatureDropTableCascade,
		schema.FeatureAddColumnIfNotExists,
		schema.FeatureDropColumnIfExists:
		return true
	}

	return false
}

func (d Dialect) HasTableQuery(table string) (string, []interface{}) {
	const q = `SELECT COUNT(*) FROM information_schema.tables WHERE table_schema = current_schema() AND table_name = $1`
	return q, []interface{}{table}
}

func (d Dialect) ColumnsQuery(table string) (string, []interface{}) {
	const q = `SELECT column_name AS name, data_type AS type FROM information_schema.columns ` +
		`WHERE table_schema = current_schema() AND table_name = $1 ORDER BY ordinal_position`
	return q, []interface{}{table}
}

func (d Dialect) MigrationsTable() string {
	return d.migrationsTable
}

func (d Dialect) InitQuery() string {
	const createSQL = `CREATE TABLE IF NOT EXISTS %s (
	version VARCHAR(32) PRIMARY KEY,
	name VARCHAR(255) NOT NULL,
	batch BIGINT NOT NULL,
	migrated_at TIMESTAMPTZ NOT NULL DEFAULT CURRENT_TIMESTAMP
)`

	return fmt.Sprintf(createSQL, d.Quote(d.migrationsTable))
}

func (d Dialect) InsertQuery(v database.Version) (string, []interface{}, error) {
	const insertSQL = "INSERT INTO %s (version, name, batch, migrated_at) VALUES ($1, $2, $3, $4)"

	if err := database.ValidateVersion(v); err != nil {
		return "", nil, err
	}

	args := []interface{}{
		v.Version.String(),
		v.Name,
		int64(v.Batch),
		v.MigratedAt,
	}

	return fmt.Sprintf(insertSQL, d.Quote(d.migrationsTable)), args, nil
}

func (d Dialect) RemoveQuery(v database.Version) (string, []interface{}, error) {
	if v.Version == "" {
		return "", nil, errors.Wrap(database.ErrMigrationIsMalformed, "version must be specified")
	}

	const removeSQL = "DELETE FROM %s WHERE version = $1"
	return fmt.Sprintf(removeSQL, d.Quote(d.migrationsTable)), []interface{}{v.Version.String()}, nil
}

func (d Dialect) ReadVersionsQuery(f database.ReadVersionsFilter) (string, error) {
	return database.BuildReadVersionsQuery(d.Quote(d.migrationsTable), f)
}

func (d Dialect) DropQuery() string {
	return fmt.Sprintf("DROP TABLE IF EXISTS %s", d.Quote(d.migrationsTable))
}

func (d Dialect) ShowTablesQuery() string {
	return "SELECT tablename FROM pg_catalog.pg_tables WHERE schemaname = current_schema() ORDER BY tablename"
}

func (d Dialect) DropTablesQueries(tables []string) []string {
	if len(tables) == 0 {
		return nil
	}

	quoted := make([]string, 0, len(tables))
	for _, t := range tables {
		quoted = append(quoted, d.Quote(t))
	}

	return []string{"DROP TABLE IF EXISTS " + strings.Join(quoted, ", ") + " CASCADE"}
}
