package sqlite

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

type Options struct {
	database.CommonOptions
}

func NewDialect(migrationsTable string) *Dialect {
	if migrationsTable == "" {
		migrationsTable = database.DefaultMigrationsTable
	}

	return &Dialect{migrationsTable: migrationsTable}
}

var _ database.Dialect = (*Dialect)(nil)

func (d Dialect) Name() string {
	return "sqlite"
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
	case schema.KindText, schema.KindJSON:
		return "TEXT", nil
	case schema.KindInteger:
		return "INTEGER", nil
	case schema.KindBigInteger:
		return "BIGINT", nil
	case schema.KindBoolean:
		return "BOOLEAN", nil
	case schema.KindTimestamp:
		return "TIMESTAMP", nil
	}

	return "", errors.Wrapf(schema.ErrUnsupportedType, "[%s] on sqlite", t.Kind)
}

func (d Dialect) TableOptions() string {
	return ""
}

func (d Dialect) Supports(f schema.Feature) bool {
	return f == schema.FeatureIndexIfNotExists || f == schema.FeatureDropIndexIfExists
}

func (d Dialect) HasTableQuery(table string) (string, []interface{}) {
	return "SELECT COUNT(*) FROM sqlite_master WHERE type = 'table' AND name = ?", []interface{}{table}
}

func (d Dialect) ColumnsQuery(table string) (string, []interface{}) {
	return "SELECT name, type FROM pragma_table_info(?) ORDER BY cid", []interface{}{table}
}

func (d Dialect) MigrationsTable() string {
	return d.migrationsTable
}

func (d Dialect) InitQuery() string {
	const createSQL = `CREATE TABLE IF NOT EXISTS %s (
	version VARCHAR(32) PRIMARY KEY,
	name VARCHAR(255) NOT NULL,
	batch BIGINT NOT NULL,
	migrated_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
)`

	return fmt.Sprintf(createSQL, d.Quote(d.migrationsTable))
}

func (d Dialect) InsertQuery(v database.Version) (string, []interface{}, error) {
	const insertSQL = "INSERT INTO %s (version, name, batch, migrated_at) VALUES (?, ?, ?, ?)"

	if err := database.ValidateVersion(v); err != nil {
		return "", nil, err
	}

	q := fmt.Sprintf(insertSQL, d.Quote(d.migrationsTable))
	return q, []interface{}{v.Version.String(), v.Name, int64(v.Batch), v.MigratedAt}, nil
}

func (d Dialect) RemoveQuery(v database.Version) (string, []interface{}, error) {
	if v.Version == "" {
		return "", nil, errors.Wrap(database.ErrMigrationIsMalformed, "version must be specified")
	}

	q := fmt.Sprintf("DELETE FROM %s WHERE version = ?", d.Quote(d.migrationsTable))
	return q, []interface{}{v.Version.String()}, nil
}

func (d Dialect) DropQuery() string {
	return fmt.Sprintf("DROP TABLE IF EXISTS %s", d.Quote(d.migrationsTable))
}

func (d Dialect) ShowTablesQuery() string {
	return "SELECT name FROM sqlite_master WHERE type = 'table' AND name NOT LIKE 'sqlite_%' ORDER BY name"
}

func (d Dialect) DropTablesQueries(tables []string) []string {
	result := make([]string, 0, len(tables))
	for _, t := range tables {
		result = append(result, "DROP TABLE IF EXISTS "+d.Quote(t))
	}
	return result
}

func (d Dialect) ReadVersionsQuery(f database.ReadVersionsFilter) (string, error) {
	return database.BuildReadVersionsQuery(d.Quote(d.migrationsTable), f)
}
