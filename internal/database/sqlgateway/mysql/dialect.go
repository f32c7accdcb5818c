package mysql

import (
	"fmt"
	"strings"

	"github.com/pkg/errors"

	"github.com/kouprlabs/voltaserve-migrate/internal/database"
	"github.com/kouprlabs/voltaserve-migrate/schema"
)

const DefaultCharset = "utf8mb4"

type Dialect struct {
	migrationsTable, charset string
}

var _ database.Dialect = (*Dialect)(nil)

func NewDialect(migrationsTable, charset string) *Dialect {
	if migrationsTable == "" {
		migrationsTable = database.DefaultMigrationsTable
	}

	if charset == "" {
		charset = DefaultCharset
	}

	return &Dialect{migrationsTable: migrationsTable, charset: charset}
}

func (d Dialect) Name() string {
	return "mysql"
}

func (d Dialect) Quote(ident string) string {
	return "`" + strings.ReplaceAll(ident, "`", "``") + "`"
}

func (d Dialect) ColumnType(t schema.Type) (string, error) {
	switch t.Kind {
	case schema.KindString:
		if t.Length > 0 {
			return fmt.Sprintf("VARCHAR(%d)", t.Length), nil
		}
		return "VARCHAR(255)", nil
	case schema.KindText:
		return "TEXT", nil
	case schema.KindInteger:
		return "INT", nil
	case schema.KindBigInteger:
		return "BIGINT", nil
	case schema.KindBoolean:
		return "BOOLEAN", nil
	case schema.KindTimestamp:
		return "DATETIME", nil
	case schema.KindJSON:
		return "JSON", nil
	}

	return "", errors.Wrapf(schema.ErrUnsupportedType, "[%s] on mysql", t.Kind)
}

func (d Dialect) TableOptions() string {
	return " ENGINE=InnoDB DEFAULT CHARSET=" + d.charset
}

func (d Dialect) Supports(f schema.Feature) bool {
	return f == schema.FeatureDropIndexOnTable
}

func (d Dialect) HasTableQuery(table string) (string, []interface{}) {
	const q = "SELECT COUNT(*) FROM information_schema.tables WHERE table_schema = DATABASE() AND table_name = ?"
	return q, []interface{}{table}
}

func (d Dialect) ColumnsQuery(table string) (string, []interface{}) {
	const q = "SELECT column_name AS name, column_type AS type FROM information_schema.columns " +
		"WHERE table_schema = DATABASE() AND table_name = ? ORDER BY ordinal_position"
	return q, []interface{}{table}
}

func (d Dialect) MigrationsTable() string {
	return d.migrationsTable
}

func (d Dialect) InitQuery() string {
	const createSQL = "CREATE TABLE IF NOT EXISTS %s (\n" +
		"\t`version` VARCHAR(32) PRIMARY KEY,\n" +
		"\t`name` VARCHAR(255) NOT NULL,\n" +
		"\t`batch` BIGINT NOT NULL,\n" +
		"\t`migrated_at` TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP\n" +
		") ENGINE=InnoDB DEFAULT CHARSET=%s"

	return fmt.Sprintf(createSQL, d.Quote(d.migrationsTable), d.charset)
}

func (d Dialect) InsertQuery(v database.Version) (string, []interface{}, error) {
	const insertSQL = "INSERT INTO %s (`version`, `name`, `batch`, `migrated_at`) VALUES (?, ?, ?, ?)"

	if err := database.ValidateVersion(v); err != nil {
		return "", nil, err
	}

	return fmt.Sprintf(insertSQL, d.Quote(d.migrationsTable)), []interface{}{
		v.Version.String(),
		v.Name,
		int64(v.Batch),
		v.MigratedAt,
	}, nil
}

func (d Dialect) RemoveQuery(v database.Version) (string, []interface{}, error) {
	if v.Version == "" {
		return "", nil, errors.Wrap(database.ErrMigrationIsMalformed, "version must be specified")
	}

	const removeSQL = "DELETE FROM %s WHERE `version` = ?"
	return fmt.Sprintf(removeSQL, d.Quote(d.migrationsTable)), []interface{}{v.Version.String()}, nil
}

func (d Dialect) ReadVersionsQuery(f database.ReadVersionsFilter) (string, error) {
	return database.BuildReadVersionsQuery(d.Quote(d.migrationsTable), f)
}

func (d Dialect) DropQuery() string {
	return fmt.Sprintf("DROP TABLE IF EXISTS %s", d.Quote(d.migrationsTable))
}

func (d Dialect) ShowTablesQuery() string {
	return "SELECT table_name FROM information_schema.tables " +
		"WHERE table_schema = DATABASE() AND table_type = 'BASE TABLE' ORDER BY table_name"
}

// DropTablesQueries disables foreign key checks for the session while the
// tables are dropped, since MySQL has no CASCADE for DROP TABLE.
func (d Dialect) DropTablesQueries(tables []string) []string {
	if len(tables) == 0 {
		return nil
	}

	quoted := make([]string, 0, len(tables))
	for _, t := range tables {
		quoted = append(quoted, d.Quote(t))
	}

	return []string{
		"SET FOREIGN_KEY_CHECKS = 0",
		"DROP TABLE IF EXISTS " + strings.Join(quoted, ", "),
		"SET FOREIGN_KEY_CHECKS = 1",
	}
}
