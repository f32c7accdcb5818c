package mysql

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"testing"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kouprlabs/voltaserve-migrate/internal/database"
	"github.com/kouprlabs/voltaserve-migrate/schema"
)

func TestDialect(t *testing.T) {
	d := NewDialect("", "")
	c := schema.NewCompiler(d)

	t.Run("it compiles a table with mysql types and options", func(t *testing.T) {
		queries, err := c.CreateTable(
			schema.CreateTable("invitation").
				Column(schema.Col("id", schema.String).PrimaryKey()).
				Column(schema.Col("status", schema.String).NotNull().Default("pending")).
				Column(schema.Col("payload", schema.JSON)),
		)
		require.NoError(t, err)

		assert.Equal(t, []string{"CREATE TABLE `invitation` (\n" +
			"\t`id` VARCHAR(255) NOT NULL PRIMARY KEY,\n" +
			"\t`status` VARCHAR(255) NOT NULL DEFAULT 'pending',\n" +
			"\t`payload` JSON\n" +
			") ENGINE=InnoDB DEFAULT CHARSET=utf8mb4"}, queries)
	})

	t.Run("it drops indexes on their table", func(t *testing.T) {
		queries, err := c.DropIndex(schema.DropIndex("file_parent_id_idx").On("file").IfExists())
		require.NoError(t, err)
		assert.Equal(t, []string{"DROP INDEX `file_parent_id_idx` ON `file`"}, queries)

		_, err = c.DropIndex(schema.DropIndex("file_parent_id_idx"))
		assert.Error(t, err)
	})

	t.Run("it turns foreign key checks off while dropping everything", func(t *testing.T) {
		assert.Equal(t, []string{
			"SET FOREIGN_KEY_CHECKS = 0",
			"DROP TABLE IF EXISTS `file`, `workspace`",
			"SET FOREIGN_KEY_CHECKS = 1",
		}, d.DropTablesQueries([]string{"file", "workspace"}))
	})

	t.Run("it builds applied-log queries", func(t *testing.T) {
		now := time.Now()
		q, args, err := d.InsertQuery(database.Version{
			Version:    "20240723_000001",
			Name:       "20240723_000001_drop_organization_user",
			Batch:      1,
			MigratedAt: now,
		})
		require.NoError(t, err)

		assert.Equal(t, "INSERT INTO `migrations` (`version`, `name`, `batch`, `migrated_at`) VALUES (?, ?, ?, ?)", q)
		assert.Len(t, args, 4)
		assert.Contains(t, d.InitQuery(), "CHARSET=utf8mb4")
	})
}

// fixedExecutor answers GET_LOCK with a single value.
type fixedExecutor struct {
	db      *sql.DB
	result  interface{}
	queries []string
	execs   []string
}

func newFixedExecutor(t *testing.T, result interface{}) *fixedExecutor {
	t.Helper()

	db, err := sql.Open("sqlite3", ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	return &fixedExecutor{db: db, result: result}
}

func (e *fixedExecutor) QueryRowContext(ctx context.Context, query string, _ ...interface{}) *sql.Row {
	e.queries = append(e.queries, query)
	return e.db.QueryRowContext(ctx, "SELECT ?", e.result)
}

func (e *fixedExecutor) ExecContext(_ context.Context, query string, _ ...interface{}) (sql.Result, error) {
	e.execs = append(e.execs, query)
	return driver.RowsAffected(0), nil
}

func TestLocker(t *testing.T) {
	t.Run("it skips locking when disabled", func(t *testing.T) {
		l := NewLocker("", 0, true)
		assert.NoError(t, l.Lock(context.Background(), nil))
		assert.NoError(t, l.Unlock(context.Background(), nil))
	})

	t.Run("it falls back to the default key and wait", func(t *testing.T) {
		l := NewLocker("", 0, false)
		assert.Equal(t, database.DefaultLockKey, l.lockKey)
		assert.Equal(t, database.DefaultLockSeconds, l.lockFor)
	})

	t.Run("it takes and releases a named lock", func(t *testing.T) {
		l := NewLocker("voltaserve", 5, false)
		ex := newFixedExecutor(t, 1)

		require.NoError(t, l.Lock(context.Background(), ex))
		assert.Equal(t, []string{"SELECT GET_LOCK(?, ?)"}, ex.queries)

		require.NoError(t, l.Unlock(context.Background(), ex))
		assert.Equal(t, []string{"SELECT RELEASE_LOCK(?)"}, ex.execs)
	})

	for name, result := range map[string]interface{}{"a timeout": 0, "an error": nil} {
		result := result
		t.Run("it fails on "+name, func(t *testing.T) {
			l := NewLocker("voltaserve", 5, false)

			err := l.Lock(context.Background(), newFixedExecutor(t, result))
			assert.True(t, errors.Is(err, database.ErrLockNotAcquired))
			assert.Contains(t, err.Error(), "[voltaserve] within [5] seconds")
		})
	}
}
