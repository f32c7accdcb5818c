package schema_test

import (
	"bytes"
	"context"
	"log"
	"path/filepath"
	"testing"

	"github.com/jmoiron/sqlx"
	_ "github.com/mattn/go-sqlite3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kouprlabs/voltaserve-migrate/internal/database/sqlgateway/sqlite"
	"github.com/kouprlabs/voltaserve-migrate/internal/logger"
	"github.com/kouprlabs/voltaserve-migrate/schema"
)

func newManager(t *testing.T) (*schema.SQLManager, *bytes.Buffer) {
	t.Helper()

	db, err := sqlx.Open("sqlite3", filepath.Join(t.TempDir(), "schema.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	var buf bytes.Buffer
	lg := logger.NewBWLogger(log.New(&buf, "", 0), true, true)

	return schema.NewManager(db, sqlite.NewDialect(""), lg), &buf
}

func TestSQLManager(t *testing.T) {
	ctx := context.Background()

	t.Run("it will create, inspect and drop tables", func(t *testing.T) {
		m, buf := newManager(t)

		require.NoError(t, m.CreateTable(ctx, schema.CreateTable("workspace").
			Column(schema.Col("id", schema.String).PrimaryKey()).
			Column(schema.Col("name", schema.String).NotNull()).
			Column(schema.Col("storage_capacity", schema.BigInteger).NotNull())))

		exists, err := m.HasTable(ctx, "workspace")
		require.NoError(t, err)
		assert.True(t, exists)

		columns, err := m.Columns(ctx, "workspace")
		require.NoError(t, err)
		assert.Equal(t, []schema.ColumnInfo{
			{Name: "id", Type: "TEXT"},
			{Name: "name", Type: "TEXT"},
			{Name: "storage_capacity", Type: "BIGINT"},
		}, columns)

		assert.Contains(t, buf.String(), `CREATE TABLE "workspace"`)

		require.NoError(t, m.DropTable(ctx, schema.DropTable("workspace")))

		exists, err = m.HasTable(ctx, "workspace")
		require.NoError(t, err)
		assert.False(t, exists)
	})

	t.Run("it will emulate guarded column changes", func(t *testing.T) {
		m, buf := newManager(t)

		require.NoError(t, m.CreateTable(ctx, schema.CreateTable("task").
			Column(schema.Col("id", schema.String).PrimaryKey())))

		add := schema.AlterTable("task").AddColumnIfNotExists(schema.Col("payload", schema.JSON))
		require.NoError(t, m.AlterTable(ctx, add))
		require.NoError(t, m.AlterTable(ctx, add))

		has, err := m.HasColumn(ctx, "task", "payload")
		require.NoError(t, err)
		assert.True(t, has)
		assert.Contains(t, buf.String(), "skipping add of column [payload] on table [task]")

		require.NoError(t, m.AlterTable(ctx, schema.AlterTable("task").DropColumnIfExists("missing")))
		assert.Contains(t, buf.String(), "skipping drop of column [missing] on table [task]")
	})

	t.Run("it will create and drop indexes", func(t *testing.T) {
		m, _ := newManager(t)

		require.NoError(t, m.CreateTable(ctx, schema.CreateTable("file").
			Column(schema.Col("id", schema.String).PrimaryKey()).
			Column(schema.Col("parent_id", schema.String))))

		require.NoError(t, m.CreateIndex(ctx, schema.CreateIndex("file_parent_id_idx").On("file", "parent_id")))
		require.NoError(t, m.CreateIndex(ctx, schema.CreateIndex("file_parent_id_idx").On("file", "parent_id").IfNotExists()))
		require.NoError(t, m.DropIndex(ctx, schema.DropIndex("file_parent_id_idx")))
		require.NoError(t, m.DropIndex(ctx, schema.DropIndex("file_parent_id_idx").IfExists()))
	})

	t.Run("it will report failing statements", func(t *testing.T) {
		m, _ := newManager(t)

		err := m.DropTable(ctx, schema.DropTable("missing"))
		require.Error(t, err)
		assert.Contains(t, err.Error(), `could not execute [DROP TABLE "missing"]`)
	})

	t.Run("a recorder will inspect through the manager", func(t *testing.T) {
		m, _ := newManager(t)

		require.NoError(t, m.CreateTable(ctx, schema.CreateTable("user").
			Column(schema.Col("id", schema.String).PrimaryKey())))

		r := schema.NewRecorder(sqlite.NewDialect(""), m)
		require.NoError(t, r.AlterTable(ctx, schema.AlterTable("user").AddColumn(schema.Col("picture", schema.Text))))

		has, err := r.HasColumn(ctx, "user", "picture")
		require.NoError(t, err)
		assert.False(t, has, "recorded statements are never executed")

		assert.Equal(t, []string{`ALTER TABLE "user" ADD COLUMN "picture" TEXT`}, r.Statements())
	})

	t.Run("a recorder will leave out guarded alters the manager would skip", func(t *testing.T) {
		m, _ := newManager(t)

		require.NoError(t, m.CreateTable(ctx, schema.CreateTable("task").
			Column(schema.Col("id", schema.String).PrimaryKey()).
			Column(schema.Col("payload", schema.Text))))

		alter := schema.AlterTable("task").
			AddColumnIfNotExists(schema.Col("payload", schema.Text)).
			AddColumnIfNotExists(schema.Col("error", schema.Text)).
			DropColumnIfExists("percentage")

		r := schema.NewRecorder(sqlite.NewDialect(""), m)
		require.NoError(t, r.AlterTable(ctx, alter))
		assert.Equal(t, []string{`ALTER TABLE "task" ADD COLUMN "error" TEXT`}, r.Statements())

		require.NoError(t, m.AlterTable(ctx, alter))
		has, err := m.HasColumn(ctx, "task", "error")
		require.NoError(t, err)
		assert.True(t, has)

		r.Reset()
		require.NoError(t, r.AlterTable(ctx, alter))
		assert.Empty(t, r.Statements())
	})
}
