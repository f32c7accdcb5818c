package migrate

import (
	"bytes"
	"context"
	"log"
	"path/filepath"
	"testing"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/mattn/go-sqlite3"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kouprlabs/voltaserve-migrate/migration"
	"github.com/kouprlabs/voltaserve-migrate/schema"
)

func createTable(name string) migration.Func {
	return func(ctx context.Context, m schema.Manager) error {
		return m.CreateTable(ctx, schema.CreateTable(name).
			Column(schema.Col("id", schema.String).PrimaryKey()).
			Column(schema.Col("name", schema.String).NotNull()))
	}
}

func dropTable(name string) migration.Func {
	return func(ctx context.Context, m schema.Manager) error {
		return m.DropTable(ctx, schema.DropTable(name))
	}
}

func openSqlite(t *testing.T) *sqlx.DB {
	t.Helper()

	db, err := sqlx.Open("sqlite3", filepath.Join(t.TempDir(), "migrator.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	return db
}

func newTestMigrator(t *testing.T, db *sqlx.DB, opts ...OptionFunc) *Migrator {
	t.Helper()

	opts = append([]OptionFunc{
		UseSqlite(db, WithSqliteMaxConnectionAttempts(1)),
		UseMigrations(
			migration.New("20240718_000001", "create_foo", createTable("foo"), dropTable("foo")),
			migration.New("20240718_000002", "create_bar", createTable("bar"), dropTable("bar")),
			migration.New("20240718_000003", "create_baz", createTable("baz"), dropTable("baz")),
		),
	}, opts...)

	m, closer, err := NewMigrator(opts...)
	require.NoError(t, err)
	t.Cleanup(func() { _ = closer() })

	return m
}

func TestNewMigrator(t *testing.T) {
	t.Run("it requires a database", func(t *testing.T) {
		_, _, err := NewMigrator()
		assert.True(t, errors.Is(err, ErrGatewayNotInitialized))
	})

	t.Run("it surfaces option errors", func(t *testing.T) {
		boom := errors.New("bad option")
		_, _, err := NewMigrator(UseSqlite(openSqlite(t)), func(*Migrator) error { return boom })
		assert.True(t, errors.Is(err, boom))
	})
}

func TestMigrator_Migrate(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	t.Run("it migrates everything and then has nothing to do", func(t *testing.T) {
		var buf bytes.Buffer
		m := newTestMigrator(t, openSqlite(t), UseLogger(log.New(&buf, "", 0), false, false))

		migrated, err := m.Migrate(ctx)
		require.NoError(t, err)
		assert.Equal(t, []string{
			"20240718_000001_create_foo",
			"20240718_000002_create_bar",
			"20240718_000003_create_baz",
		}, migrated.Keys())
		assert.Contains(t, buf.String(), "migrate: migrated: version: 20240718_000003 batch: 1 name: Create baz")

		migrated, err = m.Migrate(ctx)
		assert.True(t, errors.Is(err, ErrNothingToMigrate))
		assert.Empty(t, migrated)
		assert.NotContains(t, buf.String(), "migrate error")
	})

	t.Run("it migrates step by step", func(t *testing.T) {
		m := newTestMigrator(t, openSqlite(t))

		migrated, err := m.Migrate(ctx, WithSteps(1))
		require.NoError(t, err)
		assert.Equal(t, []string{"20240718_000001_create_foo"}, migrated.Keys())

		migrated, err = m.Migrate(ctx, WithSteps(1))
		require.NoError(t, err)
		assert.Equal(t, []string{"20240718_000002_create_bar"}, migrated.Keys())
	})

	t.Run("it migrates only requested versions", func(t *testing.T) {
		m := newTestMigrator(t, openSqlite(t))

		migrated, err := m.Migrate(ctx, WithVersions("20240718_000001", "20240718_000002"))
		require.NoError(t, err)
		assert.Equal(t, []string{"20240718_000001_create_foo", "20240718_000002_create_bar"}, migrated.Keys())

		migrated, err = m.Migrate(ctx, WithVersions("20240718_000003"))
		require.NoError(t, err)
		assert.Equal(t, []string{"20240718_000003_create_baz"}, migrated.Keys())

		_, err = m.Migrate(ctx, WithVersions("20990101_000001"))
		assert.Error(t, err)
	})

	t.Run("it refuses to apply a version ahead of older pending ones", func(t *testing.T) {
		db := openSqlite(t)
		m := newTestMigrator(t, db)

		migrated, err := m.Migrate(ctx, WithVersions("20240718_000003"))
		assert.True(t, errors.Is(err, ErrPendingPredecessor))
		assert.Empty(t, migrated)

		_, err = m.Plan(ctx, WithVersions("20240718_000003"))
		assert.True(t, errors.Is(err, ErrPendingPredecessor))

		statuses, err := m.Status(ctx)
		require.NoError(t, err)
		for _, s := range statuses {
			assert.False(t, s.Applied, s.Key)
		}

		migrated, err = m.Migrate(ctx)
		require.NoError(t, err)
		assert.Equal(t, []string{
			"20240718_000001_create_foo",
			"20240718_000002_create_bar",
			"20240718_000003_create_baz",
		}, migrated.Keys())
	})
}

func TestMigrator_Rollback(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	t.Run("it rolls back the requested number of steps", func(t *testing.T) {
		m := newTestMigrator(t, openSqlite(t))

		_, err := m.Migrate(ctx)
		require.NoError(t, err)

		rolledBack, err := m.Rollback(ctx, WithSteps(2))
		require.NoError(t, err)
		assert.Equal(t, []string{"20240718_000003_create_baz", "20240718_000002_create_bar"}, rolledBack.Keys())
	})

	t.Run("reset rolls back everything", func(t *testing.T) {
		m := newTestMigrator(t, openSqlite(t))

		_, err := m.Migrate(ctx)
		require.NoError(t, err)

		rolledBack, err := m.Reset(ctx)
		require.NoError(t, err)
		assert.Len(t, rolledBack, 3)

		statuses, err := m.Status(ctx)
		require.NoError(t, err)
		for _, s := range statuses {
			assert.False(t, s.Applied, s.Key)
		}
	})

	t.Run("refresh reapplies the last step in a new batch", func(t *testing.T) {
		m := newTestMigrator(t, openSqlite(t))

		_, err := m.Migrate(ctx)
		require.NoError(t, err)

		rolledBack, migrated, err := m.Refresh(ctx, WithSteps(1))
		require.NoError(t, err)
		assert.Equal(t, []string{"20240718_000003_create_baz"}, rolledBack.Keys())
		assert.Equal(t, []string{"20240718_000003_create_baz"}, migrated.Keys())

		statuses, err := m.Status(ctx)
		require.NoError(t, err)
		require.Len(t, statuses, 3)
		assert.Equal(t, uint(1), statuses[1].Batch)
		assert.Equal(t, uint(2), statuses[2].Batch)
	})
}

func TestMigrator_StatusFreshAndPlan(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	t.Run("status reports pending, applied and unknown steps", func(t *testing.T) {
		db := openSqlite(t)
		m := newTestMigrator(t, db)

		_, err := m.Migrate(ctx, WithSteps(2))
		require.NoError(t, err)

		_, err = db.Exec(
			"INSERT INTO migrations (version, name, batch, migrated_at) VALUES (?, ?, ?, ?)",
			"20240101_000001", "20240101_000001_create_organization_user", 1, time.Now(),
		)
		require.NoError(t, err)

		statuses, err := m.Status(ctx)
		require.NoError(t, err)
		require.Len(t, statuses, 4)

		assert.True(t, statuses[0].Applied)
		assert.Equal(t, "Create foo", statuses[0].Name)
		assert.True(t, statuses[1].Applied)
		assert.False(t, statuses[2].Applied)
		assert.True(t, statuses[2].Registered)

		assert.False(t, statuses[3].Registered)
		assert.Equal(t, "20240101_000001_create_organization_user", statuses[3].Key)

		_, err = m.Migrate(ctx)
		assert.Error(t, err)
	})

	t.Run("fresh rebuilds the database from scratch", func(t *testing.T) {
		db := openSqlite(t)
		m := newTestMigrator(t, db)

		_, err := m.Migrate(ctx, WithSteps(1))
		require.NoError(t, err)

		_, err = db.Exec("INSERT INTO foo (id, name) VALUES ('1', 'leftover')")
		require.NoError(t, err)

		migrated, err := m.Fresh(ctx)
		require.NoError(t, err)
		assert.Len(t, migrated, 3)

		var count int
		require.NoError(t, db.Get(&count, "SELECT COUNT(*) FROM foo"))
		assert.Equal(t, 0, count)
	})

	t.Run("plan previews pending statements", func(t *testing.T) {
		m := newTestMigrator(t, openSqlite(t))

		_, err := m.Migrate(ctx, WithSteps(2))
		require.NoError(t, err)

		previews, err := m.Plan(ctx)
		require.NoError(t, err)
		require.Len(t, previews, 1)
		assert.Equal(t, "20240718_000003_create_baz", previews[0].Key)
		assert.Equal(t, []string{"CREATE TABLE \"baz\" (\n\t\"id\" TEXT NOT NULL PRIMARY KEY,\n\t\"name\" TEXT NOT NULL\n)"}, previews[0].Statements)

		previews, err = m.PlanRollback(ctx, WithSteps(1))
		require.NoError(t, err)
		require.Len(t, previews, 1)
		assert.Equal(t, []string{`DROP TABLE "bar"`}, previews[0].Statements)
	})
}
