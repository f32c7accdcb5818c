package migrations_test

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/mattn/go-sqlite3"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	migrate "github.com/kouprlabs/voltaserve-migrate"
	"github.com/kouprlabs/voltaserve-migrate/internal/database/sqlgateway/sqlite"
	"github.com/kouprlabs/voltaserve-migrate/internal/logger"
	"github.com/kouprlabs/voltaserve-migrate/migration"
	"github.com/kouprlabs/voltaserve-migrate/migrations"
	"github.com/kouprlabs/voltaserve-migrate/schema"
)

var createdTables = []string{
	"file",
	"group",
	"grouppermission",
	"invitation",
	"organization",
	"snapshot",
	"snapshot_file",
	"task",
	"user",
	"userpermission",
	"workspace",
}

func openSqlite(t *testing.T) *sqlx.DB {
	t.Helper()

	db, err := sqlx.Open("sqlite3", filepath.Join(t.TempDir(), "voltaserve.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	return db
}

func newMigrator(t *testing.T, db *sqlx.DB) *migrate.Migrator {
	t.Helper()

	m, closer, err := migrate.NewMigrator(migrate.UseSqlite(db, migrate.WithSqliteMaxConnectionAttempts(1)))
	require.NoError(t, err)
	t.Cleanup(func() { _ = closer() })

	return m
}

func tables(t *testing.T, db *sqlx.DB) []string {
	t.Helper()

	var result []string
	require.NoError(t, db.Select(&result, "SELECT name FROM sqlite_master WHERE type = 'table' AND name NOT LIKE 'sqlite_%' ORDER BY name"))

	return result
}

func columns(t *testing.T, db *sqlx.DB, table string) []string {
	t.Helper()

	var result []string
	require.NoError(t, db.Select(&result, "SELECT name FROM pragma_table_info(?) ORDER BY cid", table))

	return result
}

func TestRegistry(t *testing.T) {
	all := migrations.Migrator{}.MustListMigrations()

	t.Run("it will register twelve steps in increasing version order", func(t *testing.T) {
		assert.Equal(t, []string{
			"20240718_000001_create_user",
			"20240718_000002_create_organization",
			"20240718_000003_create_workspace",
			"20240718_000004_create_group",
			"20240718_000005_create_invitation",
			"20240718_000006_create_snapshot",
			"20240718_000007_create_file",
			"20240718_000008_create_task",
			"20240718_000009_create_grouppermission",
			"20240718_000010_create_userpermission",
			"20240723_000001_drop_organization_user",
			"20240723_000002_drop_group_user",
		}, all.Keys())

		for i := 1; i < len(all); i++ {
			assert.Less(t, string(all[i-1].Version), string(all[i].Version))
		}
	})

	t.Run("it will make only the legacy drops irreversible", func(t *testing.T) {
		for i, m := range all {
			assert.Equal(t, i < 10, m.Reversible(), m.Key)
		}
	})

	t.Run("it will return an equal registry every time", func(t *testing.T) {
		again, err := migrations.Migrator{}.ListMigrations()
		require.NoError(t, err)
		assert.Equal(t, all.Keys(), again.Keys())
	})
}

func TestMigrateVoltaserveSchema(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	t.Run("it will create the whole schema and then have nothing to do", func(t *testing.T) {
		db := openSqlite(t)
		m := newMigrator(t, db)

		migrated, err := m.Migrate(ctx)
		require.NoError(t, err)
		assert.Len(t, migrated, 12)

		got := tables(t, db)
		assert.ElementsMatch(t, append([]string{"migrations"}, createdTables...), got)

		assert.Equal(t, []string{
			"id", "full_name", "username", "email", "password_hash",
			"refresh_token_value", "refresh_token_expires_at", "reset_password_token",
			"email_confirmation_token", "is_email_confirmed", "email_update_token",
			"email_update_value", "picture", "failed_attempts", "locked_until",
			"is_active", "is_admin", "create_time", "update_time",
		}, columns(t, db, "user"))

		assert.Equal(t, []string{"snapshot_id", "file_id", "create_time"}, columns(t, db, "snapshot_file"))
		assert.Equal(t, []string{"id", "group_id", "resource_id", "permission", "create_time"}, columns(t, db, "grouppermission"))

		migrated, err = m.Migrate(ctx)
		assert.True(t, errors.Is(err, migrate.ErrNothingToMigrate))
		assert.Empty(t, migrated)
	})

	t.Run("it will fill column defaults", func(t *testing.T) {
		db := openSqlite(t)
		m := newMigrator(t, db)

		_, err := m.Migrate(ctx)
		require.NoError(t, err)

		_, err = db.Exec(`INSERT INTO "user" (id, full_name, username, email, password_hash) VALUES ('u1', 'Jane', 'jane', 'jane@example.com', 'x')`)
		require.NoError(t, err)

		var row struct {
			IsActive       bool `db:"is_active"`
			IsAdmin        bool `db:"is_admin"`
			FailedAttempts int  `db:"failed_attempts"`
		}
		require.NoError(t, db.Get(&row, `SELECT is_active, is_admin, failed_attempts FROM "user" WHERE id = 'u1'`))
		assert.True(t, row.IsActive)
		assert.False(t, row.IsAdmin)
		assert.Equal(t, 0, row.FailedAttempts)

		_, err = db.Exec(`INSERT INTO "user" (id, full_name, username, email, password_hash) VALUES ('u2', 'Jane', 'jane', 'other@example.com', 'x')`)
		assert.Error(t, err, "username must be unique")

		_, err = db.Exec(`INSERT INTO task (id, name, user_id) VALUES ('t1', 'upload', 'u1')`)
		require.NoError(t, err)

		var status string
		require.NoError(t, db.Get(&status, "SELECT status FROM task WHERE id = 't1'"))
		assert.Equal(t, "waiting", status)
	})

	t.Run("it will record ten steps across two batches of five", func(t *testing.T) {
		db := openSqlite(t)
		m := newMigrator(t, db)

		_, err := m.Migrate(ctx, migrate.WithSteps(5))
		require.NoError(t, err)

		_, err = m.Migrate(ctx, migrate.WithSteps(5))
		require.NoError(t, err)

		statuses, err := m.Status(ctx)
		require.NoError(t, err)
		require.Len(t, statuses, 12)

		for i, s := range statuses {
			switch {
			case i < 5:
				assert.Equal(t, uint(1), s.Batch, s.Key)
			case i < 10:
				assert.Equal(t, uint(2), s.Batch, s.Key)
			default:
				assert.False(t, s.Applied, s.Key)
			}
		}

		var count int
		require.NoError(t, db.Get(&count, "SELECT COUNT(*) FROM migrations"))
		assert.Equal(t, 10, count)
	})

	t.Run("it will drop a legacy organization_user table", func(t *testing.T) {
		db := openSqlite(t)
		_, err := db.Exec("CREATE TABLE organization_user (organization_id TEXT, user_id TEXT)")
		require.NoError(t, err)
		_, err = db.Exec("CREATE TABLE group_user (group_id TEXT, user_id TEXT)")
		require.NoError(t, err)

		m := newMigrator(t, db)
		_, err = m.Migrate(ctx)
		require.NoError(t, err)

		got := tables(t, db)
		assert.NotContains(t, got, "organization_user")
		assert.NotContains(t, got, "group_user")
	})
}

func TestRollbackVoltaserveSchema(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	t.Run("it will reset the first ten steps down to the applied-log", func(t *testing.T) {
		db := openSqlite(t)
		m := newMigrator(t, db)

		_, err := m.Migrate(ctx, migrate.WithSteps(10))
		require.NoError(t, err)

		rolledBack, err := m.Reset(ctx)
		require.NoError(t, err)
		require.Len(t, rolledBack, 10)
		assert.Equal(t, "20240718_000010_create_userpermission", rolledBack[0].Key)
		assert.Equal(t, "20240718_000001_create_user", rolledBack[9].Key)

		assert.Equal(t, []string{"migrations"}, tables(t, db))
	})

	t.Run("it will refuse to roll back past the legacy drops", func(t *testing.T) {
		db := openSqlite(t)
		m := newMigrator(t, db)

		_, err := m.Migrate(ctx)
		require.NoError(t, err)

		rolledBack, err := m.Reset(ctx)
		assert.True(t, errors.Is(err, migration.ErrIrreversible))
		assert.Empty(t, rolledBack)

		assert.ElementsMatch(t, append([]string{"migrations"}, createdTables...), tables(t, db))
	})
}

func TestStepsRoundTrip(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	db := openSqlite(t)
	sm := schema.NewManager(db, sqlite.NewDialect(""), logger.NullLogger{})
	all := migrations.Migrator{}.MustListMigrations()

	for _, mg := range all[:10] {
		mg := mg
		t.Run("it will undo "+mg.Key, func(t *testing.T) {
			before := tables(t, db)

			require.NoError(t, mg.Migrate(ctx, sm))
			assert.Greater(t, len(tables(t, db)), len(before))

			require.NoError(t, mg.Rollback(ctx, sm))
			assert.Equal(t, before, tables(t, db))

			// leave the step applied so later steps find their references
			require.NoError(t, mg.Migrate(ctx, sm))
		})
	}
}
