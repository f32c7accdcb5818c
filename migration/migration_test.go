package migration

import (
	"context"
	"sort"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kouprlabs/voltaserve-migrate/schema"
)

func noop(context.Context, schema.Manager) error {
	return nil
}

func Test_MigrationCanBeCreated(t *testing.T) {
	t.Run("it builds key and human name from version and name", func(t *testing.T) {
		m, err := New("20240718_000001", "create_user", noop, noop)()
		require.NoError(t, err)

		assert.Equal(t, Version("20240718_000001"), m.Version)
		assert.Equal(t, "20240718_000001_create_user", m.Key)
		assert.Equal(t, "Create user", m.Name)
		assert.True(t, m.Reversible())
	})

	t.Run("it accepts a missing down function", func(t *testing.T) {
		m, err := New("20240723_000002", "drop_group_user", noop, nil)()
		require.NoError(t, err)

		assert.False(t, m.Reversible())

		err = m.Rollback(context.Background(), nil)
		assert.True(t, errors.Is(err, ErrIrreversible))
	})

	t.Run("it rejects a missing up function", func(t *testing.T) {
		_, err := New("20240718_000001", "create_user", nil, noop)()
		assert.True(t, errors.Is(err, ErrMigrationIsMalformed))
	})

	t.Run("it rejects names that are not snake case", func(t *testing.T) {
		_, err := New("20240718_000001", "Create User", noop, noop)()
		assert.True(t, errors.Is(err, ErrMigrationIsMalformed))
	})
}

func Test_VersionFromString(t *testing.T) {
	t.Parallel()

	valid := []string{"20240718_000001", "20240723_000002", "19991231_999999"}
	invalid := []string{"", "2024071_000001", "20240718000001", "20240718_00001", "m20240718_000001", "20240718_000001_create"}

	for _, in := range valid {
		in := in
		t.Run("valid-"+in, func(t *testing.T) {
			v, err := VersionFromString(in)
			assert.NoError(t, err)
			assert.Equal(t, in, v.String())
		})
	}

	for _, in := range invalid {
		in := in
		t.Run("invalid-"+in, func(t *testing.T) {
			v, err := VersionFromString(in)
			assert.True(t, errors.Is(err, ErrInvalidVersion))
			assert.Equal(t, Version(""), v)
		})
	}
}

func Test_NewMigrations(t *testing.T) {
	t.Run("it keeps registration order", func(t *testing.T) {
		migrations, err := NewMigrations(
			New("20240718_000001", "create_user", noop, noop),
			New("20240718_000002", "create_organization", noop, noop),
			New("20240723_000001", "drop_organization_user", noop, nil),
		)
		require.NoError(t, err)

		assert.Equal(t, []string{
			"20240718_000001_create_user",
			"20240718_000002_create_organization",
			"20240723_000001_drop_organization_user",
		}, migrations.Keys())
		assert.True(t, sort.IsSorted(migrations))
	})

	t.Run("it fails on duplicate versions", func(t *testing.T) {
		_, err := NewMigrations(
			New("20240718_000001", "create_user", noop, noop),
			New("20240718_000001", "create_organization", noop, noop),
		)
		assert.True(t, errors.Is(err, ErrDuplicateVersion))
	})

	t.Run("it fails on a repeated version that is not adjacent", func(t *testing.T) {
		_, err := NewMigrations(
			New("20240718_000001", "create_user", noop, noop),
			New("20240718_000002", "create_organization", noop, noop),
			New("20240718_000001", "create_workspace", noop, noop),
		)
		assert.True(t, errors.Is(err, ErrDuplicateVersion))
		assert.False(t, errors.Is(err, ErrOutOfOrder))
	})

	t.Run("it fails on duplicate keys", func(t *testing.T) {
		_, err := NewMigrations(
			New("20240718_000001", "create_user", noop, noop),
			New("20240718_000001", "create_user", noop, noop),
		)
		assert.True(t, errors.Is(err, ErrDuplicateKey))
	})

	t.Run("it fails when a version is registered out of order", func(t *testing.T) {
		_, err := NewMigrations(
			New("20240718_000002", "create_organization", noop, noop),
			New("20240718_000001", "create_user", noop, noop),
		)
		assert.True(t, errors.Is(err, ErrOutOfOrder))
	})

	t.Run("it surfaces factory errors", func(t *testing.T) {
		_, err := NewMigrations(New("bogus", "create_user", noop, noop))
		assert.True(t, errors.Is(err, ErrInvalidVersion))
	})

	t.Run("it finds migrations by version", func(t *testing.T) {
		migrations, err := NewMigrations(
			New("20240718_000001", "create_user", noop, noop),
			New("20240718_000002", "create_organization", noop, noop),
		)
		require.NoError(t, err)

		assert.Equal(t, "Create organization", migrations.Find("20240718_000002").Name)
		assert.Nil(t, migrations.Find("20240718_000003"))
		assert.Equal(t, []Version{"20240718_000001", "20240718_000002"}, migrations.Versions())
	})

	t.Run("it validates registries assembled by hand", func(t *testing.T) {
		first, err := New("20240718_000001", "create_user", noop, noop)()
		require.NoError(t, err)
		second, err := New("20240718_000002", "create_organization", noop, noop)()
		require.NoError(t, err)

		assert.NoError(t, Validate(Migrations{first, second}))
		assert.True(t, errors.Is(Validate(Migrations{second, first}), ErrOutOfOrder))
		assert.True(t, errors.Is(Validate(Migrations{first, nil}), ErrMigrationIsMalformed))
	})
}
