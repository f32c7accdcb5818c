package migrations

import (
	"github.com/kouprlabs/voltaserve-migrate/migration"
	"github.com/kouprlabs/voltaserve-migrate/schema"
)

// Migrator is the Voltaserve registry. Steps are appended here in the order
// they were written and never reordered.
type Migrator struct{}

func (Migrator) ListMigrations() (migration.Migrations, error) {
	return migration.NewMigrations(
		createUser(),
		createOrganization(),
		createWorkspace(),
		createGroup(),
		createInvitation(),
		createSnapshot(),
		createFile(),
		createTask(),
		createGroupPermission(),
		createUserPermission(),
		dropOrganizationUser(),
		dropGroupUser(),
	)
}

// MustListMigrations panics on a malformed registry.
func (m Migrator) MustListMigrations() migration.Migrations {
	migrations, err := m.ListMigrations()
	if err != nil {
		panic(err)
	}
	return migrations
}

func primaryID(name string) *schema.Column {
	return schema.Col(name, schema.String).PrimaryKey()
}

func createTime(name string) *schema.Column {
	return schema.Col(name, schema.Timestamp).NotNull().DefaultNow()
}

func updateTime(name string) *schema.Column {
	return schema.Col(name, schema.Timestamp)
}

func cascadeTo(name, column, table, refColumn string) *schema.ForeignKey {
	return schema.NewForeignKey(name).
		From(column).
		To(table, refColumn).
		OnDelete(schema.Cascade).
		OnUpdate(schema.Cascade)
}
