package migrations

import (
	"context"

	"github.com/kouprlabs/voltaserve-migrate/migration"
	"github.com/kouprlabs/voltaserve-migrate/schema"
)

func createOrganization() migration.Factory {
	return migration.New("20240718_000002", "create_organization", createOrganizationUp, createOrganizationDown)
}

func createOrganizationUp(ctx context.Context, m schema.Manager) error {
	return m.CreateTable(ctx, schema.CreateTable(Organization.Table).
		Column(primaryID(Organization.ID)).
		Column(schema.Col(Organization.Name, schema.String).NotNull()).
		Column(createTime(Organization.CreateTime)).
		Column(updateTime(Organization.UpdateTime)))
}

func createOrganizationDown(ctx context.Context, m schema.Manager) error {
	return m.DropTable(ctx, schema.DropTable(Organization.Table))
}
