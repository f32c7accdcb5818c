package migrations

import (
	"context"

	"github.com/kouprlabs/voltaserve-migrate/migration"
	"github.com/kouprlabs/voltaserve-migrate/schema"
)

func createGroup() migration.Factory {
	return migration.New("20240718_000004", "create_group", createGroupUp, createGroupDown)
}

func createGroupUp(ctx context.Context, m schema.Manager) error {
	return m.CreateTable(ctx, schema.CreateTable(Group.Table).
		Column(primaryID(Group.ID)).
		Column(schema.Col(Group.Name, schema.String).NotNull()).
		Column(schema.Col(Group.OrganizationID, schema.String).NotNull()).
		Column(createTime(Group.CreateTime)).
		Column(updateTime(Group.UpdateTime)).
		ForeignKey(cascadeTo("group_organization_id_fkey", Group.OrganizationID, Organization.Table, Organization.ID)))
}

func createGroupDown(ctx context.Context, m schema.Manager) error {
	return m.DropTable(ctx, schema.DropTable(Group.Table))
}
