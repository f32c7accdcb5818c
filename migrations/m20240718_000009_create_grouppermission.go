package migrations

import (
	"context"

	"github.com/kouprlabs/voltaserve-migrate/migration"
	"github.com/kouprlabs/voltaserve-migrate/schema"
)

func createGroupPermission() migration.Factory {
	return migration.New("20240718_000009", "create_grouppermission", createGroupPermissionUp, createGroupPermissionDown)
}

func createGroupPermissionUp(ctx context.Context, m schema.Manager) error {
	return m.CreateTable(ctx, schema.CreateTable(GroupPermission.Table).
		Column(primaryID(GroupPermission.ID)).
		Column(schema.Col(GroupPermission.GroupID, schema.String).NotNull()).
		Column(schema.Col(GroupPermission.ResourceID, schema.String).NotNull()).
		Column(schema.Col(GroupPermission.Permission, schema.String).NotNull()).
		Column(createTime(GroupPermission.CreateTime)).
		Unique("grouppermission_group_id_resource_id_key", GroupPermission.GroupID, GroupPermission.ResourceID).
		ForeignKey(cascadeTo("grouppermission_group_id_fkey", GroupPermission.GroupID, Group.Table, Group.ID)))
}

func createGroupPermissionDown(ctx context.Context, m schema.Manager) error {
	return m.DropTable(ctx, schema.DropTable(GroupPermission.Table))
}
