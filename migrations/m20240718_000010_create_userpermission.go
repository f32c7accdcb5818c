package migrations

import (
	"context"

	"github.com/kouprlabs/voltaserve-migrate/migration"
	"github.com/kouprlabs/voltaserve-migrate/schema"
)

func createUserPermission() migration.Factory {
	return migration.New("20240718_000010", "create_userpermission", createUserPermissionUp, createUserPermissionDown)
}

func createUserPermissionUp(ctx context.Context, m schema.Manager) error {
	return m.CreateTable(ctx, schema.CreateTable(UserPermission.Table).
		Column(primaryID(UserPermission.ID)).
		Column(schema.Col(UserPermission.UserID, schema.String).NotNull()).
		Column(schema.Col(UserPermission.ResourceID, schema.String).NotNull()).
		Column(schema.Col(UserPermission.Permission, schema.String).NotNull()).
		Column(createTime(UserPermission.CreateTime)).
		Unique("userpermission_user_id_resource_id_key", UserPermission.UserID, UserPermission.ResourceID).
		ForeignKey(cascadeTo("userpermission_user_id_fkey", UserPermission.UserID, User.Table, User.ID)))
}

func createUserPermissionDown(ctx context.Context, m schema.Manager) error {
	return m.DropTable(ctx, schema.DropTable(UserPermission.Table))
}
