package migrations

import (
	"context"

	"github.com/kouprlabs/voltaserve-migrate/migration"
	"github.com/kouprlabs/voltaserve-migrate/schema"
)

func createWorkspace() migration.Factory {
	return migration.New("20240718_000003", "create_workspace", createWorkspaceUp, createWorkspaceDown)
}

// root_id points at a file, which is created later, so it carries no
// foreign key.
func createWorkspaceUp(ctx context.Context, m schema.Manager) error {
	return m.CreateTable(ctx, schema.CreateTable(Workspace.Table).
		Column(primaryID(Workspace.ID)).
		Column(schema.Col(Workspace.Name, schema.String).NotNull()).
		Column(schema.Col(Workspace.OrganizationID, schema.String).NotNull()).
		Column(schema.Col(Workspace.StorageCapacity, schema.BigInteger).NotNull()).
		Column(schema.Col(Workspace.RootID, schema.String)).
		Column(schema.Col(Workspace.Bucket, schema.String).NotNull()).
		Column(createTime(Workspace.CreateTime)).
		Column(updateTime(Workspace.UpdateTime)).
		ForeignKey(cascadeTo("workspace_organization_id_fkey", Workspace.OrganizationID, Organization.Table, Organization.ID)))
}

func createWorkspaceDown(ctx context.Context, m schema.Manager) error {
	return m.DropTable(ctx, schema.DropTable(Workspace.Table))
}
