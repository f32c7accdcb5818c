package migrations

import (
	"context"

	"github.com/kouprlabs/voltaserve-migrate/migration"
	"github.com/kouprlabs/voltaserve-migrate/schema"
)

func createFile() migration.Factory {
	return migration.New("20240718_000007", "create_file", createFileUp, createFileDown)
}

// createFileUp also creates the snapshot_file join table, files keep every
// snapshot they ever had.
func createFileUp(ctx context.Context, m schema.Manager) error {
	err := m.CreateTable(ctx, schema.CreateTable(File.Table).
		Column(primaryID(File.ID)).
		Column(schema.Col(File.Name, schema.String).NotNull()).
		Column(schema.Col(File.Type, schema.String).NotNull()).
		Column(schema.Col(File.ParentID, schema.String)).
		Column(schema.Col(File.WorkspaceID, schema.String).NotNull()).
		Column(schema.Col(File.SnapshotID, schema.String)).
		Column(createTime(File.CreateTime)).
		Column(updateTime(File.UpdateTime)).
		ForeignKey(cascadeTo("file_parent_id_fkey", File.ParentID, File.Table, File.ID)).
		ForeignKey(cascadeTo("file_workspace_id_fkey", File.WorkspaceID, Workspace.Table, Workspace.ID)))
	if err != nil {
		return err
	}

	if err := m.CreateIndex(ctx, schema.CreateIndex("file_parent_id_idx").On(File.Table, File.ParentID)); err != nil {
		return err
	}

	if err := m.CreateIndex(ctx, schema.CreateIndex("file_workspace_id_idx").On(File.Table, File.WorkspaceID)); err != nil {
		return err
	}

	err = m.CreateTable(ctx, schema.CreateTable(SnapshotFile.Table).
		Column(schema.Col(SnapshotFile.SnapshotID, schema.String).NotNull()).
		Column(schema.Col(SnapshotFile.FileID, schema.String).NotNull()).
		Column(createTime(SnapshotFile.CreateTime)).
		PrimaryKey(SnapshotFile.SnapshotID, SnapshotFile.FileID).
		ForeignKey(cascadeTo("snapshot_file_snapshot_id_fkey", SnapshotFile.SnapshotID, Snapshot.Table, Snapshot.ID)).
		ForeignKey(cascadeTo("snapshot_file_file_id_fkey", SnapshotFile.FileID, File.Table, File.ID)))
	if err != nil {
		return err
	}

	return m.CreateIndex(ctx, schema.CreateIndex("snapshot_file_file_id_idx").On(SnapshotFile.Table, SnapshotFile.FileID))
}

func createFileDown(ctx context.Context, m schema.Manager) error {
	return m.DropTable(ctx, schema.DropTable(SnapshotFile.Table, File.Table))
}
