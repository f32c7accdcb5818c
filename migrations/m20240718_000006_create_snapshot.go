package migrations

import (
	"context"

	"github.com/kouprlabs/voltaserve-migrate/migration"
	"github.com/kouprlabs/voltaserve-migrate/schema"
)

func createSnapshot() migration.Factory {
	return migration.New("20240718_000006", "create_snapshot", createSnapshotUp, createSnapshotDown)
}

func createSnapshotUp(ctx context.Context, m schema.Manager) error {
	return m.CreateTable(ctx, schema.CreateTable(Snapshot.Table).
		Column(primaryID(Snapshot.ID)).
		Column(schema.Col(Snapshot.Version, schema.BigInteger).NotNull()).
		Column(schema.Col(Snapshot.Original, schema.JSON)).
		Column(schema.Col(Snapshot.Preview, schema.JSON)).
		Column(schema.Col(Snapshot.Text, schema.JSON)).
		Column(schema.Col(Snapshot.OCR, schema.JSON)).
		Column(schema.Col(Snapshot.Entities, schema.JSON)).
		Column(schema.Col(Snapshot.Mosaic, schema.JSON)).
		Column(schema.Col(Snapshot.Thumbnail, schema.JSON)).
		Column(schema.Col(Snapshot.Language, schema.String)).
		Column(schema.Col(Snapshot.Status, schema.String).NotNull().Default("new")).
		Column(schema.Col(Snapshot.TaskID, schema.String)).
		Column(createTime(Snapshot.CreateTime)).
		Column(updateTime(Snapshot.UpdateTime)))
}

func createSnapshotDown(ctx context.Context, m schema.Manager) error {
	return m.DropTable(ctx, schema.DropTable(Snapshot.Table))
}
