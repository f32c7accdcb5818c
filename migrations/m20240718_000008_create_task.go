package migrations

import (
	"context"

	"github.com/kouprlabs/voltaserve-migrate/migration"
	"github.com/kouprlabs/voltaserve-migrate/schema"
)

func createTask() migration.Factory {
	return migration.New("20240718_000008", "create_task", createTaskUp, createTaskDown)
}

func createTaskUp(ctx context.Context, m schema.Manager) error {
	return m.CreateTable(ctx, schema.CreateTable(Task.Table).
		Column(primaryID(Task.ID)).
		Column(schema.Col(Task.Name, schema.Text).NotNull()).
		Column(schema.Col(Task.Error, schema.Text)).
		Column(schema.Col(Task.Percentage, schema.Integer)).
		Column(schema.Col(Task.IsComplete, schema.Boolean).NotNull().Default(false)).
		Column(schema.Col(Task.IsIndeterminate, schema.Boolean).NotNull().Default(false)).
		Column(schema.Col(Task.UserID, schema.String).NotNull()).
		Column(schema.Col(Task.Status, schema.String).NotNull().Default("waiting")).
		Column(schema.Col(Task.Payload, schema.JSON)).
		Column(createTime(Task.CreateTime)).
		Column(updateTime(Task.UpdateTime)).
		ForeignKey(cascadeTo("task_user_id_fkey", Task.UserID, User.Table, User.ID)))
}

func createTaskDown(ctx context.Context, m schema.Manager) error {
	return m.DropTable(ctx, schema.DropTable(Task.Table))
}
