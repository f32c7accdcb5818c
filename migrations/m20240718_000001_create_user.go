package migrations

import (
	"context"

	"github.com/kouprlabs/voltaserve-migrate/migration"
	"github.com/kouprlabs/voltaserve-migrate/schema"
)

func createUser() migration.Factory {
	return migration.New("20240718_000001", "create_user", createUserUp, createUserDown)
}

func createUserUp(ctx context.Context, m schema.Manager) error {
	return m.CreateTable(ctx, schema.CreateTable(User.Table).
		Column(primaryID(User.ID)).
		Column(schema.Col(User.FullName, schema.String).NotNull()).
		Column(schema.Col(User.Username, schema.String).NotNull().Unique()).
		Column(schema.Col(User.Email, schema.String).NotNull().Unique()).
		Column(schema.Col(User.PasswordHash, schema.String).NotNull()).
		Column(schema.Col(User.RefreshTokenValue, schema.String)).
		Column(schema.Col(User.RefreshTokenExpiresAt, schema.Timestamp)).
		Column(schema.Col(User.ResetPasswordToken, schema.String)).
		Column(schema.Col(User.EmailConfirmationToken, schema.String)).
		Column(schema.Col(User.IsEmailConfirmed, schema.Boolean).NotNull().Default(false)).
		Column(schema.Col(User.EmailUpdateToken, schema.String)).
		Column(schema.Col(User.EmailUpdateValue, schema.String)).
		Column(schema.Col(User.Picture, schema.Text)).
		Column(schema.Col(User.FailedAttempts, schema.Integer).NotNull().Default(0)).
		Column(schema.Col(User.LockedUntil, schema.Timestamp)).
		Column(schema.Col(User.IsActive, schema.Boolean).NotNull().Default(true)).
		Column(schema.Col(User.IsAdmin, schema.Boolean).NotNull().Default(false)).
		Column(createTime(User.CreateTime)).
		Column(updateTime(User.UpdateTime)))
}

func createUserDown(ctx context.Context, m schema.Manager) error {
	return m.DropTable(ctx, schema.DropTable(User.Table))
}
