package migrations

import (
	"context"

	"github.com/kouprlabs/voltaserve-migrate/migration"
	"github.com/kouprlabs/voltaserve-migrate/schema"
)

func dropGroupUser() migration.Factory {
	return migration.New("20240723_000002", "drop_group_user", dropGroupUserUp, nil)
}

func dropGroupUserUp(ctx context.Context, m schema.Manager) error {
	return m.DropTable(ctx, schema.DropTable(GroupUser.Table).IfExists().Cascade())
}
