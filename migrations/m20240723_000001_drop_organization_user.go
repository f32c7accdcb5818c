package migrations

import (
	"context"

	"github.com/kouprlabs/voltaserve-migrate/migration"
	"github.com/kouprlabs/voltaserve-migrate/schema"
)

// organization_user is left over from an older schema, databases created
// from this registry never had it. There is no down step.
func dropOrganizationUser() migration.Factory {
	return migration.New("20240723_000001", "drop_organization_user", dropOrganizationUserUp, nil)
}

func dropOrganizationUserUp(ctx context.Context, m schema.Manager) error {
	return m.DropTable(ctx, schema.DropTable(OrganizationUser.Table).IfExists().Cascade())
}
