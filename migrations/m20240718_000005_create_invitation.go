package migrations

import (
	"context"

	"github.com/kouprlabs/voltaserve-migrate/migration"
	"github.com/kouprlabs/voltaserve-migrate/schema"
)

func createInvitation() migration.Factory {
	return migration.New("20240718_000005", "create_invitation", createInvitationUp, createInvitationDown)
}

func createInvitationUp(ctx context.Context, m schema.Manager) error {
	return m.CreateTable(ctx, schema.CreateTable(Invitation.Table).
		Column(primaryID(Invitation.ID)).
		Column(schema.Col(Invitation.OrganizationID, schema.String).NotNull()).
		Column(schema.Col(Invitation.OwnerID, schema.String).NotNull()).
		Column(schema.Col(Invitation.Email, schema.String).NotNull()).
		Column(schema.Col(Invitation.Status, schema.String).NotNull().Default("pending")).
		Column(createTime(Invitation.CreateTime)).
		Column(updateTime(Invitation.UpdateTime)).
		ForeignKey(cascadeTo("invitation_organization_id_fkey", Invitation.OrganizationID, Organization.Table, Organization.ID)).
		ForeignKey(cascadeTo("invitation_owner_id_fkey", Invitation.OwnerID, User.Table, User.ID)))
}

func createInvitationDown(ctx context.Context, m schema.Manager) error {
	return m.DropTable(ctx, schema.DropTable(Invitation.Table))
}
