package migrations

// Table and column identifiers shared by the steps.

var User = struct {
	Table                  string
	ID                     string
	FullName               string
	Username               string
	Email                  string
	PasswordHash           string
	RefreshTokenValue      string
	RefreshTokenExpiresAt  string
	ResetPasswordToken     string
	EmailConfirmationToken string
	IsEmailConfirmed       string
	EmailUpdateToken       string
	EmailUpdateValue       string
	Picture                string
	FailedAttempts         string
	LockedUntil            string
	IsActive               string
	IsAdmin                string
	CreateTime             string
	UpdateTime             string
}{
	Table:                  "user",
	ID:                     "id",
	FullName:               "full_name",
	Username:               "username",
	Email:                  "email",
	PasswordHash:           "password_hash",
	RefreshTokenValue:      "refresh_token_value",
	RefreshTokenExpiresAt:  "refresh_token_expires_at",
	ResetPasswordToken:     "reset_password_token",
	EmailConfirmationToken: "email_confirmation_token",
	IsEmailConfirmed:       "is_email_confirmed",
	EmailUpdateToken:       "email_update_token",
	EmailUpdateValue:       "email_update_value",
	Picture:                "picture",
	FailedAttempts:         "failed_attempts",
	LockedUntil:            "locked_until",
	IsActive:               "is_active",
	IsAdmin:                "is_admin",
	CreateTime:             "create_time",
	UpdateTime:             "update_time",
}

var Organization = struct {
	Table      string
	ID         string
	Name       string
	CreateTime string
	UpdateTime string
}{
	Table:      "organization",
	ID:         "id",
	Name:       "name",
	CreateTime: "create_time",
	UpdateTime: "update_time",
}

var Workspace = struct {
	Table           string
	ID              string
	Name            string
	OrganizationID  string
	StorageCapacity string
	RootID          string
	Bucket          string
	CreateTime      string
	UpdateTime      string
}{
	Table:           "workspace",
	ID:              "id",
	Name:            "name",
	OrganizationID:  "organization_id",
	StorageCapacity: "storage_capacity",
	RootID:          "root_id",
	Bucket:          "bucket",
	CreateTime:      "create_time",
	UpdateTime:      "update_time",
}

var Group = struct {
	Table          string
	ID             string
	Name           string
	OrganizationID string
	CreateTime     string
	UpdateTime     string
}{
	Table:          "group",
	ID:             "id",
	Name:           "name",
	OrganizationID: "organization_id",
	CreateTime:     "create_time",
	UpdateTime:     "update_time",
}

var Invitation = struct {
	Table          string
	ID             string
	OrganizationID string
	OwnerID        string
	Email          string
	Status         string
	CreateTime     string
	UpdateTime     string
}{
	Table:          "invitation",
	ID:             "id",
	OrganizationID: "organization_id",
	OwnerID:        "owner_id",
	Email:          "email",
	Status:         "status",
	CreateTime:     "create_time",
	UpdateTime:     "update_time",
}

var Snapshot = struct {
	Table      string
	ID         string
	Version    string
	Original   string
	Preview    string
	Text       string
	OCR        string
	Entities   string
	Mosaic     string
	Thumbnail  string
	Language   string
	Status     string
	TaskID     string
	CreateTime string
	UpdateTime string
}{
	Table:      "snapshot",
	ID:         "id",
	Version:    "version",
	Original:   "original",
	Preview:    "preview",
	Text:       "text",
	OCR:        "ocr",
	Entities:   "entities",
	Mosaic:     "mosaic",
	Thumbnail:  "thumbnail",
	Language:   "language",
	Status:     "status",
	TaskID:     "task_id",
	CreateTime: "create_time",
	UpdateTime: "update_time",
}

var File = struct {
	Table       string
	ID          string
	Name        string
	Type        string
	ParentID    string
	WorkspaceID string
	SnapshotID  string
	CreateTime  string
	UpdateTime  string
}{
	Table:       "file",
	ID:          "id",
	Name:        "name",
	Type:        "type",
	ParentID:    "parent_id",
	WorkspaceID: "workspace_id",
	SnapshotID:  "snapshot_id",
	CreateTime:  "create_time",
	UpdateTime:  "update_time",
}

var SnapshotFile = struct {
	Table      string
	SnapshotID string
	FileID     string
	CreateTime string
}{
	Table:      "snapshot_file",
	SnapshotID: "snapshot_id",
	FileID:     "file_id",
	CreateTime: "create_time",
}

var Task = struct {
	Table           string
	ID              string
	Name            string
	Error           string
	Percentage      string
	IsComplete      string
	IsIndeterminate string
	UserID          string
	Status          string
	Payload         string
	CreateTime      string
	UpdateTime      string
}{
	Table:           "task",
	ID:              "id",
	Name:            "name",
	Error:           "error",
	Percentage:      "percentage",
	IsComplete:      "is_complete",
	IsIndeterminate: "is_indeterminate",
	UserID:          "user_id",
	Status:          "status",
	Payload:         "payload",
	CreateTime:      "create_time",
	UpdateTime:      "update_time",
}

var GroupPermission = struct {
	Table      string
	ID         string
	GroupID    string
	ResourceID string
	Permission string
	CreateTime string
}{
	Table:      "grouppermission",
	ID:         "id",
	GroupID:    "group_id",
	ResourceID: "resource_id",
	Permission: "permission",
	CreateTime: "create_time",
}

var UserPermission = struct {
	Table      string
	ID         string
	UserID     string
	ResourceID string
	Permission string
	CreateTime string
}{
	Table:      "userpermission",
	ID:         "id",
	UserID:     "user_id",
	ResourceID: "resource_id",
	Permission: "permission",
	CreateTime: "create_time",
}

// Tables that existed before this registry and are removed by it.
var (
	OrganizationUser = struct{ Table string }{Table: "organization_user"}
	GroupUser        = struct{ Table string }{Table: "group_user"}
)
