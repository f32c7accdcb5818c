package migration

import (
	"bytes"
	"context"
	"regexp"
	"strings"

	"github.com/pkg/errors"

	"github.com/kouprlabs/voltaserve-migrate/schema"
)

var (
	ErrInvalidVersion       = errors.New("invalid migration version")
	ErrMigrationIsMalformed = errors.New("migration is malformed")
	ErrDuplicateVersion     = errors.New("duplicate migration version")
	ErrDuplicateKey         = errors.New("duplicate migration key")
	ErrOutOfOrder           = errors.New("migration registered out of order")
	ErrIrreversible         = errors.New("migration is irreversible")
)

// versions look like 20240718_000001: a date followed by a sequence number
var versionRegexp = regexp.MustCompile(`^\d{8}_\d{6}$`)
var nameRegexp = regexp.MustCompile(`^[a-z0-9]+(_[a-z0-9]+)*$`)

type (
	// Version is the ordering token of a migration, compared lexicographically.
	Version string

	// Func changes the schema through the given manager.
	Func func(ctx context.Context, m schema.Manager) error

	Migration struct {
		Key     string
		Name    string
		Version Version
		Up      Func
		Down    Func
	}

	Factory func() (*Migration, error)
)

func VersionFromString(s string) (Version, error) {
	if !versionRegexp.MatchString(s) {
		return "", errors.Wrapf(ErrInvalidVersion, "[%s]", s)
	}

	return Version(s), nil
}

func (v Version) String() string {
	return string(v)
}

// New returns a factory for a migration identified by version and a
// snake_case name. Down may be nil for irreversible migrations.
func New(version, name string, up, down Func) Factory {
	return func() (*Migration, error) {
		v, err := VersionFromString(version)
		if err != nil {
			return nil, err
		}

		if !nameRegexp.MatchString(name) {
			return nil, errors.Wrapf(ErrMigrationIsMalformed, "name [%s] of version [%s] must be snake_case", name, version)
		}

		if up == nil {
			return nil, errors.Wrapf(ErrMigrationIsMalformed, "version [%s] has no up function", version)
		}

		return &Migration{
			Key:     CreateKeyFromVersionAndName(v, name),
			Name:    humanize(name),
			Version: v,
			Up:      up,
			Down:    down,
		}, nil
	}
}

func (m *Migration) Reversible() bool {
	return m.Down != nil
}

func (m *Migration) Migrate(ctx context.Context, sm schema.Manager) error {
	return m.Up(ctx, sm)
}

func (m *Migration) Rollback(ctx context.Context, sm schema.Manager) error {
	if m.Down == nil {
		return errors.Wrapf(ErrIrreversible, "[%s]", m.Key)
	}

	return m.Down(ctx, sm)
}

type Migrations []*Migration

// NewMigrations assembles a registry in registration order. Versions must be
// unique and strictly increasing.
func NewMigrations(factories ...Factory) (Migrations, error) {
	migrations := make(Migrations, 0, len(factories))

	for i := range factories {
		m, err := factories[i]()
		if err != nil {
			return nil, err
		}

		migrations = append(migrations, m)
	}

	if err := Validate(migrations); err != nil {
		return nil, err
	}

	return migrations, nil
}

// Validate checks a registry assembled elsewhere.
func Validate(migrations Migrations) error {
	keys := make(map[string]struct{}, len(migrations))
	versions := make(map[Version]string, len(migrations))

	for i, m := range migrations {
		if m == nil || m.Up == nil {
			return errors.Wrapf(ErrMigrationIsMalformed, "registry entry %d has no up function", i)
		}

		if _, err := VersionFromString(m.Version.String()); err != nil {
			return err
		}

		if _, ok := keys[m.Key]; ok {
			return errors.Wrapf(ErrDuplicateKey, "[%s]", m.Key)
		}
		keys[m.Key] = struct{}{}

		if key, ok := versions[m.Version]; ok {
			return errors.Wrapf(ErrDuplicateVersion, "[%s] used by [%s] and [%s]", m.Version, key, m.Key)
		}
		versions[m.Version] = m.Key

		if i > 0 {
			prev := migrations[i-1]
			if prev.Version > m.Version {
				return errors.Wrapf(ErrOutOfOrder, "[%s] registered after [%s]", m.Key, prev.Key)
			}
		}
	}

	return nil
}

func (m Migrations) Keys() (result []string) {
	for i := range m {
		result = append(result, m[i].Key)
	}
	return result
}

func (m Migrations) Versions() (result []Version) {
	for i := range m {
		result = append(result, m[i].Version)
	}
	return result
}

// Find returns the migration with the given version or nil.
func (m Migrations) Find(v Version) *Migration {
	for i := range m {
		if m[i].Version == v {
			return m[i]
		}
	}
	return nil
}

func (m Migrations) Len() int {
	return len(m)
}

func (m Migrations) Less(i, j int) bool {
	return m[i].Version < m[j].Version
}

func (m Migrations) Swap(i, j int) {
	m[i], m[j] = m[j], m[i]
}

func CreateKeyFromVersionAndName(v Version, name string) string {
	var result bytes.Buffer
	result.WriteString(string(v))
	result.WriteString("_")
	result.WriteString(strings.ReplaceAll(strings.ToLower(name), " ", "_"))
	return result.String()
}

func InVersions(v Version, versions []Version) bool {
	for i := range versions {
		if versions[i] == v {
			return true
		}
	}
	return false
}

func humanize(name string) string {
	s := strings.ReplaceAll(name, "_", " ")
	if s == "" {
		return s
	}

	return strings.ToUpper(s[:1]) + s[1:]
}
