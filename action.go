package migrate

import (
	"strings"

	"github.com/pkg/errors"

	"github.com/kouprlabs/voltaserve-migrate/migration"
)

var ErrInvalidSteps = errors.New("number of steps must not be negative")

// versionLength is the length of a version like 20240718_000001.
const versionLength = 15

type ActionConfigurator func(a *Action)

// Action narrows a run. Zero steps and no versions mean every eligible step.
type Action struct {
	steps    int
	versions []migration.Version
}

func WithSteps(steps int) ActionConfigurator {
	return func(a *Action) {
		a.steps = steps
	}
}

func WithVersions(versions ...migration.Version) ActionConfigurator {
	return func(a *Action) {
		a.versions = versions
	}
}

// CreateConfigurators turns command line input into configurators. Items may
// be versions or full keys such as 20240718_000001_create_user.
func CreateConfigurators(steps int, items []string) ([]ActionConfigurator, error) {
	if steps < 0 {
		return nil, errors.Wrapf(ErrInvalidSteps, "got %d", steps)
	}

	var configurators []ActionConfigurator
	if steps > 0 {
		configurators = append(configurators, WithSteps(steps))
	}

	versions, err := ParseVersions(items)
	if err != nil {
		return nil, err
	}

	if len(versions) > 0 {
		configurators = append(configurators, WithVersions(versions...))
	}

	return configurators, nil
}

// ParseVersions keeps the first occurrence of every version.
func ParseVersions(items []string) ([]migration.Version, error) {
	var versions []migration.Version
	seen := make(map[migration.Version]bool, len(items))

	for _, item := range items {
		item = strings.TrimSpace(item)
		if item == "" {
			continue
		}

		if len(item) > versionLength && item[versionLength] == '_' {
			item = item[:versionLength]
		}

		v, err := migration.VersionFromString(item)
		if err != nil {
			return nil, err
		}

		if !seen[v] {
			seen[v] = true
			versions = append(versions, v)
		}
	}

	return versions, nil
}

func newAction(cfs []ActionConfigurator) *Action {
	act := new(Action)
	for _, f := range cfs {
		f(act)
	}
	return act
}
