package cli

import (
	"context"
	"io"
	"os"
	"strings"

	"github.com/pkg/errors"

	migrate "github.com/kouprlabs/voltaserve-migrate"
)

var ErrConfigAlreadyExists = errors.New("config file already exists")

type (
	CloserFunc func() error

	ActionConfig struct {
		Steps    int
		Versions []string
	}

	App struct {
		migrator *migrate.Migrator
	}
)

func NewFromYaml(path string) (*App, CloserFunc, error) {
	cfg, err := LoadConfig(path)
	if err != nil {
		return nil, nil, err
	}

	return New(cfg)
}

func New(cfg Config) (*App, CloserFunc, error) {
	if err := cfg.Validate(); err != nil {
		return nil, nil, err
	}

	m, closer, err := createMigrator(cfg)
	if err != nil {
		return nil, nil, err
	}

	return &App{migrator: m}, CloserFunc(closer), nil
}

func (app *App) Migrate(ctx context.Context, cfg ActionConfig) (int, error) {
	configurators, err := migrate.CreateConfigurators(cfg.Steps, cfg.Versions)
	if err != nil {
		return 0, err
	}

	migrated, err := app.migrator.Migrate(ctx, configurators...)
	return len(migrated), err
}

// Rollback reverts one step unless more are requested.
func (app *App) Rollback(ctx context.Context, cfg ActionConfig) (int, error) {
	if cfg.Steps == 0 && len(cfg.Versions) == 0 {
		cfg.Steps = 1
	}

	configurators, err := migrate.CreateConfigurators(cfg.Steps, cfg.Versions)
	if err != nil {
		return 0, err
	}

	rolledBack, err := app.migrator.Rollback(ctx, configurators...)
	return len(rolledBack), err
}

func (app *App) Refresh(ctx context.Context, cfg ActionConfig) (int, error) {
	configurators, err := migrate.CreateConfigurators(cfg.Steps, cfg.Versions)
	if err != nil {
		return 0, err
	}

	_, migrated, err := app.migrator.Refresh(ctx, configurators...)
	return len(migrated), err
}

func (app *App) Reset(ctx context.Context) (int, error) {
	rolledBack, err := app.migrator.Reset(ctx)
	return len(rolledBack), err
}

func (app *App) Fresh(ctx context.Context) (int, error) {
	migrated, err := app.migrator.Fresh(ctx)
	return len(migrated), err
}

func (app *App) Status(ctx context.Context) ([]migrate.Status, error) {
	return app.migrator.Status(ctx)
}

func (app *App) Plan(ctx context.Context, cfg ActionConfig) ([]migrate.Preview, error) {
	configurators, err := migrate.CreateConfigurators(cfg.Steps, cfg.Versions)
	if err != nil {
		return nil, err
	}

	return app.migrator.Plan(ctx, configurators...)
}

// InitCfg writes a config stub and refuses to overwrite an existing file.
func InitCfg(path string) error {
	if FileExists(path) {
		return errors.Wrapf(ErrConfigAlreadyExists, "[%s]", path)
	}

	f, err := os.Create(path)
	if err != nil {
		return errors.Wrap(err, "could not create config file")
	}

	defer func() {
		_ = f.Close()
	}()

	if _, err := io.Copy(f, strings.NewReader(configFileStub)); err != nil {
		return errors.Wrap(err, "could not write config file")
	}

	return nil
}

func FileExists(path string) bool {
	info, err := os.Stat(path)
	if err != nil {
		return false
	}
	return !info.IsDir()
}
