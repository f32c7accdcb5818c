package cli

import (
	"context"
	"io/ioutil"
	"os"
	"strings"
	"time"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v2"
)

var (
	ErrDatabaseURLMissing = errors.New("database url was not defined")
	ErrInvalidLogFormat   = errors.New("log format is not valid")
)

const (
	LogFormatColor = "color"
	LogFormatPlain = "plain"
	LogFormatJSON  = "json"
	LogFormatText  = "text"
)

const configFileStub = `version: "1"
migrations:
  database_url: "%%DATABASE_URL%%"
  migrations_table: migrations
  lock_key: voltaserve_migrations
  lock_seconds: 10
  max_connection_attempts: 10
  connection_timeout_seconds: 60
  run_timeout_seconds: 0
logging:
  format: color
  sql: false
  debug: false
`

type (
	Config struct {
		DatabaseURL           string
		MigrationsTable       string
		LockKey               string
		LockSeconds           int
		MaxConnectionAttempts int
		ConnectionTimeout     time.Duration
		RunTimeout            time.Duration
		LogFormat             string
		LogSQL                bool
		LogDebug              bool
	}

	migrationsSection struct {
		DatabaseURL              string `yaml:"database_url"`
		MigrationsTable          string `yaml:"migrations_table"`
		LockKey                  string `yaml:"lock_key"`
		LockSeconds              int    `yaml:"lock_seconds"`
		MaxConnectionAttempts    int    `yaml:"max_connection_attempts"`
		ConnectionTimeoutSeconds int    `yaml:"connection_timeout_seconds"`
		RunTimeoutSeconds        int    `yaml:"run_timeout_seconds"`
	}

	loggingSection struct {
		Format string `yaml:"format"`
		SQL    bool   `yaml:"sql"`
		Debug  bool   `yaml:"debug"`
	}

	configFile struct {
		Version    string            `yaml:"version"`
		Migrations migrationsSection `yaml:"migrations"`
		Logging    loggingSection    `yaml:"logging"`
	}
)

// Validate fills defaults and checks the values a migrator cannot run without.
func (cfg *Config) Validate() error {
	if cfg.DatabaseURL == "" {
		return ErrDatabaseURLMissing
	}

	if cfg.LogFormat == "" {
		cfg.LogFormat = LogFormatColor
	}

	switch cfg.LogFormat {
	case LogFormatColor, LogFormatPlain, LogFormatJSON, LogFormatText:
	default:
		return errors.Wrapf(ErrInvalidLogFormat, "[%s]", cfg.LogFormat)
	}

	return nil
}

// RunContext bounds a whole run by RunTimeout. Without one the run lasts until
// parent is done.
func (cfg Config) RunContext(parent context.Context) (context.Context, context.CancelFunc) {
	if cfg.RunTimeout > 0 {
		return context.WithTimeout(parent, cfg.RunTimeout)
	}

	return context.WithCancel(parent)
}

// LoadConfig reads a config file. The result is validated by New, so callers
// may still override values from flags.
func LoadConfig(path string) (Config, error) {
	var cfg Config
	f, err := os.Open(path)
	if err != nil {
		return cfg, errors.Wrap(err, "could not open configuration file")
	}

	defer func() {
		_ = f.Close()
	}()

	b, err := ioutil.ReadAll(f)
	if err != nil {
		return cfg, errors.Wrap(err, "could not read configuration file")
	}

	return parseConfig(b)
}

func parseConfig(b []byte) (Config, error) {
	var cfgFile configFile
	if err := yaml.Unmarshal(b, &cfgFile); err != nil {
		return Config{}, errors.Wrap(err, "could not parse configuration file")
	}

	cfg := Config{
		DatabaseURL:           fromEnv(cfgFile.Migrations.DatabaseURL),
		MigrationsTable:       fromEnv(cfgFile.Migrations.MigrationsTable),
		LockKey:               fromEnv(cfgFile.Migrations.LockKey),
		LockSeconds:           cfgFile.Migrations.LockSeconds,
		MaxConnectionAttempts: cfgFile.Migrations.MaxConnectionAttempts,
		ConnectionTimeout:     time.Duration(cfgFile.Migrations.ConnectionTimeoutSeconds) * time.Second,
		RunTimeout:            time.Duration(cfgFile.Migrations.RunTimeoutSeconds) * time.Second,
		LogFormat:             cfgFile.Logging.Format,
		LogSQL:                cfgFile.Logging.SQL,
		LogDebug:              cfgFile.Logging.Debug,
	}

	return cfg, nil
}

// fromEnv resolves values written as %%NAME%% from the environment.
func fromEnv(v string) string {
	if len(v) > 4 && strings.HasPrefix(v, "%%") && strings.HasSuffix(v, "%%") {
		return os.Getenv(strings.TrimSuffix(strings.TrimPrefix(v, "%%"), "%%"))
	}

	return v
}
