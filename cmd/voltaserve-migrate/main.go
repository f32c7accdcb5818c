package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/logrusorgru/aurora/v3"
	"github.com/pkg/errors"

	migrate "github.com/kouprlabs/voltaserve-migrate"
	"github.com/kouprlabs/voltaserve-migrate/internal/cli"
)

const prefix = "voltaserve-migrate: "

type command func(ctx context.Context, app *cli.App, act cli.ActionConfig) error

func run(cfgPath, databaseURL string, act cli.ActionConfig, cmd command) (err error) {
	var cfg cli.Config
	if cli.FileExists(cfgPath) {
		if cfg, err = cli.LoadConfig(cfgPath); err != nil {
			return err
		}
	}

	if databaseURL != "" {
		cfg.DatabaseURL = databaseURL
	}

	app, closer, err := cli.New(cfg)
	if err != nil {
		return err
	}

	defer func() {
		if closeErr := closer(); closeErr != nil && err == nil {
			err = closeErr
		}
	}()

	sigCtx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	ctx, cancel := cfg.RunContext(sigCtx)
	defer cancel()

	return cmd(ctx, app, act)
}

func report(verb string) func(n int, err error) error {
	return func(n int, err error) error {
		if err != nil {
			return err
		}

		fmt.Println(aurora.Green(prefix), fmt.Sprintf("%s %d migration(s)", verb, n))
		return nil
	}
}

func migrateCmd(ctx context.Context, app *cli.App, act cli.ActionConfig) error {
	return report("applied")(app.Migrate(ctx, act))
}

func rollbackCmd(ctx context.Context, app *cli.App, act cli.ActionConfig) error {
	return report("rolled back")(app.Rollback(ctx, act))
}

func refreshCmd(ctx context.Context, app *cli.App, act cli.ActionConfig) error {
	return report("refreshed")(app.Refresh(ctx, act))
}

func resetCmd(ctx context.Context, app *cli.App, _ cli.ActionConfig) error {
	return report("rolled back")(app.Reset(ctx))
}

func freshCmd(ctx context.Context, app *cli.App, _ cli.ActionConfig) error {
	return report("applied")(app.Fresh(ctx))
}

func statusCmd(ctx context.Context, app *cli.App, _ cli.ActionConfig) error {
	statuses, err := app.Status(ctx)
	if err != nil {
		return err
	}

	for _, s := range statuses {
		switch {
		case !s.Registered:
			fmt.Println(aurora.Red("unknown "), s.Key, fmt.Sprintf("batch %d", s.Batch))
		case s.Applied:
			fmt.Println(aurora.Green("applied "), s.Key, fmt.Sprintf("batch %d at %s", s.Batch, s.MigratedAt.Format(time.RFC3339)))
		default:
			fmt.Println(aurora.Yellow("pending "), s.Key)
		}
	}

	return nil
}

func planCmd(ctx context.Context, app *cli.App, act cli.ActionConfig) error {
	previews, err := app.Plan(ctx, act)
	if err != nil {
		return err
	}

	for _, p := range previews {
		fmt.Println(aurora.Cyan("-- " + p.Key))
		for _, stmt := range p.Statements {
			fmt.Println(stmt + ";")
		}
	}

	return nil
}

func main() {
	upCmd := flag.Bool("up", false, "apply pending migrations")
	downCmd := flag.Bool("down", false, "roll back migrations, one step unless -steps is given")
	refreshFlag := flag.Bool("refresh", false, "roll back and then apply migrations again")
	resetFlag := flag.Bool("reset", false, "roll back every applied migration")
	freshFlag := flag.Bool("fresh", false, "drop all tables and apply every migration")
	statusFlag := flag.Bool("status", false, "list applied and pending migrations")
	planFlag := flag.Bool("plan", false, "print the statements pending migrations would run")
	initCmd := flag.Bool("init", false, "write a config file stub")

	steps := flag.Int("steps", 0, "number of migrations to apply or roll back")
	versions := flag.String("versions", "", "comma separated migration versions")
	databaseURL := flag.String("db", "", "database url, overrides the config file")
	cfgPath := flag.String("config", "voltaserve-migrate.yml", "config file")

	flag.Parse()

	if *initCmd {
		if err := cli.InitCfg(*cfgPath); err != nil {
			fail(err)
		}

		fmt.Println(aurora.Green(prefix), "config written to", *cfgPath)
		os.Exit(0)
	}

	act := cli.ActionConfig{Steps: *steps}
	if *versions != "" {
		act.Versions = strings.Split(*versions, ",")
	}

	var cmd command
	switch {
	case *upCmd:
		cmd = migrateCmd
	case *downCmd:
		cmd = rollbackCmd
	case *refreshFlag:
		cmd = refreshCmd
	case *resetFlag:
		cmd = resetCmd
	case *freshFlag:
		cmd = freshCmd
	case *statusFlag:
		cmd = statusCmd
	case *planFlag:
		cmd = planCmd
	default:
		fmt.Println(aurora.Red(prefix), "Unknown command")
		flag.Usage()
		os.Exit(1)
	}

	if err := run(*cfgPath, *databaseURL, act, cmd); err != nil {
		if errors.Is(err, migrate.ErrNothingToMigrate) {
			fmt.Println(aurora.Green(prefix), "Nothing to migrate")
			os.Exit(0)
		}

		fail(err)
	}

	os.Exit(0)
}

func fail(err error) {
	fmt.Println(aurora.Red(prefix), err.Error())
	os.Exit(1)
}
