package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"text/tabwriter"

	"github.com/gamehub/gamehub-backend/pkg/config"
	"github.com/gamehub/gamehub-backend/pkg/db"
	"github.com/gamehub/gamehub-backend/pkg/instance"
	"github.com/gamehub/gamehub-backend/pkg/logger"
	"github.com/gamehub/gamehub-backend/pkg/migrate"
	"github.com/joho/godotenv"
)

type options struct {
	cmd     string
	dir     string
	name    string
	version string
}

func main() {
	_ = godotenv.Load()

	var opts options
	flag.StringVar(&opts.cmd, "cmd", "up", "up|down|status|version|create|validate|automigrate")
	flag.StringVar(&opts.dir, "dir", "", "migrations directory (empty uses the embedded set; create/validate default to "+migrate.DefaultDir+")")
	flag.StringVar(&opts.name, "name", "", "migration name for -cmd=create")
	flag.StringVar(&opts.version, "version", "", "target version (YYYYMMDDHHMMSS) for -cmd=version")
	flag.Parse()

	// create and validate only touch files
	switch opts.cmd {
	case "create":
		path, err := migrate.CreateSQLMigration(dirOrDefault(opts.dir), opts.name)
		exitOn("create migration", err)
		fmt.Println("created migration:", path)
		return
	case "validate":
		exitOn("validate migrations", migrate.ValidateDir(dirOrDefault(opts.dir)))
		fmt.Println("migration validation passed")
		return
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load()
	exitOn("load config", err)

	logg := logger.New(logger.Options{
		ServiceName: "migrate",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
		Format:      cfg.App.LogFormat,
		Instance:    instance.GetID(),
	})
	ctx = logg.WithFields(ctx, map[string]any{"env": cfg.App.Env, "cmd": opts.cmd})

	if err := run(ctx, cfg, logg, opts); err != nil {
		logg.Error(ctx, "migrate failed", err)
		os.Exit(1)
	}
	logg.Info(ctx, "migrate finished")
}

func run(ctx context.Context, cfg *config.Config, logg *logger.Logger, opts options) error {
	dbClient, err := db.New(ctx, cfg.DB, logg)
	if err != nil {
		return fmt.Errorf("database: %w", err)
	}
	defer dbClient.Close()

	if opts.cmd == "automigrate" {
		return migrate.AutoMigrate(ctx, dbClient.DB())
	}
	if dbClient.Driver() != config.DBDriverPostgres {
		return fmt.Errorf("goose migrations target postgres, use -cmd=automigrate for %s", dbClient.Driver())
	}

	sqlDB, err := dbClient.DB().DB()
	if err != nil {
		return fmt.Errorf("sql handle: %w", err)
	}
	source, err := migrate.Source(opts.dir)
	if err != nil {
		return err
	}
	runner, err := migrate.NewRunner(sqlDB, source, logg)
	if err != nil {
		return err
	}

	switch opts.cmd {
	case "up":
		return runner.Up(ctx)
	case "down":
		return runner.Down(ctx)
	case "version":
		if opts.version == "" {
			return errors.New("missing -version")
		}
		return runner.To(ctx, opts.version)
	case "status":
		statuses, err := runner.Status(ctx)
		if err != nil {
			return err
		}
		w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "VERSION\tSTATE\tAPPLIED AT\tFILE")
		for _, s := range statuses {
			applied := "-"
			if !s.AppliedAt.IsZero() {
				applied = s.AppliedAt.UTC().Format("2006-01-02 15:04:05")
			}
			fmt.Fprintf(w, "%d\t%s\t%s\t%s\n", s.Source.Version, s.State, applied, s.Source.Path)
		}
		return w.Flush()
	default:
		return fmt.Errorf("unknown -cmd value %q", opts.cmd)
	}
}

func dirOrDefault(dir string) string {
	if dir == "" {
		return migrate.DefaultDir
	}
	return dir
}

func exitOn(step string, err error) {
	if err == nil {
		return
	}
	fmt.Fprintf(os.Stderr, "%s: %v\n", step, err)
	os.Exit(1)
}
