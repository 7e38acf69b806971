package migrate

import (
	"context"
	"fmt"

	"github.com/gamehub/gamehub-backend/pkg/config"
	"github.com/gamehub/gamehub-backend/pkg/db"
	"github.com/gamehub/gamehub-backend/pkg/logger"
)

// MaybeRunDev brings the schema up to date on boot, but only in dev with the
// auto-migrate flag on. Postgres runs the embedded goose files; sqlite and
// mysql go through AutoMigrate.
func MaybeRunDev(ctx context.Context, cfg *config.Config, logg *logger.Logger, client *db.Client) error {
	if !cfg.App.IsDev() || !cfg.FeatureFlags.AutoMigrate {
		return nil
	}
	ctx = logg.WithField(ctx, "driver", client.Driver())

	if client.Driver() != config.DBDriverPostgres {
		logg.Info(ctx, "dev auto-migrate: gorm")
		return AutoMigrate(ctx, client.DB())
	}

	sqlDB, err := client.DB().DB()
	if err != nil {
		return fmt.Errorf("extracting sql.DB: %w", err)
	}
	runner, err := NewRunner(sqlDB, Embedded(), logg)
	if err != nil {
		return err
	}
	logg.Info(ctx, "dev auto-migrate: goose")
	return runner.Up(ctx)
}
