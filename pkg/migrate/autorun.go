package migrate

import (
	"context"
	"fmt"

	"github.com/angelmondragon/cinepass/pkg/config"
	"github.com/angelmondragon/cinepass/pkg/db"
	"github.com/angelmondragon/cinepass/pkg/logger"
)

// MaybeRun applies pending migrations on startup when the app runs in dev
// mode or the auto-migrate flag is set.
func MaybeRun(ctx context.Context, cfg *config.Config, logg *logger.Logger, client *db.Client) error {
	if !cfg.App.IsDev() && !cfg.FeatureFlags.AutoMigrate {
		return nil
	}
	return Up(ctx, logg, client)
}

// Up applies every pending migration for the client's driver.
func Up(ctx context.Context, logg *logger.Logger, client *db.Client) error {
	conn := client.DB()
	dialect, err := DialectFor(conn.Dialector.Name())
	if err != nil {
		return err
	}
	sqlDB, err := conn.DB()
	if err != nil {
		return fmt.Errorf("extracting sql.DB: %w", err)
	}

	ctx = logg.WithField(ctx, "dialect", string(dialect))
	logg.Info(ctx, "applying schema migrations")
	if err := Run(ctx, sqlDB, dialect, "up"); err != nil {
		return err
	}
	logg.Info(ctx, "schema migrations applied")
	return nil
}
