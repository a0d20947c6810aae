package migrate

import (
	"context"
	"fmt"

	"github.com/plunoo/biskakenauto-sub000/pkg/config"
	"github.com/plunoo/biskakenauto-sub000/pkg/db"
	"github.com/plunoo/biskakenauto-sub000/pkg/logger"
)

// MaybeRunDev applies the embedded migrations on boot in dev when
// BISKAKEN_AUTO_MIGRATE is set. sqlite connections are skipped; tests build
// their schema with AutoMigrate.
func MaybeRunDev(ctx context.Context, cfg *config.Config, logg *logger.Logger, client *db.Client) error {
	if !cfg.App.IsDev() || !cfg.FeatureFlags.AutoMigrate {
		return nil
	}
	if name := client.DB().Dialector.Name(); name != "postgres" {
		logg.Warn(logg.WithField(ctx, "driver", name), "auto migrate skipped for non-postgres driver")
		return nil
	}
	sqlDB, err := client.DB().DB()
	if err != nil {
		return fmt.Errorf("extracting sql.DB: %w", err)
	}
	runner, err := NewRunner(sqlDB, Embedded())
	if err != nil {
		return err
	}
	applied, err := runner.Up(ctx)
	if err != nil {
		return err
	}
	logg.Info(logg.WithField(ctx, "applied", applied), "dev migrations up to date")
	return nil
}
