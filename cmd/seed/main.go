// Command seed bootstraps a fresh database: it applies migrations, creates
// the first operator account and writes the business settings the jobs need.
package main

import (
	"context"
	"errors"
	"flag"
	"os"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/goldsave/goldsave-api/internal/config"
	"github.com/goldsave/goldsave-api/internal/domain/admin"
	"github.com/goldsave/goldsave-api/internal/domain/setting"
	"github.com/goldsave/goldsave-api/internal/pkg/database"
	"github.com/goldsave/goldsave-api/internal/pkg/logger"
)

// defaultSettings are written only when the key is absent, so re-running the
// seed never overrides values an admin has tuned.
var defaultSettings = []struct {
	key, value string
}{
	{setting.KeyMinimumRedemptionPoints, "100"},
	{setting.KeyRedemptionWindow, "5"},
	{setting.KeyDefaultBonusPoints, "5"},
	{setting.KeyBonusModValue, "10"},
	{setting.KeyConvenienceFee, "10"},
	{setting.KeyPointsToGoldGrams, "0.001"},
}

func main() {
	email := flag.String("admin-email", os.Getenv("SEED_ADMIN_EMAIL"), "email of the first admin")
	name := flag.String("admin-name", envOr("SEED_ADMIN_NAME", "Administrator"), "display name of the first admin")
	skipSettings := flag.Bool("skip-settings", false, "do not write default settings")
	flag.Parse()

	cfg := config.Load()
	logger.Init(logger.Config{Level: cfg.LogLevel, Environment: cfg.Env})

	db, err := database.NewPostgres(cfg.DatabaseURL, database.PoolOptions{
		MaxOpen: cfg.DBMaxOpenConns,
		MaxIdle: cfg.DBMaxIdleConns,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to PostgreSQL")
	}
	defer database.ClosePostgres(db)

	if err := database.RunMigrations(db, cfg.MigrationsPath); err != nil {
		log.Fatal().Err(err).Msg("Failed to apply migrations")
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	if !*skipSettings {
		settings := setting.NewService(setting.NewRepository(db))
		if err := seedSettings(ctx, settings); err != nil {
			log.Fatal().Err(err).Msg("Failed to seed settings")
		}
	}

	if *email == "" {
		log.Info().Msg("No admin email given, skipping admin bootstrap")
		return
	}

	// The password only comes from the environment so it stays out of shell history.
	plain := os.Getenv("SEED_ADMIN_PASSWORD")
	admins := admin.NewService(admin.NewRepository(db))
	a, err := admins.CreateAdmin(ctx, *email, *name, plain)
	switch {
	case errors.Is(err, admin.ErrAdminExists):
		log.Info().Str("email", *email).Msg("Admin already exists")
	case err != nil:
		log.Fatal().Err(err).Msg("Failed to create admin")
	default:
		log.Info().Str("admin_id", a.ID.String()).Str("email", a.Email).Msg("Admin created")
	}
}

type settingStore interface {
	Get(ctx context.Context, key string) (*setting.Setting, error)
	Upsert(ctx context.Context, key, value string) (*setting.Setting, error)
}

func seedSettings(ctx context.Context, settings settingStore) error {
	for _, d := range defaultSettings {
		_, err := settings.Get(ctx, d.key)
		if err == nil {
			continue
		}
		if !errors.Is(err, setting.ErrSettingNotFound) {
			return err
		}
		if _, err := settings.Upsert(ctx, d.key, d.value); err != nil {
			return err
		}
		log.Info().Str("key", d.key).Str("value", d.value).Msg("Setting seeded")
	}
	return nil
}

func envOr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}
