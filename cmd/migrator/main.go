// Command migrator applies the embedded goose migrations to the package database.
package main

import (
	"context"
	"database/sql"
	"errors"
	"flag"
	"fmt"
	"io/fs"
	"os"
	"time"

	"github.com/caarlos0/env/v10"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/joho/godotenv"
	"github.com/pressly/goose/v3"
	"github.com/rs/zerolog"

	"github.com/gokatarajesh/trivia-engine/internal/config"
	"github.com/gokatarajesh/trivia-engine/internal/db/migrations"
	"github.com/gokatarajesh/trivia-engine/internal/logging"
)

func main() {
	var (
		command = flag.String("command", "up", "migration command: up, down, status or version")
		dir     = flag.String("dir", "", "read migrations from this directory instead of the embedded set")
		envFile = flag.String("env-file", "configs/.env", "dotenv file loaded outside production")
	)
	flag.Parse()

	appEnv := os.Getenv("APP_ENV")
	logger := logging.New("trivia-migrator", appEnv, os.Getenv("LOG_LEVEL"))

	if appEnv != "production" && *envFile != "" {
		if err := godotenv.Load(*envFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
			logger.Warn().Err(err).Str("file", *envFile).Msg("could not load env file")
		}
	}

	if err := run(context.Background(), *command, *dir, logger); err != nil {
		logger.Fatal().Err(err).Str("command", *command).Msg("migration failed")
	}
}

func run(ctx context.Context, command, dir string, logger zerolog.Logger) error {
	var pg config.Postgres
	if err := env.ParseWithOptions(&pg, env.Options{RequiredIfNoDef: true}); err != nil {
		return fmt.Errorf("parse postgres config: %w", err)
	}

	db, err := sql.Open("pgx", pg.DSN())
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	defer db.Close()

	if err := db.PingContext(ctx); err != nil {
		return fmt.Errorf("ping database %s:%d: %w", pg.Host, pg.Port, err)
	}

	var source fs.FS = migrations.FS
	if dir != "" {
		source = os.DirFS(dir)
	}
	provider, err := goose.NewProvider(goose.DialectPostgres, db, source)
	if err != nil {
		return fmt.Errorf("create migration provider: %w", err)
	}

	logger.Info().Str("database", pg.Database).Str("source", sourceName(dir)).Msg("connected to database")

	switch command {
	case "up":
		results, err := provider.Up(ctx)
		if err != nil {
			return fmt.Errorf("migrate up: %w", err)
		}
		for _, res := range results {
			logResult(logger, res)
		}
		logger.Info().Int("applied", len(results)).Msg("migrations applied")
	case "down":
		res, err := provider.Down(ctx)
		if err != nil {
			return fmt.Errorf("migrate down: %w", err)
		}
		logResult(logger, res)
	case "status":
		statuses, err := provider.Status(ctx)
		if err != nil {
			return fmt.Errorf("migration status: %w", err)
		}
		for _, st := range statuses {
			ev := logger.Info().Int64("version", st.Source.Version).Str("file", st.Source.Path).Str("state", string(st.State))
			if !st.AppliedAt.IsZero() {
				ev = ev.Time("applied_at", st.AppliedAt)
			}
			ev.Msg("migration")
		}
	case "version":
		version, err := provider.GetDBVersion(ctx)
		if err != nil {
			return fmt.Errorf("database version: %w", err)
		}
		logger.Info().Int64("version", version).Msg("database version")
	default:
		return fmt.Errorf("unknown command %q, use up, down, status or version", command)
	}
	return nil
}

func logResult(logger zerolog.Logger, res *goose.MigrationResult) {
	if res == nil || res.Source == nil {
		return
	}
	logger.Info().
		Int64("version", res.Source.Version).
		Str("file", res.Source.Path).
		Str("direction", res.Direction).
		Dur("took", res.Duration.Round(time.Millisecond)).
		Msg("migration done")
}

func sourceName(dir string) string {
	if dir == "" {
		return "embedded"
	}
	return dir
}
