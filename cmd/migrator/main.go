package main

import (
	"database/sql"
	"errors"
	"flag"
	"os"
	"time"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	_ "github.com/lib/pq"
	"github.com/rs/zerolog/log"

	"github.com/technosupport/incident-analytics/db"
	"github.com/technosupport/incident-analytics/internal/config"
	"github.com/technosupport/incident-analytics/internal/logging"
)

func main() {
	upCmd := flag.Bool("up", false, "Run all up migrations")
	downCmd := flag.Bool("down", false, "Rollback all migrations")
	stepsCmd := flag.Int("steps", 0, "Run +/- steps")
	cfgPath := flag.String("config", "config/default.yaml", "Path to the YAML config file")
	flag.Parse()

	// DB settings come from the same file and env as the server.
	cfg, err := config.Load(*cfgPath)
	if err != nil {
		log.Fatal().Err(err).Msg("config")
	}
	closer, _ := logging.Init(logging.Config{Level: cfg.Logging.Level, Format: "console"})
	defer closer.Close()

	sqlDB, err := sql.Open("postgres", cfg.Database.DSN())
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to database")
	}
	defer sqlDB.Close()

	if err := sqlDB.Ping(); err != nil {
		log.Fatal().Err(err).Str("host", cfg.Database.Host).Msg("Failed to ping database")
	}

	driver, err := postgres.WithInstance(sqlDB, &postgres.Config{})
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create migrate driver")
	}
	src, err := iofs.New(db.Migrations, "migrations")
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to open embedded migrations")
	}
	m, err := migrate.NewWithInstance("iofs", src, "postgres", driver)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize migrate")
	}

	start := time.Now()
	switch {
	case *upCmd:
		log.Info().Msg("Running UP migrations")
		check(m.Up(), "UP")
	case *downCmd:
		log.Info().Msg("Running DOWN migrations")
		check(m.Down(), "DOWN")
	case *stepsCmd != 0:
		log.Info().Int("steps", *stepsCmd).Msg("Running migration steps")
		check(m.Steps(*stepsCmd), "STEPS")
	default:
		version, dirty, err := m.Version()
		if errors.Is(err, migrate.ErrNilVersion) {
			log.Info().Msg("No version found (empty db?). Use -up, -down, or -steps.")
			os.Exit(0)
		} else if err != nil {
			log.Fatal().Err(err).Msg("Failed to read version")
		}
		log.Info().Uint("version", version).Bool("dirty", dirty).Msg("Current migration version. Use -up, -down, or -steps.")
	}
	log.Info().Dur("duration", time.Since(start)).Msg("Done")
}

func check(err error, op string) {
	if err != nil && !errors.Is(err, migrate.ErrNoChange) {
		log.Fatal().Err(err).Str("op", op).Msg("Migration failed")
	}
	log.Info().Str("op", op).Msg("Migration completed")
}
