// ==============================================================================
// DATABASE MIGRATION - cmd/migrate/main.go
// ==============================================================================
package main

import (
	"database/sql"
	"errors"
	"fmt"
	"os"
	"strconv"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"github.com/joho/godotenv"
	_ "github.com/lib/pq"

	"moneypro/pkg/config"
	"moneypro/pkg/logger"
)

const usage = "usage: migrate [up|down|steps N|version|force VERSION]"

func main() {
	_ = godotenv.Load()

	cfg := config.Load()
	log := logger.New("moneypro-migrate")

	if cfg.Database.URL == "" {
		log.Fatal("DATABASE_URL environment variable is required", nil)
	}
	if len(os.Args) < 2 {
		log.Fatal(usage, nil)
	}

	db, err := sql.Open("postgres", cfg.Database.URL)
	if err != nil {
		log.Fatal("Failed to connect to database", map[string]interface{}{"error": err.Error()})
	}
	defer db.Close()

	driver, err := postgres.WithInstance(db, &postgres.Config{})
	if err != nil {
		log.Fatal("Failed to create migration driver", map[string]interface{}{"error": err.Error()})
	}

	m, err := migrate.NewWithDatabaseInstance(cfg.Database.MigrationsPath, "postgres", driver)
	if err != nil {
		log.Fatal("Failed to create migrate instance", map[string]interface{}{
			"error": err.Error(),
			"path":  cfg.Database.MigrationsPath,
		})
	}

	if err := run(m, os.Args[1:], log); err != nil {
		log.Fatal("Migration failed", map[string]interface{}{
			"command": os.Args[1],
			"error":   err.Error(),
		})
	}
}

func run(m *migrate.Migrate, args []string, log logger.Logger) error {
	switch args[0] {
	case "up":
		if err := ignoreNoChange(m.Up()); err != nil {
			return err
		}
		log.Info("Migrations applied", nil)

	case "down":
		if err := ignoreNoChange(m.Down()); err != nil {
			return err
		}
		log.Info("Migrations rolled back", nil)

	case "steps":
		n, err := intArg(args)
		if err != nil {
			return err
		}
		if err := ignoreNoChange(m.Steps(n)); err != nil {
			return err
		}
		log.Info("Migration steps applied", map[string]interface{}{"steps": n})

	case "version":
		version, dirty, err := m.Version()
		if errors.Is(err, migrate.ErrNilVersion) {
			log.Info("No migrations applied", nil)
			return nil
		}
		if err != nil {
			return err
		}
		log.Info("Current version", map[string]interface{}{"version": version, "dirty": dirty})

	case "force":
		version, err := intArg(args)
		if err != nil {
			return err
		}
		if err := m.Force(version); err != nil {
			return err
		}
		log.Info("Forced version", map[string]interface{}{"version": version})

	default:
		return fmt.Errorf("unknown command %q (%s)", args[0], usage)
	}
	return nil
}

func ignoreNoChange(err error) error {
	if errors.Is(err, migrate.ErrNoChange) {
		return nil
	}
	return err
}

func intArg(args []string) (int, error) {
	if len(args) < 2 {
		return 0, fmt.Errorf("missing argument (%s)", usage)
	}
	n, err := strconv.Atoi(args[1])
	if err != nil {
		return 0, fmt.Errorf("invalid number %q", args[1])
	}
	return n, nil
}
