package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"

	"github.com/JereMicheloud/Backend-Gastos/internal/config"
	"github.com/JereMicheloud/Backend-Gastos/internal/database"
	"github.com/JereMicheloud/Backend-Gastos/internal/logger"
)

// Applies or rolls back SQL migrations outside the server startup path,
// for deploy pipelines and local resets.
func main() {
	logger.Init(os.Getenv("ENV"))
	defer logger.Sync()

	var (
		dir   = flag.String("dir", "migrations", "directory containing migration files")
		down  = flag.Bool("down", false, "roll back the most recent migration instead of migrating up")
		steps = flag.Int("steps", 0, "number of migrations to apply (0 means all pending)")
	)
	flag.Parse()

	if err := run(*dir, *down, *steps); err != nil {
		logger.Get().Fatalf("Migration failed: %v", err)
	}
}

func run(dir string, down bool, steps int) error {
	log := logger.Get()

	if _, err := config.Load(); err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}
	dbConfig, err := database.NewConfig()
	if err != nil {
		return fmt.Errorf("failed to load database configuration: %w", err)
	}

	mig, err := migrate.New("file://"+dir, dbConfig.URL())
	if err != nil {
		return fmt.Errorf("failed to create migrate instance: %w", err)
	}
	defer mig.Close()

	switch {
	case down:
		log.Info("Rolling back most recent migration...")
		err = mig.Steps(-1)
	case steps > 0:
		log.Infof("Applying %d migration(s)...", steps)
		err = mig.Steps(steps)
	default:
		log.Info("Applying all pending migrations...")
		err = mig.Up()
	}
	if err != nil && err != migrate.ErrNoChange {
		return err
	}

	version, dirty, verr := mig.Version()
	if verr != nil && verr != migrate.ErrNilVersion {
		return verr
	}
	log.Infof("Migrations complete (version=%d dirty=%v)", version, dirty)
	return nil
}
