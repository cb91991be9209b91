package server

import (
	"errors"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"

	"github.com/vik9541/super-brain-digital-twin/internal/util"
	"github.com/vik9541/super-brain-digital-twin/pkg/logger"
)

// RunMigrations applies any pending SQL migrations before the pool opens.
func RunMigrations() error {
	dir := util.GetEnvString("MIGRATIONS_DIR", "migrations")

	m, err := migrate.New("file://"+dir, util.GetEnv("DATABASE_URL"))
	if err != nil {
		return err
	}
	defer m.Close()

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return err
	}

	logger.Info("Database migrations applied")
	return nil
}
